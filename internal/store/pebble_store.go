package store

import (
	"encoding/json"
	"fmt"
	"path/filepath"
	"time"

	"github.com/cockroachdb/pebble"

	"oap/internal/model"
)

// PebbleStore implements Store using PebbleDB.
type PebbleStore struct {
	db *pebble.DB
}

func NewPebbleStore(dir string) (*PebbleStore, error) {
	opts := &pebble.Options{
		// Tuned for bulk loads: large memtable, early compactions.
		MemTableSize:             256 << 20,
		MaxConcurrentCompactions: func() int { return 4 },
		L0CompactionThreshold:    4,
		L0StopWritesThreshold:    8,
		WALBytesPerSync:          1 << 20,
		DisableWAL:               false,
		WALMinSyncInterval:       func() time.Duration { return 0 },
	}
	d, err := pebble.Open(filepath.Clean(dir), opts)
	if err != nil {
		return nil, fmt.Errorf("pebble open: %w", err)
	}
	return &PebbleStore{db: d}, nil
}

func (p *PebbleStore) Close() error { return p.db.Close() }

func encodeOrder(o model.Order) ([]byte, error) { return json.Marshal(o) }
func decodeOrder(val []byte) (model.Order, error) {
	var o model.Order
	if err := json.Unmarshal(val, &o); err != nil {
		return model.Order{}, err
	}
	return o, nil
}

func (p *PebbleStore) Put(key string, o model.Order) (bool, error) {
	k := []byte(key)
	existed := false
	if _, closer, err := p.db.Get(k); err == nil {
		existed = true
		_ = closer.Close()
	} else if err != pebble.ErrNotFound {
		return false, err
	}
	val, err := encodeOrder(o)
	if err != nil {
		return false, err
	}
	if err := p.db.Set(k, val, pebble.NoSync); err != nil {
		return false, err
	}
	return existed, nil
}

func (p *PebbleStore) Get(key string) (model.Order, bool) {
	v, closer, err := p.db.Get([]byte(key))
	if err != nil {
		return model.Order{}, false
	}
	defer closer.Close()
	o, e := decodeOrder(v)
	if e != nil {
		return model.Order{}, false
	}
	return o, true
}

func (p *PebbleStore) Delete(key string) error {
	return p.db.Delete([]byte(key), pebble.NoSync)
}

func (p *PebbleStore) Range(fn func(key string, o model.Order) error) error {
	it, _ := p.db.NewIter(nil)
	defer it.Close()
	for it.First(); it.Valid(); it.Next() {
		k := append([]byte(nil), it.Key()...)
		v := append([]byte(nil), it.Value()...)
		o, err := decodeOrder(v)
		if err != nil {
			return err
		}
		if err := fn(string(k), o); err != nil {
			return err
		}
	}
	return nil
}

// LoadAll loads a full snapshot into Pebble by replacing all keys.
func (p *PebbleStore) LoadAll(all map[string]model.Order) {
	var toDelete [][]byte
	it, _ := p.db.NewIter(nil)
	for it.First(); it.Valid(); it.Next() {
		k := append([]byte(nil), it.Key()...)
		toDelete = append(toDelete, k)
	}
	it.Close()
	if len(toDelete) > 0 {
		wb := p.db.NewBatch()
		for _, k := range toDelete {
			_ = wb.Delete(k, nil)
		}
		_ = wb.Commit(pebble.NoSync)
		_ = wb.Close()
	}
	if len(all) > 0 {
		wb := p.db.NewBatch()
		for k, o := range all {
			val, err := encodeOrder(o)
			if err != nil {
				continue
			}
			_ = wb.Set([]byte(k), val, nil)
		}
		_ = wb.Commit(pebble.NoSync)
		_ = wb.Close()
	}
}
