package store

import (
	"fmt"
	"path/filepath"

	badger "github.com/dgraph-io/badger/v4"

	"oap/internal/model"
)

// BadgerStore implements Store using BadgerDB.
type BadgerStore struct {
	db *badger.DB
}

func NewBadgerStore(dir string) (*BadgerStore, error) {
	opts := badger.DefaultOptions(filepath.Clean(dir))
	db, err := badger.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("badger open: %w", err)
	}
	return &BadgerStore{db: db}, nil
}

func (b *BadgerStore) Close() error { return b.db.Close() }

func (b *BadgerStore) Put(key string, o model.Order) (bool, error) {
	var existed bool
	err := b.db.Update(func(txn *badger.Txn) error {
		_, err := txn.Get([]byte(key))
		switch err {
		case nil:
			existed = true
		case badger.ErrKeyNotFound:
			existed = false
		default:
			return err
		}
		val, err := encodeOrder(o)
		if err != nil {
			return err
		}
		return txn.Set([]byte(key), val)
	})
	return existed, err
}

func (b *BadgerStore) Get(key string) (model.Order, bool) {
	var o model.Order
	err := b.db.View(func(txn *badger.Txn) error {
		item, e := txn.Get([]byte(key))
		if e != nil {
			return e
		}
		v, e := item.ValueCopy(nil)
		if e != nil {
			return e
		}
		var dErr error
		o, dErr = decodeOrder(v)
		return dErr
	})
	if err != nil {
		return model.Order{}, false
	}
	return o, true
}

func (b *BadgerStore) Delete(key string) error {
	return b.db.Update(func(txn *badger.Txn) error {
		return txn.Delete([]byte(key))
	})
}

func (b *BadgerStore) Range(fn func(key string, o model.Order) error) error {
	return b.db.View(func(txn *badger.Txn) error {
		it := txn.NewIterator(badger.DefaultIteratorOptions)
		defer it.Close()
		for it.Rewind(); it.Valid(); it.Next() {
			item := it.Item()
			k := item.KeyCopy(nil)
			v, err := item.ValueCopy(nil)
			if err != nil {
				return err
			}
			o, err := decodeOrder(v)
			if err != nil {
				return err
			}
			if err := fn(string(k), o); err != nil {
				return err
			}
		}
		return nil
	})
}

// LoadAll loads a full snapshot into Badger by replacing all keys.
func (b *BadgerStore) LoadAll(all map[string]model.Order) {
	_ = b.db.Update(func(txn *badger.Txn) error {
		it := txn.NewIterator(badger.DefaultIteratorOptions)
		var keysToDelete [][]byte
		for it.Rewind(); it.Valid(); it.Next() {
			k := it.Item().KeyCopy(nil)
			keysToDelete = append(keysToDelete, k)
		}
		it.Close()
		for _, k := range keysToDelete {
			if err := txn.Delete(k); err != nil {
				return err
			}
		}
		for k, o := range all {
			val, err := encodeOrder(o)
			if err != nil {
				return err
			}
			if err := txn.Set([]byte(k), val); err != nil {
				return err
			}
		}
		return nil
	})
}
