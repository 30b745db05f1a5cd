// Package merge implements the insert-or-full-replace upsert over the
// canonical store. Merges on distinct keys run concurrently; merges on the
// same order_id are serialized through striped per-key locks.
package merge

import (
	"hash/fnv"
	"sync"

	"oap/internal/model"
	"oap/internal/store"
)

// Outcome is the tagged result of a merge.
type Outcome int

const (
	Inserted Outcome = iota
	Replaced
)

func (o Outcome) String() string {
	if o == Inserted {
		return "inserted"
	}
	return "replaced"
}

const stripes = 64

// Merger applies keyed upserts to a Store. A record matching an existing
// key replaces it wholesale: no partial-field merge, and an incoming record
// with fewer line items truncates the stored array. Applying the same
// record twice leaves the same stored state as applying it once.
type Merger struct {
	st    store.Store
	locks [stripes]sync.Mutex
}

func NewMerger(st store.Store) *Merger {
	return &Merger{st: st}
}

func (m *Merger) stripe(key string) *sync.Mutex {
	h := fnv.New32a()
	_, _ = h.Write([]byte(key))
	return &m.locks[h.Sum32()%stripes]
}

// Merge upserts the order by its order_id.
func (m *Merger) Merge(o model.Order) (Outcome, error) {
	mu := m.stripe(o.OrderID)
	mu.Lock()
	defer mu.Unlock()
	existed, err := m.st.Put(o.OrderID, o)
	if err != nil {
		return Inserted, err
	}
	if existed {
		return Replaced, nil
	}
	return Inserted, nil
}

// Delete removes an order from the canonical store.
func (m *Merger) Delete(orderID string) error {
	mu := m.stripe(orderID)
	mu.Lock()
	defer mu.Unlock()
	return m.st.Delete(orderID)
}
