// Package cart records which products the user has chosen, with add-once
// semantics. Membership is independent of the catalog: refetching or replacing
// the catalog never removes anything from the cart.
package cart

import (
	"sync"
	"time"

	"github.com/xenking/catalog-browser/internal/domain/product"
)

// Outcome is the result of an Add call.
type Outcome uint8

const (
	// Added means the product was not in the cart and now is.
	Added Outcome = iota + 1
	// AlreadyPresent means the product id was already in the cart; the cart is
	// unchanged. It is an expected outcome, not an error.
	AlreadyPresent
)

// String implements fmt.Stringer.
func (o Outcome) String() string {
	switch o {
	case Added:
		return "added"
	case AlreadyPresent:
		return "already_present"
	default:
		return "unknown"
	}
}

// Entry is a cart member: the product as it looked when it was added.
type Entry struct {
	Product product.Product
	AddedAt time.Time
}

// Model is the set of products in the cart.
type Model struct {
	mu      sync.RWMutex
	entries map[int64]Entry
	order   []int64
	now     func() time.Time
}

// NewModel creates an empty cart.
func NewModel() *Model {
	return &Model{
		entries: make(map[int64]Entry),
		now:     time.Now,
	}
}

// Add inserts p unless a product with the same id is already present.
func (m *Model) Add(p product.Product) Outcome {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, ok := m.entries[p.ID]; ok {
		return AlreadyPresent
	}
	m.entries[p.ID] = Entry{Product: p, AddedAt: m.now()}
	m.order = append(m.order, p.ID)
	return Added
}

// Contains reports whether a product with the given id is in the cart.
func (m *Model) Contains(id int64) bool {
	m.mu.RLock()
	defer m.mu.RUnlock()

	_, ok := m.entries[id]
	return ok
}

// Size returns the number of distinct products in the cart.
func (m *Model) Size() int {
	m.mu.RLock()
	defer m.mu.RUnlock()

	return len(m.order)
}

// Entries returns the cart contents in the order they were added.
func (m *Model) Entries() []Entry {
	m.mu.RLock()
	defer m.mu.RUnlock()

	out := make([]Entry, len(m.order))
	for i, id := range m.order {
		out[i] = m.entries[id]
	}
	return out
}

// IDs returns the set of product ids in the cart.
func (m *Model) IDs() map[int64]struct{} {
	m.mu.RLock()
	defer m.mu.RUnlock()

	out := make(map[int64]struct{}, len(m.entries))
	for id := range m.entries {
		out[id] = struct{}{}
	}
	return out
}
