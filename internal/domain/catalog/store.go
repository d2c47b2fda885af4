// Package catalog holds the process-wide product collection.
package catalog

import (
	"slices"
	"sync/atomic"

	"github.com/go-faster/errors"

	"github.com/xenking/catalog-browser/internal/domain/product"
)

// ErrNotFound is returned when a product id is not part of the current catalog.
var ErrNotFound = errors.New("product not found")

// Store holds the current catalog. It has a single writer (the fetch
// orchestrator) and any number of readers.
//
// The backing slice is never mutated after it is published: Replace swaps in a
// fresh copy, so a reader always sees either the old or the new catalog.
type Store struct {
	items atomic.Pointer[[]product.Product]
}

// NewStore creates an empty Store.
func NewStore() *Store {
	s := &Store{}
	empty := []product.Product{}
	s.items.Store(&empty)
	return s
}

// Items returns a copy of the current catalog in source order.
func (s *Store) Items() []product.Product {
	return slices.Clone(*s.items.Load())
}

// Len returns the number of products in the current catalog.
func (s *Store) Len() int {
	return len(*s.items.Load())
}

// Find returns the product with the given id from the current catalog.
func (s *Store) Find(id int64) (product.Product, error) {
	for _, p := range *s.items.Load() {
		if p.ID == id {
			return p, nil
		}
	}
	return product.Product{}, ErrNotFound
}

// Replace overwrites the catalog wholesale. The caller's slice is copied, so
// later changes to it are not visible to readers.
func (s *Store) Replace(items []product.Product) {
	next := slices.Clone(items)
	if next == nil {
		next = []product.Product{}
	}
	s.items.Store(&next)
}
