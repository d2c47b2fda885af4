// Package search derives the visible subset of the catalog for a query.
package search

import (
	"strings"

	"github.com/xenking/catalog-browser/internal/domain/product"
)

// Filter returns the products whose title, description or category contains
// query, ignoring case. Relative order is preserved. An empty query returns
// every product.
//
// Filter is pure: it never modifies items and keeps no state, so callers
// recompute it whenever the catalog or the query changes.
func Filter(items []product.Product, query string) []product.Product {
	needle := strings.ToLower(query)
	out := make([]product.Product, 0, len(items))
	for _, p := range items {
		if matches(p, needle) {
			out = append(out, p)
		}
	}
	return out
}

// Matches reports whether p is selected by query.
func Matches(p product.Product, query string) bool {
	return matches(p, strings.ToLower(query))
}

func matches(p product.Product, needle string) bool {
	if needle == "" {
		return true
	}
	return strings.Contains(strings.ToLower(p.Title), needle) ||
		strings.Contains(strings.ToLower(p.Description), needle) ||
		strings.Contains(strings.ToLower(p.Category), needle)
}
