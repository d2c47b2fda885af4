package product

import (
	"github.com/shopspring/decimal"
)

// MaxCatalogSize is the number of products kept from a single source response.
// Anything past it is dropped, it is not an error.
const MaxCatalogSize = 30

// Product represents a catalog item as returned by the remote source.
// Products are immutable once fetched: identity is ID, everything else is
// descriptive payload.
type Product struct {
	ID                 int64
	Title              string
	Description        string
	Category           string
	Price              decimal.Decimal
	DiscountPercentage decimal.Decimal
	Rating             float64
	Stock              int
	Images             []string
}

// Thumbnail returns the first image reference, or an empty string.
func (p Product) Thumbnail() string {
	if len(p.Images) == 0 {
		return ""
	}
	return p.Images[0]
}

// FinalPrice is Price reduced by DiscountPercentage, rounded to cents.
func (p Product) FinalPrice() decimal.Decimal {
	off := p.Price.Mul(p.DiscountPercentage).Div(hundred)
	return p.Price.Sub(off).Round(2)
}

var hundred = decimal.NewFromInt(100)

// Truncate returns the first MaxCatalogSize products of items, preserving order.
func Truncate(items []Product) []Product {
	if len(items) > MaxCatalogSize {
		return items[:MaxCatalogSize]
	}
	return items
}
