package source

import (
	"fmt"
	"io"

	"github.com/go-faster/errors"
	"github.com/go-faster/jx"
	"github.com/shopspring/decimal"

	"github.com/xenking/catalog-browser/internal/domain/product"
)

var hundred = decimal.NewFromInt(100)

// Product fields that must be present on every element of "products".
const (
	hasID uint16 = 1 << iota
	hasTitle
	hasDescription
	hasCategory
	hasPrice
	hasDiscount
	hasRating
	hasStock
	hasImages

	hasAll = hasID | hasTitle | hasDescription | hasCategory | hasPrice |
		hasDiscount | hasRating | hasStock | hasImages
)

var requiredFields = []struct {
	bit  uint16
	name string
}{
	{hasID, "id"},
	{hasTitle, "title"},
	{hasDescription, "description"},
	{hasCategory, "category"},
	{hasPrice, "price"},
	{hasDiscount, "discountPercentage"},
	{hasRating, "rating"},
	{hasStock, "stock"},
	{hasImages, "images"},
}

// Decode reads a {"products": [...]} document. Unknown fields are ignored;
// a missing or mistyped required field fails the whole document, and so does
// anything but whitespace after the root object.
func Decode(d *jx.Decoder) ([]product.Product, error) {
	if d.Next() != jx.Object {
		return nil, &MalformedError{Reason: "expected object"}
	}

	var (
		items []product.Product
		found bool
	)
	err := d.ObjBytes(func(d *jx.Decoder, key []byte) error {
		if string(key) != "products" {
			return d.Skip()
		}
		found = true
		if d.Next() != jx.Array {
			return &MalformedError{Field: "products", Reason: "expected array"}
		}

		items = make([]product.Product, 0, product.MaxCatalogSize)
		return d.Arr(func(d *jx.Decoder) error {
			p, err := decodeProduct(d, len(items))
			if err != nil {
				return err
			}
			items = append(items, p)
			return nil
		})
	})
	if err != nil {
		var me *MalformedError
		if errors.As(err, &me) {
			return nil, me
		}
		return nil, &MalformedError{Reason: "invalid json", Err: err}
	}
	if !found {
		return nil, &MalformedError{Field: "products", Reason: "missing"}
	}
	if err := d.Skip(); !errors.Is(err, io.EOF) {
		return nil, &MalformedError{Reason: "trailing data", Err: err}
	}
	return items, nil
}

func decodeProduct(d *jx.Decoder, idx int) (product.Product, error) {
	var (
		p    product.Product
		seen uint16
	)
	path := func(key string) string { return fmt.Sprintf("products[%d].%s", idx, key) }

	if d.Next() != jx.Object {
		return p, &MalformedError{Field: fmt.Sprintf("products[%d]", idx), Reason: "expected object"}
	}

	err := d.ObjBytes(func(d *jx.Decoder, key []byte) error {
		var (
			bit uint16
			err error
		)
		switch k := string(key); k {
		case "id":
			bit = hasID
			if err = expect(d, jx.Number, path(k)); err == nil {
				p.ID, err = d.Int64()
			}
		case "title":
			bit = hasTitle
			p.Title, err = decodeStr(d, path(k))
		case "description":
			bit = hasDescription
			p.Description, err = decodeStr(d, path(k))
		case "category":
			bit = hasCategory
			p.Category, err = decodeStr(d, path(k))
		case "price":
			bit = hasPrice
			p.Price, err = decodeDecimal(d, path(k))
		case "discountPercentage":
			bit = hasDiscount
			p.DiscountPercentage, err = decodeDecimal(d, path(k))
		case "rating":
			bit = hasRating
			if err = expect(d, jx.Number, path(k)); err == nil {
				p.Rating, err = d.Float64()
			}
		case "stock":
			bit = hasStock
			if err = expect(d, jx.Number, path(k)); err == nil {
				p.Stock, err = d.Int()
			}
		case "images":
			bit = hasImages
			p.Images, err = decodeImages(d, path(k))
		default:
			return d.Skip()
		}
		if err != nil {
			var me *MalformedError
			if errors.As(err, &me) {
				return me
			}
			return &MalformedError{Field: path(string(key)), Reason: "invalid value", Err: err}
		}
		seen |= bit
		return nil
	})
	if err != nil {
		return p, err
	}

	if seen != hasAll {
		for _, f := range requiredFields {
			if seen&f.bit == 0 {
				return p, &MalformedError{Field: path(f.name), Reason: "missing"}
			}
		}
	}
	return p, validate(p, path)
}

func validate(p product.Product, path func(string) string) error {
	switch {
	case p.Price.IsNegative():
		return &MalformedError{Field: path("price"), Reason: "must not be negative"}
	case p.DiscountPercentage.IsNegative() || p.DiscountPercentage.GreaterThan(hundred):
		return &MalformedError{Field: path("discountPercentage"), Reason: "must be within 0..100"}
	case p.Stock < 0:
		return &MalformedError{Field: path("stock"), Reason: "must not be negative"}
	}
	return nil
}

func expect(d *jx.Decoder, want jx.Type, field string) error {
	if got := d.Next(); got != want {
		return &MalformedError{Field: field, Reason: fmt.Sprintf("expected %s, got %s", want, got)}
	}
	return nil
}

func decodeStr(d *jx.Decoder, field string) (string, error) {
	if err := expect(d, jx.String, field); err != nil {
		return "", err
	}
	return d.Str()
}

func decodeDecimal(d *jx.Decoder, field string) (decimal.Decimal, error) {
	if err := expect(d, jx.Number, field); err != nil {
		return decimal.Zero, err
	}
	n, err := d.Num()
	if err != nil {
		return decimal.Zero, err
	}
	return decimal.NewFromString(n.String())
}

func decodeImages(d *jx.Decoder, field string) ([]string, error) {
	if err := expect(d, jx.Array, field); err != nil {
		return nil, err
	}
	images := []string{}
	err := d.Arr(func(d *jx.Decoder) error {
		s, err := decodeStr(d, fmt.Sprintf("%s[%d]", field, len(images)))
		if err != nil {
			return err
		}
		images = append(images, s)
		return nil
	})
	return images, err
}

// Encode writes items as a {"products": [...]} document readable by Decode.
func Encode(e *jx.Encoder, items []product.Product) {
	e.Obj(func(e *jx.Encoder) {
		e.Field("products", func(e *jx.Encoder) {
			e.Arr(func(e *jx.Encoder) {
				for _, p := range items {
					e.Obj(func(e *jx.Encoder) {
						WriteProductFields(e, p)
					})
				}
			})
		})
	})
}

// WriteProductFields writes the fields of p into the object currently open
// on e, using the same names Decode reads.
func WriteProductFields(e *jx.Encoder, p product.Product) {
	e.Field("id", func(e *jx.Encoder) { e.Int64(p.ID) })
	e.Field("title", func(e *jx.Encoder) { e.Str(p.Title) })
	e.Field("description", func(e *jx.Encoder) { e.Str(p.Description) })
	e.Field("category", func(e *jx.Encoder) { e.Str(p.Category) })
	e.Field("price", func(e *jx.Encoder) { e.Num(jx.Num(p.Price.String())) })
	e.Field("discountPercentage", func(e *jx.Encoder) { e.Num(jx.Num(p.DiscountPercentage.String())) })
	e.Field("rating", func(e *jx.Encoder) { e.Float64(p.Rating) })
	e.Field("stock", func(e *jx.Encoder) { e.Int(p.Stock) })
	e.Field("images", func(e *jx.Encoder) {
		e.Arr(func(e *jx.Encoder) {
			for _, img := range p.Images {
				e.Str(img)
			}
		})
	})
}
