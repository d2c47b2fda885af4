package handler

import (
	"net/http"
	"time"

	"github.com/go-faster/jx"

	"github.com/xenking/catalog-browser/internal/browser"
	"github.com/xenking/catalog-browser/internal/domain/cart"
)

// AddToCart adds a catalog product by id. A new entry answers 201, an
// existing one 200; both carry the outcome and the acknowledgment.
func (h *Handler) AddToCart(w http.ResponseWriter, r *http.Request) {
	var (
		id   int64
		seen bool
	)
	err := readObject(r, func(d *jx.Decoder, key string) error {
		if key != "id" {
			return d.Skip()
		}
		if d.Next() != jx.Number {
			return badRequest("id must be a number")
		}
		seen = true
		var err error
		id, err = d.Int64()
		return err
	})
	if err == nil && !seen {
		err = badRequest("id is required")
	}
	if err != nil {
		writeErr(w, r, err)
		return
	}

	res, err := h.session.AddByID(r.Context(), id)
	if err != nil {
		writeErr(w, r, err)
		return
	}

	code := http.StatusOK
	if res.Outcome == cart.Added {
		code = http.StatusCreated
	}
	size := h.session.Cart().Size
	writeJSON(w, code, func(e *jx.Encoder) {
		e.Obj(func(e *jx.Encoder) {
			e.Field("outcome", func(e *jx.Encoder) { e.Str(res.Outcome.String()) })
			e.Field("size", func(e *jx.Encoder) { e.Int(size) })
			e.Field("alert", func(e *jx.Encoder) { encodeAlert(e, res.Alert) })
			e.Field("product", func(e *jx.Encoder) {
				e.Obj(func(e *jx.Encoder) { writeProduct(e, res.Product) })
			})
		})
	})
}

// GetCart returns the cart contents in insertion order.
func (h *Handler) GetCart(w http.ResponseWriter, _ *http.Request) {
	view := h.session.Cart()
	writeJSON(w, http.StatusOK, func(e *jx.Encoder) {
		e.Obj(func(e *jx.Encoder) {
			e.Field("size", func(e *jx.Encoder) { e.Int(view.Size) })
			e.Field("summary", func(e *jx.Encoder) { e.Str(view.Summary) })
			e.Field("items", func(e *jx.Encoder) {
				e.Arr(func(e *jx.Encoder) {
					for _, entry := range view.Entries {
						e.Obj(func(e *jx.Encoder) {
							writeProduct(e, entry.Product)
							e.Field("addedAt", func(e *jx.Encoder) { e.Str(entry.AddedAt.UTC().Format(time.RFC3339Nano)) })
						})
					}
				})
			})
		})
	})
}

// GetAlerts returns pending acknowledgments. Each alert is returned once.
func (h *Handler) GetAlerts(w http.ResponseWriter, _ *http.Request) {
	alerts := h.session.Alerts()
	writeJSON(w, http.StatusOK, func(e *jx.Encoder) {
		e.Obj(func(e *jx.Encoder) {
			e.Field("alerts", func(e *jx.Encoder) {
				e.Arr(func(e *jx.Encoder) {
					for _, a := range alerts {
						encodeAlert(e, a)
					}
				})
			})
		})
	})
}

func encodeAlert(e *jx.Encoder, a browser.Alert) {
	e.Obj(func(e *jx.Encoder) {
		e.Field("kind", func(e *jx.Encoder) { e.Str(string(a.Kind)) })
		e.Field("title", func(e *jx.Encoder) { e.Str(a.Title) })
		e.Field("message", func(e *jx.Encoder) { e.Str(a.Message) })
	})
}
