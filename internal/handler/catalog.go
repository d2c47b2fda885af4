package handler

import (
	"net/http"

	"github.com/go-faster/jx"

	"github.com/xenking/catalog-browser/internal/browser"
	"github.com/xenking/catalog-browser/internal/domain/fetch"
	"github.com/xenking/catalog-browser/internal/domain/product"
	"github.com/xenking/catalog-browser/internal/source"
)

// GetCatalog returns the filtered catalog view.
func (h *Handler) GetCatalog(w http.ResponseWriter, _ *http.Request) {
	view := h.session.View()
	writeJSON(w, http.StatusOK, func(e *jx.Encoder) { encodeView(e, view) })
}

// SetQuery replaces the search query and returns the resulting view.
func (h *Handler) SetQuery(w http.ResponseWriter, r *http.Request) {
	var (
		query string
		seen  bool
	)
	err := readObject(r, func(d *jx.Decoder, key string) error {
		if key != "query" {
			return d.Skip()
		}
		if d.Next() != jx.String {
			return badRequest("query must be a string")
		}
		seen = true
		var err error
		query, err = d.Str()
		return err
	})
	if err == nil && !seen {
		err = badRequest("query is required")
	}
	if err != nil {
		writeErr(w, r, err)
		return
	}

	h.session.SetQuery(query)
	h.GetCatalog(w, r)
}

// Reload starts a catalog fetch and answers before it completes.
func (h *Handler) Reload(w http.ResponseWriter, r *http.Request) {
	h.session.Reload(r.Context())
	writeJSON(w, http.StatusAccepted, func(e *jx.Encoder) { encodeStatus(e, h.session.Status()) })
}

// GetStatus returns the status of the most recent fetch.
func (h *Handler) GetStatus(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, func(e *jx.Encoder) { encodeStatus(e, h.session.Status()) })
}

func encodeStatus(e *jx.Encoder, st fetch.Status) {
	e.Obj(func(e *jx.Encoder) {
		e.Field("state", func(e *jx.Encoder) { e.Str(st.State().String()) })
		if st.State() == fetch.StateFailed {
			e.Field("message", func(e *jx.Encoder) { e.Str(st.Message()) })
		}
	})
}

func encodeView(e *jx.Encoder, v browser.View) {
	e.Obj(func(e *jx.Encoder) {
		e.Field("status", func(e *jx.Encoder) { encodeStatus(e, v.Status) })
		e.Field("query", func(e *jx.Encoder) { e.Str(v.Query) })
		e.Field("total", func(e *jx.Encoder) { e.Int(v.Total) })
		e.Field("items", func(e *jx.Encoder) {
			e.Arr(func(e *jx.Encoder) {
				for _, row := range v.Rows {
					e.Obj(func(e *jx.Encoder) {
						writeProduct(e, row.Product)
						e.Field("inCart", func(e *jx.Encoder) { e.Bool(row.InCart) })
						e.Field("position", func(e *jx.Encoder) { e.Int(row.Position) })
					})
				}
			})
		})
	})
}

// writeProduct writes the product fields plus the derived display fields.
func writeProduct(e *jx.Encoder, p product.Product) {
	source.WriteProductFields(e, p)
	e.Field("finalPrice", func(e *jx.Encoder) { e.Num(jx.Num(p.FinalPrice().String())) })
	e.Field("thumbnail", func(e *jx.Encoder) { e.Str(p.Thumbnail()) })
}
