// Package handler exposes the catalog browser session over a small JSON API.
package handler

import (
	"fmt"
	"io"
	"net/http"

	"github.com/go-faster/errors"
	"github.com/go-faster/jx"
	"github.com/go-faster/sdk/zctx"
	"go.uber.org/zap"

	"github.com/xenking/catalog-browser/internal/browser"
	"github.com/xenking/catalog-browser/internal/domain/catalog"
	"github.com/xenking/catalog-browser/pkg/httpmiddleware"
)

const maxBodySize = 64 << 10

// Handler serves the presentation API for one Session.
type Handler struct {
	session *browser.Session
}

// New constructs a Handler.
func New(session *browser.Session) *Handler {
	return &Handler{session: session}
}

// Register adds the API routes to mux. reload wraps only the reload route,
// typically with a rate limiter.
func (h *Handler) Register(mux *http.ServeMux, reload ...httpmiddleware.Middleware) {
	mux.HandleFunc("GET /api/catalog", h.GetCatalog)
	mux.HandleFunc("PUT /api/query", h.SetQuery)
	mux.Handle("POST /api/reload", httpmiddleware.Wrap(http.HandlerFunc(h.Reload), reload...))
	mux.HandleFunc("GET /api/status", h.GetStatus)
	mux.HandleFunc("GET /api/cart", h.GetCart)
	mux.HandleFunc("POST /api/cart", h.AddToCart)
	mux.HandleFunc("GET /api/alerts", h.GetAlerts)
}

// BadRequestError is returned for request bodies the API cannot accept.
type BadRequestError struct {
	Reason string
}

func (e *BadRequestError) Error() string { return e.Reason }

func badRequest(format string, args ...any) error {
	return &BadRequestError{Reason: fmt.Sprintf(format, args...)}
}

// readObject decodes a JSON object body, calling field for every key.
func readObject(r *http.Request, field func(d *jx.Decoder, key string) error) error {
	data, err := io.ReadAll(io.LimitReader(r.Body, maxBodySize+1))
	if err != nil {
		return errors.Wrap(err, "read body")
	}
	if len(data) > maxBodySize {
		return badRequest("body exceeds %d bytes", maxBodySize)
	}
	d := jx.DecodeBytes(data)
	if d.Next() != jx.Object {
		return badRequest("body must be a JSON object")
	}
	if err := d.ObjBytes(func(d *jx.Decoder, key []byte) error {
		return field(d, string(key))
	}); err != nil {
		var bre *BadRequestError
		if errors.As(err, &bre) {
			return err
		}
		return badRequest("invalid body: %v", err)
	}
	return nil
}

func writeJSON(w http.ResponseWriter, code int, fn func(e *jx.Encoder)) {
	e := jx.GetEncoder()
	defer jx.PutEncoder(e)
	fn(e)

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_, _ = w.Write(e.Bytes())
}

// writeErr maps err to a JSON error response. Unexpected errors are logged
// and reported without detail.
func writeErr(w http.ResponseWriter, r *http.Request, err error) {
	var bre *BadRequestError
	switch {
	case errors.As(err, &bre):
		httpmiddleware.WriteError(w, http.StatusBadRequest, bre.Reason)
	case errors.Is(err, catalog.ErrNotFound):
		httpmiddleware.WriteError(w, http.StatusNotFound, err.Error())
	default:
		zctx.From(r.Context()).Error("Request failed", zap.Error(err))
		httpmiddleware.WriteError(w, http.StatusInternalServerError, "internal error")
	}
}
