package handler

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/go-faster/errors"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/xenking/catalog-browser/internal/browser"
	"github.com/xenking/catalog-browser/internal/domain/fetch"
	"github.com/xenking/catalog-browser/internal/domain/product"
	"github.com/xenking/catalog-browser/pkg/httpmiddleware"
)

// --- Mock implementations ---

type mockSource struct {
	mu    sync.Mutex
	items []product.Product
	err   error
	gate  chan struct{}
}

func (m *mockSource) Fetch(_ context.Context) ([]product.Product, error) {
	m.mu.Lock()
	gate := m.gate
	m.mu.Unlock()
	if gate != nil {
		<-gate
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	return m.items, m.err
}

// --- Helpers ---

func testCatalog() []product.Product {
	titles := []string{"Essence Mascara", "Red Shirt", "Powder Canister", "Blue T-Shirt"}
	out := make([]product.Product, len(titles))
	for i, title := range titles {
		out[i] = product.Product{
			ID:                 int64(i + 1),
			Title:              title,
			Description:        "Description of " + title,
			Category:           "beauty",
			Price:              decimal.RequireFromString("9.99"),
			DiscountPercentage: decimal.RequireFromString("7.17"),
			Rating:             4.5,
			Stock:              10,
			Images:             []string{fmt.Sprintf("https://cdn.example.com/%d.png", i+1)},
		}
	}
	return out
}

func setup(t *testing.T, src *mockSource, reload ...httpmiddleware.Middleware) (*browser.Session, http.Handler) {
	t.Helper()
	s, err := browser.New(src, browser.Config{DiscardStale: true})
	require.NoError(t, err)

	if src.gate == nil {
		select {
		case <-s.Start(context.Background()):
		case <-time.After(5 * time.Second):
			t.Fatal("initial load did not finish")
		}
	}

	mux := http.NewServeMux()
	New(s).Register(mux, reload...)
	return s, mux
}

func do(t *testing.T, h http.Handler, method, path, body string) *httptest.ResponseRecorder {
	t.Helper()
	var req *http.Request
	if body == "" {
		req = httptest.NewRequest(method, path, nil)
	} else {
		req = httptest.NewRequest(method, path, strings.NewReader(body))
	}
	w := httptest.NewRecorder()
	h.ServeHTTP(w, req)
	return w
}

type statusBody struct {
	State   string  `json:"state"`
	Message *string `json:"message"`
}

type itemBody struct {
	ID                 int64       `json:"id"`
	Title              string      `json:"title"`
	Category           string      `json:"category"`
	Price              json.Number `json:"price"`
	DiscountPercentage json.Number `json:"discountPercentage"`
	FinalPrice         json.Number `json:"finalPrice"`
	Rating             float64     `json:"rating"`
	Stock              int         `json:"stock"`
	Images             []string    `json:"images"`
	Thumbnail          string      `json:"thumbnail"`
	InCart             bool        `json:"inCart"`
	Position           int         `json:"position"`
}

type catalogBody struct {
	Status statusBody `json:"status"`
	Query  string     `json:"query"`
	Total  int        `json:"total"`
	Items  []itemBody `json:"items"`
}

func decode[T any](t *testing.T, w *httptest.ResponseRecorder) T {
	t.Helper()
	require.Equal(t, "application/json", w.Header().Get("Content-Type"))
	var v T
	d := json.NewDecoder(w.Body)
	d.UseNumber()
	require.NoError(t, d.Decode(&v))
	return v
}

// --- Tests ---

func TestGetCatalog(t *testing.T) {
	_, h := setup(t, &mockSource{items: testCatalog()})

	w := do(t, h, http.MethodGet, "/api/catalog", "")

	require.Equal(t, http.StatusOK, w.Code)
	body := decode[catalogBody](t, w)
	assert.Equal(t, "succeeded", body.Status.State)
	assert.Nil(t, body.Status.Message)
	assert.Empty(t, body.Query)
	assert.Equal(t, 4, body.Total)
	require.Len(t, body.Items, 4)

	first := body.Items[0]
	assert.Equal(t, int64(1), first.ID)
	assert.Equal(t, "Essence Mascara", first.Title)
	assert.Equal(t, json.Number("9.99"), first.Price)
	assert.Equal(t, json.Number("7.17"), first.DiscountPercentage)
	assert.Equal(t, json.Number("9.27"), first.FinalPrice)
	assert.Equal(t, "https://cdn.example.com/1.png", first.Thumbnail)
	assert.Equal(t, 1, first.Position)
	assert.False(t, first.InCart)
}

func TestSetQuery(t *testing.T) {
	_, h := setup(t, &mockSource{items: testCatalog()})

	w := do(t, h, http.MethodPut, "/api/query", `{"query":"SHIRT"}`)

	require.Equal(t, http.StatusOK, w.Code)
	body := decode[catalogBody](t, w)
	assert.Equal(t, "SHIRT", body.Query)
	assert.Equal(t, 4, body.Total)
	require.Len(t, body.Items, 2)
	assert.Equal(t, "Red Shirt", body.Items[0].Title)
	assert.Equal(t, 1, body.Items[0].Position)
	assert.Equal(t, "Blue T-Shirt", body.Items[1].Title)
	assert.Equal(t, 2, body.Items[1].Position)

	// The query sticks for later reads.
	body = decode[catalogBody](t, do(t, h, http.MethodGet, "/api/catalog", ""))
	assert.Len(t, body.Items, 2)

	body = decode[catalogBody](t, do(t, h, http.MethodPut, "/api/query", `{"query":"no such thing"}`))
	assert.NotNil(t, body.Items)
	assert.Empty(t, body.Items)
}

func TestSetQuery_BadRequest(t *testing.T) {
	tests := []struct {
		name string
		body string
	}{
		{name: "empty body"},
		{name: "not json", body: `query=shirt`},
		{name: "array", body: `["shirt"]`},
		{name: "missing query", body: `{"q":"shirt"}`},
		{name: "query not string", body: `{"query":42}`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, h := setup(t, &mockSource{items: testCatalog()})

			w := do(t, h, http.MethodPut, "/api/query", tt.body)

			assert.Equal(t, http.StatusBadRequest, w.Code)
			var body struct {
				Code    int    `json:"code"`
				Message string `json:"message"`
			}
			require.NoError(t, json.NewDecoder(w.Body).Decode(&body))
			assert.Equal(t, http.StatusBadRequest, body.Code)
			assert.NotEmpty(t, body.Message)
		})
	}
}

func TestAddToCart(t *testing.T) {
	_, h := setup(t, &mockSource{items: testCatalog()})

	type addBody struct {
		Outcome string `json:"outcome"`
		Size    int    `json:"size"`
		Alert   struct {
			Kind    string `json:"kind"`
			Title   string `json:"title"`
			Message string `json:"message"`
		} `json:"alert"`
		Product itemBody `json:"product"`
	}

	w := do(t, h, http.MethodPost, "/api/cart", `{"id":2}`)
	require.Equal(t, http.StatusCreated, w.Code)
	added := decode[addBody](t, w)
	assert.Equal(t, "added", added.Outcome)
	assert.Equal(t, 1, added.Size)
	assert.Equal(t, "Added to cart", added.Alert.Title)
	assert.Equal(t, `"Red Shirt" has been added to your cart.`, added.Alert.Message)
	assert.Equal(t, int64(2), added.Product.ID)

	w = do(t, h, http.MethodPost, "/api/cart", `{"id":2}`)
	require.Equal(t, http.StatusOK, w.Code)
	dup := decode[addBody](t, w)
	assert.Equal(t, "already_present", dup.Outcome)
	assert.Equal(t, 1, dup.Size)
	assert.Equal(t, "already_in_cart", dup.Alert.Kind)

	body := decode[catalogBody](t, do(t, h, http.MethodGet, "/api/catalog", ""))
	assert.False(t, body.Items[0].InCart)
	assert.True(t, body.Items[1].InCart)
}

func TestAddToCart_Errors(t *testing.T) {
	tests := []struct {
		name string
		body string
		code int
	}{
		{name: "unknown product", body: `{"id":99}`, code: http.StatusNotFound},
		{name: "missing id", body: `{}`, code: http.StatusBadRequest},
		{name: "id is string", body: `{"id":"2"}`, code: http.StatusBadRequest},
		{name: "broken json", body: `{"id":`, code: http.StatusBadRequest},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s, h := setup(t, &mockSource{items: testCatalog()})

			w := do(t, h, http.MethodPost, "/api/cart", tt.body)

			assert.Equal(t, tt.code, w.Code)
			assert.Equal(t, 0, s.Cart().Size)
		})
	}
}

func TestGetCart(t *testing.T) {
	_, h := setup(t, &mockSource{items: testCatalog()})

	empty := do(t, h, http.MethodGet, "/api/cart", "")
	require.Equal(t, http.StatusOK, empty.Code)
	assert.JSONEq(t, `{"size":0,"summary":"Cart: 0 items","items":[]}`, empty.Body.String())

	do(t, h, http.MethodPost, "/api/cart", `{"id":4}`)
	do(t, h, http.MethodPost, "/api/cart", `{"id":1}`)

	var body struct {
		Size    int        `json:"size"`
		Summary string     `json:"summary"`
		Items   []itemBody `json:"items"`
	}
	w := do(t, h, http.MethodGet, "/api/cart", "")
	require.NoError(t, json.NewDecoder(w.Body).Decode(&body))
	assert.Equal(t, 2, body.Size)
	assert.Equal(t, "Cart: 2 items", body.Summary)
	require.Len(t, body.Items, 2)
	assert.Equal(t, int64(4), body.Items[0].ID)
	assert.Equal(t, int64(1), body.Items[1].ID)
}

func TestGetAlerts(t *testing.T) {
	_, h := setup(t, &mockSource{items: testCatalog()})
	do(t, h, http.MethodPost, "/api/cart", `{"id":1}`)
	do(t, h, http.MethodPost, "/api/cart", `{"id":1}`)

	w := do(t, h, http.MethodGet, "/api/alerts", "")

	require.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"alerts":[
		{"kind":"added","title":"Added to cart","message":"\"Essence Mascara\" has been added to your cart."},
		{"kind":"already_in_cart","title":"Already in cart","message":"This item is already in your cart."}
	]}`, w.Body.String())

	w = do(t, h, http.MethodGet, "/api/alerts", "")
	assert.JSONEq(t, `{"alerts":[]}`, w.Body.String())
}

func TestReload(t *testing.T) {
	src := &mockSource{items: testCatalog(), gate: make(chan struct{})}
	s, h := setup(t, src)

	w := do(t, h, http.MethodPost, "/api/reload", "")

	require.Equal(t, http.StatusAccepted, w.Code)
	assert.JSONEq(t, `{"state":"loading"}`, w.Body.String())
	assert.JSONEq(t, `{"state":"loading"}`, do(t, h, http.MethodGet, "/api/status", "").Body.String())

	close(src.gate)
	require.Eventually(t, func() bool {
		return s.Status().State() == fetch.StateSucceeded
	}, 5*time.Second, 5*time.Millisecond)
	assert.JSONEq(t, `{"state":"succeeded"}`, do(t, h, http.MethodGet, "/api/status", "").Body.String())
}

func TestStatus_Failed(t *testing.T) {
	_, h := setup(t, &mockSource{err: errors.New("dial tcp: connection refused")})

	w := do(t, h, http.MethodGet, "/api/status", "")

	require.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"state":"failed","message":"Failed to load posts."}`, w.Body.String())

	body := decode[catalogBody](t, do(t, h, http.MethodGet, "/api/catalog", ""))
	assert.Equal(t, "failed", body.Status.State)
	assert.Empty(t, body.Items)
}

func TestReload_RateLimited(t *testing.T) {
	_, h := setup(t, &mockSource{items: testCatalog()}, httpmiddleware.RateLimit(httpmiddleware.RateLimitConfig{
		Max:    1,
		Window: time.Minute,
	}))

	assert.Equal(t, http.StatusAccepted, do(t, h, http.MethodPost, "/api/reload", "").Code)
	assert.Equal(t, http.StatusTooManyRequests, do(t, h, http.MethodPost, "/api/reload", "").Code)

	// Other routes are not limited.
	assert.Equal(t, http.StatusOK, do(t, h, http.MethodGet, "/api/catalog", "").Code)
}

func TestMethodNotAllowed(t *testing.T) {
	_, h := setup(t, &mockSource{items: testCatalog()})

	w := do(t, h, http.MethodDelete, "/api/cart", "")

	assert.Equal(t, http.StatusMethodNotAllowed, w.Code)
}
