package browser

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/go-faster/errors"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/xenking/catalog-browser/internal/domain/cart"
	"github.com/xenking/catalog-browser/internal/domain/catalog"
	"github.com/xenking/catalog-browser/internal/domain/fetch"
	"github.com/xenking/catalog-browser/internal/domain/product"
	"github.com/xenking/catalog-browser/internal/domain/search"
)

// --- Fakes ---

type mockSource struct {
	mu    sync.Mutex
	items []product.Product
	err   error
}

func (m *mockSource) Fetch(_ context.Context) ([]product.Product, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.items, m.err
}

func (m *mockSource) set(items []product.Product, err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.items, m.err = items, err
}

// --- Helpers ---

// newCatalog returns n products; every fifth one is a shirt, found through a
// different field each time.
func newCatalog(n int) []product.Product {
	out := make([]product.Product, n)
	for i := range out {
		id := int64(i + 1)
		p := product.Product{
			ID:          id,
			Title:       fmt.Sprintf("Item %d", id),
			Description: "Plain item",
			Category:    "misc",
			Price:       decimal.NewFromInt(id),
			Images:      []string{fmt.Sprintf("https://cdn.example.com/%d.png", id)},
		}
		switch i % 15 {
		case 0:
			p.Title = fmt.Sprintf("Blue Shirt %d", id)
		case 5:
			p.Description = "Goes well with a SHIRT"
		case 10:
			p.Category = "mens-shirts"
		}
		out[i] = p
	}
	return out
}

func newSession(t *testing.T, src fetch.Source) *Session {
	t.Helper()
	s, err := New(src, Config{DiscardStale: true})
	require.NoError(t, err)
	return s
}

func wait(t *testing.T, ch <-chan fetch.Status) fetch.Status {
	t.Helper()
	select {
	case st := <-ch:
		return st
	case <-time.After(5 * time.Second):
		t.Fatal("fetch did not finish")
		return fetch.Status{}
	}
}

func rowIDs(rows []Row) []int64 {
	out := make([]int64, len(rows))
	for i, r := range rows {
		out[i] = r.Product.ID
	}
	return out
}

// --- Tests ---

func TestSession_EndToEnd(t *testing.T) {
	s := newSession(t, &mockSource{items: newCatalog(30)})

	assert.Equal(t, fetch.StateIdle, s.Status().State())
	st := wait(t, s.Start(context.Background()))
	require.Equal(t, fetch.StateSucceeded, st.State())

	view := s.View()
	assert.Equal(t, fetch.StateSucceeded, view.Status.State())
	assert.Equal(t, 30, view.Total)
	assert.Len(t, view.Rows, 30)

	s.SetQuery("shirt")
	view = s.View()
	require.NotEmpty(t, view.Rows)
	assert.Equal(t, "shirt", view.Query)
	for i, row := range view.Rows {
		assert.True(t, search.Matches(row.Product, "shirt"), "row %d does not match", row.Product.ID)
		assert.Equal(t, i+1, row.Position)
		assert.False(t, row.InCart)
	}
	assert.Equal(t, []int64{1, 6, 11, 16, 21, 26}, rowIDs(view.Rows))

	first := view.Rows[0].Product
	res := s.Add(context.Background(), first)
	assert.Equal(t, cart.Added, res.Outcome)
	assert.True(t, s.InCart(first.ID))
	assert.Equal(t, 1, s.Cart().Size)

	res = s.Add(context.Background(), first)
	assert.Equal(t, cart.AlreadyPresent, res.Outcome)
	assert.Equal(t, 1, s.Cart().Size)

	assert.True(t, s.View().Rows[0].InCart)
}

func TestSession_StartOnlyOnce(t *testing.T) {
	src := &mockSource{items: newCatalog(3)}
	s := newSession(t, src)

	first := s.Start(context.Background())
	second := s.Start(context.Background())

	assert.Equal(t, first, second)
	wait(t, first)
}

func TestSession_StartFailureIsTerminal(t *testing.T) {
	src := &mockSource{err: errors.New("no route to host")}
	s := newSession(t, src)

	st := wait(t, s.Start(context.Background()))

	assert.Equal(t, fetch.StateFailed, st.State())
	assert.Equal(t, fetch.FailedMessage, s.View().Status.Message())
	assert.Empty(t, s.View().Rows)

	// Nothing retries on its own.
	time.Sleep(20 * time.Millisecond)
	assert.Equal(t, fetch.StateFailed, s.Status().State())

	src.set(newCatalog(2), nil)
	assert.Equal(t, fetch.StateSucceeded, wait(t, s.Reload(context.Background())).State())
	assert.Equal(t, 2, s.View().Total)
}

func TestSession_CartSurvivesCatalogRefresh(t *testing.T) {
	src := &mockSource{items: newCatalog(10)}
	s := newSession(t, src)
	wait(t, s.Start(context.Background()))

	res, err := s.AddByID(context.Background(), 4)
	require.NoError(t, err)
	require.Equal(t, cart.Added, res.Outcome)

	src.set(newCatalog(3), nil)
	require.Equal(t, fetch.StateSucceeded, wait(t, s.Reload(context.Background())).State())

	assert.Equal(t, 3, s.View().Total)
	assert.True(t, s.InCart(4))
	view := s.Cart()
	require.Len(t, view.Entries, 1)
	assert.Equal(t, "Item 4", view.Entries[0].Product.Title)
}

func TestSession_FailedReloadKeepsCatalog(t *testing.T) {
	src := &mockSource{items: newCatalog(8)}
	s := newSession(t, src)
	wait(t, s.Start(context.Background()))
	before := s.View().Rows

	src.set(nil, errors.New("502"))
	wait(t, s.Reload(context.Background()))

	view := s.View()
	assert.Equal(t, fetch.StateFailed, view.Status.State())
	assert.Equal(t, before, view.Rows)
}

func TestSession_AddByIDUnknown(t *testing.T) {
	s := newSession(t, &mockSource{items: newCatalog(2)})
	wait(t, s.Start(context.Background()))

	_, err := s.AddByID(context.Background(), 99)

	require.ErrorIs(t, err, catalog.ErrNotFound)
	assert.Equal(t, 0, s.Cart().Size)
	assert.Empty(t, s.Alerts())
}

func TestSession_Alerts(t *testing.T) {
	src := &mockSource{items: newCatalog(2)}
	s := newSession(t, src)
	wait(t, s.Start(context.Background()))

	p := s.View().Rows[1].Product
	s.Add(context.Background(), p)
	s.Add(context.Background(), p)
	src.set(nil, errors.New("boom"))
	wait(t, s.Reload(context.Background()))

	alerts := s.Alerts()
	require.Len(t, alerts, 3)
	assert.Equal(t, Alert{
		Kind:    AlertAdded,
		Title:   "Added to cart",
		Message: `"Item 2" has been added to your cart.`,
	}, alerts[0])
	assert.Equal(t, Alert{
		Kind:    AlertAlreadyInCart,
		Title:   "Already in cart",
		Message: "This item is already in your cart.",
	}, alerts[1])
	assert.Equal(t, Alert{
		Kind:    AlertFetchFailed,
		Title:   "Error",
		Message: "Failed to load posts.",
	}, alerts[2])

	assert.Empty(t, s.Alerts(), "alerts are acknowledged once")
}

func TestSession_AlertQueueBounded(t *testing.T) {
	s := newSession(t, &mockSource{})
	for i := range maxAlerts + 5 {
		s.Add(context.Background(), product.Product{ID: int64(i), Title: fmt.Sprint(i)})
	}

	alerts := s.Alerts()
	require.Len(t, alerts, maxAlerts)
	assert.Equal(t, `"5" has been added to your cart.`, alerts[0].Message)
}

func TestSession_QueryIsAppliedToEveryView(t *testing.T) {
	src := &mockSource{items: newCatalog(15)}
	s := newSession(t, src)
	wait(t, s.Start(context.Background()))

	s.SetQuery("SHIRT")
	assert.Equal(t, []int64{1, 6, 11}, rowIDs(s.View().Rows))

	src.set(newCatalog(30), nil)
	wait(t, s.Reload(context.Background()))
	assert.Len(t, s.View().Rows, 6)

	s.SetQuery("")
	assert.Len(t, s.View().Rows, 30)
}

func TestCartSummary(t *testing.T) {
	assert.Equal(t, "Cart: 0 items", cartSummary(0))
	assert.Equal(t, "Cart: 1 item", cartSummary(1))
	assert.Equal(t, "Cart: 2 items", cartSummary(2))
}
