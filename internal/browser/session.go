// Package browser is the boundary between the catalog core and whatever
// renders it. A Session owns the catalog store, the fetch orchestrator, the
// search query and the cart, and exposes snapshots plus the user intents:
// reload, set query and add to cart.
package browser

import (
	"context"
	"fmt"
	"sync"

	"github.com/go-faster/errors"
	"github.com/go-faster/sdk/zctx"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"

	"github.com/xenking/catalog-browser/internal/domain/cart"
	"github.com/xenking/catalog-browser/internal/domain/catalog"
	"github.com/xenking/catalog-browser/internal/domain/fetch"
	"github.com/xenking/catalog-browser/internal/domain/product"
	"github.com/xenking/catalog-browser/internal/domain/search"
)

// Config holds non-dependency configuration for a Session.
type Config struct {
	// DiscardStale drops fetch responses superseded by a newer reload.
	DiscardStale bool

	TracerProvider trace.TracerProvider
	MeterProvider  metric.MeterProvider
}

// Row is one visible catalog entry.
type Row struct {
	// Position is the 1-based index within the filtered view.
	Position int
	Product  product.Product
	InCart   bool
}

// View is a consistent snapshot of what the catalog screen shows.
type View struct {
	Status fetch.Status
	Query  string
	// Total is the size of the unfiltered catalog.
	Total int
	Rows  []Row
}

// CartView is a snapshot of the cart.
type CartView struct {
	Size    int
	Summary string
	Entries []cart.Entry
}

// AddResult reports the outcome of an add-to-cart intent.
type AddResult struct {
	Outcome cart.Outcome
	Product product.Product
	Alert   Alert
}

// Session is the process-wide catalog browser state.
type Session struct {
	store   *catalog.Store
	fetcher *fetch.Orchestrator
	cart    *cart.Model
	alerts  alertQueue
	adds    metric.Int64Counter

	mu    sync.RWMutex
	query string

	startOnce sync.Once
	started   <-chan fetch.Status
}

// New creates an idle Session reading the catalog from src. Call Start to
// perform the initial load.
func New(src fetch.Source, cfg Config) (*Session, error) {
	if cfg.MeterProvider == nil {
		cfg.MeterProvider = otel.GetMeterProvider()
	}
	adds, err := cfg.MeterProvider.
		Meter("github.com/xenking/catalog-browser/internal/browser").
		Int64Counter("catalog.cart.adds", metric.WithDescription("Add-to-cart intents by outcome"))
	if err != nil {
		return nil, errors.Wrap(err, "create cart counter")
	}

	s := &Session{
		store: catalog.NewStore(),
		cart:  cart.NewModel(),
		adds:  adds,
	}
	s.fetcher, err = fetch.NewOrchestrator(src, s.store, fetch.Config{
		DiscardStale:   cfg.DiscardStale,
		OnFailure:      s.onFetchFailure,
		TracerProvider: cfg.TracerProvider,
		MeterProvider:  cfg.MeterProvider,
	})
	if err != nil {
		return nil, errors.Wrap(err, "create orchestrator")
	}
	return s, nil
}

// Start performs the automatic initial reload. Only the first call reloads;
// later calls return the same channel. There are no automatic retries.
func (s *Session) Start(ctx context.Context) <-chan fetch.Status {
	s.startOnce.Do(func() {
		s.started = s.fetcher.ReloadAsync(ctx)
	})
	return s.started
}

// Reload starts a new fetch. The status is Loading when Reload returns; the
// channel receives the terminal status.
func (s *Session) Reload(ctx context.Context) <-chan fetch.Status {
	return s.fetcher.ReloadAsync(ctx)
}

// Status returns the status of the most recent fetch.
func (s *Session) Status() fetch.Status {
	return s.fetcher.Status()
}

// SetQuery replaces the search query. The next View reflects it.
func (s *Session) SetQuery(text string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.query = text
}

// Query returns the current search query.
func (s *Session) Query() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.query
}

// View derives the visible catalog from the current catalog, query and cart.
func (s *Session) View() View {
	query := s.Query()
	items, status := s.fetcher.Snapshot()
	filtered := search.Filter(items, query)
	inCart := s.cart.IDs()

	rows := make([]Row, len(filtered))
	for i, p := range filtered {
		_, ok := inCart[p.ID]
		rows[i] = Row{Position: i + 1, Product: p, InCart: ok}
	}
	return View{
		Status: status,
		Query:  query,
		Total:  len(items),
		Rows:   rows,
	}
}

// Add puts p into the cart unless it is already there and queues the matching
// acknowledgment.
func (s *Session) Add(ctx context.Context, p product.Product) AddResult {
	outcome := s.cart.Add(p)

	var alert Alert
	switch outcome {
	case cart.Added:
		alert = addedAlert(p.Title)
	default:
		alert = alreadyInCartAlert()
	}
	s.alerts.push(alert)
	s.adds.Add(ctx, 1, metric.WithAttributes(attribute.String("outcome", outcome.String())))

	zctx.From(ctx).Debug("Add to cart",
		zap.Int64("product_id", p.ID),
		zap.Stringer("outcome", outcome),
		zap.Int("cart_size", s.cart.Size()),
	)
	return AddResult{Outcome: outcome, Product: p, Alert: alert}
}

// AddByID looks id up in the current catalog and adds it. It returns
// catalog.ErrNotFound when the catalog does not contain id.
func (s *Session) AddByID(ctx context.Context, id int64) (AddResult, error) {
	p, err := s.store.Find(id)
	if err != nil {
		return AddResult{}, err
	}
	return s.Add(ctx, p), nil
}

// InCart reports whether the product id is in the cart.
func (s *Session) InCart(id int64) bool {
	return s.cart.Contains(id)
}

// Cart returns a snapshot of the cart.
func (s *Session) Cart() CartView {
	entries := s.cart.Entries()
	return CartView{
		Size:    len(entries),
		Summary: cartSummary(len(entries)),
		Entries: entries,
	}
}

// Alerts returns the pending acknowledgments and clears them.
func (s *Session) Alerts() []Alert {
	return s.alerts.drain()
}

func (s *Session) onFetchFailure(context.Context) {
	s.alerts.push(fetchFailedAlert(fetch.FailedMessage))
}

func cartSummary(n int) string {
	if n == 1 {
		return "Cart: 1 item"
	}
	return fmt.Sprintf("Cart: %d items", n)
}
