// Package fetch drives the catalog request lifecycle and owns the only write
// path into the catalog store.
package fetch

import (
	"context"
	"sync"
	"time"

	"github.com/go-faster/errors"
	"github.com/go-faster/sdk/zctx"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"

	"github.com/xenking/catalog-browser/internal/domain/catalog"
	"github.com/xenking/catalog-browser/internal/domain/product"
)

const instrumentationName = "github.com/xenking/catalog-browser/internal/domain/fetch"

// Source retrieves the full product list from the remote catalog.
type Source interface {
	Fetch(ctx context.Context) ([]product.Product, error)
}

// Config holds non-dependency configuration for the Orchestrator.
type Config struct {
	// DiscardStale drops a response when a newer Reload was issued after it.
	// When false, the last response to arrive wins regardless of issue order.
	DiscardStale bool
	// OnFailure is called after a failed fetch has been applied to the status.
	OnFailure func(ctx context.Context)

	TracerProvider trace.TracerProvider
	MeterProvider  metric.MeterProvider
}

// Orchestrator runs catalog fetches and publishes their result.
type Orchestrator struct {
	source Source
	store  *catalog.Store
	cfg    Config
	now    func() time.Time

	tracer   trace.Tracer
	fetches  metric.Int64Counter
	duration metric.Float64Histogram

	mu     sync.Mutex
	status Status
	issued uint64
}

// NewOrchestrator creates an idle Orchestrator writing into store.
func NewOrchestrator(source Source, store *catalog.Store, cfg Config) (*Orchestrator, error) {
	if cfg.TracerProvider == nil {
		cfg.TracerProvider = otel.GetTracerProvider()
	}
	if cfg.MeterProvider == nil {
		cfg.MeterProvider = otel.GetMeterProvider()
	}
	meter := cfg.MeterProvider.Meter(instrumentationName)

	fetches, err := meter.Int64Counter("catalog.fetch.total",
		metric.WithDescription("Catalog fetches by outcome"),
	)
	if err != nil {
		return nil, errors.Wrap(err, "create fetch counter")
	}
	duration, err := meter.Float64Histogram("catalog.fetch.duration",
		metric.WithDescription("Catalog fetch duration"),
		metric.WithUnit("s"),
	)
	if err != nil {
		return nil, errors.Wrap(err, "create fetch histogram")
	}

	return &Orchestrator{
		source:   source,
		store:    store,
		cfg:      cfg,
		now:      time.Now,
		tracer:   cfg.TracerProvider.Tracer(instrumentationName),
		fetches:  fetches,
		duration: duration,
		status:   Idle(),
	}, nil
}

// Status returns the status of the most recent fetch.
func (o *Orchestrator) Status() Status {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.status
}

// Snapshot returns the current catalog together with the status that
// published it. Both are read under the same lock publish holds.
func (o *Orchestrator) Snapshot() ([]product.Product, Status) {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.store.Items(), o.status
}

// Reload sets the status to Loading, fetches the catalog and returns the
// resulting status. Failures are reported only through the returned Status.
//
// The fetch is not cancelled when ctx is: a request in flight always runs to
// completion. Timeouts belong to the Source.
func (o *Orchestrator) Reload(ctx context.Context) Status {
	seq := o.begin()
	return o.run(ctx, seq)
}

// ReloadAsync sets the status to Loading before returning and runs the fetch
// in the background. The channel receives the resulting status and is closed.
func (o *Orchestrator) ReloadAsync(ctx context.Context) <-chan Status {
	seq := o.begin()
	done := make(chan Status, 1)
	go func() {
		defer close(done)
		done <- o.run(ctx, seq)
	}()
	return done
}

func (o *Orchestrator) begin() uint64 {
	o.mu.Lock()
	defer o.mu.Unlock()

	o.issued++
	o.status = Loading()
	return o.issued
}

// publish applies fn under the lock unless seq has been superseded and stale
// responses are discarded.
func (o *Orchestrator) publish(seq uint64, fn func()) bool {
	o.mu.Lock()
	defer o.mu.Unlock()

	if o.cfg.DiscardStale && seq != o.issued {
		return false
	}
	fn()
	return true
}

func (o *Orchestrator) run(ctx context.Context, seq uint64) Status {
	ctx = context.WithoutCancel(ctx)
	ctx, span := o.tracer.Start(ctx, "catalog.fetch",
		trace.WithAttributes(attribute.Int64("catalog.fetch.seq", int64(seq))),
	)
	defer span.End()

	lg := zctx.From(ctx).With(zap.Uint64("seq", seq))
	lg.Debug("Fetching catalog")

	start := o.now()
	items, err := o.source.Fetch(ctx)
	elapsed := o.now().Sub(start)

	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "fetch failed")

		if !o.publish(seq, func() { o.status = Failed(FailedMessage) }) {
			o.record(ctx, "stale", elapsed)
			lg.Debug("Discarding superseded fetch failure", zap.Error(err))
			return o.Status()
		}
		o.record(ctx, "failure", elapsed)
		lg.Warn("Catalog fetch failed", zap.Error(err), zap.Duration("duration", elapsed))
		if o.cfg.OnFailure != nil {
			o.cfg.OnFailure(ctx)
		}
		return Failed(FailedMessage)
	}

	kept := product.Truncate(items)
	span.SetAttributes(
		attribute.Int("catalog.fetch.received", len(items)),
		attribute.Int("catalog.fetch.kept", len(kept)),
	)

	if !o.publish(seq, func() {
		o.store.Replace(kept)
		o.status = Succeeded()
	}) {
		o.record(ctx, "stale", elapsed)
		lg.Debug("Discarding superseded fetch response", zap.Int("received", len(items)))
		return o.Status()
	}
	o.record(ctx, "success", elapsed)
	lg.Info("Catalog loaded",
		zap.Int("received", len(items)),
		zap.Int("kept", len(kept)),
		zap.Duration("duration", elapsed),
	)
	return Succeeded()
}

func (o *Orchestrator) record(ctx context.Context, outcome string, elapsed time.Duration) {
	attrs := metric.WithAttributes(attribute.String("outcome", outcome))
	o.fetches.Add(ctx, 1, attrs)
	o.duration.Record(ctx, elapsed.Seconds(), attrs)
}
