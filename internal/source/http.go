// Package source implements the remote catalog data sources consumed by the
// fetch orchestrator.
package source

import (
	"context"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/go-faster/jx"
	"github.com/klauspost/pgzip"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"

	"github.com/xenking/catalog-browser/internal/domain/fetch"
	"github.com/xenking/catalog-browser/internal/domain/product"
)

// DefaultURL is the public catalog endpoint used when none is configured.
const DefaultURL = "https://dummyjson.com/products"

// maxBodySize bounds how much of a response is read before giving up.
const maxBodySize = 16 << 20

var _ fetch.Source = (*HTTPSource)(nil)

// HTTPConfig configures an HTTPSource.
type HTTPConfig struct {
	URL string
	// Timeout bounds a whole request including reading the body. Zero means no
	// timeout.
	Timeout time.Duration
	// Transport is the base round tripper, http.DefaultTransport when nil.
	Transport http.RoundTripper

	TracerProvider trace.TracerProvider
	MeterProvider  metric.MeterProvider
}

// HTTPSource fetches the catalog from an HTTP endpoint.
type HTTPSource struct {
	url    string
	client *http.Client
}

// NewHTTPSource creates an HTTPSource with an instrumented client.
func NewHTTPSource(cfg HTTPConfig) *HTTPSource {
	base := cfg.Transport
	if base == nil {
		base = http.DefaultTransport
	}
	url := cfg.URL
	if url == "" {
		url = DefaultURL
	}

	var opts []otelhttp.Option
	if cfg.TracerProvider != nil {
		opts = append(opts, otelhttp.WithTracerProvider(cfg.TracerProvider))
	}
	if cfg.MeterProvider != nil {
		opts = append(opts, otelhttp.WithMeterProvider(cfg.MeterProvider))
	}

	return &HTTPSource{
		url: url,
		client: &http.Client{
			Timeout:   cfg.Timeout,
			Transport: otelhttp.NewTransport(base, opts...),
		},
	}
}

// Fetch issues a single GET and decodes the response. It never retries.
func (s *HTTPSource) Fetch(ctx context.Context) ([]product.Product, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, s.url, nil)
	if err != nil {
		return nil, &TransportError{Err: err}
	}
	req.Header.Set("Accept", "application/json")
	// Asking explicitly disables the transport's transparent decompression, so
	// the body is inflated below with pgzip.
	req.Header.Set("Accept-Encoding", "gzip")

	resp, err := s.client.Do(req)
	if err != nil {
		return nil, &TransportError{Err: err}
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, 4<<10))
		return nil, &TransportError{StatusCode: resp.StatusCode}
	}

	var body io.Reader = resp.Body
	if strings.EqualFold(resp.Header.Get("Content-Encoding"), "gzip") {
		gz, err := pgzip.NewReader(resp.Body)
		if err != nil {
			return nil, &MalformedError{Reason: "invalid gzip stream", Err: err}
		}
		defer func() { _ = gz.Close() }()
		body = gz
	}

	data, err := readLimited(body)
	if err != nil {
		return nil, err
	}
	return Decode(jx.DecodeBytes(data))
}

func readLimited(r io.Reader) ([]byte, error) {
	data, err := io.ReadAll(io.LimitReader(r, maxBodySize+1))
	if err != nil {
		return nil, &TransportError{Err: err}
	}
	if len(data) > maxBodySize {
		return nil, &MalformedError{Reason: "response too large"}
	}
	return data, nil
}
