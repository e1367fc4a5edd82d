/*
PURPOSE:
  Engine construction and the HTTP probe behind the http-probe routine.
  The probe measures time to first response byte against the configured target.

REQUIREMENTS:
  User-specified:
  - Benchmark a network endpoint with the same harness as in-process code.

  Implementation-discovered:
  - Needs http.Client with timeouts.
  - A failed probe must abort the benchmark rather than record a bogus sample.
  - The body is drained so keep-alive connections are reused between samples.

ARCHITECTURE INTEGRATION:
  - Called by: internal/engine/routines.go (http-probe), internal/cli
  - Uses: internal/config, internal/output

ERROR HANDLING:
  - Network errors and non-2xx statuses are returned; the routine turns them into an abort.
  - No retries: a retried sample would hide the latency it is meant to measure.

IMPLEMENTATION RULES:
  - Use net/http with httptrace.
  - Enforce Target.Timeout per request.

USAGE:
  e := engine.New(cfg)
  d, err := e.Probe(ctx, cfg.Target.URL)

SELF-HEALING INSTRUCTIONS:
  - If probes time out at headers, raise target.timeout in the suite file.

RELATED FILES:
  - internal/config/config.go
  - internal/engine/routines.go

MAINTENANCE:
  - Add request methods/bodies to Target if POST probes are needed.
*/

package engine

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/http/httptrace"
	"sync/atomic"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/trace"

	"github.com/daryltucker/forest-bench/internal/config"
	"github.com/daryltucker/forest-bench/internal/output"
)

const tracerName = "forest-bench.engine"

// Engine runs benchmark suites.
type Engine struct {
	Config *config.Config
	Client *http.Client

	routines map[string]Routine
	tracer   trace.Tracer
}

// New creates a new Engine with the built-in routines registered.
func New(cfg *config.Config) *Engine {
	timeout := cfg.Target.Timeout
	if timeout <= 0 {
		timeout = config.DefaultConfig().Target.Timeout
	}

	// ResponseHeaderTimeout separates a server that accepts but never answers
	// from one that is slow to stream a body.
	transport := http.DefaultTransport.(*http.Transport).Clone()
	transport.ResponseHeaderTimeout = timeout

	e := &Engine{
		Config: cfg,
		Client: &http.Client{
			Transport: transport,
			Timeout:   timeout,
		},
		routines: make(map[string]Routine),
		tracer:   otel.Tracer(tracerName),
	}
	for _, r := range Builtins() {
		e.routines[r.Name] = r
	}
	return e
}

// SetTracerProvider makes the engine emit spans to tp instead of the global provider.
func (e *Engine) SetTracerProvider(tp trace.TracerProvider) {
	e.tracer = tp.Tracer(tracerName)
}

// Probe issues a GET to url and returns the time until the first response byte.
func (e *Engine) Probe(ctx context.Context, url string) (time.Duration, error) {
	var ttfb atomic.Int64
	var start time.Time

	tr := &httptrace.ClientTrace{
		GotConn: func(info httptrace.GotConnInfo) {
			output.Logger.Debug("Network: Connected", "remote", info.Conn.RemoteAddr(), "reused", info.Reused)
		},
		GotFirstResponseByte: func() {
			ttfb.Store(int64(time.Since(start)))
		},
	}

	ctx, cancel := context.WithTimeout(ctx, e.Client.Timeout)
	defer cancel()
	ctx = httptrace.WithClientTrace(ctx, tr)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return 0, err
	}

	start = time.Now()
	resp, err := e.Client.Do(req)
	if err != nil {
		return 0, fmt.Errorf("probe %s: %w", url, err)
	}
	defer resp.Body.Close()

	if _, err := io.Copy(io.Discard, resp.Body); err != nil {
		return 0, fmt.Errorf("probe %s: reading body: %w", url, err)
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return 0, fmt.Errorf("probe %s: bad status: %s", url, resp.Status)
	}

	d := time.Duration(ttfb.Load())
	if d <= 0 {
		// The trace hook did not fire (e.g. a custom RoundTripper); fall back to header arrival.
		d = time.Since(start)
	}
	return d, nil
}
