// Package dispatch orchestrates the bridge pipeline for one callback body:
// classify the payload, transform it into bulk records, serialize them and
// deliver the result to the search engine.
package dispatch

import (
	"context"
	"fmt"
	"time"

	"github.com/devicepulse/devicepulse/internal/bulk"
	"github.com/devicepulse/devicepulse/internal/callback"
	"github.com/devicepulse/devicepulse/internal/logging"
	"github.com/devicepulse/devicepulse/internal/metrics"
	"github.com/devicepulse/devicepulse/internal/storage"
)

// DeadLetter records callbacks whose delivery failed.
type DeadLetter interface {
	Write(ctx context.Context, kind string, body []byte, err error, reason string) error
}

// Result describes one processed callback.
type Result struct {
	Kind      callback.Kind
	SourceKey string
	Records   int

	// StatusCode is the engine's bulk response status; 0 when no request
	// was sent. A non-2xx engine status still counts as a processed
	// callback.
	StatusCode int

	// Stats summarizes the engine's bulk response when one was parseable.
	Stats *storage.BulkStats
}

// Dispatcher runs the decode, transform and delivery steps for callback
// bodies. Delivery failures are reported to the caller and recorded in the
// dead-letter queue; engine-side indexing errors are observed but never
// surfaced upstream.
type Dispatcher struct {
	engine  storage.Engine
	builder *bulk.Builder
	dlq     DeadLetter
	logger  *logging.Logger
}

// New creates a dispatcher. dlq may be nil when dead-lettering is disabled.
func New(engine storage.Engine, builder *bulk.Builder, dlq DeadLetter, logger *logging.Logger) *Dispatcher {
	if logger == nil {
		logger = logging.Default()
	}
	return &Dispatcher{
		engine:  engine,
		builder: builder,
		dlq:     dlq,
		logger:  logger,
	}
}

// Dispatch processes one raw callback body. It returns an error only when the
// body is not valid JSON or the bulk request never completed. Unknown bodies
// and recognized-but-empty batches succeed without an outbound request.
//
// On delivery failure the returned result still carries the classification so
// callers can attribute the failure; the error stays authoritative.
func (d *Dispatcher) Dispatch(ctx context.Context, body []byte) (*Result, error) {
	batch, err := callback.Decode(body)
	if err != nil {
		return nil, err
	}

	if batch.Kind == callback.KindUnknown {
		d.logger.DebugContext(ctx, "ignoring unclassified callback")
		return &Result{Kind: callback.KindUnknown}, nil
	}

	records := d.builder.FromBatch(batch)
	result := &Result{
		Kind:      batch.Kind,
		SourceKey: batch.SourceKey,
		Records:   len(records),
	}

	if len(records) == 0 {
		d.logger.DebugContext(ctx, "callback carried no events",
			logging.Kind(batch.SourceKey))
		return result, nil
	}

	payload, err := bulk.EncodeNDJSON(records)
	if err != nil {
		return nil, fmt.Errorf("encode bulk payload: %w", err)
	}

	for _, rec := range records {
		metrics.RecordsTotal.WithLabelValues(rec.Index).Inc()
	}
	metrics.BulkPayloadBytes.Observe(float64(len(payload)))

	start := time.Now()
	res, err := d.engine.Bulk(ctx, payload)
	metrics.BulkDuration.Observe(time.Since(start).Seconds())

	if err != nil {
		metrics.BulkTransportErrors.Inc()
		d.logger.ErrorContext(ctx, "bulk request failed",
			logging.Kind(batch.SourceKey),
			logging.Records(len(records)),
			logging.Engine(d.engine.Name()),
			logging.Error(err))
		d.deadLetter(ctx, batch, body, err)
		return result, fmt.Errorf("bulk request: %w", err)
	}

	result.StatusCode = res.StatusCode
	d.observeResponse(ctx, batch, res, result)

	d.logger.InfoContext(ctx, "forwarded callback",
		logging.Kind(batch.SourceKey),
		logging.Records(len(records)),
		logging.Status(res.StatusCode),
		logging.Duration(time.Since(start).Milliseconds()))

	return result, nil
}

// observeResponse inspects the engine reply for logging and metrics. The
// callback outcome is already decided at this point.
func (d *Dispatcher) observeResponse(ctx context.Context, batch *callback.Batch, res *storage.Response, result *Result) {
	if !res.Success() {
		d.logger.WarnContext(ctx, "engine rejected bulk request",
			logging.Kind(batch.SourceKey),
			logging.Status(res.StatusCode))
		return
	}

	if len(res.Body) == 0 {
		return
	}

	stats, err := storage.ParseBulkStats(res.Body)
	if err != nil {
		d.logger.DebugContext(ctx, "unparsable bulk response",
			logging.Error(err))
		return
	}

	result.Stats = stats
	if stats.Failed > 0 {
		metrics.BulkItemErrors.Add(float64(stats.Failed))
		d.logger.WarnContext(ctx, "engine reported item errors",
			logging.Kind(batch.SourceKey),
			"failed", stats.Failed,
			"items", stats.Items)
	}
}

func (d *Dispatcher) deadLetter(ctx context.Context, batch *callback.Batch, body []byte, cause error) {
	if d.dlq == nil {
		return
	}
	if err := d.dlq.Write(ctx, string(batch.Kind), body, cause, "transport"); err != nil {
		d.logger.ErrorContext(ctx, "dlq write failed", logging.Error(err))
	}
}
