// Package storage provides the write-side clients for the search engine.
// Two implementations exist: a SigV4-signing client for managed AWS domains
// and a basic-auth client for self-hosted clusters. Both expose the same
// narrow contract: one bulk write and a readiness ping.
package storage

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/devicepulse/devicepulse/internal/config"
)

// Engine is the bridge's contract with the search engine. A non-2xx engine
// reply is not an error: Bulk returns an error only when the request never
// completed (transport or signing failure). Callers inspect StatusCode
// themselves.
type Engine interface {
	Bulk(ctx context.Context, payload []byte) (*Response, error)
	Ping(ctx context.Context) error
	Name() string
}

// NewEngine constructs the engine client selected by cfg.Mode.
func NewEngine(ctx context.Context, cfg config.EngineConfig) (Engine, error) {
	switch cfg.Mode {
	case "aws":
		return NewSigV4Client(ctx, cfg)
	case "basic":
		return NewClient(cfg)
	default:
		return nil, fmt.Errorf("unknown engine mode %q", cfg.Mode)
	}
}

// Response is a fully buffered engine reply.
type Response struct {
	StatusCode int
	Status     string
	Header     http.Header
	Body       []byte
}

// Success reports whether the engine answered with a 2xx status.
func (r *Response) Success() bool {
	return r.StatusCode >= 200 && r.StatusCode < 300
}

// DecodeJSON unmarshals the buffered body into v. An empty body decodes to
// nothing and is not an error.
func (r *Response) DecodeJSON(v interface{}) error {
	if len(r.Body) == 0 {
		return nil
	}
	return json.Unmarshal(r.Body, v)
}

// BulkStats summarizes an engine bulk response body. It exists for logging
// and metrics only; per-document indexing failures never fail the callback.
type BulkStats struct {
	Took   int
	Errors bool
	Items  int
	Failed int
}

// ParseBulkStats decodes the bulk response body. The engine reports one items
// entry per record, keyed by action type, each carrying its own status.
func ParseBulkStats(body []byte) (*BulkStats, error) {
	if len(body) == 0 {
		return nil, fmt.Errorf("empty bulk response body")
	}

	var raw struct {
		Took   int  `json:"took"`
		Errors bool `json:"errors"`
		Items  []map[string]struct {
			Status int             `json:"status"`
			Error  json.RawMessage `json:"error"`
		} `json:"items"`
	}
	if err := json.Unmarshal(body, &raw); err != nil {
		return nil, fmt.Errorf("failed to decode bulk response: %w", err)
	}

	stats := &BulkStats{
		Took:   raw.Took,
		Errors: raw.Errors,
		Items:  len(raw.Items),
	}
	for _, item := range raw.Items {
		for _, op := range item {
			if op.Status >= 300 || len(op.Error) > 0 {
				stats.Failed++
			}
		}
	}
	return stats, nil
}
