package storage

import (
	"bytes"
	"context"
	"crypto/tls"
	"fmt"
	"io"
	"net/http"

	"github.com/opensearch-project/opensearch-go/v2"

	"github.com/devicepulse/devicepulse/internal/config"
)

// Client wraps the OpenSearch client for self-hosted clusters reached with
// basic auth. It satisfies the same Engine contract as the signing client.
type Client struct {
	client *opensearch.Client
}

// NewClient builds the basic-auth engine client. The connection is not probed
// here; readiness is checked through Ping so a briefly unavailable engine does
// not keep the bridge from starting.
func NewClient(cfg config.EngineConfig) (*Client, error) {
	httpClient := &http.Client{
		Timeout: cfg.RequestTimeout,
		Transport: &http.Transport{
			TLSClientConfig: &tls.Config{
				InsecureSkipVerify: cfg.TLSSkipVerify,
			},
		},
	}

	osCfg := opensearch.Config{
		Addresses: []string{cfg.Endpoint},
		Username:  cfg.Username,
		Password:  cfg.Password,
		Transport: httpClient.Transport,
	}

	client, err := opensearch.NewClient(osCfg)
	if err != nil {
		return nil, fmt.Errorf("failed to create opensearch client: %w", err)
	}

	return &Client{client: client}, nil
}

// Bulk executes one bulk request. The response is buffered whole; a non-2xx
// status is handed back without being turned into an error.
func (c *Client) Bulk(ctx context.Context, payload []byte) (*Response, error) {
	res, err := c.client.Bulk(
		bytes.NewReader(payload),
		c.client.Bulk.WithContext(ctx),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to execute bulk request: %w", err)
	}
	defer res.Body.Close()

	buf, err := io.ReadAll(res.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read response body: %w", err)
	}

	return &Response{
		StatusCode: res.StatusCode,
		Status:     res.Status(),
		Header:     res.Header,
		Body:       buf,
	}, nil
}

// Ping verifies the engine responds to an info request.
func (c *Client) Ping(ctx context.Context) error {
	res, err := c.client.Info(c.client.Info.WithContext(ctx))
	if err != nil {
		return fmt.Errorf("failed to ping engine: %w", err)
	}
	defer res.Body.Close()

	if res.IsError() {
		return fmt.Errorf("engine returned error: %s", res.Status())
	}
	return nil
}

// Name identifies the client mode for logs.
func (c *Client) Name() string {
	return "basic"
}
