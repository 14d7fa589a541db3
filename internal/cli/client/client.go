package client

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
)

type BridgeClient struct {
	baseURL string
	client  *http.Client
}

func NewBridgeClient(baseURL string) *BridgeClient {
	return &BridgeClient{
		baseURL: baseURL,
		client:  &http.Client{Timeout: 10 * time.Second},
	}
}

// CallbackResult is the bridge's acknowledgement of a forwarded callback.
type CallbackResult struct {
	Status  string `json:"status"`
	Kind    string `json:"kind"`
	Records int    `json:"records"`
}

// HealthStatus reports process liveness.
type HealthStatus struct {
	Status string `json:"status"`
}

// ReadyStatus reports whether the bridge can reach its search engine.
type ReadyStatus struct {
	Status string `json:"status"`
	Reason string `json:"reason,omitempty"`
	Engine string `json:"engine,omitempty"`
}

// SendCallback delivers a raw callback body to the bridge the way a
// device-management server would: PUT with a JSON payload.
func (c *BridgeClient) SendCallback(body []byte) (*CallbackResult, error) {
	req, err := http.NewRequest("PUT", c.baseURL+"/callback", bytes.NewBuffer(body))
	if err != nil {
		return nil, err
	}

	req.Header.Set("Content-Type", "application/json")

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, err
	}

	if resp.StatusCode != http.StatusOK {
		// The bridge answers failures with a plain-text message
		return nil, fmt.Errorf("callback failed with status %d: %s", resp.StatusCode, strings.TrimSpace(string(respBody)))
	}

	var result CallbackResult
	if err := json.Unmarshal(respBody, &result); err != nil {
		return nil, fmt.Errorf("decode bridge response: %w", err)
	}

	return &result, nil
}

func (c *BridgeClient) Health() (*HealthStatus, error) {
	resp, err := c.client.Get(c.baseURL + "/healthz")
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("health check failed with status %d", resp.StatusCode)
	}

	var status HealthStatus
	if err := json.NewDecoder(resp.Body).Decode(&status); err != nil {
		return nil, fmt.Errorf("decode health response: %w", err)
	}

	return &status, nil
}

// Ready returns the readiness report. A 503 is a valid answer (engine
// unreachable), not a client error.
func (c *BridgeClient) Ready() (*ReadyStatus, error) {
	resp, err := c.client.Get(c.baseURL + "/readyz")
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK && resp.StatusCode != http.StatusServiceUnavailable {
		return nil, fmt.Errorf("readiness check failed with status %d", resp.StatusCode)
	}

	var status ReadyStatus
	if err := json.NewDecoder(resp.Body).Decode(&status); err != nil {
		return nil, fmt.Errorf("decode readiness response: %w", err)
	}

	return &status, nil
}
