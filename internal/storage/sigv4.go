package storage

import (
	"bytes"
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	v4 "github.com/aws/aws-sdk-go-v2/aws/signer/v4"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"

	"github.com/devicepulse/devicepulse/internal/config"
)

// SigV4Client talks to a managed search domain, signing every request with
// AWS Signature V4. Requests are single-use: each one is built fresh, signed
// with a current timestamp, and discarded after the response is buffered.
type SigV4Client struct {
	endpoint *url.URL
	region   string
	service  string
	creds    aws.CredentialsProvider
	signer   *v4.Signer
	client   *http.Client
}

// NewSigV4Client builds the signing client from engine configuration.
// Credentials come from the AWS default chain unless static keys are set in
// the config; either way they are resolved once up front so a misconfigured
// bridge fails at startup, not on the first callback.
func NewSigV4Client(ctx context.Context, cfg config.EngineConfig) (*SigV4Client, error) {
	endpoint, err := url.Parse(cfg.Endpoint)
	if err != nil {
		return nil, fmt.Errorf("failed to parse engine endpoint: %w", err)
	}
	if endpoint.Scheme == "" || endpoint.Host == "" {
		return nil, fmt.Errorf("engine endpoint %q must include scheme and host", cfg.Endpoint)
	}

	loadOpts := []func(*awsconfig.LoadOptions) error{
		awsconfig.WithRegion(cfg.Region),
	}
	if cfg.AccessKey != "" && cfg.SecretKey != "" {
		loadOpts = append(loadOpts, awsconfig.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(cfg.AccessKey, cfg.SecretKey, "")))
	}

	awsCfg, err := awsconfig.LoadDefaultConfig(ctx, loadOpts...)
	if err != nil {
		return nil, fmt.Errorf("failed to load aws config: %w", err)
	}
	if _, err := awsCfg.Credentials.Retrieve(ctx); err != nil {
		return nil, fmt.Errorf("failed to resolve credentials: %w", err)
	}

	service := cfg.Service
	if service == "" {
		service = "es"
	}

	return &SigV4Client{
		endpoint: endpoint,
		region:   cfg.Region,
		service:  service,
		creds:    awsCfg.Credentials,
		signer:   v4.NewSigner(),
		client:   &http.Client{Timeout: cfg.RequestTimeout},
	}, nil
}

// Do executes one signed request and buffers the whole response. A non-2xx
// status is returned to the caller unchanged; only transport and signing
// failures produce an error.
func (c *SigV4Client) Do(ctx context.Context, method, path string, body []byte) (*Response, error) {
	u := *c.endpoint
	u.Path = strings.TrimSuffix(c.endpoint.Path, "/") + path

	req, err := http.NewRequestWithContext(ctx, method, u.String(), bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("failed to build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Host = c.endpoint.Host

	// The signature binds method, path, headers and the body hash. The hash
	// header must be present before signing so it is covered by the signature.
	sum := sha256.Sum256(body)
	payloadHash := hex.EncodeToString(sum[:])
	req.Header.Set("X-Amz-Content-Sha256", payloadHash)

	creds, err := c.creds.Retrieve(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve credentials: %w", err)
	}
	if err := c.signer.SignHTTP(ctx, creds, req, payloadHash, c.service, c.region, time.Now().UTC()); err != nil {
		return nil, fmt.Errorf("failed to sign request: %w", err)
	}

	res, err := c.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to execute request: %w", err)
	}
	defer res.Body.Close()

	buf, err := io.ReadAll(res.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read response body: %w", err)
	}

	return &Response{
		StatusCode: res.StatusCode,
		Status:     res.Status,
		Header:     res.Header,
		Body:       buf,
	}, nil
}

// Bulk posts a bulk payload to the engine.
func (c *SigV4Client) Bulk(ctx context.Context, payload []byte) (*Response, error) {
	return c.Do(ctx, http.MethodPost, "/_bulk", payload)
}

// Ping checks that the engine answers on its root endpoint.
func (c *SigV4Client) Ping(ctx context.Context) error {
	res, err := c.Do(ctx, http.MethodGet, "/", nil)
	if err != nil {
		return err
	}
	if !res.Success() {
		return fmt.Errorf("engine returned %s", res.Status)
	}
	return nil
}

// Name identifies the client mode for logs.
func (c *SigV4Client) Name() string {
	return "aws"
}
