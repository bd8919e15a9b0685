// Package sentinelhub implements the imagery fetcher and acquisition search
// against the Sentinel Hub process and catalog APIs.
package sentinelhub

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"golang.org/x/oauth2"
	"golang.org/x/oauth2/clientcredentials"

	"github.com/TechRanger101/AgriSense-App/internal/imagery"
)

// DefaultCollection is the data collection queried when none is set.
const DefaultCollection = "sentinel-2-l2a"

const (
	processPath = "/api/v1/process"
	catalogPath = "/api/v1/catalog/1.0.0/search"

	userAgent = "agrisense/1.0"

	// maxErrorBody bounds how much of an error response is kept.
	maxErrorBody = 4 << 10
)

// Credentials are the OAuth2 client credentials of a Sentinel Hub account.
type Credentials struct {
	ClientID     string
	ClientSecret string
	TokenURL     string
}

// Client handles communication with Sentinel Hub. Tokens are fetched and
// refreshed by the client credentials flow.
type Client struct {
	baseURL    string
	collection string
	httpClient *http.Client
	logger     *slog.Logger
}

// NewClient creates a new Sentinel Hub client.
func NewClient(baseURL string, creds Credentials, timeout time.Duration) *Client {
	base := &http.Client{
		Timeout: timeout,
		Transport: &http.Transport{
			MaxIdleConns:        100,
			MaxIdleConnsPerHost: 100,
			IdleConnTimeout:     90 * time.Second,
		},
	}

	cc := &clientcredentials.Config{
		ClientID:     creds.ClientID,
		ClientSecret: creds.ClientSecret,
		TokenURL:     creds.TokenURL,
	}

	ctx := context.WithValue(context.Background(), oauth2.HTTPClient, base)
	httpClient := cc.Client(ctx)
	httpClient.Timeout = timeout

	return &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		collection: DefaultCollection,
		httpClient: httpClient,
		logger:     slog.Default(),
	}
}

// WithLogger sets a custom logger for the client
func (c *Client) WithLogger(logger *slog.Logger) *Client {
	c.logger = logger
	return c
}

// WithCollection sets the data collection used for processing requests.
func (c *Client) WithCollection(collection string) *Client {
	c.collection = collection
	return c
}

// Fetch renders req into a process request and decodes the returned rasters.
// It implements imagery.Fetcher.
func (c *Client) Fetch(ctx context.Context, req imagery.Request) (*imagery.BandSample, error) {
	if err := req.Validate(); err != nil {
		return nil, fmt.Errorf("invalid imagery request: %w", err)
	}

	body, err := newProcessRequest(req, c.collection)
	if err != nil {
		return nil, err
	}

	c.logger.DebugContext(ctx, "executing process request",
		slog.String("from", req.From.Format(time.RFC3339)),
		slog.String("to", req.To.Format(time.RFC3339)),
		slog.Int("width", req.Width),
		slog.Int("height", req.Height),
	)

	resp, err := c.post(ctx, processPath, body, "application/tar")
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	sample, err := decodeTar(resp.Body, req)
	if err != nil {
		c.logger.ErrorContext(ctx, "failed to decode process response",
			slog.String("error", err.Error()),
		)
		return nil, fmt.Errorf("failed to decode process response: %w", err)
	}

	c.logger.DebugContext(ctx, "process request completed",
		slog.Int("bands", len(sample.Bands)),
	)

	return sample, nil
}

// post sends body as JSON and returns the response when the status is 200.
func (c *Client) post(ctx context.Context, path string, body any, accept string) (*http.Response, error) {
	payload, err := json.Marshal(body)
	if err != nil {
		return nil, fmt.Errorf("failed to encode request: %w", err)
	}

	url := c.baseURL + path
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(payload))
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", accept)
	req.Header.Set("User-Agent", userAgent)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		var re *oauth2.RetrieveError
		if errors.As(err, &re) && re.Response != nil {
			c.logger.ErrorContext(ctx, "Sentinel Hub token request failed",
				slog.Int("status_code", re.Response.StatusCode),
			)
			return nil, &imagery.UpstreamError{
				StatusCode: re.Response.StatusCode,
				Message:    "token request rejected: " + string(re.Body),
			}
		}
		c.logger.ErrorContext(ctx, "Sentinel Hub request failed",
			slog.String("error", err.Error()),
			slog.String("url", url),
		)
		return nil, fmt.Errorf("Sentinel Hub request failed: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		defer resp.Body.Close()
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
		c.logger.ErrorContext(ctx, "Sentinel Hub returned non-200 status",
			slog.Int("status_code", resp.StatusCode),
			slog.String("response_body", string(msg)),
		)
		return nil, &imagery.UpstreamError{
			StatusCode: resp.StatusCode,
			Message:    strings.TrimSpace(string(msg)),
		}
	}

	return resp, nil
}
