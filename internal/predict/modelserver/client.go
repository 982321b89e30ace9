// Package modelserver is the HTTP client for the prediction backend.
package modelserver

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strconv"

	"github.com/rs/zerolog"

	"github.com/NoamTeshuva/pedestrian-web/internal/predict"
	"github.com/NoamTeshuva/pedestrian-web/internal/provider/resilience"
)

const (
	// ProviderName identifies the prediction backend.
	ProviderName = "modelserver"

	// DefaultBaseURL is the local development model server.
	DefaultBaseURL = "http://localhost:8000"
)

// ClientConfig holds configuration for the model-server client.
type ClientConfig struct {
	// BaseURL is the model server base URL (optional).
	BaseURL string

	// HTTPClient is the HTTP client to use (optional).
	// If nil, uses a resilient client with defaults.
	HTTPClient *resilience.Client

	// Logger for client operations.
	Logger zerolog.Logger
}

// Client talks to the prediction backend.
type Client struct {
	baseURL    string
	httpClient *resilience.Client
	logger     zerolog.Logger
}

// NewClient creates a new model-server client.
func NewClient(cfg ClientConfig) *Client {
	baseURL := cfg.BaseURL
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}

	httpClient := cfg.HTTPClient
	if httpClient == nil {
		httpClient = resilience.NewClient(resilience.DefaultClientConfig(ProviderName))
	}

	return &Client{
		baseURL:    baseURL,
		httpClient: httpClient,
		logger:     cfg.Logger,
	}
}

// Name returns the provider name.
func (c *Client) Name() string {
	return ProviderName
}

// Predict requests volume-bin predictions for a place or bounding box.
func (c *Client) Predict(ctx context.Context, req predict.Request) (*predict.Result, error) {
	if req.Place == "" && req.BBox == nil {
		return nil, predict.ErrMissingScope
	}

	params := url.Values{}
	if req.BBox != nil {
		params.Set("bbox", req.BBox.String())
	} else {
		params.Set("place", req.Place)
	}
	if req.Season != "" {
		params.Set("season", req.Season)
	}
	if req.WeekType != "" {
		params.Set("week_type", req.WeekType)
	}
	if req.TimeOfDay != "" {
		params.Set("time_of_day", req.TimeOfDay)
	}
	if !req.Date.IsZero() {
		params.Set("date", req.Date.Format("2006-01-02"))
		params.Set("hour", strconv.Itoa(req.Hour))
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/predict?"+params.Encode(), http.NoBody)
	if err != nil {
		return nil, fmt.Errorf("creating request: %w", err)
	}

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("executing request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, c.apiError(resp)
	}

	var result predict.Result
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return nil, fmt.Errorf("decoding response: %w", err)
	}

	if result.GeoJSON == nil || result.GeoJSON.Type != "FeatureCollection" {
		return nil, fmt.Errorf("%w: missing feature collection", predict.ErrMalformedResponse)
	}

	return &result, nil
}

// Simulate re-scores the network with user edits applied.
func (c *Client) Simulate(ctx context.Context, req predict.SimulateRequest) (*predict.FeatureCollection, error) {
	if req.Place == "" && req.BBox == "" {
		return nil, predict.ErrMissingScope
	}

	body, err := json.Marshal(req)
	if err != nil {
		return nil, fmt.Errorf("marshaling request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/simulate", bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("creating request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("executing request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, c.apiError(resp)
	}

	var collection predict.FeatureCollection
	if err := json.NewDecoder(resp.Body).Decode(&collection); err != nil {
		return nil, fmt.Errorf("decoding response: %w", err)
	}

	if collection.Type != "FeatureCollection" {
		return nil, fmt.Errorf("%w: missing feature collection", predict.ErrMalformedResponse)
	}

	return &collection, nil
}

// Healthy checks the model server's health endpoint.
func (c *Client) Healthy(ctx context.Context) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/health", http.NoBody)
	if err != nil {
		return fmt.Errorf("creating request: %w", err)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("executing request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("unexpected status code: %d", resp.StatusCode)
	}
	return nil
}

// errorPayload is the machine-readable error body on non-2xx responses.
type errorPayload struct {
	Error string `json:"error"`
	Code  int    `json:"code"`
}

func (c *Client) apiError(resp *http.Response) error {
	apiErr := &predict.Error{
		Provider:   ProviderName,
		StatusCode: resp.StatusCode,
		Message:    fmt.Sprintf("model server returned status %d", resp.StatusCode),
	}

	var payload errorPayload
	if err := json.NewDecoder(resp.Body).Decode(&payload); err == nil && payload.Error != "" {
		apiErr.Message = payload.Error
	}

	return apiErr
}
