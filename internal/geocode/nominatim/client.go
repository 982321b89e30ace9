// Package nominatim implements the geocode.Provider interface against a
// Nominatim-compatible search endpoint.
package nominatim

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"github.com/rs/zerolog"

	"github.com/NoamTeshuva/pedestrian-web/internal/geo"
	"github.com/NoamTeshuva/pedestrian-web/internal/geocode"
	"github.com/NoamTeshuva/pedestrian-web/internal/provider/resilience"
)

const (
	// ProviderName identifies this geocoding provider.
	ProviderName = "nominatim"

	// DefaultBaseURL is the public Nominatim instance.
	DefaultBaseURL = "https://nominatim.openstreetmap.org"

	// DefaultUserAgent is sent on every request; Nominatim's usage
	// policy requires an identifying agent.
	DefaultUserAgent = "pedestrian-web/1.0"

	defaultLimit = 5
)

// ClientConfig holds configuration for the Nominatim client.
type ClientConfig struct {
	// BaseURL is the search endpoint base (optional).
	BaseURL string

	// UserAgent overrides the default identifying User-Agent (optional).
	UserAgent string

	// HTTPClient is the HTTP client to use (optional).
	// If nil, uses a resilient client with defaults.
	HTTPClient *resilience.Client

	// Logger for client operations.
	Logger zerolog.Logger
}

// Client is a Nominatim geocoding client.
type Client struct {
	baseURL    string
	userAgent  string
	httpClient *resilience.Client
	logger     zerolog.Logger
}

// NewClient creates a new Nominatim client.
func NewClient(cfg ClientConfig) *Client {
	baseURL := cfg.BaseURL
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}

	userAgent := cfg.UserAgent
	if userAgent == "" {
		userAgent = DefaultUserAgent
	}

	httpClient := cfg.HTTPClient
	if httpClient == nil {
		httpClient = resilience.NewClient(resilience.DefaultClientConfig(ProviderName))
	}

	return &Client{
		baseURL:    baseURL,
		userAgent:  userAgent,
		httpClient: httpClient,
		logger:     cfg.Logger,
	}
}

// Name returns the provider name.
func (c *Client) Name() string {
	return ProviderName
}

// Search queries the geocoder for place candidates.
func (c *Client) Search(ctx context.Context, q geocode.Query) ([]geocode.Candidate, error) {
	params := url.Values{}
	params.Set("q", q.Text)
	params.Set("format", "jsonv2")
	params.Set("addressdetails", "1")

	limit := q.Limit
	if limit <= 0 {
		limit = defaultLimit
	}
	params.Set("limit", strconv.Itoa(limit))

	if len(q.Languages) > 0 {
		params.Set("accept-language", strings.Join(q.Languages, ","))
	}

	if q.Viewport != nil {
		v := q.Viewport
		params.Set("viewbox", fmt.Sprintf("%.6f,%.6f,%.6f,%.6f", v.West, v.South, v.East, v.North))
		params.Set("bounded", "1")
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/search?"+params.Encode(), http.NoBody)
	if err != nil {
		return nil, fmt.Errorf("creating request: %w", err)
	}
	req.Header.Set("User-Agent", c.userAgent)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("executing request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("unexpected status code: %d", resp.StatusCode)
	}

	var results []searchResult
	if err := json.NewDecoder(resp.Body).Decode(&results); err != nil {
		return nil, fmt.Errorf("decoding response: %w", err)
	}

	candidates := make([]geocode.Candidate, 0, len(results))
	for i := range results {
		candidate, err := results[i].toCandidate()
		if err != nil {
			c.logger.Debug().Err(err).Str("display_name", results[i].DisplayName).Msg("skipping unparseable geocode result")
			continue
		}
		candidates = append(candidates, candidate)
	}

	return candidates, nil
}

// Nominatim search response structure (format=jsonv2).
// Coordinates and the bounding box arrive as strings.
type searchResult struct {
	Lat         string   `json:"lat"`
	Lon         string   `json:"lon"`
	Type        string   `json:"type"`
	Class       string   `json:"class"`
	Category    string   `json:"category"` // jsonv2 name for class
	Importance  float64  `json:"importance"`
	DisplayName string   `json:"display_name"`
	BoundingBox []string `json:"boundingbox"` // south, north, west, east
	Address     struct {
		CountryCode string `json:"country_code"`
	} `json:"address"`
}

func (r *searchResult) toCandidate() (geocode.Candidate, error) {
	lat, err := strconv.ParseFloat(r.Lat, 64)
	if err != nil {
		return geocode.Candidate{}, fmt.Errorf("parsing lat %q: %w", r.Lat, err)
	}
	lon, err := strconv.ParseFloat(r.Lon, 64)
	if err != nil {
		return geocode.Candidate{}, fmt.Errorf("parsing lon %q: %w", r.Lon, err)
	}

	class := r.Class
	if class == "" {
		class = r.Category
	}

	candidate := geocode.Candidate{
		Lat:         lat,
		Lon:         lon,
		Type:        r.Type,
		Class:       class,
		CountryCode: strings.ToLower(r.Address.CountryCode),
		Importance:  r.Importance,
		DisplayName: r.DisplayName,
	}

	// An unparseable bounding box only drops the box, not the candidate.
	if len(r.BoundingBox) == 4 {
		south, errS := strconv.ParseFloat(r.BoundingBox[0], 64)
		north, errN := strconv.ParseFloat(r.BoundingBox[1], 64)
		west, errW := strconv.ParseFloat(r.BoundingBox[2], 64)
		east, errE := strconv.ParseFloat(r.BoundingBox[3], 64)
		if errS == nil && errN == nil && errW == nil && errE == nil {
			box := geo.BoundingBox{West: west, South: south, East: east, North: north}
			if box.Valid() {
				candidate.BoundingBox = &box
			}
		}
	}

	return candidate, nil
}
