// Package places queries the Google Places web service for text and nearby
// searches. Both operations degrade to an empty result on any failure.
package places

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"time"

	domerrors "github.com/garyellow/travel-linebot-go/internal/errors"
	"github.com/garyellow/travel-linebot-go/internal/metrics"
	"golang.org/x/sync/singleflight"
)

const (
	photoMaxWidth = 800

	// PlaceholderImageURL is shown when a place has no photo.
	PlaceholderImageURL = "https://via.placeholder.com/800x533?text=No+Image"

	maxBodyBytes = 2 << 20
)

// Place is one search result.
type Place struct {
	Name     string
	Address  string
	Rating   *float64
	PlaceID  string
	PhotoRef string
	PhotoURL string // empty when PhotoRef is empty
}

// MapsURL links to the place in Google Maps. The place id is added when known.
func (p Place) MapsURL() string {
	q := url.Values{}
	q.Set("api", "1")
	q.Set("query", p.Name)
	if p.PlaceID != "" {
		q.Set("query_place_id", p.PlaceID)
	}
	return "https://www.google.com/maps/search/?" + q.Encode()
}

// ImageURL returns the photo URL or the placeholder.
func (p Place) ImageURL() string {
	if p.PhotoURL != "" {
		return p.PhotoURL
	}
	return PlaceholderImageURL
}

// Recorder receives gateway metrics. *metrics.Metrics satisfies it.
type Recorder interface {
	RecordGateway(gateway, status string, duration float64)
	RecordSingleflightDedup(gateway string)
}

// Config configures a Client.
type Config struct {
	APIKey   string
	BaseURL  string // e.g. https://maps.googleapis.com/maps/api/place
	Language string
	Timeout  time.Duration
}

// Client talks to the Places API.
type Client struct {
	httpClient *http.Client
	cfg        Config
	group      singleflight.Group
	metrics    Recorder
}

// NewClient creates a Places client. A nil recorder disables metrics.
func NewClient(cfg Config, recorder Recorder) *Client {
	if cfg.Timeout <= 0 {
		cfg.Timeout = 10 * time.Second
	}
	return &Client{
		httpClient: &http.Client{
			Timeout: cfg.Timeout,
			Transport: &http.Transport{
				MaxIdleConns:        20,
				MaxIdleConnsPerHost: 10,
				IdleConnTimeout:     90 * time.Second,
			},
		},
		cfg:     cfg,
		metrics: recorder,
	}
}

// TextSearch returns places matching query in provider relevance order.
func (c *Client) TextSearch(ctx context.Context, query string) []Place {
	params := url.Values{}
	params.Set("query", query)
	return c.search(ctx, metrics.GatewayTextSearch, "textsearch", params)
}

// NearbySearch returns places matching keyword around (lat, lng), nearest first.
func (c *Client) NearbySearch(ctx context.Context, lat, lng float64, keyword string) []Place {
	params := url.Values{}
	params.Set("location", formatCoord(lat)+","+formatCoord(lng))
	params.Set("keyword", keyword)
	params.Set("rankby", "distance")
	return c.search(ctx, metrics.GatewayNearbySearch, "nearbysearch", params)
}

func formatCoord(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}

func (c *Client) search(ctx context.Context, gateway, endpoint string, params url.Values) []Place {
	params.Set("language", c.cfg.Language)
	key := gateway + "?" + params.Encode()

	start := time.Now()
	v, err, shared := c.group.Do(key, func() (any, error) {
		return c.fetch(ctx, endpoint, params)
	})
	if shared && c.metrics != nil {
		c.metrics.RecordSingleflightDedup(gateway)
	}

	var results []Place
	status := "success"
	switch {
	case err != nil:
		status = "error"
		slog.WarnContext(ctx, "place search failed",
			"gateway", gateway,
			"error", err)
	default:
		results = v.([]Place)
		if len(results) == 0 {
			status = "empty"
		}
	}
	if c.metrics != nil {
		c.metrics.RecordGateway(gateway, status, time.Since(start).Seconds())
	}
	if results == nil {
		results = []Place{}
	}
	return results
}

type apiPlace struct {
	Name             string   `json:"name"`
	FormattedAddress string   `json:"formatted_address"`
	Vicinity         string   `json:"vicinity"`
	Rating           *float64 `json:"rating"`
	PlaceID          string   `json:"place_id"`
	Photos           []struct {
		PhotoReference string `json:"photo_reference"`
	} `json:"photos"`
}

type apiResponse struct {
	Status       string     `json:"status"`
	ErrorMessage string     `json:"error_message"`
	Results      []apiPlace `json:"results"`
}

func (c *Client) fetch(ctx context.Context, endpoint string, params url.Values) ([]Place, error) {
	if c.cfg.APIKey == "" {
		return nil, fmt.Errorf("places api key not configured: %w", domerrors.ErrProviderUnavailable)
	}
	params.Set("key", c.cfg.APIKey)

	reqURL := fmt.Sprintf("%s/%s/json?%s", c.cfg.BaseURL, endpoint, params.Encode())
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		// The URL carries the API key; report only the endpoint.
		err = unwrapURLError(err)
		if errors.Is(err, context.DeadlineExceeded) {
			return nil, fmt.Errorf("%s request failed: %w: %w", endpoint, domerrors.ErrTimeout, err)
		}
		return nil, fmt.Errorf("%s request failed: %w", endpoint, err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, domerrors.NewProviderError("places", resp.StatusCode, resp.Status, nil)
	}

	var body apiResponse
	if err := json.NewDecoder(io.LimitReader(resp.Body, maxBodyBytes)).Decode(&body); err != nil {
		return nil, fmt.Errorf("decode %s response: %w", endpoint, err)
	}

	switch body.Status {
	case "OK":
	case "ZERO_RESULTS":
		return []Place{}, nil
	default:
		return nil, fmt.Errorf("%s status %s %s: %w", endpoint, body.Status, body.ErrorMessage, domerrors.ErrProviderUnavailable)
	}

	out := make([]Place, 0, len(body.Results))
	for _, r := range body.Results {
		p := Place{
			Name:    r.Name,
			Address: r.FormattedAddress,
			Rating:  r.Rating,
			PlaceID: r.PlaceID,
		}
		if p.Address == "" {
			p.Address = r.Vicinity
		}
		if len(r.Photos) > 0 && r.Photos[0].PhotoReference != "" {
			p.PhotoRef = r.Photos[0].PhotoReference
			p.PhotoURL = c.PhotoURL(p.PhotoRef)
		}
		out = append(out, p)
	}
	return out, nil
}

// PhotoURL builds the photo endpoint URL for a photo reference.
func (c *Client) PhotoURL(photoRef string) string {
	if photoRef == "" {
		return ""
	}
	q := url.Values{}
	q.Set("maxwidth", strconv.Itoa(photoMaxWidth))
	q.Set("photoreference", photoRef)
	q.Set("key", c.cfg.APIKey)
	return c.cfg.BaseURL + "/photo?" + q.Encode()
}

func unwrapURLError(err error) error {
	var ue *url.Error
	if errors.As(err, &ue) {
		return ue.Err
	}
	return err
}
