// Copyright 2025 The MapAudit Authors
// SPDX-License-Identifier: Apache-2.0

package geocode

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/mapaudit/mapaudit/spatial"
	"golang.org/x/time/rate"
)

const googleMapsURL = "https://maps.googleapis.com/maps/api/geocode/json"

// GoogleMapsGeocoder uses the Google Maps Geocoding API.
type GoogleMapsGeocoder struct {
	apiKey     string
	baseURL    string
	httpClient *http.Client
	limiter    *rate.Limiter
}

// GoogleMapsOption configures a GoogleMapsGeocoder.
type GoogleMapsOption func(*GoogleMapsGeocoder)

// WithBaseURL points the geocoder at another endpoint.
func WithBaseURL(u string) GoogleMapsOption {
	return func(g *GoogleMapsGeocoder) {
		g.baseURL = u
	}
}

// WithHTTPClient replaces the default client.
func WithHTTPClient(c *http.Client) GoogleMapsOption {
	return func(g *GoogleMapsGeocoder) {
		g.httpClient = c
	}
}

// WithRate limits the requests per second.
func WithRate(perSecond float64) GoogleMapsOption {
	return func(g *GoogleMapsGeocoder) {
		g.limiter = rate.NewLimiter(rate.Limit(perSecond), 1)
	}
}

// NewGoogleMapsGeocoder creates a new Google Maps geocoder.
func NewGoogleMapsGeocoder(apiKey string, opts ...GoogleMapsOption) *GoogleMapsGeocoder {
	g := &GoogleMapsGeocoder{
		apiKey:  apiKey,
		baseURL: googleMapsURL,
		httpClient: &http.Client{
			Timeout: 10 * time.Second,
		},
		limiter: rate.NewLimiter(10, 1),
	}

	for _, opt := range opts {
		opt(g)
	}

	return g
}

type googleMapsResponse struct {
	Results []struct {
		Geometry struct {
			Location struct {
				Lat float64 `json:"lat"`
				Lng float64 `json:"lng"`
			} `json:"location"`
			LocationType string `json:"location_type"` // ROOFTOP, RANGE_INTERPOLATED, GEOMETRIC_CENTER, APPROXIMATE
		} `json:"geometry"`
		FormattedAddress string `json:"formatted_address"`
	} `json:"results"`
	Status       string `json:"status"` // OK, ZERO_RESULTS, etc.
	ErrorMessage string `json:"error_message"`
}

var locationTypeConfidence = map[string]Confidence{
	"ROOFTOP":            ConfidenceHigh,
	"RANGE_INTERPOLATED": ConfidenceHigh,
	"GEOMETRIC_CENTER":   ConfidenceMedium,
	"APPROXIMATE":        ConfidenceLow,
}

// Geocode implements Geocoder.
func (g *GoogleMapsGeocoder) Geocode(ctx context.Context, address, region string) (*Result, error) {
	if g.apiKey == "" {
		return nil, &Error{Type: ErrorTypeInvalidRequest, Message: "missing Google Maps API key"}
	}

	query := strings.TrimSpace(address)
	if query == "" {
		return nil, &Error{Type: ErrorTypeInvalidRequest, Message: "empty address"}
	}

	params := url.Values{}
	params.Set("address", query)
	params.Set("key", g.apiKey)

	if region != "" {
		params.Set("region", strings.ToLower(region))
	}

	if err := g.limiter.Wait(ctx); err != nil {
		return nil, &Error{Type: ErrorTypeTimeout, Message: "waiting for rate limiter", Err: err}
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, g.baseURL+"?"+params.Encode(), nil)
	if err != nil {
		return nil, err
	}

	resp, err := g.httpClient.Do(req)
	if err != nil {
		t := ErrorTypeNetworkError
		if IsTimeout(err) {
			t = ErrorTypeTimeout
		}

		// the URL carries the key, keep it out of the message
		var urlErr *url.Error
		if errors.As(err, &urlErr) {
			err = urlErr.Err
		}

		return nil, &Error{Type: t, Message: "geocoding request failed", Err: err}
	}

	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, ClassifyHTTPError(resp.StatusCode)
	}

	var gmResp googleMapsResponse
	if err := json.NewDecoder(resp.Body).Decode(&gmResp); err != nil {
		return nil, fmt.Errorf("decoding response: %w", err)
	}

	if geoErr := classifyStatus(gmResp.Status, gmResp.ErrorMessage); geoErr != nil {
		return nil, geoErr
	}

	if len(gmResp.Results) == 0 {
		return nil, &Error{Type: ErrorTypeNotFound, Message: "no results found for " + query}
	}

	result := gmResp.Results[0]

	confidence, ok := locationTypeConfidence[result.Geometry.LocationType]
	if !ok {
		confidence = ConfidenceLow
	}

	p := spatial.Point{Lat: result.Geometry.Location.Lat, Lng: result.Geometry.Location.Lng}
	if err := p.Valid(); err != nil {
		return nil, fmt.Errorf("geocoding %q: %w", query, err)
	}

	return &Result{
		Point:       p,
		Confidence:  confidence,
		Provider:    "google_maps",
		DisplayName: result.FormattedAddress,
	}, nil
}
