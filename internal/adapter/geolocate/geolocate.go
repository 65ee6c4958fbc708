// Package geolocate provides one-shot device position lookups.
package geolocate

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/couchcryptid/incident-map/internal/domain"
)

// Static reports a fixed position, e.g. for a kiosk with a known location.
type Static struct {
	Position domain.LatLng
}

func (s Static) CurrentPosition(_ context.Context) (domain.LatLng, error) {
	return s.Position, nil
}

// HTTP asks an IP geolocation endpoint for the position. The endpoint must
// answer with a JSON object carrying "lat" and "lon" (ip-api.com style) or
// "latitude" and "longitude".
type HTTP struct {
	url        string
	httpClient *http.Client
}

// NewHTTP creates an HTTP position provider.
func NewHTTP(url string, timeout time.Duration) *HTTP {
	return &HTTP{url: url, httpClient: &http.Client{Timeout: timeout}}
}

func (h *HTTP) CurrentPosition(ctx context.Context) (domain.LatLng, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, h.url, nil)
	if err != nil {
		return domain.LatLng{}, fmt.Errorf("create request: %w", err)
	}

	resp, err := h.httpClient.Do(req)
	if err != nil {
		return domain.LatLng{}, fmt.Errorf("geolocation request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 4<<10))
		return domain.LatLng{}, fmt.Errorf("geolocation error: status %d: %s", resp.StatusCode, body)
	}

	var p position
	if err := json.NewDecoder(resp.Body).Decode(&p); err != nil {
		return domain.LatLng{}, fmt.Errorf("decode response: %w", err)
	}
	if p.Status != "" && p.Status != "success" {
		return domain.LatLng{}, fmt.Errorf("geolocation failed: %s", p.Message)
	}

	switch {
	case p.Lat != nil && p.Lon != nil:
		return domain.LatLng{Lat: *p.Lat, Lng: *p.Lon}, nil
	case p.Latitude != nil && p.Longitude != nil:
		return domain.LatLng{Lat: *p.Latitude, Lng: *p.Longitude}, nil
	default:
		return domain.LatLng{}, fmt.Errorf("geolocation response has no coordinates")
	}
}

type position struct {
	Status    string   `json:"status"`
	Message   string   `json:"message"`
	Lat       *float64 `json:"lat"`
	Lon       *float64 `json:"lon"`
	Latitude  *float64 `json:"latitude"`
	Longitude *float64 `json:"longitude"`
}
