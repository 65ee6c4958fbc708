// Package googlemaps reverse geocodes coordinates with the Google Maps
// Geocoding API.
package googlemaps

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/couchcryptid/incident-map/internal/domain"
	"github.com/couchcryptid/incident-map/internal/observability"
	"googlemaps.github.io/maps"
)

const provider = "google"

// Client implements domain.ReverseGeocoder.
type Client struct {
	maps     *maps.Client
	language string
	metrics  *observability.Metrics
	logger   *slog.Logger
}

// NewClient creates a Google reverse geocoding client. Extra options are
// passed to the underlying maps client.
func NewClient(apiKey string, timeout time.Duration, language string, metrics *observability.Metrics, logger *slog.Logger, opts ...maps.ClientOption) (*Client, error) {
	options := append([]maps.ClientOption{
		maps.WithAPIKey(apiKey),
		maps.WithHTTPClient(&http.Client{Timeout: timeout}),
	}, opts...)

	mc, err := maps.NewClient(options...)
	if err != nil {
		return nil, fmt.Errorf("create google maps client: %w", err)
	}
	return &Client{maps: mc, language: language, metrics: metrics, logger: logger}, nil
}

// ReverseGeocode resolves coordinates to the colonia and alcaldía that
// contain them.
func (c *Client) ReverseGeocode(ctx context.Context, lat, lon float64) (domain.GeocodingResult, error) {
	start := time.Now()
	results, err := c.maps.ReverseGeocode(ctx, &maps.GeocodingRequest{
		LatLng:   &maps.LatLng{Lat: lat, Lng: lon},
		Language: c.language,
	})
	c.metrics.GeocodeAPIDuration.WithLabelValues(provider).Observe(time.Since(start).Seconds())

	if err != nil {
		c.metrics.GeocodeRequests.WithLabelValues(provider, "error").Inc()
		c.logger.Warn("reverse geocoding failed", "provider", provider, "lat", lat, "lon", lon, "error", err)
		return domain.GeocodingResult{}, fmt.Errorf("google reverse geocode: %w", err)
	}
	if len(results) == 0 {
		c.metrics.GeocodeRequests.WithLabelValues(provider, "empty").Inc()
		return domain.GeocodingResult{}, nil
	}

	c.metrics.GeocodeRequests.WithLabelValues(provider, "success").Inc()
	return toResult(results[0]), nil
}

// toResult reads the CDMX units from the address components: the colonia is
// the neighborhood (or first-level sublocality) and the alcaldía is the
// third-level administrative area (or, failing that, the second).
func toResult(r maps.GeocodingResult) domain.GeocodingResult {
	byType := make(map[string]string)
	for _, comp := range r.AddressComponents {
		for _, typ := range comp.Types {
			if _, seen := byType[typ]; !seen {
				byType[typ] = comp.LongName
			}
		}
	}

	result := domain.GeocodingResult{
		FormattedAddress: r.FormattedAddress,
		Colonia:          firstOf(byType, "neighborhood", "sublocality_level_1"),
		Alcaldia:         firstOf(byType, "administrative_area_level_3", "administrative_area_level_2"),
		Confidence:       1,
	}
	if r.PartialMatch {
		result.Confidence = 0.5
	}
	return result
}

func firstOf(m map[string]string, keys ...string) string {
	for _, k := range keys {
		if v := m[k]; v != "" {
			return v
		}
	}
	return ""
}
