package domain

import (
	"context"
	"errors"
)

// GeocodingResult contains the place names a geocoding provider returned
// for a coordinate.
type GeocodingResult struct {
	FormattedAddress string
	Colonia          string
	Alcaldia         string
	Confidence       float64 // provider confidence, 0 to 1
}

// ReverseGeocoder resolves coordinates to place names.
type ReverseGeocoder interface {
	ReverseGeocode(ctx context.Context, lat, lon float64) (GeocodingResult, error)
}

// GeocoderChain asks each geocoder in turn and returns the first result that
// names a colonia or an alcaldía.
type GeocoderChain []ReverseGeocoder

// ReverseGeocode implements ReverseGeocoder. When no geocoder yields a place
// name, the joined errors are returned, or an empty result if none failed.
func (c GeocoderChain) ReverseGeocode(ctx context.Context, lat, lon float64) (GeocodingResult, error) {
	var errs []error
	for _, g := range c {
		result, err := g.ReverseGeocode(ctx, lat, lon)
		if err != nil {
			errs = append(errs, err)
			continue
		}
		if result.Colonia != "" || result.Alcaldia != "" {
			return result, nil
		}
	}
	return GeocodingResult{}, errors.Join(errs...)
}
