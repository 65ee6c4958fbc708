package domain

import (
	"context"
	"errors"
)

// ErrGeolocationUnsupported is returned when no location provider is available.
var ErrGeolocationUnsupported = errors.New("geolocation is not supported")

// LocationProvider reports the device position once.
type LocationProvider interface {
	CurrentPosition(ctx context.Context) (LatLng, error)
}
