// Package maplayer holds the markers and view of the rendered map.
//
// A Layer is not safe for concurrent use; it belongs to the session loop.
package maplayer

import (
	"slices"

	"github.com/couchcryptid/incident-map/internal/domain"
)

// MarkerID identifies a marker for as long as it stays on the layer.
type MarkerID uint64

// Layer is an in-memory map surface: a set of markers plus the current view.
type Layer struct {
	markers map[MarkerID]domain.Marker
	nextID  MarkerID
	view    domain.MapView
}

// New creates an empty layer centered on view.
func New(view domain.MapView) *Layer {
	return &Layer{
		markers: make(map[MarkerID]domain.Marker),
		view:    view,
	}
}

// AddMarker places m on the layer and returns its handle.
func (l *Layer) AddMarker(m domain.Marker) MarkerID {
	l.nextID++
	l.markers[l.nextID] = m
	return l.nextID
}

// RemoveMarker takes a marker off the layer. Unknown IDs are ignored.
func (l *Layer) RemoveMarker(id MarkerID) {
	delete(l.markers, id)
}

// Len returns the number of markers on the layer.
func (l *Layer) Len() int {
	return len(l.markers)
}

// Markers returns the markers in the order they were added.
func (l *Layer) Markers() []domain.Marker {
	ids := make([]MarkerID, 0, len(l.markers))
	for id := range l.markers {
		ids = append(ids, id)
	}
	slices.Sort(ids)

	out := make([]domain.Marker, 0, len(ids))
	for _, id := range ids {
		out = append(out, l.markers[id])
	}
	return out
}

// SetView recenters the map.
func (l *Layer) SetView(center domain.LatLng, zoom int) {
	l.view = domain.MapView{Center: center, Zoom: zoom}
}

// View returns the current center and zoom.
func (l *Layer) View() domain.MapView {
	return l.view
}
