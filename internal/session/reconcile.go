package session

import (
	"github.com/couchcryptid/incident-map/internal/domain"
	"github.com/couchcryptid/incident-map/internal/maplayer"
)

// MarkerLayer is the map surface markers are drawn on.
type MarkerLayer interface {
	AddMarker(m domain.Marker) maplayer.MarkerID
	RemoveMarker(id maplayer.MarkerID)
}

// Reconciler keeps one marker per report of the latest collection.
type Reconciler struct {
	layer   MarkerLayer
	present *Presenter
	live    []maplayer.MarkerID
}

// NewReconciler creates a reconciler drawing on layer.
func NewReconciler(layer MarkerLayer, present *Presenter) *Reconciler {
	return &Reconciler{layer: layer, present: present}
}

// Reconcile removes every marker it placed before, then places one marker
// per report. It returns the number of markers now on the layer.
func (r *Reconciler) Reconcile(reports []domain.Report) int {
	for _, id := range r.live {
		r.layer.RemoveMarker(id)
	}
	r.live = r.live[:0]

	for _, report := range reports {
		r.live = append(r.live, r.layer.AddMarker(r.present.Marker(report)))
	}
	return len(r.live)
}
