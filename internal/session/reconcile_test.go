package session

import (
	"testing"

	"github.com/couchcryptid/incident-map/internal/domain"
	"github.com/couchcryptid/incident-map/internal/maplayer"
	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// countingLayer records layer operations on top of a real layer.
type countingLayer struct {
	*maplayer.Layer
	adds    int
	removes int
}

func (l *countingLayer) AddMarker(m domain.Marker) maplayer.MarkerID {
	l.adds++
	return l.Layer.AddMarker(m)
}

func (l *countingLayer) RemoveMarker(id maplayer.MarkerID) {
	l.removes++
	l.Layer.RemoveMarker(id)
}

func newCountingLayer() *countingLayer {
	return &countingLayer{Layer: maplayer.New(cdmxView)}
}

func TestReconciler_MarkerPerReport(t *testing.T) {
	layer := newCountingLayer()
	r := NewReconciler(layer, testPresenter())

	reports := makeReports(25)
	n := r.Reconcile(reports)

	assert.Equal(t, 25, n)
	markers := layer.Markers()
	require.Len(t, markers, 25)
	for i, m := range markers {
		assert.Equal(t, reports[i].ID, m.ReportID)
		assert.Equal(t, reports[i].Lat, m.Position.Lat)
		assert.Equal(t, reports[i].Lon, m.Position.Lng)
		assert.Equal(t, domain.ColorFor(reports[i].Tipo), m.Style.FillColor)
	}
}

func TestReconciler_FullReplace(t *testing.T) {
	layer := newCountingLayer()
	r := NewReconciler(layer, testPresenter())

	r.Reconcile(makeReports(3))
	r.Reconcile([]domain.Report{bacheReport()})

	assert.Equal(t, 1, layer.Len())
	assert.Equal(t, 4, layer.adds)
	assert.Equal(t, 3, layer.removes)
	assert.Equal(t, int64(1), layer.Markers()[0].ReportID)
}

func TestReconciler_Idempotent(t *testing.T) {
	layer := newCountingLayer()
	r := NewReconciler(layer, testPresenter())
	reports := makeReports(7)

	r.Reconcile(reports)
	first := layer.Markers()
	r.Reconcile(reports)
	second := layer.Markers()

	assert.Equal(t, 7, layer.Len())
	if diff := cmp.Diff(first, second); diff != "" {
		t.Fatalf("marker set changed across identical reconciles (-first +second):\n%s", diff)
	}
}

func TestReconciler_Empty(t *testing.T) {
	layer := newCountingLayer()
	r := NewReconciler(layer, testPresenter())

	r.Reconcile(makeReports(4))
	n := r.Reconcile(nil)

	assert.Zero(t, n)
	assert.Zero(t, layer.Len())
}

func TestReconciler_LeavesForeignMarkers(t *testing.T) {
	layer := newCountingLayer()
	layer.Layer.AddMarker(domain.Marker{ReportID: -1})
	r := NewReconciler(layer, testPresenter())

	r.Reconcile(makeReports(2))
	r.Reconcile(makeReports(2))

	assert.Equal(t, 3, layer.Len())
}
