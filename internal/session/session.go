package session

import (
	"fmt"
	"math"
	"strconv"
	"strings"

	"github.com/couchcryptid/incident-map/internal/domain"
	"github.com/couchcryptid/incident-map/internal/maplayer"
)

// Session is the state of one map front-end: displayed reports, markers,
// sidebar, statistics panel, form contents, and the pending alert.
// It is only touched from its Loop.
type Session struct {
	layer      *maplayer.Layer
	reconciler *Reconciler
	store      Store
	sidebar    SidebarView
	stats      StatsView
	hours      HoursView
	form       Form
	alert      *Alert

	// home is the initial map center, marked with a fixed landmark.
	home domain.LatLng

	// highestCycle is the newest refresh cycle applied so far.
	highestCycle uint64
}

// New creates a session whose map starts at view.
func New(view domain.MapView, present *Presenter) *Session {
	layer := maplayer.New(view)
	return &Session{
		layer:      layer,
		reconciler: NewReconciler(layer, present),
		home:       view.Center,
	}
}

// Store is the last successfully fetched report collection.
type Store struct {
	reports []domain.Report
	cycle   uint64
}

// Replace swaps in a new collection wholesale.
func (s *Store) Replace(cycle uint64, reports []domain.Report) {
	s.reports = reports
	s.cycle = cycle
}

// Reports returns the current collection.
func (s *Store) Reports() []domain.Report { return s.reports }

// Cycle returns the refresh cycle that produced the current collection.
func (s *Store) Cycle() uint64 { return s.cycle }

// Form holds the report form fields as typed by the user.
type Form struct {
	Tipo        string
	Descripcion string
	Lat         string
	Lon         string
	Alcaldia    string
	Colonia     string
}

// Input parses the form into a create request. Coordinates must be finite
// numbers.
func (f Form) Input() (domain.ReportInput, error) {
	lat, err := parseCoord("lat", f.Lat)
	if err != nil {
		return domain.ReportInput{}, err
	}
	lon, err := parseCoord("lon", f.Lon)
	if err != nil {
		return domain.ReportInput{}, err
	}
	return domain.ReportInput{
		Tipo:        f.Tipo,
		Descripcion: f.Descripcion,
		Lat:         lat,
		Lon:         lon,
		Alcaldia:    domain.OptionalString(f.Alcaldia),
		Colonia:     domain.OptionalString(f.Colonia),
	}, nil
}

func parseCoord(name, s string) (float64, error) {
	v, err := strconv.ParseFloat(strings.TrimSpace(s), 64)
	if err != nil {
		return 0, fmt.Errorf("parse %s %q: %w", name, s, err)
	}
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return 0, fmt.Errorf("parse %s %q: not a finite number", name, s)
	}
	return v, nil
}

// FormatCoord renders a coordinate with the 6 decimals the form uses.
func FormatCoord(v float64) string {
	return strconv.FormatFloat(v, 'f', 6, 64)
}

// AlertKind distinguishes confirmations from failures.
type AlertKind string

const (
	AlertSuccess AlertKind = "success"
	AlertError   AlertKind = "error"
)

// Alert is a one-shot message for the user.
type Alert struct {
	Kind    AlertKind
	Message string
}

// Page is a copy of everything needed to draw the front-end. Home is drawn
// as a landmark outside the report markers.
type Page struct {
	View       domain.MapView
	Home       domain.LatLng
	Markers    []domain.Marker
	Sidebar    SidebarView
	Stats      StatsView
	Hours      HoursView
	Form       Form
	Alert      *Alert
	Categories []string
}

func (s *Session) page() Page {
	return Page{
		View:       s.layer.View(),
		Home:       s.home,
		Markers:    s.layer.Markers(),
		Sidebar:    s.sidebar,
		Stats:      s.stats,
		Hours:      s.hours,
		Form:       s.form,
		Alert:      s.alert,
		Categories: domain.Categories(),
	}
}

func (s *Session) setAlert(kind AlertKind, msg string) {
	s.alert = &Alert{Kind: kind, Message: msg}
}
