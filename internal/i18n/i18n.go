// Package i18n holds the user-facing text of the map front-end.
package i18n

import (
	"embed"
	"fmt"
	"time"

	goi18n "github.com/nicksnyder/go-i18n/v2/i18n"
	"golang.org/x/text/language"
	"gopkg.in/yaml.v3"
)

//go:embed locales/*.yaml
var locales embed.FS

// Message IDs.
const (
	PageTitle              = "PageTitle"
	FormHeading            = "FormHeading"
	FieldTipo              = "FieldTipo"
	FieldDescripcion       = "FieldDescripcion"
	FieldLat               = "FieldLat"
	FieldLon               = "FieldLon"
	FieldAlcaldia          = "FieldAlcaldia"
	FieldColonia           = "FieldColonia"
	SubmitReport           = "SubmitReport"
	UseCurrentLocation     = "UseCurrentLocation"
	LoadStats              = "LoadStats"
	RecentReports          = "RecentReports"
	NoReports              = "NoReports"
	ReportsLoadError       = "ReportsLoadError"
	NoDescription          = "NoDescription"
	UnknownLocation        = "UnknownLocation"
	StatsLoading           = "StatsLoading"
	NoStats                = "NoStats"
	StatsLoadError         = "StatsLoadError"
	StatsHeading           = "StatsHeading"
	StatsBreakdown         = "StatsBreakdown"
	ReportCreated          = "ReportCreated"
	ReportCreateError      = "ReportCreateError"
	ReportCreateFallback   = "ReportCreateFallback"
	InvalidCoordinates     = "InvalidCoordinates"
	LocationFound          = "LocationFound"
	LocationError          = "LocationError"
	GeolocationUnsupported = "GeolocationUnsupported"
	TimestampLayout        = "TimestampLayout"
	LoadHours              = "LoadHours"
	HoursHeading           = "HoursHeading"
	HoursLoading           = "HoursLoading"
	NoHours                = "NoHours"
	HoursLoadError         = "HoursLoadError"
	HourLabel              = "HourLabel"
	DownloadCertificate    = "DownloadCertificate"
	CenterMarker           = "CenterMarker"
)

// NewBundle loads the embedded message files. English is the fallback.
func NewBundle() (*goi18n.Bundle, error) {
	bundle := goi18n.NewBundle(language.English)
	bundle.RegisterUnmarshalFunc("yaml", yaml.Unmarshal)
	for _, name := range []string{"locales/en.yaml", "locales/es.yaml"} {
		if _, err := bundle.LoadMessageFileFS(locales, name); err != nil {
			return nil, fmt.Errorf("load %s: %w", name, err)
		}
	}
	return bundle, nil
}

// Localizer renders messages in one language and formats timestamps the way
// that language's users expect.
type Localizer struct {
	loc      *goi18n.Localizer
	lang     string
	timezone *time.Location
	layout   string
}

// New returns a Localizer for lang whose timestamps are shown in tz.
func New(bundle *goi18n.Bundle, lang string, tz *time.Location) *Localizer {
	if tz == nil {
		tz = time.UTC
	}
	l := &Localizer{
		loc:      goi18n.NewLocalizer(bundle, lang),
		lang:     lang,
		timezone: tz,
	}
	l.layout = l.T(TimestampLayout)
	return l
}

// MustNew is New over the embedded bundle; it panics if the bundle is broken.
func MustNew(lang string, tz *time.Location) *Localizer {
	bundle, err := NewBundle()
	if err != nil {
		panic(err)
	}
	return New(bundle, lang, tz)
}

// T renders a message without template data. Unknown IDs render as the ID.
func (l *Localizer) T(id string) string {
	return l.Tf(id, nil)
}

// Tf renders a message with template data.
func (l *Localizer) Tf(id string, data map[string]any) string {
	msg, err := l.loc.Localize(&goi18n.LocalizeConfig{
		MessageID:    id,
		TemplateData: data,
	})
	if err != nil {
		return id
	}
	return msg
}

// Timestamp formats t in the localizer's zone and layout.
func (l *Localizer) Timestamp(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.In(l.timezone).Format(l.layout)
}

// Lang returns the requested language tag.
func (l *Localizer) Lang() string { return l.lang }

// Labels renders the static page labels once, keyed by message ID.
func (l *Localizer) Labels() map[string]string {
	ids := []string{
		PageTitle, FormHeading, FieldTipo, FieldDescripcion, FieldLat, FieldLon,
		FieldAlcaldia, FieldColonia, SubmitReport, UseCurrentLocation, LoadStats,
		RecentReports, LoadHours, DownloadCertificate, CenterMarker,
	}
	labels := make(map[string]string, len(ids))
	for _, id := range ids {
		labels[id] = l.T(id)
	}
	return labels
}
