package session

import (
	"fmt"
	"net/url"

	"github.com/couchcryptid/incident-map/internal/domain"
	"github.com/couchcryptid/incident-map/internal/i18n"
)

// SidebarItem is one line of the recent reports list.
type SidebarItem struct {
	Tipo      string
	Color     string
	Location  string
	CreatedAt string
}

// SidebarView is the recent reports list. When Items is empty, Message says
// why: no reports, or a failed fetch (Error set).
type SidebarView struct {
	Items   []SidebarItem
	Message string
	Error   bool
}

// StatsRow is one ranked zone. CertificateURL points at the zone's risk
// certificate download.
type StatsRow struct {
	Rank           int
	Zona           string
	Total          int
	Breakdown      string
	CertificateURL string
}

// StatsView is the statistics panel.
type StatsView struct {
	Requested bool
	Loading   bool
	Error     bool
	Heading   string
	Rows      []StatsRow
	Message   string
}

// HourRow is one hour of the day. Percent is the bar length relative to the
// busiest hour.
type HourRow struct {
	Label     string
	Total     int
	Breakdown string
	Percent   int
	Peak      bool
}

// HoursView is the hourly distribution panel.
type HoursView struct {
	Requested bool
	Loading   bool
	Error     bool
	Heading   string
	Rows      []HourRow
	Message   string
}

// CertificatePath is where the front-end serves zone certificates.
const CertificatePath = "/certificates/zona"

// Presenter turns domain values into localized view models.
type Presenter struct {
	loc *i18n.Localizer
}

// NewPresenter creates a presenter using loc for text and timestamps.
func NewPresenter(loc *i18n.Localizer) *Presenter {
	return &Presenter{loc: loc}
}

// Marker builds the marker for a report.
func (p *Presenter) Marker(r domain.Report) domain.Marker {
	desc := r.Descripcion
	if desc == "" {
		desc = p.loc.T(i18n.NoDescription)
	}
	return domain.Marker{
		ReportID: r.ID,
		Position: domain.LatLng{Lat: r.Lat, Lng: r.Lon},
		Style:    domain.CircleStyle(r.Tipo),
		Popup: domain.Popup{
			Tipo:        r.Tipo,
			Descripcion: desc,
			Location:    r.LocationLabel(p.loc.T(i18n.UnknownLocation)),
			CreatedAt:   p.loc.Timestamp(r.CreatedAt.Time),
		},
	}
}

// Sidebar lists the first limit reports in the order received.
func (p *Presenter) Sidebar(reports []domain.Report, limit int) SidebarView {
	if len(reports) == 0 {
		return SidebarView{Message: p.loc.T(i18n.NoReports)}
	}

	n := min(len(reports), limit)
	items := make([]SidebarItem, 0, n)
	unknown := p.loc.T(i18n.UnknownLocation)
	for _, r := range reports[:n] {
		items = append(items, SidebarItem{
			Tipo:      r.Tipo,
			Color:     domain.ColorFor(r.Tipo),
			Location:  r.LocationLabel(unknown),
			CreatedAt: p.loc.Timestamp(r.CreatedAt.Time),
		})
	}
	return SidebarView{Items: items}
}

// SidebarError replaces the list after a failed fetch.
func (p *Presenter) SidebarError() SidebarView {
	return SidebarView{Message: p.loc.T(i18n.ReportsLoadError), Error: true}
}

// StatsLoading is shown while the statistics request is pending.
func (p *Presenter) StatsLoading() StatsView {
	return StatsView{Requested: true, Loading: true, Message: p.loc.T(i18n.StatsLoading)}
}

// Stats ranks zones in the order received. zoneType is used for rows that
// do not name their own.
func (p *Presenter) Stats(stats []domain.ZoneStat, zoneType string, limit int) StatsView {
	if len(stats) == 0 {
		return StatsView{Requested: true, Message: p.loc.T(i18n.NoStats)}
	}

	rows := make([]StatsRow, 0, len(stats))
	for i, st := range stats {
		tipo := st.TipoZona
		if tipo == "" {
			tipo = zoneType
		}
		rows = append(rows, StatsRow{
			Rank:  i + 1,
			Zona:  st.Zona,
			Total: st.TotalIncidentes,
			Breakdown: p.loc.Tf(i18n.StatsBreakdown, map[string]any{
				"C5":    st.IncidentesC5,
				"Users": st.IncidentesUsuarios,
			}),
			CertificateURL: certificateURL(tipo, st.Zona),
		})
	}
	return StatsView{
		Requested: true,
		Heading:   p.loc.Tf(i18n.StatsHeading, map[string]any{"Limit": limit}),
		Rows:      rows,
	}
}

// StatsError is shown when the statistics request fails.
func (p *Presenter) StatsError() StatsView {
	return StatsView{Requested: true, Error: true, Message: p.loc.T(i18n.StatsLoadError)}
}

func certificateURL(zoneType, zone string) string {
	return CertificatePath + "?" + url.Values{
		"tipo_zona":   {zoneType},
		"nombre_zona": {zone},
	}.Encode()
}

// HoursLoading is shown while the hourly distribution request is pending.
func (p *Presenter) HoursLoading() HoursView {
	return HoursView{Requested: true, Loading: true, Message: p.loc.T(i18n.HoursLoading)}
}

// Hours lists the hourly distribution in hour order, marking the busiest
// hours.
func (p *Presenter) Hours(hours []domain.HourStat) HoursView {
	peak := 0
	for _, h := range hours {
		peak = max(peak, h.TotalIncidentes)
	}
	if peak == 0 {
		return HoursView{Requested: true, Message: p.loc.T(i18n.NoHours)}
	}

	rows := make([]HourRow, 0, len(hours))
	for _, h := range hours {
		rows = append(rows, HourRow{
			Label: p.loc.Tf(i18n.HourLabel, map[string]any{"Hour": fmt.Sprintf("%02d", h.Hora)}),
			Total: h.TotalIncidentes,
			Breakdown: p.loc.Tf(i18n.StatsBreakdown, map[string]any{
				"C5":    h.IncidentesC5,
				"Users": h.IncidentesUsuarios,
			}),
			Percent: h.TotalIncidentes * 100 / peak,
			Peak:    h.TotalIncidentes == peak,
		})
	}
	return HoursView{
		Requested: true,
		Heading:   p.loc.T(i18n.HoursHeading),
		Rows:      rows,
	}
}

// HoursError is shown when the hourly distribution request fails.
func (p *Presenter) HoursError() HoursView {
	return HoursView{Requested: true, Error: true, Message: p.loc.T(i18n.HoursLoadError)}
}

// T exposes the localizer for alert text.
func (p *Presenter) T(id string) string { return p.loc.T(id) }

// Tf exposes the localizer for alert text with data.
func (p *Presenter) Tf(id string, data map[string]any) string { return p.loc.Tf(id, data) }
