package domain

// Report is an incident record as returned by the report service.
// Reports are immutable once fetched.
type Report struct {
	ID          int64     `json:"id"`
	CreatedAt   Timestamp `json:"created_at"`
	Tipo        string    `json:"tipo"`
	Descripcion string    `json:"descripcion,omitempty"`
	Lat         float64   `json:"lat"`
	Lon         float64   `json:"lon"`
	Alcaldia    string    `json:"alcaldia,omitempty"`
	Colonia     string    `json:"colonia,omitempty"`
	Fuente      string    `json:"fuente,omitempty"`
}

// LocationLabel returns the most specific location name the report carries,
// falling back from colonia to alcaldía to the given label.
func (r Report) LocationLabel(unknown string) string {
	if r.Colonia != "" {
		return r.Colonia
	}
	if r.Alcaldia != "" {
		return r.Alcaldia
	}
	return unknown
}

// ReportInput is the payload for creating a report. Optional strings left
// empty are sent as null.
type ReportInput struct {
	Tipo        string  `json:"tipo"`
	Descripcion string  `json:"descripcion"`
	Lat         float64 `json:"lat"`
	Lon         float64 `json:"lon"`
	Alcaldia    *string `json:"alcaldia"`
	Colonia     *string `json:"colonia"`
}

// OptionalString maps an empty string to nil.
func OptionalString(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}

// ZoneStat is one row of the top-zones ranking.
type ZoneStat struct {
	Zona               string `json:"zona"`
	TipoZona           string `json:"tipo_zona,omitempty"`
	TotalIncidentes    int    `json:"total_incidentes"`
	IncidentesC5       int    `json:"incidentes_c5"`
	IncidentesUsuarios int    `json:"incidentes_usuarios"`
}

// Zone granularities accepted by the statistics endpoint.
const (
	ZoneColonia  = "colonia"
	ZoneAlcaldia = "alcaldia"
)

// ValidZoneType reports whether t is a zone granularity the service knows.
func ValidZoneType(t string) bool {
	return t == ZoneColonia || t == ZoneAlcaldia
}

// HourStat is the incident count for one hour of the day (0-23).
type HourStat struct {
	Hora               int `json:"hora"`
	TotalIncidentes    int `json:"total_incidentes"`
	IncidentesC5       int `json:"incidentes_c5"`
	IncidentesUsuarios int `json:"incidentes_usuarios"`
}

// Certificate is a zone road-risk certificate as served by the report
// service.
type Certificate struct {
	Filename    string
	ContentType string
	Body        []byte
}
