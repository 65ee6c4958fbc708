package domain

// LatLng is a WGS-84 coordinate pair.
type LatLng struct {
	Lat float64 `json:"lat"`
	Lng float64 `json:"lng"`
}

// MarkerStyle describes how a circle marker is drawn.
type MarkerStyle struct {
	Radius      int     `json:"radius"`
	FillColor   string  `json:"fillColor"`
	Color       string  `json:"color"`
	Weight      int     `json:"weight"`
	Opacity     float64 `json:"opacity"`
	FillOpacity float64 `json:"fillOpacity"`
}

// Popup is the text shown when a marker is opened.
type Popup struct {
	Tipo        string `json:"tipo"`
	Descripcion string `json:"descripcion"`
	Location    string `json:"location"`
	CreatedAt   string `json:"created_at"`
}

// Marker is the visual counterpart of exactly one report in the current
// collection.
type Marker struct {
	ReportID int64       `json:"report_id"`
	Position LatLng      `json:"position"`
	Style    MarkerStyle `json:"style"`
	Popup    Popup       `json:"popup"`
}

// CircleStyle returns the circle marker style for a category.
func CircleStyle(tipo string) MarkerStyle {
	return MarkerStyle{
		Radius:      8,
		FillColor:   ColorFor(tipo),
		Color:       "#333",
		Weight:      2,
		Opacity:     1,
		FillOpacity: 0.7,
	}
}

// MapView is the center and zoom level of the map.
type MapView struct {
	Center LatLng `json:"center"`
	Zoom   int    `json:"zoom"`
}

// Zoom level used after locating the device.
const LocatedZoom = 15
