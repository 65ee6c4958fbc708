package domain

// Known incident categories.
const (
	CategoryBache         = "bache"
	CategoryChoque        = "choque"
	CategorySemaforo      = "semaforo"
	CategoryInundacion    = "inundacion"
	CategoryManifestacion = "manifestacion"
	CategoryOtro          = "otro"
)

// DefaultColor is used for categories outside the palette.
const DefaultColor = "#95a5a6"

var categoryColors = map[string]string{
	CategoryBache:         "#ff6b6b",
	CategoryChoque:        "#ee5a6f",
	CategorySemaforo:      "#feca57",
	CategoryInundacion:    "#48dbfb",
	CategoryManifestacion: "#ff9ff3",
	CategoryOtro:          "#a55eea",
}

// Categories lists the known categories in form order.
func Categories() []string {
	return []string{
		CategoryBache,
		CategoryChoque,
		CategorySemaforo,
		CategoryInundacion,
		CategoryManifestacion,
		CategoryOtro,
	}
}

// ColorFor returns the marker fill color for a category. Every input yields
// a color.
func ColorFor(tipo string) string {
	if c, ok := categoryColors[tipo]; ok {
		return c
	}
	return DefaultColor
}
