package coverage

import (
	"bytes"
	"io"

	"github.com/paulmach/orb"
	"github.com/paulmach/orb/geojson"
)

// Report is the coverage of one store location at one radius preset.
type Report struct {
	Center orb.Point  `json:"center"`
	Preset Preset     `json:"preset"`
	Zone   string     `json:"zone"`
	Circle orb.Ring   `json:"-"`
	Rings  []orb.Ring `json:"-"`
	ZIPs   []string   `json:"zips"`
}

// Empty reports whether the circle missed the zone entirely.
func (r *Report) Empty() bool { return len(r.Rings) == 0 }

// ClipboardText joins the matched ZIPs for pasting.
func (r *Report) ClipboardText() string { return ClipboardText(r.ZIPs) }

// FeatureCollection is the report as GeoJSON for the client map: the circle,
// each covered ring and the center point.
func (r *Report) FeatureCollection() *geojson.FeatureCollection {
	fc := geojson.NewFeatureCollection()

	circle := geojson.NewFeature(orb.Polygon{r.Circle})
	circle.Properties["kind"] = "radius"
	circle.Properties["preset"] = r.Preset.Key
	fc.Append(circle)

	for _, ring := range r.Rings {
		f := geojson.NewFeature(orb.Polygon{ring})
		f.Properties["kind"] = "coverage"
		f.Properties["zone"] = r.Zone
		fc.Append(f)
	}

	center := geojson.NewFeature(r.Center)
	center.Properties["kind"] = "center"
	fc.Append(center)
	return fc
}

// PNG renders the report at the given size.
func (r *Report) PNG(w io.Writer, size int) error {
	return RenderPNG(w, r.Center, r.Circle, r.Rings, size)
}

// PNGBytes renders the report into memory.
func (r *Report) PNGBytes(size int) ([]byte, error) {
	var buf bytes.Buffer
	if err := r.PNG(&buf, size); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// Generator builds coverage reports from a dataset.
type Generator struct {
	data *Dataset
}

// NewGenerator creates a Generator. A nil dataset loads the embedded one.
func NewGenerator(data *Dataset) (*Generator, error) {
	if data == nil {
		d, err := LoadEmbedded()
		if err != nil {
			return nil, err
		}
		data = d
	}
	return &Generator{data: data}, nil
}

// Presets lists the available radius presets in file order.
func (g *Generator) Presets() []Preset {
	out := make([]Preset, len(g.data.Presets))
	copy(out, g.data.Presets)
	return out
}

// Generate computes the coverage for a store at lat/lon using a preset.
func (g *Generator) Generate(lat, lon float64, presetKey string) (*Report, error) {
	if err := ValidateCoordinates(lat, lon); err != nil {
		return nil, err
	}
	preset, err := g.data.Preset(presetKey)
	if err != nil {
		return nil, err
	}
	zone, err := g.data.Zone(preset.Zone)
	if err != nil {
		return nil, err
	}

	center := orb.Point{lon, lat}
	rings := IntersectCircleWithServiceArea(center, preset.Meters(), zone)
	return &Report{
		Center: center,
		Preset: preset,
		Zone:   zone.Name,
		Circle: Circle(center, preset.Meters(), CircleSteps),
		Rings:  rings,
		ZIPs:   MatchZIPs(rings, g.data.ZIPs),
	}, nil
}
