package coverage

import (
	"embed"
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"sort"

	"github.com/paulmach/orb"
	"github.com/paulmach/orb/geojson"
	"gopkg.in/yaml.v3"
)

//go:embed data/presets.yaml data/zones.geojson data/zips.json
var dataFS embed.FS

// MetersPerMile converts preset miles to the meters the geometry works in.
const MetersPerMile = 1609.344

var (
	ErrUnknownPreset = errors.New("unknown radius preset")
	ErrUnknownZone   = errors.New("unknown service zone")
)

// Preset is a named coverage radius and the zone it is clipped against.
type Preset struct {
	Key   string  `yaml:"key" json:"key"`
	Label string  `yaml:"label" json:"label"`
	Miles float64 `yaml:"miles" json:"miles"`
	Zone  string  `yaml:"zone" json:"zone"`
}

// Meters returns the preset radius in meters.
func (p Preset) Meters() float64 { return p.Miles * MetersPerMile }

// Zone is a named service area. Only outer rings are used.
type Zone struct {
	Name     string
	Label    string
	Polygons orb.MultiPolygon
}

// Bound returns the zone's bounding box.
func (z Zone) Bound() orb.Bound { return z.Polygons.Bound() }

// ZIP is a postal code centroid.
type ZIP struct {
	Code string  `json:"zip"`
	Lat  float64 `json:"lat"`
	Lon  float64 `json:"lon"`
}

// Point returns the centroid as an orb point.
func (z ZIP) Point() orb.Point { return orb.Point{z.Lon, z.Lat} }

// Dataset is the coverage reference data: presets, zones and ZIP centroids.
type Dataset struct {
	Presets []Preset
	Zones   map[string]Zone
	ZIPs    []ZIP
}

// LoadEmbedded parses the data files shipped with the binary.
func LoadEmbedded() (*Dataset, error) {
	presets, err := dataFS.ReadFile("data/presets.yaml")
	if err != nil {
		return nil, fmt.Errorf("read presets: %w", err)
	}
	zones, err := dataFS.ReadFile("data/zones.geojson")
	if err != nil {
		return nil, fmt.Errorf("read zones: %w", err)
	}
	zips, err := dataFS.ReadFile("data/zips.json")
	if err != nil {
		return nil, fmt.Errorf("read zips: %w", err)
	}
	return Load(presets, zones, zips)
}

// Load parses presets (YAML), zones (GeoJSON feature collection) and ZIP
// centroids (JSON). Every preset must name a known zone.
func Load(presetsYAML, zonesGeoJSON, zipsJSON []byte) (*Dataset, error) {
	presets, err := ParsePresets(presetsYAML)
	if err != nil {
		return nil, err
	}
	zones, err := ParseZones(zonesGeoJSON)
	if err != nil {
		return nil, err
	}
	zips, err := ParseZIPs(zipsJSON)
	if err != nil {
		return nil, err
	}
	for _, p := range presets {
		if _, ok := zones[p.Zone]; !ok {
			return nil, fmt.Errorf("preset %s: %w: %q", p.Key, ErrUnknownZone, p.Zone)
		}
	}
	return &Dataset{Presets: presets, Zones: zones, ZIPs: zips}, nil
}

// ParsePresets reads the presets file.
func ParsePresets(data []byte) ([]Preset, error) {
	var doc struct {
		Presets []Preset `yaml:"presets"`
	}
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("parse presets: %w", err)
	}
	seen := make(map[string]bool, len(doc.Presets))
	for _, p := range doc.Presets {
		if p.Key == "" || p.Zone == "" {
			return nil, fmt.Errorf("parse presets: preset %q needs key and zone", p.Key)
		}
		if p.Miles <= 0 {
			return nil, fmt.Errorf("parse presets: preset %s has non-positive radius", p.Key)
		}
		if seen[p.Key] {
			return nil, fmt.Errorf("parse presets: duplicate preset %s", p.Key)
		}
		seen[p.Key] = true
	}
	return doc.Presets, nil
}

// ParseZones reads a feature collection whose features carry a "name"
// property and Polygon or MultiPolygon geometry.
func ParseZones(data []byte) (map[string]Zone, error) {
	fc, err := geojson.UnmarshalFeatureCollection(data)
	if err != nil {
		return nil, fmt.Errorf("parse zones: %w", err)
	}

	zones := make(map[string]Zone, len(fc.Features))
	for i, f := range fc.Features {
		name := f.Properties.MustString("name", "")
		if name == "" {
			return nil, fmt.Errorf("parse zones: feature %d has no name", i)
		}
		z := Zone{Name: name, Label: f.Properties.MustString("label", name)}
		switch g := f.Geometry.(type) {
		case orb.Polygon:
			z.Polygons = orb.MultiPolygon{g}
		case orb.MultiPolygon:
			z.Polygons = g
		default:
			return nil, fmt.Errorf("parse zones: %s has unsupported geometry %s", name, f.Geometry.GeoJSONType())
		}
		zones[name] = z
	}
	return zones, nil
}

// ParseZIPs reads the centroid list, dropping entries with invalid coordinates.
func ParseZIPs(data []byte) ([]ZIP, error) {
	var zips []ZIP
	if err := json.Unmarshal(data, &zips); err != nil {
		return nil, fmt.Errorf("parse zips: %w", err)
	}
	out := zips[:0]
	for _, z := range zips {
		if z.Code == "" || ValidateCoordinates(z.Lat, z.Lon) != nil {
			continue
		}
		out = append(out, z)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Code < out[j].Code })
	return out, nil
}

// Preset returns the preset with the given key.
func (d *Dataset) Preset(key string) (Preset, error) {
	for _, p := range d.Presets {
		if p.Key == key {
			return p, nil
		}
	}
	return Preset{}, fmt.Errorf("%w: %q", ErrUnknownPreset, key)
}

// Zone returns the named zone.
func (d *Dataset) Zone(name string) (Zone, error) {
	z, ok := d.Zones[name]
	if !ok {
		return Zone{}, fmt.Errorf("%w: %q", ErrUnknownZone, name)
	}
	return z, nil
}

var (
	ErrInvalidLatitude  = errors.New("latitude must be between -90 and 90")
	ErrInvalidLongitude = errors.New("longitude must be between -180 and 180")
)

// ValidateCoordinates checks lat/lon ranges.
func ValidateCoordinates(lat, lon float64) error {
	if math.IsNaN(lat) || lat < -90 || lat > 90 {
		return ErrInvalidLatitude
	}
	if math.IsNaN(lon) || lon < -180 || lon > 180 {
		return ErrInvalidLongitude
	}
	return nil
}
