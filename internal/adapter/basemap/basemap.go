// Package basemap loads vector outlines (coastlines, state borders) from
// shapefiles in geographic coordinates and clips them to a bounding box.
package basemap

import (
	"fmt"
	"log/slog"

	"github.com/couchcryptid/precip-trend/internal/domain"
	"github.com/ctessum/geom"
	"github.com/ctessum/geom/encoding/shp"
)

// Layer is a named set of polylines drawn over the map.
type Layer struct {
	Name  string
	Lines []geom.LineString
}

// Source names a shapefile to load as a layer.
type Source struct {
	Name string
	Path string
}

// LoadLayers reads each source and clips it to box. Sources without a path
// are skipped with a warning.
func LoadLayers(sources []Source, box domain.BoundingBox, logger *slog.Logger) ([]Layer, error) {
	layers := make([]Layer, 0, len(sources))
	for _, src := range sources {
		if src.Path == "" {
			logger.Warn("basemap layer disabled, no shapefile configured", "layer", src.Name)
			continue
		}
		lines, err := Load(src.Path)
		if err != nil {
			return nil, fmt.Errorf("basemap layer %s: %w", src.Name, err)
		}
		clipped := Clip(lines, box)
		logger.Debug("basemap layer loaded",
			"layer", src.Name, "path", src.Path, "lines", len(lines), "in_box", len(clipped))
		layers = append(layers, Layer{Name: src.Name, Lines: clipped})
	}
	return layers, nil
}

// Load reads every shape in a shapefile as polylines. Polygon rings become
// closed lines.
func Load(path string) ([]geom.LineString, error) {
	d, err := shp.NewDecoder(path)
	if err != nil {
		return nil, fmt.Errorf("open shapefile %s: %w", path, err)
	}
	defer d.Close()

	var lines []geom.LineString
	for {
		g, _, more := d.DecodeRowFields()
		if !more {
			break
		}
		lines = append(lines, Lines(g)...)
	}
	if err := d.Error(); err != nil {
		return nil, fmt.Errorf("decode shapefile %s: %w", path, err)
	}
	return lines, nil
}

// Lines flattens a geometry into polylines. Point geometries yield nothing.
func Lines(g geom.Geom) []geom.LineString {
	switch t := g.(type) {
	case geom.LineString:
		return []geom.LineString{t}
	case geom.MultiLineString:
		return []geom.LineString(t)
	case geom.Polygon:
		return rings(t)
	case geom.MultiPolygon:
		var out []geom.LineString
		for _, p := range t {
			out = append(out, rings(p)...)
		}
		return out
	default:
		return nil
	}
}

func rings(p geom.Polygon) []geom.LineString {
	out := make([]geom.LineString, 0, len(p))
	for _, ring := range p {
		if len(ring) < 2 {
			continue
		}
		l := make(geom.LineString, len(ring), len(ring)+1)
		copy(l, ring)
		if l[0] != l[len(l)-1] {
			l = append(l, l[0])
		}
		out = append(out, l)
	}
	return out
}

// Clip keeps the lines whose extent overlaps box. Segments outside the box
// are left for the plot canvas to clip.
func Clip(lines []geom.LineString, box domain.BoundingBox) []geom.LineString {
	b := &geom.Bounds{
		Min: geom.Point{X: box.LonMin, Y: box.LatMin},
		Max: geom.Point{X: box.LonMax, Y: box.LatMax},
	}
	out := make([]geom.LineString, 0, len(lines))
	for _, l := range lines {
		if len(l) < 2 {
			continue
		}
		if l.Bounds().Overlaps(b) {
			out = append(out, l)
		}
	}
	return out
}
