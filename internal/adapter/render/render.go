// Package render draws a trend field as a plate carrée map with a diverging
// color scale, basemap outlines and a color bar, encoded as PNG.
package render

import (
	"cmp"
	"errors"
	"fmt"
	"image/color"
	"io"
	"slices"

	"github.com/couchcryptid/precip-trend/internal/adapter/basemap"
	"github.com/couchcryptid/precip-trend/internal/domain"
	"gonum.org/v1/plot"
	"gonum.org/v1/plot/palette"
	"gonum.org/v1/plot/palette/brewer"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/vg"
	"gonum.org/v1/plot/vg/draw"
	"gonum.org/v1/plot/vg/vgimg"
)

const (
	maxClasses = 11 // largest ColorBrewer palette
	barSteps   = 64
	barShare   = 0.12 // fraction of the figure height given to the color bar
)

// Renderer draws maps at a fixed figure size with a fixed set of basemap
// layers.
type Renderer struct {
	width  vg.Length
	height vg.Length
	layers []basemap.Layer
}

// New creates a Renderer.
func New(width, height vg.Length, layers []basemap.Layer) *Renderer {
	return &Renderer{width: width, height: height, layers: layers}
}

// Render encodes m as a PNG image to w.
func (r *Renderer) Render(w io.Writer, m domain.TrendMap) error {
	if m.Trend.NLat == 0 || m.Trend.NLon == 0 {
		return errors.New("render: empty trend field")
	}
	if len(m.Lon) != m.Trend.NLon || len(m.Lat) != m.Trend.NLat {
		return fmt.Errorf("render: axes %d×%d do not match field %d×%d",
			len(m.Lat), len(m.Lon), m.Trend.NLat, m.Trend.NLon)
	}
	pal, err := Palette(m.Params.Colormap)
	if err != nil {
		return err
	}

	main, err := r.mapPlot(m, pal)
	if err != nil {
		return err
	}
	bar := colorBar(m.Params, pal)

	img := vgimg.New(r.width, r.height)
	dc := draw.New(img)
	barH := r.height * barShare
	main.Draw(draw.Crop(dc, 0, 0, barH, 0))
	bar.Draw(draw.Crop(dc, r.width*0.15, -r.width*0.15, 0, barH-r.height))

	if _, err := (vgimg.PngCanvas{Canvas: img}).WriteTo(w); err != nil {
		return fmt.Errorf("render: encode png: %w", err)
	}
	return nil
}

// Palette returns the named ColorBrewer palette with as many classes as the
// scheme offers.
func Palette(name string) (palette.Palette, error) {
	var err error
	for n := maxClasses; n >= 3; n-- {
		var p palette.Palette
		if p, err = brewer.GetPalette(brewer.TypeAny, name, n); err == nil {
			return p, nil
		}
	}
	return nil, fmt.Errorf("render: colormap %q: %w", name, err)
}

func (r *Renderer) mapPlot(m domain.TrendMap, pal palette.Palette) (*plot.Plot, error) {
	p := plot.New()
	p.Title.Text = m.Params.Title
	p.X.Label.Text = "Longitude"
	p.Y.Label.Text = "Latitude"

	p.Add(heatMap(newGrid(m.Lon, m.Lat, m.Trend), pal, m.Params))

	for _, layer := range r.layers {
		for _, l := range layer.Lines {
			xy := make(plotter.XYs, len(l))
			for k, pt := range l {
				xy[k].X, xy[k].Y = pt.X, pt.Y
			}
			line, err := plotter.NewLine(xy)
			if err != nil {
				return nil, fmt.Errorf("render: %s outline: %w", layer.Name, err)
			}
			line.LineStyle.Color = color.Black
			line.LineStyle.Width = vg.Points(0.5)
			p.Add(line)
		}
	}

	box := m.Params.Box
	p.X.Min, p.X.Max = box.LonMin, box.LonMax
	p.Y.Min, p.Y.Max = box.LatMin, box.LatMax
	return p, nil
}

// heatMap pins the color scale to the display range. Values outside it take
// the end colors and undefined cells stay transparent.
func heatMap(g plotter.GridXYZ, pal palette.Palette, params domain.Params) *plotter.HeatMap {
	h := plotter.NewHeatMap(g, pal)
	h.Min, h.Max = params.DisplayMin, params.DisplayMax
	colors := pal.Colors()
	h.Underflow = colors[0]
	h.Overflow = colors[len(colors)-1]
	h.NaN = color.Transparent
	return h
}

func colorBar(params domain.Params, pal palette.Palette) *plot.Plot {
	p := plot.New()
	p.Add(heatMap(barGrid{lo: params.DisplayMin, hi: params.DisplayMax}, pal, params))
	p.HideY()
	p.X.Label.Text = params.ColorbarLabel
	p.X.Min, p.X.Max = params.DisplayMin, params.DisplayMax
	return p
}

// grid presents a field to the heat map with both axes ascending.
type grid struct {
	lon, lat       []float64
	lonIdx, latIdx []int
	field          domain.Field
}

func newGrid(lon, lat []float64, f domain.Field) grid {
	return grid{lon: lon, lat: lat, lonIdx: ascending(lon), latIdx: ascending(lat), field: f}
}

func ascending(xs []float64) []int {
	idx := make([]int, len(xs))
	for i := range idx {
		idx[i] = i
	}
	slices.SortStableFunc(idx, func(a, b int) int { return cmp.Compare(xs[a], xs[b]) })
	return idx
}

func (g grid) Dims() (c, r int)   { return len(g.lonIdx), len(g.latIdx) }
func (g grid) Z(c, r int) float64 { return g.field.At(g.latIdx[r], g.lonIdx[c]) }
func (g grid) X(c int) float64    { return g.lon[g.lonIdx[c]] }
func (g grid) Y(r int) float64    { return g.lat[g.latIdx[r]] }

// barGrid is a strip of evenly spaced values across the display range.
type barGrid struct{ lo, hi float64 }

func (b barGrid) Dims() (c, r int)   { return barSteps, 2 }
func (b barGrid) Z(c, _ int) float64 { return b.X(c) }
func (b barGrid) X(c int) float64 {
	return b.lo + (float64(c)+0.5)*(b.hi-b.lo)/barSteps
}
func (b barGrid) Y(r int) float64 { return float64(r) }
