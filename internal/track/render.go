package track

import (
	"errors"
	"fmt"
	"image/color"
	"io"
	"sort"

	"gonum.org/v1/plot"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/vg"
	"gonum.org/v1/plot/vg/draw"

	"github.com/inodb/vibe-coords/internal/coords"
)

// ErrEmptyTrack is returned when rendering a track without segments.
var ErrEmptyTrack = errors.New("track has no segments")

var (
	exonColor     = color.RGBA{R: 176, G: 196, B: 222, A: 255} // lightsteelblue
	variantColor  = color.RGBA{R: 70, G: 130, B: 180, A: 255}  // steelblue
	coverageColor = color.RGBA{R: 255, G: 165, B: 0, A: 255}
)

// RenderOptions controls the SVG preview.
type RenderOptions struct {
	Mode   coords.Mode
	Width  float64 // points
	Height float64 // points
}

// RenderSVG draws the exon track, variants and coverage means in mapped
// coordinates and writes the plot as SVG to w.
func (t *Track) RenderSVG(w io.Writer, opts RenderOptions, variants []PlacedVariant, bins []PlacedBin) error {
	size := t.mappings[opts.Mode].Params().Size
	if size == 0 {
		return ErrEmptyTrack
	}
	if opts.Width <= 0 || opts.Height <= 0 {
		return fmt.Errorf("render size %gx%g must be positive", opts.Width, opts.Height)
	}

	p := plot.New()
	p.Title.Text = fmt.Sprintf("%s (%s)", t.id, opts.Mode)
	p.X.Label.Text = "mapped position"
	p.Y.Label.Text = "mean depth"
	p.X.Min = 0
	p.X.Max = float64(size)

	maxMean := 0.0
	for _, b := range bins {
		if b.Span(opts.Mode).Valid {
			maxMean = max(maxMean, b.Bin.Mean)
		}
	}
	exonY := -1.0
	if maxMean > 0 {
		exonY = -0.1 * maxMean
	}

	if err := addCoverage(p, bins, opts.Mode); err != nil {
		return err
	}
	if err := t.addExons(p, opts.Mode, exonY); err != nil {
		return err
	}
	if err := addVariants(p, variants, opts.Mode, exonY); err != nil {
		return err
	}

	wt, err := p.WriterTo(vg.Points(opts.Width), vg.Points(opts.Height), "svg")
	if err != nil {
		return fmt.Errorf("create svg writer: %w", err)
	}
	if _, err := wt.WriteTo(w); err != nil {
		return fmt.Errorf("write svg: %w", err)
	}
	return nil
}

func addCoverage(p *plot.Plot, bins []PlacedBin, mode coords.Mode) error {
	var xys plotter.XYs
	for _, b := range bins {
		s := b.Span(mode)
		if !s.Valid {
			continue
		}
		xys = append(xys,
			plotter.XY{X: float64(s.Start), Y: b.Bin.Mean},
			plotter.XY{X: float64(s.End), Y: b.Bin.Mean})
	}
	if len(xys) == 0 {
		return nil
	}
	sort.SliceStable(xys, func(i, j int) bool { return xys[i].X < xys[j].X })

	line, err := plotter.NewLine(xys)
	if err != nil {
		return fmt.Errorf("coverage line: %w", err)
	}
	line.Color = coverageColor
	line.Width = vg.Points(1)
	p.Add(line)
	return nil
}

func (t *Track) addExons(p *plot.Plot, mode coords.Mode, y float64) error {
	for _, r := range t.ExonRects(mode) {
		if !r.Visible || r.Width == 0 {
			continue
		}
		if r.PadStart.Valid && r.PadEnd.Valid {
			pad, err := plotter.NewLine(plotter.XYs{
				{X: float64(r.PadStart.Value), Y: y},
				{X: float64(r.PadEnd.Value), Y: y},
			})
			if err != nil {
				return fmt.Errorf("padded exon line: %w", err)
			}
			pad.Color = exonColor
			pad.Width = vg.Points(2)
			p.Add(pad)
		}

		body, err := plotter.NewLine(plotter.XYs{
			{X: float64(r.X), Y: y},
			{X: float64(r.X + r.Width), Y: y},
		})
		if err != nil {
			return fmt.Errorf("exon line: %w", err)
		}
		body.Color = exonColor
		body.Width = vg.Points(6)
		if r.Feature.Type != coords.FeatureCDS {
			body.Width = vg.Points(3)
		}
		p.Add(body)
	}
	return nil
}

func addVariants(p *plot.Plot, variants []PlacedVariant, mode coords.Mode, y float64) error {
	var xys plotter.XYs
	for _, v := range variants {
		if c := v.Coord(mode); c.Valid {
			xys = append(xys, plotter.XY{X: float64(c.Value), Y: y})
		}
	}
	if len(xys) == 0 {
		return nil
	}

	scatter, err := plotter.NewScatter(xys)
	if err != nil {
		return fmt.Errorf("variant scatter: %w", err)
	}
	scatter.GlyphStyle.Shape = draw.CircleGlyph{}
	scatter.GlyphStyle.Color = variantColor
	scatter.GlyphStyle.Radius = vg.Points(3)
	p.Add(scatter)
	return nil
}
