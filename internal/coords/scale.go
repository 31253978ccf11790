package coords

import (
	"fmt"
	"math"
	"sort"
)

// PixelScale converts between genomic positions and pixels. Queries outside
// the scale's bounds return false instead of extrapolating.
type PixelScale interface {
	Forward(pos int64) (float64, bool)
	Invert(px float64) (int64, bool)
	Width() float64
}

type piece struct {
	d0, d1 float64 // genomic
	r0, r1 float64 // pixels
}

// Scale is a piecewise-linear genomic-to-pixel scale over disjoint domain
// pieces, each mapped to its own pixel range.
type Scale struct {
	pieces []piece
	width  float64
}

var _ PixelScale = (*Scale)(nil)

// NewLinearScale maps the single interval [start, stop] onto [0, width].
func NewLinearScale(start, stop int64, width float64) (*Scale, error) {
	if stop < start {
		return nil, fmt.Errorf("linear scale %d-%d: %w", start, stop, ErrInvalidFeature)
	}
	if width <= 0 {
		return nil, fmt.Errorf("linear scale: width %g must be positive", width)
	}
	return &Scale{
		pieces: []piece{{d0: float64(start), d1: float64(stop), r0: 0, r1: width}},
		width:  width,
	}, nil
}

// NewRegionScale collapses the intervals of is into a contiguous pixel range
// [0, width], leaving spacing pixels between consecutive intervals.
func NewRegionScale(is *IntervalSet, width, spacing float64) (*Scale, error) {
	intervals := is.Intervals()
	if len(intervals) == 0 {
		return nil, fmt.Errorf("region scale %s: no intervals", is)
	}
	if spacing < 0 {
		return nil, fmt.Errorf("region scale: negative spacing %g", spacing)
	}
	available := width - spacing*float64(len(intervals)-1)
	if available <= 0 {
		return nil, fmt.Errorf("region scale: width %g too small for %d intervals", width, len(intervals))
	}
	// Zero-length intervals become single points. When every interval is a
	// point, the points are spread evenly and a lone point fills the width.
	total := float64(is.Length())
	perBase, perPoint := 0.0, 0.0
	switch {
	case total > 0:
		perBase = available / total
	case len(intervals) == 1:
		iv := intervals[0]
		return &Scale{
			pieces: []piece{{d0: float64(iv.Start), d1: float64(iv.Stop), r0: 0, r1: width}},
			width:  width,
		}, nil
	default:
		perPoint = available / float64(len(intervals)-1)
	}

	s := &Scale{pieces: make([]piece, len(intervals)), width: width}
	cursor := 0.0
	for i, iv := range intervals {
		r1 := cursor + float64(iv.Stop-iv.Start)*perBase
		s.pieces[i] = piece{d0: float64(iv.Start), d1: float64(iv.Stop), r0: cursor, r1: r1}
		cursor = r1 + spacing + perPoint
	}
	return s, nil
}

// Width returns the pixel width of the scale.
func (s *Scale) Width() float64 { return s.width }

// Domain returns the genomic pieces as [start, stop] pairs.
func (s *Scale) Domain() [][2]float64 {
	out := make([][2]float64, len(s.pieces))
	for i, p := range s.pieces {
		out[i] = [2]float64{p.d0, p.d1}
	}
	return out
}

// Range returns the pixel pieces as [start, stop] pairs.
func (s *Scale) Range() [][2]float64 {
	out := make([][2]float64, len(s.pieces))
	for i, p := range s.pieces {
		out[i] = [2]float64{p.r0, p.r1}
	}
	return out
}

// Forward converts a genomic position to a pixel offset.
func (s *Scale) Forward(pos int64) (float64, bool) {
	x := float64(pos)
	i := sort.Search(len(s.pieces), func(i int) bool { return s.pieces[i].d1 >= x })
	if i == len(s.pieces) || x < s.pieces[i].d0 {
		return 0, false
	}
	p := s.pieces[i]
	if p.d1 == p.d0 {
		return p.r0, true
	}
	return p.r0 + (x-p.d0)*(p.r1-p.r0)/(p.d1-p.d0), true
}

// Invert converts a pixel offset to the nearest genomic position.
func (s *Scale) Invert(px float64) (int64, bool) {
	i := sort.Search(len(s.pieces), func(i int) bool { return s.pieces[i].r1 >= px })
	if i == len(s.pieces) || px < s.pieces[i].r0 {
		return 0, false
	}
	p := s.pieces[i]
	if p.r1 == p.r0 {
		return int64(p.d0), true
	}
	return int64(math.Round(p.d0 + (px-p.r0)*(p.d1-p.d0)/(p.r1-p.r0))), true
}

// CodingScale draws a Mapping onto [0, width] pixels. Pixel 0 is scaled
// coordinate 0 and pixel width is Params().Size.
type CodingScale struct {
	mapping *Mapping
	size    float64
	width   float64
}

var _ PixelScale = (*CodingScale)(nil)

// NewCodingScale creates a pixel scale over a mapping.
func NewCodingScale(m *Mapping, width float64) (*CodingScale, error) {
	size := m.Params().Size
	if size == 0 {
		return nil, fmt.Errorf("coding scale: empty mapping")
	}
	if width <= 0 {
		return nil, fmt.Errorf("coding scale: width %g must be positive", width)
	}
	return &CodingScale{mapping: m, size: float64(size), width: width}, nil
}

// Width returns the pixel width of the scale.
func (c *CodingScale) Width() float64 { return c.width }

// Scaled converts a scaled coordinate to pixels.
func (c *CodingScale) Scaled(scaled int64) float64 {
	return float64(scaled) * c.width / c.size
}

// Forward maps pos through the mapping, then to pixels.
func (c *CodingScale) Forward(pos int64) (float64, bool) {
	scaled, ok := c.mapping.MapPosition(pos)
	if !ok {
		return 0, false
	}
	return c.Scaled(scaled), true
}

// Invert converts a pixel offset back to the genomic position under it.
// Pixels over gaps or outside [0, width] return false.
func (c *CodingScale) Invert(px float64) (int64, bool) {
	if px < 0 || px > c.width {
		return 0, false
	}
	scaled := int64(math.Round(px * c.size / c.width))
	return c.mapping.Inverse(scaled)
}
