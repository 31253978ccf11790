// Package track places marks (variants, coverage bins) and feature shapes
// onto the coordinate space of one view. A Track holds the mappings of both
// modes so a view can switch between them without rebuilding.
package track

import (
	"fmt"
	"sort"
	"strconv"

	"github.com/inodb/vibe-coords/internal/coords"
	"github.com/inodb/vibe-coords/internal/coverage"
	"github.com/inodb/vibe-coords/internal/vcf"
)

// Track is the per-view placement state for one source.
type Track struct {
	id       string
	features []coords.Feature
	mappings map[coords.Mode]*coords.Mapping
	index    *FeatureIndex
}

// New resolves the mappings of src for every mode through mc.
func New(src coords.Source, mc *coords.MappingCache) (*Track, error) {
	features := append([]coords.Feature(nil), src.Features()...)
	sort.SliceStable(features, func(i, j int) bool { return features[i].Start < features[j].Start })

	t := &Track{
		id:       src.ID(),
		features: features,
		mappings: make(map[coords.Mode]*coords.Mapping, len(coords.Modes)),
	}
	for _, mode := range coords.Modes {
		m, err := mc.Get(src, mode)
		if err != nil {
			return nil, fmt.Errorf("build %s mapping for %s: %w", mode, t.id, err)
		}
		t.mappings[mode] = m
	}

	idx, err := NewFeatureIndex(features)
	if err != nil {
		return nil, fmt.Errorf("index features for %s: %w", t.id, err)
	}
	t.index = idx
	return t, nil
}

// ID returns the source ID of the track.
func (t *Track) ID() string { return t.id }

// Mapping returns the mapping of mode.
func (t *Track) Mapping(mode coords.Mode) *coords.Mapping {
	return t.mappings[mode]
}

// Features returns the source features sorted by start.
func (t *Track) Features() []coords.Feature {
	out := make([]coords.Feature, len(t.features))
	copy(out, t.features)
	return out
}

// Index returns the feature index for hit-testing.
func (t *Track) Index() *FeatureIndex { return t.index }

// Coord is a mapped coordinate. Valid is false when the genomic position is
// outside every segment and the mark should be hidden.
type Coord struct {
	Value int64
	Valid bool
}

func coordOf(v int64, ok bool) Coord {
	return Coord{Value: v, Valid: ok}
}

func (c Coord) String() string {
	if !c.Valid {
		return "-"
	}
	return strconv.FormatInt(c.Value, 10)
}

// Span is a mapped range.
type Span struct {
	Start int64
	End   int64
	Valid bool
}

func (s Span) String() string {
	if !s.Valid {
		return "-"
	}
	return fmt.Sprintf("%d-%d", s.Start, s.End)
}

// PlacedVariant is a variant with its position in both modes.
type PlacedVariant struct {
	Variant     *vcf.Variant
	Coding      Coord // CDS and UTR
	CodingNoUTR Coord // CDS only
}

// Coord returns the variant position in mode.
func (p PlacedVariant) Coord(mode coords.Mode) Coord {
	if mode == coords.ModeCoding {
		return p.CodingNoUTR
	}
	return p.Coding
}

// PlaceVariants maps every variant in both modes. Unmappable variants are
// kept with an invalid Coord.
func (t *Track) PlaceVariants(variants []*vcf.Variant) []PlacedVariant {
	withUTR := t.mappings[coords.ModeWithUTR]
	coding := t.mappings[coords.ModeCoding]

	placed := make([]PlacedVariant, len(variants))
	for i, v := range variants {
		placed[i] = PlacedVariant{
			Variant:     v,
			Coding:      coordOf(withUTR.MapPosition(v.Pos)),
			CodingNoUTR: coordOf(coding.MapPosition(v.Pos)),
		}
	}
	return placed
}

// PlacedBin is a coverage bin with its range in both modes.
type PlacedBin struct {
	Bin         coverage.Bin
	Coding      Span
	CodingNoUTR Span
}

// Span returns the bin range in mode.
func (p PlacedBin) Span(mode coords.Mode) Span {
	if mode == coords.ModeCoding {
		return p.CodingNoUTR
	}
	return p.Coding
}

// PlaceBins maps every bin in both modes. A bin spanning an excluded intron
// is truncated to the first segment it touches.
func (t *Track) PlaceBins(bins []coverage.Bin) []PlacedBin {
	withUTR := t.mappings[coords.ModeWithUTR]
	coding := t.mappings[coords.ModeCoding]

	placed := make([]PlacedBin, len(bins))
	for i, b := range bins {
		placed[i] = PlacedBin{
			Bin:         b,
			Coding:      spanOf(withUTR.MapRange(b.Start, b.End)),
			CodingNoUTR: spanOf(coding.MapRange(b.Start, b.End)),
		}
	}
	return placed
}

func spanOf(r coords.ScaledRange, ok bool) Span {
	return Span{Start: r.Start, End: r.End, Valid: ok}
}

// ExonRect is the shape of one feature in mapped coordinates.
type ExonRect struct {
	Feature coords.Feature
	// Visible is false for features the mode leaves out.
	Visible bool
	// X is the mapped start; Width is zero when the start is unmappable.
	X     int64
	Width int64
	// PadStart and PadEnd bound the padded line drawn under the feature.
	PadStart Coord
	PadEnd   Coord
}

// ExonRects lays out every feature in mode. In coding mode only CDS features
// are visible, unless the source has none, in which case the mapping fell
// back to all features and they are all shown.
func (t *Track) ExonRects(mode coords.Mode) []ExonRect {
	m := t.mappings[mode]
	padding := m.Policy().Padding

	fallback := true
	for _, f := range t.features {
		if mode.Includes(f.Type) {
			fallback = false
			break
		}
	}

	rects := make([]ExonRect, len(t.features))
	for i, f := range t.features {
		r := ExonRect{
			Feature:  f,
			Visible:  mode != coords.ModeCoding || f.Type == coords.FeatureCDS || fallback,
			PadStart: coordOf(m.MapPosition(f.Start - padding)),
			PadEnd:   coordOf(m.MapPosition(f.Stop + padding)),
		}
		if x, ok := m.MapPosition(f.Start); ok {
			r.X = x
			r.Width = f.Len()
		}
		rects[i] = r
	}
	return rects
}
