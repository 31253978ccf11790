package coords

import (
	"fmt"
	"sort"
)

// Segment is one contiguous piece of the scaled coordinate space.
// It covers the closed genomic interval [RealStart, RealStart+Length] and the
// closed scaled interval [ScaledStart, ScaledStart+Length].
type Segment struct {
	RealStart   int64
	ScaledStart int64
	Length      int64
}

// RealEnd returns the last genomic coordinate covered by the segment.
func (s Segment) RealEnd() int64 {
	return s.RealStart + s.Length
}

// ScaledEnd returns the last scaled coordinate covered by the segment.
func (s Segment) ScaledEnd() int64 {
	return s.ScaledStart + s.Length
}

func (s Segment) String() string {
	return fmt.Sprintf("{real:%d-%d scaled:%d-%d}", s.RealStart, s.RealEnd(), s.ScaledStart, s.ScaledEnd())
}

// ScaledRange is a mapped span.
type ScaledRange struct {
	Start int64
	End   int64
}

// Params summarises a mapping.
type Params struct {
	NumSegments int
	// Size is the total scaled span, including the trailing allowance.
	Size int64
}

// Mapping is an ordered list of disjoint segments. It is immutable once
// built and safe for concurrent reads.
type Mapping struct {
	segments []Segment
	policy   Policy
	merged   int
}

// Build computes the mapping for features under mode and policy.
//
// Features are filtered by mode, falling back to the full list when nothing
// matches. An empty feature list yields an empty mapping. The input slice is
// not modified.
func Build(features []Feature, mode Mode, policy Policy) (*Mapping, error) {
	if err := policy.Validate(); err != nil {
		return nil, err
	}
	if err := validateFeatures(features); err != nil {
		return nil, err
	}

	m := &Mapping{policy: policy}
	selected := filterFeatures(features, mode)
	if len(selected) == 0 {
		return m, nil
	}
	sort.SliceStable(selected, func(i, j int) bool {
		return selected[i].Start < selected[j].Start
	})

	pad := policy.Padding
	segments := make([]Segment, 0, len(selected))
	segments = append(segments, Segment{
		RealStart:   selected[0].Start - pad,
		ScaledStart: policy.InitialOffset(),
		Length:      selected[0].Stop - selected[0].Start + 2*pad,
	})

	for _, f := range selected[1:] {
		prev := &segments[len(segments)-1]
		paddedStart := f.Start - pad
		paddedEnd := f.Stop + pad

		gap := min(paddedStart-prev.RealEnd(), policy.GapCap())
		if gap < 0 || (gap == 0 && policy.MergeOnTouch) {
			// Ends exactly at paddedEnd; the one-unit break only separates segments.
			prev.Length = max(prev.Length, paddedEnd-prev.RealStart)
			m.merged++
			continue
		}

		segments = append(segments, Segment{
			RealStart: paddedStart,
			// +1 leaves a one-unit break after the previous segment.
			ScaledStart: prev.ScaledEnd() + 1 + gap,
			Length:      paddedEnd - paddedStart,
		})
	}

	m.segments = segments
	return m, nil
}

// Segments returns a copy of the segments.
func (m *Mapping) Segments() []Segment {
	out := make([]Segment, len(m.segments))
	copy(out, m.segments)
	return out
}

// Len returns the number of segments.
func (m *Mapping) Len() int {
	return len(m.segments)
}

// Policy returns the policy the mapping was built with.
func (m *Mapping) Policy() Policy {
	return m.policy
}

// Merged returns how many features were folded into an earlier segment.
func (m *Mapping) Merged() int {
	return m.merged
}

// find returns the index of the first segment whose genomic end is >= pos,
// or len(segments) if there is none.
func (m *Mapping) find(pos int64) int {
	return sort.Search(len(m.segments), func(i int) bool {
		return m.segments[i].RealEnd() >= pos
	})
}

// MapPosition converts a genomic position to a scaled coordinate.
// It returns false when pos falls in an elided gap or outside all segments.
// A position on a segment boundary maps to the end of the earlier segment.
func (m *Mapping) MapPosition(pos int64) (int64, bool) {
	i := m.find(pos)
	if i == len(m.segments) {
		return 0, false
	}
	s := m.segments[i]
	if pos < s.RealStart {
		return 0, false
	}
	return s.ScaledStart + (pos - s.RealStart), true
}

// MapRange converts a genomic span, such as a coverage bin, to a scaled span.
//
// The result is clamped to [ScaledStart+1, ScaledEnd-1] of the first segment
// the span touches, which keeps rendered bins inset from segment edges.
// A span crossing an elided gap is truncated to that first segment. It
// returns false when nothing is left after clamping.
func (m *Mapping) MapRange(start, end int64) (ScaledRange, bool) {
	if start > end {
		return ScaledRange{}, false
	}
	i := m.find(start)
	if i == len(m.segments) {
		return ScaledRange{}, false
	}
	s := m.segments[i]
	if end < s.RealStart {
		return ScaledRange{}, false
	}
	r := ScaledRange{
		Start: max(s.ScaledStart+1, s.ScaledStart+start-s.RealStart),
		End:   min(s.ScaledEnd()-1, s.ScaledStart+end-s.RealStart),
	}
	// Segments shorter than two units have no interior to inset into.
	if r.Start > r.End {
		return ScaledRange{}, false
	}
	return r, true
}

// Params returns the segment count and total scaled size.
func (m *Mapping) Params() Params {
	n := len(m.segments)
	if n == 0 {
		return Params{}
	}
	return Params{
		NumSegments: n,
		Size:        m.segments[n-1].ScaledEnd() + m.policy.Trailing(),
	}
}

// Inverse converts a scaled coordinate back to a genomic position.
// It returns false for coordinates in a gap or outside all segments.
func (m *Mapping) Inverse(scaled int64) (int64, bool) {
	i := sort.Search(len(m.segments), func(i int) bool {
		return m.segments[i].ScaledEnd() >= scaled
	})
	if i == len(m.segments) {
		return 0, false
	}
	s := m.segments[i]
	if scaled < s.ScaledStart {
		return 0, false
	}
	return s.RealStart + (scaled - s.ScaledStart), true
}

// Equal reports whether two mappings have identical segments and policy.
func (m *Mapping) Equal(o *Mapping) bool {
	if m.policy != o.policy || len(m.segments) != len(o.segments) {
		return false
	}
	for i := range m.segments {
		if m.segments[i] != o.segments[i] {
			return false
		}
	}
	return true
}
