package track

import (
	"sort"

	"github.com/biogo/store/interval"

	"github.com/inodb/vibe-coords/internal/coords"
)

// featureInterval stores a closed feature as the half-open [Start, Stop+1).
type featureInterval struct {
	start, end int
	uid        uintptr
	feature    coords.Feature
}

func (i featureInterval) Overlap(b interval.IntRange) bool {
	// Half-open interval indexing.
	return i.end > b.Start && i.start < b.End
}

func (i featureInterval) ID() uintptr { return i.uid }

func (i featureInterval) Range() interval.IntRange {
	return interval.IntRange{Start: i.start, End: i.end}
}

// query is a half-open lookup range.
type query struct {
	start, end int
}

func (q query) Overlap(b interval.IntRange) bool {
	return q.end > b.Start && q.start < b.End
}

// FeatureIndex answers "which features are under this position" for tooltip
// hit-testing.
type FeatureIndex struct {
	tree interval.IntTree
}

// NewFeatureIndex indexes the given features.
func NewFeatureIndex(features []coords.Feature) (*FeatureIndex, error) {
	idx := &FeatureIndex{}
	for i, f := range features {
		iv := featureInterval{
			start:   int(f.Start),
			end:     int(f.Stop) + 1,
			uid:     uintptr(i),
			feature: f,
		}
		if err := idx.tree.Insert(iv, true); err != nil {
			return nil, err
		}
	}
	idx.tree.AdjustRanges()
	return idx, nil
}

// Len returns the number of indexed features.
func (idx *FeatureIndex) Len() int {
	return idx.tree.Len()
}

// At returns the features covering pos, ordered by start.
func (idx *FeatureIndex) At(pos int64) []coords.Feature {
	return idx.Overlapping(pos, pos)
}

// Overlapping returns the features intersecting the closed range
// [start, stop], ordered by start.
func (idx *FeatureIndex) Overlapping(start, stop int64) []coords.Feature {
	if stop < start {
		return nil
	}
	hits := idx.tree.Get(query{start: int(start), end: int(stop) + 1})
	out := make([]coords.Feature, len(hits))
	for i, h := range hits {
		out[i] = h.(featureInterval).feature
	}
	sort.SliceStable(out, func(i, j int) bool {
		if out[i].Start != out[j].Start {
			return out[i].Start < out[j].Start
		}
		return out[i].Stop < out[j].Stop
	})
	return out
}
