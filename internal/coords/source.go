package coords

import (
	"fmt"
	"sort"
	"strconv"
	"strings"
)

// DefaultIntervalPadding is the padding applied around exons when an
// interval set is derived from a gene or transcript.
const DefaultIntervalPadding int64 = 20

// Source supplies the features a mapping is built from. ID must differ
// between logically different feature sets; it keys MappingCache entries.
type Source interface {
	ID() string
	Features() []Feature
}

// FeatureSet is an exon-based source, typically one transcript's CDS and
// UTR features.
type FeatureSet struct {
	id       string
	features []Feature
}

// NewFeatureSet creates a feature set. The slice is copied.
func NewFeatureSet(id string, features []Feature) *FeatureSet {
	fs := &FeatureSet{id: id, features: make([]Feature, len(features))}
	copy(fs.features, features)
	return fs
}

// ID returns the feature set identity.
func (fs *FeatureSet) ID() string { return fs.id }

// Features returns a copy of the features.
func (fs *FeatureSet) Features() []Feature {
	out := make([]Feature, len(fs.features))
	copy(out, fs.features)
	return out
}

// Interval is a closed genomic interval [Start, Stop].
type Interval struct {
	Start int64
	Stop  int64
}

// IntervalSet is a region-based source: sorted, disjoint intervals on one
// chromosome.
type IntervalSet struct {
	Chrom     string
	intervals []Interval
}

// NewIntervalSet creates an interval set. Intervals must not be inverted.
// They are sorted; overlapping intervals are rejected.
func NewIntervalSet(chrom string, intervals []Interval) (*IntervalSet, error) {
	sorted := make([]Interval, len(intervals))
	copy(sorted, intervals)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i].Start < sorted[j].Start })
	for i, iv := range sorted {
		if iv.Stop < iv.Start {
			return nil, fmt.Errorf("interval %d-%d: %w", iv.Start, iv.Stop, ErrInvalidFeature)
		}
		if i > 0 && iv.Start < sorted[i-1].Stop {
			return nil, fmt.Errorf("interval %d-%d overlaps %d-%d", iv.Start, iv.Stop, sorted[i-1].Start, sorted[i-1].Stop)
		}
	}
	return &IntervalSet{Chrom: chrom, intervals: sorted}, nil
}

// IntervalSetFromRegion creates a single-interval set.
func IntervalSetFromRegion(chrom string, start, stop int64) (*IntervalSet, error) {
	if stop < start {
		return nil, fmt.Errorf("region %s:%d-%d: %w", chrom, start, stop, ErrInvalidFeature)
	}
	return &IntervalSet{Chrom: chrom, intervals: []Interval{{Start: start, Stop: stop}}}, nil
}

// IntervalSetFromFeatures pads every feature by padding on both sides and
// merges the padded intervals that overlap. Touching intervals stay apart.
func IntervalSetFromFeatures(chrom string, features []Feature, padding int64) (*IntervalSet, error) {
	if len(features) == 0 {
		return nil, fmt.Errorf("no features for %s", chrom)
	}
	if err := validateFeatures(features); err != nil {
		return nil, err
	}
	sorted := make([]Feature, len(features))
	copy(sorted, features)
	sort.SliceStable(sorted, func(i, j int) bool { return sorted[i].Start < sorted[j].Start })

	var intervals []Interval
	for _, f := range sorted {
		start, stop := f.Start-padding, f.Stop+padding
		n := len(intervals)
		switch {
		case n == 0 || intervals[n-1].Stop <= start:
			intervals = append(intervals, Interval{Start: start, Stop: stop})
		case intervals[n-1].Stop < stop:
			intervals[n-1].Stop = stop
		}
	}
	return &IntervalSet{Chrom: chrom, intervals: intervals}, nil
}

// ParseRegion parses "chrom:start-stop" or "chrom-start-stop".
// A bare "chrom:pos" yields a one-base region.
func ParseRegion(s string) (*IntervalSet, error) {
	s = strings.TrimSpace(s)
	var chrom, rest string
	if c, r, ok := strings.Cut(s, ":"); ok {
		chrom, rest = c, r
	} else if c, r, ok := strings.Cut(s, "-"); ok {
		chrom, rest = c, r
	} else {
		return nil, fmt.Errorf("parse region %q: expected chrom:start-stop", s)
	}
	if chrom == "" {
		return nil, fmt.Errorf("parse region %q: missing chromosome", s)
	}

	rest = strings.ReplaceAll(rest, ",", "")
	startStr, stopStr, hasStop := strings.Cut(rest, "-")
	start, err := strconv.ParseInt(startStr, 10, 64)
	if err != nil {
		return nil, fmt.Errorf("parse region %q: start: %w", s, err)
	}
	stop := start
	if hasStop {
		stop, err = strconv.ParseInt(stopStr, 10, 64)
		if err != nil {
			return nil, fmt.Errorf("parse region %q: stop: %w", s, err)
		}
	}
	return IntervalSetFromRegion(chrom, start, stop)
}

// Intervals returns a copy of the intervals.
func (is *IntervalSet) Intervals() []Interval {
	out := make([]Interval, len(is.intervals))
	copy(out, is.intervals)
	return out
}

// Start returns the first interval's start.
func (is *IntervalSet) Start() int64 {
	if len(is.intervals) == 0 {
		return 0
	}
	return is.intervals[0].Start
}

// Stop returns the last interval's stop.
func (is *IntervalSet) Stop() int64 {
	if len(is.intervals) == 0 {
		return 0
	}
	return is.intervals[len(is.intervals)-1].Stop
}

// Length returns the summed stop-start of all intervals.
func (is *IntervalSet) Length() int64 {
	var n int64
	for _, iv := range is.intervals {
		n += iv.Stop - iv.Start
	}
	return n
}

// Contains returns true if pos falls inside any interval.
func (is *IntervalSet) Contains(pos int64) bool {
	i := sort.Search(len(is.intervals), func(i int) bool { return is.intervals[i].Stop >= pos })
	return i < len(is.intervals) && pos >= is.intervals[i].Start
}

// ID implements Source.
func (is *IntervalSet) ID() string { return is.String() }

// Features implements Source. Intervals become untyped features, so every
// mode falls back to the full set.
func (is *IntervalSet) Features() []Feature {
	out := make([]Feature, len(is.intervals))
	for i, iv := range is.intervals {
		out[i] = Feature{Start: iv.Start, Stop: iv.Stop}
	}
	return out
}

func (is *IntervalSet) String() string {
	parts := make([]string, len(is.intervals))
	for i, iv := range is.intervals {
		parts[i] = fmt.Sprintf("%d-%d", iv.Start, iv.Stop)
	}
	return is.Chrom + ":" + strings.Join(parts, ",")
}
