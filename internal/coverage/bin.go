// Package coverage reads binned read-depth summaries. Bins are the span marks
// placed on a coordinate track next to variants.
package coverage

import (
	"fmt"
	"sort"
	"strings"
)

// Bin summarizes read depth over the closed interval [Start, End].
// A per-base row has Start == End.
type Bin struct {
	Chrom  string
	Start  int64
	End    int64
	Mean   float64
	Median float64
	// Over holds the fraction of samples with depth above each threshold,
	// keyed by threshold (over_1, over_10, ...).
	Over map[int]float64
}

// Len returns the number of bases the bin covers.
func (b Bin) Len() int64 {
	return b.End - b.Start + 1
}

// Overlaps reports whether the bin intersects [start, stop].
func (b Bin) Overlaps(start, stop int64) bool {
	return b.Start <= stop && b.End >= start
}

// Clip returns a copy of the bin limited to [start, stop].
func (b Bin) Clip(start, stop int64) Bin {
	b.Start = max(b.Start, start)
	b.End = min(b.End, stop)
	return b
}

// Thresholds returns the over_N thresholds present in the bin, ascending.
func (b Bin) Thresholds() []int {
	ts := make([]int, 0, len(b.Over))
	for t := range b.Over {
		ts = append(ts, t)
	}
	sort.Ints(ts)
	return ts
}

func (b Bin) String() string {
	return fmt.Sprintf("%s:%d-%d mean=%.2f median=%.2f", b.Chrom, b.Start, b.End, b.Mean, b.Median)
}

// File holds the bins of one coverage file, grouped by chromosome and sorted
// by start. Bins of one chromosome must not overlap.
type File struct {
	path string
	bins map[string][]Bin
}

// NewFile groups bins by chromosome. Chromosome names lose any "chr" prefix.
func NewFile(path string, bins []Bin) (*File, error) {
	f := &File{path: path, bins: make(map[string][]Bin)}
	for _, b := range bins {
		b.Chrom = strings.TrimPrefix(b.Chrom, "chr")
		f.bins[b.Chrom] = append(f.bins[b.Chrom], b)
	}
	for chrom, bs := range f.bins {
		sort.SliceStable(bs, func(i, j int) bool { return bs[i].Start < bs[j].Start })
		for i := 1; i < len(bs); i++ {
			if bs[i].Start <= bs[i-1].End {
				return nil, fmt.Errorf("overlapping coverage bins on %s: %d-%d and %d-%d",
					chrom, bs[i-1].Start, bs[i-1].End, bs[i].Start, bs[i].End)
			}
		}
	}
	return f, nil
}

// Path returns the file the bins were read from.
func (f *File) Path() string {
	return f.path
}

// Contigs returns the chromosomes with coverage, sorted.
func (f *File) Contigs() []string {
	contigs := make([]string, 0, len(f.bins))
	for c := range f.bins {
		contigs = append(contigs, c)
	}
	sort.Strings(contigs)
	return contigs
}

// Len returns the total number of bins.
func (f *File) Len() int {
	n := 0
	for _, bs := range f.bins {
		n += len(bs)
	}
	return n
}

// Query returns the bins intersecting [start, stop] on chrom, clipped to the
// query.
func (f *File) Query(chrom string, start, stop int64) []Bin {
	bs := f.bins[strings.TrimPrefix(chrom, "chr")]
	i := sort.Search(len(bs), func(i int) bool { return bs[i].End >= start })

	var out []Bin
	for ; i < len(bs) && bs[i].Start <= stop; i++ {
		out = append(out, bs[i].Clip(start, stop))
	}
	return out
}
