package cache

import (
	"sort"

	"github.com/biogo/store/interval"
)

// IntervalTree answers transcript overlap queries over one chromosome. It
// is built once and never modified.
type IntervalTree struct {
	tree interval.IntTree
}

// transcriptInterval stores a transcript's closed [Start, End] as the
// half-open [Start, End+1).
type transcriptInterval struct {
	start, end int
	uid        uintptr
	transcript *Transcript
}

func (i transcriptInterval) Overlap(b interval.IntRange) bool {
	return i.end > b.Start && i.start < b.End
}

func (i transcriptInterval) ID() uintptr { return i.uid }

func (i transcriptInterval) Range() interval.IntRange {
	return interval.IntRange{Start: i.start, End: i.end}
}

type rangeQuery struct {
	start, end int
}

func (q rangeQuery) Overlap(b interval.IntRange) bool {
	return q.end > b.Start && q.start < b.End
}

// BuildIntervalTree creates an interval tree from a slice of transcripts.
// Transcripts with End < Start are skipped.
func BuildIntervalTree(transcripts []*Transcript) *IntervalTree {
	t := &IntervalTree{}
	for i, tr := range transcripts {
		iv := transcriptInterval{
			start:      int(tr.Start),
			end:        int(tr.End) + 1,
			uid:        uintptr(i),
			transcript: tr,
		}
		if err := t.tree.Insert(iv, true); err != nil {
			continue
		}
	}
	t.tree.AdjustRanges()
	return t
}

// FindOverlaps returns all transcripts whose [Start, End] range contains pos.
func (t *IntervalTree) FindOverlaps(pos int64) []*Transcript {
	return t.FindOverlapsRange(pos, pos)
}

// FindOverlapsRange returns all transcripts intersecting [start, end],
// ordered by transcript start, then by insertion order.
func (t *IntervalTree) FindOverlapsRange(start, end int64) []*Transcript {
	if t.tree.Len() == 0 || end < start {
		return nil
	}

	hits := t.tree.Get(rangeQuery{start: int(start), end: int(end) + 1})
	ivs := make([]transcriptInterval, len(hits))
	for i, h := range hits {
		ivs[i] = h.(transcriptInterval)
	}
	sort.Slice(ivs, func(i, j int) bool {
		if ivs[i].start != ivs[j].start {
			return ivs[i].start < ivs[j].start
		}
		return ivs[i].uid < ivs[j].uid
	})

	result := make([]*Transcript, len(ivs))
	for i, iv := range ivs {
		result[i] = iv.transcript
	}
	return result
}

// Len returns the number of intervals in the tree.
func (t *IntervalTree) Len() int {
	return t.tree.Len()
}
