package cache

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func ids(transcripts []*Transcript) []string {
	out := make([]string, len(transcripts))
	for i, t := range transcripts {
		out[i] = t.ID
	}
	return out
}

func TestBuildIntervalTree_Empty(t *testing.T) {
	tree := BuildIntervalTree(nil)
	assert.Empty(t, tree.FindOverlaps(100))
	assert.Equal(t, 0, tree.Len())
}

func TestIntervalTree_SingleTranscript(t *testing.T) {
	tx := &Transcript{ID: "ENST001", Start: 100, End: 200}
	tree := BuildIntervalTree([]*Transcript{tx})

	assert.Equal(t, []string{"ENST001"}, ids(tree.FindOverlaps(150)))
	assert.Len(t, tree.FindOverlaps(100), 1, "start boundary inclusive")
	assert.Len(t, tree.FindOverlaps(200), 1, "end boundary inclusive")
	assert.Empty(t, tree.FindOverlaps(99), "before start")
	assert.Empty(t, tree.FindOverlaps(201), "after end")
}

func TestIntervalTree_Overlapping(t *testing.T) {
	tree := BuildIntervalTree([]*Transcript{
		{ID: "C", Start: 200, End: 400},
		{ID: "A", Start: 100, End: 300},
		{ID: "B", Start: 150, End: 250},
	})

	assert.Equal(t, []string{"A", "B"}, ids(tree.FindOverlaps(175)))
	assert.Equal(t, []string{"A", "B", "C"}, ids(tree.FindOverlaps(250)))
	assert.Equal(t, []string{"C"}, ids(tree.FindOverlaps(350)))
}

func TestIntervalTree_LongIntervalBeforeShortOnes(t *testing.T) {
	// A long transcript early in the list must not be pruned by the short
	// ones that start after it.
	tree := BuildIntervalTree([]*Transcript{
		{ID: "LONG", Start: 100, End: 10000},
		{ID: "S1", Start: 200, End: 300},
		{ID: "S2", Start: 400, End: 500},
	})

	assert.Equal(t, []string{"LONG"}, ids(tree.FindOverlaps(5000)))
	assert.Equal(t, []string{"LONG", "S2"}, ids(tree.FindOverlaps(450)))
}

func TestIntervalTree_Range(t *testing.T) {
	tree := BuildIntervalTree([]*Transcript{
		{ID: "A", Start: 100, End: 200},
		{ID: "B", Start: 300, End: 400},
		{ID: "C", Start: 500, End: 600},
	})

	assert.Equal(t, []string{"A", "B"}, ids(tree.FindOverlapsRange(150, 350)))
	assert.Equal(t, []string{"B"}, ids(tree.FindOverlapsRange(250, 450)))
	assert.Empty(t, tree.FindOverlapsRange(201, 299))
	assert.Empty(t, tree.FindOverlapsRange(400, 300), "inverted range")
	assert.Equal(t, []string{"A", "B", "C"}, ids(tree.FindOverlapsRange(0, 1000)))
}

func TestIntervalTree_SkipsInvertedTranscript(t *testing.T) {
	tree := BuildIntervalTree([]*Transcript{
		{ID: "OK", Start: 100, End: 200},
		{ID: "BAD", Start: 300, End: 250},
	})

	assert.Equal(t, 1, tree.Len())
	assert.Equal(t, []string{"OK"}, ids(tree.FindOverlapsRange(0, 1000)))
}

func TestIntervalTree_SameStartKeepsInsertionOrder(t *testing.T) {
	tree := BuildIntervalTree([]*Transcript{
		{ID: "X", Start: 100, End: 500},
		{ID: "Y", Start: 100, End: 200},
	})

	assert.Equal(t, []string{"X", "Y"}, ids(tree.FindOverlaps(150)))
}
