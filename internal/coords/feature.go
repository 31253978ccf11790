// Package coords maps genomic positions into a compressed, exon-aware plot
// coordinate space and back.
//
// A Mapping is built once per (feature set, mode) pair. Long intronic or
// intergenic stretches are elided: every feature keeps a fixed amount of
// padding on both sides, and the blank space between non-adjacent features is
// capped so that a gene spanning a megabase still fits on one chart.
package coords

import (
	"errors"
	"fmt"
	"strings"
)

// FeatureType tags a genomic feature.
type FeatureType string

// Feature types as they appear in GENCODE annotations.
const (
	FeatureCDS  FeatureType = "CDS"
	FeatureUTR  FeatureType = "UTR"
	FeatureExon FeatureType = "exon"
	// FeatureNone marks a plain interval with no annotation.
	FeatureNone FeatureType = ""
)

// ErrInvalidFeature is returned when a feature has Stop < Start.
var ErrInvalidFeature = errors.New("invalid feature")

// Feature is a closed genomic interval [Start, Stop].
type Feature struct {
	Start int64
	Stop  int64
	Type  FeatureType
}

// Len returns the number of bases covered by the feature.
func (f Feature) Len() int64 {
	return f.Stop - f.Start + 1
}

// Contains returns true if pos lies within [Start, Stop].
func (f Feature) Contains(pos int64) bool {
	return pos >= f.Start && pos <= f.Stop
}

// Validate reports ErrInvalidFeature if Stop < Start.
func (f Feature) Validate() error {
	if f.Stop < f.Start {
		return fmt.Errorf("%w: stop %d < start %d", ErrInvalidFeature, f.Stop, f.Start)
	}
	return nil
}

func (f Feature) String() string {
	if f.Type == FeatureNone {
		return fmt.Sprintf("%d-%d", f.Start, f.Stop)
	}
	return fmt.Sprintf("%s:%d-%d", f.Type, f.Start, f.Stop)
}

// Mode selects which feature types participate in a mapping.
type Mode int

const (
	// ModeCoding keeps CDS features only ("skip UTRs").
	ModeCoding Mode = iota
	// ModeWithUTR keeps CDS and UTR features.
	ModeWithUTR
)

// Modes lists every mode, in the order views usually precompute them.
var Modes = []Mode{ModeWithUTR, ModeCoding}

func (m Mode) String() string {
	switch m {
	case ModeCoding:
		return "cds"
	case ModeWithUTR:
		return "utr"
	default:
		return fmt.Sprintf("Mode(%d)", int(m))
	}
}

// ParseMode parses a mode name. Accepts "cds"/"coding"/"noutr" and
// "utr"/"cds+utr"/"all".
func ParseMode(s string) (Mode, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "cds", "coding", "noutr", "skip-utrs":
		return ModeCoding, nil
	case "utr", "cds+utr", "all", "include-utrs":
		return ModeWithUTR, nil
	}
	return 0, fmt.Errorf("unknown mode %q", s)
}

// Includes returns true if features of type t participate in mode m.
func (m Mode) Includes(t FeatureType) bool {
	switch m {
	case ModeCoding:
		return t == FeatureCDS
	case ModeWithUTR:
		return t == FeatureCDS || t == FeatureUTR
	}
	return false
}

// filterFeatures keeps the features included by mode. When none match, the
// unfiltered list is returned so that a transcript without a CDS, or a plain
// interval set, still gets a mapping.
func filterFeatures(features []Feature, mode Mode) []Feature {
	out := make([]Feature, 0, len(features))
	for _, f := range features {
		if mode.Includes(f.Type) {
			out = append(out, f)
		}
	}
	if len(out) == 0 {
		out = append(out, features...)
	}
	return out
}

func validateFeatures(features []Feature) error {
	for i, f := range features {
		if err := f.Validate(); err != nil {
			return fmt.Errorf("feature %d: %w", i, err)
		}
	}
	return nil
}
