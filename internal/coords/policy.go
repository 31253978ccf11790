package coords

import (
	"errors"
	"fmt"
)

// Default tunables. Padding can hold variants and coverage; margin is blank.
const (
	DefaultPadding int64 = 15
	DefaultMargin  int64 = 60
)

// ErrInvalidPolicy is returned by Build for unusable policies.
var ErrInvalidPolicy = errors.New("invalid policy")

// Policy holds the tunables of the coordinate space.
type Policy struct {
	// Padding is added on each side of every feature, in genomic units.
	Padding int64
	// Margin is the blank gap before the first segment and after the last.
	// When non-zero, gaps between segments are capped at 2*Margin.
	// When zero, gaps are capped at 2*Padding.
	Margin int64
	// MergeOnTouch merges padded features whose intervals touch as well as
	// those that overlap.
	MergeOnTouch bool
}

// DefaultPolicy returns the padding-plus-margin scheme used by transcript
// and gene views.
func DefaultPolicy() Policy {
	return Policy{Padding: DefaultPadding, Margin: DefaultMargin, MergeOnTouch: true}
}

// PaddingOnlyPolicy returns the scheme without a separate margin: the first
// segment starts at 0 and gaps are capped at 2*Padding.
func PaddingOnlyPolicy() Policy {
	return Policy{Padding: DefaultPadding, MergeOnTouch: true}
}

// PolicyByName returns a preset by name ("default" / "exon" or "padding").
func PolicyByName(name string) (Policy, error) {
	switch name {
	case "", "default", "exon":
		return DefaultPolicy(), nil
	case "padding", "padding-only":
		return PaddingOnlyPolicy(), nil
	}
	return Policy{}, fmt.Errorf("%w: unknown preset %q", ErrInvalidPolicy, name)
}

// Validate checks the policy.
func (p Policy) Validate() error {
	if p.Padding < 0 || p.Margin < 0 {
		return fmt.Errorf("%w: padding %d and margin %d must not be negative", ErrInvalidPolicy, p.Padding, p.Margin)
	}
	if p.GapCap() == 0 {
		return fmt.Errorf("%w: padding and margin are both zero", ErrInvalidPolicy)
	}
	return nil
}

// InitialOffset is the scaled coordinate of the first segment.
func (p Policy) InitialOffset() int64 {
	return p.Margin
}

// GapCap is the largest scaled gap allowed between two segments.
func (p Policy) GapCap() int64 {
	if p.Margin > 0 {
		return 2 * p.Margin
	}
	return 2 * p.Padding
}

// Trailing is the scaled allowance after the last segment.
func (p Policy) Trailing() int64 {
	return p.Padding + p.Margin
}

func (p Policy) String() string {
	return fmt.Sprintf("padding=%d margin=%d merge_on_touch=%t", p.Padding, p.Margin, p.MergeOnTouch)
}
