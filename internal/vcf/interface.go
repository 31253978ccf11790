// Package vcf reads variant positions from VCF files. Variants are the point
// marks placed on a coordinate track.
package vcf

// VariantParser is the interface for parsers that read variants.
type VariantParser interface {
	// Next reads the next variant.
	// Returns nil, nil when there are no more variants.
	Next() (*Variant, error)

	// Close closes the parser and releases resources.
	Close() error

	// LineNumber returns the current line number being processed.
	LineNumber() int
}

// ReadAll drains p, splitting multi-allelic records, and keeps the variants
// accepted by keep. A nil keep accepts everything.
func ReadAll(p VariantParser, keep func(*Variant) bool) ([]*Variant, error) {
	var variants []*Variant
	for {
		v, err := p.Next()
		if err != nil {
			return nil, err
		}
		if v == nil {
			return variants, nil
		}
		for _, split := range SplitMultiAllelic(v) {
			if keep == nil || keep(split) {
				variants = append(variants, split)
			}
		}
	}
}
