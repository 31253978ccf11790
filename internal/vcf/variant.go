package vcf

import (
	"fmt"
	"strings"
)

// Variant is one VCF record reduced to what places it on a track.
type Variant struct {
	Chrom  string // Chromosome name (e.g., "12", "chr12")
	Pos    int64  // 1-based genomic position
	ID     string // Variant identifier (e.g., rs ID), "." if missing
	Ref    string // Reference allele
	Alt    string // Alternate allele (single allele after splitting)
	Filter string // PASS, "." or the failed filter names
}

// IsPass reports whether the variant passed all filters. A missing FILTER
// counts as passing.
func (v *Variant) IsPass() bool {
	return v.Filter == "PASS" || v.Filter == "."
}

// NormalizeChrom returns the chromosome name without "chr" prefix.
func (v *Variant) NormalizeChrom() string {
	return strings.TrimPrefix(v.Chrom, "chr")
}

// Location returns the browser variant key, chrom-pos-ref-alt.
func (v *Variant) Location() string {
	return fmt.Sprintf("%s-%d-%s-%s", v.NormalizeChrom(), v.Pos, v.Ref, v.Alt)
}

// InRegion reports whether the variant position lies in [start, stop] on chrom.
func (v *Variant) InRegion(chrom string, start, stop int64) bool {
	return v.NormalizeChrom() == strings.TrimPrefix(chrom, "chr") &&
		v.Pos >= start && v.Pos <= stop
}
