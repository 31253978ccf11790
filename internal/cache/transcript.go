// Package cache holds the transcript and gene model loaded from GENCODE
// annotations, and derives the CDS/UTR feature lists that coordinate
// mappings are built from.
package cache

import "github.com/inodb/vibe-coords/internal/coords"

// Transcript represents a specific gene isoform.
type Transcript struct {
	ID           string // Transcript ID (e.g., ENST00000311936)
	GeneID       string // Parent gene ID
	GeneName     string // Parent gene symbol
	Chrom        string // Chromosome
	Start        int64  // Transcript start (1-based)
	End          int64  // Transcript end (1-based, inclusive)
	Strand       int8   // +1 or -1
	Biotype      string // Transcript biotype
	IsCanonical  bool   // Ensembl canonical flag
	IsMANESelect bool   // MANE Select transcript
	Exons        []Exon // Exons in ascending genomic order
	CDSStart     int64  // CDS start (genomic, 1-based), 0 if non-coding
	CDSEnd       int64  // CDS end (genomic, 1-based), 0 if non-coding
}

// Exon represents a single exon within a transcript.
type Exon struct {
	Number   int   // Exon number (1-based, transcript order)
	Start    int64 // Genomic start (1-based)
	End      int64 // Genomic end (1-based, inclusive)
	CDSStart int64 // CDS portion start, 0 if entirely non-coding
	CDSEnd   int64 // CDS portion end, 0 if entirely non-coding
}

// IsProteinCoding returns true if the transcript has a coding sequence.
func (t *Transcript) IsProteinCoding() bool {
	return t.CDSStart > 0 && t.CDSEnd > 0
}

// Contains returns true if the given position is within the transcript boundaries.
func (t *Transcript) Contains(pos int64) bool {
	return pos >= t.Start && pos <= t.End
}

// Overlaps returns true if [start, end] intersects the transcript.
func (t *Transcript) Overlaps(start, end int64) bool {
	return start <= t.End && end >= t.Start
}

// CDSLength returns the number of coding bases across all exons.
func (t *Transcript) CDSLength() int64 {
	var n int64
	for i := range t.Exons {
		if t.Exons[i].IsCoding() {
			n += t.Exons[i].CDSEnd - t.Exons[i].CDSStart + 1
		}
	}
	return n
}

// Features splits the exons into CDS and UTR features in genomic order.
// Non-coding transcripts yield one exon feature per exon.
func (t *Transcript) Features() []coords.Feature {
	features := make([]coords.Feature, 0, len(t.Exons)+2)
	if !t.IsProteinCoding() {
		for _, e := range t.Exons {
			features = append(features, coords.Feature{Start: e.Start, Stop: e.End, Type: coords.FeatureExon})
		}
		return features
	}

	for _, e := range t.Exons {
		if !e.IsCoding() {
			features = append(features, coords.Feature{Start: e.Start, Stop: e.End, Type: coords.FeatureUTR})
			continue
		}
		if e.Start < e.CDSStart {
			features = append(features, coords.Feature{Start: e.Start, Stop: e.CDSStart - 1, Type: coords.FeatureUTR})
		}
		features = append(features, coords.Feature{Start: e.CDSStart, Stop: e.CDSEnd, Type: coords.FeatureCDS})
		if e.CDSEnd < e.End {
			features = append(features, coords.Feature{Start: e.CDSEnd + 1, Stop: e.End, Type: coords.FeatureUTR})
		}
	}
	return features
}

// FeatureSet wraps the transcript's features as a mapping source keyed by
// transcript ID.
func (t *Transcript) FeatureSet() *coords.FeatureSet {
	return coords.NewFeatureSet(t.ID, t.Features())
}

// IsCoding returns true if the exon contains coding sequence.
func (e *Exon) IsCoding() bool {
	return e.CDSStart > 0 && e.CDSEnd > 0
}
