package cache

import "github.com/inodb/vibe-coords/internal/coords"

// Gene represents a genomic region with associated transcripts.
type Gene struct {
	ID          string        // Gene identifier (e.g., ENSG00000133703)
	Name        string        // Gene symbol (e.g., KRAS)
	Chrom       string        // Chromosome
	Start       int64         // Gene start position (1-based)
	End         int64         // Gene end position (1-based, inclusive)
	Strand      int8          // +1 (forward) or -1 (reverse)
	Biotype     string        // Gene biotype (e.g., protein_coding)
	Transcripts []*Transcript // Associated transcripts
}

// Contains returns true if the given position is within the gene boundaries.
func (g *Gene) Contains(pos int64) bool {
	return pos >= g.Start && pos <= g.End
}

// Features returns the features of every transcript of the gene. Overlaps
// between isoforms are left for the mapping to merge.
func (g *Gene) Features() []coords.Feature {
	var features []coords.Feature
	for _, t := range g.Transcripts {
		features = append(features, t.Features()...)
	}
	return features
}

// FeatureSet wraps the gene's features as a mapping source keyed by gene ID.
func (g *Gene) FeatureSet() *coords.FeatureSet {
	return coords.NewFeatureSet(g.ID, g.Features())
}

// CanonicalTranscript picks the transcript shown by default for the gene:
// the Ensembl canonical one, then MANE Select, then the longest CDS.
// Returns nil if the gene has no transcripts.
func (g *Gene) CanonicalTranscript() *Transcript {
	var best *Transcript
	for _, t := range g.Transcripts {
		if t.IsCanonical {
			return t
		}
		if best == nil {
			best = t
			continue
		}
		if t.IsMANESelect != best.IsMANESelect {
			if t.IsMANESelect {
				best = t
			}
			continue
		}
		if t.CDSLength() > best.CDSLength() {
			best = t
		}
	}
	return best
}
