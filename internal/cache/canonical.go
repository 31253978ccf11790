package cache

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"strings"
)

// CanonicalOverrides maps gene symbol -> canonical transcript ID.
type CanonicalOverrides map[string]string

// Genome Nexus canonical transcript file URLs.
const (
	canonicalFileGRCh38 = "https://raw.githubusercontent.com/genome-nexus/genome-nexus-importer/master/data/grch38_ensembl95/export/ensembl_biomart_canonical_transcripts_per_hgnc.txt"
	canonicalFileGRCh37 = "https://raw.githubusercontent.com/genome-nexus/genome-nexus-importer/master/data/grch37_ensembl92/export/ensembl_biomart_canonical_transcripts_per_hgnc.txt"
	canonicalFileName   = "ensembl_biomart_canonical_transcripts_per_hgnc.txt"

	// canonicalColumn is read when the header does not name it.
	canonicalColumn     = 4
	canonicalColumnName = "genome_nexus_canonical_transcript"
)

// CanonicalFileURL returns the URL for the canonical transcript file for the given assembly.
func CanonicalFileURL(assembly string) string {
	if strings.EqualFold(assembly, "GRCh37") {
		return canonicalFileGRCh37
	}
	return canonicalFileGRCh38
}

// CanonicalFileName returns the filename for the canonical transcript file.
func CanonicalFileName() string {
	return canonicalFileName
}

// LoadCanonicalOverrides loads canonical transcript overrides from a Genome Nexus TSV file.
func LoadCanonicalOverrides(path string) (CanonicalOverrides, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open canonical overrides file: %w", err)
	}
	defer f.Close()

	return ParseCanonicalOverrides(f)
}

// ParseCanonicalOverrides parses the TSV content. Column 0 is the HGNC
// symbol; the transcript column is found by header name.
func ParseCanonicalOverrides(reader io.Reader) (CanonicalOverrides, error) {
	overrides := make(CanonicalOverrides)
	scanner := bufio.NewScanner(reader)

	if !scanner.Scan() {
		return overrides, scanner.Err()
	}
	col := canonicalColumn
	for i, name := range strings.Split(scanner.Text(), "\t") {
		if name == canonicalColumnName {
			col = i
			break
		}
	}

	for scanner.Scan() {
		line := scanner.Text()
		if line == "" {
			continue
		}

		fields := strings.Split(line, "\t")
		if len(fields) <= col {
			continue
		}

		hgnc := fields[0]
		transcript := fields[col]
		if hgnc == "" || transcript == "" || transcript == "nan" {
			continue
		}
		overrides[hgnc] = stripVersion(transcript)
	}

	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("scan canonical overrides: %w", err)
	}

	return overrides, nil
}

// ApplyCanonicalOverrides marks the override transcript of each gene as
// canonical and clears the flag on its siblings. Overrides naming unknown
// genes or transcripts are skipped. Returns the number applied.
func (c *Cache) ApplyCanonicalOverrides(overrides CanonicalOverrides) int {
	applied := 0
	for symbol, id := range overrides {
		g := c.GetGene(symbol)
		if g == nil {
			continue
		}
		found := false
		for _, t := range g.Transcripts {
			if t.ID == id {
				found = true
				break
			}
		}
		if !found {
			continue
		}
		for _, t := range g.Transcripts {
			t.IsCanonical = t.ID == id
		}
		applied++
	}
	return applied
}
