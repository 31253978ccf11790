package cache

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"sort"
	"strconv"
	"strings"

	"github.com/klauspost/compress/gzip"
	"go.uber.org/zap"
)

// GTFLoader loads transcript data from GENCODE GTF files.
type GTFLoader struct {
	path   string
	logger *zap.Logger
}

// NewGTFLoader creates a new GTF loader.
func NewGTFLoader(path string) *GTFLoader {
	return &GTFLoader{path: path, logger: zap.NewNop()}
}

// SetLogger sets the logger for parse warnings.
func (l *GTFLoader) SetLogger(logger *zap.Logger) {
	l.logger = logger
}

// Path returns the GTF file path.
func (l *GTFLoader) Path() string {
	return l.path
}

// Load loads all transcripts from the GTF file into the cache.
func (l *GTFLoader) Load(c *Cache) error {
	return l.loadGTF(c, "")
}

// LoadChromosome loads transcripts for a specific chromosome.
func (l *GTFLoader) LoadChromosome(c *Cache, chrom string) error {
	return l.loadGTF(c, chrom)
}

// loadGTF parses the GTF file and populates the cache.
// If filterChrom is non-empty, only loads that chromosome.
func (l *GTFLoader) loadGTF(c *Cache, filterChrom string) error {
	f, err := os.Open(l.path)
	if err != nil {
		return fmt.Errorf("open GTF file: %w", err)
	}
	defer f.Close()

	var reader io.Reader = f
	if strings.HasSuffix(l.path, ".gz") {
		gz, err := gzip.NewReader(f)
		if err != nil {
			return fmt.Errorf("open gzip reader: %w", err)
		}
		defer gz.Close()
		reader = gz
	}

	return l.LoadReader(c, reader, filterChrom)
}

// LoadReader parses GTF content from r into the cache.
func (l *GTFLoader) LoadReader(c *Cache, r io.Reader, filterChrom string) error {
	genes, transcripts, err := l.parseGTF(r, filterChrom)
	if err != nil {
		return err
	}

	geneIDs := make([]string, 0, len(genes))
	for id := range genes {
		geneIDs = append(geneIDs, id)
	}
	sort.Strings(geneIDs)
	for _, id := range geneIDs {
		c.AddGene(genes[id])
	}

	// Deterministic insertion order keeps gene transcript lists stable.
	ids := make([]string, 0, len(transcripts))
	for id, t := range transcripts {
		if len(t.Exons) > 0 {
			ids = append(ids, id)
		}
	}
	sort.Strings(ids)
	for _, id := range ids {
		c.AddTranscript(transcripts[id])
	}

	l.logger.Debug("loaded GTF",
		zap.String("path", l.path),
		zap.Int("genes", len(genes)),
		zap.Int("transcripts", len(ids)))
	return nil
}

// gtfFeature represents a parsed GTF line.
type gtfFeature struct {
	chrom       string
	featureType string
	start       int64
	end         int64
	strand      string
	attributes  map[string]string
}

// parseGTF parses GTF content and returns genes and transcripts by ID.
func (l *GTFLoader) parseGTF(reader io.Reader, filterChrom string) (map[string]*Gene, map[string]*Transcript, error) {
	scanner := bufio.NewScanner(reader)
	buf := make([]byte, 0, 64*1024)
	scanner.Buffer(buf, 1024*1024)

	genes := make(map[string]*Gene)
	transcripts := make(map[string]*Transcript)
	exonsByTranscript := make(map[string][]Exon)
	cdsByTranscript := make(map[string][][2]int64) // start, end pairs

	filterChrom = normalizeChrom(filterChrom)
	lineNum, skipped := 0, 0
	for scanner.Scan() {
		lineNum++
		line := scanner.Text()

		if strings.HasPrefix(line, "#") || line == "" {
			continue
		}

		feat, err := parseLine(line)
		if err != nil {
			skipped++
			l.logger.Debug("skipping malformed GTF line", zap.Int("line", lineNum), zap.Error(err))
			continue
		}

		if filterChrom != "" && feat.chrom != filterChrom {
			continue
		}

		if feat.featureType == "gene" {
			id := stripVersion(feat.attributes["gene_id"])
			genes[id] = &Gene{
				ID:      id,
				Name:    feat.attributes["gene_name"],
				Chrom:   feat.chrom,
				Start:   feat.start,
				End:     feat.end,
				Strand:  parseStrand(feat.strand),
				Biotype: feat.attributes["gene_type"],
			}
			continue
		}

		transcriptID := stripVersion(feat.attributes["transcript_id"])
		if transcriptID == "" {
			continue
		}

		switch feat.featureType {
		case "transcript":
			tags := feat.attributes["tag"]
			transcripts[transcriptID] = &Transcript{
				ID:           transcriptID,
				GeneID:       stripVersion(feat.attributes["gene_id"]),
				GeneName:     feat.attributes["gene_name"],
				Chrom:        feat.chrom,
				Start:        feat.start,
				End:          feat.end,
				Strand:       parseStrand(feat.strand),
				Biotype:      feat.attributes["transcript_type"],
				IsCanonical:  strings.Contains(tags, "Ensembl_canonical"),
				IsMANESelect: strings.Contains(tags, "MANE_Select"),
			}

		case "exon":
			exonNum, _ := strconv.Atoi(feat.attributes["exon_number"])
			exonsByTranscript[transcriptID] = append(exonsByTranscript[transcriptID], Exon{
				Number: exonNum,
				Start:  feat.start,
				End:    feat.end,
			})

		case "CDS", "stop_codon":
			// GENCODE CDS lines exclude the stop codon; the coding span keeps it.
			cdsByTranscript[transcriptID] = append(cdsByTranscript[transcriptID], [2]int64{feat.start, feat.end})
		}
	}

	if err := scanner.Err(); err != nil {
		return nil, nil, fmt.Errorf("scan GTF: %w", err)
	}
	if skipped > 0 {
		l.logger.Warn("skipped malformed GTF lines", zap.Int("count", skipped))
	}

	for id, t := range transcripts {
		exons := exonsByTranscript[id]
		if len(exons) == 0 {
			continue
		}
		sort.Slice(exons, func(i, j int) bool {
			return exons[i].Start < exons[j].Start
		})

		if regions := cdsByTranscript[id]; len(regions) > 0 {
			t.CDSStart, t.CDSEnd = regions[0][0], regions[0][1]
			for _, r := range regions[1:] {
				t.CDSStart = min(t.CDSStart, r[0])
				t.CDSEnd = max(t.CDSEnd, r[1])
			}
			clipExonCDS(t, exons)
		}
		t.Exons = exons
	}

	return genes, transcripts, nil
}

// clipExonCDS sets the CDS portion of every exon overlapping the
// transcript's coding span.
func clipExonCDS(t *Transcript, exons []Exon) {
	for i := range exons {
		e := &exons[i]
		if e.End < t.CDSStart || e.Start > t.CDSEnd {
			continue
		}
		e.CDSStart = max(e.Start, t.CDSStart)
		e.CDSEnd = min(e.End, t.CDSEnd)
	}
}

// parseLine parses a single GTF line.
func parseLine(line string) (*gtfFeature, error) {
	fields := strings.Split(line, "\t")
	if len(fields) < 9 {
		return nil, fmt.Errorf("invalid GTF line: expected 9 fields, got %d", len(fields))
	}

	start, err := strconv.ParseInt(fields[3], 10, 64)
	if err != nil {
		return nil, fmt.Errorf("parse start: %w", err)
	}
	end, err := strconv.ParseInt(fields[4], 10, 64)
	if err != nil {
		return nil, fmt.Errorf("parse end: %w", err)
	}
	if end < start {
		return nil, fmt.Errorf("end %d before start %d", end, start)
	}

	return &gtfFeature{
		chrom:       normalizeChrom(fields[0]),
		featureType: fields[2],
		start:       start,
		end:         end,
		strand:      fields[6],
		attributes:  parseAttributes(fields[8]),
	}, nil
}

// parseAttributes parses GTF attribute column.
// Format: key "value"; key "value"; ...
// Repeated tag attributes are joined with commas.
func parseAttributes(attrStr string) map[string]string {
	attrs := make(map[string]string)

	for _, part := range strings.Split(attrStr, ";") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}

		key, value, ok := strings.Cut(part, " ")
		if !ok {
			continue
		}
		value = strings.Trim(strings.TrimSpace(value), "\"")

		if prev, ok := attrs[key]; ok && key == "tag" {
			value = prev + "," + value
		}
		attrs[key] = value
	}

	return attrs
}

// parseStrand converts strand string to int8.
func parseStrand(s string) int8 {
	if s == "-" {
		return -1
	}
	return 1
}

// stripVersion removes the version suffix from an Ensembl ID.
// e.g., "ENST00000456328.2" -> "ENST00000456328"
func stripVersion(id string) string {
	if !strings.HasPrefix(id, "ENS") {
		return id
	}
	if idx := strings.LastIndex(id, "."); idx != -1 {
		return id[:idx]
	}
	return id
}

// normalizeChrom normalizes chromosome names by removing "chr" prefix.
func normalizeChrom(chrom string) string {
	return strings.TrimPrefix(chrom, "chr")
}

// NormalizeChrom is the exported form of the chromosome normalization used
// for every lookup in this package.
func NormalizeChrom(chrom string) string {
	return normalizeChrom(chrom)
}
