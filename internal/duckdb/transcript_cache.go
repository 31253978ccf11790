package duckdb

import (
	"encoding/gob"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/inodb/vibe-coords/internal/cache"
)

// TranscriptCache manages gob-serialized transcript data on disk, next to
// the GTF it was parsed from:
//
//	{dir}/transcripts.gob       (serialized genes and transcripts)
//	{dir}/transcripts.gob.meta  (GTF fingerprint)
type TranscriptCache struct {
	dir string
}

// snapshot is the on-disk form. Gene transcript lists are rebuilt on load.
type snapshot struct {
	Genes       []cache.Gene
	Transcripts []*cache.Transcript
}

// NewTranscriptCache creates a transcript cache for the given directory.
func NewTranscriptCache(dir string) *TranscriptCache {
	return &TranscriptCache{dir: dir}
}

func (tc *TranscriptCache) gobPath() string {
	return filepath.Join(tc.dir, "transcripts.gob")
}

func (tc *TranscriptCache) metaPath() string {
	return filepath.Join(tc.dir, "transcripts.gob.meta")
}

// Valid checks whether the cached transcripts match the current GTF file.
func (tc *TranscriptCache) Valid(gtf FileFingerprint) bool {
	meta, err := tc.readMeta()
	if err != nil {
		return false
	}

	size, err := strconv.ParseInt(meta["gtf_size"], 10, 64)
	if err != nil {
		return false
	}
	modTime, err := time.Parse(time.RFC3339Nano, meta["gtf_modtime"])
	if err != nil {
		return false
	}
	if !gtf.Matches(FileFingerprint{Size: size, ModTime: modTime}) {
		return false
	}

	if _, err := os.Stat(tc.gobPath()); err != nil {
		return false
	}
	return true
}

// Load reads serialized genes and transcripts from disk into the cache.
func (tc *TranscriptCache) Load(c *cache.Cache) error {
	f, err := os.Open(tc.gobPath())
	if err != nil {
		return fmt.Errorf("open transcript cache: %w", err)
	}
	defer f.Close()

	var snap snapshot
	if err := gob.NewDecoder(f).Decode(&snap); err != nil {
		return fmt.Errorf("decode transcript cache: %w", err)
	}

	for i := range snap.Genes {
		g := snap.Genes[i]
		c.AddGene(&g)
	}
	for _, t := range snap.Transcripts {
		c.AddTranscript(t)
	}
	return nil
}

// Write serializes all genes and transcripts from the cache to disk.
func (tc *TranscriptCache) Write(c *cache.Cache, gtf FileFingerprint) error {
	var snap snapshot
	for _, g := range c.Genes() {
		gene := *g
		gene.Transcripts = nil
		snap.Genes = append(snap.Genes, gene)
	}
	for _, chrom := range c.Chromosomes() {
		snap.Transcripts = append(snap.Transcripts, c.FindTranscriptsByChrom(chrom)...)
	}

	if err := os.MkdirAll(tc.dir, 0755); err != nil {
		return fmt.Errorf("create transcript cache directory: %w", err)
	}
	f, err := os.Create(tc.gobPath())
	if err != nil {
		return fmt.Errorf("create transcript cache: %w", err)
	}

	if err := gob.NewEncoder(f).Encode(snap); err != nil {
		f.Close()
		os.Remove(tc.gobPath())
		return fmt.Errorf("encode transcript cache: %w", err)
	}
	if err := f.Close(); err != nil {
		return fmt.Errorf("close transcript cache: %w", err)
	}

	return tc.writeMeta(gtf)
}

// Clear removes the cached transcript files.
func (tc *TranscriptCache) Clear() {
	os.Remove(tc.gobPath())
	os.Remove(tc.metaPath())
}

func (tc *TranscriptCache) writeMeta(gtf FileFingerprint) error {
	lines := []string{
		"gtf_path=" + gtf.Path,
		"gtf_size=" + strconv.FormatInt(gtf.Size, 10),
		"gtf_modtime=" + gtf.ModTime.UTC().Format(time.RFC3339Nano),
		"created_at=" + time.Now().UTC().Format(time.RFC3339),
		"",
	}
	return os.WriteFile(tc.metaPath(), []byte(strings.Join(lines, "\n")), 0644)
}

func (tc *TranscriptCache) readMeta() (map[string]string, error) {
	data, err := os.ReadFile(tc.metaPath())
	if err != nil {
		return nil, err
	}

	meta := make(map[string]string)
	for _, line := range strings.Split(string(data), "\n") {
		if k, v, ok := strings.Cut(line, "="); ok {
			meta[k] = v
		}
	}
	return meta, nil
}
