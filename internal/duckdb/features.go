package duckdb

import (
	"context"
	"database/sql/driver"
	"fmt"

	goduckdb "github.com/marcboeker/go-duckdb"

	"github.com/inodb/vibe-coords/internal/cache"
	"github.com/inodb/vibe-coords/internal/coords"
)

// FeatureRecord is the feature list of one transcript, gene or region.
type FeatureRecord struct {
	ID       string
	Chrom    string
	Features []coords.Feature
}

// FeatureSet returns the record as a mapping source.
func (r *FeatureRecord) FeatureSet() *coords.FeatureSet {
	return coords.NewFeatureSet(r.ID, r.Features)
}

// WriteTranscripts bulk-loads the derived features of every transcript using
// the Appender API.
func (s *Store) WriteTranscripts(transcripts []*cache.Transcript) error {
	if len(transcripts) == 0 {
		return nil
	}

	conn, err := s.db.Conn(context.Background())
	if err != nil {
		return fmt.Errorf("get connection: %w", err)
	}
	defer conn.Close()

	var appender *goduckdb.Appender
	if err := conn.Raw(func(driverConn any) error {
		var err error
		appender, err = goduckdb.NewAppenderFromConn(driverConn.(driver.Conn), "", "features")
		return err
	}); err != nil {
		return fmt.Errorf("create appender: %w", err)
	}
	defer appender.Close()

	for _, t := range transcripts {
		for _, f := range t.Features() {
			if err := appender.AppendRow(
				t.Chrom, t.GeneID, t.GeneName, t.ID,
				string(f.Type), f.Start, f.Stop, t.Strand,
			); err != nil {
				return fmt.Errorf("append feature for %s: %w", t.ID, err)
			}
		}
	}

	return appender.Flush()
}

// ClearFeatures removes all stored features.
func (s *Store) ClearFeatures() error {
	_, err := s.db.Exec("DELETE FROM features")
	return err
}

// FeatureCount returns the number of stored features.
func (s *Store) FeatureCount() (int, error) {
	var n int
	if err := s.db.QueryRow("SELECT count(*) FROM features").Scan(&n); err != nil {
		return 0, fmt.Errorf("count features: %w", err)
	}
	return n, nil
}

// FeaturesByTranscript returns the features of a transcript, or nil if the
// transcript is unknown.
func (s *Store) FeaturesByTranscript(transcriptID string) (*FeatureRecord, error) {
	return s.queryRecord(transcriptID,
		`SELECT chrom, start_pos, stop_pos, feature_type FROM features
		WHERE transcript_id = ? ORDER BY start_pos, stop_pos, feature_type`, transcriptID)
}

// FeaturesByGene returns the features of every transcript of a gene, looked
// up by Ensembl ID or symbol. Returns nil if the gene is unknown.
func (s *Store) FeaturesByGene(idOrName string) (*FeatureRecord, error) {
	rec, err := s.queryRecord(idOrName,
		`SELECT chrom, start_pos, stop_pos, feature_type FROM features
		WHERE gene_id = ? ORDER BY start_pos, stop_pos, feature_type`, idOrName)
	if err != nil || rec != nil {
		return rec, err
	}
	return s.queryRecord(idOrName,
		`SELECT chrom, start_pos, stop_pos, feature_type FROM features
		WHERE upper(gene_name) = upper(?) ORDER BY start_pos, stop_pos, feature_type`, idOrName)
}

// FeaturesInRegion returns the features intersecting [start, stop] on chrom.
func (s *Store) FeaturesInRegion(chrom string, start, stop int64) (*FeatureRecord, error) {
	chrom = cache.NormalizeChrom(chrom)
	id := fmt.Sprintf("%s:%d-%d", chrom, start, stop)
	rec, err := s.queryRecord(id,
		`SELECT chrom, start_pos, stop_pos, feature_type FROM features
		WHERE chrom = ? AND stop_pos >= ? AND start_pos <= ?
		ORDER BY start_pos, stop_pos, feature_type`, chrom, start, stop)
	if err != nil {
		return nil, err
	}
	if rec == nil {
		rec = &FeatureRecord{ID: id, Chrom: chrom}
	}
	return rec, nil
}

func (s *Store) queryRecord(id, query string, args ...any) (*FeatureRecord, error) {
	rows, err := s.db.Query(query, args...)
	if err != nil {
		return nil, fmt.Errorf("query features: %w", err)
	}
	defer rows.Close()

	var rec *FeatureRecord
	for rows.Next() {
		var (
			chrom, typ  string
			start, stop int64
		)
		if err := rows.Scan(&chrom, &start, &stop, &typ); err != nil {
			return nil, fmt.Errorf("scan feature: %w", err)
		}
		if rec == nil {
			rec = &FeatureRecord{ID: id, Chrom: chrom}
		}
		rec.Features = append(rec.Features, coords.Feature{
			Start: start,
			Stop:  stop,
			Type:  coords.FeatureType(typ),
		})
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate features: %w", err)
	}
	return rec, nil
}
