package main

import (
	"fmt"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"

	"github.com/inodb/vibe-coords/internal/cache"
	"github.com/inodb/vibe-coords/internal/duckdb"
)

func newImportCmd() *cobra.Command {
	var (
		chrom  string
		keep   bool
	)

	cmd := &cobra.Command{
		Use:   "import",
		Short: "Load GTF features into a DuckDB feature store",
		Long: `Parse a GENCODE GTF and write the CDS, UTR and exon features of every
transcript into the features table of a DuckDB database. Mapping commands read
the store with --db instead of reparsing the GTF.`,
		Example: `  vibe-coords import --gtf gencode.v46.annotation.gtf.gz --db features.duckdb
  vibe-coords import --gtf gencode.v46.annotation.gtf.gz --db chr12.duckdb --chrom 12`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			gtfPath := viper.GetString("gtf")
			dbPath := viper.GetString("db")
			if gtfPath == "" {
				return usagef("--gtf is required")
			}
			if dbPath == "" {
				return usagef("--db is required")
			}

			c := cache.New()
			loader := cache.NewGTFLoader(gtfPath)
			loader.SetLogger(logger)
			var err error
			if chrom != "" {
				err = loader.LoadChromosome(c, chrom)
			} else {
				err = loader.Load(c)
			}
			if err != nil {
				return err
			}

			store, err := duckdb.Open(dbPath)
			if err != nil {
				return err
			}
			defer store.Close()

			if !keep {
				if err := store.ClearFeatures(); err != nil {
					return fmt.Errorf("clear features: %w", err)
				}
			}

			var transcripts []*cache.Transcript
			for _, ch := range c.Chromosomes() {
				transcripts = append(transcripts, c.FindTranscriptsByChrom(ch)...)
			}
			if err := store.WriteTranscripts(transcripts); err != nil {
				return fmt.Errorf("write features: %w", err)
			}

			n, err := store.FeatureCount()
			if err != nil {
				return err
			}
			logger.Info("imported features",
				zap.String("gtf", gtfPath),
				zap.String("db", dbPath),
				zap.Int("transcripts", len(transcripts)),
				zap.Int("features", n))
			fmt.Fprintf(cmd.OutOrStdout(), "Imported %d transcripts (%d features) into %s\n", len(transcripts), n, dbPath)
			return nil
		},
	}

	cmd.Flags().StringVar(&chrom, "chrom", "", "Only import one chromosome")
	cmd.Flags().BoolVar(&keep, "append", false, "Keep existing features instead of replacing them")

	return cmd
}
