package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"

	"github.com/inodb/vibe-coords/internal/coords"
	"github.com/inodb/vibe-coords/internal/track"
)

func newRenderCmd() *cobra.Command {
	var (
		sf         sourceFlags
		mf         markFlags
		modeName   string
		outputFile string
	)

	cmd := &cobra.Command{
		Use:   "render [region]",
		Short: "Draw an SVG preview of a mapped track",
		Long: `Draw the exons of a transcript, gene or region in mapped coordinates,
with variants as points and coverage bin means as a line, and write the plot
as SVG.`,
		Example: `  vibe-coords render --gene KRAS --variants tumor.vcf.gz -o kras.svg
  vibe-coords render --transcript ENST00000311936 --mode utr --bins coverage.tsv.gz -o kras.svg`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if outputFile == "" {
				return usagef("--output is required")
			}
			mode, err := coords.ParseMode(modeName)
			if err != nil {
				return &usageError{err: err}
			}
			region := ""
			if len(args) == 1 {
				region = args[0]
			}
			opts := track.RenderOptions{
				Mode:   mode,
				Width:  viper.GetFloat64("render.width"),
				Height: viper.GetFloat64("render.height"),
			}
			return runRender(outputFile, sf, mf, region, opts)
		},
	}

	sf.register(cmd)
	mf.register(cmd)
	cmd.Flags().StringVarP(&modeName, "mode", "m", "cds", "Coordinate mode: cds (coding only) or utr (coding + UTR)")
	cmd.Flags().StringVarP(&outputFile, "output", "o", "", "Output SVG file (required)")
	cmd.Flags().Float64("width", 1000, "Plot width in points")
	cmd.Flags().Float64("height", 300, "Plot height in points")
	cmd.PreRun = func(cmd *cobra.Command, args []string) {
		viper.BindPFlag("render.width", cmd.Flags().Lookup("width"))
		viper.BindPFlag("render.height", cmd.Flags().Lookup("height"))
	}

	return cmd
}

func runRender(outputFile string, sf sourceFlags, mf markFlags, region string, opts track.RenderOptions) error {
	v, err := resolveView(sf, region)
	if err != nil {
		return err
	}
	mc, err := newMappingCache()
	if err != nil {
		return err
	}
	tr, err := track.New(v.src, mc)
	if err != nil {
		return err
	}
	variants, bins, err := mf.load(v, mc.Policy().Padding)
	if err != nil {
		return err
	}

	f, err := os.Create(outputFile)
	if err != nil {
		return fmt.Errorf("create output file: %w", err)
	}
	if err := tr.RenderSVG(f, opts, tr.PlaceVariants(variants), tr.PlaceBins(bins)); err != nil {
		f.Close()
		os.Remove(outputFile)
		return err
	}
	if err := f.Close(); err != nil {
		return fmt.Errorf("close output file: %w", err)
	}

	logger.Info("rendered track",
		zap.String("source", tr.ID()),
		zap.Stringer("mode", opts.Mode),
		zap.Int("variants", len(variants)),
		zap.Int("bins", len(bins)),
		zap.String("output", outputFile))
	return nil
}
