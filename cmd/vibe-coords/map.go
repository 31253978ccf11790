package main

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/inodb/vibe-coords/internal/coords"
	"github.com/inodb/vibe-coords/internal/coverage"
	"github.com/inodb/vibe-coords/internal/output"
	"github.com/inodb/vibe-coords/internal/track"
	"github.com/inodb/vibe-coords/internal/vcf"
)

// markFlags names the mark files placed on a view.
type markFlags struct {
	variants string
	passOnly bool
	bins     []string
}

func (mf *markFlags) register(cmd *cobra.Command) {
	cmd.Flags().StringVar(&mf.variants, "variants", "", "VCF file of variants to place")
	cmd.Flags().BoolVar(&mf.passOnly, "pass-only", false, "Only place variants whose FILTER is PASS or missing")
	cmd.Flags().StringSliceVar(&mf.bins, "bins", nil, "Coverage bin file to place, or MINLEN:FILE per resolution level (repeatable)")
}

// load reads the variants inside the padded extent of v and the coverage
// bins over its intervals.
func (mf *markFlags) load(v *view, padding int64) ([]*vcf.Variant, []coverage.Bin, error) {
	start, stop, ok := v.extent()
	if !ok {
		return nil, nil, nil
	}
	start, stop = start-padding, stop+padding

	var (
		variants []*vcf.Variant
		bins     []coverage.Bin
		err      error
	)
	if mf.variants != "" {
		if variants, err = loadVariants(mf.variants, v.chrom, start, stop, mf.passOnly); err != nil {
			return nil, nil, err
		}
	}
	if len(mf.bins) > 0 {
		is, err := v.intervals()
		if err != nil {
			return nil, nil, err
		}
		if bins, err = loadBins(mf.bins, is); err != nil {
			return nil, nil, err
		}
	}
	return variants, bins, nil
}

func newMapCmd() *cobra.Command {
	var (
		sf         sourceFlags
		mf         markFlags
		modeName   string
		outputFile string
		positions  []int64
	)

	cmd := &cobra.Command{
		Use:   "map [region]",
		Short: "Print the position mapping of a transcript, gene or region",
		Long: `Build the exon-aware position mapping for a transcript, a gene or the
features inside a genomic region, and print its segments. With --variants and
--bins, place variants and coverage bins in both modes.`,
		Example: `  vibe-coords map --gtf gencode.v46.annotation.gtf.gz --transcript ENST00000311936
  vibe-coords map --db features.duckdb --gene KRAS --mode utr
  vibe-coords map --gene KRAS --variants tumor.vcf.gz --bins coverage.tsv.gz
  vibe-coords map --gene KRAS --bins 0:coverage.base.tsv.gz --bins 10000:coverage.bin100.tsv.gz
  vibe-coords map 12:25205246-25250929 --at 25245351`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			mode, err := coords.ParseMode(modeName)
			if err != nil {
				return &usageError{err: err}
			}
			region := ""
			if len(args) == 1 {
				region = args[0]
			}

			out := cmd.OutOrStdout()
			if outputFile != "" {
				f, err := os.Create(outputFile)
				if err != nil {
					return fmt.Errorf("create output file: %w", err)
				}
				defer f.Close()
				out = f
			}

			return runMap(out, sf, mf, region, mode, positions)
		},
	}

	sf.register(cmd)
	mf.register(cmd)
	cmd.Flags().StringVarP(&modeName, "mode", "m", "cds", "Coordinate mode: cds (coding only) or utr (coding + UTR)")
	cmd.Flags().StringVarP(&outputFile, "output", "o", "", "Output file (default: stdout)")
	cmd.Flags().Int64SliceVar(&positions, "at", nil, "Genomic positions to map (repeatable)")

	return cmd
}

func runMap(out io.Writer, sf sourceFlags, mf markFlags, region string, mode coords.Mode, positions []int64) error {
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

	m := tr.Mapping(mode)
	logger.Debug("built mapping",
		zap.String("source", tr.ID()),
		zap.Stringer("mode", mode),
		zap.Int("segments", m.Len()),
		zap.Int("merged", m.Merged()))

	sw := output.NewSegmentWriter(out)
	if err := sw.WriteParams(tr.ID(), mode, m); err != nil {
		return err
	}
	if err := sw.WriteHeader(); err != nil {
		return err
	}
	if err := sw.Write(m); err != nil {
		return err
	}
	if err := sw.Flush(); err != nil {
		return err
	}

	if len(positions) > 0 {
		if err := writePositions(out, tr, mode, positions); err != nil {
			return err
		}
	}

	variants, bins, err := mf.load(v, mc.Policy().Padding)
	if err != nil {
		return err
	}
	if mf.variants != "" {
		fmt.Fprintln(out)
		vw := output.NewVariantWriter(out)
		if err := vw.WriteHeader(); err != nil {
			return err
		}
		for _, p := range tr.PlaceVariants(variants) {
			if err := vw.Write(p); err != nil {
				return err
			}
		}
		if err := vw.Flush(); err != nil {
			return err
		}
	}
	if len(mf.bins) > 0 {
		fmt.Fprintln(out)
		bw := output.NewBinWriter(out)
		if err := bw.WriteHeader(); err != nil {
			return err
		}
		for _, p := range tr.PlaceBins(bins) {
			if err := bw.Write(p); err != nil {
				return err
			}
		}
		if err := bw.Flush(); err != nil {
			return err
		}
	}
	return nil
}

// writePositions prints each queried position with its mapped coordinate,
// the position the coordinate inverts back to and the features under it.
func writePositions(out io.Writer, tr *track.Track, mode coords.Mode, positions []int64) error {
	m := tr.Mapping(mode)
	w := bufio.NewWriter(out)
	fmt.Fprintln(w)
	fmt.Fprintln(w, "#pos\tscaled\tinverse\tfeatures")
	for _, pos := range positions {
		scaled, inverse := "-", "-"
		if s, ok := m.MapPosition(pos); ok {
			scaled = strconv.FormatInt(s, 10)
			if p, ok := m.Inverse(s); ok {
				inverse = strconv.FormatInt(p, 10)
			}
		}
		fmt.Fprintf(w, "%d\t%s\t%s\t%s\n", pos, scaled, inverse, formatFeatures(tr.Index().At(pos)))
	}
	return w.Flush()
}

// formatFeatures joins features as TYPE:start-stop, or "-" when empty.
func formatFeatures(features []coords.Feature) string {
	if len(features) == 0 {
		return "-"
	}
	parts := make([]string, len(features))
	for i, f := range features {
		typ := string(f.Type)
		if typ == "" {
			typ = "interval"
		}
		parts[i] = fmt.Sprintf("%s:%d-%d", typ, f.Start, f.Stop)
	}
	return strings.Join(parts, ",")
}
