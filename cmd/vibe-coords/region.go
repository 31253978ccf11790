package main

import (
	"bufio"
	"fmt"
	"io"
	"strconv"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/inodb/vibe-coords/internal/coords"
	"github.com/inodb/vibe-coords/internal/output"
)

func newRegionCmd() *cobra.Command {
	var (
		sf        sourceFlags
		positions []int64
		pixels    []float64
	)

	cmd := &cobra.Command{
		Use:   "region [chrom:start-stop]",
		Short: "Collapse a region or a gene's exons into a multi-interval view",
		Long: `Build the interval set of a view: either a single genomic region, or the
padded exons of a gene or transcript merged into disjoint intervals. Prints
the intervals with their pixel ranges and the position mapping of the set.`,
		Example: `  vibe-coords region 12:25245000-25251000
  vibe-coords region --gene KRAS --at 25245351 --px 500
  vibe-coords region chr1-55505221-55530525`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			region := ""
			if len(args) == 1 {
				region = args[0]
			}
			return runRegion(cmd.OutOrStdout(), sf, region, positions, pixels)
		},
	}

	sf.register(cmd)
	cmd.Flags().Int64SliceVar(&positions, "at", nil, "Genomic positions to convert to pixels (repeatable)")
	cmd.Flags().Float64SliceVar(&pixels, "px", nil, "Pixel offsets to convert to genomic positions (repeatable)")
	cmd.Flags().Int64("padding", 20, "Padding added around each exon")
	cmd.Flags().Float64("spacing", 10, "Pixels between consecutive intervals")
	cmd.Flags().Float64("width", 1000, "Pixel width of the view")
	// Bound at run time: render binds render.width to its own flag.
	cmd.PreRun = func(cmd *cobra.Command, args []string) {
		viper.BindPFlag("region.padding", cmd.Flags().Lookup("padding"))
		viper.BindPFlag("region.spacing", cmd.Flags().Lookup("spacing"))
		viper.BindPFlag("render.width", cmd.Flags().Lookup("width"))
	}

	return cmd
}

// intervalSet builds the interval set of a view. A plain region is used
// as-is; features are padded and merged.
func intervalSet(sf sourceFlags, region string) (*coords.IntervalSet, error) {
	if region != "" && sf.transcript == "" && sf.gene == "" {
		is, err := coords.ParseRegion(region)
		if err != nil {
			return nil, &usageError{err: err}
		}
		return is, nil
	}

	v, err := resolveView(sf, region)
	if err != nil {
		return nil, err
	}
	return coords.IntervalSetFromFeatures(v.chrom, v.src.Features(), viper.GetInt64("region.padding"))
}

func runRegion(out io.Writer, sf sourceFlags, region string, positions []int64, pixels []float64) error {
	is, err := intervalSet(sf, region)
	if err != nil {
		return err
	}
	if len(is.Intervals()) == 0 {
		return fmt.Errorf("no features found for %s", firstNonEmpty(sf.transcript, sf.gene, region))
	}

	scale, err := coords.NewRegionScale(is, viper.GetFloat64("render.width"), viper.GetFloat64("region.spacing"))
	if err != nil {
		return err
	}

	w := bufio.NewWriter(out)
	fmt.Fprintf(w, "## intervals=%s length=%d\n", is, is.Length())
	fmt.Fprintln(w, "#start\tstop\tpx_start\tpx_stop")
	px := scale.Range()
	for i, iv := range is.Intervals() {
		fmt.Fprintf(w, "%d\t%d\t%s\t%s\n", iv.Start, iv.Stop, formatPx(px[i][0]), formatPx(px[i][1]))
	}

	if len(positions) > 0 || len(pixels) > 0 {
		fmt.Fprintln(w)
		fmt.Fprintln(w, "#query\tpos\tpx")
		for _, pos := range positions {
			p := "-"
			if x, ok := scale.Forward(pos); ok {
				p = formatPx(x)
			}
			fmt.Fprintf(w, "forward\t%d\t%s\n", pos, p)
		}
		for _, x := range pixels {
			g := "-"
			if pos, ok := scale.Invert(x); ok {
				g = strconv.FormatInt(pos, 10)
			}
			fmt.Fprintf(w, "invert\t%s\t%s\n", g, formatPx(x))
		}
	}
	fmt.Fprintln(w)
	if err := w.Flush(); err != nil {
		return err
	}

	mc, err := newMappingCache()
	if err != nil {
		return err
	}
	m, err := mc.Get(is, coords.ModeCoding)
	if err != nil {
		return err
	}
	sw := output.NewSegmentWriter(out)
	if err := sw.WriteParams(is.ID(), coords.ModeCoding, m); err != nil {
		return err
	}
	if err := sw.WriteHeader(); err != nil {
		return err
	}
	if err := sw.Write(m); err != nil {
		return err
	}
	return sw.Flush()
}

func formatPx(x float64) string {
	return strconv.FormatFloat(x, 'f', 2, 64)
}
