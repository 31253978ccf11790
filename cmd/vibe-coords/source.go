package main

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"

	"github.com/inodb/vibe-coords/internal/cache"
	"github.com/inodb/vibe-coords/internal/coords"
	"github.com/inodb/vibe-coords/internal/coverage"
	"github.com/inodb/vibe-coords/internal/duckdb"
	"github.com/inodb/vibe-coords/internal/vcf"
)

// sourceFlags selects the features a view is built from.
type sourceFlags struct {
	transcript string
	gene       string
	canonical  bool
}

func (sf *sourceFlags) register(cmd *cobra.Command) {
	f := cmd.Flags()
	f.StringVarP(&sf.transcript, "transcript", "t", "", "Transcript ID (e.g. ENST00000311936)")
	f.StringVarP(&sf.gene, "gene", "g", "", "Gene ID or symbol (e.g. KRAS)")
	f.BoolVar(&sf.canonical, "canonical", false, "With --gene, use the canonical transcript instead of all transcripts")
}

// view is the resolved input of a mapping command.
type view struct {
	chrom string
	src   coords.Source
	// region is set when the view was named by a genomic region.
	region *coords.IntervalSet
}

// intervals returns the intervals coverage is read over: the region of a
// region view, or the padded and merged features of a gene or transcript.
func (v *view) intervals() (*coords.IntervalSet, error) {
	if v.region != nil {
		return v.region, nil
	}
	return coords.IntervalSetFromFeatures(v.chrom, v.src.Features(), coords.DefaultIntervalPadding)
}

// extent returns the genomic span of the view's features.
func (v *view) extent() (start, stop int64, ok bool) {
	features := v.src.Features()
	if len(features) == 0 {
		return 0, 0, false
	}
	start, stop = features[0].Start, features[0].Stop
	for _, f := range features[1:] {
		start = min(start, f.Start)
		stop = max(stop, f.Stop)
	}
	return start, stop, true
}

// resolveView loads the features named by exactly one of --transcript,
// --gene or a region argument.
func resolveView(sf sourceFlags, region string) (*view, error) {
	n := 0
	for _, s := range []string{sf.transcript, sf.gene, region} {
		if s != "" {
			n++
		}
	}
	if n != 1 {
		return nil, usagef("exactly one of --transcript, --gene or a region is required")
	}

	if db := viper.GetString("db"); db != "" {
		return resolveFromStore(db, sf, region)
	}
	return resolveFromGTF(sf, region)
}

func resolveFromStore(path string, sf sourceFlags, regionArg string) (*view, error) {
	if _, err := os.Stat(path); err != nil {
		return nil, fmt.Errorf("open feature store: %w", err)
	}
	store, err := duckdb.Open(path)
	if err != nil {
		return nil, err
	}
	defer store.Close()

	var (
		rec    *duckdb.FeatureRecord
		region *coords.IntervalSet
	)
	switch {
	case sf.transcript != "":
		rec, err = store.FeaturesByTranscript(stripVersion(sf.transcript))
	case sf.gene != "":
		if sf.canonical {
			logger.Warn("--canonical is ignored with --db; using all transcripts of the gene")
		}
		rec, err = store.FeaturesByGene(stripVersion(sf.gene))
	default:
		is, perr := coords.ParseRegion(regionArg)
		if perr != nil {
			return nil, &usageError{err: perr}
		}
		region = is
		rec, err = store.FeaturesInRegion(is.Chrom, is.Start(), is.Stop())
	}
	if err != nil {
		return nil, err
	}
	if rec == nil {
		return nil, fmt.Errorf("%s not found in %s", firstNonEmpty(sf.transcript, sf.gene), path)
	}
	return &view{chrom: rec.Chrom, src: rec.FeatureSet(), region: region}, nil
}

func resolveFromGTF(sf sourceFlags, region string) (*view, error) {
	c, err := loadAnnotations()
	if err != nil {
		return nil, err
	}

	switch {
	case sf.transcript != "":
		t := c.GetTranscript(sf.transcript)
		if t == nil {
			return nil, fmt.Errorf("transcript %s not found", sf.transcript)
		}
		return &view{chrom: t.Chrom, src: t.FeatureSet()}, nil

	case sf.gene != "":
		g := c.GetGene(sf.gene)
		if g == nil {
			return nil, fmt.Errorf("gene %s not found", sf.gene)
		}
		if sf.canonical {
			t := g.CanonicalTranscript()
			if t == nil {
				return nil, fmt.Errorf("gene %s has no transcripts", sf.gene)
			}
			logger.Info("using canonical transcript", zap.String("gene", g.Name), zap.String("transcript", t.ID))
			return &view{chrom: t.Chrom, src: t.FeatureSet()}, nil
		}
		return &view{chrom: g.Chrom, src: g.FeatureSet()}, nil
	}

	is, err := coords.ParseRegion(region)
	if err != nil {
		return nil, &usageError{err: err}
	}
	chrom := cache.NormalizeChrom(is.Chrom)
	var features []coords.Feature
	for _, t := range c.FindTranscriptsInRegion(chrom, is.Start(), is.Stop()) {
		for _, f := range t.Features() {
			if f.Stop >= is.Start() && f.Start <= is.Stop() {
				features = append(features, f)
			}
		}
	}
	return &view{chrom: chrom, src: coords.NewFeatureSet(is.String(), features), region: is}, nil
}

// loadAnnotations loads the GTF named by --gtf, or the downloaded GENCODE
// file for --assembly, through the gob transcript cache.
func loadAnnotations() (*cache.Cache, error) {
	gtfPath := viper.GetString("gtf")
	if gtfPath == "" {
		assembly := viper.GetString("assembly")
		path, found := FindGENCODEFiles(assembly)
		if !found {
			return nil, fmt.Errorf("no GTF given and no GENCODE download found for %s (run: vibe-coords download --assembly %s)", assembly, assembly)
		}
		gtfPath = path
	}

	fp, err := duckdb.StatFile(gtfPath)
	if err != nil {
		return nil, fmt.Errorf("open gtf file: %w", err)
	}

	c, err := loadCachedGTF(gtfPath, fp)
	if err != nil {
		return nil, err
	}
	applyCanonicalOverrides(c)
	return c, nil
}

func loadCachedGTF(gtfPath string, fp duckdb.FileFingerprint) (*cache.Cache, error) {
	c := cache.New()
	tc := duckdb.NewTranscriptCache(transcriptCacheDir(gtfPath))
	if tc.Valid(fp) {
		if err := tc.Load(c); err == nil {
			logger.Debug("loaded transcript cache", zap.String("gtf", gtfPath), zap.Int("transcripts", c.TranscriptCount()))
			return c, nil
		}
		logger.Warn("transcript cache unreadable, reparsing GTF", zap.String("gtf", gtfPath))
		c = cache.New()
	}

	loader := cache.NewGTFLoader(gtfPath)
	loader.SetLogger(logger)
	if err := loader.Load(c); err != nil {
		return nil, err
	}
	logger.Info("loaded GTF", zap.String("path", gtfPath),
		zap.Int("genes", c.GeneCount()), zap.Int("transcripts", c.TranscriptCount()))

	if err := tc.Write(c, fp); err != nil {
		logger.Warn("could not write transcript cache", zap.Error(err))
	}
	return c, nil
}

// applyCanonicalOverrides applies the overrides file named by the
// canonical_overrides setting, or the downloaded one for --assembly.
func applyCanonicalOverrides(c *cache.Cache) {
	path := viper.GetString("canonical_overrides")
	if path == "" {
		found := false
		if path, found = findCanonicalFile(viper.GetString("assembly")); !found {
			return
		}
	}
	overrides, err := cache.LoadCanonicalOverrides(path)
	if err != nil {
		logger.Warn("could not load canonical transcript overrides", zap.String("path", path), zap.Error(err))
		return
	}
	n := c.ApplyCanonicalOverrides(overrides)
	logger.Debug("applied canonical transcript overrides", zap.String("path", path), zap.Int("genes", n))
}

// transcriptCacheDir returns the per-GTF gob cache directory.
func transcriptCacheDir(gtfPath string) string {
	base, err := os.UserCacheDir()
	if err != nil {
		base = os.TempDir()
	}
	name := strings.TrimSuffix(filepath.Base(gtfPath), ".gz")
	return filepath.Join(base, "vibe-coords", name)
}

// policyFromConfig builds the padding policy from coords.* settings.
func policyFromConfig() (coords.Policy, error) {
	p, err := coords.PolicyByName(viper.GetString("coords.policy"))
	if err != nil {
		return coords.Policy{}, &usageError{err: err}
	}
	if viper.IsSet("coords.padding") {
		p.Padding = viper.GetInt64("coords.padding")
	}
	if viper.IsSet("coords.margin") {
		p.Margin = viper.GetInt64("coords.margin")
	}
	if viper.IsSet("coords.merge_on_touch") {
		p.MergeOnTouch = viper.GetBool("coords.merge_on_touch")
	}
	if err := p.Validate(); err != nil {
		return coords.Policy{}, &usageError{err: err}
	}
	return p, nil
}

func newMappingCache() (*coords.MappingCache, error) {
	policy, err := policyFromConfig()
	if err != nil {
		return nil, err
	}
	mc := coords.NewMappingCache(policy)
	mc.SetLogger(logger)
	return mc, nil
}

// loadVariants reads the variants of a VCF that fall in [start, stop] on
// chrom. With passOnly, filtered variants are dropped.
func loadVariants(path, chrom string, start, stop int64, passOnly bool) ([]*vcf.Variant, error) {
	p, err := vcf.NewParser(path)
	if err != nil {
		return nil, err
	}
	defer p.Close()

	filtered := 0
	variants, err := vcf.ReadAll(p, func(v *vcf.Variant) bool {
		if !v.InRegion(chrom, start, stop) {
			return false
		}
		if passOnly && !v.IsPass() {
			filtered++
			return false
		}
		return true
	})
	if err != nil {
		return nil, fmt.Errorf("read variants from %s: %w", path, err)
	}
	logger.Debug("read variants", zap.String("path", path),
		zap.Int("in_view", len(variants)), zap.Int("filtered", filtered))
	return variants, nil
}

// loadBins reads the coverage bins over the intervals of is. Each arg is a
// file, or MINLEN:FILE for a level serving interval sets of at least MINLEN
// bases; the coarsest level fitting the summed interval length is used.
func loadBins(args []string, is *coords.IntervalSet) ([]coverage.Bin, error) {
	levels := make([]coverage.Level, 0, len(args))
	for _, arg := range args {
		var minLength int64
		path := arg
		if prefix, rest, ok := strings.Cut(arg, ":"); ok {
			if n, err := strconv.ParseInt(prefix, 10, 64); err == nil {
				minLength, path = n, rest
			}
		}
		f, err := coverage.ReadFile(path)
		if err != nil {
			return nil, err
		}
		levels = append(levels, coverage.Level{MinLength: minLength, File: f})
	}

	h := coverage.NewHandler(levels...)
	h.SetLogger(logger)
	bins, err := h.ForIntervalSet(is)
	if err != nil {
		return nil, &usageError{err: err}
	}
	logger.Debug("read coverage bins", zap.Int("levels", len(levels)), zap.Int("in_view", len(bins)))
	return bins, nil
}

func stripVersion(id string) string {
	if !strings.HasPrefix(id, "ENS") {
		return id
	}
	if i := strings.LastIndex(id, "."); i != -1 {
		return id[:i]
	}
	return id
}

func firstNonEmpty(ss ...string) string {
	for _, s := range ss {
		if s != "" {
			return s
		}
	}
	return ""
}
