// Package main provides the vibe-coords command-line tool.
package main

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"
)

// Exit codes
const (
	ExitSuccess = 0
	ExitError   = 1
	ExitUsage   = 2
)

// Version information (set at build time)
var (
	version = "dev"
	commit  = "none"
	date    = "unknown"
)

// logger is built in the root command's pre-run hook.
var logger = zap.NewNop()

// usageError marks errors caused by bad invocation rather than bad data.
type usageError struct {
	err error
}

func (e *usageError) Error() string { return e.err.Error() }
func (e *usageError) Unwrap() error { return e.err }

func usagef(format string, args ...any) error {
	return &usageError{err: fmt.Errorf(format, args...)}
}

func main() {
	os.Exit(run(os.Args[1:], os.Stdout, os.Stderr))
}

func run(args []string, stdout, stderr io.Writer) int {
	root := newRootCmd()
	root.SetArgs(args)
	root.SetOut(stdout)
	root.SetErr(stderr)

	err := root.Execute()
	_ = logger.Sync()
	if err == nil {
		return ExitSuccess
	}

	fmt.Fprintf(stderr, "Error: %v\n", err)
	var uerr *usageError
	if errors.As(err, &uerr) {
		return ExitUsage
	}
	return ExitError
}

func newRootCmd() *cobra.Command {
	var (
		cfgFile string
		verbose bool
	)

	root := &cobra.Command{
		Use:   "vibe-coords",
		Short: "Exon-aware coordinate mapping for genomic variant views",
		Long: `vibe-coords maps genomic positions onto a compressed plot coordinate space
in which introns are elided, exons are padded, and gaps between exons are
capped. Variants and coverage bins are placed in both the coding-only and the
coding+UTR mode.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if err := initConfig(cfgFile); err != nil {
				return err
			}
			l, err := newLogger(verbose)
			if err != nil {
				return fmt.Errorf("create logger: %w", err)
			}
			logger = l
			return nil
		},
	}

	root.SetFlagErrorFunc(func(cmd *cobra.Command, err error) error {
		return &usageError{err: err}
	})

	pf := root.PersistentFlags()
	pf.StringVar(&cfgFile, "config", "", "Config file (default: ~/.vibe-coords.yaml)")
	pf.BoolVarP(&verbose, "verbose", "v", false, "Verbose (debug) logging")
	pf.String("gtf", "", "GENCODE GTF annotation file (default: downloaded GENCODE for --assembly)")
	pf.String("db", "", "DuckDB feature store written by 'import' (used instead of --gtf)")
	pf.String("assembly", "GRCh38", "Genome assembly: GRCh37 or GRCh38")
	pf.String("policy", "default", "Padding policy: default or padding-only")
	viper.BindPFlag("gtf", pf.Lookup("gtf"))
	viper.BindPFlag("db", pf.Lookup("db"))
	viper.BindPFlag("assembly", pf.Lookup("assembly"))
	viper.BindPFlag("coords.policy", pf.Lookup("policy"))

	root.AddCommand(newMapCmd())
	root.AddCommand(newRegionCmd())
	root.AddCommand(newImportCmd())
	root.AddCommand(newRenderCmd())
	root.AddCommand(newDownloadCmd())
	root.AddCommand(newConfigCmd())
	root.AddCommand(newVersionCmd())

	return root
}

// initConfig reads the config file and environment. A missing default
// config file is not an error.
func initConfig(cfgFile string) error {
	viper.SetDefault("coords.policy", "default")
	viper.SetDefault("region.padding", 20)
	viper.SetDefault("region.spacing", 10)
	viper.SetDefault("render.width", 1000)
	viper.SetDefault("render.height", 300)

	viper.SetEnvPrefix("VIBE_COORDS")
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	viper.AutomaticEnv()

	if cfgFile != "" {
		viper.SetConfigFile(cfgFile)
		if err := viper.ReadInConfig(); err != nil {
			return fmt.Errorf("read config %s: %w", cfgFile, err)
		}
		return nil
	}

	home, err := os.UserHomeDir()
	if err != nil {
		return nil
	}
	viper.SetConfigFile(filepath.Join(home, ".vibe-coords.yaml"))
	if err := viper.ReadInConfig(); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("read config: %w", err)
	}
	return nil
}

func newLogger(verbose bool) (*zap.Logger, error) {
	if verbose {
		return zap.NewDevelopment()
	}
	cfg := zap.NewProductionConfig()
	cfg.Encoding = "console"
	cfg.DisableStacktrace = true
	return cfg.Build()
}

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Show version information",
		Args:  cobra.NoArgs,
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Fprintf(cmd.OutOrStdout(), "vibe-coords version %s (%s) built %s\n", version, commit, date)
		},
	}
}
