package main

import (
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"

	"github.com/inodb/vibe-coords/internal/cache"
)

// GENCODE FTP release
const (
	gencodeBaseURL = "https://ftp.ebi.ac.uk/pub/databases/gencode/Gencode_human/release_46"
	gencodeVersion = "v46"
)

// getGENCODEURL returns the GTF URL for the given assembly. Unknown
// assemblies fall back to GRCh38.
func getGENCODEURL(assembly string) string {
	if strings.EqualFold(assembly, "GRCh37") {
		return fmt.Sprintf("%s/GRCh37_mapping/gencode.%slift37.annotation.gtf.gz", gencodeBaseURL, gencodeVersion)
	}
	return fmt.Sprintf("%s/gencode.%s.annotation.gtf.gz", gencodeBaseURL, gencodeVersion)
}

func newDownloadCmd() *cobra.Command {
	var outputDir string

	cmd := &cobra.Command{
		Use:   "download",
		Short: "Download GENCODE annotations",
		Long: `Download the GENCODE GTF for --assembly and the Genome Nexus canonical
transcript overrides. Mapping commands use them automatically when --gtf and
--db are not given.`,
		Example: `  vibe-coords download
  vibe-coords download --assembly GRCh37
  vibe-coords download --output /data/gencode`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			assembly := viper.GetString("assembly")
			if outputDir == "" {
				home, err := os.UserHomeDir()
				if err != nil {
					return fmt.Errorf("cannot determine home directory: %w", err)
				}
				outputDir = filepath.Join(home, ".vibe-coords")
			}
			destDir := filepath.Join(outputDir, strings.ToLower(assembly))
			if err := os.MkdirAll(destDir, 0755); err != nil {
				return fmt.Errorf("cannot create directory %s: %w", destDir, err)
			}

			out := cmd.OutOrStdout()
			gtfURL := getGENCODEURL(assembly)
			fmt.Fprintf(out, "Downloading GENCODE %s annotations for %s...\n", gencodeVersion, assembly)
			fmt.Fprintf(out, "Destination: %s\n\n", destDir)

			dest := filepath.Join(destDir, filepath.Base(gtfURL))
			if err := downloadFile(out, gtfURL, dest); err != nil {
				return fmt.Errorf("download GTF: %w", err)
			}
			logger.Info("downloaded GENCODE GTF", zap.String("url", gtfURL), zap.String("path", dest))

			canonicalURL := cache.CanonicalFileURL(assembly)
			canonicalFile := filepath.Join(destDir, cache.CanonicalFileName())
			if err := downloadFile(out, canonicalURL, canonicalFile); err != nil {
				// --canonical falls back to the GTF tags without overrides.
				logger.Warn("could not download canonical transcript overrides", zap.Error(err))
			}

			fmt.Fprintf(out, "\nDownload complete!\n")
			fmt.Fprintf(out, "To map a gene, run:\n")
			fmt.Fprintf(out, "  vibe-coords map --gene KRAS\n")
			return nil
		},
	}

	cmd.Flags().StringVar(&outputDir, "output", "", "Output directory (default: ~/.vibe-coords/)")

	return cmd
}

// downloadFile downloads url to destPath, reporting progress on out.
// An existing destination is kept.
func downloadFile(out io.Writer, url, destPath string) error {
	if info, err := os.Stat(destPath); err == nil {
		fmt.Fprintf(out, "  %s already exists (%s), skipping\n", filepath.Base(destPath), formatSize(info.Size()))
		return nil
	}

	fmt.Fprintf(out, "  Downloading %s...\n", filepath.Base(destPath))

	client := &http.Client{
		Timeout: 30 * time.Minute,
	}
	resp, err := client.Get(url)
	if err != nil {
		return fmt.Errorf("HTTP request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("HTTP error: %s", resp.Status)
	}

	tmpPath := destPath + ".tmp"
	f, err := os.Create(tmpPath)
	if err != nil {
		return fmt.Errorf("create file: %w", err)
	}

	pw := &progressWriter{
		out:       out,
		total:     resp.ContentLength,
		lastPrint: time.Now(),
	}
	_, err = io.Copy(f, io.TeeReader(resp.Body, pw))
	f.Close()
	if err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("download failed: %w", err)
	}

	if err := os.Rename(tmpPath, destPath); err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("rename file: %w", err)
	}

	fmt.Fprintf(out, "    Done: %s\n", formatSize(pw.downloaded))
	return nil
}

// progressWriter prints download progress at most once per second.
type progressWriter struct {
	out        io.Writer
	total      int64
	downloaded int64
	lastPrint  time.Time
}

func (pw *progressWriter) Write(p []byte) (int, error) {
	n := len(p)
	pw.downloaded += int64(n)

	if time.Since(pw.lastPrint) > time.Second {
		if pw.total > 0 {
			pct := float64(pw.downloaded) / float64(pw.total) * 100
			fmt.Fprintf(pw.out, "\r    Progress: %s / %s (%.1f%%)  ",
				formatSize(pw.downloaded), formatSize(pw.total), pct)
		} else {
			fmt.Fprintf(pw.out, "\r    Progress: %s  ", formatSize(pw.downloaded))
		}
		pw.lastPrint = time.Now()
	}
	return n, nil
}

// formatSize formats bytes as human-readable size.
func formatSize(bytes int64) string {
	const unit = 1024
	if bytes < unit {
		return fmt.Sprintf("%d B", bytes)
	}
	div, exp := int64(unit), 0
	for n := bytes / unit; n >= unit; n /= unit {
		div *= unit
		exp++
	}
	return fmt.Sprintf("%.1f %cB", float64(bytes)/float64(div), "KMGTPE"[exp])
}

// DefaultGENCODEPath returns the download directory for an assembly.
func DefaultGENCODEPath(assembly string) string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ""
	}
	return filepath.Join(home, ".vibe-coords", strings.ToLower(assembly))
}

// FindGENCODEFiles looks for a downloaded GENCODE GTF for the assembly.
func FindGENCODEFiles(assembly string) (string, bool) {
	dir := DefaultGENCODEPath(assembly)
	if dir == "" {
		return "", false
	}

	pattern := "gencode.v*.annotation.gtf.gz"
	if strings.EqualFold(assembly, "GRCh37") {
		pattern = "gencode.v*lift37.annotation.gtf.gz"
	}
	matches, err := filepath.Glob(filepath.Join(dir, pattern))
	if err != nil || len(matches) == 0 {
		return "", false
	}
	return matches[0], true
}

// findCanonicalFile looks for downloaded canonical transcript overrides.
func findCanonicalFile(assembly string) (string, bool) {
	dir := DefaultGENCODEPath(assembly)
	if dir == "" {
		return "", false
	}
	path := filepath.Join(dir, cache.CanonicalFileName())
	if _, err := os.Stat(path); err != nil {
		return "", false
	}
	return path, true
}
