// Package output provides tab-delimited writers for mappings and placed
// marks.
package output

import (
	"bufio"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/inodb/vibe-coords/internal/coords"
	"github.com/inodb/vibe-coords/internal/track"
)

// tabWriter holds the buffered writer and column list shared by the
// writers in this package.
type tabWriter struct {
	w       *bufio.Writer
	columns []string
}

func newTabWriter(w io.Writer, columns ...string) tabWriter {
	return tabWriter{w: bufio.NewWriter(w), columns: columns}
}

// WriteHeader writes the header line.
func (tw *tabWriter) WriteHeader() error {
	_, err := tw.w.WriteString("#" + strings.Join(tw.columns, "\t") + "\n")
	return err
}

func (tw *tabWriter) writeRow(values ...string) error {
	_, err := tw.w.WriteString(strings.Join(values, "\t") + "\n")
	return err
}

// Flush flushes any buffered data to the underlying writer.
func (tw *tabWriter) Flush() error {
	return tw.w.Flush()
}

func itoa(v int64) string {
	return strconv.FormatInt(v, 10)
}

func orDash(s string) string {
	if s == "" || s == "." {
		return "-"
	}
	return s
}

// SegmentWriter writes mapping segments, one per line.
type SegmentWriter struct {
	tabWriter
}

// NewSegmentWriter creates a new segment writer.
func NewSegmentWriter(w io.Writer) *SegmentWriter {
	return &SegmentWriter{newTabWriter(w,
		"index", "real_start", "real_end", "scaled_start", "scaled_end", "length")}
}

// WriteParams writes the mapping summary as a comment line.
func (sw *SegmentWriter) WriteParams(id string, mode coords.Mode, m *coords.Mapping) error {
	p := m.Params()
	_, err := fmt.Fprintf(sw.w, "## source=%s mode=%s policy=%s segments=%d size=%d merged=%d\n",
		id, mode, m.Policy(), p.NumSegments, p.Size, m.Merged())
	return err
}

// Write writes every segment of m.
func (sw *SegmentWriter) Write(m *coords.Mapping) error {
	for i, s := range m.Segments() {
		if err := sw.writeRow(
			strconv.Itoa(i),
			itoa(s.RealStart),
			itoa(s.RealEnd()),
			itoa(s.ScaledStart),
			itoa(s.ScaledEnd()),
			itoa(s.Length),
		); err != nil {
			return err
		}
	}
	return nil
}

// VariantWriter writes placed variants.
type VariantWriter struct {
	tabWriter
}

// NewVariantWriter creates a new placed-variant writer.
func NewVariantWriter(w io.Writer) *VariantWriter {
	return &VariantWriter{newTabWriter(w,
		"location", "id", "pos", "coding", "coding_noutr")}
}

// Write writes a single placed variant. Unmappable coordinates print as "-".
func (vw *VariantWriter) Write(p track.PlacedVariant) error {
	v := p.Variant
	return vw.writeRow(
		v.Location(),
		orDash(v.ID),
		itoa(v.Pos),
		p.Coding.String(),
		p.CodingNoUTR.String(),
	)
}

// BinWriter writes placed coverage bins.
type BinWriter struct {
	tabWriter
}

// NewBinWriter creates a new placed-bin writer.
func NewBinWriter(w io.Writer) *BinWriter {
	return &BinWriter{newTabWriter(w,
		"chrom", "start", "end", "mean", "median",
		"start_coding", "end_coding", "start_coding_noutr", "end_coding_noutr")}
}

// Write writes a single placed bin. Unmappable ranges print as "-".
func (bw *BinWriter) Write(p track.PlacedBin) error {
	b := p.Bin
	startCoding, endCoding := spanFields(p.Coding)
	startNoUTR, endNoUTR := spanFields(p.CodingNoUTR)
	return bw.writeRow(
		b.Chrom,
		itoa(b.Start),
		itoa(b.End),
		strconv.FormatFloat(b.Mean, 'f', -1, 64),
		strconv.FormatFloat(b.Median, 'f', -1, 64),
		startCoding, endCoding,
		startNoUTR, endNoUTR,
	)
}

func spanFields(s track.Span) (string, string) {
	if !s.Valid {
		return "-", "-"
	}
	return itoa(s.Start), itoa(s.End)
}
