package coverage

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"github.com/klauspost/compress/gzip"
)

// Reader reads coverage bins from tab-delimited text:
//
//	#chrom	start	end	mean	median	over_1	over_10	...
//
// The header is optional; without one only the five fixed columns are read.
type Reader struct {
	scanner    *bufio.Scanner
	closers    []io.Closer
	lineNumber int
	thresholds []int // over_N thresholds by column, 0 for unknown columns
	pending    string
}

// Open creates a reader for a plain or gzipped coverage file.
func Open(path string) (*Reader, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open coverage file: %w", err)
	}

	br := bufio.NewReader(file)
	magic, err := br.Peek(2)
	if err != nil && err != io.EOF {
		file.Close()
		return nil, fmt.Errorf("read coverage file: %w", err)
	}

	var r io.Reader = br
	closers := []io.Closer{file}
	if len(magic) == 2 && magic[0] == 0x1f && magic[1] == 0x8b {
		gz, err := gzip.NewReader(br)
		if err != nil {
			file.Close()
			return nil, fmt.Errorf("create gzip reader: %w", err)
		}
		r = gz
		closers = append([]io.Closer{gz}, closers...)
	}

	cr, err := NewReader(r)
	if err != nil {
		for _, c := range closers {
			c.Close()
		}
		return nil, err
	}
	cr.closers = closers
	return cr, nil
}

// NewReader creates a reader over r and consumes the header if present.
func NewReader(r io.Reader) (*Reader, error) {
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	cr := &Reader{scanner: scanner}
	if err := cr.readHeader(); err != nil {
		return nil, err
	}
	return cr, nil
}

func (r *Reader) readHeader() error {
	for r.scanner.Scan() {
		r.lineNumber++
		line := strings.TrimRight(r.scanner.Text(), "\r")
		if line == "" || strings.HasPrefix(line, "##") {
			continue
		}
		if !strings.HasPrefix(line, "#") && !strings.HasPrefix(line, "chrom") {
			r.pending = line
			return nil
		}

		fields := strings.Split(strings.TrimPrefix(line, "#"), "\t")
		if len(fields) < 5 {
			return &ParseError{
				Line:    r.lineNumber,
				Message: fmt.Sprintf("expected at least 5 header columns, found %d", len(fields)),
			}
		}
		r.thresholds = make([]int, len(fields))
		for i, name := range fields[5:] {
			n, ok := strings.CutPrefix(name, "over_")
			if !ok {
				continue
			}
			t, err := strconv.Atoi(n)
			if err != nil {
				return &ParseError{Line: r.lineNumber, Message: fmt.Sprintf("invalid threshold column: %s", name)}
			}
			r.thresholds[i+5] = t
		}
		return nil
	}
	return r.scanner.Err()
}

// Next reads the next bin. Returns nil, nil at end of input.
func (r *Reader) Next() (*Bin, error) {
	if r.pending != "" {
		line := r.pending
		r.pending = ""
		return r.parseLine(line)
	}

	for r.scanner.Scan() {
		r.lineNumber++
		line := strings.TrimRight(r.scanner.Text(), "\r")
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		return r.parseLine(line)
	}
	if err := r.scanner.Err(); err != nil {
		return nil, fmt.Errorf("read coverage line: %w", err)
	}
	return nil, nil
}

func (r *Reader) parseLine(line string) (*Bin, error) {
	fields := strings.Split(line, "\t")
	if len(fields) < 5 {
		return nil, &ParseError{
			Line:    r.lineNumber,
			Message: fmt.Sprintf("expected at least 5 columns, found %d", len(fields)),
		}
	}

	start, err := strconv.ParseInt(fields[1], 10, 64)
	if err != nil {
		return nil, &ParseError{Line: r.lineNumber, Message: fmt.Sprintf("invalid start: %s", fields[1])}
	}
	end, err := strconv.ParseInt(fields[2], 10, 64)
	if err != nil {
		return nil, &ParseError{Line: r.lineNumber, Message: fmt.Sprintf("invalid end: %s", fields[2])}
	}
	if end < start {
		return nil, &ParseError{Line: r.lineNumber, Message: fmt.Sprintf("end %d before start %d", end, start)}
	}

	b := &Bin{Chrom: fields[0], Start: start, End: end}
	if b.Mean, err = parseValue(fields[3]); err != nil {
		return nil, &ParseError{Line: r.lineNumber, Message: fmt.Sprintf("invalid mean: %s", fields[3])}
	}
	if b.Median, err = parseValue(fields[4]); err != nil {
		return nil, &ParseError{Line: r.lineNumber, Message: fmt.Sprintf("invalid median: %s", fields[4])}
	}

	for i := 5; i < len(fields) && i < len(r.thresholds); i++ {
		if r.thresholds[i] == 0 {
			continue
		}
		v, err := parseValue(fields[i])
		if err != nil {
			return nil, &ParseError{Line: r.lineNumber, Message: fmt.Sprintf("invalid over_%d: %s", r.thresholds[i], fields[i])}
		}
		if b.Over == nil {
			b.Over = make(map[int]float64)
		}
		b.Over[r.thresholds[i]] = v
	}
	return b, nil
}

// parseValue reads a depth value; "." means no data.
func parseValue(s string) (float64, error) {
	if s == "." || s == "" {
		return 0, nil
	}
	return strconv.ParseFloat(s, 64)
}

// LineNumber returns the current line number being processed.
func (r *Reader) LineNumber() int {
	return r.lineNumber
}

// Close releases the underlying file, if any.
func (r *Reader) Close() error {
	var first error
	for _, c := range r.closers {
		if err := c.Close(); err != nil && first == nil {
			first = err
		}
	}
	return first
}

// ReadFile loads every bin of a coverage file.
func ReadFile(path string) (*File, error) {
	r, err := Open(path)
	if err != nil {
		return nil, err
	}
	defer r.Close()

	var bins []Bin
	for {
		b, err := r.Next()
		if err != nil {
			return nil, err
		}
		if b == nil {
			break
		}
		bins = append(bins, *b)
	}
	return NewFile(path, bins)
}

// ParseError represents an error during coverage parsing with line context.
type ParseError struct {
	Line    int
	Message string
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("coverage parse error at line %d: %s", e.Line, e.Message)
}
