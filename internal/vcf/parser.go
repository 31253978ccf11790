package vcf

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"github.com/klauspost/compress/gzip"
)

// maxLineSize bounds a VCF record; wide multi-sample lines can be long.
const maxLineSize = 64 * 1024 * 1024

// Parser reads variant records from a plain or gzipped VCF. Only the columns
// that place a variant on a track are kept: CHROM, POS, ID, REF, ALT and
// FILTER. QUAL, INFO and sample columns are skipped.
type Parser struct {
	scanner    *bufio.Scanner
	closers    []io.Closer
	lineNumber int
}

// NewParser opens path, or stdin for "-". Gzip input is detected by its
// magic bytes.
func NewParser(path string) (*Parser, error) {
	if path == "-" {
		return NewParserFromReader(os.Stdin)
	}

	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open vcf file: %w", err)
	}

	br := bufio.NewReader(file)
	magic, err := br.Peek(2)
	if err != nil && err != io.EOF {
		file.Close()
		return nil, fmt.Errorf("read vcf header: %w", err)
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

	p, err := NewParserFromReader(r)
	if err != nil {
		for _, c := range closers {
			c.Close()
		}
		return nil, err
	}
	p.closers = closers
	return p, nil
}

// NewParserFromReader creates a parser over r and skips the meta lines up to
// and including #CHROM.
func NewParserFromReader(r io.Reader) (*Parser, error) {
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), maxLineSize)
	p := &Parser{scanner: scanner}
	if err := p.skipHeader(); err != nil {
		return nil, err
	}
	return p, nil
}

func (p *Parser) skipHeader() error {
	for p.scanner.Scan() {
		p.lineNumber++
		line := p.scanner.Text()
		if strings.HasPrefix(line, "##") {
			continue
		}
		if strings.HasPrefix(line, "#CHROM") {
			return nil
		}
		return &ParseError{Line: p.lineNumber, Message: "expected #CHROM header line"}
	}
	if err := p.scanner.Err(); err != nil {
		return fmt.Errorf("read header: %w", err)
	}
	return &ParseError{Line: p.lineNumber, Message: "no #CHROM header line found"}
}

// Next reads the next variant. Returns nil, nil at end of input.
func (p *Parser) Next() (*Variant, error) {
	for p.scanner.Scan() {
		p.lineNumber++
		line := strings.TrimRight(p.scanner.Text(), "\r")
		if line == "" {
			continue
		}
		return p.parseLine(line)
	}
	if err := p.scanner.Err(); err != nil {
		return nil, fmt.Errorf("read variant line: %w", err)
	}
	return nil, nil
}

func (p *Parser) parseLine(line string) (*Variant, error) {
	// INFO and anything after it stay unsplit in the last field.
	fields := strings.SplitN(line, "\t", 8)
	if len(fields) < 8 {
		return nil, &ParseError{
			Line:    p.lineNumber,
			Message: fmt.Sprintf("expected at least 8 columns, found %d", len(fields)),
		}
	}

	pos, err := strconv.ParseInt(fields[1], 10, 64)
	if err != nil {
		return nil, &ParseError{Line: p.lineNumber, Message: fmt.Sprintf("invalid position: %s", fields[1])}
	}

	return &Variant{
		Chrom:  fields[0],
		Pos:    pos,
		ID:     fields[2],
		Ref:    fields[3],
		Alt:    fields[4],
		Filter: fields[6],
	}, nil
}

// SplitMultiAllelic returns one variant per ALT allele.
func SplitMultiAllelic(v *Variant) []*Variant {
	alts := strings.Split(v.Alt, ",")
	if len(alts) == 1 {
		return []*Variant{v}
	}

	out := make([]*Variant, len(alts))
	for i, alt := range alts {
		split := *v
		split.Alt = alt
		out[i] = &split
	}
	return out
}

// LineNumber returns the current line number being processed.
func (p *Parser) LineNumber() int {
	return p.lineNumber
}

// Close releases the underlying file, if any.
func (p *Parser) Close() error {
	var first error
	for _, c := range p.closers {
		if err := c.Close(); err != nil && first == nil {
			first = err
		}
	}
	return first
}

// ParseError represents an error during VCF parsing with line context.
type ParseError struct {
	Line    int
	Message string
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("vcf parse error at line %d: %s", e.Line, e.Message)
}
