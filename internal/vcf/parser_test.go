package vcf

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/klauspost/compress/gzip"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testVCF = `##fileformat=VCFv4.2
##INFO=<ID=DP,Number=1,Type=Integer,Description="Total Depth">
#CHROM	POS	ID	REF	ALT	QUAL	FILTER	INFO	FORMAT	TUMOR	NORMAL
12	25245351	rs121913530	C	A	99.5	PASS	DP=120;SOMATIC	GT:AD	0/1:60,60	0/0:120,0
12	25245347	.	C	T,G	.	LowQual	.	GT	1/2	0/0

1	150	.	A	G	50	PASS	DP=7	GT	0/1	0/0
1	320	.	CTG	C	50	PASS	DP=9	GT	0/1	0/0
1	2500	.	A	T	50	PASS	DP=3	GT	0/1	0/0`

func writeFile(t *testing.T, name string, data []byte) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, data, 0644))
	return path
}

func TestParser_FirstVariant(t *testing.T) {
	p, err := NewParserFromReader(strings.NewReader(testVCF))
	require.NoError(t, err)

	v, err := p.Next()
	require.NoError(t, err)
	require.NotNil(t, v)

	assert.Equal(t, &Variant{
		Chrom:  "12",
		Pos:    25245351,
		ID:     "rs121913530",
		Ref:    "C",
		Alt:    "A",
		Filter: "PASS",
	}, v)
	assert.Equal(t, 4, p.LineNumber())
}

func TestParser_IgnoresQualAndInfo(t *testing.T) {
	input := "#CHROM\tPOS\tID\tREF\tALT\tQUAL\tFILTER\tINFO\n" +
		"1\t100\t.\tA\tG\tnot_a_number\tq10;s50\tDP=x;;=\tGT\t0/1\r\n"
	p, err := NewParserFromReader(strings.NewReader(input))
	require.NoError(t, err)

	v, err := p.Next()
	require.NoError(t, err)
	require.NotNil(t, v)
	assert.Equal(t, "1-100-A-G", v.Location())
	assert.Equal(t, "q10;s50", v.Filter)
	assert.False(t, v.IsPass())
}

func TestParser_AllVariants(t *testing.T) {
	p, err := NewParserFromReader(strings.NewReader(testVCF))
	require.NoError(t, err)

	count := 0
	for {
		v, err := p.Next()
		require.NoError(t, err)
		if v == nil {
			break
		}
		count++
	}
	// Blank line skipped, final line read without trailing newline.
	assert.Equal(t, 5, count)
}

func TestParser_HeaderErrors(t *testing.T) {
	tests := []struct {
		name  string
		input string
	}{
		{"data before header", "##fileformat=VCFv4.2\n1\t100\t.\tA\tG\t.\t.\t.\n"},
		{"no chrom line", "##fileformat=VCFv4.2\n"},
		{"empty", ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := NewParserFromReader(strings.NewReader(tt.input))
			var perr *ParseError
			assert.ErrorAs(t, err, &perr)
		})
	}
}

func TestParser_BadLines(t *testing.T) {
	tests := []struct {
		name string
		line string
		msg  string
	}{
		{"too few columns", "1\t100\t.\tA\tG", "expected at least 8 columns, found 5"},
		{"bad position", "1\tabc\t.\tA\tG\t.\t.\t.", "invalid position: abc"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			input := "#CHROM\tPOS\tID\tREF\tALT\tQUAL\tFILTER\tINFO\n" + tt.line + "\n"
			p, err := NewParserFromReader(strings.NewReader(input))
			require.NoError(t, err)

			_, err = p.Next()
			var perr *ParseError
			require.ErrorAs(t, err, &perr)
			assert.Equal(t, 2, perr.Line)
			assert.Equal(t, tt.msg, perr.Message)
		})
	}
}

func TestParser_File(t *testing.T) {
	plain := writeFile(t, "test.vcf", []byte(testVCF+"\n"))

	var buf bytes.Buffer
	gz := gzip.NewWriter(&buf)
	_, err := gz.Write([]byte(testVCF))
	require.NoError(t, err)
	require.NoError(t, gz.Close())
	// Detection uses magic bytes, not the extension.
	compressed := writeFile(t, "test.vcf.bgz", buf.Bytes())

	for _, path := range []string{plain, compressed} {
		p, err := NewParser(path)
		require.NoError(t, err, path)

		variants, err := ReadAll(p, nil)
		require.NoError(t, err)
		require.NoError(t, p.Close())
		assert.Len(t, variants, 6, path)
	}
}

func TestParser_MissingFile(t *testing.T) {
	_, err := NewParser(filepath.Join(t.TempDir(), "missing.vcf"))
	assert.Error(t, err)
}

func TestReadAll_Filter(t *testing.T) {
	p, err := NewParserFromReader(strings.NewReader(testVCF))
	require.NoError(t, err)

	variants, err := ReadAll(p, func(v *Variant) bool {
		return v.InRegion("1", 100, 600)
	})
	require.NoError(t, err)
	require.Len(t, variants, 2)
	assert.Equal(t, "1-150-A-G", variants[0].Location())
	assert.Equal(t, "1-320-CTG-C", variants[1].Location())
}

func TestReadAll_PassOnly(t *testing.T) {
	p, err := NewParserFromReader(strings.NewReader(testVCF))
	require.NoError(t, err)

	variants, err := ReadAll(p, (*Variant).IsPass)
	require.NoError(t, err)
	require.Len(t, variants, 4, "both alleles of the LowQual record are dropped")
	for _, v := range variants {
		assert.Equal(t, "PASS", v.Filter)
	}
}

func TestSplitMultiAllelic(t *testing.T) {
	tests := []struct {
		name     string
		alt      string
		expected []string
	}{
		{"single allele", "C", []string{"C"}},
		{"two alleles", "C,T", []string{"C", "T"}},
		{"three alleles", "C,T,G", []string{"C", "T", "G"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			v := &Variant{
				Chrom:  "12",
				Pos:    100,
				Ref:    "A",
				Alt:    tt.alt,
				Filter: "LowQual",
			}

			variants := SplitMultiAllelic(v)
			require.Len(t, variants, len(tt.expected))
			for i, split := range variants {
				assert.Equal(t, tt.expected[i], split.Alt)
				assert.Equal(t, int64(100), split.Pos)
				assert.Equal(t, "LowQual", split.Filter)
			}
			assert.Equal(t, tt.alt, v.Alt, "input is not modified")
		})
	}
}

func TestParseError(t *testing.T) {
	err := &ParseError{
		Line:    42,
		Message: "expected 8 columns, found 7",
	}
	assert.EqualError(t, err, "vcf parse error at line 42: expected 8 columns, found 7")
}
