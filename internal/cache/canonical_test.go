package cache

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const canonicalTSV = "hgnc_symbol\tensembl_canonical_gene\tensembl_canonical_transcript\tgenome_nexus_canonical_gene\tgenome_nexus_canonical_transcript\n" +
	"TEST1\tENSG00000000001\tENST00000000001.2\tENSG00000000001\tENST00000000002.1\n" +
	"KRAS\tENSG00000133703\tENST00000256078\tENSG00000133703\tENST00000311936.8\n" +
	"EMPTY\tENSG00000000009\tENST00000000009\tENSG00000000009\tnan\n" +
	"SHORT\tENSG00000000008\n"

func TestParseCanonicalOverrides(t *testing.T) {
	overrides, err := ParseCanonicalOverrides(strings.NewReader(canonicalTSV))
	require.NoError(t, err)

	assert.Len(t, overrides, 2)
	assert.Equal(t, "ENST00000000002", overrides["TEST1"])
	assert.Equal(t, "ENST00000311936", overrides["KRAS"])
	assert.NotContains(t, overrides, "EMPTY", "nan values should be skipped")
}

func TestParseCanonicalOverrides_HeaderColumn(t *testing.T) {
	input := "hgnc_symbol\tgenome_nexus_canonical_transcript\nKRAS\tENST00000311936\n"
	overrides, err := ParseCanonicalOverrides(strings.NewReader(input))
	require.NoError(t, err)
	assert.Equal(t, CanonicalOverrides{"KRAS": "ENST00000311936"}, overrides)

	overrides, err = ParseCanonicalOverrides(strings.NewReader(""))
	require.NoError(t, err)
	assert.Empty(t, overrides)
}

func TestLoadCanonicalOverrides(t *testing.T) {
	path := filepath.Join(t.TempDir(), CanonicalFileName())
	require.NoError(t, os.WriteFile(path, []byte(canonicalTSV), 0644))

	overrides, err := LoadCanonicalOverrides(path)
	require.NoError(t, err)
	assert.Len(t, overrides, 2)

	_, err = LoadCanonicalOverrides(filepath.Join(t.TempDir(), "missing.txt"))
	assert.Error(t, err)
}

func TestApplyCanonicalOverrides(t *testing.T) {
	c := loadTestGTF(t)
	require.Equal(t, "ENST00000000001", c.GetGene("TEST1").CanonicalTranscript().ID)

	applied := c.ApplyCanonicalOverrides(CanonicalOverrides{
		"TEST1":   "ENST00000000002",
		"KRAS":    "ENST99999999999", // unknown transcript
		"MISSING": "ENST00000000003",
	})
	assert.Equal(t, 1, applied)

	g := c.GetGene("TEST1")
	assert.Equal(t, "ENST00000000002", g.CanonicalTranscript().ID)
	assert.False(t, c.GetTranscript("ENST00000000001").IsCanonical)

	// KRAS is untouched: its MANE Select transcript still wins.
	assert.Equal(t, "ENST00000311936", c.GetGene("KRAS").CanonicalTranscript().ID)
}

func TestCanonicalFileURL(t *testing.T) {
	assert.Contains(t, CanonicalFileURL("GRCh38"), "grch38_ensembl95")
	assert.Contains(t, CanonicalFileURL("grch37"), "grch37_ensembl92")
}
