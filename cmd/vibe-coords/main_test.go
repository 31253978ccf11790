package main

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/inodb/vibe-coords/internal/coords"
)

// Two coding exons with UTR on both ends:
//
//	exon 900-1100 (CDS 1000-1100), exon 1200-1400 (CDS 1200-1300)
const testGTF = `##description: cmd test GTF
chr1	HAVANA	gene	900	1400	.	+	.	gene_id "ENSG00000000010.1"; gene_type "protein_coding"; gene_name "ABC1";
chr1	HAVANA	transcript	900	1400	.	+	.	gene_id "ENSG00000000010.1"; transcript_id "ENST00000000010.4"; gene_name "ABC1"; transcript_type "protein_coding"; tag "Ensembl_canonical";
chr1	HAVANA	exon	900	1100	.	+	.	gene_id "ENSG00000000010.1"; transcript_id "ENST00000000010.4"; exon_number "1";
chr1	HAVANA	exon	1200	1400	.	+	.	gene_id "ENSG00000000010.1"; transcript_id "ENST00000000010.4"; exon_number "2";
chr1	HAVANA	CDS	1000	1100	.	+	0	gene_id "ENSG00000000010.1"; transcript_id "ENST00000000010.4"; exon_number "1";
chr1	HAVANA	CDS	1200	1300	.	+	2	gene_id "ENSG00000000010.1"; transcript_id "ENST00000000010.4"; exon_number "2";
`

const testVCF = `##fileformat=VCFv4.2
#CHROM	POS	ID	REF	ALT	QUAL	FILTER	INFO
1	950	.	A	G	50	PASS	.
1	1050	.	C	T	50	PASS	.
1	1060	rs9	G	C	3	LowQual	.
1	5000	.	G	A	50	PASS	.
`

const testBins = `#chrom	start	end	mean	median
chr1	1040	1060	30.5	30
chr1	1150	1160	2	2
`

// setup isolates HOME and viper state and writes the fixtures.
func setup(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	t.Setenv("HOME", dir)
	t.Setenv("XDG_CACHE_HOME", filepath.Join(dir, ".cache"))
	viper.Reset()
	t.Cleanup(viper.Reset)

	for name, data := range map[string]string{
		"test.gtf":     testGTF,
		"test.vcf":     testVCF,
		"coverage.tsv": testBins,
	} {
		require.NoError(t, os.WriteFile(filepath.Join(dir, name), []byte(data), 0644))
	}
	return dir
}

func runCmd(t *testing.T, args ...string) (int, string, string) {
	t.Helper()
	viper.Reset()
	var stdout, stderr bytes.Buffer
	code := run(args, &stdout, &stderr)
	return code, stdout.String(), stderr.String()
}

func TestRun_Version(t *testing.T) {
	setup(t)
	code, out, _ := runCmd(t, "version")
	assert.Equal(t, ExitSuccess, code)
	assert.Contains(t, out, "vibe-coords version dev")
}

func TestRun_MapTranscript(t *testing.T) {
	dir := setup(t)
	gtf := filepath.Join(dir, "test.gtf")

	code, out, stderr := runCmd(t, "map", "--gtf", gtf, "--transcript", "ENST00000000010", "--at", "1050", "--at", "1150")
	require.Equal(t, ExitSuccess, code, stderr)

	assert.Contains(t, out, "## source=ENST00000000010 mode=cds")
	assert.Contains(t, out, "segments=2 size=466 merged=0")
	assert.Contains(t, out, "#index\treal_start\treal_end\tscaled_start\tscaled_end\tlength\n")
	assert.Contains(t, out, "0\t985\t1115\t60\t190\t130\n")
	assert.Contains(t, out, "1\t1185\t1315\t261\t391\t130\n")
	assert.Contains(t, out, "#pos\tscaled\tinverse\tfeatures\n")
	assert.Contains(t, out, "1050\t125\t1050\tCDS:1000-1100\n")
	assert.Contains(t, out, "1150\t-\t-\t-\n")
}

func TestRun_MapUTRMode(t *testing.T) {
	dir := setup(t)
	gtf := filepath.Join(dir, "test.gtf")

	code, out, stderr := runCmd(t, "map", "--gtf", gtf, "--gene", "ABC1", "--mode", "utr", "--at", "950")
	require.Equal(t, ExitSuccess, code, stderr)
	assert.Contains(t, out, "0\t885\t1115\t60\t290\t230\n")
	assert.Contains(t, out, "1\t1185\t1415\t361\t591\t230\n")
	assert.Contains(t, out, "950\t125\t950\tUTR:900-999\n")
}

func TestRun_MapRegionFeatures(t *testing.T) {
	dir := setup(t)
	gtf := filepath.Join(dir, "test.gtf")

	// Region views collect the features of overlapping transcripts.
	code, out, stderr := runCmd(t, "map", "1:1000-1050", "--gtf", gtf, "--at", "1020", "--at", "1300")
	require.Equal(t, ExitSuccess, code, stderr)
	assert.Contains(t, out, "## source=1:1000-1050 mode=cds")
	assert.Contains(t, out, "1020\t95\t1020\tCDS:1000-1100\n")
	assert.Contains(t, out, "1300\t-\t-\t-\n")
}

func TestRun_MapMarks(t *testing.T) {
	dir := setup(t)

	code, out, stderr := runCmd(t, "map",
		"--gtf", filepath.Join(dir, "test.gtf"),
		"--transcript", "ENST00000000010",
		"--variants", filepath.Join(dir, "test.vcf"),
		"--bins", filepath.Join(dir, "coverage.tsv"))
	require.Equal(t, ExitSuccess, code, stderr)

	assert.Contains(t, out, "#location\tid\tpos\tcoding\tcoding_noutr\n")
	assert.Contains(t, out, "1-950-A-G\t-\t950\t125\t-\n")
	assert.Contains(t, out, "1-1050-C-T\t-\t1050\t225\t125\n")
	assert.NotContains(t, out, "1-5000-G-A", "variant outside the view is not read")
	assert.Contains(t, out, "1-1060-G-C\trs9\t1060\t235\t135\n")

	assert.Contains(t, out, "1\t1040\t1060\t30.5\t30\t215\t235\t115\t135\n")
	assert.NotContains(t, out, "1\t1150\t1160\t", "coverage is read over the padded exons only")

	// A region view reads coverage over the whole region, introns included.
	code, out, stderr = runCmd(t, "map", "1:1000-1200",
		"--gtf", filepath.Join(dir, "test.gtf"),
		"--bins", filepath.Join(dir, "coverage.tsv"))
	require.Equal(t, ExitSuccess, code, stderr)
	assert.Contains(t, out, "1\t1040\t1060\t30.5\t30\t")
	assert.Contains(t, out, "1\t1150\t1160\t2\t2\t-\t-\t-\t-\n")
}

func TestRun_MapPassOnly(t *testing.T) {
	dir := setup(t)

	code, out, stderr := runCmd(t, "map",
		"--gtf", filepath.Join(dir, "test.gtf"),
		"--transcript", "ENST00000000010",
		"--variants", filepath.Join(dir, "test.vcf"),
		"--pass-only")
	require.Equal(t, ExitSuccess, code, stderr)
	assert.Contains(t, out, "1-950-A-G\t")
	assert.Contains(t, out, "1-1050-C-T\t")
	assert.NotContains(t, out, "1-1060-G-C", "LowQual variant is dropped")
}

func TestRun_ImportAndMapFromStore(t *testing.T) {
	dir := setup(t)
	gtf := filepath.Join(dir, "test.gtf")
	db := filepath.Join(dir, "features.duckdb")

	code, out, stderr := runCmd(t, "import", "--gtf", gtf, "--db", db)
	require.Equal(t, ExitSuccess, code, stderr)
	assert.Contains(t, out, "Imported 1 transcripts (4 features)")

	code, fromGTF, stderr := runCmd(t, "map", "--gtf", gtf, "--gene", "ABC1")
	require.Equal(t, ExitSuccess, code, stderr)
	code, fromDB, stderr := runCmd(t, "map", "--db", db, "--gene", "abc1")
	require.Equal(t, ExitSuccess, code, stderr)

	assert.Equal(t, segmentRows(fromGTF), segmentRows(fromDB))
	assert.NotEmpty(t, segmentRows(fromDB))

	code, _, stderr = runCmd(t, "map", "--db", db, "--gene", "NOPE")
	assert.Equal(t, ExitError, code)
	assert.Contains(t, stderr, "NOPE not found")
}

// segmentRows drops comment lines from map output.
func segmentRows(out string) []string {
	var rows []string
	for _, line := range strings.Split(out, "\n") {
		if line != "" && !strings.HasPrefix(line, "#") {
			rows = append(rows, line)
		}
	}
	return rows
}

func TestRun_Region(t *testing.T) {
	setup(t)

	code, out, stderr := runCmd(t, "region", "1:1000-1100", "--at", "1050", "--at", "2000", "--px", "500")
	require.Equal(t, ExitSuccess, code, stderr)
	assert.Contains(t, out, "## intervals=1:1000-1100 length=100")
	assert.Contains(t, out, "1000\t1100\t0.00\t1000.00\n")
	assert.Contains(t, out, "forward\t1050\t500.00\n")
	assert.Contains(t, out, "forward\t2000\t-\n")
	assert.Contains(t, out, "invert\t1050\t500.00\n")
}

func TestRun_RegionSingleBase(t *testing.T) {
	setup(t)

	code, out, stderr := runCmd(t, "region", "1:100", "--at", "100", "--at", "101", "--px", "500")
	require.Equal(t, ExitSuccess, code, stderr)
	assert.Contains(t, out, "## intervals=1:100-100 length=0")
	assert.Contains(t, out, "100\t100\t0.00\t1000.00\n")
	assert.Contains(t, out, "forward\t100\t0.00\n")
	assert.Contains(t, out, "forward\t101\t-\n")
	assert.Contains(t, out, "invert\t100\t500.00\n")
	assert.Contains(t, out, "0\t85\t115\t60\t90\t30\n")
}

func TestRun_RegionFromGene(t *testing.T) {
	dir := setup(t)

	code, out, stderr := runCmd(t, "region", "--gtf", filepath.Join(dir, "test.gtf"), "--gene", "ABC1")
	require.Equal(t, ExitSuccess, code, stderr)
	assert.Contains(t, out, "## intervals=1:880-1120,1180-1420 length=480")
}

func TestRun_Render(t *testing.T) {
	dir := setup(t)
	svg := filepath.Join(dir, "track.svg")

	code, _, stderr := runCmd(t, "render",
		"--gtf", filepath.Join(dir, "test.gtf"),
		"--transcript", "ENST00000000010",
		"--variants", filepath.Join(dir, "test.vcf"),
		"--bins", filepath.Join(dir, "coverage.tsv"),
		"--width", "400", "--height", "200",
		"-o", svg)
	require.Equal(t, ExitSuccess, code, stderr)

	data, err := os.ReadFile(svg)
	require.NoError(t, err)
	assert.Contains(t, string(data), "<svg")
}

func TestRun_UsageErrors(t *testing.T) {
	dir := setup(t)
	gtf := filepath.Join(dir, "test.gtf")

	tests := []struct {
		name string
		args []string
	}{
		{"no source", []string{"map", "--gtf", gtf}},
		{"two sources", []string{"map", "--gtf", gtf, "--gene", "ABC1", "--transcript", "ENST00000000010"}},
		{"bad mode", []string{"map", "--gtf", gtf, "--gene", "ABC1", "--mode", "exons"}},
		{"bad policy", []string{"map", "--gtf", gtf, "--gene", "ABC1", "--policy", "wide"}},
		{"unknown flag", []string{"map", "--nope"}},
		{"bad region", []string{"region", "1:abc"}},
		{"render without output", []string{"render", "--gtf", gtf, "--gene", "ABC1"}},
		{"import without db", []string{"import", "--gtf", gtf}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			code, _, stderr := runCmd(t, tt.args...)
			assert.Equal(t, ExitUsage, code)
			assert.True(t, strings.HasPrefix(stderr, "Error: "), stderr)
		})
	}
}

func TestRun_MissingGTF(t *testing.T) {
	dir := setup(t)
	code, _, stderr := runCmd(t, "map", "--gtf", filepath.Join(dir, "missing.gtf"), "--gene", "ABC1")
	assert.Equal(t, ExitError, code)
	assert.Contains(t, stderr, "open gtf file")
}

func TestRun_NoDownloadedGTF(t *testing.T) {
	setup(t)
	code, _, stderr := runCmd(t, "map", "--gene", "KRAS")
	assert.Equal(t, ExitError, code)
	assert.Contains(t, stderr, "vibe-coords download --assembly GRCh38")
}

func TestRun_Config(t *testing.T) {
	dir := setup(t)

	code, out, stderr := runCmd(t, "config", "set", "coords.policy", "padding-only")
	require.Equal(t, ExitSuccess, code, stderr)
	assert.Contains(t, out, filepath.Join(dir, ".vibe-coords.yaml"))

	code, out, stderr = runCmd(t, "config", "get", "coords.policy")
	require.Equal(t, ExitSuccess, code, stderr)
	assert.Equal(t, "padding-only\n", out)

	// The configured policy drops the margins.
	code, out, stderr = runCmd(t, "map", "--gtf", filepath.Join(dir, "test.gtf"), "--transcript", "ENST00000000010")
	require.Equal(t, ExitSuccess, code, stderr)
	assert.Contains(t, out, "policy=padding=15 margin=0")

	code, _, _ = runCmd(t, "config", "get", "no.such.key")
	assert.Equal(t, ExitUsage, code)
}

func TestPolicyFromConfig(t *testing.T) {
	setup(t)

	p, err := policyFromConfig()
	require.NoError(t, err)
	assert.Equal(t, coords.DefaultPolicy(), p)

	viper.Set("coords.policy", "padding-only")
	p, err = policyFromConfig()
	require.NoError(t, err)
	assert.Equal(t, coords.PaddingOnlyPolicy(), p)

	viper.Set("coords.policy", "default")
	viper.Set("coords.padding", 5)
	viper.Set("coords.merge_on_touch", false)
	p, err = policyFromConfig()
	require.NoError(t, err)
	assert.Equal(t, int64(5), p.Padding)
	assert.Equal(t, coords.DefaultPolicy().Margin, p.Margin)
	assert.False(t, p.MergeOnTouch)

	viper.Set("coords.margin", -1)
	_, err = policyFromConfig()
	var uerr *usageError
	assert.ErrorAs(t, err, &uerr)
}

func TestStripVersion(t *testing.T) {
	tests := []struct {
		in, want string
	}{
		{"ENST00000311936.8", "ENST00000311936"},
		{"ENST00000311936", "ENST00000311936"},
		{"KRAS", "KRAS"},
		{"HLA-A.1", "HLA-A.1"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, stripVersion(tt.in), tt.in)
	}
}

func TestRun_CanonicalOverride(t *testing.T) {
	dir := setup(t)

	gtf := `chr2	HAVANA	gene	1000	2100	.	+	.	gene_id "ENSG00000000020"; gene_type "protein_coding"; gene_name "XYZ";
chr2	HAVANA	transcript	1000	1100	.	+	.	gene_id "ENSG00000000020"; transcript_id "ENST00000000021"; gene_name "XYZ"; transcript_type "protein_coding"; tag "Ensembl_canonical";
chr2	HAVANA	exon	1000	1100	.	+	.	gene_id "ENSG00000000020"; transcript_id "ENST00000000021"; exon_number "1";
chr2	HAVANA	CDS	1000	1100	.	+	0	gene_id "ENSG00000000020"; transcript_id "ENST00000000021"; exon_number "1";
chr2	HAVANA	transcript	2000	2100	.	+	.	gene_id "ENSG00000000020"; transcript_id "ENST00000000022"; gene_name "XYZ"; transcript_type "protein_coding";
chr2	HAVANA	exon	2000	2100	.	+	.	gene_id "ENSG00000000020"; transcript_id "ENST00000000022"; exon_number "1";
chr2	HAVANA	CDS	2000	2100	.	+	0	gene_id "ENSG00000000020"; transcript_id "ENST00000000022"; exon_number "1";
`
	gtfPath := filepath.Join(dir, "xyz.gtf")
	require.NoError(t, os.WriteFile(gtfPath, []byte(gtf), 0644))

	code, out, stderr := runCmd(t, "map", "--gtf", gtfPath, "--gene", "XYZ", "--canonical")
	require.Equal(t, ExitSuccess, code, stderr)
	assert.Contains(t, out, "0\t985\t1115\t60\t190\t130\n")

	overrides := filepath.Join(dir, "overrides.txt")
	require.NoError(t, os.WriteFile(overrides,
		[]byte("hgnc_symbol\tgenome_nexus_canonical_transcript\nXYZ\tENST00000000022.3\n"), 0644))
	t.Setenv("VIBE_COORDS_CANONICAL_OVERRIDES", overrides)

	code, out, stderr = runCmd(t, "map", "--gtf", gtfPath, "--gene", "XYZ", "--canonical")
	require.Equal(t, ExitSuccess, code, stderr)
	assert.Contains(t, out, "## source=ENST00000000022")
	assert.Contains(t, out, "0\t1985\t2115\t60\t190\t130\n")
}

func TestRun_MapBinLevels(t *testing.T) {
	dir := setup(t)
	gtf := filepath.Join(dir, "test.gtf")
	fine := filepath.Join(dir, "coverage.tsv")
	coarse := filepath.Join(dir, "coarse.tsv")
	require.NoError(t, os.WriteFile(coarse, []byte("1\t800\t1600\t7\t7\n"), 0644))

	tests := []struct {
		name    string
		bins    []string
		want    []string
		notWant []string
	}{
		{
			// The padded exons 880-1120 and 1180-1420 sum to 480 bases.
			name:    "exon length below the coarse level",
			bins:    []string{"1000:" + coarse, "0:" + fine},
			want:    []string{"1\t1040\t1060\t30.5\t30\t"},
			notWant: []string{"\t7\t7\t"},
		},
		{
			// The gene extent 880-1420 is 540 bases, but only the exons count.
			name:    "gene extent would pick the coarse level",
			bins:    []string{"500:" + coarse, "0:" + fine},
			want:    []string{"1\t1040\t1060\t30.5\t30\t"},
			notWant: []string{"\t7\t7\t"},
		},
		{
			name:    "coarse bins clipped per interval",
			bins:    []string{"400:" + coarse, "0:" + fine},
			want:    []string{"1\t880\t1120\t7\t7\t", "1\t1180\t1420\t7\t7\t"},
			notWant: []string{"30.5", "1\t880\t1420\t"},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			args := []string{"map", "--gtf", gtf, "--transcript", "ENST00000000010"}
			for _, b := range tt.bins {
				args = append(args, "--bins", b)
			}
			code, out, stderr := runCmd(t, args...)
			require.Equal(t, ExitSuccess, code, stderr)
			for _, w := range tt.want {
				assert.Contains(t, out, w)
			}
			for _, w := range tt.notWant {
				assert.NotContains(t, out, w)
			}
		})
	}

	code, _, stderr := runCmd(t, "map", "--gtf", gtf, "--transcript", "ENST00000000010",
		"--bins", "1000:"+coarse)
	assert.Equal(t, ExitUsage, code)
	assert.Contains(t, stderr, "no coverage level")
}
