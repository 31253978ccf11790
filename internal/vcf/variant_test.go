package vcf

import "testing"

func TestVariant_IsPass(t *testing.T) {
	tests := []struct {
		filter string
		want   bool
	}{
		{"PASS", true},
		{".", true},
		{"LowQual", false},
		{"q10;s50", false},
		{"", false},
	}

	for _, tt := range tests {
		t.Run(tt.filter, func(t *testing.T) {
			v := &Variant{Filter: tt.filter}
			if got := v.IsPass(); got != tt.want {
				t.Errorf("IsPass() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestVariant_NormalizeChrom(t *testing.T) {
	tests := []struct {
		name  string
		chrom string
		want  string
	}{
		{"with chr prefix", "chr12", "12"},
		{"without chr prefix", "12", "12"},
		{"chrX", "chrX", "X"},
		{"X", "X", "X"},
		{"chrM", "chrM", "M"},
		{"MT", "MT", "MT"},
		{"chr1", "chr1", "1"},
		{"empty", "", ""},
		{"short chr", "ch", "ch"}, // too short for "chr" prefix
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			v := &Variant{Chrom: tt.chrom}
			if got := v.NormalizeChrom(); got != tt.want {
				t.Errorf("NormalizeChrom() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestVariant_KRASG12C(t *testing.T) {
	// KRAS is on reverse strand: coding G->T = genomic C->A
	v := &Variant{
		Chrom:  "chr12",
		Pos:    25245351,
		Ref:    "C",
		Alt:    "A",
		Filter: "PASS",
	}

	if got := v.Location(); got != "12-25245351-C-A" {
		t.Errorf("Location() = %s, want 12-25245351-C-A", got)
	}
	if !v.InRegion("12", 25245274, 25245395) {
		t.Error("variant should lie in KRAS exon 2")
	}
	if !v.InRegion("chr12", 25245351, 25245351) {
		t.Error("single-base region should contain the variant")
	}
	if v.InRegion("12", 25250751, 25250929) {
		t.Error("variant should not lie in KRAS exon 1")
	}
	if v.InRegion("11", 25245274, 25245395) {
		t.Error("variant should not match another chromosome")
	}
}
