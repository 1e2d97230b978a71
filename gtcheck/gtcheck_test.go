package gtcheck

import (
	"path/filepath"
	"testing"

	"github.com/statgen/xcftools/internal/vcfio"
	"github.com/statgen/xcftools/xcf"
)

func writeShard(t *testing.T, path string, sites []xcf.Site, gvs []xcf.GenotypeVector, samples []string) {
	t.Helper()
	header := vcfio.NewHeader()
	header.AddContig("1")
	header.Samples = samples
	ped := xcf.NewPedigree(samples)

	w, err := xcf.CreateXcfWriter(path, header, ped, xcf.WriterOptions{})
	if err != nil {
		t.Fatalf("CreateXcfWriter(%s): %v", path, err)
	}
	for i, site := range sites {
		rec, err := xcf.EncodeBinaryGenotype(gvs[i])
		if err != nil {
			t.Fatalf("EncodeBinaryGenotype: %v", err)
		}
		if err := w.WriteSeekRecord(site, rec); err != nil {
			t.Fatalf("WriteSeekRecord: %v", err)
		}
	}
	if err := w.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}
}

func TestSummarizeCounts(t *testing.T) {
	gv := xcf.GenotypeVector{
		{A0: 0, A1: 0}, {A0: 0, A1: 1, Phased: true}, {A0: 1, A1: 1}, xcf.MissingGenotype,
	}
	s := Summarize(gv)
	if s.AN != 6 || s.AC != 3 || s.NHomRef != 1 || s.NHet != 1 || s.NHomAlt != 1 || s.NMiss != 1 {
		t.Fatalf("Summarize = %+v, unexpected", s)
	}
	if s.IsPhased {
		t.Fatalf("IsPhased = true, want false (one call unphased)")
	}
}

func TestCompareIdenticalSummariesIsEqual(t *testing.T) {
	gv := xcf.GenotypeVector{{A0: 0, A1: 1}, {A0: 1, A1: 1}}
	s := Summarize(gv)
	if diffs := Compare(s, s); len(diffs) != 0 {
		t.Fatalf("Compare(s,s) = %+v, want no diffs", diffs)
	}
}

func TestCompareFlagsRealDifference(t *testing.T) {
	s1 := Summarize(xcf.GenotypeVector{{A0: 0, A1: 0}, {A0: 0, A1: 0}})
	s2 := Summarize(xcf.GenotypeVector{{A0: 1, A1: 1}, {A0: 1, A1: 1}})
	diffs := Compare(s1, s2)
	if len(diffs) == 0 {
		t.Fatalf("Compare should flag a fully divergent pair of sides")
	}
}

func TestCompareTolerantAcrossPhasing(t *testing.T) {
	// Same genotypes, but one side phased and the other not, with one
	// missing sample on the unphased side — within tolerance.
	s1 := Summarize(xcf.GenotypeVector{{A0: 0, A1: 1, Phased: true}, {A0: 1, A1: 1, Phased: true}})
	s2 := Summarize(xcf.GenotypeVector{{A0: 0, A1: 1}, xcf.MissingGenotype})
	diffs := Compare(s1, s2)
	// AN/AC differ by exactly the missing sample's contribution (<=
	// Tolerance*1), so this should not be flagged as a mismatch.
	if len(diffs) != 0 {
		t.Fatalf("Compare across phasing with bounded difference should be tolerant, got %+v", diffs)
	}
}

func TestCompareDosagesFindsFirstMismatch(t *testing.T) {
	gv1 := xcf.GenotypeVector{{A0: 0, A1: 0}, {A0: 0, A1: 1}, {A0: 1, A1: 1}}
	gv2 := xcf.GenotypeVector{{A0: 0, A1: 0}, {A0: 1, A1: 1}, {A0: 1, A1: 1}}
	mm, ok := CompareDosages(gv1, gv2)
	if !ok {
		t.Fatalf("expected a dosage mismatch")
	}
	if mm.Sample != 1 {
		t.Fatalf("Sample = %d, want 1", mm.Sample)
	}
}

func TestCompareDosagesIgnoresMissing(t *testing.T) {
	gv1 := xcf.GenotypeVector{xcf.MissingGenotype, {A0: 0, A1: 0}}
	gv2 := xcf.GenotypeVector{{A0: 1, A1: 1}, {A0: 0, A1: 0}}
	if _, ok := CompareDosages(gv1, gv2); ok {
		t.Fatalf("a missing dosage on either side should never itself be flagged")
	}
}

// TestRunOnIdenticalFiles mirrors the reflexivity scenario: comparing
// an XCF to a byte-for-byte copy of itself should report every site
// equal and zero mismatches.
func TestRunOnIdenticalFiles(t *testing.T) {
	dir := t.TempDir()
	samples := []string{"s1", "s2", "s3", "s4"}
	sites := []xcf.Site{
		{Chrom: "1", Pos: 100, Ref: "A", Alt: "G"},
		{Chrom: "1", Pos: 200, Ref: "A", Alt: "G"},
		{Chrom: "1", Pos: 300, Ref: "A", Alt: "G"},
	}
	gvs := []xcf.GenotypeVector{
		{{A0: 0, A1: 0}, {A0: 0, A1: 1}, {A0: 1, A1: 1}, {A0: 0, A1: 0}},
		{{A0: 0, A1: 1}, {A0: 0, A1: 1}, {A0: 0, A1: 0}, {A0: 1, A1: 1}},
		{{A0: 1, A1: 1}, {A0: 0, A1: 0}, {A0: 0, A1: 1}, xcf.MissingGenotype},
	}

	path1 := filepath.Join(dir, "a.vcf.gz")
	path2 := filepath.Join(dir, "b.vcf.gz")
	writeShard(t, path1, sites, gvs, samples)
	writeShard(t, path2, sites, gvs, samples)

	r := xcf.NewXcfReader()
	if _, err := r.AddFile(path1); err != nil {
		t.Fatalf("AddFile(1): %v", err)
	}
	if _, err := r.AddFile(path2); err != nil {
		t.Fatalf("AddFile(2): %v", err)
	}
	defer r.Close()

	c := NewChecker(false)
	rep, err := c.Run(r, len(samples))
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if rep.NTotal != 3 {
		t.Fatalf("NTotal = %d, want 3", rep.NTotal)
	}
	if rep.NEqual != 3 {
		t.Fatalf("NEqual = %d, want 3", rep.NEqual)
	}
	if rep.NMismatch != 0 {
		t.Fatalf("NMismatch = %d, want 0", rep.NMismatch)
	}
	if rep.PercentMatch() != 100 {
		t.Fatalf("PercentMatch = %v, want 100", rep.PercentMatch())
	}
}

// TestRunDetectsDivergence checks that a single altered site at the
// second file is caught and reported with a deep-check sample
// mismatch.
func TestRunDetectsDivergence(t *testing.T) {
	dir := t.TempDir()
	samples := []string{"s1", "s2"}
	sites := []xcf.Site{{Chrom: "1", Pos: 100, Ref: "A", Alt: "G"}}

	path1 := filepath.Join(dir, "a.vcf.gz")
	path2 := filepath.Join(dir, "b.vcf.gz")
	writeShard(t, path1, sites, []xcf.GenotypeVector{{{A0: 0, A1: 0}, {A0: 0, A1: 0}}}, samples)
	writeShard(t, path2, sites, []xcf.GenotypeVector{{{A0: 1, A1: 1}, {A0: 0, A1: 0}}}, samples)

	r := xcf.NewXcfReader()
	if _, err := r.AddFile(path1); err != nil {
		t.Fatalf("AddFile(1): %v", err)
	}
	if _, err := r.AddFile(path2); err != nil {
		t.Fatalf("AddFile(2): %v", err)
	}
	defer r.Close()

	c := NewChecker(true)
	rep, err := c.Run(r, len(samples))
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if rep.NMismatch != 1 {
		t.Fatalf("NMismatch = %d, want 1", rep.NMismatch)
	}
	mismatch := rep.Mismatches[0]
	if mismatch.DeepMismatch == nil {
		t.Fatalf("expected a deep-check sample mismatch to be recorded")
	}
	if mismatch.DeepMismatch.Sample != 0 {
		t.Fatalf("DeepMismatch.Sample = %d, want 0", mismatch.DeepMismatch.Sample)
	}
}
