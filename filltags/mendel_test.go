package filltags

import (
	"strings"
	"testing"

	"github.com/statgen/xcftools/xcf"
)

func trioPedigree(t *testing.T) *xcf.Pedigree {
	t.Helper()
	ped, err := xcf.ReadPedigree(strings.NewReader(
		"father\tNA\tNA\tNA\n" +
			"mother\tNA\tNA\tNA\n" +
			"child\tfather\tmother\tNA\n" +
			"halforphan\tfather\tNA\tNA\n" +
			"unrelated\tNA\tNA\tNA\n",
	))
	if err != nil {
		t.Fatalf("ReadPedigree: %v", err)
	}
	return ped
}

func TestMendelConsistentTrio(t *testing.T) {
	ped := trioPedigree(t)
	trios := ped.Trios()

	// order: father, mother, child, halforphan, unrelated
	gv := xcf.GenotypeVector{
		{A0: 0, A1: 1}, // father het (dosage 1)
		{A0: 0, A1: 0}, // mother hom-ref (dosage 0)
		{A0: 0, A1: 1}, // child het: consistent (father transmits 0 or 1, mother transmits 0)
		{A0: 0, A1: 0}, // halforphan hom-ref: consistent with father transmitting 0
		{A0: 1, A1: 1},
	}

	stats := ComputeMendel(trios, gv)
	if stats.MERRCnt != 0 {
		t.Fatalf("MERR_CNT = %d, want 0 for a fully consistent pedigree", stats.MERRCnt)
	}
	if stats.MTotAll != 2 {
		t.Fatalf("MTOT_ALL = %d, want 2 (child + halforphan)", stats.MTotAll)
	}
}

func TestMendelDetectsViolation(t *testing.T) {
	ped := trioPedigree(t)
	trios := ped.Trios()

	gv := xcf.GenotypeVector{
		{A0: 0, A1: 0}, // father hom-ref (dosage 0)
		{A0: 0, A1: 0}, // mother hom-ref (dosage 0)
		{A0: 1, A1: 1}, // child hom-alt: impossible from two hom-ref parents
		{A0: 1, A1: 1}, // halforphan hom-alt: impossible with a hom-ref father
		{A0: 0, A1: 0},
	}

	stats := ComputeMendel(trios, gv)
	if stats.MERRCnt != 2 {
		t.Fatalf("MERR_CNT = %d, want 2", stats.MERRCnt)
	}
	if stats.MERRRateAll != 1.0 {
		t.Fatalf("MERR_RATE_ALL = %v, want 1.0", stats.MERRRateAll)
	}
}

func TestMendelSkipsMissingChild(t *testing.T) {
	ped := trioPedigree(t)
	trios := ped.Trios()

	gv := xcf.GenotypeVector{
		{A0: 0, A1: 1},
		{A0: 0, A1: 0},
		xcf.MissingGenotype,
		{A0: 0, A1: 0},
		{A0: 0, A1: 0},
	}

	stats := ComputeMendel(trios, gv)
	if stats.MTotAll != 1 {
		t.Fatalf("MTOT_ALL = %d, want 1 (only halforphan has a called child genotype)", stats.MTotAll)
	}
}

func TestMendelMinorTotalsExcludeAllMajorFamilies(t *testing.T) {
	ped := trioPedigree(t)
	trios := ped.Trios()

	gv := xcf.GenotypeVector{
		{A0: 0, A1: 0}, // father hom-ref
		{A0: 0, A1: 0}, // mother hom-ref
		{A0: 0, A1: 0}, // child hom-ref: entire trio is hom-major
		{A0: 0, A1: 1}, // halforphan het: not all-major
		{A0: 0, A1: 0},
	}

	stats := ComputeMendel(trios, gv)
	if stats.MTotAll != 2 {
		t.Fatalf("MTOT_ALL = %d, want 2", stats.MTotAll)
	}
	if stats.MTotMinor != 1 {
		t.Fatalf("MTOT_MINOR = %d, want 1 (only the halforphan trio has a non-major member)", stats.MTotMinor)
	}
}
