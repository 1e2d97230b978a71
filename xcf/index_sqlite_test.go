package xcf

import (
	"path/filepath"
	"testing"
)

func TestXcfIndexPutLookup(t *testing.T) {
	path := filepath.Join(t.TempDir(), "test.xcfidx")
	idx, err := CreateXcfIndex(path)
	if err != nil {
		t.Fatalf("CreateXcfIndex: %v", err)
	}
	defer idx.Close()

	sites := []struct {
		site Site
		seek Seek
	}{
		{Site{Chrom: "1", Pos: 100, Rsid: "rs1"}, NewSeek(RecordSparseGenotype, 0, 4)},
		{Site{Chrom: "1", Pos: 200, Rsid: "rs2"}, NewSeek(RecordBinaryGenotype, 4, 1)},
		{Site{Chrom: "2", Pos: 50, Rsid: "rs3"}, NewSeek(RecordBinaryHaplotype, 0, 1)},
	}
	for _, s := range sites {
		if err := idx.Put(s.site, s.seek); err != nil {
			t.Fatalf("Put(%+v): %v", s.site, err)
		}
	}
	if err := idx.Finalize("test.vcf.gz", 4); err != nil {
		t.Fatalf("Finalize: %v", err)
	}

	got, err := idx.Lookup("1", 200)
	if err != nil {
		t.Fatalf("Lookup: %v", err)
	}
	if len(got) != 1 || got[0].Rsid != "rs2" {
		t.Fatalf("Lookup(1, 200) = %+v, want one entry for rs2", got)
	}

	inRange, err := idx.LookupRange("1", 0, 1000)
	if err != nil {
		t.Fatalf("LookupRange: %v", err)
	}
	if len(inRange) != 2 {
		t.Fatalf("LookupRange(1, 0, 1000) = %d entries, want 2", len(inRange))
	}

	reopened, err := OpenXcfIndex(path)
	if err != nil {
		t.Fatalf("OpenXcfIndex: %v", err)
	}
	defer reopened.Close()
	if reopened.Metadata == nil || reopened.Metadata.NumVariants != 3 {
		t.Fatalf("Metadata = %+v, want NumVariants=3", reopened.Metadata)
	}
}
