package xcf

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/statgen/xcftools/internal/vcfio"
)

func TestXcfWriterReaderRoundTrip(t *testing.T) {
	dir := t.TempDir()
	vcfPath := filepath.Join(dir, "shard.vcf.gz")

	header := vcfio.NewHeader()
	header.AddContig("1")
	header.Samples = []string{"s1", "s2", "s3", "s4"}
	pedigree := NewPedigree(header.Samples)

	w, err := CreateXcfWriter(vcfPath, header, pedigree, WriterOptions{})
	if err != nil {
		t.Fatalf("CreateXcfWriter: %v", err)
	}

	siteA := Site{Chrom: "1", Pos: 100, Ref: "A", Alt: "G", AC: 1, AN: 8}
	gvA := GenotypeVector{
		{0, 0, true}, {0, 0, true}, {0, 1, false}, {0, 0, true},
	}
	recA, err := EncodeSite(gvA, siteA, EncodeOptions{Family: FamilyGenotype, MAFThreshold: 0.2})
	if err != nil {
		t.Fatalf("EncodeSite(siteA): %v", err)
	}
	if err := w.WriteSeekRecord(siteA, recA); err != nil {
		t.Fatalf("WriteSeekRecord(siteA): %v", err)
	}

	siteB := Site{Chrom: "1", Pos: 200, Ref: "A", Alt: "G", AC: 3, AN: 8}
	gvB := GenotypeVector{
		{0, 0, true}, {0, 1, false}, {1, 1, true}, {-1, -1, false},
	}
	recB, err := EncodeBinaryGenotype(gvB)
	if err != nil {
		t.Fatalf("EncodeBinaryGenotype(siteB): %v", err)
	}
	if err := w.WriteSeekRecord(siteB, recB); err != nil {
		t.Fatalf("WriteSeekRecord(siteB): %v", err)
	}

	siteC := Site{Chrom: "1", Pos: 300, Ref: "A", Alt: "G", AC: 2, AN: 8}
	gvC := GenotypeVector{
		{0, 1, true}, {0, 0, true}, {0, 0, true}, {1, 0, true},
	}
	if err := w.WriteEmbeddedGenotypes(siteC, gvC); err != nil {
		t.Fatalf("WriteEmbeddedGenotypes(siteC): %v", err)
	}

	if err := w.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}

	r := NewXcfReader()
	idx, err := r.AddFile(vcfPath)
	if err != nil {
		t.Fatalf("AddFile: %v", err)
	}
	if idx != 0 {
		t.Fatalf("AddFile index = %d, want 0", idx)
	}
	defer r.Close()

	wantSites := []struct {
		site Site
		gv   GenotypeVector
	}{
		{siteA, gvA},
		{siteB, gvB},
		{siteC, gvC},
	}
	for _, want := range wantSites {
		more, err := r.Next()
		if err != nil {
			t.Fatalf("Next: %v", err)
		}
		if !more {
			t.Fatalf("Next() = false before site %+v was read", want.site)
		}
		if !r.HasRecord(0) {
			t.Fatalf("HasRecord(0) = false at site %+v", want.site)
		}
		got, err := r.ReadRecord(0, 4)
		if err != nil {
			t.Fatalf("ReadRecord at %+v: %v", want.site, err)
		}
		for i := range want.gv {
			wantMissing := want.gv[i].IsMissing()
			if got[i].IsMissing() != wantMissing {
				t.Fatalf("site %+v sample %d missing=%v, want %v", want.site, i, got[i].IsMissing(), wantMissing)
			}
			if !wantMissing && got[i].Dosage() != want.gv[i].Dosage() {
				t.Fatalf("site %+v sample %d dosage=%d, want %d", want.site, i, got[i].Dosage(), want.gv[i].Dosage())
			}
		}
	}

	more, err := r.Next()
	if err != nil {
		t.Fatalf("final Next: %v", err)
	}
	if more {
		t.Fatalf("Next() = true after every site was consumed")
	}
	if !r.RegionDone() {
		t.Fatalf("RegionDone() = false once every file is exhausted")
	}
}

// writeRawCompanion writes a minimal companion file by hand, bypassing
// XcfWriter, so tests can construct INFO fields XcfWriter itself would
// never emit (multi-allelic ALT, malformed SEEK/AC/AN arity).
func writeRawCompanion(t *testing.T, vcfPath string, samples []string, records []*vcfio.Record) {
	t.Helper()
	w, err := vcfio.Create(vcfPath)
	if err != nil {
		t.Fatalf("vcfio.Create: %v", err)
	}
	header := vcfio.NewHeader()
	header.AddContig("1")
	header.Samples = samples
	header.AddInfo(vcfio.FieldInfo{ID: "SEEK", Number: "4", Type: "Integer", Description: "side-car record type and byte offset"})
	header.AddInfo(vcfio.FieldInfo{ID: "AC", Number: "A", Type: "Integer", Description: "allele count"})
	header.AddInfo(vcfio.FieldInfo{ID: "AN", Number: "1", Type: "Integer", Description: "total number of alleles"})
	if err := w.WriteHeader(header); err != nil {
		t.Fatalf("WriteHeader: %v", err)
	}
	for _, rec := range records {
		if err := w.WriteRecord(rec); err != nil {
			t.Fatalf("WriteRecord: %v", err)
		}
	}
	if err := w.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}
}

func TestReaderSkipsMultiAllelicSites(t *testing.T) {
	dir := t.TempDir()
	vcfPath := filepath.Join(dir, "multiallelic.vcf.gz")

	triAllelic := vcfio.NewRecord()
	triAllelic.Chrom, triAllelic.Pos, triAllelic.Ref, triAllelic.Alt = "1", 100, "A", "G,T"
	triAllelic.SetInfo("AC", "1,1")
	triAllelic.SetInfo("AN", "8")
	triAllelic.SetInfoInts("SEEK", []int32{int32(RecordBinaryGenotype), 0, 0, 1})

	biAllelic := vcfio.NewRecord()
	biAllelic.Chrom, biAllelic.Pos, biAllelic.Ref, biAllelic.Alt = "1", 200, "A", "G"
	biAllelic.SetInfo("AC", "1")
	biAllelic.SetInfo("AN", "8")
	biAllelic.SetInfoInts("SEEK", []int32{int32(RecordBinaryGenotype), 0, 1, 1})

	writeRawCompanion(t, vcfPath, []string{"s1", "s2", "s3", "s4"}, []*vcfio.Record{triAllelic, biAllelic})
	// The biallelic site's SEEK points at byte 1 of the side-car.
	if err := os.WriteFile(filepath.Join(dir, "multiallelic.bin"), []byte{0x00, 0x00}, 0o644); err != nil {
		t.Fatalf("WriteFile(.bin): %v", err)
	}

	r := NewXcfReader()
	if _, err := r.AddFile(vcfPath); err != nil {
		t.Fatalf("AddFile: %v", err)
	}
	defer r.Close()

	more, err := r.Next()
	if err != nil {
		t.Fatalf("Next: %v", err)
	}
	if !more {
		t.Fatalf("Next() = false, want the skip to land on the biallelic site")
	}
	site, ok := r.CurrentSite()
	if !ok {
		t.Fatalf("CurrentSite() not ok")
	}
	if site.Pos != 200 {
		t.Fatalf("CurrentSite().Pos = %d, want 200 (the 100 multi-allelic site should have been skipped)", site.Pos)
	}
	if _, err := r.ReadRecord(0, 4); err != nil {
		t.Fatalf("ReadRecord: %v", err)
	}

	more, err = r.Next()
	if err != nil {
		t.Fatalf("second Next: %v", err)
	}
	if more {
		t.Fatalf("Next() = true after the only biallelic site was consumed")
	}
}

func TestReaderRejectsBadSeekArity(t *testing.T) {
	dir := t.TempDir()
	vcfPath := filepath.Join(dir, "badseek.vcf.gz")

	rec := vcfio.NewRecord()
	rec.Chrom, rec.Pos, rec.Ref, rec.Alt = "1", 100, "A", "G"
	rec.SetInfo("AC", "1")
	rec.SetInfo("AN", "8")
	rec.SetInfoInts("SEEK", []int32{int32(RecordBinaryGenotype), 0, 0})

	writeRawCompanion(t, vcfPath, []string{"s1", "s2", "s3", "s4"}, []*vcfio.Record{rec})

	r := NewXcfReader()
	_, err := r.AddFile(vcfPath)
	if err == nil {
		r.Close()
		t.Fatalf("AddFile succeeded on a 3-entry INFO/SEEK, want a KindFormat error")
	}
	var xerr *Error
	if !errors.As(err, &xerr) || xerr.Kind != KindFormat {
		t.Fatalf("AddFile error = %v, want a KindFormat *Error", err)
	}
}

func TestReaderRejectsMultiValuedAC(t *testing.T) {
	dir := t.TempDir()
	vcfPath := filepath.Join(dir, "badac.vcf.gz")

	rec := vcfio.NewRecord()
	rec.Chrom, rec.Pos, rec.Ref, rec.Alt = "1", 100, "A", "G"
	rec.SetInfo("AC", "1,2")
	rec.SetInfo("AN", "8")
	rec.SetInfoInts("SEEK", []int32{int32(RecordBinaryGenotype), 0, 0, 1})

	writeRawCompanion(t, vcfPath, []string{"s1", "s2", "s3", "s4"}, []*vcfio.Record{rec})

	r := NewXcfReader()
	_, err := r.AddFile(vcfPath)
	if err == nil {
		r.Close()
		t.Fatalf("AddFile succeeded on a 2-entry INFO/AC for a biallelic site, want a KindFormat error")
	}
	var xerr *Error
	if !errors.As(err, &xerr) || xerr.Kind != KindFormat {
		t.Fatalf("AddFile error = %v, want a KindFormat *Error", err)
	}
}
