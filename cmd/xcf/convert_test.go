package main

import (
	"path/filepath"
	"testing"

	"github.com/statgen/xcftools/internal/vcfio"
	"github.com/statgen/xcftools/xcf"
)

func writeTestCompanion(t *testing.T, path string, samples []string, sites []xcf.Site, gvs []xcf.GenotypeVector) {
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

func decodeAll(t *testing.T, path string) ([]xcf.Site, []xcf.GenotypeVector) {
	t.Helper()
	r := xcf.NewXcfReader()
	if _, err := r.AddFile(path); err != nil {
		t.Fatalf("AddFile(%s): %v", path, err)
	}
	defer r.Close()

	n := r.Pedigree(0).N()
	var sites []xcf.Site
	var gvs []xcf.GenotypeVector
	for {
		more, err := r.Next()
		if err != nil {
			t.Fatalf("Next: %v", err)
		}
		if !more {
			break
		}
		site, ok := r.CurrentSite()
		if !ok || !r.HasRecord(0) {
			continue
		}
		gv, err := r.ReadRecord(0, n)
		if err != nil {
			t.Fatalf("ReadRecord: %v", err)
		}
		sites = append(sites, site)
		gvs = append(gvs, gv)
	}
	return sites, gvs
}

// sameGenotype compares allele order only when both calls are phased;
// an unphased call carries no order (BINARY_GENOTYPE decodes every het
// as unphased 0/1), so it is compared by dosage.
func sameGenotype(a, b xcf.Genotype) bool {
	if !a.Phased || !b.Phased {
		return a.Dosage() == b.Dosage()
	}
	return a.A0 == b.A0 && a.A1 == b.A1
}

// TestRunConvertEachFormat exercises every --format token against the
// same input and checks the re-encoded output decodes back to the
// same genotype calls.
func TestRunConvertEachFormat(t *testing.T) {
	dir := t.TempDir()
	samples := []string{"s1", "s2", "s3"}
	in := filepath.Join(dir, "in.vcf.gz")
	sites := []xcf.Site{
		{Chrom: "1", Pos: 100, Ref: "A", Alt: "G", AC: 1, AN: 6},
		{Chrom: "1", Pos: 200, Ref: "A", Alt: "G", AC: 3, AN: 6},
	}
	gvs := []xcf.GenotypeVector{
		{{A0: 0, A1: 0, Phased: true}, {A0: 0, A1: 1, Phased: true}, {A0: 0, A1: 0, Phased: true}},
		{{A0: 0, A1: 1, Phased: true}, {A0: 1, A1: 0, Phased: true}, {A0: 0, A1: 1, Phased: true}},
	}
	writeTestCompanion(t, in, samples, sites, gvs)

	for _, format := range []string{"bcf", "bg", "bh", "sg", "sh", "pp"} {
		t.Run(format, func(t *testing.T) {
			out := filepath.Join(dir, "out-"+format+".vcf.gz")
			err := runConvert(convertOptions{
				input:   in,
				output:  out,
				format:  format,
				threads: 1,
			})
			if err != nil {
				t.Fatalf("runConvert(%s): %v", format, err)
			}

			gotSites, gotGVs := decodeAll(t, out)
			if len(gotSites) != len(sites) {
				t.Fatalf("format %s: got %d sites, want %d", format, len(gotSites), len(sites))
			}
			for i := range sites {
				for s := range samples {
					if !sameGenotype(gotGVs[i][s], gvs[i][s]) {
						t.Fatalf("format %s: site %d sample %d = %+v, want %+v", format, i, s, gotGVs[i][s], gvs[i][s])
					}
				}
			}
		})
	}
}

func TestRunConvertMAFFilter(t *testing.T) {
	dir := t.TempDir()
	samples := []string{"s1", "s2"}
	in := filepath.Join(dir, "in.vcf.gz")
	sites := []xcf.Site{
		{Chrom: "1", Pos: 100, Ref: "A", Alt: "G", AC: 1, AN: 4}, // MAF 0.25
		{Chrom: "1", Pos: 200, Ref: "A", Alt: "G", AC: 2, AN: 4}, // MAF 0.5
	}
	gvs := []xcf.GenotypeVector{
		{{A0: 0, A1: 0, Phased: true}, {A0: 0, A1: 1, Phased: true}},
		{{A0: 0, A1: 1, Phased: true}, {A0: 0, A1: 1, Phased: true}},
	}
	writeTestCompanion(t, in, samples, sites, gvs)

	out := filepath.Join(dir, "out.vcf.gz")
	if err := runConvert(convertOptions{input: in, output: out, format: "bg", maf: 0.3, threads: 1}); err != nil {
		t.Fatalf("runConvert: %v", err)
	}
	gotSites, _ := decodeAll(t, out)
	if len(gotSites) != 1 || gotSites[0].Pos != 200 {
		t.Fatalf("MAF filter: got sites %+v, want only pos 200", gotSites)
	}
}

func TestRunConvertSamplesSubset(t *testing.T) {
	dir := t.TempDir()
	samples := []string{"s1", "s2", "s3"}
	in := filepath.Join(dir, "in.vcf.gz")
	sites := []xcf.Site{{Chrom: "1", Pos: 100, Ref: "A", Alt: "G", AC: 1, AN: 6}}
	gvs := []xcf.GenotypeVector{
		{{A0: 0, A1: 0, Phased: true}, {A0: 0, A1: 1, Phased: true}, {A0: 1, A1: 1, Phased: true}},
	}
	writeTestCompanion(t, in, samples, sites, gvs)

	out := filepath.Join(dir, "out.vcf.gz")
	if err := runConvert(convertOptions{input: in, output: out, format: "bg", samples: "s1,s3", threads: 1}); err != nil {
		t.Fatalf("runConvert: %v", err)
	}
	_, gotGVs := decodeAll(t, out)
	if len(gotGVs) != 1 || len(gotGVs[0]) != 2 {
		t.Fatalf("subset: got %+v, want 2 samples", gotGVs)
	}
	if !sameGenotype(gotGVs[0][0], gvs[0][0]) || !sameGenotype(gotGVs[0][1], gvs[0][2]) {
		t.Fatalf("subset: got %+v, want s1,s3 calls", gotGVs[0])
	}
}

func TestRunConvertMissingSampleFailsWithoutForce(t *testing.T) {
	dir := t.TempDir()
	samples := []string{"s1", "s2"}
	in := filepath.Join(dir, "in.vcf.gz")
	sites := []xcf.Site{{Chrom: "1", Pos: 100, Ref: "A", Alt: "G", AC: 1, AN: 4}}
	gvs := []xcf.GenotypeVector{{{A0: 0, A1: 0, Phased: true}, {A0: 0, A1: 1, Phased: true}}}
	writeTestCompanion(t, in, samples, sites, gvs)

	out := filepath.Join(dir, "out.vcf.gz")
	err := runConvert(convertOptions{input: in, output: out, format: "bg", samples: "s1,nope", threads: 1})
	if err == nil {
		t.Fatalf("expected an error for a sample absent from the input")
	}

	out2 := filepath.Join(dir, "out2.vcf.gz")
	if err := runConvert(convertOptions{input: in, output: out2, format: "bg", samples: "s1,nope", forceSamples: true, threads: 1}); err != nil {
		t.Fatalf("runConvert with --force-samples: %v", err)
	}
	_, gotGVs := decodeAll(t, out2)
	if len(gotGVs) != 1 || len(gotGVs[0]) != 1 {
		t.Fatalf("force-samples: got %+v, want 1 sample", gotGVs)
	}
}

func TestRunConvertRejectsBadConfiguration(t *testing.T) {
	dir := t.TempDir()
	in := filepath.Join(dir, "in.vcf.gz")
	writeTestCompanion(t, in, []string{"s1"}, []xcf.Site{{Chrom: "1", Pos: 100, Ref: "A", Alt: "G"}}, []xcf.GenotypeVector{{{A0: 0, A1: 0, Phased: true}}})

	cases := []convertOptions{
		{input: in, output: "", format: "bg", threads: 1},
		{input: in, output: filepath.Join(dir, "o.vcf.gz"), format: "nope", threads: 1},
		{input: in, output: filepath.Join(dir, "o.vcf.gz"), format: "bg", samples: "s1", samplesFile: "f.txt", threads: 1},
		{input: in, output: filepath.Join(dir, "o.vcf.gz"), format: "bg", threads: 0},
	}
	for i, c := range cases {
		if err := runConvert(c); err == nil {
			t.Fatalf("case %d: expected a Configuration error, got nil", i)
		}
	}
}
