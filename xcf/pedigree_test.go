package xcf

import (
	"bytes"
	"strings"
	"testing"
)

func TestReadPedigreeBasic(t *testing.T) {
	in := "s1\tNA\tNA\tEUR\ns2\tNA\tNA\tEUR\ns3\ts1\ts2\tEUR\ns4\tNA\tNA\tAFR\n"
	p, err := ReadPedigree(strings.NewReader(in))
	if err != nil {
		t.Fatalf("ReadPedigree: %v", err)
	}
	if p.N() != 4 {
		t.Fatalf("N() = %d, want 4", p.N())
	}
	if idx, ok := p.IndexOf("s3"); !ok || idx != 2 {
		t.Fatalf("IndexOf(s3) = (%d, %v), want (2, true)", idx, ok)
	}
	eur := p.Samples2Pop("EUR")
	if len(eur) != 3 {
		t.Fatalf("len(Samples2Pop(EUR)) = %d, want 3", len(eur))
	}
	all := p.Samples2Pop("ALL")
	if len(all) != 4 {
		t.Fatalf("len(Samples2Pop(ALL)) = %d, want 4", len(all))
	}
}

func TestReadPedigreeSampleOnlyRows(t *testing.T) {
	in := "s1\ns2\ns3\n"
	p, err := ReadPedigree(strings.NewReader(in))
	if err != nil {
		t.Fatalf("ReadPedigree: %v", err)
	}
	for _, ind := range p.Individuals {
		if ind.Father != NA || ind.Mother != NA || ind.Pop != NA {
			t.Fatalf("bare sample row decoded as %+v, want all-NA", ind)
		}
	}
}

func TestReadPedigreeDuplicateSample(t *testing.T) {
	in := "s1\nNA\nNA\ns1\n"
	if _, err := ReadPedigree(strings.NewReader(in)); err == nil {
		t.Fatalf("expected a duplicate-sample error")
	}
}

func TestPedigreeTrios(t *testing.T) {
	in := "father\tNA\tNA\tNA\nmother\tNA\tNA\tNA\nchild\tfather\tmother\tNA\nhalforphan\tfather\tNA\tNA\nunrelated\tNA\tNA\tNA\n"
	p, err := ReadPedigree(strings.NewReader(in))
	if err != nil {
		t.Fatalf("ReadPedigree: %v", err)
	}
	trios := p.Trios()
	if len(trios) != 2 {
		t.Fatalf("len(Trios()) = %d, want 2", len(trios))
	}
	childIdx, _ := p.IndexOf("child")
	fatherIdx, _ := p.IndexOf("father")
	motherIdx, _ := p.IndexOf("mother")
	haIdx, _ := p.IndexOf("halforphan")

	var sawTrio, sawDuo bool
	for _, tr := range trios {
		switch tr.Child {
		case childIdx:
			sawTrio = true
			if tr.Father != fatherIdx || tr.Mother != motherIdx {
				t.Fatalf("child trio = %+v, want father=%d mother=%d", tr, fatherIdx, motherIdx)
			}
		case haIdx:
			sawDuo = true
			if tr.Father != fatherIdx || tr.Mother != -1 {
				t.Fatalf("halforphan duo = %+v, want father=%d mother=-1", tr, fatherIdx)
			}
		}
	}
	if !sawTrio || !sawDuo {
		t.Fatalf("missing expected trio/duo in %+v", trios)
	}
}

func TestPedigreeWriteRoundTrip(t *testing.T) {
	in := "s1\tf1\tm1\tEUR\ns2\tNA\tNA\tNA\n"
	p, err := ReadPedigree(strings.NewReader(in))
	if err != nil {
		t.Fatalf("ReadPedigree: %v", err)
	}
	var buf bytes.Buffer
	if err := p.Write(&buf); err != nil {
		t.Fatalf("Write: %v", err)
	}
	p2, err := ReadPedigree(&buf)
	if err != nil {
		t.Fatalf("ReadPedigree(round trip): %v", err)
	}
	if len(p2.Individuals) != len(p.Individuals) {
		t.Fatalf("round trip changed sample count: %d vs %d", len(p2.Individuals), len(p.Individuals))
	}
	for i := range p.Individuals {
		if p.Individuals[i] != p2.Individuals[i] {
			t.Fatalf("sample %d round-tripped as %+v, want %+v", i, p2.Individuals[i], p.Individuals[i])
		}
	}
}

func TestPedigreeSubset(t *testing.T) {
	p := NewPedigree([]string{"s1", "s2", "s3"})
	sub, idx, err := p.Subset([]string{"s3", "s1"}, false)
	if err != nil {
		t.Fatalf("Subset: %v", err)
	}
	if sub.N() != 2 {
		t.Fatalf("N() = %d, want 2", sub.N())
	}
	if idx[0] != 2 || idx[1] != 0 {
		t.Fatalf("idx = %v, want [2 0]", idx)
	}
	if sub.Individuals[0].Name != "s3" || sub.Individuals[1].Name != "s1" {
		t.Fatalf("Subset did not preserve requested order: %+v", sub.Individuals)
	}
}

func TestPedigreeSubsetMissingNameFailsWithoutForce(t *testing.T) {
	p := NewPedigree([]string{"s1", "s2"})
	if _, _, err := p.Subset([]string{"s1", "nope"}, false); err == nil {
		t.Fatalf("expected an error for a sample absent from the pedigree")
	}
	sub, idx, err := p.Subset([]string{"s1", "nope"}, true)
	if err != nil {
		t.Fatalf("Subset with force: %v", err)
	}
	if sub.N() != 1 || len(idx) != 1 || idx[0] != 0 {
		t.Fatalf("Subset with force = %+v/%v, want one kept sample at index 0", sub.Individuals, idx)
	}
}

func TestNewPedigreeDefaults(t *testing.T) {
	p := NewPedigree([]string{"a", "b", "c"})
	if p.N() != 3 {
		t.Fatalf("N() = %d, want 3", p.N())
	}
	if len(p.Trios()) != 0 {
		t.Fatalf("NewPedigree should produce no trios, got %v", p.Trios())
	}
	if len(p.Samples2Pop("ALL")) != 3 {
		t.Fatalf("Samples2Pop(ALL) should include every sample")
	}
}
