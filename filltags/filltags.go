// Package filltags implements a single-pass per-site aggregator that
// derives allele/genotype statistics (AN, AC, AF, MAF, NS, HWE,
// ExcHet, IC, TYPE, END) and, when a pedigree is supplied, Mendelian
// error counts, for one or more populations.
//
// Grounded on original_source's fill_tags_algorithm.cpp: the per-site
// tally loop over nhom[0]/nhom[1]/nhet/ns, the HWE/ExcHet recurrence
// (ported in hwe.go), and the Mendel trio/duo scoring (mendel.go).
package filltags

import (
	"github.com/statgen/xcftools/xcf"
)

// Tag identifies one output statistic fill-tags can be asked to emit.
type Tag int

const (
	TagAN Tag = iota
	TagAC
	TagACHom
	TagACHet
	TagAF
	TagMAF
	TagNS
	TagHWE
	TagExcHet
	TagIC
	TagTYPE
	TagEND
	TagMendel
)

// ParseTag maps a command-line tag name (as accepted by fill-tags
// --tags) to its Tag constant.
func ParseTag(name string) (Tag, bool) {
	switch name {
	case "AN":
		return TagAN, true
	case "AC":
		return TagAC, true
	case "AC_Hom":
		return TagACHom, true
	case "AC_Het":
		return TagACHet, true
	case "AF":
		return TagAF, true
	case "MAF":
		return TagMAF, true
	case "NS":
		return TagNS, true
	case "HWE":
		return TagHWE, true
	case "ExcHet":
		return TagExcHet, true
	case "IC":
		return TagIC, true
	case "TYPE":
		return TagTYPE, true
	case "END":
		return TagEND, true
	case "MENDEL":
		return TagMendel, true
	default:
		return 0, false
	}
}

// AllTags is the tag set selected by the "all" alias, excluding
// MENDEL (which requires a pedigree and is opt-in separately, the way
// the original tool gates it behind its own SET_MENDEL flag).
var AllTags = []Tag{TagAN, TagAC, TagACHom, TagACHet, TagAF, TagMAF, TagNS, TagHWE, TagExcHet, TagIC, TagTYPE, TagEND}

// tally holds one population's running genotype counts for a site:
// the homozygous-ref count, homozygous-alt count, heterozygous count,
// and the number of non-missing samples (NS).
type tally struct {
	nHomRef int
	nHomAlt int
	nHet    int
	ns      int
}

func (t *tally) add(g xcf.Genotype) {
	if g.IsMissing() {
		return
	}
	t.ns++
	switch {
	case g.A0 == 0 && g.A1 == 0:
		t.nHomRef++
	case g.A0 == 1 && g.A1 == 1:
		t.nHomAlt++
	default:
		t.nHet++
	}
}

func (t *tally) an() int { return 2 * (t.nHomRef + t.nHomAlt + t.nHet) }
func (t *tally) ac() int { return 2*t.nHomAlt + t.nHet }

// PopulationStats holds the derived tags for one population at one
// site; fields are only meaningful if the corresponding Tag was
// requested (TagFiller.Compute only fills in what was asked for).
type PopulationStats struct {
	Population string

	AN       int
	AC       int
	ACHom    int
	ACHet    int
	AF       float64
	MAF      float64
	NS       int
	HWE      float64
	HWEChiSq float64
	ExcHet   float64
	IC       float64
}

// SiteStats is the full output of one TagFiller.Compute call: the
// site-wide tags (END, TYPE) plus one PopulationStats per requested
// population, and (when MENDEL was requested and a pedigree is
// attached) the Mendelian error summary.
type SiteStats struct {
	End  uint32
	Type string

	Populations []PopulationStats

	Mendel *MendelStats
}

// TagFiller computes SiteStats for successive sites. It holds only the
// tag set, pedigree, trios and population names; each Compute call
// builds a fresh per-population tally.
type TagFiller struct {
	tags       map[Tag]bool
	pedigree   *xcf.Pedigree
	trios      []xcf.Trio
	population []string // population names to aggregate over, "ALL" always present
}

// NewTagFiller builds a filler for the given tag set. ped may be nil
// if MENDEL was not requested; pops lists the sub-populations (beyond
// the implicit "ALL") to aggregate separately.
func NewTagFiller(tags []Tag, ped *xcf.Pedigree, pops []string) *TagFiller {
	set := make(map[Tag]bool, len(tags))
	for _, t := range tags {
		set[t] = true
	}
	f := &TagFiller{tags: set, pedigree: ped, population: append([]string{"ALL"}, pops...)}
	if ped != nil && set[TagMendel] {
		f.trios = ped.Trios()
	}
	return f
}

// Compute derives this site's requested tags from its full-sample
// genotype vector, restricting each PopulationStats to the samples
// belonging to that population (via the attached pedigree, or every
// sample if no pedigree/population filtering applies).
func (f *TagFiller) Compute(site xcf.Site, gv xcf.GenotypeVector) SiteStats {
	out := SiteStats{}
	if f.tags[TagEND] {
		out.End = site.End()
	}
	if f.tags[TagTYPE] {
		out.Type = site.VariantType()
	}

	for _, pop := range f.population {
		idx := f.sampleIndices(pop, len(gv))
		out.Populations = append(out.Populations, f.computePopulation(pop, gv, idx))
	}

	if f.tags[TagMendel] && f.pedigree != nil {
		m := ComputeMendel(f.trios, gv)
		out.Mendel = &m
	}

	return out
}

func (f *TagFiller) sampleIndices(pop string, n int) []int {
	if pop == "ALL" || f.pedigree == nil {
		idx := make([]int, n)
		for i := range idx {
			idx[i] = i
		}
		return idx
	}
	return f.pedigree.Samples2Pop(pop)
}

func (f *TagFiller) computePopulation(pop string, gv xcf.GenotypeVector, idx []int) PopulationStats {
	var t tally
	for _, i := range idx {
		if i < 0 || i >= len(gv) {
			continue
		}
		t.add(gv[i])
	}

	ps := PopulationStats{Population: pop}
	an, ac := t.an(), t.ac()

	if f.tags[TagAN] {
		ps.AN = an
	}
	if f.tags[TagAC] {
		ps.AC = ac
	}
	if f.tags[TagACHom] {
		ps.ACHom = 2 * t.nHomAlt
	}
	if f.tags[TagACHet] {
		ps.ACHet = t.nHet
	}
	if f.tags[TagNS] {
		ps.NS = t.ns
	}
	if f.tags[TagAF] || f.tags[TagMAF] || f.tags[TagIC] {
		af := 0.0
		if an > 0 {
			af = float64(ac) / float64(an)
		}
		if f.tags[TagAF] {
			ps.AF = af
		}
		if f.tags[TagMAF] {
			ps.MAF = af
			if af > 0.5 {
				ps.MAF = 1 - af
			}
		}
		if f.tags[TagIC] {
			ps.IC = inbreedingCoefficient(t, an)
		}
	}
	if f.tags[TagHWE] || f.tags[TagExcHet] {
		hwe, excHet := HWE(t.nHomRef, t.nHet, t.nHomAlt)
		if f.tags[TagHWE] {
			ps.HWE = hwe
			ps.HWEChiSq = HWEChiSquare(t.nHomRef, t.nHet, t.nHomAlt)
		}
		if f.tags[TagExcHet] {
			ps.ExcHet = excHet
		}
	}
	return ps
}

// inbreedingCoefficient computes IC = 1 - nhet/(2*p*q*N_called) with
// p = (2*nHomRef+nHet)/AN, q = 1-p.
func inbreedingCoefficient(t tally, an int) float64 {
	nCalled := t.nHomRef + t.nHomAlt + t.nHet
	if nCalled == 0 || an == 0 {
		return 0
	}
	p := float64(2*t.nHomRef+t.nHet) / float64(an)
	q := 1 - p
	denom := 2 * p * q * float64(nCalled)
	if denom == 0 {
		return 0
	}
	return 1 - float64(t.nHet)/denom
}
