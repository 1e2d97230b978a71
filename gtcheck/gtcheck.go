// Package gtcheck implements a parallel two-file differ for XCF
// companions: it walks two files site by site, summarizes each side's
// genotype calls, and flags sites whose summaries diverge by more than
// a phasing-aware tolerance.
//
// Grounded on original_source's gtcheck tool (gtcheck_algorithm.cpp):
// the per-side (AN, AC, nhom0, nhet, nhom1, mis, is_phased) summary and
// the phased-vs-unphased tolerant comparison.
package gtcheck

import "github.com/statgen/xcftools/xcf"

// Summary is one side's per-site genotype tally, the unit both sides
// are compared on.
type Summary struct {
	AN       int
	AC       int
	NHomRef  int
	NHet     int
	NHomAlt  int
	NMiss    int
	IsPhased bool // true only if every non-missing call is phased
}

// Summarize reduces gv to its per-site Summary.
func Summarize(gv xcf.GenotypeVector) Summary {
	var s Summary
	s.IsPhased = true
	for _, g := range gv {
		if g.IsMissing() {
			s.NMiss++
			continue
		}
		if !g.Phased {
			s.IsPhased = false
		}
		s.AN += 2
		s.AC += int(g.A0) + int(g.A1)
		switch {
		case g.A0 == 0 && g.A1 == 0:
			s.NHomRef++
		case g.A0 == 1 && g.A1 == 1:
			s.NHomAlt++
		default:
			s.NHet++
		}
	}
	return s
}

// Diff is one field's discrepancy between two summaries.
type Diff struct {
	Field string
	V1    int
	V2    int
}

// Tolerance is the per-count slack allowed when comparing a phased
// summary against an unphased one, expressed as k in |diff| <= k*mis,
// where mis is the unphased side's missing-sample count. A missing
// diploid call accounts for up to two alleles of AN and AC, hence 2.
const Tolerance = 2

// Compare reduces two sides' summaries to the list of fields that
// differ beyond the allowed tolerance. When both sides agree on
// phasing, any difference at all is reported (tolerance 0); when one
// side is phased and the other is not, each count may differ by up to
// Tolerance * the unphased side's missing count before being flagged.
func Compare(s1, s2 Summary) []Diff {
	k := 0
	if s1.IsPhased != s2.IsPhased {
		mis := s1.NMiss
		if s1.IsPhased {
			mis = s2.NMiss
		}
		k = Tolerance * mis
	}

	fields := []struct {
		name   string
		v1, v2 int
	}{
		{"AN", s1.AN, s2.AN},
		{"AC", s1.AC, s2.AC},
		{"NHOMREF", s1.NHomRef, s2.NHomRef},
		{"NHET", s1.NHet, s2.NHet},
		{"NHOMALT", s1.NHomAlt, s2.NHomAlt},
	}

	var diffs []Diff
	for _, f := range fields {
		d := f.v1 - f.v2
		if d < 0 {
			d = -d
		}
		if d > k {
			diffs = append(diffs, Diff{Field: f.name, V1: f.v1, V2: f.v2})
		}
	}
	return diffs
}

// SampleMismatch identifies the first sample (if any, in deep-check
// mode) whose per-sample dosage disagrees between the two sides.
type SampleMismatch struct {
	Sample int
	Dosage1, Dosage2 int8
}

// CompareDosages walks gv1/gv2 sample by sample (deep-check mode) and
// returns the first disagreeing sample, or ok=false if every sample
// agrees (a missing dosage on either side is never itself a mismatch,
// matching the summary-level tolerance for phasing/missingness noise).
func CompareDosages(gv1, gv2 xcf.GenotypeVector) (SampleMismatch, bool) {
	n := len(gv1)
	if len(gv2) < n {
		n = len(gv2)
	}
	for i := 0; i < n; i++ {
		d1, d2 := gv1[i].Dosage(), gv2[i].Dosage()
		if d1 < 0 || d2 < 0 {
			continue
		}
		if d1 != d2 {
			return SampleMismatch{Sample: i, Dosage1: d1, Dosage2: d2}, true
		}
	}
	return SampleMismatch{}, false
}

// SiteResult is the outcome of comparing one shared site.
type SiteResult struct {
	Site         xcf.Site
	Summary1     Summary
	Summary2     Summary
	Diffs        []Diff
	DeepMismatch *SampleMismatch // non-nil only in deep-check mode, when Diffs is non-empty and a sample-level mismatch was found
}

// Mismatched reports whether this site disagreed between the two
// files.
func (r SiteResult) Mismatched() bool { return len(r.Diffs) > 0 }

// Report summarizes a full two-file comparison run.
type Report struct {
	NTotal     int
	NEqual     int
	NMismatch  int
	Mismatches []SiteResult
}

// PercentMatch returns the fraction of compared sites that agreed, in
// [0,100]; 100 when no sites were compared.
func (r Report) PercentMatch() float64 {
	if r.NTotal == 0 {
		return 100
	}
	return 100 * float64(r.NEqual) / float64(r.NTotal)
}

// Checker drives the shared-site comparison across a synchronized
// XcfReader carrying exactly two files (file indices 0 and 1).
type Checker struct {
	DeepCheck bool
}

// NewChecker returns a Checker with deep per-sample comparison
// disabled; set DeepCheck to enable it.
func NewChecker(deepCheck bool) *Checker { return &Checker{DeepCheck: deepCheck} }

// CompareSite compares one shared site's decoded genotype vectors and
// returns its SiteResult.
func (c *Checker) CompareSite(site xcf.Site, gv1, gv2 xcf.GenotypeVector) SiteResult {
	s1, s2 := Summarize(gv1), Summarize(gv2)
	res := SiteResult{Site: site, Summary1: s1, Summary2: s2, Diffs: Compare(s1, s2)}
	if c.DeepCheck && res.Mismatched() {
		if mm, ok := CompareDosages(gv1, gv2); ok {
			res.DeepMismatch = &mm
		}
	}
	return res
}

// Run drives the comparison across every site shared by both files
// tracked in r (which must carry exactly two files, added via
// AddFile), accumulating a Report. Sites present in only one file are
// skipped — gtcheck only ever judges shared positions.
func (c *Checker) Run(r *xcf.XcfReader, nSamples int) (Report, error) {
	var rep Report
	for {
		more, err := r.Next()
		if err != nil {
			return rep, err
		}
		if !more {
			break
		}
		has0, has1 := r.HasRecord(0), r.HasRecord(1)
		if !has0 || !has1 {
			if has0 {
				if _, err := r.ReadRecord(0, nSamples); err != nil {
					return rep, err
				}
			}
			if has1 {
				if _, err := r.ReadRecord(1, nSamples); err != nil {
					return rep, err
				}
			}
			continue
		}

		site, _ := r.CurrentSite()
		gv1, err := r.ReadRecord(0, nSamples)
		if err != nil {
			return rep, err
		}
		gv2, err := r.ReadRecord(1, nSamples)
		if err != nil {
			return rep, err
		}

		res := c.CompareSite(site, gv1, gv2)
		rep.NTotal++
		if res.Mismatched() {
			rep.NMismatch++
			rep.Mismatches = append(rep.Mismatches, res)
		} else {
			rep.NEqual++
		}
	}
	return rep, nil
}
