package filltags

import "github.com/statgen/xcftools/xcf"

// MendelStats is one site's Mendelian-inheritance summary across every
// trio/duo discovered from the pedigree.
type MendelStats struct {
	MERRCnt       int
	MTotAll       int
	MTotMinor     int
	MERRRateAll   float64
	MERRRateMinor float64
}

// transmittableAlleles returns the alt-allele values a parent with the
// given dosage could pass to a child: a homozygous parent always
// transmits the same allele, a heterozygous parent may transmit
// either.
func transmittableAlleles(dosage int8) []int8 {
	switch dosage {
	case 0:
		return []int8{0}
	case 2:
		return []int8{1}
	default:
		return []int8{0, 1}
	}
}

// mendelianConsistent reports whether childDosage could arise from the
// given (possibly incomplete) set of parental dosages. A missing
// parent (nil entry) is treated as contributing either allele, so a
// duo check only rules out the combinations a present parent could
// never explain.
func mendelianConsistent(childDosage int8, father, mother *int8) bool {
	fatherOpts := []int8{0, 1}
	if father != nil {
		fatherOpts = transmittableAlleles(*father)
	}
	motherOpts := []int8{0, 1}
	if mother != nil {
		motherOpts = transmittableAlleles(*mother)
	}
	for _, fa := range fatherOpts {
		for _, ma := range motherOpts {
			if fa+ma == childDosage {
				return true
			}
		}
	}
	return false
}

// isMajorHomozygote reports whether dosage is the homozygous call of
// the major allele: dosage 2 when ALT is the major allele, dosage 0
// otherwise.
func isMajorHomozygote(dosage int8, altIsMajor bool) bool {
	if altIsMajor {
		return dosage == 2
	}
	return dosage == 0
}

// ComputeMendel scores every trio/duo against gv's dosages, counting
// violations (MERR_CNT) and totals both across every family whose
// child and at least one parent are called (MTOT_ALL) and across those
// families where at least one present member is not homozygous-major
// (MTOT_MINOR). The major allele follows Site.MajorIsAlt applied to
// the AC/AN of gv's called alleles.
func ComputeMendel(trios []xcf.Trio, gv xcf.GenotypeVector) MendelStats {
	var s MendelStats
	var ac, an uint32
	for _, g := range gv {
		if !g.IsMissing() {
			ac += uint32(g.Dosage())
			an += 2
		}
	}
	altIsMajor := xcf.Site{AC: ac, AN: an}.MajorIsAlt()
	for _, trio := range trios {
		childDosage, ok := dosageAt(gv, trio.Child)
		if !ok {
			continue
		}
		fatherDosage, hasFather := dosageAt(gv, trio.Father)
		motherDosage, hasMother := dosageAt(gv, trio.Mother)
		if !hasFather && !hasMother {
			continue
		}

		var fp, mp *int8
		if hasFather {
			fp = &fatherDosage
		}
		if hasMother {
			mp = &motherDosage
		}

		s.MTotAll++
		allMajor := isMajorHomozygote(childDosage, altIsMajor)
		if hasFather {
			allMajor = allMajor && isMajorHomozygote(fatherDosage, altIsMajor)
		}
		if hasMother {
			allMajor = allMajor && isMajorHomozygote(motherDosage, altIsMajor)
		}
		if !allMajor {
			s.MTotMinor++
		}

		if !mendelianConsistent(childDosage, fp, mp) {
			s.MERRCnt++
		}
	}

	if s.MTotAll > 0 {
		s.MERRRateAll = float64(s.MERRCnt) / float64(s.MTotAll)
	}
	if s.MTotMinor > 0 {
		s.MERRRateMinor = float64(s.MERRCnt) / float64(s.MTotMinor)
	}
	return s
}

func dosageAt(gv xcf.GenotypeVector, idx int) (int8, bool) {
	if idx < 0 || idx >= len(gv) {
		return 0, false
	}
	g := gv[idx]
	if g.IsMissing() {
		return 0, false
	}
	return g.Dosage(), true
}
