package filltags

import "gonum.org/v1/gonum/stat/distuv"

// HWE computes the exact two-sided Hardy-Weinberg equilibrium p-value
// and the one-sided excess-heterozygosity p-value from a site's
// homozygous-ref/het/homozygous-alt genotype tallies.
//
// Ported line for line from the Wigginton (2005) recurrence in
// original_source's fill_tags_algorithm.cpp calc_hwe: start the
// heterozygote-probability table at the midpoint implied by the rarer
// allele's copy number, extend outward in both directions via the
// symmetric ratio update, normalize, then sum every probability at
// most as large as the observed heterozygote count's probability.
func HWE(nHomRef, nHet, nHomAlt int) (hwe, excHet float64) {
	nref := 2*nHomRef + nHet
	nalt := 2*nHomAlt + nHet
	if nref == 0 || nalt == 0 {
		return 1, 1
	}

	ngt := nHomRef + nHet + nHomAlt
	nrare := nref
	if nalt < nrare {
		nrare = nalt
	}

	probs := make([]float64, nrare+1)

	mid := nrare * (nref + nalt - nrare) / (nref + nalt)
	if (nrare & 1) != (mid & 1) {
		mid++
	}

	homR := (nrare - mid) / 2
	homC := ngt - mid - homR
	probs[mid] = 1.0
	sum := probs[mid]

	for het, hr, hc := mid, homR, homC; het > 1; het -= 2 {
		probs[het-2] = probs[het] * float64(het) * float64(het-1) / (4.0 * float64(hr+1) * float64(hc+1))
		sum += probs[het-2]
		hr++
		hc++
	}

	for het, hr, hc := mid, homR, homC; het <= nrare-2; het += 2 {
		probs[het+2] = probs[het] * 4.0 * float64(hr) * float64(hc) / (float64(het+2) * float64(het+1))
		sum += probs[het+2]
		hr--
		hc--
	}

	for i := range probs {
		probs[i] /= sum
	}

	excHet = probs[nHet]
	for het := nHet + 1; het <= nrare; het++ {
		excHet += probs[het]
	}

	hwe = 0
	for het := 0; het <= nrare; het++ {
		if probs[het] > probs[nHet] {
			continue
		}
		hwe += probs[het]
	}
	if hwe > 1 {
		hwe = 1
	}
	return hwe, excHet
}

// HWEChiSquare computes the one-degree-of-freedom chi-square p-value
// for departure from Hardy-Weinberg equilibrium, the faster
// approximation offered alongside the exact HWE test.
//
// Ported from calc_hwe_chisq: expected genotype counts under HWE from
// the reference-allele frequency, chi-square statistic across the
// three genotype classes, upper-tail p-value from a chi-square(1)
// distribution.
func HWEChiSquare(nHomRef, nHet, nHomAlt int) float64 {
	an := 2 * (nHomRef + nHet + nHomAlt)
	if an == 0 {
		return 1
	}
	nref := 2*nHomRef + nHet
	ng := float64(an) / 2
	p := float64(nref) / float64(an)
	q := 1 - p

	expHomRef := p * p * ng
	expHomAlt := q * q * ng
	expHet := 2 * p * q * ng
	if expHomRef == 0 || expHomAlt == 0 || expHet == 0 {
		return 1
	}

	dHomRef := float64(nHomRef) - expHomRef
	dHomAlt := float64(nHomAlt) - expHomAlt
	dHet := float64(nHet) - expHet
	chiSquare := dHomRef*dHomRef/expHomRef + dHet*dHet/expHet + dHomAlt*dHomAlt/expHomAlt

	dist := distuv.ChiSquared{K: 1}
	return 1 - dist.CDF(chiSquare)
}
