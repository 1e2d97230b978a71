// Package ligate implements the phase-swap resolution and record
// hand-off used to concatenate overlapping, independently-phased
// chunks into one continuously-phased companion file.
//
// Grounded on original_source's concat_algorithm.cpp: scan_overlap
// (per-sample match/mismatch accumulation and the entropy-inspired
// phase-quality score), update_distances (the match/mismatch
// decision rule), and phase_update (applying a resolved swap to a
// het, phased genotype).
package ligate

import (
	"math"

	"github.com/statgen/xcftools/xcf"
)

// CheckSampleLists verifies that every shard declares the same sample
// names in the same order, the precondition for ligating their
// genotype vectors sample-for-sample.
func CheckSampleLists(shards [][]string) error {
	if len(shards) < 2 {
		return nil
	}
	first := shards[0]
	for _, s := range shards[1:] {
		if len(s) != len(first) {
			return xcf.NewFormatError("ligate.CheckSampleLists", "shards declare different sample counts")
		}
		for i := range first {
			if s[i] != first[i] {
				return xcf.NewFormatError("ligate.CheckSampleLists", "shards declare different sample names or order")
			}
		}
	}
	return nil
}

// CheckAscendingOrder verifies that each shard's first position on a
// shared chromosome is not less than the previous shard's, the
// bcftools-derived "files not in ascending order" pre-flight check.
func CheckAscendingOrder(startChrom []string, startPos []int64) error {
	for i := 1; i < len(startPos); i++ {
		if startPos[i-1] < 0 || startPos[i] < 0 {
			continue // one of the two starts a new chromosome; no ordering constraint
		}
		if startChrom[i-1] != startChrom[i] {
			continue
		}
		if startPos[i] < startPos[i-1] {
			return xcf.NewFormatError("ligate.CheckAscendingOrder", "shard start positions are not ascending")
		}
	}
	return nil
}

// CheckSiteCompatible verifies that two shards' records at the same
// (chrom, pos) agree on REF/ALT, the definition of "the same site"
// ligation relies on before merging two files' genotype calls there.
// A chunking pipeline that emits different alleles at a shared
// position is a real failure mode, not a phase-swap ambiguity, so it
// is rejected outright rather than merged.
func CheckSiteCompatible(a, b xcf.Site) error {
	if a.Ref != b.Ref || a.Alt != b.Alt {
		return xcf.NewFormatError("ligate.CheckSiteCompatible", "IncompatibleShard: %s:%d has REF=%s,ALT=%s in one shard and REF=%s,ALT=%s in the other", a.Chrom, a.Pos, a.Ref, a.Alt, b.Ref, b.Alt)
	}
	return nil
}

// MaxConcurrentOverlap is the maximum number of shards this engine
// will read at once; a third shard beginning before the current pair
// has finished overlapping means the chunking scheme produced more
// than a pairwise overlap, which the algorithm below cannot resolve.
const MaxConcurrentOverlap = 2

// CheckOverlapWidth rejects a third shard starting before the active
// pair's overlap has ended, the "Three files overlapping" failure
// mode of the original concatenation driver.
func CheckOverlapWidth(active int) error {
	if active > MaxConcurrentOverlap {
		return xcf.NewFormatError("ligate.CheckOverlapWidth", "too many shards overlap at once (%d active, max %d)", active, MaxConcurrentOverlap)
	}
	return nil
}

// Overlap accumulates per-sample switch-match/switch-mismatch counts
// across the phased sites two shards share, then resolves a swap
// decision and a phase-quality score for each sample. Overlap is
// stateful across successive shard-pair hand-offs: Swap starts all
// false for the first two shards, and after each Resolve becomes the
// baseline for interpreting the NEXT pair's match/mismatch counts
// (mirroring concat_algorithm.cpp carrying swap_phase[0] forward as
// swap_phase[1] between buffers).
type Overlap struct {
	Swap      []bool
	nmatch    []int
	nmism     []int
	sitesSeen int
}

// NewOverlap returns an accumulator for n samples with no swaps yet
// decided.
func NewOverlap(n int) *Overlap {
	return &Overlap{
		Swap:   make([]bool, n),
		nmatch: make([]int, n),
		nmism:  make([]int, n),
	}
}

// Accumulate folds one shared, biallelic, fully genotyped site's two
// independently-phased calls (a from the earlier shard, b from the
// later one) into the running match/mismatch counts. Samples that are
// missing, unphased, or homozygous in either call carry no phase
// information and are skipped.
func (o *Overlap) Accumulate(a, b xcf.GenotypeVector) {
	o.sitesSeen++
	n := len(a)
	if len(b) < n {
		n = len(b)
	}
	for i := 0; i < n; i++ {
		ga, gb := a[i], b[i]
		if ga.IsMissing() || gb.IsMissing() {
			continue
		}
		if !ga.Phased || !gb.Phased {
			continue
		}
		if !ga.IsHet() || !gb.IsHet() {
			continue
		}
		switch {
		case ga.A0 == gb.A0 && ga.A1 == gb.A1:
			if o.Swap[i] {
				o.nmism[i]++
			} else {
				o.nmatch[i]++
			}
		case ga.A0 == gb.A1 && ga.A1 == gb.A0:
			if o.Swap[i] {
				o.nmatch[i]++
			} else {
				o.nmism[i]++
			}
		}
	}
}

// SitesSeen reports how many sites have been folded in since the last
// Resolve.
func (o *Overlap) SitesSeen() int { return o.sitesSeen }

// ResolveResult is the per-sample outcome of an Overlap.Resolve call.
type ResolveResult struct {
	Swap    []bool
	Quality []float64 // 0-99, entropy-inspired phase confidence; 99 when a sample had no informative sites
	NSwap   int
}

// Resolve decides, for each sample, whether the later shard should be
// phase-swapped relative to the earlier one (true when mismatches
// outnumber matches), scores that decision's confidence, replaces
// o.Swap with the new decision so the next Accumulate call uses it as
// its baseline, and clears the running counts.
func (o *Overlap) Resolve() ResolveResult {
	n := len(o.Swap)
	res := ResolveResult{Swap: make([]bool, n), Quality: make([]float64, n)}
	for i := 0; i < n; i++ {
		swap := o.nmatch[i] < o.nmism[i]
		res.Swap[i] = swap
		res.Quality[i] = phaseQuality(o.nmatch[i], o.nmism[i])
		if swap {
			res.NSwap++
		}
		o.nmatch[i] = 0
		o.nmism[i] = 0
	}
	o.Swap = res.Swap
	o.sitesSeen = 0
	return res
}

// phaseQuality is the entropy-inspired phase-swap confidence score:
// 99 when a sample saw no informative (het/het) overlap sites,
// otherwise 99*(0.7 + f*ln(f) + (1-f)*ln(1-f))/0.7 where f is the
// fraction of sites agreeing with the chosen orientation. The score
// approaches 99 as f approaches 0 or 1 (a confident swap decision
// either way) and dips toward 0 as f approaches 0.5 (a coin flip).
func phaseQuality(nmatch, nmism int) float64 {
	if nmatch == 0 || nmism == 0 {
		return 99
	}
	f := float64(nmatch) / float64(nmatch+nmism)
	return 99 * (0.7 + f*math.Log(f) + (1-f)*math.Log(1-f)) / 0.7
}

// ApplyPhaseSwap flips A0/A1 for every sample marked in swap, in
// place, returning gv for convenience. Only phased, non-missing calls
// carry meaningful haplotype assignment; swapping a homozygous call is
// a no-op, matching phase_update's unconditional-but-harmless flip.
func ApplyPhaseSwap(gv xcf.GenotypeVector, swap []bool) xcf.GenotypeVector {
	for i := range gv {
		if i >= len(swap) || !swap[i] {
			continue
		}
		g := gv[i]
		if g.IsMissing() || !g.Phased {
			continue
		}
		g.A0, g.A1 = g.A1, g.A0
		gv[i] = g
	}
	return gv
}

// HandoffPoint returns the index, within an overlap region of
// nOverlapSites shared sites, at which record emission should switch
// from the earlier shard to the later one: the earlier shard supplies
// the first half of the overlap, the later shard the second half,
// following concat_algorithm.cpp's `nsites_buff_d2` midpoint split.
func HandoffPoint(nOverlapSites int) int { return nOverlapSites / 2 }
