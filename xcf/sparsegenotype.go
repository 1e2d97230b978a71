package xcf

// SparseGenotype is the 32-bit packed encoding of a single non-major
// diploid genotype: idx:27, het:1, mis:1, al0:1, al1:1, pha:1 (high
// bits first). It backs RECORD_SPARSE_GENOTYPE and the index half of
// RECORD_SPARSE_PHASEPROBS.
type SparseGenotype struct {
	Idx uint32 // sample index, < 2^27
	Het bool   // heterozygous
	Mis bool   // missing; if true, Al0/Al1 are not meaningful
	Al0 bool   // allele on haplotype 0 (ignored if Mis)
	Al1 bool   // allele on haplotype 1 (ignored if Mis)
	Pha bool   // phase was declared
}

const sparseGenotypeIdxBits = 27
const sparseGenotypeIdxLimit = 1 << sparseGenotypeIdxBits

// PackSparseGenotype packs g into its 32-bit wire form. It fails with
// KindEncodingOverflow if g.Idx does not fit in 27 bits.
func PackSparseGenotype(g SparseGenotype) (uint32, error) {
	if g.Idx >= sparseGenotypeIdxLimit {
		return 0, errorf("xcf.PackSparseGenotype", KindEncodingOverflow,
			"sample index %d exceeds the 27-bit SparseGenotype limit (%d)", g.Idx, sparseGenotypeIdxLimit)
	}
	var v uint32
	v = g.Idx << 5
	v |= boolBit(g.Het) << 4
	v |= boolBit(g.Mis) << 3
	v |= boolBit(g.Al0) << 2
	v |= boolBit(g.Al1) << 1
	v |= boolBit(g.Pha)
	return v, nil
}

// UnpackSparseGenotype never fails: every 32-bit pattern decodes to
// some (possibly nonsensical, per the packing invariants) SparseGenotype.
func UnpackSparseGenotype(v uint32) SparseGenotype {
	return SparseGenotype{
		Idx: v >> 5,
		Het: v&(1<<4) != 0,
		Mis: v&(1<<3) != 0,
		Al0: v&(1<<2) != 0,
		Al1: v&(1<<1) != 0,
		Pha: v&1 != 0,
	}
}

func boolBit(b bool) uint32 {
	if b {
		return 1
	}
	return 0
}

// NewSparseGenotype builds the SparseGenotype for sample idx given its
// two allele calls (al0, al1; -1 for missing) and whether phase was
// observed. A non-het, non-missing entry is treated as phased by
// construction, per the packing invariants in the codec design.
func NewSparseGenotype(idx uint32, al0, al1 int8, phaseObserved bool) SparseGenotype {
	if al0 < 0 || al1 < 0 {
		return SparseGenotype{Idx: idx, Mis: true}
	}
	het := al0 != al1
	return SparseGenotype{
		Idx: idx,
		Het: het,
		Al0: al0 != 0,
		Al1: al1 != 0,
		Pha: !het || phaseObserved,
	}
}
