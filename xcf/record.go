package xcf

import "fmt"

// RecordType enumerates the on-wire record flavours a site can be
// stored as (data model §3.2).
type RecordType int32

const (
	RecordVoid             RecordType = 0 // no payload
	RecordBCFVCFGenotype   RecordType = 1 // genotypes live in FORMAT/GT
	RecordSparseGenotype   RecordType = 2
	RecordSparseHaplotype  RecordType = 3
	RecordBinaryGenotype   RecordType = 4
	RecordBinaryHaplotype  RecordType = 5
	RecordSparsePhaseProbs RecordType = 6
	recordNumberTypes      RecordType = 7
)

func (t RecordType) String() string {
	switch t {
	case RecordVoid:
		return "VOID"
	case RecordBCFVCFGenotype:
		return "BCFVCF_GENOTYPE"
	case RecordSparseGenotype:
		return "SPARSE_GENOTYPE"
	case RecordSparseHaplotype:
		return "SPARSE_HAPLOTYPE"
	case RecordBinaryGenotype:
		return "BINARY_GENOTYPE"
	case RecordBinaryHaplotype:
		return "BINARY_HAPLOTYPE"
	case RecordSparsePhaseProbs:
		return "SPARSE_PHASEPROBS"
	default:
		return fmt.Sprintf("RecordType(%d)", int32(t))
	}
}

// Valid reports whether t is one of the seven defined record types.
func (t RecordType) Valid() bool { return t >= RecordVoid && t < recordNumberTypes }

// MOD30BITS is the modulus used to split a side-car byte offset into
// the hi30/lo30 pair stored in INFO/SEEK.
const MOD30BITS = 1 << 30

// Seek is the four-integer INFO/SEEK tuple: (type, hi30, lo30, nbytes).
// The absolute byte offset into the side-car is hi30*2^30 + lo30.
type Seek struct {
	Type   RecordType
	Hi30   int32
	Lo30   int32
	NBytes int32
}

// Offset reconstructs the absolute side-car byte offset.
func (s Seek) Offset() int64 {
	return int64(s.Hi30)*MOD30BITS + int64(s.Lo30)
}

// NewSeek builds a Seek tuple for a payload of nbytes written at
// offset for the given record type.
func NewSeek(t RecordType, offset int64, nbytes int) Seek {
	return Seek{
		Type:   t,
		Hi30:   int32(offset / MOD30BITS),
		Lo30:   int32(offset % MOD30BITS),
		NBytes: int32(nbytes),
	}
}

// Ints returns the tuple as the four INFO/SEEK integers, in the order
// they are written to the companion file.
func (s Seek) Ints() [4]int32 { return [4]int32{int32(s.Type), s.Hi30, s.Lo30, s.NBytes} }

// SeekFromInts parses the four INFO/SEEK integers read back from a
// companion record.
func SeekFromInts(v [4]int32) Seek {
	return Seek{Type: RecordType(v[0]), Hi30: v[1], Lo30: v[2], NBytes: v[3]}
}

// Site is the per-position metadata that lives in the companion
// BCF/VCF: (chrom, position, rsid, ref, alt, AC, AN). Sites are
// transient — owned by whichever reader produced them, copied out by
// the caller before the reader advances.
type Site struct {
	Chrom string
	Pos   uint32
	Rsid  string
	Ref   string
	Alt   string
	AC    uint32
	AN    uint32
}

// AF returns the alt allele frequency, or 0 if AN is 0.
func (s Site) AF() float64 {
	if s.AN == 0 {
		return 0
	}
	return float64(s.AC) / float64(s.AN)
}

// MajorIsAlt reports whether the alt allele is the major allele, i.e.
// AF > 0.5.
func (s Site) MajorIsAlt() bool { return s.AF() > 0.5 }

// MAF returns min(AF, 1-AF).
func (s Site) MAF() float64 {
	af := s.AF()
	if af > 0.5 {
		return 1 - af
	}
	return af
}

// End returns the variant end position (pos + len(ref) - 1 in 1-based
// inclusive terms, following the fill-tags END tag).
func (s Site) End() uint32 {
	if len(s.Ref) == 0 {
		return s.Pos
	}
	return s.Pos + uint32(len(s.Ref)) - 1
}

// VariantType classifies a biallelic site the way fill-tags' TYPE tag
// does.
func (s Site) VariantType() string {
	switch {
	case len(s.Ref) == 1 && len(s.Alt) == 1:
		return "SNP"
	case len(s.Ref) != len(s.Alt):
		return "INDEL"
	default:
		return "MNP"
	}
}

// Genotype is one sample's diploid call. A0/A1 are -1 for a missing
// allele; Phased distinguishes 0/1 from 1/0 (unphased hets carry
// Phased=false and the convention Al0<=Al1).
type Genotype struct {
	A0, A1 int8
	Phased bool
}

// IsMissing reports whether either allele is missing.
func (g Genotype) IsMissing() bool { return g.A0 < 0 || g.A1 < 0 }

// IsHet reports whether the two alleles differ (a missing allele never
// counts as het).
func (g Genotype) IsHet() bool { return !g.IsMissing() && g.A0 != g.A1 }

// Dosage returns the alt-allele count in {0,1,2}, or -1 if missing.
func (g Genotype) Dosage() int8 {
	if g.IsMissing() {
		return -1
	}
	return g.A0 + g.A1
}

// MissingGenotype is the canonical missing call.
var MissingGenotype = Genotype{A0: -1, A1: -1}

// GenotypeVector is the decoded, in-memory representation of one
// site's diploid calls across N samples.
type GenotypeVector []Genotype

// HaplotypeVector is the decoded, in-memory representation of one
// site's 2N haplotype alleles; index 2i/2i+1 are sample i's two
// haplotypes. Missing haplotypes are disallowed by construction.
type HaplotypeVector []uint8

// ToHaplotypeVector converts a fully-phased, non-missing genotype
// vector into a haplotype vector. It fails with KindFormat
// (MissingInPhased) if any genotype is missing.
func (gv GenotypeVector) ToHaplotypeVector() (HaplotypeVector, error) {
	hv := make(HaplotypeVector, 2*len(gv))
	for i, g := range gv {
		if g.IsMissing() {
			return nil, errorf("xcf.GenotypeVector.ToHaplotypeVector", KindFormat,
				"sample %d is missing; haplotype encodings assume no missing data", i)
		}
		hv[2*i] = uint8(g.A0)
		hv[2*i+1] = uint8(g.A1)
	}
	return hv, nil
}

// ToGenotypeVector converts a haplotype vector back into genotype
// calls; phase is always retained (haplotype vectors carry no missing
// data, so there is nothing to normalise).
func (hv HaplotypeVector) ToGenotypeVector() GenotypeVector {
	n := len(hv) / 2
	gv := make(GenotypeVector, n)
	for i := 0; i < n; i++ {
		a0, a1 := hv[2*i], hv[2*i+1]
		gv[i] = Genotype{A0: int8(a0), A1: int8(a1), Phased: true}
	}
	return gv
}

// Record is the on-wire envelope (record_type, payload_bytes).
type Record struct {
	Type    RecordType
	Payload []byte
}
