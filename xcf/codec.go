package xcf

import (
	"encoding/binary"
	"math"
)

// Family is the encoding family requested by a caller of EncodeSite;
// the concrete RecordType chosen also depends on whether the site is
// rare (component design §4.5).
type Family int

const (
	FamilyGenotype Family = iota
	FamilyHaplotype
	FamilyPhaseProbs
)

// EncodeOptions parameterises EncodeSite.
type EncodeOptions struct {
	Family       Family
	MAFThreshold float64
	// Probs holds one phase-quality probability per sample, indexed by
	// sample index; only consulted for FamilyPhaseProbs. A nil Probs
	// falls back to SPARSE_HAPLOTYPE for rare sites, as the family
	// table allows.
	Probs []float32
}

// IsRare reports whether site's MAF falls below threshold.
func IsRare(site Site, threshold float64) bool { return site.MAF() < threshold }

// EncodeSite selects a concrete RecordType from (opt.Family, IsRare)
// and encodes gv into it.
func EncodeSite(gv GenotypeVector, site Site, opt EncodeOptions) (Record, error) {
	rare := IsRare(site, opt.MAFThreshold)
	switch opt.Family {
	case FamilyGenotype:
		if rare {
			return EncodeSparseGenotype(gv, site)
		}
		return EncodeBinaryGenotype(gv)
	case FamilyHaplotype:
		hv, err := gv.ToHaplotypeVector()
		if err != nil {
			return Record{}, err
		}
		if rare {
			return EncodeSparseHaplotype(hv, site)
		}
		return EncodeBinaryHaplotype(hv)
	case FamilyPhaseProbs:
		if !rare {
			hv, err := gv.ToHaplotypeVector()
			if err != nil {
				return Record{}, err
			}
			return EncodeBinaryHaplotype(hv)
		}
		if opt.Probs == nil {
			hv, err := gv.ToHaplotypeVector()
			if err != nil {
				return Record{}, err
			}
			return EncodeSparseHaplotype(hv, site)
		}
		return EncodeSparsePhaseProbs(gv, site, opt.Probs)
	default:
		return Record{}, errorf("xcf.EncodeSite", KindConfiguration, "unknown encoding family %d", opt.Family)
	}
}

// DecodeSite dispatches on rec.Type and decodes into a GenotypeVector
// of length n. site supplies the major-allele convention needed by the
// sparse encodings; it is ignored by the dense encodings.
func DecodeSite(rec Record, n int, site Site) (GenotypeVector, error) {
	switch rec.Type {
	case RecordVoid:
		return nil, errorf("xcf.DecodeSite", KindFormat, "no record to decode (RECORD_VOID)")
	case RecordSparseGenotype:
		return DecodeSparseGenotype(rec.Payload, n, site)
	case RecordSparseHaplotype:
		hv, err := DecodeSparseHaplotype(rec.Payload, n, site)
		if err != nil {
			return nil, err
		}
		return hv.ToGenotypeVector(), nil
	case RecordBinaryGenotype:
		return DecodeBinaryGenotype(rec.Payload, n)
	case RecordBinaryHaplotype:
		hv, err := DecodeBinaryHaplotype(rec.Payload, n)
		if err != nil {
			return nil, err
		}
		return hv.ToGenotypeVector(), nil
	case RecordSparsePhaseProbs:
		pp, err := DecodeSparsePhaseProbs(rec.Payload, n, site)
		if err != nil {
			return nil, err
		}
		return pp.GT, nil
	default:
		return nil, errorf("xcf.DecodeSite", KindFormat, "unsupported record type %s", rec.Type)
	}
}

// --- SPARSE_GENOTYPE -------------------------------------------------

func majorAllele(site Site) int8 {
	if site.MajorIsAlt() {
		return 1
	}
	return 0
}

func isHomozygousMajor(g Genotype, major int8) bool {
	return !g.IsMissing() && g.A0 == major && g.A1 == major
}

// EncodeSparseGenotype writes every sample that is not homozygous for
// the site's major allele (including missing samples) as one 32-bit
// SparseGenotype entry, in ascending sample-index order.
func EncodeSparseGenotype(gv GenotypeVector, site Site) (Record, error) {
	major := majorAllele(site)
	buf := make([]byte, 0, 4*len(gv)/8+4)
	var tmp [4]byte
	for i, g := range gv {
		if isHomozygousMajor(g, major) {
			continue
		}
		sg := NewSparseGenotype(uint32(i), g.A0, g.A1, g.Phased)
		packed, err := PackSparseGenotype(sg)
		if err != nil {
			return Record{}, wrapErr("xcf.EncodeSparseGenotype", KindEncodingOverflow, err)
		}
		binary.LittleEndian.PutUint32(tmp[:], packed)
		buf = append(buf, tmp[:]...)
	}
	return Record{Type: RecordSparseGenotype, Payload: buf}, nil
}

// DecodeSparseGenotype fills implicit entries with the homozygous
// major genotype and overlays the explicitly stored entries.
func DecodeSparseGenotype(payload []byte, n int, site Site) (GenotypeVector, error) {
	if len(payload)%4 != 0 {
		return nil, errorf("xcf.DecodeSparseGenotype", KindFormat, "payload length %d is not a multiple of 4", len(payload))
	}
	major := majorAllele(site)
	gv := make(GenotypeVector, n)
	for i := range gv {
		gv[i] = Genotype{A0: major, A1: major, Phased: true}
	}
	for off := 0; off < len(payload); off += 4 {
		sg := UnpackSparseGenotype(binary.LittleEndian.Uint32(payload[off : off+4]))
		if int(sg.Idx) >= n {
			return nil, errorf("xcf.DecodeSparseGenotype", KindFormat, "sample index %d out of range for N=%d", sg.Idx, n)
		}
		g := Genotype{Phased: sg.Pha}
		if sg.Mis {
			g.A0, g.A1 = -1, -1
		} else {
			g.A0, g.A1 = boolAllele(sg.Al0), boolAllele(sg.Al1)
		}
		gv[sg.Idx] = g
	}
	return gv, nil
}

func boolAllele(b bool) int8 {
	if b {
		return 1
	}
	return 0
}

// --- BINARY_GENOTYPE ---------------------------------------------------

const (
	binaryGTHomRef  = 0b00
	binaryGTHomAlt  = 0b11
	binaryGTHet     = 0b01
	binaryGTMissing = 0b10
)

// EncodeBinaryGenotype packs 2 bits per sample: 00=0/0, 11=1/1,
// 01=het (unphased), 10=missing.
func EncodeBinaryGenotype(gv GenotypeVector) (Record, error) {
	bv := NewBitvector(2 * len(gv))
	w := newBitWriter(bv)
	for _, g := range gv {
		var code uint8
		switch {
		case g.IsMissing():
			code = binaryGTMissing
		case g.A0 == 0 && g.A1 == 0:
			code = binaryGTHomRef
		case g.A0 == 1 && g.A1 == 1:
			code = binaryGTHomAlt
		default:
			code = binaryGTHet
		}
		w.WriteUint(code, 2)
	}
	return Record{Type: RecordBinaryGenotype, Payload: bv.Bytes()}, nil
}

// DecodeBinaryGenotype is the inverse of EncodeBinaryGenotype. Het
// samples decode as unphased 0/1, matching the wire format's single
// het code.
func DecodeBinaryGenotype(payload []byte, n int) (GenotypeVector, error) {
	need := (2*n + 7) / 8
	if len(payload) < need {
		return nil, errorf("xcf.DecodeBinaryGenotype", KindFormat, "payload has %d bytes, need %d for N=%d", len(payload), need, n)
	}
	r := newBitReader(payload)
	gv := make(GenotypeVector, n)
	for i := range gv {
		switch r.ReadUint(2) {
		case binaryGTHomRef:
			gv[i] = Genotype{A0: 0, A1: 0, Phased: true}
		case binaryGTHomAlt:
			gv[i] = Genotype{A0: 1, A1: 1, Phased: true}
		case binaryGTHet:
			gv[i] = Genotype{A0: 0, A1: 1, Phased: false}
		case binaryGTMissing:
			gv[i] = MissingGenotype
		}
	}
	return gv, nil
}

// --- SPARSE_HAPLOTYPE ---------------------------------------------------

// EncodeSparseHaplotype writes the ascending list of haplotype
// indices whose allele is minor.
func EncodeSparseHaplotype(hv HaplotypeVector, site Site) (Record, error) {
	minor := uint8(1 - majorAllele(site))
	buf := make([]byte, 0, 4*len(hv)/8+4)
	var tmp [4]byte
	for h, allele := range hv {
		if allele != minor {
			continue
		}
		binary.LittleEndian.PutUint32(tmp[:], uint32(h))
		buf = append(buf, tmp[:]...)
	}
	return Record{Type: RecordSparseHaplotype, Payload: buf}, nil
}

// DecodeSparseHaplotype builds the full 2N haplotype vector by
// marking every stored index as minor and leaving the rest at major.
// Unlike the pairwise "is_a1_minor" heuristic in the original
// implementation (spec open question, §9), every haplotype index is
// tracked independently here, so no assumption about adjacent-index
// pairing is needed to tell a homozygous-minor sample apart from two
// unrelated heterozygous samples.
func DecodeSparseHaplotype(payload []byte, n int, site Site) (HaplotypeVector, error) {
	if len(payload)%4 != 0 {
		return nil, errorf("xcf.DecodeSparseHaplotype", KindFormat, "payload length %d is not a multiple of 4", len(payload))
	}
	major := uint8(majorAllele(site))
	minor := 1 - major
	hv := make(HaplotypeVector, 2*n)
	for i := range hv {
		hv[i] = major
	}
	for off := 0; off < len(payload); off += 4 {
		h := binary.LittleEndian.Uint32(payload[off : off+4])
		if int(h) >= 2*n {
			return nil, errorf("xcf.DecodeSparseHaplotype", KindFormat, "haplotype index %d out of range for N=%d", h, n)
		}
		hv[h] = minor
	}
	return hv, nil
}

// --- BINARY_HAPLOTYPE ---------------------------------------------------

// EncodeBinaryHaplotype packs one bit per haplotype, MSB first.
func EncodeBinaryHaplotype(hv HaplotypeVector) (Record, error) {
	bv := NewBitvector(len(hv))
	for i, allele := range hv {
		bv.Set(i, allele != 0)
	}
	return Record{Type: RecordBinaryHaplotype, Payload: bv.Bytes()}, nil
}

// DecodeBinaryHaplotype is the inverse of EncodeBinaryHaplotype.
func DecodeBinaryHaplotype(payload []byte, n int) (HaplotypeVector, error) {
	twoN := 2 * n
	need := (twoN + 7) / 8
	if len(payload) < need {
		return nil, errorf("xcf.DecodeBinaryHaplotype", KindFormat, "payload has %d bytes, need %d for N=%d", len(payload), need, n)
	}
	hv := make(HaplotypeVector, twoN)
	for i := range hv {
		byteIdx := i >> 3
		if payload[byteIdx]&(0x80>>uint(i&7)) != 0 {
			hv[i] = 1
		}
	}
	return hv, nil
}

// --- SPARSE_PHASEPROBS ---------------------------------------------------

// PhaseProbResult is the decode-side result of a SPARSE_PHASEPROBS
// record: the genotype calls plus, per sample, the phase probability
// that was stored for it (1.0 for samples that were not stored, i.e.
// homozygous-major with full confidence).
type PhaseProbResult struct {
	GT    GenotypeVector
	Probs []float32
}

// EncodeSparsePhaseProbs writes the same sparse index list as
// EncodeSparseGenotype, followed by the phase probability of each
// selected sample (opt.Probs, indexed by sample index).
func EncodeSparsePhaseProbs(gv GenotypeVector, site Site, probs []float32) (Record, error) {
	major := majorAllele(site)
	var indices []uint32
	var selected []float32
	for i, g := range gv {
		if isHomozygousMajor(g, major) {
			continue
		}
		sg := NewSparseGenotype(uint32(i), g.A0, g.A1, g.Phased)
		packed, err := PackSparseGenotype(sg)
		if err != nil {
			return Record{}, wrapErr("xcf.EncodeSparsePhaseProbs", KindEncodingOverflow, err)
		}
		indices = append(indices, packed)
		var p float32 = 1
		if i < len(probs) {
			p = probs[i]
		}
		selected = append(selected, p)
	}
	buf := make([]byte, 8*len(indices))
	for i, packed := range indices {
		binary.LittleEndian.PutUint32(buf[4*i:], packed)
	}
	floatBase := 4 * len(indices)
	for i, p := range selected {
		binary.LittleEndian.PutUint32(buf[floatBase+4*i:], math.Float32bits(p))
	}
	return Record{Type: RecordSparsePhaseProbs, Payload: buf}, nil
}

// DecodeSparsePhaseProbs is the inverse of EncodeSparsePhaseProbs.
func DecodeSparsePhaseProbs(payload []byte, n int, site Site) (PhaseProbResult, error) {
	if len(payload)%8 != 0 {
		return PhaseProbResult{}, errorf("xcf.DecodeSparsePhaseProbs", KindFormat, "payload length %d is not a multiple of 8", len(payload))
	}
	m := len(payload) / 8
	major := majorAllele(site)
	gv := make(GenotypeVector, n)
	probs := make([]float32, n)
	for i := range gv {
		gv[i] = Genotype{A0: major, A1: major, Phased: true}
		probs[i] = 1
	}
	floatBase := 4 * m
	for i := 0; i < m; i++ {
		sg := UnpackSparseGenotype(binary.LittleEndian.Uint32(payload[4*i:]))
		if int(sg.Idx) >= n {
			return PhaseProbResult{}, errorf("xcf.DecodeSparsePhaseProbs", KindFormat, "sample index %d out of range for N=%d", sg.Idx, n)
		}
		g := Genotype{Phased: sg.Pha}
		if sg.Mis {
			g.A0, g.A1 = -1, -1
		} else {
			g.A0, g.A1 = boolAllele(sg.Al0), boolAllele(sg.Al1)
		}
		gv[sg.Idx] = g
		probs[sg.Idx] = math.Float32frombits(binary.LittleEndian.Uint32(payload[floatBase+4*i:]))
	}
	return PhaseProbResult{GT: gv, Probs: probs}, nil
}

// --- FORMAT/GT interop ---------------------------------------------------
//
// The generic BCF codec is an external collaborator (spec §1). htslib
// represents FORMAT/GT as pairs of int32 per sample, (allele<<1)|phased,
// or -1 for a missing allele (its bcf_gt_* macros).
// GenotypeVectorFromGTInts and GenotypeVectorToGTInts translate between
// that shape and GenotypeVector. vcfio's text container keeps GT as
// text, and XcfReader/XcfWriter read and write it with
// GenotypeVectorFromGTFormat and formatGT, not with these helpers.

// GenotypeVectorFromGTInts decodes a 2N int32 buffer in htslib's
// FORMAT/GT shape.
func GenotypeVectorFromGTInts(buf []int32) GenotypeVector {
	n := len(buf) / 2
	gv := make(GenotypeVector, n)
	for i := 0; i < n; i++ {
		a0, p0 := decodeGTInt(buf[2*i])
		a1, p1 := decodeGTInt(buf[2*i+1])
		gv[i] = Genotype{A0: a0, A1: a1, Phased: p0 || p1}
	}
	return gv
}

// GenotypeVectorToGTInts is the inverse of GenotypeVectorFromGTInts.
func GenotypeVectorToGTInts(gv GenotypeVector) []int32 {
	buf := make([]int32, 2*len(gv))
	for i, g := range gv {
		buf[2*i] = encodeGTInt(g.A0, g.Phased)
		buf[2*i+1] = encodeGTInt(g.A1, g.Phased)
	}
	return buf
}

func decodeGTInt(raw int32) (allele int8, phased bool) {
	if raw < 0 {
		return -1, false
	}
	return int8(raw >> 1), raw&1 != 0
}

func encodeGTInt(allele int8, phased bool) int32 {
	if allele < 0 {
		return -1
	}
	v := int32(allele) << 1
	if phased {
		v |= 1
	}
	return v
}
