// Package vcfio is a minimal reader/writer for the companion VCF text
// container (the "generic VCF/BCF codec" the toolbox treats as an
// external collaborator, per the container design) covering exactly
// the shape xcf needs: header meta-lines, a contig list, INFO/FORMAT
// declarations, and one tab-separated record per site with the
// fixed 8 VCF columns plus FORMAT/samples.
//
// Style and field layout are adapted from ExaScience/elprep's vcf
// package (MetaInformation/FormatInformation/Header), trimmed to a
// self-contained implementation so this module does not depend on
// elprep itself.
package vcfio

import "sort"

// MetaInfo is one ##key=<...> or ##key=value header line.
type MetaInfo struct {
	Key    string
	ID     string // "" for a plain key=value line with no ID subfield
	Fields map[string]string
	Raw    string // the value verbatim, for lines this package does not model structurally
}

// FieldInfo describes one ##INFO or ##FORMAT declaration.
type FieldInfo struct {
	ID          string
	Number      string // "A", "R", "G", ".", or a literal count
	Type        string // Integer, Float, Flag, Character, String
	Description string
}

// Header is the parsed meta-information block of a companion VCF: the
// fileformat line, contig declarations, INFO/FORMAT field
// declarations (order-preserving, since SEEK must be writable/readable
// back in a stable column position), and the sample name list from the
// #CHROM column header.
type Header struct {
	FileFormat string
	Contigs    []string
	Infos      []FieldInfo
	Formats    []FieldInfo
	Meta       []MetaInfo // every other ##line, in file order
	Samples    []string
}

// NewHeader returns an empty header ready to have fields appended.
func NewHeader() *Header {
	return &Header{FileFormat: "VCFv4.3"}
}

// InfoByID returns the declared INFO field named id, if any.
func (h *Header) InfoByID(id string) (FieldInfo, bool) {
	for _, f := range h.Infos {
		if f.ID == id {
			return f, true
		}
	}
	return FieldInfo{}, false
}

// AddInfo appends an INFO declaration unless id is already declared.
func (h *Header) AddInfo(f FieldInfo) {
	if _, ok := h.InfoByID(f.ID); ok {
		return
	}
	h.Infos = append(h.Infos, f)
}

// AddFormat appends a FORMAT declaration unless id is already declared.
func (h *Header) AddFormat(f FieldInfo) {
	for _, existing := range h.Formats {
		if existing.ID == f.ID {
			return
		}
	}
	h.Formats = append(h.Formats, f)
}

// AddContig appends a contig name unless it is already present.
func (h *Header) AddContig(name string) {
	for _, c := range h.Contigs {
		if c == name {
			return
		}
	}
	h.Contigs = append(h.Contigs, name)
}

// SampleIndex returns the column index of sample name among Samples.
func (h *Header) SampleIndex(name string) (int, bool) {
	for i, s := range h.Samples {
		if s == name {
			return i, true
		}
	}
	return 0, false
}

// SubsetSamples returns a copy of h restricted to the named samples,
// in the order requested (the sample-subsetting path used by `view
// --samples`).
func (h *Header) SubsetSamples(names []string) *Header {
	h2 := *h
	h2.Samples = append([]string(nil), names...)
	return &h2
}

// sortedKeys returns m's keys in sorted order.
func sortedKeys(m map[string]string) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
