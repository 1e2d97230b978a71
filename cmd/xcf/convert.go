package main

import (
	"bufio"
	"os"
	"strings"

	"github.com/statgen/xcftools/internal/vcfio"
	"github.com/statgen/xcftools/xcf"
)

// convertOptions holds view's re-encode-and-write flags once parsed.
type convertOptions struct {
	input, output, format, region string
	maf                           float64
	keepInfo                      bool
	samples, samplesFile          string
	forceSamples                  bool
	threads                       int
}

// formatSpec maps one --format token onto the xcf.EncodeOptions that
// make xcf.EncodeSite land on that token's exact RecordType: Family
// picks the genotype/haplotype/phaseprobs axis, forceRare pins
// EncodeSite's own MAF-driven rare/dense choice to always-sparse or
// always-dense so the CLI's explicit format request, not a computed
// MAF, decides which of the two encodings within that family is used.
// "bcf" has no entry: it bypasses the codec entirely (runConvert calls
// WriteEmbeddedGenotypes directly), the same way a BCFVCF_GENOTYPE
// record is never handed to DecodeSite on the read side.
type formatSpec struct {
	family    xcf.Family
	forceRare bool
}

var formatSpecs = map[string]formatSpec{
	"sg": {xcf.FamilyGenotype, true},
	"bg": {xcf.FamilyGenotype, false},
	"sh": {xcf.FamilyHaplotype, true},
	"bh": {xcf.FamilyHaplotype, false},
	"pp": {xcf.FamilyPhaseProbs, true},
}

func validFormat(format string) bool {
	if format == "bcf" {
		return true
	}
	_, ok := formatSpecs[format]
	return ok
}

// runConvert re-encodes opt.input's records into opt.format and writes
// the result to a fresh companion file at opt.output, optionally
// filtering by MAF, subsetting samples, and carrying over INFO fields.
func runConvert(opt convertOptions) error {
	if opt.output == "" {
		return xcf.NewConfigurationError("view", "--output is required when --format is set")
	}
	if !validFormat(opt.format) {
		return xcf.NewConfigurationError("view", "unknown --format %q, want one of bcf|bg|bh|sg|sh|pp", opt.format)
	}
	if opt.samples != "" && opt.samplesFile != "" {
		return xcf.NewConfigurationError("view", "--samples and --samples-file are mutually exclusive")
	}
	if opt.threads <= 0 {
		return xcf.NewConfigurationError("view", "--threads must be positive, got %d", opt.threads)
	}

	var sampleNames []string
	switch {
	case opt.samples != "":
		sampleNames = strings.Split(opt.samples, ",")
	case opt.samplesFile != "":
		names, err := readSampleListFile(opt.samplesFile)
		if err != nil {
			return err
		}
		sampleNames = names
	}

	r := xcf.NewXcfReader()
	if _, err := r.AddFile(opt.input); err != nil {
		return err
	}
	defer r.Close()

	if opt.region != "" {
		chrom, start, end, err := parseRegion(opt.region)
		if err != nil {
			return err
		}
		r.SetRegion(chrom, start, end)
	}

	srcPed := r.Pedigree(0)
	nSamples := srcPed.N()

	outPed := srcPed
	var keepIdx []int // nil means every sample is kept, in source order
	if sampleNames != nil {
		sub, idx, err := srcPed.Subset(sampleNames, opt.forceSamples)
		if err != nil {
			return err
		}
		outPed = sub
		keepIdx = idx
	}

	header := vcfio.NewHeader()
	header.Samples = pedigreeNames(outPed)

	w, err := xcf.CreateXcfWriter(opt.output, header, outPed, xcf.WriterOptions{Threads: opt.threads})
	if err != nil {
		return err
	}
	defer w.Close()

	nWritten := 0
	for {
		more, err := r.Next()
		if err != nil {
			return err
		}
		if !more {
			break
		}
		site, ok := r.CurrentSite()
		if !ok || !r.HasRecord(0) {
			continue
		}

		var info map[string]string
		var infoOrder []string
		if opt.keepInfo {
			info, infoOrder, _ = r.CurrentInfo(0)
		}

		gv, err := r.ReadRecord(0, nSamples)
		if err != nil {
			return err
		}
		if site.MAF() < opt.maf {
			continue
		}
		if keepIdx != nil {
			gv = subsetGenotypeVector(gv, keepIdx)
		}

		if opt.format == "bcf" {
			if err := w.WriteEmbeddedGenotypes(site, gv); err != nil {
				return err
			}
			nWritten++
			continue
		}

		rec, err := encodeAs(gv, site, opt.format)
		if err != nil {
			return err
		}

		if opt.keepInfo {
			extraInfo, extraOrder := filterKeepInfo(info, infoOrder)
			if err := w.WriteAnnotatedSeekRecord(site, rec, extraInfo, extraOrder); err != nil {
				return err
			}
		} else {
			if err := w.WriteSeekRecord(site, rec); err != nil {
				return err
			}
		}
		nWritten++
	}

	if err := w.Close(); err != nil {
		return err
	}
	return nil
}

// encodeAs routes gv/site through EncodeSite under a MAFThreshold that
// pins its rare/dense choice to the CLI's explicit --format request
// instead of letting a computed MAF decide: 1.0 forces IsRare true
// (site.MAF() is always < 1.0), 0 forces it false (MAF() is never < 0).
func encodeAs(gv xcf.GenotypeVector, site xcf.Site, format string) (xcf.Record, error) {
	spec, ok := formatSpecs[format]
	if !ok {
		return xcf.Record{}, xcf.NewConfigurationError("view", "unsupported output format %q", format)
	}
	opt := xcf.EncodeOptions{Family: spec.family}
	if spec.forceRare {
		opt.MAFThreshold = 1.0
	}
	if format == "pp" {
		opt.Probs = make([]float32, 0)
	}
	return xcf.EncodeSite(gv, site, opt)
}

// filterKeepInfo drops the INFO keys WriteAnnotatedSeekRecord's own
// site/seek columns already own, so --keep-info only ever carries over
// fields the re-encode pass did not itself just compute.
func filterKeepInfo(info map[string]string, order []string) (map[string]string, []string) {
	out := make(map[string]string, len(order))
	var outOrder []string
	for _, k := range order {
		if k == "SEEK" || k == "AC" || k == "AN" {
			continue
		}
		out[k] = info[k]
		outOrder = append(outOrder, k)
	}
	return out, outOrder
}

// pedigreeNames returns p's sample names in declared order.
func pedigreeNames(p *xcf.Pedigree) []string {
	names := make([]string, len(p.Individuals))
	for i, ind := range p.Individuals {
		names[i] = ind.Name
	}
	return names
}

// subsetGenotypeVector slices gv down to the samples named by idx, in
// idx's order.
func subsetGenotypeVector(gv xcf.GenotypeVector, idx []int) xcf.GenotypeVector {
	out := make(xcf.GenotypeVector, len(idx))
	for i, j := range idx {
		out[i] = gv[j]
	}
	return out
}

// readSampleListFile reads --samples-file: one sample name per line,
// blank lines ignored.
func readSampleListFile(path string) ([]string, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, xcf.NewConfigurationError("view", "--samples-file: %v", err)
	}
	defer f.Close()

	var names []string
	sc := bufio.NewScanner(f)
	for sc.Scan() {
		line := strings.TrimSpace(sc.Text())
		if line == "" {
			continue
		}
		names = append(names, line)
	}
	if err := sc.Err(); err != nil {
		return nil, xcf.NewConfigurationError("view", "--samples-file: %v", err)
	}
	return names, nil
}
