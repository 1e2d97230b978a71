package main

import (
	"flag"
	"fmt"
	"log"
	"strconv"
	"strings"

	"github.com/exascience/pargo/parallel"

	"github.com/statgen/xcftools/filltags"
	"github.com/statgen/xcftools/internal/vcfio"
	"github.com/statgen/xcftools/xcf"
)

func runFillTags(args []string) error {
	fs := flag.NewFlagSet("fill-tags", flag.ExitOnError)
	output := fs.String("output", "", "output companion file path")
	tagsFlag := fs.String("tags", "all", "comma-separated tag list (AN,AC,AC_Hom,AC_Het,AF,MAF,NS,HWE,ExcHet,IC,TYPE,END,MENDEL), or \"all\"")
	pedPath := fs.String("pedigree", "", "pedigree .fam path for MENDEL (default: the input's own .fam)")
	popsFlag := fs.String("populations", "", "comma-separated sub-population names to aggregate in addition to ALL")
	compress := fs.Bool("compress", false, "zstd-compress the annotated side-car")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if fs.NArg() != 1 {
		return fmt.Errorf("fill-tags: expected exactly one companion file, got %d", fs.NArg())
	}
	if *output == "" {
		return fmt.Errorf("fill-tags: --output is required")
	}
	path := fs.Arg(0)

	tags, err := parseTags(*tagsFlag)
	if err != nil {
		return err
	}

	r := xcf.NewXcfReader()
	if _, err := r.AddFile(path); err != nil {
		return err
	}
	defer r.Close()

	ped := r.Pedigree(0)
	if *pedPath != "" {
		p, err := readPedigreeFile(*pedPath)
		if err != nil {
			return err
		}
		ped = p
	}

	var pops []string
	if *popsFlag != "" {
		pops = strings.Split(*popsFlag, ",")
	}

	filler := filltags.NewTagFiller(tags, ped, pops)

	names := make([]string, len(ped.Individuals))
	for i, ind := range ped.Individuals {
		names[i] = ind.Name
	}
	header := vcfio.NewHeader()
	header.Samples = names
	declareFillTagsInfo(header, tags)

	w, err := xcf.CreateXcfWriter(*output, header, ped, xcf.WriterOptions{Compress: *compress})
	if err != nil {
		return err
	}
	defer w.Close()

	// Decoding is inherently sequential (XcfReader keeps one logical
	// cursor across the companion file), but once a batch of sites is
	// buffered, computing each site's tags is embarrassingly parallel:
	// spread it across parallel.Range the way elprep's per-record
	// filters do, then write the batch back out in original order.
	const batchSize = 4096
	var sites []xcf.Site
	var gvs []xcf.GenotypeVector
	nWritten := 0

	flush := func() error {
		if len(sites) == 0 {
			return nil
		}
		stats := make([]filltags.SiteStats, len(sites))
		parallel.Range(0, len(sites), 0, func(low, high int) {
			for i := low; i < high; i++ {
				stats[i] = filler.Compute(sites[i], gvs[i])
			}
		})
		for i := range sites {
			info, order := renderFillTagsInfo(stats[i], tags)
			rec, err := xcf.EncodeBinaryGenotype(gvs[i])
			if err != nil {
				return err
			}
			site := sites[i]
			if hasTag(tags, filltags.TagAC) && hasTag(tags, filltags.TagAN) {
				site.AC, site.AN = sumACAN(stats[i])
			}
			if err := w.WriteAnnotatedSeekRecord(site, rec, info, order); err != nil {
				return err
			}
			nWritten++
		}
		sites = sites[:0]
		gvs = gvs[:0]
		return nil
	}

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
		gv, err := r.ReadRecord(0, len(names))
		if err != nil {
			return err
		}
		sites = append(sites, site)
		gvs = append(gvs, gv)
		if len(sites) >= batchSize {
			if err := flush(); err != nil {
				return err
			}
		}
	}
	if err := flush(); err != nil {
		return err
	}

	log.Printf("fill-tags: annotated %d sites in %s\n", nWritten, *output)
	return nil
}

func parseTags(spec string) ([]filltags.Tag, error) {
	if strings.EqualFold(spec, "all") {
		return filltags.AllTags, nil
	}
	var tags []filltags.Tag
	for _, name := range strings.Split(spec, ",") {
		name = strings.TrimSpace(name)
		if name == "" {
			continue
		}
		t, ok := filltags.ParseTag(name)
		if !ok {
			return nil, fmt.Errorf("fill-tags: unknown tag %q", name)
		}
		tags = append(tags, t)
	}
	return tags, nil
}

func readPedigreeFile(path string) (*xcf.Pedigree, error) {
	f, err := openFile(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	return xcf.ReadPedigree(f)
}

// declareFillTagsInfo registers the INFO header lines for every
// requested tag under the "ALL" population's bare tag name. It does not
// declare the "_<pop>"-suffixed keys that renderFillTagsInfo emits for
// named populations.
func declareFillTagsInfo(h *vcfio.Header, tags []filltags.Tag) {
	for _, t := range tags {
		switch t {
		case filltags.TagAN:
			h.AddInfo(vcfio.FieldInfo{ID: "AN", Number: "1", Type: "Integer", Description: "Total number of alleles"})
		case filltags.TagAC:
			h.AddInfo(vcfio.FieldInfo{ID: "AC", Number: "A", Type: "Integer", Description: "Allele count"})
		case filltags.TagACHom:
			h.AddInfo(vcfio.FieldInfo{ID: "AC_Hom", Number: "A", Type: "Integer", Description: "Allele counts in homozygous genotypes"})
		case filltags.TagACHet:
			h.AddInfo(vcfio.FieldInfo{ID: "AC_Het", Number: "A", Type: "Integer", Description: "Allele counts in heterozygous genotypes"})
		case filltags.TagAF:
			h.AddInfo(vcfio.FieldInfo{ID: "AF", Number: "A", Type: "Float", Description: "Allele frequency"})
		case filltags.TagMAF:
			h.AddInfo(vcfio.FieldInfo{ID: "MAF", Number: "A", Type: "Float", Description: "Minor allele frequency"})
		case filltags.TagNS:
			h.AddInfo(vcfio.FieldInfo{ID: "NS", Number: "1", Type: "Integer", Description: "Number of samples with called genotypes"})
		case filltags.TagHWE:
			h.AddInfo(vcfio.FieldInfo{ID: "HWE", Number: "1", Type: "Float", Description: "HWE test p-value (Wigginton et al. 2005)"})
			h.AddInfo(vcfio.FieldInfo{ID: "HWE_CHISQ", Number: "1", Type: "Float", Description: "HWE test p-value, chi-square approximation"})
		case filltags.TagExcHet:
			h.AddInfo(vcfio.FieldInfo{ID: "ExcHet", Number: "1", Type: "Float", Description: "Excess heterozygosity test p-value"})
		case filltags.TagIC:
			h.AddInfo(vcfio.FieldInfo{ID: "IC", Number: "1", Type: "Float", Description: "Inbreeding coefficient"})
		case filltags.TagTYPE:
			h.AddInfo(vcfio.FieldInfo{ID: "TYPE", Number: "1", Type: "String", Description: "Variant type (SNP/INDEL/MNP)"})
		case filltags.TagEND:
			h.AddInfo(vcfio.FieldInfo{ID: "END", Number: "1", Type: "Integer", Description: "End position of the variant"})
		case filltags.TagMendel:
			h.AddInfo(vcfio.FieldInfo{ID: "MERR_CNT", Number: "1", Type: "Integer", Description: "Number of Mendelian errors"})
			h.AddInfo(vcfio.FieldInfo{ID: "MTOT_ALL", Number: "1", Type: "Integer", Description: "Number of trios/duos scored"})
			h.AddInfo(vcfio.FieldInfo{ID: "MTOT_MINOR", Number: "1", Type: "Integer", Description: "Number of trios/duos with a non-major-homozygote member"})
			h.AddInfo(vcfio.FieldInfo{ID: "MERR_RATE_ALL", Number: "1", Type: "Float", Description: "Mendelian error rate over all scored trios/duos"})
			h.AddInfo(vcfio.FieldInfo{ID: "MERR_RATE_MINOR", Number: "1", Type: "Float", Description: "Mendelian error rate over non-major-homozygote trios/duos"})
		}
	}
}

func hasTag(tags []filltags.Tag, t filltags.Tag) bool {
	for _, x := range tags {
		if x == t {
			return true
		}
	}
	return false
}

func tagName(base, pop string) string {
	if pop == "ALL" {
		return base
	}
	return base + "_" + pop
}

func renderFillTagsInfo(stats filltags.SiteStats, tags []filltags.Tag) (map[string]string, []string) {
	info := make(map[string]string)
	var order []string
	set := func(k, v string) {
		info[k] = v
		order = append(order, k)
	}

	has := func(t filltags.Tag) bool { return hasTag(tags, t) }

	if has(filltags.TagEND) {
		set("END", strconv.FormatUint(uint64(stats.End), 10))
	}
	if has(filltags.TagTYPE) {
		set("TYPE", stats.Type)
	}

	for _, ps := range stats.Populations {
		if has(filltags.TagAN) {
			set(tagName("AN", ps.Population), strconv.Itoa(ps.AN))
		}
		if has(filltags.TagAC) {
			set(tagName("AC", ps.Population), strconv.Itoa(ps.AC))
		}
		if has(filltags.TagACHom) {
			set(tagName("AC_Hom", ps.Population), strconv.Itoa(ps.ACHom))
		}
		if has(filltags.TagACHet) {
			set(tagName("AC_Het", ps.Population), strconv.Itoa(ps.ACHet))
		}
		if has(filltags.TagAF) {
			set(tagName("AF", ps.Population), strconv.FormatFloat(ps.AF, 'g', -1, 64))
		}
		if has(filltags.TagMAF) {
			set(tagName("MAF", ps.Population), strconv.FormatFloat(ps.MAF, 'g', -1, 64))
		}
		if has(filltags.TagNS) {
			set(tagName("NS", ps.Population), strconv.Itoa(ps.NS))
		}
		if has(filltags.TagHWE) {
			set(tagName("HWE", ps.Population), strconv.FormatFloat(ps.HWE, 'g', -1, 64))
			set(tagName("HWE_CHISQ", ps.Population), strconv.FormatFloat(ps.HWEChiSq, 'g', -1, 64))
		}
		if has(filltags.TagExcHet) {
			set(tagName("ExcHet", ps.Population), strconv.FormatFloat(ps.ExcHet, 'g', -1, 64))
		}
		if has(filltags.TagIC) {
			set(tagName("IC", ps.Population), strconv.FormatFloat(ps.IC, 'g', -1, 64))
		}
	}

	if stats.Mendel != nil {
		set("MERR_CNT", strconv.Itoa(stats.Mendel.MERRCnt))
		set("MTOT_ALL", strconv.Itoa(stats.Mendel.MTotAll))
		set("MTOT_MINOR", strconv.Itoa(stats.Mendel.MTotMinor))
		set("MERR_RATE_ALL", strconv.FormatFloat(stats.Mendel.MERRRateAll, 'g', -1, 64))
		set("MERR_RATE_MINOR", strconv.FormatFloat(stats.Mendel.MERRRateMinor, 'g', -1, 64))
	}

	return info, order
}

// sumACAN returns the "ALL" population's AC/AN, used to refresh the
// site's own AC/AN INFO fields alongside the richer per-tag output.
func sumACAN(stats filltags.SiteStats) (ac, an uint32) {
	for _, ps := range stats.Populations {
		if ps.Population == "ALL" {
			return uint32(ps.AC), uint32(ps.AN)
		}
	}
	return 0, 0
}
