package ligate

import (
	"log"

	"github.com/statgen/xcftools/internal/vcfio"
	"github.com/statgen/xcftools/xcf"
)

// bufferedSite holds one overlap-window site's two independently
// phased calls until the window's swap decision is resolved and the
// hand-off point is known.
type bufferedSite struct {
	site  xcf.Site
	early xcf.GenotypeVector
	late  xcf.GenotypeVector
}

// Ligator drives a set of ordered, overlapping shards through Overlap
// resolution and writes the continuously-phased merge to one output
// companion file, mirroring concat_algorithm.cpp's ligate().
type Ligator struct {
	// Compress enables zstd compression on the merged .bin side-car.
	Compress bool
}

// NewLigator returns a Ligator with default (uncompressed) output.
func NewLigator() *Ligator { return &Ligator{} }

// shardHeader returns the sample names, in declared order, and the
// contigs mentioned in a shard's companion header, without decoding
// any genotype records.
func shardHeader(path string) (samples []string, contigs []string, err error) {
	r, err := vcfio.Open(path)
	if err != nil {
		return nil, nil, err
	}
	defer r.Close()
	return r.Header.Samples, r.Header.Contigs, nil
}

// shardStart returns a shard's first site, the pre-flight check
// concat_algorithm.cpp performs before the main ligation loop.
func shardStart(path string) (xcf.Site, error) {
	r := xcf.NewXcfReader()
	if _, err := r.AddFile(path); err != nil {
		return xcf.Site{}, err
	}
	defer r.Close()
	more, err := r.Next()
	if err != nil {
		return xcf.Site{}, err
	}
	if !more {
		return xcf.Site{}, xcf.NewFormatError("ligate.Run", "shard %s has no records", path)
	}
	site, _ := r.CurrentSite()
	return site, nil
}

// Run ligates shardPaths, already in ascending chromosome/position
// order, into a fresh companion file at outPath. It returns the
// number of records written.
func (lg *Ligator) Run(shardPaths []string, outPath string) (int, error) {
	if len(shardPaths) == 0 {
		return 0, xcf.NewFormatError("ligate.Run", "no shards given")
	}

	sampleLists := make([][]string, len(shardPaths))
	startChrom := make([]string, len(shardPaths))
	startPos := make([]int64, len(shardPaths))
	var contigs []string
	seenContig := map[string]bool{}

	for i, path := range shardPaths {
		samples, shardContigs, err := shardHeader(path)
		if err != nil {
			return 0, err
		}
		sampleLists[i] = samples
		for _, c := range shardContigs {
			if !seenContig[c] {
				seenContig[c] = true
				contigs = append(contigs, c)
			}
		}

		site, err := shardStart(path)
		if err != nil {
			return 0, err
		}
		startChrom[i] = site.Chrom
		startPos[i] = int64(site.Pos)
	}

	if err := CheckSampleLists(sampleLists); err != nil {
		return 0, err
	}
	if err := CheckAscendingOrder(startChrom, startPos); err != nil {
		return 0, err
	}

	nSamples := len(sampleLists[0])

	r := xcf.NewXcfReader()
	for _, path := range shardPaths {
		if _, err := r.AddFile(path); err != nil {
			r.Close()
			return 0, err
		}
	}
	defer r.Close()

	ped, err := firstShardPedigree(shardPaths[0])
	if err != nil {
		return 0, err
	}

	header := vcfio.NewHeader()
	header.Samples = sampleLists[0]
	for _, c := range contigs {
		header.AddContig(c)
	}

	w, err := xcf.CreateXcfWriter(outPath, header, ped, xcf.WriterOptions{Compress: lg.Compress})
	if err != nil {
		return 0, err
	}
	defer w.Close()
	log.Printf("ligate: run=%s merging %d shards into %s\n", w.RunID, len(shardPaths), outPath)

	nWritten := 0
	baseline := make([]bool, nSamples) // swap_phase[0], the running baseline
	var buffer []bufferedSite
	var overlap *Overlap

	writeSingle := func(site xcf.Site, gv xcf.GenotypeVector, swap []bool) error {
		gv = ApplyPhaseSwap(gv, swap)
		hv, err := gv.ToHaplotypeVector()
		if err != nil {
			return err
		}
		rec, err := xcf.EncodeBinaryHaplotype(hv)
		if err != nil {
			return err
		}
		if err := w.WriteSeekRecord(site, rec); err != nil {
			return err
		}
		nWritten++
		return nil
	}

	flushOverlap := func() error {
		if overlap == nil {
			return nil
		}
		res := overlap.Resolve()
		handoff := HandoffPoint(len(buffer))
		for j, bs := range buffer {
			if j < handoff {
				if err := writeSingle(bs.site, bs.early, baseline); err != nil {
					return err
				}
			} else {
				if err := writeSingle(bs.site, bs.late, res.Swap); err != nil {
					return err
				}
			}
		}
		baseline = res.Swap
		buffer = nil
		overlap = nil
		return nil
	}

	for {
		more, err := r.Next()
		if err != nil {
			return nWritten, err
		}
		if !more {
			break
		}

		var active []int
		for i := 0; i < r.NFiles(); i++ {
			if r.HasRecord(i) {
				active = append(active, i)
			}
		}
		if err := CheckOverlapWidth(len(active)); err != nil {
			return nWritten, err
		}

		if len(active) == 2 {
			siteEarly, _ := r.SiteAt(active[0])
			siteLate, _ := r.SiteAt(active[1])
			if err := CheckSiteCompatible(siteEarly, siteLate); err != nil {
				return nWritten, err
			}

			if overlap == nil {
				overlap = NewOverlap(nSamples)
				copy(overlap.Swap, baseline)
			}
			site, _ := r.CurrentSite()
			gvEarly, err := r.ReadRecord(active[0], nSamples)
			if err != nil {
				return nWritten, err
			}
			gvLate, err := r.ReadRecord(active[1], nSamples)
			if err != nil {
				return nWritten, err
			}
			overlap.Accumulate(gvEarly, gvLate)
			buffer = append(buffer, bufferedSite{site: site, early: gvEarly, late: gvLate})
			continue
		}

		if err := flushOverlap(); err != nil {
			return nWritten, err
		}

		idx := active[0]
		site, _ := r.CurrentSite()
		gv, err := r.ReadRecord(idx, nSamples)
		if err != nil {
			return nWritten, err
		}
		if err := writeSingle(site, gv, baseline); err != nil {
			return nWritten, err
		}
	}
	if err := flushOverlap(); err != nil {
		return nWritten, err
	}

	return nWritten, nil
}

func firstShardPedigree(path string) (*xcf.Pedigree, error) {
	r := xcf.NewXcfReader()
	if _, err := r.AddFile(path); err != nil {
		return nil, err
	}
	defer r.Close()
	return r.Pedigree(0), nil
}
