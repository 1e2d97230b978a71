package xcf

import (
	"fmt"
	"os"

	"github.com/google/uuid"

	"github.com/statgen/xcftools/internal/vcfio"
)

// WriterOptions configures CreateXcfWriter.
type WriterOptions struct {
	// Compress writes the .bin side-car through zstd when true.
	Compress bool
	// Index, when non-nil, receives a Put call for every
	// WriteSeekRecord so the companion gets a random-access index
	// alongside its linear SEEK tuples.
	Index *XcfIndex
	// Threads sizes the companion text container's gzip block-compressor
	// pool. Values <= 1 write single-threaded.
	Threads int
}

// XcfWriter writes a companion file: the VCF text container, its
// .bin side-car (plain or zstd-compressed), and the .fam pedigree,
// keeping the running byte offset needed to build each site's
// INFO/SEEK tuple.
type XcfWriter struct {
	vw       *vcfio.Writer
	header   *vcfio.Header
	pedigree *Pedigree

	binPath string
	binFile *os.File
	binZstd *zstdSidecarWriter
	offset  int64

	index *XcfIndex

	// RunID identifies this writer instance across log lines, so a
	// multi-shard concat --ligate invocation's per-shard output can be
	// correlated back to a single run.
	RunID string
}

// CreateXcfWriter opens vcfPath and its .bin side-car (.bin.zst with
// Compress) for writing, and writes the pedigree to vcfPath's
// companion .fam. The side-car is created even if every site ends up
// as an embedded BCFVCF_GENOTYPE record.
func CreateXcfWriter(vcfPath string, header *vcfio.Header, pedigree *Pedigree, opts WriterOptions) (*XcfWriter, error) {
	threads := opts.Threads
	if threads < 1 {
		threads = 1
	}
	vw, err := vcfio.CreateWithConcurrency(vcfPath, threads)
	if err != nil {
		return nil, wrapErr("xcf.CreateXcfWriter", KindIO, err)
	}
	header.AddInfo(vcfio.FieldInfo{ID: "SEEK", Number: "4", Type: "Integer", Description: "side-car record type and byte offset"})
	header.AddInfo(vcfio.FieldInfo{ID: "AC", Number: "A", Type: "Integer", Description: "allele count"})
	header.AddInfo(vcfio.FieldInfo{ID: "AN", Number: "1", Type: "Integer", Description: "total number of alleles"})
	runID := uuid.NewString()
	header.Meta = append(header.Meta, vcfio.MetaInfo{Key: "source", Raw: fmt.Sprintf("xcftools,run=%s", runID)})
	if err := vw.WriteHeader(header); err != nil {
		vw.Close()
		return nil, wrapErr("xcf.CreateXcfWriter", KindIO, err)
	}

	base := companionBase(vcfPath)
	w := &XcfWriter{vw: vw, header: header, pedigree: pedigree, binPath: base + ".bin", index: opts.Index, RunID: runID}

	if opts.Compress {
		zw, err := createZstdSidecarWriter(base + ".bin" + zstdSidecarExt)
		if err != nil {
			vw.Close()
			return nil, err
		}
		w.binZstd = zw
	} else {
		f, err := os.Create(w.binPath)
		if err != nil {
			vw.Close()
			return nil, wrapErr("xcf.CreateXcfWriter", KindIO, err)
		}
		w.binFile = f
	}

	if pedigree != nil {
		pf, err := os.Create(base + ".fam")
		if err != nil {
			w.Close()
			return nil, wrapErr("xcf.CreateXcfWriter", KindIO, err)
		}
		err = pedigree.Write(pf)
		cerr := pf.Close()
		if err != nil {
			w.Close()
			return nil, err
		}
		if cerr != nil {
			w.Close()
			return nil, wrapErr("xcf.CreateXcfWriter", KindIO, cerr)
		}
	}

	return w, nil
}

func (w *XcfWriter) appendPayload(p []byte) (int64, error) {
	off := w.offset
	var n int
	var err error
	if w.binZstd != nil {
		n, err = w.binZstd.Write(p)
	} else {
		n, err = w.binFile.Write(p)
	}
	if err != nil {
		return 0, wrapErr("xcf.XcfWriter", KindIO, err)
	}
	w.offset += int64(n)
	return off, nil
}

// WriteSeekRecord appends rec.Payload to the .bin side-car and writes
// a companion data line whose INFO/SEEK tuple points at it.
func (w *XcfWriter) WriteSeekRecord(site Site, rec Record) error {
	off, err := w.appendPayload(rec.Payload)
	if err != nil {
		return err
	}
	seek := NewSeek(rec.Type, off, len(rec.Payload))
	line := siteToRecord(site, seek)
	if err := w.vw.WriteRecord(line); err != nil {
		return wrapErr("xcf.XcfWriter.WriteSeekRecord", KindIO, err)
	}
	if w.index != nil {
		if err := w.index.Put(site, seek); err != nil {
			return err
		}
	}
	return nil
}

// WriteAnnotatedSeekRecord is WriteSeekRecord plus a set of extra
// INFO fields (written in extraOrder) merged onto the companion line
// — the hook fill-tags uses to attach its computed statistics without
// touching the side-car payload encoding.
func (w *XcfWriter) WriteAnnotatedSeekRecord(site Site, rec Record, extraInfo map[string]string, extraOrder []string) error {
	off, err := w.appendPayload(rec.Payload)
	if err != nil {
		return err
	}
	seek := NewSeek(rec.Type, off, len(rec.Payload))
	line := siteToRecord(site, seek)
	for _, k := range extraOrder {
		if v, ok := extraInfo[k]; ok {
			line.SetInfo(k, v)
		}
	}
	if err := w.vw.WriteRecord(line); err != nil {
		return wrapErr("xcf.XcfWriter.WriteAnnotatedSeekRecord", KindIO, err)
	}
	if w.index != nil {
		if err := w.index.Put(site, seek); err != nil {
			return err
		}
	}
	return nil
}

// WriteEmbeddedGenotypes writes a RECORD_BCFVCF_GENOTYPE line: the
// genotype calls live directly in the companion file's FORMAT/GT
// column rather than the side-car, so no .bin bytes are consumed and
// INFO/SEEK records type 1 with zero offset/length.
func (w *XcfWriter) WriteEmbeddedGenotypes(site Site, gv GenotypeVector) error {
	seek := NewSeek(RecordBCFVCFGenotype, 0, 0)
	line := siteToRecord(site, seek)
	line.Format = []string{"GT"}
	for _, g := range gv {
		line.Samples = append(line.Samples, []string{formatGT(g)})
	}
	if err := w.vw.WriteRecord(line); err != nil {
		return wrapErr("xcf.XcfWriter.WriteEmbeddedGenotypes", KindIO, err)
	}
	return nil
}

func siteToRecord(site Site, seek Seek) *vcfio.Record {
	rec := vcfio.NewRecord()
	rec.Chrom, rec.Pos, rec.ID, rec.Ref, rec.Alt = site.Chrom, int64(site.Pos), site.Rsid, site.Ref, site.Alt
	rec.Filter = "PASS"
	if site.AN > 0 {
		rec.SetInfoInts("AC", []int32{int32(site.AC)})
		rec.SetInfoInts("AN", []int32{int32(site.AN)})
	}
	ints := seek.Ints()
	rec.SetInfoInts("SEEK", []int32{ints[0], ints[1], ints[2], ints[3]})
	return rec
}

func formatGT(g Genotype) string {
	sep := "/"
	if g.Phased {
		sep = "|"
	}
	a0, a1 := alleleString(g.A0), alleleString(g.A1)
	return a0 + sep + a1
}

func alleleString(a int8) string {
	if a < 0 {
		return "."
	}
	if a == 0 {
		return "0"
	}
	return "1"
}

// Close flushes and closes every underlying file.
func (w *XcfWriter) Close() error {
	var firstErr error
	note := func(err error) {
		if err != nil && firstErr == nil {
			firstErr = err
		}
	}
	if w.binFile != nil {
		note(wrapErr("xcf.XcfWriter.Close", KindIO, w.binFile.Close()))
	}
	if w.binZstd != nil {
		note(w.binZstd.Close())
	}
	note(wrapErr("xcf.XcfWriter.Close", KindIO, w.vw.Close()))
	return firstErr
}
