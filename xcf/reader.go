package xcf

import (
	"io"
	"log"
	"os"
	"strconv"
	"strings"

	"github.com/statgen/xcftools/internal/vcfio"
)

// fileHandle is one companion file tracked by an XcfReader: its text
// container, its optional binary side-car, and its pedigree.
type fileHandle struct {
	path     string
	vr       *vcfio.Reader
	bin      *os.File
	binIsTmp bool
	pedigree *Pedigree

	cur     *vcfio.Record // buffered next record, nil once exhausted
	curSite Site
	curSeek Seek
	curOK   bool // false if cur has no parseable SEEK entry
	done    bool
}

// advance reads the next record into fh, skipping (with a logged
// warning) any site whose ALT carries more than one allele: the
// toolbox's encodings are all biallelic, and site selection drops a
// multi-allelic site rather than failing the whole file over it.
func (fh *fileHandle) advance() error {
	for {
		rec, err := fh.vr.Next()
		if err == io.EOF {
			fh.cur = nil
			fh.done = true
			return nil
		}
		if err != nil {
			return wrapErr("xcf.XcfReader", KindIO, err)
		}
		if isMultiAllelic(rec.Alt) {
			log.Printf("xcf: skipping multi-allelic site %s:%d (ALT=%q)", rec.Chrom, rec.Pos, rec.Alt)
			continue
		}

		site, err := siteFromRecord(rec)
		if err != nil {
			return err
		}
		fh.cur = rec
		fh.curSite = site

		seekInts, ok, err := rec.GetInfoInts("SEEK")
		if err != nil {
			return errorf("xcf.XcfReader", KindFormat, "malformed INFO/SEEK at %s:%d: %v", rec.Chrom, rec.Pos, err)
		}
		if ok {
			if len(seekInts) != 4 {
				return errorf("xcf.XcfReader", KindFormat, "INFO/SEEK at %s:%d has %d entries, want exactly 4", rec.Chrom, rec.Pos, len(seekInts))
			}
			fh.curSeek = SeekFromInts([4]int32{int32(seekInts[0]), int32(seekInts[1]), int32(seekInts[2]), int32(seekInts[3])})
			fh.curOK = true
		} else {
			fh.curOK = false
		}
		return nil
	}
}

func isMultiAllelic(alt string) bool {
	return strings.Contains(alt, ",")
}

// siteFromRecord builds rec's Site, enforcing the biallelic invariant
// on INFO/AC and INFO/AN: either field, if present, must carry exactly
// one value.
func siteFromRecord(rec *vcfio.Record) (Site, error) {
	s := Site{Chrom: rec.Chrom, Pos: uint32(rec.Pos), Rsid: rec.ID, Ref: rec.Ref, Alt: rec.Alt}
	if acs, ok, err := rec.GetInfoInts("AC"); err != nil {
		return Site{}, errorf("xcf.XcfReader", KindFormat, "malformed INFO/AC at %s:%d: %v", rec.Chrom, rec.Pos, err)
	} else if ok {
		if len(acs) != 1 {
			return Site{}, errorf("xcf.XcfReader", KindFormat, "INFO/AC at %s:%d has %d entries, want exactly 1", rec.Chrom, rec.Pos, len(acs))
		}
		s.AC = uint32(acs[0])
	}
	if ans, ok, err := rec.GetInfoInts("AN"); err != nil {
		return Site{}, errorf("xcf.XcfReader", KindFormat, "malformed INFO/AN at %s:%d: %v", rec.Chrom, rec.Pos, err)
	} else if ok {
		if len(ans) != 1 {
			return Site{}, errorf("xcf.XcfReader", KindFormat, "INFO/AN at %s:%d has %d entries, want exactly 1", rec.Chrom, rec.Pos, len(ans))
		}
		s.AN = uint32(ans[0])
	}
	return s, nil
}

// XcfReader merges one or more companion files in synchronized
// position order, the way htslib's synced-reader drives the
// ligation/fill-tags/gtcheck engines over multiple (possibly
// overlapping) shards. Grounded on the sync_reader-driven
// multi-file walk in original_source's xcf.h; AddFile/RemoveFile attach
// and detach one file without rebuilding the whole reader.
type XcfReader struct {
	files  []*fileHandle
	region struct {
		chrom        string
		start, end   uint32
		active       bool
	}
	curChrom string
	curPos   uint32
	hasCur   bool
}

// NewXcfReader returns an empty reader; call AddFile to attach shards.
func NewXcfReader() *XcfReader { return &XcfReader{} }

// AddFile opens vcfPath's companion container, its .bin side-car (or
// .bin.zst, materialized up front), and its .fam pedigree, appending
// it as a new tracked file. Returns the new file's index.
func (x *XcfReader) AddFile(vcfPath string) (int, error) {
	vr, err := vcfio.Open(vcfPath)
	if err != nil {
		return -1, wrapErr("xcf.XcfReader.AddFile", KindIO, err)
	}

	base := companionBase(vcfPath)
	fh := &fileHandle{path: vcfPath, vr: vr}

	if f, isTmp, err := openSidecar(base + ".bin"); err == nil {
		fh.bin, fh.binIsTmp = f, isTmp
	} else if !os.IsNotExist(err) {
		vr.Close()
		return -1, wrapErr("xcf.XcfReader.AddFile", KindIO, err)
	}

	if pf, err := os.Open(base + ".fam"); err == nil {
		ped, perr := ReadPedigree(pf)
		pf.Close()
		if perr != nil {
			vr.Close()
			return -1, perr
		}
		fh.pedigree = ped
	} else if os.IsNotExist(err) {
		fh.pedigree = NewPedigree(vr.Header.Samples)
	} else {
		vr.Close()
		return -1, wrapErr("xcf.XcfReader.AddFile", KindIO, err)
	}

	if err := fh.advance(); err != nil {
		vr.Close()
		return -1, err
	}

	x.files = append(x.files, fh)
	return len(x.files) - 1, nil
}

func companionBase(vcfPath string) string {
	base := vcfPath
	for _, suffix := range []string{".vcf.gz", ".vcf.bgz", ".bcf", ".vcf"} {
		if strings.HasSuffix(base, suffix) {
			return strings.TrimSuffix(base, suffix)
		}
	}
	return base
}

func openSidecar(base string) (*os.File, bool, error) {
	if f, err := os.Open(base); err == nil {
		return f, false, nil
	} else if !os.IsNotExist(err) {
		return nil, false, err
	}
	if _, err := os.Stat(base + zstdSidecarExt); err == nil {
		f, err := materializeZstdSidecar(base + zstdSidecarExt)
		return f, true, err
	}
	return nil, false, os.ErrNotExist
}

// RemoveFile closes and detaches the file at index i; Close uses it to
// release every tracked file.
func (x *XcfReader) RemoveFile(i int) error {
	if i < 0 || i >= len(x.files) {
		return errorf("xcf.XcfReader.RemoveFile", KindConfiguration, "file index %d out of range", i)
	}
	fh := x.files[i]
	var err error
	if cerr := fh.vr.Close(); cerr != nil {
		err = cerr
	}
	if fh.bin != nil {
		name := fh.bin.Name()
		if cerr := fh.bin.Close(); cerr != nil && err == nil {
			err = cerr
		}
		if fh.binIsTmp {
			os.Remove(name)
		}
	}
	x.files = append(x.files[:i], x.files[i+1:]...)
	if err != nil {
		return wrapErr("xcf.XcfReader.RemoveFile", KindIO, err)
	}
	return nil
}

// SetRegion restricts iteration to [start, end] on chrom; call before
// the first Next.
func (x *XcfReader) SetRegion(chrom string, start, end uint32) {
	x.region.chrom, x.region.start, x.region.end, x.region.active = chrom, start, end, true
}

// NFiles returns the number of currently tracked files.
func (x *XcfReader) NFiles() int { return len(x.files) }

// Pedigree returns file i's pedigree.
func (x *XcfReader) Pedigree(i int) *Pedigree { return x.files[i].pedigree }

// Next advances to the next synchronized position across every
// tracked file: the minimum (chrom, pos) among all non-exhausted
// files' buffered records. Files sitting exactly at that position are
// left buffered for ReadRecord/CurrentSite; every other file keeps its
// own buffered record untouched. With a region set, records outside it
// are read past and discarded. Returns false once every file is
// exhausted, or the region has been fully consumed.
func (x *XcfReader) Next() (bool, error) {
	for {
		min, ok := x.minPosition()
		if !ok {
			x.hasCur = false
			return false, nil
		}
		if x.region.active && min.chrom == x.region.chrom && min.pos > x.region.end {
			x.hasCur = false
			return false, nil
		}
		if x.region.active && (min.chrom != x.region.chrom || min.pos < x.region.start) {
			for _, fh := range x.files {
				if !fh.done && fh.curSite.Chrom == min.chrom && fh.curSite.Pos == min.pos {
					if err := fh.advance(); err != nil {
						return false, err
					}
				}
			}
			continue
		}
		x.curChrom, x.curPos, x.hasCur = min.chrom, min.pos, true
		return true, nil
	}
}

type chromPos struct {
	chrom string
	pos   uint32
}

func (x *XcfReader) minPosition() (chromPos, bool) {
	var best chromPos
	found := false
	for _, fh := range x.files {
		if fh.done {
			continue
		}
		cp := chromPos{fh.curSite.Chrom, fh.curSite.Pos}
		if !found || less(cp, best) {
			best, found = cp, true
		}
	}
	return best, found
}

func less(a, b chromPos) bool {
	if a.chrom != b.chrom {
		return a.chrom < b.chrom
	}
	return a.pos < b.pos
}

// HasRecord reports whether file i sits at the reader's current
// synchronized position.
func (x *XcfReader) HasRecord(i int) bool {
	if !x.hasCur || i < 0 || i >= len(x.files) {
		return false
	}
	fh := x.files[i]
	return !fh.done && fh.curSite.Chrom == x.curChrom && fh.curSite.Pos == x.curPos
}

// CurrentSite returns the Site at the reader's synchronized position,
// taken from the first file that HasRecord at that position.
func (x *XcfReader) CurrentSite() (Site, bool) {
	for i, fh := range x.files {
		if x.HasRecord(i) {
			return fh.curSite, true
		}
	}
	return Site{}, false
}

// SiteAt returns file i's own buffered Site at the reader's
// synchronized position, letting a caller compare REF/ALT across two
// files that both HasRecord there (CurrentSite only ever exposes one
// of them).
func (x *XcfReader) SiteAt(i int) (Site, bool) {
	if !x.HasRecord(i) {
		return Site{}, false
	}
	return x.files[i].curSite, true
}

// CurrentInfo returns file i's raw INFO map and first-seen key order
// at the reader's synchronized position, the hook view's --keep-info
// pass-through uses to copy non-essential fields onto a re-encoded
// output record before the underlying file advances past it.
func (x *XcfReader) CurrentInfo(i int) (info map[string]string, order []string, ok bool) {
	if !x.HasRecord(i) {
		return nil, nil, false
	}
	fh := x.files[i]
	return fh.cur.Info, fh.cur.InfoOrder(), true
}

// RegionDone reports whether every tracked file is exhausted, or (with
// a region set) the synchronized position has passed the region end.
func (x *XcfReader) RegionDone() bool {
	if !x.hasCur {
		min, ok := x.minPosition()
		if !ok {
			return true
		}
		return x.region.active && min.chrom == x.region.chrom && min.pos > x.region.end
	}
	return x.region.active && (x.curChrom != x.region.chrom || x.curPos > x.region.end)
}

// ReadRecord decodes file i's record at the reader's current
// synchronized position into n-sample genotype calls, dispatching on
// the stored RecordType (including BCFVCF_GENOTYPE, whose calls live
// directly in the companion file's FORMAT/GT rather than the
// side-car). It also advances file i past this record.
func (x *XcfReader) ReadRecord(i int, n int) (GenotypeVector, error) {
	if !x.HasRecord(i) {
		return nil, errorf("xcf.XcfReader.ReadRecord", KindFormat, "file %d has no record at the current position", i)
	}
	fh := x.files[i]
	gv, err := x.decode(fh, n)
	if err != nil {
		return nil, err
	}
	if err := fh.advance(); err != nil {
		return nil, err
	}
	return gv, nil
}

func (x *XcfReader) decode(fh *fileHandle, n int) (GenotypeVector, error) {
	if !fh.curOK {
		return GenotypeVectorFromGTFormat(fh.cur, n)
	}
	if fh.curSeek.Type == RecordBCFVCFGenotype {
		return GenotypeVectorFromGTFormat(fh.cur, n)
	}
	if fh.bin == nil {
		return nil, errorf("xcf.XcfReader.ReadRecord", KindIO, "file %s declares a side-car record but has no .bin companion", fh.path)
	}
	payload := make([]byte, fh.curSeek.NBytes)
	if _, err := fh.bin.ReadAt(payload, fh.curSeek.Offset()); err != nil {
		return nil, wrapErr("xcf.XcfReader.ReadRecord", KindIO, err)
	}
	rec := Record{Type: fh.curSeek.Type, Payload: payload}
	return DecodeSite(rec, n, fh.curSite)
}

// GenotypeVectorFromGTFormat decodes a plain VCF-text FORMAT/GT column
// (e.g. "0/1", "1|0", ".", "./.") for a RECORD_BCFVCF_GENOTYPE record,
// the case where genotypes live in the companion file itself rather
// than the side-car.
func GenotypeVectorFromGTFormat(rec *vcfio.Record, n int) (GenotypeVector, error) {
	gtCol := -1
	for i, f := range rec.Format {
		if f == "GT" {
			gtCol = i
			break
		}
	}
	if gtCol < 0 {
		return nil, errorf("xcf.GenotypeVectorFromGTFormat", KindFormat, "record has no FORMAT/GT column")
	}
	gv := make(GenotypeVector, n)
	for i := 0; i < n && i < len(rec.Samples); i++ {
		gt := rec.Samples[i][gtCol]
		g, err := parseGT(gt)
		if err != nil {
			return nil, errorf("xcf.GenotypeVectorFromGTFormat", KindFormat, "sample %d: %v", i, err)
		}
		gv[i] = g
	}
	return gv, nil
}

func parseGT(s string) (Genotype, error) {
	phased := strings.ContainsRune(s, '|')
	sep := "/"
	if phased {
		sep = "|"
	}
	parts := strings.SplitN(s, sep, 2)
	if len(parts) != 2 {
		if s == "." {
			return MissingGenotype, nil
		}
		return Genotype{}, errorf("xcf.parseGT", KindFormat, "malformed GT %q", s)
	}
	a0, err0 := parseAllele(parts[0])
	a1, err1 := parseAllele(parts[1])
	if err0 != nil {
		return Genotype{}, err0
	}
	if err1 != nil {
		return Genotype{}, err1
	}
	return Genotype{A0: a0, A1: a1, Phased: phased}, nil
}

func parseAllele(s string) (int8, error) {
	if s == "." {
		return -1, nil
	}
	v, err := strconv.Atoi(s)
	if err != nil {
		return 0, err
	}
	return int8(v), nil
}

// Close releases every tracked file.
func (x *XcfReader) Close() error {
	var firstErr error
	for len(x.files) > 0 {
		if err := x.RemoveFile(0); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}
