package vcfio

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"github.com/klauspost/compress/gzip"
)

// Reader reads a companion VCF text container line by line. Callers
// read the Header once after Open, then call Next until it returns
// io.EOF.
type Reader struct {
	f      *os.File
	gz     *gzip.Reader
	sc     *bufio.Scanner
	Header *Header
}

// Open opens path (gzip-compressed, following the .vcf.gz convention
// used throughout the toolbox) and parses its header block.
func Open(path string) (*Reader, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("vcfio.Open: %w", err)
	}
	gz, err := gzip.NewReader(f)
	if err != nil {
		f.Close()
		return nil, fmt.Errorf("vcfio.Open: %w", err)
	}
	sc := bufio.NewScanner(gz)
	sc.Buffer(make([]byte, 0, 64*1024), 64*1024*1024)

	r := &Reader{f: f, gz: gz, sc: sc}
	h, err := r.readHeader()
	if err != nil {
		gz.Close()
		f.Close()
		return nil, err
	}
	r.Header = h
	return r, nil
}

func (r *Reader) readHeader() (*Header, error) {
	h := NewHeader()
	for r.sc.Scan() {
		line := r.sc.Text()
		if strings.HasPrefix(line, "##") {
			parseMetaLine(h, line[2:])
			continue
		}
		if strings.HasPrefix(line, "#CHROM") {
			cols := strings.Split(line[1:], "\t")
			if len(cols) > 8 {
				h.Samples = cols[9:]
			}
			return h, nil
		}
		return nil, fmt.Errorf("vcfio.readHeader: data line encountered before #CHROM header")
	}
	if err := r.sc.Err(); err != nil {
		return nil, fmt.Errorf("vcfio.readHeader: %w", err)
	}
	return nil, fmt.Errorf("vcfio.readHeader: missing #CHROM header line")
}

func parseMetaLine(h *Header, line string) {
	eq := strings.IndexByte(line, '=')
	if eq < 0 {
		return
	}
	key, value := line[:eq], line[eq+1:]
	switch key {
	case "fileformat":
		h.FileFormat = value
	case "contig":
		if body, ok := angleBody(value); ok {
			fields := parseAngleFields(body)
			h.AddContig(fields["ID"])
		}
	case "INFO":
		if body, ok := angleBody(value); ok {
			fields := parseAngleFields(body)
			h.Infos = append(h.Infos, FieldInfo{
				ID: fields["ID"], Number: fields["Number"], Type: fields["Type"], Description: fields["Description"],
			})
		}
	case "FORMAT":
		if body, ok := angleBody(value); ok {
			fields := parseAngleFields(body)
			h.Formats = append(h.Formats, FieldInfo{
				ID: fields["ID"], Number: fields["Number"], Type: fields["Type"], Description: fields["Description"],
			})
		}
	default:
		h.Meta = append(h.Meta, MetaInfo{Key: key, Raw: value})
	}
}

// Next parses and returns the next data line, or io.EOF once the
// stream is exhausted.
func (r *Reader) Next() (*Record, error) {
	if !r.sc.Scan() {
		if err := r.sc.Err(); err != nil {
			return nil, fmt.Errorf("vcfio.Reader.Next: %w", err)
		}
		return nil, io.EOF
	}
	return parseRecord(r.sc.Text())
}

func parseRecord(line string) (*Record, error) {
	cols := strings.SplitN(line, "\t", 9)
	if len(cols) < 8 {
		return nil, fmt.Errorf("vcfio.parseRecord: line has %d columns, need at least 8", len(cols))
	}
	pos, err := strconv.ParseInt(cols[1], 10, 64)
	if err != nil {
		return nil, fmt.Errorf("vcfio.parseRecord: invalid POS %q: %w", cols[1], err)
	}
	rec := &Record{
		Chrom:  cols[0],
		Pos:    pos,
		ID:     cols[2],
		Ref:    cols[3],
		Alt:    cols[4],
		Qual:   cols[5],
		Filter: cols[6],
	}
	rec.Info, rec.infoOrd = parseInfo(cols[7])
	if len(cols) == 9 {
		rest := strings.Split(cols[8], "\t")
		rec.Format = strings.Split(rest[0], ":")
		for _, s := range rest[1:] {
			rec.Samples = append(rec.Samples, strings.Split(s, ":"))
		}
	}
	return rec, nil
}

// Close releases the underlying file handles.
func (r *Reader) Close() error {
	gzErr := r.gz.Close()
	fErr := r.f.Close()
	if gzErr != nil {
		return gzErr
	}
	return fErr
}
