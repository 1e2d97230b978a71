package vcfio

import (
	"bufio"
	"fmt"
	"os"
	"strings"

	"github.com/klauspost/compress/gzip"
)

// Writer writes a companion VCF text container: WriteHeader once,
// then WriteRecord per site, then Close.
type Writer struct {
	f  *os.File
	gz *gzip.Writer
	bw *bufio.Writer
}

// Create opens path for writing, gzip-compressed.
func Create(path string) (*Writer, error) {
	return CreateWithConcurrency(path, 1)
}

// CreateWithConcurrency is Create, but splits the gzip stream across
// blocks concurrent compression workers (klauspost/compress/gzip's
// SetConcurrency) when blocks > 1 — the knob behind --threads on the
// tools that write a companion file.
func CreateWithConcurrency(path string, blocks int) (*Writer, error) {
	f, err := os.Create(path)
	if err != nil {
		return nil, fmt.Errorf("vcfio.Create: %w", err)
	}
	gz := gzip.NewWriter(f)
	if blocks > 1 {
		const blockSize = 1 << 20
		if err := gz.SetConcurrency(blockSize, blocks); err != nil {
			f.Close()
			return nil, fmt.Errorf("vcfio.CreateWithConcurrency: %w", err)
		}
	}
	return &Writer{f: f, gz: gz, bw: bufio.NewWriter(gz)}, nil
}

// WriteHeader serializes h's meta-information block and #CHROM line.
func (w *Writer) WriteHeader(h *Header) error {
	fmt.Fprintf(w.bw, "##fileformat=%s\n", h.FileFormat)
	for _, c := range h.Contigs {
		fmt.Fprintf(w.bw, "##contig=<ID=%s>\n", c)
	}
	for _, info := range h.Infos {
		fmt.Fprintf(w.bw, "##INFO=<ID=%s,Number=%s,Type=%s,Description=%q>\n", info.ID, info.Number, info.Type, info.Description)
	}
	for _, f := range h.Formats {
		fmt.Fprintf(w.bw, "##FORMAT=<ID=%s,Number=%s,Type=%s,Description=%q>\n", f.ID, f.Number, f.Type, f.Description)
	}
	for _, m := range h.Meta {
		fmt.Fprintf(w.bw, "##%s=%s\n", m.Key, m.Raw)
	}
	cols := []string{"CHROM", "POS", "ID", "REF", "ALT", "QUAL", "FILTER", "INFO"}
	if len(h.Samples) > 0 {
		cols = append(cols, "FORMAT")
		cols = append(cols, h.Samples...)
	}
	// bufio.Writer's error is sticky, so the last write reports any
	// earlier failure.
	_, err := fmt.Fprintf(w.bw, "#%s\n", strings.Join(cols, "\t"))
	return err
}

// WriteRecord serializes one data line.
func (w *Writer) WriteRecord(r *Record) error {
	fmt.Fprintf(w.bw, "%s\t%d\t%s\t%s\t%s\t%s\t%s\t%s",
		r.Chrom, r.Pos, orDot(r.ID), r.Ref, orDot(r.Alt), orDot(r.Qual), orDot(r.Filter), r.infoString())
	if len(r.Format) > 0 {
		fmt.Fprintf(w.bw, "\t%s", strings.Join(r.Format, ":"))
		for _, sample := range r.Samples {
			fmt.Fprintf(w.bw, "\t%s", strings.Join(sample, ":"))
		}
	}
	return w.bw.WriteByte('\n')
}

func orDot(s string) string {
	if s == "" {
		return "."
	}
	return s
}

// Close flushes buffered output and closes the underlying file.
func (w *Writer) Close() error {
	if err := w.bw.Flush(); err != nil {
		w.gz.Close()
		w.f.Close()
		return fmt.Errorf("vcfio.Writer.Close: %w", err)
	}
	if err := w.gz.Close(); err != nil {
		w.f.Close()
		return fmt.Errorf("vcfio.Writer.Close: %w", err)
	}
	if err := w.f.Close(); err != nil {
		return fmt.Errorf("vcfio.Writer.Close: %w", err)
	}
	return nil
}
