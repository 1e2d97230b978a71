package xcf

import (
	"io"
	"os"

	"github.com/DataDog/zstd"
)

// SidecarCompression indicates how (and whether) a .bin side-car's
// bytes are compressed on disk. Generalized from bgen's bgen13
// Compression enum (zstd.go, compression.go), trimmed to the one
// codec actually wired up: DataDog/zstd.
type SidecarCompression uint32

const (
	SidecarCompressionNone SidecarCompression = iota
	SidecarCompressionZstd
)

// zstdSidecarExt is the suffix a zstd-compressed side-car carries after
// ".bin": createZstdSidecarWriter's output has it, and openSidecar
// appends it when no plain .bin exists.
const zstdSidecarExt = ".zst"

// DecompressZStandard decompresses a single zstd frame, reusing dst's
// backing array when it is large enough. Nothing in this package calls
// it; compressed side-cars are read through materializeZstdSidecar
// below.
func DecompressZStandard(dst, src []byte) ([]byte, error) {
	out, err := zstd.Decompress(dst, src)
	if err != nil {
		return nil, wrapErr("xcf.DecompressZStandard", KindFormat, err)
	}
	return out, nil
}

// zstdSidecarWriter streams .bin payload bytes through a zstd
// compressor as they're appended; the side-car's append-only cursor
// never needs to seek backward, so writing can stream naturally even
// though reading a compressed side-car cannot (see
// materializeZstdSidecar).
type zstdSidecarWriter struct {
	f  *os.File
	zw *zstd.Writer
}

func createZstdSidecarWriter(path string) (*zstdSidecarWriter, error) {
	f, err := os.Create(path)
	if err != nil {
		return nil, wrapErr("xcf.createZstdSidecarWriter", KindIO, err)
	}
	return &zstdSidecarWriter{f: f, zw: zstd.NewWriter(f)}, nil
}

func (w *zstdSidecarWriter) Write(p []byte) (int, error) {
	n, err := w.zw.Write(p)
	if err != nil {
		return n, wrapErr("xcf.zstdSidecarWriter.Write", KindIO, err)
	}
	return n, nil
}

func (w *zstdSidecarWriter) Close() error {
	if err := w.zw.Close(); err != nil {
		w.f.Close()
		return wrapErr("xcf.zstdSidecarWriter.Close", KindIO, err)
	}
	return wrapErr("xcf.zstdSidecarWriter.Close", KindIO, w.f.Close())
}

// materializeZstdSidecar decompresses a whole .bin.zst side-car into a
// freshly created temp file and returns it opened for reading, so the
// reader can ReadAt into it exactly as it would a plain .bin: zstd's
// frame format is not randomly seekable, so random access to a
// compressed side-car requires paying the decompression cost once, up
// front, rather than per read.
func materializeZstdSidecar(path string) (*os.File, error) {
	src, err := os.Open(path)
	if err != nil {
		return nil, wrapErr("xcf.materializeZstdSidecar", KindIO, err)
	}
	defer src.Close()

	tmp, err := os.CreateTemp("", "xcf-sidecar-*.bin")
	if err != nil {
		return nil, wrapErr("xcf.materializeZstdSidecar", KindIO, err)
	}

	zr := zstd.NewReader(src)
	defer zr.Close()

	if _, err := io.Copy(tmp, zr); err != nil {
		tmp.Close()
		os.Remove(tmp.Name())
		return nil, wrapErr("xcf.materializeZstdSidecar", KindIO, err)
	}
	if _, err := tmp.Seek(0, io.SeekStart); err != nil {
		tmp.Close()
		os.Remove(tmp.Name())
		return nil, wrapErr("xcf.materializeZstdSidecar", KindIO, err)
	}
	return tmp, nil
}
