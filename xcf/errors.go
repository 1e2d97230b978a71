// Package xcf implements the XCF container: a companion VCF/BCF file
// paired with a binary genotype payload and a pedigree side-car.
package xcf

import (
	"errors"
	"fmt"

	"github.com/carbocation/pfx"
)

// Kind enumerates the error taxonomy used across the toolbox.
type Kind int

const (
	// KindIO covers open/read/write/seek failures on any file, including
	// missing companion .fam/.bin files.
	KindIO Kind = iota
	// KindFormat covers unexpected record types, wrong INFO/SEEK arity,
	// multi-allelic sites where biallelic was required, missing data in a
	// haplotype encoding, mismatched sample lists, out-of-order shards,
	// too many overlapping shards, and incompatible headers.
	KindFormat
	// KindEncodingOverflow is a sample index that does not fit in the
	// SparseGenotype's 27-bit index field.
	KindEncodingOverflow
	// KindExhausted marks a normal end-of-stream condition, not an error
	// in the usual sense; it is surfaced so callers can distinguish it
	// from real failures when they need to.
	KindExhausted
	// KindConfiguration covers invalid flag combinations.
	KindConfiguration
)

func (k Kind) String() string {
	switch k {
	case KindIO:
		return "IO"
	case KindFormat:
		return "Format"
	case KindEncodingOverflow:
		return "EncodingOverflow"
	case KindExhausted:
		return "Exhausted"
	case KindConfiguration:
		return "Configuration"
	default:
		return "Unknown"
	}
}

// Error is the concrete error type returned at package boundaries. It
// carries a Kind so callers can errors.As into it and branch on the
// taxonomy from the error-handling design, while still flowing through
// fmt.Errorf/%w and pfx.Err like any other error.
type Error struct {
	Kind Kind
	Op   string // operation that failed, e.g. "xcf.XcfReader.AddFile"
	Err  error
}

func (e *Error) Error() string {
	if e.Err == nil {
		return fmt.Sprintf("%s: %s", e.Op, e.Kind)
	}
	return fmt.Sprintf("%s: %s: %v", e.Op, e.Kind, e.Err)
}

func (e *Error) Unwrap() error { return e.Err }

// wrapErr builds an *Error for op/kind and runs it through pfx.Err so
// the call site is recorded the same way every bgen function recorded
// its own failures.
func wrapErr(op string, kind Kind, err error) error {
	if err == nil {
		return nil
	}
	return pfx.Err(&Error{Kind: kind, Op: op, Err: err})
}

// errorf is a convenience constructor mirroring wrapErr for the common
// case of a freshly-minted error string rather than a wrapped cause.
func errorf(op string, kind Kind, format string, args ...interface{}) error {
	return wrapErr(op, kind, fmt.Errorf(format, args...))
}

// NewFormatError builds a KindFormat *Error for callers outside this
// package (the ligation engine's pre-flight shard checks, in
// particular) that need to raise the same taxonomy without access to
// the unexported errorf helper.
func NewFormatError(op, format string, args ...interface{}) error {
	return errorf(op, KindFormat, format, args...)
}

// NewConfigurationError builds a KindConfiguration *Error for callers
// outside this package (cmd/xcf's flag validation, in particular) that
// need to raise the same taxonomy without access to the unexported
// errorf helper.
func NewConfigurationError(op, format string, args ...interface{}) error {
	return errorf(op, KindConfiguration, format, args...)
}

// IsExhausted reports whether err (or something it wraps) is a
// KindExhausted *Error. XcfReader.Next signals its end by returning
// false, not with this kind.
func IsExhausted(err error) bool {
	var xerr *Error
	if errors.As(err, &xerr) {
		return xerr.Kind == KindExhausted
	}
	return false
}
