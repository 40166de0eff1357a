package gemana

import (
	"errors"
	"fmt"
)

// ExitUsage is the sysexits.h EX_USAGE status returned on bad command input.
const ExitUsage = 64

// ErrUsage represents a malformed or unsupported command-line value.
type ErrUsage struct {
	Option string
	Value  string
	Reason string
}

func (e *ErrUsage) Error() string {
	return fmt.Sprintf("invalid value %q for %s: %s", e.Value, e.Option, e.Reason)
}

// ErrMissingEnv represents a required environment variable that is not set.
type ErrMissingEnv struct {
	Name string
}

func (e *ErrMissingEnv) Error() string {
	return fmt.Sprintf("environment variable %s is not set", e.Name)
}

// ErrOpenFile represents an error when opening a file.
type ErrOpenFile struct {
	Filename string
	Err      error
}

func (e *ErrOpenFile) Error() string {
	return fmt.Sprintf("error opening file %q: %v", e.Filename, e.Err)
}

func (e *ErrOpenFile) Unwrap() error {
	return e.Err
}

// ErrChipIndex represents an event whose VFAT position is outside [0, NVFATs).
type ErrChipIndex struct {
	Index int
}

func (e *ErrChipIndex) Error() string {
	return fmt.Sprintf("vfat index %d out of range [0,%d)", e.Index, NVFATs)
}

// ErrLatency represents an event whose latency setting is outside the
// histogram domain.
type ErrLatency struct {
	VFATN   int
	Latency int
}

func (e *ErrLatency) Error() string {
	return fmt.Sprintf("latency %d of vfat %d out of range [0,%d]", e.Latency, e.VFATN, NLatBins-1)
}

// ErrNoFitPoints is returned when a fit window selects no usable points.
type ErrNoFitPoints struct {
	Name  string
	Range Range
}

func (e *ErrNoFitPoints) Error() string {
	return fmt.Sprintf("no points with non-zero uncertainty for %s fit in [%g,%g]", e.Name, e.Range.Min, e.Range.Max)
}

// IsUsage reports whether err is, or wraps, a usage error.
func IsUsage(err error) bool {
	var usage *ErrUsage
	return errors.As(err, &usage)
}
