package types

import (
	"errors"
	"fmt"
)

var (
	ErrDegenerateInput = errors.New("degenerate input")
	ErrShapeMismatch   = errors.New("shape mismatch")
	ErrMissingInput    = errors.New("missing input")
)

// DegenerateInputError reports input the metrics are undefined for:
// constant rasters, zero variance, no valid samples.
type DegenerateInputError struct {
	Reason string
}

func (e *DegenerateInputError) Error() string {
	return fmt.Sprintf("degenerate input: %s", e.Reason)
}

func (e *DegenerateInputError) Is(target error) bool {
	return target == ErrDegenerateInput
}

// ShapeMismatchError reports rasters that could not be brought onto one grid
type ShapeMismatchError struct {
	Want Shape
	Got  Shape
}

func (e *ShapeMismatchError) Error() string {
	return fmt.Sprintf("shape mismatch: want %s, got %s", e.Want, e.Got)
}

func (e *ShapeMismatchError) Is(target error) bool {
	return target == ErrShapeMismatch
}

// MissingInputError reports a raster source that cannot be opened
type MissingInputError struct {
	Path string
	Err  error
}

func (e *MissingInputError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("missing input %s: %v", e.Path, e.Err)
	}
	return fmt.Sprintf("missing input %s", e.Path)
}

func (e *MissingInputError) Is(target error) bool {
	return target == ErrMissingInput
}

func (e *MissingInputError) Unwrap() error {
	return e.Err
}

// Stage names a step of the comparison pipeline
type Stage string

const (
	StageLoad      Stage = "load"
	StageNormalize Stage = "normalize"
	StageResample  Stage = "resample"
	StageSegment   Stage = "segment"
	StageDenoise   Stage = "denoise"
	StageExtract   Stage = "extract"
	StageMatch     Stage = "match"
	StageScore     Stage = "score"
)

// StageError tags an error with the pipeline stage that produced it
type StageError struct {
	Stage Stage
	Err   error
}

func (e *StageError) Error() string {
	return fmt.Sprintf("%s: %v", e.Stage, e.Err)
}

func (e *StageError) Unwrap() error {
	return e.Err
}

// Degenerate is shorthand for a DegenerateInputError with a formatted reason
func Degenerate(format string, args ...interface{}) error {
	return &DegenerateInputError{Reason: fmt.Sprintf(format, args...)}
}
