package runlength

import (
	"fmt"
	"io"

	"github.com/dargueta/cikada"
)

// MaxRunLength is the largest number of values a single run can represent.
const MaxRunLength = 255

// Value is the set of types that can be run-length encoded. Key lengths are one
// byte wide, data lengths two.
type Value interface {
	~uint8 | ~uint16
}

// Run represents a single run of a particular value.
type Run[T Value] struct {
	// RunLength gives the number of times the value occurs in the run (not the
	// number of times it's repeated).
	//
	// A valid run will always have this be 1 or greater.
	RunLength uint8
	// Value is the value repeated throughout this run.
	Value T
}

// Grouper splits a sequence of values into runs.
type Grouper[T Value] struct {
	values   []T
	position int
}

func NewGrouper[T Value](values []T) *Grouper[T] {
	return &Grouper[T]{values: values}
}

// GetNextRun returns a [Run] for the next value or run of values in the
// sequence. When the sequence is exhausted, it returns [io.EOF].
func (grouper *Grouper[T]) GetNextRun() (Run[T], error) {
	if grouper.position >= len(grouper.values) {
		return Run[T]{}, io.EOF
	}

	first := grouper.values[grouper.position]
	runLength := 1
	for grouper.position+runLength < len(grouper.values) &&
		runLength < MaxRunLength &&
		grouper.values[grouper.position+runLength] == first {
		runLength++
	}

	grouper.position += runLength
	return Run[T]{RunLength: uint8(runLength), Value: first}, nil
}

// EncodeRuns compresses `values` into runs. Expanding the result with
// [DecodeRuns] gives back `values` exactly, and the result never has more runs
// than `values` has elements.
func EncodeRuns[T Value](values []T) []Run[T] {
	grouper := NewGrouper(values)
	runs := make([]Run[T], 0, 1)

	for {
		run, err := grouper.GetNextRun()
		if err != nil {
			return runs
		}
		runs = append(runs, run)
	}
}

// DecodeRuns expands `runs` into a flat sequence of exactly `totalCount` values.
// Expansion stops as soon as `totalCount` values have been produced; anything
// left over in the runs is ignored. If the runs are exhausted first, it fails
// with [cikada.ErrMalformedStream].
func DecodeRuns[T Value](runs []Run[T], totalCount int) ([]T, error) {
	values := make([]T, 0, totalCount)

	for _, run := range runs {
		for i := 0; i < int(run.RunLength) && len(values) < totalCount; i++ {
			values = append(values, run.Value)
		}
		if len(values) == totalCount {
			return values, nil
		}
	}

	if len(values) < totalCount {
		return nil, cikada.ErrMalformedStream.WithMessage(
			fmt.Sprintf(
				"runs expand to %d values, expected %d",
				len(values),
				totalCount,
			),
		)
	}
	return values, nil
}

// TotalLength returns the number of values `runs` expands to.
func TotalLength[T Value](runs []Run[T]) int {
	total := 0
	for _, run := range runs {
		total += int(run.RunLength)
	}
	return total
}
