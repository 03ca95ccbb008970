// Package pipeline moves tracks between raw devices and CiKaDa streams, and
// renders them for inspection. Each function processes one track at a time in
// a single caller-supplied buffer of [track.TrackSize] bytes, which should be
// aligned if the device was opened for direct I/O.
package pipeline

import (
	"fmt"
	"io"
	"math"

	"github.com/dargueta/cikada"
	"github.com/dargueta/cikada/geometry"
	"github.com/dargueta/cikada/track"
)

// Stage identifies which side of a pipeline an error came from.
type Stage int

const (
	// StageInput is the device or stream being read from, including malformed
	// data found in it.
	StageInput Stage = iota
	// StageOutput is the device or stream being written to.
	StageOutput
)

func (s Stage) String() string {
	if s == StageInput {
		return "input"
	}
	return "output"
}

// Error is returned by all pipelines when they fail, so callers can tell read
// failures from write failures.
type Error struct {
	Stage Stage
	Track geometry.TrackNumber
	Err   error
}

func (e *Error) Error() string {
	return fmt.Sprintf("%s error at track %d: %s", e.Stage, e.Track, e.Err.Error())
}

func (e *Error) Unwrap() error {
	return e.Err
}

func inputError(trackNumber geometry.TrackNumber, err error) error {
	return &Error{Stage: StageInput, Track: trackNumber, Err: err}
}

func outputError(trackNumber geometry.TrackNumber, err error) error {
	return &Error{Stage: StageOutput, Track: trackNumber, Err: err}
}

// addressOf gives the header a track at the given position should have.
func addressOf(trackNumber geometry.TrackNumber) (track.Header, error) {
	cylinder := geometry.CylinderOf(trackNumber)
	if cylinder > math.MaxUint16 {
		return track.Header{}, cikada.ErrInvalidArgument.WithMessage(
			fmt.Sprintf(
				"track %d is on cylinder %d, which can't be addressed with 16 bits",
				trackNumber,
				cylinder,
			),
		)
	}
	return track.Header{
		Cylinder: uint16(cylinder),
		Head:     uint16(geometry.TrackInCylinderOf(trackNumber)),
	}, nil
}

func checkBuffer(buffer []byte) error {
	if len(buffer) != track.TrackSize {
		return cikada.ErrInvalidArgument.WithMessage(
			fmt.Sprintf("track buffer must be %d bytes, got %d", track.TrackSize, len(buffer)))
	}
	return nil
}

// countingReader counts the bytes read through it.
type countingReader struct {
	reader io.Reader
	count  int64
}

func (r *countingReader) Read(p []byte) (int, error) {
	n, err := r.reader.Read(p)
	r.count += int64(n)
	return n, err
}
