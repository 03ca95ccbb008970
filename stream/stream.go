// Package stream reads and writes the CiKaDa transport format.
//
// Each track in the stream is encoded as:
//
//	record count       1 byte
//	key length runs    (run length: 1 byte, key length: 1 byte) ...
//	data length runs   (run length: 1 byte, data length: 2 bytes, big-endian) ...
//	record bodies      key, then data, for each record in order
//
// The runs of each kind are read until their lengths add up to the record
// count, so a track with no records is a single zero byte. The stream has no
// header, no track addresses, and no end marker: tracks are numbered by their
// position, and the stream ends when the input does.
package stream

import (
	"encoding/binary"
	"errors"
	"fmt"
	"io"

	"github.com/dargueta/cikada"
	"github.com/dargueta/cikada/track"
	rl "github.com/dargueta/cikada/utilities/runlength"
)

// Track is a single track as it's represented in a CiKaDa stream.
type Track struct {
	KeyRuns  []rl.Run[uint8]
	DataRuns []rl.Run[uint16]
	Records  []track.Record
}

// FromTrack compresses the record lengths of a disassembled track. The records
// themselves are shared, not copied.
func FromTrack(t *track.Track) *Track {
	return &Track{
		KeyRuns:  t.KeyRuns(),
		DataRuns: t.DataRuns(),
		Records:  t.Records,
	}
}

// RecordCount gives the number of records in the track.
func (t *Track) RecordCount() int {
	return len(t.Records)
}

// EncodedSize gives the number of bytes [WriteTrack] will write for this track.
func (t *Track) EncodedSize() int64 {
	size := int64(1 + 2*len(t.KeyRuns) + 3*len(t.DataRuns))
	for _, record := range t.Records {
		size += int64(len(record.Key) + len(record.Data))
	}
	return size
}

// validate makes sure the runs describe the records exactly, so that a reader
// can recover the records from the stream.
func (t *Track) validate() error {
	if len(t.Records) > track.MaxRecordsPerTrack {
		return cikada.ErrInvalidArgument.WithMessage(
			fmt.Sprintf(
				"a track can hold at most %d records, got %d",
				track.MaxRecordsPerTrack,
				len(t.Records),
			),
		)
	}
	// Every run covers at least one record.
	if len(t.KeyRuns) > len(t.Records) || len(t.DataRuns) > len(t.Records) {
		return cikada.ErrTooManyRuns.WithMessage(
			fmt.Sprintf(
				"got %d key runs and %d data runs for %d records",
				len(t.KeyRuns),
				len(t.DataRuns),
				len(t.Records),
			),
		)
	}

	if rl.TotalLength(t.KeyRuns) != len(t.Records) || rl.TotalLength(t.DataRuns) != len(t.Records) {
		return cikada.ErrInvalidArgument.WithMessage(
			fmt.Sprintf(
				"runs describe %d keys and %d data fields for %d records",
				rl.TotalLength(t.KeyRuns),
				rl.TotalLength(t.DataRuns),
				len(t.Records),
			),
		)
	}
	if hasEmptyRun(t.KeyRuns) || hasEmptyRun(t.DataRuns) {
		return cikada.ErrInvalidArgument.WithMessage("runs must have a length of at least 1")
	}

	keyLengths, err := rl.DecodeRuns(t.KeyRuns, len(t.Records))
	if err != nil {
		return err
	}
	dataLengths, err := rl.DecodeRuns(t.DataRuns, len(t.Records))
	if err != nil {
		return err
	}

	for i, record := range t.Records {
		if len(record.Key) != int(keyLengths[i]) || len(record.Data) != int(dataLengths[i]) {
			return cikada.ErrInvalidArgument.WithMessage(
				fmt.Sprintf(
					"record %d has key and data lengths %d and %d, but runs say %d and %d",
					i+1,
					len(record.Key),
					len(record.Data),
					keyLengths[i],
					dataLengths[i],
				),
			)
		}
	}
	return nil
}

func hasEmptyRun[T rl.Value](runs []rl.Run[T]) bool {
	for _, run := range runs {
		if run.RunLength == 0 {
			return true
		}
	}
	return false
}

// WriteTrack writes a single track to the output. The return value is the
// number of bytes written, which is only meaningful if no error occurred.
func WriteTrack(output io.Writer, t *Track) (int64, error) {
	err := t.validate()
	if err != nil {
		return 0, err
	}

	prefix := make([]byte, 0, 1+2*len(t.KeyRuns)+3*len(t.DataRuns))
	prefix = append(prefix, byte(len(t.Records)))
	for _, run := range t.KeyRuns {
		prefix = append(prefix, run.RunLength, run.Value)
	}
	for _, run := range t.DataRuns {
		prefix = append(prefix, run.RunLength)
		prefix = binary.BigEndian.AppendUint16(prefix, run.Value)
	}

	totalBytesWritten := int64(0)
	write := func(chunk []byte) error {
		if len(chunk) == 0 {
			return nil
		}
		n, err := output.Write(chunk)
		totalBytesWritten += int64(n)
		if err == nil && n < len(chunk) {
			err = io.ErrShortWrite
		}
		if err != nil {
			return cikada.ErrIOFailed.Wrap(err)
		}
		return nil
	}

	err = write(prefix)
	if err != nil {
		return totalBytesWritten, err
	}
	for _, record := range t.Records {
		err = write(record.Key)
		if err != nil {
			return totalBytesWritten, err
		}
		err = write(record.Data)
		if err != nil {
			return totalBytesWritten, err
		}
	}
	return totalBytesWritten, nil
}

// ReadTrack reads a single track from the input. If the input is exhausted
// before the first byte of the track, it returns [io.EOF] itself. Running out
// of input anywhere else fails with [cikada.ErrMalformedStream] wrapping
// [io.ErrUnexpectedEOF].
func ReadTrack(input io.Reader) (*Track, error) {
	var countByte [1]byte
	_, err := io.ReadFull(input, countByte[:])
	if errors.Is(err, io.EOF) {
		return nil, io.EOF
	} else if err != nil {
		return nil, cikada.ErrIOFailed.Wrap(err)
	}

	recordCount := int(countByte[0])
	if recordCount > track.MaxRecordsPerTrack {
		return nil, cikada.ErrMalformedStream.WithMessage(
			fmt.Sprintf(
				"record count %d is reserved for the end-of-track marker",
				recordCount,
			),
		)
	}

	keyRuns, err := readRuns(input, recordCount, 1, func(raw []byte) uint8 {
		return raw[0]
	})
	if err != nil {
		return nil, err
	}
	dataRuns, err := readRuns(input, recordCount, 2, binary.BigEndian.Uint16)
	if err != nil {
		return nil, err
	}

	keyLengths, err := rl.DecodeRuns(keyRuns, recordCount)
	if err != nil {
		return nil, err
	}
	dataLengths, err := rl.DecodeRuns(dataRuns, recordCount)
	if err != nil {
		return nil, err
	}

	totalBodySize := 0
	for i := 0; i < recordCount; i++ {
		totalBodySize += int(keyLengths[i]) + int(dataLengths[i])
	}
	if track.BeginningOverhead+recordCount*track.RecordHeaderSize+totalBodySize+track.FenceSize > track.TrackSize {
		return nil, cikada.ErrMalformedStream.WithMessage(
			fmt.Sprintf(
				"%d records with %d bytes of keys and data don't fit in a track",
				recordCount,
				totalBodySize,
			),
		)
	}

	// Read all bodies into a single allocation and slice it up afterwards.
	bodies := make([]byte, totalBodySize)
	err = readFull(input, bodies, "record bodies")
	if err != nil {
		return nil, err
	}

	records := make([]track.Record, recordCount)
	offset := 0
	for i := range records {
		keyEnd := offset + int(keyLengths[i])
		dataEnd := keyEnd + int(dataLengths[i])
		records[i] = track.Record{Key: bodies[offset:keyEnd], Data: bodies[keyEnd:dataEnd]}
		offset = dataEnd
	}

	return &Track{KeyRuns: keyRuns, DataRuns: dataRuns, Records: records}, nil
}

// readRuns reads runs until their lengths add up to `recordCount`. Each value
// is `valueSize` bytes wide and converted with `decode`.
func readRuns[T rl.Value](
	input io.Reader,
	recordCount int,
	valueSize int,
	decode func([]byte) T,
) ([]rl.Run[T], error) {
	runs := make([]rl.Run[T], 0, 1)
	raw := make([]byte, 1+valueSize)
	total := 0

	for total < recordCount {
		err := readFull(input, raw, "runs")
		if err != nil {
			return nil, err
		}

		run := rl.Run[T]{RunLength: raw[0], Value: decode(raw[1:])}
		if run.RunLength == 0 {
			return nil, cikada.ErrMalformedStream.WithMessage(
				fmt.Sprintf("run %d has a length of 0", len(runs)+1))
		}

		total += int(run.RunLength)
		if total > recordCount {
			return nil, cikada.ErrMalformedStream.WithMessage(
				fmt.Sprintf(
					"runs describe at least %d records, but the track only has %d",
					total,
					recordCount,
				),
			)
		}
		runs = append(runs, run)
	}
	return runs, nil
}

func readFull(input io.Reader, buffer []byte, what string) error {
	_, err := io.ReadFull(input, buffer)
	if err == nil {
		return nil
	}
	if errors.Is(err, io.EOF) || errors.Is(err, io.ErrUnexpectedEOF) {
		return cikada.ErrMalformedStream.Wrap(io.ErrUnexpectedEOF).WithMessage(
			fmt.Sprintf("stream ends in the middle of %s", what))
	}
	return cikada.ErrIOFailed.Wrap(err)
}
