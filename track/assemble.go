package track

import (
	"fmt"

	"github.com/dargueta/cikada"
	"github.com/noxer/bytewriter"
)

const (
	// FillerRecordsPerTrack is the number of records in a filler track.
	FillerRecordsPerTrack = 12
	// FillerDataLength is the data length of every record in a filler track.
	FillerDataLength = 4096
)

// Assemble writes a complete track image for the given address and records
// into `output`, which must be exactly [TrackSize] bytes. Record numbers are
// assigned from the position of each record, starting at 1.
//
// Everything after the end-of-track marker is zeroed, so `output` can be reused
// across calls. If the records don't fit in [MaxPayload] bytes, Assemble fails
// with [cikada.ErrBufferOverflow] and the contents of `output` are undefined.
func Assemble(header Header, records []Record, output []byte) error {
	err := checkTrackSize(output)
	if err != nil {
		return err
	}
	if len(records) > MaxRecordsPerTrack {
		return cikada.ErrInvalidArgument.WithMessage(
			fmt.Sprintf(
				"a track can hold at most %d records, got %d",
				MaxRecordsPerTrack,
				len(records),
			),
		)
	}

	writer := bytewriter.New(output)
	written := 0
	write := func(chunk []byte, what string) error {
		n, err := writer.Write(chunk)
		written += n
		if err != nil || n < len(chunk) {
			return cikada.ErrBufferOverflow.WithMessage(
				fmt.Sprintf(
					"%s doesn't fit: %d bytes needed at offset %d, track is %d bytes",
					what,
					len(chunk),
					written-n,
					TrackSize,
				),
			)
		}
		return nil
	}

	err = write(header.marshal(), "track header")
	if err != nil {
		return err
	}

	for i, record := range records {
		if len(record.Key) > 0xFF || len(record.Data) > 0xFFFF {
			return cikada.ErrInvalidArgument.WithMessage(
				fmt.Sprintf(
					"record %d has key length %d and data length %d; maximums are 255 and 65535",
					i+1,
					len(record.Key),
					len(record.Data),
				),
			)
		}

		recordHeader := RecordHeader{
			Cylinder:   header.Cylinder,
			Head:       header.Head,
			Record:     uint8(i + 1),
			KeyLength:  uint8(len(record.Key)),
			DataLength: uint16(len(record.Data)),
		}
		what := fmt.Sprintf("record %d", i+1)

		err = write(recordHeader.marshal(), what)
		if err != nil {
			return err
		}
		err = write(record.Key, what)
		if err != nil {
			return err
		}
		err = write(record.Data, what)
		if err != nil {
			return err
		}
	}

	err = write(fence[:], "end-of-track marker")
	if err != nil {
		return err
	}

	tail := output[written:]
	for i := range tail {
		tail[i] = 0
	}
	return nil
}

// FillerRecords returns the records of an empty, freshly formatted track: twelve
// records with no key and 4 KiB of zeroed data each. The records share storage
// and must not be modified.
func FillerRecords() []Record {
	data := make([]byte, FillerDataLength)
	records := make([]Record, FillerRecordsPerTrack)
	for i := range records {
		records[i] = Record{Key: []byte{}, Data: data}
	}
	return records
}
