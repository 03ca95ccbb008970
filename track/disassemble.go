package track

import (
	"fmt"

	"github.com/boljen/go-bitmap"
	"github.com/dargueta/cikada"
	rl "github.com/dargueta/cikada/utilities/runlength"
)

// Record is the key and data of a single record. The record number is implied
// by its position in [Track.Records].
type Record struct {
	Key  []byte
	Data []byte
}

// Track is a disassembled track image.
type Track struct {
	Header
	// Records holds the track's records in order, such that Records[i] is
	// record number i+1.
	Records []Record
}

// WalkFunc is called by [Walk] for each record in a track. `key` and `data` are
// slices of the track buffer and must be copied if they're to outlive it.
type WalkFunc func(track Header, record RecordHeader, key, data []byte) error

// Walk reads the header of a track image and calls `fn` on every record in it,
// stopping at the end-of-track marker. The buffer must be exactly [TrackSize]
// bytes long.
//
// Walk does not check record numbers or addresses; it fails only if the fence
// is missing or `fn` returns an error.
func Walk(buffer []byte, fn WalkFunc) (Header, error) {
	err := checkTrackSize(buffer)
	if err != nil {
		return Header{}, err
	}

	reader := cursor{data: buffer}
	header, err := reader.readHeader()
	if err != nil {
		return Header{}, err
	}

	for {
		recordHeader, err := reader.readRecordHeader()
		if err != nil {
			return header, err
		}
		if recordHeader.IsEndOfTrack() {
			return header, nil
		}

		key, err := reader.take(int(recordHeader.KeyLength))
		if err != nil {
			return header, err
		}
		data, err := reader.take(int(recordHeader.DataLength))
		if err != nil {
			return header, err
		}

		err = fn(header, recordHeader, key, data)
		if err != nil {
			return header, err
		}
	}
}

// Disassemble splits a track image into its records. The keys and data of the
// returned records point into `buffer`.
//
// Records must be numbered 1, 2, 3, ... in order, and each record's address
// must match the address of the track. Anything else fails with
// [cikada.ErrMalformedTrack], since the record numbers and addresses aren't
// preserved in a CiKaDa stream.
func Disassemble(buffer []byte) (*Track, error) {
	seen := bitmap.New(EndOfTrack + 1)
	highest := 0
	records := make([]Record, 0, 16)

	header, err := Walk(
		buffer,
		func(trackHeader Header, recordHeader RecordHeader, key, data []byte) error {
			if recordHeader.Cylinder != trackHeader.Cylinder || recordHeader.Head != trackHeader.Head {
				return cikada.ErrMalformedTrack.WithMessage(
					fmt.Sprintf(
						"record %d has address CC=%d HH=%d, expected CC=%d HH=%d",
						recordHeader.Record,
						recordHeader.Cylinder,
						recordHeader.Head,
						trackHeader.Cylinder,
						trackHeader.Head,
					),
				)
			}

			index := int(recordHeader.Record)
			if index == 0 {
				return cikada.ErrMalformedTrack.WithMessage("record numbers start at 1, got 0")
			}
			if seen.Get(index) {
				return cikada.ErrMalformedTrack.WithMessage(
					fmt.Sprintf("record %d appears more than once", index))
			}
			if index < highest {
				return cikada.ErrMalformedTrack.WithMessage(
					fmt.Sprintf("record %d follows record %d", index, highest))
			}

			seen.Set(index, true)
			highest = index
			records = append(records, Record{Key: key, Data: data})
			return nil
		},
	)
	if err != nil {
		return nil, err
	}

	// Every record number up to the highest one must be present, or the record
	// count written to the stream won't match the number of bodies.
	for i := 1; i <= highest; i++ {
		if !seen.Get(i) {
			return nil, cikada.ErrMalformedTrack.WithMessage(
				fmt.Sprintf("record %d is missing, but track has %d records", i, highest))
		}
	}

	return &Track{Header: header, Records: records}, nil
}

// KeyLengths returns the key length of every record, in order.
func (t *Track) KeyLengths() []uint8 {
	lengths := make([]uint8, len(t.Records))
	for i, record := range t.Records {
		lengths[i] = uint8(len(record.Key))
	}
	return lengths
}

// DataLengths returns the data length of every record, in order.
func (t *Track) DataLengths() []uint16 {
	lengths := make([]uint16, len(t.Records))
	for i, record := range t.Records {
		lengths[i] = uint16(len(record.Data))
	}
	return lengths
}

// KeyRuns returns the run-length encoded key lengths.
func (t *Track) KeyRuns() []rl.Run[uint8] {
	return rl.EncodeRuns(t.KeyLengths())
}

// DataRuns returns the run-length encoded data lengths.
func (t *Track) DataRuns() []rl.Run[uint16] {
	return rl.EncodeRuns(t.DataLengths())
}
