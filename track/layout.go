// Package track converts between raw ECKD track images and lists of records.
//
// A track image is exactly [TrackSize] bytes long and laid out as follows:
//
//	+---------------------------+  0
//	| cylinder (2) | head (2)   |
//	| gap (12)                  |
//	+---------------------------+  16
//	| record 1 header (8)       |  cylinder (2), head (2), record (1),
//	| key (0-255)               |  key length (1), data length (2)
//	| data (0-65535)            |
//	+---------------------------+
//	| record 2 ...              |
//	+---------------------------+
//	| fence: 12 x 0xFF          |
//	+---------------------------+
//	| zero padding              |
//	+---------------------------+  65536
//
// All multi-byte fields are big-endian.
package track

import (
	"encoding/binary"
	"fmt"

	"github.com/dargueta/cikada"
)

const (
	// TrackSize is the size of a raw track image, in bytes.
	TrackSize = 65536
	// BeginningOverhead is the size of the track header.
	BeginningOverhead = 16
	// RecordHeaderSize is the size of the count field preceding every record.
	RecordHeaderSize = 8
	// FenceSize is the length of the end-of-track marker.
	FenceSize = 12
	// EndOfTrack is the record number found in the fence. It never identifies
	// a real record.
	EndOfTrack = 0xFF
	// MaxRecordsPerTrack is the highest record number a real record can have.
	MaxRecordsPerTrack = EndOfTrack - 1
	// MaxPayload is the maximum combined size of all record headers, keys, and
	// data in a single track.
	MaxPayload = TrackSize - BeginningOverhead - FenceSize
)

var trackGap = [BeginningOverhead - 4]byte{0, 0, 0, 8, 0, 0, 0, 0, 0, 0, 0, 0}

var fence = [FenceSize]byte{
	0xFF, 0xFF, 0xFF, 0xFF, 0xFF, 0xFF, 0xFF, 0xFF, 0xFF, 0xFF, 0xFF, 0xFF,
}

// Header is the address found at the beginning of every track.
type Header struct {
	Cylinder uint16
	Head     uint16
}

// RecordHeader is the count field of a single record.
type RecordHeader struct {
	Cylinder   uint16
	Head       uint16
	Record     uint8
	KeyLength  uint8
	DataLength uint16
}

// IsEndOfTrack returns true if this is the header of the fence rather than of a
// real record.
func (h RecordHeader) IsEndOfTrack() bool {
	return h.Record == EndOfTrack
}

// BodySize gives the combined length of the record's key and data.
func (h RecordHeader) BodySize() int {
	return int(h.KeyLength) + int(h.DataLength)
}

// cursor reads big-endian fields from a byte slice, failing instead of
// panicking when a read would run off the end.
type cursor struct {
	data     []byte
	position int
}

func (c *cursor) take(size int) ([]byte, error) {
	if size > len(c.data)-c.position {
		return nil, cikada.ErrMalformedTrack.WithMessage(
			fmt.Sprintf(
				"can't read %d bytes at offset %d: track ends at %d without an"+
					" end-of-track marker",
				size,
				c.position,
				len(c.data),
			),
		)
	}
	chunk := c.data[c.position : c.position+size]
	c.position += size
	return chunk, nil
}

func (c *cursor) readHeader() (Header, error) {
	raw, err := c.take(BeginningOverhead)
	if err != nil {
		return Header{}, err
	}
	return Header{
		Cylinder: binary.BigEndian.Uint16(raw[0:2]),
		Head:     binary.BigEndian.Uint16(raw[2:4]),
	}, nil
}

func (c *cursor) readRecordHeader() (RecordHeader, error) {
	raw, err := c.take(RecordHeaderSize)
	if err != nil {
		return RecordHeader{}, err
	}
	return RecordHeader{
		Cylinder:   binary.BigEndian.Uint16(raw[0:2]),
		Head:       binary.BigEndian.Uint16(raw[2:4]),
		Record:     raw[4],
		KeyLength:  raw[5],
		DataLength: binary.BigEndian.Uint16(raw[6:8]),
	}, nil
}

// ReadHeader returns the address at the beginning of a track image.
func ReadHeader(buffer []byte) (Header, error) {
	err := checkTrackSize(buffer)
	if err != nil {
		return Header{}, err
	}
	reader := cursor{data: buffer}
	return reader.readHeader()
}

func (h Header) marshal() []byte {
	raw := make([]byte, BeginningOverhead)
	binary.BigEndian.PutUint16(raw[0:2], h.Cylinder)
	binary.BigEndian.PutUint16(raw[2:4], h.Head)
	copy(raw[4:], trackGap[:])
	return raw
}

func (h RecordHeader) marshal() []byte {
	raw := make([]byte, RecordHeaderSize)
	binary.BigEndian.PutUint16(raw[0:2], h.Cylinder)
	binary.BigEndian.PutUint16(raw[2:4], h.Head)
	raw[4] = h.Record
	raw[5] = h.KeyLength
	binary.BigEndian.PutUint16(raw[6:8], h.DataLength)
	return raw
}

func checkTrackSize(buffer []byte) error {
	if len(buffer) != TrackSize {
		return cikada.ErrInvalidArgument.WithMessage(
			fmt.Sprintf("track buffer must be %d bytes, got %d", TrackSize, len(buffer)))
	}
	return nil
}
