// Package testing provides fixtures shared by the tests of the other packages:
// random track contents, hand-built track images, and in-memory devices.
package testing

import (
	"bytes"
	"crypto/rand"
	"encoding/binary"
	"testing"

	"github.com/dargueta/cikada/track"
	"github.com/stretchr/testify/require"
)

// RecordShape gives the key and data lengths of a record to generate.
type RecordShape struct {
	KeyLength  int
	DataLength int
}

// UniformShapes returns `count` copies of the same record shape, the way most
// tracks are formatted.
func UniformShapes(count, keyLength, dataLength int) []RecordShape {
	shapes := make([]RecordShape, count)
	for i := range shapes {
		shapes[i] = RecordShape{KeyLength: keyLength, DataLength: dataLength}
	}
	return shapes
}

// CreateRandomRecords creates records of the given shapes filled with random
// bytes. It's guaranteed to either return valid records or fail the test and
// abort.
func CreateRandomRecords(t *testing.T, shapes []RecordShape) []track.Record {
	records := make([]track.Record, len(shapes))
	for i, shape := range shapes {
		key := make([]byte, shape.KeyLength)
		data := make([]byte, shape.DataLength)

		_, err := rand.Read(key)
		require.NoErrorf(t, err, "failed to randomize key of record %d", i+1)
		_, err = rand.Read(data)
		require.NoErrorf(t, err, "failed to randomize data of record %d", i+1)

		records[i] = track.Record{Key: key, Data: data}
	}
	return records
}

// BuildTrackImage lays out a raw track image byte by byte, independently of
// [track.Assemble], so the two can be checked against each other.
func BuildTrackImage(cylinder, head uint16, records []track.Record) []byte {
	var image bytes.Buffer

	binary.Write(&image, binary.BigEndian, cylinder)
	binary.Write(&image, binary.BigEndian, head)
	image.Write([]byte{0, 0, 0, 8, 0, 0, 0, 0, 0, 0, 0, 0})

	for i, record := range records {
		binary.Write(&image, binary.BigEndian, cylinder)
		binary.Write(&image, binary.BigEndian, head)
		image.WriteByte(byte(i + 1))
		image.WriteByte(byte(len(record.Key)))
		binary.Write(&image, binary.BigEndian, uint16(len(record.Data)))
		image.Write(record.Key)
		image.Write(record.Data)
	}

	image.Write(bytes.Repeat([]byte{0xFF}, track.FenceSize))
	if image.Len() < track.TrackSize {
		image.Write(make([]byte, track.TrackSize-image.Len()))
	}
	return image.Bytes()
}

// CreateRandomTrackImage builds a track image at the given address holding
// random records of the given shapes, and returns it along with the records.
func CreateRandomTrackImage(
	t *testing.T, cylinder, head uint16, shapes []RecordShape,
) ([]byte, []track.Record) {
	records := CreateRandomRecords(t, shapes)
	image := BuildTrackImage(cylinder, head, records)
	require.Len(t, image, track.TrackSize, "record shapes don't fit in one track")
	return image, records
}
