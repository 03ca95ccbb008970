package stream_test

import (
	"bytes"
	"io"
	"testing"

	"github.com/dargueta/cikada"
	"github.com/dargueta/cikada/stream"
	ckdtest "github.com/dargueta/cikada/testing"
	"github.com/dargueta/cikada/track"
	rl "github.com/dargueta/cikada/utilities/runlength"
	"github.com/noxer/bytewriter"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func encodeTrack(t *testing.T, shapes []ckdtest.RecordShape) ([]byte, []track.Record) {
	image, records := ckdtest.CreateRandomTrackImage(t, 0, 0, shapes)
	disassembled, err := track.Disassemble(image)
	require.NoError(t, err)

	var output bytes.Buffer
	n, err := stream.WriteTrack(&output, stream.FromTrack(disassembled))
	require.NoError(t, err)
	assert.EqualValues(t, output.Len(), n, "returned size is wrong")
	return output.Bytes(), records
}

func TestWriteTrack__ThreeIdenticalRecords(t *testing.T) {
	records := []track.Record{
		{Key: []byte{}, Data: make([]byte, 512)},
		{Key: []byte{}, Data: make([]byte, 512)},
		{Key: []byte{}, Data: make([]byte, 512)},
	}
	encoded := ckdtest.BuildTrackImage(0, 0, records)
	disassembled, err := track.Disassemble(encoded)
	require.NoError(t, err)

	var output bytes.Buffer
	streamTrack := stream.FromTrack(disassembled)
	_, err = stream.WriteTrack(&output, streamTrack)
	require.NoError(t, err)

	expected := append([]byte{3, 3, 0, 3, 0x02, 0x00}, make([]byte, 3*512)...)
	assert.Equal(t, expected, output.Bytes())
	assert.EqualValues(t, len(expected), streamTrack.EncodedSize())
}

func TestWriteTrack__EmptyTrack(t *testing.T) {
	encoded, _ := encodeTrack(t, nil)
	assert.Equal(t, []byte{0}, encoded)

	decoded, err := stream.ReadTrack(bytes.NewReader(encoded))
	require.NoError(t, err)
	assert.Zero(t, decoded.RecordCount())

	output := make([]byte, track.TrackSize)
	err = track.Assemble(track.Header{}, decoded.Records, output)
	require.NoError(t, err)
	assert.Equal(t, ckdtest.BuildTrackImage(0, 0, nil), output)
}

func TestWriteTrack__KeyedRecords(t *testing.T) {
	records := []track.Record{
		{Key: []byte{0xAA, 0xBB}, Data: []byte{1}},
		{Key: []byte{0xCC, 0xDD}, Data: []byte{2, 3}},
	}

	var output bytes.Buffer
	_, err := stream.WriteTrack(
		&output,
		&stream.Track{
			KeyRuns:  []rl.Run[uint8]{{RunLength: 2, Value: 2}},
			DataRuns: []rl.Run[uint16]{{RunLength: 1, Value: 1}, {RunLength: 1, Value: 2}},
			Records:  records,
		},
	)
	require.NoError(t, err)
	assert.Equal(
		t,
		[]byte{2, 2, 2, 1, 0, 1, 1, 0, 2, 0xAA, 0xBB, 1, 0xCC, 0xDD, 2, 3},
		output.Bytes(),
	)
}

type roundTripTestCase struct {
	Shapes []ckdtest.RecordShape
	Name   string
}

var roundTripTestCases = []roundTripTestCase{
	{nil, "empty"},
	{ckdtest.UniformShapes(12, 0, 4096), "formatted 4K"},
	{ckdtest.UniformShapes(50, 8, 80), "keyed"},
	{[]ckdtest.RecordShape{{KeyLength: 0, DataLength: 8}, {KeyLength: 0, DataLength: 8}, {KeyLength: 5, DataLength: 0}, {KeyLength: 0, DataLength: 1000}, {KeyLength: 255, DataLength: 300}}, "mixed"},
}

func TestRoundTrip(t *testing.T) {
	for _, test := range roundTripTestCases {
		t.Run(
			test.Name,
			func(t *testing.T) {
				encoded, records := encodeTrack(t, test.Shapes)
				reader := bytes.NewReader(encoded)

				decoded, err := stream.ReadTrack(reader)
				require.NoError(t, err)
				require.Equal(t, len(records), decoded.RecordCount())
				for i := range records {
					assert.Equalf(t, records[i].Key, decoded.Records[i].Key, "key %d", i+1)
					assert.Equalf(t, records[i].Data, decoded.Records[i].Data, "data %d", i+1)
				}

				_, err = stream.ReadTrack(reader)
				assert.ErrorIs(t, err, io.EOF, "stream should be exhausted")
			},
		)
	}
}

func TestReadTrack__CleanEOF(t *testing.T) {
	_, err := stream.ReadTrack(bytes.NewReader([]byte{}))
	assert.Equal(t, io.EOF, err, "clean end of stream must be io.EOF itself")
}

type malformedTestCase struct {
	Input         []byte
	ExpectedError error
	Name          string
}

var malformedTestCases = []malformedTestCase{
	{[]byte{2, 2}, io.ErrUnexpectedEOF, "truncated key run"},
	{[]byte{2, 2, 0, 2, 0}, io.ErrUnexpectedEOF, "truncated data run"},
	{[]byte{2, 2, 0, 2, 0, 4, 1, 2, 3}, io.ErrUnexpectedEOF, "truncated bodies"},
	{[]byte{2, 3, 0}, cikada.ErrMalformedStream, "key runs overshoot"},
	{[]byte{2, 2, 0, 1, 0, 1, 2, 0, 1}, cikada.ErrMalformedStream, "data runs overshoot"},
	{[]byte{1, 0, 0}, cikada.ErrMalformedStream, "zero-length run"},
	{[]byte{255}, cikada.ErrMalformedStream, "reserved record count"},
	{[]byte{2, 2, 0, 2, 0xFF, 0xFF}, cikada.ErrMalformedStream, "too big for a track"},
}

func TestReadTrack__Malformed(t *testing.T) {
	for _, test := range malformedTestCases {
		t.Run(
			test.Name,
			func(t *testing.T) {
				_, err := stream.ReadTrack(bytes.NewReader(test.Input))
				require.Error(t, err)
				assert.ErrorIs(t, err, test.ExpectedError)
				assert.NotErrorIs(t, err, io.EOF, "must not look like a clean end of stream")
			},
		)
	}
}

func TestWriteTrack__RunsDontMatchRecords(t *testing.T) {
	_, err := stream.WriteTrack(
		io.Discard,
		&stream.Track{
			KeyRuns:  []rl.Run[uint8]{{RunLength: 1, Value: 0}},
			DataRuns: []rl.Run[uint16]{{RunLength: 1, Value: 10}},
			Records:  []track.Record{{Key: []byte{}, Data: make([]byte, 11)}},
		},
	)
	assert.ErrorIs(t, err, cikada.ErrInvalidArgument)
}

func TestWriteTrack__MoreRunsThanRecords(t *testing.T) {
	tests := []struct {
		Name     string
		KeyRuns  []rl.Run[uint8]
		DataRuns []rl.Run[uint16]
	}{
		{
			Name:     "key runs",
			KeyRuns:  []rl.Run[uint8]{{RunLength: 1}, {RunLength: 1}, {RunLength: 1}},
			DataRuns: []rl.Run[uint16]{{RunLength: 2, Value: 8}},
		},
		{
			Name:     "data runs",
			KeyRuns:  []rl.Run[uint8]{{RunLength: 2}},
			DataRuns: []rl.Run[uint16]{{RunLength: 1, Value: 8}, {RunLength: 1, Value: 8}, {RunLength: 0}},
		},
	}

	records := []track.Record{
		{Key: []byte{}, Data: make([]byte, 8)},
		{Key: []byte{}, Data: make([]byte, 8)},
	}
	for _, test := range tests {
		t.Run(
			test.Name,
			func(t *testing.T) {
				_, err := stream.WriteTrack(
					io.Discard,
					&stream.Track{KeyRuns: test.KeyRuns, DataRuns: test.DataRuns, Records: records},
				)
				assert.ErrorIs(t, err, cikada.ErrTooManyRuns)
			},
		)
	}
}

func TestWriteTrack__ShortWrite(t *testing.T) {
	image, _ := ckdtest.CreateRandomTrackImage(t, 0, 0, ckdtest.UniformShapes(4, 0, 64))
	disassembled, err := track.Disassemble(image)
	require.NoError(t, err)

	output := bytewriter.New(make([]byte, 100))
	_, err = stream.WriteTrack(output, stream.FromTrack(disassembled))
	assert.ErrorIs(t, err, cikada.ErrIOFailed)
}
