package pipeline_test

import (
	"bytes"
	"errors"
	"io"
	"strings"
	"testing"

	"github.com/dargueta/cikada"
	"github.com/dargueta/cikada/geometry"
	"github.com/dargueta/cikada/pipeline"
	ckdtest "github.com/dargueta/cikada/testing"
	"github.com/dargueta/cikada/track"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/zerodha/logf"
)

func newLogger() logf.Logger {
	return logf.New(logf.Opts{Writer: io.Discard, Level: logf.DebugLevel})
}

func newBuffer() []byte {
	return make([]byte, track.TrackSize)
}

func encodeImage(t *testing.T, image []byte) []byte {
	var encoded bytes.Buffer
	stats, err := pipeline.Encode(
		ckdtest.NewMemoryDevice(t, image), &encoded, newBuffer(), newLogger())
	require.NoError(t, err, "encoding failed")
	assert.Equal(t, len(image)/track.TrackSize, stats.Tracks)
	assert.EqualValues(t, len(image), stats.BytesIn)
	assert.EqualValues(t, encoded.Len(), stats.BytesOut)
	return encoded.Bytes()
}

func TestRoundTrip__ExactSize(t *testing.T) {
	image := ckdtest.CreateRandomDisk(
		t, 2*geometry.TracksPerCylinder, ckdtest.UniformShapes(3, 4, 1000))
	encoded := encodeImage(t, image)

	device, restored := ckdtest.NewBlankDevice(t, 2)
	stats, err := pipeline.Decode(
		bytes.NewReader(encoded), device, newBuffer(), geometry.TotalTracks(2), newLogger())
	require.NoError(t, err)

	assert.Equal(t, 30, stats.StreamTracks)
	assert.Zero(t, stats.FillerTracks, "no filler tracks should be needed")
	assert.Equal(t, 90, stats.Records)
	assert.EqualValues(t, len(encoded), stats.BytesIn)
	assert.EqualValues(t, len(image), stats.BytesOut)
	assert.True(t, bytes.Equal(image, restored), "restored image differs")
}

func TestRoundTrip__MixedTracks(t *testing.T) {
	var image []byte
	shapes := [][]ckdtest.RecordShape{
		nil,
		ckdtest.UniformShapes(12, 0, 4096),
		{{KeyLength: 0, DataLength: 8}, {KeyLength: 4, DataLength: 80}, {KeyLength: 4, DataLength: 80}, {KeyLength: 44, DataLength: 3000}},
	}
	for i := 0; i < geometry.TracksPerCylinder; i++ {
		trackImage, _ := ckdtest.CreateRandomTrackImage(t, 0, uint16(i), shapes[i%len(shapes)])
		image = append(image, trackImage...)
	}

	encoded := encodeImage(t, image)
	device, restored := ckdtest.NewBlankDevice(t, 1)
	_, err := pipeline.Decode(
		bytes.NewReader(encoded), device, newBuffer(), geometry.TotalTracks(1), newLogger())
	require.NoError(t, err)
	assert.True(t, bytes.Equal(image, restored), "restored image differs")
}

func TestDecode__Filler(t *testing.T) {
	image := ckdtest.CreateRandomDisk(t, 4, ckdtest.UniformShapes(2, 0, 100))
	encoded := encodeImage(t, image)

	device, restored := ckdtest.NewBlankDevice(t, 2)
	stats, err := pipeline.Decode(
		bytes.NewReader(encoded), device, newBuffer(), geometry.TotalTracks(2), newLogger())
	require.NoError(t, err)
	assert.Equal(t, 4, stats.StreamTracks)
	assert.Equal(t, 26, stats.FillerTracks)

	assert.True(t, bytes.Equal(image, restored[:len(image)]), "streamed tracks differ")

	for i := 4; i < 30; i++ {
		trackImage := restored[i*track.TrackSize : (i+1)*track.TrackSize]
		disassembled, err := track.Disassemble(trackImage)
		require.NoErrorf(t, err, "filler track %d is malformed", i)

		trackNumber := geometry.TrackNumber(i)
		assert.EqualValues(t, geometry.CylinderOf(trackNumber), disassembled.Cylinder)
		assert.EqualValues(t, geometry.TrackInCylinderOf(trackNumber), disassembled.Head)
		require.Len(t, disassembled.Records, track.FillerRecordsPerTrack)
		for _, record := range disassembled.Records {
			assert.Empty(t, record.Key)
			assert.Len(t, record.Data, track.FillerDataLength)
		}
	}
}

func TestDecode__EmptyStreamFillsEverything(t *testing.T) {
	device, restored := ckdtest.NewBlankDevice(t, 1)
	stats, err := pipeline.Decode(
		bytes.NewReader(nil), device, newBuffer(), geometry.TotalTracks(1), newLogger())
	require.NoError(t, err)
	assert.Zero(t, stats.StreamTracks)
	assert.Equal(t, 15, stats.FillerTracks)

	expected := ckdtest.BuildTrackImage(0, 14, track.FillerRecords())
	assert.True(t, bytes.Equal(expected, restored[14*track.TrackSize:]))
}

func TestDecode__MoreTracksThanDevice(t *testing.T) {
	image := ckdtest.CreateRandomDisk(t, 16, ckdtest.UniformShapes(1, 0, 10))
	encoded := encodeImage(t, image)

	var output bytes.Buffer
	stats, err := pipeline.Decode(
		bytes.NewReader(encoded), &output, newBuffer(), geometry.TotalTracks(1), newLogger())
	require.NoError(t, err)
	assert.Equal(t, 16, stats.StreamTracks)
	assert.Zero(t, stats.FillerTracks)
	assert.Equal(t, image, output.Bytes())
}

func TestDecode__TruncatedStream(t *testing.T) {
	image := ckdtest.CreateRandomDisk(t, 2, ckdtest.UniformShapes(2, 0, 100))
	encoded := encodeImage(t, image)

	device, _ := ckdtest.NewBlankDevice(t, 1)
	_, err := pipeline.Decode(
		bytes.NewReader(encoded[:len(encoded)-1]),
		device,
		newBuffer(),
		geometry.TotalTracks(1),
		newLogger(),
	)

	var pipelineErr *pipeline.Error
	require.True(t, errors.As(err, &pipelineErr), "wrong error type: %v", err)
	assert.Equal(t, pipeline.StageInput, pipelineErr.Stage)
	assert.EqualValues(t, 1, pipelineErr.Track)
	assert.ErrorIs(t, err, cikada.ErrMalformedStream)
	assert.ErrorIs(t, err, io.ErrUnexpectedEOF)
}

func TestDecode__DeviceFull(t *testing.T) {
	image := ckdtest.CreateRandomDisk(t, 16, ckdtest.UniformShapes(1, 0, 10))
	encoded := encodeImage(t, image)

	device, _ := ckdtest.NewBlankDevice(t, 1)
	_, err := pipeline.Decode(
		bytes.NewReader(encoded), device, newBuffer(), geometry.TotalTracks(1), newLogger())

	var pipelineErr *pipeline.Error
	require.True(t, errors.As(err, &pipelineErr), "wrong error type: %v", err)
	assert.Equal(t, pipeline.StageOutput, pipelineErr.Stage)
	assert.EqualValues(t, 15, pipelineErr.Track)
}

func TestEncode__PartialTrack(t *testing.T) {
	image := ckdtest.CreateRandomDisk(t, 1, ckdtest.UniformShapes(2, 0, 100))
	image = append(image, make([]byte, 512)...)

	_, err := pipeline.Encode(bytes.NewReader(image), io.Discard, newBuffer(), newLogger())

	var pipelineErr *pipeline.Error
	require.True(t, errors.As(err, &pipelineErr), "wrong error type: %v", err)
	assert.Equal(t, pipeline.StageInput, pipelineErr.Stage)
	assert.EqualValues(t, 1, pipelineErr.Track)
	assert.ErrorIs(t, err, cikada.ErrShortTransfer)
}

func TestEncode__MalformedTrack(t *testing.T) {
	image := make([]byte, track.TrackSize)
	_, err := pipeline.Encode(bytes.NewReader(image), io.Discard, newBuffer(), newLogger())
	assert.ErrorIs(t, err, cikada.ErrMalformedTrack)
}

func TestEncode__WrongBufferSize(t *testing.T) {
	_, err := pipeline.Encode(bytes.NewReader(nil), io.Discard, make([]byte, 10), newLogger())
	assert.ErrorIs(t, err, cikada.ErrInvalidArgument)
}

func TestEncode__EmptyDevice(t *testing.T) {
	var encoded bytes.Buffer
	stats, err := pipeline.Encode(bytes.NewReader(nil), &encoded, newBuffer(), newLogger())
	require.NoError(t, err)
	assert.Zero(t, stats.Tracks)
	assert.Zero(t, encoded.Len())
}

func TestInspect__SingleTrack(t *testing.T) {
	image := ckdtest.CreateRandomDisk(t, 20, ckdtest.UniformShapes(2, 0, 16))

	var output bytes.Buffer
	stats, err := pipeline.Inspect(
		bytes.NewReader(image),
		&output,
		newBuffer(),
		pipeline.TrackRange{First: 5, Last: 5},
		newLogger(),
	)
	require.NoError(t, err)
	assert.Equal(t, 1, stats.TracksPrinted)
	assert.Equal(t, 6, stats.TracksRead, "reading should stop after the last selected track")

	listing := output.String()
	assert.Equal(t, 1, strings.Count(listing, "Cylinder "))
	assert.Equal(t, 1, strings.Count(listing, "  Track "))
	assert.Contains(t, listing, "Cylinder 0\n")
	assert.Contains(t, listing, "  Track 5 (absolute 5, CC=0000 HH=0005)\n")
	assert.Equal(t, 2, strings.Count(listing, "    Record "))
	assert.Contains(t, listing, "    Record 2: key length 0, data length 16\n")
}

func TestInspect__CylinderHeadings(t *testing.T) {
	image := ckdtest.CreateRandomDisk(t, 40, ckdtest.UniformShapes(1, 2, 3))

	var output bytes.Buffer
	stats, err := pipeline.Inspect(
		bytes.NewReader(image), &output, newBuffer(), pipeline.AllTracks, newLogger())
	require.NoError(t, err)
	assert.Equal(t, 40, stats.TracksPrinted)
	assert.Equal(t, 40, stats.Records)

	listing := output.String()
	assert.Equal(t, 3, strings.Count(listing, "Cylinder "))
	assert.Equal(t, 40, strings.Count(listing, "  Track "))
	assert.Equal(t, 40, strings.Count(listing, "      key:\n"))
	assert.Equal(t, 40, strings.Count(listing, "      data:\n"))
	assert.Contains(t, listing, "  Track 9 (absolute 39, CC=0002 HH=0009)\n")
}

func TestInspect__EmptyTrackAndRangePastEnd(t *testing.T) {
	image := ckdtest.BuildTrackImage(0, 0, nil)

	var output bytes.Buffer
	stats, err := pipeline.Inspect(
		bytes.NewReader(image),
		&output,
		newBuffer(),
		pipeline.TrackRange{First: 0, Last: 100},
		newLogger(),
	)
	require.NoError(t, err)
	assert.Equal(t, 1, stats.TracksRead)
	assert.Equal(
		t,
		"Cylinder 0\n  Track 0 (absolute 0, CC=0000 HH=0000)\n    (no records)\n",
		output.String(),
	)
}

func TestInspect__UnformattedTrackKeepsListing(t *testing.T) {
	image := ckdtest.CreateRandomDisk(t, 2, ckdtest.UniformShapes(3, 4, 100))
	image = append(image, make([]byte, track.TrackSize)...)

	var output bytes.Buffer
	stats, err := pipeline.Inspect(
		bytes.NewReader(image), &output, newBuffer(), pipeline.AllTracks, newLogger())
	require.Error(t, err)
	assert.ErrorIs(t, err, cikada.ErrMalformedTrack)

	var stageErr *pipeline.Error
	require.True(t, errors.As(err, &stageErr))
	assert.Equal(t, pipeline.StageInput, stageErr.Stage)
	assert.EqualValues(t, 2, stageErr.Track)
	assert.Equal(t, 2, stats.TracksPrinted)

	listing := output.String()
	assert.Contains(t, listing, "  Track 1 (absolute 1, CC=0000 HH=0001)\n")
	assert.Equal(t, 6, strings.Count(listing, "    Record "), "listing of good tracks was lost")
	assert.NotContains(t, listing, "Record 0:")
}

func TestTrackRange(t *testing.T) {
	selected := pipeline.TrackRange{First: 3, Last: 7}
	assert.False(t, selected.Contains(2))
	assert.True(t, selected.Contains(3))
	assert.True(t, selected.Contains(7))
	assert.False(t, selected.Contains(8))
	assert.True(t, pipeline.AllTracks.Contains(1000000))
}
