package testing

import (
	"io"
	"testing"

	"github.com/dargueta/cikada/geometry"
	"github.com/dargueta/cikada/track"
	"github.com/noxer/bytewriter"
	"github.com/stretchr/testify/require"
	"github.com/xaionaro-go/bytesextra"
)

// CreateRandomDisk builds an image of `totalTracks` consecutive tracks, each at
// the address matching its position and holding random records of the given
// shapes.
func CreateRandomDisk(t *testing.T, totalTracks int, shapes []RecordShape) []byte {
	image := make([]byte, 0, totalTracks*track.TrackSize)
	for i := 0; i < totalTracks; i++ {
		trackNumber := geometry.TrackNumber(i)
		trackImage, _ := CreateRandomTrackImage(
			t,
			uint16(geometry.CylinderOf(trackNumber)),
			uint16(geometry.TrackInCylinderOf(trackNumber)),
			shapes,
		)
		image = append(image, trackImage...)
	}
	return image
}

// NewMemoryDevice wraps a byte slice so it can stand in for a raw device.
//
//   - Writes to the device modify `image` in place.
//   - The size of the device is fixed at `len(image)`. Attempting to write past
//     the end of it will trigger an error.
func NewMemoryDevice(t *testing.T, image []byte) io.ReadWriteSeeker {
	require.Zero(
		t,
		len(image)%track.TrackSize,
		"device image must be a whole number of tracks",
	)
	return bytesextra.NewReadWriteSeeker(image)
}

// NewBlankDevice creates a zeroed, write-only in-memory device of the given
// number of cylinders, and returns it along with its backing storage. Writing
// past the end of the device fails.
func NewBlankDevice(t *testing.T, cylinders uint) (io.Writer, []byte) {
	image := make([]byte, int(geometry.TotalTracks(cylinders))*track.TrackSize)
	require.NotEmpty(t, image, "device must have at least one cylinder")
	return bytewriter.New(image), image
}
