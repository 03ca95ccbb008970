package pipeline

import (
	"bufio"
	"errors"
	"io"

	"github.com/dargueta/cikada/blockio"
	"github.com/dargueta/cikada/geometry"
	"github.com/dargueta/cikada/stream"
	"github.com/dargueta/cikada/track"
	"github.com/zerodha/logf"
)

// DecodeStats summarizes a completed [Decode].
type DecodeStats struct {
	StreamTracks int
	FillerTracks int
	Records      int
	BytesIn      int64
	BytesOut     int64
}

// Decode reads a CiKaDa stream from `input` and writes the reconstructed tracks
// to `device`, addressing each by its position in the stream. If the stream
// holds fewer than `totalTracks` tracks, the rest of the device is filled with
// empty formatted tracks (see [track.FillerRecords]).
//
// Tracks beyond `totalTracks` are still written; whether they fit is up to the
// device.
func Decode(
	input io.Reader,
	device io.Writer,
	buffer []byte,
	totalTracks geometry.TrackNumber,
	logger logf.Logger,
) (DecodeStats, error) {
	stats := DecodeStats{}
	err := checkBuffer(buffer)
	if err != nil {
		return stats, err
	}

	if totalTracks > 0 {
		_, err = addressOf(totalTracks - 1)
		if err != nil {
			return stats, err
		}
	}

	source := &countingReader{reader: bufio.NewReaderSize(input, track.TrackSize)}

	trackNumber := geometry.TrackNumber(0)
	for ; ; trackNumber++ {
		decoded, err := stream.ReadTrack(source)
		if errors.Is(err, io.EOF) {
			break
		} else if err != nil {
			stats.BytesIn = source.count
			return stats, inputError(trackNumber, err)
		}

		if trackNumber == totalTracks {
			logger.Warn(
				"stream has more tracks than the device size given; writing them anyway",
				"total_tracks", totalTracks,
			)
		}

		written, err := writeTrack(device, buffer, trackNumber, decoded.Records)
		stats.BytesOut += int64(written)
		if err != nil {
			stats.BytesIn = source.count
			return stats, err
		}

		stats.StreamTracks++
		stats.Records += decoded.RecordCount()
		logger.Debug(
			"decoded track",
			"track", trackNumber,
			"records", decoded.RecordCount(),
		)
	}

	if trackNumber < totalTracks {
		logger.Debug(
			"stream exhausted, filling remainder of device",
			"first_filler_track", trackNumber,
			"total_tracks", totalTracks,
		)
	}

	filler := track.FillerRecords()
	for ; trackNumber < totalTracks; trackNumber++ {
		written, err := writeTrack(device, buffer, trackNumber, filler)
		stats.BytesOut += int64(written)
		if err != nil {
			stats.BytesIn = source.count
			return stats, err
		}
		stats.FillerTracks++
	}

	stats.BytesIn = source.count
	return stats, nil
}

// writeTrack assembles a track at the address implied by its position and
// writes the whole image to the device.
func writeTrack(
	device io.Writer,
	buffer []byte,
	trackNumber geometry.TrackNumber,
	records []track.Record,
) (int, error) {
	header, err := addressOf(trackNumber)
	if err != nil {
		return 0, inputError(trackNumber, err)
	}

	err = track.Assemble(header, records, buffer)
	if err != nil {
		return 0, inputError(trackNumber, err)
	}

	written, err := blockio.WriteExact(device, buffer)
	if err != nil {
		return written, outputError(trackNumber, err)
	}
	return written, nil
}
