package pipeline

import (
	"bufio"
	"errors"
	"io"

	"github.com/dargueta/cikada"
	"github.com/dargueta/cikada/blockio"
	"github.com/dargueta/cikada/geometry"
	"github.com/dargueta/cikada/stream"
	"github.com/dargueta/cikada/track"
	"github.com/zerodha/logf"
)

// EncodeStats summarizes a completed [Encode].
type EncodeStats struct {
	Tracks   int
	Records  int
	BytesIn  int64
	BytesOut int64
}

// Encode reads raw tracks from `device` until it's exhausted and writes them to
// `output` as a CiKaDa stream. A device whose size isn't a multiple of
// [track.TrackSize] fails when the partial track at the end is read.
func Encode(
	device io.Reader, output io.Writer, buffer []byte, logger logf.Logger,
) (EncodeStats, error) {
	stats := EncodeStats{}
	err := checkBuffer(buffer)
	if err != nil {
		return stats, err
	}

	writer := bufio.NewWriterSize(output, track.TrackSize)
	warnedAboutAddress := false

	for trackNumber := geometry.TrackNumber(0); ; trackNumber++ {
		n, err := blockio.ReadExact(device, buffer)
		stats.BytesIn += int64(n)
		if errors.Is(err, io.EOF) {
			break
		} else if err != nil {
			return stats, inputError(trackNumber, err)
		}

		disassembled, err := track.Disassemble(buffer)
		if err != nil {
			return stats, inputError(trackNumber, err)
		}

		// The stream doesn't carry track addresses; the decoder derives them
		// from the position of each track.
		expected, err := addressOf(trackNumber)
		if err == nil && expected != disassembled.Header && !warnedAboutAddress {
			logger.Warn(
				"track address doesn't match its position; restored tracks will be renumbered",
				"track", trackNumber,
				"cylinder", disassembled.Cylinder,
				"head", disassembled.Head,
			)
			warnedAboutAddress = true
		}

		encoded := stream.FromTrack(disassembled)
		written, err := stream.WriteTrack(writer, encoded)
		stats.BytesOut += written
		if err != nil {
			return stats, outputError(trackNumber, err)
		}

		stats.Tracks++
		stats.Records += encoded.RecordCount()
		logger.Debug(
			"encoded track",
			"track", trackNumber,
			"records", encoded.RecordCount(),
			"key_runs", len(encoded.KeyRuns),
			"data_runs", len(encoded.DataRuns),
			"bytes", written,
		)
	}

	err = writer.Flush()
	if err != nil {
		return stats, outputError(
			geometry.TrackNumber(stats.Tracks), cikada.ErrIOFailed.Wrap(err))
	}
	return stats, nil
}
