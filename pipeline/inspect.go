package pipeline

import (
	"bufio"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/dargueta/cikada"
	"github.com/dargueta/cikada/blockio"
	"github.com/dargueta/cikada/geometry"
	"github.com/dargueta/cikada/track"
	"github.com/zerodha/logf"
)

// TrackRange selects tracks by absolute track number. Both ends are inclusive.
type TrackRange struct {
	First geometry.TrackNumber
	Last  geometry.TrackNumber
	// All selects every track on the device, ignoring First and Last.
	All bool
}

// AllTracks is a [TrackRange] selecting the entire device.
var AllTracks = TrackRange{All: true}

// Contains returns true if the track is in the range.
func (r TrackRange) Contains(trackNumber geometry.TrackNumber) bool {
	return r.All || (trackNumber >= r.First && trackNumber <= r.Last)
}

// pastEnd returns true if no track at or after `trackNumber` is in the range.
func (r TrackRange) pastEnd(trackNumber geometry.TrackNumber) bool {
	return !r.All && trackNumber > r.Last
}

// InspectStats summarizes a completed [Inspect].
type InspectStats struct {
	TracksRead    int
	TracksPrinted int
	Records       int
}

// Inspect reads raw tracks from `device` and writes a human-readable listing of
// the records in every track in `selected` to `output`. A cylinder heading is
// printed whenever the listing moves on to a new cylinder.
//
// Reading stops at the end of the device or as soon as the last selected track
// has been printed.
func Inspect(
	device io.Reader,
	output io.Writer,
	buffer []byte,
	selected TrackRange,
	logger logf.Logger,
) (InspectStats, error) {
	stats := InspectStats{}
	err := checkBuffer(buffer)
	if err != nil {
		return stats, err
	}

	writer := bufio.NewWriter(output)
	lastCylinder := -1

	for trackNumber := geometry.TrackNumber(0); !selected.pastEnd(trackNumber); trackNumber++ {
		_, err := blockio.ReadExact(device, buffer)
		if errors.Is(err, io.EOF) {
			break
		} else if err != nil {
			// What was listed so far is still accurate.
			writer.Flush()
			return stats, inputError(trackNumber, err)
		}
		stats.TracksRead++

		if !selected.Contains(trackNumber) {
			continue
		}

		cylinder := int(geometry.CylinderOf(trackNumber))
		if cylinder != lastCylinder {
			fmt.Fprintf(writer, "Cylinder %d\n", cylinder)
			lastCylinder = cylinder
		}

		records, err := printTrack(writer, buffer, trackNumber)
		if err != nil {
			writer.Flush()
			return stats, inputError(trackNumber, err)
		}
		stats.TracksPrinted++
		stats.Records += records
		logger.Debug("inspected track", "track", trackNumber, "records", records)
	}

	err = writer.Flush()
	if err != nil {
		return stats, outputError(
			geometry.TrackNumber(stats.TracksRead), cikada.ErrIOFailed.Wrap(err))
	}
	return stats, nil
}

func printTrack(
	writer *bufio.Writer, buffer []byte, trackNumber geometry.TrackNumber,
) (int, error) {
	header, err := track.ReadHeader(buffer)
	if err != nil {
		return 0, err
	}
	printTrackHeading(writer, header, trackNumber)

	records := 0
	_, err = track.Walk(
		buffer,
		func(_ track.Header, recordHeader track.RecordHeader, key, data []byte) error {
			// Record numbers start at 1, so this is most likely an unformatted
			// track full of zeros.
			if recordHeader.Record == 0 {
				return cikada.ErrMalformedTrack.WithMessage(
					fmt.Sprintf("record %d is numbered 0", records+1))
			}
			records++
			fmt.Fprintf(
				writer,
				"    Record %d: key length %d, data length %d\n",
				recordHeader.Record,
				recordHeader.KeyLength,
				recordHeader.DataLength,
			)
			printField(writer, "key", key)
			printField(writer, "data", data)
			return nil
		},
	)
	if err != nil {
		return records, err
	}

	if records == 0 {
		writer.WriteString("    (no records)\n")
	}
	return records, nil
}

func printTrackHeading(writer *bufio.Writer, header track.Header, trackNumber geometry.TrackNumber) {
	fmt.Fprintf(
		writer,
		"  Track %d (absolute %d, CC=%04X HH=%04X)\n",
		geometry.TrackInCylinderOf(trackNumber),
		trackNumber,
		header.Cylinder,
		header.Head,
	)
}

func printField(writer *bufio.Writer, label string, field []byte) {
	if len(field) == 0 {
		return
	}

	fmt.Fprintf(writer, "      %s:\n", label)
	dump := strings.TrimSuffix(hex.Dump(field), "\n")
	for _, line := range strings.Split(dump, "\n") {
		writer.WriteString("        ")
		writer.WriteString(line)
		writer.WriteByte('\n')
	}
}
