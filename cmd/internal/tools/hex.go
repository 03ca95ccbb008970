package tools

import (
	"errors"
	"fmt"
	"strconv"

	"github.com/dargueta/cikada/blockio"
	"github.com/dargueta/cikada/geometry"
	"github.com/dargueta/cikada/pipeline"
	"github.com/urfave/cli/v2"
)

// Exit codes of ckdhex.
const (
	HexExitOpen       = 2
	HexExitAllocation = 3
	HexExitRead       = 4
	HexExitWrite      = 5
)

// HexCommand describes `ckdhex` and `cikada hex`.
func HexCommand() *cli.Command {
	return &cli.Command{
		Name:      "hex",
		Usage:     "List the records of a device with a hex dump of their keys and data",
		ArgsUsage: "DEVICE_NODE [START_TRACK END_TRACK]",
		Flags:     CommonFlags(),
		Action:    Hex,
	}
}

// ParseTrackRange converts the optional START_TRACK END_TRACK operands into a
// range. No operands select the whole device.
func ParseTrackRange(args []string) (pipeline.TrackRange, error) {
	switch len(args) {
	case 0:
		return pipeline.AllTracks, nil
	case 2:
	default:
		return pipeline.TrackRange{}, errors.New("expected both a start and an end track")
	}

	first, err := strconv.ParseUint(args[0], 10, 32)
	if err != nil {
		return pipeline.TrackRange{}, fmt.Errorf("invalid start track %q", args[0])
	}
	last, err := strconv.ParseUint(args[1], 10, 32)
	if err != nil {
		return pipeline.TrackRange{}, fmt.Errorf("invalid end track %q", args[1])
	}
	if first > last {
		return pipeline.TrackRange{}, fmt.Errorf(
			"start track %d is after end track %d", first, last)
	}

	return pipeline.TrackRange{
		First: geometry.TrackNumber(first),
		Last:  geometry.TrackNumber(last),
	}, nil
}

// Hex is the action of [HexCommand].
func Hex(c *cli.Context) error {
	if c.NArg() < 1 {
		return usageError(c, "expected a device")
	}
	devicePath := c.Args().First()

	selected, err := ParseTrackRange(c.Args().Tail())
	if err != nil {
		return usageError(c, err.Error())
	}

	s, err := newSession("ckdhex", c)
	if err != nil {
		return err
	}

	device, err := blockio.OpenForReading(devicePath, s.config.DeviceOptions())
	if err != nil {
		return s.fail(HexExitOpen, "failed to open device for reading", err)
	}
	defer device.Close()

	err = s.allocate()
	if err != nil {
		return s.fail(HexExitAllocation, "failed to allocate track buffer", err)
	}
	defer s.release()

	stats, err := pipeline.Inspect(device, c.App.Writer, s.buffer.Bytes, selected, s.logger)
	if err != nil {
		return s.fail(
			stageExitCode(err, HexExitRead, HexExitWrite), "failed to list device", err)
	}

	s.logger.Debug(
		"device listed",
		"device", devicePath,
		"tracks_read", stats.TracksRead,
		"tracks_printed", stats.TracksPrinted,
		"records", stats.Records,
	)
	return nil
}
