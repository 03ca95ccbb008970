package tools

import (
	"errors"

	"github.com/dargueta/cikada"
	"github.com/dargueta/cikada/blockio"
	"github.com/dargueta/cikada/geometry"
	"github.com/dargueta/cikada/pipeline"
	"github.com/urfave/cli/v2"
)

// Exit codes of ckddecode.
const (
	DecodeExitOpen       = 2
	DecodeExitAllocation = 3
	DecodeExitRead       = 5
	DecodeExitWrite      = 6
	DecodeExitMisaligned = 7
)

// allocationExitCode tells a buffer that couldn't be aligned for direct I/O
// apart from a failed allocation.
func allocationExitCode(err error) int {
	if errors.Is(err, cikada.ErrMisaligned) {
		return DecodeExitMisaligned
	}
	return DecodeExitAllocation
}

// DecodeCommand describes `ckddecode` and `cikada decode`.
func DecodeCommand() *cli.Command {
	return &cli.Command{
		Name:      "decode",
		Usage:     "Restore a device from a CiKaDa stream read from stdin",
		ArgsUsage: "DEVICE_NODE DEVICE_SIZE_IN_CYLINDERS|MODEL",
		Flags:     CommonFlags(),
		Action:    Decode,
	}
}

// Decode is the action of [DecodeCommand]. The device size is either a number
// of cylinders or the name of a device model such as `3390-3`.
func Decode(c *cli.Context) error {
	if c.NArg() != 2 {
		return usageError(c, "expected a device and its size")
	}
	devicePath := c.Args().Get(0)

	cylinders, err := geometry.ParseCylinders(c.Args().Get(1))
	if err != nil {
		return usageError(c, err.Error())
	}
	totalTracks := geometry.TotalTracks(cylinders)

	s, err := newSession("ckddecode", c)
	if err != nil {
		return err
	}

	device, err := blockio.OpenForWriting(devicePath, s.config.DeviceOptions())
	if err != nil {
		return s.fail(DecodeExitOpen, "failed to open device for writing", err)
	}

	err = s.allocate()
	if err != nil {
		device.Close()
		return s.fail(allocationExitCode(err), "failed to allocate track buffer", err)
	}
	defer s.release()

	stats, err := pipeline.Decode(c.App.Reader, device, s.buffer.Bytes, totalTracks, s.logger)
	if err != nil {
		device.Close()
		return s.fail(
			stageExitCode(err, DecodeExitRead, DecodeExitWrite), "decoding failed", err)
	}

	// The data may not have reached the device if flushing it fails.
	err = s.closeDevice(device, DecodeExitWrite)
	if err != nil {
		return err
	}

	s.logger.Info(
		"device restored",
		"device", devicePath,
		"cylinders", cylinders,
		"stream_tracks", stats.StreamTracks,
		"filler_tracks", stats.FillerTracks,
		"records", stats.Records,
		"bytes_in", stats.BytesIn,
		"bytes_out", stats.BytesOut,
	)
	return nil
}
