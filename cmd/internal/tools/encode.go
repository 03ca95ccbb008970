package tools

import (
	"github.com/dargueta/cikada/blockio"
	"github.com/dargueta/cikada/pipeline"
	"github.com/urfave/cli/v2"
)

// Exit codes of ckdencode.
const (
	EncodeExitOpen       = 2
	EncodeExitAllocation = 3
	EncodeExitRead       = 4
	EncodeExitWrite      = 5
	EncodeExitClose      = 6
)

// EncodeCommand describes `ckdencode` and `cikada encode`.
func EncodeCommand() *cli.Command {
	return &cli.Command{
		Name:      "encode",
		Usage:     "Write the tracks of a device to stdout as a CiKaDa stream",
		ArgsUsage: "DEVICE_NODE",
		Flags:     CommonFlags(),
		Action:    Encode,
	}
}

// Encode is the action of [EncodeCommand].
func Encode(c *cli.Context) error {
	if c.NArg() != 1 {
		return usageError(c, "expected exactly one device")
	}
	devicePath := c.Args().First()

	s, err := newSession("ckdencode", c)
	if err != nil {
		return err
	}

	device, err := blockio.OpenForReading(devicePath, s.config.DeviceOptions())
	if err != nil {
		return s.fail(EncodeExitOpen, "failed to open device for reading", err)
	}

	err = s.allocate()
	if err != nil {
		device.Close()
		return s.fail(EncodeExitAllocation, "failed to allocate track buffer", err)
	}
	defer s.release()

	stats, err := pipeline.Encode(device, c.App.Writer, s.buffer.Bytes, s.logger)
	if err != nil {
		device.Close()
		return s.fail(
			stageExitCode(err, EncodeExitRead, EncodeExitWrite), "encoding failed", err)
	}

	err = s.closeDevice(device, EncodeExitClose)
	if err != nil {
		return err
	}

	s.logger.Info(
		"device encoded",
		"device", devicePath,
		"tracks", stats.Tracks,
		"records", stats.Records,
		"bytes_in", stats.BytesIn,
		"bytes_out", stats.BytesOut,
	)
	return nil
}
