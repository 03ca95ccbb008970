// Package tools implements the actions behind the command-line tools, so that
// the standalone binaries and the combined `cikada` command share them.
//
// Every failure is reported through [cli.Exit] with the exit code documented
// for the tool it happened in.
package tools

import (
	"errors"
	"fmt"
	"io"

	"github.com/dargueta/cikada/blockio"
	"github.com/dargueta/cikada/config"
	"github.com/dargueta/cikada/pipeline"
	"github.com/dargueta/cikada/track"
	"github.com/urfave/cli/v2"
	"github.com/zerodha/logf"
)

// ExitBadArguments is the exit code shared by every tool for invalid operands,
// flags, or configuration.
const ExitBadArguments = 1

// CommonFlags returns the flags accepted by every tool.
func CommonFlags() []cli.Flag {
	return []cli.Flag{
		&cli.StringFlag{
			Name:    "config",
			Aliases: []string{"c"},
			Usage:   "load settings from a TOML `FILE`",
			EnvVars: []string{config.EnvPrefix + "CONFIG"},
		},
		&cli.BoolFlag{
			Name:  "debug",
			Usage: "log every track processed",
		},
		&cli.BoolFlag{
			Name:  "buffered",
			Usage: "open devices without O_DIRECT, e.g. for image files on tmpfs",
		},
		&cli.IntFlag{
			Name:  "alignment",
			Usage: "align the track buffer to `BYTES`",
		},
		&cli.BoolFlag{
			Name:  "no-sync",
			Usage: "don't flush the target device before closing it",
		},
	}
}

// session holds everything a tool needs once its arguments have been checked.
type session struct {
	name   string
	config *config.Config
	logger logf.Logger
	buffer *blockio.AlignedBuffer
}

func newSession(name string, c *cli.Context) (*session, error) {
	flags := map[string]interface{}{}
	if c.Bool("debug") {
		flags[config.KeyLogLevel] = "debug"
	}
	if c.Bool("buffered") {
		flags[config.KeyDirectIO] = false
	}
	if c.IsSet("alignment") {
		flags[config.KeyAlignment] = c.Int("alignment")
	}
	if c.Bool("no-sync") {
		flags[config.KeySync] = false
	}

	cfg, err := config.Load(c.String("config"), flags)
	if err != nil {
		return nil, cli.Exit(fmt.Sprintf("%s: %s", name, err), ExitBadArguments)
	}

	return &session{
		name:   name,
		config: cfg,
		logger: config.NewLogger(cfg, c.App.ErrWriter),
	}, nil
}

// fail logs the error and converts it into an exit error with the given code.
func (s *session) fail(code int, message string, err error) error {
	s.logger.Error(message, "error", err, "exit_code", code)
	return cli.Exit(fmt.Sprintf("%s: %s: %s", s.name, message, err), code)
}

// allocate creates the track buffer.
func (s *session) allocate() error {
	buffer, err := blockio.AllocateAligned(track.TrackSize, s.config.Alignment)
	if err != nil {
		return err
	}
	s.buffer = buffer
	s.logger.Debug(
		"allocated track buffer",
		"size", len(buffer.Bytes),
		"alignment", buffer.Alignment(),
	)
	return nil
}

// closeDevice closes a device once processing succeeded. Closing a device
// being written to flushes it.
func (s *session) closeDevice(device io.Closer, code int) error {
	err := device.Close()
	if err != nil {
		return s.fail(code, "failed to close device", err)
	}
	return nil
}

// stageExitCode picks the exit code for a pipeline failure: `output` if it
// happened while writing, `input` otherwise.
func stageExitCode(err error, input, output int) int {
	var stageErr *pipeline.Error
	if errors.As(err, &stageErr) && stageErr.Stage == pipeline.StageOutput {
		return output
	}
	return input
}

func (s *session) release() {
	if s.buffer == nil {
		return
	}
	err := s.buffer.Free()
	if err != nil {
		s.logger.Warn("failed to release track buffer", "error", err)
	}
	s.buffer = nil
}

func usageError(c *cli.Context, message string) error {
	name := c.App.Name
	argsUsage := c.App.ArgsUsage
	if c.Command != nil && c.Command.Name != "" && c.Command.Name != c.App.Name {
		name = c.App.Name + " " + c.Command.Name
		argsUsage = c.Command.ArgsUsage
	}
	return cli.Exit(
		fmt.Sprintf("%s: %s\nUsage: %s %s", name, message, name, argsUsage),
		ExitBadArguments,
	)
}

// Standalone builds the application for a single-purpose binary such as
// `ckdencode` out of one of the commands.
func Standalone(name string, command *cli.Command) *cli.App {
	return &cli.App{
		Name:            name,
		Usage:           command.Usage,
		ArgsUsage:       command.ArgsUsage,
		Flags:           command.Flags,
		Action:          command.Action,
		HideHelpCommand: true,
	}
}
