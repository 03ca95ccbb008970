package tools

import (
	"fmt"

	"github.com/dargueta/cikada/geometry"
	"github.com/gocarina/gocsv"
	"github.com/urfave/cli/v2"
)

// ModelsCommand describes `cikada models`, which lists the device models that
// ckddecode accepts in place of a cylinder count.
func ModelsCommand() *cli.Command {
	return &cli.Command{
		Name:  "models",
		Usage: "List the known device models and their sizes",
		Flags: []cli.Flag{
			&cli.BoolFlag{Name: "csv", Usage: "print the table as CSV"},
		},
		Action: ListModels,
	}
}

// ListModels is the action of [ModelsCommand].
func ListModels(c *cli.Context) error {
	models := geometry.DeviceModels()

	if c.Bool("csv") {
		err := gocsv.Marshal(&models, c.App.Writer)
		if err != nil {
			return cli.Exit(fmt.Sprintf("models: %s", err), ExitBadArguments)
		}
		return nil
	}

	for _, model := range models {
		_, err := fmt.Fprintf(
			c.App.Writer,
			"%-8s %-12s %6d cylinders %8d tracks\n",
			model.Slug,
			model.Name,
			model.Cylinders,
			model.TotalTracks(),
		)
		if err != nil {
			return cli.Exit(fmt.Sprintf("models: %s", err), ExitBadArguments)
		}
	}
	return nil
}
