package main

import (
	"log"
	"os"

	"github.com/dargueta/cikada/cmd/internal/tools"
	"github.com/urfave/cli/v2"
)

func main() {
	cli := cli.App{
		Name:  "cikada",
		Usage: "Back up and restore ECKD devices as CiKaDa streams",
		Commands: []*cli.Command{
			tools.EncodeCommand(),
			tools.DecodeCommand(),
			tools.HexCommand(),
			tools.ModelsCommand(),
		},
	}

	err := cli.Run(os.Args)
	if err != nil {
		log.Fatalf("fatal error: %s", err.Error())
	}
}
