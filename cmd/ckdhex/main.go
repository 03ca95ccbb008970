package main

import (
	"log"
	"os"

	"github.com/dargueta/cikada/cmd/internal/tools"
)

func main() {
	app := tools.Standalone("ckdhex", tools.HexCommand())
	err := app.Run(os.Args)
	if err != nil {
		log.Fatalf("fatal error: %s", err.Error())
	}
}
