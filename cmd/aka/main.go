package main

import (
	"fmt"
	"os"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/runnerr0/aka/internal/cli"
)

var version = "dev"

func main() {
	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr})
	zerolog.SetGlobalLevel(zerolog.InfoLevel)
	for _, arg := range os.Args[1:] {
		if arg == "--verbose" {
			zerolog.SetGlobalLevel(zerolog.DebugLevel)
		}
	}

	if err := cli.Run(version); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
