package main

import (
	"os"

	_ "github.com/jimmicro/version"
	"github.com/rs/zerolog/log"
)

func main() {
	if err := newRootCommand().Execute(); err != nil {
		log.Error().Err(err).Msg("netrca failed")
		os.Exit(1)
	}
}
