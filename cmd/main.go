package main

import (
	"os"

	"live-quiz-service/internal/cli"

	"github.com/rs/zerolog/log"
)

func main() {
	if err := cli.Execute(); err != nil {
		log.Error().Err(err).Msg("live-quiz exited")
		os.Exit(1)
	}
}
