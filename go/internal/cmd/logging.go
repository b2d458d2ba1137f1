package main

import (
	"os"
	"time"

	"github.com/mcdev12/rapidpoker/go/internal/config"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

func setupLogging(cfg config.Config) {
	level, err := cfg.ZerologLevel()
	if err != nil {
		log.Warn().Err(err).Msg("falling back to info level")
	}
	zerolog.SetGlobalLevel(level)

	if cfg.LogFormat == "json" {
		log.Logger = zerolog.New(os.Stderr).With().Timestamp().Logger()
		return
	}
	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.TimeOnly})
}
