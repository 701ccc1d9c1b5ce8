//go:build debug
// +build debug

package utils

import (
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

// debug builds log everything regardless of configuration
const buildLevel = zerolog.DebugLevel

func Debug(fmt string, args ...interface{}) {
	log.Debug().Msgf(fmt, args...)
}

func Log(fmt string, args ...interface{}) {
	log.Info().Msgf(fmt, args...)
}
