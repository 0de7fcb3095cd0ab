//go:build !logless

package logger

import (
	"os"

	"github.com/rs/zerolog"
	logger "github.com/rs/zerolog/log"
)

// Log is the scheduler's diagnostic logger. Task bodies and generator
// implementations are free to use their own logger; the scheduler itself
// only ever writes diagnostics through this one, never fmt.Println.
var Log = logger.With().Caller().Logger().Output(zerolog.ConsoleWriter{Out: os.Stderr})

func init() {
	zerolog.TimeFieldFormat = zerolog.TimeFormatUnix
}
