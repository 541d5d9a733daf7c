package logger

import (
	"os"
	"time"

	"github.com/rs/zerolog"
)

var Log = zerolog.New(os.Stdout).With().Timestamp().Logger()

// Init configures the global logger; development gets a console writer.
func Init(env string) {
	zerolog.TimeFieldFormat = time.RFC3339

	if env == "development" {
		Log = zerolog.New(zerolog.ConsoleWriter{Out: os.Stdout, TimeFormat: "15:04:05"}).
			With().
			Timestamp().
			Logger()
		zerolog.SetGlobalLevel(zerolog.DebugLevel)
		return
	}

	Log = zerolog.New(os.Stdout).
		With().
		Timestamp().
		Logger()
	zerolog.SetGlobalLevel(zerolog.InfoLevel)
}

func Info(format string, v ...interface{}) {
	Log.Info().Msgf(format, v...)
}

func Error(format string, v ...interface{}) {
	Log.Error().Msgf(format, v...)
}

func Debug(format string, v ...interface{}) {
	Log.Debug().Msgf(format, v...)
}

func Warn(format string, v ...interface{}) {
	Log.Warn().Msgf(format, v...)
}

func Fatal(format string, v ...interface{}) {
	Log.Fatal().Msgf(format, v...)
}
