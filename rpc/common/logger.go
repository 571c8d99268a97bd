// Package common provides shared RPC plumbing: the wire Message, server
// and client configuration, and logger setup.
package common

import (
	"fmt"
	"os"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

// InitLoggers configures the global zerolog logger from the server
// config's log level, replacing a per-package structured-logging handle
// factory with zerolog's single global logger plus sub-loggers scoped by
// a "component" field — the same "one logger, many fields" shape
// rpc/server and the nvm engine's error ledger already use.
func InitLoggers(config ServerConfig) {
	zerolog.SetGlobalLevel(parseLogLevel(config.LogLevel))
	log.Logger = zerolog.New(zerolog.ConsoleWriter{Out: os.Stdout, TimeFormat: "15:04:05"}).
		With().Timestamp().Logger()
}

// Component returns a logger scoped to name, joinable back to the global
// log stream by its "component" field.
func Component(name string) zerolog.Logger {
	return log.Logger.With().Str("component", name).Logger()
}

func parseLogLevel(level string) zerolog.Level {
	lvl, err := zerolog.ParseLevel(level)
	if err != nil {
		panic(fmt.Sprintf("invalid log level: %s. must be one of trace, debug, info, warn, error", level))
	}
	return lvl
}
