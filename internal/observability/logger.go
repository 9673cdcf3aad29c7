package observability

import (
	"os"

	"github.com/danmuck/framesink/internal/logging"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

// InitLogger installs the process logger for app. level comes from the
// config file; FRAMESINK_LOG_LEVEL still takes precedence over it.
func InitLogger(app, level string) zerolog.Logger {
	logging.ConfigureRuntime()
	cfg := logging.Resolve(logging.ProfileRuntime)
	if _, fromEnv := logging.ParseLevel(os.Getenv(logging.EnvLogLevel)); !fromEnv {
		if lvl, ok := logging.ParseLevel(level); ok {
			cfg.Level = lvl
		}
	}
	cfg.Out = os.Stdout
	logger := logging.New(cfg).With().Str("app", app).Logger()
	zerolog.SetGlobalLevel(cfg.Level)
	log.Logger = logger
	return logger
}
