package logging

import (
	"os"
	"strings"

	log "github.com/sirupsen/logrus"
	"github.com/zzenonn/dstream/internal/config"
)

// InitLogger sets the log level and format based on the provided configuration.
// Training jobs usually capture stdout into log aggregators, so LOG_FORMAT=json
// switches to the JSON formatter.
func InitLogger(cfg *config.Config) {
	setLogLevel(cfg.LogLevel)
	setFormatter(strings.ToLower(os.Getenv("LOG_FORMAT")))
}

// InitFromEnv initializes logging from environment variables
func InitFromEnv() {
	setLogLevel(strings.ToLower(os.Getenv("LOG_LEVEL")))
	setFormatter(strings.ToLower(os.Getenv("LOG_FORMAT")))
}

func setFormatter(format string) {
	if format == "json" {
		log.SetFormatter(&log.JSONFormatter{})
		return
	}
	log.SetFormatter(&log.TextFormatter{
		FullTimestamp: true,
	})
}

// setLogLevel sets the log level based on string input
func setLogLevel(logLevel string) {
	switch logLevel {
	case "trace":
		log.SetLevel(log.TraceLevel)
	case "debug":
		log.SetLevel(log.DebugLevel)
	case "info":
		log.SetLevel(log.InfoLevel)
	case "warn":
		log.SetLevel(log.WarnLevel)
	default:
		log.SetLevel(log.ErrorLevel)
	}
}

func init() {
	InitFromEnv()
}
