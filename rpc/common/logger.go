package common

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/lni/dragonboat/v4/logger"
	"github.com/rs/zerolog"
)

// --------------------------------------------------------------------------
// Custom Logger (implements dragonboats logger.ILogger)
// --------------------------------------------------------------------------

// zerologLogger implements the ILogger interface on top of zerolog
type zerologLogger struct {
	log zerolog.Logger
}

func (l *zerologLogger) SetLevel(level logger.LogLevel) {
	l.log = l.log.Level(toZerologLevel(level))
}

func (l *zerologLogger) Debugf(format string, args ...interface{}) {
	l.log.Debug().Msgf(format, args...)
}

func (l *zerologLogger) Infof(format string, args ...interface{}) {
	l.log.Info().Msgf(format, args...)
}

func (l *zerologLogger) Warningf(format string, args ...interface{}) {
	l.log.Warn().Msgf(format, args...)
}

func (l *zerologLogger) Errorf(format string, args ...interface{}) {
	l.log.Error().Msgf(format, args...)
}

func (l *zerologLogger) Panicf(format string, args ...interface{}) {
	l.log.Panic().Msgf(format, args...)
}

// --------------------------------------------------------------------------
// Logger Factory
// --------------------------------------------------------------------------

// CreateLogger implements the logger.Factory interface
func CreateLogger(pkgName string) logger.ILogger {
	out := zerolog.ConsoleWriter{Out: os.Stdout, TimeFormat: time.RFC3339}
	return &zerologLogger{
		log: zerolog.New(out).With().Timestamp().Str("pkg", pkgName).Logger().Level(zerolog.InfoLevel),
	}
}

// --------------------------------------------------------------------------
// Helper
// --------------------------------------------------------------------------

func toZerologLevel(level logger.LogLevel) zerolog.Level {
	switch level {
	case logger.DEBUG:
		return zerolog.DebugLevel
	case logger.INFO:
		return zerolog.InfoLevel
	case logger.WARNING:
		return zerolog.WarnLevel
	case logger.ERROR:
		return zerolog.ErrorLevel
	default:
		return zerolog.PanicLevel
	}
}

// ParseLogLevel converts a string level to logger.LogLevel
func ParseLogLevel(level string) (logger.LogLevel, error) {
	switch strings.ToLower(level) {
	case "debug":
		return logger.DEBUG, nil
	case "info":
		return logger.INFO, nil
	case "warning", "warn":
		return logger.WARNING, nil
	case "error":
		return logger.ERROR, nil
	default:
		return 0, fmt.Errorf("invalid log level: %s. must be one of debug, info, warn, error", level)
	}
}

// --------------------------------------------------------------------------
// Logger initialization
// --------------------------------------------------------------------------

// loggerNames lists every logger created by the packages of this module
var loggerNames = []string{"orm", "lockmgr", "rpc", "transport/rpc", "cmd"}

// InitLoggers installs the zerolog factory and sets the level of all loggers
func InitLoggers(level string) error {
	lvl, err := ParseLogLevel(level)
	if err != nil {
		return err
	}

	logger.SetLoggerFactory(CreateLogger)

	for _, name := range loggerNames {
		logger.GetLogger(name).SetLevel(lvl)
	}
	return nil
}
