package logging

import (
	"fmt"
	"io"
	"os"
	"sync"
	"time"

	"github.com/rs/zerolog"
)

var (
	logger  = zerolog.New(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.Kitchen}).Level(zerolog.InfoLevel).With().Timestamp().Logger()
	logFile *os.File
	mu      sync.Mutex
	isSetup bool
)

// SetupLogger configures the process logger. Console output goes to stderr;
// when logFilePath is set, JSON lines are appended to that file as well.
func SetupLogger(logFilePath string, debug bool) error {
	mu.Lock()
	defer mu.Unlock()

	if isSetup {
		return nil
	}

	level := zerolog.InfoLevel
	if debug {
		level = zerolog.DebugLevel
	}

	writers := []io.Writer{zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.Kitchen}}
	if logFilePath != "" {
		f, err := os.OpenFile(logFilePath, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0666)
		if err != nil {
			return fmt.Errorf("failed to open log file: %v", err)
		}
		logFile = f
		writers = append(writers, f)
	}

	logger = zerolog.New(zerolog.MultiLevelWriter(writers...)).
		Level(level).
		With().
		Timestamp().
		Logger()

	logger.Debug().Str("logfile", logFilePath).Msg("rastersim log started")

	isSetup = true
	return nil
}

// SetOutput replaces the logger with a plain JSON logger on w. Used by tests.
func SetOutput(w io.Writer, level zerolog.Level) {
	mu.Lock()
	defer mu.Unlock()
	logger = zerolog.New(w).Level(level).With().Timestamp().Logger()
}

// CloseLogger closes the log file
func CloseLogger() {
	mu.Lock()
	defer mu.Unlock()

	if logFile != nil {
		logger.Debug().Msg("rastersim log closed")
		logFile.Close()
		logFile = nil
	}
	isSetup = false
}

// Component returns a child logger tagged with a component name
func Component(name string) zerolog.Logger {
	mu.Lock()
	defer mu.Unlock()
	return logger.With().Str("component", name).Logger()
}

// LogInfo logs an information message
func LogInfo(format string, args ...interface{}) {
	current().Info().Msgf(format, args...)
}

// DebugLog logs a message at debug level
func DebugLog(format string, args ...interface{}) {
	current().Debug().Msgf(format, args...)
}

// LogError logs an error message
func LogError(format string, args ...interface{}) {
	current().Error().Msgf(format, args...)
}

// LogWarning logs a warning message
func LogWarning(format string, args ...interface{}) {
	current().Warn().Msgf(format, args...)
}

// LogPairProcessed logs the outcome of one raster pair comparison
func LogPairProcessed(left, right string, success bool, errMsg string) {
	l := current()
	if success {
		l.Debug().Str("left", left).Str("right", right).Msg("pair compared")
		return
	}
	l.Error().Str("left", left).Str("right", right).Str("error", errMsg).Msg("pair failed")
}

func current() *zerolog.Logger {
	mu.Lock()
	defer mu.Unlock()
	l := logger
	return &l
}
