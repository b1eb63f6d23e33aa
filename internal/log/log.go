package log

import (
	"io"
	"os"
	"strings"
	"time"

	"github.com/charmbracelet/log"
)

var logger = log.New(os.Stderr)

// InitLog configures the process-wide logger used by the command line and the
// table server.
func InitLog(appName string, logLevel string) {
	logger = New(os.Stderr, appName, logLevel)
	logger.SetReportTimestamp(true)
	logger.SetTimeFormat(time.DateTime)
}

// New builds a standalone logger, for handing to a game via dominoes.WithLogger.
func New(w io.Writer, prefix string, logLevel string) *log.Logger {
	l := log.New(w)
	l.SetPrefix(prefix)
	l.SetLevel(ParseLevel(logLevel))
	return l
}

// ParseLevel maps a config value to a level. Anything unknown is info.
func ParseLevel(logLevel string) log.Level {
	switch strings.ToLower(logLevel) {
	case "debug":
		return log.DebugLevel
	case "warn":
		return log.WarnLevel
	case "error":
		return log.ErrorLevel
	default:
		return log.InfoLevel
	}
}

// SetLevel changes the level of the process-wide logger.
func SetLevel(logLevel string) {
	logger.SetLevel(ParseLevel(logLevel))
}

func Logger() *log.Logger {
	return logger
}

func Fatal(format string, args ...any) {
	if len(args) == 0 {
		logger.Fatal(format)
	} else {
		logger.Fatalf(format, args...)
	}
}

func Info(format string, args ...any) {
	if len(args) == 0 {
		logger.Info(format)
	} else {
		logger.Infof(format, args...)
	}
}

func Warn(format string, args ...any) {
	if len(args) == 0 {
		logger.Warn(format)
	} else {
		logger.Warnf(format, args...)
	}
}

func Error(format string, args ...any) {
	if len(args) == 0 {
		logger.Error(format)
	} else {
		logger.Errorf(format, args...)
	}
}

func Debug(format string, args ...any) {
	if len(args) == 0 {
		logger.Debug(format)
	} else {
		logger.Debugf(format, args...)
	}
}
