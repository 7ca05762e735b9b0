package common

import (
	"fmt"
	"github.com/lni/dragonboat/v4/logger"
	"log"
	"os"
	"strings"
)

// LoggerNames lists the loggers of the client layers
var LoggerNames = []string{
	"cache",
	"pipeline",
	"batch",
	"lazy",
	"transport/http",
}

var levelTags = map[logger.LogLevel]string{
	logger.DEBUG:   "DEBUG",
	logger.INFO:    "INFO",
	logger.WARNING: "WARN",
	logger.ERROR:   "ERROR",
}

// --------------------------------------------------------------------------
// Client Logger (implements dragonboats logger.ILogger)
// --------------------------------------------------------------------------

// clientLogger writes "LEVEL | layer | message" lines to stderr, stdout belongs to command output
type clientLogger struct {
	layer string
	level logger.LogLevel
	out   *log.Logger
}

func (l *clientLogger) SetLevel(level logger.LogLevel) { l.level = level }

func (l *clientLogger) Debugf(format string, args ...interface{}) {
	l.logf(logger.DEBUG, format, args...)
}

func (l *clientLogger) Infof(format string, args ...interface{}) {
	l.logf(logger.INFO, format, args...)
}

func (l *clientLogger) Warningf(format string, args ...interface{}) {
	l.logf(logger.WARNING, format, args...)
}

func (l *clientLogger) Errorf(format string, args ...interface{}) {
	l.logf(logger.ERROR, format, args...)
}

func (l *clientLogger) Panicf(format string, args ...interface{}) {
	panic(fmt.Sprintf(l.layer+": "+format, args...))
}

func (l *clientLogger) logf(level logger.LogLevel, format string, args ...interface{}) {
	if l.level < level {
		return
	}
	l.out.Printf("%-5s | %-14s | %s", levelTags[level], l.layer, fmt.Sprintf(format, args...))
}

// CreateLogger implements dragonboats logger.Factory
func CreateLogger(layer string) logger.ILogger {
	return &clientLogger{
		layer: layer,
		level: logger.INFO,
		out:   log.New(os.Stderr, "", log.Ldate|log.Ltime),
	}
}

// --------------------------------------------------------------------------
// Levels
// --------------------------------------------------------------------------

// ParseLogLevel converts a string level to logger.LogLevel
func ParseLogLevel(level string) (logger.LogLevel, error) {
	switch strings.ToLower(strings.TrimSpace(level)) {
	case "debug":
		return logger.DEBUG, nil
	case "info":
		return logger.INFO, nil
	case "warning", "warn":
		return logger.WARNING, nil
	case "error":
		return logger.ERROR, nil
	default:
		return logger.INFO, fmt.Errorf("invalid log level: %s. must be one of debug, info, warn, error", level)
	}
}

// ParseLogLevels parses a level setting of the form "warn,lazy=debug,batch=info":
// the first plain level is the default, layer=level pairs override single loggers.
// The default is info if no plain level is given.
func ParseLogLevels(setting string) (logger.LogLevel, map[string]logger.LogLevel, error) {
	def := logger.INFO
	overrides := make(map[string]logger.LogLevel)

	for _, part := range strings.Split(setting, ",") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}

		layer, value, isOverride := strings.Cut(part, "=")
		if !isOverride {
			level, err := ParseLogLevel(part)
			if err != nil {
				return def, nil, err
			}
			def = level
			continue
		}

		layer = strings.TrimSpace(layer)
		if !knownLogger(layer) {
			return def, nil, fmt.Errorf("unknown logger %q. must be one of %s", layer, strings.Join(LoggerNames, ", "))
		}
		level, err := ParseLogLevel(value)
		if err != nil {
			return def, nil, err
		}
		overrides[layer] = level
	}
	return def, overrides, nil
}

func knownLogger(name string) bool {
	for _, n := range LoggerNames {
		if n == name {
			return true
		}
	}
	return false
}

// InitLoggers installs the client logger factory and applies config.LogLevel
// (see ParseLogLevels) to every client layer
func InitLoggers(config ClientConfig) error {
	def, overrides, err := ParseLogLevels(config.LogLevel)
	if err != nil {
		return err
	}

	logger.SetLoggerFactory(CreateLogger)

	for _, name := range LoggerNames {
		level, ok := overrides[name]
		if !ok {
			level = def
		}
		logger.GetLogger(name).SetLevel(level)
	}
	return nil
}
