package common

import (
	"fmt"
	"log"
	"os"
	"strings"
	"sync"

	"github.com/lni/dragonboat/v4/logger"
)

// --------------------------------------------------------------------------
// Custom Logger (implements dragonboats logger.ILogger)
// --------------------------------------------------------------------------

const (
	colorReset  = "\033[0m"
	colorGray   = "\033[90m"
	colorGreen  = "\033[32m"
	colorYellow = "\033[33m"
	colorRed    = "\033[31m"
)

// skunkrLogger implements the ILogger interface with custom formatting
type skunkrLogger struct {
	name   string
	level  logger.LogLevel
	color  bool
	logger *log.Logger
	mu     sync.RWMutex
}

func (l *skunkrLogger) SetLevel(level logger.LogLevel) {
	l.mu.Lock()
	l.level = level
	l.mu.Unlock()
}

func (l *skunkrLogger) enabled(level logger.LogLevel) bool {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.level >= level
}

func (l *skunkrLogger) Debugf(format string, args ...interface{}) {
	if l.enabled(logger.DEBUG) {
		l.log("DEBUG", colorGray, format, args...)
	}
}

func (l *skunkrLogger) Infof(format string, args ...interface{}) {
	if l.enabled(logger.INFO) {
		l.log("INFO", colorGreen, format, args...)
	}
}

func (l *skunkrLogger) Warningf(format string, args ...interface{}) {
	if l.enabled(logger.WARNING) {
		l.log("WARN", colorYellow, format, args...)
	}
}

func (l *skunkrLogger) Errorf(format string, args ...interface{}) {
	if l.enabled(logger.ERROR) {
		l.log("ERROR", colorRed, format, args...)
	}
}

func (l *skunkrLogger) Panicf(format string, args ...interface{}) {
	msg := fmt.Sprintf(format, args...)
	l.log("PANIC", colorRed, "%s", msg)
	panic(msg)
}

// log formats and writes a log message. this internal helper is used by the public methods
func (l *skunkrLogger) log(levelStr, color string, format string, args ...interface{}) {
	message := fmt.Sprintf(format, args...)
	if l.color {
		l.logger.Printf("%s%-5s%s | %-15s | %s", color, levelStr, colorReset, l.name, message)
		return
	}
	l.logger.Printf("%-5s | %-15s | %s", levelStr, l.name, message)
}

// --------------------------------------------------------------------------
// Logger Factory
// --------------------------------------------------------------------------

// NewLoggerFactory returns a logger.Factory writing timestamped lines to stdout.
// If color is set, the level is printed with ANSI colors.
func NewLoggerFactory(color bool) logger.Factory {
	return func(pkgName string) logger.ILogger {
		return &skunkrLogger{
			name:   pkgName,
			level:  logger.INFO,
			color:  color,
			logger: log.New(os.Stdout, "", log.Ldate|log.Ltime|log.Lmicroseconds),
		}
	}
}

// CreateLogger implements the Factory interface without colors
func CreateLogger(pkgName string) logger.ILogger {
	return NewLoggerFactory(false)(pkgName)
}

// --------------------------------------------------------------------------
// Helper
// --------------------------------------------------------------------------

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
		return logger.INFO, fmt.Errorf("invalid log level: %s. must be one of debug, info, warn, error", level)
	}
}

// --------------------------------------------------------------------------
// Logger initialization
// --------------------------------------------------------------------------

// LoggerNames are the named loggers used by the skunkr packages
var LoggerNames = []string{
	"store",
	"db",
	"scan",
	"bolt",
	"pebble",
	"badger",
	"memory",
	"rpc",
	"transport/rpc",
}

var factoryOnce sync.Once

// InitLoggers installs the custom logger factory (once per process)
// and sets the level of all skunkr loggers.
func InitLoggers(level string, color bool) error {
	lvl, err := ParseLogLevel(level)
	if err != nil {
		return err
	}

	factoryOnce.Do(func() {
		logger.SetLoggerFactory(NewLoggerFactory(color))
	})

	for _, name := range LoggerNames {
		logger.GetLogger(name).SetLevel(lvl)
	}
	return nil
}
