// Package log provides a global logger with configurable logging level, plus named loggers that
// prefix each message with the display name of the accessory that produced it.

package log

import (
	"fmt"
	"io"
	"os"
	"sync"
	"time"
)

type Level int

const (
	LevelNone    Level = iota // Disables logging.
	LevelError                // Logs anamolies that are not expected to occur during normal use.
	LevelWarning              // Logs anamolies that are expected to occur occasionally during normal use.
	LevelInfo                 // Logs major events.
	LevelDebug                // Logs detailed IO
)

var globalLogLevel = LevelInfo
var output io.Writer = os.Stderr
var logMutex sync.Mutex

var labels = map[Level]string{
	LevelDebug:   "[debug]",
	LevelInfo:    "[info ]",
	LevelWarning: "[warn ]",
	LevelError:   "[error]",
}

func SetLevel(level Level) {
	logMutex.Lock()
	defer logMutex.Unlock()
	globalLogLevel = level
}

// SetOutput redirects log messages to w. Passing nil restores stderr.
func SetOutput(w io.Writer) {
	logMutex.Lock()
	defer logMutex.Unlock()
	if w == nil {
		w = os.Stderr
	}
	output = w
}

func logLevel() Level {
	logMutex.Lock()
	defer logMutex.Unlock()
	return globalLogLevel
}

func log(level Level, prefix, format string, a ...interface{}) {
	if level > logLevel() {
		return
	}
	msg := fmt.Sprintf("%s %s ", time.Now().Format(time.RFC3339), labels[level])
	if prefix != "" {
		msg += "[" + prefix + "] "
	}
	msg += fmt.Sprintf(format, a...)

	logMutex.Lock()
	defer logMutex.Unlock()
	fmt.Fprintln(output, msg)
}

func Debug(format string, a ...interface{}) {
	log(LevelDebug, "", format, a...)
}
func Info(format string, a ...interface{}) {
	log(LevelInfo, "", format, a...)
}
func Warning(format string, a ...interface{}) {
	log(LevelWarning, "", format, a...)
}
func Error(format string, a ...interface{}) {
	log(LevelError, "", format, a...)
}

// Logger writes to the global log with a fixed name prefix. The zero value logs without a prefix.
type Logger struct {
	name string
}

// Named returns a Logger that tags messages with name.
func Named(name string) Logger {
	return Logger{name: name}
}

func (l Logger) Name() string {
	return l.name
}

func (l Logger) Debug(format string, a ...interface{}) {
	log(LevelDebug, l.name, format, a...)
}
func (l Logger) Info(format string, a ...interface{}) {
	log(LevelInfo, l.name, format, a...)
}
func (l Logger) Warning(format string, a ...interface{}) {
	log(LevelWarning, l.name, format, a...)
}
func (l Logger) Error(format string, a ...interface{}) {
	log(LevelError, l.name, format, a...)
}
