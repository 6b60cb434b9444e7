package logger

import (
	"fmt"
	"io"
	"os"
	"sync/atomic"
	"time"

	"github.com/rs/zerolog"
)

// LogLevel defines the severity of the log
type LogLevel int

const (
	LevelDebug LogLevel = iota
	LevelInfo
	LevelWarn
	LevelError
	LevelCritical
	// LevelSuccess asks the UI to surface a notification to the user.
	LevelSuccess
)

func (l LogLevel) String() string {
	switch l {
	case LevelDebug:
		return "DEBUG"
	case LevelInfo:
		return "INFO"
	case LevelWarn:
		return "WARN"
	case LevelError:
		return "ERROR"
	case LevelCritical:
		return "CRITICAL"
	case LevelSuccess:
		return "SUCCESS"
	default:
		return "UNKNOWN"
	}
}

// Event is one log record handed from a bot goroutine to the UI.
type Event struct {
	Time    time.Time
	Level   LogLevel
	Source  string
	Message string
}

// Format renders the event the way the log view shows it.
func (e Event) Format() string {
	return fmt.Sprintf("[%s] %s: %s", e.Time.Format("15:04:05"), e.Level, e.Message)
}

// AppLogger handles application logging to the UI queue and the console/file sink
type AppLogger struct {
	source   string
	queue    *Queue
	sink     zerolog.Logger
	minLevel *atomic.Int32
}

// NewAppLogger creates a new logger instance
func NewAppLogger(source string, queue *Queue, sink zerolog.Logger) *AppLogger {
	min := &atomic.Int32{}
	min.Store(int32(LevelInfo))
	return &AppLogger{
		source:   source,
		queue:    queue,
		sink:     sink.With().Str("source", source).Logger(),
		minLevel: min,
	}
}

// Nop returns a logger that discards everything. Handy for tests.
func Nop() *AppLogger {
	return NewAppLogger("nop", nil, zerolog.Nop())
}

// NewSink builds the zerolog console sink, optionally teeing to extra writers
// (the activity log file).
func NewSink(extra ...io.Writer) zerolog.Logger {
	writers := []io.Writer{zerolog.ConsoleWriter{Out: os.Stdout, TimeFormat: "15:04:05"}}
	writers = append(writers, extra...)
	return zerolog.New(zerolog.MultiLevelWriter(writers...)).
		Level(zerolog.DebugLevel).
		With().Timestamp().Logger()
}

// With returns a logger for another component sharing the same queue, sink and level.
func (l *AppLogger) With(source string) *AppLogger {
	return &AppLogger{
		source:   source,
		queue:    l.queue,
		sink:     l.sink.With().Str("source", source).Logger(),
		minLevel: l.minLevel,
	}
}

// SetQueueLevel sets the minimum level forwarded to the UI queue.
// The console/file sink always receives everything.
func (l *AppLogger) SetQueueLevel(level LogLevel) {
	l.minLevel.Store(int32(level))
}

// Debug logs a debug message (UI queue only in developer mode)
func (l *AppLogger) Debug(format string, args ...interface{}) {
	l.log(LevelDebug, format, args...)
}

// Info logs an informational message
func (l *AppLogger) Info(format string, args ...interface{}) {
	l.log(LevelInfo, format, args...)
}

// Warn logs a warning
func (l *AppLogger) Warn(format string, args ...interface{}) {
	l.log(LevelWarn, format, args...)
}

// Error logs an error message
func (l *AppLogger) Error(format string, args ...interface{}) {
	l.log(LevelError, format, args...)
}

// Critical logs a failure that ends the running loop
func (l *AppLogger) Critical(format string, args ...interface{}) {
	l.log(LevelCritical, format, args...)
}

// Success logs a message the UI shows as a notification
func (l *AppLogger) Success(format string, args ...interface{}) {
	l.log(LevelSuccess, format, args...)
}

func (l *AppLogger) log(level LogLevel, format string, args ...interface{}) {
	msg := fmt.Sprintf(format, args...)

	switch level {
	case LevelDebug:
		l.sink.Debug().Msg(msg)
	case LevelInfo:
		l.sink.Info().Msg(msg)
	case LevelWarn:
		l.sink.Warn().Msg(msg)
	case LevelError:
		l.sink.Error().Msg(msg)
	case LevelCritical:
		// WithLevel never exits, unlike Fatal()
		l.sink.WithLevel(zerolog.FatalLevel).Msg(msg)
	case LevelSuccess:
		l.sink.Info().Bool("popup", true).Msg(msg)
	}

	if l.queue == nil || level < LogLevel(l.minLevel.Load()) {
		return
	}
	l.queue.Push(Event{
		Time:    time.Now(),
		Level:   level,
		Source:  l.source,
		Message: msg,
	})
}

// ParseLevel maps the preference value ("User"/"Developer") to a queue level.
func ParseLevel(mode string) LogLevel {
	if mode == "Developer" {
		return LevelDebug
	}
	return LevelInfo
}
