package logging

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"
	"sync"
	"time"
)

type Level string

const (
	LevelDebug Level = "DEBUG"
	LevelInfo  Level = "INFO"
	LevelWarn  Level = "WARN"
	LevelError Level = "ERROR"
)

var levelRank = map[Level]int{
	LevelDebug: 0,
	LevelInfo:  1,
	LevelWarn:  2,
	LevelError: 3,
}

// Fields are structured key/value pairs attached to an entry.
type Fields map[string]interface{}

type Logger struct {
	minLevel  Level
	component string

	// shared by loggers derived with With
	mu  *sync.Mutex
	out io.Writer
}

type LogEntry struct {
	Timestamp string `json:"timestamp"`
	Level     Level  `json:"level"`
	Component string `json:"component,omitempty"`
	Message   string `json:"message"`
	Fields    Fields `json:"fields,omitempty"`
}

func New(minLevel Level, out io.Writer) *Logger {
	if out == nil {
		out = os.Stdout
	}
	return &Logger{minLevel: minLevel, mu: &sync.Mutex{}, out: out}
}

func Default() *Logger {
	return New(LevelInfo, os.Stdout)
}

// Discard returns a logger that writes nothing.
func Discard() *Logger {
	return New(LevelError, io.Discard)
}

// ParseLevel accepts the level names case-insensitively.
func ParseLevel(s string) (Level, bool) {
	l := Level(strings.ToUpper(strings.TrimSpace(s)))
	_, ok := levelRank[l]
	return l, ok
}

// With returns a logger that tags every entry with a component name.
func (l *Logger) With(component string) *Logger {
	return &Logger{minLevel: l.minLevel, component: component, mu: l.mu, out: l.out}
}

func (l *Logger) Enabled(level Level) bool {
	return levelRank[level] >= levelRank[l.minLevel]
}

func (l *Logger) log(level Level, msg string, fields Fields) {
	if !l.Enabled(level) {
		return
	}
	entry := LogEntry{
		Timestamp: time.Now().UTC().Format(time.RFC3339Nano),
		Level:     level,
		Component: l.component,
		Message:   msg,
		Fields:    fields,
	}
	data, _ := json.Marshal(entry)
	l.mu.Lock()
	fmt.Fprintln(l.out, string(data))
	l.mu.Unlock()
}

func (l *Logger) Debug(msg string, fields ...Fields) {
	l.log(LevelDebug, msg, mergeFields(fields))
}

func (l *Logger) Info(msg string, fields ...Fields) {
	l.log(LevelInfo, msg, mergeFields(fields))
}

func (l *Logger) Warn(msg string, fields ...Fields) {
	l.log(LevelWarn, msg, mergeFields(fields))
}

func (l *Logger) Error(msg string, fields ...Fields) {
	l.log(LevelError, msg, mergeFields(fields))
}

func WithField(key string, value interface{}) Fields {
	return Fields{key: value}
}

func WithFields(fields Fields) Fields {
	return fields
}

func mergeFields(fields []Fields) Fields {
	if len(fields) == 0 {
		return nil
	}
	result := make(Fields)
	for _, f := range fields {
		for k, v := range f {
			result[k] = v
		}
	}
	return result
}
