package cache

import (
	"fmt"
	"log"
	"strings"

	"github.com/google/uuid"
)

// NewNopLogger returns a Logger that discards everything. It is the
// default when a caller builds a Coordinator without Dependencies.Logger.
func NewNopLogger() Logger {
	return nopLogger{}
}

type nopLogger struct{}

func (nopLogger) Errorf(string, fields) {}
func (nopLogger) Warnf(string, fields)  {}

// NewStdLogger returns a Logger that writes leveled, correlation-tagged
// lines through the standard library logger, in the style of
// pkg/middleware/logging.go's RequestLogger: a "[LEVEL] reqID=... msg
// key=value ..." line per call, with a fresh correlation ID per logger
// instance so that log lines from one Coordinator can be grepped apart
// from another's.
func NewStdLogger(prefix string) Logger {
	return &stdLogger{
		prefix: prefix,
		reqID:  uuid.NewString(),
		std:    log.Default(),
	}
}

type stdLogger struct {
	prefix string
	reqID  string
	std    *log.Logger
}

func (l *stdLogger) Errorf(msg string, f fields) {
	l.log("ERROR", msg, f)
}

func (l *stdLogger) Warnf(msg string, f fields) {
	l.log("WARN", msg, f)
}

func (l *stdLogger) log(level, msg string, f fields) {
	var b strings.Builder
	b.WriteByte('[')
	b.WriteString(level)
	b.WriteString("] ")
	if l.prefix != "" {
		b.WriteString(l.prefix)
		b.WriteByte(' ')
	}
	b.WriteString("reqID=")
	b.WriteString(l.reqID)
	b.WriteByte(' ')
	b.WriteString(msg)
	for k, v := range f {
		b.WriteByte(' ')
		b.WriteString(k)
		b.WriteByte('=')
		_, _ = b.WriteString(toLogString(v))
	}
	l.std.Print(b.String())
}

func toLogString(v interface{}) string {
	if s, ok := v.(string); ok {
		return s
	}
	if err, ok := v.(error); ok {
		return err.Error()
	}
	return fmt.Sprint(v)
}
