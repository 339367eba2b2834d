// Package logging writes one JSON object per log line.
package logging

import (
	"encoding/json"
	"io"
	"log"
	"os"
	"time"
)

// Fields is the fixed set of keys a log line may carry
type Fields struct {
	Service    string `json:"service"`
	Op         string `json:"op,omitempty"`
	OrderID    string `json:"order_id,omitempty"`
	ActorID    string `json:"actor_id,omitempty"`
	EventID    string `json:"event_id,omitempty"`
	Status     string `json:"status,omitempty"`
	DurationMS int64  `json:"duration_ms,omitempty"`
	Message    string `json:"message,omitempty"`
	Error      string `json:"error,omitempty"`
}

// Logger stamps every line with its service name
type Logger struct {
	service string
	out     *log.Logger
}

// New returns a logger writing to w, or to stderr when w is nil.
// stdout is reserved for the MCP stdio transport.
func New(service string, w io.Writer) *Logger {
	if w == nil {
		w = os.Stderr
	}
	return &Logger{service: service, out: log.New(w, "", 0)}
}

// Nop returns a logger that discards everything
func Nop() *Logger {
	return New("", io.Discard)
}

// line is the encoded form of Fields
type line struct {
	Fields
	Timestamp string `json:"timestamp"`
}

// Log writes fields as a single JSON line
func (l *Logger) Log(fields Fields) {
	if fields.Service == "" {
		fields.Service = l.service
	}
	data, err := json.Marshal(line{Fields: fields, Timestamp: time.Now().UTC().Format(time.RFC3339Nano)})
	if err != nil {
		l.out.Printf("{\"service\":%q,\"status\":\"log_error\",\"error\":%q}", fields.Service, err.Error())
		return
	}
	l.out.Print(string(data))
}

// Info logs a message with the given op
func (l *Logger) Info(op, msg string) {
	l.Log(Fields{Op: op, Status: "ok", Message: msg})
}

// Error logs err with the given op
func (l *Logger) Error(op string, err error) {
	l.Log(Fields{Op: op, Status: "error", Error: err.Error()})
}

// Since returns the milliseconds elapsed since start
func Since(start time.Time) int64 {
	return time.Since(start).Milliseconds()
}
