// Package message defines the diagnostic channel the core reports
// non-fatal conditions through.
//
// The core never uses this channel for control flow: a Requester only
// observes. Use Discard when nothing should be reported and ZapRequester to
// route messages into a zap logger.
package message

import (
	"fmt"
	"strings"

	"go.uber.org/zap"
)

// Severity is the level of a reported message.
type Severity uint8

const (
	Info Severity = iota
	Warning
	Error
	Fatal
)

var severityNames = [...]string{
	Info:    "info",
	Warning: "warning",
	Error:   "error",
	Fatal:   "fatal",
}

func (s Severity) String() string {
	if int(s) < len(severityNames) {
		return severityNames[s]
	}
	return "unknown"
}

// ParseSeverity returns the severity named by s (case-insensitive).
func ParseSeverity(s string) (Severity, error) {
	for i, name := range severityNames {
		if strings.EqualFold(s, name) {
			return Severity(i), nil
		}
	}
	return 0, fmt.Errorf("unknown message severity %q", s)
}

// Requester receives diagnostic messages.
type Requester interface {
	ReportMessage(text string, severity Severity)
}

// RequesterFunc adapts a function to the Requester interface.
type RequesterFunc func(text string, severity Severity)

// ReportMessage calls f.
func (f RequesterFunc) ReportMessage(text string, severity Severity) {
	f(text, severity)
}

// Discard drops every message.
var Discard Requester = RequesterFunc(func(string, Severity) {})

// ZapRequester forwards messages to a zap logger.
type ZapRequester struct {
	log  *zap.Logger
	name string
}

// NewZapRequester creates a requester logging under the given name.
func NewZapRequester(log *zap.Logger, name string) *ZapRequester {
	if log == nil {
		log = zap.NewNop()
	}
	return &ZapRequester{log: log, name: name}
}

// ReportMessage logs text at the zap level matching severity.
// Fatal is logged at error level; the process is never terminated here.
func (z *ZapRequester) ReportMessage(text string, severity Severity) {
	fields := []zap.Field{zap.String("requester", z.name)}
	switch severity {
	case Info:
		z.log.Info(text, fields...)
	case Warning:
		z.log.Warn(text, fields...)
	case Error:
		z.log.Error(text, fields...)
	default:
		z.log.Error(text, append(fields, zap.Bool("fatal", true))...)
	}
}
