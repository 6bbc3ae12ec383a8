/*

This file contains the notification sink. Workflows emit user-facing
notifications through a Sink; the default sink writes them to the structured
log, and the web layer can fan them out to connected dashboards. The raw
cause is carried alongside the display text so diagnostics never lose the
underlying error.

*/

package notify

import (
	"sync"

	"github.com/rs/zerolog"

	"github.com/snowbound-dao/sdm/internal/logger"
)

// Severity classifies a notification for display.
type Severity string

const (
	SeverityInfo    Severity = "info"
	SeveritySuccess Severity = "success"
	SeverityWarning Severity = "warning"
	SeverityError   Severity = "error"
)

// Notification is one user-facing message.
type Notification struct {
	Severity Severity `json:"severity"`
	// Text is the display message shown to the user.
	Text string `json:"text"`
	// Cause is the raw underlying error, preserved verbatim for diagnostics.
	// Never shown as the primary message.
	Cause string `json:"cause,omitempty"`
}

// Sink receives notifications emitted by transaction workflows and the
// refresh loop.
type Sink interface {
	Notify(n Notification)
}

// LogSink writes notifications to the structured log. It is the default
// sink when no dashboard transport is attached.
type LogSink struct {
	log zerolog.Logger
}

// NewLogSink returns a sink writing to the shared component logger.
func NewLogSink() *LogSink {
	return &LogSink{log: logger.GetForComponent("notifications")}
}

func (s *LogSink) Notify(n Notification) {
	evt := s.log.Info()
	switch n.Severity {
	case SeverityWarning:
		evt = s.log.Warn()
	case SeverityError:
		evt = s.log.Error()
	}
	if n.Cause != "" {
		evt = evt.Str("cause", n.Cause)
	}
	evt.Str("severity", string(n.Severity)).Msg(n.Text)
}

// MultiSink fans a notification out to several sinks.
type MultiSink struct {
	mu    sync.RWMutex
	sinks []Sink
}

func NewMultiSink(sinks ...Sink) *MultiSink {
	return &MultiSink{sinks: sinks}
}

// Attach adds a sink. Safe for concurrent use with Notify.
func (m *MultiSink) Attach(s Sink) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.sinks = append(m.sinks, s)
}

func (m *MultiSink) Notify(n Notification) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	for _, s := range m.sinks {
		s.Notify(n)
	}
}

// Helper constructors for the common shapes.

func Info(text string) Notification {
	return Notification{Severity: SeverityInfo, Text: text}
}

func Success(text string) Notification {
	return Notification{Severity: SeveritySuccess, Text: text}
}

func Warning(text string) Notification {
	return Notification{Severity: SeverityWarning, Text: text}
}

func Error(text string, cause error) Notification {
	n := Notification{Severity: SeverityError, Text: text}
	if cause != nil {
		n.Cause = cause.Error()
	}
	return n
}
