// Package notify fans persistence events out to registered sinks, so
// failed background writes surface somewhere a user or log collector can
// see them instead of vanishing.
package notify

import (
	"errors"
	"fmt"
	"log"
)

// Event describes the outcome of a background persistence call.
type Event struct {
	Operation   string // "save", "delete", "bulk-save"
	WatchlistID string
	Err         error
}

// Sink receives persistence events.
type Sink interface {
	Name() string
	Notify(e Event) error
}

// Manager broadcasts events to all registered sinks.
type Manager struct {
	sinks []Sink
}

// NewManager creates a new notification manager.
func NewManager(sinks ...Sink) *Manager {
	return &Manager{sinks: sinks}
}

// HasSinks returns true if at least one sink is configured.
func (m *Manager) HasSinks() bool {
	return len(m.sinks) > 0
}

// Broadcast sends an event to all registered sinks.
func (m *Manager) Broadcast(e Event) error {
	var errs []error
	for _, sink := range m.sinks {
		if err := sink.Notify(e); err != nil {
			errs = append(errs, fmt.Errorf("%s: %w", sink.Name(), err))
		}
	}
	return errors.Join(errs...)
}

// LogSink writes events to a standard logger.
type LogSink struct {
	logger *log.Logger
}

// NewLogSink creates a sink backed by logger.
func NewLogSink(logger *log.Logger) *LogSink {
	return &LogSink{logger: logger}
}

func (s *LogSink) Name() string { return "log" }

func (s *LogSink) Notify(e Event) error {
	if e.Err != nil {
		s.logger.Printf("%s %s failed: %v", e.Operation, e.WatchlistID, e.Err)
		return nil
	}
	s.logger.Printf("%s %s ok", e.Operation, e.WatchlistID)
	return nil
}
