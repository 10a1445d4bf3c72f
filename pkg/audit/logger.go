// Package audit records the mutations performed through the portal.
//
// Every state change a section makes (user created, finding status changed,
// settings updated, ...) is recorded as an Event. Events are buffered and
// flushed to one or more sinks: a JSON-lines file and, optionally, a SQLite
// journal that the portal can query back.
package audit

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/exploopio/vrx-portal/pkg/core"
	"github.com/exploopio/vrx-portal/pkg/retry"
)

// EventType represents the type of audit event.
type EventType string

const (
	// Lifecycle events
	EventPortalStart EventType = "portal_start"
	EventPortalStop  EventType = "portal_stop"

	// Section events
	EventSectionMounted EventType = "section_mounted"
	EventSectionFailed  EventType = "section_failed"

	// Entity events
	EventUserCreated                EventType = "user_created"
	EventUserUpdated                EventType = "user_updated"
	EventUserDeleted                EventType = "user_deleted"
	EventFindingStatusChanged       EventType = "finding_status_changed"
	EventVulnerabilityStatusChanged EventType = "vulnerability_status_changed"
	EventSettingsUpdated            EventType = "settings_updated"

	// Security events
	EventRateLimited     EventType = "rate_limited"
	EventValidationError EventType = "validation_error"
)

// Severity represents log severity level.
type Severity string

const (
	SeverityInfo    Severity = "INFO"
	SeverityWarning Severity = "WARN"
	SeverityError   Severity = "ERROR"
)

// Event represents an audit event.
type Event struct {
	ID        string                 `json:"id"`
	Timestamp time.Time              `json:"timestamp"`
	Type      EventType              `json:"type"`
	Severity  Severity               `json:"severity"`
	Section   string                 `json:"section,omitempty"`
	EntityID  string                 `json:"entity_id,omitempty"`
	RequestID string                 `json:"request_id,omitempty"`
	Actor     string                 `json:"actor,omitempty"`
	Message   string                 `json:"message"`
	Error     string                 `json:"error,omitempty"`
	Details   map[string]interface{} `json:"details,omitempty"`
}

// Recorder is what sections depend on to record mutations.
type Recorder interface {
	Record(ctx context.Context, event Event)
}

// NopRecorder discards every event.
type NopRecorder struct{}

// Record implements Recorder.
func (NopRecorder) Record(context.Context, Event) {}

// OrNop returns r, or a NopRecorder when r is nil.
func OrNop(r Recorder) Recorder {
	if r == nil {
		return NopRecorder{}
	}
	return r
}

// Sink persists flushed events.
type Sink interface {
	Write(ctx context.Context, events []Event) error
	Close() error
}

// LoggerConfig configures the audit logger.
type LoggerConfig struct {
	// BufferSize is the number of events to buffer before flushing.
	// Default: 100
	BufferSize int

	// FlushInterval is how often to flush buffered events.
	// Default: 5 seconds
	FlushInterval time.Duration

	// WriteAttempts bounds the tries per sink on each flush.
	// Default: 3
	WriteAttempts int

	// Backoff spaces the tries. The zero value uses retry.DefaultBackoff.
	Backoff retry.Backoff
}

// DefaultLoggerConfig returns sensible defaults.
func DefaultLoggerConfig() *LoggerConfig {
	return &LoggerConfig{
		BufferSize:    100,
		FlushInterval: 5 * time.Second,
	}
}

// Logger is the buffered audit logger.
type Logger struct {
	config *LoggerConfig
	sinks  []Sink
	logger core.Logger
	mu     sync.Mutex

	buffer   []Event
	bufferMu sync.Mutex

	running  bool
	stopping bool
	closed   bool
	stopCh  chan struct{}
	wg      sync.WaitGroup
}

// NewLogger creates an audit logger writing to sinks.
func NewLogger(config *LoggerConfig, logger core.Logger, sinks ...Sink) *Logger {
	if config == nil {
		config = DefaultLoggerConfig()
	}
	if config.BufferSize <= 0 {
		config.BufferSize = 100
	}
	if config.FlushInterval <= 0 {
		config.FlushInterval = 5 * time.Second
	}
	if config.WriteAttempts <= 0 {
		config.WriteAttempts = 3
	}
	if config.Backoff.Base <= 0 {
		config.Backoff = retry.DefaultBackoff()
	}

	return &Logger{
		config: config,
		sinks:  sinks,
		logger: core.OrNop(logger),
		buffer: make([]Event, 0, config.BufferSize),
		stopCh: make(chan struct{}),
	}
}

// Start begins background flushing.
func (l *Logger) Start() {
	l.mu.Lock()
	if l.running || l.stopping {
		l.mu.Unlock()
		return
	}
	l.running = true
	l.stopCh = make(chan struct{})
	l.mu.Unlock()

	l.wg.Add(1)
	go l.flushLoop()
}

// Stop stops background flushing, waits for in-flight flushes, writes
// remaining events and closes every sink. Events recorded afterwards are
// dropped.
func (l *Logger) Stop() error {
	l.mu.Lock()
	if l.stopping {
		l.mu.Unlock()
		return nil
	}
	l.stopping = true
	if l.running {
		l.running = false
		close(l.stopCh)
	}
	l.mu.Unlock()

	l.wg.Wait()

	events := l.drain()

	l.mu.Lock()
	defer l.mu.Unlock()
	if len(events) > 0 {
		l.write(context.Background(), events)
	}
	l.closed = true
	var firstErr error
	for _, s := range l.sinks {
		if err := s.Close(); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}

// Record implements Recorder. ID, Timestamp, RequestID and Actor are
// filled in when empty.
func (l *Logger) Record(ctx context.Context, event Event) {
	if event.ID == "" {
		event.ID = uuid.NewString()
	}
	if event.Timestamp.IsZero() {
		event.Timestamp = time.Now().UTC()
	}
	if event.Severity == "" {
		event.Severity = SeverityInfo
	}
	if event.RequestID == "" {
		event.RequestID = core.RequestID(ctx)
	}
	if event.Actor == "" {
		event.Actor = core.Actor(ctx)
	}

	l.bufferMu.Lock()
	l.buffer = append(l.buffer, event)
	shouldFlush := len(l.buffer) >= l.config.BufferSize
	l.bufferMu.Unlock()

	l.logger.Debug("audit %s: %s", event.Type, event.Message)

	if shouldFlush {
		l.mu.Lock()
		defer l.mu.Unlock()
		if l.stopping {
			return
		}
		l.wg.Add(1)
		go func() {
			defer l.wg.Done()
			l.Flush(context.Background())
		}()
	}
}

// Info records an informational event.
func (l *Logger) Info(ctx context.Context, eventType EventType, message string, details map[string]interface{}) {
	l.Record(ctx, Event{
		Type:     eventType,
		Severity: SeverityInfo,
		Message:  message,
		Details:  details,
	})
}

// Error records an error event.
func (l *Logger) Error(ctx context.Context, eventType EventType, message string, err error, details map[string]interface{}) {
	event := Event{
		Type:     eventType,
		Severity: SeverityError,
		Message:  message,
		Details:  details,
	}
	if err != nil {
		event.Error = err.Error()
	}
	l.Record(ctx, event)
}

// Pending returns the number of buffered events.
func (l *Logger) Pending() int {
	l.bufferMu.Lock()
	defer l.bufferMu.Unlock()
	return len(l.buffer)
}

// Flush writes buffered events to every sink, retrying each failing sink
// with backoff. Events a sink still rejects are logged and dropped for that
// sink.
func (l *Logger) Flush(ctx context.Context) {
	events := l.drain()
	if len(events) == 0 {
		return
	}

	l.mu.Lock()
	defer l.mu.Unlock()
	if l.closed {
		l.logger.Warn("audit logger stopped, dropping %d events", len(events))
		return
	}
	l.write(ctx, events)
}

func (l *Logger) drain() []Event {
	l.bufferMu.Lock()
	defer l.bufferMu.Unlock()
	if len(l.buffer) == 0 {
		return nil
	}
	events := l.buffer
	l.buffer = make([]Event, 0, l.config.BufferSize)
	return events
}

// write must be called with l.mu held.
func (l *Logger) write(ctx context.Context, events []Event) {
	for _, s := range l.sinks {
		err := retry.Do(ctx, l.config.WriteAttempts, l.config.Backoff, func(ctx context.Context) error {
			return s.Write(ctx, events)
		})
		if err != nil {
			l.logger.Error("audit sink %T: %v", s, err)
		}
	}
}

func (l *Logger) flushLoop() {
	defer l.wg.Done()

	ticker := time.NewTicker(l.config.FlushInterval)
	defer ticker.Stop()

	for {
		select {
		case <-l.stopCh:
			return
		case <-ticker.C:
			l.Flush(context.Background())
		}
	}
}

// Entity builds an event about a single entity of a section.
func Entity(eventType EventType, section, entityID, format string, args ...interface{}) Event {
	return Event{
		Type:     eventType,
		Severity: SeverityInfo,
		Section:  section,
		EntityID: entityID,
		Message:  fmt.Sprintf(format, args...),
	}
}
