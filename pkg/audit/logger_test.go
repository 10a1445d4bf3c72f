package audit

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/exploopio/vrx-portal/pkg/compress"
	"github.com/exploopio/vrx-portal/pkg/core"
	"github.com/exploopio/vrx-portal/pkg/retry"
)

type memorySink struct {
	mu     sync.Mutex
	events []Event
	err    error
	closed bool

	// failures makes the next n writes fail.
	failures   int
	writes     int
	lateWrites int

	// entered and release, when set, hold each write until release closes.
	entered chan struct{}
	release chan struct{}
}

func (s *memorySink) Write(_ context.Context, events []Event) error {
	if s.release != nil {
		s.entered <- struct{}{}
		<-s.release
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.writes++
	if s.closed {
		s.lateWrites++
	}
	if s.err != nil {
		return s.err
	}
	if s.failures > 0 {
		s.failures--
		return errors.New("database is locked")
	}
	s.events = append(s.events, events...)
	return nil
}

func (s *memorySink) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.closed = true
	return nil
}

func (s *memorySink) len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.events)
}

func TestDefaultLoggerConfig(t *testing.T) {
	cfg := DefaultLoggerConfig()

	if cfg.BufferSize != 100 {
		t.Errorf("BufferSize = %d, want 100", cfg.BufferSize)
	}
	if cfg.FlushInterval != 5*time.Second {
		t.Errorf("FlushInterval = %v, want 5s", cfg.FlushInterval)
	}
}

func TestLogger_RecordFillsDefaults(t *testing.T) {
	sink := &memorySink{}
	l := NewLogger(nil, nil, sink)

	ctx := core.WithRequestID(context.Background(), "req-1")
	ctx = core.WithActor(ctx, "127.0.0.1")
	l.Record(ctx, Entity(EventUserCreated, "users", "u5", "created user %s", "Eve"))

	if l.Pending() != 1 {
		t.Fatalf("Pending() = %d, want 1", l.Pending())
	}
	l.Flush(context.Background())

	if sink.len() != 1 {
		t.Fatalf("sink has %d events, want 1", sink.len())
	}
	e := sink.events[0]
	if e.ID == "" {
		t.Error("ID should be generated")
	}
	if e.Timestamp.IsZero() {
		t.Error("Timestamp should be set")
	}
	if e.RequestID != "req-1" || e.Actor != "127.0.0.1" {
		t.Errorf("RequestID/Actor = %q/%q", e.RequestID, e.Actor)
	}
	if e.Message != "created user Eve" || e.Section != "users" || e.EntityID != "u5" {
		t.Errorf("unexpected event: %+v", e)
	}
	if e.Severity != SeverityInfo {
		t.Errorf("Severity = %s", e.Severity)
	}
}

func TestLogger_FlushOnBufferFull(t *testing.T) {
	sink := &memorySink{}
	l := NewLogger(&LoggerConfig{BufferSize: 2, FlushInterval: time.Hour}, nil, sink)

	l.Info(context.Background(), EventSettingsUpdated, "one", nil)
	l.Info(context.Background(), EventSettingsUpdated, "two", nil)

	deadline := time.Now().Add(2 * time.Second)
	for sink.len() < 2 && time.Now().Before(deadline) {
		time.Sleep(5 * time.Millisecond)
	}
	if sink.len() != 2 {
		t.Errorf("sink has %d events, want 2", sink.len())
	}
}

func TestLogger_StartStop(t *testing.T) {
	sink := &memorySink{}
	l := NewLogger(&LoggerConfig{FlushInterval: 10 * time.Millisecond}, nil, sink)
	l.Start()
	l.Start()

	l.Error(context.Background(), EventSectionFailed, "section failed", errors.New("boom"), map[string]interface{}{"prefix": "users"})

	if err := l.Stop(); err != nil {
		t.Fatalf("Stop() error = %v", err)
	}
	if sink.len() != 1 {
		t.Fatalf("sink has %d events, want 1", sink.len())
	}
	if sink.events[0].Error != "boom" {
		t.Errorf("Error = %q", sink.events[0].Error)
	}
	if !sink.closed {
		t.Error("sink should be closed on Stop")
	}
}

func TestLogger_StopWaitsForBufferFlush(t *testing.T) {
	sink := &memorySink{entered: make(chan struct{}, 1), release: make(chan struct{})}
	l := NewLogger(&LoggerConfig{BufferSize: 2, FlushInterval: time.Hour}, nil, sink)
	l.Start()

	l.Info(context.Background(), EventUserDeleted, "one", nil)
	l.Info(context.Background(), EventUserDeleted, "two", nil)
	<-sink.entered

	stopped := make(chan error, 1)
	go func() { stopped <- l.Stop() }()

	select {
	case <-stopped:
		t.Fatal("Stop returned while a flush was still writing")
	case <-time.After(50 * time.Millisecond):
	}

	close(sink.release)
	if err := <-stopped; err != nil {
		t.Fatalf("Stop() error = %v", err)
	}
	if sink.len() != 2 {
		t.Errorf("sink has %d events, want 2", sink.len())
	}
	if !sink.closed {
		t.Error("sink should be closed on Stop")
	}
	if sink.lateWrites != 0 {
		t.Errorf("lateWrites = %d, want 0", sink.lateWrites)
	}
}

func TestLogger_RecordAfterStop(t *testing.T) {
	sink := &memorySink{}
	l := NewLogger(&LoggerConfig{BufferSize: 1, FlushInterval: time.Hour}, nil, sink)
	l.Start()
	if err := l.Stop(); err != nil {
		t.Fatalf("Stop() error = %v", err)
	}

	l.Info(context.Background(), EventUserDeleted, "late", nil)
	l.Info(context.Background(), EventUserDeleted, "later", nil)
	l.Flush(context.Background())
	if err := l.Stop(); err != nil {
		t.Fatalf("second Stop() error = %v", err)
	}
	l.Start()
	l.Info(context.Background(), EventUserDeleted, "restarted", nil)

	if sink.writes != 0 {
		t.Errorf("writes = %d, want 0", sink.writes)
	}
	if sink.len() != 0 {
		t.Errorf("sink has %d events, want 0", sink.len())
	}
}

func TestLogger_SinkErrorDropsBatch(t *testing.T) {
	bad := &memorySink{err: errors.New("disk full")}
	good := &memorySink{}
	l := NewLogger(nil, nil, bad, good)

	l.Info(context.Background(), EventUserDeleted, "deleted", nil)
	l.Flush(context.Background())

	if good.len() != 1 {
		t.Errorf("good sink has %d events, want 1", good.len())
	}
	if l.Pending() != 0 {
		t.Errorf("Pending() = %d, want 0", l.Pending())
	}
}

func TestLogger_RetriesFailingSink(t *testing.T) {
	flaky := &memorySink{failures: 2}
	l := NewLogger(&LoggerConfig{
		WriteAttempts: 3,
		Backoff:       retry.Backoff{Strategy: retry.Constant, Base: time.Millisecond},
	}, nil, flaky)

	l.Info(context.Background(), EventSettingsUpdated, "saved", nil)
	l.Flush(context.Background())

	if flaky.len() != 1 {
		t.Errorf("flaky sink has %d events, want 1", flaky.len())
	}
	if flaky.writes != 3 {
		t.Errorf("writes = %d, want 3", flaky.writes)
	}

	bad := &memorySink{err: errors.New("disk full")}
	l = NewLogger(&LoggerConfig{
		WriteAttempts: 2,
		Backoff:       retry.Backoff{Strategy: retry.Constant, Base: time.Millisecond},
	}, nil, bad)
	l.Info(context.Background(), EventSettingsUpdated, "saved", nil)
	l.Flush(context.Background())
	if bad.writes != 2 {
		t.Errorf("writes = %d, want 2", bad.writes)
	}
}

func TestOrNop(t *testing.T) {
	if _, ok := OrNop(nil).(NopRecorder); !ok {
		t.Error("OrNop(nil) should return NopRecorder")
	}
	l := NewLogger(nil, nil)
	if OrNop(l) != Recorder(l) {
		t.Error("OrNop should return the recorder unchanged")
	}
}

func TestFileSink(t *testing.T) {
	path := filepath.Join(t.TempDir(), "audit", "audit.log")
	sink, err := NewFileSink(FileSinkConfig{Path: path})
	if err != nil {
		t.Fatalf("NewFileSink: %v", err)
	}

	events := []Event{
		{ID: "1", Type: EventUserCreated, Message: "created"},
		{ID: "2", Type: EventUserDeleted, Message: "deleted"},
	}
	if err := sink.Write(context.Background(), events); err != nil {
		t.Fatalf("Write: %v", err)
	}
	if err := sink.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}

	f, err := os.Open(path)
	if err != nil {
		t.Fatal(err)
	}
	defer f.Close()

	var got []Event
	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		var e Event
		if err := json.Unmarshal(scanner.Bytes(), &e); err != nil {
			t.Fatalf("invalid JSON line %q: %v", scanner.Text(), err)
		}
		got = append(got, e)
	}
	if len(got) != 2 || got[1].Type != EventUserDeleted {
		t.Errorf("got %+v", got)
	}

	if err := sink.Write(context.Background(), events); err == nil {
		t.Error("Write after Close should fail")
	}
}

func TestFileSink_Rotates(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "audit.log")
	sink, err := NewFileSink(FileSinkConfig{Path: path, MaxSizeMB: 1, Compression: compress.AlgorithmGzip})
	if err != nil {
		t.Fatal(err)
	}
	defer sink.Close()

	big := Event{ID: "big", Type: EventSettingsUpdated, Message: strings.Repeat("x", 1024*1024)}
	if err := sink.Write(context.Background(), []Event{big}); err != nil {
		t.Fatalf("Write: %v", err)
	}

	archives, _ := filepath.Glob(filepath.Join(dir, "audit.log.*.gz"))
	if len(archives) != 1 {
		t.Fatalf("found %d archives, want 1", len(archives))
	}
	info, err := os.Stat(path)
	if err != nil {
		t.Fatalf("fresh log missing: %v", err)
	}
	if info.Size() != 0 {
		t.Errorf("fresh log size = %d, want 0", info.Size())
	}
}

func TestJournal(t *testing.T) {
	j, err := OpenJournal(filepath.Join(t.TempDir(), "journal.db"))
	if err != nil {
		t.Fatalf("OpenJournal: %v", err)
	}
	defer j.Close()

	ctx := context.Background()
	base := time.Date(2025, 11, 10, 8, 0, 0, 0, time.UTC)
	events := []Event{
		{ID: "a", Timestamp: base, Type: EventUserCreated, Severity: SeverityInfo, Section: "users", EntityID: "u5", Message: "created"},
		{ID: "b", Timestamp: base.Add(time.Minute), Type: EventFindingStatusChanged, Severity: SeverityInfo, Section: "findings", EntityID: "f1", Message: "resolved", Details: map[string]interface{}{"status": "resolved"}},
		{ID: "c", Timestamp: base.Add(2 * time.Minute), Type: EventUserDeleted, Severity: SeverityInfo, Section: "users", EntityID: "u5", Message: "deleted"},
	}
	if err := j.Write(ctx, events); err != nil {
		t.Fatalf("Write: %v", err)
	}
	// Duplicate IDs are ignored.
	if err := j.Write(ctx, events[:1]); err != nil {
		t.Fatalf("Write duplicate: %v", err)
	}

	n, err := j.Count(ctx)
	if err != nil || n != 3 {
		t.Fatalf("Count() = %d, %v; want 3", n, err)
	}

	users, err := j.List(ctx, Query{Section: "users"})
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if len(users) != 2 || users[0].ID != "c" || users[1].ID != "a" {
		t.Errorf("users events = %+v", users)
	}

	findings, err := j.List(ctx, Query{Type: EventFindingStatusChanged})
	if err != nil {
		t.Fatal(err)
	}
	if len(findings) != 1 || findings[0].Details["status"] != "resolved" {
		t.Errorf("findings events = %+v", findings)
	}

	limited, err := j.List(ctx, Query{Limit: 1})
	if err != nil {
		t.Fatal(err)
	}
	if len(limited) != 1 || limited[0].ID != "c" {
		t.Errorf("limited = %+v", limited)
	}

	if err := j.Ping(ctx); err != nil {
		t.Errorf("Ping: %v", err)
	}
}
