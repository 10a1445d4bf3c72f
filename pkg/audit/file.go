package audit

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/exploopio/vrx-portal/pkg/compress"
)

// FileSinkConfig configures the JSON-lines sink.
type FileSinkConfig struct {
	// Path is the audit log file.
	Path string

	// MaxSizeMB rotates the file once it grows past this size. 0 disables
	// rotation.
	MaxSizeMB int

	// Compression is applied to rotated files.
	Compression compress.Algorithm
}

// FileSink appends events as JSON lines.
type FileSink struct {
	config FileSinkConfig
	file   *os.File
	size   int64
	mu     sync.Mutex
}

// NewFileSink opens (or creates) the audit log file.
func NewFileSink(config FileSinkConfig) (*FileSink, error) {
	if config.Path == "" {
		return nil, fmt.Errorf("audit log path is required")
	}
	if config.Compression == "" {
		config.Compression = compress.AlgorithmZSTD
	}

	if err := os.MkdirAll(filepath.Dir(config.Path), 0755); err != nil {
		return nil, fmt.Errorf("create log directory: %w", err)
	}

	s := &FileSink{config: config}
	if err := s.open(); err != nil {
		return nil, err
	}
	return s, nil
}

func (s *FileSink) open() error {
	// 0640 = owner read/write, group read
	file, err := os.OpenFile(s.config.Path, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0640)
	if err != nil {
		return fmt.Errorf("open log file: %w", err)
	}
	info, err := file.Stat()
	if err != nil {
		file.Close()
		return fmt.Errorf("stat log file: %w", err)
	}
	s.file = file
	s.size = info.Size()
	return nil
}

// Write implements Sink.
func (s *FileSink) Write(_ context.Context, events []Event) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.file == nil {
		return fmt.Errorf("audit file sink is closed")
	}

	for _, event := range events {
		data, err := json.Marshal(event)
		if err != nil {
			continue
		}
		data = append(data, '\n')
		n, err := s.file.Write(data)
		s.size += int64(n)
		if err != nil {
			return fmt.Errorf("write audit event: %w", err)
		}
	}

	if err := s.file.Sync(); err != nil {
		return fmt.Errorf("sync audit log: %w", err)
	}

	if s.config.MaxSizeMB > 0 && s.size >= int64(s.config.MaxSizeMB)*1024*1024 {
		return s.rotate()
	}
	return nil
}

// rotate renames the current file with a timestamp suffix, archives it and
// reopens a fresh file. Caller holds s.mu.
func (s *FileSink) rotate() error {
	if err := s.file.Close(); err != nil {
		return fmt.Errorf("close audit log: %w", err)
	}
	s.file = nil

	rotated := fmt.Sprintf("%s.%s", s.config.Path, time.Now().UTC().Format("20060102T150405.000"))
	if err := os.Rename(s.config.Path, rotated); err != nil {
		if openErr := s.open(); openErr != nil {
			return openErr
		}
		return fmt.Errorf("rotate audit log: %w", err)
	}
	if err := s.open(); err != nil {
		return err
	}
	if _, err := compress.ArchiveFile(rotated, s.config.Compression); err != nil {
		return fmt.Errorf("archive audit log: %w", err)
	}
	return nil
}

// Close implements Sink.
func (s *FileSink) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.file == nil {
		return nil
	}
	err := s.file.Close()
	s.file = nil
	return err
}
