package export

import (
	"context"
	"io"
	"os"
	"sync"
)

// Sink receives encoded snapshots. Implementations must tolerate Write
// being called after a failed Write; the exporter retries nothing and logs
// failures.
type Sink interface {
	// Write ships one encoded snapshot.
	Write(ctx context.Context, payload []byte) error
	// Close releases sink resources. The exporter calls it on uninstall.
	Close() error
}

// WriterSink writes newline-delimited snapshots to an io.Writer.
type WriterSink struct {
	mu sync.Mutex
	w  io.Writer
}

// NewWriterSink creates a sink over w. The caller keeps ownership of w;
// Close does not close it.
func NewWriterSink(w io.Writer) *WriterSink {
	return &WriterSink{w: w}
}

// Write implements Sink.
func (s *WriterSink) Write(ctx context.Context, payload []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, err := s.w.Write(payload); err != nil {
		return err
	}
	_, err := s.w.Write([]byte{'\n'})
	return err
}

// Close implements Sink.
func (s *WriterSink) Close() error { return nil }

// FileSink appends newline-delimited snapshots to a file.
type FileSink struct {
	mu sync.Mutex
	f  *os.File
}

// NewFileSink opens (or creates) path for appending.
func NewFileSink(path string) (*FileSink, error) {
	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return nil, err
	}
	return &FileSink{f: f}, nil
}

// Write implements Sink.
func (s *FileSink) Write(ctx context.Context, payload []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, err := s.f.Write(payload); err != nil {
		return err
	}
	_, err := s.f.Write([]byte{'\n'})
	return err
}

// Close implements Sink.
func (s *FileSink) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.f.Close()
}

var (
	_ Sink = (*WriterSink)(nil)
	_ Sink = (*FileSink)(nil)
)
