package pointio

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"sync"
)

// Sink receives complete output lines.
type Sink interface {
	WriteLine(line string) error
}

// ConsoleSink writes lines to a stream, normally stdout.
type ConsoleSink struct {
	mu sync.Mutex
	w  io.Writer
}

// NewConsoleSink creates a sink writing to w.
func NewConsoleSink(w io.Writer) *ConsoleSink {
	return &ConsoleSink{w: w}
}

// WriteLine writes line followed by a newline.
func (s *ConsoleSink) WriteLine(line string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, err := io.WriteString(s.w, line+"\n"); err != nil {
		return fmt.Errorf("failed to write output line: %w", err)
	}
	return nil
}

// FileSink appends lines to a file. Every line is flushed as it is written so
// the file stays current while a long search runs.
type FileSink struct {
	mu     sync.Mutex
	file   *os.File
	writer *bufio.Writer
	path   string
}

// OpenAppend opens path for appending, creating it if needed.
func OpenAppend(path string) (*FileSink, error) {
	file, err := os.OpenFile(path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0644)
	if err != nil {
		return nil, fmt.Errorf("failed to open %s for append: %w", path, err)
	}
	return &FileSink{
		file:   file,
		writer: bufio.NewWriter(file),
		path:   path,
	}, nil
}

// WriteLine appends line and a newline.
func (s *FileSink) WriteLine(line string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, err := s.writer.WriteString(line); err != nil {
		return fmt.Errorf("failed to write to %s: %w", s.path, err)
	}
	if err := s.writer.WriteByte('\n'); err != nil {
		return fmt.Errorf("failed to write to %s: %w", s.path, err)
	}
	if err := s.writer.Flush(); err != nil {
		return fmt.Errorf("failed to flush %s: %w", s.path, err)
	}
	return nil
}

// Close flushes and closes the file.
func (s *FileSink) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.writer.Flush(); err != nil {
		s.file.Close()
		return fmt.Errorf("failed to flush on close: %w", err)
	}
	if err := s.file.Close(); err != nil {
		return fmt.Errorf("failed to close %s: %w", s.path, err)
	}
	return nil
}

// Path returns the file's path.
func (s *FileSink) Path() string {
	return s.path
}

// TeeSink writes each line to every sink in order. It stops at the first
// failure.
type TeeSink []Sink

// WriteLine implements Sink.
func (t TeeSink) WriteLine(line string) error {
	for _, s := range t {
		if err := s.WriteLine(line); err != nil {
			return err
		}
	}
	return nil
}

// Discard drops every line.
var Discard Sink = discard{}

type discard struct{}

func (discard) WriteLine(string) error { return nil }
