package detector

import (
	"bufio"
	"encoding/json"
	"fmt"
	"io"
	"sync"
)

// Source defines the interface for frame producers feeding the recognizer.
type Source interface {
	// Next blocks until the next raw frame is available.
	// Returns io.EOF once the source is exhausted.
	Next() (RawFrame, error)

	// Close releases any resources held by the source.
	Close() error
}

// maxLineSize bounds a single JSON frame line. Two hands of 21 points fit comfortably.
const maxLineSize = 1024 * 1024

// JSONLSource reads newline-delimited JSON frames from a reader,
// e.g. the stdout of a hand tracker piped into the service.
type JSONLSource struct {
	scanner *bufio.Scanner
	closer  io.Closer
	mu      sync.Mutex
}

// NewJSONLSource creates a JSONLSource over r. If r is an io.Closer it is closed by Close.
func NewJSONLSource(r io.Reader) *JSONLSource {
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), maxLineSize)

	s := &JSONLSource{scanner: scanner}
	if c, ok := r.(io.Closer); ok {
		s.closer = c
	}
	return s
}

// Next returns the next frame. Blank lines are skipped.
// A line that is not valid JSON is reported as an ErrMalformedFrame error and the
// source stays usable.
func (s *JSONLSource) Next() (RawFrame, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for s.scanner.Scan() {
		line := s.scanner.Bytes()
		if len(line) == 0 {
			continue
		}

		var raw RawFrame
		if err := json.Unmarshal(line, &raw); err != nil {
			return RawFrame{}, fmt.Errorf("%w: %v", ErrMalformedFrame, err)
		}
		return raw, nil
	}

	if err := s.scanner.Err(); err != nil {
		return RawFrame{}, fmt.Errorf("read frame: %w", err)
	}
	return RawFrame{}, io.EOF
}

// Close closes the underlying reader when it supports closing.
func (s *JSONLSource) Close() error {
	if s.closer != nil {
		return s.closer.Close()
	}
	return nil
}
