// Package sink provides destinations for emitted detections.
// Every sink returns from Publish without waiting on its consumer.
package sink

import (
	"errors"
	"sync"

	"github.com/MasterChief05/gesture-alert-vision-83/internal/session"
)

// Func adapts a plain callback into a session.Sink.
type Func func(result session.DetectionResult) error

// Publish calls f.
func (f Func) Publish(result session.DetectionResult) error {
	return f(result)
}

// Channel delivers detections on a buffered Go channel.
// When the buffer is full new detections are dropped and counted.
type Channel struct {
	ch      chan session.DetectionResult
	mu      sync.Mutex
	dropped int
	closed  bool
}

// NewChannel creates a Channel sink with the given buffer size.
func NewChannel(buffer int) *Channel {
	if buffer < 1 {
		buffer = 1
	}
	return &Channel{ch: make(chan session.DetectionResult, buffer)}
}

// Publish enqueues result or drops it when the buffer is full.
func (c *Channel) Publish(result session.DetectionResult) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.closed {
		return ErrClosed
	}

	select {
	case c.ch <- result:
	default:
		c.dropped++
	}
	return nil
}

// C returns the receive side of the channel.
func (c *Channel) C() <-chan session.DetectionResult {
	return c.ch
}

// Dropped returns how many detections were discarded on overflow.
func (c *Channel) Dropped() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.dropped
}

// Close closes the channel. Later publications fail with ErrClosed.
func (c *Channel) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if !c.closed {
		c.closed = true
		close(c.ch)
	}
	return nil
}

// Fanout publishes each detection to every sink in order. All sinks are tried;
// their errors are joined.
type Fanout []session.Sink

// Publish forwards result to every non-nil sink.
func (f Fanout) Publish(result session.DetectionResult) error {
	var errs []error
	for _, s := range f {
		if s == nil {
			continue
		}
		if err := s.Publish(result); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
