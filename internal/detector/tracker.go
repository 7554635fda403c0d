package detector

import (
	"fmt"
	"io"
	"os"
	"os/exec"
	"sync"
)

// TrackerSource runs an external hand tracker process and reads the JSON frames it
// writes to stdout, one per line. Camera access and landmark inference stay in that
// process.
type TrackerSource struct {
	command string
	args    []string
	cmd     *exec.Cmd
	stdout  io.ReadCloser
	frames  *JSONLSource
	mu      sync.Mutex
	started bool
}

// NewTrackerSource creates a new TrackerSource.
// The process is started lazily on the first call to Next.
func NewTrackerSource(command string, args ...string) (*TrackerSource, error) {
	if command == "" {
		return nil, fmt.Errorf("tracker command is empty")
	}
	return &TrackerSource{command: command, args: args}, nil
}

// Next returns the next frame emitted by the tracker.
func (t *TrackerSource) Next() (RawFrame, error) {
	t.mu.Lock()
	if err := t.ensureStarted(); err != nil {
		t.mu.Unlock()
		return RawFrame{}, err
	}
	frames := t.frames
	t.mu.Unlock()

	return frames.Next()
}

// Close stops the tracker process.
func (t *TrackerSource) Close() error {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.shutdown()
}

func (t *TrackerSource) ensureStarted() error {
	if t.started {
		return nil
	}

	t.cmd = exec.Command(t.command, t.args...)

	stdout, err := t.cmd.StdoutPipe()
	if err != nil {
		return fmt.Errorf("create stdout pipe: %w", err)
	}

	// Surface tracker diagnostics
	t.cmd.Stderr = os.Stderr

	if err := t.cmd.Start(); err != nil {
		return fmt.Errorf("start tracker: %w", err)
	}

	t.stdout = stdout
	t.frames = NewJSONLSource(stdout)
	t.started = true

	return nil
}

func (t *TrackerSource) shutdown() error {
	if !t.started {
		return nil
	}

	if t.cmd.Process != nil {
		t.cmd.Process.Kill()
	}

	err := t.cmd.Wait()
	t.started = false
	t.cmd = nil
	t.stdout = nil
	t.frames = nil

	return err
}
