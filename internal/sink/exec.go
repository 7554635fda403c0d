package sink

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"os/exec"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/MasterChief05/gesture-alert-vision-83/internal/session"
)

// Request is the JSON document written to the command's stdin.
type Request struct {
	Event     string                  `json:"event"`
	Detection session.DetectionResult `json:"detection"`
}

// Response is the optional JSON document a command may print on stdout.
type Response struct {
	Success bool   `json:"success"`
	Error   string `json:"error,omitempty"`
}

// Exec runs an external command for every detection, e.g. a notifier script.
// Commands run in the background with a timeout; failures are logged.
type Exec struct {
	command string
	args    []string
	timeout time.Duration
	logger  *zap.Logger
	wg      sync.WaitGroup
}

// NewExec creates an Exec sink. command is split on whitespace into the program
// and its leading arguments.
func NewExec(command string, timeout time.Duration, logger *zap.Logger) (*Exec, error) {
	fields := strings.Fields(command)
	if len(fields) == 0 {
		return nil, fmt.Errorf("exec sink: command is empty")
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Exec{command: fields[0], args: fields[1:], timeout: timeout, logger: logger}, nil
}

// Publish starts the command for result and returns immediately.
func (e *Exec) Publish(result session.DetectionResult) error {
	e.wg.Add(1)
	go func() {
		defer e.wg.Done()
		if _, err := e.Run(context.Background(), result); err != nil {
			e.logger.Warn("detection command failed", zap.String("label", result.Label), zap.Error(err))
		}
	}()
	return nil
}

// Run executes the command synchronously with the JSON request on stdin.
// An empty stdout counts as success.
func (e *Exec) Run(ctx context.Context, result session.DetectionResult) (*Response, error) {
	if e.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, e.timeout)
		defer cancel()
	}

	cmd := exec.CommandContext(ctx, e.command, e.args...)
	// Children may hold stdout open after the command is killed.
	cmd.WaitDelay = time.Second

	reqJSON, err := json.Marshal(Request{Event: "detection", Detection: result})
	if err != nil {
		return nil, fmt.Errorf("marshal request: %w", err)
	}
	cmd.Stdin = bytes.NewReader(reqJSON)

	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	err = cmd.Run()

	if ctx.Err() == context.DeadlineExceeded {
		return nil, fmt.Errorf("command timed out after %s", e.timeout)
	}
	if err != nil {
		if s := strings.TrimSpace(stderr.String()); s != "" {
			return nil, fmt.Errorf("command failed: %w, stderr: %s", err, s)
		}
		return nil, fmt.Errorf("command failed: %w", err)
	}

	out := bytes.TrimSpace(stdout.Bytes())
	if len(out) == 0 {
		return &Response{Success: true}, nil
	}

	var resp Response
	if err := json.Unmarshal(out, &resp); err != nil {
		return nil, fmt.Errorf("parse command response: %w, stdout: %s", err, out)
	}
	if !resp.Success {
		return &resp, fmt.Errorf("command reported failure: %s", resp.Error)
	}
	return &resp, nil
}

// Close waits for running commands to finish.
func (e *Exec) Close() error {
	e.wg.Wait()
	return nil
}
