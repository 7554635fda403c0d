// Command alert-notify shows a desktop notification for each detection it receives.
// It is meant to be used as the exec sink: SINK=exec SINK_COMMAND=alert-notify.
// On macOS it uses AppleScript, elsewhere notify-send; without either it writes the
// alert to stderr.
package main

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"os/exec"
	"runtime"
	"strings"

	"github.com/MasterChief05/gesture-alert-vision-83/internal/sink"
)

// alertTimeoutMs matches the time an alert stays on screen in the web view.
const alertTimeoutMs = 3000

func main() {
	if err := handle(os.Stdin, os.Stdout, notify); err != nil {
		fmt.Fprintln(os.Stderr, err)
	}
}

// handle decodes one request from in, notifies and writes the response to out.
func handle(in io.Reader, out io.Writer, send func(title, body string) error) error {
	var req sink.Request
	if err := json.NewDecoder(in).Decode(&req); err != nil {
		return writeResponse(out, fmt.Errorf("failed to decode request: %w", err))
	}
	if req.Event != "detection" {
		return writeResponse(out, fmt.Errorf("unknown event: %s", req.Event))
	}

	title, body := formatAlert(req)
	if err := send(title, body); err != nil {
		return writeResponse(out, fmt.Errorf("notification failed: %w", err))
	}
	return writeResponse(out, nil)
}

func formatAlert(req sink.Request) (title, body string) {
	d := req.Detection
	title = fmt.Sprintf("¡Seña detectada: %s!", d.Label)
	body = fmt.Sprintf("Confianza: %.1f%%", d.Confidence*100)
	if !d.ObservedAt.IsZero() {
		body += " · " + d.ObservedAt.Local().Format("15:04:05")
	}
	return title, body
}

func writeResponse(out io.Writer, err error) error {
	resp := sink.Response{Success: err == nil}
	if err != nil {
		resp.Error = err.Error()
	}
	if encErr := json.NewEncoder(out).Encode(resp); encErr != nil {
		return encErr
	}
	return err
}

func notify(title, body string) error {
	switch {
	case runtime.GOOS == "darwin":
		script := fmt.Sprintf("display notification %q with title %q", body, title)
		return run("osascript", "-e", script)
	case hasCommand("notify-send"):
		return run("notify-send", "--expire-time", fmt.Sprint(alertTimeoutMs), title, body)
	default:
		_, err := fmt.Fprintf(os.Stderr, "%s %s\n", title, body)
		return err
	}
}

func hasCommand(name string) bool {
	_, err := exec.LookPath(name)
	return err == nil
}

// run executes a command and returns any error with its combined output.
func run(name string, args ...string) error {
	cmd := exec.Command(name, args...)
	output, err := cmd.CombinedOutput()
	if err != nil {
		return fmt.Errorf("%w: %s", err, strings.TrimSpace(string(output)))
	}
	return nil
}
