package logger

import (
	"bufio"
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestNew_WritesJSONToFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "app.log")
	var console bytes.Buffer

	log := newWithConsole(path, false, &console)
	log.Debug("frame skipped")
	log.Info("detection emitted", zap.String("label", "peace"))
	require.NoError(t, log.Sync())

	f, err := os.Open(path)
	require.NoError(t, err)
	defer f.Close()

	var lines []map[string]any
	sc := bufio.NewScanner(f)
	for sc.Scan() {
		var entry map[string]any
		require.NoError(t, json.Unmarshal(sc.Bytes(), &entry))
		lines = append(lines, entry)
	}
	require.NoError(t, sc.Err())

	// Debug only reaches the console.
	require.Len(t, lines, 1)
	assert.Equal(t, "INFO", lines[0]["level"])
	assert.Equal(t, "detection emitted", lines[0]["message"])
	assert.Equal(t, "peace", lines[0]["label"])
	assert.Contains(t, lines[0], "timestamp")

	assert.Contains(t, console.String(), "frame skipped")
	assert.Contains(t, console.String(), "detection emitted")
}

func TestNew_ProductionConsoleIsJSON(t *testing.T) {
	path := filepath.Join(t.TempDir(), "app.log")
	var console bytes.Buffer

	log := newWithConsole(path, true, &console)
	log.Warn("sink failed")
	require.NoError(t, log.Sync())

	var entry map[string]any
	require.NoError(t, json.Unmarshal(bytes.TrimSpace(console.Bytes()), &entry))
	assert.Equal(t, "WARN", entry["level"])
	assert.Equal(t, "sink failed", entry["message"])
}
