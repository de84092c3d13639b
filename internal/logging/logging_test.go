package logging

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseLevel(t *testing.T) {
	assert.Equal(t, DEBUG, ParseLevel("debug"))
	assert.Equal(t, WARN, ParseLevel(" Warning "))
	assert.Equal(t, INFO, ParseLevel("что-то"))
}

func TestWriterLogger_FiltersByLevel(t *testing.T) {
	var buf bytes.Buffer
	l := NewWriterLogger(&buf, WARN)

	l.Info("не должно попасть %d", 1)
	assert.Zero(t, buf.Len())

	l.Warn("пилот %d: %s", 7, "щит")
	var rec map[string]interface{}
	require.NoError(t, json.Unmarshal(buf.Bytes(), &rec))
	assert.Equal(t, "warn", rec["level"])
	assert.Equal(t, "пилот 7: щит", rec["message"])
}

func TestComponentLoggerCached(t *testing.T) {
	a := GetComponentLogger("pilot")
	b := GetComponentLogger("pilot")
	assert.Same(t, a, b)
	assert.Equal(t, "pilot", a.Component())
	assert.Contains(t, GetLoggerManager().ListComponents(), "pilot")
}

func TestInitDefaultLogger_File(t *testing.T) {
	dir := t.TempDir()
	var console bytes.Buffer
	require.NoError(t, InitDefaultLogger(Options{Level: "error", Dir: dir, JSON: true, Console: &console}))
	defer CloseDefaultLogger()

	Info("только в файл")
	assert.Zero(t, console.Len(), "INFO ниже порога консоли")

	Error("везде")
	assert.Contains(t, console.String(), "везде")

	files, err := filepath.Glob(filepath.Join(dir, "pilotsim_*.log"))
	require.NoError(t, err)
	require.Len(t, files, 1)
	data, err := os.ReadFile(files[0])
	require.NoError(t, err)
	assert.Contains(t, string(data), "только в файл")
	assert.Contains(t, string(data), "везде")
}
