package log

import (
	"bytes"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
)

func withBuffer(t *testing.T) *bytes.Buffer {
	t.Helper()
	prev := defaultLogger
	buf := &bytes.Buffer{}
	InitWithWriter(buf)
	t.Cleanup(func() { defaultLogger = prev })
	return buf
}

func TestLog_FormatsFields(t *testing.T) {
	buf := withBuffer(t)

	Info(CatResolve, "handler resolved", "key", "urn:util", "type", "handlers.Util")

	line := buf.String()
	require.Contains(t, line, "[INFO] [resolve] handler resolved")
	require.Contains(t, line, "key=urn:util")
	require.Contains(t, line, "type=handlers.Util")
	require.True(t, strings.HasSuffix(line, "\n"))
}

func TestLog_OddFieldCount(t *testing.T) {
	buf := withBuffer(t)

	Warn(CatConfig, "dangling", "orphan")

	require.Contains(t, buf.String(), "orphan=<missing>")
}

func TestLog_MinLevelFilters(t *testing.T) {
	buf := withBuffer(t)
	SetMinLevel(LevelWarn)

	Debug(CatCache, "dropped")
	Info(CatCache, "dropped too")
	Error(CatCache, "kept")

	require.NotContains(t, buf.String(), "dropped")
	require.Contains(t, buf.String(), "[ERROR] [cache] kept")
}

func TestLog_ErrorErr(t *testing.T) {
	buf := withBuffer(t)

	ErrorErr(CatJournal, "insert failed", errors.New("disk full"), "id", "abc")
	ErrorErr(CatJournal, "nil error", nil)

	out := buf.String()
	require.Contains(t, out, "id=abc error=disk full")
	require.Contains(t, out, "error=<nil>")
}

func TestLog_NoopWithoutInit(t *testing.T) {
	prev := defaultLogger
	defaultLogger = nil
	t.Cleanup(func() { defaultLogger = prev })

	require.NotPanics(t, func() {
		Info(CatRegistry, "ignored", "k", "v")
	})
}

func TestInit_WritesToFile(t *testing.T) {
	prev := defaultLogger
	t.Cleanup(func() { defaultLogger = prev })

	path := filepath.Join(t.TempDir(), "debug.log")
	cleanup, err := Init(path)
	if err != nil {
		t.Skipf("logger already initialized in this process: %v", err)
	}
	defer cleanup()

	Info(CatConfig, "hello")

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	require.Contains(t, string(data), "[INFO] [config] hello")
}
