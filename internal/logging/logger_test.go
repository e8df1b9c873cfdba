package logging

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseLevel(t *testing.T) {
	level, err := ParseLevel("debug")
	require.NoError(t, err)
	assert.Equal(t, DEBUG, level)

	level, err = ParseLevel(" Warning ")
	require.NoError(t, err)
	assert.Equal(t, WARN, level)

	_, err = ParseLevel("verbose")
	assert.Error(t, err)
}

func TestWriterLoggerFiltersLevels(t *testing.T) {
	var buf bytes.Buffer
	l := NewWriterLogger("chunks", &buf, INFO)

	l.Debug("скрыто %d", 1)
	l.Info("видно %d", 2)

	out := buf.String()
	assert.NotContains(t, out, "скрыто")
	assert.Contains(t, out, "[INFO] [chunks] видно 2")
	assert.False(t, l.Enabled(DEBUG))
	assert.True(t, l.Enabled(ERROR))
}

func TestFileLogger(t *testing.T) {
	dir := t.TempDir()
	SetLogDir(dir)
	defer SetLogDir("")

	l, err := NewLogger("terrain")
	require.NoError(t, err)
	l.SetLevels(ERROR, TRACE)
	l.Trace("в файл")
	require.NoError(t, l.Close())

	files, err := filepath.Glob(filepath.Join(dir, "terrain_*.log"))
	require.NoError(t, err)
	require.Len(t, files, 1)

	data, err := os.ReadFile(files[0])
	require.NoError(t, err)
	assert.Contains(t, string(data), "в файл")
}

func TestManagerReturnsSameLogger(t *testing.T) {
	lm := &LoggerManager{loggers: make(map[string]*Logger)}
	a := lm.MustGetLogger("api")
	b := lm.MustGetLogger("api")
	assert.Same(t, a, b)
	assert.Contains(t, lm.ListComponents(), "api")

	lm.Configure("", WARN, WARN)
	assert.False(t, a.Enabled(INFO))
	require.NoError(t, lm.CloseAll())
}
