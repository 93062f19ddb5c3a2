package logger

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNew(t *testing.T) {
	for _, dev := range []bool{true, false} {
		l, err := New(Config{Development: dev})
		require.NoError(t, err)
		assert.NotNil(t, l)
	}
}

func TestNew_File(t *testing.T) {
	path := filepath.Join(t.TempDir(), "logs", "taskboard.log")

	l, err := New(Config{File: path})
	require.NoError(t, err)
	l.Info("dashboard opened")
	_ = l.Sync()

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(data), `"msg":"dashboard opened"`)
}
