package logging_test

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	log "github.com/sirupsen/logrus"
	"github.com/stretchr/testify/require"

	"github.com/traylinx/her/internal/logging"
)

func TestConfigureOutputRotatesToFile(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, logging.ConfigureOutput(true, dir, 1))
	defer func() {
		require.NoError(t, logging.ConfigureOutput(false, "", 0))
	}()

	logging.WithSession("abc12345").Info("hello from the frame index")

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	require.NotEmpty(t, entries)

	data, err := os.ReadFile(filepath.Join(dir, entries[0].Name()))
	require.NoError(t, err)
	require.Contains(t, string(data), "session:abc12345")
	require.Contains(t, string(data), "hello from the frame index")
}

func TestFormatterRendersSessionAndExtraFields(t *testing.T) {
	var buf bytes.Buffer
	logger := log.New()
	logger.SetOutput(&buf)
	logger.SetFormatter(&logging.Formatter{})

	logger.WithFields(logging.Fields{"session_id": "deadbeef", "cache_hits": 3}).Warn("eviction ran")

	out := buf.String()
	require.Contains(t, out, "[warn ]")
	require.Contains(t, out, "session:deadbeef")
	require.Contains(t, out, "cache_hits=3")
}
