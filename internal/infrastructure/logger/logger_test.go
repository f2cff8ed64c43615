package logger

import (
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

func readEntries(t *testing.T, path string) []map[string]any {
	t.Helper()
	data, err := os.ReadFile(path)
	require.NoError(t, err)

	var entries []map[string]any
	for _, line := range strings.Split(strings.TrimSpace(string(data)), "\n") {
		if line == "" {
			continue
		}
		var entry map[string]any
		require.NoError(t, json.Unmarshal([]byte(line), &entry))
		entries = append(entries, entry)
	}
	return entries
}

func TestParseLevel(t *testing.T) {
	tests := []struct {
		in      string
		want    zapcore.Level
		wantErr bool
	}{
		{"", zapcore.InfoLevel, false},
		{"debug", zapcore.DebugLevel, false},
		{"INFO", zapcore.InfoLevel, false},
		{" warn ", zapcore.WarnLevel, false},
		{"warning", zapcore.WarnLevel, false},
		{"error", zapcore.ErrorLevel, false},
		{"fatal", zapcore.FatalLevel, false},
		{"verbose", zapcore.InfoLevel, true},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := ParseLevel(tt.in)
			if tt.wantErr {
				require.Error(t, err)
				assert.Contains(t, err.Error(), tt.in)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestNew_FileOutput(t *testing.T) {
	path := filepath.Join(t.TempDir(), "marketplace.log")
	log, err := New(&Config{
		Level:   "info",
		Format:  "json",
		Output:  path,
		Service: "marketplace-backend",
		Env:     "staging",
	})
	require.NoError(t, err)

	log.Debug("cart recalculated")
	log.Info("checkout placed", zap.String("checkout_id", "chk-1"))
	log.Error("paynow poll failed")
	require.NoError(t, Sync(log))

	entries := readEntries(t, path)
	require.Len(t, entries, 2, "debug is below the configured level")

	placed := entries[0]
	assert.Equal(t, "checkout placed", placed["msg"])
	assert.Equal(t, "info", placed["level"])
	assert.Equal(t, "chk-1", placed["checkout_id"])
	assert.Equal(t, "marketplace-backend", placed["service"])
	assert.Equal(t, "staging", placed["env"])
	assert.Contains(t, placed, "caller")
	assert.NotContains(t, placed, "stacktrace")

	assert.Contains(t, entries[1], "stacktrace", "errors carry a stack")
}

func TestNew_Sampling(t *testing.T) {
	path := filepath.Join(t.TempDir(), "sampled.log")
	log, err := New(&Config{Level: "info", Format: "json", Output: path, Sampling: 2})
	require.NoError(t, err)

	for i := 0; i < 5; i++ {
		log.Info("sse client dropped")
	}
	require.NoError(t, Sync(log))

	// first 2 pass, then every 2nd: entries 1, 2 and 4
	assert.Len(t, readEntries(t, path), 3)
}

func TestNew_Errors(t *testing.T) {
	t.Run("bad level", func(t *testing.T) {
		_, err := New(&Config{Level: "chatty", Output: "stdout"})
		assert.Error(t, err)
	})

	t.Run("unwritable file", func(t *testing.T) {
		_, err := New(&Config{Level: "info", Output: filepath.Join(t.TempDir(), "missing", "app.log")})
		require.Error(t, err)
		assert.Contains(t, err.Error(), "open log file")
	})
}

func TestNew_StandardStreams(t *testing.T) {
	for _, output := range []string{"", "stdout", "STDERR"} {
		t.Run(output, func(t *testing.T) {
			log, err := New(&Config{Level: "warn", Format: "console", Output: output})
			require.NoError(t, err)
			assert.False(t, log.Core().Enabled(zapcore.InfoLevel))
			assert.True(t, log.Core().Enabled(zapcore.WarnLevel))
		})
	}
}

func TestNewEncoder(t *testing.T) {
	entry := zapcore.Entry{Level: zapcore.InfoLevel, Message: "payout requested"}

	t.Run("json", func(t *testing.T) {
		buf, err := newEncoder(&Config{Format: "json"}).EncodeEntry(entry, []zapcore.Field{zap.String("vendor_id", "v-1")})
		require.NoError(t, err)
		assert.Contains(t, buf.String(), `"msg":"payout requested"`)
		assert.Contains(t, buf.String(), `"vendor_id":"v-1"`)
	})

	t.Run("console", func(t *testing.T) {
		buf, err := newEncoder(&Config{Format: "console"}).EncodeEntry(entry, nil)
		require.NoError(t, err)
		assert.Contains(t, buf.String(), "payout requested")
		assert.NotContains(t, buf.String(), `"msg"`)
	})
}
