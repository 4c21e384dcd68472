package log

import (
	"bytes"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseLevel(t *testing.T) {
	lvl, err := ParseLevel("warning")
	require.NoError(t, err)
	assert.Equal(t, slog.LevelWarn, lvl)

	_, err = ParseLevel("loud")
	assert.Error(t, err)
}

func TestModuleLogger(t *testing.T) {
	var buf bytes.Buffer
	SetDefault(NewTextLogger(&buf, slog.LevelInfo))
	t.Cleanup(func() { SetDefault(nil) })

	Module(nil, DecoderModule).Info("entered block", "kind", "join")
	Module(nil, DecoderModule).Debug("hidden")

	out := buf.String()
	assert.Contains(t, out, "module=decoder")
	assert.Contains(t, out, "kind=join")
	assert.NotContains(t, out, "hidden")
}
