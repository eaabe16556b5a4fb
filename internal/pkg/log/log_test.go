package log

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
)

// Тесты меняют slog.Default(), поэтому НЕ используют t.Parallel().

func newSilent() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestNew_FormatAndLevelByEnv(t *testing.T) {
	tests := []struct {
		env       string
		json      bool
		debugSeen bool
	}{
		{env: EnvLocal, json: false, debugSeen: true},
		{env: EnvDev, json: true, debugSeen: true},
		{env: EnvProd, json: true, debugSeen: false},
		{env: "unknown", json: true, debugSeen: false},
	}

	for _, tt := range tests {
		t.Run(tt.env, func(t *testing.T) {
			var buf bytes.Buffer
			l := newWithWriter(tt.env, &buf)

			l.Debug("debug_event")
			l.Info("info_event", slog.String("k", "v"))

			out := buf.String()
			require.Equal(t, tt.debugSeen, strings.Contains(out, "debug_event"))
			require.Contains(t, out, "info_event")

			lines := strings.Split(strings.TrimSpace(out), "\n")
			var m map[string]any
			isJSON := json.Unmarshal([]byte(lines[len(lines)-1]), &m) == nil
			require.Equal(t, tt.json, isJSON)
		})
	}
}

func TestFrom_ReturnsDefault_WhenNoLoggerInContext(t *testing.T) {
	old := slog.Default()
	t.Cleanup(func() { slog.SetDefault(old) })

	def := newSilent()
	slog.SetDefault(def)

	require.Equal(t, def, From(context.Background()))
}

func TestIntoAndFrom_RoundTrip(t *testing.T) {
	l := newSilent()
	ctx := Into(context.Background(), l)
	require.Equal(t, l, From(ctx))
}

func TestFrom_IgnoresWrongTypeAndNil(t *testing.T) {
	old := slog.Default()
	t.Cleanup(func() { slog.SetDefault(old) })
	def := newSilent()
	slog.SetDefault(def)

	ctxWrong := context.WithValue(context.Background(), ctxKey{}, "not-a-logger")
	require.Equal(t, def, From(ctxWrong))

	var nilLogger *slog.Logger
	require.Equal(t, def, From(Into(context.Background(), nilLogger)))
}

func TestInto_ShadowParentLogger(t *testing.T) {
	parentL, childL := newSilent(), newSilent()

	parent := Into(context.Background(), parentL)
	child := Into(parent, childL)

	require.Equal(t, childL, From(child))
	require.Equal(t, parentL, From(parent))
}

func TestErr(t *testing.T) {
	require.Equal(t, "boom", Err(errors.New("boom")).Value.String())
	require.Equal(t, "", Err(nil).Value.String())
}
