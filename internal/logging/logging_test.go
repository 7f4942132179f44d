package logging

import (
	"bytes"
	"context"
	"encoding/json"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNew_RedactsCredentials(t *testing.T) {
	var buf bytes.Buffer
	log := New(&buf, "pix-relay", "info", "production")

	log.Info("provider config saved", "client_id", "ci_live_abc", "client_secret", "cs_live_xyz", "password", "hunter22")

	var line map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &line))
	assert.Equal(t, "pix-relay", line["service"])
	assert.Equal(t, "ci_live_abc", line["client_id"])
	assert.Equal(t, redacted, line["client_secret"])
	assert.Equal(t, redacted, line["password"])
}

func TestNew_Level(t *testing.T) {
	var buf bytes.Buffer
	log := New(&buf, "pix-relay", "warn", "development")

	log.Info("dropped")
	assert.Empty(t, buf.String())

	log.Warn("kept")
	assert.Contains(t, buf.String(), "msg=kept")
}

func TestWithAttrs(t *testing.T) {
	var buf bytes.Buffer
	ctx := WithLogger(context.Background(), New(&buf, "pix-relay", "debug", "production"))
	ctx = WithAttrs(ctx, "charge_id", "chg-1")

	FromContext(ctx).Debug("tick")
	assert.Contains(t, buf.String(), `"charge_id":"chg-1"`)

	assert.Equal(t, slog.Default(), FromContext(context.Background()))
}
