package logpub

import (
	"bytes"
	"context"
	"encoding/json"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestPublisher_LogsPayload(t *testing.T) {
	var buf bytes.Buffer
	p := NewPublisher(slog.New(slog.NewJSONHandler(&buf, nil)))

	require.NoError(t, p.Publish(context.Background(), "runs", map[string]bool{"conserved": true}))
	require.NoError(t, p.Close())

	var entry map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &entry))
	require.Equal(t, "Event published", entry["msg"])
	require.Equal(t, "runs", entry["topic"])
	require.JSONEq(t, `{"conserved":true}`, entry["payload"].(string))
}

func TestPublisher_EncodeError(t *testing.T) {
	p := NewPublisher(nil)

	err := p.Publish(context.Background(), "runs", func() {})

	require.Error(t, err)
}
