package sheetsync

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/crowdcue/backend/internal/models"
)

func TestSendDeliversEnvelope(t *testing.T) {
	var got Envelope
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		_, _ = w.Write([]byte(`{"ok":true}`))
	}))
	defer srv.Close()

	d := NewDispatcher(2*time.Second, nil)
	err := d.Send(context.Background(), srv.URL, TypeQABackup, "Sheet1", map[string]any{"question": "why?"})
	require.NoError(t, err)

	assert.Equal(t, TypeQABackup, got.Type)
	assert.Equal(t, "Sheet1", got.SheetName)
}

func TestSendWebhookRejection(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"ok":false,"error":"unknown sheet"}`))
	}))
	defer srv.Close()

	d := NewDispatcher(2*time.Second, nil)
	err := d.Send(context.Background(), srv.URL, TypePoll, "Nope", nil)
	require.Error(t, err)
	assert.ErrorIs(t, err, models.ErrUpstream)
	assert.Contains(t, err.Error(), "unknown sheet")
}

func TestSendUnreachableUpstream(t *testing.T) {
	d := NewDispatcher(500*time.Millisecond, nil)
	err := d.Send(context.Background(), "http://127.0.0.1:1/closed", TypePoll, "", nil)
	assert.ErrorIs(t, err, models.ErrUpstream)
}

func TestSendMalformedResponse(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte("not json"))
	}))
	defer srv.Close()

	d := NewDispatcher(2*time.Second, nil)
	err := d.Send(context.Background(), srv.URL, TypeInitialize, "", nil)
	assert.ErrorIs(t, err, models.ErrUpstream)
}

func TestDispatchEmptyURLIsNoop(t *testing.T) {
	d := NewDispatcher(time.Second, nil)
	// must not panic or spawn work
	d.Dispatch("", TypePollBackup, "Sheet1", nil)
}
