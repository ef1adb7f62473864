package app

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/go-go-golems/parlante/pkg/settings"
	"github.com/go-go-golems/parlante/pkg/store"
)

func newTestApp(t *testing.T, kv store.KV, handler http.HandlerFunc) (*App, *bytes.Buffer) {
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)

	s := &settings.Settings{APIOrigin: srv.URL, Store: "memory", NoAutoplay: true}
	require.NoError(t, s.Validate())

	out := &bytes.Buffer{}
	a, err := New(s, out, WithKV(kv))
	require.NoError(t, err)
	require.NoError(t, a.Start(context.Background()))
	return a, out
}

func TestSendRendersAndPersists(t *testing.T) {
	kv := store.NewMemoryKV()
	a, out := newTestApp(t, kv, func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewEncoder(w).Encode(map[string]string{"reply": "hi"})
	})
	ctx := context.Background()

	outcome, err := a.Dispatcher.Send(ctx, "hello")
	require.NoError(t, err)
	assert.Equal(t, "hi", outcome.Reply)
	require.NoError(t, a.Close())

	assert.Contains(t, out.String(), "you> hello")
	assert.Contains(t, out.String(), "bot>\nhi")

	loaded := store.NewSessionStore(kv).Load(ctx)
	require.Len(t, loaded.Sessions, 1)
	require.Len(t, loaded.Sessions[0].Messages, 2)
	assert.Equal(t, "hi", loaded.Sessions[0].Messages[1].Text)
}

func TestStartLoadsPersistedSessions(t *testing.T) {
	ctx := context.Background()
	kv := store.NewMemoryKV()
	require.NoError(t, kv.SetMany(ctx, map[string]string{
		store.SessionsKey:    `[{"title":"a","messages":[]},{"title":"b","messages":[]}]`,
		store.ActiveIndexKey: "1",
	}))

	a, _ := newTestApp(t, kv, func(w http.ResponseWriter, r *http.Request) {})
	defer func() {
		_ = a.Close()
	}()

	assert.Equal(t, 2, a.Manager.Len())
	assert.Equal(t, 1, a.Manager.ActiveIndex())
}
