package store

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/go-go-golems/parlante/pkg/conversation"
)

func sampleSnapshot() conversation.Snapshot {
	a := conversation.NewSession("groceries")
	a.Messages = append(a.Messages,
		conversation.NewUserMessage("milk?", conversation.WithFileInfo("list.txt")),
		conversation.NewBotMessage("**yes**"),
	)
	b := conversation.NewSession("Chat 2")
	c := conversation.NewSession("vision")
	c.Messages = append(c.Messages,
		conversation.NewUserMessage("what is this", conversation.WithImageDataURI("data:image/png;base64,AA==")),
	)
	return conversation.Snapshot{
		Sessions:    []conversation.Session{*a, *b, *c},
		ActiveIndex: 2,
	}
}

func backends(t *testing.T) map[string]KV {
	dir := t.TempDir()
	fileKV, err := NewFileKV(filepath.Join(dir, "state.json"))
	require.NoError(t, err)
	sqliteKV, err := NewSQLiteKV(filepath.Join(dir, "state.db"))
	require.NoError(t, err)
	t.Cleanup(func() {
		_ = sqliteKV.Close()
	})

	return map[string]KV{
		"memory": NewMemoryKV(),
		"file":   fileKV,
		"sqlite": sqliteKV,
	}
}

func TestSaveLoadRoundTrip(t *testing.T) {
	for name, kv := range backends(t) {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()
			s := NewSessionStore(kv)
			want := sampleSnapshot()

			require.NoError(t, s.Save(ctx, want))
			got := s.Load(ctx)

			assert.Equal(t, want, got)
		})
	}
}

func TestLoadMissingYieldsDefault(t *testing.T) {
	for name, kv := range backends(t) {
		t.Run(name, func(t *testing.T) {
			got := NewSessionStore(kv).Load(context.Background())

			require.Len(t, got.Sessions, 1)
			assert.Equal(t, conversation.DefaultSessionTitle, got.Sessions[0].Title)
			assert.Empty(t, got.Sessions[0].Messages)
			assert.Equal(t, 0, got.ActiveIndex)
		})
	}
}

func TestLoadRecoversFromCorruptState(t *testing.T) {
	tests := []struct {
		name     string
		sessions string
		index    string
	}{
		{name: "not json", sessions: "{{{", index: "0"},
		{name: "object instead of array", sessions: `{"title":"x"}`, index: "0"},
		{name: "messages not a list", sessions: `[{"title":"x","messages":"nope"}]`, index: "0"},
		{name: "unknown role", sessions: `[{"title":"x","messages":[{"type":"robot","text":"hi"}]}]`, index: "0"},
		{name: "empty collection", sessions: `[]`, index: "0"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ctx := context.Background()
			kv := NewMemoryKV()
			require.NoError(t, kv.SetMany(ctx, map[string]string{SessionsKey: tt.sessions, ActiveIndexKey: tt.index}))

			got := NewSessionStore(kv).Load(ctx)

			require.Len(t, got.Sessions, 1)
			assert.Equal(t, conversation.DefaultSessionTitle, got.Sessions[0].Title)
			assert.Equal(t, 0, got.ActiveIndex)
		})
	}
}

func TestLoadNormalizesActiveIndex(t *testing.T) {
	sessions := `[{"title":"a","messages":[]},{"title":"b","messages":[]},{"title":"c","messages":[]}]`
	tests := []struct {
		index string
		want  int
	}{
		{index: "1", want: 1},
		{index: "7", want: 2},
		{index: "-4", want: 0},
		{index: "abc", want: 0},
		{index: "", want: 0},
		{index: "2.0", want: 2},
	}

	for _, tt := range tests {
		t.Run(tt.index, func(t *testing.T) {
			ctx := context.Background()
			kv := NewMemoryKV()
			require.NoError(t, kv.SetMany(ctx, map[string]string{SessionsKey: sessions, ActiveIndexKey: tt.index}))

			got := NewSessionStore(kv).Load(ctx)
			require.Len(t, got.Sessions, 3)
			assert.Equal(t, tt.want, got.ActiveIndex)
		})
	}
}

func TestLoadAcceptsLegacyNulls(t *testing.T) {
	ctx := context.Background()
	kv := NewMemoryKV()
	legacy := `[{"title":"Chat 1","messages":[{"type":"user","text":"hi","ts":1700000000000,"fileInfo":null,"image_url":null},{"type":"bot","text":"hello","ts":1700000000500}]}]`
	require.NoError(t, kv.SetMany(ctx, map[string]string{SessionsKey: legacy}))

	got := NewSessionStore(kv).Load(ctx)

	require.Len(t, got.Sessions, 1)
	require.Len(t, got.Sessions[0].Messages, 2)
	assert.Equal(t, conversation.RoleUser, got.Sessions[0].Messages[0].Role)
	assert.Equal(t, "", got.Sessions[0].Messages[0].FileInfo)
	assert.Equal(t, int64(1700000000500), got.Sessions[0].Messages[1].Timestamp)
	assert.Equal(t, 0, got.ActiveIndex)
}

func TestOpenBackends(t *testing.T) {
	dir := t.TempDir()

	kv, err := Open("memory", "")
	require.NoError(t, err)
	assert.IsType(t, &MemoryKV{}, kv)

	kv, err = Open("file", filepath.Join(dir, "nested", "state.json"))
	require.NoError(t, err)
	assert.IsType(t, &FileKV{}, kv)

	kv, err = Open("sqlite", filepath.Join(dir, "state.db"))
	require.NoError(t, err)
	assert.IsType(t, &SQLiteKV{}, kv)
	require.NoError(t, kv.Close())

	_, err = Open("redis", "")
	assert.ErrorIs(t, err, ErrUnknownBackend)
}

func TestFileKVIgnoresCorruptDocument(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "state.json")
	kv, err := NewFileKV(path)
	require.NoError(t, err)
	require.NoError(t, os.WriteFile(path, []byte("not json"), 0644))

	_, ok, err := kv.Get(ctx, SessionsKey)
	require.NoError(t, err)
	assert.False(t, ok)

	require.NoError(t, kv.SetMany(ctx, map[string]string{"a": "1", "b": "2"}))
	v, ok, err := kv.Get(ctx, "b")
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, "2", v)
}
