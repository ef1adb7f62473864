package cmds

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/go-go-golems/parlante/pkg/app"
	"github.com/go-go-golems/parlante/pkg/settings"
	"github.com/go-go-golems/parlante/pkg/store"
)

type fakePrompter struct {
	answer  string
	confirm bool
	queries []string
}

func (f *fakePrompter) Ask(query string, defaultValue string) (string, error) {
	f.queries = append(f.queries, query+"|"+defaultValue)
	return f.answer, nil
}

func (f *fakePrompter) Confirm(query string) (bool, error) {
	f.queries = append(f.queries, query)
	return f.confirm, nil
}

type pathRecorder struct {
	mu    sync.Mutex
	paths []string
}

func (p *pathRecorder) add(path string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.paths = append(p.paths, path)
}

func (p *pathRecorder) list() []string {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]string{}, p.paths...)
}

func newTestREPL(t *testing.T, prompt *fakePrompter) (*repl, *bytes.Buffer, *pathRecorder) {
	paths := &pathRecorder{}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		paths.add(r.URL.Path)
		_ = json.NewEncoder(w).Encode(map[string]string{"reply": "hi", "response": "a cat"})
	}))
	t.Cleanup(srv.Close)

	s := &settings.Settings{APIOrigin: srv.URL, Store: "memory", NoAutoplay: true}
	require.NoError(t, s.Validate())

	a, err := app.New(s, &bytes.Buffer{}, app.WithKV(store.NewMemoryKV()), app.WithoutRenderer())
	require.NoError(t, err)
	require.NoError(t, a.Start(context.Background()))

	out := &bytes.Buffer{}
	r := newREPL(a, out, prompt)
	t.Cleanup(func() {
		r.wait()
		_ = a.Close()
	})
	return r, out, paths
}

func run(t *testing.T, r *repl, lines ...string) {
	for _, line := range lines {
		quit, err := r.handle(context.Background(), line)
		require.NoError(t, err, line)
		require.False(t, quit, line)
	}
}

func TestREPLManagesSessions(t *testing.T) {
	prompt := &fakePrompter{answer: "asked", confirm: true}
	r, _, _ := newTestREPL(t, prompt)
	m := r.app.Manager

	run(t, r, "/new", "/new", "/rename 2 trip plans")
	require.Equal(t, 3, m.Len())
	assert.Equal(t, 2, m.ActiveIndex())

	s, ok := m.SessionAt(1)
	require.True(t, ok)
	assert.Equal(t, "trip plans", s.Title)

	run(t, r, "/rename 3")
	s, _ = m.SessionAt(2)
	assert.Equal(t, "asked", s.Title)

	run(t, r, "/select 1")
	assert.Equal(t, 0, m.ActiveIndex())

	run(t, r, "/delete 2")
	assert.Equal(t, 2, m.Len())
	assert.Equal(t, []string{"New title|Chat 3", `Delete "trip plans"?`}, prompt.queries)
}

func TestREPLDeleteDeclined(t *testing.T) {
	r, _, _ := newTestREPL(t, &fakePrompter{confirm: false})

	run(t, r, "/new", "/delete 1")
	assert.Equal(t, 2, r.app.Manager.Len())
}

func TestREPLSendsToActiveSession(t *testing.T) {
	r, _, paths := newTestREPL(t, &fakePrompter{})

	run(t, r, "hello there")
	r.wait()

	_, s := r.app.Manager.Active()
	require.Len(t, s.Messages, 2)
	assert.Equal(t, "hello there", s.Messages[0].Text)
	assert.Equal(t, "hi", s.Messages[1].Text)
	assert.Equal(t, []string{"/chat"}, paths.list())
}

func TestREPLAttachImageUsesVision(t *testing.T) {
	r, out, paths := newTestREPL(t, &fakePrompter{})
	path := filepath.Join(t.TempDir(), "cat.png")
	png := []byte("\x89PNG\r\n\x1a\n\x00\x00\x00\rIHDR")
	require.NoError(t, os.WriteFile(path, png, 0644))

	run(t, r, "/attach "+path)
	assert.Contains(t, out.String(), "attached cat.png (image/png)")

	run(t, r, "what is this")
	r.wait()

	_, s := r.app.Manager.Active()
	require.Len(t, s.Messages, 2)
	assert.Equal(t, "a cat", s.Messages[1].Text)
	assert.Equal(t, []string{"/vision"}, paths.list())
	assert.Nil(t, r.app.Dispatcher.Draft())
}

func TestREPLDetach(t *testing.T) {
	r, _, _ := newTestREPL(t, &fakePrompter{})
	path := filepath.Join(t.TempDir(), "notes.txt")
	require.NoError(t, os.WriteFile(path, []byte("notes"), 0644))

	run(t, r, "/attach "+path)
	require.NotNil(t, r.app.Dispatcher.Draft())
	run(t, r, "/detach")
	assert.Nil(t, r.app.Dispatcher.Draft())
}

func TestREPLExport(t *testing.T) {
	r, out, _ := newTestREPL(t, &fakePrompter{})
	path := filepath.Join(t.TempDir(), "export.yaml")

	run(t, r, "/rename 1 groceries", "/export "+path)

	b, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(b), "title: groceries")
	assert.Contains(t, out.String(), "exported 1 chats to "+path)

	out.Reset()
	run(t, r, "/export")
	assert.Contains(t, out.String(), "title: groceries")
}

func TestREPLRejectsBadInput(t *testing.T) {
	r, _, _ := newTestREPL(t, &fakePrompter{})
	ctx := context.Background()

	for _, line := range []string{"/select 4", "/select x", "/delete 0", "/bogus", "/attach", "/rename"} {
		quit, err := r.handle(ctx, line)
		assert.Error(t, err, line)
		assert.False(t, quit)
	}
}

func TestREPLQuitAndBlankLines(t *testing.T) {
	r, _, paths := newTestREPL(t, &fakePrompter{})
	ctx := context.Background()

	quit, err := r.handle(ctx, "   ")
	require.NoError(t, err)
	assert.False(t, quit)

	quit, err = r.handle(ctx, "/quit")
	require.NoError(t, err)
	assert.True(t, quit)

	r.wait()
	assert.Empty(t, paths.list())
}

func TestLinePrompter(t *testing.T) {
	lines := make(chan string, 4)
	out := &bytes.Buffer{}
	p := &linePrompter{out: out, lines: lines}

	lines <- ""
	answer, err := p.Ask("New title", "Chat 1")
	require.NoError(t, err)
	assert.Equal(t, "Chat 1", answer)

	lines <- "  travel "
	answer, err = p.Ask("New title", "Chat 1")
	require.NoError(t, err)
	assert.Equal(t, "travel", answer)

	lines <- "Y"
	ok, err := p.Confirm("Delete?")
	require.NoError(t, err)
	assert.True(t, ok)

	lines <- "nope"
	ok, err = p.Confirm("Delete?")
	require.NoError(t, err)
	assert.False(t, ok)

	close(lines)
	_, err = p.Ask("New title", "x")
	assert.Error(t, err)

	assert.Contains(t, out.String(), "New title [Chat 1]: ")
}

func TestParsePosition(t *testing.T) {
	tests := []struct {
		arg     string
		want    int
		wantErr bool
	}{
		{arg: "1", want: 0},
		{arg: "12", want: 11},
		{arg: "0", wantErr: true},
		{arg: "-2", wantErr: true},
		{arg: "two", wantErr: true},
	}
	for _, tt := range tests {
		t.Run(tt.arg, func(t *testing.T) {
			got, err := parsePosition(tt.arg)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}
