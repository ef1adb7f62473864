package speech

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/go-go-golems/parlante/pkg/backend"
	"github.com/go-go-golems/parlante/pkg/conversation"
	"github.com/go-go-golems/parlante/pkg/events"
)

type fakePlayer struct {
	mu   sync.Mutex
	urls []string
}

func (f *fakePlayer) Play(_ context.Context, url string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.urls = append(f.urls, url)
	return nil
}

type fakeLocal struct {
	texts []string
}

func (f *fakeLocal) Say(_ context.Context, text string) error {
	f.texts = append(f.texts, text)
	return nil
}

type recordingSink struct {
	mu     sync.Mutex
	events []events.Event
}

func (r *recordingSink) PublishEvent(e events.Event) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, e)
	return nil
}

func (r *recordingSink) notifications() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	ret := []string{}
	for _, e := range r.events {
		if n, ok := e.(*events.EventNotification); ok {
			ret = append(ret, n.Text)
		}
	}
	return ret
}

type ttsServer struct {
	*httptest.Server
	mu    sync.Mutex
	forms []map[string]string
	calls int
}

func newTTSServer(t *testing.T, status int, body string) *ttsServer {
	s := &ttsServer{}
	s.Server = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.NoError(t, r.ParseMultipartForm(1<<20))
		form := map[string]string{}
		for k := range r.MultipartForm.Value {
			form[k] = r.FormValue(k)
		}
		s.mu.Lock()
		s.calls++
		s.forms = append(s.forms, form)
		s.mu.Unlock()
		w.WriteHeader(status)
		_, _ = w.Write([]byte(body))
	}))
	t.Cleanup(s.Close)
	return s
}

func TestSpeakSynthesizesAndPlays(t *testing.T) {
	srv := newTTSServer(t, http.StatusOK, `{"audio_url":"/tts_audio/a.mp3"}`)
	player := &fakePlayer{}
	m := conversation.NewManager()
	c := NewClient(backend.NewClient(srv.URL), m, WithPlayer(player))

	require.NoError(t, c.Speak(context.Background(), "hello"))

	assert.Equal(t, []string{srv.URL + "/tts_audio/a.mp3"}, player.urls)
	require.Len(t, srv.forms, 1)
	assert.Equal(t, map[string]string{
		"text": "hello", "gender": "female", "speed": "1.0", "pitch": "1.0", "lang": "en-US",
	}, srv.forms[0])
}

func TestSpeakFillsMissingVoiceFields(t *testing.T) {
	srv := newTTSServer(t, http.StatusOK, `{"audio_url":"https://cdn.example.com/a.mp3"}`)
	player := &fakePlayer{}
	c := NewClient(backend.NewClient(srv.URL), conversation.NewManager(),
		WithPlayer(player), WithVoice(&Voice{Gender: "male", Lang: "hi-IN"}))

	require.NoError(t, c.Speak(context.Background(), "namaste"))

	assert.Equal(t, "male", srv.forms[0]["gender"])
	assert.Equal(t, "1.0", srv.forms[0]["speed"])
	assert.Equal(t, "1.0", srv.forms[0]["pitch"])
	assert.Equal(t, "hi-IN", srv.forms[0]["lang"])
	assert.Equal(t, []string{"https://cdn.example.com/a.mp3"}, player.urls)
}

func TestSpeakWithoutVoiceUsesLocalSpeaker(t *testing.T) {
	srv := newTTSServer(t, http.StatusOK, `{"audio_url":"/a.mp3"}`)
	local := &fakeLocal{}
	player := &fakePlayer{}
	c := NewClient(backend.NewClient(srv.URL), conversation.NewManager(),
		WithVoice(nil), WithLocalSpeaker(local), WithPlayer(player))

	require.NoError(t, c.Speak(context.Background(), "offline"))

	assert.Equal(t, []string{"offline"}, local.texts)
	assert.Equal(t, 0, srv.calls)
	assert.Empty(t, player.urls)
}

func TestSpeakFailures(t *testing.T) {
	tests := []struct {
		name   string
		status int
		body   string
		notice []string
		err    bool
	}{
		{name: "server error", status: 500, body: "down", notice: []string{"TTS server error"}, err: true},
		{name: "generation error", status: 200, body: `{"error":"TTS generation failed"}`, notice: []string{"TTS generation error"}, err: true},
		{name: "missing url", status: 200, body: `{}`, notice: []string{}, err: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv := newTTSServer(t, tt.status, tt.body)
			sink := &recordingSink{}
			player := &fakePlayer{}
			c := NewClient(backend.NewClient(srv.URL), conversation.NewManager(conversation.WithSink(sink)), WithPlayer(player))

			err := c.Speak(context.Background(), "x")
			if tt.err {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
			assert.Equal(t, tt.notice, sink.notifications())
			assert.Empty(t, player.urls)
		})
	}
}

func TestSpeakCreatesThrowawayPlayer(t *testing.T) {
	srv := newTTSServer(t, http.StatusOK, `{"audio_url":"/a.mp3"}`)
	made := 0
	player := &fakePlayer{}
	c := NewClient(backend.NewClient(srv.URL), conversation.NewManager(),
		WithPlayerFactory(func() Player {
			made++
			return player
		}))

	ctx := context.Background()
	require.NoError(t, c.Speak(ctx, "one"))
	require.NoError(t, c.Speak(ctx, "two"))

	assert.Equal(t, 2, made)
	assert.Len(t, player.urls, 2)
}

func TestSpeakMessage(t *testing.T) {
	srv := newTTSServer(t, http.StatusOK, `{"audio_url":"/a.mp3"}`)
	m := conversation.NewManager()
	ctx := context.Background()
	id := m.ActiveID()
	require.NoError(t, m.AppendMessage(ctx, id, conversation.NewUserMessage("question")))
	require.NoError(t, m.AppendMessage(ctx, id, conversation.NewBotMessage("answer")))
	player := &fakePlayer{}
	c := NewClient(backend.NewClient(srv.URL), m, WithPlayer(player))

	require.NoError(t, c.SpeakMessage(ctx, id, 1))
	assert.Equal(t, "answer", srv.forms[0]["text"])

	assert.ErrorIs(t, c.SpeakMessage(ctx, id, 0), ErrMessageNotSpeakable)
	assert.ErrorIs(t, c.SpeakMessage(ctx, id, 5), conversation.ErrMessageNotFound)
	assert.ErrorIs(t, c.SpeakMessage(ctx, "missing", 0), conversation.ErrSessionNotFound)
}

func TestVoiceDefaults(t *testing.T) {
	assert.Equal(t, *DefaultVoice(), Voice{}.WithDefaults())
	assert.Equal(t, "0.5", Voice{Speed: "0.5"}.WithDefaults().Speed)
}
