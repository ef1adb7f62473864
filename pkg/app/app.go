package app

import (
	"context"
	"io"

	"github.com/pkg/errors"
	"github.com/rs/zerolog/log"
	"golang.org/x/sync/errgroup"

	"github.com/go-go-golems/parlante/pkg/audio"
	"github.com/go-go-golems/parlante/pkg/backend"
	"github.com/go-go-golems/parlante/pkg/conversation"
	"github.com/go-go-golems/parlante/pkg/dispatch"
	"github.com/go-go-golems/parlante/pkg/events"
	"github.com/go-go-golems/parlante/pkg/settings"
	"github.com/go-go-golems/parlante/pkg/speech"
	"github.com/go-go-golems/parlante/pkg/store"
	"github.com/go-go-golems/parlante/pkg/ui"
)

// App wires the conversation state, its persistence, the backend
// capabilities and the event bus for one CLI invocation.
type App struct {
	Settings   *settings.Settings
	KV         store.KV
	Store      *store.SessionStore
	Manager    *conversation.Manager
	Backend    *backend.Client
	Dispatcher *dispatch.Dispatcher
	Speech     *speech.Client
	// Transcriber is the voice capability or Whisper, depending on the
	// settings.
	Transcriber audio.Transcriber
	Recorder    *audio.Controller
	Router      *events.EventRouter
	Renderer    *ui.Renderer

	cancel context.CancelFunc
	group  *errgroup.Group
}

type Option func(*options)

type options struct {
	device     audio.Device
	kv         store.KV
	autoplay   *bool
	rendererOn bool
	verbose    bool
}

// WithDevice replaces the configured recorder, e.g. with a FileDevice.
func WithDevice(device audio.Device) Option {
	return func(o *options) {
		o.device = device
	}
}

// WithKV uses kv instead of opening the configured store.
func WithKV(kv store.KV) Option {
	return func(o *options) {
		o.kv = kv
	}
}

func WithAutoplay(autoplay bool) Option {
	return func(o *options) {
		o.autoplay = &autoplay
	}
}

// WithoutRenderer keeps the event bus but prints nothing.
func WithoutRenderer() Option {
	return func(o *options) {
		o.rendererOn = false
	}
}

func WithVerboseEvents(verbose bool) Option {
	return func(o *options) {
		o.verbose = verbose
	}
}

func New(s *settings.Settings, out io.Writer, opts ...Option) (*App, error) {
	o := &options{rendererOn: true}
	for _, opt := range opts {
		opt(o)
	}

	kv := o.kv
	if kv == nil {
		path, err := s.ResolvedStorePath()
		if err != nil {
			return nil, err
		}
		kv, err = store.Open(s.Store, path)
		if err != nil {
			return nil, errors.Wrap(err, "could not open session store")
		}
		log.Debug().Str("store", s.Store).Str("path", path).Msg("opened session store")
	}

	router, err := events.NewEventRouter(events.WithVerbose(o.verbose))
	if err != nil {
		_ = kv.Close()
		return nil, errors.Wrap(err, "could not create event router")
	}

	ret := &App{
		Settings: s,
		KV:       kv,
		Store:    store.NewSessionStore(kv),
		Router:   router,
		Renderer: ui.NewRenderer(out),
	}
	if o.rendererOn {
		router.AddHandler("renderer", ret.Renderer.Handle)
	}

	ret.Manager = conversation.NewManager(
		conversation.WithSaver(ret.Store),
		conversation.WithSink(router.Sink()),
	)

	ret.Backend = backend.NewClient(s.APIOrigin, backend.WithTimeout(s.Timeout))

	speechOptions := []speech.Option{
		speech.WithVoice(s.Voice()),
		speech.WithLocalSpeaker(speech.NewCommandSpeaker(s.SpeakCommand)),
	}
	playCommand := s.PlayCommand
	speechOptions = append(speechOptions, speech.WithPlayerFactory(func() speech.Player {
		return speech.NewCommandPlayer(playCommand)
	}))
	ret.Speech = speech.NewClient(ret.Backend, ret.Manager, speechOptions...)

	autoplay := !s.NoAutoplay
	if o.autoplay != nil {
		autoplay = *o.autoplay
	}
	var dispatchOptions []dispatch.Option
	if autoplay {
		dispatchOptions = append(dispatchOptions, dispatch.WithSpeaker(ret.Speech))
	}
	ret.Dispatcher = dispatch.NewDispatcher(ret.Manager, ret.Backend, dispatchOptions...)

	device := o.device
	if device == nil {
		device = audio.NewCommandDevice(s.RecordCommand)
	}
	ret.Transcriber = ret.transcriber()
	ret.Recorder = audio.NewController(ret.Manager, device, ret.Transcriber, ret.Dispatcher)

	return ret, nil
}

func (a *App) transcriber() audio.Transcriber {
	if a.Settings.Transcriber == settings.TranscriberOpenAI {
		return backend.NewWhisperTranscriber(a.Settings.OpenAIAPIKey,
			backend.WithWhisperModel(a.Settings.WhisperModel))
	}
	return a.Backend
}

// Start runs the event bus and loads the persisted sessions.
func (a *App) Start(ctx context.Context) error {
	ctx, a.cancel = context.WithCancel(ctx)
	a.group, ctx = errgroup.WithContext(ctx)

	a.group.Go(func() error {
		return a.Router.Run(ctx)
	})

	select {
	case <-a.Router.Running():
	case <-ctx.Done():
		return errors.Wrap(a.group.Wait(), "event router did not start")
	}

	a.Manager.Load(a.Store.Load(ctx))
	return nil
}

// Close waits for pending speech, stops the event bus and closes the store.
func (a *App) Close() error {
	a.Dispatcher.Wait()

	if err := a.Router.Close(); err != nil {
		log.Warn().Err(err).Msg("could not close event router")
	}
	if a.cancel != nil {
		a.cancel()
	}
	var err error
	if a.group != nil {
		if gerr := a.group.Wait(); gerr != nil && !errors.Is(gerr, context.Canceled) {
			err = gerr
		}
	}
	if cerr := a.KV.Close(); cerr != nil && err == nil {
		err = errors.Wrap(cerr, "could not close session store")
	}
	return err
}
