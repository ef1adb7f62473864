package audio

import (
	"bytes"
	"context"
	"sync"

	"github.com/pkg/errors"
	"github.com/rs/zerolog/log"

	"github.com/go-go-golems/parlante/pkg/backend"
	"github.com/go-go-golems/parlante/pkg/conversation"
	"github.com/go-go-golems/parlante/pkg/dispatch"
	"github.com/go-go-golems/parlante/pkg/events"
)

type State int

const (
	StateIdle State = iota
	StateRecording
	StateStopped
	StateTranscribing
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateRecording:
		return "recording"
	case StateStopped:
		return "stopped"
	case StateTranscribing:
		return "transcribing"
	default:
		return "unknown"
	}
}

const (
	PlaceholderText    = "Transcribing audio..."
	micUnavailable     = "Microphone permission denied or unavailable."
	voiceErrorNotice   = "Voice API error: "
	defaultChunkBuffer = 4096
)

var (
	ErrNotIdle      = errors.New("audio capture is not idle")
	ErrNotRecording = errors.New("audio capture is not recording")
)

// Device is an audio input that can be opened for one capture.
type Device interface {
	Open(ctx context.Context) (Recording, error)
}

// Recording is a capture in progress. Stop ends it and returns the
// captured chunks in order.
type Recording interface {
	Stop() ([][]byte, error)
}

type Transcriber interface {
	Transcribe(ctx context.Context, clip *backend.Clip) (string, error)
}

// Sender delivers transcribed text to a session, as if it had been typed
// there.
type Sender interface {
	SendTo(ctx context.Context, sessionID string, text string) (*dispatch.Outcome, error)
}

// Controller drives a single capture at a time through
// idle, recording, stopped, transcribing and back to idle.
type Controller struct {
	manager     *conversation.Manager
	device      Device
	transcriber Transcriber
	sender      Sender

	mu        sync.Mutex
	state     State
	opening   bool
	recording Recording
}

func NewController(manager *conversation.Manager, device Device, transcriber Transcriber, sender Sender) *Controller {
	return &Controller{
		manager:     manager,
		device:      device,
		transcriber: transcriber,
		sender:      sender,
	}
}

func (c *Controller) State() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

// Toggle starts a capture when idle and finishes it when recording.
func (c *Controller) Toggle(ctx context.Context) (*dispatch.Outcome, error) {
	switch c.State() {
	case StateIdle:
		return nil, c.Start(ctx)
	case StateRecording:
		return c.Stop(ctx)
	default:
		return nil, ErrNotIdle
	}
}

// Start opens the device. A device that cannot be opened leaves the
// controller idle and raises a notification.
func (c *Controller) Start(ctx context.Context) error {
	c.mu.Lock()
	if c.state != StateIdle || c.opening {
		c.mu.Unlock()
		return ErrNotIdle
	}
	c.opening = true
	c.mu.Unlock()

	rec, err := c.device.Open(ctx)

	c.mu.Lock()
	c.opening = false
	if err == nil {
		c.recording = rec
		c.state = StateRecording
	}
	c.mu.Unlock()

	sessionID := c.manager.ActiveID()
	if err != nil {
		log.Warn().Err(err).Msg("could not open audio device")
		c.manager.Notify(sessionID, events.NotificationError, micUnavailable)
		return errors.Wrap(err, "could not start recording")
	}

	c.publishState(StateRecording, sessionID)
	log.Debug().Msg("recording started")
	return nil
}

// Stop finishes the capture, transcribes it and sends the text to the
// session that was active when the capture stopped. Only the state
// transitions happen under the lock, State() answers while the device
// shuts down.
func (c *Controller) Stop(ctx context.Context) (*dispatch.Outcome, error) {
	c.mu.Lock()
	if c.state != StateRecording {
		c.mu.Unlock()
		return nil, ErrNotRecording
	}
	rec := c.recording
	c.recording = nil
	c.state = StateStopped
	c.mu.Unlock()

	sessionID := c.manager.EnsureActive(ctx)
	c.publishState(StateStopped, sessionID)

	chunks, stopErr := rec.Stop()
	clip := backend.NewClip(bytes.Join(chunks, nil))

	placeholder := conversation.NewBotMessage(PlaceholderText, conversation.AsTransient())
	if err := c.manager.AppendTransient(sessionID, placeholder); err != nil {
		log.Warn().Err(err).Str("session_id", sessionID).Msg("could not add transcription placeholder")
	}
	c.setState(StateTranscribing, sessionID)

	var text string
	err := stopErr
	if err == nil {
		log.Debug().Int("bytes", len(clip.Data)).Str("session_id", sessionID).Msg("transcribing clip")
		text, err = c.transcriber.Transcribe(ctx, clip)
	}

	if rmErr := c.manager.RemoveMessage(sessionID, placeholder.ID); rmErr != nil {
		log.Debug().Err(rmErr).Str("session_id", sessionID).Msg("transcription placeholder already gone")
	}

	c.setState(StateIdle, sessionID)

	if err != nil {
		log.Warn().Err(err).Str("session_id", sessionID).Msg("transcription failed")
		c.manager.Notify(sessionID, events.NotificationError, voiceErrorNotice+err.Error())
		return nil, err
	}

	return c.sender.SendTo(ctx, sessionID, text)
}

func (c *Controller) setState(s State, sessionID string) {
	c.mu.Lock()
	c.state = s
	c.mu.Unlock()
	c.publishState(s, sessionID)
}

// publishState is called without c.mu held, the event bus blocks until
// every handler acked.
func (c *Controller) publishState(s State, sessionID string) {
	c.manager.Publish(events.NewRecordingEvent(events.NewEventMetadata(sessionID), s.String()))
}
