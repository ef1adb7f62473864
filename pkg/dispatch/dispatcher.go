package dispatch

import (
	"context"
	"strings"
	"sync"

	"github.com/pkg/errors"
	"github.com/rs/zerolog/log"

	"github.com/go-go-golems/parlante/pkg/backend"
	"github.com/go-go-golems/parlante/pkg/conversation"
	"github.com/go-go-golems/parlante/pkg/events"
)

// Route is the backend capability a send was dispatched to.
type Route string

const (
	RouteChat   Route = "chat"
	RouteVision Route = "vision"
)

const (
	NoChatReply    = "No reply from server"
	NoVisionReply  = "No response from vision API"
	busyNotice     = "A message is already being sent in this chat."
	errorBotPrefix = "⚠ Server error: "
	errorNotice    = "Server error: "
)

var ErrSessionBusy = errors.New("a send is already in flight for this session")

// Backend is the part of the backend client the dispatcher needs.
type Backend interface {
	Chat(ctx context.Context, req backend.ChatRequest) (*backend.ChatResponse, error)
	Vision(ctx context.Context, req backend.VisionRequest) (*backend.VisionResponse, error)
}

// Speaker reads replies aloud.
type Speaker interface {
	Speak(ctx context.Context, text string) error
}

// Outcome describes a completed send. Backend failures are reported here
// and never returned as errors.
type Outcome struct {
	SessionID string
	Route     Route
	Reply     string
	// Err is the backend failure, if any. Reply then holds the error text
	// that was appended to the transcript.
	Err error
	// Dropped is set when the session was deleted while the request was in
	// flight, the reply was discarded.
	Dropped bool
}

// Dispatcher turns user input into backend requests and records both sides
// of the exchange in the session it was sent from.
type Dispatcher struct {
	manager *conversation.Manager
	backend Backend
	speaker Speaker

	mu    sync.Mutex
	draft *conversation.Attachment

	speaking sync.WaitGroup
}

type Option func(*Dispatcher)

func WithSpeaker(speaker Speaker) Option {
	return func(d *Dispatcher) {
		d.speaker = speaker
	}
}

func NewDispatcher(manager *conversation.Manager, backend Backend, options ...Option) *Dispatcher {
	d := &Dispatcher{
		manager: manager,
		backend: backend,
	}
	for _, option := range options {
		option(d)
	}
	return d
}

// SetDraft stages an attachment for the next send. A nil attachment clears
// the draft.
func (d *Dispatcher) SetDraft(a *conversation.Attachment) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.draft = a
}

func (d *Dispatcher) Draft() *conversation.Attachment {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.draft
}

func (d *Dispatcher) ClearDraft() {
	d.SetDraft(nil)
}

// clearDraftIf clears the draft unless it was replaced in the meantime.
func (d *Dispatcher) clearDraftIf(a *conversation.Attachment) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.draft == a {
		d.draft = nil
	}
}

// Send sends text, together with the current draft, from the active
// session. Blank text without a draft is a no-op and returns nil, nil.
func (d *Dispatcher) Send(ctx context.Context, text string) (*Outcome, error) {
	text = strings.TrimSpace(text)
	if text == "" && d.Draft() == nil {
		return nil, nil
	}
	return d.send(ctx, d.manager.EnsureActive(ctx), text)
}

// SendTo is Send for a specific session, addressed by id.
func (d *Dispatcher) SendTo(ctx context.Context, sessionID string, text string) (*Outcome, error) {
	text = strings.TrimSpace(text)
	if text == "" && d.Draft() == nil {
		return nil, nil
	}
	return d.send(ctx, sessionID, text)
}

// Wait blocks until all replies handed to the speaker were spoken.
func (d *Dispatcher) Wait() {
	d.speaking.Wait()
}

func (d *Dispatcher) send(ctx context.Context, sessionID string, text string) (*Outcome, error) {
	if !d.manager.TryAcquire(sessionID) {
		if d.manager.IndexOf(sessionID) < 0 {
			return nil, errors.Wrapf(conversation.ErrSessionNotFound, "send to %s", sessionID)
		}
		d.manager.Notify(sessionID, events.NotificationInfo, busyNotice)
		return nil, ErrSessionBusy
	}

	draft := d.Draft()
	d.manager.Publish(events.NewBusyEvent(events.NewEventMetadata(sessionID), true))
	defer func() {
		d.clearDraftIf(draft)
		d.manager.Release(sessionID)
		d.manager.Publish(events.NewBusyEvent(events.NewEventMetadata(sessionID), false))
	}()

	session, ok := d.manager.Session(sessionID)
	if !ok {
		return nil, errors.Wrapf(conversation.ErrSessionNotFound, "send to %s", sessionID)
	}
	prior := session.Messages

	isVision := draft != nil && draft.Decoded() && draft.IsImage()

	var options []conversation.MessageOption
	if draft != nil {
		options = append(options, conversation.WithFileInfo(draft.Name))
		if isVision {
			options = append(options, conversation.WithImageDataURI(draft.DataURI))
		}
	}
	if err := d.manager.AppendMessage(ctx, sessionID, conversation.NewUserMessage(text, options...)); err != nil {
		return nil, err
	}

	outcome := &Outcome{SessionID: sessionID, Route: RouteChat}
	if isVision {
		outcome.Route = RouteVision
	}

	log.Debug().
		Str("session_id", sessionID).
		Str("route", string(outcome.Route)).
		Bool("attachment", draft != nil).
		Msg("dispatching message")

	var reply string
	var err error
	if isVision {
		reply, err = d.vision(ctx, text, draft, prior)
	} else {
		reply, err = d.chat(ctx, text, draft, prior)
	}

	if err != nil {
		log.Warn().Err(err).Str("session_id", sessionID).Str("route", string(outcome.Route)).Msg("send failed")
		outcome.Err = err
		reply = errorBotPrefix + err.Error()
		d.manager.Notify(sessionID, events.NotificationError, errorNotice+err.Error())
	}
	outcome.Reply = reply

	if err := d.manager.AppendMessage(ctx, sessionID, conversation.NewBotMessage(reply)); err != nil {
		if errors.Is(err, conversation.ErrSessionNotFound) {
			log.Info().Str("session_id", sessionID).Msg("session was deleted while waiting for the reply, dropping it")
			outcome.Dropped = true
			return outcome, nil
		}
		return outcome, err
	}

	if outcome.Err == nil && d.speaker != nil {
		d.speak(ctx, reply)
	}

	return outcome, nil
}

func (d *Dispatcher) chat(ctx context.Context, text string, draft *conversation.Attachment, prior []conversation.Message) (string, error) {
	resp, err := d.backend.Chat(ctx, backend.ChatRequest{
		Message: text,
		File:    draft,
		History: conversation.ChatHistory(prior),
	})
	if err != nil {
		return "", err
	}
	return firstNonEmpty(resp.Reply, resp.Response, NoChatReply), nil
}

func (d *Dispatcher) vision(ctx context.Context, text string, draft *conversation.Attachment, prior []conversation.Message) (string, error) {
	resp, err := d.backend.Vision(ctx, backend.VisionRequest{
		TextPrompt:  text,
		Base64Image: draft.Base64Payload(),
		MimeType:    draft.MimeType,
		ChatHistory: conversation.VisionHistory(prior),
	})
	if err != nil {
		return "", err
	}
	return firstNonEmpty(resp.Response, resp.Reply, NoVisionReply), nil
}

func (d *Dispatcher) speak(ctx context.Context, text string) {
	ctx = context.WithoutCancel(ctx)
	d.speaking.Add(1)
	go func() {
		defer d.speaking.Done()
		if err := d.speaker.Speak(ctx, text); err != nil {
			log.Warn().Err(err).Msg("could not speak reply")
		}
	}()
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}
