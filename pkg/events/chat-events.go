package events

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"github.com/pkg/errors"
	"github.com/rs/zerolog"
)

type EventType string

const (
	// Session collection changes
	EventTypeSessionsLoaded  EventType = "sessions-loaded"
	EventTypeSessionCreated  EventType = "session-created"
	EventTypeSessionSelected EventType = "session-selected"
	EventTypeSessionRenamed  EventType = "session-renamed"
	EventTypeSessionDeleted  EventType = "session-deleted"

	// Transcript changes inside one session
	EventTypeMessageAppended EventType = "message-appended"
	EventTypeMessageRemoved  EventType = "message-removed"

	// Send pipeline in flight / finished, drives the busy affordance
	EventTypeBusy EventType = "busy"

	// Transient non-blocking notifications (the original "alert" toasts)
	EventTypeNotification EventType = "notification"

	EventTypeRecording EventType = "recording"
	EventTypePlayback  EventType = "playback"
)

type Event interface {
	Type() EventType
	Metadata() EventMetadata
	Payload() []byte
}

// EventMetadata identifies a single published event and, when applicable,
// the session it concerns.
type EventMetadata struct {
	ID        uuid.UUID `json:"event_id" yaml:"event_id"`
	SessionID string    `json:"session_id,omitempty" yaml:"session_id,omitempty"`
	Time      time.Time `json:"time" yaml:"time"`
}

func NewEventMetadata(sessionID string) EventMetadata {
	return EventMetadata{
		ID:        uuid.New(),
		SessionID: sessionID,
		Time:      time.Now(),
	}
}

func (em EventMetadata) MarshalZerologObject(e *zerolog.Event) {
	e.Str("event_id", em.ID.String())
	if em.SessionID != "" {
		e.Str("session_id", em.SessionID)
	}
}

type EventImpl struct {
	Type_     EventType     `json:"type"`
	Metadata_ EventMetadata `json:"meta"`

	// raw JSON when the event was decoded by NewEventFromJson
	payload []byte
}

func (e *EventImpl) MarshalZerologObject(ev *zerolog.Event) {
	ev.Str("type", string(e.Type_))
	ev.Object("meta", e.Metadata_)
}

func (e *EventImpl) Type() EventType {
	return e.Type_
}

func (e *EventImpl) Metadata() EventMetadata {
	return e.Metadata_
}

func (e *EventImpl) Payload() []byte {
	return e.payload
}

func (e *EventImpl) SetPayload(b []byte) {
	e.payload = b
}

var _ Event = &EventImpl{}

// EventSession is published for every change to the session collection.
// Index is the position of the affected session, ActiveIndex the active
// position after the change.
type EventSession struct {
	EventImpl
	Index       int    `json:"index"`
	Title       string `json:"title"`
	ActiveIndex int    `json:"active_index"`
	Count       int    `json:"count"`
}

func NewSessionEvent(type_ EventType, metadata EventMetadata, index int, title string, activeIndex int, count int) *EventSession {
	return &EventSession{
		EventImpl:   EventImpl{Type_: type_, Metadata_: metadata},
		Index:       index,
		Title:       title,
		ActiveIndex: activeIndex,
		Count:       count,
	}
}

var _ Event = &EventSession{}

type EventMessage struct {
	EventImpl
	MessageID string `json:"message_id"`
	Role      string `json:"role"`
	Text      string `json:"text"`
	FileInfo  string `json:"file_info,omitempty"`
	HasImage  bool   `json:"has_image,omitempty"`
	Transient bool   `json:"transient,omitempty"`
	// Active is true when the message belongs to the active session.
	Active bool `json:"active"`
}

func NewMessageEvent(type_ EventType, metadata EventMetadata, messageID string, role string, text string) *EventMessage {
	return &EventMessage{
		EventImpl: EventImpl{Type_: type_, Metadata_: metadata},
		MessageID: messageID,
		Role:      role,
		Text:      text,
	}
}

var _ Event = &EventMessage{}

type EventBusy struct {
	EventImpl
	Busy bool `json:"busy"`
}

func NewBusyEvent(metadata EventMetadata, busy bool) *EventBusy {
	return &EventBusy{
		EventImpl: EventImpl{Type_: EventTypeBusy, Metadata_: metadata},
		Busy:      busy,
	}
}

var _ Event = &EventBusy{}

type NotificationLevel string

const (
	NotificationInfo  NotificationLevel = "info"
	NotificationError NotificationLevel = "error"
)

type EventNotification struct {
	EventImpl
	Level NotificationLevel `json:"level"`
	Text  string            `json:"text"`
}

func NewNotificationEvent(metadata EventMetadata, level NotificationLevel, text string) *EventNotification {
	return &EventNotification{
		EventImpl: EventImpl{Type_: EventTypeNotification, Metadata_: metadata},
		Level:     level,
		Text:      text,
	}
}

var _ Event = &EventNotification{}

type EventRecording struct {
	EventImpl
	State string `json:"state"`
}

func NewRecordingEvent(metadata EventMetadata, state string) *EventRecording {
	return &EventRecording{
		EventImpl: EventImpl{Type_: EventTypeRecording, Metadata_: metadata},
		State:     state,
	}
}

var _ Event = &EventRecording{}

// EventPlayback reports that synthesized speech started playing. Local is
// set when the offline speaker was used instead of the synthesis backend.
type EventPlayback struct {
	EventImpl
	URL   string `json:"url,omitempty"`
	Local bool   `json:"local,omitempty"`
}

func NewPlaybackEvent(metadata EventMetadata, url string, local bool) *EventPlayback {
	return &EventPlayback{
		EventImpl: EventImpl{Type_: EventTypePlayback, Metadata_: metadata},
		URL:       url,
		Local:     local,
	}
}

var _ Event = &EventPlayback{}

// NewEventFromJson decodes an event serialized by a WatermillSink back into
// its typed form.
func NewEventFromJson(b []byte) (Event, error) {
	var hdr struct {
		Type EventType `json:"type"`
	}
	if err := json.Unmarshal(b, &hdr); err != nil {
		return nil, errors.Wrap(err, "could not decode event header")
	}

	var ret Event
	switch hdr.Type {
	case EventTypeSessionsLoaded, EventTypeSessionCreated, EventTypeSessionSelected,
		EventTypeSessionRenamed, EventTypeSessionDeleted:
		ret = &EventSession{}
	case EventTypeMessageAppended, EventTypeMessageRemoved:
		ret = &EventMessage{}
	case EventTypeBusy:
		ret = &EventBusy{}
	case EventTypeNotification:
		ret = &EventNotification{}
	case EventTypeRecording:
		ret = &EventRecording{}
	case EventTypePlayback:
		ret = &EventPlayback{}
	default:
		return nil, errors.Errorf("unknown event type %q", hdr.Type)
	}

	if err := json.Unmarshal(b, ret); err != nil {
		return nil, errors.Wrapf(err, "could not decode %s event", hdr.Type)
	}
	if setter, ok := ret.(interface{ SetPayload([]byte) }); ok {
		setter.SetPayload(b)
	}

	return ret, nil
}
