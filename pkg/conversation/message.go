package conversation

import (
	"fmt"
	"time"

	"github.com/google/uuid"
)

type Role string

const (
	RoleUser Role = "user"
	RoleBot  Role = "bot"
)

// HistoryRole maps a transcript role onto the role name the backend expects
// in serialized chat history.
func (r Role) HistoryRole() string {
	if r == RoleUser {
		return "user"
	}
	return "assistant"
}

// Message is a single transcript entry. The JSON layout is the persisted
// layout and must stay readable by older clients.
type Message struct {
	ID        string `json:"id,omitempty" yaml:"id,omitempty"`
	Role      Role   `json:"type" yaml:"type"`
	Text      string `json:"text" yaml:"text"`
	Timestamp int64  `json:"ts" yaml:"ts"`
	// FileInfo is a human-readable attachment descriptor, e.g. "(File: a.pdf)".
	FileInfo string `json:"fileInfo,omitempty" yaml:"fileInfo,omitempty"`
	// ImageDataURI is the inline image shown next to the message.
	ImageDataURI string `json:"image_url,omitempty" yaml:"-"`

	// Transient marks placeholder messages that are never persisted.
	Transient bool `json:"-" yaml:"-"`
}

type MessageOption func(*Message)

func WithFileInfo(name string) MessageOption {
	return func(m *Message) {
		if name != "" {
			m.FileInfo = FileInfo(name)
		}
	}
}

func WithImageDataURI(uri string) MessageOption {
	return func(m *Message) {
		m.ImageDataURI = uri
	}
}

func WithTime(t time.Time) MessageOption {
	return func(m *Message) {
		m.Timestamp = t.UnixMilli()
	}
}

func AsTransient() MessageOption {
	return func(m *Message) {
		m.Transient = true
	}
}

func NewMessage(role Role, text string, options ...MessageOption) Message {
	ret := Message{
		ID:        uuid.NewString(),
		Role:      role,
		Text:      text,
		Timestamp: time.Now().UnixMilli(),
	}
	for _, option := range options {
		option(&ret)
	}
	return ret
}

func NewUserMessage(text string, options ...MessageOption) Message {
	return NewMessage(RoleUser, text, options...)
}

func NewBotMessage(text string, options ...MessageOption) Message {
	return NewMessage(RoleBot, text, options...)
}

func (m Message) Time() time.Time {
	return time.UnixMilli(m.Timestamp)
}

// FileInfo formats the attachment descriptor stored on user messages.
func FileInfo(name string) string {
	return fmt.Sprintf("(File: %s)", name)
}

// Session is one named, ordered conversation thread.
type Session struct {
	ID       string    `json:"id,omitempty" yaml:"id,omitempty"`
	Title    string    `json:"title" yaml:"title"`
	Messages []Message `json:"messages" yaml:"messages"`
}

const DefaultSessionTitle = "New Chat"

func NewSession(title string) *Session {
	return &Session{
		ID:       uuid.NewString(),
		Title:    title,
		Messages: []Message{},
	}
}

// DisplayTitle returns the title shown for the session at position index.
func (s *Session) DisplayTitle(index int) string {
	if s.Title != "" {
		return s.Title
	}
	return fmt.Sprintf("Chat %d", index+1)
}

func (s *Session) indexOfMessage(id string) int {
	for i := range s.Messages {
		if s.Messages[i].ID == id {
			return i
		}
	}
	return -1
}

// Snapshot is the persisted view of the whole collection.
type Snapshot struct {
	Sessions    []Session `json:"sessions" yaml:"sessions"`
	ActiveIndex int       `json:"active_index" yaml:"active_index"`
}

// DefaultSnapshot is the state every corrupt or missing persisted state
// recovers to.
func DefaultSnapshot() Snapshot {
	return Snapshot{
		Sessions:    []Session{*NewSession(DefaultSessionTitle)},
		ActiveIndex: 0,
	}
}
