package conversation

// Package conversation holds the client-side conversation state: the
// collection of named sessions, the active-session pointer, and the
// transcript of every session.
//
// The Manager is the single owner of that state. Every mutation goes through
// one of its methods, is mirrored to persistence through the Saver, and is
// announced to observers through an events.EventSink. Sessions are addressed
// by position for user-facing operations and by a stable id for everything
// that outlives a single call (in-flight requests, placeholders).

import (
	"context"
	"fmt"
	"strings"
	"sync"

	"github.com/google/uuid"
	"github.com/huandu/go-clone"
	"github.com/pkg/errors"
	"github.com/rs/zerolog/log"

	"github.com/go-go-golems/parlante/pkg/events"
)

var (
	ErrSessionNotFound = errors.New("session not found")
	ErrMessageNotFound = errors.New("message not found")
)

// Saver mirrors the session collection to durable storage.
type Saver interface {
	Save(ctx context.Context, snapshot Snapshot) error
}

// SessionSummary is the display view of one session.
type SessionSummary struct {
	Index        int    `json:"index" yaml:"index"`
	ID           string `json:"id" yaml:"id"`
	Title        string `json:"title" yaml:"title"`
	MessageCount int    `json:"message_count" yaml:"message_count"`
	Active       bool   `json:"active" yaml:"active"`
	Busy         bool   `json:"busy" yaml:"busy"`
}

type Manager struct {
	mu       sync.Mutex
	sessions []*Session
	activeID string
	busy     map[string]bool

	// serializes persistence so that snapshots reach the saver in order
	saveMu sync.Mutex
	saver  Saver
	sink   events.EventSink
}

type ManagerOption func(*Manager)

func WithSaver(saver Saver) ManagerOption {
	return func(m *Manager) {
		m.saver = saver
	}
}

func WithSink(sink events.EventSink) ManagerOption {
	return func(m *Manager) {
		m.sink = sink
	}
}

// WithSnapshot seeds the manager with previously persisted state.
func WithSnapshot(snapshot Snapshot) ManagerOption {
	return func(m *Manager) {
		m.load(snapshot)
	}
}

func NewManager(options ...ManagerOption) *Manager {
	ret := &Manager{
		busy: map[string]bool{},
		sink: events.NewNullSink(),
	}
	for _, option := range options {
		option(ret)
	}
	if len(ret.sessions) == 0 {
		ret.load(DefaultSnapshot())
	}
	return ret
}

// Load replaces the whole collection, e.g. after reading persisted state.
func (m *Manager) Load(snapshot Snapshot) {
	m.mu.Lock()
	m.load(snapshot)
	activeIndex := m.activeIndexLocked()
	count := len(m.sessions)
	activeID := m.activeID
	m.mu.Unlock()

	m.publish(events.NewSessionEvent(events.EventTypeSessionsLoaded,
		events.NewEventMetadata(activeID), activeIndex, "", activeIndex, count))
}

func (m *Manager) load(snapshot Snapshot) {
	m.sessions = make([]*Session, 0, len(snapshot.Sessions))
	for i := range snapshot.Sessions {
		s := clone.Clone(&snapshot.Sessions[i]).(*Session)
		if s.ID == "" {
			s.ID = uuid.NewString()
		}
		if s.Messages == nil {
			s.Messages = []Message{}
		}
		m.sessions = append(m.sessions, s)
	}
	if len(m.sessions) == 0 {
		m.sessions = []*Session{NewSession(DefaultSessionTitle)}
	}

	idx := snapshot.ActiveIndex
	if idx < 0 {
		idx = 0
	}
	if idx >= len(m.sessions) {
		idx = len(m.sessions) - 1
	}
	m.activeID = m.sessions[idx].ID
	m.busy = map[string]bool{}
}

// CreateSession appends a session titled "Chat N" and makes it active.
// It returns the index of the new session.
func (m *Manager) CreateSession(ctx context.Context) int {
	m.mu.Lock()
	s := NewSession(fmt.Sprintf("Chat %d", len(m.sessions)+1))
	m.sessions = append(m.sessions, s)
	m.activeID = s.ID
	index := len(m.sessions) - 1
	count := len(m.sessions)
	m.mu.Unlock()

	log.Debug().Str("session_id", s.ID).Int("index", index).Msg("created session")
	m.persist(ctx)
	m.publish(events.NewSessionEvent(events.EventTypeSessionCreated,
		events.NewEventMetadata(s.ID), index, s.Title, index, count))

	return index
}

// SelectSession makes the session at index active. Out of range indices are
// ignored.
func (m *Manager) SelectSession(ctx context.Context, index int) bool {
	m.mu.Lock()
	if index < 0 || index >= len(m.sessions) {
		m.mu.Unlock()
		return false
	}
	s := m.sessions[index]
	m.activeID = s.ID
	title := s.DisplayTitle(index)
	count := len(m.sessions)
	m.mu.Unlock()

	m.persist(ctx)
	m.publish(events.NewSessionEvent(events.EventTypeSessionSelected,
		events.NewEventMetadata(s.ID), index, title, index, count))

	return true
}

// RenameSession sets the title of the session at index to the trimmed title.
// Empty titles and titles equal to the current one are rejected without any
// mutation or save.
func (m *Manager) RenameSession(ctx context.Context, index int, title string) bool {
	title = strings.TrimSpace(title)

	m.mu.Lock()
	if index < 0 || index >= len(m.sessions) {
		m.mu.Unlock()
		return false
	}
	s := m.sessions[index]
	if title == "" || title == s.Title {
		m.mu.Unlock()
		return false
	}
	s.Title = title
	activeIndex := m.activeIndexLocked()
	count := len(m.sessions)
	m.mu.Unlock()

	m.persist(ctx)
	m.publish(events.NewSessionEvent(events.EventTypeSessionRenamed,
		events.NewEventMetadata(s.ID), index, title, activeIndex, count))

	return true
}

// DeleteSession removes the session at index and keeps the active pointer on
// a valid, intended session:
//
//   - an emptied collection is replaced by one default session;
//   - deleting the active session activates the one before it (or the first);
//   - deleting any other session keeps the same logical session active.
func (m *Manager) DeleteSession(ctx context.Context, index int) bool {
	m.mu.Lock()
	if index < 0 || index >= len(m.sessions) {
		m.mu.Unlock()
		return false
	}
	deleted := m.sessions[index]
	wasActive := deleted.ID == m.activeID

	m.sessions = append(m.sessions[:index], m.sessions[index+1:]...)
	delete(m.busy, deleted.ID)

	switch {
	case len(m.sessions) == 0:
		s := NewSession(DefaultSessionTitle)
		m.sessions = []*Session{s}
		m.activeID = s.ID
	case wasActive:
		next := index - 1
		if next < 0 {
			next = 0
		}
		m.activeID = m.sessions[next].ID
	}
	// a session before or after the active one: activeID still names the
	// same session, its index shifts by itself

	activeIndex := m.activeIndexLocked()
	count := len(m.sessions)
	m.mu.Unlock()

	log.Debug().Str("session_id", deleted.ID).Int("index", index).Int("active_index", activeIndex).Msg("deleted session")
	m.persist(ctx)
	m.publish(events.NewSessionEvent(events.EventTypeSessionDeleted,
		events.NewEventMetadata(deleted.ID), index, deleted.Title, activeIndex, count))

	return true
}

// EnsureActive returns the id of the active session, creating a new session
// if the active pointer does not denote one.
func (m *Manager) EnsureActive(ctx context.Context) string {
	m.mu.Lock()
	if m.indexOfLocked(m.activeID) >= 0 {
		id := m.activeID
		m.mu.Unlock()
		return id
	}
	m.mu.Unlock()

	m.CreateSession(ctx)
	return m.ActiveID()
}

// AppendMessage appends msg to the session with the given id and persists.
func (m *Manager) AppendMessage(ctx context.Context, sessionID string, msg Message) error {
	if err := m.appendMessage(sessionID, msg); err != nil {
		return err
	}
	m.persist(ctx)
	return nil
}

// AppendTransient appends a placeholder message. Transient messages are not
// part of persisted snapshots, so no save is issued.
func (m *Manager) AppendTransient(sessionID string, msg Message) error {
	msg.Transient = true
	return m.appendMessage(sessionID, msg)
}

func (m *Manager) appendMessage(sessionID string, msg Message) error {
	if msg.ID == "" {
		msg.ID = uuid.NewString()
	}

	m.mu.Lock()
	idx := m.indexOfLocked(sessionID)
	if idx < 0 {
		m.mu.Unlock()
		return errors.Wrapf(ErrSessionNotFound, "append to %s", sessionID)
	}
	s := m.sessions[idx]
	s.Messages = append(s.Messages, msg)
	active := sessionID == m.activeID
	m.mu.Unlock()

	ev := events.NewMessageEvent(events.EventTypeMessageAppended,
		events.NewEventMetadata(sessionID), msg.ID, string(msg.Role), msg.Text)
	ev.FileInfo = msg.FileInfo
	ev.HasImage = msg.ImageDataURI != ""
	ev.Transient = msg.Transient
	ev.Active = active
	m.publish(ev)

	return nil
}

// RemoveMessage removes the message with messageID from a session. It is
// only used for transient placeholders; the transcript is append-only
// otherwise.
func (m *Manager) RemoveMessage(sessionID string, messageID string) error {
	m.mu.Lock()
	idx := m.indexOfLocked(sessionID)
	if idx < 0 {
		m.mu.Unlock()
		return errors.Wrapf(ErrSessionNotFound, "remove from %s", sessionID)
	}
	s := m.sessions[idx]
	mi := s.indexOfMessage(messageID)
	if mi < 0 {
		m.mu.Unlock()
		return errors.Wrapf(ErrMessageNotFound, "remove %s", messageID)
	}
	msg := s.Messages[mi]
	s.Messages = append(s.Messages[:mi], s.Messages[mi+1:]...)
	active := sessionID == m.activeID
	m.mu.Unlock()

	ev := events.NewMessageEvent(events.EventTypeMessageRemoved,
		events.NewEventMetadata(sessionID), msg.ID, string(msg.Role), msg.Text)
	ev.Transient = msg.Transient
	ev.Active = active
	m.publish(ev)

	return nil
}

// TryAcquire marks the session as busy. It returns false if a send is
// already in flight for it or the session does not exist.
func (m *Manager) TryAcquire(sessionID string) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.indexOfLocked(sessionID) < 0 || m.busy[sessionID] {
		return false
	}
	m.busy[sessionID] = true
	return true
}

func (m *Manager) Release(sessionID string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.busy, sessionID)
}

func (m *Manager) IsBusy(sessionID string) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.busy[sessionID]
}

// Active returns a copy of the active session and its index.
func (m *Manager) Active() (int, *Session) {
	m.mu.Lock()
	defer m.mu.Unlock()
	idx := m.activeIndexLocked()
	if idx < 0 {
		return -1, nil
	}
	return idx, clone.Clone(m.sessions[idx]).(*Session)
}

func (m *Manager) ActiveID() string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.activeID
}

func (m *Manager) ActiveIndex() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.activeIndexLocked()
}

// Session returns a copy of the session with the given id.
func (m *Manager) Session(sessionID string) (*Session, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	idx := m.indexOfLocked(sessionID)
	if idx < 0 {
		return nil, false
	}
	return clone.Clone(m.sessions[idx]).(*Session), true
}

// SessionAt returns a copy of the session at index.
func (m *Manager) SessionAt(index int) (*Session, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if index < 0 || index >= len(m.sessions) {
		return nil, false
	}
	return clone.Clone(m.sessions[index]).(*Session), true
}

// IndexOf maps a stable session id to its current display position.
func (m *Manager) IndexOf(sessionID string) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.indexOfLocked(sessionID)
}

func (m *Manager) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.sessions)
}

func (m *Manager) List() []SessionSummary {
	m.mu.Lock()
	defer m.mu.Unlock()
	ret := make([]SessionSummary, 0, len(m.sessions))
	for i, s := range m.sessions {
		ret = append(ret, SessionSummary{
			Index:        i,
			ID:           s.ID,
			Title:        s.DisplayTitle(i),
			MessageCount: len(s.Messages),
			Active:       s.ID == m.activeID,
			Busy:         m.busy[s.ID],
		})
	}
	return ret
}

// Snapshot returns a deep copy of the persistable state. Transient messages
// are left out.
func (m *Manager) Snapshot() Snapshot {
	m.mu.Lock()
	defer m.mu.Unlock()

	ret := Snapshot{
		Sessions:    make([]Session, 0, len(m.sessions)),
		ActiveIndex: m.activeIndexLocked(),
	}
	for _, s := range m.sessions {
		c := clone.Clone(s).(*Session)
		msgs := make([]Message, 0, len(c.Messages))
		for _, msg := range c.Messages {
			if !msg.Transient {
				msgs = append(msgs, msg)
			}
		}
		c.Messages = msgs
		ret.Sessions = append(ret.Sessions, *c)
	}
	return ret
}

// Save persists the current state. Mutating methods call it themselves.
func (m *Manager) Save(ctx context.Context) error {
	if m.saver == nil {
		return nil
	}
	m.saveMu.Lock()
	defer m.saveMu.Unlock()
	return m.saver.Save(ctx, m.Snapshot())
}

// persist saves and swallows failures: persistence errors are logged, they
// never undo or fail an in-memory mutation.
func (m *Manager) persist(ctx context.Context) {
	if err := m.Save(ctx); err != nil {
		log.Error().Err(err).Msg("could not persist sessions")
	}
}

// Notify publishes a transient notification on the manager's sink.
func (m *Manager) Notify(sessionID string, level events.NotificationLevel, text string) {
	m.publish(events.NewNotificationEvent(events.NewEventMetadata(sessionID), level, text))
}

// Publish forwards an event to the manager's sink, for collaborators that
// share the manager's observers.
func (m *Manager) Publish(e events.Event) {
	m.publish(e)
}

func (m *Manager) publish(e events.Event) {
	events.PublishBlind(m.sink, e)
}

func (m *Manager) indexOfLocked(sessionID string) int {
	if sessionID == "" {
		return -1
	}
	for i, s := range m.sessions {
		if s.ID == sessionID {
			return i
		}
	}
	return -1
}

func (m *Manager) activeIndexLocked() int {
	return m.indexOfLocked(m.activeID)
}
