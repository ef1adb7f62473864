package store

import (
	"context"
	"encoding/json"
	"strconv"
	"strings"

	"github.com/pkg/errors"
	"github.com/rs/zerolog/log"

	"github.com/go-go-golems/parlante/pkg/conversation"
)

const (
	SessionsKey    = "ai_chats"
	ActiveIndexKey = "ai_current_index"
)

// SessionStore mirrors the session collection and the active index to a KV
// backend. It never mutates conversation state itself.
type SessionStore struct {
	kv KV
}

func NewSessionStore(kv KV) *SessionStore {
	return &SessionStore{kv: kv}
}

// Load reads the persisted state. Missing or structurally invalid data
// resets to the default single session; an out of range active index is
// clamped. Load never fails: read errors are logged and treated as missing
// data.
func (s *SessionStore) Load(ctx context.Context) conversation.Snapshot {
	raw, ok, err := s.kv.Get(ctx, SessionsKey)
	if err != nil {
		log.Warn().Err(err).Msg("could not read sessions, starting fresh")
		return conversation.DefaultSnapshot()
	}
	if !ok {
		return conversation.DefaultSnapshot()
	}

	sessions, err := decodeSessions([]byte(raw))
	if err != nil {
		log.Warn().Err(err).Msg("persisted sessions are corrupt, starting fresh")
		return conversation.DefaultSnapshot()
	}
	if len(sessions) == 0 {
		return conversation.DefaultSnapshot()
	}

	idx := 0
	rawIdx, ok, err := s.kv.Get(ctx, ActiveIndexKey)
	if err != nil {
		log.Warn().Err(err).Msg("could not read active index")
	} else if ok {
		idx = parseIndex(rawIdx)
	}
	if idx >= len(sessions) {
		idx = len(sessions) - 1
	}

	for i := range sessions {
		if sessions[i].Messages == nil {
			sessions[i].Messages = []conversation.Message{}
		}
	}

	return conversation.Snapshot{
		Sessions:    sessions,
		ActiveIndex: idx,
	}
}

// Save writes the session collection and the active index in one write.
func (s *SessionStore) Save(ctx context.Context, snapshot conversation.Snapshot) error {
	sessions := snapshot.Sessions
	if sessions == nil {
		sessions = []conversation.Session{}
	}
	b, err := json.Marshal(sessions)
	if err != nil {
		return errors.Wrap(err, "could not encode sessions")
	}

	err = s.kv.SetMany(ctx, map[string]string{
		SessionsKey:    string(b),
		ActiveIndexKey: strconv.Itoa(snapshot.ActiveIndex),
	})
	if err != nil {
		return errors.Wrap(err, "could not save sessions")
	}

	log.Trace().Int("sessions", len(sessions)).Int("active_index", snapshot.ActiveIndex).Msg("saved sessions")
	return nil
}

var _ conversation.Saver = (*SessionStore)(nil)

func decodeSessions(data []byte) ([]conversation.Session, error) {
	if err := ValidateSessions(data); err != nil {
		return nil, err
	}
	var sessions []conversation.Session
	if err := json.Unmarshal(data, &sessions); err != nil {
		return nil, errors.Wrap(err, "could not decode sessions")
	}
	return sessions, nil
}

// parseIndex accepts a leading integer the way the original client's
// parseInt did ("2", "2.0", "3abc"), and maps anything else or a negative
// value to 0.
func parseIndex(raw string) int {
	raw = strings.TrimSpace(raw)
	end := 0
	for end < len(raw) && (raw[end] == '-' && end == 0 || raw[end] >= '0' && raw[end] <= '9') {
		end++
	}
	idx, err := strconv.Atoi(raw[:end])
	if err != nil || idx < 0 {
		return 0
	}
	return idx
}
