package events

import (
	"github.com/rs/zerolog/log"
)

// EventSink represents a destination for state-change events.
// Implementations can publish events to watermill, tests, or nothing at all.
type EventSink interface {
	// PublishEvent publishes an event to the sink.
	// Returns an error if the event could not be published.
	PublishEvent(event Event) error
}

// NullSink is a no-op EventSink implementation that discards all events.
type NullSink struct{}

func NewNullSink() *NullSink {
	return &NullSink{}
}

func (n *NullSink) PublishEvent(event Event) error {
	return nil
}

var _ EventSink = (*NullSink)(nil)

// MultiSink fans an event out to several sinks. Errors of individual sinks
// are logged and the first one is returned after all sinks were tried.
type MultiSink struct {
	sinks []EventSink
}

func NewMultiSink(sinks ...EventSink) *MultiSink {
	return &MultiSink{sinks: sinks}
}

func (m *MultiSink) PublishEvent(event Event) error {
	var firstErr error
	for _, s := range m.sinks {
		if err := s.PublishEvent(event); err != nil {
			log.Warn().Err(err).Str("event_type", string(event.Type())).Msg("sink failed to publish event")
			if firstErr == nil {
				firstErr = err
			}
		}
	}
	return firstErr
}

var _ EventSink = (*MultiSink)(nil)

// PublishBlind publishes to sink and only logs failures. Publishing is
// best-effort everywhere in the state layer: observers never block or fail
// a state transition.
func PublishBlind(sink EventSink, event Event) {
	if sink == nil {
		return
	}
	if err := sink.PublishEvent(event); err != nil {
		log.Warn().Err(err).Str("event_type", string(event.Type())).Msg("failed to publish event")
	}
}
