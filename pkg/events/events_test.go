package events

import (
	"context"
	"encoding/json"
	"sync"
	"testing"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewEventFromJsonDecodesTypedEvents(t *testing.T) {
	meta := NewEventMetadata("s1")
	tests := []struct {
		name  string
		event Event
		check func(t *testing.T, e Event)
	}{
		{
			name:  "session",
			event: NewSessionEvent(EventTypeSessionRenamed, meta, 1, "trip", 1, 2),
			check: func(t *testing.T, e Event) {
				s, ok := e.(*EventSession)
				require.True(t, ok)
				assert.Equal(t, "trip", s.Title)
				assert.Equal(t, 2, s.Count)
			},
		},
		{
			name:  "busy",
			event: NewBusyEvent(meta, true),
			check: func(t *testing.T, e Event) {
				b, ok := e.(*EventBusy)
				require.True(t, ok)
				assert.True(t, b.Busy)
			},
		},
		{
			name:  "notification",
			event: NewNotificationEvent(meta, NotificationError, "Server error: boom"),
			check: func(t *testing.T, e Event) {
				n, ok := e.(*EventNotification)
				require.True(t, ok)
				assert.Equal(t, NotificationError, n.Level)
				assert.Equal(t, "Server error: boom", n.Text)
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			b, err := json.Marshal(tt.event)
			require.NoError(t, err)

			e, err := NewEventFromJson(b)
			require.NoError(t, err)
			assert.Equal(t, tt.event.Type(), e.Type())
			assert.Equal(t, "s1", e.Metadata().SessionID)
			assert.Equal(t, b, e.Payload())
			tt.check(t, e)
		})
	}
}

func TestNewEventFromJsonRejectsUnknownType(t *testing.T) {
	_, err := NewEventFromJson([]byte(`{"type":"telemetry"}`))
	assert.Error(t, err)

	_, err = NewEventFromJson([]byte(`nope`))
	assert.Error(t, err)
}

type failingSink struct {
	err   error
	calls int
}

func (f *failingSink) PublishEvent(Event) error {
	f.calls++
	return f.err
}

func TestMultiSinkTriesEverySink(t *testing.T) {
	first := errors.New("first")
	a := &failingSink{err: first}
	b := &failingSink{err: errors.New("second")}
	c := &failingSink{}

	err := NewMultiSink(a, b, c).PublishEvent(NewBusyEvent(NewEventMetadata(""), false))

	assert.Equal(t, first, err)
	assert.Equal(t, 1, a.calls)
	assert.Equal(t, 1, b.calls)
	assert.Equal(t, 1, c.calls)

	PublishBlind(nil, NewBusyEvent(NewEventMetadata(""), false))
	PublishBlind(a, NewBusyEvent(NewEventMetadata(""), false))
	assert.Equal(t, 2, a.calls)
}

func TestRouterDeliversBeforePublishReturns(t *testing.T) {
	router, err := NewEventRouter()
	require.NoError(t, err)

	var mu sync.Mutex
	var received []Event
	router.AddHandler("test", func(_ context.Context, e Event) error {
		mu.Lock()
		defer mu.Unlock()
		received = append(received, e)
		return nil
	})

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() {
		done <- router.Run(ctx)
	}()
	<-router.Running()

	require.NoError(t, router.Sink().PublishEvent(NewRecordingEvent(NewEventMetadata("s1"), "recording")))

	mu.Lock()
	require.Len(t, received, 1)
	rec, ok := received[0].(*EventRecording)
	mu.Unlock()
	require.True(t, ok)
	assert.Equal(t, "recording", rec.State)

	require.NoError(t, router.Close())
	cancel()
	<-done
}
