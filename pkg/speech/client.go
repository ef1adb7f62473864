package speech

import (
	"context"

	"github.com/pkg/errors"
	"github.com/rs/zerolog/log"

	"github.com/go-go-golems/parlante/pkg/backend"
	"github.com/go-go-golems/parlante/pkg/conversation"
	"github.com/go-go-golems/parlante/pkg/events"
)

const (
	serverErrorNotice     = "TTS server error"
	generationErrorNotice = "TTS generation error"
)

var ErrMessageNotSpeakable = errors.New("only bot messages can be spoken")

// Synthesizer is the synthesis side of the backend client.
type Synthesizer interface {
	Synthesize(ctx context.Context, req backend.SynthesisRequest) (*backend.SynthesisResponse, error)
	ResolveURL(path string) string
}

// Host gives the client access to transcripts and observers.
type Host interface {
	Session(sessionID string) (*conversation.Session, bool)
	Notify(sessionID string, level events.NotificationLevel, text string)
	Publish(e events.Event)
}

// Client reads text aloud, through backend synthesis when a voice is
// configured and through the local speaker otherwise.
type Client struct {
	synth     Synthesizer
	host      Host
	voice     *Voice
	player    Player
	local     LocalSpeaker
	newPlayer func() Player
}

type Option func(*Client)

// WithVoice sets the synthesis voice. A nil voice selects the local
// speaker.
func WithVoice(voice *Voice) Option {
	return func(c *Client) {
		c.voice = voice
	}
}

func WithPlayer(player Player) Option {
	return func(c *Client) {
		c.player = player
	}
}

func WithLocalSpeaker(local LocalSpeaker) Option {
	return func(c *Client) {
		c.local = local
	}
}

// WithPlayerFactory sets how a one-off player is made when no player is
// configured.
func WithPlayerFactory(f func() Player) Option {
	return func(c *Client) {
		c.newPlayer = f
	}
}

func NewClient(synth Synthesizer, host Host, options ...Option) *Client {
	c := &Client{
		synth: synth,
		host:  host,
		voice: DefaultVoice(),
		local: NewCommandSpeaker(""),
		newPlayer: func() Player {
			return NewCommandPlayer("")
		},
	}
	for _, option := range options {
		option(c)
	}
	return c
}

// Speak reads text aloud. Synthesis failures are reported as notifications
// and returned.
func (c *Client) Speak(ctx context.Context, text string) error {
	return c.speak(ctx, "", text)
}

// SpeakMessage replays the bot message at index in a session.
func (c *Client) SpeakMessage(ctx context.Context, sessionID string, index int) error {
	s, ok := c.host.Session(sessionID)
	if !ok {
		return errors.Wrapf(conversation.ErrSessionNotFound, "speak in %s", sessionID)
	}
	if index < 0 || index >= len(s.Messages) {
		return errors.Wrapf(conversation.ErrMessageNotFound, "no message %d", index)
	}
	msg := s.Messages[index]
	if msg.Role != conversation.RoleBot || msg.Transient {
		return ErrMessageNotSpeakable
	}
	return c.speak(ctx, sessionID, msg.Text)
}

func (c *Client) speak(ctx context.Context, sessionID string, text string) error {
	if c.voice == nil {
		if err := c.local.Say(ctx, text); err != nil {
			return errors.Wrap(err, "could not speak locally")
		}
		c.publish(events.NewPlaybackEvent(events.NewEventMetadata(sessionID), "", true))
		return nil
	}

	v := c.voice.WithDefaults()
	resp, err := c.synth.Synthesize(ctx, backend.SynthesisRequest{
		Text:   text,
		Gender: v.Gender,
		Speed:  v.Speed,
		Pitch:  v.Pitch,
		Lang:   v.Lang,
	})
	if err != nil {
		switch {
		case backend.IsHTTPError(err):
			log.Error().Err(err).Msg("TTS error")
			c.notify(sessionID, serverErrorNotice)
		case backend.IsResponseError(err):
			log.Error().Err(err).Msg("TTS returned error")
			c.notify(sessionID, generationErrorNotice)
		default:
			log.Error().Err(err).Msg("TTS client error")
		}
		return err
	}

	if resp.AudioURL == "" {
		log.Warn().Msg("TTS returned no audio URL")
		return nil
	}

	url := c.synth.ResolveURL(resp.AudioURL)
	player := c.player
	if player == nil {
		player = c.newPlayer()
	}

	c.publish(events.NewPlaybackEvent(events.NewEventMetadata(sessionID), url, false))
	if err := player.Play(ctx, url); err != nil {
		return errors.Wrap(err, "could not play synthesized speech")
	}
	return nil
}

func (c *Client) notify(sessionID string, text string) {
	if c.host != nil {
		c.host.Notify(sessionID, events.NotificationError, text)
	}
}

func (c *Client) publish(e events.Event) {
	if c.host != nil {
		c.host.Publish(e)
	}
}
