package speech

import (
	"context"

	"github.com/pkg/errors"
	"github.com/rs/zerolog/log"

	"github.com/go-go-golems/parlante/pkg/helpers"
)

const (
	// DefaultPlayCommand plays the URL substituted for {}.
	DefaultPlayCommand = "ffplay -nodisp -autoexit -loglevel quiet {}"
	// DefaultSpeakCommand reads the text substituted for {} aloud without
	// any network access.
	DefaultSpeakCommand = "espeak {}"
	argPlaceholder      = "{}"
)

// Player plays an audio resource given by URL.
type Player interface {
	Play(ctx context.Context, url string) error
}

// LocalSpeaker speaks text with an on-device voice.
type LocalSpeaker interface {
	Say(ctx context.Context, text string) error
}

type CommandPlayer struct {
	Command string
}

func NewCommandPlayer(command string) *CommandPlayer {
	if command == "" {
		command = DefaultPlayCommand
	}
	return &CommandPlayer{Command: command}
}

func (p *CommandPlayer) Play(ctx context.Context, url string) error {
	cmd, err := helpers.ShellCommand(ctx, p.Command, argPlaceholder, url)
	if err != nil {
		return err
	}
	log.Debug().Str("url", url).Str("command", p.Command).Msg("playing audio")
	if out, err := cmd.CombinedOutput(); err != nil {
		return errors.Wrapf(err, "player failed: %s", string(out))
	}
	return nil
}

type CommandSpeaker struct {
	Command string
}

func NewCommandSpeaker(command string) *CommandSpeaker {
	if command == "" {
		command = DefaultSpeakCommand
	}
	return &CommandSpeaker{Command: command}
}

func (s *CommandSpeaker) Say(ctx context.Context, text string) error {
	cmd, err := helpers.ShellCommand(ctx, s.Command, argPlaceholder, text)
	if err != nil {
		return err
	}
	if out, err := cmd.CombinedOutput(); err != nil {
		return errors.Wrapf(err, "local speaker failed: %s", string(out))
	}
	return nil
}

var (
	_ Player       = (*CommandPlayer)(nil)
	_ LocalSpeaker = (*CommandSpeaker)(nil)
)
