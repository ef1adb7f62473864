package settings

import (
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/pkg/errors"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"

	"github.com/go-go-golems/parlante/pkg/audio"
	"github.com/go-go-golems/parlante/pkg/backend"
	"github.com/go-go-golems/parlante/pkg/speech"
)

const (
	TranscriberBackend = "backend"
	TranscriberOpenAI  = "openai"
)

// Settings is the runtime configuration, merged from flags, PARLANTE_*
// environment variables and the config file.
type Settings struct {
	APIOrigin string        `mapstructure:"api-origin"`
	Timeout   time.Duration `mapstructure:"timeout"`

	Store     string `mapstructure:"store"`
	StorePath string `mapstructure:"store-path"`

	VoiceGender string `mapstructure:"voice-gender"`
	VoiceSpeed  string `mapstructure:"voice-speed"`
	VoicePitch  string `mapstructure:"voice-pitch"`
	VoiceLang   string `mapstructure:"voice-lang"`
	NoVoice     bool   `mapstructure:"no-voice"`
	NoAutoplay  bool   `mapstructure:"no-autoplay"`

	RecordCommand string `mapstructure:"record-command"`
	PlayCommand   string `mapstructure:"play-command"`
	SpeakCommand  string `mapstructure:"speak-command"`

	Transcriber  string `mapstructure:"transcriber"`
	OpenAIAPIKey string `mapstructure:"openai-api-key"`
	WhisperModel string `mapstructure:"whisper-model"`
}

// AddFlags registers the settings as flags. They are meant to be added as
// persistent flags of the root command and bound to viper.
func AddFlags(flags *pflag.FlagSet) {
	flags.String("api-origin", backend.DefaultOrigin, "Origin of the assistant backend")
	flags.Duration("timeout", backend.DefaultTimeout, "Timeout of a single backend request")

	flags.String("store", "file", "Session store backend (memory, file, sqlite)")
	flags.String("store-path", "", "Session store location (default in the user config dir)")

	flags.String("voice-gender", speech.DefaultGender, "Synthesis voice gender")
	flags.String("voice-speed", speech.DefaultSpeed, "Synthesis voice speed")
	flags.String("voice-pitch", speech.DefaultPitch, "Synthesis voice pitch")
	flags.String("voice-lang", speech.DefaultLang, "Synthesis voice language")
	flags.Bool("no-voice", false, "Use the local speaker instead of backend synthesis")
	flags.Bool("no-autoplay", false, "Do not read replies aloud automatically")

	flags.String("record-command", audio.DefaultRecordCommand, "Command recording WAV audio to stdout")
	flags.String("play-command", speech.DefaultPlayCommand, "Command playing an audio URL, {} is replaced by the URL")
	flags.String("speak-command", speech.DefaultSpeakCommand, "Command speaking text locally, {} is replaced by the text")

	flags.String("transcriber", TranscriberBackend, "Speech-to-text provider (backend, openai)")
	flags.String("openai-api-key", "", "OpenAI API key, used by the openai transcriber")
	flags.String("whisper-model", "whisper-1", "Whisper model used by the openai transcriber")
}

// FromViper decodes and validates the settings from the global viper
// instance.
func FromViper() (*Settings, error) {
	s := &Settings{}
	if err := viper.Unmarshal(s); err != nil {
		return nil, errors.Wrap(err, "could not decode settings")
	}
	if err := s.Validate(); err != nil {
		return nil, err
	}
	return s, nil
}

func (s *Settings) Validate() error {
	switch s.Store {
	case "memory", "file", "sqlite":
	case "":
		s.Store = "file"
	default:
		return errors.Errorf("unknown store %q", s.Store)
	}

	switch s.Transcriber {
	case TranscriberBackend, TranscriberOpenAI:
	case "":
		s.Transcriber = TranscriberBackend
	default:
		return errors.Errorf("unknown transcriber %q", s.Transcriber)
	}
	if s.Transcriber == TranscriberOpenAI && s.OpenAIAPIKey == "" {
		return errors.New("the openai transcriber needs --openai-api-key")
	}

	if s.APIOrigin == "" {
		s.APIOrigin = backend.DefaultOrigin
	}
	if !strings.HasPrefix(s.APIOrigin, "http://") && !strings.HasPrefix(s.APIOrigin, "https://") {
		return errors.Errorf("api origin %q must be an http(s) URL", s.APIOrigin)
	}
	if s.Timeout <= 0 {
		s.Timeout = backend.DefaultTimeout
	}

	return nil
}

// Voice returns the synthesis voice, or nil when the local speaker is
// selected.
func (s *Settings) Voice() *speech.Voice {
	if s.NoVoice {
		return nil
	}
	v := speech.Voice{
		Gender: s.VoiceGender,
		Speed:  s.VoiceSpeed,
		Pitch:  s.VoicePitch,
		Lang:   s.VoiceLang,
	}.WithDefaults()
	return &v
}

// ResolvedStorePath returns the store location, defaulting to a file in
// the user config directory.
func (s *Settings) ResolvedStorePath() (string, error) {
	if s.StorePath != "" || s.Store == "memory" {
		return s.StorePath, nil
	}
	dir, err := os.UserConfigDir()
	if err != nil {
		return "", errors.Wrap(err, "could not find the user config directory")
	}
	name := "sessions.json"
	if s.Store == "sqlite" {
		name = "sessions.db"
	}
	return filepath.Join(dir, "parlante", name), nil
}
