package settings

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/spf13/pflag"
	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFromViperDefaults(t *testing.T) {
	viper.Reset()
	t.Cleanup(viper.Reset)

	flags := pflag.NewFlagSet("test", pflag.ContinueOnError)
	AddFlags(flags)
	require.NoError(t, viper.BindPFlags(flags))

	s, err := FromViper()
	require.NoError(t, err)

	assert.Equal(t, "http://127.0.0.1:8000", s.APIOrigin)
	assert.Equal(t, 120*time.Second, s.Timeout)
	assert.Equal(t, "file", s.Store)
	assert.Equal(t, TranscriberBackend, s.Transcriber)

	v := s.Voice()
	require.NotNil(t, v)
	assert.Equal(t, "female", v.Gender)
	assert.Equal(t, "en-US", v.Lang)
}

func TestFromViperFlagsOverride(t *testing.T) {
	viper.Reset()
	t.Cleanup(viper.Reset)

	flags := pflag.NewFlagSet("test", pflag.ContinueOnError)
	AddFlags(flags)
	require.NoError(t, flags.Parse([]string{"--timeout", "5s", "--no-voice", "--store", "sqlite"}))
	require.NoError(t, viper.BindPFlags(flags))

	s, err := FromViper()
	require.NoError(t, err)

	assert.Equal(t, 5*time.Second, s.Timeout)
	assert.Nil(t, s.Voice())
	assert.Equal(t, "sqlite", s.Store)
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name string
		s    Settings
		ok   bool
	}{
		{name: "empty is defaulted", s: Settings{}, ok: true},
		{name: "unknown store", s: Settings{Store: "redis"}, ok: false},
		{name: "unknown transcriber", s: Settings{Transcriber: "vosk"}, ok: false},
		{name: "openai without key", s: Settings{Transcriber: TranscriberOpenAI}, ok: false},
		{name: "openai with key", s: Settings{Transcriber: TranscriberOpenAI, OpenAIAPIKey: "k"}, ok: true},
		{name: "bad origin", s: Settings{APIOrigin: "localhost:8000"}, ok: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.s.Validate()
			if tt.ok {
				assert.NoError(t, err)
			} else {
				assert.Error(t, err)
			}
		})
	}
}

func TestResolvedStorePath(t *testing.T) {
	s := &Settings{Store: "sqlite", StorePath: "/tmp/x.db"}
	p, err := s.ResolvedStorePath()
	require.NoError(t, err)
	assert.Equal(t, "/tmp/x.db", p)

	t.Setenv("XDG_CONFIG_HOME", "/tmp/cfg")
	t.Setenv("HOME", "/tmp/home")
	s = &Settings{Store: "file"}
	p, err = s.ResolvedStorePath()
	require.NoError(t, err)
	assert.Equal(t, "sessions.json", filepath.Base(p))
	assert.Equal(t, "parlante", filepath.Base(filepath.Dir(p)))
}
