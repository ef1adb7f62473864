package backend

import (
	"bytes"
	"context"

	"github.com/pkg/errors"
	"github.com/rs/zerolog/log"
	"github.com/sashabaranov/go-openai"
)

// WhisperTranscriber transcribes clips with the OpenAI audio API instead of
// the backend's voice capability.
type WhisperTranscriber struct {
	client   *openai.Client
	model    string
	language string
}

type WhisperOption func(*whisperConfig)

type whisperConfig struct {
	baseURL  string
	model    string
	language string
}

func WithWhisperModel(model string) WhisperOption {
	return func(c *whisperConfig) {
		if model != "" {
			c.model = model
		}
	}
}

func WithWhisperBaseURL(baseURL string) WhisperOption {
	return func(c *whisperConfig) {
		c.baseURL = baseURL
	}
}

func WithWhisperLanguage(language string) WhisperOption {
	return func(c *whisperConfig) {
		c.language = language
	}
}

func NewWhisperTranscriber(apiKey string, options ...WhisperOption) *WhisperTranscriber {
	cfg := &whisperConfig{model: openai.Whisper1}
	for _, option := range options {
		option(cfg)
	}

	clientConfig := openai.DefaultConfig(apiKey)
	if cfg.baseURL != "" {
		clientConfig.BaseURL = cfg.baseURL
	}

	return &WhisperTranscriber{
		client:   openai.NewClientWithConfig(clientConfig),
		model:    cfg.model,
		language: cfg.language,
	}
}

func (w *WhisperTranscriber) Transcribe(ctx context.Context, clip *Clip) (string, error) {
	req := openai.AudioRequest{
		Model:    w.model,
		FilePath: clip.Name,
		Reader:   bytes.NewReader(clip.Data),
		Language: w.language,
		Format:   openai.AudioResponseFormatJSON,
	}

	log.Debug().Str("model", w.model).Int("bytes", len(clip.Data)).Msg("transcribing with whisper")
	resp, err := w.client.CreateTranscription(ctx, req)
	if err != nil {
		return "", errors.Wrap(err, "whisper transcription failed")
	}
	return resp.Text, nil
}
