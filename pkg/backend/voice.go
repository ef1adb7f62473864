package backend

import (
	"context"
)

const (
	ClipName     = "voice.wav"
	ClipMimeType = "audio/wav"
)

// Clip is one finished audio capture.
type Clip struct {
	Name     string
	MimeType string
	Data     []byte
}

func NewClip(data []byte) *Clip {
	return &Clip{Name: ClipName, MimeType: ClipMimeType, Data: data}
}

type TranscriptionResponse struct {
	Text  string `json:"text"`
	Error string `json:"error"`
}

// Transcribe uploads clip to the voice capability and returns the
// recognized text. An "error" field in a 2xx response is returned as
// *ResponseError.
func (c *Client) Transcribe(ctx context.Context, clip *Clip) (string, error) {
	body, contentType, err := encodeMultipart(file("file", clip.Name, clip.MimeType, clip.Data))
	if err != nil {
		return "", err
	}

	ret := &TranscriptionResponse{}
	if err := c.post(ctx, CapabilityVoice, VoicePath, contentType, body, ret); err != nil {
		return "", err
	}
	if ret.Error != "" {
		return "", &ResponseError{Capability: CapabilityVoice, Message: ret.Error}
	}
	return ret.Text, nil
}
