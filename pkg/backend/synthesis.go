package backend

import (
	"context"
)

type SynthesisRequest struct {
	Text   string
	Gender string
	Speed  string
	Pitch  string
	Lang   string
}

type SynthesisResponse struct {
	AudioURL string `json:"audio_url"`
	FileName string `json:"file_name"`
	Error    string `json:"error"`
}

// Synthesize asks the backend to render text to audio. The returned
// AudioURL may be relative to the origin, see ResolveURL.
func (c *Client) Synthesize(ctx context.Context, req SynthesisRequest) (*SynthesisResponse, error) {
	body, contentType, err := encodeMultipart(
		field("text", req.Text),
		field("gender", req.Gender),
		field("speed", req.Speed),
		field("pitch", req.Pitch),
		field("lang", req.Lang),
	)
	if err != nil {
		return nil, err
	}

	ret := &SynthesisResponse{}
	if err := c.post(ctx, CapabilitySynthesis, SynthesisPath, contentType, body, ret); err != nil {
		return nil, err
	}
	if ret.Error != "" {
		return nil, &ResponseError{Capability: CapabilitySynthesis, Message: ret.Error}
	}
	return ret, nil
}
