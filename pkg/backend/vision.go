package backend

import (
	"bytes"
	"context"
	"encoding/json"

	"github.com/pkg/errors"

	"github.com/go-go-golems/parlante/pkg/conversation"
)

type VisionRequest struct {
	TextPrompt string `json:"text_prompt"`
	// Base64Image is the bare base64 payload, without the data URI prefix.
	Base64Image string                            `json:"base64_image"`
	MimeType    string                            `json:"mime_type"`
	ChatHistory []conversation.VisionHistoryEntry `json:"chat_history"`
}

type VisionResponse struct {
	Response string `json:"response"`
	Reply    string `json:"reply"`
}

func (c *Client) Vision(ctx context.Context, req VisionRequest) (*VisionResponse, error) {
	if req.ChatHistory == nil {
		req.ChatHistory = []conversation.VisionHistoryEntry{}
	}
	b, err := json.Marshal(req)
	if err != nil {
		return nil, errors.Wrap(err, "could not encode vision request")
	}

	ret := &VisionResponse{}
	if err := c.post(ctx, CapabilityVision, VisionPath, "application/json", bytes.NewReader(b), ret); err != nil {
		return nil, err
	}
	return ret, nil
}
