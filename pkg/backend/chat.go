package backend

import (
	"context"
	"encoding/json"

	"github.com/pkg/errors"

	"github.com/go-go-golems/parlante/pkg/conversation"
)

type ChatRequest struct {
	Message string
	// File is sent as-is in the "file" part when present.
	File    *conversation.Attachment
	History []conversation.ChatHistoryEntry
}

// ChatResponse carries both reply fields, the backend uses either.
type ChatResponse struct {
	Reply    string `json:"reply"`
	Response string `json:"response"`
}

func (c *Client) Chat(ctx context.Context, req ChatRequest) (*ChatResponse, error) {
	history := req.History
	if history == nil {
		history = []conversation.ChatHistoryEntry{}
	}
	historyJSON, err := json.Marshal(history)
	if err != nil {
		return nil, errors.Wrap(err, "could not encode chat history")
	}

	parts := []formPart{field("message", req.Message)}
	if req.File != nil {
		parts = append(parts, file("file", req.File.Name, req.File.MimeType, req.File.Data))
	}
	parts = append(parts, field("history", string(historyJSON)))

	body, contentType, err := encodeMultipart(parts...)
	if err != nil {
		return nil, err
	}

	ret := &ChatResponse{}
	if err := c.post(ctx, CapabilityChat, ChatPath, contentType, body, ret); err != nil {
		return nil, err
	}
	return ret, nil
}
