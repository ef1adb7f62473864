package conversation

import (
	"encoding/base64"
	"fmt"
	"mime"
	"net/http"
	"os"
	"path/filepath"
	"strings"

	"github.com/pkg/errors"
)

// MaxAttachmentSize bounds what LoadAttachment reads into memory.
const MaxAttachmentSize = 20 * 1024 * 1024

// Attachment is the pending file selected for the next send, together with
// its decoded data URI. It is never persisted.
type Attachment struct {
	Name     string
	MimeType string
	Data     []byte
	// DataURI is "data:<mime>;base64,<payload>", empty if decoding failed.
	DataURI string
}

func NewAttachment(name string, mimeType string, data []byte) *Attachment {
	if mimeType == "" {
		mimeType = detectMimeType(name, data)
	}
	a := &Attachment{
		Name:     name,
		MimeType: mimeType,
		Data:     data,
	}
	if len(data) > 0 {
		a.DataURI = fmt.Sprintf("data:%s;base64,%s", mimeType, base64.StdEncoding.EncodeToString(data))
	}
	return a
}

func LoadAttachment(path string) (*Attachment, error) {
	fi, err := os.Stat(path)
	if err != nil {
		return nil, errors.Wrap(err, "could not stat attachment")
	}
	if fi.IsDir() {
		return nil, errors.Errorf("attachment %s is a directory", path)
	}
	if fi.Size() > MaxAttachmentSize {
		return nil, errors.Errorf("attachment %s exceeds %d bytes", path, MaxAttachmentSize)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.Wrap(err, "could not read attachment")
	}

	return NewAttachment(filepath.Base(path), "", data), nil
}

// Decoded reports whether the attachment content is available as a data URI.
func (a *Attachment) Decoded() bool {
	return a != nil && a.DataURI != ""
}

func (a *Attachment) IsImage() bool {
	return a != nil && strings.HasPrefix(a.MimeType, "image/")
}

// Base64Payload returns the data URI without its "data:<mime>;base64," prefix.
func (a *Attachment) Base64Payload() string {
	if a == nil {
		return ""
	}
	_, payload, found := strings.Cut(a.DataURI, ",")
	if !found {
		return ""
	}
	return payload
}

func detectMimeType(name string, data []byte) string {
	if t := mime.TypeByExtension(strings.ToLower(filepath.Ext(name))); t != "" {
		mediaType, _, err := mime.ParseMediaType(t)
		if err == nil {
			return mediaType
		}
		return t
	}
	if len(data) > 0 {
		mediaType, _, err := mime.ParseMediaType(http.DetectContentType(data))
		if err == nil {
			return mediaType
		}
	}
	return "application/octet-stream"
}
