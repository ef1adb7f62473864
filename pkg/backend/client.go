package backend

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/textproto"
	"strings"
	"time"

	"github.com/pkg/errors"
	"github.com/rs/zerolog/log"
)

const (
	DefaultOrigin  = "http://127.0.0.1:8000"
	DefaultTimeout = 120 * time.Second

	ChatPath      = "/chat"
	VisionPath    = "/vision"
	VoicePath     = "/voice"
	SynthesisPath = "/tts"
)

// Capability names one of the four backend endpoints. The name is used in
// error messages.
type Capability string

const (
	CapabilityChat      Capability = "Chat"
	CapabilityVision    Capability = "Vision"
	CapabilityVoice     Capability = "Voice"
	CapabilitySynthesis Capability = "TTS"
)

// Client talks to the assistant backend rooted at a single origin.
type Client struct {
	origin     string
	httpClient *http.Client
}

type ClientOption func(*Client)

func WithHTTPClient(httpClient *http.Client) ClientOption {
	return func(c *Client) {
		c.httpClient = httpClient
	}
}

func WithTimeout(timeout time.Duration) ClientOption {
	return func(c *Client) {
		c.httpClient.Timeout = timeout
	}
}

func NewClient(origin string, options ...ClientOption) *Client {
	if origin == "" {
		origin = DefaultOrigin
	}
	c := &Client{
		origin:     strings.TrimRight(origin, "/"),
		httpClient: &http.Client{Timeout: DefaultTimeout},
	}
	for _, option := range options {
		option(c)
	}
	return c
}

func (c *Client) Origin() string {
	return c.origin
}

// ResolveURL turns a path returned by the backend into an absolute URL.
// Values that already start with "http" are returned unchanged.
func (c *Client) ResolveURL(path string) string {
	if strings.HasPrefix(path, "http") {
		return path
	}
	return c.origin + path
}

// formPart is one part of a multipart request: a plain field, or a file
// when filename is set.
type formPart struct {
	name     string
	value    string
	filename string
	mimeType string
	data     []byte
}

func field(name string, value string) formPart {
	return formPart{name: name, value: value}
}

func file(name string, filename string, mimeType string, data []byte) formPart {
	return formPart{name: name, filename: filename, mimeType: mimeType, data: data}
}

// encodeMultipart writes parts in order.
func encodeMultipart(parts ...formPart) (*bytes.Buffer, string, error) {
	body := &bytes.Buffer{}
	w := multipart.NewWriter(body)

	for _, p := range parts {
		if p.filename == "" {
			if err := w.WriteField(p.name, p.value); err != nil {
				return nil, "", errors.Wrapf(err, "could not write field %s", p.name)
			}
			continue
		}

		mimeType := p.mimeType
		if mimeType == "" {
			mimeType = "application/octet-stream"
		}
		h := make(textproto.MIMEHeader)
		h.Set("Content-Disposition",
			fmt.Sprintf(`form-data; name="%s"; filename="%s"`, escapeQuotes(p.name), escapeQuotes(p.filename)))
		h.Set("Content-Type", mimeType)
		pw, err := w.CreatePart(h)
		if err != nil {
			return nil, "", errors.Wrapf(err, "could not create file part %s", p.filename)
		}
		if _, err := pw.Write(p.data); err != nil {
			return nil, "", errors.Wrapf(err, "could not write file %s", p.filename)
		}
	}

	if err := w.Close(); err != nil {
		return nil, "", errors.Wrap(err, "could not close multipart body")
	}
	return body, w.FormDataContentType(), nil
}

var quoteEscaper = strings.NewReplacer("\\", "\\\\", `"`, "\\\"")

func escapeQuotes(s string) string {
	return quoteEscaper.Replace(s)
}

// post sends body to path and decodes a 2xx JSON response into out. Non-2xx
// responses become *HTTPError carrying the response text.
func (c *Client) post(ctx context.Context, capability Capability, path string, contentType string, body io.Reader, out interface{}) error {
	url := c.origin + path
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, body)
	if err != nil {
		return errors.Wrapf(err, "could not create %s request", capability)
	}
	req.Header.Set("Content-Type", contentType)
	req.Header.Set("Accept", "application/json")

	start := time.Now()
	resp, err := c.httpClient.Do(req)
	if err != nil {
		log.Debug().Err(err).Str("url", url).Msg("backend request failed")
		return errors.Wrapf(err, "%s request failed", capability)
	}
	defer func() {
		_ = resp.Body.Close()
	}()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return errors.Wrapf(err, "could not read %s response", capability)
	}

	log.Debug().
		Str("url", url).
		Int("status", resp.StatusCode).
		Dur("elapsed", time.Since(start)).
		Msg("backend response")

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return &HTTPError{
			Capability: capability,
			StatusCode: resp.StatusCode,
			Body:       string(respBody),
		}
	}

	if err := json.Unmarshal(respBody, out); err != nil {
		return errors.Wrapf(err, "could not decode %s response", capability)
	}
	return nil
}
