package conversation

import (
	"io"
	"time"

	"github.com/pkg/errors"
	"gopkg.in/yaml.v3"
)

// Export is the YAML document written by transcript exports. Inline image
// data is left out, only the attachment descriptor is kept.
type Export struct {
	ExportedAt  time.Time       `yaml:"exported_at"`
	ActiveIndex int             `yaml:"active_index"`
	Sessions    []ExportSession `yaml:"sessions"`
}

type ExportSession struct {
	Title    string          `yaml:"title"`
	Messages []ExportMessage `yaml:"messages"`
}

type ExportMessage struct {
	Role     Role      `yaml:"role"`
	Time     time.Time `yaml:"time"`
	Text     string    `yaml:"text"`
	FileInfo string    `yaml:"file,omitempty"`
	HasImage bool      `yaml:"image,omitempty"`
}

func NewExport(snapshot Snapshot, now time.Time) *Export {
	ret := &Export{
		ExportedAt:  now.UTC(),
		ActiveIndex: snapshot.ActiveIndex,
		Sessions:    make([]ExportSession, 0, len(snapshot.Sessions)),
	}
	for i := range snapshot.Sessions {
		s := &snapshot.Sessions[i]
		es := ExportSession{
			Title:    s.DisplayTitle(i),
			Messages: make([]ExportMessage, 0, len(s.Messages)),
		}
		for _, m := range s.Messages {
			if m.Transient {
				continue
			}
			es.Messages = append(es.Messages, ExportMessage{
				Role:     m.Role,
				Time:     m.Time().UTC(),
				Text:     m.Text,
				FileInfo: m.FileInfo,
				HasImage: m.ImageDataURI != "",
			})
		}
		ret.Sessions = append(ret.Sessions, es)
	}
	return ret
}

// WriteYAML writes the export to w.
func (e *Export) WriteYAML(w io.Writer) error {
	enc := yaml.NewEncoder(w)
	enc.SetIndent(2)
	if err := enc.Encode(e); err != nil {
		return errors.Wrap(err, "could not encode export")
	}
	return enc.Close()
}
