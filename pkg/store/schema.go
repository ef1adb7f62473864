package store

import (
	_ "embed"
	"strings"

	"github.com/pkg/errors"
	"github.com/xeipuuv/gojsonschema"
)

//go:embed schema/sessions.schema.json
var sessionsSchemaJSON string

var sessionsSchema = gojsonschema.NewStringLoader(sessionsSchemaJSON)

// ValidateSessions checks that data is structurally a session collection.
// Older clients wrote null for absent optional fields, which is accepted.
func ValidateSessions(data []byte) error {
	result, err := gojsonschema.Validate(sessionsSchema, gojsonschema.NewBytesLoader(data))
	if err != nil {
		return errors.Wrap(err, "could not validate sessions")
	}
	if !result.Valid() {
		msgs := []string{}
		for _, e := range result.Errors() {
			msgs = append(msgs, e.String())
		}
		return errors.Errorf("invalid sessions: %s", strings.Join(msgs, "; "))
	}
	return nil
}
