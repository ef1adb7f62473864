package store

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"sync"

	"github.com/pkg/errors"
	"github.com/rs/zerolog/log"
)

// FileKV keeps all keys in one JSON document. Writes go to a temporary file
// that is renamed over the document, so readers never see a partial write.
type FileKV struct {
	path string
	mu   sync.Mutex
}

func NewFileKV(path string) (*FileKV, error) {
	if path == "" {
		return nil, errors.New("file store needs a path")
	}
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return nil, errors.Wrap(err, "failed to create store directory")
	}
	return &FileKV{path: path}, nil
}

func (f *FileKV) read() (map[string]string, error) {
	data, err := os.ReadFile(f.path)
	if err != nil {
		if os.IsNotExist(err) {
			return map[string]string{}, nil
		}
		return nil, errors.Wrap(err, "failed to read store file")
	}

	values := map[string]string{}
	if err := json.Unmarshal(data, &values); err != nil {
		// an unreadable document is treated like an empty one, the session
		// store recovers to its default state from there
		log.Warn().Err(err).Str("path", f.path).Msg("store file is corrupt, ignoring it")
		return map[string]string{}, nil
	}
	return values, nil
}

func (f *FileKV) Get(_ context.Context, key string) (string, bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	values, err := f.read()
	if err != nil {
		return "", false, err
	}
	v, ok := values[key]
	return v, ok, nil
}

func (f *FileKV) SetMany(_ context.Context, values map[string]string) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	current, err := f.read()
	if err != nil {
		return err
	}
	for k, v := range values {
		current[k] = v
	}

	data, err := json.MarshalIndent(current, "", "  ")
	if err != nil {
		return errors.Wrap(err, "failed to marshal store")
	}

	tmp, err := os.CreateTemp(filepath.Dir(f.path), filepath.Base(f.path)+".*.tmp")
	if err != nil {
		return errors.Wrap(err, "failed to create temporary store file")
	}
	defer func() {
		_ = os.Remove(tmp.Name())
	}()

	if _, err := tmp.Write(data); err != nil {
		_ = tmp.Close()
		return errors.Wrap(err, "failed to write temporary store file")
	}
	if err := tmp.Close(); err != nil {
		return errors.Wrap(err, "failed to close temporary store file")
	}
	if err := os.Rename(tmp.Name(), f.path); err != nil {
		return errors.Wrap(err, "failed to replace store file")
	}

	return nil
}

func (f *FileKV) Close() error {
	return nil
}

var _ KV = (*FileKV)(nil)
