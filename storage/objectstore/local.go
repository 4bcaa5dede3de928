// Package objectstore holds core.ObjectStore implementations: a local
// directory for development and Google Cloud Storage for production.
package objectstore

import (
	"context"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/pkg/errors"

	"github.com/trezcool/homeroom/core"
)

var ErrInvalidKey = errors.New("invalid object key")

type Local struct {
	dir     string
	baseURL string
}

var _ core.ObjectStore = (*Local)(nil)

func NewLocal(dir, baseURL string) (*Local, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, errors.Wrap(err, "creating storage dir")
	}
	return &Local{dir: dir, baseURL: strings.TrimRight(baseURL, "/")}, nil
}

func (s *Local) path(key string) (string, error) {
	clean := filepath.Clean("/" + key)
	if key == "" || clean == "/" || clean != "/"+key {
		return "", ErrInvalidKey
	}
	return filepath.Join(s.dir, filepath.FromSlash(clean)), nil
}

// Put writes to a temp file first so readers never see partial objects.
func (s *Local) Put(_ context.Context, key string, r io.Reader, _ string) error {
	p, err := s.path(key)
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(p), 0o755); err != nil {
		return errors.Wrap(err, "creating object dir")
	}
	f, err := os.CreateTemp(filepath.Dir(p), ".upload-*")
	if err != nil {
		return errors.Wrap(err, "creating temp file")
	}
	defer os.Remove(f.Name())

	if _, err := io.Copy(f, r); err != nil {
		_ = f.Close()
		return errors.Wrap(err, "writing object")
	}
	if err := f.Close(); err != nil {
		return errors.Wrap(err, "closing object")
	}
	return errors.Wrap(os.Rename(f.Name(), p), "moving object")
}

func (s *Local) Get(_ context.Context, key string) (io.ReadCloser, error) {
	p, err := s.path(key)
	if err != nil {
		return nil, err
	}
	f, err := os.Open(p)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, core.ErrObjectNotFound
		}
		return nil, errors.Wrap(err, "opening object")
	}
	return f, nil
}

func (s *Local) Delete(_ context.Context, key string) error {
	p, err := s.path(key)
	if err != nil {
		return err
	}
	err = os.Remove(p)
	if os.IsNotExist(err) {
		return core.ErrObjectNotFound
	}
	return errors.Wrap(err, "removing object")
}

func (s *Local) URL(key string) string {
	return s.baseURL + "/" + key
}
