package objectstore

import (
	"context"
	"fmt"
	"io"
	"strings"
	"time"

	"cloud.google.com/go/storage"
	"github.com/pkg/errors"
	"google.golang.org/api/option"

	"github.com/trezcool/homeroom/core"
)

type GCS struct {
	client        *storage.Client
	bucket        string
	publicBaseURL string
}

var _ core.ObjectStore = (*GCS)(nil)

// NewGCS connects to Cloud Storage. An empty credentialsFile uses the
// application default credentials.
func NewGCS(ctx context.Context, bucket, credentialsFile, publicBaseURL string) (*GCS, error) {
	if bucket == "" {
		return nil, errors.New("gcs: missing bucket name")
	}
	opts := []option.ClientOption{option.WithScopes(storage.ScopeReadWrite)}
	if credentialsFile != "" {
		opts = append(opts, option.WithCredentialsFile(credentialsFile))
	}
	client, err := storage.NewClient(ctx, opts...)
	if err != nil {
		return nil, errors.Wrap(err, "creating storage client")
	}
	return &GCS{client: client, bucket: bucket, publicBaseURL: strings.TrimRight(publicBaseURL, "/")}, nil
}

func (s *GCS) Put(ctx context.Context, key string, r io.Reader, contentType string) error {
	ctx, cancel := context.WithTimeout(ctx, 2*time.Minute)
	defer cancel()

	w := s.client.Bucket(s.bucket).Object(key).NewWriter(ctx)
	w.ContentType = contentType
	if _, err := io.Copy(w, r); err != nil {
		_ = w.Close()
		return errors.Wrap(err, "writing object")
	}
	return errors.Wrap(w.Close(), "closing object writer")
}

// readCloser cancels the read context once the object is closed.
type readCloser struct {
	io.ReadCloser
	cancel context.CancelFunc
}

func (r *readCloser) Close() error {
	defer r.cancel()
	return r.ReadCloser.Close()
}

func (s *GCS) Get(ctx context.Context, key string) (io.ReadCloser, error) {
	ctx, cancel := context.WithTimeout(ctx, 2*time.Minute)
	r, err := s.client.Bucket(s.bucket).Object(key).NewReader(ctx)
	if err != nil {
		cancel()
		if errors.Is(err, storage.ErrObjectNotExist) {
			return nil, core.ErrObjectNotFound
		}
		return nil, errors.Wrap(err, "opening object reader")
	}
	return &readCloser{ReadCloser: r, cancel: cancel}, nil
}

func (s *GCS) Delete(ctx context.Context, key string) error {
	ctx, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()
	err := s.client.Bucket(s.bucket).Object(key).Delete(ctx)
	if errors.Is(err, storage.ErrObjectNotExist) {
		return core.ErrObjectNotFound
	}
	return errors.Wrap(err, "deleting object")
}

func (s *GCS) URL(key string) string {
	if s.publicBaseURL != "" {
		return s.publicBaseURL + "/" + key
	}
	return fmt.Sprintf("https://storage.googleapis.com/%s/%s", s.bucket, key)
}

func (s *GCS) Close() error {
	return s.client.Close()
}
