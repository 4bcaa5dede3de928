package objectstore

import (
	"context"
	"path/filepath"

	"github.com/pkg/errors"

	"github.com/trezcool/homeroom/core"
)

// New returns the object store selected by conf.Storage.Backend.
func New(ctx context.Context, conf *core.Config) (core.ObjectStore, error) {
	sc := conf.Storage
	switch sc.Backend {
	case "", "local":
		dir := sc.LocalDir
		if !filepath.IsAbs(dir) {
			dir = filepath.Join(conf.WorkDir, dir)
		}
		return NewLocal(dir, sc.PublicBaseURL)
	case "gcs":
		return NewGCS(ctx, sc.Bucket, sc.CredentialsFile, sc.PublicBaseURL)
	}
	return nil, errors.Errorf("unknown storage backend %q", sc.Backend)
}
