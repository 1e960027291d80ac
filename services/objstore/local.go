package objstore

import (
	"context"
	"os"
	"path/filepath"
	"strings"

	"github.com/pkg/errors"

	"github.com/trezcool/ada/core/receipt"
)

// LocalStore writes objects under a directory served at baseURL.
type LocalStore struct {
	dir     string
	baseURL string
}

var _ receipt.Store = (*LocalStore)(nil)

func NewLocalStore(dir, baseURL string) *LocalStore {
	return &LocalStore{dir: dir, baseURL: strings.TrimSuffix(baseURL, "/")}
}

func (s *LocalStore) Put(ctx context.Context, key string, content []byte, _ string) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	key, err := cleanKey(key)
	if err != nil {
		return "", err
	}

	fp := filepath.Join(s.dir, filepath.FromSlash(key))
	if err := os.MkdirAll(filepath.Dir(fp), 0o755); err != nil {
		return "", errors.Wrap(err, "creating object directory")
	}
	if err := os.WriteFile(fp, content, 0o644); err != nil {
		return "", errors.Wrap(err, "writing object")
	}
	return s.baseURL + "/" + key, nil
}

// cleanKey rejects keys escaping the store root.
func cleanKey(key string) (string, error) {
	key = strings.TrimPrefix(filepath.ToSlash(filepath.Clean("/"+key)), "/")
	if key == "" || key == "." {
		return "", errors.New("object key is required")
	}
	return key, nil
}
