package evidence

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path"
	"path/filepath"
	"strings"
	"time"
)

// LocalStore keeps evidence under Root on the local filesystem.
type LocalStore struct {
	Root    string
	BaseURL string
	now     func() time.Time
}

func NewLocalStore(root, baseURL string) *LocalStore {
	return &LocalStore{Root: root, BaseURL: strings.TrimRight(baseURL, "/"), now: time.Now}
}

func (s *LocalStore) Save(ctx context.Context, up *Upload) (string, error) {
	if err := Check(up); err != nil {
		return "", err
	}
	key := NewKey(up.Name, s.now())
	full := filepath.Join(s.Root, filepath.FromSlash(key))
	if err := os.MkdirAll(filepath.Dir(full), 0o755); err != nil {
		return "", fmt.Errorf("create evidence dir: %w", err)
	}

	f, err := os.OpenFile(full, os.O_CREATE|os.O_EXCL|os.O_WRONLY, 0o644)
	if err != nil {
		return "", fmt.Errorf("create evidence file: %w", err)
	}
	if _, err := io.Copy(f, io.LimitReader(up.Body, up.Size+1)); err != nil {
		f.Close()
		os.Remove(full)
		return "", fmt.Errorf("write evidence: %w", err)
	}
	if err := f.Close(); err != nil {
		os.Remove(full)
		return "", err
	}
	return key, nil
}

func (s *LocalStore) Delete(ctx context.Context, ref string) error {
	full, err := s.resolve(ref)
	if err != nil {
		return err
	}
	if err := os.Remove(full); err != nil && !errors.Is(err, os.ErrNotExist) {
		return err
	}
	return nil
}

func (s *LocalStore) URL(ref string) string {
	if ref == "" {
		return ""
	}
	return s.BaseURL + "/" + path.Clean(ref)
}

func (s *LocalStore) resolve(ref string) (string, error) {
	clean := path.Clean("/" + ref)
	if !strings.HasPrefix(clean, "/evidencias/") {
		return "", errOutsideRoot
	}
	return filepath.Join(s.Root, filepath.FromSlash(strings.TrimPrefix(clean, "/"))), nil
}
