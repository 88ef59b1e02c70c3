package storage

import (
	"context"
	"os"
	"path/filepath"
	"regexp"

	"github.com/cockroachdb/errors"
)

var safeKeyRe = regexp.MustCompile(`^[A-Za-z0-9_.-]+$`)

// File stores each key as a file in a directory.
// Writes go to a temporary file first and are renamed into place.
type File struct {
	dir string
}

// OpenFile opens (creating if needed) a file backend rooted at dir.
func OpenFile(dir string) (*File, error) {
	if dir == "" {
		return nil, errors.New("file storage requires a directory")
	}
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, errors.Wrap(err, "failed to create storage directory")
	}
	return &File{dir: dir}, nil
}

func (f *File) path(key string) (string, error) {
	if err := validKey(key); err != nil {
		return "", err
	}
	if !safeKeyRe.MatchString(key) || key == "." || key == ".." {
		return "", errors.Newf("invalid storage key: %q", key)
	}
	return filepath.Join(f.dir, key+".json"), nil
}

// Get reads the file for key.
func (f *File) Get(ctx context.Context, key string) (string, bool, error) {
	p, err := f.path(key)
	if err != nil {
		return "", false, err
	}
	if err := ctx.Err(); err != nil {
		return "", false, err
	}

	data, err := os.ReadFile(p)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return "", false, nil
		}
		return "", false, errors.Wrapf(err, "failed to read %s", p)
	}
	return string(data), true, nil
}

// Set atomically replaces the file for key.
func (f *File) Set(ctx context.Context, key, value string) error {
	p, err := f.path(key)
	if err != nil {
		return err
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	tmp, err := os.CreateTemp(f.dir, key+".*.tmp")
	if err != nil {
		return errors.Wrap(err, "failed to create temp file")
	}
	defer os.Remove(tmp.Name())

	if _, err := tmp.WriteString(value); err != nil {
		tmp.Close()
		return errors.Wrap(err, "failed to write temp file")
	}
	if err := tmp.Close(); err != nil {
		return errors.Wrap(err, "failed to close temp file")
	}
	if err := os.Rename(tmp.Name(), p); err != nil {
		return errors.Wrapf(err, "failed to replace %s", p)
	}
	return nil
}

// Close is a no-op.
func (f *File) Close() error {
	return nil
}
