// Package localstore keeps objects as files under a base directory. It
// replaces S3 for local runs and backs the API in development.
package localstore

import (
	"context"
	"fmt"
	"mime"
	"os"
	"path/filepath"
	"strings"

	"dashsync/internal/errors"
	"dashsync/ports"

	"go.uber.org/zap"
)

// FileStorage implements ports.ObjectStore on the local filesystem
type FileStorage struct {
	basePath string
	logger   *zap.Logger
}

// NewFileStorage creates a storage rooted at basePath
func NewFileStorage(basePath string, logger *zap.Logger) *FileStorage {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &FileStorage{basePath: basePath, logger: logger}
}

// Get reads the object stored under key
func (s *FileStorage) Get(ctx context.Context, key string) ([]byte, error) {
	path, err := s.pathFor(key)
	if err != nil {
		return nil, err
	}
	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return nil, errors.Wrapf(ports.ErrNotFound, "file %s", path)
	}
	if err != nil {
		return nil, errors.StorageError(fmt.Sprintf("failed to read %s", key), err)
	}
	return data, nil
}

// Put writes the object atomically by renaming a temporary file into place
func (s *FileStorage) Put(ctx context.Context, key string, body []byte, contentType string) error {
	path, err := s.pathFor(key)
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return errors.StorageError("failed to create storage directory", err)
	}

	tmp, err := os.CreateTemp(filepath.Dir(path), ".upload-*")
	if err != nil {
		return errors.StorageError("failed to create temporary file", err)
	}
	if _, err := tmp.Write(body); err != nil {
		tmp.Close()
		os.Remove(tmp.Name()) // Clean up on failure
		return errors.StorageError(fmt.Sprintf("failed to write %s", key), err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmp.Name())
		return errors.StorageError(fmt.Sprintf("failed to write %s", key), err)
	}
	if err := os.Rename(tmp.Name(), path); err != nil {
		os.Remove(tmp.Name())
		return errors.StorageError(fmt.Sprintf("failed to move %s into place", key), err)
	}

	s.logger.Info("stored file", zap.String("key", key), zap.Int("bytes", len(body)), zap.String("content_type", contentType))
	return nil
}

// Head returns the size of the stored object
func (s *FileStorage) Head(ctx context.Context, key string) (ports.ObjectInfo, error) {
	path, err := s.pathFor(key)
	if err != nil {
		return ports.ObjectInfo{}, err
	}
	info, err := os.Stat(path)
	if os.IsNotExist(err) {
		return ports.ObjectInfo{}, errors.Wrapf(ports.ErrNotFound, "file %s", path)
	}
	if err != nil {
		return ports.ObjectInfo{}, errors.StorageError("failed to get file info", err)
	}
	return ports.ObjectInfo{
		Key:         key,
		Size:        info.Size(),
		ContentType: mime.TypeByExtension(filepath.Ext(key)),
	}, nil
}

// pathFor maps a key to a path, refusing keys that escape the base directory.
func (s *FileStorage) pathFor(key string) (string, error) {
	clean := filepath.Clean(filepath.FromSlash(key))
	if key == "" || filepath.IsAbs(clean) || clean == ".." || strings.HasPrefix(clean, ".."+string(filepath.Separator)) {
		return "", errors.InvalidInput(fmt.Sprintf("invalid object key %q", key))
	}
	return filepath.Join(s.basePath, clean), nil
}
