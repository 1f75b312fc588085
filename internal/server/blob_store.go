package server

import (
	"context"
	"os"
	"path/filepath"
)

// BlobStore defines the interface for storing clip content.
type BlobStore interface {
	Save(ctx context.Context, id string, content []byte) error
	Get(ctx context.Context, id string) ([]byte, error)
	Delete(ctx context.Context, id string) error
}

// LocalBlobStore implements BlobStore using the local filesystem.
type LocalBlobStore struct {
	BaseDir string
}

func NewLocalBlobStore(baseDir string) *LocalBlobStore {
	return &LocalBlobStore{BaseDir: baseDir}
}

func (s *LocalBlobStore) Save(_ context.Context, id string, content []byte) error {
	filePath := filepath.Join(s.BaseDir, id+".bin")
	return os.WriteFile(filePath, content, 0o644)
}

func (s *LocalBlobStore) Get(_ context.Context, id string) ([]byte, error) {
	filePath := filepath.Join(s.BaseDir, id+".bin")
	return os.ReadFile(filePath)
}

func (s *LocalBlobStore) Delete(_ context.Context, id string) error {
	filePath := filepath.Join(s.BaseDir, id+".bin")
	if err := os.Remove(filePath); err != nil && !os.IsNotExist(err) {
		return err
	}
	return nil
}
