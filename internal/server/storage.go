package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"sync"

	"github.com/fairwaylab/swinggate/internal/models"
)

// errClipNotFound is returned when an operation targets an unknown clip.
var errClipNotFound = errors.New("clip not found")

// Storage handles persistence for clip metadata. Content bytes live in
// the BlobStore; metadata is held in memory and mirrored to clips.json.
type Storage struct {
	mu        sync.RWMutex
	BaseDir   string
	Clips     map[string]models.ClipMetadata
	BlobStore BlobStore
}

// NewStorage creates a new Storage instance and loads existing metadata.
func NewStorage(baseDir string, blobStore BlobStore) (*Storage, error) {
	s := &Storage{
		BaseDir:   baseDir,
		Clips:     make(map[string]models.ClipMetadata),
		BlobStore: blobStore,
	}
	if err := s.load(); err != nil {
		return nil, err
	}
	return s, nil
}

func (s *Storage) load() error {
	if err := os.MkdirAll(s.BaseDir, 0o755); err != nil {
		return err
	}
	clipsFile := filepath.Join(s.BaseDir, "clips.json")
	if data, err := os.ReadFile(clipsFile); err == nil {
		if err := json.Unmarshal(data, &s.Clips); err != nil {
			return fmt.Errorf("failed to load clips: %w", err)
		}
	}
	return nil
}

// persistLocked writes the metadata index. Caller must hold the lock.
func (s *Storage) persistLocked() error {
	data, err := json.MarshalIndent(s.Clips, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(filepath.Join(s.BaseDir, "clips.json"), data, 0o644)
}

// SaveClip stores content in the blob store and records its metadata.
func (s *Storage) SaveClip(ctx context.Context, meta models.ClipMetadata, content []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.BlobStore.Save(ctx, meta.ID, content); err != nil {
		return fmt.Errorf("failed to store clip content: %w", err)
	}
	s.Clips[meta.ID] = meta
	return s.persistLocked()
}

// GetClip retrieves metadata for a clip.
func (s *Storage) GetClip(id string) (models.ClipMetadata, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	m, ok := s.Clips[id]
	return m, ok
}

// GetClipContent retrieves the content of a clip.
func (s *Storage) GetClipContent(ctx context.Context, id string) ([]byte, error) {
	return s.BlobStore.Get(ctx, id)
}

// ListClips returns all clips, newest first.
func (s *Storage) ListClips() []models.ClipMetadata {
	s.mu.RLock()
	defer s.mu.RUnlock()
	result := make([]models.ClipMetadata, 0, len(s.Clips))
	for _, c := range s.Clips {
		result = append(result, c)
	}
	sort.Slice(result, func(i, j int) bool {
		return result[i].Timestamp.After(result[j].Timestamp)
	})
	return result
}

// DeleteClip removes a clip and its content.
func (s *Storage) DeleteClip(ctx context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.Clips[id]; !ok {
		return errClipNotFound
	}
	if err := s.BlobStore.Delete(ctx, id); err != nil {
		return err
	}
	delete(s.Clips, id)
	return s.persistLocked()
}
