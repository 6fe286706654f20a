package store

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/notevault/vaultindex/internal/models"
	"github.com/notevault/vaultindex/internal/vector"
	"go.uber.org/zap"
)

// snapshotVersion is written into every snapshot. Readers attempt a
// best-effort load for unknown or absent versions rather than failing.
const snapshotVersion = 1

type snapshotFile struct {
	Version     int                     `json:"version"`
	LastUpdated int64                   `json:"lastUpdated"`
	Embeddings  map[string]snapshotNote `json:"embeddings"`
}

type snapshotNote struct {
	Path         string          `json:"path"`
	Chunks       []snapshotChunk `json:"chunks"`
	LastModified int64           `json:"lastModified"`
}

type snapshotChunk struct {
	Content   string    `json:"content"`
	Embedding []float32 `json:"embedding"`
	Position  int       `json:"position"`
}

// SaveToFile serializes the full embeddings map to the snapshot path. The
// write is atomic from the caller's perspective: the data goes to a temporary
// file which replaces the snapshot only on success, so a failure leaves the
// previous on-disk state intact.
func (s *IndexStore) SaveToFile() error {
	s.saveMu.Lock()
	defer s.saveMu.Unlock()

	embeddings := s.index.Snapshot()
	snap := snapshotFile{
		Version:     snapshotVersion,
		LastUpdated: time.Now().UnixMilli(),
		Embeddings:  make(map[string]snapshotNote, len(embeddings)),
	}
	for path, emb := range embeddings {
		note := snapshotNote{
			Path:         emb.Path,
			Chunks:       make([]snapshotChunk, len(emb.Chunks)),
			LastModified: emb.LastModified.UnixMilli(),
		}
		for i, ch := range emb.Chunks {
			note.Chunks[i] = snapshotChunk{Content: ch.Content, Embedding: ch.Embedding, Position: ch.Position}
		}
		snap.Embeddings[path] = note
	}

	data, err := json.Marshal(&snap)
	if err != nil {
		return fmt.Errorf("marshal snapshot: %w", err)
	}

	path := s.cfg.Index.SnapshotPath
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("create snapshot dir: %w", err)
	}
	tmp, err := os.CreateTemp(dir, filepath.Base(path)+".tmp-*")
	if err != nil {
		return fmt.Errorf("create snapshot temp file: %w", err)
	}
	tmpName := tmp.Name()
	if _, err := tmp.Write(data); err != nil {
		_ = tmp.Close()
		_ = os.Remove(tmpName)
		return fmt.Errorf("write snapshot: %w", err)
	}
	if err := tmp.Close(); err != nil {
		_ = os.Remove(tmpName)
		return fmt.Errorf("close snapshot temp file: %w", err)
	}
	if err := os.Rename(tmpName, path); err != nil {
		_ = os.Remove(tmpName)
		return fmt.Errorf("replace snapshot: %w", err)
	}
	return nil
}

// LoadFromFile reads the persisted snapshot into the index. A missing file
// leaves the store empty; a read error or malformed snapshot is logged and
// likewise leaves the store empty. This is a deliberate best-effort warm
// start, never a fatal error.
func (s *IndexStore) LoadFromFile() {
	path := s.cfg.Index.SnapshotPath
	data, err := os.ReadFile(path)
	if err != nil {
		if !os.IsNotExist(err) {
			s.logger.Warn("snapshot read failed, starting empty", zap.String("path", path), zap.Error(err))
		}
		return
	}

	var snap snapshotFile
	if err := json.Unmarshal(data, &snap); err != nil {
		s.logger.Warn("snapshot malformed, starting empty", zap.String("path", path), zap.Error(err))
		return
	}
	if snap.Version != snapshotVersion && snap.Version != 0 {
		s.logger.Warn("snapshot version unknown, attempting best-effort load",
			zap.Int("version", snap.Version), zap.Int("supported", snapshotVersion))
	}

	loaded, skipped := 0, 0
	for path, note := range snap.Embeddings {
		emb := models.NoteEmbedding{
			Path:         note.Path,
			Chunks:       make([]models.NoteChunk, len(note.Chunks)),
			LastModified: time.UnixMilli(note.LastModified),
		}
		if emb.Path == "" {
			emb.Path = path
		}
		for i, ch := range note.Chunks {
			emb.Chunks[i] = models.NoteChunk{Content: ch.Content, Embedding: ch.Embedding, Position: ch.Position}
		}
		if err := s.index.AddEmbedding(path, emb); err != nil {
			// Typically a dimension change since the snapshot was written.
			if errors.Is(err, vector.ErrDimensionMismatch) {
				skipped++
				continue
			}
			s.logger.Warn("snapshot entry rejected", zap.String("note", path), zap.Error(err))
			skipped++
			continue
		}
		loaded++
	}
	s.logger.Info("snapshot loaded",
		zap.String("path", path),
		zap.Int("notes", loaded),
		zap.Int("skipped", skipped),
	)
}
