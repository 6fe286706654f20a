// Package models defines core data structures for notes, queries, and search results.
package models

import "time"

// NoteChunk is a bounded segment of a note's content, the unit of embedding.
// Chunks are immutable once created and belong to exactly one NoteEmbedding.
type NoteChunk struct {
	Content   string    `json:"content"`
	Embedding []float32 `json:"embedding"`
	Position  int       `json:"position"`
}

// NoteEmbedding holds the embedded chunks of a single note, keyed by its
// vault-relative path. Re-adding a path replaces the prior value atomically.
type NoteEmbedding struct {
	Path         string      `json:"path"`
	Chunks       []NoteChunk `json:"chunks"`
	LastModified time.Time   `json:"-"`
}
