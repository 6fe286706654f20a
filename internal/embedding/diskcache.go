package embedding

import (
	"crypto/sha256"
	"database/sql"
	"encoding/binary"
	"encoding/hex"
	"fmt"
	"math"
	"os"
	"path/filepath"

	_ "github.com/mattn/go-sqlite3"
)

// DiskCache is a persistent embedding cache backed by SQLite, keyed by a hash
// of model and text. It is a cache only: losing it costs re-embedding, nothing
// else, and the index snapshot remains the sole persistent index structure.
type DiskCache struct {
	db *sql.DB
}

// NewDiskCache opens or creates the cache database at path. Parent directories
// are created if they do not exist.
func NewDiskCache(path string) (*DiskCache, error) {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return nil, fmt.Errorf("create cache directory: %w", err)
		}
	}
	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, fmt.Errorf("open cache database: %w", err)
	}
	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("enable WAL: %w", err)
	}
	schema := `
	CREATE TABLE IF NOT EXISTS embeddings (
		key TEXT PRIMARY KEY,
		model TEXT NOT NULL,
		dimensions INTEGER NOT NULL,
		vector BLOB NOT NULL,
		created_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP
	);
	CREATE INDEX IF NOT EXISTS idx_embeddings_model ON embeddings(model);
	`
	if _, err := db.Exec(schema); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("initialize cache schema: %w", err)
	}
	return &DiskCache{db: db}, nil
}

// Get returns the cached vector for (model, text) if present.
func (c *DiskCache) Get(model, text string) ([]float32, bool, error) {
	var (
		dims int
		blob []byte
	)
	err := c.db.QueryRow(
		`SELECT dimensions, vector FROM embeddings WHERE key = ?`, cacheKey(model, text),
	).Scan(&dims, &blob)
	if err == sql.ErrNoRows {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, err
	}
	vec := bytesToFloat32Slice(blob)
	if len(vec) != dims {
		return nil, false, fmt.Errorf("corrupt cache entry: %d floats, header says %d", len(vec), dims)
	}
	return vec, true, nil
}

// Put stores the vector for (model, text), replacing any prior entry.
func (c *DiskCache) Put(model, text string, vec []float32) error {
	_, err := c.db.Exec(
		`INSERT OR REPLACE INTO embeddings (key, model, dimensions, vector) VALUES (?, ?, ?, ?)`,
		cacheKey(model, text), model, len(vec), float32SliceToBytes(vec),
	)
	return err
}

// Close closes the underlying database.
func (c *DiskCache) Close() error {
	return c.db.Close()
}

func cacheKey(model, text string) string {
	h := sha256.Sum256([]byte(model + "\x00" + text))
	return hex.EncodeToString(h[:])
}

func float32SliceToBytes(s []float32) []byte {
	const size = 4
	out := make([]byte, len(s)*size)
	for i, v := range s {
		binary.LittleEndian.PutUint32(out[i*size:(i+1)*size], math.Float32bits(v))
	}
	return out
}

func bytesToFloat32Slice(b []byte) []float32 {
	const size = 4
	out := make([]float32, len(b)/size)
	for i := range out {
		out[i] = math.Float32frombits(binary.LittleEndian.Uint32(b[i*size : (i+1)*size]))
	}
	return out
}
