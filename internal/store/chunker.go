package store

import (
	"regexp"
	"strings"
	"unicode/utf8"

	"github.com/notevault/vaultindex/internal/models"
)

var paragraphSplit = regexp.MustCompile(`\n[ \t]*\n+`)

// Chunker splits note text into overlapping character-budget chunks, preferring
// paragraph boundaries. Pure function of its inputs: no I/O, no randomness.
type Chunker struct {
	size    int
	overlap int
}

// NewChunker creates a chunker with the given size and overlap (in characters).
func NewChunker(size, overlap int) *Chunker {
	if size <= 0 {
		size = 1000
	}
	if overlap < 0 {
		overlap = 0
	}
	return &Chunker{size: size, overlap: overlap}
}

// Chunk splits content into NoteChunks. Content that fits the size budget is
// returned as a single chunk; whitespace-only content yields no chunks. Each
// chunk after the first starts with the trailing overlap characters of the
// previous chunk, and a paragraph that fits the budget on its own is never
// split across chunks.
func (c *Chunker) Chunk(content string) []models.NoteChunk {
	if strings.TrimSpace(content) == "" {
		return nil
	}
	if len(content) <= c.size {
		return []models.NoteChunk{{Content: content, Position: 0}}
	}

	var pieces []string
	cur := ""
	flush := func() {
		if strings.TrimSpace(cur) != "" {
			pieces = append(pieces, cur)
		}
		cur = ""
	}
	normalized := strings.ReplaceAll(content, "\r\n", "\n")
	for _, para := range paragraphSplit.Split(normalized, -1) {
		if strings.TrimSpace(para) == "" {
			continue
		}
		switch {
		case len(para) > c.size:
			// Oversized paragraph: hard-split into size-budget slices, backing
			// each cut off to a rune start so no slice ends mid-rune.
			flush()
			for start := 0; start < len(para); {
				end := start + c.size
				if end >= len(para) {
					pieces = append(pieces, para[start:])
					break
				}
				for end > start && !utf8.RuneStart(para[end]) {
					end--
				}
				if end == start {
					end = start + c.size
				}
				pieces = append(pieces, para[start:end])
				start = end
			}
		case cur == "":
			cur = para
		case len(cur)+2+len(para) <= c.size:
			cur += "\n\n" + para
		default:
			flush()
			cur = para
		}
	}
	flush()

	chunks := make([]models.NoteChunk, 0, len(pieces))
	for i, text := range pieces {
		if i > 0 && c.overlap > 0 {
			text = overlapTail(chunks[i-1].Content, c.overlap) + text
		}
		chunks = append(chunks, models.NoteChunk{Content: text, Position: i})
	}
	return chunks
}

// overlapTail returns the trailing n bytes of s, or all of s when it is
// shorter than n. The cut backs off to a rune start, so the tail may be up to
// three bytes longer than n but is always valid UTF-8.
func overlapTail(s string, n int) string {
	if len(s) <= n {
		return s
	}
	start := len(s) - n
	for start > 0 && !utf8.RuneStart(s[start]) {
		start--
	}
	return s[start:]
}
