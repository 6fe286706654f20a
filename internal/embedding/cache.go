package embedding

import (
	"container/list"
	"context"
	"sync"
)

// lruCache is an in-memory LRU cache for embeddings keyed by text.
type lruCache struct {
	capacity int
	cache    map[string]*list.Element
	lru      *list.List
	mu       sync.Mutex
}

type cacheEntry struct {
	key   string
	value []float32
}

func newLRUCache(capacity int) *lruCache {
	if capacity <= 0 {
		capacity = 1
	}
	return &lruCache{
		capacity: capacity,
		cache:    make(map[string]*list.Element),
		lru:      list.New(),
	}
}

func (c *lruCache) get(key string) ([]float32, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if elem, ok := c.cache[key]; ok {
		c.lru.MoveToFront(elem)
		return elem.Value.(*cacheEntry).value, true
	}
	return nil, false
}

func (c *lruCache) set(key string, value []float32) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if elem, ok := c.cache[key]; ok {
		c.lru.MoveToFront(elem)
		elem.Value.(*cacheEntry).value = value
		return
	}
	elem := c.lru.PushFront(&cacheEntry{key: key, value: value})
	c.cache[key] = elem
	if c.lru.Len() > c.capacity {
		oldest := c.lru.Back()
		if oldest != nil {
			c.lru.Remove(oldest)
			delete(c.cache, oldest.Value.(*cacheEntry).key)
		}
	}
}

// CachedProvider wraps a Provider with an LRU cache and an optional persistent
// disk cache, so unchanged chunks are never re-embedded.
type CachedProvider struct {
	base  Provider
	model string
	lru   *lruCache
	disk  *DiskCache
}

// NewCachedProvider wraps base. disk may be nil; model tags disk-cache entries
// so a model change invalidates them.
func NewCachedProvider(base Provider, model string, lruSize int, disk *DiskCache) *CachedProvider {
	return &CachedProvider{
		base:  base,
		model: model,
		lru:   newLRUCache(lruSize),
		disk:  disk,
	}
}

// Embed returns a cached embedding when available, otherwise delegates to the
// wrapped provider and populates both cache layers.
func (p *CachedProvider) Embed(ctx context.Context, text string) ([]float32, error) {
	if vec, ok := p.lru.get(text); ok {
		return vec, nil
	}
	if p.disk != nil {
		if vec, ok, err := p.disk.Get(p.model, text); err == nil && ok && len(vec) == p.base.Dimensions() {
			p.lru.set(text, vec)
			return vec, nil
		}
	}
	vec, err := p.base.Embed(ctx, text)
	if err != nil {
		return nil, err
	}
	p.lru.set(text, vec)
	if p.disk != nil {
		// Cache write failures are not worth failing the embed.
		_ = p.disk.Put(p.model, text, vec)
	}
	return vec, nil
}

// EmbedBatch embeds each text, using caches per text; only misses reach the
// wrapped provider, as a single batch call.
func (p *CachedProvider) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	vecs := make([][]float32, len(texts))
	var missIdx []int
	var missTexts []string
	for i, text := range texts {
		if vec, ok := p.lru.get(text); ok {
			vecs[i] = vec
			continue
		}
		if p.disk != nil {
			if vec, ok, err := p.disk.Get(p.model, text); err == nil && ok && len(vec) == p.base.Dimensions() {
				p.lru.set(text, vec)
				vecs[i] = vec
				continue
			}
		}
		missIdx = append(missIdx, i)
		missTexts = append(missTexts, text)
	}
	if len(missTexts) > 0 {
		fresh, err := p.base.EmbedBatch(ctx, missTexts)
		if err != nil {
			return nil, err
		}
		for j, i := range missIdx {
			vecs[i] = fresh[j]
			p.lru.set(texts[i], fresh[j])
			if p.disk != nil {
				_ = p.disk.Put(p.model, texts[i], fresh[j])
			}
		}
	}
	return vecs, nil
}

// Dimensions returns the wrapped provider's dimension.
func (p *CachedProvider) Dimensions() int {
	return p.base.Dimensions()
}

// Close closes the disk cache and the wrapped provider.
func (p *CachedProvider) Close() error {
	if p.disk != nil {
		_ = p.disk.Close()
	}
	return p.base.Close()
}
