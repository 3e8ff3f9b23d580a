package providers

import (
	"encoding/binary"
	"os"
	"strconv"

	"github.com/coocood/freecache"

	"certgen/internal/structures"
)

// CacheProviderInterface holds encoded certificate records and whole store
// collections in front of the store file.
type CacheProviderInterface interface {
	Get(key string) ([]byte, bool)
	Set(key string, value []byte)
	Purge()
}

// RecordCacheKey binds a name (a certificate ID, or the collection) to one
// version of the store file. Appends only grow the file, so every rewrite
// changes the size and stale entries are never reached.
func RecordCacheKey(name string, info os.FileInfo) string {
	return name + "|" + strconv.FormatInt(info.ModTime().UnixNano(), 10) + "|" + strconv.FormatInt(info.Size(), 10)
}

type CacheProvider struct {
	cache     *freecache.Cache
	ttl       int
	chunkSize int
	logger    Logger
}

// Stored values carry a one byte tag: inline data, or a chunk count for values
// above freecache's per-entry limit (about 1/1024 of the cache size).
const (
	tagInline  byte = 0
	tagChunked byte = 1
)

func NewCacheProvider(conf *structures.Config, logger Logger) CacheProviderInterface {
	if !conf.Cache.Enabled || conf.Cache.Size <= 0 {
		logger.Debugf(TypeStore, "Record cache disabled")
		return &noopCache{}
	}

	sizeBytes := conf.Cache.Size * 1024 * 1024
	ttl := max(int(conf.Cache.TTL.Seconds()), 1)
	logger.Debugf(TypeStore, "Record cache enabled: %dMB, TTL=%ds", conf.Cache.Size, ttl)

	return &CacheProvider{
		cache:     freecache.NewCache(sizeBytes),
		ttl:       ttl,
		chunkSize: sizeBytes / 2048,
		logger:    logger,
	}
}

func chunkKey(key string, i int) []byte {
	return []byte(key + "#" + strconv.Itoa(i))
}

func (c *CacheProvider) Get(key string) ([]byte, bool) {
	val, err := c.cache.Get([]byte(key))
	if err != nil || len(val) == 0 {
		return nil, false
	}
	if val[0] == tagInline {
		return val[1:], true
	}

	if len(val) != 5 {
		return nil, false
	}
	n := int(binary.BigEndian.Uint32(val[1:]))
	out := make([]byte, 0, n*c.chunkSize)
	for i := 0; i < n; i++ {
		part, err := c.cache.Get(chunkKey(key, i))
		if err != nil {
			// a chunk was evicted
			return nil, false
		}
		out = append(out, part...)
	}
	return out, true
}

func (c *CacheProvider) Set(key string, value []byte) {
	if len(value) < c.chunkSize {
		c.set([]byte(key), append([]byte{tagInline}, value...))
		return
	}

	n := 0
	for off := 0; off < len(value); off += c.chunkSize {
		end := min(off+c.chunkSize, len(value))
		if !c.set(chunkKey(key, n), value[off:end]) {
			return
		}
		n++
	}
	header := make([]byte, 5)
	header[0] = tagChunked
	binary.BigEndian.PutUint32(header[1:], uint32(n))
	c.set([]byte(key), header)
}

func (c *CacheProvider) set(key, value []byte) bool {
	if err := c.cache.Set(key, value, c.ttl); err != nil {
		c.logger.Debugf(TypeStore, "Cache entry %q not stored: %v", key, err)
		return false
	}
	return true
}

// Purge drops every entry; called after the store file is rewritten.
func (c *CacheProvider) Purge() {
	if n := c.cache.EntryCount(); n > 0 {
		c.logger.Debugf(TypeStore, "Purging %d cached records", n)
	}
	c.cache.Clear()
}

type noopCache struct{}

func (n *noopCache) Get(_ string) ([]byte, bool) { return nil, false }
func (n *noopCache) Set(_ string, _ []byte)      {}
func (n *noopCache) Purge()                      {}
