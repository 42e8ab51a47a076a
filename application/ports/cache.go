package ports

// Cache is the in-process bounded TTL cache the store client composes.
// Values are records for document keys and query results for query keys.
// Implementations must treat an expired entry as a miss and evict it on read.
type Cache interface {
	Get(key string) (interface{}, bool)
	Set(key string, value interface{})
	Invalidate(key string)
	// InvalidatePrefix drops every entry whose key starts with prefix; used to
	// flush cached query results for a collection when any of its documents
	// changes.
	InvalidatePrefix(prefix string)
	Clear()
	Stats() CacheStats
}

// CacheStats is a point-in-time snapshot of cache effectiveness
type CacheStats struct {
	Size    int     `json:"size"`
	MaxSize int     `json:"maxSize"`
	Hits    int64   `json:"hits"`
	Misses  int64   `json:"misses"`
	HitRate float64 `json:"hitRate"`
}
