package mediaio

import (
	"strings"
	"time"

	"github.com/patrickmn/go-cache"

	"github.com/loomaudio/streamcore/internal/models"
)

// probeCacheTTL and probeCacheCleanup follow the fingerprint package's
// go-cache shape (cleanup sweep at twice the TTL) with a longer TTL:
// probing the same URL repeatedly (e.g. re-opening a
// recently played local file) should not re-spawn the external tool.
const (
	probeCacheTTL     = 5 * time.Minute
	probeCacheCleanup = 10 * time.Minute
)

// ProbeCache memoizes StreamInfo by URL, per spec §3's go-cache entry
// for "probed StreamInfo".
type ProbeCache struct {
	c *cache.Cache
}

// NewProbeCache constructs a ProbeCache with the package's default TTL.
func NewProbeCache() *ProbeCache {
	return &ProbeCache{c: cache.New(probeCacheTTL, probeCacheCleanup)}
}

// Get returns a cached StreamInfo for url, if present and unexpired.
func (p *ProbeCache) Get(url string) (models.StreamInfo, bool) {
	v, ok := p.c.Get(url)
	if !ok {
		return models.StreamInfo{}, false
	}
	info, ok := v.(models.StreamInfo)
	return info, ok
}

// Set stores info for url, resetting the TTL.
func (p *ProbeCache) Set(url string, info models.StreamInfo) {
	p.c.Set(url, info, cache.DefaultExpiration)
}

// Invalidate removes a cached entry, e.g. on decoding_failed escalation.
func (p *ProbeCache) Invalidate(url string) {
	p.c.Delete(url)
}

// IsLocalFile reports whether url names a local filesystem path,
// handled by the direct Go decoders instead of the external tool.
func IsLocalFile(url string) bool {
	return strings.HasPrefix(url, "file://") || !strings.Contains(url, "://")
}

// LocalFilePath strips a file:// scheme, if present, returning a path
// usable with os.Open.
func LocalFilePath(url string) string {
	return strings.TrimPrefix(url, "file://")
}
