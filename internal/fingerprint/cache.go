package fingerprint

import (
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/patrickmn/go-cache"
)

// queryCacheTTL and queryCacheCleanup mirror the teacher's ebird client
// cache lifetime shape: a bounded TTL plus a cleanup sweep at twice that
// interval.
const (
	queryCacheTTL     = 30 * time.Second
	queryCacheCleanup = 60 * time.Second
)

// queryCache memoizes DB.Recognize results, keyed by the query's hash
// set and score threshold, so repeated recognize calls against an
// unchanged DB snapshot skip rescoring every candidate.
type queryCache struct {
	c *cache.Cache
}

func newQueryCache() *queryCache {
	return &queryCache{c: cache.New(queryCacheTTL, queryCacheCleanup)}
}

func (q *queryCache) get(key string) ([]Match, bool) {
	v, found := q.c.Get(key)
	if !found {
		return nil, false
	}
	matches, ok := v.([]Match)
	return matches, ok
}

func (q *queryCache) set(key string, matches []Match) {
	q.c.Set(key, matches, cache.DefaultExpiration)
}

func (q *queryCache) invalidateAll() {
	q.c.Flush()
}

// cacheKey derives a deterministic string key from a query fingerprint's
// packed-32 hash set and the score threshold it was queried with.
func cacheKey(query *Fingerprint, minScore float64) string {
	packed := make([]uint32, 0, len(query.Hashes))
	for _, h := range query.Hashes {
		packed = append(packed, h.Packed32())
	}
	sort.Slice(packed, func(i, j int) bool { return packed[i] < packed[j] })

	var b strings.Builder
	fmt.Fprintf(&b, "%.4f|%d|", minScore, query.SampleRate)
	for _, p := range packed {
		fmt.Fprintf(&b, "%x,", p)
	}
	return b.String()
}
