package search

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"time"

	"github.com/ridelist/searchd/internal/domain/search/filter"
	"github.com/ridelist/searchd/internal/domain/search/options"
)

// KeyPrefix namespaces all cached search responses. Bump the version
// segment when the response shape changes so stale entries die by TTL
// instead of failing to decode forever.
const KeyPrefix = "search:v1:"

// TTL policy: more specific queries cache for shorter windows because
// they are less likely to be reused and their underlying data changes
// faster relative to query volume.
const (
	BaseTTL         = 300 * time.Second
	SpecificityStep = 60 * time.Second
	MinTTL          = 60 * time.Second
)

// keyPayload is the canonical form hashed into the cache key. Struct
// field order fixes the serialization order; the normalized filter and
// options make semantically identical requests collide to the same key
// regardless of field insertion order.
type keyPayload struct {
	Filter  filter.Filter   `json:"filter"`
	Options options.Options `json:"options"`
}

// deriveKey computes the cache key for a normalized filter+options pair.
func deriveKey(f filter.Filter, o options.Options) string {
	data, err := json.Marshal(keyPayload{Filter: f.Normalize(), Options: o.Normalize()})
	if err != nil {
		// Filter and Options are plain data; Marshal cannot fail on them.
		panic("search: unmarshalable key payload: " + err.Error())
	}
	sum := sha256.Sum256(data)
	return KeyPrefix + hex.EncodeToString(sum[:])
}

// ttlFor derives the write-back TTL from query specificity:
// base 300s minus 60s per narrowing predicate, floored at 60s.
func ttlFor(f filter.Filter) time.Duration {
	ttl := BaseTTL - time.Duration(f.Specificity())*SpecificityStep
	if ttl < MinTTL {
		ttl = MinTTL
	}
	return ttl
}
