package hyperliquid

import "sync"

// TokenInfo is the cached metadata for one spot token.
type TokenInfo struct {
	Symbol      string
	WeiDecimals int
}

// TokenInfoCache is a process-wide read-through cache keyed by network and
// token id. Entries are populated once and never invalidated within the
// process lifetime; a miss simply triggers a fresh lookup. It is injected
// rather than package-global so tests can substitute a fresh cache per case.
type TokenInfoCache struct {
	mu      sync.RWMutex
	entries map[string]TokenInfo
}

// NewTokenInfoCache creates an empty cache.
func NewTokenInfoCache() *TokenInfoCache {
	return &TokenInfoCache{entries: make(map[string]TokenInfo)}
}

func cacheKey(network, tokenID string) string {
	return network + "/" + tokenID
}

// Get returns the cached info for a token, if present.
func (c *TokenInfoCache) Get(network, tokenID string) (TokenInfo, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	info, ok := c.entries[cacheKey(network, tokenID)]
	return info, ok
}

// Put stores token info. Last write wins; the data is immutable on-chain so
// concurrent writers always store the same value.
func (c *TokenInfoCache) Put(network, tokenID string, info TokenInfo) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.entries[cacheKey(network, tokenID)] = info
}
