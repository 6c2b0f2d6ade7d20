package webhook

import (
	"context"
	"sync"
)

// profileCache remembers display names for the process lifetime. Lookups for
// the same user are collapsed.
type profileCache struct {
	mu    sync.RWMutex
	names map[string]string
}

func newProfileCache() *profileCache {
	return &profileCache{names: make(map[string]string)}
}

func (c *profileCache) get(userID string) (string, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	name, ok := c.names[userID]
	return name, ok
}

func (c *profileCache) set(userID, name string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.names[userID] = name
}

// displayName returns the cached name or asks lookup once. A failed lookup
// is not cached so the next event retries.
func (h *Handler) displayName(ctx context.Context, userID string) string {
	if name, ok := h.profiles.get(userID); ok {
		return name
	}

	ctx, cancel := context.WithTimeout(ctx, h.profileTimeout)
	defer cancel()

	v, err, shared := h.profileGroup.Do(userID, func() (any, error) {
		return h.messenger.DisplayName(ctx, userID)
	})
	if shared && h.metrics != nil {
		h.metrics.RecordSingleflightDedup("profile")
	}
	if err != nil {
		h.logger.WithError(err).DebugContext(ctx, "Profile lookup failed")
		return ""
	}
	name, _ := v.(string)
	h.profiles.set(userID, name)
	return name
}
