package cache

import (
	"sync"

	"status-hub/internal/domain"
)

// StatusCache holds at most one classified status together with the user it
// belongs to. Implements domain.StatusCache.
type StatusCache struct {
	mu     sync.RWMutex
	userID *string
	status *domain.UserStatus
}

// NewStatusCache creates an empty status cache.
func NewStatusCache() *StatusCache {
	return &StatusCache{}
}

// Lookup returns the cached status when it belongs to userID. An entry stored
// without a user ID is adopted by the first real user ID that looks it up.
func (c *StatusCache) Lookup(userID string) (*domain.UserStatus, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.status == nil {
		return nil, false
	}

	switch {
	case c.userID != nil && *c.userID == userID:
	case c.userID == nil && userID != "":
		id := userID
		c.userID = &id
	default:
		return nil, false
	}

	status := *c.status
	return &status, true
}

// Store replaces the entry.
func (c *StatusCache) Store(userID string, status domain.UserStatus) {
	c.mu.Lock()
	defer c.mu.Unlock()

	var id *string
	if userID != "" {
		id = &userID
	}
	c.userID = id
	c.status = &status
}

// Clear resets the entry to empty.
func (c *StatusCache) Clear() {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.userID = nil
	c.status = nil
}

// Entry returns a copy of the current entry.
func (c *StatusCache) Entry() domain.CacheEntry {
	c.mu.RLock()
	defer c.mu.RUnlock()

	var entry domain.CacheEntry
	if c.userID != nil {
		id := *c.userID
		entry.UserID = &id
	}
	if c.status != nil {
		status := *c.status
		entry.Status = &status
	}
	return entry
}
