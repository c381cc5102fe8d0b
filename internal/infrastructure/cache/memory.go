package cache

import (
	"strings"
	"sync"
	"time"
)

// memoryEntry is one cached payload with its type tag and expiry
type memoryEntry struct {
	payload   []byte
	cacheType string
	expiresAt time.Time
}

// MemoryTier is the in-process fast tier. It is bounded: once full,
// new keys evict an arbitrary existing entry after expired entries
// have been swept.
type MemoryTier struct {
	mu         sync.RWMutex
	entries    map[string]memoryEntry
	maxEntries int

	stopChan  chan struct{}
	wg        sync.WaitGroup
	closeOnce sync.Once
}

// NewMemoryTier creates a bounded in-memory tier and starts its
// cleanup goroutine
func NewMemoryTier(maxEntries int, cleanupInterval time.Duration) *MemoryTier {
	if maxEntries <= 0 {
		maxEntries = 10000
	}
	if cleanupInterval <= 0 {
		cleanupInterval = 5 * time.Minute
	}

	tier := &MemoryTier{
		entries:    make(map[string]memoryEntry),
		maxEntries: maxEntries,
		stopChan:   make(chan struct{}),
	}

	tier.wg.Add(1)
	go tier.cleanupLoop(cleanupInterval)

	return tier
}

// Get returns the payload for the key if present and unexpired
func (t *MemoryTier) Get(key string) ([]byte, bool) {
	t.mu.RLock()
	defer t.mu.RUnlock()

	e, exists := t.entries[key]
	if !exists || time.Now().After(e.expiresAt) {
		return nil, false
	}
	return e.payload, true
}

// Set stores the payload under the key
func (t *MemoryTier) Set(key, cacheType string, payload []byte, ttl time.Duration) {
	t.mu.Lock()
	defer t.mu.Unlock()

	if _, exists := t.entries[key]; !exists && len(t.entries) >= t.maxEntries {
		t.evictLocked()
	}

	t.entries[key] = memoryEntry{
		payload:   payload,
		cacheType: cacheType,
		expiresAt: time.Now().Add(ttl),
	}
}

// Delete removes the key
func (t *MemoryTier) Delete(key string) {
	t.mu.Lock()
	defer t.mu.Unlock()
	delete(t.entries, key)
}

// DeletePrefix removes every key starting with the prefix
func (t *MemoryTier) DeletePrefix(prefix string) {
	t.mu.Lock()
	defer t.mu.Unlock()
	for key := range t.entries {
		if strings.HasPrefix(key, prefix) {
			delete(t.entries, key)
		}
	}
}

// Clear drops all entries of the given type; empty type drops everything
func (t *MemoryTier) Clear(cacheType string) {
	t.mu.Lock()
	defer t.mu.Unlock()

	if cacheType == "" {
		t.entries = make(map[string]memoryEntry)
		return
	}
	for key, e := range t.entries {
		if e.cacheType == cacheType {
			delete(t.entries, key)
		}
	}
}

// Size returns the number of entries currently held
func (t *MemoryTier) Size() int {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return len(t.entries)
}

// Close stops the cleanup goroutine. Safe to call multiple times.
func (t *MemoryTier) Close() error {
	t.closeOnce.Do(func() {
		close(t.stopChan)
		t.wg.Wait()
	})
	return nil
}

// evictLocked frees room for one new entry. Expired entries go first;
// if none are expired an arbitrary entry is dropped.
func (t *MemoryTier) evictLocked() {
	now := time.Now()
	evicted := false
	for key, e := range t.entries {
		if now.After(e.expiresAt) {
			delete(t.entries, key)
			evicted = true
		}
	}
	if evicted {
		return
	}
	for key := range t.entries {
		delete(t.entries, key)
		return
	}
}

func (t *MemoryTier) cleanupLoop(interval time.Duration) {
	defer t.wg.Done()

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-t.stopChan:
			return
		case <-ticker.C:
			t.cleanup()
		}
	}
}

func (t *MemoryTier) cleanup() {
	t.mu.Lock()
	defer t.mu.Unlock()

	now := time.Now()
	for key, e := range t.entries {
		if now.After(e.expiresAt) {
			delete(t.entries, key)
		}
	}
}
