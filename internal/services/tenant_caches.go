package services

import (
	"sync"

	"crm-contacts/internal/viewstate"

	"go.uber.org/zap"
)

// TenantCaches keeps one query cache per tenant, shared by every view
// opened for that tenant.
type TenantCaches struct {
	mu     sync.Mutex
	caches map[string]*viewstate.QueryCache
	ttls   viewstate.CacheTTLs
	logger *zap.Logger
}

func NewTenantCaches(ttls viewstate.CacheTTLs, logger *zap.Logger) *TenantCaches {
	return &TenantCaches{
		caches: make(map[string]*viewstate.QueryCache),
		ttls:   ttls,
		logger: logger,
	}
}

func (t *TenantCaches) Get(tenantID string) *viewstate.QueryCache {
	t.mu.Lock()
	defer t.mu.Unlock()
	c, ok := t.caches[tenantID]
	if !ok {
		c = viewstate.NewQueryCache(t.ttls, viewstate.WithCacheLogger(t.logger.With(zap.String("tenant_id", tenantID))))
		t.caches[tenantID] = c
	}
	return c
}

// SendInvalidateEvent invalidates the tenant's cache entries, if it has a
// cache yet.
func (t *TenantCaches) SendInvalidateEvent(tenantID string, keys, prefixes []string) {
	t.mu.Lock()
	c, ok := t.caches[tenantID]
	t.mu.Unlock()
	if !ok {
		return
	}
	for _, key := range keys {
		c.Invalidate(key)
	}
	for _, prefix := range prefixes {
		c.InvalidatePrefix(prefix)
	}
}

// Close stops every cache and waits for background refetches.
func (t *TenantCaches) Close() {
	t.mu.Lock()
	caches := t.caches
	t.caches = make(map[string]*viewstate.QueryCache)
	t.mu.Unlock()

	for _, c := range caches {
		c.Close()
	}
	for _, c := range caches {
		c.Wait()
	}
}

// Notifiers fans one invalidation out to several notifiers.
type Notifiers []Notifier

func (n Notifiers) SendInvalidateEvent(tenantID string, keys, prefixes []string) {
	for _, notifier := range n {
		notifier.SendInvalidateEvent(tenantID, keys, prefixes)
	}
}
