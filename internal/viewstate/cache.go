package viewstate

import (
	"context"
	"fmt"
	"net/url"
	"strings"
	"sync"
	"time"

	"crm-contacts/internal/models"

	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"
)

// Cache key layout shared by the view, the synchronizer and the gateway.
const (
	ContactsListPrefix     = "contacts.list"
	GroupsListKey          = "groups.list"
	GroupsForContactPrefix = "groups.forContact:"
	FileURLPrefix          = "storage.fileUrl:"
)

func ContactsListKey(req models.ContactListRequest) string {
	v := url.Values{}
	if req.Search != "" {
		v.Set("search", req.Search)
	}
	if req.GroupID != "" {
		v.Set("group_id", req.GroupID)
	}
	if len(v) == 0 {
		return ContactsListPrefix
	}
	return ContactsListPrefix + "?" + v.Encode()
}

func GroupsForContactKey(contactID string) string {
	return GroupsForContactPrefix + contactID
}

func FileURLKey(filePath string) string {
	return FileURLPrefix + filePath
}

// CacheTTLs sets how long results stay fresh per key family. Zero means
// results only go stale through invalidation.
type CacheTTLs struct {
	Contacts time.Duration
	Groups   time.Duration
	FileURL  time.Duration
}

func DefaultCacheTTLs() CacheTTLs {
	return CacheTTLs{
		Contacts: 0,
		Groups:   45 * time.Second,
		FileURL:  55 * time.Minute,
	}
}

type fetchFunc func(ctx context.Context) (any, error)

type cacheEntry struct {
	value      any
	fetchedAt  time.Time
	stale      bool
	refetching bool
	err        error
	fetch      fetchFunc
}

// QueryCache is a key-addressed result cache. The first query for a key
// blocks; later queries on stale data return the previous result and
// refetch in the background.
type QueryCache struct {
	mu        sync.Mutex
	entries   map[string]*cacheEntry
	listeners map[int]func(key string)
	nextID    int
	closed    bool

	flight singleflight.Group
	wg     sync.WaitGroup
	ctx    context.Context
	cancel context.CancelFunc

	ttls   CacheTTLs
	now    func() time.Time
	logger *zap.Logger
}

type CacheOption func(*QueryCache)

func WithCacheClock(now func() time.Time) CacheOption {
	return func(c *QueryCache) { c.now = now }
}

func WithCacheLogger(logger *zap.Logger) CacheOption {
	return func(c *QueryCache) { c.logger = logger }
}

func NewQueryCache(ttls CacheTTLs, opts ...CacheOption) *QueryCache {
	ctx, cancel := context.WithCancel(context.Background())
	c := &QueryCache{
		entries:   make(map[string]*cacheEntry),
		listeners: make(map[int]func(string)),
		ctx:       ctx,
		cancel:    cancel,
		ttls:      ttls,
		now:       time.Now,
		logger:    zap.NewNop(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

func (c *QueryCache) ttlFor(key string) time.Duration {
	switch {
	case strings.HasPrefix(key, ContactsListPrefix):
		return c.ttls.Contacts
	case strings.HasPrefix(key, FileURLPrefix):
		return c.ttls.FileURL
	case key == GroupsListKey, strings.HasPrefix(key, GroupsForContactPrefix):
		return c.ttls.Groups
	default:
		return 0
	}
}

func (c *QueryCache) expired(key string, e *cacheEntry) bool {
	if e.stale {
		return true
	}
	ttl := c.ttlFor(key)
	return ttl > 0 && c.now().Sub(e.fetchedAt) >= ttl
}

// Query returns the cached value for key, fetching it on first use. When
// the cached value is stale it is returned with refetching=true while a
// background refetch runs.
func Query[T any](ctx context.Context, c *QueryCache, key string, fetch func(ctx context.Context) (T, error)) (T, bool, error) {
	var zero T
	erased := func(ctx context.Context) (any, error) { return fetch(ctx) }

	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return zero, false, ErrViewClosed
	}
	e, ok := c.entries[key]
	if ok && e.value != nil {
		if v, typed := e.value.(T); typed {
			e.fetch = erased
			refetching := false
			if c.expired(key, e) {
				c.startRefetchLocked(key, e)
				refetching = true
			} else if e.refetching {
				refetching = true
			}
			c.mu.Unlock()
			return v, refetching, nil
		}
	}
	c.mu.Unlock()

	v, err, _ := c.flight.Do(key, func() (any, error) {
		return fetch(ctx)
	})
	if err != nil {
		return zero, false, err
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return zero, false, ErrViewClosed
	}
	c.entries[key] = &cacheEntry{value: v, fetchedAt: c.now(), fetch: erased}

	typed, ok := v.(T)
	if !ok {
		return zero, false, fmt.Errorf("cache key %q holds %T", key, v)
	}
	return typed, false, nil
}

// startRefetchLocked must be called with c.mu held.
func (c *QueryCache) startRefetchLocked(key string, e *cacheEntry) {
	if e.refetching || e.fetch == nil || c.closed {
		return
	}
	e.refetching = true
	fetch := e.fetch

	c.wg.Add(1)
	go func() {
		defer c.wg.Done()
		v, err, _ := c.flight.Do(key, func() (any, error) {
			return fetch(c.ctx)
		})
		c.settle(key, v, err)
	}()
}

func (c *QueryCache) settle(key string, v any, err error) {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return
	}
	e, ok := c.entries[key]
	if !ok {
		c.mu.Unlock()
		return
	}
	e.refetching = false
	if err != nil {
		e.err = err
		c.logger.Warn("background refetch failed", zap.String("key", key), zap.Error(err))
	} else {
		e.value = v
		e.err = nil
		e.stale = false
		e.fetchedAt = c.now()
	}
	listeners := make([]func(string), 0, len(c.listeners))
	for _, fn := range c.listeners {
		listeners = append(listeners, fn)
	}
	c.mu.Unlock()

	for _, fn := range listeners {
		fn(key)
	}
}

// Invalidate marks key stale and refetches it in the background when a
// fetcher is known. It never blocks on the gateway.
func (c *QueryCache) Invalidate(key string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if e, ok := c.entries[key]; ok {
		e.stale = true
		c.startRefetchLocked(key, e)
	}
}

func (c *QueryCache) InvalidatePrefix(prefix string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	for key, e := range c.entries {
		if strings.HasPrefix(key, prefix) {
			e.stale = true
			c.startRefetchLocked(key, e)
		}
	}
}

// Set stores a value directly, as after a mutation that returned fresh data.
func (c *QueryCache) Set(key string, value any) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return
	}
	e, ok := c.entries[key]
	if !ok {
		e = &cacheEntry{}
		c.entries[key] = e
	}
	e.value = value
	e.stale = false
	e.err = nil
	e.fetchedAt = c.now()
}

// Peek returns the cached value for key without fetching.
func (c *QueryCache) Peek(key string) (any, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	e, ok := c.entries[key]
	if !ok || e.value == nil {
		return nil, false
	}
	return e.value, true
}

// Refetching reports whether a background refetch for key is in flight.
func (c *QueryCache) Refetching(key string) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	e, ok := c.entries[key]
	return ok && e.refetching
}

// LastError is the error of the most recent failed background refetch.
func (c *QueryCache) LastError(key string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if e, ok := c.entries[key]; ok {
		return e.err
	}
	return nil
}

// OnChange registers fn to run after each background refetch settles.
// The returned func unregisters it.
func (c *QueryCache) OnChange(fn func(key string)) func() {
	c.mu.Lock()
	defer c.mu.Unlock()
	id := c.nextID
	c.nextID++
	c.listeners[id] = fn
	return func() {
		c.mu.Lock()
		defer c.mu.Unlock()
		delete(c.listeners, id)
	}
}

// Close stops delivering results and cancels background fetches.
func (c *QueryCache) Close() {
	c.mu.Lock()
	c.closed = true
	c.entries = make(map[string]*cacheEntry)
	c.mu.Unlock()
	c.cancel()
}

// Wait blocks until in-flight background refetches return.
func (c *QueryCache) Wait() {
	c.wg.Wait()
}
