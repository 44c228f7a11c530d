package viewstate

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"crm-contacts/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
)

type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

func TestCacheKeys(t *testing.T) {
	assert.Equal(t, "contacts.list", ContactsListKey(models.ContactListRequest{}))
	assert.Equal(t, "contacts.list?group_id=g1&search=jane", ContactsListKey(models.ContactListRequest{Search: "jane", GroupID: "g1"}))
	assert.Equal(t, "groups.forContact:c1", GroupsForContactKey("c1"))
	assert.Equal(t, "storage.fileUrl:avatars/a.png", FileURLKey("avatars/a.png"))
}

func TestQueryCache_FirstQueryBlocksThenHits(t *testing.T) {
	defer goleak.VerifyNone(t)
	c := NewQueryCache(DefaultCacheTTLs())
	defer func() { c.Close(); c.Wait() }()

	var calls atomic.Int32
	fetch := func(context.Context) ([]string, error) {
		calls.Add(1)
		return []string{"a"}, nil
	}

	v, refetching, err := Query(context.Background(), c, GroupsListKey, fetch)
	require.NoError(t, err)
	assert.False(t, refetching)
	assert.Equal(t, []string{"a"}, v)

	v, refetching, err = Query(context.Background(), c, GroupsListKey, fetch)
	require.NoError(t, err)
	assert.False(t, refetching)
	assert.Equal(t, []string{"a"}, v)
	assert.EqualValues(t, 1, calls.Load())
}

func TestQueryCache_FirstQueryErrorIsNotCached(t *testing.T) {
	defer goleak.VerifyNone(t)
	c := NewQueryCache(DefaultCacheTTLs())
	defer func() { c.Close(); c.Wait() }()

	_, _, err := Query(context.Background(), c, GroupsListKey, func(context.Context) ([]string, error) {
		return nil, errGateway
	})
	assert.ErrorIs(t, err, errGateway)

	v, _, err := Query(context.Background(), c, GroupsListKey, func(context.Context) ([]string, error) {
		return []string{"ok"}, nil
	})
	require.NoError(t, err)
	assert.Equal(t, []string{"ok"}, v)
}

func TestQueryCache_KeepsPreviousDataWhileRefetching(t *testing.T) {
	defer goleak.VerifyNone(t)
	c := NewQueryCache(DefaultCacheTTLs())
	defer func() { c.Close(); c.Wait() }()

	release := make(chan struct{})
	var version atomic.Int32
	fetch := func(ctx context.Context) (int32, error) {
		n := version.Add(1)
		if n > 1 {
			<-release
		}
		return n, nil
	}

	key := ContactsListKey(models.ContactListRequest{})
	v, _, err := Query(context.Background(), c, key, fetch)
	require.NoError(t, err)
	assert.EqualValues(t, 1, v)

	changed := make(chan string, 1)
	unsubscribe := c.OnChange(func(k string) { changed <- k })
	defer unsubscribe()

	c.Invalidate(key)
	assert.True(t, c.Refetching(key))

	v, refetching, err := Query(context.Background(), c, key, fetch)
	require.NoError(t, err)
	assert.True(t, refetching)
	assert.EqualValues(t, 1, v)

	close(release)
	select {
	case k := <-changed:
		assert.Equal(t, key, k)
	case <-time.After(2 * time.Second):
		t.Fatal("refetch did not settle")
	}

	v, refetching, err = Query(context.Background(), c, key, fetch)
	require.NoError(t, err)
	assert.False(t, refetching)
	assert.EqualValues(t, 2, v)
}

func TestQueryCache_TTLExpiry(t *testing.T) {
	defer goleak.VerifyNone(t)
	clock := &fakeClock{now: scenarioNow}
	c := NewQueryCache(DefaultCacheTTLs(), WithCacheClock(clock.Now))
	defer func() { c.Close(); c.Wait() }()

	var calls atomic.Int32
	fetch := func(context.Context) (string, error) {
		calls.Add(1)
		return "signed", nil
	}
	key := FileURLKey("avatars/jane.png")

	_, _, err := Query(context.Background(), c, key, fetch)
	require.NoError(t, err)

	clock.Advance(54 * time.Minute)
	_, refetching, err := Query(context.Background(), c, key, fetch)
	require.NoError(t, err)
	assert.False(t, refetching)

	clock.Advance(2 * time.Minute)
	v, refetching, err := Query(context.Background(), c, key, fetch)
	require.NoError(t, err)
	assert.True(t, refetching)
	assert.Equal(t, "signed", v)

	c.Wait()
	assert.EqualValues(t, 2, calls.Load())
}

func TestQueryCache_ContactsNeverExpireByTime(t *testing.T) {
	defer goleak.VerifyNone(t)
	clock := &fakeClock{now: scenarioNow}
	c := NewQueryCache(DefaultCacheTTLs(), WithCacheClock(clock.Now))
	defer func() { c.Close(); c.Wait() }()

	fetch := func(context.Context) ([]models.Contact, error) { return nil, nil }
	key := ContactsListKey(models.ContactListRequest{})
	_, _, err := Query(context.Background(), c, key, fetch)
	require.NoError(t, err)

	clock.Advance(24 * time.Hour)
	_, refetching, err := Query(context.Background(), c, key, fetch)
	require.NoError(t, err)
	assert.False(t, refetching)
}

func TestQueryCache_InvalidatePrefix(t *testing.T) {
	defer goleak.VerifyNone(t)
	c := NewQueryCache(DefaultCacheTTLs())
	defer func() { c.Close(); c.Wait() }()

	var calls atomic.Int32
	fetch := func(context.Context) (int, error) {
		calls.Add(1)
		return 1, nil
	}
	for _, key := range []string{"contacts.list", "contacts.list?group_id=g1", GroupsListKey} {
		_, _, err := Query(context.Background(), c, key, fetch)
		require.NoError(t, err)
	}

	c.InvalidatePrefix(ContactsListPrefix)
	c.Wait()
	assert.EqualValues(t, 5, calls.Load())
}

func TestQueryCache_FailedRefetchKeepsData(t *testing.T) {
	defer goleak.VerifyNone(t)
	c := NewQueryCache(DefaultCacheTTLs())
	defer func() { c.Close(); c.Wait() }()

	var fail atomic.Bool
	fetch := func(context.Context) (string, error) {
		if fail.Load() {
			return "", errGateway
		}
		return "v1", nil
	}
	_, _, err := Query(context.Background(), c, GroupsListKey, fetch)
	require.NoError(t, err)

	fail.Store(true)
	c.Invalidate(GroupsListKey)
	c.Wait()

	assert.ErrorIs(t, c.LastError(GroupsListKey), errGateway)
	v, ok := c.Peek(GroupsListKey)
	require.True(t, ok)
	assert.Equal(t, "v1", v)
}

func TestQueryCache_SingleflightCollapsesFirstFetch(t *testing.T) {
	defer goleak.VerifyNone(t)
	c := NewQueryCache(DefaultCacheTTLs())
	defer func() { c.Close(); c.Wait() }()

	release := make(chan struct{})
	var calls atomic.Int32
	fetch := func(context.Context) (string, error) {
		calls.Add(1)
		<-release
		return "x", nil
	}

	var wg sync.WaitGroup
	for range 5 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			v, _, err := Query(context.Background(), c, GroupsListKey, fetch)
			assert.NoError(t, err)
			assert.Equal(t, "x", v)
		}()
	}
	time.Sleep(50 * time.Millisecond)
	close(release)
	wg.Wait()

	assert.EqualValues(t, 1, calls.Load())
}

func TestQueryCache_CloseDiscardsLateResults(t *testing.T) {
	defer goleak.VerifyNone(t)
	c := NewQueryCache(DefaultCacheTTLs())

	release := make(chan struct{})
	var calls atomic.Int32
	fetch := func(ctx context.Context) (string, error) {
		if calls.Add(1) > 1 {
			<-release
		}
		return "late", nil
	}
	_, _, err := Query(context.Background(), c, GroupsListKey, fetch)
	require.NoError(t, err)

	var notified atomic.Bool
	c.OnChange(func(string) { notified.Store(true) })

	c.Invalidate(GroupsListKey)
	c.Close()
	close(release)
	c.Wait()

	assert.False(t, notified.Load())
	_, ok := c.Peek(GroupsListKey)
	assert.False(t, ok)

	_, _, err = Query(context.Background(), c, GroupsListKey, fetch)
	assert.True(t, errors.Is(err, ErrViewClosed))
}
