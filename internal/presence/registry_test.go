package presence

import (
	"context"
	"fmt"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"tawk-service/internal/testutil"
)

type fakePeer struct {
	mu     sync.Mutex
	events []string
}

func (p *fakePeer) Send(event string, payload any) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, event)
	return nil
}

type recordingStore struct {
	mu      sync.Mutex
	online  []int
	offline []int
	fail    bool
}

func (s *recordingStore) SetOnline(ctx context.Context, userID int, connID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.fail {
		return assert.AnError
	}
	s.online = append(s.online, userID)
	return nil
}

func (s *recordingStore) SetOffline(ctx context.Context, userID int) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.fail {
		return assert.AnError
	}
	s.offline = append(s.offline, userID)
	return nil
}

func TestRegisterResolveUnregister(t *testing.T) {
	store := &recordingStore{}
	registry := NewRegistry(store, testutil.MakeNoopLogger())
	peer := &fakePeer{}

	registry.Register(context.Background(), 1, "conn-a", peer)

	resolved, ok := registry.Resolve(1)
	require.True(t, ok)
	assert.Same(t, peer, resolved.(*fakePeer))
	assert.True(t, registry.Online(1))
	assert.Equal(t, []int{1}, store.online)

	registry.Unregister(context.Background(), 1, "conn-a")

	_, ok = registry.Resolve(1)
	assert.False(t, ok)
	assert.False(t, registry.Online(1))
	assert.Equal(t, []int{1}, store.offline)
}

func TestRegisterOverwritesOnReconnect(t *testing.T) {
	registry := NewRegistry(nil, testutil.MakeNoopLogger())
	first := &fakePeer{}
	second := &fakePeer{}

	registry.Register(context.Background(), 1, "conn-a", first)
	registry.Register(context.Background(), 1, "conn-b", second)

	resolved, ok := registry.Resolve(1)
	require.True(t, ok)
	assert.Same(t, second, resolved.(*fakePeer))
}

func TestUnregisterStaleConnIsNoOp(t *testing.T) {
	store := &recordingStore{}
	registry := NewRegistry(store, testutil.MakeNoopLogger())

	registry.Register(context.Background(), 1, "conn-a", &fakePeer{})
	registry.Register(context.Background(), 1, "conn-b", &fakePeer{})

	// The old connection closing must not knock the new one offline.
	registry.Unregister(context.Background(), 1, "conn-a")

	assert.True(t, registry.Online(1))
	assert.Empty(t, store.offline)

	registry.Unregister(context.Background(), 1, "conn-b")
	assert.False(t, registry.Online(1))
	assert.Equal(t, []int{1}, store.offline)
}

func TestStoreFailureDoesNotBlockRegistry(t *testing.T) {
	store := &recordingStore{fail: true}
	registry := NewRegistry(store, testutil.MakeNoopLogger())

	registry.Register(context.Background(), 1, "conn-a", &fakePeer{})
	assert.True(t, registry.Online(1))

	registry.Unregister(context.Background(), 1, "conn-a")
	assert.False(t, registry.Online(1))
}

func TestRegistryConcurrentAccess(t *testing.T) {
	registry := NewRegistry(nil, testutil.MakeNoopLogger())

	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func(userID int) {
			defer wg.Done()
			connID := fmt.Sprintf("conn-%d", userID)
			registry.Register(context.Background(), userID, connID, &fakePeer{})
			registry.Online(userID)
			registry.Unregister(context.Background(), userID, connID)
		}(i)
	}
	wg.Wait()

	for i := 0; i < 50; i++ {
		assert.False(t, registry.Online(i))
	}
}
