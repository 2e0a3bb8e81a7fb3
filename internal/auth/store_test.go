package auth

import (
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStore_SetGetClear(t *testing.T) {
	store := NewStore()

	lease := store.Acquire(1)
	assert.Nil(t, lease.Get())

	sess := &Session{AttemptID: "a", Phase: PhaseAwaitingContact}
	lease.Set(sess)
	assert.Same(t, sess, lease.Get())
	assert.Equal(t, 1, store.Len())

	lease.Set(sess)
	assert.Equal(t, 1, store.Len(), "re-setting the same session does not double count")

	lease.Clear()
	assert.Nil(t, lease.Get())
	assert.Equal(t, 0, store.Len())

	lease.Clear()
	assert.Equal(t, 0, store.Len())
	lease.Release()

	store.mu.Lock()
	assert.Empty(t, store.slots, "idle entries are dropped on release")
	store.mu.Unlock()
}

func TestStore_DisconnectsReplacedClient(t *testing.T) {
	t.Run("clear disconnects", func(t *testing.T) {
		store := NewStore()
		client := new(mockClient)
		client.On("Disconnect").Return(nil).Once()

		lease := store.Acquire(1)
		lease.Set(&Session{Client: client})
		lease.Clear()
		lease.Release()

		client.AssertExpectations(t)
	})

	t.Run("replacing with a new client disconnects the old one", func(t *testing.T) {
		store := NewStore()
		oldClient := new(mockClient)
		oldClient.On("Disconnect").Return(assert.AnError).Once()
		newClient := new(mockClient)

		lease := store.Acquire(1)
		lease.Set(&Session{Client: oldClient})
		lease.Set(&Session{Client: newClient})
		lease.Release()

		oldClient.AssertExpectations(t)
		newClient.AssertNotCalled(t, "Disconnect")
		assert.Equal(t, 1, store.Len())
	})

	t.Run("updating the same session keeps the client", func(t *testing.T) {
		store := NewStore()
		client := new(mockClient)

		lease := store.Acquire(1)
		sess := &Session{Client: client}
		lease.Set(sess)
		sess.Code = "1"
		lease.Set(sess)
		lease.Release()

		client.AssertNotCalled(t, "Disconnect")
	})
}

func TestStore_SerializesSameUser(t *testing.T) {
	store := NewStore()

	first := store.Acquire(7)
	acquired := make(chan struct{})
	go func() {
		lease := store.Acquire(7)
		close(acquired)
		lease.Release()
	}()

	select {
	case <-acquired:
		t.Fatal("second lease acquired while first was held")
	case <-time.After(50 * time.Millisecond):
	}

	first.Release()

	select {
	case <-acquired:
	case <-time.After(time.Second):
		t.Fatal("second lease never acquired")
	}
}

func TestStore_DifferentUsersDoNotBlock(t *testing.T) {
	store := NewStore()

	held := store.Acquire(1)
	defer held.Release()

	done := make(chan struct{})
	go func() {
		lease := store.Acquire(2)
		lease.Set(&Session{})
		lease.Release()
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("lease for another user blocked")
	}
}

func TestStore_KeepsSessionAcrossInterleavedReleases(t *testing.T) {
	store := NewStore()
	var wg sync.WaitGroup

	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			lease := store.Acquire(9)
			if lease.Get() == nil {
				lease.Set(&Session{AttemptID: "keep"})
			}
			lease.Release()
		}()
	}
	wg.Wait()

	lease := store.Acquire(9)
	defer lease.Release()
	require.NotNil(t, lease.Get())
	assert.Equal(t, "keep", lease.Get().AttemptID)
	assert.Equal(t, 1, store.Len())
}

func TestStore_IdleUsers(t *testing.T) {
	store := NewStore()
	now := time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)
	store.now = func() time.Time { return now }

	for _, id := range []int64{3, 1} {
		lease := store.Acquire(id)
		lease.Set(&Session{})
		lease.Release()
	}

	now = now.Add(10 * time.Minute)
	lease := store.Acquire(2)
	lease.Set(&Session{})
	lease.Release()

	cutoff := now.Add(-5 * time.Minute)
	assert.Equal(t, []int64{1, 3}, store.IdleUsers(cutoff))
	assert.Equal(t, []int64{1, 2, 3}, store.Users())

	lease = store.Acquire(1)
	assert.True(t, lease.TouchedBefore(cutoff))
	lease.Release()

	lease = store.Acquire(2)
	assert.False(t, lease.TouchedBefore(cutoff))
	lease.Release()
}
