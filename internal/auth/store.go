package auth

import (
	"sort"
	"sync"
	"time"

	"github.com/rs/zerolog/log"
)

// Store holds at most one Session per chat user. Events for the same user are
// serialized through Acquire; events for different users never wait on each
// other beyond the short map lookup.
type Store struct {
	mu    sync.Mutex
	slots map[int64]*slot
	live  int
	now   func() time.Time
}

type slot struct {
	mu      sync.Mutex
	session *Session

	// guarded by Store.mu
	refs     int
	occupied bool
	touched  time.Time
}

func NewStore() *Store {
	return &Store{
		slots: make(map[int64]*slot),
		now:   time.Now,
	}
}

// Lease is exclusive access to one user's entry. Callers must Release it.
type Lease struct {
	store  *Store
	userID int64
	slot   *slot
}

// Acquire blocks until no other lease for userID is held.
func (s *Store) Acquire(userID int64) *Lease {
	s.mu.Lock()
	sl, ok := s.slots[userID]
	if !ok {
		sl = &slot{}
		s.slots[userID] = sl
	}
	sl.refs++
	s.mu.Unlock()

	sl.mu.Lock()
	return &Lease{store: s, userID: userID, slot: sl}
}

func (l *Lease) UserID() int64 {
	return l.userID
}

// Get returns the current session or nil when the user is idle.
func (l *Lease) Get() *Session {
	return l.slot.session
}

// Set stores sess and marks the entry as touched. Replacing a session that
// holds a different remote client disconnects the old client.
func (l *Lease) Set(sess *Session) {
	old := l.slot.session
	if old != nil && old != sess && old.Client != nil && old.Client != sess.Client {
		disconnect(l.userID, old)
	}
	l.slot.session = sess

	l.store.mu.Lock()
	if !l.slot.occupied {
		l.store.live++
	}
	l.slot.occupied = true
	l.slot.touched = l.store.now()
	l.store.mu.Unlock()
}

// Clear removes the session and disconnects its remote client. Clearing an
// idle user is a no-op.
func (l *Lease) Clear() {
	old := l.slot.session
	if old == nil {
		return
	}
	l.slot.session = nil
	if old.Client != nil {
		disconnect(l.userID, old)
	}

	l.store.mu.Lock()
	if l.slot.occupied {
		l.store.live--
	}
	l.slot.occupied = false
	l.store.mu.Unlock()
}

// TouchedBefore reports whether the session was last written before cutoff.
func (l *Lease) TouchedBefore(cutoff time.Time) bool {
	l.store.mu.Lock()
	defer l.store.mu.Unlock()
	return l.slot.occupied && l.slot.touched.Before(cutoff)
}

func (l *Lease) Release() {
	l.slot.mu.Unlock()

	s := l.store
	s.mu.Lock()
	l.slot.refs--
	if l.slot.refs == 0 && !l.slot.occupied {
		delete(s.slots, l.userID)
	}
	s.mu.Unlock()
}

// Len is the number of users with an in-flight authentication.
func (s *Store) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.live
}

// Users lists users with an in-flight authentication.
func (s *Store) Users() []int64 {
	return s.collect(func(*slot) bool { return true })
}

// IdleUsers lists users whose session has not been written since cutoff.
// The result is a snapshot; callers recheck under a lease.
func (s *Store) IdleUsers(cutoff time.Time) []int64 {
	return s.collect(func(sl *slot) bool { return sl.touched.Before(cutoff) })
}

func (s *Store) collect(keep func(*slot) bool) []int64 {
	s.mu.Lock()
	defer s.mu.Unlock()

	users := make([]int64, 0, s.live)
	for id, sl := range s.slots {
		if sl.occupied && keep(sl) {
			users = append(users, id)
		}
	}
	sort.Slice(users, func(i, j int) bool { return users[i] < users[j] })
	return users
}

func disconnect(userID int64, sess *Session) {
	if err := sess.Client.Disconnect(); err != nil {
		log.Warn().Err(err).
			Int64("userId", userID).
			Str("attemptId", sess.AttemptID).
			Msg("failed to disconnect remote client")
	}
}
