// Package proxy picks the egress path used to reach the remote account
// service for a given phone number.
package proxy

import (
	"context"
	"fmt"
	"net/url"

	"github.com/cespare/xxhash/v2"
	"github.com/rs/zerolog/log"

	"github.com/openclaw/sessionkeeper/internal/model"
	"github.com/openclaw/sessionkeeper/internal/util"
)

// Assignment is the egress path chosen for one phone. Index is the position
// in the configured pool and is what gets persisted with a stored session.
// Unconfirmed is set when the stored session could not be read, so Index
// must not replace an index already on record.
type Assignment struct {
	Index       int
	URL         *url.URL
	Unconfirmed bool
}

func (a Assignment) String() string {
	if a.URL == nil {
		return fmt.Sprintf("#%d", a.Index)
	}
	return fmt.Sprintf("#%d(%s)", a.Index, a.URL.Host)
}

// SessionLookup is the slice of the account session repository the resolver needs.
type SessionLookup interface {
	FindByPhone(ctx context.Context, phone string) (*model.AccountSession, error)
}

type Resolver struct {
	pool     []*url.URL
	sessions SessionLookup
}

// NewResolver panics on an empty pool; config.Validate rejects that at startup.
func NewResolver(pool []*url.URL, sessions SessionLookup) *Resolver {
	if len(pool) == 0 {
		panic("proxy: empty egress pool")
	}
	return &Resolver{pool: pool, sessions: sessions}
}

func (r *Resolver) Size() int {
	return len(r.pool)
}

// Resolve returns the proxy a stored session for phone was created under, or
// a hash-derived default when there is none. It never fails: lookup errors
// and stale indexes fall back to the hash.
func (r *Resolver) Resolve(ctx context.Context, phone string) Assignment {
	stored, err := r.sessions.FindByPhone(ctx, phone)
	if err != nil {
		log.Warn().
			Err(err).
			Str("phone", util.MaskPhone(phone)).
			Msg("proxy affinity lookup failed, using hashed proxy")
		assignment := r.at(HashIndex(phone, len(r.pool)))
		assignment.Unconfirmed = true
		return assignment
	}

	if stored != nil {
		if stored.ProxyIndex >= 0 && stored.ProxyIndex < len(r.pool) {
			return r.at(stored.ProxyIndex)
		}
		log.Warn().
			Str("phone", util.MaskPhone(phone)).
			Int("proxyIndex", stored.ProxyIndex).
			Int("poolSize", len(r.pool)).
			Msg("stored proxy index out of range, using hashed proxy")
	}

	return r.at(HashIndex(phone, len(r.pool)))
}

func (r *Resolver) at(index int) Assignment {
	return Assignment{Index: index, URL: r.pool[index]}
}

// HashIndex maps phone onto [0, n) with a stable hash.
func HashIndex(phone string, n int) int {
	return int(xxhash.Sum64String(phone) % uint64(n))
}
