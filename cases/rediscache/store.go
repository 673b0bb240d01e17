// Package rediscases adds a read-through Redis cache in front of a case
// store. Lookups hit Redis first; misses fall through to the wrapped store
// and populate the cache with a TTL. Cache errors degrade to the wrapped
// store rather than failing the request.
package rediscases

import (
	"context"
	"time"

	"github.com/redis/go-redis/v9"
	log "github.com/sirupsen/logrus"

	"github.com/juslabs/casegate/cases"
)

// Store decorates a cases.Store with Redis caching.
type Store struct {
	next  cases.Store
	rdb   *redis.Client
	keyNS string
	ttl   time.Duration
}

// New wraps next with a Redis cache. keyPrefix defaults to
// "casegate:process:" and ttl to 10 minutes.
func New(next cases.Store, rdb *redis.Client, keyPrefix string, ttl time.Duration) *Store {
	if keyPrefix == "" {
		keyPrefix = "casegate:process:"
	}
	if ttl <= 0 {
		ttl = 10 * time.Minute
	}
	return &Store{next: next, rdb: rdb, keyNS: keyPrefix, ttl: ttl}
}

func (s *Store) key(protocol string) string { return s.keyNS + protocol }

// ProcessNumber implements cases.Store.
func (s *Store) ProcessNumber(ctx context.Context, protocol string) (string, error) {
	number, err := s.rdb.Get(ctx, s.key(protocol)).Result()
	if err == nil && number != "" {
		return number, nil
	}
	if err != nil && err != redis.Nil {
		log.WithError(err).Warn("process cache read failed")
	}

	number, err = s.next.ProcessNumber(ctx, protocol)
	if err != nil {
		return "", err
	}
	if err := s.rdb.Set(ctx, s.key(protocol), number, s.ttl).Err(); err != nil {
		log.WithError(err).Warn("process cache write failed")
	}
	return number, nil
}
