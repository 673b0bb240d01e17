package verifier

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/lestrrat-go/jwx/v2/jwk"
	log "github.com/sirupsen/logrus"
)

// KeySet caches the provider's published signing keys with a TTL.
//
// The cache is shared across concurrent validations. Refreshes are fetched
// outside the lock; the last successful fetch wins. A request whose context
// is cancelled gets an error from the fetch rather than a partial result.
type KeySet struct {
	url string
	ttl time.Duration

	mu        sync.RWMutex
	set       jwk.Set
	fetchedAt time.Time
}

// NewKeySet creates a key-set cache for the given JWKS URL. A ttl of zero
// disables caching and forces a fetch on every validation.
func NewKeySet(jwksURL string, ttl time.Duration) *KeySet {
	return &KeySet{url: jwksURL, ttl: ttl}
}

// URL returns the JWKS URL the cache fetches from.
func (k *KeySet) URL() string { return k.url }

// KeyForID resolves the public key for a token's kid header.
//
// When the kid is absent from a cached key set, exactly one refetch is
// forced before giving up, so freshly rotated provider keys are picked up
// without restarting the process.
func (k *KeySet) KeyForID(ctx context.Context, kid string) (any, error) {
	set, cached, err := k.current(ctx)
	if err != nil {
		return nil, newError(KindKeyRetrieval, err)
	}
	if key, ok := set.LookupKeyID(kid); ok {
		return rawKey(key)
	}
	if cached {
		set, err = k.refresh(ctx)
		if err != nil {
			return nil, newError(KindKeyRetrieval, err)
		}
		if key, ok := set.LookupKeyID(kid); ok {
			return rawKey(key)
		}
	}
	return nil, newError(KindUnknownKey, errors.New("no key with kid "+kid))
}

// ForceRefresh refetches the key set regardless of TTL. Used by the
// scheduled refresher; validation paths use KeyForID.
func (k *KeySet) ForceRefresh(ctx context.Context) error {
	_, err := k.refresh(ctx)
	return err
}

// current returns the cached set when fresh, fetching otherwise. cached
// reports whether the returned set was served from cache.
func (k *KeySet) current(ctx context.Context) (set jwk.Set, cached bool, err error) {
	k.mu.RLock()
	set, fetchedAt := k.set, k.fetchedAt
	k.mu.RUnlock()
	if set != nil && time.Since(fetchedAt) < k.ttl {
		return set, true, nil
	}
	set, err = k.refresh(ctx)
	return set, false, err
}

func (k *KeySet) refresh(ctx context.Context) (jwk.Set, error) {
	set, err := jwk.Fetch(ctx, k.url)
	if err != nil {
		return nil, err
	}
	if set.Len() == 0 {
		return nil, errors.New("key set contains no keys")
	}
	k.mu.Lock()
	k.set = set
	k.fetchedAt = time.Now()
	k.mu.Unlock()
	log.WithFields(log.Fields{"jwks_url": k.url, "keys": set.Len()}).Debug("refreshed signing key set")
	return set, nil
}

// rawKey extracts the crypto public key (e.g. *rsa.PublicKey) from a JWK.
// Failure here means the provider served unusable key material.
func rawKey(key jwk.Key) (any, error) {
	var raw any
	if err := key.Raw(&raw); err != nil {
		return nil, newError(KindKeyRetrieval, err)
	}
	return raw, nil
}
