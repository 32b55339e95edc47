package sessions

import (
	"time"

	lru "github.com/hashicorp/golang-lru"

	"github.com/glucolink/cgm/config"
)

// Cache keeps vendor sessions between fetches so adapters only authenticate
// when they have to. Entries are stored by value and never mutated in place.
type Cache interface {
	Get(key string) (*Session, bool)
	Put(key string, session Session)
	Invalidate(key string)
}

type cache struct {
	entries *lru.Cache
	ttl     time.Duration
}

var _ Cache = &cache{}

func NewCache(cfg *config.Config) (Cache, error) {
	entries, err := lru.New(cfg.SessionCacheSize)
	if err != nil {
		return nil, err
	}

	return &cache{
		entries: entries,
		ttl:     cfg.SessionTTL,
	}, nil
}

// Get returns a copy of the cached session. Expired entries are evicted and
// reported as absent.
func (c *cache) Get(key string) (*Session, bool) {
	value, ok := c.entries.Get(key)
	if !ok {
		return nil, false
	}

	session := value.(Session)
	if session.Expired(time.Now()) {
		c.entries.Remove(key)
		return nil, false
	}

	return &session, true
}

// Put stores the session with a fresh expiry. The configured TTL wins over
// whatever ExpiresAt the caller set.
func (c *cache) Put(key string, session Session) {
	session.ExpiresAt = time.Now().Add(c.ttl)
	c.entries.Add(key, session)
}

func (c *cache) Invalidate(key string) {
	c.entries.Remove(key)
}
