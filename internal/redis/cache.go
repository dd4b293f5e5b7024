package redis

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/shopspring/decimal"
)

// CacheStore caches driver balance projections in Redis. The database stays
// the source of truth. Every entry carries the account version it was read
// at, and a write never replaces an entry of the same or a newer version.
type CacheStore struct {
	client *redis.Client
	ttl    time.Duration
}

// BalanceCacheTTL bounds how long a projection may be served without a commit.
const BalanceCacheTTL = 30 * time.Second

const balanceCachePrefix = "cache:balance:"

// setIfNewer stores ARGV[1] unless the current entry has a version >= ARGV[2].
// Returns 1 when the entry was written.
var setIfNewer = redis.NewScript(`
local current = redis.call('GET', KEYS[1])
if current then
	local ok, decoded = pcall(cjson.decode, current)
	if ok and type(decoded) == 'table' and tonumber(decoded.version) and tonumber(decoded.version) >= tonumber(ARGV[2]) then
		return 0
	end
end
redis.call('SET', KEYS[1], ARGV[1], 'PX', ARGV[3])
return 1
`)

// NewCacheStore creates a new CacheStore.
func NewCacheStore(client *redis.Client) *CacheStore {
	return &CacheStore{client: client, ttl: BalanceCacheTTL}
}

// CachedBalance represents a cached driver balance.
type CachedBalance struct {
	DriverKey string          `json:"driver_key"`
	Balance   decimal.Decimal `json:"balance"`
	TripCount int             `json:"trip_count"`
	Version   int64           `json:"version"`
	CachedAt  time.Time       `json:"cached_at"`
}

// GetBalance retrieves a driver balance from cache. Returns nil on a miss.
func (s *CacheStore) GetBalance(ctx context.Context, driverKey string) (*CachedBalance, error) {
	data, err := s.client.Get(ctx, balanceCachePrefix+driverKey).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, nil // Cache miss
		}
		return nil, err
	}

	var cached CachedBalance
	if err := json.Unmarshal(data, &cached); err != nil {
		return nil, err
	}
	return &cached, nil
}

// SetBalance stores a driver balance unless the cache already holds the same
// or a newer version.
func (s *CacheStore) SetBalance(ctx context.Context, balance *CachedBalance) error {
	data, err := json.Marshal(balance)
	if err != nil {
		return err
	}
	keys := []string{balanceCachePrefix + balance.DriverKey}
	return setIfNewer.Run(ctx, s.client, keys, data, balance.Version, s.ttl.Milliseconds()).Err()
}

// InvalidateBalance removes a driver balance from cache.
func (s *CacheStore) InvalidateBalance(ctx context.Context, driverKey string) error {
	return s.client.Del(ctx, balanceCachePrefix+driverKey).Err()
}
