package rbac

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"
	"golang.org/x/sync/singleflight"
)

// PolicyReader is the slice of the policy store the resolver needs.
type PolicyReader interface {
	EffectivePermissions(ctx context.Context, userID int64) ([]Permission, error)
}

// Resolver computes the effective permission set of a user: the union of the
// permissions of every role currently assigned. Results are cached in Redis;
// correctness never depends on the cache, which degrades to direct store
// reads when unavailable.
type Resolver struct {
	store  PolicyReader
	cache  *redis.Client
	ttl    time.Duration
	logger *slog.Logger
	group  singleflight.Group
}

type cachedPermission struct {
	Resource string `json:"resource"`
	Action   string `json:"action"`
}

// NewResolver constructs a Resolver. cache may be nil to disable caching.
func NewResolver(store PolicyReader, cache *redis.Client, ttl time.Duration, logger *slog.Logger) *Resolver {
	if logger == nil {
		logger = slog.Default()
	}
	return &Resolver{store: store, cache: cache, ttl: ttl, logger: logger}
}

// EffectivePermissions resolves the permission set for a user. Cache misses
// for the same user are collapsed into one store query. The epoch is read
// before the store query: an Invalidate landing mid-resolve bumps the epoch,
// so the fill lands on a key no later read will consult.
func (r *Resolver) EffectivePermissions(ctx context.Context, userID int64) (PermissionSet, error) {
	epoch := r.epoch(ctx, userID)
	if set, ok := r.fromCache(ctx, userID, epoch); ok {
		return set, nil
	}

	result, err, _ := r.group.Do(strconv.FormatInt(userID, 10), func() (any, error) {
		perms, err := r.store.EffectivePermissions(ctx, userID)
		if err != nil {
			return nil, err
		}
		r.prime(ctx, userID, epoch, perms)
		return perms, nil
	})
	if err != nil {
		return nil, err
	}
	return NewPermissionSet(result.([]Permission)), nil
}

// Warm primes the cache for a user without consulting it first. Background
// jobs use it after administrative mutations.
func (r *Resolver) Warm(ctx context.Context, userID int64) error {
	epoch := r.epoch(ctx, userID)
	perms, err := r.store.EffectivePermissions(ctx, userID)
	if err != nil {
		return err
	}
	r.prime(ctx, userID, epoch, perms)
	return nil
}

// Invalidate drops cached permission sets for the given users by bumping
// their epoch. Call it from every mutation touching a user's roles or a held
// role's permissions. Superseded entries are left to expire with their TTL.
func (r *Resolver) Invalidate(ctx context.Context, userIDs ...int64) {
	if r.cache == nil || len(userIDs) == 0 {
		return
	}
	for _, id := range userIDs {
		if err := r.cache.Incr(ctx, epochKey(id)).Err(); err != nil {
			r.logger.Warn("authz cache invalidate", slog.Any("error", err))
		}
	}
}

// epoch returns the user's current invalidation epoch. A missing key reads
// as zero; errors read as zero too, which only means a cache miss.
func (r *Resolver) epoch(ctx context.Context, userID int64) int64 {
	if r.cache == nil {
		return 0
	}
	epoch, err := r.cache.Get(ctx, epochKey(userID)).Int64()
	if err != nil {
		if !errors.Is(err, redis.Nil) {
			r.logger.Warn("authz cache epoch read", slog.Any("error", err))
		}
		return 0
	}
	return epoch
}

func (r *Resolver) fromCache(ctx context.Context, userID, epoch int64) (PermissionSet, bool) {
	if r.cache == nil {
		return nil, false
	}
	payload, err := r.cache.Get(ctx, cacheKey(userID, epoch)).Bytes()
	if err != nil {
		if !errors.Is(err, redis.Nil) {
			r.logger.Warn("authz cache read", slog.Any("error", err))
		}
		return nil, false
	}
	var cached []cachedPermission
	if err := json.Unmarshal(payload, &cached); err != nil {
		r.logger.Warn("authz cache decode", slog.Any("error", err))
		return nil, false
	}
	perms := make([]Permission, 0, len(cached))
	for _, c := range cached {
		perms = append(perms, Permission{Resource: Resource(c.Resource), Action: Action(c.Action)})
	}
	return NewPermissionSet(perms), true
}

func (r *Resolver) prime(ctx context.Context, userID, epoch int64, perms []Permission) {
	if r.cache == nil {
		return
	}
	cached := make([]cachedPermission, 0, len(perms))
	for _, p := range perms {
		cached = append(cached, cachedPermission{Resource: string(p.Resource), Action: string(p.Action)})
	}
	payload, err := json.Marshal(cached)
	if err != nil {
		return
	}
	if err := r.cache.Set(ctx, cacheKey(userID, epoch), payload, r.ttl).Err(); err != nil {
		r.logger.Warn("authz cache write", slog.Any("error", err))
	}
}

func cacheKey(userID, epoch int64) string {
	return "authz:perms:" + strconv.FormatInt(userID, 10) + ":" + strconv.FormatInt(epoch, 10)
}

func epochKey(userID int64) string {
	return "authz:perms:epoch:" + strconv.FormatInt(userID, 10)
}
