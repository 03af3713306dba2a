package storage

import (
	"context"
	"encoding/json"
	"errors"
	"log"
	"time"

	"sampark/backend/internal/config"
	"sampark/backend/internal/models"

	"github.com/redis/go-redis/v9"
)

// ErrCacheUnavailable is logged, never returned, when redis is not configured.
var ErrCacheUnavailable = errors.New("cache unavailable")

// Cache holds the per-user "my grievances" snapshot and the auto-saved
// submission form. Every method is best effort: failures are logged and
// reported to the caller as a miss.
type Cache struct {
	Redis   *redis.Client
	TTL     time.Duration
	Timeout time.Duration
}

// NewCache accepts a nil client, which turns every call into a no-op.
func NewCache(rdb *redis.Client, ttl time.Duration) *Cache {
	if ttl <= 0 {
		ttl = config.DefaultCacheTTL
	}
	return &Cache{
		Redis:   rdb,
		TTL:     ttl,
		Timeout: config.DefaultCacheTimeout,
	}
}

// errStaleList aborts a list write that lost the race with an invalidation.
var errStaleList = errors.New("grievance list invalidated during read")

func grievancesKey(userID string) string { return config.GrievancesKeyPrefix + userID }
func versionKey(userID string) string    { return config.GrievancesVersionKeyPrefix + userID }
func formKey(userID string) string       { return config.FormDataKeyPrefix + userID }

func (c *Cache) available(op string) bool {
	if c == nil || c.Redis == nil {
		log.Printf("WARNING: %s skipped: %v", op, ErrCacheUnavailable)
		return false
	}
	return true
}

func (c *Cache) withTimeout(ctx context.Context) (context.Context, context.CancelFunc) {
	if c.Timeout <= 0 {
		return context.WithCancel(ctx)
	}
	return context.WithTimeout(ctx, c.Timeout)
}

func (c *Cache) setJSON(ctx context.Context, key string, value any) bool {
	data, err := json.Marshal(value)
	if err != nil {
		log.Printf("ERROR: Failed to encode cache value for %s: %v", key, err)
		return false
	}
	ctx, cancel := c.withTimeout(ctx)
	defer cancel()
	if err := c.Redis.Set(ctx, key, data, c.TTL).Err(); err != nil {
		log.Printf("ERROR: Failed to write cache key %s: %v", key, err)
		return false
	}
	return true
}

func (c *Cache) getJSON(ctx context.Context, key string, dst any) bool {
	ctx, cancel := c.withTimeout(ctx)
	defer cancel()
	data, err := c.Redis.Get(ctx, key).Bytes()
	if errors.Is(err, redis.Nil) {
		return false
	}
	if err != nil {
		log.Printf("ERROR: Failed to read cache key %s: %v", key, err)
		return false
	}
	if err := json.Unmarshal(data, dst); err != nil {
		log.Printf("ERROR: Failed to decode cache key %s: %v", key, err)
		return false
	}
	return true
}

func (c *Cache) del(ctx context.Context, key string) {
	ctx, cancel := c.withTimeout(ctx)
	defer cancel()
	if err := c.Redis.Del(ctx, key).Err(); err != nil {
		log.Printf("ERROR: Failed to delete cache key %s: %v", key, err)
	}
}

// GetUserGrievances reports a hit only when a snapshot was found and decoded.
func (c *Cache) GetUserGrievances(ctx context.Context, userID string) ([]models.Grievance, bool) {
	if !c.available("grievance list read") {
		return nil, false
	}
	var grievances []models.Grievance
	if !c.getJSON(ctx, grievancesKey(userID), &grievances) {
		return nil, false
	}
	return grievances, true
}

// GrievancesVersion returns the owner's invalidation counter, or -1 when it
// cannot be read. Read it before loading the list from the store.
func (c *Cache) GrievancesVersion(ctx context.Context, userID string) int64 {
	if !c.available("grievance list version") {
		return -1
	}
	ctx, cancel := c.withTimeout(ctx)
	defer cancel()
	v, err := c.Redis.Get(ctx, versionKey(userID)).Int64()
	if errors.Is(err, redis.Nil) {
		return 0
	}
	if err != nil {
		log.Printf("ERROR: Failed to read cache key %s: %v", versionKey(userID), err)
		return -1
	}
	return v
}

// SetUserGrievances stores the list only if the owner's list has not been
// invalidated since version was read. A negative version never writes.
func (c *Cache) SetUserGrievances(ctx context.Context, userID string, version int64, grievances []models.Grievance) bool {
	if version < 0 || !c.available("grievance list write") {
		return false
	}
	if grievances == nil {
		grievances = []models.Grievance{}
	}
	data, err := json.Marshal(grievances)
	if err != nil {
		log.Printf("ERROR: Failed to encode cache value for %s: %v", grievancesKey(userID), err)
		return false
	}

	ctx, cancel := c.withTimeout(ctx)
	defer cancel()
	err = c.Redis.Watch(ctx, func(tx *redis.Tx) error {
		current, err := tx.Get(ctx, versionKey(userID)).Int64()
		if errors.Is(err, redis.Nil) {
			current = 0
		} else if err != nil {
			return err
		}
		if current != version {
			return errStaleList
		}
		_, err = tx.TxPipelined(ctx, func(p redis.Pipeliner) error {
			p.Set(ctx, grievancesKey(userID), data, c.TTL)
			return nil
		})
		return err
	}, versionKey(userID))

	switch {
	case err == nil:
		log.Printf("INFO: Grievances cached for user %s (%d items)", userID, len(grievances))
		return true
	case errors.Is(err, errStaleList), errors.Is(err, redis.TxFailedErr):
		log.Printf("INFO: Skipped caching grievances for user %s: list changed while loading", userID)
	default:
		log.Printf("ERROR: Failed to write cache key %s: %v", grievancesKey(userID), err)
	}
	return false
}

// InvalidateUserGrievances drops the cached list and bumps the version so
// that a reader still holding the old version cannot write it back.
func (c *Cache) InvalidateUserGrievances(ctx context.Context, userID string) {
	if !c.available("grievance list invalidation") {
		return
	}
	ctx, cancel := c.withTimeout(ctx)
	defer cancel()
	_, err := c.Redis.TxPipelined(ctx, func(p redis.Pipeliner) error {
		p.Incr(ctx, versionKey(userID))
		// переживає будь-який список, закешований до інвалідації
		p.Expire(ctx, versionKey(userID), 2*c.TTL)
		p.Del(ctx, grievancesKey(userID))
		return nil
	})
	if err != nil {
		log.Printf("ERROR: Failed to invalidate grievances of user %s: %v", userID, err)
	}
}

// SaveDraft stores the form snapshot and reports whether it was written.
func (c *Cache) SaveDraft(ctx context.Context, userID string, draft *models.DraftForm) bool {
	if !c.available("draft save") {
		return false
	}
	if draft.SavedAt.IsZero() {
		draft.SavedAt = time.Now().UTC()
	}
	return c.setJSON(ctx, formKey(userID), draft)
}

// GetDraft returns nil when there is no saved draft.
func (c *Cache) GetDraft(ctx context.Context, userID string) *models.DraftForm {
	if !c.available("draft restore") {
		return nil
	}
	var draft models.DraftForm
	if !c.getJSON(ctx, formKey(userID), &draft) {
		return nil
	}
	return &draft
}

func (c *Cache) ClearDraft(ctx context.Context, userID string) {
	if !c.available("draft clear") {
		return
	}
	c.del(ctx, formKey(userID))
}
