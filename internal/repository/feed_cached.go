package repository

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"gorm.io/gorm"

	"github.com/d60-Lab/feedgraph/internal/model"
	"github.com/d60-Lab/feedgraph/pkg/metrics"
)

// snapshotLimit caps how many ids a communal snapshot keeps. Pages beyond
// the snapshot fall through to the primary store.
const snapshotLimit = 1200

// CachedFeedRepository layers Redis over the SQL implementation. Only the
// viewer-independent parts are cached: communal orderings as id lists and
// author profiles as JSON snapshots. Posts are always re-read from the
// primary store so deletions take effect immediately, and per-viewer
// timeline pages skip the cache entirely.
type CachedFeedRepository struct {
	sql   FeedRepository
	cache *redis.Client
	ttl   time.Duration
}

// NewCachedFeedRepository builds the Redis-backed repository on top of the
// SQL one.
func NewCachedFeedRepository(db *gorm.DB, cache *redis.Client, ttl time.Duration) FeedRepository {
	return &CachedFeedRepository{sql: NewSQLFeedRepository(db), cache: cache, ttl: ttl}
}

func (r *CachedFeedRepository) CommunalPage(ctx context.Context, sort FeedSort, offset, limit int) ([]string, error) {
	if offset+limit > snapshotLimit {
		return r.sql.CommunalPage(ctx, sort, offset, limit)
	}

	key := fmt.Sprintf("feed:communal:%s", sort)
	exists, _ := r.cache.Exists(ctx, key).Result()
	if exists > 0 {
		ids, err := r.cache.LRange(ctx, key, int64(offset), int64(offset+limit-1)).Result()
		if err == nil {
			metrics.FeedCacheLookups.WithLabelValues("hit").Inc()
			return ids, nil
		}
	}
	metrics.FeedCacheLookups.WithLabelValues("miss").Inc()

	allIDs, err := r.sql.CommunalPage(ctx, sort, 0, snapshotLimit)
	if err != nil {
		return nil, err
	}
	if len(allIDs) > 0 {
		pipe := r.cache.Pipeline()
		pipe.Del(ctx, key)
		pipe.RPush(ctx, key, interfaceSlice(allIDs)...)
		pipe.Expire(ctx, key, r.ttl)
		_, _ = pipe.Exec(ctx)
	}

	if offset >= len(allIDs) {
		return []string{}, nil
	}
	end := offset + limit
	if end > len(allIDs) {
		end = len(allIDs)
	}
	return allIDs[offset:end], nil
}

func (r *CachedFeedRepository) CommunalCandidates(ctx context.Context) ([]FeedCandidate, error) {
	key := "feed:communal:candidates"
	if data, err := r.cache.Get(ctx, key).Bytes(); err == nil {
		var out []FeedCandidate
		if uErr := json.Unmarshal(data, &out); uErr == nil {
			metrics.FeedCacheLookups.WithLabelValues("hit").Inc()
			return out, nil
		}
	}
	metrics.FeedCacheLookups.WithLabelValues("miss").Inc()

	rows, err := r.sql.CommunalCandidates(ctx)
	if err != nil {
		return nil, err
	}
	if payload, err := json.Marshal(rows); err == nil {
		_ = r.cache.Set(ctx, key, payload, r.ttl).Err()
	}
	return rows, nil
}

// TimelinePage is viewer-dependent, so it always goes to the primary store.
func (r *CachedFeedRepository) TimelinePage(ctx context.Context, ref model.TimelineRef, viewerID string, offset, limit int) ([]*model.TimelineEntry, error) {
	return r.sql.TimelinePage(ctx, ref, viewerID, offset, limit)
}

// LoadPosts always re-reads the primary store: a cached ordering may still
// name a post that was deleted a moment ago, and this is where it drops out.
func (r *CachedFeedRepository) LoadPosts(ctx context.Context, ids []string) ([]*model.Post, error) {
	return r.sql.LoadPosts(ctx, ids)
}

func (r *CachedFeedRepository) LoadAuthors(ctx context.Context, ids []string) (map[string]*model.User, error) {
	out := make(map[string]*model.User, len(ids))
	if len(ids) == 0 {
		return out, nil
	}

	keys := make([]string, len(ids))
	for i, id := range ids {
		keys[i] = fmt.Sprintf("author:%s", id)
	}
	if vals, err := r.cache.MGet(ctx, keys...).Result(); err == nil {
		for i, v := range vals {
			str, ok := v.(string)
			if !ok {
				continue
			}
			var u model.User
			if uErr := json.Unmarshal([]byte(str), &u); uErr == nil {
				out[ids[i]] = &u
			}
		}
	}

	missing := make([]string, 0, len(ids))
	for _, id := range ids {
		if _, ok := out[id]; !ok {
			missing = append(missing, id)
		}
	}
	if len(missing) == 0 {
		return out, nil
	}

	loaded, err := r.sql.LoadAuthors(ctx, missing)
	if err != nil {
		return nil, err
	}
	for id, u := range loaded {
		out[id] = u
		if payload, err := json.Marshal(u); err == nil {
			_ = r.cache.Set(ctx, fmt.Sprintf("author:%s", id), payload, r.ttl).Err()
		}
	}
	return out, nil
}

func interfaceSlice(strs []string) []interface{} {
	result := make([]interface{}, len(strs))
	for i, s := range strs {
		result[i] = s
	}
	return result
}
