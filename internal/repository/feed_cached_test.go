package repository

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/d60-Lab/feedgraph/internal/model"
)

func setupCachedFeedDB(t *testing.T) *gorm.DB {
	t.Helper()
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{})
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(
		&model.User{}, &model.Follow{}, &model.Post{},
		&model.TimelineEntry{}, &model.EngagementStats{},
	))
	return db
}

// seedCommunalPost writes a public post plus its communal fan-out row.
func seedCommunalPost(t *testing.T, db *gorm.DB, id string, publishedAt time.Time) {
	t.Helper()
	require.NoError(t, db.Create(&model.Post{
		ID:          id,
		AuthorID:    "author",
		Body:        id,
		Visibility:  model.VisibilityPublic,
		CreatedAt:   publishedAt,
		PublishedAt: &publishedAt,
	}).Error)
	require.NoError(t, db.Create(&model.TimelineEntry{
		ID:        uuid.NewString(),
		PostID:    id,
		Kind:      model.TimelineKindCommunal,
		AddedBy:   "author",
		CreatedAt: publishedAt,
	}).Error)
}

func newCachedRepo(t *testing.T, db *gorm.DB, ttl time.Duration) (FeedRepository, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	return NewCachedFeedRepository(db, client, ttl), mr
}

func TestCachedCommunalPageSnapshot(t *testing.T) {
	db := setupCachedFeedDB(t)
	repo, mr := newCachedRepo(t, db, 30*time.Second)
	ctx := context.Background()
	now := time.Now()

	seedCommunalPost(t, db, "p1", now.Add(-3*time.Minute))
	seedCommunalPost(t, db, "p2", now.Add(-2*time.Minute))
	seedCommunalPost(t, db, "p3", now.Add(-1*time.Minute))

	// First page builds the snapshot list in Redis.
	ids, err := repo.CommunalPage(ctx, FeedSortRecent, 0, 2)
	require.NoError(t, err)
	require.Equal(t, []string{"p3", "p2"}, ids)
	require.True(t, mr.Exists("feed:communal:recent"))

	// A post published after the snapshot stays invisible until the TTL runs out.
	seedCommunalPost(t, db, "p4", now)
	ids, err = repo.CommunalPage(ctx, FeedSortRecent, 0, 2)
	require.NoError(t, err)
	require.Equal(t, []string{"p3", "p2"}, ids)

	// Deeper offsets are served from the same snapshot.
	ids, err = repo.CommunalPage(ctx, FeedSortRecent, 2, 2)
	require.NoError(t, err)
	require.Equal(t, []string{"p1"}, ids)

	mr.FastForward(31 * time.Second)
	ids, err = repo.CommunalPage(ctx, FeedSortRecent, 0, 4)
	require.NoError(t, err)
	require.Equal(t, []string{"p4", "p3", "p2", "p1"}, ids)
}

func TestCachedLoadPostsDropsDeleted(t *testing.T) {
	db := setupCachedFeedDB(t)
	repo, _ := newCachedRepo(t, db, 30*time.Second)
	ctx := context.Background()
	now := time.Now()

	seedCommunalPost(t, db, "p1", now.Add(-2*time.Minute))
	seedCommunalPost(t, db, "p2", now.Add(-1*time.Minute))

	ids, err := repo.CommunalPage(ctx, FeedSortRecent, 0, 10)
	require.NoError(t, err)
	require.Equal(t, []string{"p2", "p1"}, ids)

	// Snapshot still names p2, but LoadPosts re-reads the primary store.
	require.NoError(t, db.Model(&model.Post{}).Where("id = ?", "p2").Update("deleted_at", time.Now()).Error)

	ids, err = repo.CommunalPage(ctx, FeedSortRecent, 0, 10)
	require.NoError(t, err)
	require.Contains(t, ids, "p2")

	posts, err := repo.LoadPosts(ctx, ids)
	require.NoError(t, err)
	require.Len(t, posts, 1)
	require.Equal(t, "p1", posts[0].ID)
}

func TestCachedPageBeyondSnapshotDelegates(t *testing.T) {
	db := setupCachedFeedDB(t)
	repo, mr := newCachedRepo(t, db, 30*time.Second)
	ctx := context.Background()

	seedCommunalPost(t, db, "p1", time.Now())

	ids, err := repo.CommunalPage(ctx, FeedSortRecent, snapshotLimit, 20)
	require.NoError(t, err)
	require.Empty(t, ids)
	// Deep pages bypass the cache entirely: no snapshot gets built.
	require.False(t, mr.Exists("feed:communal:recent"))
}

func TestCachedCandidatesSnapshot(t *testing.T) {
	db := setupCachedFeedDB(t)
	repo, mr := newCachedRepo(t, db, 30*time.Second)
	ctx := context.Background()

	seedCommunalPost(t, db, "p1", time.Now().Add(-time.Minute))

	cands, err := repo.CommunalCandidates(ctx)
	require.NoError(t, err)
	require.Len(t, cands, 1)
	require.Equal(t, int64(0), cands[0].Score)

	// New engagement lands only after the cached JSON expires.
	require.NoError(t, db.Create(&model.EngagementStats{PostID: "p1", LikeCount: 5}).Error)
	cands, err = repo.CommunalCandidates(ctx)
	require.NoError(t, err)
	require.Equal(t, int64(0), cands[0].Score)

	mr.FastForward(31 * time.Second)
	cands, err = repo.CommunalCandidates(ctx)
	require.NoError(t, err)
	require.Equal(t, int64(5), cands[0].Score)
}

func TestCachedAuthorsServedFromSnapshot(t *testing.T) {
	db := setupCachedFeedDB(t)
	repo, _ := newCachedRepo(t, db, 30*time.Second)
	ctx := context.Background()

	require.NoError(t, db.Create(&model.User{ID: "a1", Username: "a1", DisplayName: "old"}).Error)

	authors, err := repo.LoadAuthors(ctx, []string{"a1", "missing"})
	require.NoError(t, err)
	require.Len(t, authors, 1)
	require.Equal(t, "old", authors["a1"].DisplayName)

	// Cached profile masks the DB update; unknown ids are fetched fresh each time.
	require.NoError(t, db.Model(&model.User{}).Where("id = ?", "a1").Update("display_name", "new").Error)
	require.NoError(t, db.Create(&model.User{ID: "a2", Username: "a2", DisplayName: "fresh"}).Error)

	authors, err = repo.LoadAuthors(ctx, []string{"a1", "a2"})
	require.NoError(t, err)
	require.Equal(t, "old", authors["a1"].DisplayName)
	require.Equal(t, "fresh", authors["a2"].DisplayName)
}
