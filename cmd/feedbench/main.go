package main

import (
	"context"
	"fmt"
	"math"
	"math/rand"
	"os"
	"sort"
	"strconv"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	"github.com/d60-Lab/feedgraph/config"
	"github.com/d60-Lab/feedgraph/internal/model"
	"github.com/d60-Lab/feedgraph/internal/repository"
	"github.com/d60-Lab/feedgraph/internal/service"
	"github.com/d60-Lab/feedgraph/pkg/database"
)

func must[T any](v T, err error) T {
	if err != nil {
		panic(err)
	}
	return v
}

func mustDo(err error) {
	if err != nil {
		panic(err)
	}
}

func envInt(name string, def int) int {
	if s := os.Getenv(name); s != "" {
		if v, e := strconv.Atoi(s); e == nil && v > 0 {
			return v
		}
	}
	return def
}

func main() {
	ctx := context.Background()
	cfg := must(config.Load())
	db := must(database.InitDB(cfg))

	// params
	AUTHORS := envInt("AUTHORS", 200)
	POSTS := envInt("POSTS", 5000)
	REQS := envInt("REQS", 2000)
	PAGESIZE := envInt("PAGESIZE", 20)

	// clean tables for a reproducible run (ok for local bench)
	_ = db.Exec("TRUNCATE TABLE engagement_stats, timeline_entries, posts, users RESTART IDENTITY CASCADE").Error
	mustDo(db.AutoMigrate(&model.User{}, &model.Post{}, &model.TimelineEntry{}, &model.EngagementStats{}))

	fmt.Printf("Seeding %d authors, %d public posts...\n", AUTHORS, POSTS)
	rnd := rand.New(rand.NewSource(42))
	base := time.Now()

	authors := make([]model.User, AUTHORS)
	for i := range authors {
		id := uuid.NewString()
		authors[i] = model.User{ID: id, Username: "author_" + id[:8], DisplayName: fmt.Sprintf("Author %d", i)}
	}
	mustDo(db.CreateInBatches(&authors, 1000).Error)

	posts := make([]model.Post, POSTS)
	entries := make([]model.TimelineEntry, POSTS)
	stats := make([]model.EngagementStats, POSTS)
	for i := 0; i < POSTS; i++ {
		publishedAt := base.Add(-time.Duration(rnd.Intn(72*3600)) * time.Second)
		posts[i] = model.Post{
			ID:          uuid.NewString(),
			AuthorID:    authors[rnd.Intn(AUTHORS)].ID,
			Body:        fmt.Sprintf("post %d", i),
			Visibility:  model.VisibilityPublic,
			CreatedAt:   publishedAt,
			PublishedAt: &publishedAt,
		}
		entries[i] = model.TimelineEntry{
			ID:        uuid.NewString(),
			PostID:    posts[i].ID,
			Kind:      model.TimelineKindCommunal,
			OwnerID:   "",
			AddedBy:   posts[i].AuthorID,
			CreatedAt: publishedAt,
		}
		// heavy-tailed engagement so popular/trending actually reorder
		likes := int64(rnd.Intn(50))
		if rnd.Float64() > 0.95 {
			likes += int64(rnd.Intn(2000))
		}
		stats[i] = model.EngagementStats{
			PostID:       posts[i].ID,
			LikeCount:    likes,
			CommentCount: int64(rnd.Intn(20)),
			ReplyCount:   int64(rnd.Intn(30)),
			ShareCount:   int64(rnd.Intn(10)),
		}
	}
	mustDo(db.CreateInBatches(&posts, 1000).Error)
	mustDo(db.CreateInBatches(&entries, 1000).Error)
	mustDo(db.CreateInBatches(&stats, 1000).Error)
	fmt.Println("Seed done")

	timelineRepo := repository.NewTimelineRepository(db)
	ownerRepo := repository.NewOwnerRepository(db)
	statsRepo := repository.NewStatsRepository(db)
	reactionRepo := repository.NewReactionRepository(db)
	shareRepo := repository.NewShareRepository(db)

	sqlFeed := service.NewFeedService(
		repository.NewSQLFeedRepository(db),
		timelineRepo, ownerRepo, statsRepo, reactionRepo, shareRepo,
	)

	redisAddr := os.Getenv("REDIS_ADDR")
	if redisAddr == "" {
		redisAddr = cfg.Redis.Addr
	}
	client := redis.NewClient(&redis.Options{Addr: redisAddr})
	defer client.Close()
	mustDo(client.Ping(ctx).Err())
	client.FlushAll(ctx)

	cachedFeed := service.NewFeedService(
		repository.NewCachedFeedRepository(db, client, 30*time.Second),
		timelineRepo, ownerRepo, statsRepo, reactionRepo, shareRepo,
	)

	sorts := []repository.FeedSort{repository.FeedSortRecent, repository.FeedSortPopular, repository.FeedSortTrending}
	fmt.Printf("\nCommunal feed read latency (%d reqs per sort, page_size=%d)\n", REQS, PAGESIZE)
	for _, sortBy := range sorts {
		direct := runReads(ctx, sqlFeed, sortBy, REQS, PAGESIZE, rnd)
		cached := runReads(ctx, cachedFeed, sortBy, REQS, PAGESIZE, rnd)
		fmt.Printf("%-9s sql:    avg=%v p95=%v p99=%v\n", sortBy, avg(direct), pct(direct, 0.95), pct(direct, 0.99))
		fmt.Printf("%-9s cached: avg=%v p95=%v p99=%v\n", sortBy, avg(cached), pct(cached, 0.95), pct(cached, 0.99))
	}

	keys := must(client.Keys(ctx, "feed:*").Result())
	fmt.Printf("\ncache keys: %d\n", len(keys))
}

func runReads(ctx context.Context, feeds service.FeedService, sortBy repository.FeedSort, reqs, pageSize int, rnd *rand.Rand) []time.Duration {
	out := make([]time.Duration, 0, reqs)
	for i := 0; i < reqs; i++ {
		// hot first pages with an occasional deep scroll
		page := 1 + rnd.Intn(3)
		if rnd.Float64() > 0.9 {
			page = 1 + rnd.Intn(40)
		}
		start := time.Now()
		if _, err := feeds.CommunalFeed(ctx, sortBy, "", page, pageSize); err != nil {
			panic(err)
		}
		out = append(out, time.Since(start))
	}
	return out
}

func avg(vs []time.Duration) time.Duration {
	if len(vs) == 0 {
		return 0
	}
	var sum time.Duration
	for _, v := range vs {
		sum += v
	}
	return sum / time.Duration(len(vs))
}

func pct(vs []time.Duration, p float64) time.Duration {
	if len(vs) == 0 {
		return 0
	}
	xs := append([]time.Duration(nil), vs...)
	sort.Slice(xs, func(i, j int) bool { return xs[i] < xs[j] })
	k := int(math.Ceil(p*float64(len(xs)))) - 1
	if k < 0 {
		k = 0
	}
	if k >= len(xs) {
		k = len(xs) - 1
	}
	return xs[k]
}
