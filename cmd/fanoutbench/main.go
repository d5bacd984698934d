package main

import (
    "context"
    "fmt"
    "math/rand"
    "os"
    "sort"
    "strconv"
    "sync"
    "time"

    "github.com/google/uuid"

    "github.com/d60-Lab/feedgraph/config"
    "github.com/d60-Lab/feedgraph/internal/event"
    "github.com/d60-Lab/feedgraph/internal/model"
    "github.com/d60-Lab/feedgraph/internal/repository"
    "github.com/d60-Lab/feedgraph/internal/service"
    "github.com/d60-Lab/feedgraph/pkg/database"
)

// 写路径压测：publish（含公共时间线扇出行）与点赞（计数写穿）在并发下的事务延迟。
func main() {
    cfg, err := config.Load()
    if err != nil { panic(err) }
    db, err := database.InitDB(cfg)
    if err != nil { panic(err) }

    AUTHORS := 50
    ACTORS := 2000
    POSTS := 500
    REACTS := 5000
    CONC := 8
    if s := os.Getenv("AUTHORS"); s != "" { if v, e := strconv.Atoi(s); e == nil && v > 0 { AUTHORS = v } }
    if s := os.Getenv("ACTORS"); s != "" { if v, e := strconv.Atoi(s); e == nil && v > 0 { ACTORS = v } }
    if s := os.Getenv("POSTS"); s != "" { if v, e := strconv.Atoi(s); e == nil && v > 0 { POSTS = v } }
    if s := os.Getenv("REACTS"); s != "" { if v, e := strconv.Atoi(s); e == nil && v > 0 { REACTS = v } }
    if s := os.Getenv("CONC"); s != "" { if v, e := strconv.Atoi(s); e == nil && v > 0 { CONC = v } }

    // clean tables for a reproducible run (ok for local bench)
    _ = db.Exec("TRUNCATE TABLE engagement_stats, reactions, timeline_entries, posts, follows, followers, users RESTART IDENTITY CASCADE").Error
    if err := db.AutoMigrate(&model.User{}, &model.Follow{}, &model.Follower{}, &model.Post{},
        &model.TimelineEntry{}, &model.Reaction{}, &model.EngagementStats{}); err != nil { panic(err) }

    ctx := context.Background()
    rnd := rand.New(rand.NewSource(42))

    authors := make([]model.User, AUTHORS)
    for i := range authors {
        id := uuid.NewString()
        authors[i] = model.User{ID: id, Username: "author_" + id[:8]}
    }
    _ = db.CreateInBatches(&authors, 1000).Error
    actors := make([]model.User, ACTORS)
    for i := range actors {
        id := uuid.NewString()
        actors[i] = model.User{ID: id, Username: "actor_" + id[:8]}
    }
    _ = db.CreateInBatches(&actors, 1000).Error

    bus := event.NewBus(4096, 2)
    stop := bus.Start()
    defer stop(ctx)

    postRepo := repository.NewPostRepository(db)
    followRepo := repository.NewFollowRepository(db)
    // 限流窗口放到远大于 POSTS，压测关注的是事务本身
    postsSvc := service.NewPostService(db, postRepo, followRepo, bus, POSTS*AUTHORS+1, time.Hour)
    engSvc := service.NewEngagementService(db, postRepo,
        repository.NewCommentRepository(db), repository.NewShareRepository(db),
        repository.NewStatsRepository(db), repository.NewOwnerRepository(db), followRepo, bus)

    // publish：草稿先建好，单测发布事务（含 communal 扇出行）
    drafts := make([]string, 0, POSTS)
    for i := 0; i < POSTS; i++ {
        p, err := postsSvc.CreateDraft(ctx, authors[rnd.Intn(AUTHORS)].ID, model.PostContent{Body: fmt.Sprintf("post %d", i)})
        if err != nil { panic(err) }
        drafts = append(drafts, p.ID)
    }

    pubDur := runConc(CONC, drafts, func(i int, postID string) time.Duration {
        author := mustAuthor(ctx, postRepo, postID)
        st := time.Now()
        if _, err := postsSvc.Publish(ctx, postID, author, model.VisibilityPublic); err != nil { panic(err) }
        return time.Since(st)
    })

    // react：随机 actor 对随机帖子点赞，压同一行计数的写穿
    jobs := make([]string, REACTS)
    for i := range jobs { jobs[i] = drafts[rnd.Intn(len(drafts))] }
    mu := sync.Mutex{}
    seq := 0
    reactDur := runConc(CONC, jobs, func(i int, postID string) time.Duration {
        mu.Lock()
        actor := actors[seq%len(actors)].ID
        seq++
        mu.Unlock()
        st := time.Now()
        if _, err := engSvc.React(ctx, postID, actor, model.ReactionLike); err != nil { panic(err) }
        return time.Since(st)
    })

    fmt.Printf("AUTHORS=%d ACTORS=%d POSTS=%d REACTS=%d CONC=%d\n", AUTHORS, ACTORS, POSTS, REACTS, CONC)
    fmt.Printf("Publish tx (draft->public + communal entry): avg=%v p95=%v p99=%v\n", avg(pubDur), pct(pubDur, 0.95), pct(pubDur, 0.99))
    fmt.Printf("Like tx (ledger + stats write-through):      avg=%v p95=%v p99=%v\n", avg(reactDur), pct(reactDur, 0.95), pct(reactDur, 0.99))
}

func mustAuthor(ctx context.Context, posts repository.PostRepository, postID string) string {
    p, err := posts.GetByID(ctx, postID)
    if err != nil { panic(err) }
    return p.AuthorID
}

func runConc(conc int, jobs []string, fn func(int, string) time.Duration) []time.Duration {
    out := make([]time.Duration, len(jobs))
    var wg sync.WaitGroup
    ch := make(chan int)
    for w := 0; w < conc; w++ {
        wg.Add(1)
        go func() {
            defer wg.Done()
            for i := range ch { out[i] = fn(i, jobs[i]) }
        }()
    }
    for i := range jobs { ch <- i }
    close(ch)
    wg.Wait()
    return out
}

func avg(vs []time.Duration) time.Duration {
    if len(vs) == 0 { return 0 }
    var sum time.Duration
    for _, v := range vs { sum += v }
    return sum / time.Duration(len(vs))
}

func pct(vs []time.Duration, p float64) time.Duration {
    if len(vs) == 0 { return 0 }
    xs := append([]time.Duration(nil), vs...)
    sort.Slice(xs, func(i, j int) bool { return xs[i] < xs[j] })
    k := int(float64(len(xs)) * p)
    if k >= len(xs) { k = len(xs) - 1 }
    return xs[k]
}
