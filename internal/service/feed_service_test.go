package service

import (
    "context"
    "math"
    "strings"
    "testing"
    "time"

    "github.com/sebdah/goldie/v2"
    "github.com/stretchr/testify/require"

    "github.com/d60-Lab/feedgraph/internal/apperr"
    "github.com/d60-Lab/feedgraph/internal/model"
    "github.com/d60-Lab/feedgraph/internal/repository"
)

// titledPost 发一篇带标题的 public 帖子
func titledPost(t *testing.T, env *testEnv, authorID, title string) *model.Post {
    t.Helper()
    ctx := context.Background()
    draft, err := env.posts.CreateDraft(ctx, authorID, model.PostContent{Title: title, Body: title})
    require.NoError(t, err)
    post, err := env.posts.Publish(ctx, draft.ID, authorID, model.VisibilityPublic)
    require.NoError(t, err)
    return post
}

// backdatePublished 把发布时间改到过去，构造年龄差
func backdatePublished(t *testing.T, env *testEnv, postID string, at time.Time) {
    t.Helper()
    require.NoError(t, env.db.Model(&model.Post{}).
        Where("id = ?", postID).
        Update("published_at", at).Error)
}

func feedTitles(items []*FeedItem) []string {
    titles := make([]string, len(items))
    for i, it := range items {
        titles[i] = it.Post.Title
    }
    return titles
}

func TestCommunalFeedRecent(t *testing.T) {
    env := newTestEnv(t)
    ctx := context.Background()
    env.seedUser(t, "alice")

    titledPost(t, env, "alice", "a")
    titledPost(t, env, "alice", "b")
    titledPost(t, env, "alice", "c")
    // followers 档根本进不了公共流候选集
    env.publishedPost(t, "alice", model.VisibilityFollowers)

    items, err := env.feeds.CommunalFeed(ctx, repository.FeedSortRecent, "", 1, 20)
    require.NoError(t, err)
    require.Equal(t, []string{"c", "b", "a"}, feedTitles(items))

    for _, it := range items {
        require.NotNil(t, it.Stats)
        require.Equal(t, int64(0), it.Score)
        require.NotNil(t, it.Author)
        require.Equal(t, "alice", it.Author.Username)
    }
}

func TestCommunalFeedPopular(t *testing.T) {
    env := newTestEnv(t)
    ctx := context.Background()

    p1 := titledPost(t, env, "alice", "one-like")
    p2 := titledPost(t, env, "alice", "one-comment")
    p3 := titledPost(t, env, "alice", "one-share")
    titledPost(t, env, "alice", "zero-early")
    titledPost(t, env, "alice", "zero-late")

    _, err := env.engagement.React(ctx, p1.ID, "bob", model.ReactionLike)
    require.NoError(t, err)
    _, _, err = env.engagement.Comment(ctx, p2.ID, "bob", "hi", nil)
    require.NoError(t, err)
    _, err = env.engagement.Share(ctx, p3.ID, "bob", model.ShareDestination{Kind: model.ShareDestExternal})
    require.NoError(t, err)

    // 加权分 3/2/1，零分的两篇按发布时间倒序垫底
    items, err := env.feeds.CommunalFeed(ctx, repository.FeedSortPopular, "", 1, 20)
    require.NoError(t, err)
    require.Equal(t, []string{"one-comment", "one-share", "one-like", "zero-late", "zero-early"}, feedTitles(items))
    require.Equal(t, int64(3), items[0].Score)
    require.Equal(t, int64(2), items[1].Score)
    require.Equal(t, int64(1), items[2].Score)
}

func TestTrendingScoreDecay(t *testing.T) {
    now := time.Now()
    require.InDelta(t, 100, trendingScore(100, now, now), 1e-9)
    require.InDelta(t, 100*math.Exp(-1), trendingScore(100, now.Add(-24*time.Hour), now), 1e-6)
    // 时钟偏斜出来的未来时间戳按零龄处理
    require.InDelta(t, 100, trendingScore(100, now.Add(time.Hour), now), 1e-9)
    // 同分必然新帖在前
    require.Greater(t,
        trendingScore(50, now.Add(-time.Minute), now),
        trendingScore(50, now.Add(-2*time.Minute), now))
}

func TestCommunalFeedTrendingRanking(t *testing.T) {
    env := newTestEnv(t)
    ctx := context.Background()
    now := time.Now()

    seed := []struct {
        title string
        age   time.Duration
        likes int64
    }{
        {"fresh-hot", time.Minute, 100},
        {"tie-new", 20 * time.Minute, 50},
        {"tie-old", 30 * time.Minute, 50},
        {"old-hot", 48 * time.Hour, 100},
        {"fresh-mild", 2 * time.Minute, 10},
        {"zero-new", 5 * time.Minute, 0},
        {"zero-old", 24 * time.Hour, 0},
    }
    for _, s := range seed {
        post := titledPost(t, env, "alice", s.title)
        backdatePublished(t, env, post.ID, now.Add(-s.age))
        if s.likes > 0 {
            require.NoError(t, env.db.Create(&model.EngagementStats{PostID: post.ID, LikeCount: s.likes}).Error)
        }
    }

    items, err := env.feeds.CommunalFeed(ctx, repository.FeedSortTrending, "", 1, 20)
    require.NoError(t, err)
    titles := feedTitles(items)

    // 衰减分单调不增；零分项滑到尾部并保持时间序
    require.Equal(t, []string{"fresh-hot", "tie-new", "tie-old", "old-hot", "fresh-mild", "zero-new", "zero-old"}, titles)
    for i := 1; i < len(items); i++ {
        require.GreaterOrEqual(t, items[i-1].TrendingScore, items[i].TrendingScore)
    }
    require.Greater(t, items[0].TrendingScore, float64(90))
    require.Equal(t, float64(0), items[5].TrendingScore)

    g := goldie.New(t)
    g.Assert(t, "communal_trending", []byte(strings.Join(titles, "\n")+"\n"))
}

func TestCommunalFeedPagination(t *testing.T) {
    env := newTestEnv(t)
    ctx := context.Background()

    for _, title := range []string{"a", "b", "c", "d", "e"} {
        titledPost(t, env, "alice", title)
    }

    page1, err := env.feeds.CommunalFeed(ctx, repository.FeedSortRecent, "", 1, 2)
    require.NoError(t, err)
    require.Equal(t, []string{"e", "d"}, feedTitles(page1))

    page3, err := env.feeds.CommunalFeed(ctx, repository.FeedSortRecent, "", 3, 2)
    require.NoError(t, err)
    require.Equal(t, []string{"a"}, feedTitles(page3))

    page4, err := env.feeds.CommunalFeed(ctx, repository.FeedSortRecent, "", 4, 2)
    require.NoError(t, err)
    require.Empty(t, page4)

    // trending 的应用层分页同样越界返回空页
    page4, err = env.feeds.CommunalFeed(ctx, repository.FeedSortTrending, "", 4, 2)
    require.NoError(t, err)
    require.Empty(t, page4)
}

func TestCommunalFeedDedupAcrossTimelines(t *testing.T) {
    env := newTestEnv(t)
    ctx := context.Background()

    owner := env.entityOwner(t, "alice", "papers")
    post := titledPost(t, env, "alice", "everywhere")
    _, err := env.timelines.AddToTimeline(ctx, post.ID, model.EntityTimeline(owner.ID), "alice")
    require.NoError(t, err)

    // 扇出到两条时间线，公共流里仍只出现一次，但带全两个去向
    items, err := env.feeds.CommunalFeed(ctx, repository.FeedSortRecent, "", 1, 20)
    require.NoError(t, err)
    require.Len(t, items, 1)
    require.Len(t, items[0].Timelines, 2)

    // 装配层去重兜底：同一篇重复出现只保留首个
    svc := env.feeds.(*feedService)
    dup, err := svc.assemble(ctx, []*model.Post{post, post}, "", nil)
    require.NoError(t, err)
    require.Len(t, dup, 1)
}

func TestTimelineFeedPinnedFirst(t *testing.T) {
    env := newTestEnv(t)
    ctx := context.Background()

    owner := env.entityOwner(t, "alice", "papers")
    ref := model.EntityTimeline(owner.ID)

    a := titledPost(t, env, "alice", "a")
    b := titledPost(t, env, "alice", "b")
    c := titledPost(t, env, "alice", "c")
    for _, p := range []*model.Post{a, b, c} {
        _, err := env.timelines.AddToTimeline(ctx, p.ID, ref, "alice")
        require.NoError(t, err)
    }

    items, err := env.feeds.TimelineFeed(ctx, ref, "", 1, 20)
    require.NoError(t, err)
    require.Equal(t, []string{"c", "b", "a"}, feedTitles(items))

    // 先钉 a 再钉 b：置顶段按置顶时间倒序，未置顶段按发布时间倒序
    require.NoError(t, env.timelines.SetPin(ctx, a.ID, ref, "alice", true))
    require.NoError(t, env.timelines.SetPin(ctx, b.ID, ref, "alice", true))

    items, err = env.feeds.TimelineFeed(ctx, ref, "", 1, 20)
    require.NoError(t, err)
    require.Equal(t, []string{"b", "a", "c"}, feedTitles(items))
    require.True(t, items[0].Pinned)
    require.NotNil(t, items[0].PinnedAt)
    require.True(t, items[1].Pinned)
    require.False(t, items[2].Pinned)

    require.NoError(t, env.timelines.SetPin(ctx, b.ID, ref, "alice", false))
    items, err = env.feeds.TimelineFeed(ctx, ref, "", 1, 20)
    require.NoError(t, err)
    require.Equal(t, []string{"a", "c", "b"}, feedTitles(items))
}

func TestTimelineFeedVisibility(t *testing.T) {
    env := newTestEnv(t)
    ctx := context.Background()
    env.seedUser(t, "alice")
    env.seedUser(t, "bob")
    env.seedUser(t, "carol")

    _, err := env.timelines.RegisterOwner(ctx, model.TimelineKindPersonal, "", "alice")
    require.NoError(t, err)
    ref := model.PersonalTimeline("alice")

    fol := env.publishedPost(t, "alice", model.VisibilityFollowers)
    _, err = env.timelines.AddToTimeline(ctx, fol.ID, ref, "alice")
    require.NoError(t, err)
    pub := env.publishedPost(t, "bob", model.VisibilityPublic)
    _, err = env.timelines.AddToTimeline(ctx, pub.ID, ref, "alice")
    require.NoError(t, err)

    ids := func(items []*FeedItem) []string {
        out := make([]string, len(items))
        for i, it := range items {
            out[i] = it.Post.ID
        }
        return out
    }

    // 匿名与路人只看得到 public 的那篇
    for _, viewer := range []string{"", "carol"} {
        items, err := env.feeds.TimelineFeed(ctx, ref, viewer, 1, 20)
        require.NoError(t, err)
        require.Equal(t, []string{pub.ID}, ids(items))
    }

    // 关注作者后 followers 档对 carol 解锁
    require.NoError(t, env.follows.Follow(ctx, "carol", "alice"))
    items, err := env.feeds.TimelineFeed(ctx, ref, "carol", 1, 20)
    require.NoError(t, err)
    require.Equal(t, []string{pub.ID, fol.ID}, ids(items))

    // 作者视角齐全；投递行本身并不因 viewer 而少存
    items, err = env.feeds.TimelineFeed(ctx, ref, "alice", 1, 20)
    require.NoError(t, err)
    require.Len(t, items, 2)
    var stored int64
    require.NoError(t, env.db.Model(&model.TimelineEntry{}).
        Where("kind = ? AND owner_id = ?", ref.Kind, ref.OwnerID).Count(&stored).Error)
    require.Equal(t, int64(2), stored)
}

func TestFeedDropsDeletedPostImmediately(t *testing.T) {
    env := newTestEnv(t)
    ctx := context.Background()

    titledPost(t, env, "alice", "keep")
    gone := titledPost(t, env, "alice", "gone")

    items, err := env.feeds.CommunalFeed(ctx, repository.FeedSortRecent, "", 1, 20)
    require.NoError(t, err)
    require.Len(t, items, 2)

    require.NoError(t, env.posts.SoftDelete(ctx, gone.ID, "alice", ""))

    items, err = env.feeds.CommunalFeed(ctx, repository.FeedSortRecent, "", 1, 20)
    require.NoError(t, err)
    require.Equal(t, []string{"keep"}, feedTitles(items))

    // 投递行保留，读路径即时隐藏
    require.Equal(t, int64(1), env.entryCount(t, gone.ID))
}

func TestFeedViewerState(t *testing.T) {
    env := newTestEnv(t)
    ctx := context.Background()

    p1 := titledPost(t, env, "alice", "liked")
    p2 := titledPost(t, env, "alice", "shared")
    p3 := titledPost(t, env, "alice", "disliked")

    _, err := env.engagement.React(ctx, p1.ID, "bob", model.ReactionLike)
    require.NoError(t, err)
    _, err = env.engagement.Share(ctx, p2.ID, "bob", model.ShareDestination{Kind: model.ShareDestExternal})
    require.NoError(t, err)
    _, err = env.engagement.React(ctx, p3.ID, "bob", model.ReactionDislike)
    require.NoError(t, err)

    items, err := env.feeds.CommunalFeed(ctx, repository.FeedSortRecent, "bob", 1, 20)
    require.NoError(t, err)
    byID := make(map[string]*FeedItem, len(items))
    for _, it := range items {
        byID[it.Post.ID] = it
    }
    require.Equal(t, model.ReactionLike, byID[p1.ID].Viewer.Reaction)
    require.False(t, byID[p1.ID].Viewer.Shared)
    require.True(t, byID[p2.ID].Viewer.Shared)
    require.Equal(t, model.ReactionKind(""), byID[p2.ID].Viewer.Reaction)
    require.Equal(t, model.ReactionDislike, byID[p3.ID].Viewer.Reaction)

    // 匿名 viewer 不带任何互动状态
    items, err = env.feeds.CommunalFeed(ctx, repository.FeedSortRecent, "", 1, 20)
    require.NoError(t, err)
    for _, it := range items {
        require.Equal(t, model.ReactionKind(""), it.Viewer.Reaction)
        require.False(t, it.Viewer.Shared)
    }
}

func TestFeedSelectorGuards(t *testing.T) {
    env := newTestEnv(t)
    ctx := context.Background()

    _, err := env.feeds.CommunalFeed(ctx, repository.FeedSort("hot"), "", 1, 20)
    require.ErrorIs(t, err, apperr.ErrValidation)

    _, err = env.feeds.TimelineFeed(ctx, model.EntityTimeline("ghost"), "", 1, 20)
    require.ErrorIs(t, err, apperr.ErrNotFound)

    _, err = env.feeds.TimelineFeed(ctx, model.TimelineRef{Kind: model.TimelineKindPersonal}, "", 1, 20)
    require.ErrorIs(t, err, apperr.ErrValidation)
}
