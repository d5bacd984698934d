package service

import (
    "context"
    "math"
    "sort"
    "time"

    "github.com/d60-Lab/feedgraph/internal/apperr"
    "github.com/d60-Lab/feedgraph/internal/model"
    "github.com/d60-Lab/feedgraph/internal/repository"
    "github.com/d60-Lab/feedgraph/pkg/metrics"
)

// ViewerState 请求者对单条帖子的互动状态
type ViewerState struct {
    Reaction model.ReactionKind `json:"reaction,omitempty"`
    Shared   bool               `json:"shared"`
}

// FeedItem 装配完成的流条目：帖子 + 作者摘要 + 计数 + viewer 状态 + 分发去向
type FeedItem struct {
    Post          *model.Post            `json:"post"`
    Author        *model.User            `json:"author,omitempty"`
    Stats         *model.EngagementStats `json:"stats"`
    Score         int64                  `json:"score"`
    TrendingScore float64                `json:"trending_score,omitempty"`
    Viewer        ViewerState            `json:"viewer"`
    Timelines     []model.TimelineRef    `json:"timelines"`
    Pinned        bool                   `json:"pinned,omitempty"`
    PinnedAt      *time.Time             `json:"pinned_at,omitempty"`
}

// FeedService 读路径装配：一次调用返回去重后的一页帖子，
// 排序在读时现算，不维护持久化队列。
type FeedService interface {
    // CommunalFeed 公共发现流，sort ∈ {recent, popular, trending}
    CommunalFeed(ctx context.Context, sortBy repository.FeedSort, viewerID string, page, pageSize int) ([]*FeedItem, error)
    // TimelineFeed 指定时间线的流，置顶在前；可见性按 viewer 裁决
    TimelineFeed(ctx context.Context, ref model.TimelineRef, viewerID string, page, pageSize int) ([]*FeedItem, error)
}

type feedService struct {
    feed      repository.FeedRepository
    entries   repository.TimelineRepository
    owners    repository.OwnerRepository
    stats     repository.StatsRepository
    reactions repository.ReactionRepository
    shares    repository.ShareRepository
}

func NewFeedService(
    feed repository.FeedRepository,
    entries repository.TimelineRepository,
    owners repository.OwnerRepository,
    stats repository.StatsRepository,
    reactions repository.ReactionRepository,
    shares repository.ShareRepository,
) FeedService {
    return &feedService{feed: feed, entries: entries, owners: owners, stats: stats, reactions: reactions, shares: shares}
}

func (s *feedService) CommunalFeed(ctx context.Context, sortBy repository.FeedSort, viewerID string, page, pageSize int) ([]*FeedItem, error) {
    if !repository.ValidFeedSort(sortBy) {
        return nil, apperr.Validationf("unknown feed sort %q", sortBy)
    }
    page, pageSize = normalizePage(page, pageSize)
    offset := (page - 1) * pageSize
    metrics.FeedRequests.WithLabelValues("communal", string(sortBy)).Inc()

    var (
        ids      []string
        trending map[string]float64
        err      error
    )
    if sortBy == repository.FeedSortTrending {
        ids, trending, err = s.trendingPage(ctx, offset, pageSize)
    } else {
        ids, err = s.feed.CommunalPage(ctx, sortBy, offset, pageSize)
    }
    if err != nil {
        return nil, err
    }

    posts, err := s.feed.LoadPosts(ctx, ids)
    if err != nil {
        return nil, err
    }
    items, err := s.assemble(ctx, posts, viewerID, nil)
    if err != nil {
        return nil, err
    }
    for _, it := range items {
        if ts, ok := trending[it.Post.ID]; ok {
            it.TrendingScore = ts
        }
    }
    return items, nil
}

// trendingPage 取全量候选集，在应用层算衰减分后排序分页。
// 衰减因子 e^(-Δt/86400)：同分的两篇，晚发布的一定排前面。
func (s *feedService) trendingPage(ctx context.Context, offset, limit int) ([]string, map[string]float64, error) {
    cands, err := s.feed.CommunalCandidates(ctx)
    if err != nil {
        return nil, nil, err
    }

    now := time.Now()
    scores := make(map[string]float64, len(cands))
    for _, c := range cands {
        scores[c.PostID] = trendingScore(c.Score, c.PublishedAt, now)
    }
    // 候选集本身按发布时间倒序，稳定排序让同分项保持时间序
    sort.SliceStable(cands, func(i, j int) bool {
        return scores[cands[i].PostID] > scores[cands[j].PostID]
    })

    if offset >= len(cands) {
        return []string{}, scores, nil
    }
    end := offset + limit
    if end > len(cands) {
        end = len(cands)
    }
    ids := make([]string, 0, end-offset)
    for _, c := range cands[offset:end] {
        ids = append(ids, c.PostID)
    }
    return ids, scores, nil
}

func trendingScore(score int64, publishedAt, now time.Time) float64 {
    age := now.Sub(publishedAt).Seconds()
    if age < 0 {
        age = 0
    }
    return float64(score) * math.Exp(-age/86400)
}

func (s *feedService) TimelineFeed(ctx context.Context, ref model.TimelineRef, viewerID string, page, pageSize int) ([]*FeedItem, error) {
    if err := ref.Validate(); err != nil {
        return nil, apperr.Validationf("invalid timeline selector: %v", err)
    }
    if ref.HasOwner() {
        exists, err := s.owners.Exists(ctx, ref.Kind, ref.OwnerID)
        if err != nil {
            return nil, err
        }
        if !exists {
            return nil, apperr.NotFoundf("%s timeline owner %s", ref.Kind, ref.OwnerID)
        }
    }
    page, pageSize = normalizePage(page, pageSize)
    metrics.FeedRequests.WithLabelValues("timeline", string(ref.Kind)).Inc()

    rows, err := s.feed.TimelinePage(ctx, ref, viewerID, (page-1)*pageSize, pageSize)
    if err != nil {
        return nil, err
    }
    ids := make([]string, 0, len(rows))
    entryByPost := make(map[string]*model.TimelineEntry, len(rows))
    for _, e := range rows {
        ids = append(ids, e.PostID)
        entryByPost[e.PostID] = e
    }

    posts, err := s.feed.LoadPosts(ctx, ids)
    if err != nil {
        return nil, err
    }
    return s.assemble(ctx, posts, viewerID, entryByPost)
}

// assemble 按帖子顺序装配条目并按帖子 id 去重：
// 一篇帖子就算扇出到多条时间线，单次结果里也只出现一次。
func (s *feedService) assemble(ctx context.Context, posts []*model.Post, viewerID string, entryByPost map[string]*model.TimelineEntry) ([]*FeedItem, error) {
    uniq := make([]*model.Post, 0, len(posts))
    seen := make(map[string]struct{}, len(posts))
    for _, p := range posts {
        if _, dup := seen[p.ID]; dup {
            continue
        }
        seen[p.ID] = struct{}{}
        uniq = append(uniq, p)
    }

    ids := make([]string, len(uniq))
    authorSet := make(map[string]struct{}, len(uniq))
    authorIDs := make([]string, 0, len(uniq))
    for i, p := range uniq {
        ids[i] = p.ID
        if _, ok := authorSet[p.AuthorID]; !ok {
            authorSet[p.AuthorID] = struct{}{}
            authorIDs = append(authorIDs, p.AuthorID)
        }
    }

    authors, err := s.feed.LoadAuthors(ctx, authorIDs)
    if err != nil {
        return nil, err
    }
    statsByPost, err := s.stats.GetMany(ctx, ids)
    if err != nil {
        return nil, err
    }
    entriesByPost, err := s.entries.ListForPosts(ctx, ids)
    if err != nil {
        return nil, err
    }
    reactions, err := s.reactions.ByActorForPosts(ctx, viewerID, ids)
    if err != nil {
        return nil, err
    }
    shared, err := s.shares.ByActorForPosts(ctx, viewerID, ids)
    if err != nil {
        return nil, err
    }

    items := make([]*FeedItem, 0, len(uniq))
    for _, p := range uniq {
        st := statsByPost[p.ID]
        if st == nil {
            st = &model.EngagementStats{PostID: p.ID}
        }
        refs := make([]model.TimelineRef, 0, len(entriesByPost[p.ID]))
        for _, e := range entriesByPost[p.ID] {
            refs = append(refs, e.Ref())
        }

        item := &FeedItem{
            Post:      p,
            Author:    authors[p.AuthorID],
            Stats:     st,
            Score:     st.Score(),
            Viewer:    ViewerState{Reaction: reactions[p.ID], Shared: shared[p.ID]},
            Timelines: refs,
        }
        if e, ok := entryByPost[p.ID]; ok {
            item.Pinned = e.Pinned
            item.PinnedAt = e.PinnedAt
        }
        items = append(items, item)
    }
    return items, nil
}
