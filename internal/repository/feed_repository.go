package repository

import (
	"context"
	"time"

	"github.com/d60-Lab/feedgraph/internal/model"
)

// FeedSort 公共流的排序方式
type FeedSort string

const (
	FeedSortRecent   FeedSort = "recent"
	FeedSortPopular  FeedSort = "popular"
	FeedSortTrending FeedSort = "trending"
)

// ValidFeedSort 校验排序参数
func ValidFeedSort(s FeedSort) bool {
	switch s {
	case FeedSortRecent, FeedSortPopular, FeedSortTrending:
		return true
	}
	return false
}

// FeedCandidate 参与排序的最小行：帖子 id + 排序要素
type FeedCandidate struct {
	PostID      string    `json:"post_id"`
	Score       int64     `json:"score"`
	PublishedAt time.Time `json:"published_at"`
}

// FeedRepository 喂给流装配的读路径，有直查库表与 Redis 加速两种实现
type FeedRepository interface {
	// CommunalPage 公共流按 recent/popular 排好序取一页帖子 id
	CommunalPage(ctx context.Context, sort FeedSort, offset, limit int) ([]string, error)

	// CommunalCandidates 热度衰减要在应用层算，返回全量候选集
	CommunalCandidates(ctx context.Context) ([]FeedCandidate, error)

	// TimelinePage 个人/实体时间线一页投递行，可见性按 viewer 在 SQL 里过滤
	TimelinePage(ctx context.Context, ref model.TimelineRef, viewerID string, offset, limit int) ([]*model.TimelineEntry, error)

	// LoadPosts 按 id 捞未删除且已发布的帖子，保持传入顺序，消失的行直接跳过
	LoadPosts(ctx context.Context, ids []string) ([]*model.Post, error)

	// LoadAuthors 装配页内作者摘要
	LoadAuthors(ctx context.Context, ids []string) (map[string]*model.User, error)
}
