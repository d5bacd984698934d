package repository

import (
	"context"

	"gorm.io/gorm"

	"github.com/d60-Lab/feedgraph/internal/model"
)

// 排序里反复出现的加权分表达式，口径与 EngagementStats.Score 一致
const scoreExpr = "COALESCE(s.like_count,0) + 2*COALESCE(s.share_count,0) + 3*(COALESCE(s.comment_count,0) + COALESCE(s.reply_count,0))"

// 公共流候选条件：进了公共时间线、没删、已发布、当前仍是 public
const communalWhere = "e.kind = ? AND p.deleted_at IS NULL AND p.published_at IS NOT NULL AND p.visibility = ?"

// SQLFeedRepository 直查库表的流仓储实现
type SQLFeedRepository struct {
	db *gorm.DB
}

// NewSQLFeedRepository 创建直查实现
func NewSQLFeedRepository(db *gorm.DB) FeedRepository {
	return &SQLFeedRepository{db: db}
}

// CommunalPage 公共流分页：recent 按发布时间，popular 按加权分
func (r *SQLFeedRepository) CommunalPage(ctx context.Context, sort FeedSort, offset, limit int) ([]string, error) {
	order := "p.published_at DESC"
	if sort == FeedSortPopular {
		order = scoreExpr + " DESC, p.published_at DESC"
	}

	var ids []string
	err := r.db.WithContext(ctx).
		Table("timeline_entries e").
		Select("e.post_id").
		Joins("JOIN posts p ON p.id = e.post_id").
		Joins("LEFT JOIN engagement_stats s ON s.post_id = e.post_id").
		Where(communalWhere, model.TimelineKindCommunal, model.VisibilityPublic).
		Order(order).
		Offset(offset).Limit(limit).
		Scan(&ids).Error
	if err != nil {
		return nil, err
	}
	return ids, nil
}

// CommunalCandidates 全量候选集，带上算衰减要用的分数和发布时间
func (r *SQLFeedRepository) CommunalCandidates(ctx context.Context) ([]FeedCandidate, error) {
	var rows []FeedCandidate
	err := r.db.WithContext(ctx).
		Table("timeline_entries e").
		Select("e.post_id AS post_id, " + scoreExpr + " AS score, p.published_at AS published_at").
		Joins("JOIN posts p ON p.id = e.post_id").
		Joins("LEFT JOIN engagement_stats s ON s.post_id = e.post_id").
		Where(communalWhere, model.TimelineKindCommunal, model.VisibilityPublic).
		Order("p.published_at DESC").
		Scan(&rows).Error
	if err != nil {
		return nil, err
	}
	return rows, nil
}

// TimelinePage 时间线分页：置顶行在前按置顶时间倒序，其余按发布时间倒序。
// 可见性直接编进 WHERE：公开帖都可见，作者看自己的一切，
// followers 档只放行关注了作者的 viewer。
func (r *SQLFeedRepository) TimelinePage(ctx context.Context, ref model.TimelineRef, viewerID string, offset, limit int) ([]*model.TimelineEntry, error) {
	var rows []*model.TimelineEntry
	err := r.db.WithContext(ctx).
		Table("timeline_entries e").
		Select("e.*").
		Joins("JOIN posts p ON p.id = e.post_id").
		Where("e.kind = ? AND e.owner_id = ?", ref.Kind, ref.OwnerID).
		Where("p.deleted_at IS NULL AND p.published_at IS NOT NULL").
		Where(
			"p.visibility = ? OR p.author_id = ? OR (p.visibility = ? AND EXISTS (SELECT 1 FROM follows f WHERE f.follower_id = ? AND f.followee_id = p.author_id))",
			model.VisibilityPublic, viewerID, model.VisibilityFollowers, viewerID,
		).
		Order("e.pinned DESC, e.pinned_at DESC NULLS LAST, p.published_at DESC").
		Offset(offset).Limit(limit).
		Scan(&rows).Error
	if err != nil {
		return nil, err
	}
	return rows, nil
}

// LoadPosts 主键捞帖子，按传入 id 序重排；已删或未发布的悄悄丢掉
func (r *SQLFeedRepository) LoadPosts(ctx context.Context, ids []string) ([]*model.Post, error) {
	if len(ids) == 0 {
		return []*model.Post{}, nil
	}

	var posts []*model.Post
	err := r.db.WithContext(ctx).
		Where("id IN ? AND deleted_at IS NULL AND published_at IS NOT NULL", ids).
		Find(&posts).Error
	if err != nil {
		return nil, err
	}

	byID := make(map[string]*model.Post, len(posts))
	for _, p := range posts {
		byID[p.ID] = p
	}
	ordered := make([]*model.Post, 0, len(ids))
	for _, id := range ids {
		if p, ok := byID[id]; ok {
			ordered = append(ordered, p)
		}
	}
	return ordered, nil
}

// LoadAuthors 批量取作者
func (r *SQLFeedRepository) LoadAuthors(ctx context.Context, ids []string) (map[string]*model.User, error) {
	out := make(map[string]*model.User, len(ids))
	if len(ids) == 0 {
		return out, nil
	}

	var users []*model.User
	if err := r.db.WithContext(ctx).Where("id IN ?", ids).Find(&users).Error; err != nil {
		return nil, err
	}
	for _, u := range users {
		out[u.ID] = u
	}
	return out, nil
}
