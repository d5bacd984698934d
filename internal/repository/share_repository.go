package repository

import (
    "context"

    "gorm.io/gorm"

    "github.com/d60-Lab/feedgraph/internal/model"
)

type ShareRepository interface {
    ListByPost(ctx context.Context, postID string, offset, limit int) ([]*model.Share, error)
    // ByActorForPosts 返回 viewer 转发过的帖子集合
    ByActorForPosts(ctx context.Context, actorID string, postIDs []string) (map[string]bool, error)
    CountForPost(ctx context.Context, postID string) (int64, error)
}

type shareRepository struct {
    db *gorm.DB
}

func NewShareRepository(db *gorm.DB) ShareRepository {
    return &shareRepository{db: db}
}

func (r *shareRepository) ListByPost(ctx context.Context, postID string, offset, limit int) ([]*model.Share, error) {
    var res []*model.Share
    err := r.db.WithContext(ctx).
        Where("post_id = ?", postID).
        Order("created_at DESC").
        Offset(offset).Limit(limit).
        Find(&res).Error
    return res, err
}

func (r *shareRepository) ByActorForPosts(ctx context.Context, actorID string, postIDs []string) (map[string]bool, error) {
    out := make(map[string]bool, len(postIDs))
    if actorID == "" || len(postIDs) == 0 {
        return out, nil
    }
    var rows []*model.Share
    err := r.db.WithContext(ctx).
        Select("DISTINCT post_id").
        Where("actor_id = ? AND post_id IN ?", actorID, postIDs).
        Find(&rows).Error
    if err != nil {
        return nil, err
    }
    for _, s := range rows {
        out[s.PostID] = true
    }
    return out, nil
}

func (r *shareRepository) CountForPost(ctx context.Context, postID string) (int64, error) {
    var cnt int64
    err := r.db.WithContext(ctx).Model(&model.Share{}).
        Where("post_id = ?", postID).
        Count(&cnt).Error
    return cnt, err
}
