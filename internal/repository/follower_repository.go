package repository

import (
    "context"

    "gorm.io/gorm"

    "github.com/d60-Lab/feedgraph/internal/model"
)

type FollowerRepository interface {
    ListFollowers(ctx context.Context, userID string, offset, limit int) ([]*model.Follower, error)
    CountFollowers(ctx context.Context, userID string) (int64, error)
}

type followerRepository struct{ db *gorm.DB }

func NewFollowerRepository(db *gorm.DB) FollowerRepository { return &followerRepository{db: db} }

func (r *followerRepository) ListFollowers(ctx context.Context, userID string, offset, limit int) ([]*model.Follower, error) {
    var res []*model.Follower
    err := r.db.WithContext(ctx).
        Where("user_id = ?", userID).
        Order("created_at DESC").
        Offset(offset).Limit(limit).
        Find(&res).Error
    return res, err
}

func (r *followerRepository) CountFollowers(ctx context.Context, userID string) (int64, error) {
    var cnt int64
    err := r.db.WithContext(ctx).Model(&model.Follower{}).
        Where("user_id = ?", userID).
        Count(&cnt).Error
    return cnt, err
}
