package repository

import (
    "context"

    "github.com/google/uuid"
    "gorm.io/gorm"
    "gorm.io/gorm/clause"

    "github.com/d60-Lab/feedgraph/internal/model"
)

type FollowRepository interface {
    // Create 同一事务写正反两行，保证关注关系与粉丝列表不漂移
    Create(ctx context.Context, followerID, followeeID string) error
    Delete(ctx context.Context, followerID, followeeID string) error
    Exists(ctx context.Context, followerID, followeeID string) (bool, error)
    ListFollowings(ctx context.Context, followerID string, offset, limit int) ([]*model.Follow, error)
    CountFollowings(ctx context.Context, followerID string) (int64, error)
}

type followRepository struct {
    db *gorm.DB
}

func NewFollowRepository(db *gorm.DB) FollowRepository { return &followRepository{db: db} }

func (r *followRepository) Create(ctx context.Context, followerID, followeeID string) error {
    return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
        f := &model.Follow{ID: uuid.New().String(), FollowerID: followerID, FolloweeID: followeeID}
        // 幂等：重复关注不报错
        if err := tx.Clauses(clause.OnConflict{DoNothing: true}).Create(f).Error; err != nil {
            return err
        }
        fan := &model.Follower{ID: uuid.New().String(), UserID: followeeID, FollowerID: followerID}
        return tx.Clauses(clause.OnConflict{DoNothing: true}).Create(fan).Error
    })
}

func (r *followRepository) Delete(ctx context.Context, followerID, followeeID string) error {
    return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
        err := tx.Where("follower_id = ? AND followee_id = ?", followerID, followeeID).
            Delete(&model.Follow{}).Error
        if err != nil {
            return err
        }
        return tx.Where("user_id = ? AND follower_id = ?", followeeID, followerID).
            Delete(&model.Follower{}).Error
    })
}

func (r *followRepository) Exists(ctx context.Context, followerID, followeeID string) (bool, error) {
    var cnt int64
    if err := r.db.WithContext(ctx).
        Model(&model.Follow{}).
        Where("follower_id = ? AND followee_id = ?", followerID, followeeID).
        Count(&cnt).Error; err != nil {
        return false, err
    }
    return cnt > 0, nil
}

func (r *followRepository) ListFollowings(ctx context.Context, followerID string, offset, limit int) ([]*model.Follow, error) {
    var res []*model.Follow
    err := r.db.WithContext(ctx).
        Where("follower_id = ?", followerID).
        Order("created_at DESC").
        Offset(offset).Limit(limit).
        Find(&res).Error
    return res, err
}

func (r *followRepository) CountFollowings(ctx context.Context, followerID string) (int64, error) {
    var cnt int64
    err := r.db.WithContext(ctx).Model(&model.Follow{}).
        Where("follower_id = ?", followerID).
        Count(&cnt).Error
    return cnt, err
}
