package repository

import (
    "context"
    "time"

    "gorm.io/gorm"
    "gorm.io/gorm/clause"

    "github.com/d60-Lab/feedgraph/internal/model"
)

type StatsRepository interface {
    Get(ctx context.Context, postID string) (*model.EngagementStats, error)
    GetMany(ctx context.Context, postIDs []string) (map[string]*model.EngagementStats, error)
    // Recount 从明细表全量重算一篇帖子的计数并落盘，作为缓存兜底
    Recount(ctx context.Context, postID string) (*model.EngagementStats, error)
}

type statsRepository struct {
    db *gorm.DB
}

func NewStatsRepository(db *gorm.DB) StatsRepository { return &statsRepository{db: db} }

func (r *statsRepository) Get(ctx context.Context, postID string) (*model.EngagementStats, error) {
    var s model.EngagementStats
    err := r.db.WithContext(ctx).Where("post_id = ?", postID).First(&s).Error
    if err != nil {
        return nil, err
    }
    return &s, nil
}

func (r *statsRepository) GetMany(ctx context.Context, postIDs []string) (map[string]*model.EngagementStats, error) {
    out := make(map[string]*model.EngagementStats, len(postIDs))
    if len(postIDs) == 0 {
        return out, nil
    }
    var rows []*model.EngagementStats
    err := r.db.WithContext(ctx).
        Where("post_id IN ?", postIDs).
        Find(&rows).Error
    if err != nil {
        return nil, err
    }
    for _, s := range rows {
        out[s.PostID] = s
    }
    return out, nil
}

func (r *statsRepository) Recount(ctx context.Context, postID string) (*model.EngagementStats, error) {
    stats := &model.EngagementStats{PostID: postID}
    err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
        counts := []struct {
            dest  *int64
            table any
            where string
            args  []any
        }{
            {&stats.LikeCount, &model.Reaction{}, "post_id = ? AND kind = ?", []any{postID, model.ReactionLike}},
            {&stats.DislikeCount, &model.Reaction{}, "post_id = ? AND kind = ?", []any{postID, model.ReactionDislike}},
            {&stats.CommentCount, &model.Comment{}, "post_id = ? AND parent_id IS NULL AND deleted_at IS NULL", []any{postID}},
            {&stats.ReplyCount, &model.Comment{}, "post_id = ? AND parent_id IS NOT NULL AND deleted_at IS NULL", []any{postID}},
            {&stats.ShareCount, &model.Share{}, "post_id = ?", []any{postID}},
        }
        for _, c := range counts {
            if err := tx.Model(c.table).Where(c.where, c.args...).Count(c.dest).Error; err != nil {
                return err
            }
        }
        stats.UpdatedAt = time.Now()
        return tx.Clauses(clause.OnConflict{UpdateAll: true}).Create(stats).Error
    })
    if err != nil {
        return nil, err
    }
    return stats, nil
}

// StatsDelta 单次互动对计数缓存的增量。
type StatsDelta struct {
    Likes    int64
    Dislikes int64
    Comments int64
    Replies  int64
    Shares   int64
}

// BumpStats 在调用方事务里增量维护计数缓存：先保证行存在，再原地加。
func BumpStats(tx *gorm.DB, postID string, d StatsDelta) error {
    err := tx.Clauses(clause.OnConflict{DoNothing: true}).
        Create(&model.EngagementStats{PostID: postID, UpdatedAt: time.Now()}).Error
    if err != nil {
        return err
    }
    return tx.Model(&model.EngagementStats{}).
        Where("post_id = ?", postID).
        Updates(map[string]any{
            "like_count":    gorm.Expr("like_count + ?", d.Likes),
            "dislike_count": gorm.Expr("dislike_count + ?", d.Dislikes),
            "comment_count": gorm.Expr("comment_count + ?", d.Comments),
            "reply_count":   gorm.Expr("reply_count + ?", d.Replies),
            "share_count":   gorm.Expr("share_count + ?", d.Shares),
            "updated_at":    time.Now(),
        }).Error
}
