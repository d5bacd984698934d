package repository

import (
    "context"

    "gorm.io/gorm"

    "github.com/d60-Lab/feedgraph/internal/model"
)

type ReactionRepository interface {
    // ByActorForPosts 给 feed 装配用：一把捞出 viewer 对一批帖子的表态
    ByActorForPosts(ctx context.Context, actorID string, postIDs []string) (map[string]model.ReactionKind, error)
}

type reactionRepository struct {
    db *gorm.DB
}

func NewReactionRepository(db *gorm.DB) ReactionRepository {
    return &reactionRepository{db: db}
}

func (r *reactionRepository) ByActorForPosts(ctx context.Context, actorID string, postIDs []string) (map[string]model.ReactionKind, error) {
    out := make(map[string]model.ReactionKind, len(postIDs))
    if actorID == "" || len(postIDs) == 0 {
        return out, nil
    }
    var rows []*model.Reaction
    err := r.db.WithContext(ctx).
        Where("actor_id = ? AND post_id IN ?", actorID, postIDs).
        Find(&rows).Error
    if err != nil {
        return nil, err
    }
    for _, rec := range rows {
        out[rec.PostID] = rec.Kind
    }
    return out, nil
}
