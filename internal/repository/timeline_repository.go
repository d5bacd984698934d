package repository

import (
    "context"
    "time"

    "github.com/google/uuid"
    "gorm.io/gorm"
    "gorm.io/gorm/clause"

    "github.com/d60-Lab/feedgraph/internal/model"
)

type TimelineRepository interface {
    // Upsert 幂等写入：命中唯一索引时静默跳过，返回是否真正插入
    Upsert(ctx context.Context, entry *model.TimelineEntry) (bool, error)
    Get(ctx context.Context, postID string, ref model.TimelineRef) (*model.TimelineEntry, error)
    Remove(ctx context.Context, postID string, ref model.TimelineRef) (bool, error)
    ListForPost(ctx context.Context, postID string) ([]*model.TimelineEntry, error)
    ListForPosts(ctx context.Context, postIDs []string) (map[string][]*model.TimelineEntry, error)
    SetPin(ctx context.Context, postID string, ref model.TimelineRef, actorID string, pinned bool) error
    CountForOwner(ctx context.Context, ref model.TimelineRef) (int64, error)
}

type timelineRepository struct {
    db *gorm.DB
}

func NewTimelineRepository(db *gorm.DB) TimelineRepository {
    return &timelineRepository{db: db}
}

func (r *timelineRepository) Upsert(ctx context.Context, entry *model.TimelineEntry) (bool, error) {
    if entry.ID == "" {
        entry.ID = uuid.NewString()
    }
    res := r.db.WithContext(ctx).
        Clauses(clause.OnConflict{DoNothing: true}).
        Create(entry)
    if res.Error != nil {
        return false, res.Error
    }
    return res.RowsAffected > 0, nil
}

func (r *timelineRepository) Get(ctx context.Context, postID string, ref model.TimelineRef) (*model.TimelineEntry, error) {
    var e model.TimelineEntry
    err := r.db.WithContext(ctx).
        Where("post_id = ? AND kind = ? AND owner_id = ?", postID, ref.Kind, ref.OwnerID).
        First(&e).Error
    if err != nil {
        return nil, err
    }
    return &e, nil
}

func (r *timelineRepository) Remove(ctx context.Context, postID string, ref model.TimelineRef) (bool, error) {
    res := r.db.WithContext(ctx).
        Where("post_id = ? AND kind = ? AND owner_id = ?", postID, ref.Kind, ref.OwnerID).
        Delete(&model.TimelineEntry{})
    if res.Error != nil {
        return false, res.Error
    }
    return res.RowsAffected > 0, nil
}

func (r *timelineRepository) ListForPost(ctx context.Context, postID string) ([]*model.TimelineEntry, error) {
    var res []*model.TimelineEntry
    err := r.db.WithContext(ctx).
        Where("post_id = ?", postID).
        Order("created_at ASC").
        Find(&res).Error
    return res, err
}

func (r *timelineRepository) ListForPosts(ctx context.Context, postIDs []string) (map[string][]*model.TimelineEntry, error) {
    out := make(map[string][]*model.TimelineEntry, len(postIDs))
    if len(postIDs) == 0 {
        return out, nil
    }
    var rows []*model.TimelineEntry
    err := r.db.WithContext(ctx).
        Where("post_id IN ?", postIDs).
        Order("created_at ASC").
        Find(&rows).Error
    if err != nil {
        return nil, err
    }
    for _, e := range rows {
        out[e.PostID] = append(out[e.PostID], e)
    }
    return out, nil
}

func (r *timelineRepository) SetPin(ctx context.Context, postID string, ref model.TimelineRef, actorID string, pinned bool) error {
    updates := map[string]any{
        "pinned":    pinned,
        "pinned_at": nil,
        "pinned_by": "",
    }
    if pinned {
        now := time.Now()
        updates["pinned_at"] = &now
        updates["pinned_by"] = actorID
    }
    res := r.db.WithContext(ctx).Model(&model.TimelineEntry{}).
        Where("post_id = ? AND kind = ? AND owner_id = ?", postID, ref.Kind, ref.OwnerID).
        Updates(updates)
    if res.Error != nil {
        return res.Error
    }
    if res.RowsAffected == 0 {
        return gorm.ErrRecordNotFound
    }
    return nil
}

func (r *timelineRepository) CountForOwner(ctx context.Context, ref model.TimelineRef) (int64, error) {
    var cnt int64
    err := r.db.WithContext(ctx).Model(&model.TimelineEntry{}).
        Where("kind = ? AND owner_id = ?", ref.Kind, ref.OwnerID).
        Count(&cnt).Error
    return cnt, err
}
