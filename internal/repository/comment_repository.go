package repository

import (
    "context"

    "gorm.io/gorm"

    "github.com/d60-Lab/feedgraph/internal/model"
)

type CommentRepository interface {
    // ListTopLevel 顶层评论按时间正序分页，软删的占位行保留（楼中楼还挂在下面）
    ListTopLevel(ctx context.Context, postID string, offset, limit int) ([]*model.Comment, error)
    // ListReplies 按父评论批量取回复，正序
    ListReplies(ctx context.Context, parentIDs []string) (map[string][]*model.Comment, error)
    // CountForPost 数活着的评论；已删行不算
    CountForPost(ctx context.Context, postID string) (topLevel, replies int64, err error)
}

type commentRepository struct {
    db *gorm.DB
}

func NewCommentRepository(db *gorm.DB) CommentRepository {
    return &commentRepository{db: db}
}

func (r *commentRepository) ListTopLevel(ctx context.Context, postID string, offset, limit int) ([]*model.Comment, error) {
    var res []*model.Comment
    err := r.db.WithContext(ctx).
        Where("post_id = ? AND parent_id IS NULL", postID).
        Order("created_at ASC").
        Offset(offset).Limit(limit).
        Find(&res).Error
    return res, err
}

func (r *commentRepository) ListReplies(ctx context.Context, parentIDs []string) (map[string][]*model.Comment, error) {
    out := make(map[string][]*model.Comment, len(parentIDs))
    if len(parentIDs) == 0 {
        return out, nil
    }
    var rows []*model.Comment
    err := r.db.WithContext(ctx).
        Where("parent_id IN ? AND deleted_at IS NULL", parentIDs).
        Order("created_at ASC").
        Find(&rows).Error
    if err != nil {
        return nil, err
    }
    for _, c := range rows {
        out[*c.ParentID] = append(out[*c.ParentID], c)
    }
    return out, nil
}

func (r *commentRepository) CountForPost(ctx context.Context, postID string) (int64, int64, error) {
    var topLevel, replies int64
    err := r.db.WithContext(ctx).Model(&model.Comment{}).
        Where("post_id = ? AND parent_id IS NULL AND deleted_at IS NULL", postID).
        Count(&topLevel).Error
    if err != nil {
        return 0, 0, err
    }
    err = r.db.WithContext(ctx).Model(&model.Comment{}).
        Where("post_id = ? AND parent_id IS NOT NULL AND deleted_at IS NULL", postID).
        Count(&replies).Error
    return topLevel, replies, err
}
