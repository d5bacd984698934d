package repository

import (
    "context"

    "gorm.io/gorm"

    "github.com/d60-Lab/feedgraph/internal/model"
)

type PostRepository interface {
    GetByID(ctx context.Context, id string) (*model.Post, error)
    // GetLive 排除软删除行；不存在与已删除同样返回 gorm.ErrRecordNotFound
    GetLive(ctx context.Context, id string) (*model.Post, error)
    ListByAuthor(ctx context.Context, authorID string, offset, limit int) ([]*model.Post, error)
}

type postRepository struct {
    db *gorm.DB
}

func NewPostRepository(db *gorm.DB) PostRepository { return &postRepository{db: db} }

func (r *postRepository) GetByID(ctx context.Context, id string) (*model.Post, error) {
    var p model.Post
    if err := r.db.WithContext(ctx).Where("id = ?", id).First(&p).Error; err != nil {
        return nil, err
    }
    return &p, nil
}

func (r *postRepository) GetLive(ctx context.Context, id string) (*model.Post, error) {
    var p model.Post
    err := r.db.WithContext(ctx).
        Where("id = ? AND deleted_at IS NULL", id).
        First(&p).Error
    if err != nil {
        return nil, err
    }
    return &p, nil
}

func (r *postRepository) ListByAuthor(ctx context.Context, authorID string, offset, limit int) ([]*model.Post, error) {
    var res []*model.Post
    err := r.db.WithContext(ctx).
        Where("author_id = ? AND deleted_at IS NULL", authorID).
        Order("created_at DESC").
        Offset(offset).Limit(limit).
        Find(&res).Error
    return res, err
}
