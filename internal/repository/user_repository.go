package repository

import (
    "context"

    "gorm.io/gorm"
    "gorm.io/gorm/clause"

    "github.com/d60-Lab/feedgraph/internal/model"
)

type UserRepository interface {
    // Upsert 身份由外部系统认证，这里只维护资料快照
    Upsert(ctx context.Context, user *model.User) error
    GetByID(ctx context.Context, id string) (*model.User, error)
    Exists(ctx context.Context, id string) (bool, error)
}

type userRepository struct {
    db *gorm.DB
}

func NewUserRepository(db *gorm.DB) UserRepository { return &userRepository{db: db} }

func (r *userRepository) Upsert(ctx context.Context, user *model.User) error {
    return r.db.WithContext(ctx).
        Clauses(clause.OnConflict{
            Columns:   []clause.Column{{Name: "id"}},
            DoUpdates: clause.AssignmentColumns([]string{"username", "display_name", "avatar_url", "bio", "updated_at"}),
        }).
        Create(user).Error
}

func (r *userRepository) GetByID(ctx context.Context, id string) (*model.User, error) {
    var u model.User
    if err := r.db.WithContext(ctx).Where("id = ?", id).First(&u).Error; err != nil {
        return nil, err
    }
    return &u, nil
}

func (r *userRepository) Exists(ctx context.Context, id string) (bool, error) {
    var cnt int64
    err := r.db.WithContext(ctx).Model(&model.User{}).Where("id = ?", id).Count(&cnt).Error
    return cnt > 0, err
}
