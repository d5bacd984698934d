package repository

import (
    "context"
    "time"

    "github.com/google/uuid"
    "gorm.io/gorm"

    "github.com/d60-Lab/feedgraph/internal/model"
)

type OwnerRepository interface {
    Create(ctx context.Context, owner *model.TimelineOwner) error
    Get(ctx context.Context, kind model.TimelineKind, id string) (*model.TimelineOwner, error)
    // Exists 只认未删除的 owner
    Exists(ctx context.Context, kind model.TimelineKind, id string) (bool, error)
    ListControlledBy(ctx context.Context, userID string) ([]*model.TimelineOwner, error)
    // Remove 软删 owner 并在同一事务内清掉其时间线上的全部投递行，
    // 返回被清除的行数
    Remove(ctx context.Context, kind model.TimelineKind, id string) (int64, error)
}

type ownerRepository struct {
    db *gorm.DB
}

func NewOwnerRepository(db *gorm.DB) OwnerRepository { return &ownerRepository{db: db} }

func (r *ownerRepository) Create(ctx context.Context, owner *model.TimelineOwner) error {
    if owner.ID == "" {
        owner.ID = uuid.NewString()
    }
    return r.db.WithContext(ctx).Create(owner).Error
}

func (r *ownerRepository) Get(ctx context.Context, kind model.TimelineKind, id string) (*model.TimelineOwner, error) {
    var o model.TimelineOwner
    err := r.db.WithContext(ctx).
        Where("id = ? AND kind = ? AND deleted_at IS NULL", id, kind).
        First(&o).Error
    if err != nil {
        return nil, err
    }
    return &o, nil
}

func (r *ownerRepository) Exists(ctx context.Context, kind model.TimelineKind, id string) (bool, error) {
    var cnt int64
    err := r.db.WithContext(ctx).Model(&model.TimelineOwner{}).
        Where("id = ? AND kind = ? AND deleted_at IS NULL", id, kind).
        Count(&cnt).Error
    return cnt > 0, err
}

func (r *ownerRepository) ListControlledBy(ctx context.Context, userID string) ([]*model.TimelineOwner, error) {
    var res []*model.TimelineOwner
    err := r.db.WithContext(ctx).
        Where("controlled_by = ? AND deleted_at IS NULL", userID).
        Order("created_at ASC").
        Find(&res).Error
    return res, err
}

func (r *ownerRepository) Remove(ctx context.Context, kind model.TimelineKind, id string) (int64, error) {
    var purged int64
    err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
        now := time.Now()
        res := tx.Model(&model.TimelineOwner{}).
            Where("id = ? AND kind = ? AND deleted_at IS NULL", id, kind).
            Update("deleted_at", &now)
        if res.Error != nil {
            return res.Error
        }
        if res.RowsAffected == 0 {
            return gorm.ErrRecordNotFound
        }
        del := tx.Where("kind = ? AND owner_id = ?", kind, id).
            Delete(&model.TimelineEntry{})
        if del.Error != nil {
            return del.Error
        }
        purged = del.RowsAffected
        return nil
    })
    return purged, err
}
