package model

import "time"

// TimelineOwner 时间线属主目录：personal 对应个人档案，entity 对应机构。
// 扇出写入前在这里校验属主存在；属主删除时级联清理 timeline_entries。
type TimelineOwner struct {
    ID           string       `gorm:"primaryKey;type:varchar(36)"`
    Kind         TimelineKind `gorm:"type:varchar(16);index:idx_owner_kind;not null"`
    DisplayName  string       `gorm:"type:varchar(120)"`
    ControlledBy string       `gorm:"type:varchar(36);index:idx_owner_actor;not null"`
    CreatedAt    time.Time
    UpdatedAt    time.Time
    DeletedAt    *time.Time `gorm:"index"`
}

func (TimelineOwner) TableName() string { return "timeline_owners" }

func (o *TimelineOwner) Deleted() bool { return o.DeletedAt != nil }
