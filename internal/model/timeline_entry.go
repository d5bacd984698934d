package model

import "time"

// TimelineEntry 扇出行：帖子与时间线的多对多关联，内容本身不复制。
// OwnerID 对 communal 恒为空串而非 NULL，否则复合唯一键在 NULL 下失效。
type TimelineEntry struct {
    ID      string       `gorm:"primaryKey;type:varchar(36)"`
    PostID  string       `gorm:"type:varchar(36);index:idx_entry_post;uniqueIndex:ux_entry_post_timeline;not null"`
    Kind    TimelineKind `gorm:"type:varchar(16);uniqueIndex:ux_entry_post_timeline;index:idx_entry_timeline;not null"`
    OwnerID string       `gorm:"type:varchar(36);uniqueIndex:ux_entry_post_timeline;index:idx_entry_timeline"`
    // 复合唯一键，同一帖子在同一时间线至多一行
    // ux_entry_post_timeline = (post_id, kind, owner_id)
    AddedBy   string `gorm:"type:varchar(36);not null"`
    Pinned    bool   `gorm:"not null;default:false"`
    PinnedAt  *time.Time
    PinnedBy  string    `gorm:"type:varchar(36)"`
    CreatedAt time.Time `gorm:"index"`
}

func (TimelineEntry) TableName() string { return "timeline_entries" }

// Ref 还原时间线引用。
func (e *TimelineEntry) Ref() TimelineRef {
    return TimelineRef{Kind: e.Kind, OwnerID: e.OwnerID}
}
