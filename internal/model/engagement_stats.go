package model

import "time"

// EngagementStats 每帖计数缓存：随台账变更在同一事务内写穿，
// 永远可由 Recount 从台账重建，不是独立事实来源。
type EngagementStats struct {
    PostID       string `gorm:"primaryKey;type:varchar(36)"`
    LikeCount    int64  `gorm:"not null;default:0"`
    DislikeCount int64  `gorm:"not null;default:0"`
    CommentCount int64  `gorm:"not null;default:0"` // 仅顶层评论
    ReplyCount   int64  `gorm:"not null;default:0"`
    ShareCount   int64  `gorm:"not null;default:0"`
    UpdatedAt    time.Time
}

func (EngagementStats) TableName() string { return "engagement_stats" }

// Score 加权互动分：likes + 2*shares + 3*comments（评论含回复）。
func (s EngagementStats) Score() int64 {
    return s.LikeCount + 2*s.ShareCount + 3*(s.CommentCount+s.ReplyCount)
}
