package model

import "time"

// ReactionKind 反应类型：like 与 dislike 互斥
type ReactionKind string

const (
    ReactionLike    ReactionKind = "like"
    ReactionDislike ReactionKind = "dislike"
)

// Reaction 点赞/点踩台账：同一 (post, actor) 至多一行，互斥性由唯一索引保证。
type Reaction struct {
    ID        string       `gorm:"primaryKey;type:varchar(36)"`
    PostID    string       `gorm:"type:varchar(36);index:idx_reaction_post;uniqueIndex:ux_reaction_post_actor;not null"`
    ActorID   string       `gorm:"type:varchar(36);uniqueIndex:ux_reaction_post_actor;not null"`
    Kind      ReactionKind `gorm:"type:varchar(16);not null"`
    CreatedAt time.Time
}

func (Reaction) TableName() string { return "reactions" }
