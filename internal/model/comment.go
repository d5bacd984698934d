package model

import "time"

// Comment 评论：单层嵌套，回复一律挂在顶层评论之下（ParentID 指向顶层）。
// 软删除独立于帖子，删除后正文不再返回但行保留。
type Comment struct {
    ID        string  `gorm:"primaryKey;type:varchar(36)"`
    PostID    string  `gorm:"type:varchar(36);index:idx_comment_post;not null"`
    AuthorID  string  `gorm:"type:varchar(36);index:idx_comment_author;not null"`
    Body      string  `gorm:"type:text;not null"`
    ParentID  *string `gorm:"type:varchar(36);index:idx_comment_parent"`
    CreatedAt time.Time
    DeletedAt *time.Time `gorm:"index"`
}

func (Comment) TableName() string { return "comments" }

func (c *Comment) Reply() bool { return c.ParentID != nil }

func (c *Comment) Deleted() bool { return c.DeletedAt != nil }
