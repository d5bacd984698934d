package model

import "time"

// 内容长度边界（写入时校验）
const (
    TitleMaxLen   = 200
    BodyMinLen    = 1
    BodyMaxLen    = 10000
    CommentMinLen = 1
    CommentMaxLen = 2000
)

// Post 内容主体：正文只存一份，出现在哪些时间线由 timeline_entries 决定
type Post struct {
    ID           string         `gorm:"primaryKey;type:varchar(36)"`
    AuthorID     string         `gorm:"type:varchar(36);index:idx_post_author_created;not null"`
    Title        string         `gorm:"type:varchar(200)"`
    Body         string         `gorm:"type:text;not null"`
    MediaRefs    []string       `gorm:"type:text;serializer:json"`
    Tags         []string       `gorm:"type:text;serializer:json"`
    Metadata     map[string]any `gorm:"type:text;serializer:json"`
    Visibility   Visibility     `gorm:"type:varchar(16);index;not null;default:'draft'"`
    CreatedAt    time.Time      `gorm:"index:idx_post_author_created"`
    EditedAt     *time.Time
    PublishedAt  *time.Time `gorm:"index"`
    DeletedAt    *time.Time `gorm:"index"`
    DeleteReason *string    `gorm:"type:varchar(255)"`
}

func (Post) TableName() string { return "posts" }

// Draft 与 Published 互斥：publish 之前 PublishedAt 为空且可见性为 draft。
func (p *Post) Draft() bool { return p.PublishedAt == nil }

func (p *Post) Published() bool { return p.PublishedAt != nil }

func (p *Post) Deleted() bool { return p.DeletedAt != nil }

// PostContent 创建/编辑帖子时的内容载体
type PostContent struct {
    Title     string
    Body      string
    MediaRefs []string
    Tags      []string
    Metadata  map[string]any
}
