package model

import "time"

// User 作者档案镜像：身份鉴权在外部服务完成，这里不存任何凭据，
// 仅为 feed 的作者摘要与限流的按作者加锚提供数据。
type User struct {
    ID          string `gorm:"primaryKey;type:varchar(36)"`
    Username    string `gorm:"type:varchar(64);uniqueIndex;not null"`
    DisplayName string `gorm:"type:varchar(120)"`
    AvatarURL   string `gorm:"type:varchar(512)"`
    Bio         string `gorm:"type:text"`
    CreatedAt   time.Time
    UpdatedAt   time.Time
}

func (User) TableName() string { return "users" }
