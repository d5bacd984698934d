package model

import "time"

// Follower 粉丝反向索引（B 的粉丝是 A），冗余自 Follow，与 Follow 同事务双写
type Follower struct {
    ID         string `gorm:"primaryKey;type:varchar(36)"`
    UserID     string `gorm:"type:varchar(36);index:idx_follower_user;index:idx_follower_pair,unique;not null"`
    FollowerID string `gorm:"type:varchar(36);not null;index:idx_follower_pair,unique"`
    CreatedAt  time.Time
}

func (Follower) TableName() string { return "followers" }
