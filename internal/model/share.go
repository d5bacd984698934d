package model

import (
    "time"

    "github.com/d60-Lab/feedgraph/internal/apperr"
)

// ShareDestKind 分享目的地类型：三种时间线之外还允许 external（站外）。
type ShareDestKind string

const (
    ShareDestPersonal ShareDestKind = "personal"
    ShareDestEntity   ShareDestKind = "entity"
    ShareDestCommunal ShareDestKind = "communal"
    ShareDestExternal ShareDestKind = "external"
)

// ShareDestination 分享目的地
type ShareDestination struct {
    Kind    ShareDestKind `json:"kind"`
    OwnerID string        `json:"owner_id,omitempty"`
}

// Validate 校验结构合法性。
func (d ShareDestination) Validate() error {
    switch d.Kind {
    case ShareDestCommunal, ShareDestExternal:
        if d.OwnerID != "" {
            return apperr.Validationf("%s share destination must not have an owner", d.Kind)
        }
    case ShareDestPersonal, ShareDestEntity:
        if d.OwnerID == "" {
            return apperr.Validationf("%s share destination requires an owner", d.Kind)
        }
    default:
        return apperr.Validationf("unknown share destination kind %q", d.Kind)
    }
    return nil
}

// TimelineRef 站内目的地对应的时间线引用；external 返回 false。
func (d ShareDestination) TimelineRef() (TimelineRef, bool) {
    switch d.Kind {
    case ShareDestPersonal:
        return PersonalTimeline(d.OwnerID), true
    case ShareDestEntity:
        return EntityTimeline(d.OwnerID), true
    case ShareDestCommunal:
        return CommunalTimeline(), true
    }
    return TimelineRef{}, false
}

// Share 分享台账：只记录谁、何时、分享到哪里；帖子本体绝不复制。
// 同一 (post, actor, destination) 去重，重复分享为幂等。
type Share struct {
    ID          string        `gorm:"primaryKey;type:varchar(36)"`
    PostID      string        `gorm:"type:varchar(36);index:idx_share_post;uniqueIndex:ux_share_dedup;not null"`
    ActorID     string        `gorm:"type:varchar(36);index:idx_share_actor;uniqueIndex:ux_share_dedup;not null"`
    DestKind    ShareDestKind `gorm:"type:varchar(16);uniqueIndex:ux_share_dedup;not null"`
    DestOwnerID string        `gorm:"type:varchar(36);uniqueIndex:ux_share_dedup"`
    CreatedAt   time.Time     `gorm:"index"`
}

func (Share) TableName() string { return "shares" }

// Destination 还原分享目的地。
func (s *Share) Destination() ShareDestination {
    return ShareDestination{Kind: s.DestKind, OwnerID: s.DestOwnerID}
}
