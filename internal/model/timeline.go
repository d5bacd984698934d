package model

import "github.com/d60-Lab/feedgraph/internal/apperr"

// TimelineKind 时间线类型
type TimelineKind string

const (
    TimelineKindPersonal TimelineKind = "personal"
    TimelineKindEntity   TimelineKind = "entity"
    TimelineKindCommunal TimelineKind = "communal"
)

// Visibility 帖子可见性
type Visibility string

const (
    VisibilityPublic    Visibility = "public"
    VisibilityFollowers Visibility = "followers"
    VisibilityPrivate   Visibility = "private"
    VisibilityDraft     Visibility = "draft"
)

func (v Visibility) Valid() bool {
    switch v {
    case VisibilityPublic, VisibilityFollowers, VisibilityPrivate, VisibilityDraft:
        return true
    }
    return false
}

// TimelineRef 时间线引用：kind + owner 组成和类型，避免“kind 与 owner 不配套”这类脏数据。
// communal 无属主，OwnerID 恒为空串；personal/entity 必须带属主。
type TimelineRef struct {
    Kind    TimelineKind `json:"kind"`
    OwnerID string       `json:"owner_id,omitempty"`
}

func CommunalTimeline() TimelineRef {
    return TimelineRef{Kind: TimelineKindCommunal}
}

func PersonalTimeline(ownerID string) TimelineRef {
    return TimelineRef{Kind: TimelineKindPersonal, OwnerID: ownerID}
}

func EntityTimeline(ownerID string) TimelineRef {
    return TimelineRef{Kind: TimelineKindEntity, OwnerID: ownerID}
}

// Validate 校验结构合法性（不访问存储）。
func (r TimelineRef) Validate() error {
    switch r.Kind {
    case TimelineKindCommunal:
        if r.OwnerID != "" {
            return apperr.Integrityf("communal timeline must not have an owner")
        }
    case TimelineKindPersonal, TimelineKindEntity:
        if r.OwnerID == "" {
            return apperr.Integrityf("%s timeline requires an owner", r.Kind)
        }
    default:
        return apperr.Integrityf("unknown timeline kind %q", r.Kind)
    }
    return nil
}

// HasOwner communal 以外都有属主。
func (r TimelineRef) HasOwner() bool { return r.Kind != TimelineKindCommunal }

func (r TimelineRef) String() string {
    if !r.HasOwner() {
        return string(r.Kind)
    }
    return string(r.Kind) + ":" + r.OwnerID
}
