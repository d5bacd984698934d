package service

import (
    "context"
    "errors"
    "time"

    "github.com/google/uuid"
    "gorm.io/gorm"
    "gorm.io/gorm/clause"

    "github.com/d60-Lab/feedgraph/internal/apperr"
    "github.com/d60-Lab/feedgraph/internal/model"
    "github.com/d60-Lab/feedgraph/internal/repository"
    "github.com/d60-Lab/feedgraph/pkg/metrics"
)

// TimelineService 扇出写入与完整性守卫：每一笔投递在落库前同步校验
// 目标时间线结构合法、属主真实存在，不合法的写整体拒绝。
// 属主目录也归它管，属主删除与投递行清理在同一事务内完成。
type TimelineService struct {
    entries repository.TimelineRepository
    owners  repository.OwnerRepository
    posts   repository.PostRepository
    follows repository.FollowRepository
}

func NewTimelineService(entries repository.TimelineRepository, owners repository.OwnerRepository, posts repository.PostRepository, follows repository.FollowRepository) *TimelineService {
    return &TimelineService{entries: entries, owners: owners, posts: posts, follows: follows}
}

// AddToTimeline 把帖子投递到一条时间线。重复投递幂等，
// 唯一索引兜底并发下的重复插入。
func (s *TimelineService) AddToTimeline(ctx context.Context, postID string, ref model.TimelineRef, actorID string) (*model.TimelineEntry, error) {
    post, err := s.guardTarget(ctx, postID, ref, actorID)
    if err != nil {
        return nil, err
    }

    entry := &model.TimelineEntry{
        PostID:    post.ID,
        Kind:      ref.Kind,
        OwnerID:   ref.OwnerID,
        AddedBy:   actorID,
        CreatedAt: time.Now(),
    }
    inserted, err := s.entries.Upsert(ctx, entry)
    if err != nil {
        return nil, err
    }
    if !inserted {
        return s.entries.Get(ctx, postID, ref)
    }
    metrics.FanoutWrites.WithLabelValues(string(ref.Kind)).Inc()
    return entry, nil
}

// guardTarget 扇出前的完整性与权限检查。帖子不存在或已删按完整性
// 违规处理，整笔写拒绝。
func (s *TimelineService) guardTarget(ctx context.Context, postID string, ref model.TimelineRef, actorID string) (*model.Post, error) {
    if err := ref.Validate(); err != nil {
        return nil, err
    }

    post, err := s.posts.GetByID(ctx, postID)
    if errors.Is(err, gorm.ErrRecordNotFound) {
        return nil, apperr.Integrityf("post %s does not exist", postID)
    }
    if err != nil {
        return nil, err
    }
    if post.Deleted() {
        return nil, apperr.Integrityf("post %s is deleted", postID)
    }
    if post.Draft() {
        return nil, apperr.Statef("draft post cannot be placed on a timeline")
    }

    switch ref.Kind {
    case model.TimelineKindCommunal:
        // 公共时间线只收 public 帖子
        if post.Visibility != model.VisibilityPublic {
            return nil, apperr.Authorizationf("only public posts can enter the communal timeline")
        }
    default:
        owner, err := s.owners.Get(ctx, ref.Kind, ref.OwnerID)
        if errors.Is(err, gorm.ErrRecordNotFound) {
            return nil, apperr.Integrityf("%s timeline owner %s does not exist", ref.Kind, ref.OwnerID)
        }
        if err != nil {
            return nil, err
        }
        if owner.ControlledBy != actorID {
            return nil, apperr.Authorizationf("actor does not control timeline %s", ref)
        }
        visible, err := canViewPost(ctx, s.follows, post, actorID)
        if err != nil {
            return nil, err
        }
        if !visible {
            return nil, apperr.NotFoundf("post %s", postID)
        }
    }
    return post, nil
}

// RemoveFromTimeline 摘下投递行；帖子作者或时间线属主有权操作。
func (s *TimelineService) RemoveFromTimeline(ctx context.Context, postID string, ref model.TimelineRef, actorID string) error {
    if err := ref.Validate(); err != nil {
        return err
    }

    post, err := s.posts.GetByID(ctx, postID)
    if errors.Is(err, gorm.ErrRecordNotFound) {
        return apperr.NotFoundf("post %s", postID)
    }
    if err != nil {
        return err
    }

    if post.AuthorID != actorID {
        allowed, err := s.controlsTimeline(ctx, ref, actorID)
        if err != nil {
            return err
        }
        if !allowed {
            return apperr.Authorizationf("actor may not remove this entry")
        }
    }

    removed, err := s.entries.Remove(ctx, postID, ref)
    if err != nil {
        return err
    }
    if !removed {
        return apperr.NotFoundf("post %s is not on timeline %s", postID, ref)
    }
    return nil
}

// SetPin 置顶/取消置顶。只有时间线属主可操作；公共时间线无属主，
// 一律拒绝。
func (s *TimelineService) SetPin(ctx context.Context, postID string, ref model.TimelineRef, actorID string, pinned bool) error {
    if err := ref.Validate(); err != nil {
        return err
    }
    if !ref.HasOwner() {
        return apperr.Authorizationf("communal timeline has no owner to pin for")
    }

    allowed, err := s.controlsTimeline(ctx, ref, actorID)
    if err != nil {
        return err
    }
    if !allowed {
        return apperr.Authorizationf("only the timeline owner can pin")
    }

    err = s.entries.SetPin(ctx, postID, ref, actorID, pinned)
    if errors.Is(err, gorm.ErrRecordNotFound) {
        return apperr.NotFoundf("post %s is not on timeline %s", postID, ref)
    }
    return err
}

func (s *TimelineService) controlsTimeline(ctx context.Context, ref model.TimelineRef, actorID string) (bool, error) {
    if !ref.HasOwner() {
        return false, nil
    }
    owner, err := s.owners.Get(ctx, ref.Kind, ref.OwnerID)
    if errors.Is(err, gorm.ErrRecordNotFound) {
        return false, nil
    }
    if err != nil {
        return false, err
    }
    return owner.ControlledBy == actorID, nil
}

// ListEntriesForPost 一篇帖子目前挂在哪些时间线上
func (s *TimelineService) ListEntriesForPost(ctx context.Context, postID string) ([]*model.TimelineEntry, error) {
    return s.entries.ListForPost(ctx, postID)
}

// RegisterOwner 登记时间线属主。personal 属主 id 即用户 id，每人一条；
// entity 属主新发 id，登记者即控制人。
func (s *TimelineService) RegisterOwner(ctx context.Context, kind model.TimelineKind, displayName, actorID string) (*model.TimelineOwner, error) {
    if kind != model.TimelineKindPersonal && kind != model.TimelineKindEntity {
        return nil, apperr.Validationf("owner kind must be personal or entity, got %q", kind)
    }

    id := uuid.New().String()
    if kind == model.TimelineKindPersonal {
        id = actorID
        exists, err := s.owners.Exists(ctx, kind, id)
        if err != nil {
            return nil, err
        }
        if exists {
            return nil, apperr.Statef("personal timeline already registered for %s", actorID)
        }
    }

    now := time.Now()
    owner := &model.TimelineOwner{
        ID:           id,
        Kind:         kind,
        DisplayName:  displayName,
        ControlledBy: actorID,
        CreatedAt:    now,
        UpdatedAt:    now,
    }
    if err := s.owners.Create(ctx, owner); err != nil {
        return nil, err
    }
    return owner, nil
}

// RemoveOwner 注销属主。指向它的投递行在同一事务内级联清理，
// 不留悬挂引用；被投递的帖子本体不动。
func (s *TimelineService) RemoveOwner(ctx context.Context, kind model.TimelineKind, ownerID, actorID string) (int64, error) {
    owner, err := s.owners.Get(ctx, kind, ownerID)
    if errors.Is(err, gorm.ErrRecordNotFound) {
        return 0, apperr.NotFoundf("%s owner %s", kind, ownerID)
    }
    if err != nil {
        return 0, err
    }
    if owner.ControlledBy != actorID {
        return 0, apperr.Authorizationf("actor does not control owner %s", ownerID)
    }

    purged, err := s.owners.Remove(ctx, kind, ownerID)
    if errors.Is(err, gorm.ErrRecordNotFound) {
        return 0, apperr.NotFoundf("%s owner %s", kind, ownerID)
    }
    return purged, err
}

// GetOwner 查属主
func (s *TimelineService) GetOwner(ctx context.Context, kind model.TimelineKind, ownerID string) (*model.TimelineOwner, error) {
    owner, err := s.owners.Get(ctx, kind, ownerID)
    if errors.Is(err, gorm.ErrRecordNotFound) {
        return nil, apperr.NotFoundf("%s owner %s", kind, ownerID)
    }
    return owner, err
}

// OwnedTimeline 属主及其时间线上当前挂着的条目数
type OwnedTimeline struct {
    Owner      *model.TimelineOwner `json:"owner"`
    EntryCount int64                `json:"entry_count"`
}

// ListOwnedBy actor 控制下的全部属主，带各自时间线的条目数
func (s *TimelineService) ListOwnedBy(ctx context.Context, actorID string) ([]*OwnedTimeline, error) {
    owners, err := s.owners.ListControlledBy(ctx, actorID)
    if err != nil {
        return nil, err
    }
    res := make([]*OwnedTimeline, 0, len(owners))
    for _, o := range owners {
        cnt, err := s.entries.CountForOwner(ctx, model.TimelineRef{Kind: o.Kind, OwnerID: o.ID})
        if err != nil {
            return nil, err
        }
        res = append(res, &OwnedTimeline{Owner: o, EntryCount: cnt})
    }
    return res, nil
}

// upsertEntryTx 在调用方事务里幂等落投递行，发布与分享共用。
func upsertEntryTx(tx *gorm.DB, e *model.TimelineEntry) (bool, error) {
    if e.ID == "" {
        e.ID = uuid.New().String()
    }
    res := tx.Clauses(clause.OnConflict{DoNothing: true}).Create(e)
    if res.Error != nil {
        return false, res.Error
    }
    return res.RowsAffected > 0, nil
}
