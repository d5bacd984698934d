package service

import (
    "context"
    "errors"
    "time"
    "unicode/utf8"

    "github.com/google/uuid"
    "gorm.io/gorm"
    "gorm.io/gorm/clause"

    "github.com/d60-Lab/feedgraph/internal/apperr"
    "github.com/d60-Lab/feedgraph/internal/event"
    "github.com/d60-Lab/feedgraph/internal/model"
    "github.com/d60-Lab/feedgraph/internal/repository"
    "github.com/d60-Lab/feedgraph/pkg/metrics"
)

// CommentThread 顶层评论及其回复；已删评论保留占位，正文抹空
type CommentThread struct {
    Comment *model.Comment   `json:"comment"`
    Replies []*model.Comment `json:"replies"`
}

// EngagementService 互动台账：点赞/点踩、评论、分享三本独立账，
// 计数缓存随每笔变更同事务写穿，永远可由 Recount 重建。
type EngagementService interface {
    // React 幂等点赞/点踩；互斥的反向反应在同一事务内被顶掉。
    // 返回该反应类型的最新计数。
    React(ctx context.Context, postID, actorID string, kind model.ReactionKind) (int64, error)
    // Unreact 幂等撤销；从未反应过也算成功
    Unreact(ctx context.Context, postID, actorID string, kind model.ReactionKind) error
    // Comment 发评论；parentID 指向本帖任意未删评论，回复一律拍平挂到顶层。
    // 返回新评论与帖子最新评论总数（含回复）。
    Comment(ctx context.Context, postID, authorID, body string, parentID *string) (*model.Comment, int64, error)
    // DeleteComment 软删自己的评论，幂等
    DeleteComment(ctx context.Context, commentID, actorID string) error
    // Share 记账一次分享并把帖子投递到目的时间线；帖子本体绝不复制。
    // 同一目的地重复分享幂等，返回已有台账行。
    Share(ctx context.Context, postID, actorID string, dest model.ShareDestination) (*model.Share, error)
    // ListComments 楼层结构分页读；第二个返回值是全帖评论总数（含回复）
    ListComments(ctx context.Context, postID, viewerID string, page, pageSize int) ([]*CommentThread, int64, error)
    ListShares(ctx context.Context, postID, viewerID string, page, pageSize int) ([]*model.Share, int64, error)
    // Recount 从台账全量重算计数缓存，测试与修复工具用
    Recount(ctx context.Context, postID string) (*model.EngagementStats, error)
    Stats(ctx context.Context, postID string) (*model.EngagementStats, error)
}

type engagementService struct {
    db       *gorm.DB
    posts    repository.PostRepository
    comments repository.CommentRepository
    shares   repository.ShareRepository
    stats    repository.StatsRepository
    owners   repository.OwnerRepository
    follows  repository.FollowRepository
    bus      *event.Bus
}

func NewEngagementService(
    db *gorm.DB,
    posts repository.PostRepository,
    comments repository.CommentRepository,
    shares repository.ShareRepository,
    stats repository.StatsRepository,
    owners repository.OwnerRepository,
    follows repository.FollowRepository,
    bus *event.Bus,
) EngagementService {
    return &engagementService{
        db: db, posts: posts, comments: comments,
        shares: shares, stats: stats, owners: owners, follows: follows, bus: bus,
    }
}

// engageablePost 互动前置检查：帖子存在未删、viewer 可见、已发布。
func (s *engagementService) engageablePost(ctx context.Context, postID, actorID string) (*model.Post, error) {
    p, err := s.posts.GetLive(ctx, postID)
    if errors.Is(err, gorm.ErrRecordNotFound) {
        return nil, apperr.NotFoundf("post %s", postID)
    }
    if err != nil {
        return nil, err
    }
    visible, err := canViewPost(ctx, s.follows, p, actorID)
    if err != nil {
        return nil, err
    }
    if !visible {
        return nil, apperr.NotFoundf("post %s", postID)
    }
    if p.Draft() {
        return nil, apperr.Statef("post %s is not published", postID)
    }
    return p, nil
}

func (s *engagementService) React(ctx context.Context, postID, actorID string, kind model.ReactionKind) (int64, error) {
    if kind != model.ReactionLike && kind != model.ReactionDislike {
        return 0, apperr.Validationf("unknown reaction kind %q", kind)
    }
    if _, err := s.engageablePost(ctx, postID, actorID); err != nil {
        return 0, err
    }

    var count int64
    changed := false
    err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
        var existing model.Reaction
        err := tx.Where("post_id = ? AND actor_id = ?", postID, actorID).First(&existing).Error
        switch {
        case errors.Is(err, gorm.ErrRecordNotFound):
            rec := &model.Reaction{
                ID: uuid.New().String(), PostID: postID, ActorID: actorID,
                Kind: kind, CreatedAt: time.Now(),
            }
            res := tx.Clauses(clause.OnConflict{DoNothing: true}).Create(rec)
            if res.Error != nil {
                return res.Error
            }
            // 0 行命中说明并发方已写入，幂等收场
            if res.RowsAffected > 0 {
                changed = true
                if err := repository.BumpStats(tx, postID, reactionDelta(kind, +1)); err != nil {
                    return err
                }
            }
        case err != nil:
            return err
        case existing.Kind == kind:
            // 重复同向反应，无事发生
        default:
            // 互斥顶替：条件更新保证并发下只有一方真正翻转
            res := tx.Model(&model.Reaction{}).
                Where("post_id = ? AND actor_id = ? AND kind = ?", postID, actorID, existing.Kind).
                Update("kind", kind)
            if res.Error != nil {
                return res.Error
            }
            if res.RowsAffected > 0 {
                changed = true
                delta := reactionDelta(kind, +1)
                opp := reactionDelta(existing.Kind, -1)
                delta.Likes += opp.Likes
                delta.Dislikes += opp.Dislikes
                if err := repository.BumpStats(tx, postID, delta); err != nil {
                    return err
                }
            }
        }

        var st model.EngagementStats
        if err := tx.Where("post_id = ?", postID).First(&st).Error; err != nil && !errors.Is(err, gorm.ErrRecordNotFound) {
            return err
        }
        if kind == model.ReactionLike {
            count = st.LikeCount
        } else {
            count = st.DislikeCount
        }
        return nil
    })
    if err != nil {
        return 0, err
    }

    if changed && kind == model.ReactionLike && s.bus != nil {
        s.bus.Publish(event.Event{Type: event.TypePostLiked, PostID: postID, ActorID: actorID, At: time.Now()})
    }
    return count, nil
}

func (s *engagementService) Unreact(ctx context.Context, postID, actorID string, kind model.ReactionKind) error {
    if kind != model.ReactionLike && kind != model.ReactionDislike {
        return apperr.Validationf("unknown reaction kind %q", kind)
    }
    if _, err := s.engageablePost(ctx, postID, actorID); err != nil {
        return err
    }

    return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
        res := tx.Where("post_id = ? AND actor_id = ? AND kind = ?", postID, actorID, kind).
            Delete(&model.Reaction{})
        if res.Error != nil {
            return res.Error
        }
        if res.RowsAffected == 0 {
            return nil
        }
        return repository.BumpStats(tx, postID, reactionDelta(kind, -1))
    })
}

func reactionDelta(kind model.ReactionKind, n int64) repository.StatsDelta {
    if kind == model.ReactionLike {
        return repository.StatsDelta{Likes: n}
    }
    return repository.StatsDelta{Dislikes: n}
}

func (s *engagementService) Comment(ctx context.Context, postID, authorID, body string, parentID *string) (*model.Comment, int64, error) {
    if n := utf8.RuneCountInString(body); n < model.CommentMinLen || n > model.CommentMaxLen {
        return nil, 0, apperr.Validationf("comment length %d out of range [%d,%d]", n, model.CommentMinLen, model.CommentMaxLen)
    }
    if _, err := s.engageablePost(ctx, postID, authorID); err != nil {
        return nil, 0, err
    }

    var (
        comment *model.Comment
        total   int64
    )
    err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
        var rootID *string
        if parentID != nil {
            var parent model.Comment
            err := tx.Where("id = ?", *parentID).First(&parent).Error
            if errors.Is(err, gorm.ErrRecordNotFound) {
                return apperr.NotFoundf("parent comment %s", *parentID)
            }
            if err != nil {
                return err
            }
            if parent.PostID != postID {
                return apperr.Validationf("parent comment belongs to another post")
            }
            if parent.Deleted() {
                return apperr.NotFoundf("parent comment %s", *parentID)
            }
            // 只允许一层嵌套：回复回复时挂到同一顶层评论下
            if parent.Reply() {
                rootID = parent.ParentID
            } else {
                id := parent.ID
                rootID = &id
            }
        }

        c := &model.Comment{
            ID:        uuid.New().String(),
            PostID:    postID,
            AuthorID:  authorID,
            Body:      body,
            ParentID:  rootID,
            CreatedAt: time.Now(),
        }
        if err := tx.Create(c).Error; err != nil {
            return err
        }

        delta := repository.StatsDelta{Comments: 1}
        if rootID != nil {
            delta = repository.StatsDelta{Replies: 1}
        }
        if err := repository.BumpStats(tx, postID, delta); err != nil {
            return err
        }

        var st model.EngagementStats
        if err := tx.Where("post_id = ?", postID).First(&st).Error; err != nil {
            return err
        }
        comment = c
        total = st.CommentCount + st.ReplyCount
        return nil
    })
    if err != nil {
        return nil, 0, err
    }

    if s.bus != nil {
        s.bus.Publish(event.Event{
            Type: event.TypeCommentAdded, PostID: postID, ActorID: authorID,
            At: time.Now(), Meta: map[string]string{"comment_id": comment.ID},
        })
    }
    return comment, total, nil
}

func (s *engagementService) DeleteComment(ctx context.Context, commentID, actorID string) error {
    return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
        var c model.Comment
        err := tx.Where("id = ?", commentID).First(&c).Error
        if errors.Is(err, gorm.ErrRecordNotFound) {
            return apperr.NotFoundf("comment %s", commentID)
        }
        if err != nil {
            return err
        }
        if c.AuthorID != actorID {
            return apperr.Authorizationf("only the comment author can delete it")
        }
        if c.Deleted() {
            return nil
        }

        res := tx.Model(&model.Comment{}).
            Where("id = ? AND deleted_at IS NULL", commentID).
            Update("deleted_at", time.Now())
        if res.Error != nil {
            return res.Error
        }
        if res.RowsAffected == 0 {
            return nil
        }

        delta := repository.StatsDelta{Comments: -1}
        if c.Reply() {
            delta = repository.StatsDelta{Replies: -1}
        }
        return repository.BumpStats(tx, c.PostID, delta)
    })
}

func (s *engagementService) Share(ctx context.Context, postID, actorID string, dest model.ShareDestination) (*model.Share, error) {
    if err := dest.Validate(); err != nil {
        return nil, err
    }
    post, err := s.engageablePost(ctx, postID, actorID)
    if err != nil {
        return nil, err
    }
    // 非 public 帖子转出去会越过作者设定的可见圈，一律不放行
    if post.Visibility != model.VisibilityPublic {
        return nil, apperr.Authorizationf("only public posts can be shared")
    }
    if err := s.guardShareDest(ctx, dest, actorID); err != nil {
        return nil, err
    }

    share := &model.Share{
        ID:          uuid.New().String(),
        PostID:      postID,
        ActorID:     actorID,
        DestKind:    dest.Kind,
        DestOwnerID: dest.OwnerID,
        CreatedAt:   time.Now(),
    }
    inserted := false
    err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
        res := tx.Clauses(clause.OnConflict{DoNothing: true}).Create(share)
        if res.Error != nil {
            return res.Error
        }
        if res.RowsAffected == 0 {
            return nil
        }
        inserted = true
        if err := repository.BumpStats(tx, postID, repository.StatsDelta{Shares: 1}); err != nil {
            return err
        }

        if ref, ok := dest.TimelineRef(); ok {
            entryInserted, err := upsertEntryTx(tx, &model.TimelineEntry{
                PostID:    postID,
                Kind:      ref.Kind,
                OwnerID:   ref.OwnerID,
                AddedBy:   actorID,
                CreatedAt: share.CreatedAt,
            })
            if err != nil {
                return err
            }
            if entryInserted {
                metrics.FanoutWrites.WithLabelValues(string(ref.Kind)).Inc()
            }
        }
        return nil
    })
    if err != nil {
        return nil, err
    }

    if !inserted {
        // 撞上去重索引：取回已有台账行，无副作用
        existing, err := s.findShare(ctx, postID, actorID, dest)
        if err != nil {
            return nil, err
        }
        return existing, nil
    }

    if s.bus != nil {
        s.bus.Publish(event.Event{
            Type: event.TypePostShared, PostID: postID, ActorID: actorID,
            At: time.Now(), Meta: map[string]string{"destination": string(dest.Kind)},
        })
    }
    return share, nil
}

// guardShareDest 站内目的地校验：属主必须真实存在（完整性），
// personal/entity 只能转到自己控制的时间线（权限）。
func (s *engagementService) guardShareDest(ctx context.Context, dest model.ShareDestination, actorID string) error {
    switch dest.Kind {
    case model.ShareDestPersonal, model.ShareDestEntity:
        kind := model.TimelineKindPersonal
        if dest.Kind == model.ShareDestEntity {
            kind = model.TimelineKindEntity
        }
        owner, err := s.owners.Get(ctx, kind, dest.OwnerID)
        if errors.Is(err, gorm.ErrRecordNotFound) {
            return apperr.Integrityf("%s timeline owner %s does not exist", kind, dest.OwnerID)
        }
        if err != nil {
            return err
        }
        if owner.ControlledBy != actorID {
            return apperr.Authorizationf("actor does not control timeline %s:%s", kind, dest.OwnerID)
        }
    }
    return nil
}

func (s *engagementService) findShare(ctx context.Context, postID, actorID string, dest model.ShareDestination) (*model.Share, error) {
    var existing model.Share
    err := s.db.WithContext(ctx).
        Where("post_id = ? AND actor_id = ? AND dest_kind = ? AND dest_owner_id = ?",
            postID, actorID, dest.Kind, dest.OwnerID).
        First(&existing).Error
    if err != nil {
        return nil, err
    }
    return &existing, nil
}

func (s *engagementService) ListComments(ctx context.Context, postID, viewerID string, page, pageSize int) ([]*CommentThread, int64, error) {
    if _, err := s.viewablePost(ctx, postID, viewerID); err != nil {
        return nil, 0, err
    }
    page, pageSize = normalizePage(page, pageSize)

    top, err := s.comments.ListTopLevel(ctx, postID, (page-1)*pageSize, pageSize)
    if err != nil {
        return nil, 0, err
    }
    ids := make([]string, len(top))
    for i, c := range top {
        ids[i] = c.ID
    }
    replies, err := s.comments.ListReplies(ctx, ids)
    if err != nil {
        return nil, 0, err
    }
    // 总数直接数台账，不走计数缓存
    topTotal, replyTotal, err := s.comments.CountForPost(ctx, postID)
    if err != nil {
        return nil, 0, err
    }

    threads := make([]*CommentThread, 0, len(top))
    for _, c := range top {
        threads = append(threads, &CommentThread{
            Comment: maskDeleted(c),
            Replies: replies[c.ID],
        })
    }
    return threads, topTotal + replyTotal, nil
}

// maskDeleted 已删评论抹掉正文，保留楼层
func maskDeleted(c *model.Comment) *model.Comment {
    if !c.Deleted() {
        return c
    }
    masked := *c
    masked.Body = ""
    return &masked
}

func (s *engagementService) ListShares(ctx context.Context, postID, viewerID string, page, pageSize int) ([]*model.Share, int64, error) {
    if _, err := s.viewablePost(ctx, postID, viewerID); err != nil {
        return nil, 0, err
    }
    page, pageSize = normalizePage(page, pageSize)
    list, err := s.shares.ListByPost(ctx, postID, (page-1)*pageSize, pageSize)
    if err != nil {
        return nil, 0, err
    }
    total, err := s.shares.CountForPost(ctx, postID)
    if err != nil {
        return nil, 0, err
    }
    return list, total, nil
}

// viewablePost 读路径的存在性+可见性门槛（不要求已发布，作者可看草稿的台账）
func (s *engagementService) viewablePost(ctx context.Context, postID, viewerID string) (*model.Post, error) {
    p, err := s.posts.GetLive(ctx, postID)
    if errors.Is(err, gorm.ErrRecordNotFound) {
        return nil, apperr.NotFoundf("post %s", postID)
    }
    if err != nil {
        return nil, err
    }
    visible, err := canViewPost(ctx, s.follows, p, viewerID)
    if err != nil {
        return nil, err
    }
    if !visible {
        return nil, apperr.NotFoundf("post %s", postID)
    }
    return p, nil
}

func (s *engagementService) Recount(ctx context.Context, postID string) (*model.EngagementStats, error) {
    if _, err := s.posts.GetByID(ctx, postID); errors.Is(err, gorm.ErrRecordNotFound) {
        return nil, apperr.NotFoundf("post %s", postID)
    } else if err != nil {
        return nil, err
    }
    return s.stats.Recount(ctx, postID)
}

func (s *engagementService) Stats(ctx context.Context, postID string) (*model.EngagementStats, error) {
    if _, err := s.posts.GetLive(ctx, postID); errors.Is(err, gorm.ErrRecordNotFound) {
        return nil, apperr.NotFoundf("post %s", postID)
    } else if err != nil {
        return nil, err
    }
    st, err := s.stats.Get(ctx, postID)
    if errors.Is(err, gorm.ErrRecordNotFound) {
        return &model.EngagementStats{PostID: postID}, nil
    }
    return st, err
}
