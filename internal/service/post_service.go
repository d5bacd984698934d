package service

import (
    "context"
    "errors"
    "time"
    "unicode/utf8"

    "github.com/google/uuid"
    "gorm.io/gorm"

    "github.com/d60-Lab/feedgraph/internal/apperr"
    "github.com/d60-Lab/feedgraph/internal/event"
    "github.com/d60-Lab/feedgraph/internal/model"
    "github.com/d60-Lab/feedgraph/internal/repository"
    "github.com/d60-Lab/feedgraph/pkg/metrics"
)

// PostService 负责帖子生命周期：草稿、发布、编辑、软删。
// 发布 public 帖子时在同一事务内落公共时间线投递行，这是内容库
// 与扇出表唯一一处同步耦合。
type PostService struct {
    db      *gorm.DB
    posts   repository.PostRepository
    follows repository.FollowRepository
    bus     *event.Bus

    limit  int
    window time.Duration
}

func NewPostService(db *gorm.DB, posts repository.PostRepository, follows repository.FollowRepository, bus *event.Bus, limit int, window time.Duration) *PostService {
    if limit <= 0 {
        limit = 20
    }
    if window <= 0 {
        window = time.Hour
    }
    return &PostService{db: db, posts: posts, follows: follows, bus: bus, limit: limit, window: window}
}

// CreateDraft 建草稿。限流检查与插入在同一事务内对同一快照求值，
// 两个并发请求不可能同时挤过最后一个名额。
func (s *PostService) CreateDraft(ctx context.Context, authorID string, content model.PostContent) (*model.Post, error) {
    if authorID == "" {
        return nil, apperr.Validationf("author is required")
    }
    if err := validateContent(content); err != nil {
        return nil, err
    }

    now := time.Now()
    post := &model.Post{
        ID:         uuid.New().String(),
        AuthorID:   authorID,
        Title:      content.Title,
        Body:       content.Body,
        MediaRefs:  content.MediaRefs,
        Tags:       content.Tags,
        Metadata:   content.Metadata,
        Visibility: model.VisibilityDraft,
        CreatedAt:  now,
    }

    err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
        // postgres 下按作者拿事务级咨询锁，串行化同一作者的并发创建；
        // sqlite 单写者天然串行
        if tx.Dialector.Name() == "postgres" {
            if err := tx.Exec("SELECT pg_advisory_xact_lock(hashtext(?))", authorID).Error; err != nil {
                return err
            }
        }

        since := now.Add(-s.window)
        var cnt int64
        err := tx.Model(&model.Post{}).
            Where("author_id = ? AND deleted_at IS NULL AND created_at > ?", authorID, since).
            Count(&cnt).Error
        if err != nil {
            return err
        }
        if cnt >= int64(s.limit) {
            metrics.RateLimited.Inc()
            return s.rateLimitErr(tx, authorID, since, now)
        }
        return tx.Create(post).Error
    })
    if err != nil {
        return nil, err
    }
    return post, nil
}

// rateLimitErr 带上窗口内最早一篇滑出窗口的时刻，供调用方退避。
func (s *PostService) rateLimitErr(tx *gorm.DB, authorID string, since, now time.Time) error {
    rl := &apperr.RateLimitError{Limit: s.limit, Window: s.window, RetryAfter: s.window}
    var oldest model.Post
    err := tx.Select("created_at").
        Where("author_id = ? AND deleted_at IS NULL AND created_at > ?", authorID, since).
        Order("created_at ASC").
        First(&oldest).Error
    if err == nil {
        if after := oldest.CreatedAt.Add(s.window).Sub(now); after > 0 {
            rl.RetryAfter = after
        }
    }
    return rl
}

// Publish 把草稿置为已发布。public 帖子同事务投递公共时间线。
func (s *PostService) Publish(ctx context.Context, postID, actorID string, vis model.Visibility) (*model.Post, error) {
    if !vis.Valid() {
        return nil, apperr.Validationf("unknown visibility %q", vis)
    }
    if vis == model.VisibilityDraft {
        return nil, apperr.Statef("cannot publish with draft visibility")
    }

    var post *model.Post
    err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
        var p model.Post
        err := tx.Where("id = ? AND deleted_at IS NULL", postID).First(&p).Error
        if errors.Is(err, gorm.ErrRecordNotFound) {
            return apperr.NotFoundf("post %s", postID)
        }
        if err != nil {
            return err
        }
        if p.AuthorID != actorID {
            return apperr.Authorizationf("only the author can publish")
        }
        if p.Published() {
            return apperr.Statef("post %s already published", postID)
        }

        now := time.Now()
        // 条件更新兜住并发双发：输的一方 0 行命中
        res := tx.Model(&model.Post{}).
            Where("id = ? AND published_at IS NULL AND deleted_at IS NULL", postID).
            Updates(map[string]any{"published_at": now, "visibility": vis})
        if res.Error != nil {
            return res.Error
        }
        if res.RowsAffected == 0 {
            return apperr.Statef("post %s already published", postID)
        }
        p.PublishedAt = &now
        p.Visibility = vis

        if vis == model.VisibilityPublic {
            inserted, err := upsertEntryTx(tx, &model.TimelineEntry{
                PostID:    p.ID,
                Kind:      model.TimelineKindCommunal,
                AddedBy:   actorID,
                CreatedAt: now,
            })
            if err != nil {
                return err
            }
            if inserted {
                metrics.FanoutWrites.WithLabelValues(string(model.TimelineKindCommunal)).Inc()
            }
        }
        post = &p
        return nil
    })
    if err != nil {
        return nil, err
    }

    metrics.PostsPublished.Inc()
    if s.bus != nil {
        s.bus.Publish(event.Event{Type: event.TypePostPublished, PostID: post.ID, ActorID: actorID, At: time.Now()})
    }
    return post, nil
}

// Edit 仅作者可编辑，打上编辑时间戳；不保留完整版本历史。
func (s *PostService) Edit(ctx context.Context, postID, actorID string, content model.PostContent) (*model.Post, error) {
    if err := validateContent(content); err != nil {
        return nil, err
    }

    var post *model.Post
    err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
        var p model.Post
        err := tx.Where("id = ? AND deleted_at IS NULL", postID).First(&p).Error
        if errors.Is(err, gorm.ErrRecordNotFound) {
            return apperr.NotFoundf("post %s", postID)
        }
        if err != nil {
            return err
        }
        if p.AuthorID != actorID {
            return apperr.Authorizationf("only the author can edit")
        }

        now := time.Now()
        p.Title = content.Title
        p.Body = content.Body
        p.MediaRefs = content.MediaRefs
        p.Tags = content.Tags
        p.Metadata = content.Metadata
        p.EditedAt = &now
        post = &p
        return tx.Model(&model.Post{}).Where("id = ?", p.ID).Updates(map[string]any{
            "title":      p.Title,
            "body":       p.Body,
            "media_refs": p.MediaRefs,
            "tags":       p.Tags,
            "metadata":   p.Metadata,
            "edited_at":  now,
        }).Error
    })
    if err != nil {
        return nil, err
    }
    return post, nil
}

// SoftDelete 软删，幂等：重复删除静默成功。行与历史保留，读路径全部排除。
func (s *PostService) SoftDelete(ctx context.Context, postID, actorID string, reason string) error {
    return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
        var p model.Post
        err := tx.Where("id = ?", postID).First(&p).Error
        if errors.Is(err, gorm.ErrRecordNotFound) {
            return apperr.NotFoundf("post %s", postID)
        }
        if err != nil {
            return err
        }
        if p.AuthorID != actorID {
            return apperr.Authorizationf("only the author can delete")
        }
        if p.Deleted() {
            return nil
        }

        updates := map[string]any{"deleted_at": time.Now()}
        if reason != "" {
            updates["delete_reason"] = reason
        }
        return tx.Model(&model.Post{}).
            Where("id = ? AND deleted_at IS NULL", postID).
            Updates(updates).Error
    })
}

// Get 单帖读取，对 viewer 做完整可见性裁决；看不见的帖子一律 NotFound，
// 不暴露存在性。
func (s *PostService) Get(ctx context.Context, postID, viewerID string) (*model.Post, error) {
    p, err := s.posts.GetByID(ctx, postID)
    if errors.Is(err, gorm.ErrRecordNotFound) {
        return nil, apperr.NotFoundf("post %s", postID)
    }
    if err != nil {
        return nil, err
    }
    if p.Deleted() {
        return nil, apperr.NotFoundf("post %s", postID)
    }

    ok, err := canViewPost(ctx, s.follows, p, viewerID)
    if err != nil {
        return nil, err
    }
    if !ok {
        return nil, apperr.NotFoundf("post %s", postID)
    }
    return p, nil
}

// ListMine 作者视角的帖子列表，含草稿
func (s *PostService) ListMine(ctx context.Context, authorID string, page, pageSize int) ([]*model.Post, error) {
    page, pageSize = normalizePage(page, pageSize)
    return s.posts.ListByAuthor(ctx, authorID, (page-1)*pageSize, pageSize)
}

func validateContent(c model.PostContent) error {
    if n := utf8.RuneCountInString(c.Title); n > model.TitleMaxLen {
        return apperr.Validationf("title length %d exceeds %d", n, model.TitleMaxLen)
    }
    if n := utf8.RuneCountInString(c.Body); n < model.BodyMinLen || n > model.BodyMaxLen {
        return apperr.Validationf("body length %d out of range [%d,%d]", n, model.BodyMinLen, model.BodyMaxLen)
    }
    return nil
}

// canViewPost 可见性裁决：作者永远可见自己的帖子；草稿只有作者可见；
// public 人人可见；followers 仅限关注了作者的 viewer；private 只有作者。
func canViewPost(ctx context.Context, follows repository.FollowRepository, post *model.Post, viewerID string) (bool, error) {
    if viewerID != "" && viewerID == post.AuthorID {
        return true, nil
    }
    if post.Draft() {
        return false, nil
    }
    switch post.Visibility {
    case model.VisibilityPublic:
        return true, nil
    case model.VisibilityFollowers:
        if viewerID == "" {
            return false, nil
        }
        return follows.Exists(ctx, viewerID, post.AuthorID)
    default:
        return false, nil
    }
}

func normalizePage(page, pageSize int) (int, int) {
    if page < 1 {
        page = 1
    }
    if pageSize < 1 {
        pageSize = 20
    }
    if pageSize > 100 {
        pageSize = 100
    }
    return page, pageSize
}
