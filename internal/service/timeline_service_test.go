package service

import (
    "context"
    "testing"

    "github.com/stretchr/testify/require"

    "github.com/d60-Lab/feedgraph/internal/apperr"
    "github.com/d60-Lab/feedgraph/internal/model"
)

func TestAddToTimelineIdempotent(t *testing.T) {
    env := newTestEnv(t)
    ctx := context.Background()

    owner := env.entityOwner(t, "alice", "papers")
    post := env.publishedPost(t, "bob", model.VisibilityPublic)
    ref := model.EntityTimeline(owner.ID)

    first, err := env.timelines.AddToTimeline(ctx, post.ID, ref, "alice")
    require.NoError(t, err)
    require.Equal(t, post.ID, first.PostID)
    require.Equal(t, "alice", first.AddedBy)

    // 重复投递返回已有行，不新增
    again, err := env.timelines.AddToTimeline(ctx, post.ID, ref, "alice")
    require.NoError(t, err)
    require.Equal(t, first.ID, again.ID)

    // 发布时的 communal 行 + 手动投递的 entity 行
    entries, err := env.timelines.ListEntriesForPost(ctx, post.ID)
    require.NoError(t, err)
    require.Len(t, entries, 2)
}

func TestAddToTimelineGuards(t *testing.T) {
    env := newTestEnv(t)
    ctx := context.Background()

    owner := env.entityOwner(t, "alice", "papers")
    entityRef := model.EntityTimeline(owner.ID)

    t.Run("帖子不存在", func(t *testing.T) {
        _, err := env.timelines.AddToTimeline(ctx, "ghost", entityRef, "alice")
        require.ErrorIs(t, err, apperr.ErrIntegrity)
    })

    t.Run("帖子已删", func(t *testing.T) {
        post := env.publishedPost(t, "bob", model.VisibilityPublic)
        require.NoError(t, env.posts.SoftDelete(ctx, post.ID, "bob", ""))
        _, err := env.timelines.AddToTimeline(ctx, post.ID, entityRef, "alice")
        require.ErrorIs(t, err, apperr.ErrIntegrity)
    })

    t.Run("草稿不能上时间线", func(t *testing.T) {
        draft, err := env.posts.CreateDraft(ctx, "bob", model.PostContent{Body: "d"})
        require.NoError(t, err)
        _, err = env.timelines.AddToTimeline(ctx, draft.ID, entityRef, "alice")
        require.ErrorIs(t, err, apperr.ErrState)
    })

    t.Run("公共时间线只收 public", func(t *testing.T) {
        post := env.publishedPost(t, "bob", model.VisibilityFollowers)
        _, err := env.timelines.AddToTimeline(ctx, post.ID, model.CommunalTimeline(), "bob")
        require.ErrorIs(t, err, apperr.ErrAuthorization)
    })

    t.Run("属主不存在", func(t *testing.T) {
        post := env.publishedPost(t, "bob", model.VisibilityPublic)
        _, err := env.timelines.AddToTimeline(ctx, post.ID, model.EntityTimeline("ghost"), "alice")
        require.ErrorIs(t, err, apperr.ErrIntegrity)
    })

    t.Run("非控制人不得投递", func(t *testing.T) {
        post := env.publishedPost(t, "bob", model.VisibilityPublic)
        _, err := env.timelines.AddToTimeline(ctx, post.ID, entityRef, "bob")
        require.ErrorIs(t, err, apperr.ErrAuthorization)
    })

    t.Run("对操作者不可见的帖子", func(t *testing.T) {
        post := env.publishedPost(t, "carol", model.VisibilityPrivate)
        _, err := env.timelines.AddToTimeline(ctx, post.ID, entityRef, "alice")
        require.ErrorIs(t, err, apperr.ErrNotFound)
    })

    t.Run("引用结构不合法", func(t *testing.T) {
        post := env.publishedPost(t, "bob", model.VisibilityPublic)
        bad := []model.TimelineRef{
            {Kind: model.TimelineKindCommunal, OwnerID: "x"},
            {Kind: model.TimelineKindPersonal},
            {Kind: model.TimelineKind("weird"), OwnerID: "x"},
        }
        for _, ref := range bad {
            _, err := env.timelines.AddToTimeline(ctx, post.ID, ref, "alice")
            require.ErrorIs(t, err, apperr.ErrIntegrity, "ref %s", ref)
        }
    })
}

func TestRemoveFromTimeline(t *testing.T) {
    env := newTestEnv(t)
    ctx := context.Background()

    owner := env.entityOwner(t, "alice", "papers")
    ref := model.EntityTimeline(owner.ID)
    post := env.publishedPost(t, "bob", model.VisibilityPublic)

    _, err := env.timelines.AddToTimeline(ctx, post.ID, ref, "alice")
    require.NoError(t, err)

    // 无关第三方拿不动
    require.ErrorIs(t, env.timelines.RemoveFromTimeline(ctx, post.ID, ref, "carol"), apperr.ErrAuthorization)

    // 帖子作者可以把自己的帖子从任何时间线摘下
    require.NoError(t, env.timelines.RemoveFromTimeline(ctx, post.ID, ref, "bob"))
    require.ErrorIs(t, env.timelines.RemoveFromTimeline(ctx, post.ID, ref, "bob"), apperr.ErrNotFound)

    // 时间线属主同样可以
    _, err = env.timelines.AddToTimeline(ctx, post.ID, ref, "alice")
    require.NoError(t, err)
    require.NoError(t, env.timelines.RemoveFromTimeline(ctx, post.ID, ref, "alice"))

    require.ErrorIs(t, env.timelines.RemoveFromTimeline(ctx, "ghost", ref, "alice"), apperr.ErrNotFound)
}

func TestSetPin(t *testing.T) {
    env := newTestEnv(t)
    ctx := context.Background()

    owner := env.entityOwner(t, "alice", "papers")
    ref := model.EntityTimeline(owner.ID)
    post := env.publishedPost(t, "bob", model.VisibilityPublic)

    // 公共时间线无属主，谁都不能置顶
    err := env.timelines.SetPin(ctx, post.ID, model.CommunalTimeline(), "alice", true)
    require.ErrorIs(t, err, apperr.ErrAuthorization)

    // 不在时间线上 → NotFound
    err = env.timelines.SetPin(ctx, post.ID, ref, "alice", true)
    require.ErrorIs(t, err, apperr.ErrNotFound)

    _, err = env.timelines.AddToTimeline(ctx, post.ID, ref, "alice")
    require.NoError(t, err)

    // 只有属主能置顶，帖子作者也不行
    err = env.timelines.SetPin(ctx, post.ID, ref, "bob", true)
    require.ErrorIs(t, err, apperr.ErrAuthorization)

    require.NoError(t, env.timelines.SetPin(ctx, post.ID, ref, "alice", true))
    var entry model.TimelineEntry
    require.NoError(t, env.db.Where("post_id = ? AND kind = ? AND owner_id = ?", post.ID, ref.Kind, ref.OwnerID).First(&entry).Error)
    require.True(t, entry.Pinned)
    require.NotNil(t, entry.PinnedAt)
    require.Equal(t, "alice", entry.PinnedBy)

    require.NoError(t, env.timelines.SetPin(ctx, post.ID, ref, "alice", false))
    require.NoError(t, env.db.Where("id = ?", entry.ID).First(&entry).Error)
    require.False(t, entry.Pinned)
    require.Nil(t, entry.PinnedAt)
    require.Equal(t, "", entry.PinnedBy)
}

func TestRegisterOwner(t *testing.T) {
    env := newTestEnv(t)
    ctx := context.Background()

    // personal 属主 id 即操作者 id，每人一条
    personal, err := env.timelines.RegisterOwner(ctx, model.TimelineKindPersonal, "小号", "alice")
    require.NoError(t, err)
    require.Equal(t, "alice", personal.ID)
    require.Equal(t, "alice", personal.ControlledBy)

    _, err = env.timelines.RegisterOwner(ctx, model.TimelineKindPersonal, "再来一条", "alice")
    require.ErrorIs(t, err, apperr.ErrState)

    // entity 属主独立发号，同一人可以控制多个
    e1, err := env.timelines.RegisterOwner(ctx, model.TimelineKindEntity, "papers", "alice")
    require.NoError(t, err)
    e2, err := env.timelines.RegisterOwner(ctx, model.TimelineKindEntity, "talks", "alice")
    require.NoError(t, err)
    require.NotEqual(t, "alice", e1.ID)
    require.NotEqual(t, e1.ID, e2.ID)

    owners, err := env.timelines.ListOwnedBy(ctx, "alice")
    require.NoError(t, err)
    require.Len(t, owners, 3)
    for _, o := range owners {
        require.Equal(t, "alice", o.Owner.ControlledBy)
        require.Zero(t, o.EntryCount)
    }

    _, err = env.timelines.RegisterOwner(ctx, model.TimelineKindCommunal, "x", "alice")
    require.ErrorIs(t, err, apperr.ErrValidation)
}

func TestRemoveOwnerCascade(t *testing.T) {
    env := newTestEnv(t)
    ctx := context.Background()

    owner := env.entityOwner(t, "alice", "papers")
    ref := model.EntityTimeline(owner.ID)

    posts := make([]*model.Post, 5)
    for i := range posts {
        posts[i] = env.publishedPost(t, "bob", model.VisibilityPublic)
        _, err := env.timelines.AddToTimeline(ctx, posts[i].ID, ref, "alice")
        require.NoError(t, err)
    }

    owned, err := env.timelines.ListOwnedBy(ctx, "alice")
    require.NoError(t, err)
    require.Len(t, owned, 1)
    require.Equal(t, int64(5), owned[0].EntryCount)

    _, err = env.timelines.RemoveOwner(ctx, model.TimelineKindEntity, owner.ID, "carol")
    require.ErrorIs(t, err, apperr.ErrAuthorization)

    purged, err := env.timelines.RemoveOwner(ctx, model.TimelineKindEntity, owner.ID, "alice")
    require.NoError(t, err)
    require.Equal(t, int64(5), purged)

    // 投递行全部清掉，帖子本体与 communal 行原封不动
    var cnt int64
    require.NoError(t, env.db.Model(&model.TimelineEntry{}).
        Where("kind = ? AND owner_id = ?", ref.Kind, ref.OwnerID).Count(&cnt).Error)
    require.Equal(t, int64(0), cnt)
    for _, p := range posts {
        got, err := env.posts.Get(ctx, p.ID, "bob")
        require.NoError(t, err)
        require.False(t, got.Deleted())
        require.Equal(t, int64(1), env.entryCount(t, p.ID))
    }

    _, err = env.timelines.GetOwner(ctx, model.TimelineKindEntity, owner.ID)
    require.ErrorIs(t, err, apperr.ErrNotFound)

    // 注销后的属主不再接受投递
    _, err = env.timelines.AddToTimeline(ctx, posts[0].ID, ref, "alice")
    require.ErrorIs(t, err, apperr.ErrIntegrity)

    _, err = env.timelines.RemoveOwner(ctx, model.TimelineKindEntity, owner.ID, "alice")
    require.ErrorIs(t, err, apperr.ErrNotFound)
}
