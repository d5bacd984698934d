package service

import (
    "context"
    "strings"
    "testing"

    "github.com/stretchr/testify/require"

    "github.com/d60-Lab/feedgraph/internal/apperr"
    "github.com/d60-Lab/feedgraph/internal/model"
)

func TestReactExclusiveFlip(t *testing.T) {
    env := newTestEnv(t)
    ctx := context.Background()
    post := env.publishedPost(t, "alice", model.VisibilityPublic)

    cnt, err := env.engagement.React(ctx, post.ID, "bob", model.ReactionLike)
    require.NoError(t, err)
    require.Equal(t, int64(1), cnt)

    // 同向重复是无事发生
    cnt, err = env.engagement.React(ctx, post.ID, "bob", model.ReactionLike)
    require.NoError(t, err)
    require.Equal(t, int64(1), cnt)

    // 反向顶替：一条台账行翻面，两个计数同时修正
    cnt, err = env.engagement.React(ctx, post.ID, "bob", model.ReactionDislike)
    require.NoError(t, err)
    require.Equal(t, int64(1), cnt)

    st, err := env.engagement.Stats(ctx, post.ID)
    require.NoError(t, err)
    require.Equal(t, int64(0), st.LikeCount)
    require.Equal(t, int64(1), st.DislikeCount)

    var rows int64
    require.NoError(t, env.db.Model(&model.Reaction{}).Where("post_id = ?", post.ID).Count(&rows).Error)
    require.Equal(t, int64(1), rows)

    // 第二个人点赞互不干扰
    cnt, err = env.engagement.React(ctx, post.ID, "carol", model.ReactionLike)
    require.NoError(t, err)
    require.Equal(t, int64(1), cnt)
    st, err = env.engagement.Stats(ctx, post.ID)
    require.NoError(t, err)
    require.Equal(t, int64(1), st.LikeCount)
    require.Equal(t, int64(1), st.DislikeCount)
}

func TestReactGuards(t *testing.T) {
    env := newTestEnv(t)
    ctx := context.Background()
    env.seedUser(t, "alice")
    env.seedUser(t, "bob")

    post := env.publishedPost(t, "alice", model.VisibilityPublic)
    _, err := env.engagement.React(ctx, post.ID, "bob", model.ReactionKind("love"))
    require.ErrorIs(t, err, apperr.ErrValidation)

    draft, err := env.posts.CreateDraft(ctx, "alice", model.PostContent{Body: "d"})
    require.NoError(t, err)
    // 作者对草稿：状态不对；路人对草稿：根本看不见
    _, err = env.engagement.React(ctx, draft.ID, "alice", model.ReactionLike)
    require.ErrorIs(t, err, apperr.ErrState)
    _, err = env.engagement.React(ctx, draft.ID, "bob", model.ReactionLike)
    require.ErrorIs(t, err, apperr.ErrNotFound)

    gone := env.publishedPost(t, "alice", model.VisibilityPublic)
    require.NoError(t, env.posts.SoftDelete(ctx, gone.ID, "alice", ""))
    _, err = env.engagement.React(ctx, gone.ID, "bob", model.ReactionLike)
    require.ErrorIs(t, err, apperr.ErrNotFound)

    // followers 档只对关注者开放互动
    fol := env.publishedPost(t, "alice", model.VisibilityFollowers)
    _, err = env.engagement.React(ctx, fol.ID, "bob", model.ReactionLike)
    require.ErrorIs(t, err, apperr.ErrNotFound)
    require.NoError(t, env.follows.Follow(ctx, "bob", "alice"))
    _, err = env.engagement.React(ctx, fol.ID, "bob", model.ReactionLike)
    require.NoError(t, err)
}

func TestUnreactIdempotent(t *testing.T) {
    env := newTestEnv(t)
    ctx := context.Background()
    post := env.publishedPost(t, "alice", model.VisibilityPublic)

    // 从未反应过也算成功
    require.NoError(t, env.engagement.Unreact(ctx, post.ID, "bob", model.ReactionLike))

    _, err := env.engagement.React(ctx, post.ID, "bob", model.ReactionLike)
    require.NoError(t, err)

    // 撤销只认同向：点了赞去撤踩，赞原地不动
    require.NoError(t, env.engagement.Unreact(ctx, post.ID, "bob", model.ReactionDislike))
    st, err := env.engagement.Stats(ctx, post.ID)
    require.NoError(t, err)
    require.Equal(t, int64(1), st.LikeCount)

    require.NoError(t, env.engagement.Unreact(ctx, post.ID, "bob", model.ReactionLike))
    require.NoError(t, env.engagement.Unreact(ctx, post.ID, "bob", model.ReactionLike))
    st, err = env.engagement.Stats(ctx, post.ID)
    require.NoError(t, err)
    require.Equal(t, int64(0), st.LikeCount)

    require.ErrorIs(t, env.engagement.Unreact(ctx, post.ID, "bob", model.ReactionKind("love")), apperr.ErrValidation)
}

func TestCommentThreading(t *testing.T) {
    env := newTestEnv(t)
    ctx := context.Background()
    post := env.publishedPost(t, "alice", model.VisibilityPublic)

    top, total, err := env.engagement.Comment(ctx, post.ID, "bob", "first", nil)
    require.NoError(t, err)
    require.Nil(t, top.ParentID)
    require.Equal(t, int64(1), total)

    reply, total, err := env.engagement.Comment(ctx, post.ID, "carol", "re", &top.ID)
    require.NoError(t, err)
    require.NotNil(t, reply.ParentID)
    require.Equal(t, top.ID, *reply.ParentID)
    require.Equal(t, int64(2), total)

    // 回复回复被拍平：挂到同一条顶层评论下
    deep, total, err := env.engagement.Comment(ctx, post.ID, "dave", "re-re", &reply.ID)
    require.NoError(t, err)
    require.NotNil(t, deep.ParentID)
    require.Equal(t, top.ID, *deep.ParentID)
    require.Equal(t, int64(3), total)

    st, err := env.engagement.Stats(ctx, post.ID)
    require.NoError(t, err)
    require.Equal(t, int64(1), st.CommentCount)
    require.Equal(t, int64(2), st.ReplyCount)

    threads, listTotal, err := env.engagement.ListComments(ctx, post.ID, "", 1, 20)
    require.NoError(t, err)
    require.Len(t, threads, 1)
    require.Equal(t, int64(3), listTotal)
    require.Equal(t, top.ID, threads[0].Comment.ID)
    require.Len(t, threads[0].Replies, 2)
}

func TestCommentGuards(t *testing.T) {
    env := newTestEnv(t)
    ctx := context.Background()
    postA := env.publishedPost(t, "alice", model.VisibilityPublic)
    postB := env.publishedPost(t, "alice", model.VisibilityPublic)

    _, _, err := env.engagement.Comment(ctx, postA.ID, "bob", "", nil)
    require.ErrorIs(t, err, apperr.ErrValidation)
    _, _, err = env.engagement.Comment(ctx, postA.ID, "bob", strings.Repeat("x", model.CommentMaxLen+1), nil)
    require.ErrorIs(t, err, apperr.ErrValidation)

    topA, _, err := env.engagement.Comment(ctx, postA.ID, "bob", "on A", nil)
    require.NoError(t, err)

    // 父评论必须属于同一篇帖子
    _, _, err = env.engagement.Comment(ctx, postB.ID, "carol", "cross", &topA.ID)
    require.ErrorIs(t, err, apperr.ErrValidation)

    ghost := "no-such-comment"
    _, _, err = env.engagement.Comment(ctx, postA.ID, "carol", "orphan", &ghost)
    require.ErrorIs(t, err, apperr.ErrNotFound)

    // 已删父评论不再接受回复
    topB, _, err := env.engagement.Comment(ctx, postB.ID, "bob", "on B", nil)
    require.NoError(t, err)
    require.NoError(t, env.engagement.DeleteComment(ctx, topB.ID, "bob"))
    _, _, err = env.engagement.Comment(ctx, postB.ID, "carol", "late", &topB.ID)
    require.ErrorIs(t, err, apperr.ErrNotFound)
}

func TestDeleteComment(t *testing.T) {
    env := newTestEnv(t)
    ctx := context.Background()
    post := env.publishedPost(t, "alice", model.VisibilityPublic)

    top, _, err := env.engagement.Comment(ctx, post.ID, "bob", "top", nil)
    require.NoError(t, err)
    reply, _, err := env.engagement.Comment(ctx, post.ID, "carol", "re", &top.ID)
    require.NoError(t, err)

    require.ErrorIs(t, env.engagement.DeleteComment(ctx, top.ID, "carol"), apperr.ErrAuthorization)
    require.ErrorIs(t, env.engagement.DeleteComment(ctx, "ghost", "bob"), apperr.ErrNotFound)

    require.NoError(t, env.engagement.DeleteComment(ctx, top.ID, "bob"))
    // 幂等：重复删除不再扣计数
    require.NoError(t, env.engagement.DeleteComment(ctx, top.ID, "bob"))

    st, err := env.engagement.Stats(ctx, post.ID)
    require.NoError(t, err)
    require.Equal(t, int64(0), st.CommentCount)
    require.Equal(t, int64(1), st.ReplyCount)

    // 已删顶层评论保留楼层、抹掉正文，回复照常展示
    threads, listTotal, err := env.engagement.ListComments(ctx, post.ID, "", 1, 20)
    require.NoError(t, err)
    require.Len(t, threads, 1)
    // 已删的顶层评论不计入总数
    require.Equal(t, int64(1), listTotal)
    require.Equal(t, "", threads[0].Comment.Body)
    require.NotNil(t, threads[0].Comment.DeletedAt)
    require.Len(t, threads[0].Replies, 1)
    require.Equal(t, reply.ID, threads[0].Replies[0].ID)

    require.NoError(t, env.engagement.DeleteComment(ctx, reply.ID, "carol"))
    st, err = env.engagement.Stats(ctx, post.ID)
    require.NoError(t, err)
    require.Equal(t, int64(0), st.ReplyCount)
}

func TestShareFanout(t *testing.T) {
    env := newTestEnv(t)
    ctx := context.Background()
    post := env.publishedPost(t, "alice", model.VisibilityPublic)

    // 站外分享只记账，不产生投递行
    ext, err := env.engagement.Share(ctx, post.ID, "bob", model.ShareDestination{Kind: model.ShareDestExternal})
    require.NoError(t, err)
    require.Equal(t, model.ShareDestExternal, ext.DestKind)
    require.Equal(t, int64(1), env.entryCount(t, post.ID))

    // communal 目的地撞上发布时已有的投递行，幂等跳过
    _, err = env.engagement.Share(ctx, post.ID, "bob", model.ShareDestination{Kind: model.ShareDestCommunal})
    require.NoError(t, err)
    require.Equal(t, int64(1), env.entryCount(t, post.ID))

    // 转到自己的 personal 时间线：台账 + 投递行同事务落库
    _, err = env.timelines.RegisterOwner(ctx, model.TimelineKindPersonal, "", "bob")
    require.NoError(t, err)
    dest := model.ShareDestination{Kind: model.ShareDestPersonal, OwnerID: "bob"}
    sh, err := env.engagement.Share(ctx, post.ID, "bob", dest)
    require.NoError(t, err)
    require.Equal(t, int64(2), env.entryCount(t, post.ID))

    var entry model.TimelineEntry
    require.NoError(t, env.db.Where("post_id = ? AND kind = ? AND owner_id = ?",
        post.ID, model.TimelineKindPersonal, "bob").First(&entry).Error)
    require.Equal(t, "bob", entry.AddedBy)

    // 同一目的地重复分享：返回已有台账行，无任何副作用
    again, err := env.engagement.Share(ctx, post.ID, "bob", dest)
    require.NoError(t, err)
    require.Equal(t, sh.ID, again.ID)
    require.Equal(t, int64(2), env.entryCount(t, post.ID))

    st, err := env.engagement.Stats(ctx, post.ID)
    require.NoError(t, err)
    require.Equal(t, int64(3), st.ShareCount)

    list, shareTotal, err := env.engagement.ListShares(ctx, post.ID, "", 1, 20)
    require.NoError(t, err)
    require.Len(t, list, 3)
    require.Equal(t, int64(3), shareTotal)
}

func TestShareGuards(t *testing.T) {
    env := newTestEnv(t)
    ctx := context.Background()

    // 非 public 帖子转出去会越过可见圈
    fol := env.publishedPost(t, "alice", model.VisibilityFollowers)
    _, err := env.engagement.Share(ctx, fol.ID, "alice", model.ShareDestination{Kind: model.ShareDestExternal})
    require.ErrorIs(t, err, apperr.ErrAuthorization)

    post := env.publishedPost(t, "alice", model.VisibilityPublic)

    _, err = env.engagement.Share(ctx, post.ID, "bob", model.ShareDestination{Kind: model.ShareDestPersonal})
    require.ErrorIs(t, err, apperr.ErrValidation)
    _, err = env.engagement.Share(ctx, post.ID, "bob", model.ShareDestination{Kind: model.ShareDestExternal, OwnerID: "x"})
    require.ErrorIs(t, err, apperr.ErrValidation)

    // 目的地属主必须真实存在
    _, err = env.engagement.Share(ctx, post.ID, "bob", model.ShareDestination{Kind: model.ShareDestPersonal, OwnerID: "ghost"})
    require.ErrorIs(t, err, apperr.ErrIntegrity)

    // 只能转进自己控制的时间线
    owner := env.entityOwner(t, "alice", "papers")
    _, err = env.engagement.Share(ctx, post.ID, "bob", model.ShareDestination{Kind: model.ShareDestEntity, OwnerID: owner.ID})
    require.ErrorIs(t, err, apperr.ErrAuthorization)

    draft, err := env.posts.CreateDraft(ctx, "alice", model.PostContent{Body: "d"})
    require.NoError(t, err)
    _, err = env.engagement.Share(ctx, draft.ID, "alice", model.ShareDestination{Kind: model.ShareDestExternal})
    require.ErrorIs(t, err, apperr.ErrState)
}

func TestRecountRebuildsFromLedgers(t *testing.T) {
    env := newTestEnv(t)
    ctx := context.Background()
    post := env.publishedPost(t, "alice", model.VisibilityPublic)

    _, err := env.engagement.React(ctx, post.ID, "bob", model.ReactionLike)
    require.NoError(t, err)
    _, err = env.engagement.React(ctx, post.ID, "carol", model.ReactionLike)
    require.NoError(t, err)
    _, err = env.engagement.React(ctx, post.ID, "dave", model.ReactionDislike)
    require.NoError(t, err)
    top, _, err := env.engagement.Comment(ctx, post.ID, "bob", "top", nil)
    require.NoError(t, err)
    reply, _, err := env.engagement.Comment(ctx, post.ID, "carol", "re", &top.ID)
    require.NoError(t, err)
    require.NoError(t, env.engagement.DeleteComment(ctx, reply.ID, "carol"))
    _, err = env.engagement.Share(ctx, post.ID, "bob", model.ShareDestination{Kind: model.ShareDestExternal})
    require.NoError(t, err)

    // 人为弄脏计数缓存
    require.NoError(t, env.db.Model(&model.EngagementStats{}).
        Where("post_id = ?", post.ID).
        Updates(map[string]any{"like_count": 99, "reply_count": 5}).Error)
    dirty, err := env.engagement.Stats(ctx, post.ID)
    require.NoError(t, err)
    require.Equal(t, int64(99), dirty.LikeCount)

    // 从台账重算，已删回复不计入
    rebuilt, err := env.engagement.Recount(ctx, post.ID)
    require.NoError(t, err)
    require.Equal(t, int64(2), rebuilt.LikeCount)
    require.Equal(t, int64(1), rebuilt.DislikeCount)
    require.Equal(t, int64(1), rebuilt.CommentCount)
    require.Equal(t, int64(0), rebuilt.ReplyCount)
    require.Equal(t, int64(1), rebuilt.ShareCount)
    require.Equal(t, int64(2+2*1+3*1), rebuilt.Score())

    st, err := env.engagement.Stats(ctx, post.ID)
    require.NoError(t, err)
    require.Equal(t, rebuilt.LikeCount, st.LikeCount)
    require.Equal(t, rebuilt.ReplyCount, st.ReplyCount)

    _, err = env.engagement.Recount(ctx, "ghost")
    require.ErrorIs(t, err, apperr.ErrNotFound)

    // 修复工具对已删帖子也可用
    require.NoError(t, env.posts.SoftDelete(ctx, post.ID, "alice", ""))
    _, err = env.engagement.Recount(ctx, post.ID)
    require.NoError(t, err)
}

func TestStatsZeroFallback(t *testing.T) {
    env := newTestEnv(t)
    ctx := context.Background()

    post := env.publishedPost(t, "alice", model.VisibilityPublic)
    st, err := env.engagement.Stats(ctx, post.ID)
    require.NoError(t, err)
    require.Equal(t, post.ID, st.PostID)
    require.Equal(t, int64(0), st.Score())

    _, err = env.engagement.Stats(ctx, "ghost")
    require.ErrorIs(t, err, apperr.ErrNotFound)
}
