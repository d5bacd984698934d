package service

import (
    "context"
    "testing"

    "github.com/google/uuid"
    "github.com/stretchr/testify/require"
    "gorm.io/driver/sqlite"
    "gorm.io/gorm"

    "github.com/d60-Lab/feedgraph/internal/model"
    "github.com/d60-Lab/feedgraph/internal/repository"
)

// testEnv 服务层测试共用的装配：sqlite 内存库 + 全套仓储与服务。
// 事件总线传 nil，写路径不依赖旁路通知。
type testEnv struct {
    db *gorm.DB

    posts      *PostService
    timelines  *TimelineService
    engagement EngagementService
    feeds      FeedService
    follows    FollowService
    users      UserService
}

func newTestEnv(t *testing.T) *testEnv {
    t.Helper()

    db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{})
    require.NoError(t, err)
    require.NoError(t, db.AutoMigrate(
        &model.User{}, &model.Follow{}, &model.Follower{},
        &model.Post{}, &model.TimelineOwner{}, &model.TimelineEntry{},
        &model.Reaction{}, &model.Comment{}, &model.Share{}, &model.EngagementStats{},
    ))

    postRepo := repository.NewPostRepository(db)
    followRepo := repository.NewFollowRepository(db)
    followerRepo := repository.NewFollowerRepository(db)
    userRepo := repository.NewUserRepository(db)
    timelineRepo := repository.NewTimelineRepository(db)
    ownerRepo := repository.NewOwnerRepository(db)
    commentRepo := repository.NewCommentRepository(db)
    shareRepo := repository.NewShareRepository(db)
    statsRepo := repository.NewStatsRepository(db)
    reactionRepo := repository.NewReactionRepository(db)

    return &testEnv{
        db:         db,
        posts:      NewPostService(db, postRepo, followRepo, nil, 0, 0),
        timelines:  NewTimelineService(timelineRepo, ownerRepo, postRepo, followRepo),
        engagement: NewEngagementService(db, postRepo, commentRepo, shareRepo, statsRepo, ownerRepo, followRepo, nil),
        feeds:      NewFeedService(repository.NewSQLFeedRepository(db), timelineRepo, ownerRepo, statsRepo, reactionRepo, shareRepo),
        follows:    NewFollowService(followRepo, followerRepo, userRepo),
        users:      NewUserService(userRepo),
    }
}

func (e *testEnv) seedUser(t *testing.T, id string) {
    t.Helper()
    require.NoError(t, e.db.Create(&model.User{ID: id, Username: id}).Error)
}

// publishedPost 建草稿并立即以指定可见性发布
func (e *testEnv) publishedPost(t *testing.T, authorID string, vis model.Visibility) *model.Post {
    t.Helper()
    draft, err := e.posts.CreateDraft(context.Background(), authorID, model.PostContent{Body: "post " + uuid.NewString()})
    require.NoError(t, err)
    post, err := e.posts.Publish(context.Background(), draft.ID, authorID, vis)
    require.NoError(t, err)
    return post
}

// entityOwner 注册一个由 actor 控制的 entity 时间线属主
func (e *testEnv) entityOwner(t *testing.T, actorID, name string) *model.TimelineOwner {
    t.Helper()
    owner, err := e.timelines.RegisterOwner(context.Background(), model.TimelineKindEntity, name, actorID)
    require.NoError(t, err)
    return owner
}

func (e *testEnv) entryCount(t *testing.T, postID string) int64 {
    t.Helper()
    var cnt int64
    require.NoError(t, e.db.Model(&model.TimelineEntry{}).Where("post_id = ?", postID).Count(&cnt).Error)
    return cnt
}
