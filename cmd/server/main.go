package main

import (
    "context"
    "errors"
    "fmt"
    "net/http"
    "os"
    "os/signal"
    "syscall"
    "time"

    "github.com/getsentry/sentry-go"
    "go.uber.org/zap"

    "github.com/d60-Lab/feedgraph/config"
    "github.com/d60-Lab/feedgraph/internal/api"
    "github.com/d60-Lab/feedgraph/internal/api/handler"
    "github.com/d60-Lab/feedgraph/internal/event"
    "github.com/d60-Lab/feedgraph/internal/model"
    "github.com/d60-Lab/feedgraph/internal/repository"
    "github.com/d60-Lab/feedgraph/internal/service"
    "github.com/d60-Lab/feedgraph/pkg/database"
    "github.com/d60-Lab/feedgraph/pkg/logger"
    "github.com/d60-Lab/feedgraph/pkg/tracing"

    _ "github.com/d60-Lab/feedgraph/docs"
)

// @title FeedGraph API
// @version 1.0
// @description 内容分发引擎：帖子、时间线扇出、互动计数与信息流装配
// @BasePath /api/v1
// @securityDefinitions.apikey BearerAuth
// @in header
// @name Authorization
func main() {
    cfg, err := config.Load()
    if err != nil {
        fmt.Fprintf(os.Stderr, "load config: %v\n", err)
        os.Exit(1)
    }

    if err := logger.Init(cfg.Log.Level, cfg.Log.JSON); err != nil {
        fmt.Fprintf(os.Stderr, "init logger: %v\n", err)
        os.Exit(1)
    }
    defer logger.Sync()

    if cfg.Sentry.DSN != "" {
        if err := sentry.Init(sentry.ClientOptions{Dsn: cfg.Sentry.DSN}); err != nil {
            logger.Warn("sentry init failed", zap.Error(err))
        } else {
            defer sentry.Flush(2 * time.Second)
        }
    }

    ctx := context.Background()
    shutdownTracer, err := tracing.Init(ctx, cfg)
    if err != nil {
        logger.Error("init tracing", zap.Error(err))
        os.Exit(1)
    }
    defer shutdownTracer(ctx)

    db, err := database.InitDB(cfg)
    if err != nil {
        logger.Error("init database", zap.Error(err))
        os.Exit(1)
    }
    if err := db.AutoMigrate(
        &model.User{},
        &model.Follow{},
        &model.Follower{},
        &model.Post{},
        &model.TimelineOwner{},
        &model.TimelineEntry{},
        &model.Reaction{},
        &model.Comment{},
        &model.Share{},
        &model.EngagementStats{},
    ); err != nil {
        logger.Error("auto migrate", zap.Error(err))
        os.Exit(1)
    }

    // 事件总线先起，服务构造时就要拿到
    bus := event.NewBus(4096, 2)
    stopBus := bus.Start()

    postRepo := repository.NewPostRepository(db)
    timelineRepo := repository.NewTimelineRepository(db)
    ownerRepo := repository.NewOwnerRepository(db)
    reactionRepo := repository.NewReactionRepository(db)
    commentRepo := repository.NewCommentRepository(db)
    shareRepo := repository.NewShareRepository(db)
    statsRepo := repository.NewStatsRepository(db)
    followRepo := repository.NewFollowRepository(db)
    followerRepo := repository.NewFollowerRepository(db)
    userRepo := repository.NewUserRepository(db)

    var feedRepo repository.FeedRepository
    if cfg.FeedCache.Enabled {
        rdb, err := database.InitRedis(cfg)
        if err != nil {
            logger.Error("init redis", zap.Error(err))
            os.Exit(1)
        }
        defer rdb.Close()
        feedRepo = repository.NewCachedFeedRepository(db, rdb, cfg.FeedCache.TTL())
        logger.Info("communal feed cache enabled", zap.Duration("ttl", cfg.FeedCache.TTL()))
    } else {
        feedRepo = repository.NewSQLFeedRepository(db)
    }

    h := handler.New(
        service.NewPostService(db, postRepo, followRepo, bus, cfg.RateLimit.PostsPerWindow, cfg.RateLimit.Window()),
        service.NewTimelineService(timelineRepo, ownerRepo, postRepo, followRepo),
        service.NewEngagementService(db, postRepo, commentRepo, shareRepo, statsRepo, ownerRepo, followRepo, bus),
        service.NewFeedService(feedRepo, timelineRepo, ownerRepo, statsRepo, reactionRepo, shareRepo),
        service.NewFollowService(followRepo, followerRepo, userRepo),
        service.NewUserService(userRepo),
    )

    srv := &http.Server{
        Addr:    fmt.Sprintf(":%d", cfg.Server.Port),
        Handler: api.NewRouter(cfg, h),
    }

    go func() {
        logger.Info("server starting", zap.Int("port", cfg.Server.Port), zap.String("mode", cfg.Server.Mode))
        if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
            logger.Error("listen", zap.Error(err))
            os.Exit(1)
        }
    }()

    quit := make(chan os.Signal, 1)
    signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
    <-quit
    logger.Info("shutting down")

    shutdownCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
    defer cancel()
    if err := srv.Shutdown(shutdownCtx); err != nil {
        logger.Error("server shutdown", zap.Error(err))
    }
    if err := stopBus(shutdownCtx); err != nil {
        logger.Error("bus shutdown", zap.Error(err))
    }
    logger.Info("bye")
}
