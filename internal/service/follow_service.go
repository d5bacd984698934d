package service

import (
    "context"

    "github.com/d60-Lab/feedgraph/internal/apperr"
    "github.com/d60-Lab/feedgraph/internal/repository"
)

// FollowService 关注图：followers 可见性与限流之外唯一会影响读路径
// 裁决的关系数据。正反两份索引由仓储在同一事务内双写。
type FollowService interface {
    Follow(ctx context.Context, fromUserID, toUserID string) error
    Unfollow(ctx context.Context, fromUserID, toUserID string) error
    // Follows followers 档可见性裁决入口
    Follows(ctx context.Context, fromUserID, toUserID string) (bool, error)
    ListFollowing(ctx context.Context, userID string, page, pageSize int) ([]string, int64, error)
    ListFollowers(ctx context.Context, userID string, page, pageSize int) ([]string, int64, error)
}

type followService struct {
    follows   repository.FollowRepository
    followers repository.FollowerRepository
    users     repository.UserRepository
}

func NewFollowService(follows repository.FollowRepository, followers repository.FollowerRepository, users repository.UserRepository) FollowService {
    return &followService{follows: follows, followers: followers, users: users}
}

func (s *followService) Follow(ctx context.Context, fromUserID, toUserID string) error {
    if fromUserID == toUserID {
        return apperr.Validationf("cannot follow yourself")
    }
    exists, err := s.users.Exists(ctx, toUserID)
    if err != nil {
        return err
    }
    if !exists {
        return apperr.NotFoundf("user %s", toUserID)
    }
    // 幂等：重复关注不报错
    return s.follows.Create(ctx, fromUserID, toUserID)
}

func (s *followService) Unfollow(ctx context.Context, fromUserID, toUserID string) error {
    return s.follows.Delete(ctx, fromUserID, toUserID)
}

func (s *followService) Follows(ctx context.Context, fromUserID, toUserID string) (bool, error) {
    return s.follows.Exists(ctx, fromUserID, toUserID)
}

func (s *followService) ListFollowing(ctx context.Context, userID string, page, pageSize int) ([]string, int64, error) {
    page, pageSize = normalizePage(page, pageSize)
    items, err := s.follows.ListFollowings(ctx, userID, (page-1)*pageSize, pageSize)
    if err != nil {
        return nil, 0, err
    }
    total, err := s.follows.CountFollowings(ctx, userID)
    if err != nil {
        return nil, 0, err
    }
    res := make([]string, len(items))
    for i, it := range items {
        res[i] = it.FolloweeID
    }
    return res, total, nil
}

func (s *followService) ListFollowers(ctx context.Context, userID string, page, pageSize int) ([]string, int64, error) {
    page, pageSize = normalizePage(page, pageSize)
    items, err := s.followers.ListFollowers(ctx, userID, (page-1)*pageSize, pageSize)
    if err != nil {
        return nil, 0, err
    }
    total, err := s.followers.CountFollowers(ctx, userID)
    if err != nil {
        return nil, 0, err
    }
    res := make([]string, len(items))
    for i, it := range items {
        res[i] = it.FollowerID
    }
    return res, total, nil
}
