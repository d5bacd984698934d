package service

import (
    "context"
    "errors"
    "time"

    "gorm.io/gorm"

    "github.com/d60-Lab/feedgraph/internal/apperr"
    "github.com/d60-Lab/feedgraph/internal/model"
    "github.com/d60-Lab/feedgraph/internal/repository"
)

// UserService 作者档案镜像的读写；鉴权在外部身份服务，这里只维护资料快照
type UserService interface {
    UpsertProfile(ctx context.Context, actorID, username, displayName, avatarURL, bio string) (*model.User, error)
    Get(ctx context.Context, id string) (*model.User, error)
}

type userService struct {
    users repository.UserRepository
}

func NewUserService(users repository.UserRepository) UserService {
    return &userService{users: users}
}

func (s *userService) UpsertProfile(ctx context.Context, actorID, username, displayName, avatarURL, bio string) (*model.User, error) {
    if actorID == "" {
        return nil, apperr.Validationf("actor is required")
    }
    if username == "" {
        return nil, apperr.Validationf("username is required")
    }

    now := time.Now()
    u := &model.User{
        ID:          actorID,
        Username:    username,
        DisplayName: displayName,
        AvatarURL:   avatarURL,
        Bio:         bio,
        CreatedAt:   now,
        UpdatedAt:   now,
    }
    if err := s.users.Upsert(ctx, u); err != nil {
        return nil, err
    }
    return s.users.GetByID(ctx, actorID)
}

func (s *userService) Get(ctx context.Context, id string) (*model.User, error) {
    u, err := s.users.GetByID(ctx, id)
    if errors.Is(err, gorm.ErrRecordNotFound) {
        return nil, apperr.NotFoundf("user %s", id)
    }
    return u, err
}
