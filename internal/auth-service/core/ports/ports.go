package ports

import (
	"context"

	"ridehail/internal/auth-service/core/domain/dto"
	"ridehail/internal/auth-service/core/domain/model"
)

type IUsersRepo interface {
	Create(ctx context.Context, user model.User) (string, error)
	GetByEmail(ctx context.Context, email string) (model.User, error)
}

type IAuthService interface {
	Register(ctx context.Context, req dto.RegisterRequest) (dto.AuthResponse, error)
	Login(ctx context.Context, req dto.LoginRequest) (dto.AuthResponse, error)
}
