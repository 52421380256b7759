package services

import (
	"context"
	"errors"
	"fmt"
	"time"

	"ridehail/internal/auth-service/core/domain/dto"
	"ridehail/internal/auth-service/core/domain/model"
	"ridehail/internal/auth-service/core/myerrors"
	"ridehail/internal/auth-service/core/ports"
	"ridehail/internal/mylogger"

	"github.com/go-playground/validator/v10"
	"github.com/golang-jwt/jwt"
	"golang.org/x/crypto/bcrypt"
)

const (
	HashFactor = 10
	TokenTTL   = 24 * time.Hour
)

type AuthService struct {
	mylog     mylogger.Logger
	usersRepo ports.IUsersRepo
	jwtSecret string
	validate  *validator.Validate
}

func NewAuthService(mylog mylogger.Logger, usersRepo ports.IUsersRepo, jwtSecret string) ports.IAuthService {
	return &AuthService{
		mylog:     mylog,
		usersRepo: usersRepo,
		jwtSecret: jwtSecret,
		validate:  validator.New(),
	}
}

func (as *AuthService) Register(ctx context.Context, req dto.RegisterRequest) (dto.AuthResponse, error) {
	mylog := as.mylog.Action("register")

	if err := as.validate.Struct(req); err != nil {
		return dto.AuthResponse{}, fmt.Errorf("%w: %v", myerrors.ErrInvalidInput, err)
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(req.Password), HashFactor)
	if err != nil {
		return dto.AuthResponse{}, fmt.Errorf("failed to hash password: %w", err)
	}

	id, err := as.usersRepo.Create(ctx, model.User{
		Username:     req.Username,
		Email:        req.Email,
		PasswordHash: hash,
		Role:         req.Role,
	})
	if err != nil {
		if errors.Is(err, myerrors.ErrEmailRegistered) {
			mylog.Warn("registration rejected, email already registered", "email", req.Email)
			return dto.AuthResponse{}, err
		}
		mylog.Error("failed to save user", err)
		return dto.AuthResponse{}, fmt.Errorf("cannot save user: %w", err)
	}

	token, err := as.issueToken(id, req.Email, req.Role)
	if err != nil {
		mylog.Error("failed to sign token", err)
		return dto.AuthResponse{}, err
	}

	mylog.Info("user registered", "user_id", id, "role", req.Role)
	return dto.AuthResponse{UserId: id, Role: req.Role, Token: token}, nil
}

func (as *AuthService) Login(ctx context.Context, req dto.LoginRequest) (dto.AuthResponse, error) {
	mylog := as.mylog.Action("login")

	if err := as.validate.Struct(req); err != nil {
		return dto.AuthResponse{}, fmt.Errorf("%w: %v", myerrors.ErrInvalidInput, err)
	}

	user, err := as.usersRepo.GetByEmail(ctx, req.Email)
	if err != nil {
		if errors.Is(err, myerrors.ErrUnknownEmail) {
			mylog.Warn("login rejected, unknown email", "email", req.Email)
			return dto.AuthResponse{}, myerrors.ErrBadCredentials
		}
		mylog.Error("failed to load user", err)
		return dto.AuthResponse{}, fmt.Errorf("cannot load user: %w", err)
	}

	if bcrypt.CompareHashAndPassword(user.PasswordHash, []byte(req.Password)) != nil {
		mylog.Debug("login rejected, password mismatch", "email", req.Email)
		return dto.AuthResponse{}, myerrors.ErrBadCredentials
	}
	if user.Status == model.StatusSuspended {
		mylog.Warn("login rejected, account suspended", "user_id", user.ID)
		return dto.AuthResponse{}, myerrors.ErrBadCredentials
	}

	token, err := as.issueToken(user.ID, user.Email, user.Role)
	if err != nil {
		mylog.Error("failed to sign token", err)
		return dto.AuthResponse{}, err
	}

	mylog.Info("user logged in", "user_id", user.ID)
	return dto.AuthResponse{UserId: user.ID, Role: user.Role, Token: token}, nil
}

func (as *AuthService) issueToken(userId, email, role string) (string, error) {
	claims := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"user_id": userId,
		"email":   email,
		"role":    role,
		"exp":     time.Now().Add(TokenTTL).Unix(),
	})
	return claims.SignedString([]byte(as.jwtSecret))
}
