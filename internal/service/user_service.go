package service

import (
	"context"
	"errors"
	"log"
	"strings"

	"github.com/go-playground/validator/v10"
	"golang.org/x/crypto/bcrypt"

	"Lee_Moderation/internal/model"
	"Lee_Moderation/internal/pkg"
	"Lee_Moderation/internal/repository/db"
)

type UserStore interface {
	Create(ctx context.Context, user *model.User) error
	FindByUsername(ctx context.Context, username string) (*model.User, error)
	FindByID(ctx context.Context, id uint64) (*model.User, error)
	FindByEmail(ctx context.Context, email string) (*model.User, error)
	UpdateRole(ctx context.Context, userID uint64, role model.Role) error
}

// SessionStore 单点登录态，实现见 repository/redis
type SessionStore interface {
	AddUserToken(ctx context.Context, userID uint64, token string) error
	GetUserToken(ctx context.Context, userID uint64) (string, error)
	ExtendUserToken(ctx context.Context, userID uint64) error
	DeleteUserToken(ctx context.Context, userID uint64) error
}

// RegisterRequest 注册请求体
type RegisterRequest struct {
	Username string `json:"username" validate:"required,min=3,max=32,alphanum"`
	Password string `json:"password" validate:"required,min=8,max=72"`
	Email    string `json:"email" validate:"required,email,max=64"`
}

type UserService struct {
	users    UserStore
	sessions SessionStore
	tokens   *pkg.TokenIssuer
	validate *validator.Validate
}

// NewUserService sessions 为空时不做单点登录校验
func NewUserService(users UserStore, sessions SessionStore, tokens *pkg.TokenIssuer) *UserService {
	return &UserService{
		users:    users,
		sessions: sessions,
		tokens:   tokens,
		validate: validator.New(),
	}
}

func (s *UserService) Register(ctx context.Context, req RegisterRequest) (*model.User, error) {
	req.Username = strings.TrimSpace(req.Username)
	req.Email = strings.ToLower(strings.TrimSpace(req.Email))
	if err := s.validate.Struct(req); err != nil {
		return nil, invalid(ErrInvalidRequest, err)
	}

	if _, err := s.users.FindByUsername(ctx, req.Username); err == nil {
		return nil, ErrUserExists
	} else if !errors.Is(err, db.ErrUserNotFound) {
		return nil, err
	}
	if _, err := s.users.FindByEmail(ctx, req.Email); err == nil {
		return nil, ErrUserExists
	} else if !errors.Is(err, db.ErrUserNotFound) {
		return nil, err
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(req.Password), bcrypt.DefaultCost)
	if err != nil {
		return nil, err
	}
	user := &model.User{
		Username: req.Username,
		Password: string(hash),
		Email:    req.Email,
		Role:     model.RoleUser,
	}
	if err = s.users.Create(ctx, user); err != nil {
		return nil, err
	}
	return user, nil
}

func (s *UserService) Login(ctx context.Context, username, password string) (*pkg.Pair, error) {
	user, err := s.users.FindByUsername(ctx, strings.TrimSpace(username))
	if err != nil {
		if errors.Is(err, db.ErrUserNotFound) {
			return nil, ErrInvalidCredentials
		}
		return nil, err
	}
	if bcrypt.CompareHashAndPassword([]byte(user.Password), []byte(password)) != nil {
		return nil, ErrInvalidCredentials
	}
	return s.issue(ctx, user)
}

// issue 签发新 token 并覆盖 redis 中的登录态，旧 token 随之失效
func (s *UserService) issue(ctx context.Context, user *model.User) (*pkg.Pair, error) {
	pair, err := s.tokens.GeneratePair(user.ID, int(user.Role))
	if err != nil {
		return nil, err
	}
	if s.sessions != nil {
		if err = s.sessions.AddUserToken(ctx, user.ID, pair.AccessToken); err != nil {
			return nil, err
		}
	}
	return pair, nil
}

func (s *UserService) Logout(ctx context.Context, userID uint64) error {
	if s.sessions == nil {
		return nil
	}
	return s.sessions.DeleteUserToken(ctx, userID)
}

// Refresh 用 refresh token 换新的一对 token，角色按库里最新值签发
func (s *UserService) Refresh(ctx context.Context, refreshToken string) (*pkg.Pair, error) {
	claims, err := s.tokens.ParseRefresh(refreshToken)
	if err != nil {
		return nil, err
	}
	user, err := s.users.FindByID(ctx, claims.UserID)
	if err != nil {
		if errors.Is(err, db.ErrUserNotFound) {
			return nil, ErrUnauthorized
		}
		return nil, err
	}
	return s.issue(ctx, user)
}

// Promote 修改用户角色；已登录的会话在下次刷新 token 后生效
func (s *UserService) Promote(ctx context.Context, email string, role model.Role) (*model.User, error) {
	user, err := s.users.FindByEmail(ctx, strings.ToLower(strings.TrimSpace(email)))
	if err != nil {
		if errors.Is(err, db.ErrUserNotFound) {
			return nil, ErrUserNotFound
		}
		return nil, err
	}
	if user.Role == role {
		return user, nil
	}
	if err = s.users.UpdateRole(ctx, user.ID, role); err != nil {
		return nil, err
	}
	log.Printf("user: %s role %s -> %s", user.Email, user.Role, role)
	user.Role = role
	return user, nil
}
