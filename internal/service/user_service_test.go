package service

import (
	"context"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"Lee_Moderation/internal/model"
	"Lee_Moderation/internal/pkg"
	"Lee_Moderation/internal/repository/db"
	"Lee_Moderation/internal/repository/redis"
)

type memoryUsers struct {
	mu    sync.Mutex
	seq   uint64
	users map[uint64]model.User
}

func newMemoryUsers() *memoryUsers {
	return &memoryUsers{users: make(map[uint64]model.User)}
}

func (m *memoryUsers) Create(_ context.Context, u *model.User) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.seq++
	u.ID = m.seq
	m.users[u.ID] = *u
	return nil
}

func (m *memoryUsers) find(match func(model.User) bool) (*model.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, u := range m.users {
		if match(u) {
			return &u, nil
		}
	}
	return nil, db.ErrUserNotFound
}

func (m *memoryUsers) FindByUsername(_ context.Context, name string) (*model.User, error) {
	return m.find(func(u model.User) bool { return u.Username == name || u.Email == name })
}

func (m *memoryUsers) FindByID(_ context.Context, id uint64) (*model.User, error) {
	return m.find(func(u model.User) bool { return u.ID == id })
}

func (m *memoryUsers) FindByEmail(_ context.Context, email string) (*model.User, error) {
	return m.find(func(u model.User) bool { return u.Email == email })
}

func (m *memoryUsers) UpdateRole(_ context.Context, id uint64, role model.Role) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	u := m.users[id]
	u.Role = role
	m.users[id] = u
	return nil
}

type memorySessions struct {
	mu     sync.Mutex
	tokens map[uint64]string
}

func newMemorySessions() *memorySessions {
	return &memorySessions{tokens: make(map[uint64]string)}
}

func (m *memorySessions) AddUserToken(_ context.Context, id uint64, token string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.tokens[id] = token
	return nil
}

func (m *memorySessions) GetUserToken(_ context.Context, id uint64) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	tok, ok := m.tokens[id]
	if !ok {
		return "", redis.ErrTokenNotFound
	}
	return tok, nil
}

func (m *memorySessions) ExtendUserToken(context.Context, uint64) error { return nil }

func (m *memorySessions) DeleteUserToken(_ context.Context, id uint64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.tokens, id)
	return nil
}

func newUserService() (*UserService, *memoryUsers, *memorySessions, *pkg.TokenIssuer) {
	users := newMemoryUsers()
	sessions := newMemorySessions()
	tokens := pkg.NewTokenIssuer("access", "refresh")
	return NewUserService(users, sessions, tokens), users, sessions, tokens
}

func TestRegisterAndLogin(t *testing.T) {
	svc, _, sessions, tokens := newUserService()
	ctx := context.Background()

	u, err := svc.Register(ctx, RegisterRequest{Username: "alice", Password: "correct horse", Email: "Alice@Example.com"})
	require.NoError(t, err)
	assert.Equal(t, "alice@example.com", u.Email)
	assert.Equal(t, model.RoleUser, u.Role)
	assert.NotEqual(t, "correct horse", u.Password)

	_, err = svc.Register(ctx, RegisterRequest{Username: "alice", Password: "another one", Email: "other@example.com"})
	assert.ErrorIs(t, err, ErrUserExists)
	_, err = svc.Register(ctx, RegisterRequest{Username: "bob", Password: "another one", Email: "alice@example.com"})
	assert.ErrorIs(t, err, ErrUserExists)

	_, err = svc.Login(ctx, "alice", "wrong password")
	assert.ErrorIs(t, err, ErrInvalidCredentials)
	_, err = svc.Login(ctx, "nobody", "whatever")
	assert.ErrorIs(t, err, ErrInvalidCredentials)

	pair, err := svc.Login(ctx, "alice@example.com", "correct horse")
	require.NoError(t, err)
	claims, err := tokens.ParseAccess(pair.AccessToken)
	require.NoError(t, err)
	assert.Equal(t, u.ID, claims.UserID)
	assert.Equal(t, pair.AccessToken, sessions.tokens[u.ID])

	require.NoError(t, svc.Logout(ctx, u.ID))
	assert.Empty(t, sessions.tokens)
}

func TestRegisterValidation(t *testing.T) {
	svc, _, _, _ := newUserService()
	for _, req := range []RegisterRequest{
		{Username: "al", Password: "long enough", Email: "a@example.com"},
		{Username: "alice", Password: "short", Email: "a@example.com"},
		{Username: "alice", Password: "long enough", Email: "not-an-email"},
		{Username: "al ice", Password: "long enough", Email: "a@example.com"},
	} {
		_, err := svc.Register(context.Background(), req)
		assert.ErrorIs(t, err, ErrInvalidRequest, "%+v", req)
	}
}

func TestPromoteAndRefresh(t *testing.T) {
	svc, _, _, tokens := newUserService()
	ctx := context.Background()

	u, err := svc.Register(ctx, RegisterRequest{Username: "mod", Password: "password1", Email: "mod@example.com"})
	require.NoError(t, err)
	pair, err := svc.Login(ctx, "mod", "password1")
	require.NoError(t, err)

	promoted, err := svc.Promote(ctx, "MOD@example.com", model.RoleModerator)
	require.NoError(t, err)
	assert.Equal(t, model.RoleModerator, promoted.Role)

	refreshed, err := svc.Refresh(ctx, pair.RefreshToken)
	require.NoError(t, err)
	claims, err := tokens.ParseAccess(refreshed.AccessToken)
	require.NoError(t, err)
	assert.Equal(t, u.ID, claims.UserID)
	assert.Equal(t, int(model.RoleModerator), claims.Role)

	_, err = svc.Promote(ctx, "ghost@example.com", model.RoleAdmin)
	assert.ErrorIs(t, err, ErrUserNotFound)

	_, err = svc.Refresh(ctx, "garbage")
	assert.ErrorIs(t, err, pkg.ErrRefreshInvalid)
}
