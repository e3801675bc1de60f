package middleware

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"Lee_Moderation/internal/model"
	"Lee_Moderation/internal/pkg"
)

type fakeSessions struct {
	tokens   map[uint64]string
	extended int
}

func (f *fakeSessions) GetUserToken(_ context.Context, id uint64) (string, error) {
	tok, ok := f.tokens[id]
	if !ok {
		return "", errors.New("token not found")
	}
	return tok, nil
}

func (f *fakeSessions) ExtendUserToken(context.Context, uint64) error {
	f.extended++
	return nil
}

func newEngine(tokens *pkg.TokenIssuer, sessions Sessions, min model.Role) *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.GET("/x", AuthMiddleware(tokens, sessions), RequireRole(min), func(c *gin.Context) {
		id, _ := c.Get(ContextUserIDKey)
		role, _ := c.Get(ContextRoleKey)
		c.JSON(http.StatusOK, gin.H{"id": id, "role": role})
	})
	return r
}

func call(r *gin.Engine, header string) int {
	req := httptest.NewRequest(http.MethodGet, "/x", nil)
	if header != "" {
		req.Header.Set("Authorization", header)
	}
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w.Code
}

func TestAuthMiddlewareHeaders(t *testing.T) {
	tokens := pkg.NewTokenIssuer("a", "r")
	r := newEngine(tokens, nil, model.RoleUser)

	assert.Equal(t, http.StatusUnauthorized, call(r, ""))
	assert.Equal(t, http.StatusUnauthorized, call(r, "Token abc"))
	assert.Equal(t, http.StatusUnauthorized, call(r, "Bearer abc"))

	pair, err := tokens.GeneratePair(5, 0)
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, call(r, "Bearer "+pair.AccessToken))
	assert.Equal(t, http.StatusUnauthorized, call(r, "Bearer "+pair.RefreshToken))
}

func TestAuthMiddlewareSingleSession(t *testing.T) {
	tokens := pkg.NewTokenIssuer("a", "r")
	sessions := &fakeSessions{tokens: map[uint64]string{}}
	r := newEngine(tokens, sessions, model.RoleUser)

	pair, err := tokens.GeneratePair(5, 0)
	require.NoError(t, err)
	assert.Equal(t, http.StatusUnauthorized, call(r, "Bearer "+pair.AccessToken))

	sessions.tokens[5] = pair.AccessToken
	assert.Equal(t, http.StatusOK, call(r, "Bearer "+pair.AccessToken))
	assert.Equal(t, 1, sessions.extended)

	sessions.tokens[5] = "newer-login"
	assert.Equal(t, http.StatusUnauthorized, call(r, "Bearer "+pair.AccessToken))
}

func TestRequireRole(t *testing.T) {
	tokens := pkg.NewTokenIssuer("a", "r")
	r := newEngine(tokens, nil, model.RoleModerator)

	for _, tc := range []struct {
		role model.Role
		want int
	}{
		{model.RoleUser, http.StatusForbidden},
		{model.RoleModerator, http.StatusOK},
		{model.RoleAdmin, http.StatusOK},
	} {
		pair, err := tokens.GeneratePair(1, int(tc.role))
		require.NoError(t, err)
		assert.Equal(t, tc.want, call(r, "Bearer "+pair.AccessToken), tc.role.String())
	}
}
