package router

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"Lee_Moderation/internal/classifier"
	"Lee_Moderation/internal/model"
	"Lee_Moderation/internal/moderation"
	"Lee_Moderation/internal/pkg"
	"Lee_Moderation/internal/repository/db"
	"Lee_Moderation/internal/service"
)

type scriptedClassifier struct {
	byTitle map[string]classifier.Result
}

func (s scriptedClassifier) Classify(_ context.Context, in classifier.Input) classifier.Result {
	if res, ok := s.byTitle[in.Title]; ok {
		return res
	}
	return classifier.Result{Decision: classifier.DecisionApproved, Reason: "benign"}
}

type communities struct{}

func (communities) FindByID(_ context.Context, id uint64) (*model.Community, error) {
	if id != 1 {
		return nil, db.ErrCommunityNotFound
	}
	return &model.Community{ID: 1, Name: "General", Slug: "general"}, nil
}

func (communities) List(context.Context) ([]model.Community, error) {
	return []model.Community{{ID: 1, Name: "General", Slug: "general"}}, nil
}

func (communities) Upsert(context.Context, *model.Community) error { return nil }

type noUsers struct{}

func (noUsers) Create(context.Context, *model.User) error { return nil }
func (noUsers) FindByUsername(context.Context, string) (*model.User, error) {
	return nil, db.ErrUserNotFound
}
func (noUsers) FindByID(context.Context, uint64) (*model.User, error) { return nil, db.ErrUserNotFound }
func (noUsers) FindByEmail(context.Context, string) (*model.User, error) {
	return nil, db.ErrUserNotFound
}
func (noUsers) UpdateRole(context.Context, uint64, model.Role) error { return nil }

type testServer struct {
	engine *gin.Engine
	tokens *pkg.TokenIssuer
	store  *moderation.MemoryStore
}

func newTestServer(t *testing.T) *testServer {
	t.Helper()
	gin.SetMode(gin.TestMode)

	store := moderation.NewMemoryStore()
	lc := moderation.NewLifecycle(store, nil)
	cls := scriptedClassifier{byTitle: map[string]classifier.Result{
		"Buy cheap pills": {Decision: classifier.DecisionRejected, Reason: "Spam"},
	}}
	tokens := pkg.NewTokenIssuer("access", "refresh")

	engine := InitRouter(Deps{
		Users:       service.NewUserService(noUsers{}, nil, tokens),
		Communities: service.NewCommunityService(communities{}),
		Posts:       service.NewPostService(store, lc, communities{}, cls, 5*time.Second),
		Moderation:  service.NewModerationService(store, lc),
		Tokens:      tokens,
	})
	return &testServer{engine: engine, tokens: tokens, store: store}
}

func (s *testServer) token(t *testing.T, userID uint64, role model.Role) string {
	t.Helper()
	pair, err := s.tokens.GeneratePair(userID, int(role))
	require.NoError(t, err)
	return pair.AccessToken
}

func (s *testServer) do(t *testing.T, method, path, token string, body any) (*httptest.ResponseRecorder, map[string]any) {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	w := httptest.NewRecorder()
	s.engine.ServeHTTP(w, req)

	var out map[string]any
	if w.Body.Len() > 0 {
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &out), w.Body.String())
	}
	return w, out
}

func TestSubmissionRequiresAuth(t *testing.T) {
	s := newTestServer(t)
	w, _ := s.do(t, http.MethodPost, "/api/post/create", "", gin.H{"community_id": 1, "title": "Hello"})
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	w, _ = s.do(t, http.MethodPost, "/api/post/create", "garbage", gin.H{"community_id": 1, "title": "Hello"})
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestSubmissionValidationAndNotFound(t *testing.T) {
	s := newTestServer(t)
	tok := s.token(t, 1, model.RoleUser)

	w, body := s.do(t, http.MethodPost, "/api/post/create", tok, gin.H{"community_id": 1, "title": "a"})
	assert.Equal(t, http.StatusUnprocessableEntity, w.Code)
	assert.Contains(t, body["msg"], "title")

	w, _ = s.do(t, http.MethodPost, "/api/post/create", tok, gin.H{"community_id": 9, "title": "Hello"})
	assert.Equal(t, http.StatusNotFound, w.Code)

	assert.Empty(t, s.store.Events())
}

func TestModerationFlow(t *testing.T) {
	s := newTestServer(t)
	author := s.token(t, 1, model.RoleUser)
	mod := s.token(t, 2, model.RoleModerator)
	admin := s.token(t, 3, model.RoleAdmin)

	w, body := s.do(t, http.MethodPost, "/api/post/create", author, gin.H{"community_id": 1, "title": "Buy cheap pills"})
	require.Equal(t, http.StatusCreated, w.Code)
	assert.Equal(t, "FLAGGED", body["status"])
	postID := uint64(body["id"].(float64))

	w, body = s.do(t, http.MethodPost, "/api/post/create", author, gin.H{"community_id": 1, "title": "Nice sunset"})
	require.Equal(t, http.StatusCreated, w.Code)
	assert.Equal(t, "APPROVED", body["status"])

	// 公开列表只有已通过的帖子
	w, body = s.do(t, http.MethodGet, "/api/post/list/1", "", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Len(t, body["list"], 1)

	w, _ = s.do(t, http.MethodGet, "/api/moderation/queue", author, nil)
	assert.Equal(t, http.StatusForbidden, w.Code)

	w, body = s.do(t, http.MethodGet, "/api/moderation/queue", mod, nil)
	require.Equal(t, http.StatusOK, w.Code)
	items := body["list"].([]any)
	require.Len(t, items, 1)
	assert.Equal(t, "Spam", items[0].(map[string]any)["reason"])

	w, _ = s.do(t, http.MethodPost, "/api/moderation/action", mod, gin.H{"post_id": postID, "action": "BAN"})
	assert.Equal(t, http.StatusUnprocessableEntity, w.Code)

	w, _ = s.do(t, http.MethodPost, "/api/moderation/action", author, gin.H{"post_id": postID, "action": "APPROVE"})
	assert.Equal(t, http.StatusForbidden, w.Code)

	w, body = s.do(t, http.MethodPost, "/api/moderation/action", mod, gin.H{"post_id": postID, "action": "APPROVE"})
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "APPROVED", body["status"])

	w, _ = s.do(t, http.MethodPost, "/api/moderation/action", mod, gin.H{"post_id": postID, "action": "REJECT"})
	assert.Equal(t, http.StatusConflict, w.Code)

	w, _ = s.do(t, http.MethodPost, "/api/moderation/action", mod, gin.H{"post_id": 999, "action": "REJECT"})
	assert.Equal(t, http.StatusNotFound, w.Code)

	w, body = s.do(t, http.MethodGet, fmt.Sprintf("/api/moderation/posts/%d/history", postID), mod, nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Len(t, body["list"], 2)

	w, body = s.do(t, http.MethodGet, "/api/moderation/stats", mod, nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, float64(0), body["pending_review"])
	// 自动通过的帖子也计入当天通过数
	assert.Equal(t, float64(2), body["approved_today"])

	w, body = s.do(t, http.MethodGet, "/api/post/list/1", "", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Len(t, body["list"], 2)

	w, _ = s.do(t, http.MethodGet, "/api/admin/posts", mod, nil)
	assert.Equal(t, http.StatusForbidden, w.Code)

	w, body = s.do(t, http.MethodGet, "/api/admin/posts?status=APPROVED", admin, nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Len(t, body["list"], 2)

	w, _ = s.do(t, http.MethodGet, "/api/admin/posts?status=NOPE", admin, nil)
	assert.Equal(t, http.StatusUnprocessableEntity, w.Code)
}

func TestFeedCursorParams(t *testing.T) {
	s := newTestServer(t)
	w, _ := s.do(t, http.MethodGet, "/api/post/list/1?last_id=3", "", nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w, _ = s.do(t, http.MethodGet, "/api/post/list/abc", "", nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w, body := s.do(t, http.MethodGet, "/api/community/list", "", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Len(t, body["list"], 1)
}
