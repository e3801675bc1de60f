package handler

import (
	"errors"
	"log"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"Lee_Moderation/internal/middleware"
	"Lee_Moderation/internal/model"
	"Lee_Moderation/internal/moderation"
	"Lee_Moderation/internal/pkg"
	"Lee_Moderation/internal/service"
)

// writeError 业务错误到 HTTP 状态码的映射，未知错误只记日志不外露
func writeError(c *gin.Context, err error) {
	status := http.StatusInternalServerError
	switch {
	case errors.Is(err, service.ErrInvalidSubmission),
		errors.Is(err, service.ErrInvalidRequest),
		errors.Is(err, moderation.ErrInvalidAction):
		status = http.StatusUnprocessableEntity
	case errors.Is(err, service.ErrUnauthorized),
		errors.Is(err, service.ErrInvalidCredentials),
		errors.Is(err, moderation.ErrMissingModerator),
		errors.Is(err, pkg.ErrRefreshInvalid),
		errors.Is(err, pkg.ErrRefreshExpired):
		status = http.StatusUnauthorized
	case errors.Is(err, service.ErrForbidden):
		status = http.StatusForbidden
	case errors.Is(err, service.ErrCommunityNotFound),
		errors.Is(err, service.ErrUserNotFound),
		errors.Is(err, moderation.ErrPostNotFound):
		status = http.StatusNotFound
	case errors.Is(err, moderation.ErrIllegalTransition),
		errors.Is(err, service.ErrUserExists):
		status = http.StatusConflict
	}
	if status == http.StatusInternalServerError {
		log.Printf("handler: %s %s: %v", c.Request.Method, c.FullPath(), err)
		c.JSON(status, gin.H{"msg": "internal error"})
		return
	}
	c.JSON(status, gin.H{"msg": err.Error()})
}

// actor 从 AuthMiddleware 注入的上下文里取调用者
func actor(c *gin.Context) service.Actor {
	var a service.Actor
	if v, ok := c.Get(middleware.ContextUserIDKey); ok {
		a.ID, _ = v.(uint64)
	}
	if v, ok := c.Get(middleware.ContextRoleKey); ok {
		a.Role, _ = v.(model.Role)
	}
	return a
}

// cursorFromQuery 解析 last_id / last_created_at(RFC3339) 游标，两者都不传表示第一页
func cursorFromQuery(c *gin.Context) (service.Cursor, error) {
	var cur service.Cursor
	if s := c.Query("last_id"); s != "" {
		id, err := strconv.ParseUint(s, 10, 64)
		if err != nil {
			return cur, errors.New("invalid last_id")
		}
		cur.ID = id
	}
	if s := c.Query("last_created_at"); s != "" {
		ts, err := time.Parse(time.RFC3339Nano, s)
		if err != nil {
			return cur, errors.New("invalid last_created_at")
		}
		cur.CreatedAt = ts
	}
	if cur.ID != 0 && cur.CreatedAt.IsZero() || cur.ID == 0 && !cur.CreatedAt.IsZero() {
		return cur, errors.New("last_id and last_created_at must be given together")
	}
	return cur, nil
}

// pageResponse 列表响应，带下一页游标
func pageResponse(list any, next *service.Cursor) gin.H {
	resp := gin.H{"list": list}
	if next != nil {
		resp["next_last_id"] = next.ID
		resp["next_created_at"] = next.CreatedAt.Format(time.RFC3339Nano)
	}
	return resp
}

func limitFromQuery(c *gin.Context) int {
	n, _ := strconv.Atoi(c.Query("size"))
	return n
}
