package handler

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"Lee_Moderation/internal/moderation"
	"Lee_Moderation/internal/service"
)

type ModerationHandler struct {
	svc *service.ModerationService
}

func NewModerationHandler(svc *service.ModerationService) *ModerationHandler {
	return &ModerationHandler{svc: svc}
}

// Queue 待审核队列
func (h *ModerationHandler) Queue(c *gin.Context) {
	cur, err := cursorFromQuery(c)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"msg": err.Error()})
		return
	}
	var communityID uint64
	if s := c.Query("community_id"); s != "" {
		if communityID, err = strconv.ParseUint(s, 10, 64); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"msg": "invalid community_id"})
			return
		}
	}

	items, err := h.svc.Queue(c.Request.Context(), actor(c), moderation.QueueFilter{
		CommunityID:     communityID,
		BeforeCreatedAt: cur.CreatedAt,
		BeforeID:        cur.ID,
		Limit:           limitFromQuery(c),
	})
	if err != nil {
		writeError(c, err)
		return
	}

	var next *service.Cursor
	if n := len(items); n > 0 && n == moderation.NormalizeLimit(limitFromQuery(c)) {
		last := items[n-1].Post
		next = &service.Cursor{CreatedAt: last.CreatedAt, ID: last.ID}
	}
	c.JSON(http.StatusOK, pageResponse(items, next))
}

// Action 审核员通过或拒绝帖子
func (h *ModerationHandler) Action(c *gin.Context) {
	var req service.ActionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"msg": "invalid params"})
		return
	}

	post, err := h.svc.Act(c.Request.Context(), actor(c), req)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"id": post.ID, "status": post.Status, "updated_at": post.UpdatedAt})
}

// History 帖子的审核记录
func (h *ModerationHandler) History(c *gin.Context) {
	postID, err := strconv.ParseUint(c.Param("id"), 10, 64)
	if err != nil || postID == 0 {
		c.JSON(http.StatusBadRequest, gin.H{"msg": "invalid post id"})
		return
	}
	list, err := h.svc.History(c.Request.Context(), actor(c), postID)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"list": list})
}

func (h *ModerationHandler) Stats(c *gin.Context) {
	st, err := h.svc.Stats(c.Request.Context(), actor(c))
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, st)
}

// AdminPosts 管理员按状态查看内容
func (h *ModerationHandler) AdminPosts(c *gin.Context) {
	cur, err := cursorFromQuery(c)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"msg": err.Error()})
		return
	}
	list, next, err := h.svc.AdminPosts(c.Request.Context(), actor(c), c.Query("status"), cur, limitFromQuery(c))
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, pageResponse(list, next))
}
