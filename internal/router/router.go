package router

import (
	"github.com/gin-gonic/gin"

	"Lee_Moderation/internal/handler"
	"Lee_Moderation/internal/middleware"
	"Lee_Moderation/internal/model"
	"Lee_Moderation/internal/pkg"
	"Lee_Moderation/internal/service"
)

// Deps 路由需要的服务
type Deps struct {
	Users       *service.UserService
	Communities *service.CommunityService
	Posts       *service.PostService
	Moderation  *service.ModerationService
	Tokens      *pkg.TokenIssuer
	Sessions    middleware.Sessions // 为空时不校验单点登录
}

func InitRouter(d Deps) *gin.Engine {
	r := gin.New()
	r.Use(gin.Logger(), gin.Recovery())

	user := handler.NewUserHandler(d.Users)
	community := handler.NewCommunityHandler(d.Communities)
	post := handler.NewPostHandler(d.Posts)
	mod := handler.NewModerationHandler(d.Moderation)

	auth := middleware.AuthMiddleware(d.Tokens, d.Sessions)

	// 用户相关接口
	userGroup := r.Group("/api/user")
	{
		userGroup.POST("/register", user.Register)
		userGroup.POST("/login", user.Login)
		userGroup.POST("/logout", auth, user.Logout)
	}

	// token相关接口
	tokenGroup := r.Group("/api/token")
	{
		tokenGroup.POST("/refresh", user.TokenRefresh)
	}

	// 社区相关接口
	communityGroup := r.Group("/api/community")
	{
		communityGroup.GET("/list", community.List)
	}

	// 帖子相关接口：发帖需要登录，列表只展示已通过的帖子
	postGroup := r.Group("/api/post")
	{
		postGroup.POST("/create", auth, post.CreatePost)
		postGroup.GET("/list/:id", post.ListByCommunity)
	}

	// 审核相关接口
	modGroup := r.Group("/api/moderation")
	modGroup.Use(auth, middleware.RequireRole(model.RoleModerator))
	{
		modGroup.GET("/queue", mod.Queue)
		modGroup.POST("/action", mod.Action)
		modGroup.GET("/posts/:id/history", mod.History)
		modGroup.GET("/stats", mod.Stats)
	}

	// 管理员接口
	adminGroup := r.Group("/api/admin")
	adminGroup.Use(auth, middleware.RequireRole(model.RoleAdmin))
	{
		adminGroup.GET("/posts", mod.AdminPosts)
	}

	return r
}
