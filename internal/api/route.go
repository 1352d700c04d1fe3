package api

import (
	"Insightful/internal/api/config"
	"Insightful/internal/api/middleware"
	"Insightful/internal/pkg/consts"
	"Insightful/internal/pkg/logger"
	"net/http"

	"github.com/gin-gonic/gin"
)

func SetupRouter(group *HandlersGroup, cfg *config.Config) *gin.Engine {
	r := gin.New()
	_ = r.SetTrustedProxies([]string{"localhost"})

	// TraceId & Logger & CORS
	r.Use(middleware.TraceMiddleware())
	r.Use(middleware.AuditMiddleware())
	r.Use(middleware.CORSMiddleware(cfg.Server.AllowOrigins))
	logger.SetupGin(r, cfg.Logstash)

	apiGroup := r.Group("/api")
	{
		apiGroup.GET("/ping", func(c *gin.Context) {
			c.JSON(http.StatusOK, gin.H{
				"Code":    200,
				"Message": "pong",
				"Data":    nil,
			})
		})

		reactionGroup := apiGroup.Group("/reactions")
		{
			reactionGroup.GET("/ws", group.WSHandler.Connect)

			authOptGroup := reactionGroup.Group("")
			authOptGroup.Use(middleware.AuthOptionalMiddleware())
			{
				authOptGroup.GET("/:post_id/who", group.ReactionHandler.ListActors)
				authOptGroup.GET("/:post_id/state", group.ReactionHandler.GetState)
				authOptGroup.POST("/batch/counts", group.ReactionHandler.GetBatchCounts)
			}

			authGroup := reactionGroup.Group("")
			authGroup.Use(middleware.AuthMiddleware())
			{
				authGroup.POST("/:post_id", group.ReactionHandler.Create)
				authGroup.DELETE("/:post_id", group.ReactionHandler.Destroy)
			}
		}

		userGroup := apiGroup.Group("/users")
		userGroup.Use(middleware.AuthOptionalMiddleware())
		{
			userGroup.GET("/:id/reaction-summary", group.ReactionHandler.GetUserSummary)
		}

		sysbox := apiGroup.Group("/sysbox")
		sysbox.Use(middleware.AuthMiddleware())
		{
			sysbox.GET("/list", group.SysBoxHandler.GetNotificationList)
			sysbox.GET("/unread", group.SysBoxHandler.GetUnreadCount)
			sysbox.POST("/read", group.SysBoxHandler.MarkRead)
			sysbox.POST("/read/all", group.SysBoxHandler.MarkAllRead)
		}

		// 需要登录 & 拥有 admin 角色
		adminGroup := apiGroup.Group("/admin")
		adminGroup.Use(middleware.AuthMiddleware(), middleware.CheckRoles(consts.RoleAdmin))
		{
			adminGroup.POST("/reactions/daily/purge", group.ReactionHandler.PurgeDaily)
		}
	}

	return r
}
