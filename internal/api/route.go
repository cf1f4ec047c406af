package api

import (
	"Banter/internal/api/middleware"
	"Banter/internal/pkg/logger"
	"net/http"

	"github.com/gin-gonic/gin"
)

func SetupRouter(group *HandlersGroup) *gin.Engine {
	r := gin.New()
	_ = r.SetTrustedProxies([]string{"localhost"})

	// TraceId & Logger & CORS
	r.Use(middleware.TraceMiddleware())
	r.Use(middleware.AuditMiddleware())
	r.Use(middleware.CORSMiddleware())
	logger.SetupGin(r)

	apiGroup := r.Group("/api")
	{
		apiGroup.GET("/ping", func(c *gin.Context) {
			c.JSON(http.StatusOK, gin.H{
				"Code":    200,
				"Message": "pong",
				"Data":    nil,
			})
		})

		userGroup := apiGroup.Group("/user")
		{
			// 无需登录即可访问的接口
			userGroup.POST("/login", group.UserHandler.Login)
			userGroup.POST("/register", group.UserHandler.Register)

			authGroup := userGroup.Group("")
			authGroup.Use(middleware.AuthMiddleware())
			{
				authGroup.POST("/logout", group.UserHandler.Logout)
				authGroup.GET("/info", group.UserHandler.GetMe)
				authGroup.GET("/list", group.UserHandler.ListUsers)
				authGroup.POST("/avatar", group.UserHandler.UploadAvatar)
			}
		}

		groupGroup := apiGroup.Group("/groups")
		groupGroup.Use(middleware.AuthMiddleware())
		{
			groupGroup.POST("", group.GroupHandler.CreateGroup)
			groupGroup.GET("", group.GroupHandler.ListGroups)
			groupGroup.GET("/:id", group.GroupHandler.GetGroup)
			groupGroup.PUT("/:id", group.GroupHandler.UpdateGroup)
			groupGroup.DELETE("/:id", group.GroupHandler.DeleteGroup)
			groupGroup.POST("/:id/members", group.GroupHandler.AddMembers)
			groupGroup.DELETE("/:id/members/:memberId", group.GroupHandler.RemoveMember)
			groupGroup.POST("/:id/leave", group.GroupHandler.LeaveGroup)
			groupGroup.POST("/read", group.GroupHandler.MarkGroupRead)
		}

		imGroup := apiGroup.Group("/im")
		{
			imGroup.GET("", group.WSHandler.Connect)
			authGroup := imGroup.Group("")
			authGroup.Use(middleware.AuthMiddleware())
			{
				authGroup.POST("/send", group.MessageHandler.SendDirectMessage)
				authGroup.POST("/send/group", group.MessageHandler.SendGroupMessage)
				authGroup.GET("/history", group.MessageHandler.GetConversationHistory)
				authGroup.GET("/history/group", group.MessageHandler.GetGroupHistory)
				authGroup.GET("/list", group.MessageHandler.GetConversationList)
				authGroup.POST("/read", group.MessageHandler.MarkConversationRead)
			}
		}

		mediaGroup := apiGroup.Group("/media")
		{
			mediaGroup.Use(middleware.AuthMiddleware())
			mediaGroup.POST("/upload", group.MediaHandler.Upload)
		}
	}

	return r
}
