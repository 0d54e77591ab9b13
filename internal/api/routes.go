package api

import (
	"github.com/gin-gonic/gin"

	"github.com/charlesng35/smokefree/internal/handlers"
	"github.com/charlesng35/smokefree/internal/middleware"
)

func registerHealthRoutes(r *gin.Engine, handler *handlers.HealthHandler) {
	r.GET("/health", handler.Health)
	r.GET("/health/live", handler.Live)
	r.GET("/health/ready", handler.Ready)
}

func registerSessionRoutes(api *gin.RouterGroup, handler *handlers.SessionHandler) {
	api.POST("/session", handler.SignIn)
	api.GET("/session", handler.Current)
	api.DELETE("/session", handler.SignOut)
}

func registerNotificationRoutes(api *gin.RouterGroup, handler *handlers.NotificationHandler) {
	group := api.Group("/notifications")
	{
		group.GET("", handler.List)
		group.POST("", handler.Create)
		group.DELETE("", handler.Clear)
		group.GET("/stream", handler.Stream)
		group.POST("/read-all", handler.MarkAllRead)

		group.POST("/:id/read", handler.MarkRead)
		group.DELETE("/:id", handler.Remove)
	}
}

func registerPushRoutes(api *gin.RouterGroup, handler *handlers.PushHandler, limiter *middleware.RateLimiter) {
	group := api.Group("/push")
	{
		group.GET("/permission", handler.GetPermission)
		group.PUT("/permission", handler.ReportPermission)
		group.POST("/permission/request", handler.RequestPermission)
		group.POST("/devices", handler.EnableDevice)
		group.POST("/click", handler.Click)

		group.POST("/tokens", middleware.RateLimit(limiter), handler.RegisterToken)
		group.DELETE("/tokens/:token", handler.RevokeToken)
		group.POST("/deliver", middleware.RateLimit(limiter), handler.Deliver)
	}
}

func registerProfileRoutes(api *gin.RouterGroup, handler *handlers.ProfileHandler) {
	api.GET("/profile", handler.Get)
	api.PUT("/profile", handler.Update)
	api.GET("/progress", handler.Progress)
	api.POST("/milestones/check", handler.CheckMilestones)
}
