package handler

import (
	"sharetrack/backend/internal/metrics"

	"github.com/gin-gonic/gin"
)

// Routes mounts every endpoint on r.
func (h *Handler) Routes(r gin.IRouter) {
	r.GET("/anonid", h.GetAnonID)
	r.GET("/ws", h.ServeWebSocket)
	r.GET("/healthz", h.Healthz)
	r.GET("/metrics", gin.WrapH(metrics.Handler()))

	api := r.Group("/api", h.RequireIdentity)

	share := api.Group("/share")
	share.POST("/requests", h.CreateShareRequest)
	share.GET("/requests", h.ListShareRequests)
	share.POST("/requests/:id/respond", h.RespondShareRequest)
	share.POST("/requests/:id/revoke", h.RevokeShareRequest)
	share.GET("/sessions", h.ListSessions)
	share.POST("/sessions/direct", h.StartDirectShare)
	share.POST("/sessions/:id/revoke", h.RevokeSession)

	chat := api.Group("/chat")
	chat.GET("/:channelId/messages", h.ListMessages)
	chat.POST("/:channelId/messages", h.PostMessage)
	chat.POST("/:channelId/read", h.MarkRead)
	chat.DELETE("/messages/:id", h.DeleteMessage)
}
