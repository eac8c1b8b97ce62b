package router

import (
	"github.com/gin-gonic/gin"

	"github.com/zeus0z/cloudhumans-takehome/internal/http/handler"
	"github.com/zeus0z/cloudhumans-takehome/internal/service"
)

func SetupRoutes(router *gin.Engine, conversations service.ConversationService) {
	router.GET("/health", func(c *gin.Context) {
		c.JSON(200, gin.H{"status": "ok"})
	})

	conversationHandler := handler.NewConversationHandler(conversations)
	ConversationRouter(router.Group("/conversations"), conversationHandler)
}
