package router

import (
	"github.com/gin-gonic/gin"

	"github.com/zeus0z/cloudhumans-takehome/internal/http/handler"
)

func ConversationRouter(group *gin.RouterGroup, h *handler.ConversationHandler) {
	group.POST("/completions", h.Complete)
}
