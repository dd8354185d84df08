package handler

import (
	"time"

	"github.com/gin-gonic/gin"

	"github.com/pagenook/notegraph/internal/middleware"
)

type RouterDeps struct {
	RAG                *RAGHandler
	BuildTriggerWindow time.Duration
}

func RegisterRoutes(api *gin.RouterGroup, deps RouterDeps) {
	rag := api.Group("/rag")
	rag.POST("/build", middleware.RateLimit(deps.BuildTriggerWindow), deps.RAG.Build)
	rag.GET("/status", deps.RAG.Status)
	rag.POST("/retrieve", deps.RAG.Retrieve)
	rag.DELETE("/index", deps.RAG.Purge)
}
