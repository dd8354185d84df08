package handler

import (
	"context"

	"github.com/gin-gonic/gin"

	"github.com/pagenook/notegraph/internal/model"
	"github.com/pagenook/notegraph/internal/pkg/errcode"
	"github.com/pagenook/notegraph/internal/pkg/response"
	"github.com/pagenook/notegraph/internal/service"
)

// SubgraphRemover is the slice of the graph repo the purge route needs.
type SubgraphRemover interface {
	RemoveUserSubgraph(ctx context.Context, userID string) error
}

type RAGHandler struct {
	builds    *service.BuildService
	retrieval *service.RetrievalService
	graph     SubgraphRemover
}

func NewRAGHandler(builds *service.BuildService, retrieval *service.RetrievalService, graph SubgraphRemover) *RAGHandler {
	return &RAGHandler{builds: builds, retrieval: retrieval, graph: graph}
}

type buildRequest struct {
	UserID      string `json:"user_id"`
	ProviderKey string `json:"provider_key"`
}

type retrieveRequest struct {
	UserID         string `json:"user_id"`
	Query          string `json:"query"`
	TopK           int    `json:"top_k"`
	NeighborRadius int    `json:"neighbor_radius"`
	ProviderKey    string `json:"provider_key"`
}

// Build acknowledges the trigger with the status record as it stands after
// the attempt; indexing itself runs in the background.
func (h *RAGHandler) Build(c *gin.Context) {
	var req buildRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, errcode.ErrInvalid, "invalid request")
		return
	}
	record, err := h.builds.Trigger(c.Request.Context(), req.UserID, req.ProviderKey)
	if err != nil {
		handleError(c, err)
		return
	}
	response.Success(c, record)
}

func (h *RAGHandler) Status(c *gin.Context) {
	userID := c.Query("user_id")
	record, err := h.builds.Status(c.Request.Context(), userID)
	if err != nil {
		handleError(c, err)
		return
	}
	response.Success(c, record)
}

func (h *RAGHandler) Retrieve(c *gin.Context) {
	var req retrieveRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, errcode.ErrInvalid, "invalid request")
		return
	}
	windows, err := h.retrieval.Retrieve(c.Request.Context(),
		req.UserID, req.Query, req.TopK, req.NeighborRadius, req.ProviderKey)
	if err != nil {
		handleError(c, err)
		return
	}
	if windows == nil {
		windows = []model.ContextWindow{}
	}
	response.Success(c, gin.H{"windows": windows})
}

// Purge removes the user's whole subgraph. Account deletion calls this.
func (h *RAGHandler) Purge(c *gin.Context) {
	userID := c.Query("user_id")
	if userID == "" {
		response.Error(c, errcode.ErrInvalid, "invalid request")
		return
	}
	if err := h.graph.RemoveUserSubgraph(c.Request.Context(), userID); err != nil {
		handleError(c, err)
		return
	}
	response.Success(c, gin.H{"removed": true})
}
