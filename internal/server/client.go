package server

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	clientdomain "github.com/smallbiznis/quotedesk/internal/client/domain"
	"github.com/smallbiznis/quotedesk/internal/realtime"
)

func (s *Server) SearchClients(c *gin.Context) {
	limit, err := parseOptionalInt(c.Query("limit"))
	if err != nil {
		AbortWithError(c, newValidationError("limit", "invalid_limit", "invalid limit"))
		return
	}

	resp, err := s.clientSvc.Search(c.Request.Context(), strings.TrimSpace(c.Query("q")), derefInt(limit))
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": resp})
}

func (s *Server) UpsertClient(c *gin.Context) {
	var req clientdomain.UpsertClientRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}

	ctx := c.Request.Context()
	resp, err := s.clientSvc.Upsert(ctx, req)
	if err != nil {
		AbortWithError(c, err)
		return
	}
	s.notifier.Changed(ctx, realtime.TopicClients, realtime.KindUpdated, resp.ID.String())

	c.JSON(http.StatusOK, gin.H{"data": resp})
}
