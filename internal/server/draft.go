package server

import (
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	draftdomain "github.com/smallbiznis/quotedesk/internal/draft/domain"
)

func (s *Server) ListDrafts(c *gin.Context) {
	resp, err := s.draftSvc.List(c.Request.Context())
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": resp})
}

func (s *Server) RecoverDraft(c *gin.Context) {
	resp, err := s.draftSvc.Recover(c.Request.Context(), strings.TrimSpace(c.Param("id")))
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": resp})
}

// SaveDraft serves both POST /drafts and PUT /drafts/:id; the path id wins.
func (s *Server) SaveDraft(c *gin.Context) {
	var req draftdomain.SaveDraftRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}
	if id := strings.TrimSpace(c.Param("id")); id != "" {
		req.ID = id
	}

	resp, err := s.draftSvc.Save(c.Request.Context(), req)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": resp})
}

func (s *Server) DiscardDraft(c *gin.Context) {
	if err := s.draftSvc.Discard(c.Request.Context(), strings.TrimSpace(c.Param("id"))); err != nil {
		AbortWithError(c, err)
		return
	}

	c.Status(http.StatusNoContent)
}

func (s *Server) DiscardDrafts(c *gin.Context) {
	var req draftdomain.DiscardManyRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}

	if err := s.draftSvc.DiscardMany(c.Request.Context(), req.IDs); err != nil {
		AbortWithError(c, err)
		return
	}

	c.Status(http.StatusNoContent)
}

func (s *Server) PurgeDrafts(c *gin.Context) {
	var req draftdomain.PurgeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}

	age, err := time.ParseDuration(strings.TrimSpace(req.OlderThan))
	if err != nil {
		AbortWithError(c, draftdomain.ErrInvalidAge)
		return
	}

	purged, err := s.draftSvc.PurgeOlderThan(c.Request.Context(), age)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": gin.H{"purged": purged}})
}
