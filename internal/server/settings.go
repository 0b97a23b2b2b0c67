package server

import (
	"net/http"

	"github.com/gin-gonic/gin"
	companydomain "github.com/smallbiznis/quotedesk/internal/company/domain"
	"github.com/smallbiznis/quotedesk/internal/realtime"
)

func (s *Server) GetSettings(c *gin.Context) {
	settings, found, err := s.companySvc.Get(c.Request.Context())
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": settings, "configured": found})
}

func (s *Server) SaveSettings(c *gin.Context) {
	var req companydomain.SaveSettingsRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}

	ctx := c.Request.Context()
	settings, err := s.companySvc.Save(ctx, req)
	if err != nil {
		AbortWithError(c, err)
		return
	}
	s.notifier.Changed(ctx, realtime.TopicSettings, realtime.KindUpdated, "")
	s.notifier.Notify(ctx, realtime.LevelSuccess, "Company settings saved")

	c.JSON(http.StatusOK, gin.H{"data": settings, "configured": true})
}
