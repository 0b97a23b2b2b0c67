package server

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	draftdomain "github.com/smallbiznis/quotedesk/internal/draft/domain"
	quotedomain "github.com/smallbiznis/quotedesk/internal/quote/domain"
)

type openEditorSessionRequest struct {
	DraftID         string                `json:"draft_id"`
	OriginalQuoteID string                `json:"original_quote_id"`
	Operation       draftdomain.Operation `json:"operation"`
}

type toggleAutosaveRequest struct {
	Enabled *bool `json:"enabled"`
}

type editorSessionView struct {
	SessionID string                   `json:"session_id"`
	DraftID   string                   `json:"draft_id,omitempty"`
	State     draftdomain.SessionState `json:"state"`
}

func sessionView(key string, sess draftdomain.Session) editorSessionView {
	view := editorSessionView{SessionID: key, State: sess.State()}
	if id := sess.DraftID(); id != 0 {
		view.DraftID = id.String()
	}
	return view
}

// OpenEditorSession starts server side auto-save for one open editor.
func (s *Server) OpenEditorSession(c *gin.Context) {
	var req openEditorSessionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}

	draftID, err := parseOptionalSnowflakeID(req.DraftID)
	if err != nil {
		AbortWithError(c, draftdomain.ErrInvalidID)
		return
	}
	originalID, err := parseOptionalSnowflakeID(req.OriginalQuoteID)
	if err != nil {
		AbortWithError(c, quotedomain.ErrInvalidID)
		return
	}
	op := req.Operation
	if op == "" {
		op = draftdomain.OperationCreate
	}
	if !op.Valid() {
		AbortWithError(c, draftdomain.ErrInvalidOperation)
		return
	}

	opts := draftdomain.SessionOptions{OriginalQuoteID: originalID, Operation: op}
	if draftID != nil {
		if _, err := s.draftSvc.Recover(c.Request.Context(), draftID.String()); err != nil {
			AbortWithError(c, err)
			return
		}
		opts.DraftID = *draftID
	}

	key, sess := s.draftSvc.OpenSession(opts)
	c.JSON(http.StatusCreated, gin.H{"data": sessionView(key, sess)})
}

func (s *Server) ScheduleEditorSnapshot(c *gin.Context) {
	key, sess, ok := s.lookupSession(c)
	if !ok {
		return
	}

	var snapshot quotedomain.QuoteInput
	if err := c.ShouldBindJSON(&snapshot); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}

	sess.Schedule(snapshot)
	c.JSON(http.StatusAccepted, gin.H{"data": sessionView(key, sess)})
}

func (s *Server) ToggleEditorAutosave(c *gin.Context) {
	key, sess, ok := s.lookupSession(c)
	if !ok {
		return
	}

	var req toggleAutosaveRequest
	if err := c.ShouldBindJSON(&req); err != nil || req.Enabled == nil {
		AbortWithError(c, newValidationError("enabled", "invalid_enabled", "enabled is required"))
		return
	}

	sess.SetEnabled(*req.Enabled)
	c.JSON(http.StatusOK, gin.H{"data": sessionView(key, sess)})
}

func (s *Server) FlushEditorSession(c *gin.Context) {
	key, sess, ok := s.lookupSession(c)
	if !ok {
		return
	}

	if err := sess.Flush(c.Request.Context()); err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": sessionView(key, sess)})
}

// CloseEditorSession stops the session without touching its draft, which stays
// recoverable.
func (s *Server) CloseEditorSession(c *gin.Context) {
	key := strings.TrimSpace(c.Param("sid"))
	if _, ok := s.draftSvc.LookupSession(key); !ok {
		AbortWithError(c, draftdomain.ErrSessionNotFound)
		return
	}

	s.draftSvc.CloseSession(key)
	c.Status(http.StatusNoContent)
}

func (s *Server) lookupSession(c *gin.Context) (string, draftdomain.Session, bool) {
	key := strings.TrimSpace(c.Param("sid"))
	sess, ok := s.draftSvc.LookupSession(key)
	if !ok {
		AbortWithError(c, draftdomain.ErrSessionNotFound)
		return "", nil, false
	}
	return key, sess, true
}
