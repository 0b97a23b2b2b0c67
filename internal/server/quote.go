package server

import (
	"fmt"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/smallbiznis/quotedesk/internal/providers/pdf"
	quotedomain "github.com/smallbiznis/quotedesk/internal/quote/domain"
	"github.com/smallbiznis/quotedesk/internal/realtime"
)

const (
	contentTypePDF  = "application/pdf"
	contentTypeXLSX = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"
)

func (s *Server) ListQuotes(c *gin.Context) {
	var query quotedomain.ListQuoteRequest
	if err := c.ShouldBindQuery(&query); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}
	query.Query = strings.TrimSpace(query.Query)
	query.ClientID = strings.TrimSpace(query.ClientID)

	resp, err := s.quoteSvc.List(c.Request.Context(), query)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": resp.Quotes, "page_info": resp.PageInfo})
}

func (s *Server) GetQuoteByID(c *gin.Context) {
	resp, err := s.quoteSvc.GetByID(c.Request.Context(), strings.TrimSpace(c.Param("id")))
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": resp})
}

func (s *Server) CreateQuote(c *gin.Context) {
	var req quotedomain.SaveQuoteRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}

	resp, err := s.quoteSvc.Create(c.Request.Context(), req)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusCreated, gin.H{"data": resp})
}

func (s *Server) UpdateQuote(c *gin.Context) {
	var req quotedomain.SaveQuoteRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}

	resp, err := s.quoteSvc.Update(c.Request.Context(), strings.TrimSpace(c.Param("id")), req)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": resp})
}

func (s *Server) RenumberQuote(c *gin.Context) {
	var req quotedomain.RenumberRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}

	resp, err := s.quoteSvc.Renumber(c.Request.Context(), strings.TrimSpace(c.Param("id")), req)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": resp})
}

func (s *Server) CloneQuote(c *gin.Context) {
	resp, err := s.quoteSvc.Clone(c.Request.Context(), strings.TrimSpace(c.Param("id")))
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusCreated, gin.H{"data": resp})
}

// DeleteQuote answers with the removed quote so the client can offer undo through
// POST /api/quotes/restore.
func (s *Server) DeleteQuote(c *gin.Context) {
	deleted, err := s.quoteSvc.Delete(c.Request.Context(), strings.TrimSpace(c.Param("id")))
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": deleted})
}

func (s *Server) RestoreQuote(c *gin.Context) {
	var req quotedomain.DeletedQuote
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}

	resp, err := s.quoteSvc.Restore(c.Request.Context(), req)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": resp})
}

func (s *Server) NextQuoteNumber(c *gin.Context) {
	year, err := parseOptionalInt(c.Query("year"))
	if err != nil {
		AbortWithError(c, newValidationError("year", "invalid_year", "invalid year"))
		return
	}
	clone, err := parseOptionalBool(c.Query("clone"))
	if err != nil {
		AbortWithError(c, newValidationError("clone", "invalid_clone", "invalid clone"))
		return
	}

	resp, err := s.quoteSvc.NextNumber(c.Request.Context(), derefInt(year), derefBool(clone))
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": resp})
}

func (s *Server) RenderQuotePDF(c *gin.Context) {
	ctx := c.Request.Context()
	q, err := s.quoteSvc.GetByID(ctx, strings.TrimSpace(c.Param("id")))
	if err != nil {
		AbortWithError(c, err)
		return
	}
	company, _, err := s.companySvc.Get(ctx)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	rendered, err := s.pdf.RenderQuote(ctx, pdf.QuoteDocument{Company: company, Quote: q})
	if err != nil {
		s.notifier.Notify(ctx, realtime.LevelError, "PDF export failed")
		AbortWithError(c, err)
		return
	}

	c.Header("Content-Disposition", attachment(rendered.Filename, c.Query("download") != "0"))
	c.Data(http.StatusOK, contentTypePDF, rendered.Content)
}

func (s *Server) ExportQuotes(c *gin.Context) {
	var query quotedomain.ListQuoteRequest
	if err := c.ShouldBindQuery(&query); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}

	ctx := c.Request.Context()
	quotes, err := s.quoteSvc.ListAll(ctx, query)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	filename, content, err := s.xlsx.ExportQuotes(ctx, quotes)
	if err != nil {
		s.notifier.Notify(ctx, realtime.LevelError, "Excel export failed")
		AbortWithError(c, err)
		return
	}
	s.notifier.Notify(ctx, realtime.LevelSuccess, fmt.Sprintf("Exported %d quotes", len(quotes)))

	c.Header("Content-Disposition", attachment(filename, true))
	c.Data(http.StatusOK, contentTypeXLSX, content)
}

func attachment(filename string, download bool) string {
	disposition := "inline"
	if download {
		disposition = "attachment"
	}
	return fmt.Sprintf("%s; filename=%q", disposition, filename)
}
