package server

import (
	"errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/smallbiznis/quotedesk/internal/numbering"
	quotedomain "github.com/smallbiznis/quotedesk/internal/quote/domain"
	"github.com/stretchr/testify/assert"
)

func TestMapError(t *testing.T) {
	cases := []struct {
		name   string
		err    error
		status int
		typ    string
	}{
		{"duplicate", &numbering.DuplicateError{Number: 3, Year: 2025}, http.StatusConflict, "conflict"},
		{"invalid number", numbering.ErrInvalidNumber, http.StatusBadRequest, "validation_error"},
		{"wrapped not found", fmt.Errorf("load: %w", quotedomain.ErrNotFound), http.StatusNotFound, "not_found"},
		{"persistence", fmt.Errorf("%w: disk full", quotedomain.ErrPersistence), http.StatusInternalServerError, "internal_error"},
		{"unknown", errors.New("boom"), http.StatusInternalServerError, "internal_error"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			status, payload := mapError(tc.err)
			assert.Equal(t, tc.status, status)
			assert.Equal(t, tc.typ, payload.Type)
		})
	}
}

func TestClassifyErrorForLog(t *testing.T) {
	typ, code := classifyErrorForLog(numbering.ErrInvalidYear)
	assert.Equal(t, "validation_error", typ)
	assert.Equal(t, "invalid_year", code)

	typ, code = classifyErrorForLog(quotedomain.ErrNotFound)
	assert.Equal(t, "not_found", typ)
	assert.Equal(t, "not_found", code)
}
