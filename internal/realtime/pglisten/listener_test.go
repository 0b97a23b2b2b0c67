package pglisten

import (
	"testing"
	"time"

	"github.com/smallbiznis/quotedesk/internal/realtime"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDecode(t *testing.T) {
	at := time.Date(2025, 2, 1, 0, 0, 0, 0, time.UTC)

	tests := []struct {
		name    string
		raw     string
		entity  string
		kind    string
		wantErr bool
	}{
		{name: "quote insert", raw: `{"table":"quotes","op":"INSERT","id":"7"}`, entity: realtime.TopicQuotes, kind: realtime.KindCreated},
		{name: "line update maps to quotes", raw: `{"table":"quote_lines","op":"update","id":"8"}`, entity: realtime.TopicQuotes, kind: realtime.KindUpdated},
		{name: "draft delete", raw: `{"table":"quote_drafts","op":"DELETE","id":"9"}`, entity: realtime.TopicDrafts, kind: realtime.KindDeleted},
		{name: "settings", raw: `{"table":"company_settings","op":"UPDATE","id":"1"}`, entity: realtime.TopicSettings, kind: realtime.KindUpdated},
		{name: "unknown table", raw: `{"table":"invoices","op":"INSERT"}`, wantErr: true},
		{name: "unknown op", raw: `{"table":"quotes","op":"TRUNCATE"}`, wantErr: true},
		{name: "garbage", raw: `not json`, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ev, err := Decode(tt.raw, at)
			if tt.wantErr {
				assert.ErrorIs(t, err, ErrInvalidPayload)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.entity, ev.Entity)
			assert.Equal(t, tt.kind, ev.Kind)
			assert.Equal(t, realtime.SourceDB, ev.Source)
			assert.Equal(t, at, ev.At)
		})
	}
}
