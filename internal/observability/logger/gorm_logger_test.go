package logger

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestDescribeSQL(t *testing.T) {
	cases := []struct {
		sql   string
		op    string
		table string
	}{
		{`SELECT * FROM "quotes" WHERE id = $1`, "SELECT", "quotes"},
		{`INSERT INTO quote_lines (id) VALUES (?)`, "INSERT", "quote_lines"},
		{`UPDATE "quote_drafts" SET total = ?`, "UPDATE", "quote_drafts"},
		{`DELETE FROM clients WHERE id = ?`, "DELETE", "clients"},
		{``, "UNKNOWN", ""},
	}
	for _, tc := range cases {
		op, table := describeSQL(tc.sql)
		assert.Equal(t, tc.op, op, tc.sql)
		assert.Equal(t, tc.table, table, tc.sql)
	}
}
