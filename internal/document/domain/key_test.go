package domain

import (
	"testing"

	"github.com/bwmarrin/snowflake"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSanitizeName(t *testing.T) {
	cases := map[string]string{
		"Q3 Balance Sheet.PDF":   "q3-balance-sheet.pdf",
		"../../etc/passwd":       "passwd",
		`C:\Users\me\bank.xlsx`:  "bank.xlsx",
		"gst_returns_2023.ZIP":   "gst_returns_2023.zip",
		".env":                   "env",
	}
	for input, want := range cases {
		got, err := SanitizeName(input)
		require.NoError(t, err, input)
		assert.Equal(t, want, got, input)
	}

	for _, bad := range []string{"", "   ", "///", "!!!.pdf"} {
		_, err := SanitizeName(bad)
		assert.ErrorIs(t, err, ErrInvalidName, bad)
	}
}

func TestStorageKey(t *testing.T) {
	user := snowflake.ID(12)
	report := snowflake.ID(34)

	assert.Equal(t, "12/temp/a.pdf", StorageKey(user, nil, "a.pdf"))
	assert.Equal(t, "12/34/a.pdf", StorageKey(user, &report, "a.pdf"))
}
