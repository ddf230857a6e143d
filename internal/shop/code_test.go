package shop

import (
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewOrderCodeFormat(t *testing.T) {
	now := time.Date(2026, 8, 31, 15, 30, 0, 0, time.UTC)
	code := NewOrderCode(42, now)

	require.True(t, strings.HasPrefix(code, "P20260831153000-42-"), "code = %s", code)
	parts := strings.Split(code, "-")
	require.Len(t, parts, 3)
	assert.Len(t, parts[2], 8)
}

func TestNewOrderCodeUsesUTC(t *testing.T) {
	loc := time.FixedZone("UTC+3", 3*60*60)
	now := time.Date(2026, 8, 31, 18, 30, 0, 0, loc)

	code := NewOrderCode(7, now)
	assert.True(t, strings.HasPrefix(code, "P20260831153000-7-"), "code = %s", code)
}

func TestNewOrderCodeUniqueUnderRapidCalls(t *testing.T) {
	// Same customer, same second: the suffix must keep codes apart.
	now := time.Now()
	seen := map[string]bool{}
	for i := 0; i < 1000; i++ {
		code := NewOrderCode(42, now)
		require.False(t, seen[code], "duplicate code %s", code)
		seen[code] = true
	}
}

func TestNewOrderCodeTimeOrdering(t *testing.T) {
	early := NewOrderCode(42, time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC))
	late := NewOrderCode(42, time.Date(2026, 1, 1, 0, 0, 1, 0, time.UTC))

	// the timestamp component sorts lexicographically
	assert.Less(t, early[:15], late[:15])
}
