package services

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestExpiryValid(t *testing.T) {
	now := time.Date(2026, time.May, 17, 12, 0, 0, 0, time.UTC)

	cases := []struct {
		month, year string
		want        bool
	}{
		{"05", "2026", true},
		{"5", "26", true},
		{"12", "2026", true},
		{"01", "2027", true},
		{"01", "27", true},
		{"04", "2026", false},
		{"12", "2025", false},
		{"12", "25", false},
		{"13", "2030", false},
		{"0", "2030", false},
		{"ab", "2030", false},
		{"05", "", false},
		{" 06 ", " 2026 ", true},
	}
	for _, tc := range cases {
		assert.Equal(t, tc.want, expiryValid(tc.month, tc.year, now), "%q/%q", tc.month, tc.year)
	}
}

func TestNewTransactionID(t *testing.T) {
	id := newTransactionID()
	assert.Regexp(t, `^TXN-[0-9A-F]{8}$`, id)
	assert.NotEqual(t, id, newTransactionID())
}
