package models

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestFormatGBP(t *testing.T) {
	cases := []struct {
		amount int64
		want   string
	}{
		{0, "£0"},
		{5, "£5"},
		{999, "£999"},
		{1_000, "£1,000"},
		{999_999, "£999,999"},
		{1_000_000, "£1,000,000"},
		{148_000_000, "£148,000,000"},
		{1_234_567_890, "£1,234,567,890"},
		{-2_500_000, "-£2,500,000"},
	}

	for _, tc := range cases {
		assert.Equal(t, tc.want, FormatGBP(tc.amount), "amount %d", tc.amount)
	}
}

func TestMinBidFormatsToMillion(t *testing.T) {
	assert.Equal(t, "£1,000,000", FormatGBP(MinBid))
}
