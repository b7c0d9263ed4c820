package models

import "strconv"

// MinBid is the auction-wide minimum bid and the per-slot reserve, in pounds.
const MinBid int64 = 1_000_000

// FormatGBP renders an amount in pounds with thousands separators,
// e.g. 1000000 -> "£1,000,000". Error messages rely on this exact format.
func FormatGBP(amount int64) string {
	neg := amount < 0
	if neg {
		amount = -amount
	}

	s := strconv.FormatInt(amount, 10)
	out := make([]byte, 0, len(s)+len(s)/3)
	for i, c := range []byte(s) {
		if i > 0 && (len(s)-i)%3 == 0 {
			out = append(out, ',')
		}
		out = append(out, c)
	}

	if neg {
		return "-£" + string(out)
	}
	return "£" + string(out)
}
