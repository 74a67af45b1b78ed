package utils

import (
	"fmt"
	"time"

	"github.com/shopspring/decimal"
)

// TruncateToMinute resets the seconds component of a timestamp. Candle
// timestamps are aligned to the minute of their last folded tick.
func TruncateToMinute(t time.Time) time.Time {
	return t.Truncate(time.Minute)
}

// FormatCurrency renders a price for human-readable notifications.
func FormatCurrency(v decimal.Decimal) string {
	return "$" + v.StringFixed(2)
}

// FormatQuantity renders a share count for notifications.
func FormatQuantity(qty int64) string {
	return fmt.Sprintf("%d", qty)
}

// FormatTime renders a timestamp for notifications, always in UTC.
func FormatTime(t time.Time) string {
	return t.UTC().Format("2006-01-02 15:04 MST")
}
