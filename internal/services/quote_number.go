package services

import (
	"fmt"
	"time"
)

const quoteNumberPrefix = "QT"

// FormatQuoteNumber renders QT{YYYY}{MM}{seq:04d}. Sequences past 9999 simply widen.
func FormatQuoteNumber(now time.Time, seq int64) string {
	return fmt.Sprintf("%s%04d%02d%04d", quoteNumberPrefix, now.Year(), int(now.Month()), seq)
}

// NextQuoteNumber formats the number following existingCount persisted quotes.
func NextQuoteNumber(existingCount int64, now time.Time) string {
	return FormatQuoteNumber(now, existingCount+1)
}
