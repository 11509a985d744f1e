package signal

import (
	"math"

	"golang.org/x/text/language"
	"golang.org/x/text/message"
)

var amountPrinter = message.NewPrinter(language.English)

// formatAmount renders an amount with thousands grouping for
// human-readable messages. Whole amounts drop the fraction.
func formatAmount(v float64) string {
	if v == math.Trunc(v) {
		return amountPrinter.Sprintf("%.0f", v)
	}
	return amountPrinter.Sprintf("%.2f", v)
}
