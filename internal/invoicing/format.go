package invoicing

import (
	"github.com/shopspring/decimal"
	"golang.org/x/text/language"
	"golang.org/x/text/message"
)

var inrPrinter = message.NewPrinter(language.MustParse("en-IN"))

// FormatINR renders an amount with Indian digit grouping, e.g. ₹12,34,567.80.
func FormatINR(d decimal.Decimal) string {
	return "₹" + inrPrinter.Sprintf("%.2f", d.Round(2).InexactFloat64())
}
