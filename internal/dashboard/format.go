package dashboard

import (
	"strings"

	"github.com/shopspring/decimal"
)

// Currency is appended to every amount on the page.
const Currency = "VND"

// formatAmount renders d rounded to whole units with thousands separators,
// e.g. -1234567.8 -> "-1,234,568".
func formatAmount(d decimal.Decimal) string {
	s := d.Round(0).StringFixed(0)

	sign := ""
	if strings.HasPrefix(s, "-") {
		sign, s = "-", s[1:]
	}

	var b strings.Builder
	for i, r := range s {
		if i > 0 && (len(s)-i)%3 == 0 {
			b.WriteByte(',')
		}
		b.WriteRune(r)
	}
	return sign + b.String()
}
