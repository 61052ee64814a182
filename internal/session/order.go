package session

import (
	"regexp"
	"strings"
)

// orderPattern recognizes labeled order codes inside scan text, e.g.
// "order_code:AB-1" or "MA=12345". Longer labels come first so "order"
// never shadows "order_code".
var orderPattern = regexp.MustCompile(`(?i)(?:order_code|order|code|ma|don)\s*[:=]\s*(\S+)`)

// ParseOrderCode extracts the order code from scan text. Labeled codes win;
// otherwise the whole trimmed text is the code.
func ParseOrderCode(text string) string {
	trimmed := strings.TrimSpace(text)
	if match := orderPattern.FindStringSubmatch(trimmed); match != nil {
		return match[1]
	}
	return trimmed
}
