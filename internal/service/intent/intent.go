// Package intent maps raw message text to a coarse intent tag with a
// case-insensitive keyword scan.
package intent

import (
	"strings"

	"github.com/pocketkart/pocketbot/internal/core"
)

// Keyword sets are tested in this exact order; the first hit wins. A message
// containing both "order" and "policy" is order_status because that set is
// checked first.
var (
	orderKeywords     = []string{"order", "track", "status", "shipment"}
	returnKeywords    = []string{"return", "refund", "exchange"}
	productKeywords   = []string{"product", "spec", "detail", "price", "availability"}
	faqKeywords       = []string{"policy", "shipping", "payment", "warranty"}
	smalltalkKeywords = []string{"hello", "hi", "thanks", "thank you", "who are you"}
)

// Detect is total: unmatched input yields IntentUnknown, never an error.
func Detect(text string) core.Intent {
	lower := strings.ToLower(text)

	switch {
	case containsAny(lower, orderKeywords):
		return core.IntentOrderStatus
	case containsAny(lower, returnKeywords):
		return core.IntentReturns
	case containsAny(lower, productKeywords):
		return core.IntentProductInfo
	case containsAny(lower, faqKeywords):
		return core.IntentFAQ
	case containsAny(lower, smalltalkKeywords):
		return core.IntentSmalltalk
	default:
		return core.IntentUnknown
	}
}

func containsAny(text string, keywords []string) bool {
	for _, kw := range keywords {
		if strings.Contains(text, kw) {
			return true
		}
	}
	return false
}
