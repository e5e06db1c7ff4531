package core

// Intent is the coarse classification of an inbound message.
type Intent string

const (
	IntentOrderStatus Intent = "order_status"
	IntentReturns     Intent = "returns"
	IntentProductInfo Intent = "product_info"
	IntentFAQ         Intent = "faq"
	IntentSmalltalk   Intent = "smalltalk"
	IntentUnknown     Intent = "unknown"

	// IntentBlocked marks turns terminated by the moderation guardrail.
	IntentBlocked Intent = "blocked"
)
