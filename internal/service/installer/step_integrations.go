package installer

// Web search and order lookup are optional collaborators; empty answers
// leave them unconfigured and the bot degrades gracefully.

func NewWebSearchStep() Step {
	s := newTextStep("WEB_SEARCH_API_URL", "Web search endpoint URL", "https://api.search.example/v1/search", true, false)
	return &chainedSecretStep{
		first:  s,
		second: newTextStep("WEB_SEARCH_API_KEY", "Web search API key", "", true, true),
		// No endpoint means no key prompt either
		skipSecond: func(state *SetupState) bool {
			return state.EnvVars["WEB_SEARCH_API_URL"] == ""
		},
	}
}

func NewOrdersStep() Step {
	return newTextStep("ORDERS_API_URL", "Storefront orders API URL", "https://shop.example/api/orders", true, false)
}
