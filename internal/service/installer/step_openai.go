package installer

func NewOpenAIKeyStep() Step {
	return newTextStep("OPENAI_API_KEY", "Enter your OpenAI API key", "sk-...", false, true)
}

func NewChatModelStep() Step {
	return &choiceStep{
		envKey: "OPENAI_CHAT_MODEL",
		title:  "Pick the chat model",
		options: []choiceOption{
			{value: "gpt-4o-mini", label: "gpt-4o-mini (fast, cheap)"},
			{value: "gpt-4o", label: "gpt-4o (best quality)"},
			{value: "gpt-4.1-mini", label: "gpt-4.1-mini"},
		},
	}
}
