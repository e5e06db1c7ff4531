package installer

func NewTelegramStep() Step {
	return &chainedSecretStep{
		first: &choiceStep{
			envKey: "ENABLE_TELEGRAM",
			title:  "Run the Telegram transport as well",
			options: []choiceOption{
				{value: "false", label: "No, web widget only"},
				{value: "true", label: "Yes, also answer on Telegram"},
			},
		},
		second: newTextStep("TELEGRAM_TOKEN", "Telegram bot token (from @BotFather)", "123456:ABC-...", false, true),
		skipSecond: func(state *SetupState) bool {
			return state.EnvVars["ENABLE_TELEGRAM"] != "true"
		},
	}
}
