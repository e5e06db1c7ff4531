// Package telegram runs the bot over Telegram as an alternative to the web
// widget. Each chat maps to its own session.
package telegram

import (
	"context"
	"fmt"
	"time"

	tele "gopkg.in/telebot.v3"

	"github.com/pocketkart/pocketbot/internal/config"
	"github.com/pocketkart/pocketbot/internal/core"
	"github.com/pocketkart/pocketbot/internal/service/concierge"
	"github.com/pocketkart/pocketbot/pkg/log"
)

const baseContextKey = "base_context"

type Bot struct {
	bot       *tele.Bot
	concierge *concierge.Service
	sender    *sender
}

func NewBot(ctx context.Context, cfg *config.TelegramConfig, svc *concierge.Service) (*Bot, error) {
	pref := tele.Settings{
		Token:  cfg.Token,
		Poller: &tele.LongPoller{Timeout: 10 * time.Second},
	}

	b, err := tele.NewBot(pref)
	if err != nil {
		return nil, fmt.Errorf("failed to create telegram bot: %w", err)
	}

	bot := &Bot{
		bot:       b,
		concierge: svc,
		sender:    newSender(b),
	}

	// Carry the signal context with its logger into every handler
	b.Use(func(next tele.HandlerFunc) tele.HandlerFunc {
		return func(c tele.Context) error {
			c.Set(baseContextKey, ctx)
			return next(c)
		}
	})

	b.Handle("/start", bot.handleStart)
	b.Handle("/forget", bot.handleForget)
	b.Handle(tele.OnText, bot.handleMessage)

	return bot, nil
}

func (b *Bot) Start(ctx context.Context) error {
	log.FromCtx(ctx).Info().Msg("starting telegram bot")
	b.bot.Start()
	return nil
}

func (b *Bot) Shutdown(ctx context.Context) error {
	b.bot.Stop()
	return nil
}

func (b *Bot) handleStart(c tele.Context) error {
	return c.Send("Hi! I am " + core.BotName + ". Ask me about orders, returns or products.")
}

// handleForget wipes the long-term memory for this chat's synthetic user.
func (b *Bot) handleForget(c tele.Context) error {
	ctx := c.Get(baseContextKey).(context.Context)
	if err := b.concierge.DeleteUserMemory(ctx, userID(c)); err != nil {
		log.FromCtx(ctx).Error().Err(err).Msg("failed to delete telegram user memory")
		return c.Send("Sorry, I could not forget right now.")
	}
	return c.Send("Done, I have forgotten what I knew about you.")
}

func (b *Bot) handleMessage(c tele.Context) error {
	ctx := c.Get(baseContextKey).(context.Context)
	logger := log.FromCtx(ctx)

	_ = c.Notify(tele.Typing)

	resp, err := b.concierge.HandleChat(ctx, concierge.ChatRequest{
		SessionID: fmt.Sprintf("telegram-%d", c.Chat().ID),
		Message:   c.Text(),
		User: &core.UserInfo{
			ID:   userID(c),
			Name: c.Sender().FirstName,
		},
	})
	if err != nil {
		logger.Error().Err(err).Msg("chat turn failed")
		return c.Send("Sorry, something went wrong. Please try again.")
	}

	reply := resp.Reply
	for _, src := range resp.Sources {
		reply += fmt.Sprintf("\n\n_source: %s_", src.Title)
	}
	return b.sender.sendMarkdown(ctx, c.Chat(), reply, false)
}

func userID(c tele.Context) string {
	return fmt.Sprintf("tg-%d", c.Sender().ID)
}
