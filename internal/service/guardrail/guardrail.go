// Package guardrail screens inbound messages before any model call.
package guardrail

import (
	"context"

	"github.com/rs/zerolog"

	"github.com/pocketkart/pocketbot/internal/core"
	"github.com/pocketkart/pocketbot/pkg/log"
)

// SafeReply is the canned answer sent whenever a message is blocked.
const SafeReply = "I want to keep you safe, so I cannot help with that request. " +
	"I can connect you with a human teammate if you need further assistance."

// Guardrail wraps an optional moderation backend. With a nil moderator the
// check is a no-op: messages pass.
type Guardrail struct {
	moderator core.Moderator
}

func New(moderator core.Moderator) *Guardrail {
	return &Guardrail{moderator: moderator}
}

// Verdict is the outcome of screening one message.
type Verdict struct {
	Allowed bool
	// Reply is the canned refusal, set only when Allowed is false.
	Reply string
}

// Check screens text. The guardrail fails open: a moderation transport or
// backend error lets the message through rather than walling off the whole
// bot behind a flaky dependency.
func (g *Guardrail) Check(ctx context.Context, text string) Verdict {
	if g.moderator == nil {
		return Verdict{Allowed: true}
	}

	res, err := g.moderator.Moderate(ctx, text)
	if err != nil {
		log.FromCtx(ctx).Warn().Err(err).Msg("moderation check failed, allowing message")
		return Verdict{Allowed: true}
	}

	if res.Flagged {
		logFlagged(log.FromCtx(ctx), res)
		return Verdict{Allowed: false, Reply: SafeReply}
	}

	return Verdict{Allowed: true}
}

func logFlagged(logger *zerolog.Logger, res core.ModerationResult) {
	ev := logger.Info()
	cats := zerolog.Arr()
	for name, hit := range res.Categories {
		if hit {
			cats.Str(name)
		}
	}
	ev.Array("categories", cats).Msg("message blocked by moderation")
}
