package concierge

import (
	"context"
	"errors"
	"time"

	"github.com/rs/zerolog"

	"github.com/pocketkart/pocketbot/internal/core"
	"github.com/pocketkart/pocketbot/internal/service/intent"
	"github.com/pocketkart/pocketbot/pkg/log"
)

type StreamRequest struct {
	ChatRequest
	ClientID string `json:"clientId"`
}

// StreamResponse acknowledges a stream turn. The reply text arrives over the
// client's websocket, chunk by chunk; citations are known up front because
// retrieval runs before generation starts.
type StreamResponse struct {
	SessionID string        `json:"sessionId"`
	StreamID  string        `json:"streamId"`
	Intent    core.Intent   `json:"intent"`
	Sources   []core.Source `json:"sources,omitempty"`
}

// HandleChatStream runs one streamed turn. Everything up to and including
// context assembly happens before this returns; generation runs in the
// background and delivers through the dispatcher. The user message is
// persisted immediately, the bot message only on successful completion.
func (s *Service) HandleChatStream(ctx context.Context, req StreamRequest) (*StreamResponse, error) {
	if s.dispatcher == nil || s.streamer == nil {
		return nil, errors.New("streaming is not enabled")
	}

	streamID, err := s.dispatcher.OpenStream(req.ClientID)
	if err != nil {
		return nil, err
	}

	conv, err := s.memory.GetOrCreateConversation(ctx, req.SessionID, req.User, req.flagPatch())
	if err != nil {
		return nil, err
	}
	flags := effectiveFlags(s.switchboard.Flags(), conv.FeatureFlags)

	if v := s.guard.Check(ctx, req.Message); !v.Allowed {
		err := s.persistTurn(ctx, conv.SessionID, req.Message, core.Message{
			Sender: core.SenderBot,
			Text:   v.Reply,
			Intent: core.IntentBlocked,
			Type:   core.MessageTypeModeration,
		}, core.IntentBlocked)
		if err != nil {
			return nil, err
		}
		// The refusal still arrives over the stream so the client has one
		// code path for replies.
		s.dispatcher.SendChunk(streamID, v.Reply)
		s.dispatcher.SendCompletion(streamID, core.Message{
			Sender: core.SenderBot,
			Text:   v.Reply,
			Intent: core.IntentBlocked,
			Type:   core.MessageTypeModeration,
		})
		return &StreamResponse{
			SessionID: conv.SessionID,
			StreamID:  streamID,
			Intent:    core.IntentBlocked,
		}, nil
	}

	turnIntent := intent.Detect(req.Message)

	if turnIntent == core.IntentOrderStatus {
		reply, err := s.orderStatusReply(ctx, conv.User.ID)
		if err != nil {
			return nil, err
		}
		if err := s.persistTurn(ctx, conv.SessionID, req.Message, core.Message{
			Sender: core.SenderBot,
			Text:   reply,
			Intent: turnIntent,
		}, turnIntent); err != nil {
			return nil, err
		}
		s.dispatcher.SendChunk(streamID, reply)
		s.dispatcher.SendCompletion(streamID, core.Message{
			Sender: core.SenderBot,
			Text:   reply,
			Intent: turnIntent,
		})
		return &StreamResponse{
			SessionID: conv.SessionID,
			StreamID:  streamID,
			Intent:    turnIntent,
		}, nil
	}

	asm := s.assembleContext(ctx, conv, flags, turnIntent, req.Message)
	sources := asm.sources()

	userMsg := core.Message{
		Sender:    core.SenderUser,
		Text:      req.Message,
		Intent:    turnIntent,
		CreatedAt: time.Now().UTC(),
	}
	if err := s.memory.AppendMessages(ctx, conv.SessionID, []core.Message{userMsg}); err != nil {
		return nil, err
	}

	go s.runStream(log.FromCtx(ctx), conv, flags, asm, streamID, turnIntent, sources)

	return &StreamResponse{
		SessionID: conv.SessionID,
		StreamID:  streamID,
		Intent:    turnIntent,
		Sources:   sources,
	}, nil
}

// runStream generates in the background on a detached context so the HTTP
// request that started the turn can return immediately.
func (s *Service) runStream(logger *zerolog.Logger, conv *core.Conversation, flags core.FeatureFlags, asm assembled, streamID string, turnIntent core.Intent, sources []core.Source) {
	ctx, cancel := context.WithTimeout(logger.WithContext(context.Background()), s.turnTimeout)
	defer cancel()

	full, err := s.streamer.GenerateStream(ctx, asm.request, func(delta string) {
		s.dispatcher.SendChunk(streamID, delta)
	})
	if err != nil {
		logger.Error().Err(err).Str("stream_id", streamID).Msg("stream generation failed")
		s.dispatcher.SendError(streamID, "Something went wrong while answering. Please try again.")
		return
	}

	botMsg := core.Message{
		Sender:    core.SenderBot,
		Text:      full,
		Intent:    turnIntent,
		Sources:   sources,
		CreatedAt: time.Now().UTC(),
	}
	if err := s.memory.AppendMessages(ctx, conv.SessionID, []core.Message{botMsg}); err != nil {
		logger.Error().Err(err).Str("stream_id", streamID).Msg("persist streamed reply failed")
		s.dispatcher.SendError(streamID, "Something went wrong while answering. Please try again.")
		return
	}

	s.dispatcher.SendCompletion(streamID, botMsg)

	if flags.Memory && conv.User.ID != "" {
		refreshed, err := s.memory.GetConversation(ctx, conv.SessionID)
		if err == nil {
			err = s.memory.UpdateUserMemory(ctx, conv.User.ID, refreshed)
		}
		if err != nil {
			logger.Warn().Err(err).Msg("user memory update failed")
		}
	}
}
