// Package concierge orchestrates a chat turn end to end: guardrail, intent,
// context assembly, generation and persistence.
package concierge

import (
	"context"
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"github.com/pocketkart/pocketbot/internal/core"
	"github.com/pocketkart/pocketbot/internal/providers/pdf"
	"github.com/pocketkart/pocketbot/internal/service/features"
	"github.com/pocketkart/pocketbot/internal/service/guardrail"
	"github.com/pocketkart/pocketbot/internal/service/intent"
	"github.com/pocketkart/pocketbot/internal/service/memory"
	"github.com/pocketkart/pocketbot/internal/service/rag"
	"github.com/pocketkart/pocketbot/pkg/log"
)

// listCap bounds the admin listings so a busy store cannot dump its whole
// history through one call.
const listCap = 100

// Dispatcher delivers stream events to a connected client. Delivery to a
// transport that went away is a silent no-op.
type Dispatcher interface {
	// OpenStream reserves a single-use stream id for the client, or returns
	// core.ErrClientNotRegistered.
	OpenStream(clientID string) (string, error)
	SendChunk(streamID, delta string)
	SendCompletion(streamID string, msg core.Message)
	SendError(streamID, message string)
}

type Service struct {
	memory      *memory.Service
	rag         *rag.Service
	guard       *guardrail.Guardrail
	switchboard *features.Switchboard
	generator   core.Generator
	streamer    core.Streamer
	searcher    core.WebSearcher
	orders      core.OrderLookup
	escalations core.EscalationRepository
	dispatcher  Dispatcher
	turnTimeout time.Duration
}

// Options carries the optional collaborators. Nil searcher disables web
// search, nil orders makes order_status turns ask for an order number, nil
// dispatcher disables streaming.
type Options struct {
	Searcher    core.WebSearcher
	Orders      core.OrderLookup
	Dispatcher  Dispatcher
	TurnTimeout time.Duration
}

func NewService(
	mem *memory.Service,
	ragSvc *rag.Service,
	guard *guardrail.Guardrail,
	switchboard *features.Switchboard,
	generator core.Generator,
	streamer core.Streamer,
	escalations core.EscalationRepository,
	opts Options,
) *Service {
	if opts.TurnTimeout <= 0 {
		opts.TurnTimeout = 90 * time.Second
	}
	return &Service{
		memory:      mem,
		rag:         ragSvc,
		guard:       guard,
		switchboard: switchboard,
		generator:   generator,
		streamer:    streamer,
		searcher:    opts.Searcher,
		orders:      opts.Orders,
		escalations: escalations,
		dispatcher:  opts.Dispatcher,
		turnTimeout: opts.TurnTimeout,
	}
}

type ChatRequest struct {
	SessionID string         `json:"sessionId"`
	Message   string         `json:"message"`
	User      *core.UserInfo `json:"user,omitempty"`
	Flags     core.FlagPatch `json:"featureFlags,omitempty"`

	// Flat aliases sent by the chat widget.
	EnableRAG       *bool `json:"enableRag,omitempty"`
	EnableWebSearch *bool `json:"enableWebSearch,omitempty"`
	EnableMemory    *bool `json:"enableMemory,omitempty"`
}

// flagPatch folds the flat enable* aliases into the structured patch. A flat
// field wins when both forms are present.
func (r ChatRequest) flagPatch() core.FlagPatch {
	p := r.Flags
	if r.EnableRAG != nil {
		p.RAG = r.EnableRAG
	}
	if r.EnableWebSearch != nil {
		p.WebSearch = r.EnableWebSearch
	}
	if r.EnableMemory != nil {
		p.Memory = r.EnableMemory
	}
	return p
}

type ChatResponse struct {
	SessionID string        `json:"sessionId"`
	Reply     string        `json:"reply"`
	Intent    core.Intent   `json:"intent"`
	Sources   []core.Source `json:"sources,omitempty"`
}

// HandleChat runs one synchronous turn. Both the shopper's message and the
// reply are persisted together; on a generation failure nothing is stored.
func (s *Service) HandleChat(ctx context.Context, req ChatRequest) (*ChatResponse, error) {
	ctx, cancel := context.WithTimeout(ctx, s.turnTimeout)
	defer cancel()

	conv, err := s.memory.GetOrCreateConversation(ctx, req.SessionID, req.User, req.flagPatch())
	if err != nil {
		return nil, err
	}
	flags := effectiveFlags(s.switchboard.Flags(), conv.FeatureFlags)

	if v := s.guard.Check(ctx, req.Message); !v.Allowed {
		resp := &ChatResponse{
			SessionID: conv.SessionID,
			Reply:     v.Reply,
			Intent:    core.IntentBlocked,
		}
		err := s.persistTurn(ctx, conv.SessionID, req.Message, core.Message{
			Sender: core.SenderBot,
			Text:   v.Reply,
			Intent: core.IntentBlocked,
			Type:   core.MessageTypeModeration,
		}, core.IntentBlocked)
		return resp, err
	}

	turnIntent := intent.Detect(req.Message)
	log.FromCtx(ctx).Debug().
		Str("session_id", conv.SessionID).
		Str("intent", string(turnIntent)).
		Msg("chat turn")

	var reply string
	var sources []core.Source

	if turnIntent == core.IntentOrderStatus {
		reply, err = s.orderStatusReply(ctx, conv.User.ID)
		if err != nil {
			return nil, err
		}
	} else {
		asm := s.assembleContext(ctx, conv, flags, turnIntent, req.Message)
		reply, err = s.generator.Generate(ctx, asm.request)
		if err != nil {
			return nil, fmt.Errorf("generate reply: %w", err)
		}
		sources = asm.sources()
	}

	botMsg := core.Message{
		Sender:  core.SenderBot,
		Text:    reply,
		Intent:  turnIntent,
		Sources: sources,
	}
	if err := s.persistTurn(ctx, conv.SessionID, req.Message, botMsg, turnIntent); err != nil {
		return nil, err
	}

	if flags.Memory && conv.User.ID != "" {
		refreshed, err := s.memory.GetConversation(ctx, conv.SessionID)
		if err == nil {
			err = s.memory.UpdateUserMemory(ctx, conv.User.ID, refreshed)
		}
		if err != nil {
			log.FromCtx(ctx).Warn().Err(err).Msg("user memory update failed")
		}
	}

	return &ChatResponse{
		SessionID: conv.SessionID,
		Reply:     reply,
		Intent:    turnIntent,
		Sources:   sources,
	}, nil
}

// persistTurn stores the user message and the bot reply as one append so the
// window trim sees both.
func (s *Service) persistTurn(ctx context.Context, sessionID, userText string, botMsg core.Message, turnIntent core.Intent) error {
	now := time.Now().UTC()
	userMsg := core.Message{
		Sender:    core.SenderUser,
		Text:      userText,
		Intent:    turnIntent,
		CreatedAt: now,
	}
	botMsg.CreatedAt = now
	return s.memory.AppendMessages(ctx, sessionID, []core.Message{userMsg, botMsg})
}

// effectiveFlags gates each conversation flag behind its global switch.
func effectiveFlags(global, conv core.FeatureFlags) core.FeatureFlags {
	return core.FeatureFlags{
		RAG:       global.RAG && conv.RAG,
		WebSearch: global.WebSearch && conv.WebSearch,
		Memory:    global.Memory && conv.Memory,
	}
}

// Escalate freezes the conversation and files a human-handoff request. The
// insert and the status flip happen in one transaction.
func (s *Service) Escalate(ctx context.Context, sessionID, reason string, meta core.Metadata) (*core.Escalation, error) {
	conv, err := s.memory.GetConversation(ctx, sessionID)
	if err != nil {
		return nil, err
	}

	esc, err := s.escalations.Create(ctx, core.Escalation{
		SessionID:            sessionID,
		Reason:               reason,
		Status:               core.EscalationPending,
		Metadata:             meta,
		ConversationSnapshot: conv,
	})
	if err != nil {
		return nil, err
	}

	log.FromCtx(ctx).Info().
		Str("session_id", sessionID).
		Int64("escalation_id", esc.ID).
		Msg("conversation escalated")
	return &esc, nil
}

// ProcessUpload ingests an uploaded knowledge-base file and returns the
// document id its vectors were stored under, plus the chunk count. Only PDFs
// are accepted; everything else returns core.ErrUnsupportedFileType before
// any bytes are parsed.
func (s *Service) ProcessUpload(ctx context.Context, filename string, data []byte) (string, int, error) {
	if strings.ToLower(filepath.Ext(filename)) != ".pdf" {
		return "", 0, core.ErrUnsupportedFileType
	}

	chunks, err := pdf.Extract(data)
	if err != nil {
		return "", 0, fmt.Errorf("extract %q: %w", filename, err)
	}

	title := strings.TrimSuffix(filepath.Base(filename), filepath.Ext(filename))
	docID := slugify(title)
	n, err := s.rag.Ingest(ctx, rag.Document{
		ID:     docID,
		Title:  title,
		Chunks: chunks,
	})
	if err != nil {
		return "", 0, err
	}
	return docID, n, nil
}

// SearchKnowledgeBase is the direct retrieval endpoint, bypassing the chat
// pipeline.
func (s *Service) SearchKnowledgeBase(ctx context.Context, query string, topK int) ([]core.Snippet, error) {
	return s.rag.Query(ctx, query, topK)
}

func (s *Service) GetConversation(ctx context.Context, sessionID string) (*core.Conversation, error) {
	return s.memory.GetConversation(ctx, sessionID)
}

// DeleteUserMemory wipes the shopper's stored profile and its vector.
func (s *Service) DeleteUserMemory(ctx context.Context, userID string) error {
	return s.memory.DeleteUserMemory(ctx, userID)
}

func (s *Service) ListConversations(ctx context.Context, limit int) ([]core.Conversation, error) {
	return s.memory.ListConversations(ctx, capLimit(limit))
}

func (s *Service) ListEscalations(ctx context.Context, limit int) ([]core.Escalation, error) {
	return s.escalations.List(ctx, capLimit(limit))
}

func capLimit(limit int) int {
	if limit <= 0 || limit > listCap {
		return listCap
	}
	return limit
}

func slugify(s string) string {
	var b strings.Builder
	for _, r := range strings.ToLower(s) {
		switch {
		case r >= 'a' && r <= 'z', r >= '0' && r <= '9':
			b.WriteRune(r)
		case r == ' ', r == '-', r == '_':
			b.WriteByte('-')
		}
	}
	return strings.Trim(b.String(), "-")
}
