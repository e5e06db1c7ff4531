package core

import "time"

const (
	BotName = "PocketBot"

	// ShortTermWindow caps a conversation's stored message history. Older
	// messages are evicted FIFO on every append.
	ShortTermWindow = 10
)

// Message senders as stored in a conversation.
const (
	SenderUser   = "user"
	SenderBot    = "bot"
	SenderSystem = "system"
)

// Roles as sent to the generation backend.
const (
	RoleSystem    = "system"
	RoleUser      = "user"
	RoleAssistant = "assistant"
)

// Message types. An empty Type means a regular chat message.
const (
	MessageTypeMessage    = "message"
	MessageTypeModeration = "moderation"
)

// Conversation statuses.
const (
	StatusOpen      = "open"
	StatusEscalated = "escalated"
	StatusClosed    = "closed"
)

// Escalation statuses.
const (
	EscalationPending    = "pending"
	EscalationInProgress = "in_progress"
	EscalationResolved   = "resolved"
)

// Metadata is an open key-value bag attached to vector records, messages and
// escalations. Retrieval metadata is expected to carry at least "title",
// "url", "chunk" and "type" so a hit can be rendered as a citation.
type Metadata map[string]any

// Str returns the string under key, or "" when absent or not a string.
func (m Metadata) Str(key string) string {
	if m == nil {
		return ""
	}
	s, _ := m[key].(string)
	return s
}

// Source is a citation attached to a bot message. Immutable once attached.
type Source struct {
	Title string  `json:"title"`
	URL   string  `json:"url,omitempty"`
	Score float64 `json:"score"`
}

// Message is one turn inside a conversation.
type Message struct {
	Sender    string    `json:"sender"`
	Text      string    `json:"text"`
	Type      string    `json:"type,omitempty"`
	Intent    Intent    `json:"intent,omitempty"`
	Sources   []Source  `json:"sources,omitempty"`
	Meta      Metadata  `json:"meta,omitempty"`
	CreatedAt time.Time `json:"createdAt"`
}

// UserInfo identifies the (possibly anonymous) shopper behind a session.
type UserInfo struct {
	ID    string `json:"id,omitempty"`
	Email string `json:"email,omitempty"`
	Name  string `json:"name,omitempty"`
}

// FeatureFlags gate the optional pipeline stages of a turn.
type FeatureFlags struct {
	RAG       bool `json:"rag"`
	WebSearch bool `json:"webSearch"`
	Memory    bool `json:"memory"`
}

func DefaultFeatureFlags() FeatureFlags {
	return FeatureFlags{RAG: true, WebSearch: true, Memory: true}
}

// FlagPatch is a partial flag update; nil fields leave the stored value
// untouched.
type FlagPatch struct {
	RAG       *bool `json:"rag,omitempty"`
	WebSearch *bool `json:"webSearch,omitempty"`
	Memory    *bool `json:"memory,omitempty"`
}

// Apply overlays the patch onto flags and returns the result.
func (p FlagPatch) Apply(flags FeatureFlags) FeatureFlags {
	if p.RAG != nil {
		flags.RAG = *p.RAG
	}
	if p.WebSearch != nil {
		flags.WebSearch = *p.WebSearch
	}
	if p.Memory != nil {
		flags.Memory = *p.Memory
	}
	return flags
}

// Conversation is the server-side record of one chat session.
type Conversation struct {
	SessionID        string       `json:"sessionId"`
	User             UserInfo     `json:"user"`
	FeatureFlags     FeatureFlags `json:"featureFlags"`
	Messages         []Message    `json:"messages"`
	Status           string       `json:"status"`
	LastInteractedAt time.Time    `json:"lastInteractedAt"`
	CreatedAt        time.Time    `json:"createdAt"`
	UpdatedAt        time.Time    `json:"updatedAt"`
}

// UserMemory holds the latest distilled profile of a returning shopper. It is
// replaced wholesale on every update, never appended to.
type UserMemory struct {
	UserID        string    `json:"userId"`
	Summary       string    `json:"summary"`
	Traits        []string  `json:"traits,omitempty"`
	Preferences   Metadata  `json:"preferences,omitempty"`
	VectorID      string    `json:"vectorId,omitempty"`
	LastUpdatedAt time.Time `json:"lastUpdatedAt"`
}

// Escalation is a human-handoff request carrying a frozen snapshot of the
// conversation at escalation time.
type Escalation struct {
	ID                   int64         `json:"id"`
	SessionID            string        `json:"sessionId"`
	Reason               string        `json:"reason,omitempty"`
	Status               string        `json:"status"`
	Metadata             Metadata      `json:"metadata,omitempty"`
	ConversationSnapshot *Conversation `json:"conversationSnapshot,omitempty"`
	CreatedAt            time.Time     `json:"createdAt"`
}

// ChatMessage is a generation-ready role/content pair.
type ChatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// VectorRecord is one entry in the vector index. IDs are caller-assigned:
// "{documentId}-{chunkIndex}" for ingested documents, "memory-{userId}" for
// profile summaries.
type VectorRecord struct {
	ID       string    `json:"id"`
	Values   []float32 `json:"values"`
	Metadata Metadata  `json:"metadata,omitempty"`
}

// VectorMatch is one scored hit from an index query.
type VectorMatch struct {
	ID       string   `json:"id"`
	Score    float64  `json:"score"`
	Metadata Metadata `json:"metadata,omitempty"`
}

// Snippet is a retrieval hit mapped for context assembly and citations.
type Snippet struct {
	ID    string  `json:"id"`
	Score float64 `json:"score"`
	Chunk string  `json:"chunk,omitempty"`
	Title string  `json:"title,omitempty"`
	URL   string  `json:"url,omitempty"`
	Type  string  `json:"type"`
}

// WebResult is one fresh web-search hit.
type WebResult struct {
	Title   string  `json:"title"`
	URL     string  `json:"url"`
	Snippet string  `json:"snippet"`
	Score   float64 `json:"score,omitempty"`
}

// OrderStatus is the storefront's answer to an order lookup.
type OrderStatus struct {
	OrderID      string    `json:"orderId"`
	Status       string    `json:"status"`
	Carrier      string    `json:"carrier"`
	ETA          time.Time `json:"eta"`
	Instructions string    `json:"instructions,omitempty"`
}
