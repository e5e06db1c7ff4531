package concierge

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pocketkart/pocketbot/internal/core"
	"github.com/pocketkart/pocketbot/internal/providers/vector"
	"github.com/pocketkart/pocketbot/internal/service/features"
	"github.com/pocketkart/pocketbot/internal/service/guardrail"
	"github.com/pocketkart/pocketbot/internal/service/memory"
	"github.com/pocketkart/pocketbot/internal/service/rag"
	"github.com/pocketkart/pocketbot/internal/storage/sqlite"
)

type stubGenerator struct {
	reply string
	calls int
	last  core.GenerationRequest
}

func (s *stubGenerator) Generate(_ context.Context, req core.GenerationRequest) (string, error) {
	s.calls++
	s.last = req
	return s.reply, nil
}

type stubEmbedder struct{}

func (stubEmbedder) Embed(_ context.Context, texts []string) ([][]float32, error) {
	out := make([][]float32, len(texts))
	for i := range texts {
		out[i] = []float32{1, 0, 0}
	}
	return out, nil
}

type stubModerator struct{ flagged bool }

func (s *stubModerator) Moderate(_ context.Context, _ string) (core.ModerationResult, error) {
	return core.ModerationResult{Flagged: s.flagged}, nil
}

type stubOrders struct {
	status core.OrderStatus
	err    error
}

func (s *stubOrders) Lookup(_ context.Context, _ string) (core.OrderStatus, error) {
	return s.status, s.err
}

type stubSearcher struct {
	results []core.WebResult
	calls   int
}

func (s *stubSearcher) Search(_ context.Context, _ string) ([]core.WebResult, error) {
	s.calls++
	return s.results, nil
}

type fixture struct {
	svc  *Service
	gen  *stubGenerator
	mem  *memory.Service
	escs core.EscalationRepository
}

func newFixture(t *testing.T, opts Options) *fixture {
	t.Helper()
	db, err := sqlite.NewDB(context.Background(), ":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })

	gen := &stubGenerator{reply: "Our return window is 30 days."}
	idx := vector.NewLocal(t.TempDir() + "/vectors.json")
	mem := memory.NewService(
		sqlite.NewConversationsRepo(db),
		sqlite.NewMemoriesRepo(db),
		gen,
		stubEmbedder{},
		idx,
	)
	ragSvc := rag.NewService(stubEmbedder{}, idx)
	escs := sqlite.NewEscalationsRepo(db)

	svc := NewService(
		mem, ragSvc,
		guardrail.New(nil),
		features.NewSwitchboard(),
		gen, nil,
		escs,
		opts,
	)
	return &fixture{svc: svc, gen: gen, mem: mem, escs: escs}
}

func boolPtr(b bool) *bool { return &b }

func TestHandleChatReturnsIntentWithoutRetrieval(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, Options{})

	resp, err := f.svc.HandleChat(ctx, ChatRequest{
		SessionID: "sess-1",
		Message:   "What is the return policy?",
		Flags: core.FlagPatch{
			RAG:    boolPtr(false),
			Memory: boolPtr(false),
		},
	})
	require.NoError(t, err)

	assert.Equal(t, core.IntentReturns, resp.Intent)
	assert.Equal(t, "Our return window is 30 days.", resp.Reply)
	assert.Empty(t, resp.Sources)

	conv, err := f.mem.GetConversation(ctx, "sess-1")
	require.NoError(t, err)
	require.NotNil(t, conv)
	require.Len(t, conv.Messages, 2)
	assert.Equal(t, core.SenderUser, conv.Messages[0].Sender)
	assert.Equal(t, core.SenderBot, conv.Messages[1].Sender)

	// Anonymous session with memory off: no profile was written.
	mem, err := f.mem.GetUserMemory(ctx, "")
	require.NoError(t, err)
	assert.Nil(t, mem)
	// Exactly one model call, the reply itself.
	assert.Equal(t, 1, f.gen.calls)
}

func TestHandleChatFAQUsesKnowledgeBase(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, Options{})

	_, err := f.svc.SearchKnowledgeBase(ctx, "warm up index", 1)
	require.NoError(t, err)

	docID, n, err := f.svc.ProcessUpload(ctx, "notes.txt", []byte("not a pdf"))
	assert.ErrorIs(t, err, core.ErrUnsupportedFileType)
	assert.Empty(t, docID)
	assert.Zero(t, n)
}

func TestHandleChatBlockedMessage(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, Options{})
	f.svc.guard = guardrail.New(&stubModerator{flagged: true})

	resp, err := f.svc.HandleChat(ctx, ChatRequest{
		SessionID: "sess-2",
		Message:   "something awful",
	})
	require.NoError(t, err)
	assert.Equal(t, core.IntentBlocked, resp.Intent)
	assert.Equal(t, guardrail.SafeReply, resp.Reply)

	conv, err := f.mem.GetConversation(ctx, "sess-2")
	require.NoError(t, err)
	require.Len(t, conv.Messages, 2)
	assert.Equal(t, core.IntentBlocked, conv.Messages[1].Intent)
	// The model was never consulted.
	assert.Zero(t, f.gen.calls)
}

func TestHandleChatOrderStatus(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, Options{
		Orders: &stubOrders{status: core.OrderStatus{
			OrderID: "PK-1001",
			Status:  "in transit",
			Carrier: "DHL",
		}},
	})

	resp, err := f.svc.HandleChat(ctx, ChatRequest{
		SessionID: "sess-3",
		Message:   "where is my order",
		User:      &core.UserInfo{ID: "u1"},
		Flags:     core.FlagPatch{Memory: boolPtr(false)},
	})
	require.NoError(t, err)
	assert.Equal(t, core.IntentOrderStatus, resp.Intent)
	assert.Contains(t, resp.Reply, "PK-1001")
	assert.Contains(t, resp.Reply, "in transit")
	assert.Contains(t, resp.Reply, "DHL")
	assert.Zero(t, f.gen.calls)
}

func TestHandleChatOrderStatusNoRecentOrder(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, Options{
		Orders: &stubOrders{err: core.ErrNoRecentOrder},
	})

	resp, err := f.svc.HandleChat(ctx, ChatRequest{
		SessionID: "sess-4",
		Message:   "track my order",
		User:      &core.UserInfo{ID: "u1"},
		Flags:     core.FlagPatch{Memory: boolPtr(false)},
	})
	require.NoError(t, err)
	assert.Contains(t, resp.Reply, "could not find a recent order")
}

func TestHandleChatOrderStatusAnonymous(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, Options{Orders: &stubOrders{}})

	resp, err := f.svc.HandleChat(ctx, ChatRequest{
		SessionID: "sess-5",
		Message:   "order status please",
	})
	require.NoError(t, err)
	assert.Contains(t, resp.Reply, "sign in")
}

func TestHandleChatWebResultsBecomeCitations(t *testing.T) {
	ctx := context.Background()
	searcher := &stubSearcher{results: []core.WebResult{
		{Title: "PocketKart autumn sale", URL: "https://example.com/sale", Snippet: "big deals"},
		{Title: "Gadget roundup", URL: "https://example.com/roundup", Snippet: "fresh gear", Score: 0.9},
	}}
	f := newFixture(t, Options{Searcher: searcher})

	resp, err := f.svc.HandleChat(ctx, ChatRequest{
		SessionID: "sess-web",
		Message:   "what deals are on today?",
		Flags:     core.FlagPatch{Memory: boolPtr(false)},
	})
	require.NoError(t, err)

	assert.Equal(t, core.IntentUnknown, resp.Intent)
	assert.Equal(t, 1, searcher.calls)
	require.Len(t, resp.Sources, 2)
	assert.Equal(t, "PocketKart autumn sale", resp.Sources[0].Title)
	assert.Equal(t, "https://example.com/sale", resp.Sources[0].URL)
	// Backends that report no relevance get the neutral default.
	assert.InDelta(t, 0.5, resp.Sources[0].Score, 1e-9)
	assert.InDelta(t, 0.9, resp.Sources[1].Score, 1e-9)
	assert.Contains(t, f.gen.last.SystemPrompt, "Fresh web results")
}

func TestEscalateFlipsStatusAtomically(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, Options{})

	_, err := f.svc.HandleChat(ctx, ChatRequest{
		SessionID: "sess-6",
		Message:   "hello",
		Flags:     core.FlagPatch{Memory: boolPtr(false)},
	})
	require.NoError(t, err)

	esc, err := f.svc.Escalate(ctx, "sess-6", "angry shopper", nil)
	require.NoError(t, err)
	assert.Equal(t, core.EscalationPending, esc.Status)
	require.NotNil(t, esc.ConversationSnapshot)
	assert.Len(t, esc.ConversationSnapshot.Messages, 2)

	conv, err := f.mem.GetConversation(ctx, "sess-6")
	require.NoError(t, err)
	assert.Equal(t, core.StatusEscalated, conv.Status)
}

func TestEscalateUnknownSession(t *testing.T) {
	f := newFixture(t, Options{})
	_, err := f.svc.Escalate(context.Background(), "no-such-session", "reason", nil)
	assert.ErrorIs(t, err, core.ErrConversationNotFound)
}

func TestChatRequestFlatFlagAliases(t *testing.T) {
	req := ChatRequest{
		Flags:     core.FlagPatch{RAG: boolPtr(true), Memory: boolPtr(true)},
		EnableRAG: boolPtr(false),
	}
	p := req.flagPatch()
	// The flat alias overrides the structured field; untouched fields pass
	// through.
	require.NotNil(t, p.RAG)
	assert.False(t, *p.RAG)
	require.NotNil(t, p.Memory)
	assert.True(t, *p.Memory)
	assert.Nil(t, p.WebSearch)
}

func TestEffectiveFlagsGlobalGate(t *testing.T) {
	global := core.FeatureFlags{RAG: false, WebSearch: true, Memory: true}
	conv := core.FeatureFlags{RAG: true, WebSearch: true, Memory: false}

	got := effectiveFlags(global, conv)
	assert.False(t, got.RAG)
	assert.True(t, got.WebSearch)
	assert.False(t, got.Memory)
}

// The slug of the uploaded filename is the document id returned to the
// caller and the prefix of every chunk's vector id, so its shape is fixed.
func TestSlugify(t *testing.T) {
	assert.Equal(t, "return-policy-2026", slugify("Return Policy 2026"))
	assert.Equal(t, "faq", slugify("FAQ"))
	assert.Equal(t, "crazy-name", slugify("  crazy?? name!  "))
}

func TestRecencyPattern(t *testing.T) {
	assert.True(t, recencyPattern.MatchString("what is the LATEST iphone"))
	assert.True(t, recencyPattern.MatchString("sales today?"))
	assert.True(t, recencyPattern.MatchString("best laptops 2026"))
	assert.False(t, recencyPattern.MatchString("best laptops 2024"))
	assert.False(t, recencyPattern.MatchString("tell me a story"))
}
