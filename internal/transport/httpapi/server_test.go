package httpapi

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pocketkart/pocketbot/internal/config"
	"github.com/pocketkart/pocketbot/internal/core"
	"github.com/pocketkart/pocketbot/internal/providers/vector"
	"github.com/pocketkart/pocketbot/internal/service/concierge"
	"github.com/pocketkart/pocketbot/internal/service/features"
	"github.com/pocketkart/pocketbot/internal/service/guardrail"
	"github.com/pocketkart/pocketbot/internal/service/memory"
	"github.com/pocketkart/pocketbot/internal/service/rag"
	"github.com/pocketkart/pocketbot/internal/storage/sqlite"
	"github.com/pocketkart/pocketbot/internal/transport/ws"
)

type stubGenerator struct{}

func (stubGenerator) Generate(_ context.Context, _ core.GenerationRequest) (string, error) {
	return "canned reply", nil
}

type stubEmbedder struct{}

func (stubEmbedder) Embed(_ context.Context, texts []string) ([][]float32, error) {
	out := make([][]float32, len(texts))
	for i := range texts {
		out[i] = []float32{1, 0}
	}
	return out, nil
}

func newTestServer(t *testing.T) *Server {
	t.Helper()
	db, err := sqlite.NewDB(context.Background(), ":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })

	idx := vector.NewLocal(t.TempDir() + "/vectors.json")
	memSvc := memory.NewService(
		sqlite.NewConversationsRepo(db),
		sqlite.NewMemoriesRepo(db),
		stubGenerator{},
		stubEmbedder{},
		idx,
	)
	hub := ws.NewHub()
	svc := concierge.NewService(
		memSvc,
		rag.NewService(stubEmbedder{}, idx),
		guardrail.New(nil),
		features.NewSwitchboard(),
		stubGenerator{}, nil,
		sqlite.NewEscalationsRepo(db),
		concierge.Options{Dispatcher: hub},
	)

	logger := zerolog.Nop()
	return NewServer(
		&config.AppConfig{HTTPAddr: ":0", MaxUploadBytes: 1 << 20},
		svc, features.NewSwitchboard(), hub, &logger,
	)
}

func doJSON(t *testing.T, s *Server, method, path, body string) *httptest.ResponseRecorder {
	t.Helper()
	var reader *strings.Reader
	if body == "" {
		reader = strings.NewReader("")
	} else {
		reader = strings.NewReader(body)
	}
	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	s.echo.ServeHTTP(rec, req)
	return rec
}

func TestHealth(t *testing.T) {
	s := newTestServer(t)
	rec := doJSON(t, s, http.MethodGet, "/api/health", "")
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestChatMessage(t *testing.T) {
	s := newTestServer(t)

	rec := doJSON(t, s, http.MethodPost, "/api/chatbot/message",
		`{"sessionId":"s1","message":"what is your shipping policy"}`)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	var resp struct {
		concierge.ChatResponse
		ReplyHTML string `json:"replyHtml"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, "s1", resp.SessionID)
	assert.Equal(t, "canned reply", resp.Reply)
	assert.Equal(t, core.IntentFAQ, resp.Intent)
	assert.Contains(t, resp.ReplyHTML, "canned reply")
}

func TestChatMessageValidation(t *testing.T) {
	s := newTestServer(t)

	rec := doJSON(t, s, http.MethodPost, "/api/chatbot/message", `{"sessionId":"s1","message":"   "}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = doJSON(t, s, http.MethodPost, "/api/chatbot/message", `{"sessionId":"s1"}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

// A widget on first contact has no session yet; the server mints one and the
// reply carries it so the follow-up turn lands in the same conversation.
func TestChatMessageMintsSessionID(t *testing.T) {
	s := newTestServer(t)

	rec := doJSON(t, s, http.MethodPost, "/api/chatbot/message", `{"message":"hello there"}`)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	var resp struct {
		SessionID string `json:"sessionId"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	require.NotEmpty(t, resp.SessionID)

	rec = doJSON(t, s, http.MethodGet, "/api/chatbot/session/"+resp.SessionID, "")
	require.Equal(t, http.StatusOK, rec.Code)

	var conv core.Conversation
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &conv))
	assert.Len(t, conv.Messages, 2)
}

func TestChatMessageFlatFlagFields(t *testing.T) {
	s := newTestServer(t)

	rec := doJSON(t, s, http.MethodPost, "/api/chatbot/message",
		`{"sessionId":"s-flags","message":"hello","enableRag":false,"enableMemory":false}`)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	rec = doJSON(t, s, http.MethodGet, "/api/chatbot/session/s-flags", "")
	require.Equal(t, http.StatusOK, rec.Code)

	var conv core.Conversation
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &conv))
	assert.False(t, conv.FeatureFlags.RAG)
	assert.False(t, conv.FeatureFlags.Memory)
	assert.True(t, conv.FeatureFlags.WebSearch)
}

func TestChatStreamRequiresConnectedClient(t *testing.T) {
	s := newTestServer(t)

	rec := doJSON(t, s, http.MethodPost, "/api/chatbot/message/stream",
		`{"sessionId":"s1","message":"hi","clientId":"never-connected"}`)
	assert.Equal(t, http.StatusConflict, rec.Code)
}

func TestGetSession(t *testing.T) {
	s := newTestServer(t)

	doJSON(t, s, http.MethodPost, "/api/chatbot/message", `{"sessionId":"s1","message":"hello"}`)

	rec := doJSON(t, s, http.MethodGet, "/api/chatbot/session/s1", "")
	require.Equal(t, http.StatusOK, rec.Code)

	var conv core.Conversation
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &conv))
	assert.Len(t, conv.Messages, 2)

	rec = doJSON(t, s, http.MethodGet, "/api/chatbot/session/ghost", "")
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestEscalateEndpoint(t *testing.T) {
	s := newTestServer(t)

	doJSON(t, s, http.MethodPost, "/api/chatbot/message", `{"sessionId":"s1","message":"hello"}`)

	rec := doJSON(t, s, http.MethodPost, "/api/chatbot/escalate",
		`{"sessionId":"s1","reason":"wants a human"}`)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

	rec = doJSON(t, s, http.MethodPost, "/api/chatbot/escalate", `{"sessionId":"ghost"}`)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestAdminFlags(t *testing.T) {
	s := newTestServer(t)

	rec := doJSON(t, s, http.MethodGet, "/api/admin/flags", "")
	require.Equal(t, http.StatusOK, rec.Code)

	var flags core.FeatureFlags
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &flags))
	assert.True(t, flags.RAG)

	rec = doJSON(t, s, http.MethodPatch, "/api/admin/flags", `{"rag":false}`)
	require.Equal(t, http.StatusOK, rec.Code)
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &flags))
	assert.False(t, flags.RAG)
	assert.True(t, flags.WebSearch)
}

func TestSearchDocumentsRequiresQuery(t *testing.T) {
	s := newTestServer(t)
	rec := doJSON(t, s, http.MethodGet, "/api/documents/search", "")
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestUploadRejectsNonPDF(t *testing.T) {
	s := newTestServer(t)

	body := &strings.Builder{}
	body.WriteString("--BOUNDARY\r\n")
	body.WriteString("Content-Disposition: form-data; name=\"file\"; filename=\"notes.txt\"\r\n")
	body.WriteString("Content-Type: text/plain\r\n\r\n")
	body.WriteString("plain text\r\n")
	body.WriteString("--BOUNDARY--\r\n")

	req := httptest.NewRequest(http.MethodPost, "/api/documents/upload", strings.NewReader(body.String()))
	req.Header.Set("Content-Type", "multipart/form-data; boundary=BOUNDARY")
	rec := httptest.NewRecorder()
	s.echo.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusUnsupportedMediaType, rec.Code)
}
