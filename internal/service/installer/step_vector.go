package installer

import tea "github.com/charmbracelet/bubbletea"

func NewVectorProviderStep() Step {
	return &choiceStep{
		envKey: "VECTOR_DB_PROVIDER",
		title:  "Where should the knowledge base live",
		options: []choiceOption{
			{value: "local", label: "Local JSON file (no account needed)"},
			{value: "pinecone", label: "Pinecone-compatible vector database"},
		},
	}
}

// pineconeStep chains the host and key prompts and skips both on the local
// backend.
type pineconeStep struct {
	host  Step
	key   Step
	onKey bool
}

func NewPineconeStep() Step {
	return &pineconeStep{
		host: newTextStep("PINECONE_HOST", "Enter your Pinecone index host", "https://my-index-abc123.svc.pinecone.io", false, false),
		key:  newTextStep("PINECONE_API_KEY", "Enter your Pinecone API key", "pcsk_...", false, true),
	}
}

func (s *pineconeStep) Init() tea.Cmd {
	return s.host.Init()
}

func (s *pineconeStep) Update(msg tea.Msg, state *SetupState, width, height int) (Step, tea.Cmd) {
	if state.EnvVars["VECTOR_DB_PROVIDER"] != "pinecone" {
		return nil, nil
	}

	if !s.onKey {
		next, cmd := s.host.Update(msg, state, width, height)
		if next == nil {
			s.onKey = true
			return s, s.key.Init()
		}
		s.host = next
		return s, cmd
	}

	next, cmd := s.key.Update(msg, state, width, height)
	if next == nil {
		return nil, nil
	}
	s.key = next
	return s, cmd
}

func (s *pineconeStep) View(state *SetupState) string {
	if s.onKey {
		return s.key.View(state)
	}
	return s.host.View(state)
}
