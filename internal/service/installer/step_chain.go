package installer

import tea "github.com/charmbracelet/bubbletea"

// chainedSecretStep runs two prompts back to back; the second can skip itself
// based on the first answer.
type chainedSecretStep struct {
	first      Step
	second     Step
	skipSecond func(state *SetupState) bool
	onSecond   bool
}

func (s *chainedSecretStep) Init() tea.Cmd {
	return s.first.Init()
}

func (s *chainedSecretStep) Update(msg tea.Msg, state *SetupState, width, height int) (Step, tea.Cmd) {
	if !s.onSecond {
		next, cmd := s.first.Update(msg, state, width, height)
		if next == nil {
			if s.skipSecond != nil && s.skipSecond(state) {
				return nil, nil
			}
			s.onSecond = true
			return s, s.second.Init()
		}
		s.first = next
		return s, cmd
	}

	next, cmd := s.second.Update(msg, state, width, height)
	if next == nil {
		return nil, nil
	}
	s.second = next
	return s, cmd
}

func (s *chainedSecretStep) View(state *SetupState) string {
	if s.onSecond {
		return s.second.View(state)
	}
	return s.first.View(state)
}
