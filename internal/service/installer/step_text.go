package installer

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
)

// textStep is a reusable single-field prompt. Optional fields accept an empty
// Enter; required fields re-prompt until something is typed.
type textStep struct {
	input       textinput.Model
	envKey      string
	title       string
	optional    bool
	secret      bool
	placeholder string

	initialized bool
}

func newTextStep(envKey, title, placeholder string, optional, secret bool) *textStep {
	return &textStep{
		envKey:      envKey,
		title:       title,
		placeholder: placeholder,
		optional:    optional,
		secret:      secret,
	}
}

func (s *textStep) Init() tea.Cmd {
	s.input = textinput.New()
	s.input.Focus()
	s.input.CharLimit = 255
	s.input.Width = 48
	s.input.Placeholder = s.placeholder
	if s.secret {
		s.input.EchoMode = textinput.EchoPassword
		s.input.EchoCharacter = '•'
	}
	s.initialized = true
	return textinput.Blink
}

func (s *textStep) Update(msg tea.Msg, state *SetupState, _, _ int) (Step, tea.Cmd) {
	if !s.initialized {
		s.Init()
	}

	var cmd tea.Cmd
	s.input, cmd = s.input.Update(msg)

	if key, ok := msg.(tea.KeyMsg); ok && key.String() == "enter" {
		val := strings.TrimSpace(s.input.Value())
		if val == "" && !s.optional {
			return s, cmd
		}
		if val != "" {
			state.EnvVars[s.envKey] = val
		}
		return nil, nil
	}
	return s, cmd
}

func (s *textStep) View(_ *SetupState) string {
	hint := ""
	if s.optional {
		hint = " (optional - press Enter to skip)"
	}
	return fmt.Sprintf("%s%s:\n\n%s\n\n(press enter to confirm)\n", s.title, hint, s.input.View())
}

// choiceStep is a reusable pick-one prompt.
type choiceStep struct {
	envKey  string
	title   string
	options []choiceOption
	cursor  int
}

type choiceOption struct {
	value string
	label string
}

func (s *choiceStep) Init() tea.Cmd { return nil }

func (s *choiceStep) Update(msg tea.Msg, state *SetupState, _, _ int) (Step, tea.Cmd) {
	key, ok := msg.(tea.KeyMsg)
	if !ok {
		return s, nil
	}

	switch key.String() {
	case "up", "k":
		if s.cursor > 0 {
			s.cursor--
		}
	case "down", "j":
		if s.cursor < len(s.options)-1 {
			s.cursor++
		}
	case "enter":
		state.EnvVars[s.envKey] = s.options[s.cursor].value
		return nil, nil
	}
	return s, nil
}

func (s *choiceStep) View(_ *SetupState) string {
	var b strings.Builder
	b.WriteString(s.title + ":\n\n")
	for i, opt := range s.options {
		line := opt.label
		if i == s.cursor {
			b.WriteString(selStyle.Render("> " + line))
		} else {
			b.WriteString(itemStyle.Render(line))
		}
		b.WriteByte('\n')
	}
	b.WriteString("\n(use arrows, press enter to choose)\n")
	return b.String()
}
