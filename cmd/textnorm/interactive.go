package main

import (
	"strings"

	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/wippyai/glyphtext/text"
)

var (
	titleStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("#FAFAFA")).
			Background(lipgloss.Color("#7D56F4")).
			Padding(0, 1)

	labelStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#87CEEB"))

	errorStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#FF6B6B"))

	helpStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#666666"))
)

func newInteractiveCommand(v *viper.Viper) *cobra.Command {
	return &cobra.Command{
		Use:   "interactive",
		Short: "Type text and watch its units and scalars update live",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			p := tea.NewProgram(newInteractiveModel(newNormalizer(v)), tea.WithAltScreen())
			_, err := p.Run()
			return err
		},
	}
}

type interactiveModel struct {
	input      textinput.Model
	normalizer *text.Normalizer
	pairs      bool
	latin1     bool
}

func newInteractiveModel(n *text.Normalizer) *interactiveModel {
	ti := textinput.New()
	ti.Placeholder = "type some text"
	ti.Prompt = "> "
	ti.Width = 60
	ti.Focus()
	return &interactiveModel{
		input:      ti,
		normalizer: n,
		pairs:      true,
	}
}

func (m *interactiveModel) Init() tea.Cmd {
	return textinput.Blink
}

func (m *interactiveModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	if key, ok := msg.(tea.KeyMsg); ok {
		switch key.String() {
		case "ctrl+c", "esc":
			return m, tea.Quit
		case "ctrl+p":
			m.pairs = !m.pairs
			return m, nil
		case "ctrl+l":
			m.latin1 = !m.latin1
			return m, nil
		}
	}

	var cmd tea.Cmd
	m.input, cmd = m.input.Update(msg)
	return m, cmd
}

// source converts the typed text into the input form selected by the mode.
func (m *interactiveModel) source() (text.Source, error) {
	if m.latin1 {
		return textToLatin1(m.input.Value())
	}
	return textToUnits(m.input.Value())
}

func (m *interactiveModel) View() string {
	var b strings.Builder

	b.WriteString(titleStyle.Render("textnorm"))
	b.WriteString(" ")
	b.WriteString(m.modeLine())
	b.WriteString("\n\n")
	b.WriteString(m.input.View())
	b.WriteString("\n\n")

	src, err := m.source()
	if err != nil {
		b.WriteString(errorStyle.Render(err.Error()))
	} else {
		b.WriteString(m.resultView(src))
	}

	b.WriteString("\n\n")
	b.WriteString(helpStyle.Render("ctrl+p pairing • ctrl+l latin-1 • esc quit"))
	return b.String()
}

func (m *interactiveModel) modeLine() string {
	mode := "utf-16"
	if m.latin1 {
		mode = "latin-1"
	}
	pairs := "pairs on"
	if !m.pairs {
		pairs = "pairs off"
	}
	return mode + ", " + pairs
}

func (m *interactiveModel) resultView(src text.Source) string {
	var b strings.Builder
	tokens := unitTokens(src)

	b.WriteString(labelStyle.Render("units  "))
	b.WriteString(strings.Join(tokens, " "))
	b.WriteString("\n")

	ds, err := m.normalizer.Normalize(src, m.pairs)
	if err != nil {
		start, end := errorRange(err)
		if end > start {
			_, marker := renderMarker(tokens, start, end)
			b.WriteString("       ")
			b.WriteString(errorStyle.Render(marker))
			b.WriteString("\n")
		}
		b.WriteString(errorStyle.Render(err.Error()))
		return b.String()
	}

	b.WriteString(labelStyle.Render("scalars"))
	for i, r := range ds.Scalars() {
		b.WriteString("\n")
		b.WriteString(formatScalar(i, r, false))
	}
	if ds.Len() == 0 {
		b.WriteString(" (none)")
	}
	return b.String()
}
