// Package menu implements the interactive action picker shown when aptintel
// runs without arguments.
package menu

import (
	"fmt"
	"io"
	"strings"

	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"aptintel/internal/aptcore"
)

// Option identifies a menu action by the digit that selects it.
type Option int

const (
	OptionExit Option = iota
	OptionMitreSearch
	OptionTrackerSearch
	OptionLayers
	OptionUpdateTracker
	OptionUpdateMitre
)

type item struct {
	option Option
	label  string
	prompt string // empty when the action takes no input
}

// items are listed in display order.
var items = []item{
	{OptionMitreSearch, "Get APT groups from MITRE", "Enter keywords to search: "},
	{OptionTrackerSearch, "Get APT groups from APT Tracker .xlsx", "Enter keywords to search: "},
	{OptionLayers, "Get APT groups TTPs from MITRE", "Enter APT groups: "},
	{OptionUpdateTracker, "Update APT Tracker .xlsx", ""},
	{OptionUpdateMitre, "Update MITRE Enterprise Matrix .json", ""},
	{OptionExit, "Exit", ""},
}

// Label returns the menu text of o.
func (o Option) Label() string {
	for _, it := range items {
		if it.option == o {
			return it.label
		}
	}
	return fmt.Sprintf("Option(%d)", int(o))
}

// Choice is the action picked by the user and its comma-separated input,
// already split and trimmed.
type Choice struct {
	Option Option
	Input  []string
}

var (
	titleStyle    = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("39"))
	selectedStyle = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("170"))
	itemStyle     = lipgloss.NewStyle().Foreground(lipgloss.Color("252"))
	hintStyle     = lipgloss.NewStyle().Foreground(lipgloss.Color("241"))
)

type state int

const (
	stateSelect state = iota
	stateInput
	stateDone
)

// Model is the bubbletea model of the menu.
type Model struct {
	cursor int
	state  state
	input  textinput.Model
	choice Choice
}

// New returns a menu with the cursor on the first option.
func New() Model {
	ti := textinput.New()
	ti.CharLimit = 512
	ti.Width = 60
	return Model{input: ti}
}

// Init implements tea.Model.
func (m Model) Init() tea.Cmd {
	return nil
}

// Update implements tea.Model.
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	key, ok := msg.(tea.KeyMsg)
	if !ok {
		return m.updateInput(msg)
	}
	if key.Type == tea.KeyCtrlC {
		return m.finish(Choice{Option: OptionExit})
	}

	switch m.state {
	case stateSelect:
		return m.updateSelect(key)
	case stateInput:
		switch key.Type {
		case tea.KeyEsc:
			m.state = stateSelect
			m.input.Blur()
			m.input.Reset()
			return m, nil
		case tea.KeyEnter:
			return m.finish(Choice{Option: items[m.cursor].option, Input: aptcore.ParseList(m.input.Value())})
		}
		return m.updateInput(msg)
	}
	return m, nil
}

func (m Model) updateSelect(key tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch key.String() {
	case "up", "k":
		if m.cursor > 0 {
			m.cursor--
		}
		return m, nil
	case "down", "j":
		if m.cursor < len(items)-1 {
			m.cursor++
		}
		return m, nil
	case "q", "esc":
		return m.finish(Choice{Option: OptionExit})
	case "enter":
		return m.activate()
	}

	if r := key.Runes; key.Type == tea.KeyRunes && len(r) == 1 && r[0] >= '0' && r[0] <= '9' {
		for i, it := range items {
			if int(it.option) == int(r[0]-'0') {
				m.cursor = i
				return m.activate()
			}
		}
	}
	return m, nil
}

func (m Model) activate() (tea.Model, tea.Cmd) {
	it := items[m.cursor]
	if it.prompt == "" {
		return m.finish(Choice{Option: it.option})
	}
	m.state = stateInput
	m.input.Prompt = it.prompt
	m.input.Reset()
	cmd := m.input.Focus()
	return m, cmd
}

func (m Model) updateInput(msg tea.Msg) (tea.Model, tea.Cmd) {
	if m.state != stateInput {
		return m, nil
	}
	var cmd tea.Cmd
	m.input, cmd = m.input.Update(msg)
	return m, cmd
}

func (m Model) finish(c Choice) (tea.Model, tea.Cmd) {
	m.state = stateDone
	m.choice = c
	return m, tea.Quit
}

// Choice returns the picked action once the program has quit.
func (m Model) Choice() Choice {
	return m.choice
}

// View implements tea.Model.
func (m Model) View() string {
	if m.state == stateDone {
		return ""
	}

	var b strings.Builder
	b.WriteString(titleStyle.Render("APT groups intelligence"))
	b.WriteString("\n\n")
	for i, it := range items {
		line := fmt.Sprintf("[%d] %s", int(it.option), it.label)
		if i == m.cursor {
			b.WriteString(selectedStyle.Render("> " + line))
		} else {
			b.WriteString(itemStyle.Render("  " + line))
		}
		b.WriteString("\n")
	}
	b.WriteString("\n")

	if m.state == stateInput {
		b.WriteString(m.input.View())
		b.WriteString("\n")
		b.WriteString(hintStyle.Render("comma-separated • enter: run • esc: back"))
	} else {
		b.WriteString(hintStyle.Render("↑/↓ or 0-5: select • enter: run • q: exit"))
	}
	b.WriteString("\n")
	return b.String()
}

// Run shows the menu on out, reading keys from in, and returns the choice.
func Run(in io.Reader, out io.Writer) (Choice, error) {
	final, err := tea.NewProgram(New(), tea.WithInput(in), tea.WithOutput(out)).Run()
	if err != nil {
		return Choice{}, fmt.Errorf("menu failed: %w", err)
	}
	return final.(Model).Choice(), nil
}
