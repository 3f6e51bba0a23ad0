package main

import (
	"context"
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/wippyai/native-interop/catalog"
	"github.com/wippyai/native-interop/layout"
	"github.com/wippyai/native-interop/native"
	"github.com/wippyai/native-interop/native/sim"
)

var (
	titleStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("#FAFAFA")).
			Background(lipgloss.Color("#7D56F4")).
			Padding(0, 1)

	selectedStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#FAFAFA")).
			Background(lipgloss.Color("#7D56F4"))

	resultStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#90EE90"))

	helpStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#666666"))
)

var browseLibrary string

var browseCmd = &cobra.Command{
	Use:   "browse",
	Short: "Interactive catalog browser",
	Long: "Browse catalog functions and struct layouts, and call functions. Calls go to the simulated " +
		"library unless --library names a real one.",
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		if !term.IsTerminal(int(os.Stdout.Fd())) {
			return fmt.Errorf("browse needs a terminal; use the catalog and layout commands instead")
		}
		cat, err := loadCatalog()
		if err != nil {
			return err
		}
		var lib native.Library = sim.New()
		if browseLibrary != "" {
			if lib, err = openLibrary(cmd.Context(), browseLibrary); err != nil {
				return err
			}
		}
		defer lib.Close()
		s, err := catalog.Bind(lib, cat)
		if err != nil {
			return err
		}
		p := tea.NewProgram(newBrowseModel(cmd.Context(), s), tea.WithAltScreen())
		_, err = p.Run()
		return err
	},
}

func init() {
	browseCmd.Flags().StringVarP(&browseLibrary, "library", "l", "", "Shared library or .wasm guest to call into")
	rootCmd.AddCommand(browseCmd)
}

type browseState int

const (
	stateSelect browseState = iota
	stateInputArgs
	stateShowResult
)

type section int

const (
	sectionFunctions section = iota
	sectionStructs
)

type browseModel struct {
	ctx      context.Context
	err      error
	surface  *catalog.Surface
	result   string
	funcs    []*catalog.Proc
	structs  []string
	inputs   []textinput.Model
	selected int
	focusIdx int
	section  section
	state    browseState
}

type callResultMsg struct {
	err    error
	result string
}

func newBrowseModel(ctx context.Context, s *catalog.Surface) *browseModel {
	m := &browseModel{ctx: ctx, surface: s, state: stateSelect}
	for _, f := range s.Catalog().Functions {
		if p, err := s.Proc(f.Name); err == nil {
			m.funcs = append(m.funcs, p)
		}
	}
	for _, st := range s.Catalog().Structs {
		m.structs = append(m.structs, st.Name)
	}
	return m
}

func (m *browseModel) Init() tea.Cmd {
	return nil
}

func (m *browseModel) items() int {
	if m.section == sectionStructs {
		return len(m.structs)
	}
	return len(m.funcs)
}

func (m *browseModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.String() {
		case "ctrl+c", "q":
			if m.state != stateInputArgs || msg.String() == "ctrl+c" {
				return m, tea.Quit
			}

		case "up", "k":
			if m.state == stateSelect && m.selected > 0 {
				m.selected--
			}

		case "down", "j":
			if m.state == stateSelect && m.selected < m.items()-1 {
				m.selected++
			}

		case "tab":
			switch m.state {
			case stateSelect:
				m.section = 1 - m.section
				m.selected = 0
			case stateInputArgs:
				if len(m.inputs) > 1 {
					m.inputs[m.focusIdx].Blur()
					m.focusIdx = (m.focusIdx + 1) % len(m.inputs)
					m.inputs[m.focusIdx].Focus()
				}
			}
			return m, nil

		case "enter":
			switch m.state {
			case stateSelect:
				if m.items() == 0 {
					return m, nil
				}
				if m.section == sectionStructs {
					m.result, m.err = m.describeStruct(m.structs[m.selected])
					m.state = stateShowResult
					return m, nil
				}
				m.prepareInputs()
				if len(m.inputs) == 0 {
					return m, m.callFunction
				}
				m.state = stateInputArgs
				return m, nil

			case stateInputArgs:
				return m, m.callFunction

			case stateShowResult:
				m.state = stateSelect
				m.result = ""
				m.err = nil
			}

		case "esc":
			switch m.state {
			case stateInputArgs:
				m.state = stateSelect
				m.inputs = nil
			case stateShowResult:
				m.state = stateSelect
				m.result = ""
				m.err = nil
			}
		}

	case callResultMsg:
		m.result = msg.result
		m.err = msg.err
		m.state = stateShowResult
	}

	if m.state == stateInputArgs {
		var cmds []tea.Cmd
		for i := range m.inputs {
			var cmd tea.Cmd
			m.inputs[i], cmd = m.inputs[i].Update(msg)
			cmds = append(cmds, cmd)
		}
		return m, tea.Batch(cmds...)
	}
	return m, nil
}

func (m *browseModel) prepareInputs() {
	p := m.funcs[m.selected]
	m.inputs = make([]textinput.Model, len(p.Sig.Params))
	for i, prim := range p.Sig.Params {
		ti := textinput.New()
		ti.Placeholder = prim.String()
		ti.Prompt = fmt.Sprintf("arg%d: ", i)
		ti.Width = 40
		if i == 0 {
			ti.Focus()
		}
		m.inputs[i] = ti
	}
	m.focusIdx = 0
}

func (m *browseModel) callFunction() tea.Msg {
	p := m.funcs[m.selected]
	args := make([]any, len(m.inputs))
	for i, input := range m.inputs {
		v, err := convertArg(input.Value(), p.Sig.Params[i])
		if err != nil {
			return callResultMsg{err: fmt.Errorf("arg%d: %w", i, err)}
		}
		args[i] = v
	}
	result, err := p.Call(m.ctx, args...)
	if err != nil {
		return callResultMsg{err: err}
	}
	if p.Sig.Result == layout.Void {
		return callResultMsg{result: "(void)"}
	}
	return callResultMsg{result: formatResult(result)}
}

func (m *browseModel) describeStruct(name string) (string, error) {
	c, err := m.surface.Layout(name)
	if err != nil {
		return "", err
	}
	var b strings.Builder
	fmt.Fprintf(&b, "size %d, align %d on %s\n\n", c.Size, c.Align, m.surface.Target())
	c.Walk(func(path []string, offset uint32, t *layout.CompiledType) {
		fmt.Fprintf(&b, "%4d  %-28s %s\n", offset, strings.Join(path, "."), typeStyle.Render(t.String()))
	})
	return b.String(), nil
}

// convertArg parses user input for a parameter. Empty input is NULL for
// pointers and strings and zero otherwise.
func convertArg(value string, p layout.Prim) (any, error) {
	value = strings.TrimSpace(value)
	switch {
	case p == layout.String:
		if value == "" {
			return nil, nil
		}
		return value, nil
	case value == "":
		return native.Zero(p), nil
	case p == layout.Bool:
		return strconv.ParseBool(value)
	case p.IsFloat():
		return strconv.ParseFloat(value, 64)
	case p == layout.Pointer:
		v, err := strconv.ParseUint(value, 0, 64)
		return uintptr(v), err
	case p.IsSigned():
		return strconv.ParseInt(value, 0, 64)
	case p.IsInteger():
		return strconv.ParseUint(value, 0, 64)
	}
	return nil, fmt.Errorf("cannot enter %s values", p)
}

func formatResult(v any) string {
	switch r := v.(type) {
	case nil:
		return "NULL"
	case uintptr:
		return fmt.Sprintf("%#x", r)
	case string:
		return strconv.Quote(r)
	}
	return fmt.Sprint(v)
}

func (m *browseModel) View() string {
	var b strings.Builder

	b.WriteString(titleStyle.Render("Catalog Browser"))
	b.WriteString(" ")
	b.WriteString(m.surface.Catalog().Name)
	b.WriteString(" on ")
	b.WriteString(m.surface.Library().Name())
	b.WriteString("\n\n")

	switch m.state {
	case stateSelect:
		if m.section == sectionStructs {
			b.WriteString("Structs " + helpStyle.Render("(tab: functions)") + "\n\n")
			for i, name := range m.structs {
				b.WriteString(m.row(i, typeStyle.Render(name)))
			}
		} else {
			b.WriteString("Functions " + helpStyle.Render("(tab: structs)") + "\n\n")
			for i, p := range m.funcs {
				b.WriteString(m.row(i, m.formatFunc(p)))
			}
		}
		b.WriteString("\n")
		b.WriteString(helpStyle.Render("↑/↓ select • tab switch • enter open • q quit"))

	case stateInputArgs:
		p := m.funcs[m.selected]
		b.WriteString(fmt.Sprintf("Calling %s\n\n", funcStyle.Render(p.Name())))
		for i, input := range m.inputs {
			b.WriteString(input.View())
			b.WriteString(" ")
			b.WriteString(typeStyle.Render(p.Sig.Params[i].String()))
			b.WriteString("\n")
		}
		b.WriteString("\n")
		b.WriteString(helpStyle.Render("tab next field • enter call • esc back"))

	case stateShowResult:
		if m.section == sectionStructs {
			b.WriteString(fmt.Sprintf("Layout of %s:\n\n", typeStyle.Render(m.structs[m.selected])))
		} else {
			b.WriteString(fmt.Sprintf("Result of %s:\n\n", funcStyle.Render(m.funcs[m.selected].Name())))
		}
		if m.err != nil {
			b.WriteString(errorStyle.Render(fmt.Sprintf("Error: %v", m.err)))
		} else {
			b.WriteString(resultStyle.Render(m.result))
		}
		b.WriteString("\n\n")
		b.WriteString(helpStyle.Render("enter continue • q quit"))
	}

	return b.String()
}

func (m *browseModel) row(i int, text string) string {
	if i == m.selected {
		return selectedStyle.Render("> "+text) + "\n"
	}
	return "  " + text + "\n"
}

func (m *browseModel) formatFunc(p *catalog.Proc) string {
	s := funcStyle.Render(p.Name()) + typeStyle.Render(signature(p.Func))
	if !p.Available() {
		s += " " + optionalStyle.Render("(unavailable)")
	}
	return s
}
