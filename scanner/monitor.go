package scanner

import (
	"fmt"
	"strings"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/davecgh/go-spew/spew"

	"sdlcscan/icw"
)

type tickMsg time.Time

func tickCmd() tea.Cmd {
	return tea.Tick(100*time.Millisecond, func(t time.Time) tea.Msg { return tickMsg(t) })
}

type monitorModel struct {
	s        *Scanner
	selected int
	dump     bool
}

// Init is the first function bubbletea calls; it starts the refresh
// ticker.
func (m monitorModel) Init() tea.Cmd {
	return tickCmd()
}

// Update handles key presses and refresh ticks.
func (m monitorModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.String() {
		case "q", "ctrl+c":
			return m, tea.Quit
		case "d":
			m.dump = !m.dump
		case "up", "k":
			if m.selected > 0 {
				m.selected--
			}
		case "down", "j":
			if m.selected < m.s.NumLines()-1 {
				m.selected++
			}
		}
		return m, nil
	case tickMsg:
		return m, tickCmd()
	}
	return m, nil
}

var (
	headerStyle   = lipgloss.NewStyle().Bold(true)
	selectedStyle = lipgloss.NewStyle().Reverse(true)
)

func lineStatName(s icw.LineState) string { return s.String() }

func bufStateName(filled bool) string {
	if filled {
		return "FILLED"
	}
	return "EMPTY"
}

func (m monitorModel) lineRow(i int) string {
	l := m.s.Line(i)
	flags := icw.SCFFlagNames(l.SCF())
	row := fmt.Sprintf(
		"L%d  pcf=%X  scf=%02X  pdf=%02X  lcd=%X  stat=%-5s  req=%-6s  rsp=%-6s  %s",
		i, l.PCF(), l.SCF(), l.PDF(), l.LCD(),
		lineStatName(l.LineStat()),
		bufStateName(l.Req.Filled()),
		bufStateName(l.Rsp.Filled()),
		strings.Join(flags, ","),
	)
	if i == m.selected {
		return selectedStyle.Render(row)
	}
	return row
}

// View renders the dashboard: one row per line, plus an optional raw
// struct dump of the selected line.
func (m monitorModel) View() string {
	var b strings.Builder
	b.WriteString(headerStyle.Render("sdlcscan line monitor") + "\n\n")
	for i := 0; i < m.s.NumLines(); i++ {
		b.WriteString(m.lineRow(i) + "\n")
	}
	b.WriteString("\n(j/k select, d dump, q quit)\n")
	if m.dump {
		l := m.s.Line(m.selected)
		b.WriteString("\n" + spew.Sdump(l))
		b.WriteString(icw.DumpBLU("req", l.Req))
		b.WriteString(icw.DumpBLU("rsp", l.Rsp))
	}
	return b.String()
}

// Monitor launches an interactive dashboard over a running Scanner's
// lines. It only reads state; the Scanner's own Run loop must be driven
// elsewhere.
func Monitor(s *Scanner) error {
	_, err := tea.NewProgram(monitorModel{s: s}).Run()
	return err
}
