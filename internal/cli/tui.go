package cli

import (
	"errors"
	"fmt"
	"strings"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"

	"github.com/matzehuels/bindgraph/pkg/session"
)

var listDimStyle = lipgloss.NewStyle().Foreground(colorDim)

// errNoSelection is returned when the picker was closed without choosing.
var errNoSelection = errors.New("no graph selected")

// =============================================================================
// GraphListModel - Interactive graph selection
// =============================================================================

// graphItem is one row of the picker.
type graphItem struct {
	Path        string
	OK          bool
	Bindings    int
	Diagnostics int
	Depth       int
}

// graphItems flattens a report, extensions after their parent.
func graphItems(rep *session.Report) []graphItem {
	var items []graphItem
	var walk func(gs []session.GraphReport, depth int)
	walk = func(gs []session.GraphReport, depth int) {
		for _, g := range gs {
			it := graphItem{Path: g.Graph, OK: g.OK, Diagnostics: len(g.Diagnostics), Depth: depth}
			if g.Plan != nil {
				it.Bindings = len(g.Plan.Bindings)
			}
			items = append(items, it)
			walk(g.Extensions, depth+1)
		}
	}
	walk(rep.Graphs, 0)
	return items
}

// GraphListModel is the bubbletea model for choosing the graph to render.
// Only sealed graphs can be selected.
type GraphListModel struct {
	Items    []graphItem
	Cursor   int
	Selected string
	Height   int
	Offset   int
}

// NewGraphListModel creates a picker over every graph in rep.
func NewGraphListModel(rep *session.Report) GraphListModel {
	return GraphListModel{Items: graphItems(rep), Height: 15}
}

func (m GraphListModel) Init() tea.Cmd {
	return nil
}

func (m GraphListModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.String() {
		case "q", "ctrl+c", "esc":
			return m, tea.Quit
		case "up", "k":
			if m.Cursor > 0 {
				m.Cursor--
				if m.Cursor < m.Offset {
					m.Offset = m.Cursor
				}
			}
		case "down", "j":
			if m.Cursor < len(m.Items)-1 {
				m.Cursor++
				if m.Cursor >= m.Offset+m.Height {
					m.Offset = m.Cursor - m.Height + 1
				}
			}
		case "enter":
			if len(m.Items) == 0 || !m.Items[m.Cursor].OK {
				return m, nil
			}
			m.Selected = m.Items[m.Cursor].Path
			return m, tea.Quit
		}
	case tea.WindowSizeMsg:
		m.Height = max(msg.Height-6, 5)
	}
	return m, nil
}

func (m GraphListModel) View() string {
	var b strings.Builder

	b.WriteString(StyleTitle.Render("Select Graph"))
	b.WriteString("\n")
	b.WriteString(listDimStyle.Render("↑/↓ navigate  ⏎ select  q quit"))
	b.WriteString("\n\n")

	end := min(m.Offset+m.Height, len(m.Items))
	rows := [][]string{}
	for i := m.Offset; i < end; i++ {
		it := m.Items[i]
		cursor := "  "
		if i == m.Cursor {
			cursor = "▸ "
		}
		status := iconSuccess
		if !it.OK {
			status = iconError
		}
		name := strings.Repeat("  ", it.Depth) + it.Path
		rows = append(rows, []string{cursor, name, status, fmt.Sprint(it.Bindings), fmt.Sprint(it.Diagnostics)})
	}

	t := table.New().
		Border(lipgloss.RoundedBorder()).
		BorderStyle(lipgloss.NewStyle().Foreground(colorDim)).
		Headers("", "Graph", "OK", "Bindings", "Diagnostics").
		Rows(rows...).
		StyleFunc(func(row, col int) lipgloss.Style {
			if row == -1 {
				return styleHeader
			}
			idx := m.Offset + row
			if idx >= len(m.Items) {
				return lipgloss.NewStyle()
			}
			it := m.Items[idx]
			base := lipgloss.NewStyle()
			if idx == m.Cursor {
				base = base.Bold(true)
			}
			switch {
			case !it.OK:
				return base.Foreground(colorRed)
			case idx == m.Cursor:
				return base.Foreground(colorGreen)
			case col >= 3:
				return base.Foreground(colorDim)
			}
			return base
		})

	b.WriteString(t.Render())
	b.WriteString("\n\n")
	b.WriteString(listDimStyle.Render(fmt.Sprintf("  [%d/%d]", m.Cursor+1, len(m.Items))))

	return b.String()
}

// pickGraph runs the picker and returns the chosen graph path.
func pickGraph(rep *session.Report) (string, error) {
	final, err := tea.NewProgram(NewGraphListModel(rep)).Run()
	if err != nil {
		return "", err
	}
	if m, ok := final.(GraphListModel); ok && m.Selected != "" {
		return m.Selected, nil
	}
	return "", errNoSelection
}
