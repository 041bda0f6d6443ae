package cli

import (
	"fmt"
	"strings"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/matzehuels/exprtrail/pkg/player"
	"github.com/matzehuels/exprtrail/pkg/render"
	"github.com/matzehuels/exprtrail/pkg/typez"
)

// Player styles
var (
	sliderActiveStyle = lipgloss.NewStyle().Bold(true).Foreground(colorCyan)
	sliderTrackStyle  = lipgloss.NewStyle().Foreground(colorDim)
	treeEdgeStyle     = lipgloss.NewStyle().Foreground(colorGray)
	logBoxStyle       = lipgloss.NewStyle().
				Border(lipgloss.RoundedBorder()).
				BorderForeground(colorDim).
				Padding(0, 1)
)

// =============================================================================
// Update delivery
// =============================================================================

// updateMsg carries a player update into the bubbletea loop.
type updateMsg player.Update

// latestSink returns a player sink that never blocks: when the viewer has
// not picked up the previous update yet, it is replaced by the newer one.
// Sink calls are serialized by the player, so the retry always succeeds.
func latestSink(ch chan player.Update) player.Sink {
	return func(u player.Update) {
		select {
		case ch <- u:
		default:
			select {
			case <-ch:
			default:
			}
			ch <- u
		}
	}
}

// waitForUpdate blocks until the player delivers the next update.
func waitForUpdate(ch <-chan player.Update) tea.Cmd {
	return func() tea.Msg {
		return updateMsg(<-ch)
	}
}

// =============================================================================
// PlayModel - Interactive step player
// =============================================================================

// PlayModel is the bubbletea model for stepping through a rewrite trace.
// Cursor is the selected step; Shown is the last update the player
// delivered, which lags Cursor while a debounced selection is pending.
type PlayModel struct {
	Title   string
	Steps   []typez.Step
	Cursor  int
	Shown   *player.Update
	Player  *player.Player
	Updates chan player.Update
	Width   int
}

// NewPlayModel creates a play model and selects the first step.
func NewPlayModel(title string, p *player.Player, updates chan player.Update) PlayModel {
	m := PlayModel{
		Title:   title,
		Steps:   p.Steps(),
		Player:  p,
		Updates: updates,
		Width:   80,
	}
	_ = p.Select(0)
	return m
}

func (m PlayModel) Init() tea.Cmd {
	return waitForUpdate(m.Updates)
}

func (m PlayModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		next := m.Cursor
		switch msg.String() {
		case "q", "ctrl+c", "esc":
			return m, tea.Quit
		case "left", "h":
			next--
		case "right", "l", " ":
			next++
		case "home", "g":
			next = 0
		case "end", "G":
			next = len(m.Steps) - 1
		case "r":
			m.Player.Reset()
			_ = m.Player.Select(m.Cursor)
			return m, nil
		default:
			return m, nil
		}
		if next < 0 || next >= len(m.Steps) || next == m.Cursor {
			return m, nil
		}
		m.Cursor = next
		// Errors arrive as updates.
		_ = m.Player.Select(next)
	case updateMsg:
		u := player.Update(msg)
		m.Shown = &u
		return m, waitForUpdate(m.Updates)
	case tea.WindowSizeMsg:
		m.Width = msg.Width
	}
	return m, nil
}

func (m PlayModel) View() string {
	var b strings.Builder

	b.WriteString(StyleTitle.Render(m.Title))
	b.WriteString("\n")
	b.WriteString(StyleDim.Render("←/→ step  g/G first/last  r reset  q quit"))
	b.WriteString("\n\n")
	b.WriteString(slider(len(m.Steps), m.Cursor))
	b.WriteString("\n")
	b.WriteString(StyleHighlight.Render(fmt.Sprintf("[%d/%d] ", m.Cursor, len(m.Steps)-1)))
	b.WriteString(StyleValue.Render(m.Steps[m.Cursor].Title()))
	b.WriteString("\n\n")

	u := m.Shown
	switch {
	case u == nil || u.Step.Index != m.Cursor:
		b.WriteString(StyleDim.Render("reconciling..."))
		b.WriteString("\n")
		if u == nil {
			return b.String()
		}
	case u.Err != nil:
		b.WriteString(statusError.style.Render(statusError.icon) + " " + u.Err.Error())
		b.WriteString("\n")
		return b.String()
	}

	b.WriteString(renderTree(u.Set, u.Diff.AddedNodes))
	b.WriteString(StyleDim.Render(fmt.Sprintf("%d nodes · +%d -%d",
		len(u.Set.Nodes), len(u.Diff.AddedNodes), len(u.Diff.RemovedNodes))))
	b.WriteString("\n")

	if logs := strings.TrimSpace(m.Steps[m.Cursor].Logs); logs != "" {
		b.WriteString("\n")
		b.WriteString(logBoxStyle.MaxWidth(max(m.Width, 20)).Render(logs))
		b.WriteString("\n")
	}
	return b.String()
}

// slider draws one marker per step with the selected one emphasized.
func slider(n, cursor int) string {
	var b strings.Builder
	for i := 0; i < n; i++ {
		if i > 0 {
			b.WriteString(sliderTrackStyle.Render("─"))
		}
		if i == cursor {
			b.WriteString(sliderActiveStyle.Render("●"))
		} else {
			b.WriteString(sliderTrackStyle.Render("○"))
		}
	}
	return b.String()
}

// renderTree draws the set as an indented tree from its first node, the
// root. A node reached again through sharing is printed as a reference.
func renderTree(set render.Set, added []string) string {
	if len(set.Nodes) == 0 {
		return ""
	}
	isAdded := make(map[string]bool, len(added))
	for _, id := range added {
		isAdded[id] = true
	}
	children := make(map[string][]render.Edge)
	for _, e := range set.Edges {
		children[e.Source] = append(children[e.Source], e)
	}

	var b strings.Builder
	seen := make(map[string]bool)
	var walk func(id, prefix, slot string, last, top bool)
	walk = func(id, prefix, slot string, last, top bool) {
		line := prefix
		childPrefix := prefix
		if !top {
			if last {
				line += treeEdgeStyle.Render("└─ ")
				childPrefix += "   "
			} else {
				line += treeEdgeStyle.Render("├─ ")
				childPrefix += treeEdgeStyle.Render("│") + "  "
			}
		}
		if slot != "" {
			line += StyleDim.Render(slot + ": ")
		}

		label, _ := set.Label(id)
		text := label + StyleDim.Render(" #"+id)
		if isAdded[id] {
			text = StyleAdded.Render(label) + StyleDim.Render(" #"+id)
		}
		if seen[id] {
			b.WriteString(line + StyleDim.Render("↑ "+label+" #"+id) + "\n")
			return
		}
		seen[id] = true
		b.WriteString(line + text + "\n")

		kids := children[id]
		for i, e := range kids {
			walk(e.Target, childPrefix, strings.TrimPrefix(e.ID, e.Source+"."), i == len(kids)-1, false)
		}
	}
	walk(set.Nodes[0].ID, "", "", true, true)
	return b.String()
}
