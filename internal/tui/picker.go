// Package tui holds the interactive terminal views.
package tui

import (
	"context"
	"fmt"
	"os"
	"slices"
	"strings"

	"careerkit/internal/tree"
	"careerkit/internal/utils"

	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/muesli/termenv"
)

var (
	titleStyle    = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("212"))
	helpStyle     = lipgloss.NewStyle().Foreground(lipgloss.Color("241"))
	cursorStyle   = lipgloss.NewStyle().Background(lipgloss.Color("236")).Foreground(lipgloss.Color("212")).Bold(true)
	selectedStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("34"))
	partialStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("214"))
	dirStyle      = lipgloss.NewStyle().Bold(true)
	footerStyle   = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("63"))
	messageStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("196"))
)

type pickerKeyMap struct {
	Up       key.Binding
	Down     key.Binding
	Top      key.Binding
	Bottom   key.Binding
	Toggle   key.Binding
	Expand   key.Binding
	Collapse key.Binding
	Enter    key.Binding
	Confirm  key.Binding
	Search   key.Binding
	Refresh  key.Binding
	Quit     key.Binding
}

var pickerKeys = pickerKeyMap{
	Up:       key.NewBinding(key.WithKeys("k", "up"), key.WithHelp("k/↑", "up")),
	Down:     key.NewBinding(key.WithKeys("j", "down"), key.WithHelp("j/↓", "down")),
	Top:      key.NewBinding(key.WithKeys("g", "home"), key.WithHelp("g", "top")),
	Bottom:   key.NewBinding(key.WithKeys("G", "end"), key.WithHelp("G", "bottom")),
	Toggle:   key.NewBinding(key.WithKeys(" "), key.WithHelp("space", "select")),
	Expand:   key.NewBinding(key.WithKeys("l", "right"), key.WithHelp("l/→", "expand")),
	Collapse: key.NewBinding(key.WithKeys("h", "left"), key.WithHelp("h/←", "collapse")),
	Enter:    key.NewBinding(key.WithKeys("enter"), key.WithHelp("enter", "open/close")),
	Confirm:  key.NewBinding(key.WithKeys("s"), key.WithHelp("s", "save")),
	Search:   key.NewBinding(key.WithKeys("/"), key.WithHelp("/", "search")),
	Refresh:  key.NewBinding(key.WithKeys("r"), key.WithHelp("r", "refresh")),
	Quit:     key.NewBinding(key.WithKeys("q", "esc", "ctrl+c"), key.WithHelp("q", "cancel")),
}

// PickerResult holds the outcome of the directory picker
type PickerResult struct {
	// Paths are every selected node, directories included
	Paths []string
	// Files are the files the selection covers
	Files     []string
	Size      int64
	Confirmed bool
}

// FetchFunc fetches the repository listing again and builds a fresh tree
type FetchFunc func(ctx context.Context) (*tree.Tree, error)

// refreshedMsg carries the outcome of a refetch
type refreshedMsg struct {
	tree *tree.Tree
	err  error
}

// pickerModel is the bubbletea model over a selection tree. The cursor
// ranges over the visible rows plus one footer line that confirms.
type pickerModel struct {
	tree   *tree.Tree
	title  string
	rows   []tree.Row
	cursor int
	offset int
	width  int
	height int

	search    textinput.Model
	searching bool
	message   string

	ctx        context.Context
	fetch      FetchFunc
	refreshing bool

	done   bool
	result PickerResult
}

func newPickerModel(ctx context.Context, t *tree.Tree, title string, fetch FetchFunc) pickerModel {
	search := textinput.New()
	search.Placeholder = "fuzzy search"
	search.Prompt = "/ "
	search.CharLimit = 256

	m := pickerModel{
		tree:   t,
		title:  title,
		width:  80,
		height: 24,
		search: search,
		ctx:    ctx,
		fetch:  fetch,
	}
	m.refresh()
	return m
}

func (m *pickerModel) refresh() {
	m.rows = m.tree.VisibleRows()
	m.cursor = min(m.cursor, len(m.rows))
}

func (m pickerModel) onFooter() bool { return m.cursor == len(m.rows) }

func (m pickerModel) current() (tree.Row, bool) {
	if m.onFooter() {
		return tree.Row{}, false
	}
	return m.rows[m.cursor], true
}

// Init implements tea.Model.
func (m pickerModel) Init() tea.Cmd {
	return nil
}

// Update implements tea.Model.
func (m pickerModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.ensureVisible()
		return m, nil

	case refreshedMsg:
		m.replaceTree(msg)
		m.ensureVisible()
		return m, nil

	case tea.KeyMsg:
		if m.searching {
			return m.updateSearch(msg)
		}
		return m.updateKeys(msg)
	}
	return m, nil
}

func (m pickerModel) updateKeys(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	m.message = ""

	switch {
	case key.Matches(msg, pickerKeys.Quit):
		m.done = true
		return m, tea.Quit

	case key.Matches(msg, pickerKeys.Confirm):
		return m.confirm()

	case key.Matches(msg, pickerKeys.Up):
		if m.cursor > 0 {
			m.cursor--
		}
	case key.Matches(msg, pickerKeys.Down):
		if m.cursor < len(m.rows) {
			m.cursor++
		}
	case key.Matches(msg, pickerKeys.Top):
		m.cursor = 0
	case key.Matches(msg, pickerKeys.Bottom):
		m.cursor = len(m.rows)

	case key.Matches(msg, pickerKeys.Toggle):
		if row, ok := m.current(); ok {
			m.tree.ToggleSelect(row.Path)
			m.refresh()
		}

	case key.Matches(msg, pickerKeys.Enter):
		if m.onFooter() {
			return m.confirm()
		}
		m.toggleExpand(func(tree.Row) bool { return true })
	case key.Matches(msg, pickerKeys.Expand):
		m.toggleExpand(func(r tree.Row) bool { return !r.Expanded })
	case key.Matches(msg, pickerKeys.Collapse):
		m.toggleExpand(func(r tree.Row) bool { return r.Expanded })

	case key.Matches(msg, pickerKeys.Refresh):
		return m.startRefresh()

	case key.Matches(msg, pickerKeys.Search):
		m.searching = true
		m.search.SetValue("")
		m.search.Focus()
		return m, textinput.Blink
	}

	m.ensureVisible()
	return m, nil
}

func (m *pickerModel) toggleExpand(when func(tree.Row) bool) {
	row, ok := m.current()
	if !ok || row.Kind != tree.KindDirectory || !when(row) {
		return
	}
	m.tree.ToggleExpand(row.Path)
	m.refresh()
}

func (m pickerModel) updateSearch(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.Type {
	case tea.KeyEsc, tea.KeyCtrlC:
		m.searching = false
		m.search.Blur()
		return m, nil

	case tea.KeyEnter:
		m.searching = false
		m.search.Blur()
		m.jumpTo(m.search.Value())
		m.ensureVisible()
		return m, nil
	}

	var cmd tea.Cmd
	m.search, cmd = m.search.Update(msg)
	return m, cmd
}

func (m pickerModel) startRefresh() (tea.Model, tea.Cmd) {
	switch {
	case m.fetch == nil:
		m.message = "refresh is not available"
		return m, nil
	case m.refreshing:
		return m, nil
	}
	m.refreshing = true
	m.message = "refreshing..."
	fetch, ctx := m.fetch, m.ctx
	return m, func() tea.Msg {
		t, err := fetch(ctx)
		return refreshedMsg{tree: t, err: err}
	}
}

// replaceTree swaps in a refetched tree, carrying over the selection, the
// open directories and the cursor. On failure the current tree stays.
func (m *pickerModel) replaceTree(msg refreshedMsg) {
	m.refreshing = false
	if msg.err != nil || msg.tree == nil {
		m.message = fmt.Sprintf("refresh failed: %v", msg.err)
		return
	}

	old, next := m.tree, msg.tree
	next.ApplyInitialSelection(slices.Collect(old.SelectedPaths()))
	old.Walk(func(n *tree.Node, _ int) bool {
		if n.IsDir() && n.Expanded() {
			next.Reveal(n.Path())
			if nn, ok := next.Node(n.Path()); ok && nn.IsDir() && !nn.Expanded() {
				next.ToggleExpand(n.Path())
			}
		}
		return true
	})

	var at string
	if row, ok := m.current(); ok {
		at = row.Path
	}
	m.tree = next
	m.refresh()
	if i := slices.IndexFunc(m.rows, func(r tree.Row) bool { return r.Path == at }); at != "" && i >= 0 {
		m.cursor = i
	}
	m.message = fmt.Sprintf("refreshed: %d entries", next.Len())
}

// jumpTo reveals the best fuzzy match and puts the cursor on it
func (m *pickerModel) jumpTo(query string) {
	matches := m.tree.Find(strings.TrimSpace(query))
	if len(matches) == 0 {
		m.message = fmt.Sprintf("no match for %q", query)
		return
	}
	m.tree.Reveal(matches[0])
	m.refresh()
	if i := slices.IndexFunc(m.rows, func(r tree.Row) bool { return r.Path == matches[0] }); i >= 0 {
		m.cursor = i
	}
}

func (m pickerModel) confirm() (tea.Model, tea.Cmd) {
	m.result = PickerResult{
		Paths:     slices.Collect(m.tree.SelectedPaths()),
		Files:     m.tree.SelectedFiles(),
		Size:      m.tree.SelectedSize(),
		Confirmed: true,
	}
	m.done = true
	return m, tea.Quit
}

// visibleLines is the number of tree rows that fit between header and footer
func (m pickerModel) visibleLines() int {
	return max(m.height-8, 5)
}

func (m *pickerModel) ensureVisible() {
	lines := m.visibleLines()
	if m.cursor < m.offset {
		m.offset = m.cursor
	} else if m.cursor >= m.offset+lines {
		m.offset = m.cursor - lines + 1
	}
}

// View implements tea.Model.
func (m pickerModel) View() string {
	var sb strings.Builder

	sb.WriteString(titleStyle.Render(m.title) + "\n\n")

	end := min(m.offset+m.visibleLines(), len(m.rows))
	for i := m.offset; i < end; i++ {
		sb.WriteString(m.renderRow(m.rows[i], i == m.cursor) + "\n")
	}
	if len(m.rows) == 0 {
		sb.WriteString(helpStyle.Render("  (repository is empty)") + "\n")
	}

	footer := fmt.Sprintf("[ Save selection: %d files, %s ]",
		len(m.tree.SelectedFiles()), utils.FormatFileSize(m.tree.SelectedSize()))
	if m.onFooter() {
		footer = cursorStyle.Render(footer)
	} else {
		footer = footerStyle.Render(footer)
	}
	sb.WriteString("\n" + footer + "\n")

	if m.searching {
		sb.WriteString("\n" + m.search.View() + "\n")
	} else if m.message != "" && m.refreshing {
		sb.WriteString("\n" + helpStyle.Render(m.message) + "\n")
	} else if m.message != "" {
		sb.WriteString("\n" + messageStyle.Render(m.message) + "\n")
	}

	sb.WriteString("\n" + helpStyle.Render("j/k: move • space: select • enter/h/l: open/close • /: search • r: refresh • s: save • q: cancel"))
	return sb.String()
}

func checkbox(r tree.Row) string {
	switch {
	case r.Selected:
		return selectedStyle.Render("[x]")
	case r.Indeterminate:
		return partialStyle.Render("[-]")
	default:
		return "[ ]"
	}
}

func (m pickerModel) renderRow(r tree.Row, atCursor bool) string {
	indent := strings.Repeat("  ", r.Depth)

	var name string
	if r.Kind == tree.KindDirectory {
		arrow := "▸ "
		if r.Expanded {
			arrow = "▾ "
		}
		name = arrow + dirStyle.Render(r.Name+"/")
	} else {
		name = "  " + r.Name + helpStyle.Render("  "+utils.FormatFileSize(r.Size))
	}

	line := fmt.Sprintf("%s%s %s", indent, checkbox(r), name)
	if atCursor {
		return cursorStyle.Render(line)
	}
	return line
}

// RunPicker runs the directory picker on t and returns the confirmed
// selection. When fetch is set, the refresh key discards the tree and
// rebuilds it from a new listing; a failed fetch keeps the current one.
func RunPicker(ctx context.Context, t *tree.Tree, title string, fetch FetchFunc) (PickerResult, error) {
	// Render on stderr so stdout stays clean for command output
	lipgloss.SetDefaultRenderer(lipgloss.NewRenderer(os.Stderr, termenv.WithColorCache(true)))

	p := tea.NewProgram(newPickerModel(ctx, t, title, fetch),
		tea.WithContext(ctx), tea.WithOutput(os.Stderr), tea.WithAltScreen())
	final, err := p.Run()
	if err != nil {
		return PickerResult{}, err
	}
	return final.(pickerModel).result, nil
}
