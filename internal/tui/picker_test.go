package tui

import (
	"context"
	"errors"
	"strings"
	"testing"

	"careerkit/internal/tree"

	tea "github.com/charmbracelet/bubbletea"
)

func sampleTree() *tree.Tree {
	return tree.Build([]tree.Record{
		{Path: "README.md", Kind: tree.KindFile, Size: 100},
		{Path: "src", Kind: tree.KindDirectory},
		{Path: "src/main.go", Kind: tree.KindFile, Size: 2048},
		{Path: "src/util.go", Kind: tree.KindFile, Size: 512},
	})
}

func runes(s string) tea.KeyMsg { return tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune(s)} }

var (
	space = tea.KeyMsg{Type: tea.KeySpace, Runes: []rune{' '}}
	enter = tea.KeyMsg{Type: tea.KeyEnter}
)

func send(t *testing.T, m pickerModel, msgs ...tea.Msg) pickerModel {
	t.Helper()
	for _, msg := range msgs {
		next, _ := m.Update(msg)
		m = next.(pickerModel)
	}
	return m
}

func TestPickerStartsCollapsed(t *testing.T) {
	m := newPickerModel(context.Background(), sampleTree(), "octo/app", nil)

	if len(m.rows) != 2 {
		t.Fatalf("expected 2 root rows, got %d", len(m.rows))
	}
	if m.cursor != 0 {
		t.Errorf("expected cursor at 0, got %d", m.cursor)
	}
}

func TestPickerExpandAndSelect(t *testing.T) {
	m := newPickerModel(context.Background(), sampleTree(), "octo/app", nil)

	// move to src, expand it, move to main.go, select it
	m = send(t, m, runes("j"), enter, runes("j"), space)

	if len(m.rows) != 4 {
		t.Fatalf("expected src to be expanded, got %d rows", len(m.rows))
	}
	if !m.rows[2].Selected {
		t.Errorf("expected %s to be selected", m.rows[2].Path)
	}
	if !m.rows[1].Indeterminate {
		t.Error("expected src to be indeterminate")
	}

	view := m.View()
	if !strings.Contains(view, "1 files, 2.0 KB") {
		t.Errorf("footer should show the selected size, got:\n%s", view)
	}

	// collapse from the directory row
	m = send(t, m, runes("k"), runes("h"))
	if len(m.rows) != 2 {
		t.Errorf("expected src to collapse, got %d rows", len(m.rows))
	}
}

func TestPickerExpandKeysOnlyGoOneWay(t *testing.T) {
	m := newPickerModel(context.Background(), sampleTree(), "octo/app", nil)
	m = send(t, m, runes("j"), runes("l"), runes("l"))
	if len(m.rows) != 4 {
		t.Errorf("right arrow should only expand, got %d rows", len(m.rows))
	}
}

func TestPickerFooterConfirms(t *testing.T) {
	m := newPickerModel(context.Background(), sampleTree(), "octo/app", nil)
	m = send(t, m, runes("j"), space, runes("G"))

	if !m.onFooter() {
		t.Fatal("G should land on the footer")
	}

	next, cmd := m.Update(enter)
	m = next.(pickerModel)
	if cmd == nil {
		t.Fatal("confirming should quit the program")
	}
	if !m.result.Confirmed {
		t.Fatal("expected a confirmed result")
	}
	if got := strings.Join(m.result.Paths, ","); got != "src,src/main.go,src/util.go" {
		t.Errorf("unexpected selected paths %q", got)
	}
	if m.result.Size != 2560 {
		t.Errorf("expected size 2560, got %d", m.result.Size)
	}
}

func TestPickerQuitWithoutConfirm(t *testing.T) {
	m := newPickerModel(context.Background(), sampleTree(), "octo/app", nil)
	m = send(t, m, space, runes("q"))

	if !m.done || m.result.Confirmed {
		t.Errorf("expected cancelled picker, got done=%v confirmed=%v", m.done, m.result.Confirmed)
	}
}

func TestPickerSearchRevealsMatch(t *testing.T) {
	m := newPickerModel(context.Background(), sampleTree(), "octo/app", nil)
	m = send(t, m, runes("/"), runes("util"), enter)

	if m.searching {
		t.Fatal("enter should leave search mode")
	}
	row, ok := m.current()
	if !ok || row.Path != "src/util.go" {
		t.Errorf("expected cursor on src/util.go, got %+v", row)
	}

	m = send(t, m, runes("/"), runes("zzzz"), enter)
	if !strings.Contains(m.message, "no match") {
		t.Errorf("expected a no-match message, got %q", m.message)
	}
}

func TestPickerSKeyTypedInSearchDoesNotConfirm(t *testing.T) {
	m := newPickerModel(context.Background(), sampleTree(), "octo/app", nil)
	m = send(t, m, runes("/"), runes("s"))

	if m.done {
		t.Error("typing s in the search box must not confirm")
	}
	if m.search.Value() != "s" {
		t.Errorf("expected search text %q, got %q", "s", m.search.Value())
	}
}

// refreshWith presses r and feeds the fetch result back into the model
func refreshWith(t *testing.T, m pickerModel) pickerModel {
	t.Helper()
	next, cmd := m.Update(runes("r"))
	m = next.(pickerModel)
	if cmd == nil {
		t.Fatal("refresh should start a fetch")
	}
	return send(t, m, cmd())
}

func TestPickerRefreshFailureKeepsTree(t *testing.T) {
	fetch := func(context.Context) (*tree.Tree, error) { return nil, errors.New("backend unavailable") }
	m := newPickerModel(context.Background(), sampleTree(), "octo/app", fetch)
	m = send(t, m, runes("j"), enter, runes("j"), space)
	before := m.rows

	m = refreshWith(t, m)

	if m.refreshing {
		t.Error("refresh should be over")
	}
	if !strings.Contains(m.message, "backend unavailable") {
		t.Errorf("expected the fetch error in the message, got %q", m.message)
	}
	if len(m.rows) != len(before) {
		t.Fatalf("rows changed after a failed refresh: %d -> %d", len(before), len(m.rows))
	}
	if got := m.tree.SelectedFiles(); len(got) != 1 || got[0] != "src/main.go" {
		t.Errorf("selection changed after a failed refresh: %v", got)
	}
}

func TestPickerRefreshRebuildsTree(t *testing.T) {
	fetch := func(context.Context) (*tree.Tree, error) {
		return tree.Build([]tree.Record{
			{Path: "README.md", Kind: tree.KindFile, Size: 100},
			{Path: "src", Kind: tree.KindDirectory},
			{Path: "src/main.go", Kind: tree.KindFile, Size: 2048},
			{Path: "src/util.go", Kind: tree.KindFile, Size: 512},
			{Path: "src/new.go", Kind: tree.KindFile, Size: 64},
		}), nil
	}
	m := newPickerModel(context.Background(), sampleTree(), "octo/app", fetch)
	m = send(t, m, runes("j"), enter, runes("j"), space)

	m = refreshWith(t, m)

	if len(m.rows) != 5 {
		t.Fatalf("expected src to stay open with the new file, got %d rows", len(m.rows))
	}
	if _, ok := m.tree.Node("src/new.go"); !ok {
		t.Error("expected the new file in the rebuilt tree")
	}
	if got := m.tree.SelectedFiles(); len(got) != 1 || got[0] != "src/main.go" {
		t.Errorf("selection should carry over, got %v", got)
	}
	row, ok := m.current()
	if !ok || row.Path != "src/main.go" {
		t.Errorf("cursor should stay on src/main.go, got %+v", row)
	}
}

func TestPickerRefreshUnavailable(t *testing.T) {
	m := newPickerModel(context.Background(), sampleTree(), "octo/app", nil)
	next, cmd := m.Update(runes("r"))
	m = next.(pickerModel)

	if cmd != nil {
		t.Error("no fetch should start without a fetch function")
	}
	if !strings.Contains(m.message, "not available") {
		t.Errorf("unexpected message %q", m.message)
	}
}
