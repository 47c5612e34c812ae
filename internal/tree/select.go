package tree

import (
	"fmt"

	"careerkit/internal/types"

	"github.com/gobwas/glob"
	"github.com/sahilm/fuzzy"
)

// Row is one line of the expanded tree view
type Row struct {
	Path          string
	Name          string
	Depth         int
	Kind          Kind
	Size          int64
	Selected      bool
	Indeterminate bool
	Expanded      bool
}

// VisibleRows flattens the tree in pre-order, descending only into
// expanded directories
func (t *Tree) VisibleRows() []Row {
	var rows []Row
	var visit func(path string, depth int)
	visit = func(path string, depth int) {
		n := t.nodes[path]
		rows = append(rows, Row{
			Path:          n.path,
			Name:          n.name,
			Depth:         depth,
			Kind:          n.kind,
			Size:          n.size,
			Selected:      n.selected,
			Indeterminate: n.indeterminate,
			Expanded:      n.expanded,
		})
		if n.expanded {
			for _, c := range n.children {
				visit(c, depth+1)
			}
		}
	}
	for _, root := range t.roots {
		visit(root, 0)
	}
	return rows
}

// SelectGlob selects every file whose path matches pattern ("**" crosses
// directory boundaries, "*" does not). It returns the number of files newly
// selected.
func (t *Tree) SelectGlob(pattern string) (int, error) {
	g, err := glob.Compile(pattern, '/')
	if err != nil {
		return 0, fmt.Errorf("invalid glob pattern %q: %w", pattern, err)
	}

	var matched []*Node
	t.walkInherited(func(n *Node, inherited bool) {
		if n.kind == KindFile && !inherited && !n.selected && g.Match(n.path) {
			matched = append(matched, n)
		}
	})
	for _, n := range matched {
		n.selected = true
		t.recomputeAncestors(n.path)
	}
	return len(matched), nil
}

// Find ranks node paths against a fuzzy query, best match first
func (t *Tree) Find(query string) []string {
	if query == "" {
		return nil
	}
	var paths []string
	t.Walk(func(n *Node, _ int) bool {
		paths = append(paths, n.path)
		return true
	})

	matches := fuzzy.Find(query, paths)
	result := make([]string, 0, len(matches))
	for _, m := range matches {
		result = append(result, m.Str)
	}
	return result
}

// Listing flattens the whole tree, expanded or not, into a printable view
func (t *Tree) Listing(repository, branch string) types.FileListing {
	listing := types.FileListing{
		Repository: repository,
		Branch:     branch,
		Orphans:    t.Orphans(),
	}
	t.Walk(func(n *Node, depth int) bool {
		mark := types.MarkNone
		switch {
		case n.selected:
			mark = types.MarkSelected
		case n.indeterminate:
			mark = types.MarkPartial
		}
		listing.Entries = append(listing.Entries, types.ListingEntry{
			Path:      n.path,
			Name:      n.name,
			Depth:     depth,
			Directory: n.kind == KindDirectory,
			Mark:      mark,
			Size:      n.size,
		})
		return true
	})
	listing.SelectedFiles = len(t.SelectedFiles())
	listing.SelectedSize = t.SelectedSize()
	return listing
}
