// Package tree maintains selection and expansion state over a repository
// snapshot. Nodes live in an arena keyed by path; parents are found by
// trimming one path segment, never through back pointers.
package tree

import (
	"iter"
	"slices"
	"strings"

	"careerkit/internal/types"
)

// Kind distinguishes files from directories
type Kind int

const (
	KindFile Kind = iota
	KindDirectory
)

func (k Kind) String() string {
	if k == KindDirectory {
		return "directory"
	}
	return "file"
}

// Record is one flat entry used to build a tree
type Record struct {
	Path string
	Kind Kind
	Size int64
}

// Node is a file or directory. Fields are read through accessors so that
// derived state only changes through Tree methods.
type Node struct {
	path          string
	name          string
	kind          Kind
	children      []string
	selected      bool
	indeterminate bool
	expanded      bool
	size          int64
}

func (n *Node) Path() string        { return n.path }
func (n *Node) Name() string        { return n.name }
func (n *Node) Kind() Kind          { return n.kind }
func (n *Node) IsDir() bool         { return n.kind == KindDirectory }
func (n *Node) Selected() bool      { return n.selected }
func (n *Node) Indeterminate() bool { return n.indeterminate }
func (n *Node) Expanded() bool      { return n.expanded }

// Children returns the child paths in display order
func (n *Node) Children() []string { return slices.Clone(n.children) }

// Size returns the byte size of a file. Directories carry no size.
func (n *Node) Size() (int64, bool) {
	if n.kind == KindDirectory {
		return 0, false
	}
	return n.size, true
}

// Tree is an arena of nodes plus the ordered list of root paths
type Tree struct {
	nodes   map[string]*Node
	roots   []string
	orphans []string
}

// Build constructs a tree from an unordered flat listing. Records are sorted
// by path so parents are materialized before their children. A record whose
// parent is missing is attached at the root and reported by Orphans.
func Build(records []Record) *Tree {
	sorted := make([]Record, 0, len(records))
	for _, r := range records {
		r.Path = strings.Trim(r.Path, "/")
		if r.Path != "" {
			sorted = append(sorted, r)
		}
	}
	slices.SortStableFunc(sorted, func(a, b Record) int {
		return strings.Compare(a.Path, b.Path)
	})

	t := &Tree{nodes: make(map[string]*Node, len(sorted))}
	for _, r := range sorted {
		if _, dup := t.nodes[r.Path]; dup {
			continue
		}
		n := &Node{path: r.Path, name: baseName(r.Path), kind: r.Kind}
		if r.Kind == KindFile {
			n.size = r.Size
		}
		t.nodes[r.Path] = n

		parent, hasParent := parentPath(r.Path)
		switch {
		case !hasParent:
			t.roots = append(t.roots, r.Path)
		case t.isDir(parent):
			p := t.nodes[parent]
			p.children = append(p.children, r.Path)
		default:
			t.roots = append(t.roots, r.Path)
			t.orphans = append(t.orphans, r.Path)
		}
	}
	return t
}

// FromRepoFiles converts a backend listing into build records
func FromRepoFiles(files []types.RepoFile) []Record {
	records := make([]Record, 0, len(files))
	for _, f := range files {
		kind := KindFile
		if f.Type == types.RepoFileTree {
			kind = KindDirectory
		}
		records = append(records, Record{Path: f.Path, Kind: kind, Size: f.Size})
	}
	return records
}

// Orphans lists paths attached at the root because their parent was absent
func (t *Tree) Orphans() []string { return slices.Clone(t.orphans) }

// Roots returns the top-level paths in display order
func (t *Tree) Roots() []string { return slices.Clone(t.roots) }

// Len is the number of nodes in the tree
func (t *Tree) Len() int { return len(t.nodes) }

// Node looks up a node by path
func (t *Tree) Node(path string) (*Node, bool) {
	n, ok := t.nodes[path]
	return n, ok
}

// ToggleSelect flips the selection of path. Directories push the new value
// to every descendant; ancestors are then recomputed from their direct
// children. Unknown paths are ignored.
func (t *Tree) ToggleSelect(path string) {
	n, ok := t.nodes[path]
	if !ok {
		return
	}
	t.setSubtree(n, !n.selected)
	t.recomputeAncestors(path)
}

// ToggleExpand flips the expanded flag of a directory
func (t *Tree) ToggleExpand(path string) {
	if n, ok := t.nodes[path]; ok && n.kind == KindDirectory {
		n.expanded = !n.expanded
	}
}

// Reveal expands every ancestor of path so it shows up in VisibleRows
func (t *Tree) Reveal(path string) {
	for p, ok := parentPath(path); ok; p, ok = parentPath(p) {
		if !t.isDir(p) {
			return
		}
		t.nodes[p].expanded = true
	}
}

// ApplyInitialSelection restores a saved selection. Each known path is
// selected along with its subtree, its ancestors are expanded, and ancestor
// state is re-derived: an ancestor becomes selected only once its whole
// subtree is covered, otherwise it is indeterminate. Paths missing from the
// tree are skipped. It returns how many paths were applied.
func (t *Tree) ApplyInitialSelection(paths []string) int {
	applied := 0
	for _, p := range paths {
		p = strings.Trim(p, "/")
		n, ok := t.nodes[p]
		if !ok {
			continue
		}
		t.setSubtree(n, true)
		t.Reveal(p)
		t.recomputeAncestors(p)
		applied++
	}
	return applied
}

// SelectedPaths yields every selected node path in pre-order. The sequence
// is lazy and can be ranged over repeatedly.
func (t *Tree) SelectedPaths() iter.Seq[string] {
	return func(yield func(string) bool) {
		t.Walk(func(n *Node, _ int) bool {
			if n.selected {
				return yield(n.path)
			}
			return true
		})
	}
}

// SelectedSize sums the sizes of files that are selected themselves or sit
// under a selected directory.
func (t *Tree) SelectedSize() int64 {
	var total int64
	t.walkInherited(func(n *Node, inherited bool) {
		if n.kind == KindFile && (inherited || n.selected) {
			total += n.size
		}
	})
	return total
}

// SelectedFiles lists, in pre-order, the files counted by SelectedSize
func (t *Tree) SelectedFiles() []string {
	var files []string
	t.walkInherited(func(n *Node, inherited bool) {
		if n.kind == KindFile && (inherited || n.selected) {
			files = append(files, n.path)
		}
	})
	return files
}

// Walk visits every node in pre-order with its depth. Returning false stops
// the walk.
func (t *Tree) Walk(fn func(n *Node, depth int) bool) {
	for _, root := range t.roots {
		if !t.walk(root, 0, fn) {
			return
		}
	}
}

func (t *Tree) walk(path string, depth int, fn func(*Node, int) bool) bool {
	n := t.nodes[path]
	if !fn(n, depth) {
		return false
	}
	for _, c := range n.children {
		if !t.walk(c, depth+1, fn) {
			return false
		}
	}
	return true
}

func (t *Tree) walkInherited(fn func(n *Node, inherited bool)) {
	var visit func(path string, inherited bool)
	visit = func(path string, inherited bool) {
		n := t.nodes[path]
		fn(n, inherited)
		for _, c := range n.children {
			visit(c, inherited || n.selected)
		}
	}
	for _, root := range t.roots {
		visit(root, false)
	}
}

// setSubtree assigns selected to n and all of its descendants
func (t *Tree) setSubtree(n *Node, selected bool) {
	stack := []*Node{n}
	for len(stack) > 0 {
		cur := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		cur.selected = selected
		cur.indeterminate = false
		for _, c := range cur.children {
			stack = append(stack, t.nodes[c])
		}
	}
}

// recomputeAncestors walks from the parent of path to the root, deriving
// each directory's state from its direct children only
func (t *Tree) recomputeAncestors(path string) {
	for p, ok := parentPath(path); ok; p, ok = parentPath(p) {
		if !t.isDir(p) {
			return
		}
		dir := t.nodes[p]
		all, some := true, false
		for _, c := range dir.children {
			child := t.nodes[c]
			if child.selected {
				some = true
			} else {
				all = false
				if child.indeterminate {
					some = true
				}
			}
		}
		dir.selected = all
		dir.indeterminate = !all && some
	}
}

func (t *Tree) isDir(path string) bool {
	n, ok := t.nodes[path]
	return ok && n.kind == KindDirectory
}

func parentPath(path string) (string, bool) {
	i := strings.LastIndexByte(path, '/')
	if i < 0 {
		return "", false
	}
	return path[:i], true
}

func baseName(path string) string {
	return path[strings.LastIndexByte(path, '/')+1:]
}
