// Package menu owns the live tray menu: a keyed node tree reconciled against
// snapshot change-sets, the poll loop that drives it, and the tray backend
// that renders it.
package menu

import (
	"github.com/example/twintray/internal/action"
)

// NodeKind distinguishes how a node renders.
type NodeKind int

const (
	NodeLeaf NodeKind = iota
	NodeSubmenu
	NodeSeparator
)

// Node is one entry in the menu tree. Key is the node's stable identity:
// reconciliation matches nodes by key and mutates them in place, so a node
// whose key survives keeps its position and its widget.
type Node struct {
	Key      string
	Kind     NodeKind
	Label    string
	Tooltip  string
	Disabled bool
	Action   action.Token
	Children []*Node

	version uint64
}

// Version increments whenever a field of the node changes. Widget layers use
// it to skip untouched nodes.
func (n *Node) Version() uint64 {
	return n.version
}

func (n *Node) clone() *Node {
	cp := *n
	cp.Children = cloneNodes(n.Children)
	return &cp
}

func cloneNodes(nodes []*Node) []*Node {
	if nodes == nil {
		return nil
	}
	out := make([]*Node, len(nodes))
	for i, n := range nodes {
		out[i] = n.clone()
	}
	return out
}

// Model is the live menu tree. It is not safe for concurrent use; the runner
// serializes access.
type Model struct {
	nodes    []*Node
	index    map[string]*Node
	degraded bool
	clock    uint64
}

// NewModel returns an empty model.
func NewModel() *Model {
	return &Model{index: make(map[string]*Node)}
}

// Nodes returns an independent copy of the current tree.
func (m *Model) Nodes() []*Node {
	return cloneNodes(m.nodes)
}

// ActionFor returns the action bound to the node with the given key.
func (m *Model) ActionFor(key string) (action.Token, bool) {
	n, ok := m.index[key]
	if !ok || n.Disabled {
		return action.Token{}, false
	}
	return n.Action, true
}

// Degraded reports whether the degraded banner is currently shown.
func (m *Model) Degraded() bool {
	return m.degraded
}

// Keys returns the flattened key sequence of the current tree, parents before
// children. Two trees with equal key sequences have the same structure.
func (m *Model) Keys() []string {
	return flattenKeys(m.nodes, nil)
}

func flattenKeys(nodes []*Node, acc []string) []string {
	for _, n := range nodes {
		acc = append(acc, n.Key)
		acc = flattenKeys(n.Children, acc)
	}
	return acc
}

// apply synchronizes the tree with the desired layout. Nodes whose keys
// already exist are mutated in place and keep their identity; new keys create
// nodes, vanished keys drop them. It returns the keys whose nodes changed and
// whether the structure (membership or order) changed.
func (m *Model) apply(desired []*Node) (changed []string, structural bool) {
	prevKeys := m.Keys()

	next := make([]*Node, 0, len(desired))
	for _, want := range desired {
		node, nodeChanged, childStructural := m.applyNode(want)
		changed = append(changed, nodeChanged...)
		structural = structural || childStructural
		next = append(next, node)
	}
	m.nodes = next

	m.reindex()
	if !equalKeys(prevKeys, m.Keys()) {
		structural = true
	}
	return changed, structural
}

// applyNode folds a desired node into the tree, reusing the existing node for
// the key when present. The returned keys cover the whole subtree, so a
// touched child surfaces even when its parent is untouched.
func (m *Model) applyNode(want *Node) (node *Node, changed []string, structural bool) {
	existing, ok := m.index[want.Key]
	if !ok {
		m.clock++
		want.version = m.clock
		changed = append(changed, want.Key)
		children := make([]*Node, 0, len(want.Children))
		for _, wantChild := range want.Children {
			child, childChanged, _ := m.applyNode(wantChild)
			changed = append(changed, childChanged...)
			children = append(children, child)
		}
		want.Children = children
		return want, changed, true
	}

	if existing.Label != want.Label ||
		existing.Tooltip != want.Tooltip ||
		existing.Disabled != want.Disabled ||
		existing.Kind != want.Kind ||
		existing.Action != want.Action {
		existing.Label = want.Label
		existing.Tooltip = want.Tooltip
		existing.Disabled = want.Disabled
		existing.Kind = want.Kind
		existing.Action = want.Action
		m.clock++
		existing.version = m.clock
		changed = append(changed, existing.Key)
	}

	children := make([]*Node, 0, len(want.Children))
	for _, wantChild := range want.Children {
		child, childChanged, childStructural := m.applyNode(wantChild)
		changed = append(changed, childChanged...)
		structural = structural || childStructural
		children = append(children, child)
	}
	existing.Children = children

	return existing, changed, structural
}

func (m *Model) reindex() {
	m.index = make(map[string]*Node)
	indexNodes(m.index, m.nodes)
}

func indexNodes(index map[string]*Node, nodes []*Node) {
	for _, n := range nodes {
		index[n.Key] = n
		indexNodes(index, n.Children)
	}
}

func equalKeys(a, b []string) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}
