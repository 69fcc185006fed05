package curriculum

import "sort"

// Expansion is the set of expanded node ids for one tree view. Only nodes
// with children are ever members.
type Expansion struct {
	ids map[string]struct{}
}

// NewExpansion returns an empty expansion set.
func NewExpansion() *Expansion {
	return &Expansion{ids: make(map[string]struct{})}
}

// Toggle flips membership of node. Leaves are ignored.
func (e *Expansion) Toggle(node TopicNode) {
	if !node.HasChildren() {
		return
	}
	if _, ok := e.ids[node.ID]; ok {
		delete(e.ids, node.ID)
		return
	}
	e.ids[node.ID] = struct{}{}
}

// ExpandPath adds every node of path that has children. Existing expansions
// of other branches are kept.
func (e *Expansion) ExpandPath(path []TopicNode) {
	for _, n := range path {
		if n.HasChildren() {
			e.ids[n.ID] = struct{}{}
		}
	}
}

// Reset clears the set. Only called when the tree is replaced.
func (e *Expansion) Reset() {
	clear(e.ids)
}

// IsExpanded reports whether id is expanded.
func (e *Expansion) IsExpanded(id string) bool {
	_, ok := e.ids[id]
	return ok
}

// Len returns the number of expanded nodes.
func (e *Expansion) Len() int {
	return len(e.ids)
}

// IDs returns the expanded ids in sorted order.
func (e *Expansion) IDs() []string {
	out := make([]string, 0, len(e.ids))
	for id := range e.ids {
		out = append(out, id)
	}
	sort.Strings(out)
	return out
}
