package curriculum

import (
	"fmt"
	"strings"

	"github.com/p-n-ai/pai-classroom/internal/platform/errs"
)

// DuplicateIDError reports topic ids that occur more than once in a tree.
// Only the first occurrence is indexed; later duplicates (and their subtrees)
// are pruned from the indexed tree.
type DuplicateIDError struct {
	IDs []string
}

func (e *DuplicateIDError) Error() string {
	return fmt.Sprintf("duplicate topic ids in tree: %s", strings.Join(e.IDs, ", "))
}

func (e *DuplicateIDError) Unwrap() error {
	return errs.ErrDataIntegrity
}

// Index is a lookup structure over one topic tree snapshot. It is built once
// per snapshot and never mutated; build a new Index when the tree changes.
type Index struct {
	roots   []TopicNode
	nodes   map[string]*TopicNode
	parents map[string]string
}

// NewIndex indexes every node reachable from roots. When the tree contains
// duplicate ids it still returns a usable index over the pruned tree along
// with a *DuplicateIDError. The caller's slice is not modified.
func NewIndex(roots []TopicNode) (*Index, error) {
	seen := make(map[string]bool)
	var dups []string
	var prune func(in []TopicNode) []TopicNode
	prune = func(in []TopicNode) []TopicNode {
		if len(in) == 0 {
			return nil
		}
		out := make([]TopicNode, 0, len(in))
		for _, n := range in {
			if seen[n.ID] {
				dups = append(dups, n.ID)
				continue
			}
			seen[n.ID] = true
			n.Children = prune(n.Children)
			out = append(out, n)
		}
		return out
	}

	idx := &Index{
		roots:   prune(roots),
		nodes:   make(map[string]*TopicNode, len(seen)),
		parents: make(map[string]string, len(seen)),
	}

	var walk func(n *TopicNode, parentID string, isRoot bool)
	walk = func(n *TopicNode, parentID string, isRoot bool) {
		idx.nodes[n.ID] = n
		if !isRoot {
			idx.parents[n.ID] = parentID
		}
		for i := range n.Children {
			walk(&n.Children[i], n.ID, false)
		}
	}
	for i := range idx.roots {
		walk(&idx.roots[i], "", true)
	}

	if len(dups) > 0 {
		return idx, &DuplicateIDError{IDs: dups}
	}
	return idx, nil
}

// Roots returns the top-level nodes of the indexed tree. Duplicate subtrees
// are not part of it, so every returned node can be looked up.
func (x *Index) Roots() []TopicNode {
	return x.roots
}

// Len returns the number of indexed nodes.
func (x *Index) Len() int {
	return len(x.nodes)
}

// Node looks up a node by id.
func (x *Index) Node(id string) (TopicNode, bool) {
	n, ok := x.nodes[id]
	if !ok {
		return TopicNode{}, false
	}
	return *n, true
}

// Contains reports whether id is part of this snapshot.
func (x *Index) Contains(id string) bool {
	_, ok := x.nodes[id]
	return ok
}

// Parent returns the parent id of a node; ok is false for roots and unknown ids.
func (x *Index) Parent(id string) (string, bool) {
	p, ok := x.parents[id]
	return p, ok
}

// FindPath returns the nodes from a root down to targetID, or nil when the
// target is not in the tree.
func (x *Index) FindPath(targetID string) []TopicNode {
	if !x.Contains(targetID) {
		return nil
	}

	var rev []TopicNode
	id := targetID
	for {
		rev = append(rev, *x.nodes[id])
		parent, ok := x.parents[id]
		if !ok {
			break
		}
		id = parent
	}

	path := make([]TopicNode, len(rev))
	for i, n := range rev {
		path[len(rev)-1-i] = n
	}
	return path
}

// Descendants returns targetID and the ids of every node below it.
func (x *Index) Descendants(targetID string) []string {
	n, ok := x.nodes[targetID]
	if !ok {
		return nil
	}
	var ids []string
	var walk func(n *TopicNode)
	walk = func(n *TopicNode) {
		ids = append(ids, n.ID)
		for i := range n.Children {
			walk(&n.Children[i])
		}
	}
	walk(n)
	return ids
}
