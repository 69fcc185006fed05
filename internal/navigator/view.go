// Package navigator drives a browsable topic tree: curriculum switching,
// expand/collapse, path-aware selection and a scoped fetch per selection in
// which only the most recently issued request is ever applied.
package navigator

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"github.com/p-n-ai/pai-classroom/internal/attempt"
	"github.com/p-n-ai/pai-classroom/internal/curriculum"
	"github.com/p-n-ai/pai-classroom/internal/platform/errs"
)

// Scope is what a fetch is issued for: the selected node plus active filters.
type Scope struct {
	CurriculumID string
	NodeID       string
	Subtree      []string // NodeID and the ids of every node below it
	Filters      attempt.Filters
}

// FetchFunc loads the data shown for a selection. A fetch may return usable
// data together with an error wrapping errs.ErrDataIntegrity; the data is
// applied and the error is reported as an integrity warning.
type FetchFunc[T any] func(ctx context.Context, scope Scope) (T, error)

// Result reports what happened to one issued fetch.
type Result[T any] struct {
	Seq       uint64
	Scope     Scope
	Applied   bool // false when a later request superseded this one
	Data      T
	Err       error
	Integrity error
}

// Snapshot is the render state of a view.
type Snapshot[T any] struct {
	CurriculumID string
	Tree         []curriculum.TopicNode
	Expanded     []string
	SelectedID   string
	Path         []curriculum.TopicNode
	Filters      attempt.Filters
	Data         T
	Err          error
	Integrity    error // duplicate tree ids and records left out of Data
	Loading      bool
}

// View is one navigation instance. Views share no mutable state; each owns
// its tree snapshot, expansion set, selection and request sequence.
type View[T any] struct {
	catalog curriculum.Catalog
	fetch   FetchFunc[T]

	mu            sync.Mutex
	curriculumID  string
	index         *curriculum.Index
	treeIntegrity error
	expansion     *curriculum.Expansion
	selected      string
	filters       attempt.Filters
	treeSeq       uint64
	seq           uint64 // latest issued fetch
	appliedSeq    uint64
	data          T
	err           error
	dataIntegrity error
}

// NewView creates a view over catalog that loads selection data with fetch.
func NewView[T any](catalog curriculum.Catalog, fetch FetchFunc[T]) *View[T] {
	idx, _ := curriculum.NewIndex(nil)
	return &View[T]{
		catalog:   catalog,
		fetch:     fetch,
		index:     idx,
		expansion: curriculum.NewExpansion(),
	}
}

// Curriculums lists the curriculums the view can switch to.
func (v *View[T]) Curriculums(ctx context.Context) ([]curriculum.Curriculum, error) {
	list, err := v.catalog.ListCurriculums(ctx)
	if err != nil {
		return nil, transportError("list curriculums", err)
	}
	return list, nil
}

// SwitchCurriculum replaces the tree. Selection, expansion and any pending
// fetch are dropped whether or not the new tree loads. A tree with duplicate
// ids still loads; the duplicates are pruned and reported in
// Snapshot.Integrity.
func (v *View[T]) SwitchCurriculum(ctx context.Context, curriculumID string) error {
	v.mu.Lock()
	v.treeSeq++
	mySeq := v.treeSeq
	v.mu.Unlock()

	roots, fetchErr := v.catalog.TopicTree(ctx, curriculumID)

	v.mu.Lock()
	defer v.mu.Unlock()
	if mySeq != v.treeSeq {
		slog.Debug("discarding stale topic tree", "curriculum_id", curriculumID, "seq", mySeq, "latest", v.treeSeq)
		return nil
	}

	v.curriculumID = curriculumID
	v.selected = ""
	v.expansion.Reset()
	v.seq++
	v.appliedSeq = v.seq
	var zero T
	v.data = zero
	v.err = nil
	v.dataIntegrity = nil
	v.treeIntegrity = nil

	if fetchErr != nil {
		v.index, _ = curriculum.NewIndex(nil)
		v.err = transportError("load topic tree "+curriculumID, fetchErr)
		return v.err
	}

	idx, err := curriculum.NewIndex(roots)
	if err != nil {
		slog.Warn("topic tree failed integrity checks",
			"curriculum_id", curriculumID,
			"error", err,
		)
		v.treeIntegrity = fmt.Errorf("load topic tree %s: %w", curriculumID, err)
	}
	v.index = idx
	return nil
}

// Select selects a node, expands the path leading to it and fetches its data.
// The returned error is set only when the node is not in the current tree;
// fetch failures are reported in Result.Err.
func (v *View[T]) Select(ctx context.Context, nodeID string) (Result[T], error) {
	v.mu.Lock()
	if !v.index.Contains(nodeID) {
		v.mu.Unlock()
		return Result[T]{}, fmt.Errorf("select topic %s: %w", nodeID, errs.ErrNotFound)
	}
	v.selected = nodeID
	v.expansion.ExpandPath(v.index.FindPath(nodeID))
	seq, scope := v.issueLocked()
	v.mu.Unlock()

	return v.run(ctx, seq, scope), nil
}

// SetFilters changes the active filters and re-issues the fetch for the
// current selection. Without a selection only the filters are stored.
func (v *View[T]) SetFilters(ctx context.Context, filters attempt.Filters) Result[T] {
	v.mu.Lock()
	v.filters = filters
	if v.selected == "" {
		v.mu.Unlock()
		return Result[T]{}
	}
	seq, scope := v.issueLocked()
	v.mu.Unlock()

	return v.run(ctx, seq, scope)
}

// Refresh re-issues the fetch for the current selection.
func (v *View[T]) Refresh(ctx context.Context) Result[T] {
	v.mu.Lock()
	if v.selected == "" {
		v.mu.Unlock()
		return Result[T]{}
	}
	seq, scope := v.issueLocked()
	v.mu.Unlock()

	return v.run(ctx, seq, scope)
}

// Toggle expands or collapses a node and reports whether it is now expanded.
// Leaves and unknown ids are left alone.
func (v *View[T]) Toggle(nodeID string) bool {
	v.mu.Lock()
	defer v.mu.Unlock()

	node, ok := v.index.Node(nodeID)
	if !ok {
		return false
	}
	v.expansion.Toggle(node)
	return v.expansion.IsExpanded(nodeID)
}

// Snapshot returns the current render state.
func (v *View[T]) Snapshot() Snapshot[T] {
	v.mu.Lock()
	defer v.mu.Unlock()

	s := Snapshot[T]{
		CurriculumID: v.curriculumID,
		Tree:         v.index.Roots(),
		Expanded:     v.expansion.IDs(),
		SelectedID:   v.selected,
		Filters:      v.filters,
		Data:         v.data,
		Err:          v.err,
		Integrity:    errors.Join(v.treeIntegrity, v.dataIntegrity),
		Loading:      v.appliedSeq != v.seq,
	}
	if v.selected != "" {
		s.Path = v.index.FindPath(v.selected)
	}
	return s
}

func (v *View[T]) issueLocked() (uint64, Scope) {
	v.seq++
	return v.seq, Scope{
		CurriculumID: v.curriculumID,
		NodeID:       v.selected,
		Subtree:      v.index.Descendants(v.selected),
		Filters:      v.filters,
	}
}

// run performs the fetch without holding the lock and applies the response
// only if no later request was issued in the meantime.
func (v *View[T]) run(ctx context.Context, seq uint64, scope Scope) Result[T] {
	data, err := v.fetch(ctx, scope)
	var integrity error
	switch {
	case err == nil:
	case errors.Is(err, errs.ErrDataIntegrity) && !errors.Is(err, errs.ErrTransport):
		integrity = fmt.Errorf("fetch topic %s: %w", scope.NodeID, err)
		err = nil
	default:
		err = transportError("fetch topic "+scope.NodeID, err)
	}

	v.mu.Lock()
	defer v.mu.Unlock()

	res := Result[T]{Seq: seq, Scope: scope, Data: data, Err: err, Integrity: integrity}
	if seq != v.seq {
		slog.Debug("discarding stale response",
			"topic_id", scope.NodeID,
			"seq", seq,
			"latest", v.seq,
		)
		return res
	}

	res.Applied = true
	v.appliedSeq = seq
	if err != nil {
		var zero T
		v.data = zero
		res.Data = zero
		v.err = err
		v.dataIntegrity = nil
		return res
	}
	v.data = data
	v.err = nil
	v.dataIntegrity = integrity
	return res
}

func transportError(op string, err error) error {
	if errors.Is(err, errs.ErrTransport) {
		return fmt.Errorf("%s: %w", op, err)
	}
	return fmt.Errorf("%s: %w: %w", op, errs.ErrTransport, err)
}
