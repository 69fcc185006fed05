package curriculum

import (
	"slices"
	"testing"
)

func TestExpansion_Toggle(t *testing.T) {
	idx, _ := NewIndex(sampleTree())
	e := NewExpansion()

	alg, _ := idx.Node("alg")
	e.Toggle(alg)
	if !e.IsExpanded("alg") {
		t.Fatal("Toggle should expand a collapsed node")
	}
	e.Toggle(alg)
	if e.IsExpanded("alg") {
		t.Fatal("Toggle should collapse an expanded node")
	}
}

func TestExpansion_ToggleLeafIsNoop(t *testing.T) {
	idx, _ := NewIndex(sampleTree())
	e := NewExpansion()

	lin, _ := idx.Node("lin")
	e.Toggle(lin)
	if e.Len() != 0 {
		t.Errorf("Len() = %d after toggling a leaf, want 0", e.Len())
	}
}

func TestExpansion_ExpandPath(t *testing.T) {
	idx, _ := NewIndex(sampleTree())
	e := NewExpansion()

	p2, _ := idx.Node("p2")
	e.Toggle(p2)

	e.ExpandPath(idx.FindPath("fact"))

	want := []string{"alg", "p1", "p2", "quad"}
	if got := e.IDs(); !slices.Equal(got, want) {
		t.Errorf("IDs() = %v, want %v (leaf skipped, other branch kept)", got, want)
	}
}

func TestExpansion_ExpandPathIdempotent(t *testing.T) {
	idx, _ := NewIndex(sampleTree())
	path := idx.FindPath("quad")

	once := NewExpansion()
	once.ExpandPath(path)

	twice := NewExpansion()
	twice.ExpandPath(path)
	twice.ExpandPath(path)

	if !slices.Equal(once.IDs(), twice.IDs()) {
		t.Errorf("ExpandPath twice = %v, once = %v", twice.IDs(), once.IDs())
	}
}

func TestExpansion_Reset(t *testing.T) {
	idx, _ := NewIndex(sampleTree())
	e := NewExpansion()
	e.ExpandPath(idx.FindPath("fact"))

	e.Reset()
	if e.Len() != 0 {
		t.Errorf("Len() = %d after Reset, want 0", e.Len())
	}
}
