package graph

import (
	"errors"
	"testing"

	"github.com/krotik/ledgergraph/schema"
)

func newTestManager(t *testing.T) *Manager {
	reg := schema.NewRegistry()

	if err := reg.Define(&schema.Type{
		Name:       "User",
		Attributes: []schema.Attribute{{Name: "name", Indexed: true}},
	}); err != nil {
		t.Fatal(err)
	}

	if err := reg.Define(&schema.Type{
		Name:       "Playlist",
		Attributes: []schema.Attribute{{Name: "name"}},
	}); err != nil {
		t.Fatal(err)
	}

	return NewManager(reg)
}

func TestInsertNodeAndEdgeCount(t *testing.T) {
	m := newTestManager(t)

	u, err := m.InsertNode("User", map[string]string{"name": "John"})
	if err != nil {
		t.Fatal(err)
	}
	p, err := m.InsertNode("Playlist", map[string]string{"name": "Party mix"})
	if err != nil {
		t.Fatal(err)
	}

	if _, err := m.InsertEdge(u.ID, p.ID, 70); err != nil {
		t.Fatal(err)
	}

	u2, _ := m.Node(u.ID)
	p2, _ := m.Node(p.ID)

	if u2.EdgeCount != 1 || p2.EdgeCount != 1 {
		t.Errorf("expected edge_count 1 on both ends, got %v/%v", u2.EdgeCount, p2.EdgeCount)
	}
}

func TestSelfLoopEdgeCount(t *testing.T) {
	m := newTestManager(t)

	u, _ := m.InsertNode("User", map[string]string{"name": "Loner"})

	if _, err := m.InsertEdge(u.ID, u.ID, 1); err != nil {
		t.Fatal(err)
	}

	u2, _ := m.Node(u.ID)
	if u2.EdgeCount != 2 {
		t.Errorf("expected self-loop to add 2 to edge_count, got %v", u2.EdgeCount)
	}
}

func TestDuplicateEdgeRejected(t *testing.T) {
	m := newTestManager(t)
	u, _ := m.InsertNode("User", map[string]string{"name": "John"})
	p, _ := m.InsertNode("Playlist", map[string]string{"name": "Mix"})

	if _, err := m.InsertEdge(u.ID, p.ID, 70); err != nil {
		t.Fatal(err)
	}

	_, err := m.InsertEdge(u.ID, p.ID, 10)
	var ge *Error
	if !errors.As(err, &ge) || ge.Type != ErrDuplicateEdge {
		t.Errorf("expected DuplicateEdge, got %v", err)
	}
}

func TestUpdateEdgePreservesEdgeCount(t *testing.T) {
	m := newTestManager(t)
	u, _ := m.InsertNode("User", map[string]string{"name": "John"})
	p, _ := m.InsertNode("Playlist", map[string]string{"name": "Mix"})
	m.InsertEdge(u.ID, p.ID, 70)

	e, err := m.UpdateEdge(u.ID, p.ID, 30)
	if err != nil {
		t.Fatal(err)
	}
	if e.Weight != 30 {
		t.Errorf("expected updated weight 30, got %v", e.Weight)
	}

	u2, _ := m.Node(u.ID)
	if u2.EdgeCount != 1 {
		t.Errorf("update must not change edge_count, got %v", u2.EdgeCount)
	}
}

func TestUpdateMissingEdge(t *testing.T) {
	m := newTestManager(t)
	u, _ := m.InsertNode("User", map[string]string{"name": "John"})
	p, _ := m.InsertNode("Playlist", map[string]string{"name": "Mix"})

	_, err := m.UpdateEdge(u.ID, p.ID, 1)
	var ge *Error
	if !errors.As(err, &ge) || ge.Type != ErrNoSuchEdge {
		t.Errorf("expected NoSuchEdge, got %v", err)
	}
}

func TestLookupByIndexBoundaries(t *testing.T) {
	m := newTestManager(t)
	a, _ := m.InsertNode("User", map[string]string{"name": "Alice"})
	b, _ := m.InsertNode("User", map[string]string{"name": "Bob"})
	c, _ := m.InsertNode("User", map[string]string{"name": "Carl"})

	ids := m.LookupByIndex("User", OpEq, "Bob")
	if len(ids) != 1 || ids[0] != b.ID {
		t.Errorf("unexpected Eq result: %v", ids)
	}

	le := m.LookupByIndex("User", OpLe, "Bob")
	wantSet := map[string]bool{a.ID: true, b.ID: true}
	if len(le) != 2 {
		t.Errorf("expected 2 results for <=, got %v", le)
	}
	for _, id := range le {
		if !wantSet[id] {
			t.Errorf("unexpected id %v in <= Bob result", id)
		}
	}

	gt := m.LookupByIndex("User", OpGt, "Bob")
	if len(gt) != 1 || gt[0] != c.ID {
		t.Errorf("unexpected > result: %v", gt)
	}
}

func TestJoinOrderingAndPredicate(t *testing.T) {
	m := newTestManager(t)
	u1, _ := m.InsertNode("User", map[string]string{"name": "A"})
	u2, _ := m.InsertNode("User", map[string]string{"name": "B"})
	p1, _ := m.InsertNode("Playlist", map[string]string{"name": "P1"})
	p2, _ := m.InsertNode("Playlist", map[string]string{"name": "P2"})

	m.InsertEdge(u1.ID, p1.ID, 70)
	m.InsertEdge(u2.ID, p2.ID, 10)

	pairs := m.Join([]string{u1.ID, u2.ID}, "Playlist", WeightPredicate{Op: OpGt, Value: 50})

	if len(pairs) != 1 || pairs[0].SourceID != u1.ID || pairs[0].TargetID != p1.ID {
		t.Errorf("unexpected join result: %+v", pairs)
	}
}

func TestInsertNodeSchemaMismatch(t *testing.T) {
	m := newTestManager(t)

	_, err := m.InsertNode("User", map[string]string{"wrong": "attr"})
	if err == nil {
		t.Error("expected schema mismatch error")
	}
}

func TestInsertEdgeUnknownNode(t *testing.T) {
	m := newTestManager(t)
	u, _ := m.InsertNode("User", map[string]string{"name": "John"})

	_, err := m.InsertEdge(u.ID, "doesnotexist", 1)
	var ge *Error
	if !errors.As(err, &ge) || ge.Type != ErrUnknownNode {
		t.Errorf("expected UnknownNode, got %v", err)
	}
}
