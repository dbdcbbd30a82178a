/*
 * ledgergraph
 *
 * Package graph is the typed node/edge store with schema validation,
 * index maintenance and invariant enforcement (component D, §4.D).
 *
 * Manager holds no lock of its own - the single process-wide lock that
 * guards schema+graph+ledger together (§5, §9 "Global mutable state") is
 * held by the engine package around every call into this package.
 */
package graph

import (
	"sort"

	"github.com/krotik/ledgergraph/idgen"
	"github.com/krotik/ledgergraph/schema"
)

/*
Manager is the in-memory node/edge store for one process (§3 Non-goals:
no durable storage, no sharding).
*/
type Manager struct {
	schema *schema.Registry
	idgen  idgen.Generator

	nodes map[string]*Node

	// outgoing[fromID][toID] is the single edge for that ordered pair.
	outgoing map[string]map[string]*Edge

	// indexes[typeName] is the secondary index for that type's indexed
	// attribute, if it declares one.
	indexes map[string]*typeIndex
}

/*
NewManager creates an empty graph store bound to the given schema
registry.
*/
func NewManager(reg *schema.Registry) *Manager {
	return &Manager{
		schema:   reg,
		idgen:    idgen.Default,
		nodes:    make(map[string]*Node),
		outgoing: make(map[string]map[string]*Edge),
		indexes:  make(map[string]*typeIndex),
	}
}

/*
ensureIndex lazily creates the secondary index for a type the first time
it is needed, once the type's schema is known to declare an indexed
attribute.
*/
func (m *Manager) ensureIndex(typeName string) *typeIndex {
	idx, ok := m.indexes[typeName]
	if ok {
		return idx
	}

	t, err := m.schema.Get(typeName)
	if err != nil {
		return nil
	}

	attr := t.IndexedAttr()
	if attr == "" {
		return nil
	}

	idx = newTypeIndex(attr)
	m.indexes[typeName] = idx
	return idx
}

/*
InsertNode validates attrs against the type's schema, allocates an id and
stores a new node with edge_count 0 (§4.D "insert_node").
*/
func (m *Manager) InsertNode(typeName string, attrs map[string]string) (*Node, error) {
	id, err := m.idgen.NewID()
	if err != nil {
		return nil, err
	}
	return m.insertNode(id, typeName, attrs)
}

/*
InsertNodeWithID is InsertNode with a caller-supplied id rather than a
freshly generated one, used to mirror a NODE_ANNOUNCE gossip message so
every peer agrees on the announced node's id (§4.H "NODE_ANNOUNCE").
*/
func (m *Manager) InsertNodeWithID(id, typeName string, attrs map[string]string) (*Node, error) {
	return m.insertNode(id, typeName, attrs)
}

func (m *Manager) insertNode(id, typeName string, attrs map[string]string) (*Node, error) {
	if err := m.schema.ValidateAttrs(typeName, attrs); err != nil {
		return nil, err
	}

	if _, exists := m.nodes[id]; exists {
		return nil, &Error{Type: ErrDuplicateID, Detail: id}
	}

	copied := make(map[string]string, len(attrs))
	for k, v := range attrs {
		copied[k] = v
	}

	n := &Node{ID: id, Type: typeName, Attrs: copied}
	m.nodes[id] = n

	if idx := m.ensureIndex(typeName); idx != nil {
		idx.insert(n.Attr(idx.attr), id)
	}

	return n.clone(), nil
}

/*
Node returns the node with the given id, or ErrUnknownNode.
*/
func (m *Manager) Node(id string) (*Node, error) {
	n, ok := m.nodes[id]
	if !ok {
		return nil, &Error{Type: ErrUnknownNode, Detail: id}
	}
	return n.clone(), nil
}

/*
HasNode reports whether a node with the given id exists.
*/
func (m *Manager) HasNode(id string) bool {
	_, ok := m.nodes[id]
	return ok
}

/*
InsertEdge validates that both endpoints exist and that no edge already
exists for the ordered pair, then stores the edge and increments
edge_count on both endpoints - by 1 each, even in the self-loop case,
which therefore adds 2 (§4.D "insert_edge").
*/
func (m *Manager) InsertEdge(fromID, toID string, weight int64) (*Edge, error) {
	from, ok := m.nodes[fromID]
	if !ok {
		return nil, &Error{Type: ErrUnknownNode, Detail: fromID}
	}
	to, ok := m.nodes[toID]
	if !ok {
		return nil, &Error{Type: ErrUnknownNode, Detail: toID}
	}

	if m.edgeExists(fromID, toID) {
		return nil, &Error{Type: ErrDuplicateEdge, Detail: fromID + "->" + toID}
	}

	e := &Edge{
		FromID: fromID, ToID: toID,
		FromType: from.Type, ToType: to.Type,
		Weight: weight,
	}

	if m.outgoing[fromID] == nil {
		m.outgoing[fromID] = make(map[string]*Edge)
	}
	m.outgoing[fromID][toID] = e

	from.EdgeCount++
	to.EdgeCount++

	return e.clone(), nil
}

/*
UpdateEdge overwrites the weight of an existing edge. edge_count is
unchanged. Fails with ErrNoSuchEdge if the pair is absent (§4.D
"update_edge").
*/
func (m *Manager) UpdateEdge(fromID, toID string, weight int64) (*Edge, error) {
	e := m.edge(fromID, toID)
	if e == nil {
		return nil, &Error{Type: ErrNoSuchEdge, Detail: fromID + "->" + toID}
	}

	e.Weight = weight

	return e.clone(), nil
}

/*
SetEdgeBlock records the id of the ledger block that most recently set an
edge's weight (§3 "back-reference to the ledger block").
*/
func (m *Manager) SetEdgeBlock(fromID, toID string, blockID uint64) {
	if e := m.edge(fromID, toID); e != nil {
		e.BlockID = blockID
	}
}

/*
UpsertEdge idempotently applies an EdgeData block payload: if the pair
does not exist it is created (endpoints must already exist in the
graph), otherwise its weight is overwritten. Used by ledger.Receive to
mirror a remote EdgeData block locally (§4.G "receive").
*/
func (m *Manager) UpsertEdge(fromID, toID string, weight int64) (*Edge, error) {
	if m.edgeExists(fromID, toID) {
		return m.UpdateEdge(fromID, toID, weight)
	}
	return m.InsertEdge(fromID, toID, weight)
}

func (m *Manager) edge(fromID, toID string) *Edge {
	to, ok := m.outgoing[fromID]
	if !ok {
		return nil
	}
	return to[toID]
}

func (m *Manager) edgeExists(fromID, toID string) bool {
	return m.edge(fromID, toID) != nil
}

/*
Edge returns a copy of the edge for (fromID, toID), or ErrNoSuchEdge.
*/
func (m *Manager) Edge(fromID, toID string) (*Edge, error) {
	e := m.edge(fromID, toID)
	if e == nil {
		return nil, &Error{Type: ErrNoSuchEdge, Detail: fromID + "->" + toID}
	}
	return e.clone(), nil
}

/*
LookupByIndex returns the set of node ids of the given type whose indexed
attribute satisfies op relative to value (§4.D "lookup_by_index"). Returns
nil if the type has no indexed attribute.
*/
func (m *Manager) LookupByIndex(typeName string, op PredOp, value string) []string {
	idx, ok := m.indexes[typeName]
	if !ok {
		return nil
	}
	return idx.lookup(op, value)
}

/*
ScanByType returns every node id of the given type, in no particular
order - used as the fallback when a fetch's root selector has neither an
index nor a $id to use (§4.F "fetch node").
*/
func (m *Manager) ScanByType(typeName string) []string {
	var out []string
	for id, n := range m.nodes {
		if n.Type == typeName {
			out = append(out, id)
		}
	}
	return out
}

/*
JoinPair is one matched (source, target) pair produced by Join.
*/
type JoinPair struct {
	SourceID string
	TargetID string
}

/*
Join returns, for each id in sourceIDs, every outgoing edge whose target
node has type targetType and whose weight satisfies pred (§4.D "join").
Results are ordered ascending by SourceID, ties broken by TargetID.
*/
func (m *Manager) Join(sourceIDs []string, targetType string, pred WeightPredicate) []JoinPair {
	var out []JoinPair

	for _, src := range sourceIDs {
		for toID, e := range m.outgoing[src] {
			if e.ToType != targetType {
				continue
			}
			if !pred.Matches(e.Weight) {
				continue
			}
			out = append(out, JoinPair{SourceID: src, TargetID: toID})
		}
	}

	sort.Slice(out, func(i, j int) bool {
		if out[i].SourceID != out[j].SourceID {
			return out[i].SourceID < out[j].SourceID
		}
		return out[i].TargetID < out[j].TargetID
	})

	return out
}
