package eql

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"strconv"

	"github.com/krotik/ledgergraph/graph"
	"github.com/krotik/ledgergraph/ledger"
	"github.com/krotik/ledgergraph/result"
	"github.com/krotik/ledgergraph/schema"
)

/*
Executor binds parsed commands to the schema, graph and ledger
collaborators and renders their effect as a result.Set (component F,
§4.F). It holds no lock of its own; the caller (the engine package) is
expected to hold the composite lock for the duration of Execute (§9
"Global mutable state").
*/
type Executor struct {
	Schema *schema.Registry
	Graph  *graph.Manager
	Ledger *ledger.Ledger

	// Publish hands a freshly appended local block off for broadcast
	// (§4.H). May be nil, in which case blocks are simply not published -
	// the dispatcher is an injected, out-of-scope collaborator (§1).
	Publish func(*ledger.Block)
}

/*
NewExecutor builds an Executor over the given collaborators.
*/
func NewExecutor(reg *schema.Registry, gm *graph.Manager, led *ledger.Ledger, publish func(*ledger.Block)) *Executor {
	return &Executor{Schema: reg, Graph: gm, Ledger: led, Publish: publish}
}

/*
Execute parses and runs a single command line, never returning an error
directly - every failure is rendered as the single-row error shape §7
requires.
*/
func (ex *Executor) Execute(ctx context.Context, line string) result.Set {
	cmd, err := Parse(line)
	if err != nil {
		return result.ErrorRow(err.Error())
	}

	switch c := cmd.(type) {
	case *DefineCmd:
		return ex.execDefine(c)
	case *AddNodeCmd:
		return ex.execAddNode(c)
	case *AddConnCmd:
		return ex.execConn(ctx, c.FromType, c.FromSel, c.ToType, c.ToSel, c.Weight, false)
	case *UpdConnCmd:
		return ex.execConn(ctx, c.FromType, c.FromSel, c.ToType, c.ToSel, c.Weight, true)
	case *FetchNodeCmd:
		return ex.execFetchNode(c)
	case *FetchChainCmd:
		return ex.execFetchChain()
	default:
		return result.ErrorRow(fmt.Sprintf("unhandled command %T", cmd))
	}
}

/*
execDefine registers a node type and echoes its declared attribute list
as a single row, each value rendered "*" regardless of indexed status
(§4.C "define node").
*/
func (ex *Executor) execDefine(c *DefineCmd) result.Set {
	attrs := make([]schema.Attribute, len(c.Attrs))
	for i, a := range c.Attrs {
		attrs[i] = schema.Attribute{Name: a.Name, Indexed: a.Indexed}
	}

	preds := make([]schema.Predicate, len(c.Predicate))
	for i, p := range c.Predicate {
		preds[i] = schema.Predicate{Attribute: p.Attribute, Value: p.Value}
	}

	t := &schema.Type{Name: c.TypeName, Attributes: attrs, Predicate: preds}

	if err := ex.Schema.Define(t); err != nil {
		return result.ErrorRow(err.Error())
	}

	values := schema.DefineResultRow(t)

	row := result.NewRow()
	for _, name := range t.AttrNames() {
		row.Set(name, values[name])
	}

	return result.Set{row}
}

func (ex *Executor) execAddNode(c *AddNodeCmd) result.Set {
	attrs := make(map[string]string, len(c.Attrs))
	for _, a := range c.Attrs {
		attrs[a.Name] = a.Value
	}

	n, err := ex.Graph.InsertNode(c.TypeName, attrs)
	if err != nil {
		return result.ErrorRow(err.Error())
	}

	row := result.NewRow()
	ex.writeNodeRow(row, n, "")

	return result.Set{row}
}

/*
writeNodeRow sets every key a node contributes to a result row: the
pseudo-attributes $name, $id, $edges plus every declared schema
attribute, under the given dotted prefix (§4.F "Row shape").
*/
func (ex *Executor) writeNodeRow(row *result.Row, n *graph.Node, prefix string) {
	row.Set(prefixKey(prefix, "$name"), n.Type)
	row.Set(prefixKey(prefix, "$id"), n.ID)
	row.Set(prefixKey(prefix, "$edges"), strconv.Itoa(n.EdgeCount))

	if t, err := ex.Schema.Get(n.Type); err == nil {
		for _, name := range t.AttrNames() {
			row.Set(prefixKey(prefix, name), n.Attr(name))
		}
	}
}

func prefixKey(prefix, key string) string {
	if prefix == "" {
		return key
	}
	return prefix + "." + key
}

/*
execConn resolves both endpoints, appends a ledger block carrying the
edge change, and only then applies it to the graph. The ledger check is
deliberately run before the (cheap, already-validated) graph mutation so
a validator without standing, or without the required edge-count margin,
never pays for a pointless insert/update (§4.G "append_local").
*/
func (ex *Executor) execConn(ctx context.Context, fromType string, fromSel Selector, toType string, toSel Selector, weight int64, update bool) result.Set {
	fromIDs := ex.resolveSelector(fromType, fromSel)
	if len(fromIDs) != 1 {
		return result.ErrorRow(fmt.Sprintf("selector for %s must match exactly one node, matched %d", fromType, len(fromIDs)))
	}
	toIDs := ex.resolveSelector(toType, toSel)
	if len(toIDs) != 1 {
		return result.ErrorRow(fmt.Sprintf("selector for %s must match exactly one node, matched %d", toType, len(toIDs)))
	}

	fromID, toID := fromIDs[0], toIDs[0]

	_, edgeErr := ex.Graph.Edge(fromID, toID)
	exists := edgeErr == nil

	if update && !exists {
		return result.ErrorRow(edgeErr.Error())
	}
	if !update && exists {
		return result.ErrorRow(fmt.Sprintf("an edge from %s to %s already exists", fromID, toID))
	}

	block, err := ex.Ledger.AppendLocal(ctx, ledger.Data{Type: ledger.DataEdge, FromID: fromID, ToID: toID, Weight: weight})
	if err != nil {
		return result.ErrorRow(err.Error())
	}

	var e *graph.Edge
	if update {
		e, err = ex.Graph.UpdateEdge(fromID, toID, weight)
	} else {
		e, err = ex.Graph.InsertEdge(fromID, toID, weight)
	}
	if err != nil {
		// The block was already recorded; there is no cross-system
		// rollback (§9 "no delete command"). This should not happen in
		// practice since both endpoints and the edge's existence were
		// just checked above.
		return result.ErrorRow(err.Error())
	}
	ex.Graph.SetEdgeBlock(fromID, toID, block.ID)

	if ex.Publish != nil {
		ex.Publish(block)
	}

	row := result.NewRow().
		Set("$from_id", e.FromID).
		Set("$to_id", e.ToID).
		Set("$weight", strconv.FormatInt(e.Weight, 10)).
		Set("$block_id", strconv.FormatUint(block.ID, 10))

	return result.Set{row}
}

/*
execFetchNode compiles and runs the left-deep join plan: the root
selector yields a starting frontier of single-node paths, then each join
step replaces the frontier with every surviving (path, matched target)
combination (§4.F "fetch node").
*/
func (ex *Executor) execFetchNode(c *FetchNodeCmd) result.Set {
	roots := ex.resolveSelector(c.RootType, c.RootSel)
	if len(roots) == 0 {
		return result.Set{}
	}

	frontier := make([][]string, len(roots))
	for i, id := range roots {
		frontier[i] = []string{id}
	}

	typeNames := make([]string, len(c.Joins)+1)
	typeNames[0] = c.RootType
	for i, j := range c.Joins {
		typeNames[i+1] = j.TargetType
	}

	for _, step := range c.Joins {
		var next [][]string
		for _, path := range frontier {
			last := path[len(path)-1]
			for _, pair := range ex.Graph.Join([]string{last}, step.TargetType, step.Pred) {
				extended := append(append([]string{}, path...), pair.TargetID)
				next = append(next, extended)
			}
		}
		frontier = next
	}

	var rows []*result.Row
	for _, path := range frontier {
		row := result.NewRow()
		for depth, id := range path {
			n, err := ex.Graph.Node(id)
			if err != nil {
				continue
			}
			prefix := ""
			if depth > 0 {
				prefix = joinPrefix(typeNames, depth)
			}
			ex.writeNodeRow(row, n, prefix)
		}
		rows = append(rows, row)
	}

	if len(rows) == 0 {
		// The root selector matched at least one node but every path died
		// in a join step: a single empty row signals "matched but joined
		// to nothing", distinct from the root matching nothing at all
		// (resolved open question, see DESIGN.md).
		return result.Set{result.NewRow()}
	}

	return result.Set(rows)
}

/*
joinPrefix renders the dotted type-name prefix for a path position at
the given depth: "T1" at depth 1, "T1.T2" at depth 2, and so on (§4.F
"Row shape").
*/
func joinPrefix(typeNames []string, depth int) string {
	prefix := typeNames[1]
	for i := 2; i <= depth; i++ {
		prefix += "." + typeNames[i]
	}
	return prefix
}

/*
execFetchChain renders the whole chain in order, one row per block, with
the fixed key set §4.F "fetch connection chain" requires.
*/
func (ex *Executor) execFetchChain() result.Set {
	blocks := ex.Ledger.Blocks()
	rows := make([]*result.Row, len(blocks))

	for i, b := range blocks {
		dj, err := blockDataJSON(b.Data)
		if err != nil {
			return result.ErrorRow(err.Error())
		}

		rows[i] = result.NewRow().
			Set("signature", b.Signature).
			Set("difficulty", strconv.Itoa(b.Difficulty)).
			Set("validator", b.Validator).
			Set("id", strconv.FormatUint(b.ID, 10)).
			Set("data", string(dj)).
			Set("timestamp", strconv.FormatInt(b.Timestamp, 10)).
			Set("previous_hash", b.PreviousHash).
			Set("hash", b.Hash)
	}

	return result.Set(rows)
}

/*
blockDataJSON renders a block's data payload the same shape
ledger.canonicalBytes hashes over (data_type discriminator plus every
variant field, null where unused) - not exported by ledger, so rebuilt
here from Data's exported fields (§3 "Block data tagged union").
*/
func blockDataJSON(d ledger.Data) ([]byte, error) {
	m := map[string]interface{}{
		"data_type":  string(d.Type),
		"public_key": nil,
		"account_id": nil,
		"from_id":    nil,
		"to_id":      nil,
		"weight":     nil,
	}

	switch d.Type {
	case ledger.DataValidator:
		m["public_key"] = d.PublicKey
		m["account_id"] = d.AccountID
	case ledger.DataEdge:
		m["from_id"] = d.FromID
		m["to_id"] = d.ToID
		m["weight"] = d.Weight
	}

	return json.Marshal(m)
}

/*
resolveSelector returns the node ids of typeName matching sel, preferring
the type's secondary index when any of the selector's conditions names
the indexed attribute (the first such condition drives the lookup; all
conditions are then checked on the candidates), falling back to a full scan otherwise (§4.F "fetch
node": "via index, via $id, or via full scan"). Results are sorted so
repeated fetches are deterministic.
*/
func (ex *Executor) resolveSelector(typeName string, sel Selector) []string {
	if sel.ByID != "" {
		n, err := ex.Graph.Node(sel.ByID)
		if err != nil || n.Type != typeName {
			return nil
		}
		return []string{sel.ByID}
	}

	t, err := ex.Schema.Get(typeName)
	if err != nil {
		return nil
	}
	indexedAttr := t.IndexedAttr()

	var candidates []string
	usedIndex := false
	for _, c := range sel.Conds {
		if indexedAttr != "" && c.Attr == indexedAttr {
			candidates = ex.Graph.LookupByIndex(typeName, c.Op, c.Value)
			usedIndex = true
			break
		}
	}
	if !usedIndex {
		candidates = ex.Graph.ScanByType(typeName)
	}

	var out []string
	for _, id := range candidates {
		n, err := ex.Graph.Node(id)
		if err != nil {
			continue
		}
		if matchesAllConds(n, sel.Conds) {
			out = append(out, id)
		}
	}

	sort.Strings(out)
	return out
}

func matchesAllConds(n *graph.Node, conds []Cond) bool {
	for _, c := range conds {
		if !matchCond(n.Attr(c.Attr), c.Op, c.Value) {
			return false
		}
	}
	return true
}

/*
matchCond compares a node's string attribute value against a condition
using lexical order, the same ordering the per-type secondary index
applies (§3 "Index").
*/
func matchCond(attrVal string, op graph.PredOp, value string) bool {
	switch op {
	case graph.OpEq:
		return attrVal == value
	case graph.OpLt:
		return attrVal < value
	case graph.OpLe:
		return attrVal <= value
	case graph.OpGt:
		return attrVal > value
	case graph.OpGe:
		return attrVal >= value
	default:
		return false
	}
}
