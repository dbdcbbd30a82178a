package graph

import (
	"github.com/tidwall/btree"
)

/*
indexItem is a single entry of a per-type secondary index: an attribute
value paired with the id of the node carrying it. Ties on Value are broken
by NodeID so the tree has a total order even when many nodes share a
value (mirrors sanonone-kektordb's BTreeItem{Value, NodeID} shape, adapted
from float64 metadata values to the string attribute values this store
uses).
*/
type indexItem struct {
	Value  string
	NodeID string
}

func indexItemLess(a, b indexItem) bool {
	if a.Value != b.Value {
		return a.Value < b.Value
	}
	return a.NodeID < b.NodeID
}

/*
typeIndex is the sorted attribute-value -> node-id map for one node type's
indexed attribute (§3 "Index").
*/
type typeIndex struct {
	attr string
	tree *btree.BTreeG[indexItem]
}

func newTypeIndex(attr string) *typeIndex {
	return &typeIndex{attr: attr, tree: btree.NewBTreeG(indexItemLess)}
}

func (ti *typeIndex) insert(value, nodeID string) {
	ti.tree.Set(indexItem{Value: value, NodeID: nodeID})
}

func (ti *typeIndex) remove(value, nodeID string) {
	ti.tree.Delete(indexItem{Value: value, NodeID: nodeID})
}

/*
lookup returns the node ids whose indexed attribute value satisfies op
relative to value, in ascending order of (value, nodeID). The empty
string is used as the "-infinity" pivot for Lt/Le scans, mirroring how
sanonone-kektordb's store.go uses math.Inf(-1)/(+1) pivots for its
numeric BTreeG range scans - the same idiom adapted to lexical string
order: the zero indexItem (empty value, empty node id) sorts at or before
every entry, including one whose attribute value is the empty string.
*/
func (ti *typeIndex) lookup(op PredOp, value string) []string {
	var out []string

	switch op {
	case OpEq:
		ti.tree.Ascend(indexItem{Value: value}, func(item indexItem) bool {
			if item.Value != value {
				return false
			}
			out = append(out, item.NodeID)
			return true
		})

	case OpLt:
		ti.tree.Ascend(indexItem{}, func(item indexItem) bool {
			if item.Value >= value {
				return false
			}
			out = append(out, item.NodeID)
			return true
		})

	case OpLe:
		ti.tree.Ascend(indexItem{}, func(item indexItem) bool {
			if item.Value > value {
				return false
			}
			out = append(out, item.NodeID)
			return true
		})

	case OpGt:
		ti.tree.Ascend(indexItem{Value: value}, func(item indexItem) bool {
			if item.Value != value {
				out = append(out, item.NodeID)
			}
			return true
		})

	case OpGe:
		ti.tree.Ascend(indexItem{Value: value}, func(item indexItem) bool {
			out = append(out, item.NodeID)
			return true
		})
	}

	return out
}
