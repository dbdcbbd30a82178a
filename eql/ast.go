package eql

import "github.com/krotik/ledgergraph/graph"

/*
Command is the parsed representation of one input line; the parser
produces exactly one of the concrete types below (§4.E grammar).
*/
type Command interface {
	isCommand()
}

/*
AttrDecl is one attribute of a define command, with its indexed flag.
*/
type AttrDecl struct {
	Name    string
	Indexed bool
}

/*
PredDecl is one (attribute = literal) constraint of an agent predicate.
*/
type PredDecl struct {
	Attribute string
	Value     string
}

/*
DefineCmd is `define node T(...)  [with agent (...)]` (§4.E "define").
*/
type DefineCmd struct {
	TypeName  string
	Attrs     []AttrDecl
	Predicate []PredDecl
}

func (*DefineCmd) isCommand() {}

/*
Assign is one `name = value` pair of an add-node attribute list.
*/
type Assign struct {
	Name  string
	Value string
}

/*
AddNodeCmd is `add node T(...)` (§4.E "addNode").
*/
type AddNodeCmd struct {
	TypeName string
	Attrs    []Assign
}

func (*AddNodeCmd) isCommand() {}

/*
Cond is one `attrName op value` constraint of a selector.
*/
type Cond struct {
	Attr  string
	Op    graph.PredOp
	Value string
}

/*
Selector identifies one or more nodes: either by exact id ($id = ...)
or by a conjunction of attribute conditions (§4.E "selector").
*/
type Selector struct {
	ByID  string // non-empty when this is a $id selector
	Conds []Cond
}

/*
AddConnCmd is `add connection from T1(...) to T2(...) with weight N`
(§4.E "addConn").
*/
type AddConnCmd struct {
	FromType string
	FromSel  Selector
	ToType   string
	ToSel    Selector
	Weight   int64
}

func (*AddConnCmd) isCommand() {}

/*
UpdConnCmd is `update connection from T1(...) to T2(...) with weight N`
(§4.E "updConn").
*/
type UpdConnCmd struct {
	FromType string
	FromSel  Selector
	ToType   string
	ToSel    Selector
	Weight   int64
}

func (*UpdConnCmd) isCommand() {}

/*
JoinStep is one `join T(weightPred)` clause of a fetch command.
*/
type JoinStep struct {
	TargetType string
	Pred       graph.WeightPredicate
}

/*
FetchNodeCmd is `fetch T(selector) (join T2(weightPred))*` (§4.E
"fetchNode").
*/
type FetchNodeCmd struct {
	RootType string
	RootSel  Selector
	Joins    []JoinStep
}

func (*FetchNodeCmd) isCommand() {}

/*
FetchChainCmd is `fetch connection chain` (§4.E "fetchChain").
*/
type FetchChainCmd struct{}

func (*FetchChainCmd) isCommand() {}
