package ledger

import (
	"context"
	"log"
	"time"

	"github.com/krotik/ledgergraph/config"
	"github.com/krotik/ledgergraph/cryptoutil"
	"github.com/krotik/ledgergraph/graph"
	"github.com/krotik/ledgergraph/schema"
)

/*
nowFunc returns the current Unix timestamp in seconds (§3 "Block" field
timestamp). It is a variable so tests can pin it for deterministic
blocks.
*/
var nowFunc = func() int64 { return time.Now().Unix() }

/*
genesisBlock builds the fixed, deterministic genesis block every peer constructs
independently (§3 "Chain"). Its fields carry no randomness so every peer
arrives at the same hash without needing to exchange it.
*/
func genesisBlock() *Block {
	b := &Block{
		ID:           0,
		Timestamp:    0,
		PreviousHash: "",
		Nonce:        0,
		Difficulty:   0,
		Validator:    "",
		Signature:    "",
		Data:         Data{Type: DataRootNode},
	}

	h, err := computeHash(b)
	if err != nil {
		// Hashing a well-formed fixed struct cannot fail.
		panic(err)
	}
	b.Hash = h

	return b
}

/*
Ledger is the ordered sequence of blocks for one peer, plus the signing
identity of the local agent if it is a validator (§4.G).
*/
type Ledger struct {
	gm  *graph.Manager
	reg *schema.Registry
	log *log.Logger

	blocks []*Block

	localNodeID string // graph node id of the local validator agent, if any
	localPriv   string // hex Ed25519 private key of the local agent

	// validatorKeys associates a graph node id with the public key it
	// signs blocks with, recorded by a ValidatorData block (§3 "Block").
	validatorKeys map[string]string
}

/*
New creates a ledger seeded with the genesis block.
*/
func New(gm *graph.Manager, reg *schema.Registry, logger *log.Logger) *Ledger {
	return &Ledger{
		gm:            gm,
		reg:           reg,
		log:           logger,
		blocks:        []*Block{genesisBlock()},
		validatorKeys: make(map[string]string),
	}
}

/*
SetLocalValidator registers the graph node id and hex private key of the
local agent, enabling AppendLocal.
*/
func (l *Ledger) SetLocalValidator(nodeID, privKeyHex string) {
	l.localNodeID = nodeID
	l.localPriv = privKeyHex
}

/*
RegisterValidatorKey associates a graph node id with the public key it
signs blocks with. Called when a ValidatorData block is applied, locally
at bootstrap or via Receive (§3 "Block" variant ValidatorData).
*/
func (l *Ledger) RegisterValidatorKey(nodeID, pubKeyHex string) {
	l.validatorKeys[nodeID] = pubKeyHex
}

/*
Head returns the most recently appended block.
*/
func (l *Ledger) Head() *Block {
	return l.blocks[len(l.blocks)-1]
}

/*
Blocks returns every block in chain order.
*/
func (l *Ledger) Blocks() []*Block {
	out := make([]*Block, len(l.blocks))
	copy(out, l.blocks)
	return out
}

/*
Len returns the number of blocks in the chain, genesis included.
*/
func (l *Ledger) Len() int {
	return len(l.blocks)
}

/*
isValidator reports whether the graph node nodeID is of a type carrying
an agent predicate it satisfies (§3 "Agent / Validator").
*/
func (l *Ledger) isValidator(nodeID string) (bool, *graph.Node, error) {
	n, err := l.gm.Node(nodeID)
	if err != nil {
		return false, nil, err
	}

	t, err := l.reg.Get(n.Type)
	if err != nil {
		return false, nil, err
	}

	return t.MatchesAgentPredicate(n.Attrs), n, nil
}

/*
effectivePrevEdgeCount returns the edge count to compare a candidate
validator against for the "1 edge more" rule (§3, §9 open question): the
previous block's own difficulty field records exactly the edge count its
validator had at append time, except the genesis has no validator at
all - its effective count is treated as -1 so the first real validator
block is always exempted.
*/
func (l *Ledger) effectivePrevEdgeCount(prev *Block) int {
	if prev.ID == 0 {
		return int(config.Int(config.GenesisDifficulty))
	}
	return prev.Difficulty
}

/*
AppendLocal mines and appends a new block carrying data, signed by the
local validator identity, provided it satisfies the "1 edge more" rule
relative to the chain head (§4.G "append_local"). On success the new
block is appended to the local chain; callers are responsible for
publishing it (§1: the transport is an injected, out-of-scope
collaborator).
*/
func (l *Ledger) AppendLocal(ctx context.Context, data Data) (*Block, error) {
	if l.localNodeID == "" {
		return nil, &Error{Type: ErrNotAValidator, Detail: "no local validator identity configured"}
	}

	isVal, node, err := l.isValidator(l.localNodeID)
	if err != nil {
		return nil, err
	}
	if !isVal {
		return nil, &Error{Type: ErrNotAValidator, Detail: l.localNodeID}
	}

	head := l.Head()
	required := l.effectivePrevEdgeCount(head)

	if node.EdgeCount <= required {
		return nil, &Error{Type: ErrEdgeCountRuleViolation, Detail: "local validator does not have strictly more edges than the previous validator"}
	}

	b := &Block{
		ID:           head.ID + 1,
		Timestamp:    nowFunc(),
		PreviousHash: head.Hash,
		Difficulty:   node.EdgeCount,
		Validator:    l.validatorKeys[node.ID],
		Data:         data,
	}

	if err := mine(ctx, b); err != nil {
		return nil, err
	}

	sig, err := sign(b, l.localPriv)
	if err != nil {
		return nil, err
	}
	b.Signature = sig

	// Re-verify the invariants the mined block assumes before committing:
	// the head and the validator's edge count must still match. Callers
	// hold the composite lock for the whole of AppendLocal, mining
	// included, so these checks guard against a caller that does not.
	head = l.Head()
	if b.PreviousHash != head.Hash || b.ID != head.ID+1 {
		return nil, &Error{Type: ErrBadPreviousHash, Detail: "chain advanced during mining"}
	}
	if cur, err := l.gm.Node(node.ID); err != nil || cur.EdgeCount != b.Difficulty {
		return nil, &Error{Type: ErrEdgeCountRuleViolation, Detail: "validator edge count changed during mining"}
	}

	l.blocks = append(l.blocks, b)

	return b, nil
}

/*
Receive validates and applies a block produced by a remote peer (§4.G
"receive"). A block whose id is at or below the local head's - a
redelivery, a stale block, or a racing fork's block for a slot already
filled - is dropped as a silent no-op and nil is returned (§8
"idempotent redelivery", §9 "fork policy"); a block further ahead than
the immediate successor is rejected with ErrBadPreviousHash. There is
no separate fork-choice rule. Any other validation failure leaves
the chain untouched and returns a typed *Error describing why; callers
are expected to log and drop the block rather than treat it as fatal
(§7).
*/
func (l *Ledger) Receive(b *Block) error {
	head := l.Head()

	if b.ID <= head.ID {
		return nil
	}

	if b.ID != head.ID+1 {
		return &Error{Type: ErrBadPreviousHash, Detail: "block is not the next expected block"}
	}

	if b.PreviousHash != head.Hash {
		return &Error{Type: ErrBadPreviousHash, Detail: "previous_hash does not match local head"}
	}

	validatorNodeID := l.nodeIDForKey(b.Validator)
	if validatorNodeID == "" && b.Data.Type == DataValidator {
		// A validator's very first block self-announces its key: it is
		// not registered under any node id yet, so the candidate node is
		// named directly by the payload (§3 "Block" variant ValidatorData).
		validatorNodeID = b.Data.AccountID
	}
	if validatorNodeID == "" {
		return &Error{Type: ErrNotAValidator, Detail: b.Validator}
	}

	isVal, node, err := l.isValidator(validatorNodeID)
	if err != nil {
		return err
	}
	if !isVal {
		return &Error{Type: ErrNotAValidator, Detail: validatorNodeID}
	}

	required := l.effectivePrevEdgeCount(head)
	if b.Difficulty <= required {
		return &Error{Type: ErrEdgeCountRuleViolation, Detail: "validator does not have strictly more edges than the previous validator"}
	}
	if node.EdgeCount != b.Difficulty {
		return &Error{Type: ErrEdgeCountRuleViolation, Detail: "block difficulty does not match the validator's current edge count"}
	}

	ok, err := verifySignature(b)
	if err != nil {
		return err
	}
	if !ok {
		return &Error{Type: ErrBadSignature, Detail: b.Hash}
	}

	wantHash, err := computeHash(b)
	if err != nil {
		return err
	}
	if wantHash != b.Hash {
		return &Error{Type: ErrBadHash, Detail: b.Hash}
	}
	if cryptoutil.LeadingZeroHexCount(wantHash) < b.Difficulty {
		return &Error{Type: ErrDifficultyMismatch, Detail: b.Hash}
	}

	if err := l.apply(b); err != nil {
		return err
	}

	l.blocks = append(l.blocks, b)

	return nil
}

/*
nodeIDForKey finds the graph node id a validator public key was
registered under, or "" if none is known (§3 "Validator").
*/
func (l *Ledger) nodeIDForKey(pubKeyHex string) string {
	for nodeID, key := range l.validatorKeys {
		if key == pubKeyHex {
			return nodeID
		}
	}
	return ""
}

/*
apply mirrors an inbound block's payload into the graph store and the
local validator-key registry (§4.G "receive"). EdgeData requires both
endpoints to already exist locally (nodes reach a peer through
NODE_ANNOUNCE messages, not through blocks); a block referencing an
unknown node is rejected with ErrUnknownReferencedNode.
*/
func (l *Ledger) apply(b *Block) error {
	switch b.Data.Type {
	case DataEdge:
		if !l.gm.HasNode(b.Data.FromID) || !l.gm.HasNode(b.Data.ToID) {
			return &Error{Type: ErrUnknownReferencedNode, Detail: "edge references unknown node"}
		}
		if _, err := l.gm.UpsertEdge(b.Data.FromID, b.Data.ToID, b.Data.Weight); err != nil {
			return err
		}
		l.gm.SetEdgeBlock(b.Data.FromID, b.Data.ToID, b.ID)

	case DataValidator:
		nodeID := l.nodeIDForKey(b.Validator)
		if nodeID == "" {
			// First time this validator is seen: the block's own
			// account_id names the node its key belongs to.
			nodeID = b.Data.AccountID
		}
		l.RegisterValidatorKey(nodeID, b.Data.PublicKey)
	}

	return nil
}
