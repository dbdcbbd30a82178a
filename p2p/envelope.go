/*
 * ledgergraph
 *
 * Package p2p defines the gossip wire envelope and routes inbound
 * messages synchronously into the ledger and graph store (component H,
 * §4.H).
 */
package p2p

import (
	"encoding/json"

	"github.com/krotik/ledgergraph/graph"
	"github.com/krotik/ledgergraph/ledger"
)

/*
Envelope kinds on the gossip topic (§6 "Wire format").
*/
const (
	KindBlock        = "BLOCK"
	KindNodeAnnounce = "NODE_ANNOUNCE"
)

/*
Envelope is the outer `{"kind":..., "payload":...}` shape every gossip
message carries (§6 "Wire format").
*/
type Envelope struct {
	Kind    string          `json:"kind"`
	Payload json.RawMessage `json:"payload"`
}

/*
NodeAnnounce is the optional broadcast of a newly created node, letting
peers validate an EdgeData block that references it before any causally
prior block has arrived (§4.H "NODE_ANNOUNCE").
*/
type NodeAnnounce struct {
	ID    string            `json:"id"`
	Type  string            `json:"type"`
	Attrs map[string]string `json:"attrs"`
}

/*
EncodeBlock wraps a block in a BLOCK envelope.
*/
func EncodeBlock(b *ledger.Block) ([]byte, error) {
	payload, err := json.Marshal(b)
	if err != nil {
		return nil, err
	}
	return json.Marshal(Envelope{Kind: KindBlock, Payload: payload})
}

/*
EncodeNodeAnnounce wraps a node in a NODE_ANNOUNCE envelope.
*/
func EncodeNodeAnnounce(n *graph.Node) ([]byte, error) {
	payload, err := json.Marshal(NodeAnnounce{ID: n.ID, Type: n.Type, Attrs: n.Attrs})
	if err != nil {
		return nil, err
	}
	return json.Marshal(Envelope{Kind: KindNodeAnnounce, Payload: payload})
}
