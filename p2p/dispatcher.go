package p2p

import (
	"encoding/json"
	"log"

	"github.com/krotik/ledgergraph/graph"
	"github.com/krotik/ledgergraph/ledger"
)

/*
Publisher hands an already-encoded envelope to the gossip topic. Publish
must not block the caller - the transport owns its own send queue (§4.H
"Outbound calls are non-blocking").
*/
type Publisher interface {
	Publish(msg []byte)
}

/*
Dispatcher classifies inbound gossip messages and applies them to the
ledger/graph, and renders outbound blocks/node-announcements for
publish (component H, §4.H). It holds no lock of its own; the caller is
expected to hold the composite lock around Receive the same way it does
around command execution (§5 "all inbound-block application paths
acquire this lock for the entire duration of their critical section").
*/
type Dispatcher struct {
	gm  *graph.Manager
	led *ledger.Ledger
	log *log.Logger
	pub Publisher
}

/*
NewDispatcher builds a Dispatcher over the given collaborators. pub may
be nil, in which case PublishBlock/PublishNodeAnnounce are no-ops.
*/
func NewDispatcher(gm *graph.Manager, led *ledger.Ledger, logger *log.Logger, pub Publisher) *Dispatcher {
	return &Dispatcher{gm: gm, led: led, log: logger, pub: pub}
}

/*
PublishBlock encodes and publishes a locally-produced block - the
callback an executor hands to ledger.AppendLocal's caller (§4.G
"publishes").
*/
func (d *Dispatcher) PublishBlock(b *ledger.Block) {
	msg, err := EncodeBlock(b)
	if err != nil {
		d.log.Printf("p2p: failed to encode outbound block %d: %v", b.ID, err)
		return
	}
	if d.pub != nil {
		d.pub.Publish(msg)
	}
}

/*
PublishNodeAnnounce encodes and publishes a freshly created node so
peers can validate EdgeData blocks referencing it ahead of receiving one
(§4.H "NODE_ANNOUNCE").
*/
func (d *Dispatcher) PublishNodeAnnounce(n *graph.Node) {
	msg, err := EncodeNodeAnnounce(n)
	if err != nil {
		d.log.Printf("p2p: failed to encode node announce %s: %v", n.ID, err)
		return
	}
	if d.pub != nil {
		d.pub.Publish(msg)
	}
}

/*
Receive classifies and synchronously applies one inbound gossip message
(§4.H "Inbound messages are deserialized, classified, and handed
synchronously to §4.G / §4.D"). A malformed envelope is reported as a
TransportError; a well-formed envelope whose payload fails ledger/graph
validation is logged and dropped rather than returned as an error, per
§7's "ledger-validation errors on inbound blocks are logged and the
block dropped".
*/
func (d *Dispatcher) Receive(msg []byte) error {
	var env Envelope
	if err := json.Unmarshal(msg, &env); err != nil {
		return &Error{Detail: err.Error()}
	}

	switch env.Kind {
	case KindBlock:
		var b ledger.Block
		if err := json.Unmarshal(env.Payload, &b); err != nil {
			return &Error{Detail: err.Error()}
		}
		if err := d.led.Receive(&b); err != nil {
			d.log.Printf("p2p: dropped block %d: %v", b.ID, err)
		}
		return nil

	case KindNodeAnnounce:
		var na NodeAnnounce
		if err := json.Unmarshal(env.Payload, &na); err != nil {
			return &Error{Detail: err.Error()}
		}
		if !d.gm.HasNode(na.ID) {
			if _, err := d.gm.InsertNodeWithID(na.ID, na.Type, na.Attrs); err != nil {
				d.log.Printf("p2p: dropped node announce %s: %v", na.ID, err)
			}
		}
		return nil

	default:
		return &Error{Detail: "unknown envelope kind " + env.Kind}
	}
}
