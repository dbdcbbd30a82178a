/*
 * ledgergraph
 *
 * Package engine wires the schema, graph, ledger, query executor and
 * gossip dispatcher behind a single composite lock and exposes the one
 * entry point the console (or any other driver) calls per command line
 * (§5 "Concurrency & resource model").
 */
package engine

import (
	"context"
	"fmt"
	"log"
	"sync"

	"github.com/krotik/ledgergraph/eql"
	"github.com/krotik/ledgergraph/graph"
	"github.com/krotik/ledgergraph/ledger"
	"github.com/krotik/ledgergraph/p2p"
	"github.com/krotik/ledgergraph/result"
	"github.com/krotik/ledgergraph/schema"
)

/*
Engine is the single process-wide handle on the store: one
*sync.RWMutex guards the schema registry, graph manager and ledger
together, the same shape as the teacher's graph.Manager.mutex (§5, §9
"Global mutable state"). Every command-execution path and every
inbound-gossip application path acquires this lock for the whole of its
critical section.
*/
type Engine struct {
	mu sync.RWMutex

	schema *schema.Registry
	graph  *graph.Manager
	ledger *ledger.Ledger
	exec   *eql.Executor
	disp   *p2p.Dispatcher
	log    *log.Logger
}

/*
New builds an Engine over freshly constructed collaborators, publishing
outbound blocks and node announcements through pub (may be nil for a
single, disconnected peer).
*/
func New(reg *schema.Registry, gm *graph.Manager, led *ledger.Ledger, pub p2p.Publisher, logger *log.Logger) *Engine {
	disp := p2p.NewDispatcher(gm, led, logger, pub)

	e := &Engine{
		schema: reg,
		graph:  gm,
		ledger: led,
		disp:   disp,
		log:    logger,
	}

	e.exec = eql.NewExecutor(reg, gm, led, func(b *ledger.Block) {
		disp.PublishBlock(b)
	})

	return e
}

/*
Execute runs one command line under the composite lock and renders its
effect as a result.Set, never returning an error directly (§7
"Propagation policy"). A panic escaping the executor - a cryptographic
primitive fed malformed input the wrapper packages did not catch, for
instance - is recovered here and reported as a ParseError rather than
crashing the process (AMBIENT STACK "no recoverable panics reach the
caller").
*/
func (e *Engine) Execute(ctx context.Context, line string) (res result.Set) {
	e.mu.Lock()
	defer e.mu.Unlock()

	defer func() {
		if r := recover(); r != nil {
			res = result.ErrorRow(fmt.Sprintf("ParseError: %v", r))
		}
	}()

	return e.exec.Execute(ctx, line)
}

/*
Receive applies one inbound gossip message under the composite lock, the
same way an inbound command does (§5 "all inbound-block application
paths acquire this lock for the entire duration of their critical
section"). A malformed envelope is reported as a *p2p.Error; a
well-formed envelope whose payload fails validation is logged and
dropped by the dispatcher itself.
*/
func (e *Engine) Receive(msg []byte) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	return e.disp.Receive(msg)
}

/*
Dispatcher returns the engine's gossip dispatcher, so a transport's read
loop can hand inbound messages to Receive and a bootstrap step can
announce freshly created validator nodes.
*/
func (e *Engine) Dispatcher() *p2p.Dispatcher {
	return e.disp
}

/*
Schema, Graph and Ledger return the engine's collaborators for
bootstrap code that must run before the first command is read (§6
"Startup validator bootstrap"). Callers outside bootstrap should prefer
Execute/Receive, which hold the composite lock.
*/
func (e *Engine) Schema() *schema.Registry { return e.schema }
func (e *Engine) Graph() *graph.Manager    { return e.graph }
func (e *Engine) Ledger() *ledger.Ledger   { return e.ledger }
