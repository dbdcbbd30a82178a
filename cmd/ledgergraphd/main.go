/*
 * ledgergraph
 *
 * ledgergraphd is the process entry point: it wires the schema, graph,
 * ledger and gossip dispatcher into one engine.Engine, bootstraps any
 * validator identities named on the command line, and runs the
 * stdin/stdout REPL (§6 "External interfaces"). Argument parsing and
 * the validator bootstrap are themselves outside spec.md's component
 * boundary (§1 "out of scope: ... the process entry point/CLI argument
 * parsing, the startup bootstrap that injects initial validator
 * accounts"), grounded instead on the teacher's own `eliasdb.go` main
 * function and `api/ac`'s default-admin-seeding idiom.
 */
package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"sort"
	"strconv"
	"strings"

	"github.com/krotik/ledgergraph/config"
	"github.com/krotik/ledgergraph/console"
	"github.com/krotik/ledgergraph/cryptoutil"
	"github.com/krotik/ledgergraph/engine"
	"github.com/krotik/ledgergraph/graph"
	"github.com/krotik/ledgergraph/ledger"
	"github.com/krotik/ledgergraph/p2p"
	"github.com/krotik/ledgergraph/schema"
)

/*
validatorType is the bootstrap node type eligible to mine: a `User` node
carrying `role="validator"` satisfies the agent predicate every startup
identity is created under (§6's "Startup validator bootstrap"
supplement).
*/
const validatorType = "User"

func main() {
	logger := log.New(os.Stderr, "", log.LstdFlags)

	reg := schema.NewRegistry()
	if err := reg.Define(&schema.Type{
		Name: validatorType,
		Attributes: []schema.Attribute{
			{Name: "username", Indexed: true},
			{Name: "role"},
		},
		Predicate: []schema.Predicate{{Attribute: "role", Value: "validator"}},
	}); err != nil {
		logger.Fatal(err)
	}

	gm := graph.NewManager(reg)
	led := ledger.New(gm, reg, logger)

	bus := p2p.NewLocalBus()
	e := engine.New(reg, gm, led, bus, logger)
	bus.Subscribe(func(msg []byte) {
		// Handled on its own goroutine: a block is published from inside
		// Execute while the composite lock is held, and Receive takes the
		// same lock, so a synchronous call would never return.
		go func() {
			if err := e.Receive(msg); err != nil {
				logger.Printf("ledgergraphd: dropped inbound gossip message: %v", err)
			}
		}()
	})

	identities, err := parseValidatorFlags(os.Args[1:])
	if err != nil {
		logger.Fatal(err)
	}

	if err := bootstrapValidators(e, identities); err != nil {
		logger.Fatal(err)
	}

	c := console.New(e, os.Stdin, os.Stdout)
	if err := c.Run(context.Background()); err != nil {
		logger.Fatal(err)
	}
}

/*
validatorFlag is one `username<k>`/`key<k>` startup pair (§6 "Startup
flags").
*/
type validatorFlag struct {
	k        int
	username string
	privHex  string
}

/*
parseValidatorFlags reads `username<k>=value` and `key<k>=value`
arguments, k in {1..config.MaxBootstrapValidators}, and pairs them up by
k. Arguments not matching this shape are rejected - there is no other
command-line surface (§1 "out of scope: CLI argument parsing" beyond
this one bootstrap mechanism).
*/
func parseValidatorFlags(args []string) ([]validatorFlag, error) {
	usernames := make(map[int]string)
	keys := make(map[int]string)
	maxK := int(config.Int(config.MaxBootstrapValidators))

	for _, arg := range args {
		name, value, ok := strings.Cut(arg, "=")
		if !ok {
			return nil, fmt.Errorf("malformed startup flag %q, expected name=value", arg)
		}

		switch {
		case strings.HasPrefix(name, "username"):
			k, err := strconv.Atoi(strings.TrimPrefix(name, "username"))
			if err != nil || k < 1 || k > maxK {
				return nil, fmt.Errorf("malformed startup flag %q", arg)
			}
			usernames[k] = value

		case strings.HasPrefix(name, "key"):
			k, err := strconv.Atoi(strings.TrimPrefix(name, "key"))
			if err != nil || k < 1 || k > maxK {
				return nil, fmt.Errorf("malformed startup flag %q", arg)
			}
			keys[k] = value

		default:
			return nil, fmt.Errorf("unrecognized startup flag %q", arg)
		}
	}

	ks := make([]int, 0, len(keys))
	for k := range keys {
		ks = append(ks, k)
	}
	sort.Ints(ks)

	out := make([]validatorFlag, 0, len(ks))
	for _, k := range ks {
		username, ok := usernames[k]
		if !ok {
			return nil, fmt.Errorf("key%d given without a matching username%d", k, k)
		}
		out = append(out, validatorFlag{k: k, username: username, privHex: keys[k]})
	}

	return out, nil
}

/*
bootstrapValidators creates one User node per identity, before the first
command is read, and registers its public key with the ledger so blocks
it signs validate (§6 supplement). Only the k=1 identity, if present, is
configured as this process's local signer (ledger.Ledger signs as a
single identity); any further identities are registered as known
validators without local signing capability - a single peer process
models one signer, but may need to recognize several validators' public
keys up front when bootstrapping a small local test network (design
decision, see DESIGN.md).
*/
func bootstrapValidators(e *engine.Engine, identities []validatorFlag) error {
	for _, id := range identities {
		pubHex, err := cryptoutil.PublicFromPrivate(id.privHex)
		if err != nil {
			return fmt.Errorf("key%d: %w", id.k, err)
		}

		n, err := e.Graph().InsertNode(validatorType, map[string]string{
			"username": id.username,
			"role":     "validator",
		})
		if err != nil {
			return fmt.Errorf("username%d: %w", id.k, err)
		}

		e.Ledger().RegisterValidatorKey(n.ID, pubHex)
		e.Dispatcher().PublishNodeAnnounce(n)

		if id.k == 1 {
			e.Ledger().SetLocalValidator(n.ID, id.privHex)
		}
	}

	return nil
}
