/*
 * ledgergraph
 *
 * Package idgen produces collision-resistant short string identifiers for
 * graph nodes.
 */
package idgen

import (
	"crypto/rand"
	"math/big"

	"github.com/krotik/ledgergraph/config"
)

/*
Length is the number of characters in a generated node id, read from
config.NodeIDLength so a deployment can tune id length without a code
change.
*/
var Length = int(config.Int(config.NodeIDLength))

/*
alphabet is the set of symbols a node id is drawn from.
*/
const alphabet = "ABCDEFGHIJKLMNOPQRSTUVWXYZabcdefghijklmnopqrstuvwxyz0123456789"

/*
Generator produces node identifiers. Implementations are not required to
retry on collision - callers (the graph store) are responsible for
detecting and rejecting a duplicate id.
*/
type Generator interface {

	/*
		NewID returns a new 21-character alphanumeric identifier.
	*/
	NewID() (string, error)
}

/*
randGenerator is the default Generator backed by a cryptographically
seeded random source.
*/
type randGenerator struct{}

/*
Default is the package-level Generator instance used by the graph store.
*/
var Default Generator = &randGenerator{}

/*
NewID returns a new 21-character alphanumeric identifier.
*/
func (g *randGenerator) NewID() (string, error) {
	return newID()
}

/*
NewID is a convenience wrapper around Default.NewID.
*/
func NewID() (string, error) {
	return Default.NewID()
}

func newID() (string, error) {
	buf := make([]byte, Length)
	max := big.NewInt(int64(len(alphabet)))

	for i := range buf {
		n, err := rand.Int(rand.Reader, max)
		if err != nil {
			return "", err
		}
		buf[i] = alphabet[n.Int64()]
	}

	return string(buf), nil
}
