package ledger

import (
	"context"

	"github.com/krotik/ledgergraph/cryptoutil"
)

/*
ErrMiningCancelled is returned by mine when ctx is cancelled before a
valid nonce is found (§4.G "Mining is cancellable", §5 "Cancellation").
*/
type miningCancelledError struct{}

func (miningCancelledError) Error() string { return "mining cancelled" }

/*
ErrMiningCancelled is the sentinel returned by mine on cancellation.
*/
var ErrMiningCancelled error = miningCancelledError{}

/*
mine varies b.Nonce starting at 0 until computeHash(b) has at least
b.Difficulty leading hex zeros, then sets b.Hash. It is a tight integer
search, checked for cancellation of ctx every iteration, so cancelling
ctx aborts a long-running attempt and the candidate block is discarded.
mine is called from AppendLocal, whose callers hold the composite lock
for the whole search; the lock is not released while mining, and the
dispatcher issues no cancellation of its own.
*/
func mine(ctx context.Context, b *Block) error {
	for nonce := uint64(0); ; nonce++ {
		select {
		case <-ctx.Done():
			return ErrMiningCancelled
		default:
		}

		b.Nonce = nonce

		h, err := computeHash(b)
		if err != nil {
			return err
		}

		if cryptoutil.LeadingZeroHexCount(h) >= b.Difficulty {
			b.Hash = h
			return nil
		}
	}
}
