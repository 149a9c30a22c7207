// Package txqueue holds wrapper transactions committed at one height until
// the proposal for the next height resolves them.
package txqueue

import (
	"errors"

	"github.com/ethereum/go-ethereum/rlp"

	"sealedtx/tx"
)

var ErrNotWrapper = errors.New("txqueue: not a wrapper transaction")

// Entry is one committed wrapper awaiting decryption.
type Entry struct {
	Wrapper     tx.WrapperTx
	Tx          *tx.Tx
	HasValidPoW bool
}

// NewEntry builds the queue entry for a committed wrapper. Proof of work is
// evaluated here, once.
func NewEntry(t *tx.Tx) (*Entry, error) {
	w, ok := t.Wrapper()
	if !ok {
		return nil, ErrNotWrapper
	}
	return &Entry{Wrapper: w, Tx: t, HasValidPoW: w.ValidPoW()}, nil
}

// MarshalBinary 供 Store 持久化使用（RLP）
func (e *Entry) MarshalBinary() ([]byte, error) {
	return rlp.EncodeToBytes(e)
}

// UnmarshalEntry is the inverse of MarshalBinary.
func UnmarshalEntry(b []byte) (*Entry, error) {
	e := &Entry{}
	if err := rlp.DecodeBytes(b, e); err != nil {
		return nil, err
	}
	return e, nil
}
