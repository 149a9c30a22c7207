// Package pb holds the protobuf messages exchanged with the consensus engine.
// They are small enough to be encoded by hand with protowire:
//
//	message Tx { bytes data = 1; }
//	message TxRecord { TxAction action = 1; bytes tx = 2; }
//	message RequestPrepareProposal { int64 max_tx_bytes = 1; repeated bytes txs = 2; int64 height = 4; }
//	message ResponsePrepareProposal { repeated bytes txs = 1; repeated TxRecord tx_records = 2; }
package pb

import (
	"fmt"

	"google.golang.org/protobuf/encoding/protowire"
)

// Tx is the outer framing of a transaction: one opaque field holding the
// canonical encoding of the envelope.
type Tx struct {
	Data []byte
}

func (m *Tx) Marshal() []byte {
	var b []byte
	if len(m.Data) > 0 {
		b = protowire.AppendTag(b, 1, protowire.BytesType)
		b = protowire.AppendBytes(b, m.Data)
	}
	return b
}

func (m *Tx) Unmarshal(b []byte) error {
	*m = Tx{}
	return walkFields(b, func(num protowire.Number, typ protowire.Type, b []byte) (int, error) {
		if num == 1 && typ == protowire.BytesType {
			v, n := protowire.ConsumeBytes(b)
			if n < 0 {
				return n, nil
			}
			m.Data = append([]byte(nil), v...)
			return n, nil
		}
		return protowire.ConsumeFieldValue(num, typ, b), nil
	})
}

// walkFields iterates over the fields of a message. fn consumes the value of
// one field and returns the number of bytes read, negative on a wire error.
func walkFields(b []byte, fn func(num protowire.Number, typ protowire.Type, b []byte) (int, error)) error {
	for len(b) > 0 {
		num, typ, n := protowire.ConsumeTag(b)
		if n < 0 {
			return protowire.ParseError(n)
		}
		b = b[n:]
		m, err := fn(num, typ, b)
		if err != nil {
			return err
		}
		if m < 0 {
			return fmt.Errorf("field %d: %w", num, protowire.ParseError(m))
		}
		b = b[m:]
	}
	return nil
}
