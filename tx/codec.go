package tx

import (
	"errors"
	"fmt"
	"io"

	"github.com/ethereum/go-ethereum/rlp"

	"sealedtx/pb"
)

var (
	// ErrOuterFraming means the protobuf wrapper around the envelope is corrupt.
	ErrOuterFraming = errors.New("outer framing")
	// ErrInnerSchema means the framed bytes are not a canonical envelope.
	ErrInnerSchema = errors.New("inner schema")
)

// DecodeError is returned by Decode. Kind is ErrOuterFraming or ErrInnerSchema.
type DecodeError struct {
	Kind error
	Err  error
}

func (e *DecodeError) Error() string {
	return fmt.Sprintf("decode tx: %v: %v", e.Kind, e.Err)
}

func (e *DecodeError) Unwrap() []error {
	return []error{e.Kind, e.Err}
}

type envelopeRLP struct {
	Header   headerRLP
	Sections []sectionRLP
}

// Bytes returns the wire encoding of the envelope.
func (t *Tx) Bytes() ([]byte, error) {
	inner, err := t.canonical()
	if err != nil {
		return nil, err
	}
	return (&pb.Tx{Data: inner}).Marshal(), nil
}

// MustBytes is Bytes for envelopes built locally, where encoding cannot fail.
func (t *Tx) MustBytes() []byte {
	b, err := t.Bytes()
	if err != nil {
		panic(err)
	}
	return b
}

func (t *Tx) canonical() ([]byte, error) {
	if t.Header == nil {
		return nil, errors.New("encode tx: nil header")
	}
	enc := envelopeRLP{Header: headerRLP{t.Header}}
	for _, s := range t.Sections {
		enc.Sections = append(enc.Sections, sectionRLP{s})
	}
	return rlp.EncodeToBytes(&enc)
}

// EncodeRLP lets an envelope be embedded in other RLP structures.
func (t *Tx) EncodeRLP(w io.Writer) error {
	if t == nil {
		return errors.New("encode tx: nil envelope")
	}
	b, err := t.canonical()
	if err != nil {
		return err
	}
	_, err = w.Write(b)
	return err
}

func (t *Tx) DecodeRLP(s *rlp.Stream) error {
	var enc envelopeRLP
	if err := s.Decode(&enc); err != nil {
		return err
	}
	t.fromRLP(&enc)
	return nil
}

func (t *Tx) fromRLP(enc *envelopeRLP) {
	t.Header = enc.Header.TxType
	t.Sections = nil
	for _, s := range enc.Sections {
		t.Sections = append(t.Sections, s.Section)
	}
}

// Decode parses the wire encoding produced by Bytes.
func Decode(b []byte) (*Tx, error) {
	var outer pb.Tx
	if err := outer.Unmarshal(b); err != nil {
		return nil, &DecodeError{Kind: ErrOuterFraming, Err: err}
	}
	var enc envelopeRLP
	if err := rlp.DecodeBytes(outer.Data, &enc); err != nil {
		return nil, &DecodeError{Kind: ErrInnerSchema, Err: err}
	}
	t := &Tx{}
	t.fromRLP(&enc)
	return t, nil
}
