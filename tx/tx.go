package tx

import (
	"bytes"
	"errors"
	"fmt"

	"github.com/btcsuite/btcd/btcec/v2"
	"github.com/btcsuite/btcd/btcec/v2/schnorr"
)

var (
	ErrMissingSignature = errors.New("missing signature data")
	ErrInvalidSignature = errors.New("invalid signature")
	ErrSectionNotFound  = errors.New("section not found")
	ErrWrongSectionKind = errors.New("section has the wrong kind")
)

// Tx is a transaction envelope: a header plus an ordered list of sections.
// Hashes in the header refer to sections by content.
//
// Decode(t.Bytes()) reproduces t byte for byte. Envelopes built with the
// constructors also compare equal field by field; struct literals with nil
// slices or a nil Fee.Amount come back as empty slices and a zero amount.
type Tx struct {
	Header   TxType
	Sections []Section
}

// NewTx returns an envelope with the given header and no sections.
func NewTx(header TxType) *Tx {
	return &Tx{Header: header}
}

// Clone returns a copy whose section list can be replaced without touching t.
// Sections are values, so a shallow copy of the list is enough.
func (t *Tx) Clone() *Tx {
	return &Tx{Header: t.Header, Sections: append([]Section(nil), t.Sections...)}
}

// HeaderHash is the hash of the header alone. Signatures over it authorise
// the transaction, and they are left in the clear by Encrypt.
func (t *Tx) HeaderHash() Hash {
	if t.Header == nil {
		return Hash{}
	}
	return HashHeader(t.Header)
}

// GetSection returns the first section whose hash equals h.
func (t *Tx) GetSection(h Hash) (Section, bool) {
	for _, s := range t.Sections {
		if HashSection(s) == h {
			return s, true
		}
	}
	return nil, false
}

// AddSection appends s without touching the header.
func (t *Tx) AddSection(s Section) Hash {
	t.Sections = append(t.Sections, s)
	return HashSection(s)
}

// SetCode appends the code section and points the header at it.
func (t *Tx) SetCode(code Code) Hash {
	h := t.AddSection(code)
	t.SetCodeHash(h)
	return h
}

// SetData appends the data section and points the header at it.
func (t *Tx) SetData(data Data) Hash {
	h := t.AddSection(data)
	t.SetDataHash(h)
	return h
}

// CodeHash returns the code hash carried by the header.
func (t *Tx) CodeHash() Hash {
	switch h := t.Header.(type) {
	case RawHeader:
		return h.CodeHash
	case WrapperTx:
		return h.CodeHash
	case Resolved:
		return h.CodeHash
	case Unresolvable:
		return h.Wrapper.CodeHash
	case ProtocolTx:
		return h.CodeHash
	}
	return Hash{}
}

// DataHash returns the data hash carried by the header.
func (t *Tx) DataHash() Hash {
	switch h := t.Header.(type) {
	case RawHeader:
		return h.DataHash
	case WrapperTx:
		return h.DataHash
	case Resolved:
		return h.DataHash
	case Unresolvable:
		return h.Wrapper.DataHash
	case ProtocolTx:
		return h.DataHash
	}
	return Hash{}
}

func (t *Tx) SetCodeHash(hash Hash) {
	switch h := t.Header.(type) {
	case RawHeader:
		h.CodeHash = hash
		t.Header = h
	case WrapperTx:
		h.CodeHash = hash
		t.Header = h
	case Resolved:
		h.CodeHash = hash
		t.Header = h
	case Unresolvable:
		h.Wrapper.CodeHash = hash
		t.Header = h
	case ProtocolTx:
		h.CodeHash = hash
		t.Header = h
	}
}

func (t *Tx) SetDataHash(hash Hash) {
	switch h := t.Header.(type) {
	case RawHeader:
		h.DataHash = hash
		t.Header = h
	case WrapperTx:
		h.DataHash = hash
		t.Header = h
	case Resolved:
		h.DataHash = hash
		t.Header = h
	case Unresolvable:
		h.Wrapper.DataHash = hash
		t.Header = h
	case ProtocolTx:
		h.DataHash = hash
		t.Header = h
	}
}

// Code resolves the header's code hash to the payload of a Code section.
func (t *Tx) Code() ([]byte, bool) {
	s, ok := t.GetSection(t.CodeHash())
	if !ok {
		return nil, false
	}
	c, ok := s.(Code)
	if !ok {
		return nil, false
	}
	return c.Payload, true
}

// Data resolves the header's data hash to the payload of a Data section.
func (t *Tx) Data() ([]byte, bool) {
	s, ok := t.GetSection(t.DataHash())
	if !ok {
		return nil, false
	}
	d, ok := s.(Data)
	if !ok {
		return nil, false
	}
	return d.Payload, true
}

// ExtraData returns the payload of the ExtraData section with hash h.
func (t *Tx) ExtraData(h Hash) ([]byte, error) {
	s, ok := t.GetSection(h)
	if !ok {
		return nil, fmt.Errorf("extra data %s: %w", h, ErrSectionNotFound)
	}
	e, ok := s.(ExtraData)
	if !ok {
		return nil, fmt.Errorf("extra data %s is a %s section: %w", h, s.Kind(), ErrWrongSectionKind)
	}
	return e.Payload, nil
}

// Wrapper returns the wrapper header, if the envelope has one.
func (t *Tx) Wrapper() (WrapperTx, bool) {
	w, ok := t.Header.(WrapperTx)
	return w, ok
}

// Sign appends a signature over the header hash.
func (t *Tx) Sign(key *btcec.PrivateKey) error {
	sig, err := NewSignature(t.HeaderHash(), key)
	if err != nil {
		return err
	}
	t.AddSection(sig)
	return nil
}

// VerifySignature looks for a Signature section by pk over target and checks
// it.
func (t *Tx) VerifySignature(pk []byte, target Hash) error {
	for _, s := range t.Sections {
		sig, ok := s.(Signature)
		if !ok || sig.Target != target || !bytes.Equal(sig.PublicKey, pk) {
			continue
		}
		return verifySchnorr(sig)
	}
	return ErrMissingSignature
}

// NewSignature signs target with key.
func NewSignature(target Hash, key *btcec.PrivateKey) (Signature, error) {
	sig, err := schnorr.Sign(key, target[:])
	if err != nil {
		return Signature{}, err
	}
	return Signature{
		Salt:      NewSalt(),
		Target:    target,
		Sig:       sig.Serialize(),
		PublicKey: schnorr.SerializePubKey(key.PubKey()),
	}, nil
}

func verifySchnorr(s Signature) error {
	pub, err := schnorr.ParsePubKey(s.PublicKey)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidSignature, err)
	}
	sig, err := schnorr.ParseSignature(s.Sig)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidSignature, err)
	}
	if !sig.Verify(s.Target[:], pub) {
		return ErrInvalidSignature
	}
	return nil
}
