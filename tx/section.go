package tx

import (
	"crypto/sha256"
	"encoding/binary"
	"errors"
	"fmt"
	"io"

	"github.com/btcsuite/btcd/btcec/v2"
	"github.com/ethereum/go-ethereum/rlp"
)

// SectionKind is the tag byte of a section. The values are part of the
// section hash and must never change.
type SectionKind uint8

const (
	KindData       SectionKind = 0
	KindExtraData  SectionKind = 1
	KindCode       SectionKind = 2
	KindSignature  SectionKind = 3
	KindCiphertext SectionKind = 4
)

func (k SectionKind) String() string {
	switch k {
	case KindData:
		return "data"
	case KindExtraData:
		return "extra_data"
	case KindCode:
		return "code"
	case KindSignature:
		return "signature"
	case KindCiphertext:
		return "ciphertext"
	default:
		return fmt.Sprintf("section(%d)", uint8(k))
	}
}

var errUnknownKind = errors.New("unknown variant")

// Section is a content addressed fragment of a transaction. The concrete
// types are Data, ExtraData, Code, Signature and Ciphertext.
type Section interface {
	Kind() SectionKind
	// writeFields feeds the section's fields, in order, into a hash.
	writeFields(w io.Writer)
}

// Data is arbitrary application data.
type Data struct {
	Salt    Salt
	Payload []byte
}

// ExtraData has the shape of Data but fills a different slot, e.g. embedded
// validity predicate code.
type ExtraData struct {
	Salt    Salt
	Payload []byte
}

// Code is an executable code blob.
type Code struct {
	Salt    Salt
	Payload []byte
}

// Signature attests to Target, the hash of a header or another section.
type Signature struct {
	Salt      Salt
	Target    Hash
	Sig       []byte
	PublicKey []byte
}

// Ciphertext is the encryption of another section's canonical encoding.
type Ciphertext struct {
	Opaque []byte
}

// 构造函数把 nil payload 规范成空切片，和解码结果保持一致
func NewData(payload []byte) Data           { return Data{Salt: NewSalt(), Payload: nonNil(payload)} }
func NewExtraData(payload []byte) ExtraData { return ExtraData{Salt: NewSalt(), Payload: nonNil(payload)} }
func NewCode(payload []byte) Code           { return Code{Salt: NewSalt(), Payload: nonNil(payload)} }

func nonNil(b []byte) []byte {
	if b == nil {
		return []byte{}
	}
	return b
}

func (Data) Kind() SectionKind       { return KindData }
func (ExtraData) Kind() SectionKind  { return KindExtraData }
func (Code) Kind() SectionKind       { return KindCode }
func (Signature) Kind() SectionKind  { return KindSignature }
func (Ciphertext) Kind() SectionKind { return KindCiphertext }

func (s Data) writeFields(w io.Writer) {
	w.Write(s.Salt[:])
	w.Write(s.Payload)
}

func (s ExtraData) writeFields(w io.Writer) {
	w.Write(s.Salt[:])
	w.Write(s.Payload)
}

func (s Code) writeFields(w io.Writer) {
	w.Write(s.Salt[:])
	w.Write(s.Payload)
}

// Sig 和 PublicKey 变长，各自带 8 字节长度前缀
func (s Signature) writeFields(w io.Writer) {
	w.Write(s.Salt[:])
	w.Write(s.Target[:])
	writeVar(w, s.Sig)
	writeVar(w, s.PublicKey)
}

// Only the opaque bytes are hashed, whatever structure the ciphertext has.
func (s Ciphertext) writeFields(w io.Writer) {
	w.Write(s.Opaque)
}

func writeVar(w io.Writer, b []byte) {
	var n [8]byte
	binary.BigEndian.PutUint64(n[:], uint64(len(b)))
	w.Write(n[:])
	w.Write(b)
}

// HashSection returns SHA-256(tag || fields).
func HashSection(s Section) Hash {
	h := sha256.New()
	h.Write([]byte{byte(s.Kind())})
	s.writeFields(h)
	var out Hash
	h.Sum(out[:0])
	return out
}

// SignSection produces a Signature section over the hash of s.
func SignSection(s Section, key *btcec.PrivateKey) (Signature, error) {
	return NewSignature(HashSection(s), key)
}

// EncodeSection returns the canonical encoding of a section: the RLP list
// [kind, fields].
func EncodeSection(s Section) ([]byte, error) {
	return rlp.EncodeToBytes(sectionRLP{s})
}

// DecodeSection is the inverse of EncodeSection.
func DecodeSection(b []byte) (Section, error) {
	var enc sectionRLP
	if err := rlp.DecodeBytes(b, &enc); err != nil {
		return nil, err
	}
	return enc.Section, nil
}

type sectionRLP struct {
	Section
}

func (e sectionRLP) EncodeRLP(w io.Writer) error {
	if e.Section == nil {
		return errors.New("nil section")
	}
	return rlp.Encode(w, []interface{}{uint8(e.Kind()), e.Section})
}

func (e *sectionRLP) DecodeRLP(s *rlp.Stream) error {
	if _, err := s.List(); err != nil {
		return err
	}
	kind, err := s.Uint64()
	if err != nil {
		return err
	}
	switch SectionKind(kind) {
	case KindData:
		var v Data
		err = s.Decode(&v)
		e.Section = v
	case KindExtraData:
		var v ExtraData
		err = s.Decode(&v)
		e.Section = v
	case KindCode:
		var v Code
		err = s.Decode(&v)
		e.Section = v
	case KindSignature:
		var v Signature
		err = s.Decode(&v)
		e.Section = v
	case KindCiphertext:
		var v Ciphertext
		err = s.Decode(&v)
		e.Section = v
	default:
		return fmt.Errorf("section: %w %d", errUnknownKind, kind)
	}
	if err != nil {
		return err
	}
	return s.ListEnd()
}
