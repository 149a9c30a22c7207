package tx

import (
	"crypto/sha256"
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"math/bits"

	"github.com/ethereum/go-ethereum/rlp"
	"github.com/holiman/uint256"
)

// TxKind tags the header variant.
type TxKind uint8

const (
	KindRaw       TxKind = 0
	KindWrapper   TxKind = 1
	KindDecrypted TxKind = 2
	KindProtocol  TxKind = 3
)

func (k TxKind) String() string {
	switch k {
	case KindRaw:
		return "raw"
	case KindWrapper:
		return "wrapper"
	case KindDecrypted:
		return "decrypted"
	case KindProtocol:
		return "protocol"
	default:
		return fmt.Sprintf("tx(%d)", uint8(k))
	}
}

// TxType is the header of a transaction. The concrete types are RawHeader,
// WrapperTx, Resolved, Unresolvable and ProtocolTx.
type TxType interface {
	Kind() TxKind
	isTxType()
}

// RawHeader is an unencrypted transaction.
type RawHeader struct {
	CodeHash Hash
	DataHash Hash
}

// Fee paid by a wrapper transaction.
type Fee struct {
	Amount *uint256.Int
	Token  string
}

// PoWSolution lets a wrapper skip fee checks on test networks: it is valid
// when SHA-256(public_key || nonce) starts with Difficulty zero bits.
type PoWSolution struct {
	Difficulty uint8
	Nonce      uint64
}

// WrapperTx is the header of an encrypted transaction. PublicKey is the
// x-only Schnorr key of the fee payer, who signs the header hash.
type WrapperTx struct {
	Fee       Fee
	PublicKey []byte
	Epoch     uint64
	GasLimit  uint64
	CodeHash  Hash
	DataHash  Hash
	PoW       *PoWSolution `rlp:"optional"`
}

// DecryptedKind tags the two outcomes of decrypting a queued wrapper.
type DecryptedKind uint8

const (
	DecryptedResolved     DecryptedKind = 0
	DecryptedUnresolvable DecryptedKind = 1
)

// DecryptedTx is a TxType of KindDecrypted: either Resolved or Unresolvable.
type DecryptedTx interface {
	TxType
	DecryptedKind() DecryptedKind
}

// Resolved is a wrapper whose content was decrypted one block after commit.
// HasValidPoW is nil when proof of work tracking is disabled.
type Resolved struct {
	HeaderHash  Hash
	CodeHash    Hash
	DataHash    Hash
	HasValidPoW *bool `rlp:"optional"`
}

// Unresolvable carries the original wrapper header of a transaction that
// could not be decrypted.
type Unresolvable struct {
	Wrapper WrapperTx
}

// ProtocolTxType identifies internal protocol transactions.
type ProtocolTxType uint8

const (
	ProtocolEthereumEvents ProtocolTxType = 0
	ProtocolValSetUpdate   ProtocolTxType = 1
	ProtocolDKG            ProtocolTxType = 2
)

// ProtocolTx is a transaction injected by validators themselves.
type ProtocolTx struct {
	PublicKey []byte
	Type      ProtocolTxType
	CodeHash  Hash
	DataHash  Hash
}

func (RawHeader) Kind() TxKind    { return KindRaw }
func (WrapperTx) Kind() TxKind    { return KindWrapper }
func (Resolved) Kind() TxKind     { return KindDecrypted }
func (Unresolvable) Kind() TxKind { return KindDecrypted }
func (ProtocolTx) Kind() TxKind   { return KindProtocol }

func (RawHeader) isTxType()    {}
func (WrapperTx) isTxType()    {}
func (Resolved) isTxType()     {}
func (Unresolvable) isTxType() {}
func (ProtocolTx) isTxType()   {}

func (Resolved) DecryptedKind() DecryptedKind     { return DecryptedResolved }
func (Unresolvable) DecryptedKind() DecryptedKind { return DecryptedUnresolvable }

// NewWrapperTx builds a wrapper header. Code and data hashes are filled in by
// SetCode and SetData.
func NewWrapperTx(fee Fee, publicKey []byte, epoch, gasLimit uint64, pow *PoWSolution) WrapperTx {
	if fee.Amount == nil {
		fee.Amount = new(uint256.Int)
	}
	return WrapperTx{
		Fee:       fee,
		PublicKey: nonNil(publicKey),
		Epoch:     epoch,
		GasLimit:  gasLimit,
		PoW:       pow,
	}
}

// ValidPoW reports whether the wrapper carries a valid proof of work.
func (w WrapperTx) ValidPoW() bool {
	return w.PoW != nil && w.PoW.Verify(w.PublicKey)
}

// WrapperBytes returns the canonical encoding of the original wrapper header.
func (u Unresolvable) WrapperBytes() ([]byte, error) {
	return EncodeHeader(u.Wrapper)
}

// Verify checks the solution against the fee payer's key.
func (p PoWSolution) Verify(publicKey []byte) bool {
	return leadingZeroBits(powDigest(publicKey, p.Nonce)) >= int(p.Difficulty)
}

// SolvePoW searches nonces until one meets difficulty. Only practical for
// small difficulties.
func SolvePoW(publicKey []byte, difficulty uint8) PoWSolution {
	for nonce := uint64(0); ; nonce++ {
		if leadingZeroBits(powDigest(publicKey, nonce)) >= int(difficulty) {
			return PoWSolution{Difficulty: difficulty, Nonce: nonce}
		}
	}
}

func powDigest(publicKey []byte, nonce uint64) [32]byte {
	buf := make([]byte, 0, len(publicKey)+8)
	buf = append(buf, publicKey...)
	buf = binary.BigEndian.AppendUint64(buf, nonce)
	return sha256.Sum256(buf)
}

func leadingZeroBits(d [32]byte) int {
	n := 0
	for _, b := range d {
		if b != 0 {
			return n + bits.LeadingZeros8(b)
		}
		n += 8
	}
	return n
}

// EncodeHeader returns the canonical encoding of a header alone.
func EncodeHeader(h TxType) ([]byte, error) {
	return rlp.EncodeToBytes(headerRLP{h})
}

// DecodeHeader is the inverse of EncodeHeader.
func DecodeHeader(b []byte) (TxType, error) {
	var enc headerRLP
	if err := rlp.DecodeBytes(b, &enc); err != nil {
		return nil, err
	}
	return enc.TxType, nil
}

// HashHeader is SHA-256 of the canonical header encoding. A nil header hashes
// to the zero hash.
func HashHeader(h TxType) Hash {
	b, err := EncodeHeader(h)
	if err != nil {
		return Hash{}
	}
	return sha256.Sum256(b)
}

// headerRLP encodes a header as [kind, fields]; decrypted headers nest a
// second [subkind, fields] list.
type headerRLP struct {
	TxType
}

func (e headerRLP) EncodeRLP(w io.Writer) error {
	if e.TxType == nil {
		return errors.New("nil header")
	}
	var body interface{} = e.TxType
	if d, ok := e.TxType.(DecryptedTx); ok {
		body = []interface{}{uint8(d.DecryptedKind()), d}
	}
	return rlp.Encode(w, []interface{}{uint8(e.Kind()), body})
}

func (e *headerRLP) DecodeRLP(s *rlp.Stream) error {
	if _, err := s.List(); err != nil {
		return err
	}
	kind, err := s.Uint64()
	if err != nil {
		return err
	}
	switch TxKind(kind) {
	case KindRaw:
		var v RawHeader
		err = s.Decode(&v)
		e.TxType = v
	case KindWrapper:
		var v WrapperTx
		err = s.Decode(&v)
		e.TxType = v
	case KindDecrypted:
		e.TxType, err = decodeDecrypted(s)
	case KindProtocol:
		var v ProtocolTx
		err = s.Decode(&v)
		e.TxType = v
	default:
		return fmt.Errorf("header: %w %d", errUnknownKind, kind)
	}
	if err != nil {
		return err
	}
	return s.ListEnd()
}

func decodeDecrypted(s *rlp.Stream) (TxType, error) {
	if _, err := s.List(); err != nil {
		return nil, err
	}
	sub, err := s.Uint64()
	if err != nil {
		return nil, err
	}
	var out TxType
	switch DecryptedKind(sub) {
	case DecryptedResolved:
		var v Resolved
		err = s.Decode(&v)
		out = v
	case DecryptedUnresolvable:
		var v Unresolvable
		err = s.Decode(&v)
		out = v
	default:
		return nil, fmt.Errorf("decrypted header: %w %d", errUnknownKind, sub)
	}
	if err != nil {
		return nil, err
	}
	return out, s.ListEnd()
}
