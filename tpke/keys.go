package tpke

import (
	"crypto/cipher"
	"encoding/hex"
	"fmt"

	"go.dedis.ch/kyber/v3"
	"go.dedis.ch/kyber/v3/pairing/bn256"
	"go.dedis.ch/kyber/v3/util/random"
)

var suite = bn256.NewSuite()

// Encoded sizes of the group elements used by this package.
var (
	G1Size = suite.G1().PointLen()
	G2Size = suite.G2().PointLen()
)

// PrivateKey is a decryption key (or a validator's key share), a point in G1.
type PrivateKey struct {
	point kyber.Point
}

// PublicKey is the encryption key for an epoch, a point in G2.
type PublicKey struct {
	point kyber.Point
}

// GenerateKey draws a fresh keypair from rand. A nil rand uses the system source.
func GenerateKey(rand cipher.Stream) (*PrivateKey, *PublicKey) {
	if rand == nil {
		rand = random.New()
	}
	s := suite.G1().Scalar().Pick(rand)
	return keyPairFromScalar(s)
}

func keyPairFromScalar(s kyber.Scalar) (*PrivateKey, *PublicKey) {
	sk := &PrivateKey{point: suite.G1().Point().Mul(s, nil)}
	pk := &PublicKey{point: suite.G2().Point().Mul(s, nil)}
	return sk, pk
}

// DefaultPrivateKey is the fixed generator key used until key rotation feeds
// real shares into block proposal.
func DefaultPrivateKey() *PrivateKey {
	return &PrivateKey{point: suite.G1().Point().Base()}
}

// DefaultPublicKey pairs with DefaultPrivateKey.
func DefaultPublicKey() *PublicKey {
	return &PublicKey{point: suite.G2().Point().Base()}
}

func (k *PrivateKey) MarshalBinary() ([]byte, error) { return k.point.MarshalBinary() }
func (k *PublicKey) MarshalBinary() ([]byte, error)  { return k.point.MarshalBinary() }

func (k *PrivateKey) Equal(o *PrivateKey) bool {
	return k != nil && o != nil && k.point.Equal(o.point)
}

func (k *PublicKey) Equal(o *PublicKey) bool {
	return k != nil && o != nil && k.point.Equal(o.point)
}

// String returns the hex encoding of the key.
func (k *PublicKey) String() string {
	b, err := k.MarshalBinary()
	if err != nil {
		return "<invalid>"
	}
	return hex.EncodeToString(b)
}

// ParsePrivateKey 解码 G1 点
func ParsePrivateKey(b []byte) (*PrivateKey, error) {
	p := suite.G1().Point()
	if err := p.UnmarshalBinary(b); err != nil {
		return nil, fmt.Errorf("tpke: parse private key: %w", err)
	}
	return &PrivateKey{point: p}, nil
}

// ParsePublicKey 解码 G2 点
func ParsePublicKey(b []byte) (*PublicKey, error) {
	p := suite.G2().Point()
	if err := p.UnmarshalBinary(b); err != nil {
		return nil, fmt.Errorf("tpke: parse public key: %w", err)
	}
	return &PublicKey{point: p}, nil
}

// PrivateKeyFromHex decodes a hex private key. An empty string yields DefaultPrivateKey.
func PrivateKeyFromHex(s string) (*PrivateKey, error) {
	if s == "" {
		return DefaultPrivateKey(), nil
	}
	b, err := hex.DecodeString(s)
	if err != nil {
		return nil, fmt.Errorf("tpke: private key hex: %w", err)
	}
	return ParsePrivateKey(b)
}

// PublicKeyFromHex decodes a hex public key. An empty string yields DefaultPublicKey.
func PublicKeyFromHex(s string) (*PublicKey, error) {
	if s == "" {
		return DefaultPublicKey(), nil
	}
	b, err := hex.DecodeString(s)
	if err != nil {
		return nil, fmt.Errorf("tpke: public key hex: %w", err)
	}
	return ParsePublicKey(b)
}
