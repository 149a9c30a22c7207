package tx

import (
	"errors"
	"testing"
	"time"

	"github.com/btcsuite/btcd/btcec/v2"
	"github.com/btcsuite/btcd/btcec/v2/schnorr"
	"github.com/holiman/uint256"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"sealedtx/pb"
	"sealedtx/tpke"
)

func newKey(t *testing.T) *btcec.PrivateKey {
	t.Helper()
	key, err := btcec.NewPrivateKey()
	require.NoError(t, err)
	return key
}

// newWrapper builds a signed wrapper with code and data, not yet encrypted.
func newWrapper(t *testing.T, key *btcec.PrivateKey, code, data []byte) *Tx {
	t.Helper()
	fee := Fee{Amount: uint256.NewInt(1000), Token: "NAM"}
	w := NewTx(NewWrapperTx(fee, schnorr.SerializePubKey(key.PubKey()), 3, 50000, nil))
	w.SetCode(NewCode(code))
	w.SetData(NewData(data))
	require.NoError(t, w.Sign(key))
	return w
}

func TestSectionHashSalting(t *testing.T) {
	payload := []byte("same payload")
	a := Data{Salt: SaltAt(time.UnixMilli(1000)), Payload: payload}
	b := Data{Salt: SaltAt(time.UnixMilli(2000)), Payload: payload}
	assert.NotEqual(t, HashSection(a), HashSection(b))

	// Same bytes under different tags must not collide.
	c := Code{Salt: a.Salt, Payload: payload}
	assert.NotEqual(t, HashSection(a), HashSection(c))
	assert.Equal(t, HashSection(a), HashSection(Data{Salt: a.Salt, Payload: payload}))
}

func TestCiphertextHashIsPayloadOnly(t *testing.T) {
	opaque := []byte("opaque bytes")
	h1 := HashSection(Ciphertext{Opaque: opaque})
	h2 := HashSection(Ciphertext{Opaque: append([]byte{}, opaque...)})
	assert.Equal(t, h1, h2)
	assert.NotEqual(t, h1, HashSection(Ciphertext{Opaque: []byte("other")}))
}

func TestSignatureHashFramesVariableFields(t *testing.T) {
	salt := SaltAt(time.UnixMilli(1000))
	a := Signature{Salt: salt, Target: Hash{1}, Sig: []byte{0xaa, 0xbb}, PublicKey: []byte{0xcc}}
	b := Signature{Salt: salt, Target: Hash{1}, Sig: []byte{0xaa}, PublicKey: []byte{0xbb, 0xcc}}
	assert.NotEqual(t, HashSection(a), HashSection(b))

	c := Signature{Salt: salt, Target: Hash{1}, Sig: []byte{0xaa, 0xbb, 0xcc}}
	assert.NotEqual(t, HashSection(a), HashSection(c))
	assert.Equal(t, HashSection(a), HashSection(Signature{Salt: salt, Target: Hash{1}, Sig: []byte{0xaa, 0xbb}, PublicKey: []byte{0xcc}}))
}

// 构造函数生成的 nil 字段解码后仍然相等
func TestRoundTripNilFields(t *testing.T) {
	in := NewTx(NewWrapperTx(Fee{Token: "NAM"}, nil, 0, 0, nil))
	in.SetCode(NewCode(nil))
	in.SetData(NewData(nil))
	in.AddSection(NewExtraData(nil))

	out, err := Decode(in.MustBytes())
	require.NoError(t, err)
	assert.Equal(t, in, out)
	code, ok := out.Code()
	require.True(t, ok)
	assert.Empty(t, code)

	// 字面量构造的 header 只保证字节级一致
	lit := NewTx(WrapperTx{Fee: Fee{Token: "NAM"}})
	lit.SetCode(Code{Salt: SaltAt(time.UnixMilli(1))})
	b := lit.MustBytes()
	got, err := Decode(b)
	require.NoError(t, err)
	assert.Equal(t, b, got.MustBytes())
	assert.Equal(t, lit.HeaderHash(), got.HeaderHash())
	w, _ := got.Wrapper()
	assert.True(t, w.Fee.Amount.IsZero())
}

func TestSectionCodec(t *testing.T) {
	sections := []Section{
		NewData([]byte("data")),
		NewExtraData([]byte("vp")),
		NewCode([]byte("code")),
		Signature{Salt: NewSalt(), Target: Hash{1}, Sig: []byte{2}, PublicKey: []byte{3}},
		Ciphertext{Opaque: []byte("ct")},
	}
	for _, s := range sections {
		b, err := EncodeSection(s)
		require.NoError(t, err)
		got, err := DecodeSection(b)
		require.NoError(t, err, s.Kind().String())
		assert.Equal(t, s, got)
		assert.Equal(t, HashSection(s), HashSection(got))
	}

	_, err := DecodeSection([]byte{0xc2, 0x09, 0x80})
	assert.ErrorIs(t, err, errUnknownKind)
}

func TestEnvelopeRoundTrip(t *testing.T) {
	key := newKey(t)
	pow := SolvePoW([]byte("payer"), 4)
	valid := true
	headers := []TxType{
		RawHeader{},
		NewWrapperTx(Fee{Amount: uint256.NewInt(7), Token: "NAM"}, []byte("payer"), 1, 2, nil),
		NewWrapperTx(Fee{Amount: uint256.NewInt(7), Token: "NAM"}, []byte("payer"), 1, 2, &pow),
		Resolved{HeaderHash: Hash{9}},
		Resolved{HeaderHash: Hash{9}, HasValidPoW: &valid},
		Unresolvable{Wrapper: NewWrapperTx(Fee{Amount: uint256.NewInt(1), Token: "NAM"}, []byte("payer"), 1, 2, nil)},
		ProtocolTx{PublicKey: []byte("validator"), Type: ProtocolDKG},
	}
	for _, h := range headers {
		in := NewTx(h)
		in.SetCode(NewCode([]byte("wasm")))
		in.SetData(NewData([]byte("args")))
		in.AddSection(NewExtraData([]byte("extra")))
		require.NoError(t, in.Sign(key))

		b, err := in.Bytes()
		require.NoError(t, err)
		out, err := Decode(b)
		require.NoError(t, err, h.Kind().String())
		assert.Equal(t, in, out)
		assert.Equal(t, in.HeaderHash(), out.HeaderHash())
	}
}

func TestEnvelopeRoundTripNoSections(t *testing.T) {
	in := NewTx(RawHeader{CodeHash: Hash{1}})
	out, err := Decode(in.MustBytes())
	require.NoError(t, err)
	assert.Equal(t, in, out)
}

func TestDecodeErrorKinds(t *testing.T) {
	_, err := Decode([]byte{0x0a, 0x05, 0x01})
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrOuterFraming))
	assert.False(t, errors.Is(err, ErrInnerSchema))
	var de *DecodeError
	require.True(t, errors.As(err, &de))

	framed := (&pb.Tx{Data: []byte("not rlp of an envelope")}).Marshal()
	_, err = Decode(framed)
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrInnerSchema))
	assert.False(t, errors.Is(err, ErrOuterFraming))
}

func TestGetSection(t *testing.T) {
	w := NewTx(RawHeader{})
	code := NewCode([]byte("code"))
	h := w.AddSection(code)

	got, ok := w.GetSection(h)
	require.True(t, ok)
	assert.Equal(t, code, got)

	_, ok = w.GetSection(Hash{0xff})
	assert.False(t, ok)
}

func TestSetCodeAndData(t *testing.T) {
	for _, h := range []TxType{
		RawHeader{},
		NewWrapperTx(Fee{Amount: uint256.NewInt(0)}, []byte("pk"), 0, 0, nil),
		Resolved{},
		Unresolvable{Wrapper: NewWrapperTx(Fee{}, []byte("pk"), 0, 0, nil)},
		ProtocolTx{},
	} {
		w := NewTx(h)
		ch := w.SetCode(NewCode([]byte("code")))
		dh := w.SetData(NewData([]byte("data")))
		assert.Equal(t, ch, w.CodeHash())
		assert.Equal(t, dh, w.DataHash())

		code, ok := w.Code()
		require.True(t, ok)
		assert.Equal(t, []byte("code"), code)
		data, ok := w.Data()
		require.True(t, ok)
		assert.Equal(t, []byte("data"), data)
	}
}

func TestCodeMissing(t *testing.T) {
	w := NewTx(RawHeader{CodeHash: Hash{1}})
	_, ok := w.Code()
	assert.False(t, ok)

	// A hash pointing at the wrong kind of section does not count.
	h := w.AddSection(NewData([]byte("not code")))
	w.SetCodeHash(h)
	_, ok = w.Code()
	assert.False(t, ok)
}

func TestExtraData(t *testing.T) {
	w := NewTx(RawHeader{})
	eh := w.AddSection(NewExtraData([]byte("vp code")))
	dh := w.AddSection(NewData([]byte("data")))

	got, err := w.ExtraData(eh)
	require.NoError(t, err)
	assert.Equal(t, []byte("vp code"), got)

	_, err = w.ExtraData(dh)
	assert.ErrorIs(t, err, ErrWrongSectionKind)
	_, err = w.ExtraData(Hash{7})
	assert.ErrorIs(t, err, ErrSectionNotFound)
}

func TestVerifySignature(t *testing.T) {
	key := newKey(t)
	w := newWrapper(t, key, []byte("code"), []byte("data"))
	pk := schnorr.SerializePubKey(key.PubKey())

	require.NoError(t, w.VerifySignature(pk, w.HeaderHash()))

	other := schnorr.SerializePubKey(newKey(t).PubKey())
	assert.ErrorIs(t, w.VerifySignature(other, w.HeaderHash()), ErrMissingSignature)
	assert.EqualError(t, w.VerifySignature(pk, Hash{1}), "missing signature data")

	// Corrupt the signature bytes in place.
	for i, s := range w.Sections {
		if sig, ok := s.(Signature); ok {
			sig.Sig = append([]byte{}, sig.Sig...)
			sig.Sig[10] ^= 0x01
			w.Sections[i] = sig
		}
	}
	assert.ErrorIs(t, w.VerifySignature(pk, w.HeaderHash()), ErrInvalidSignature)
}

func TestSignSection(t *testing.T) {
	key := newKey(t)
	w := NewTx(RawHeader{})
	code := NewCode([]byte("code"))
	ch := w.SetCode(code)
	sig, err := SignSection(code, key)
	require.NoError(t, err)
	w.AddSection(sig)

	assert.NoError(t, w.VerifySignature(schnorr.SerializePubKey(key.PubKey()), ch))
}

func TestEncryptDecryptInverse(t *testing.T) {
	key := newKey(t)
	sk, pk := tpke.GenerateKey(nil)
	w := newWrapper(t, key, []byte("code"), []byte("data"))
	plain := &Tx{Header: w.Header, Sections: append([]Section{}, w.Sections...)}

	require.NoError(t, w.Encrypt(pk))
	require.Len(t, w.Sections, 3)
	assert.IsType(t, Ciphertext{}, w.Sections[0])
	assert.IsType(t, Ciphertext{}, w.Sections[1])
	// The wrapper signature stays readable.
	assert.IsType(t, Signature{}, w.Sections[2])
	assert.NoError(t, w.VerifySignature(schnorr.SerializePubKey(key.PubKey()), w.HeaderHash()))
	assert.True(t, w.ValidateCiphertext())
	_, ok := w.Code()
	assert.False(t, ok)

	// Survives the wire.
	w, err := Decode(w.MustBytes())
	require.NoError(t, err)

	require.NoError(t, w.Decrypt(sk))
	assert.Equal(t, plain, w)
}

func TestEncryptIsRandomized(t *testing.T) {
	_, pk := tpke.GenerateKey(nil)
	code := NewCode([]byte("code"))
	a := NewTx(RawHeader{})
	a.SetCode(code)
	b := NewTx(RawHeader{})
	b.SetCode(code)

	require.NoError(t, a.Encrypt(pk))
	require.NoError(t, b.Encrypt(pk))
	assert.NotEqual(t, a.Sections[0], b.Sections[0])
}

func TestDecryptWrongKeyLeavesEnvelope(t *testing.T) {
	_, pk := tpke.GenerateKey(nil)
	wrong, _ := tpke.GenerateKey(nil)
	w := newWrapper(t, newKey(t), []byte("code"), []byte("data"))
	require.NoError(t, w.Encrypt(pk))
	before := w.MustBytes()

	err := w.Decrypt(wrong)
	var de *DecryptError
	require.True(t, errors.As(err, &de))
	assert.Equal(t, ReasonInvalidCiphertext, de.Reason)
	assert.Equal(t, 0, de.Index)
	assert.Equal(t, before, w.MustBytes())

	err = w.Decrypt(nil)
	require.True(t, errors.As(err, &de))
	assert.Equal(t, ReasonNoKey, de.Reason)
}

func TestDecryptMissingData(t *testing.T) {
	sk, pk := tpke.GenerateKey(nil)
	w := NewTx(NewWrapperTx(Fee{Amount: uint256.NewInt(1)}, []byte("pk"), 0, 0, nil))
	w.SetCode(NewCode([]byte("code")))
	w.SetDataHash(Hash{0xaa})
	require.NoError(t, w.Encrypt(pk))

	err := w.Decrypt(sk)
	var de *DecryptError
	require.True(t, errors.As(err, &de))
	assert.Equal(t, ReasonMissingData, de.Reason)
	assert.IsType(t, Ciphertext{}, w.Sections[0])
}

func TestDecryptMalformedSection(t *testing.T) {
	sk, pk := tpke.GenerateKey(nil)
	ct, err := tpke.Encrypt([]byte("not a section"), pk, nil)
	require.NoError(t, err)
	opaque, err := ct.MarshalBinary()
	require.NoError(t, err)

	w := NewTx(RawHeader{})
	w.AddSection(Ciphertext{Opaque: opaque})
	err = w.Decrypt(sk)
	var de *DecryptError
	require.True(t, errors.As(err, &de))
	assert.Equal(t, ReasonMalformedSection, de.Reason)
}

func TestValidateCiphertext(t *testing.T) {
	_, pk := tpke.GenerateKey(nil)
	w := newWrapper(t, newKey(t), []byte("code"), []byte("data"))
	require.NoError(t, w.Encrypt(pk))
	require.True(t, w.ValidateCiphertext())

	c := w.Sections[0].(Ciphertext)
	c.Opaque = append([]byte{}, c.Opaque...)
	c.Opaque[len(c.Opaque)-1] ^= 0x01
	w.Sections[0] = c
	assert.False(t, w.ValidateCiphertext())

	w.Sections[0] = Ciphertext{Opaque: []byte("short")}
	assert.False(t, w.ValidateCiphertext())

	assert.True(t, NewTx(RawHeader{}).ValidateCiphertext())
}

func TestProofOfWork(t *testing.T) {
	pk := []byte("fee payer")
	sol := SolvePoW(pk, 8)
	assert.True(t, sol.Verify(pk))

	w := NewWrapperTx(Fee{}, pk, 0, 0, &sol)
	assert.True(t, w.ValidPoW())
	assert.False(t, NewWrapperTx(Fee{}, pk, 0, 0, nil).ValidPoW())

	hard := PoWSolution{Difficulty: 255, Nonce: sol.Nonce}
	assert.False(t, hard.Verify(pk))
}

func TestUnresolvableWrapperBytes(t *testing.T) {
	wrapper := NewWrapperTx(Fee{Amount: uint256.NewInt(5), Token: "NAM"}, []byte("pk"), 2, 10, nil)
	b, err := Unresolvable{Wrapper: wrapper}.WrapperBytes()
	require.NoError(t, err)
	h, err := DecodeHeader(b)
	require.NoError(t, err)
	assert.Equal(t, wrapper, h)
}
