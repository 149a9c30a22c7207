package tx

import (
	"errors"
	"fmt"

	"sealedtx/tpke"
)

// DecryptReason classifies why a wrapper could not be decrypted.
type DecryptReason int

const (
	ReasonInvalidCiphertext DecryptReason = iota
	ReasonMalformedSection
	ReasonMissingCode
	ReasonMissingData
	ReasonNoKey
)

func (r DecryptReason) String() string {
	switch r {
	case ReasonInvalidCiphertext:
		return "invalid ciphertext"
	case ReasonMalformedSection:
		return "malformed section"
	case ReasonMissingCode:
		return "missing code"
	case ReasonMissingData:
		return "missing data"
	case ReasonNoKey:
		return "no key"
	default:
		return "unknown"
	}
}

// DecryptError is the typed outcome of a failed Decrypt. Index is the
// position of the offending section, or -1.
type DecryptError struct {
	Reason DecryptReason
	Index  int
	Err    error
}

func (e *DecryptError) Error() string {
	if e.Index >= 0 {
		if e.Err != nil {
			return fmt.Sprintf("decrypt section %d: %s: %v", e.Index, e.Reason, e.Err)
		}
		return fmt.Sprintf("decrypt section %d: %s", e.Index, e.Reason)
	}
	if e.Err != nil {
		return fmt.Sprintf("decrypt: %s: %v", e.Reason, e.Err)
	}
	return "decrypt: " + e.Reason.String()
}

func (e *DecryptError) Unwrap() error { return e.Err }

// Encrypt replaces every section with a Ciphertext, except signatures over
// the header hash.
func (t *Tx) Encrypt(pk *tpke.PublicKey) error {
	if pk == nil {
		return tpke.ErrNilKey
	}
	header := t.HeaderHash()
	out := make([]Section, len(t.Sections))
	for i, s := range t.Sections {
		if sig, ok := s.(Signature); ok && sig.Target == header {
			out[i] = s
			continue
		}
		plain, err := EncodeSection(s)
		if err != nil {
			return fmt.Errorf("encrypt section %d: %w", i, err)
		}
		ct, err := tpke.Encrypt(plain, pk, nil)
		if err != nil {
			return fmt.Errorf("encrypt section %d: %w", i, err)
		}
		opaque, err := ct.MarshalBinary()
		if err != nil {
			return fmt.Errorf("encrypt section %d: %w", i, err)
		}
		out[i] = Ciphertext{Opaque: opaque}
	}
	t.Sections = out
	return nil
}

// Decrypt opens every Ciphertext section with sk. Either all of them open
// and the header's code and data resolve, or the envelope is left untouched
// and a *DecryptError is returned.
func (t *Tx) Decrypt(sk *tpke.PrivateKey) error {
	if sk == nil {
		return &DecryptError{Reason: ReasonNoKey, Index: -1}
	}
	out := make([]Section, len(t.Sections))
	for i, s := range t.Sections {
		c, ok := s.(Ciphertext)
		if !ok {
			out[i] = s
			continue
		}
		ct, err := tpke.ParseCiphertext(c.Opaque)
		if err != nil {
			return &DecryptError{Reason: ReasonInvalidCiphertext, Index: i, Err: err}
		}
		plain, err := tpke.Decrypt(ct, sk)
		if err != nil {
			return &DecryptError{Reason: ReasonInvalidCiphertext, Index: i, Err: err}
		}
		sec, err := DecodeSection(plain)
		if err != nil {
			return &DecryptError{Reason: ReasonMalformedSection, Index: i, Err: err}
		}
		out[i] = sec
	}
	opened := &Tx{Header: t.Header, Sections: out}
	if _, ok := opened.Code(); !ok {
		return &DecryptError{Reason: ReasonMissingCode, Index: -1}
	}
	if _, ok := opened.Data(); !ok {
		return &DecryptError{Reason: ReasonMissingData, Index: -1}
	}
	t.Sections = out
	return nil
}

// ValidateCiphertext runs the public validity check on every Ciphertext
// section. It needs no key.
func (t *Tx) ValidateCiphertext() bool {
	for _, s := range t.Sections {
		c, ok := s.(Ciphertext)
		if !ok {
			continue
		}
		ct, err := tpke.ParseCiphertext(c.Opaque)
		if err != nil || !ct.Check() {
			return false
		}
	}
	return true
}

// IsDecryptError reports whether err is a decryption outcome rather than a
// programming error.
func IsDecryptError(err error) bool {
	var de *DecryptError
	return errors.As(err, &de)
}
