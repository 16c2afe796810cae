package domain

import "bytes"

// tombstoneMarker is the fixed ciphertext placeholder written by erasure.
// One byte, far shorter than any valid AEAD output (which always carries a
// 16-byte authentication tag), so it can never be mistaken for ciphertext.
var tombstoneMarker = []byte{0x00}

// EncryptedValue is the authenticated ciphertext of a single protected field.
//
// Values are produced only by the field encryptor and are never constructed
// by hand elsewhere. KeyVersion records which root key version the encryption
// subkey was derived from; decryption must consult that historical version,
// never assume the current one. Algorithm drives cipher dispatch on decrypt.
type EncryptedValue struct {
	Ciphertext []byte
	Nonce      []byte
	KeyVersion uint
	Algorithm  Algorithm
}

// IsTombstone reports whether the value was scrubbed by the anonymization engine.
func (v *EncryptedValue) IsTombstone() bool {
	return v.Algorithm == Erased && bytes.Equal(v.Ciphertext, tombstoneMarker)
}

// Tombstone returns the terminal value written in place of erased ciphertext.
// It is distinguishable from any valid encryption output and carries no key
// reference, so re-running erasure over it is a no-op.
func Tombstone() EncryptedValue {
	return EncryptedValue{
		Ciphertext: tombstoneMarker,
		Nonce:      nil,
		KeyVersion: 0,
		Algorithm:  Erased,
	}
}

// BlindIndexToken is a deterministic searchable token for one field value.
//
// The token is a keyed one-way transform of the normalized plaintext: equal
// normalized inputs always produce equal tokens, and the token alone never
// yields plaintext. It is a filter, not proof of identity; on the rare
// collision multiple candidates match and callers must decrypt and discard
// false positives.
type BlindIndexToken struct {
	Token      string
	FieldName  string
	KeyVersion uint
}
