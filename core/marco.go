package core

import (
	"crypto"
	"crypto/rand"
	"crypto/rsa"
	"crypto/sha512"
	"encoding/hex"
	"fmt"
)

// MarcoData is the tagged union a Marco carries: exactly one of
// Transaction, OpenAuction, Bid or Winner. Each variant knows how to
// produce the canonical byte preimage that is SHA-512 hashed and signed.
type MarcoData interface {
	marcoKind() string
	hashPreimage() []byte
}

// Marco is a signed, content-addressed record: the wire unit the
// blockchain's mempool and the RPC layer's SendMarco verb exchange.
// Invariant: Hash must equal hash(Data) before Signature is trusted.
type Marco struct {
	Hash      string
	Signature string
	Data      MarcoData
}

// NewMarco wraps data into a Marco with its hash computed but not yet
// signed. Call Sign to populate Signature.
func NewMarco(data MarcoData) *Marco {
	return &Marco{Hash: hashData(data), Data: data}
}

// hashData computes the SHA-512 hex digest of data's canonical preimage.
func hashData(data MarcoData) string {
	sum := sha512.Sum512(data.hashPreimage())
	return hex.EncodeToString(sum[:])
}

// RecomputeHash refreshes Hash from the current Data, used after mutating a
// marco in place (callers should prefer building a fresh Marco instead).
func (m *Marco) RecomputeHash() {
	m.Hash = hashData(m.Data)
}

// VerifyHash reports whether Hash still matches hash(Data) — the
// tamper-detection check the RPC handler runs on every incoming SendMarco.
func (m *Marco) VerifyHash() bool {
	return m.Hash == hashData(m.Data)
}

// Sign computes an RSA-PSS/SHA-512 signature over the hash bytes and stores
// it hex-encoded in Signature. Signing over the hash (rather than the raw
// data) is what lets Verify check data integrity and signature validity as
// two independent steps.
func (m *Marco) Sign(priv *rsa.PrivateKey) error {
	hashBytes, err := hex.DecodeString(m.Hash)
	if err != nil {
		return fmt.Errorf("core: marco hash is not valid hex: %w", err)
	}
	sig, err := rsa.SignPSS(rand.Reader, priv, crypto.SHA512, hashBytes, nil)
	if err != nil {
		return fmt.Errorf("core: sign marco: %w", err)
	}
	m.Signature = hex.EncodeToString(sig)
	return nil
}

// Verify checks both the hash-matches-data invariant and the RSA-PSS
// signature against pub. Both must hold for a marco to be accepted.
func (m *Marco) Verify(pub *rsa.PublicKey) error {
	if !m.VerifyHash() {
		return newValidationError("marco hash does not match data")
	}
	sigBytes, err := hex.DecodeString(m.Signature)
	if err != nil {
		return newValidationError("marco signature is not valid hex")
	}
	hashBytes, err := hex.DecodeString(m.Hash)
	if err != nil {
		return newValidationError("marco hash is not valid hex")
	}
	if err := rsa.VerifyPSS(pub, crypto.SHA512, hashBytes, sigBytes, nil); err != nil {
		return newValidationError("marco signature verification failed")
	}
	return nil
}

// Kind returns the tagged union variant name carried by Data.
func (m *Marco) Kind() string {
	if m.Data == nil {
		return ""
	}
	return m.Data.marcoKind()
}
