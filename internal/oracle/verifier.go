package oracle

import (
	"bytes"
	"crypto/ed25519"
	"errors"

	"wagerescrow/internal/address"
)

const (
	SignatureSize = ed25519.SignatureSize
	MessageSize   = 3 * address.Size

	sigOffset    = 1
	pubkeyOffset = sigOffset + SignatureSize
	msgOffset    = pubkeyOffset + ed25519.PublicKeySize

	// EnvelopeSize is the length of a single-signature envelope over a result message.
	EnvelopeSize = msgOffset + MessageSize
)

var (
	ErrInvalidSignatureData  = errors.New("invalid signature data")
	ErrInvalidSignatureCount = errors.New("invalid signature count")
	ErrSignatureMismatch     = errors.New("signature mismatch")
	ErrPublicKeyMismatch     = errors.New("public key mismatch")
)

// ResultMessage is the canonical attestation for a match outcome:
// matchID || winner || resultHash.
func ResultMessage(matchID, winner address.Address, resultHash [32]byte) []byte {
	msg := make([]byte, 0, MessageSize)
	msg = append(msg, matchID[:]...)
	msg = append(msg, winner[:]...)
	msg = append(msg, resultHash[:]...)
	return msg
}

// Envelope encodes a verification record binding one signature and signer
// key to the exact message they cover: [numSigs=1][signature][pubkey][message].
func Envelope(signature []byte, pub ed25519.PublicKey, message []byte) []byte {
	out := make([]byte, 0, msgOffset+len(message))
	out = append(out, 1)
	out = append(out, signature...)
	out = append(out, pub...)
	out = append(out, message...)
	return out
}

// Ed25519Verifier checks oracle attestations. The caller supplies both the
// signature it claims and the envelope the oracle produced; the envelope must
// carry that same signature, the configured verifier key and the expected
// message, and the signature must verify.
type Ed25519Verifier struct{}

func (Ed25519Verifier) Verify(verifier address.Address, message, signature, envelope []byte) error {
	if len(envelope) < EnvelopeSize {
		return ErrInvalidSignatureData
	}
	if envelope[0] != 1 {
		return ErrInvalidSignatureCount
	}
	if len(signature) != SignatureSize {
		return ErrInvalidSignatureData
	}
	envSig := envelope[sigOffset:pubkeyOffset]
	envPub := envelope[pubkeyOffset:msgOffset]
	envMsg := envelope[msgOffset:]
	if !bytes.Equal(envSig, signature) {
		return ErrSignatureMismatch
	}
	if !bytes.Equal(envPub, verifier[:]) {
		return ErrPublicKeyMismatch
	}
	if !bytes.Equal(envMsg, message) {
		return ErrSignatureMismatch
	}
	if !ed25519.Verify(verifier.PublicKey(), message, signature) {
		return ErrSignatureMismatch
	}
	return nil
}

// Attestation is what an oracle hands back after signing a result.
type Attestation struct {
	Signature []byte
	Envelope  []byte
}

func Attest(priv ed25519.PrivateKey, matchID, winner address.Address, resultHash [32]byte) Attestation {
	msg := ResultMessage(matchID, winner, resultHash)
	sig := ed25519.Sign(priv, msg)
	pub := priv.Public().(ed25519.PublicKey)
	return Attestation{Signature: sig, Envelope: Envelope(sig, pub, msg)}
}
