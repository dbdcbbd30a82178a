/*
 * ledgergraph
 *
 * Package cryptoutil wraps the cryptographic primitives used by the
 * ledger: Ed25519 signing, SHA-256 hashing and hex encoding/decoding.
 */
package cryptoutil

import (
	"crypto/ed25519"
	"crypto/sha256"
	"encoding/hex"
	"errors"
)

/*
ErrInvalidKeyLength is returned when a hex-decoded key does not have the
length Ed25519 requires.
*/
var ErrInvalidKeyLength = errors.New("invalid key length")

/*
ErrInvalidSignatureLength is returned when a hex-decoded signature does not
have the length Ed25519 requires.
*/
var ErrInvalidSignatureLength = errors.New("invalid signature length")

/*
GenerateKey creates a new Ed25519 keypair and returns the hex-encoded
public and private (seed+public, 64 bytes) keys.
*/
func GenerateKey() (pubHex string, privHex string, err error) {
	pub, priv, err := ed25519.GenerateKey(nil)
	if err != nil {
		return "", "", err
	}

	return hex.EncodeToString(pub), hex.EncodeToString(priv), nil
}

/*
Sign signs msg with the hex-encoded Ed25519 private key and returns the
hex-encoded 64-byte signature.
*/
func Sign(privHex string, msg []byte) (string, error) {
	priv, err := hex.DecodeString(privHex)
	if err != nil {
		return "", err
	}

	if len(priv) != ed25519.PrivateKeySize {
		return "", ErrInvalidKeyLength
	}

	sig := ed25519.Sign(ed25519.PrivateKey(priv), msg)

	return hex.EncodeToString(sig), nil
}

/*
Verify reports whether sigHex is a valid Ed25519 signature of msg under the
hex-encoded public key pubHex. Malformed hex or key/signature lengths are
reported as a false result plus an error, never a panic - the Ed25519
stdlib itself panics on bad key/signature lengths, so callers must go
through this wrapper rather than calling ed25519.Verify directly.
*/
func Verify(pubHex string, msg []byte, sigHex string) (bool, error) {
	pub, err := hex.DecodeString(pubHex)
	if err != nil {
		return false, err
	}

	if len(pub) != ed25519.PublicKeySize {
		return false, ErrInvalidKeyLength
	}

	sig, err := hex.DecodeString(sigHex)
	if err != nil {
		return false, err
	}

	if len(sig) != ed25519.SignatureSize {
		return false, ErrInvalidSignatureLength
	}

	return ed25519.Verify(ed25519.PublicKey(pub), msg, sig), nil
}

/*
PublicFromPrivate derives the hex-encoded public key embedded in a
hex-encoded Ed25519 private key (the last 32 bytes of its seed+public
64-byte encoding), used to bootstrap a validator identity from a
startup flag that supplies only the private key (§6 "Startup flags").
*/
func PublicFromPrivate(privHex string) (string, error) {
	priv, err := hex.DecodeString(privHex)
	if err != nil {
		return "", err
	}

	if len(priv) != ed25519.PrivateKeySize {
		return "", ErrInvalidKeyLength
	}

	pub := ed25519.PrivateKey(priv).Public().(ed25519.PublicKey)

	return hex.EncodeToString(pub), nil
}

/*
SHA256Hex returns the lowercase hex-encoded SHA-256 digest of data.
*/
func SHA256Hex(data []byte) string {
	sum := sha256.Sum256(data)
	return hex.EncodeToString(sum[:])
}

/*
LeadingZeroHexCount returns the number of leading hex zero characters in a
hex-encoded hash string. Used to check a block's hash against its
difficulty (§3, §4.G).
*/
func LeadingZeroHexCount(hexHash string) int {
	count := 0
	for _, r := range hexHash {
		if r != '0' {
			break
		}
		count++
	}
	return count
}
