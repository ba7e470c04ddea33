// Package keys loads the RSA signing keypair used for token signing and
// verification.
//
// Keys are loaded exactly once at process start and held immutably in memory
// for the process lifetime. Any problem with the configured key material
// (missing file, malformed PEM, keys that are not a matching pair) is a fatal
// startup error: the service must never come up in a state where it can sign
// tokens it cannot verify, or vice versa.
package keys

import (
	"crypto/rsa"
	"fmt"
	"os"

	"github.com/golang-jwt/jwt/v5"
)

// Pair holds an RSA keypair. The private key signs tokens; the public key
// verifies them and may be distributed safely.
type Pair struct {
	Private *rsa.PrivateKey
	Public  *rsa.PublicKey
}

// Load reads and validates the keypair from PEM files at the given paths.
//
// It returns ErrKeyMissing (wrapped) if either file cannot be read,
// ErrKeyMalformed if either file is not a parseable RSA PEM key, and
// ErrKeyMismatch if the public key does not match the private key.
func Load(privatePath, publicPath string) (Pair, error) {
	privPEM, err := os.ReadFile(privatePath)
	if err != nil {
		return Pair{}, fmt.Errorf("keys: read private key %q: %w: %v", privatePath, ErrKeyMissing, err)
	}
	pubPEM, err := os.ReadFile(publicPath)
	if err != nil {
		return Pair{}, fmt.Errorf("keys: read public key %q: %w: %v", publicPath, ErrKeyMissing, err)
	}

	priv, err := jwt.ParseRSAPrivateKeyFromPEM(privPEM)
	if err != nil {
		return Pair{}, fmt.Errorf("keys: parse private key %q: %w", privatePath, ErrKeyMalformed)
	}
	pub, err := jwt.ParseRSAPublicKeyFromPEM(pubPEM)
	if err != nil {
		return Pair{}, fmt.Errorf("keys: parse public key %q: %w", publicPath, ErrKeyMalformed)
	}

	// The configured public key must be the pair of the private key. A
	// mismatched pair would sign tokens that this process then rejects.
	if !priv.PublicKey.Equal(pub) {
		return Pair{}, fmt.Errorf("keys: public key %q is not the pair of private key %q: %w", publicPath, privatePath, ErrKeyMismatch)
	}

	return Pair{Private: priv, Public: pub}, nil
}
