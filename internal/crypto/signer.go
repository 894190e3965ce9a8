package crypto

import (
	"crypto/ed25519"
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"os"
)

// Signer handles Ed25519 signing of event hashes. The private key is stored
// hex-encoded in a file with 0600 permissions. Safe for concurrent use.
type Signer struct {
	privateKey ed25519.PrivateKey
	publicKey  ed25519.PublicKey
}

// NewSigner loads the key at keyPath, generating and saving a fresh keypair
// when the file does not exist.
func NewSigner(keyPath string) (*Signer, error) {
	privateKey, err := loadPrivateKey(keyPath)
	if err != nil {
		publicKey, privateKey, err := ed25519.GenerateKey(rand.Reader)
		if err != nil {
			return nil, fmt.Errorf("generating keypair: %w", err)
		}
		if err := savePrivateKey(keyPath, privateKey); err != nil {
			return nil, fmt.Errorf("saving private key: %w", err)
		}
		return &Signer{privateKey: privateKey, publicKey: publicKey}, nil
	}

	return &Signer{
		privateKey: privateKey,
		publicKey:  privateKey.Public().(ed25519.PublicKey),
	}, nil
}

// SignHash signs a hash string and returns the hex-encoded signature.
// The hash is signed directly, not re-hashed.
func (s *Signer) SignHash(hash string) (string, error) {
	sig := ed25519.Sign(s.privateKey, []byte(hash))
	return hex.EncodeToString(sig), nil
}

// PublicKey returns the hex-encoded public key, stored with each run so
// external parties can verify exported chains.
func (s *Signer) PublicKey() string {
	return hex.EncodeToString(s.publicKey)
}

// VerifyHashSignature checks a hex signature over hash against a hex public key.
func VerifyHashSignature(pubKeyHex, hash, sigHex string) (bool, error) {
	pubKey, err := hex.DecodeString(pubKeyHex)
	if err != nil {
		return false, fmt.Errorf("decoding public key: %w", err)
	}
	if len(pubKey) != ed25519.PublicKeySize {
		return false, fmt.Errorf("public key has wrong size: %d", len(pubKey))
	}
	sig, err := hex.DecodeString(sigHex)
	if err != nil {
		return false, fmt.Errorf("decoding signature: %w", err)
	}
	return ed25519.Verify(ed25519.PublicKey(pubKey), []byte(hash), sig), nil
}

func loadPrivateKey(keyPath string) (ed25519.PrivateKey, error) {
	data, err := os.ReadFile(keyPath)
	if err != nil {
		return nil, err
	}
	key, err := hex.DecodeString(string(data))
	if err != nil {
		return nil, fmt.Errorf("decoding private key: %w", err)
	}
	if len(key) != ed25519.PrivateKeySize {
		return nil, fmt.Errorf("private key has wrong size: %d", len(key))
	}
	return ed25519.PrivateKey(key), nil
}

func savePrivateKey(keyPath string, key ed25519.PrivateKey) error {
	return os.WriteFile(keyPath, []byte(hex.EncodeToString(key)), 0600)
}
