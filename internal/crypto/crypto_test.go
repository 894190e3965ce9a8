package crypto

import (
	"path/filepath"
	"testing"

	"github.com/probelabs/visor/internal/assert"
)

func TestEventHash_KeyOrderIndependent(t *testing.T) {
	a := map[string]interface{}{
		"method": "analyze_complexity",
		"params": map[string]interface{}{"file": "a.py", "depth": 2},
	}
	b := map[string]interface{}{
		"params": map[string]interface{}{"depth": 2, "file": "a.py"},
		"method": "analyze_complexity",
	}

	hashA, err := EventHash(ZeroHash, a)
	if err != nil {
		t.Fatalf("EventHash failed: %v", err)
	}
	hashB, err := EventHash(ZeroHash, b)
	if err != nil {
		t.Fatalf("EventHash failed: %v", err)
	}
	if hashA != hashB {
		t.Errorf("canonical hashing must be key-order independent:\n%s\n%s", hashA, hashB)
	}
	if len(hashA) != 64 {
		t.Errorf("expected 64 hex chars, got %d", len(hashA))
	}
}

func TestEventHash_SensitiveToPayloadAndPrevHash(t *testing.T) {
	payload := map[string]interface{}{"method": "find_patterns"}

	base, err := EventHash(ZeroHash, payload)
	if err != nil {
		t.Fatalf("EventHash failed: %v", err)
	}

	changed, err := EventHash(ZeroHash, map[string]interface{}{"method": "find_pattern"})
	if err != nil {
		t.Fatalf("EventHash failed: %v", err)
	}
	if base == changed {
		t.Error("hash must change when payload changes")
	}

	chained, err := EventHash(base, payload)
	if err != nil {
		t.Fatalf("EventHash failed: %v", err)
	}
	if base == chained {
		t.Error("hash must change when prev hash changes")
	}
}

func TestEventHash_InvalidInputs(t *testing.T) {
	oldStrictMode := assert.StrictMode
	oldSuppressLogs := assert.SuppressLogs
	assert.StrictMode = false
	assert.SuppressLogs = true
	defer func() {
		assert.StrictMode = oldStrictMode
		assert.SuppressLogs = oldSuppressLogs
	}()

	if _, err := EventHash("", map[string]interface{}{}); err == nil {
		t.Error("expected error for empty prev hash")
	}
	if _, err := EventHash("abc", map[string]interface{}{}); err == nil {
		t.Error("expected error for short prev hash")
	}
	if _, err := EventHash(ZeroHash, nil); err == nil {
		t.Error("expected error for nil payload")
	}
}

func TestSigner_SignAndVerify(t *testing.T) {
	keyPath := filepath.Join(t.TempDir(), ".key")
	signer, err := NewSigner(keyPath)
	if err != nil {
		t.Fatalf("NewSigner failed: %v", err)
	}

	hash, err := EventHash(ZeroHash, map[string]interface{}{"method": "echo"})
	if err != nil {
		t.Fatalf("EventHash failed: %v", err)
	}
	sig, err := signer.SignHash(hash)
	if err != nil {
		t.Fatalf("SignHash failed: %v", err)
	}

	ok, err := VerifyHashSignature(signer.PublicKey(), hash, sig)
	if err != nil {
		t.Fatalf("VerifyHashSignature failed: %v", err)
	}
	if !ok {
		t.Error("signature must verify against the signer's public key")
	}

	ok, err = VerifyHashSignature(signer.PublicKey(), hash+"0", sig)
	if err != nil {
		t.Fatalf("VerifyHashSignature failed: %v", err)
	}
	if ok {
		t.Error("signature must not verify against a different hash")
	}
}

func TestSigner_KeyPersistence(t *testing.T) {
	keyPath := filepath.Join(t.TempDir(), ".key")

	first, err := NewSigner(keyPath)
	if err != nil {
		t.Fatalf("NewSigner failed: %v", err)
	}
	second, err := NewSigner(keyPath)
	if err != nil {
		t.Fatalf("NewSigner reload failed: %v", err)
	}

	if first.PublicKey() != second.PublicKey() {
		t.Error("reloading the key file must produce the same keypair")
	}
}

func TestVerifyHashSignature_BadKeyMaterial(t *testing.T) {
	if _, err := VerifyHashSignature("zz", "hash", "00"); err == nil {
		t.Error("expected error for invalid public key hex")
	}
	if _, err := VerifyHashSignature("0011", "hash", "00"); err == nil {
		t.Error("expected error for wrong-sized public key")
	}
}
