package crypto

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"strings"

	"github.com/ucarion/jcs"

	"github.com/probelabs/visor/internal/assert"
)

// ZeroHash is the prev_hash of the first event in a run.
var ZeroHash = strings.Repeat("0", 64)

// EventHash computes a deterministic chain hash over prevHash and payload.
// The payload is canonicalized with RFC 8785 (JSON Canonicalization Scheme)
// so the hash is stable across platforms and key orderings.
func EventHash(prevHash string, payload interface{}) (string, error) {
	if err := assert.Check(prevHash != "", "prev_hash must be non-empty"); err != nil {
		return "", err
	}
	if err := assert.Check(len(prevHash) == 64, "prev_hash must be 64 hex chars: got %d", len(prevHash)); err != nil {
		return "", err
	}
	if err := assert.Check(payload != nil, "payload must not be nil"); err != nil {
		return "", err
	}

	// Round-trip through encoding/json to normalize structs and typed maps
	// into plain values JCS can canonicalize.
	jsonBytes, err := json.Marshal(payload)
	if err != nil {
		return "", err
	}
	var normalized interface{}
	if err := json.Unmarshal(jsonBytes, &normalized); err != nil {
		return "", err
	}

	canonical, err := jcs.Format(normalized)
	if err != nil {
		return "", err
	}

	hasher := sha256.New()
	hasher.Write([]byte(prevHash))
	hasher.Write([]byte(canonical))
	return hex.EncodeToString(hasher.Sum(nil)), nil
}
