package ledger

import (
	"fmt"

	"github.com/probelabs/visor/internal/crypto"
)

// VerificationResult contains the outcome of a chain verification pass.
type VerificationResult struct {
	Valid        bool
	TotalEvents  int
	ErrorMessage string
	FailedAtSeq  int
}

// VerifyChain validates hashes, signatures, and linkage for every event of a
// run. The run's stored public key is used for signature checks, so the
// ledger can be verified without access to the private key.
func VerifyChain(db *DB, runID string) (*VerificationResult, error) {
	result := &VerificationResult{Valid: true}

	pubKey, err := db.RunPublicKey(runID)
	if err != nil {
		return nil, fmt.Errorf("loading run public key: %w", err)
	}

	events, err := db.EventsForRun(runID)
	if err != nil {
		return nil, fmt.Errorf("loading events: %w", err)
	}
	result.TotalEvents = len(events)

	prevHash := crypto.ZeroHash
	for i := range events {
		event := &events[i]

		if event.PrevHash != prevHash {
			result.Valid = false
			result.ErrorMessage = fmt.Sprintf("hash chain broken at seq %d: prev_hash mismatch", event.SeqIndex)
			result.FailedAtSeq = event.SeqIndex
			return result, nil
		}

		hash, err := crypto.EventHash(event.PrevHash, hashPayload(event))
		if err != nil {
			return nil, fmt.Errorf("recomputing hash at seq %d: %w", event.SeqIndex, err)
		}
		if hash != event.CurrentHash {
			result.Valid = false
			result.ErrorMessage = fmt.Sprintf("event at seq %d failed verification: hash mismatch", event.SeqIndex)
			result.FailedAtSeq = event.SeqIndex
			return result, nil
		}

		ok, err := crypto.VerifyHashSignature(pubKey, event.CurrentHash, event.Signature)
		if err != nil {
			return nil, fmt.Errorf("verifying signature at seq %d: %w", event.SeqIndex, err)
		}
		if !ok {
			result.Valid = false
			result.ErrorMessage = fmt.Sprintf("event at seq %d failed verification: bad signature", event.SeqIndex)
			result.FailedAtSeq = event.SeqIndex
			return result, nil
		}

		prevHash = event.CurrentHash
	}

	return result, nil
}
