package ledger

import (
	"time"

	"github.com/probelabs/visor/internal/pool"
)

// Event types recorded in the ledger.
const (
	EventRequest       = "request"
	EventProtocolError = "protocol_error"
)

// Event is a single served request in the audit chain.
type Event struct {
	ID          string                 `json:"id"`
	RunID       string                 `json:"run_id"`
	SeqIndex    int                    `json:"seq_index"`
	Timestamp   time.Time              `json:"timestamp"`
	EventType   string                 `json:"event_type"`
	Method      string                 `json:"method"`
	RequestID   string                 `json:"request_id,omitempty"`
	Params      map[string]interface{} `json:"params"`
	Outcome     string                 `json:"outcome"`
	PrevHash    string                 `json:"prev_hash"`
	CurrentHash string                 `json:"current_hash"`
	Signature   string                 `json:"signature"`
}

// eventPool recycles events between recorder submission and worker
// processing, keeping the per-request hot path allocation-free.
var eventPool = pool.New(
	func() *Event {
		return &Event{Params: make(map[string]interface{}, 8)}
	},
	func(e *Event) {
		e.ID = ""
		e.RunID = ""
		e.SeqIndex = 0
		e.Timestamp = time.Time{}
		e.EventType = ""
		e.Method = ""
		e.RequestID = ""
		e.Outcome = ""
		e.PrevHash = ""
		e.CurrentHash = ""
		e.Signature = ""
		for k := range e.Params {
			delete(e.Params, k)
		}
	},
)

// PoolMetrics exposes event pool reuse counters for the metrics endpoint.
func PoolMetrics() pool.Metrics {
	return eventPool.Stats()
}
