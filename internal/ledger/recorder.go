package ledger

import (
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/probelabs/visor/internal/rpc"
)

// Recorder adapts the worker to the rpc server's audit sink. It builds one
// ledger event per processed input line.
type Recorder struct {
	worker *Worker
}

// NewRecorder creates a recorder submitting to worker.
func NewRecorder(worker *Worker) *Recorder {
	return &Recorder{worker: worker}
}

// Record queues an audit event for the given request outcome. Params are
// copied so later mutation by handlers cannot alter the recorded payload.
// Never blocks; recording is shed under backpressure.
func (r *Recorder) Record(method string, id interface{}, params map[string]interface{}, outcome string) {
	if r == nil || r.worker == nil {
		return
	}

	event := eventPool.Get()
	event.ID = uuid.New().String()[:8]
	event.Timestamp = time.Now()
	event.Method = method
	event.Outcome = outcome

	event.EventType = EventRequest
	if outcome == rpc.OutcomeParseError {
		event.EventType = EventProtocolError
	}

	if id != nil {
		event.RequestID = fmt.Sprint(id)
	}
	for k, v := range params {
		event.Params[k] = v
	}

	r.worker.Submit(event)
}
