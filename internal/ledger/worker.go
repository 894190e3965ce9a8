package ledger

import (
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"

	"github.com/probelabs/visor/internal/assert"
	"github.com/probelabs/visor/internal/crypto"
	"github.com/probelabs/visor/internal/logging"
	"github.com/probelabs/visor/internal/ring"
)

const (
	maxDrainEvents   = 1 << 20
	maxShutdownTicks = 1 << 12
)

// Worker appends events to the ledger asynchronously through a ring buffer.
// Submissions are non-blocking: when the buffer is full, events are dropped
// and counted, so recording never backs up into the protocol loop (fail-open).
// Each process lifetime gets a fresh run whose events form a hash chain
// starting at the zero hash.
type Worker struct {
	ringBuffer      *ring.Buffer[*Event]
	signalChan      chan struct{}
	quitChan        chan struct{}
	db              *DB
	signer          *crypto.Signer
	runID           string
	lastSeq         int
	lastHash        string
	processedEvents atomic.Uint64
	droppedEvents   atomic.Uint64
	isUnhealthy     atomic.Bool
	closing         atomic.Bool
	wg              sync.WaitGroup
	shutdownOnce    sync.Once
}

// NewWorker creates a ledger worker over an open database.
// Returns an error if bufferSize <= 0 or a dependency is missing.
func NewWorker(db *DB, signer *crypto.Signer, bufferSize int) (*Worker, error) {
	if err := assert.NotNil(db, "database"); err != nil {
		return nil, err
	}
	if err := assert.NotNil(signer, "signer"); err != nil {
		return nil, err
	}
	if err := assert.Check(bufferSize > 0, "buffer size must be positive"); err != nil {
		return nil, err
	}

	rb, err := ring.New[*Event](bufferSize)
	if err != nil {
		return nil, err
	}

	return &Worker{
		ringBuffer: rb,
		signalChan: make(chan struct{}, 1),
		quitChan:   make(chan struct{}),
		db:         db,
		signer:     signer,
	}, nil
}

// RunID returns the identifier of the run this worker appends to.
// Empty until Start succeeds.
func (w *Worker) RunID() string {
	return w.runID
}

// IsHealthy reports whether event processing is keeping the chain intact.
func (w *Worker) IsHealthy() bool {
	return w != nil && !w.isUnhealthy.Load()
}

// Start registers a new run and launches the background processor.
func (w *Worker) Start() error {
	if err := assert.NotNil(w, "worker"); err != nil {
		return err
	}

	w.runID = uuid.New().String()
	w.lastSeq = -1
	w.lastHash = crypto.ZeroHash
	if err := w.db.InsertRun(w.runID, w.signer.PublicKey(), time.Now()); err != nil {
		return fmt.Errorf("registering run: %w", err)
	}
	logging.Info("run_started", logging.Fields{Component: "ledger", RunID: w.runID})

	w.closing.Store(false)
	w.wg.Add(1)
	go func() {
		defer w.wg.Done()
		w.processEvents()
	}()
	return nil
}

// Submit queues an event for recording without blocking. Events submitted
// after shutdown begins, or while the buffer is full, are dropped.
func (w *Worker) Submit(event *Event) {
	if err := assert.NotNil(event, "event"); err != nil {
		return
	}
	if w.closing.Load() {
		w.droppedEvents.Add(1)
		logging.Warn("event_dropped_shutdown", logging.Fields{Component: "ledger", EventID: event.ID})
		return
	}
	if err := w.ringBuffer.Push(event); err != nil {
		w.droppedEvents.Add(1)
		logging.Warn("event_dropped_backpressure", logging.Fields{Component: "ledger", EventID: event.ID})
		return
	}

	select {
	case w.signalChan <- struct{}{}:
	default:
		// Already signaled.
	}
}

// Stats returns processed and dropped event counts.
func (w *Worker) Stats() (processed, dropped uint64) {
	if w == nil {
		return 0, 0
	}
	return w.processedEvents.Load(), w.droppedEvents.Load()
}

// QueueDepth returns the current queue depth and capacity.
func (w *Worker) QueueDepth() (int, int) {
	if w == nil || w.ringBuffer == nil {
		return 0, 0
	}
	return w.ringBuffer.Len(), w.ringBuffer.Cap()
}

// Shutdown stops the processor, drains remaining events, and closes the
// database.
func (w *Worker) Shutdown(timeout time.Duration) error {
	if err := assert.NotNil(w, "worker"); err != nil {
		return err
	}
	if err := assert.Check(timeout > 0, "timeout must be positive"); err != nil {
		return err
	}

	w.closing.Store(true)
	w.shutdownOnce.Do(func() {
		close(w.quitChan)
	})

	if err := w.waitForStop(timeout); err != nil {
		logging.Warn("shutdown_wait_timeout", logging.Fields{Component: "ledger", Error: err.Error()})
	}
	w.drainBuffer()
	return w.db.Close()
}

func (w *Worker) waitForStop(timeout time.Duration) error {
	done := make(chan struct{})
	go func() {
		w.wg.Wait()
		close(done)
	}()

	step := timeout / maxShutdownTicks
	if step == 0 {
		step = time.Millisecond
	}
	ticker := time.NewTicker(step)
	defer ticker.Stop()

	for i := 0; i < maxShutdownTicks; i++ {
		select {
		case <-done:
			return nil
		case <-ticker.C:
		}
	}
	return fmt.Errorf("worker shutdown wait exceeded timeout")
}

func (w *Worker) processEvents() {
	for {
		select {
		case <-w.signalChan:
			w.drainBuffer()
		case <-w.quitChan:
			return
		}
	}
}

func (w *Worker) drainBuffer() {
	for i := 0; i < maxDrainEvents; i++ {
		if w.ringBuffer.IsEmpty() {
			return
		}
		event, err := w.ringBuffer.Pop()
		if err != nil {
			return
		}
		if err := w.persistEvent(event); err != nil {
			logging.Error("event_persist_failed", logging.Fields{Component: "ledger", EventID: event.ID, Error: err.Error()})
			w.isUnhealthy.Store(true)
		} else {
			w.processedEvents.Add(1)
		}
		eventPool.Put(event)
	}
}

// persistEvent assigns the next chain position, hashes, signs, and stores
// the event.
func (w *Worker) persistEvent(event *Event) error {
	if err := assert.NotNil(event, "event"); err != nil {
		return err
	}

	event.RunID = w.runID
	event.SeqIndex = w.lastSeq + 1
	event.PrevHash = w.lastHash

	hash, err := crypto.EventHash(event.PrevHash, hashPayload(event))
	if err != nil {
		return fmt.Errorf("hashing event: %w", err)
	}
	event.CurrentHash = hash

	sig, err := w.signer.SignHash(hash)
	if err != nil {
		return fmt.Errorf("signing event: %w", err)
	}
	event.Signature = sig

	if err := w.db.InsertEvent(event); err != nil {
		return err
	}

	w.lastSeq = event.SeqIndex
	w.lastHash = event.CurrentHash
	return nil
}

// hashPayload is the canonical subset of an event covered by the chain hash.
// Chain fields themselves (prev/current hash, signature) are excluded.
func hashPayload(e *Event) map[string]interface{} {
	return map[string]interface{}{
		"id":         e.ID,
		"run_id":     e.RunID,
		"seq_index":  e.SeqIndex,
		"timestamp":  e.Timestamp.UTC().Format(time.RFC3339Nano),
		"event_type": e.EventType,
		"method":     e.Method,
		"request_id": e.RequestID,
		"params":     e.Params,
		"outcome":    e.Outcome,
	}
}
