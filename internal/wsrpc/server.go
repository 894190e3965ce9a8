package wsrpc

import (
	"fmt"
	"net/http"

	"github.com/gorilla/websocket"

	"github.com/probelabs/visor/internal/assert"
	"github.com/probelabs/visor/internal/ledger"
	"github.com/probelabs/visor/internal/logging"
	"github.com/probelabs/visor/internal/rpc"
)

// Server exposes the JSON-RPC loop over WebSocket connections. Each
// connection is an independent stream: one message in, one response out, in
// order, exactly as on stdio. The rpc server holds no per-request state, so
// a single instance serves all connections.
type Server struct {
	rpc      *rpc.Server
	worker   *ledger.Worker
	upgrader websocket.Upgrader
}

// NewServer creates a WebSocket front-end for rpcSrv. worker may be nil when
// the ledger is disabled; the metrics endpoint then reports zero counters.
func NewServer(rpcSrv *rpc.Server, worker *ledger.Worker) *Server {
	return &Server{
		rpc:    rpcSrv,
		worker: worker,
		upgrader: websocket.Upgrader{
			CheckOrigin: func(r *http.Request) bool { return true },
		},
	}
}

// Routes returns the HTTP mux with the RPC endpoint and operational probes.
func (s *Server) Routes() *http.ServeMux {
	mux := http.NewServeMux()
	mux.HandleFunc("/rpc", s.handleWS)
	mux.HandleFunc("/healthz", s.handleHealth)
	mux.HandleFunc("/metrics", s.handleMetrics)
	return mux
}

func (s *Server) handleWS(w http.ResponseWriter, r *http.Request) {
	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		logging.Warn("ws_upgrade_failed", logging.Fields{Component: "wsrpc", Error: err.Error()})
		return
	}
	defer conn.Close()

	logging.Info("ws_connected", logging.Fields{Component: "wsrpc"})
	for {
		_, data, err := conn.ReadMessage()
		if err != nil {
			logging.Info("ws_disconnected", logging.Fields{Component: "wsrpc", Error: err.Error()})
			return
		}
		resp := s.rpc.HandleLine(data)
		if resp == nil {
			continue
		}
		if err := conn.WriteMessage(websocket.TextMessage, resp); err != nil {
			logging.Warn("ws_write_failed", logging.Fields{Component: "wsrpc", Error: err.Error()})
			return
		}
	}
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	if s.worker != nil && !s.worker.IsHealthy() {
		http.Error(w, "ledger unhealthy", http.StatusServiceUnavailable)
		return
	}
	w.WriteHeader(http.StatusOK)
	if _, err := w.Write([]byte("ok")); err != nil {
		logging.Warn("health_write_failed", logging.Fields{Component: "wsrpc", Error: err.Error()})
	}
}

func (s *Server) handleMetrics(w http.ResponseWriter, r *http.Request) {
	if err := assert.NotNil(s, "server"); err != nil {
		return
	}

	var processed, dropped uint64
	var depth, capacity int
	if s.worker != nil {
		processed, dropped = s.worker.Stats()
		depth, capacity = s.worker.QueueDepth()
	}
	poolMetrics := ledger.PoolMetrics()

	w.Header().Set("Content-Type", "text/plain; version=0.0.4; charset=utf-8")
	fmt.Fprintf(w, "# HELP analyzer_ledger_events_processed_total Total events written to the ledger\n")
	fmt.Fprintf(w, "# TYPE analyzer_ledger_events_processed_total counter\n")
	fmt.Fprintf(w, "analyzer_ledger_events_processed_total %d\n", processed)

	fmt.Fprintf(w, "# HELP analyzer_ledger_events_dropped_total Total events dropped due to backpressure\n")
	fmt.Fprintf(w, "# TYPE analyzer_ledger_events_dropped_total counter\n")
	fmt.Fprintf(w, "analyzer_ledger_events_dropped_total %d\n", dropped)

	fmt.Fprintf(w, "# HELP analyzer_ledger_queue_depth Current ledger queue depth\n")
	fmt.Fprintf(w, "# TYPE analyzer_ledger_queue_depth gauge\n")
	fmt.Fprintf(w, "analyzer_ledger_queue_depth %d\n", depth)

	fmt.Fprintf(w, "# HELP analyzer_ledger_queue_capacity Ledger queue capacity\n")
	fmt.Fprintf(w, "# TYPE analyzer_ledger_queue_capacity gauge\n")
	fmt.Fprintf(w, "analyzer_ledger_queue_capacity %d\n", capacity)

	fmt.Fprintf(w, "# HELP analyzer_pool_event_hits_total Total hits on the event pool\n")
	fmt.Fprintf(w, "# TYPE analyzer_pool_event_hits_total counter\n")
	fmt.Fprintf(w, "analyzer_pool_event_hits_total %d\n", poolMetrics.Hits)

	fmt.Fprintf(w, "# HELP analyzer_pool_event_misses_total Total misses (allocations) in the event pool\n")
	fmt.Fprintf(w, "# TYPE analyzer_pool_event_misses_total counter\n")
	fmt.Fprintf(w, "analyzer_pool_event_misses_total %d\n", poolMetrics.Misses)
}
