package rpc

import (
	"bufio"
	"bytes"
	"encoding/json"
	"fmt"
	"io"

	"github.com/probelabs/visor/internal/assert"
	"github.com/probelabs/visor/internal/logging"
	"github.com/probelabs/visor/internal/mcp"
)

// maxLineBytes bounds a single request line. Longer lines are a stream
// fault and terminate the loop.
const maxLineBytes = 1024 * 1024

// Request outcomes reported to the audit sink.
const (
	OutcomeOK            = "ok"
	OutcomeUnknownMethod = "unknown_method"
	OutcomeParseError    = "parse_error"
	OutcomeInternalError = "internal_error"
)

// Handler computes a result for one method invocation.
type Handler func(params map[string]interface{}) (interface{}, error)

// Registry maps method names to handlers. Populated once at startup and
// treated as immutable thereafter.
type Registry map[string]Handler

// Dispatch routes a method call to its handler. Unknown methods are not a
// fault: they produce a normal result payload describing the problem, so the
// caller receives a success envelope. Handler errors propagate to the caller
// as protocol-level internal errors.
func (r Registry) Dispatch(method string, params map[string]interface{}) (interface{}, error) {
	handler, ok := r[method]
	if !ok {
		return map[string]interface{}{"error": "Unknown method: " + method}, nil
	}
	return handler(params)
}

// Sink receives one record per processed input line for audit recording.
// Implementations must be safe for concurrent use and must never block;
// recording is fail-open with respect to the protocol loop.
type Sink interface {
	Record(method string, id interface{}, params map[string]interface{}, outcome string)
}

// Server drives the read-dispatch-write cycle over line-delimited JSON-RPC.
// It holds no per-request state, so a single Server may serve several
// independent streams concurrently as long as its handlers allow it.
type Server struct {
	registry Registry
	sink     Sink
}

// NewServer creates a server around an immutable handler registry.
// sink may be nil to disable audit recording.
func NewServer(registry Registry, sink Sink) *Server {
	return &Server{registry: registry, sink: sink}
}

// ServeStream reads newline-terminated JSON-RPC requests from r and writes
// one response line per request to w, flushing after each response. It
// returns nil when the input stream is exhausted, which is the only normal
// termination path. Per-request faults never abort the loop; only stream
// read or write failures do.
func (s *Server) ServeStream(r io.Reader, w io.Writer) error {
	if err := assert.NotNil(r, "input stream"); err != nil {
		return err
	}
	if err := assert.NotNil(w, "output stream"); err != nil {
		return err
	}

	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), maxLineBytes)
	writer := bufio.NewWriter(w)

	for scanner.Scan() {
		resp := s.HandleLine(scanner.Bytes())
		if resp == nil {
			continue
		}
		if _, err := writer.Write(resp); err != nil {
			return fmt.Errorf("writing response: %w", err)
		}
		if err := writer.WriteByte('\n'); err != nil {
			return fmt.Errorf("writing response: %w", err)
		}
		// Each response must be visible to the reader before the next
		// request is processed.
		if err := writer.Flush(); err != nil {
			return fmt.Errorf("flushing response: %w", err)
		}
	}
	if err := scanner.Err(); err != nil {
		return fmt.Errorf("reading request stream: %w", err)
	}
	return nil
}

// HandleLine processes a single input line and returns the serialized
// response, without a trailing newline. Blank lines yield nil.
func (s *Server) HandleLine(line []byte) []byte {
	line = bytes.TrimSpace(line)
	if len(line) == 0 {
		return nil
	}

	var raw map[string]interface{}
	if err := json.Unmarshal(line, &raw); err != nil {
		logging.Warn("request_parse_failed", logging.Fields{Component: "rpc", Error: err.Error()})
		s.record("", nil, nil, OutcomeParseError)
		return marshalErrorResponse(mcp.CodeParseError, "Parse error: "+err.Error())
	}

	method, _ := raw["method"].(string)
	id := raw["id"]
	params, _ := raw["params"].(map[string]interface{})
	if params == nil {
		params = map[string]interface{}{}
	}

	outcome := OutcomeOK
	if _, known := s.registry[method]; !known {
		outcome = OutcomeUnknownMethod
	}

	result, err := s.invoke(method, params)
	if err != nil {
		logging.Error("handler_fault", logging.Fields{
			Component: "rpc",
			Method:    method,
			RequestID: requestID(id),
			Error:     err.Error(),
		})
		s.record(method, id, params, OutcomeInternalError)
		return marshalErrorResponse(mcp.CodeInternalError, "Internal error: "+err.Error())
	}

	data, err := json.Marshal(mcp.Response{JSONRPC: mcp.Version, ID: id, Result: result})
	if err != nil {
		logging.Error("response_marshal_failed", logging.Fields{
			Component: "rpc",
			Method:    method,
			RequestID: requestID(id),
			Error:     err.Error(),
		})
		s.record(method, id, params, OutcomeInternalError)
		return marshalErrorResponse(mcp.CodeInternalError, "Internal error: "+err.Error())
	}

	logging.Debug("request_served", logging.Fields{
		Component: "rpc",
		Method:    method,
		RequestID: requestID(id),
		Outcome:   outcome,
	})
	s.record(method, id, params, outcome)
	return data
}

// invoke runs the dispatcher with a fault boundary so one failing handler
// cannot abort the loop.
func (s *Server) invoke(method string, params map[string]interface{}) (result interface{}, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("handler panic: %v", r)
		}
	}()
	return s.registry.Dispatch(method, params)
}

func (s *Server) record(method string, id interface{}, params map[string]interface{}, outcome string) {
	if s.sink == nil {
		return
	}
	s.sink.Record(method, id, params, outcome)
}

// marshalErrorResponse builds a protocol-level error line. The id is always
// null on these paths, matching the upstream analyzer behavior even when an
// id might have been recoverable from the input.
func marshalErrorResponse(code int, message string) []byte {
	data, err := json.Marshal(mcp.Response{
		JSONRPC: mcp.Version,
		ID:      nil,
		Error:   &mcp.Error{Code: code, Message: message},
	})
	if err != nil {
		// Fixed shape, cannot fail. Guarded anyway.
		return []byte(`{"jsonrpc":"2.0","id":null,"error":{"code":-32603,"message":"Internal error"}}`)
	}
	return data
}

func requestID(id interface{}) string {
	if id == nil {
		return ""
	}
	return fmt.Sprint(id)
}
