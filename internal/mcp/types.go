package mcp

// Version is the JSON-RPC protocol version stamped on every response.
const Version = "2.0"

// Protocol-level error codes (JSON-RPC 2.0).
const (
	CodeParseError    = -32700
	CodeInternalError = -32603
)

// Request represents a Model Context Protocol JSON-RPC request
type Request struct {
	JSONRPC string                 `json:"jsonrpc"`
	ID      interface{}            `json:"id"`
	Method  string                 `json:"method"`
	Params  map[string]interface{} `json:"params,omitempty"`
}

// Response represents a Model Context Protocol JSON-RPC response.
// A response carries either Result or Error, never both. ID is always
// serialized, including when it is null.
type Response struct {
	JSONRPC string      `json:"jsonrpc"`
	ID      interface{} `json:"id"`
	Result  interface{} `json:"result,omitempty"`
	Error   *Error      `json:"error,omitempty"`
}

// Error is the protocol-level error object attached to failed responses.
type Error struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
}
