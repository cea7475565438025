package rpc

import "encoding/json"

// JSON-RPC 2.0 error codes.
const (
	CodeParseError     = -32700
	CodeInvalidRequest = -32600
	CodeMethodNotFound = -32601
	CodeInvalidParams  = -32602
	CodeInternalError  = -32603
)

const protocolVersion = "2.0"

// Request is a JSON-RPC 2.0 request envelope. The id is kept raw so it is
// echoed back verbatim, whatever JSON value the caller used.
type Request struct {
	JSONRPC string          `json:"jsonrpc"`
	ID      json.RawMessage `json:"id"`
	Method  string          `json:"method"`
	Params  json.RawMessage `json:"params"`
}

// Response carries either a result or an error, never both.
type Response struct {
	JSONRPC string          `json:"jsonrpc"`
	ID      json.RawMessage `json:"id"`
	Result  any             `json:"result,omitempty"`
	Error   *Error          `json:"error,omitempty"`
}

type Error struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
}

func (that *Error) Error() string {
	return that.Message
}

func NewError(code int, message string) *Error {
	return &Error{Code: code, Message: message}
}

func successResponse(id json.RawMessage, result any) *Response {
	return &Response{JSONRPC: protocolVersion, ID: normalizeID(id), Result: result}
}

func errorResponse(id json.RawMessage, rpcErr *Error) *Response {
	return &Response{JSONRPC: protocolVersion, ID: normalizeID(id), Error: rpcErr}
}

// normalizeID - a request with no id still gets "id": null in the response.
func normalizeID(id json.RawMessage) json.RawMessage {
	if len(id) == 0 {
		return json.RawMessage("null")
	}
	return id
}
