// Package protocol defines the wire envelopes exchanged on the daemon's
// loopback socket: one JSON object per line, terminated by '\n'.
package protocol

import "encoding/json"

// Request is a single inbound frame: {id, method, params}.
type Request struct {
	ID     uint64          `json:"id"`
	Method string          `json:"method"`
	Params json.RawMessage `json:"params"`
}

// Response is a single outbound frame answering a Request by ID.
type Response struct {
	ID     uint64      `json:"id"`
	OK     bool        `json:"ok"`
	Result interface{} `json:"result,omitempty"`
	Error  string      `json:"error,omitempty"`
}

// OKResponse builds a successful response envelope.
func OKResponse(id uint64, result interface{}) Response {
	return Response{ID: id, OK: true, Result: result}
}

// ErrResponse builds a failing response envelope.
func ErrResponse(id uint64, errMsg string) Response {
	return Response{ID: id, OK: false, Error: errMsg}
}

// StreamLineEvent is an async event carrying one line of stdout/stderr.
type StreamLineEvent struct {
	Type     string `json:"type"`
	StreamID uint64 `json:"stream_id"`
	IsStderr bool   `json:"is_stderr"`
	Line     string `json:"line"`
}

// NewStreamLineEvent constructs a stream_line event envelope.
func NewStreamLineEvent(streamID uint64, isStderr bool, line string) StreamLineEvent {
	return StreamLineEvent{Type: "stream_line", StreamID: streamID, IsStderr: isStderr, Line: line}
}

// StreamExitEvent is an async event emitted exactly once per stream. Error
// is always present in the JSON (null on success), per spec: "{exit_status:
// code as i32, error: null}" on success.
type StreamExitEvent struct {
	Type       string  `json:"type"`
	StreamID   uint64  `json:"stream_id"`
	ExitStatus int32   `json:"exit_status"`
	Error      *string `json:"error"`
}

// NewStreamExitEvent constructs a stream_exit event envelope. An empty
// errMsg means success and serializes the error field as null.
func NewStreamExitEvent(streamID uint64, exitStatus int32, errMsg string) StreamExitEvent {
	ev := StreamExitEvent{Type: "stream_exit", StreamID: streamID, ExitStatus: exitStatus}
	if errMsg != "" {
		ev.Error = &errMsg
	}
	return ev
}
