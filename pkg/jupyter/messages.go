package jupyter

import "encoding/json"

// Kernel protocol version spoken on the channels socket.
const protocolVersion = "5.3"

// Channels of the multiplexed kernel socket.
const (
	channelShell = "shell"
	channelIOPub = "iopub"
)

// Message is a Jupyter protocol message as carried on the kernel
// channels WebSocket.
type Message struct {
	Header       MessageHeader   `json:"header"`
	ParentHeader MessageHeader   `json:"parent_header"`
	Metadata     map[string]any  `json:"metadata"`
	Content      json.RawMessage `json:"content"`
	Channel      string          `json:"channel"`
}

// MessageHeader identifies a message and its type.
type MessageHeader struct {
	MsgID    string `json:"msg_id,omitempty"`
	MsgType  string `json:"msg_type,omitempty"`
	Session  string `json:"session,omitempty"`
	Username string `json:"username,omitempty"`
	Version  string `json:"version,omitempty"`
	Date     string `json:"date,omitempty"`
}

// executeRequestContent is the shell-channel execute_request payload.
type executeRequestContent struct {
	Code            string         `json:"code"`
	Silent          bool           `json:"silent"`
	StoreHistory    bool           `json:"store_history"`
	UserExpressions map[string]any `json:"user_expressions"`
	AllowStdin      bool           `json:"allow_stdin"`
	StopOnError     bool           `json:"stop_on_error"`
}

// statusContent is the iopub status payload.
type statusContent struct {
	ExecutionState string `json:"execution_state"`
}
