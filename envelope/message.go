package envelope

import (
	"fmt"
	"maps"
	"time"

	"github.com/google/uuid"
)

// Well-known keys in the map encoding of messages and replies.
const (
	KeyMType    = "samp.mtype"
	KeyParams   = "samp.params"
	KeyStatus   = "samp.status"
	KeyResult   = "samp.result"
	KeyError    = "samp.error"
	KeyErrorTxt = "samp.errortxt"
)

// Parameter and result names used by the command-oriented mtypes.
const (
	ParamCommand = "cmd"
	ParamURL     = "url"
	ResultValue  = "value"
)

// Status is the outcome marker carried by a Reply.
type Status string

const (
	StatusOK      Status = "samp.ok"
	StatusWarning Status = "samp.warning"
	StatusError   Status = "samp.error"
)

// Message is one call or notification payload: an mtype naming the
// operation plus string-valued parameters.
type Message struct {
	MType     string            `json:"mtype"`
	Params    map[string]string `json:"params,omitempty"`
	Timestamp time.Time         `json:"timestamp"`
}

// Command returns the "cmd" parameter, or "" when absent.
func (msg *Message) Command() string {
	return msg.Params[ParamCommand]
}

func (msg *Message) Clone() *Message {
	clone := *msg
	clone.Params = maps.Clone(msg.Params)
	return &clone
}

func (msg *Message) String() string {
	return fmt.Sprintf("Message{MType: %s, Params: %d}", msg.MType, len(msg.Params))
}

// Reply is the asynchronous response to a call. A StatusOK reply may carry
// named result values; a StatusError reply carries the target's error text.
type Reply struct {
	Status    Status            `json:"status"`
	Result    map[string]string `json:"result,omitempty"`
	ErrorText string            `json:"error_text,omitempty"`
}

// Value returns the "value" result, or "" when the target returned nothing.
func (rep *Reply) Value() string {
	return rep.Result[ResultValue]
}

// IsError reports whether the target rejected the call.
func (rep *Reply) IsError() bool {
	return rep.Status == StatusError
}

func (rep *Reply) String() string {
	if rep.IsError() {
		return fmt.Sprintf("Reply{Status: %s, ErrorText: %q}", rep.Status, rep.ErrorText)
	}
	return fmt.Sprintf("Reply{Status: %s, Result: %d}", rep.Status, len(rep.Result))
}

// NewTag returns a fresh correlation tag. UUIDv7 keeps tags time-sortable,
// which makes interleaved call logs readable.
func NewTag() string {
	return uuid.Must(uuid.NewV7()).String()
}
