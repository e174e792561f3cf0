package envelope

import "time"

type MessageBuilder struct {
	message *Message
}

func NewMessage(mtype string) *MessageBuilder {
	return &MessageBuilder{
		message: &Message{
			MType:     mtype,
			Params:    make(map[string]string),
			Timestamp: time.Now(),
		},
	}
}

// NewCommand builds a message carrying a single command string, the shape
// used by both the get and set mtypes.
func NewCommand(mtype, command string) *MessageBuilder {
	return NewMessage(mtype).Param(ParamCommand, command)
}

func (mb *MessageBuilder) Param(name, value string) *MessageBuilder {
	mb.message.Params[name] = value
	return mb
}

func (mb *MessageBuilder) Params(params map[string]string) *MessageBuilder {
	for name, value := range params {
		mb.message.Params[name] = value
	}
	return mb
}

func (mb *MessageBuilder) Build() *Message {
	return mb.message
}

type ReplyBuilder struct {
	reply *Reply
}

// NewSuccess builds a StatusOK reply. Result values are added with Result.
func NewSuccess() *ReplyBuilder {
	return &ReplyBuilder{
		reply: &Reply{
			Status: StatusOK,
			Result: make(map[string]string),
		},
	}
}

// NewFault builds a StatusError reply carrying the target's error text.
func NewFault(errorText string) *ReplyBuilder {
	return &ReplyBuilder{
		reply: &Reply{
			Status:    StatusError,
			ErrorText: errorText,
		},
	}
}

func (rb *ReplyBuilder) Result(name, value string) *ReplyBuilder {
	if rb.reply.Result == nil {
		rb.reply.Result = make(map[string]string)
	}
	rb.reply.Result[name] = value
	return rb
}

func (rb *ReplyBuilder) Value(value string) *ReplyBuilder {
	return rb.Result(ResultValue, value)
}

func (rb *ReplyBuilder) Status(status Status) *ReplyBuilder {
	rb.reply.Status = status
	return rb
}

func (rb *ReplyBuilder) Build() *Reply {
	return rb.reply
}
