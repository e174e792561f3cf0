package envelope

import "fmt"

// EncodeMessage renders a message into the hub's map wire form:
//
//	{"samp.mtype": "...", "samp.params": {"cmd": "..."}}
func EncodeMessage(msg *Message) map[string]any {
	params := make(map[string]any, len(msg.Params))
	for name, value := range msg.Params {
		params[name] = value
	}
	return map[string]any{
		KeyMType:  msg.MType,
		KeyParams: params,
	}
}

// DecodeMessage parses the map wire form back into a Message. The mtype
// entry is required; params are optional.
func DecodeMessage(wire map[string]any) (*Message, error) {
	mtype, ok := wire[KeyMType].(string)
	if !ok || mtype == "" {
		return nil, fmt.Errorf("envelope: missing or invalid %s", KeyMType)
	}

	builder := NewMessage(mtype)
	if raw, ok := wire[KeyParams].(map[string]any); ok {
		for name, value := range raw {
			text, ok := value.(string)
			if !ok {
				return nil, fmt.Errorf("envelope: parameter %q is not a string", name)
			}
			builder.Param(name, text)
		}
	}
	return builder.Build(), nil
}

// EncodeReply renders a reply into the hub's map wire form. Error replies
// carry {"samp.error": {"samp.errortxt": "..."}} alongside the status.
func EncodeReply(rep *Reply) map[string]any {
	wire := map[string]any{
		KeyStatus: string(rep.Status),
	}

	if len(rep.Result) > 0 {
		result := make(map[string]any, len(rep.Result))
		for name, value := range rep.Result {
			result[name] = value
		}
		wire[KeyResult] = result
	}

	if rep.Status == StatusError {
		wire[KeyError] = map[string]any{
			KeyErrorTxt: rep.ErrorText,
		}
	}

	return wire
}

// DecodeReply parses the map wire form back into a Reply. An unrecognized
// status is an error: the classifier downstream must never guess.
func DecodeReply(wire map[string]any) (*Reply, error) {
	raw, ok := wire[KeyStatus].(string)
	if !ok {
		return nil, fmt.Errorf("envelope: missing or invalid %s", KeyStatus)
	}

	status := Status(raw)
	switch status {
	case StatusOK, StatusWarning, StatusError:
	default:
		return nil, fmt.Errorf("envelope: unknown status %q", raw)
	}

	rep := &Reply{Status: status}

	if result, ok := wire[KeyResult].(map[string]any); ok {
		rep.Result = make(map[string]string, len(result))
		for name, value := range result {
			text, ok := value.(string)
			if !ok {
				return nil, fmt.Errorf("envelope: result %q is not a string", name)
			}
			rep.Result[name] = text
		}
	}

	if fault, ok := wire[KeyError].(map[string]any); ok {
		if text, ok := fault[KeyErrorTxt].(string); ok {
			rep.ErrorText = text
		}
	}

	return rep, nil
}
