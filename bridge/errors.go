package bridge

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/samp-tools/ds9samp/envelope"
	"github.com/samp-tools/ds9samp/hub"
)

// ErrCallInProgress is returned when a call is issued while another call on
// the same bridge is still pending. Calls are strictly sequential.
var ErrCallInProgress = errors.New("bridge: a call is already in progress")

// Kind classifies transport-level failures.
type Kind string

const (
	KindTimeout            Kind = "timeout"
	KindConnectionLost     Kind = "connection_lost"
	KindNoPeers            Kind = "no_peers"
	KindAmbiguousPeers     Kind = "ambiguous_peers"
	KindRegistrationFailed Kind = "registration_failed"
	KindPeerNotFound       Kind = "peer_not_found"
)

// CommandError reports that the target application rejected or could not
// parse the command text. It is recoverable: the session stays open and
// subsequent calls proceed.
type CommandError struct {
	Command string
	Message string
}

func (e *CommandError) Error() string {
	if e.Command == "" {
		return e.Message
	}
	return fmt.Sprintf("%s (command %q)", e.Message, e.Command)
}

// TransportError reports a hub or session failure. It is fatal to the
// operation; KindConnectionLost is fatal to the session as well.
type TransportError struct {
	Kind    Kind
	Message string
	// Peers carries the qualifying peer list for KindAmbiguousPeers.
	Peers []PeerDescriptor
	Err   error
}

func (e *TransportError) Error() string {
	if e.Kind == KindAmbiguousPeers && len(e.Peers) > 0 {
		names := make([]string, len(e.Peers))
		for i, peer := range e.Peers {
			names[i] = peer.Label()
		}
		return fmt.Sprintf("%s: %s", e.Message, strings.Join(names, " "))
	}
	if e.Err != nil && e.Message == "" {
		return fmt.Sprintf("%s: %v", e.Kind, e.Err)
	}
	return e.Message
}

func (e *TransportError) Unwrap() error {
	return e.Err
}

// IsCommandError reports whether err is a recoverable command rejection.
func IsCommandError(err error) bool {
	var cmdErr *CommandError
	return errors.As(err, &cmdErr)
}

// AsTransportError extracts a TransportError from err's chain.
func AsTransportError(err error) (*TransportError, bool) {
	var trErr *TransportError
	if errors.As(err, &trErr) {
		return trErr, true
	}
	return nil, false
}

func transportErrorf(kind Kind, err error, format string, args ...any) *TransportError {
	return &TransportError{
		Kind:    kind,
		Message: fmt.Sprintf(format, args...),
		Err:     err,
	}
}

// classifyReply maps a reply into the two-tier taxonomy: an error status is
// a CommandError carrying the target's own text; anything else succeeds and
// yields the returned value, which may be empty.
func classifyReply(command string, rep *envelope.Reply) (string, error) {
	if rep.IsError() {
		text := rep.ErrorText
		if text == "" {
			text = "command rejected by target"
		}
		return "", &CommandError{Command: command, Message: text}
	}
	return rep.Value(), nil
}

// classifyTransport maps a raw transport fault into a TransportError. Hub
// unreachability and dropped connections are uniformly KindConnectionLost;
// context expiry counts as a timeout since the caller abandoned the wait.
func classifyTransport(err error) *TransportError {
	if trErr, ok := AsTransportError(err); ok {
		return trErr
	}

	switch {
	case errors.Is(err, context.DeadlineExceeded):
		return transportErrorf(KindTimeout, err, "call timed out")
	case errors.Is(err, context.Canceled):
		return transportErrorf(KindConnectionLost, err, "operation cancelled")
	case errors.Is(err, hub.ErrClientNotFound):
		return transportErrorf(KindPeerNotFound, err, "peer not found")
	default:
		return transportErrorf(KindConnectionLost, err, "hub connection failed: %v", err)
	}
}
