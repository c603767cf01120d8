package protocol

import (
	"encoding/json"
	"fmt"
)

// ActionKind is the wire tag of an Action.
type ActionKind string

const (
	ActionLogin        ActionKind = "Login"
	ActionSend         ActionKind = "Send"
	ActionAssignWord   ActionKind = "AssignWord"
	ActionSuicide      ActionKind = "Suicide"
	ActionRequestAbort ActionKind = "RequestAbort"
	ActionSetReady     ActionKind = "SetReady"
	ActionCancelReady  ActionKind = "CancelReady"
	ActionVoteAbort    ActionKind = "VoteAbort"
)

// Action is a command the host submits for delivery to the server.
type Action interface {
	Kind() ActionKind
}

// Login asks the server to admit the client under Name.
type Login struct {
	Name string `json:"name"`
}

// Send posts a chat message.
type Send struct {
	Text string
}

// AssignWord sets the forbidden word for the player this client was asked to assign.
type AssignWord struct {
	Word string `json:"word"`
}

// Suicide gives up the current round.
type Suicide struct{}

// RequestAbort starts a vote to abort the running game.
type RequestAbort struct{}

// SetReady marks the player ready for the next game.
type SetReady struct{}

// CancelReady withdraws a previous SetReady.
type CancelReady struct{}

// VoteAbort casts a vote in a running abort vote.
type VoteAbort struct {
	Abort bool `json:"abort"`
}

func (Login) Kind() ActionKind { return ActionLogin }
func (Send) Kind() ActionKind { return ActionSend }
func (AssignWord) Kind() ActionKind { return ActionAssignWord }
func (Suicide) Kind() ActionKind { return ActionSuicide }
func (RequestAbort) Kind() ActionKind { return ActionRequestAbort }
func (SetReady) Kind() ActionKind { return ActionSetReady }
func (CancelReady) Kind() ActionKind { return ActionCancelReady }
func (VoteAbort) Kind() ActionKind { return ActionVoteAbort }

// EncodeAction encodes an action into a text frame.
func EncodeAction(a Action) ([]byte, error) {
	switch a := a.(type) {
	case Login:
		return encodeTagged(string(ActionLogin), a)
	case Send:
		return encodeTagged(string(ActionSend), a.Text)
	case AssignWord:
		return encodeTagged(string(ActionAssignWord), a)
	case VoteAbort:
		return encodeTagged(string(ActionVoteAbort), a)
	case Suicide, RequestAbort, SetReady, CancelReady:
		return encodeUnit(string(a.Kind()))
	default:
		return nil, fmt.Errorf("failed to encode action: %w %T", ErrUnknownVariant, a)
	}
}

// DecodeAction decodes a text frame into an action. The client never needs
// this; servers and test doubles do.
func DecodeAction(data []byte) (Action, error) {
	tag, body, err := splitFrame(data)
	if err != nil {
		return nil, &DecodeError{Frame: data, Err: err}
	}

	var a Action
	switch ActionKind(tag) {
	case ActionLogin:
		var v Login
		err = json.Unmarshal(body, &v)
		a = v
	case ActionSend:
		var v Send
		err = json.Unmarshal(body, &v.Text)
		a = v
	case ActionAssignWord:
		var v AssignWord
		err = json.Unmarshal(body, &v)
		a = v
	case ActionVoteAbort:
		var v VoteAbort
		err = json.Unmarshal(body, &v)
		a = v
	case ActionSuicide:
		a, err = unitAction(Suicide{}, body)
	case ActionRequestAbort:
		a, err = unitAction(RequestAbort{}, body)
	case ActionSetReady:
		a, err = unitAction(SetReady{}, body)
	case ActionCancelReady:
		a, err = unitAction(CancelReady{}, body)
	default:
		return nil, &DecodeError{Frame: data, Err: fmt.Errorf("%w %q", ErrUnknownVariant, tag)}
	}
	if err != nil {
		return nil, &DecodeError{Frame: data, Err: err}
	}
	return a, nil
}

func unitAction(a Action, body json.RawMessage) (Action, error) {
	if !isNullBody(body) {
		return nil, fmt.Errorf("%w: %s takes no payload", ErrMalformedFrame, a.Kind())
	}
	return a, nil
}
