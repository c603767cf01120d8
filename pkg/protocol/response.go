package protocol

import (
	"encoding/json"
	"fmt"
	"math"
	"time"
)

// ResponseKind is the wire tag of a Response.
type ResponseKind string

const (
	ResponseMessageFrom          ResponseKind = "MessageFrom"
	ResponseMessageHistory       ResponseKind = "MessageHistory"
	ResponsePlayerJoin           ResponseKind = "PlayerJoin"
	ResponsePlayerQuit           ResponseKind = "PlayerQuit"
	ResponsePlayerReady          ResponseKind = "PlayerReady"
	ResponsePlayerNotReady       ResponseKind = "PlayerNotReady"
	ResponseOverview             ResponseKind = "Overview"
	ResponseAssignStart          ResponseKind = "AssignStart"
	ResponseAssignResult         ResponseKind = "AssignResult"
	ResponseGameStart            ResponseKind = "GameStart"
	ResponsePlayerOut            ResponseKind = "PlayerOut"
	ResponseGameWin              ResponseKind = "GameWin"
	ResponseGameEndTimeout       ResponseKind = "GameEndTimeout"
	ResponseGameEndUnproceedable ResponseKind = "GameEndUnproceedable"
	ResponseTimerReset           ResponseKind = "TimerReset"
	ResponseStartVoteAbort       ResponseKind = "StartVoteAbort"
	ResponseVotedAbort           ResponseKind = "VotedAbort"
	ResponseVoteAbortResult      ResponseKind = "VoteAbortResult"
	ResponseReadyResult          ResponseKind = "ReadyResult"
	ResponseLoginResult          ResponseKind = "LoginResult"
)

// Response is a server-originated message.
type Response interface {
	Kind() ResponseKind
	// Event returns the host event name and payload for this response.
	// An empty name means the response is not forwarded to the host.
	Event() (string, any)
}

type MessageFrom struct {
	Sender  string `json:"sender"`
	Content string `json:"content"`
}

// MessageHistory carries the room's chat backlog. The server owns its shape.
type MessageHistory struct {
	History json.RawMessage `json:"history"`
}

type PlayerJoin struct {
	Name string `json:"name"`
}

type PlayerQuit struct {
	Name string `json:"name"`
}

type PlayerReady struct {
	Name string `json:"name"`
}

type PlayerNotReady struct {
	Name string `json:"name"`
}

// Overview is the roster and game state snapshot sent after login.
type Overview struct {
	Clients   json.RawMessage `json:"clients"`
	GameState json.RawMessage `json:"game_state"`
}

type AssignStart struct {
	Assignee string `json:"assignee"`
}

// AssignResult answers an AssignWord. A nil Excuse means the word was accepted.
type AssignResult struct {
	Excuse *string `json:"excuse"`
}

type GameStart struct {
	Assigned json.RawMessage `json:"assigned"`
}

type PlayerOut struct {
	Quitter string `json:"quitter"`
	Word    string `json:"word"`
	Suicide bool   `json:"suicide"`
}

type GameWin struct {
	Winner string `json:"winner"`
	Word   string `json:"word"`
}

type GameEndTimeout struct{}

type GameEndUnproceedable struct{}

// Duration is the {secs, nanos} object the server uses for durations.
type Duration struct {
	Secs  uint64 `json:"secs"`
	Nanos uint32 `json:"nanos"`
}

// DurationOf converts d, clamping negative values to zero.
func DurationOf(d time.Duration) Duration {
	if d < 0 {
		d = 0
	}
	return Duration{Secs: uint64(d / time.Second), Nanos: uint32(d % time.Second)}
}

// Std converts to a time.Duration, saturating at the largest representable value.
func (d Duration) Std() time.Duration {
	if d.Secs > uint64(math.MaxInt64/int64(time.Second))-1 {
		return time.Duration(math.MaxInt64)
	}
	return time.Duration(d.Secs)*time.Second + time.Duration(d.Nanos)
}

// TimerReset restarts the round timer.
type TimerReset struct {
	Timer Duration `json:"timer"`
}

type StartVoteAbort struct{}

type VotedAbort struct {
	Abort bool   `json:"abort"`
	Voter string `json:"voter"`
}

type VoteAbortResult struct {
	Abort bool `json:"abort"`
}

// ReadyResult answers a SetReady. A nil Excuse means the request was accepted.
type ReadyResult struct {
	Excuse *string `json:"excuse"`
}

// LoginResult terminates the login handshake. A nil Excuse means success.
type LoginResult struct {
	Excuse *string `json:"excuse"`
}

func (MessageFrom) Kind() ResponseKind { return ResponseMessageFrom }
func (MessageHistory) Kind() ResponseKind { return ResponseMessageHistory }
func (PlayerJoin) Kind() ResponseKind { return ResponsePlayerJoin }
func (PlayerQuit) Kind() ResponseKind { return ResponsePlayerQuit }
func (PlayerReady) Kind() ResponseKind { return ResponsePlayerReady }
func (PlayerNotReady) Kind() ResponseKind { return ResponsePlayerNotReady }
func (Overview) Kind() ResponseKind { return ResponseOverview }
func (AssignStart) Kind() ResponseKind { return ResponseAssignStart }
func (AssignResult) Kind() ResponseKind { return ResponseAssignResult }
func (GameStart) Kind() ResponseKind { return ResponseGameStart }
func (PlayerOut) Kind() ResponseKind { return ResponsePlayerOut }
func (GameWin) Kind() ResponseKind { return ResponseGameWin }
func (GameEndTimeout) Kind() ResponseKind { return ResponseGameEndTimeout }
func (GameEndUnproceedable) Kind() ResponseKind { return ResponseGameEndUnproceedable }
func (TimerReset) Kind() ResponseKind { return ResponseTimerReset }
func (StartVoteAbort) Kind() ResponseKind { return ResponseStartVoteAbort }
func (VotedAbort) Kind() ResponseKind { return ResponseVotedAbort }
func (VoteAbortResult) Kind() ResponseKind { return ResponseVoteAbortResult }
func (ReadyResult) Kind() ResponseKind { return ResponseReadyResult }
func (LoginResult) Kind() ResponseKind { return ResponseLoginResult }

func (r MessageFrom) Event() (string, any) { return "received_message", []any{r.Sender, r.Content} }
func (r MessageHistory) Event() (string, any) { return "message_history", r.History }
func (r PlayerJoin) Event() (string, any) { return "player_join", r.Name }
func (r PlayerQuit) Event() (string, any) { return "player_quit", r.Name }
func (r PlayerReady) Event() (string, any) { return "player_ready", r.Name }
func (r PlayerNotReady) Event() (string, any) { return "player_not_ready", r.Name }
func (r Overview) Event() (string, any) { return "overview", []any{r.Clients, r.GameState} }
func (r AssignStart) Event() (string, any) { return "assign_start", r.Assignee }
func (r AssignResult) Event() (string, any) { return "assign_result", r.Excuse }
func (r GameStart) Event() (string, any) { return "game_start", r.Assigned }
func (r PlayerOut) Event() (string, any) { return "player_out", []any{r.Quitter, r.Word, r.Suicide} }
func (r GameWin) Event() (string, any) { return "game_win", []any{r.Winner, r.Word} }
func (GameEndTimeout) Event() (string, any) { return "timeout", nil }
func (GameEndUnproceedable) Event() (string, any) { return "unproceedable", nil }
func (r TimerReset) Event() (string, any) { return "timer_reset", r.Timer.Secs }
func (StartVoteAbort) Event() (string, any) { return "start_vote_abort", nil }
func (r VotedAbort) Event() (string, any) { return "voted_abort", []any{r.Voter, r.Abort} }
func (r VoteAbortResult) Event() (string, any) { return "vote_abort_result", r.Abort }
func (r ReadyResult) Event() (string, any) { return "ready_result", r.Excuse }
func (LoginResult) Event() (string, any) { return "", nil }

type responseVariant struct {
	unit   bool
	schema string
	decode func(body json.RawMessage) (Response, error)
}

func decodeBody[T Response](body json.RawMessage) (Response, error) {
	var v T
	if err := json.Unmarshal(body, &v); err != nil {
		return nil, err
	}
	return v, nil
}

func unitResponse[T Response]() func(json.RawMessage) (Response, error) {
	return func(json.RawMessage) (Response, error) {
		var v T
		return v, nil
	}
}

var responseVariants = map[ResponseKind]responseVariant{
	ResponseMessageFrom:          {schema: messageFromSchema, decode: decodeBody[MessageFrom]},
	ResponseMessageHistory:       {schema: requiredSchema("history"), decode: decodeBody[MessageHistory]},
	ResponsePlayerJoin:           {schema: nameSchema, decode: decodeBody[PlayerJoin]},
	ResponsePlayerQuit:           {schema: nameSchema, decode: decodeBody[PlayerQuit]},
	ResponsePlayerReady:          {schema: nameSchema, decode: decodeBody[PlayerReady]},
	ResponsePlayerNotReady:       {schema: nameSchema, decode: decodeBody[PlayerNotReady]},
	ResponseOverview:             {schema: requiredSchema("clients", "game_state"), decode: decodeBody[Overview]},
	ResponseAssignStart:          {schema: assignStartSchema, decode: decodeBody[AssignStart]},
	ResponseAssignResult:         {schema: excuseSchema, decode: decodeBody[AssignResult]},
	ResponseGameStart:            {schema: requiredSchema("assigned"), decode: decodeBody[GameStart]},
	ResponsePlayerOut:            {schema: playerOutSchema, decode: decodeBody[PlayerOut]},
	ResponseGameWin:              {schema: gameWinSchema, decode: decodeBody[GameWin]},
	ResponseGameEndTimeout:       {unit: true, decode: unitResponse[GameEndTimeout]()},
	ResponseGameEndUnproceedable: {unit: true, decode: unitResponse[GameEndUnproceedable]()},
	ResponseTimerReset:           {schema: timerResetSchema, decode: decodeBody[TimerReset]},
	ResponseStartVoteAbort:       {unit: true, decode: unitResponse[StartVoteAbort]()},
	ResponseVotedAbort:           {schema: votedAbortSchema, decode: decodeBody[VotedAbort]},
	ResponseVoteAbortResult:      {schema: voteAbortResultSchema, decode: decodeBody[VoteAbortResult]},
	ResponseReadyResult:          {schema: excuseSchema, decode: decodeBody[ReadyResult]},
	ResponseLoginResult:          {schema: excuseSchema, decode: decodeBody[LoginResult]},
}

// DecodeResponse decodes a text frame into a response. Frames that are not
// well formed, carry an unknown tag, or whose body does not match the
// variant's shape yield a *DecodeError.
func DecodeResponse(data []byte) (Response, error) {
	tag, body, err := splitFrame(data)
	if err != nil {
		return nil, &DecodeError{Frame: data, Err: err}
	}

	kind := ResponseKind(tag)
	variant, ok := responseVariants[kind]
	if !ok {
		return nil, &DecodeError{Frame: data, Err: fmt.Errorf("%w %q", ErrUnknownVariant, tag)}
	}

	if variant.unit {
		if !isNullBody(body) {
			return nil, &DecodeError{Frame: data, Err: fmt.Errorf("%w: %s takes no payload", ErrMalformedFrame, tag)}
		}
	} else if err := validateBody(kind, body); err != nil {
		return nil, &DecodeError{Frame: data, Err: err}
	}

	r, err := variant.decode(body)
	if err != nil {
		return nil, &DecodeError{Frame: data, Err: err}
	}
	return r, nil
}

// EncodeResponse encodes a response into a text frame. Used by servers and
// test doubles.
func EncodeResponse(r Response) ([]byte, error) {
	if r == nil {
		return nil, fmt.Errorf("failed to encode response: nil")
	}
	variant, ok := responseVariants[r.Kind()]
	if !ok {
		return nil, fmt.Errorf("failed to encode response: unsupported kind %q", r.Kind())
	}
	if variant.unit {
		return encodeUnit(string(r.Kind()))
	}
	return encodeTagged(string(r.Kind()), r)
}
