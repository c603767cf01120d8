package host

import (
	"errors"
	"fmt"
	"strings"

	"github.com/omochice/ng-bridge/pkg/protocol"
)

var (
	// ErrQuit is returned for the quit and exit commands.
	ErrQuit = errors.New("quit requested")
	// ErrEmptyCommand is returned for blank input.
	ErrEmptyCommand = errors.New("empty command")
)

// Usage lists the commands understood by ParseCommand.
const Usage = `Commands:
  <text>           send a chat message
  /ready           mark yourself ready
  /unready         cancel ready
  /word <word>     assign a word to your target
  /suicide         say your own word on purpose
  /abort           ask to abort the running game
  /vote yes|no     vote on an abort request
  /quit            leave`

// ParseCommand turns one line of user input into an action.
// Lines not starting with '/' are chat messages; "//" escapes a leading slash.
func ParseCommand(input string) (protocol.Action, error) {
	text := strings.TrimSpace(input)
	if text == "" {
		return nil, ErrEmptyCommand
	}

	if text == "quit" || text == "exit" {
		return nil, ErrQuit
	}

	if !strings.HasPrefix(text, "/") {
		return protocol.Send{Text: text}, nil
	}
	if strings.HasPrefix(text, "//") {
		return protocol.Send{Text: text[1:]}, nil
	}

	name, arg, _ := strings.Cut(text[1:], " ")
	arg = strings.TrimSpace(arg)

	switch strings.ToLower(name) {
	case "ready":
		return protocol.SetReady{}, nil
	case "unready":
		return protocol.CancelReady{}, nil
	case "word":
		if arg == "" {
			return nil, errors.New("/word needs a word")
		}
		return protocol.AssignWord{Word: arg}, nil
	case "suicide":
		return protocol.Suicide{}, nil
	case "abort":
		return protocol.RequestAbort{}, nil
	case "vote":
		switch strings.ToLower(arg) {
		case "yes", "y":
			return protocol.VoteAbort{Abort: true}, nil
		case "no", "n":
			return protocol.VoteAbort{Abort: false}, nil
		default:
			return nil, fmt.Errorf("/vote needs yes or no, got %q", arg)
		}
	case "quit", "exit":
		return nil, ErrQuit
	default:
		return nil, fmt.Errorf("unknown command /%s", name)
	}
}
