package transcripts

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/google/uuid"
)

type Command string

const (
	CommandImport      Command = "import"
	CommandReplace     Command = "replace"
	CommandChoose      Command = "choose"
	CommandUseExisting Command = "use_existing"
)

func (c Command) Valid() bool {
	switch c {
	case CommandImport, CommandReplace, CommandChoose, CommandUseExisting:
		return true
	default:
		return false
	}
}

// CommandRequest is built fresh for each dispatch and never modified afterwards.
type CommandRequest struct {
	ID          uuid.UUID     `json:"request_id"`
	Command     Command       `json:"command"`
	ComponentID string        `json:"component_id"`
	Videos      []VideoSource `json:"videos"`
	// Chosen is the identifier of the html5 source picked by the author, only used with CommandChoose.
	Chosen string `json:"chosen,omitempty"`
	// ChosenFile is the transcript file of the chosen source, its latest transcript when empty.
	ChosenFile string `json:"chosen_file,omitempty"`
}

func NewCommandRequest(cmd Command, componentID string, videos []VideoSource) CommandRequest {
	v := make([]VideoSource, len(videos))
	copy(v, videos)

	return CommandRequest{
		ID:          uuid.New(),
		Command:     cmd,
		ComponentID: componentID,
		Videos:      v,
	}
}

// CommandService executes a command against the transcripts backend.
// A nil error is a success with the backend's payload, anything else is a failure.
type CommandService interface {
	Execute(ctx context.Context, req CommandRequest) (json.RawMessage, error)
}

// Outcome is the result of a dispatched CommandRequest.
type Outcome struct {
	Payload json.RawMessage
	Err     error
}

func (o Outcome) Success() bool {
	return o.Err == nil
}

// CommandError is a failed command.
type CommandError struct {
	Command   Command
	RequestID uuid.UUID
	Err       error
}

func (e *CommandError) Error() string {
	return fmt.Sprintf("command %s (%s) failed: %v", e.Command, e.RequestID, e.Err)
}

func (e *CommandError) Unwrap() error {
	return e.Err
}

var ErrCommandInFlight = errors.New("a transcripts command is already in flight")

// failureMessages are shown to the author when a command fails.
var failureMessages = map[Command]string{
	CommandImport:      "Error: Import failed.",
	CommandReplace:     "Error: Replacing failed.",
	CommandChoose:      "Error: Choosing failed.",
	CommandUseExisting: "Error: Using existing transcripts failed.",
}

// successStates are entered when a command succeeds.
var successStates = map[Command]State{
	CommandImport:  StateFound,
	CommandReplace: StateReplaced,
	CommandChoose:  StateFound,
}
