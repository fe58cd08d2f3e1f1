package transcripts

import (
	"errors"
	"fmt"
)

// State is the transcript status presented for a component.
type State int

const (
	StateNone State = iota // Nothing rendered yet.
	StateNotFound
	StateFound
	StateImport
	StateReplace
	StateUploaded
	StateUseExisting
	StateChoose
	StateReplaced // Confirmation after a replace, shares the found template.
)

// TemplateKey identifies one of the status templates.
type TemplateKey string

const (
	TemplateNotFound    TemplateKey = "not_found"
	TemplateFound       TemplateKey = "found"
	TemplateImport      TemplateKey = "import"
	TemplateReplace     TemplateKey = "replace"
	TemplateUploaded    TemplateKey = "uploaded"
	TemplateUseExisting TemplateKey = "use_existing"
	TemplateChoose      TemplateKey = "choose"
)

// TemplateKeys lists every key a renderer has to be able to render.
var TemplateKeys = []TemplateKey{
	TemplateNotFound,
	TemplateFound,
	TemplateImport,
	TemplateReplace,
	TemplateUploaded,
	TemplateUseExisting,
	TemplateChoose,
}

var ErrUnknownTemplate = errors.New("unknown transcripts template")

// TemplateKey returns the template used to display the state.
func (s State) TemplateKey() (TemplateKey, error) {
	switch s {
	case StateNotFound:
		return TemplateNotFound, nil
	case StateFound, StateReplaced:
		return TemplateFound, nil
	case StateImport:
		return TemplateImport, nil
	case StateReplace:
		return TemplateReplace, nil
	case StateUploaded:
		return TemplateUploaded, nil
	case StateUseExisting:
		return TemplateUseExisting, nil
	case StateChoose:
		return TemplateChoose, nil
	default:
		return "", fmt.Errorf("state %d: %w", int(s), ErrUnknownTemplate)
	}
}

func (s State) String() string {
	if s == StateReplaced {
		return "replaced"
	}
	if s == StateNone {
		return "none"
	}

	key, err := s.TemplateKey()
	if err != nil {
		return fmt.Sprintf("State(%d)", int(s))
	}
	return string(key)
}

// ParseState is the inverse of State.String.
func ParseState(name string) (State, error) {
	switch name {
	case "not_found":
		return StateNotFound, nil
	case "found":
		return StateFound, nil
	case "import":
		return StateImport, nil
	case "replace":
		return StateReplace, nil
	case "uploaded":
		return StateUploaded, nil
	case "use_existing":
		return StateUseExisting, nil
	case "choose":
		return StateChoose, nil
	case "replaced":
		return StateReplaced, nil
	default:
		return StateNone, fmt.Errorf("state %q: %w", name, ErrUnknownTemplate)
	}
}
