package transcripts

import (
	"log"

	"github.com/google/uuid"
)

type EventKind int

const (
	EventStateEntered EventKind = iota
	EventRenderFailed
	EventCommandDispatched
	EventCommandRejected
	EventCommandResolved
	EventErrorShown
	EventErrorHidden
	EventUploadProgress
	EventUploadCompleted
	EventUploadFailed
	EventUnsupported
)

var eventNames = [...]string{
	EventStateEntered:      "state entered",
	EventRenderFailed:      "render failed",
	EventCommandDispatched: "command dispatched",
	EventCommandRejected:   "command rejected",
	EventCommandResolved:   "command resolved",
	EventErrorShown:        "error shown",
	EventErrorHidden:       "error hidden",
	EventUploadProgress:    "upload progress",
	EventUploadCompleted:   "upload completed",
	EventUploadFailed:      "upload failed",
	EventUnsupported:       "unsupported action",
}

func (k EventKind) String() string {
	if int(k) < len(eventNames) {
		return eventNames[k]
	}
	return "unknown event"
}

// Event describes a point in the coordinator's lifecycle, only the fields relevant to Kind are set.
type Event struct {
	Kind        EventKind
	ComponentID string
	State       State
	Command     Command
	RequestID   uuid.UUID
	Message     string
	Progress    float64
	Err         error
}

// Observer receives the coordinator's lifecycle events.
// It is called synchronously, outside the coordinator's lock, so it may read the coordinator.
// Events of different goroutines can be delivered concurrently.
type Observer func(Event)

func noopObserver(Event) {}

// LogObserver writes every event to l, nil means the standard logger.
func LogObserver(l *log.Logger) Observer {
	if l == nil {
		l = log.Default()
	}

	return func(e Event) {
		switch e.Kind {
		case EventStateEntered:
			l.Printf("[INFO]: %s: entered state %q", e.ComponentID, e.State)
		case EventRenderFailed:
			l.Printf("[ERROR]: %s: rendering state %q: %v", e.ComponentID, e.State, e.Err)
		case EventCommandDispatched:
			l.Printf("[INFO]: %s: dispatched %s (%s)", e.ComponentID, e.Command, e.RequestID)
		case EventCommandRejected:
			l.Printf("[WARN]: %s: rejected %s, another command is in flight", e.ComponentID, e.Command)
		case EventCommandResolved:
			if e.Err != nil {
				l.Printf("[WARN]: %s: %s (%s) failed: %v", e.ComponentID, e.Command, e.RequestID, e.Err)
			} else {
				l.Printf("[INFO]: %s: %s (%s) succeeded", e.ComponentID, e.Command, e.RequestID)
			}
		case EventErrorShown:
			l.Printf("[INFO]: %s: showing error %q", e.ComponentID, e.Message)
		case EventErrorHidden:
			l.Printf("[INFO]: %s: error hidden", e.ComponentID)
		case EventUploadProgress:
			l.Printf("[INFO]: %s: upload at %.0f%%", e.ComponentID, e.Progress)
		case EventUploadCompleted:
			l.Printf("[INFO]: %s: upload completed", e.ComponentID)
		case EventUploadFailed:
			l.Printf("[WARN]: %s: upload failed: %v", e.ComponentID, e.Err)
		default:
			l.Printf("[WARN]: %s: %s: %s", e.ComponentID, e.Kind, e.Message)
		}
	}
}
