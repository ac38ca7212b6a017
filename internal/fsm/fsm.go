package fsm

import "fmt"

type State string

type Event string

const (
	StateIdle                 State = "idle"
	StateRequestingPermission State = "requesting_permission"
	StateListening            State = "listening"
	StateAnalyzing            State = "analyzing"
	StateResult               State = "result"
)

const (
	EventStart    Event = "start"
	EventGranted  Event = "granted"
	EventFail     Event = "fail"
	EventStop     Event = "stop"
	EventAnalyzed Event = "analyzed"
	EventReset    Event = "reset"
	EventTeardown Event = "teardown"
)

func Transition(current State, event Event) (State, error) {
	switch current {
	case StateIdle, StateRequestingPermission, StateListening, StateAnalyzing, StateResult:
	default:
		return current, fmt.Errorf("unknown state %q", current)
	}

	// Reset and teardown are reachable from every state.
	if event == EventReset || event == EventTeardown {
		return StateIdle, nil
	}

	switch current {
	case StateIdle:
		switch event {
		case EventStart:
			return StateRequestingPermission, nil
		default:
			return current, invalidTransition(current, event)
		}
	case StateRequestingPermission:
		switch event {
		case EventGranted:
			return StateListening, nil
		case EventFail:
			return StateIdle, nil
		default:
			return current, invalidTransition(current, event)
		}
	case StateListening:
		switch event {
		case EventStop:
			return StateAnalyzing, nil
		default:
			return current, invalidTransition(current, event)
		}
	case StateAnalyzing:
		switch event {
		case EventAnalyzed:
			return StateResult, nil
		default:
			return current, invalidTransition(current, event)
		}
	default:
		return current, invalidTransition(current, event)
	}
}

func invalidTransition(state State, event Event) error {
	return fmt.Errorf("invalid transition: %s --(%s)--> ?", state, event)
}
