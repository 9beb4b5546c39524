// Package fsm defines the walkthrough session state machine.
package fsm

import "fmt"

type State string

type Event string

const (
	StateIdle      State = "idle"
	StateNarrating State = "narrating"
	StateListening State = "listening"
	StateCompleted State = "completed"
	StateCancelled State = "cancelled"
)

const (
	EventStart    Event = "start"
	EventAsk      Event = "ask"
	EventAnswered Event = "answered"
	EventFinish   Event = "finish"
	EventCancel   Event = "cancel"
)

// Terminal reports whether a state accepts no further events besides cancel.
func Terminal(state State) bool {
	return state == StateCompleted || state == StateCancelled
}

func Transition(current State, event Event) (State, error) {
	// Cancel is legal from every state; cancelling a terminal session is a no-op.
	if event == EventCancel {
		if current == StateCompleted {
			return StateCompleted, nil
		}
		return StateCancelled, nil
	}

	switch current {
	case StateIdle:
		switch event {
		case EventStart:
			return StateNarrating, nil
		default:
			return current, invalidTransition(current, event)
		}
	case StateNarrating:
		switch event {
		case EventAsk:
			return StateListening, nil
		case EventFinish:
			return StateCompleted, nil
		default:
			return current, invalidTransition(current, event)
		}
	case StateListening:
		switch event {
		case EventAnswered:
			return StateNarrating, nil
		default:
			return current, invalidTransition(current, event)
		}
	case StateCompleted, StateCancelled:
		return current, invalidTransition(current, event)
	default:
		return current, fmt.Errorf("unknown state %q", current)
	}
}

func invalidTransition(state State, event Event) error {
	return fmt.Errorf("invalid transition: %s --(%s)--> ?", state, event)
}
