package game

import (
	"fmt"

	"nvivas/backend/bingo-go-server/internal/errors"
)

// Phase is the draw lifecycle of a room.
type Phase int

const (
	PhaseIdle     Phase = iota // no timer
	PhaseDrawing               // timer active, drawing
	PhasePaused                // timer active, ticks ignored
	PhaseFinished              // pool exhausted or winner confirmed
)

func (p Phase) String() string {
	switch p {
	case PhaseIdle:
		return "idle"
	case PhaseDrawing:
		return "drawing"
	case PhasePaused:
		return "paused"
	case PhaseFinished:
		return "finished"
	}
	return fmt.Sprintf("phase(%d)", int(p))
}

// TimerActive reports whether a draw timer should be running in this phase.
func (p Phase) TimerActive() bool {
	return p == PhaseDrawing || p == PhasePaused
}

// Action drives a phase transition.
type Action int

const (
	ActionStart  Action = iota // host starts the automatic draw
	ActionPause                // host pauses
	ActionResume               // host resumes
	ActionFinish               // valid claim or exhausted pool
	ActionHalt                 // host left; drawing stops until the new host restarts
)

func (a Action) String() string {
	switch a {
	case ActionStart:
		return "start"
	case ActionPause:
		return "pause"
	case ActionResume:
		return "resume"
	case ActionFinish:
		return "finish"
	case ActionHalt:
		return "halt"
	}
	return fmt.Sprintf("action(%d)", int(a))
}

// Transition returns the phase that follows from applying a to from.
// Disallowed combinations return from unchanged and ErrInvalidTransition.
func Transition(from Phase, a Action) (Phase, error) {
	switch a {
	case ActionStart:
		if from == PhaseIdle {
			return PhaseDrawing, nil
		}
		if from.TimerActive() {
			return from, errors.ErrTimerActive
		}
	case ActionPause:
		if from == PhaseDrawing {
			return PhasePaused, nil
		}
	case ActionResume:
		if from == PhasePaused {
			return PhaseDrawing, nil
		}
	case ActionFinish:
		if from.TimerActive() {
			return PhaseFinished, nil
		}
	case ActionHalt:
		if from.TimerActive() {
			return PhaseIdle, nil
		}
		return from, nil
	}
	return from, fmt.Errorf("%w: %s from %s", errors.ErrInvalidTransition, a, from)
}
