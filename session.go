package snappdf

import (
	"time"

	"github.com/google/uuid"
)

// Phase is a step of an export session.
type Phase int

const (
	PhaseIdle Phase = iota
	PhaseCapturing
	PhaseAssembling
	PhaseDone
	PhaseFailed
)

func (p Phase) String() string {
	switch p {
	case PhaseCapturing:
		return "capturing"
	case PhaseAssembling:
		return "assembling"
	case PhaseDone:
		return "done"
	case PhaseFailed:
		return "failed"
	default:
		return "idle"
	}
}

// SessionState is the state a session shows on its control.
type SessionState struct {
	phase    Phase
	label    string
	disabled bool
}

// Phase returns the current phase.
func (s SessionState) Phase() Phase { return s.phase }

// Label returns the label the control should show.
func (s SessionState) Label() string { return s.label }

// Disabled reports whether the control should be disabled.
func (s SessionState) Disabled() bool { return s.disabled }

// Control returns the control state to apply.
func (s SessionState) Control() ControlState {
	return ControlState{Label: s.label, Disabled: s.disabled}
}

// Session is one click-to-completion export attempt.
type Session struct {
	ID        string
	StartedAt time.Time
	EndedAt   time.Time

	// Original is the control state captured before the session touched it.
	Original ControlState

	// Path is where the document was delivered, if it was.
	Path   string
	Result *Result
	Err    error

	state   SessionState
	history []Phase
}

func newSession(original ControlState) *Session {
	s := &Session{
		ID:        uuid.NewString(),
		StartedAt: time.Now(),
		Original:  original,
		state:     SessionState{phase: PhaseIdle, label: original.Label, disabled: original.Disabled},
	}
	s.history = append(s.history, PhaseIdle)
	return s
}

// State returns the current session state.
func (s *Session) State() SessionState {
	return s.state
}

// Phases returns every phase the session passed through, in order.
func (s *Session) Phases() []Phase {
	out := make([]Phase, len(s.history))
	copy(out, s.history)
	return out
}

// Duration returns how long the session ran.
func (s *Session) Duration() time.Duration {
	if s.EndedAt.IsZero() {
		return time.Since(s.StartedAt)
	}
	return s.EndedAt.Sub(s.StartedAt)
}

func (s *Session) enter(p Phase, progressLabel string) {
	switch p {
	case PhaseCapturing, PhaseAssembling:
		s.state = SessionState{phase: p, label: progressLabel, disabled: true}
	case PhaseDone, PhaseFailed:
		s.state.phase = p
		s.EndedAt = time.Now()
	case PhaseIdle:
		s.state = SessionState{phase: PhaseIdle, label: s.Original.Label, disabled: s.Original.Disabled}
		s.EndedAt = time.Now()
	}
	s.history = append(s.history, p)
}
