package session

// State is the top-level game state.
type State int

const (
	StateNotStarted State = iota
	StateRunning
	StatePaused
	StateInCombat
	StateInMenu
	StateGameOver
	StateLoading
	StateSaving
)

func (s State) String() string {
	switch s {
	case StateNotStarted:
		return "NotStarted"
	case StateRunning:
		return "Running"
	case StatePaused:
		return "Paused"
	case StateInCombat:
		return "InCombat"
	case StateInMenu:
		return "InMenu"
	case StateGameOver:
		return "GameOver"
	case StateLoading:
		return "Loading"
	case StateSaving:
		return "Saving"
	default:
		return "Unknown"
	}
}

// counts reports whether play time accrues in this state.
func (s State) counts() bool {
	return s == StateRunning || s == StateInCombat
}

// transient states only exist while a save or load is in flight.
func (s State) transient() bool {
	return s == StateLoading || s == StateSaving
}
