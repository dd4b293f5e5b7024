package domain

var tripTransitions = map[TripStatus][]TripStatus{
	TripStatusPending:    {TripStatusAssigned, TripStatusCancelled},
	TripStatusAssigned:   {TripStatusAssigned, TripStatusConfirmed, TripStatusInProgress, TripStatusCompleted, TripStatusCancelled},
	TripStatusConfirmed:  {TripStatusInProgress, TripStatusCompleted, TripStatusCancelled},
	TripStatusInProgress: {TripStatusCompleted, TripStatusCancelled},
}

// IsTerminal reports whether no further transitions are possible.
func (s TripStatus) IsTerminal() bool {
	return s == TripStatusCompleted || s == TripStatusCancelled
}

// Valid reports whether s is a known status.
func (s TripStatus) Valid() bool {
	switch s {
	case TripStatusPending, TripStatusAssigned, TripStatusConfirmed,
		TripStatusInProgress, TripStatusCompleted, TripStatusCancelled:
		return true
	default:
		return false
	}
}

// CanTransitionTo reports whether the lifecycle allows moving from s to next.
func (s TripStatus) CanTransitionTo(next TripStatus) bool {
	for _, allowed := range tripTransitions[s] {
		if allowed == next {
			return true
		}
	}
	return false
}

// RequiresDriver reports whether entering s needs a non-null driver assignment.
func (s TripStatus) RequiresDriver() bool {
	switch s {
	case TripStatusAssigned, TripStatusConfirmed, TripStatusInProgress, TripStatusCompleted:
		return true
	default:
		return false
	}
}
