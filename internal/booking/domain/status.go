package domain

// Status represents lifecycle states for a booking.
type Status string

const (
	StatusPending   Status = "pending"
	StatusConfirmed Status = "confirmed"
	StatusCompleted Status = "completed"
	StatusCancelled Status = "cancelled"
)

var transitions = map[Status][]Status{
	StatusPending:   {StatusConfirmed, StatusCancelled},
	StatusConfirmed: {StatusCompleted, StatusCancelled},
	StatusCompleted: nil,
	StatusCancelled: nil,
}

func (s Status) Valid() bool {
	_, ok := transitions[s]
	return ok
}

// Terminal reports whether no transition leaves s.
func (s Status) Terminal() bool {
	return s == StatusCompleted || s == StatusCancelled
}

func (s Status) CanTransitionTo(target Status) bool {
	for _, next := range transitions[s] {
		if next == target {
			return true
		}
	}
	return false
}

// Transition validates from -> to and returns the error the caller should
// surface when the move is illegal.
func Transition(from, to Status) error {
	if from.CanTransitionTo(to) {
		return nil
	}
	switch from {
	case StatusCompleted:
		return ErrBookingCompleted
	case StatusCancelled:
		return ErrBookingCancelled
	default:
		return ErrIllegalTransition
	}
}

// ParseStatus accepts the persisted lowercase form.
func ParseStatus(raw string) (Status, error) {
	status := Status(raw)
	if !status.Valid() {
		return "", ErrInvalidStatus
	}
	return status, nil
}
