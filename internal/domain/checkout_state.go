package domain

type CheckoutState string

const (
	CheckoutStateIdle       CheckoutState = "IDLE"
	CheckoutStateSubmitting CheckoutState = "SUBMITTING"
	CheckoutStatePlaced     CheckoutState = "PLACED"
	CheckoutStateFailed     CheckoutState = "FAILED"
)

var checkoutTransitions = map[CheckoutState][]CheckoutState{
	CheckoutStateIdle:       {CheckoutStateSubmitting},
	CheckoutStateSubmitting: {CheckoutStatePlaced, CheckoutStateFailed},
	CheckoutStatePlaced:     {CheckoutStateIdle, CheckoutStateSubmitting},
	CheckoutStateFailed:     {CheckoutStateIdle, CheckoutStateSubmitting},
}

func CanTransitionTo(from, to CheckoutState) bool {
	for _, next := range checkoutTransitions[from] {
		if next == to {
			return true
		}
	}
	return false
}

func (s CheckoutState) IsTerminal() bool {
	return s == CheckoutStatePlaced || s == CheckoutStateFailed
}

// String representation (for logging)
func (s CheckoutState) String() string {
	return string(s)
}
