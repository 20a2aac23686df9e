package checkout

import "errors"

var (
	ErrCheckoutInProgress = errors.New("an order is already being submitted for this session")
	ErrIllegalTransition  = errors.New("illegal transition of checkout state")
)
