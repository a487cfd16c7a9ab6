package conversation

import (
	"errors"
	"fmt"
)

var (
	// ErrValidation classifies input rejected before any network call.
	ErrValidation      = errors.New("validation rejected")
	ErrBlankQuestion   = fmt.Errorf("%w: question is blank", ErrValidation)
	ErrBusy            = errors.New("a question is already in flight")
	ErrNotReady        = errors.New("conversation is not ready")
	ErrUnauthenticated = errors.New("not logged in")
	ErrSuperseded      = errors.New("conversation was reloaded while the request was in flight")
)
