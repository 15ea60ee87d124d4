package model

import "fmt"

// InvariantViolation signals a defect in the replay itself, never bad input.
// It is raised with panic and is not meant to be recovered below main.
type InvariantViolation struct {
	Client uint16
	Tx     uint32
	Reason string
}

func (e *InvariantViolation) Error() string {
	return fmt.Sprintf("invariant violation for client %d, tx %d: %s", e.Client, e.Tx, e.Reason)
}

func violate(client uint16, tx uint32, format string, args ...interface{}) {
	panic(&InvariantViolation{Client: client, Tx: tx, Reason: fmt.Sprintf(format, args...)})
}
