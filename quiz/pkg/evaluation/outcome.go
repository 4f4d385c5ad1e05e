package evaluation

import (
	"errors"
	"fmt"
)

// Status is the state of an evaluation outcome.
type Status int

const (
	StatusPending Status = iota
	StatusSucceeded
	StatusTimedOut
	StatusFailed
)

func (s Status) String() string {
	switch s {
	case StatusPending:
		return "pending"
	case StatusSucceeded:
		return "succeeded"
	case StatusTimedOut:
		return "timed out"
	case StatusFailed:
		return "failed"
	default:
		return fmt.Sprintf("Status(%d)", int(s))
	}
}

// Outcome tracks one request from dispatch to its single terminal state.
type Outcome struct {
	RequestID uint64
	Slot      int
	Status    Status
	Judgment  Judgment
	Err       error
}

// Pending returns the outcome of a freshly dispatched request.
func Pending(req Request) Outcome {
	return Outcome{RequestID: req.ID, Slot: req.Slot, Status: StatusPending}
}

// Succeeded returns a terminal outcome carrying j.
func Succeeded(req Request, j Judgment) Outcome {
	return Outcome{RequestID: req.ID, Slot: req.Slot, Status: StatusSucceeded, Judgment: j}
}

// TimedOut returns a terminal outcome for a request that got no reply in time.
func TimedOut(req Request) Outcome {
	return Outcome{RequestID: req.ID, Slot: req.Slot, Status: StatusTimedOut}
}

// Failed returns a terminal outcome for a request that errored.
func Failed(req Request, err error) Outcome {
	return Outcome{RequestID: req.ID, Slot: req.Slot, Status: StatusFailed, Err: err}
}

// Terminal reports whether the outcome will not change again.
func (o Outcome) Terminal() bool {
	return o.Status != StatusPending
}

// Reason describes a non-successful outcome for display.
func (o Outcome) Reason() string {
	switch o.Status {
	case StatusTimedOut:
		return "evaluation timed out"
	case StatusFailed:
		var perr *ParseError
		if errors.As(o.Err, &perr) {
			return perr.Error()
		}
		if o.Err != nil {
			return o.Err.Error()
		}
		return "evaluation failed"
	}
	return ""
}
