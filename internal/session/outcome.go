package session

import (
	"time"

	"github.com/joseph-ayodele/handscribe/constants"
)

// Outcome is the state of the result area. Exactly one variant holds.
type Outcome interface {
	outcome()
}

// Idle: no attempt since the last selection or clear.
type Idle struct{}

// Loading: an extraction is in flight.
type Loading struct {
	Attempt uint64
	Since   time.Time
}

// Succeeded holds the model's text and the mode it was extracted in.
type Succeeded struct {
	Text string
	Mode constants.Mode
}

// Failed holds the error shown in the error panel.
type Failed struct {
	Err error
}

func (Idle) outcome()      {}
func (Loading) outcome()   {}
func (Succeeded) outcome() {}
func (Failed) outcome()    {}

func phaseOf(o Outcome, hasImage bool) constants.Phase {
	switch o.(type) {
	case Loading:
		return constants.PhaseLoading
	case Succeeded:
		return constants.PhaseSuccess
	case Failed:
		return constants.PhaseError
	default:
		if hasImage {
			return constants.PhaseSelected
		}
		return constants.PhaseEmpty
	}
}
