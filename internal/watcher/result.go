package watcher

import "fmt"

// Outcome is the terminal state of one event
type Outcome int

const (
	OutcomeFailed Outcome = iota
	OutcomeDuplicate
	OutcomeUnmonitored
	OutcomeNoMatch
	OutcomeNotified
)

func (o Outcome) String() string {
	switch o {
	case OutcomeDuplicate:
		return "duplicate"
	case OutcomeUnmonitored:
		return "unmonitored"
	case OutcomeNoMatch:
		return "no_match"
	case OutcomeNotified:
		return "notified"
	default:
		return "failed"
	}
}

// Stage names the pipeline step an error came from
type Stage string

const (
	StageDedup   Stage = "dedup"
	StageLookup  Stage = "lookup"
	StageRecord  Stage = "record"
	StageHandler Stage = "handler"
)

// StageError is a pipeline failure tagged with its stage
type StageError struct {
	Stage Stage
	Err   error
}

func (e *StageError) Error() string {
	return fmt.Sprintf("%s: %v", e.Stage, e.Err)
}

func (e *StageError) Unwrap() error {
	return e.Err
}
