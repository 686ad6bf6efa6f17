package engine

import (
	"fmt"

	"github.com/c360/seisgate/epoch"
)

// TaskState is the lifecycle state of one (endpoint, epoch) sub-request.
type TaskState int

const (
	// StatePending marks a task that has not yet acquired a slot.
	StatePending TaskState = iota

	// StateRunning marks a task performing its sub-request.
	StateRunning

	// StateSuccess marks a resolved task whose bytes (possibly zero) are
	// in its buffer slot.
	StateSuccess

	// StatePermanentFailure marks a resolved task that contributed
	// nothing. The failure is absorbed; the request still completes.
	StatePermanentFailure

	// StateRetrySplit marks a task rejected as too large whose epoch was
	// subdivided into child tasks.
	StateRetrySplit
)

// String returns the state name.
func (s TaskState) String() string {
	switch s {
	case StatePending:
		return "pending"
	case StateRunning:
		return "running"
	case StateSuccess:
		return "success"
	case StatePermanentFailure:
		return "permanent_failure"
	case StateRetrySplit:
		return "retry_split"
	default:
		return fmt.Sprintf("unknown(%d)", int(s))
	}
}

// Outcome is the explicit result of one worker task. Workers never panic or
// leak errors across goroutine boundaries; every task resolves to exactly
// one Outcome and the dispatcher pattern-matches on its state.
type Outcome struct {
	State    TaskState
	Endpoint string
	Epoch    epoch.StreamEpoch

	// Bytes is the payload size the task wrote to its slot. Zero for
	// no-data successes and for failures.
	Bytes int64

	// Err is the failure reason for StatePermanentFailure.
	Err error

	// SplitEpochs are the child sub-epochs for StateRetrySplit, in time
	// order. The dispatcher spawns one child task per entry.
	SplitEpochs []epoch.StreamEpoch
}

func successOutcome(t *task, bytes int64) Outcome {
	return Outcome{State: StateSuccess, Endpoint: t.endpoint, Epoch: t.epoch, Bytes: bytes}
}

func failureOutcome(t *task, err error) Outcome {
	return Outcome{State: StatePermanentFailure, Endpoint: t.endpoint, Epoch: t.epoch, Err: err}
}

func splitOutcome(t *task, children []epoch.StreamEpoch) Outcome {
	return Outcome{State: StateRetrySplit, Endpoint: t.endpoint, Epoch: t.epoch, SplitEpochs: children}
}
