package scheduler

import (
	"errors"
	"fmt"

	"github.com/itohio/flowsched/internal/chunk"
)

// ErrTopology is the sentinel for spec.md §7 TopologyError: a produced
// datatype has no registered consumers, two generators produce the same
// datatype, or a generator's Wants() names an unregistered datatype.
var ErrTopology = errors.New("scheduler: topology error")

// ErrInvariantViolation is spec.md §7 InvariantViolation: admission found
// no runnable task but the pipeline is not fully exhausted — a deadlock.
var ErrInvariantViolation = errors.New("scheduler: no task runnable but data is not exhausted")

// TaskFailureError wraps a task body's error with the (datatype, chunk
// index) it was producing, per spec.md §7 TaskFailure.
type TaskFailureError struct {
	Datatypes []chunk.Datatype
	Chunk     chunk.Index
	Cause     error
}

func (e *TaskFailureError) Error() string {
	return fmt.Sprintf("scheduler: task failed producing %v chunk %d: %v", e.Datatypes, e.Chunk, e.Cause)
}

func (e *TaskFailureError) Unwrap() error { return e.Cause }

func topologyErrorf(format string, args ...interface{}) error {
	return fmt.Errorf("%w: %s", ErrTopology, fmt.Sprintf(format, args...))
}
