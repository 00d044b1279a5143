// Copyright (c) Microsoft. All rights reserved.

package workflow

import (
	"errors"
	"fmt"
	"strings"
)

// Sentinel errors for use with errors.Is.
var (
	// ErrWorkflow is the base error for workflow failures.
	ErrWorkflow = errors.New("workflow error")

	// ErrDuplicateExecutor is returned when an executor id is declared twice.
	ErrDuplicateExecutor = fmt.Errorf("%w: duplicate executor", ErrWorkflow)

	// ErrUnknownExecutor is returned when an edge or the start references an
	// undeclared executor.
	ErrUnknownExecutor = fmt.Errorf("%w: unknown executor", ErrWorkflow)

	// ErrValidation indicates a graph that cannot be built.
	ErrValidation = fmt.Errorf("%w: validation", ErrWorkflow)

	// ErrOutputNotAllowed is returned by YieldOutput on an executor that has
	// outgoing edges. The run fails even if the handler ignores it.
	ErrOutputNotAllowed = fmt.Errorf("%w: output not allowed from non-terminal executor", ErrWorkflow)

	// ErrMaxSupersteps indicates the run hit its superstep limit.
	ErrMaxSupersteps = fmt.Errorf("%w: max supersteps exceeded", ErrWorkflow)

	// ErrHandlerPanic wraps a panic recovered from a handler.
	ErrHandlerPanic = fmt.Errorf("%w: handler panic", ErrWorkflow)

	// ErrUnexpectedInput is returned by typed handlers given the wrong payload.
	ErrUnexpectedInput = fmt.Errorf("%w: unexpected input", ErrWorkflow)
)

// DuplicateIDError reports an executor id that was already declared.
type DuplicateIDError struct {
	ID string
}

func (e *DuplicateIDError) Error() string {
	return fmt.Sprintf("executor %q already declared", e.ID)
}

func (e *DuplicateIDError) Unwrap() error { return ErrDuplicateExecutor }

// UnknownExecutorError reports a reference to an undeclared executor.
// Ref says where the reference came from, e.g. "edge target".
type UnknownExecutorError struct {
	ID  string
	Ref string
}

func (e *UnknownExecutorError) Error() string {
	if e.Ref != "" {
		return fmt.Sprintf("unknown executor %q (%s)", e.ID, e.Ref)
	}
	return fmt.Sprintf("unknown executor %q", e.ID)
}

func (e *UnknownExecutorError) Unwrap() error { return ErrUnknownExecutor }

// ValidationError lists every problem found while building a graph.
type ValidationError struct {
	Problems []string
}

func (e *ValidationError) Error() string {
	return "invalid workflow: " + strings.Join(e.Problems, "; ")
}

func (e *ValidationError) Unwrap() error { return ErrValidation }

// ExecutorError is the cause of a failed run.
type ExecutorError struct {
	ExecutorID string
	Err        error
}

func (e *ExecutorError) Error() string {
	return fmt.Sprintf("executor %q: %v", e.ExecutorID, e.Err)
}

func (e *ExecutorError) Unwrap() error { return e.Err }
