// Copyright (c) Microsoft. All rights reserved.

package agentframework

import (
	"errors"
	"fmt"
)

// Sentinel errors for use with errors.Is.
var (
	// ErrAgent is the base error for agent-related failures.
	ErrAgent = errors.New("agent error")

	// ErrExecution indicates a runtime failure during agent execution.
	ErrExecution = fmt.Errorf("%w: execution", ErrAgent)

	// ErrInitialization indicates an agent configuration or setup failure.
	ErrInitialization = fmt.Errorf("%w: initialization", ErrAgent)

	// ErrSession indicates a session lifecycle failure.
	ErrSession = fmt.Errorf("%w: session", ErrAgent)

	// ErrStructuredOutput indicates a model response that could not be
	// decoded into the requested structured type.
	ErrStructuredOutput = fmt.Errorf("%w: structured output", ErrAgent)

	// ErrRegistry is the base error for agent registry failures.
	ErrRegistry = errors.New("registry error")

	// ErrAgentNotRegistered is returned by registry lookups for unknown names.
	ErrAgentNotRegistered = fmt.Errorf("%w: agent not registered", ErrRegistry)

	// ErrChatClient is the base error for chat client failures.
	ErrChatClient = errors.New("chat client error")

	// ErrService is the base error for backend service failures.
	ErrService = errors.New("service error")

	// ErrContentFilter indicates the request was rejected by a content filter.
	ErrContentFilter = fmt.Errorf("%w: content filter", ErrService)

	// ErrInvalidRequest indicates the request was malformed or invalid.
	ErrInvalidRequest = fmt.Errorf("%w: invalid request", ErrService)

	// ErrInvalidResponse indicates the service returned an unexpected response.
	ErrInvalidResponse = fmt.Errorf("%w: invalid response", ErrService)

	// ErrAuth indicates an authentication or authorization failure.
	ErrAuth = fmt.Errorf("%w: authentication", ErrService)

	// ErrMiddleware is the base error for middleware failures.
	ErrMiddleware = errors.New("middleware error")
)

// ServiceError provides rich context for backend service failures.
// Use errors.As to extract it from a wrapped error chain.
type ServiceError struct {
	StatusCode int
	Message    string
	Code       string
	Err        error
}

func (e *ServiceError) Error() string {
	if e.Code != "" {
		return fmt.Sprintf("service error %d (%s): %s", e.StatusCode, e.Code, e.Message)
	}
	return fmt.Sprintf("service error %d: %s", e.StatusCode, e.Message)
}

func (e *ServiceError) Unwrap() error { return e.Err }

// StructuredOutputParseError reports a response that was not valid JSON or
// did not satisfy the requested schema. Raw holds the model text as received.
//
// Callers in a workflow usually treat it as a routing signal rather than a
// fatal error.
type StructuredOutputParseError struct {
	Format string
	Raw    string
	Err    error
}

func (e *StructuredOutputParseError) Error() string {
	if e.Format != "" {
		return fmt.Sprintf("parse structured output %q: %v", e.Format, e.Err)
	}
	return fmt.Sprintf("parse structured output: %v", e.Err)
}

// Unwrap exposes both the cause and [ErrStructuredOutput].
func (e *StructuredOutputParseError) Unwrap() []error {
	return []error{ErrStructuredOutput, e.Err}
}
