// Copyright (c) Microsoft. All rights reserved.

// Package expression evaluates the small languages a workflow can carry as
// data: CEL for edge conditions, expr for value transforms and jq for
// reshaping JSON payloads.
//
// Every engine caches compiled programs by source text and is safe for
// concurrent use.
package expression

import (
	"encoding/json"
	"errors"
	"fmt"
)

var (
	// ErrExpression is the base error for this package.
	ErrExpression = errors.New("expression error")

	// ErrCompile indicates source text that does not compile.
	ErrCompile = fmt.Errorf("%w: compile", ErrExpression)

	// ErrEvaluate indicates a program that failed at run time.
	ErrEvaluate = fmt.Errorf("%w: evaluate", ErrExpression)

	// ErrEmpty is returned for empty source text.
	ErrEmpty = fmt.Errorf("%w: empty expression", ErrExpression)
)

// Normalize converts v into plain JSON values (map[string]any, []any,
// float64, string, bool, nil) by a JSON round trip, so struct payloads can
// be addressed by their JSON field names.
func Normalize(v any) (any, error) {
	switch v.(type) {
	case nil, string, bool, float64:
		return v, nil
	}
	b, err := json.Marshal(v)
	if err != nil {
		return nil, fmt.Errorf("%w: normalize %T: %w", ErrExpression, v, err)
	}
	var out any
	if err := json.Unmarshal(b, &out); err != nil {
		return nil, fmt.Errorf("%w: normalize %T: %w", ErrExpression, v, err)
	}
	return out, nil
}
