// Copyright (c) Microsoft. All rights reserved.

package expression

import (
	"context"
	"fmt"
	"sync"

	"github.com/itchyny/gojq"
)

// JQ evaluates jq queries. The environment is not visible to queries.
type JQ struct {
	mu    sync.RWMutex
	cache map[string]*gojq.Code
}

// NewJQ creates a jq engine.
func NewJQ() *JQ {
	return &JQ{cache: make(map[string]*gojq.Code)}
}

// Compile checks that query parses and compiles.
func (j *JQ) Compile(query string) error {
	_, err := j.code(query)
	return err
}

// Evaluate runs query against input, which is normalized first. A query
// with one result returns it; several results are returned as []any and
// none as nil.
func (j *JQ) Evaluate(ctx context.Context, query string, input any) (any, error) {
	code, err := j.code(query)
	if err != nil {
		return nil, err
	}
	data, err := Normalize(input)
	if err != nil {
		return nil, err
	}

	var results []any
	iter := code.RunWithContext(ctx, data)
	for {
		v, ok := iter.Next()
		if !ok {
			break
		}
		if err, isErr := v.(error); isErr {
			return nil, fmt.Errorf("%w: %q: %w", ErrEvaluate, query, err)
		}
		results = append(results, v)
	}

	switch len(results) {
	case 0:
		return nil, nil
	case 1:
		return results[0], nil
	default:
		return results, nil
	}
}

func (j *JQ) code(query string) (*gojq.Code, error) {
	if query == "" {
		return nil, ErrEmpty
	}
	j.mu.RLock()
	code, ok := j.cache[query]
	j.mu.RUnlock()
	if ok {
		return code, nil
	}

	j.mu.Lock()
	defer j.mu.Unlock()
	if code, ok := j.cache[query]; ok {
		return code, nil
	}

	parsed, err := gojq.Parse(query)
	if err != nil {
		return nil, fmt.Errorf("%w: %q: %w", ErrCompile, query, err)
	}
	code, err = gojq.Compile(parsed, gojq.WithEnvironLoader(func() []string { return nil }))
	if err != nil {
		return nil, fmt.Errorf("%w: %q: %w", ErrCompile, query, err)
	}
	j.cache[query] = code
	return code, nil
}
