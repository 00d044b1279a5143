// Copyright (c) Microsoft. All rights reserved.

package agentframework

import (
	"context"
	"iter"
	"sync"
)

// ResponseStream provides a pull-based iterator over streaming values.
// It wraps a channel internally but exposes a cleaner API with error
// propagation and cleanup guarantees.
//
// Closing the stream cancels the producer's context, so a producer that
// honours ctx.Done stops doing work as soon as the consumer walks away.
// Callers must call Close when done, or use a context with cancellation.
type ResponseStream[T any] struct {
	ch        <-chan T
	errCh     <-chan error
	cancel    context.CancelFunc
	closeOnce sync.Once
	err       error
}

// NewResponseStream creates a ResponseStream by running producer in a goroutine.
// The producer should send values to the channel and return any error.
// The channel is closed automatically when the producer returns.
func NewResponseStream[T any](ctx context.Context, producer func(ctx context.Context, ch chan<- T) error) *ResponseStream[T] {
	ctx, cancel := context.WithCancel(ctx)
	ch := make(chan T, 1)
	errCh := make(chan error, 1)

	go func() {
		defer close(ch)
		if err := producer(ctx, ch); err != nil {
			errCh <- err
		}
		close(errCh)
	}()

	return &ResponseStream[T]{
		ch:     ch,
		errCh:  errCh,
		cancel: cancel,
	}
}

// Next returns the next value from the stream.
// ok is false when the stream is exhausted. err is non-nil on failure.
func (s *ResponseStream[T]) Next(ctx context.Context) (val T, ok bool, err error) {
	select {
	case <-ctx.Done():
		var zero T
		return zero, false, ctx.Err()
	case v, open := <-s.ch:
		if !open {
			// Channel closed; the producer error, if any, is already buffered.
			if e, ok := <-s.errCh; ok {
				s.err = e
			}
			var zero T
			return zero, false, s.err
		}
		return v, true, nil
	}
}

// Collect drains the entire stream and returns all values.
func (s *ResponseStream[T]) Collect(ctx context.Context) ([]T, error) {
	var items []T
	for {
		val, ok, err := s.Next(ctx)
		if err != nil {
			return items, err
		}
		if !ok {
			return items, nil
		}
		items = append(items, val)
	}
}

// All returns an iterator over the remaining values for use with range.
// A producer error is yielded once as the final pair. Breaking out of the
// loop closes the stream.
//
//	for ev, err := range stream.All(ctx) {
//	    if err != nil { ... }
//	}
func (s *ResponseStream[T]) All(ctx context.Context) iter.Seq2[T, error] {
	return func(yield func(T, error) bool) {
		defer s.Close()
		for {
			val, ok, err := s.Next(ctx)
			if err != nil {
				var zero T
				yield(zero, err)
				return
			}
			if !ok {
				return
			}
			if !yield(val, nil) {
				return
			}
		}
	}
}

// Close cancels the producer and releases resources.
// Safe to call multiple times.
func (s *ResponseStream[T]) Close() error {
	s.closeOnce.Do(func() {
		s.cancel()
		// Drain remaining items to unblock producer
		for range s.ch {
		}
		select {
		case e := <-s.errCh:
			if s.err == nil {
				s.err = e
			}
		default:
		}
	})
	return nil
}

// AgentResponseStream wraps a [ResponseStream] of [AgentResponseUpdate] and
// provides a FinalResponse method that collects all updates and merges them.
// When the stream ends the merged reply is recorded in the run's session.
type AgentResponseStream struct {
	stream  *ResponseStream[AgentResponseUpdate]
	updates []AgentResponseUpdate

	done     func(context.Context, *AgentResponse)
	finished sync.Once
}

// NewAgentResponseStream wraps a raw update stream.
func NewAgentResponseStream(stream *ResponseStream[AgentResponseUpdate]) *AgentResponseStream {
	return &AgentResponseStream{stream: stream}
}

// Next returns the next streaming update.
func (s *AgentResponseStream) Next(ctx context.Context) (AgentResponseUpdate, bool, error) {
	val, ok, err := s.stream.Next(ctx)
	switch {
	case ok:
		s.updates = append(s.updates, val)
	case err == nil:
		s.finish(ctx)
	}
	return val, ok, err
}

// FinalResponse collects remaining updates and returns the merged [AgentResponse].
// After calling this, the stream is fully consumed.
func (s *AgentResponseStream) FinalResponse(ctx context.Context) (*AgentResponse, error) {
	for {
		val, ok, err := s.stream.Next(ctx)
		if err != nil {
			return nil, err
		}
		if !ok {
			break
		}
		s.updates = append(s.updates, val)
	}
	return s.finish(ctx), nil
}

func (s *AgentResponseStream) finish(ctx context.Context) *AgentResponse {
	resp := AgentResponseFromUpdates(s.updates)
	s.finished.Do(func() {
		if s.done != nil {
			s.done(ctx, resp)
		}
	})
	return resp
}

// Close releases the underlying stream resources.
func (s *AgentResponseStream) Close() error {
	return s.stream.Close()
}

// MapStream transforms a ResponseStream[A] into a ResponseStream[B] using fn.
func MapStream[A, B any](ctx context.Context, src *ResponseStream[A], fn func(A) B) *ResponseStream[B] {
	return NewResponseStream[B](ctx, func(ctx context.Context, ch chan<- B) error {
		defer src.Close()
		for {
			val, ok, err := src.Next(ctx)
			if err != nil {
				return err
			}
			if !ok {
				return nil
			}
			select {
			case ch <- fn(val):
			case <-ctx.Done():
				return ctx.Err()
			}
		}
	})
}
