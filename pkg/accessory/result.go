package accessory

import (
	"context"
	"fmt"
	"sync"
)

// Result is the eventual outcome of an asynchronous read or write. It resolves exactly once.
type Result[T any] struct {
	done  chan struct{}
	once  sync.Once
	value T
	err   error
}

func newResult[T any]() *Result[T] {
	return &Result[T]{done: make(chan struct{})}
}

// resolve sets the outcome. Calls after the first are ignored and return false.
func (r *Result[T]) resolve(value T, err error) bool {
	resolved := false
	r.once.Do(func() {
		r.value = value
		r.err = err
		resolved = true
		close(r.done)
	})
	return resolved
}

// Done is closed once the result is available.
func (r *Result[T]) Done() <-chan struct{} {
	return r.done
}

// Wait blocks until the result is available or ctx is done.
func (r *Result[T]) Wait(ctx context.Context) (T, error) {
	select {
	case <-r.done:
		return r.value, r.err
	case <-ctx.Done():
		var zero T
		return zero, ctx.Err()
	}
}

// GetCallback receives the outcome of a read: (nil, value) on success or (err, nil) on failure.
type GetCallback func(err error, value interface{})

// SetCallback receives the outcome of a write.
type SetCallback func(err error)

// safely runs fn, converting a panic into an error.
func (a *Accessory) safely(op, feature string, fn func() (interface{}, error)) (value interface{}, err error) {
	defer func() {
		if r := recover(); r != nil {
			a.log.Error("Panic while %s %s: %v", op, feature, r)
			value, err = nil, fmt.Errorf("%s %s: %v", op, feature, r)
		}
	}()
	return fn()
}

// GetAsync reads a feature in the background.
func (a *Accessory) GetAsync(ctx context.Context, feature string) *Result[interface{}] {
	result := newResult[interface{}]()
	go func() {
		value, err := a.safely("reading", feature, func() (interface{}, error) {
			return a.Get(ctx, feature)
		})
		if err != nil {
			value = nil
		}
		result.resolve(value, err)
	}()
	return result
}

// SetAsync writes a feature in the background.
func (a *Accessory) SetAsync(ctx context.Context, feature string, value interface{}) *Result[struct{}] {
	result := newResult[struct{}]()
	go func() {
		_, err := a.safely("writing", feature, func() (interface{}, error) {
			return nil, a.Set(ctx, feature, value)
		})
		result.resolve(struct{}{}, err)
	}()
	return result
}

// HandleGet reads a feature and invokes callback exactly once with the outcome.
func (a *Accessory) HandleGet(ctx context.Context, feature string, callback GetCallback) {
	result := a.GetAsync(ctx, feature)
	go func() {
		<-result.Done()
		callback(result.err, result.value)
	}()
}

// HandleSet writes a feature and invokes callback exactly once with the outcome.
func (a *Accessory) HandleSet(ctx context.Context, feature string, value interface{}, callback SetCallback) {
	result := a.SetAsync(ctx, feature, value)
	go func() {
		<-result.Done()
		callback(result.err)
	}()
}
