// Package resource models the loading / success / error lifecycle that every
// page repeats.
//
// State[T] is the tagged union a page renders from. Resource[T] drives one
// fetch function through that union:
//
//	Idle ──Load──▶ Loading ──ok──▶ Success(data)
//	                  │
//	                  └──err──▶ Error(message, status) ──Retry──▶ Loading
//
// LIVENESS:
// Close tears the resource down. Completions that arrive afterwards, and
// completions from a Load that a newer Load superseded, are dropped. Each Load
// takes a generation number; only the newest generation may write state.
// Pages call Close when they unmount, so a slow response can never write into
// a view the user already left.
package resource

import (
	"context"
	"sync"

	"github.com/sakif/aic-hub/internal/apperror"
)

// Phase is the tag of a State.
type Phase int

const (
	Idle Phase = iota
	Loading
	Success
	Failed
)

func (p Phase) String() string {
	switch p {
	case Idle:
		return "idle"
	case Loading:
		return "loading"
	case Success:
		return "success"
	case Failed:
		return "error"
	}
	return "unknown"
}

// State is a snapshot of a resource. Data is only meaningful in Success,
// Message and Status only in Failed.
type State[T any] struct {
	Phase   Phase
	Data    T
	Message string
	Status  int
	Err     error
}

// IsLoading reports the Loading phase.
func (s State[T]) IsLoading() bool { return s.Phase == Loading }

// IsNotFound reports an error state caused by a 404.
func (s State[T]) IsNotFound() bool { return s.Phase == Failed && s.Status == 404 }

// IsForbidden reports an error state caused by a 403.
func (s State[T]) IsForbidden() bool { return s.Phase == Failed && s.Status == 403 }

// Retryable reports whether the page should offer a retry action.
func (s State[T]) Retryable() bool {
	return s.Phase == Failed && s.Status != 404 && s.Status != 403
}

// Fetcher loads one value.
type Fetcher[T any] func(ctx context.Context) (T, error)

// Resource drives a Fetcher through State. The zero value is not usable; call New.
type Resource[T any] struct {
	mu       sync.Mutex
	state    State[T]
	gen      uint64
	closed   bool
	last     Fetcher[T]
	onChange func(State[T])
}

// New creates an idle Resource. onChange, when non-nil, is called with every
// state the resource accepts, outside the lock.
func New[T any](onChange func(State[T])) *Resource[T] {
	return &Resource[T]{onChange: onChange}
}

// State returns the current snapshot.
func (r *Resource[T]) State() State[T] {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.state
}

// Load enters Loading, runs fetch and stores its outcome, unless the resource
// was closed or a newer Load started in the meantime. It returns the state
// this call produced (or the current state when its result was dropped).
func (r *Resource[T]) Load(ctx context.Context, fetch Fetcher[T]) State[T] {
	r.mu.Lock()
	if r.closed {
		s := r.state
		r.mu.Unlock()
		return s
	}
	r.gen++
	gen := r.gen
	r.last = fetch
	loading := State[T]{Phase: Loading, Data: r.state.Data}
	r.state = loading
	r.mu.Unlock()
	r.notify(loading)

	data, err := fetch(ctx)

	var next State[T]
	if err != nil {
		next = State[T]{
			Phase:   Failed,
			Message: apperror.UserMessage(err),
			Status:  apperror.StatusOf(err),
			Err:     err,
		}
	} else {
		next = State[T]{Phase: Success, Data: data}
	}

	r.mu.Lock()
	if r.closed || gen != r.gen {
		s := r.state
		r.mu.Unlock()
		return s
	}
	r.state = next
	r.mu.Unlock()
	r.notify(next)
	return next
}

// Retry re-runs the last fetch. Without a previous Load it is a no-op.
func (r *Resource[T]) Retry(ctx context.Context) State[T] {
	r.mu.Lock()
	last := r.last
	r.mu.Unlock()
	if last == nil {
		return r.State()
	}
	return r.Load(ctx, last)
}

// Set replaces the data directly (optimistic updates, local mutations).
func (r *Resource[T]) Set(data T) {
	r.mu.Lock()
	if r.closed {
		r.mu.Unlock()
		return
	}
	r.gen++
	s := State[T]{Phase: Success, Data: data}
	r.state = s
	r.mu.Unlock()
	r.notify(s)
}

// Close tears the resource down. In-flight loads complete but are discarded.
func (r *Resource[T]) Close() {
	r.mu.Lock()
	r.closed = true
	r.gen++
	r.mu.Unlock()
}

// Closed reports whether Close was called.
func (r *Resource[T]) Closed() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.closed
}

func (r *Resource[T]) notify(s State[T]) {
	if r.onChange != nil {
		r.onChange(s)
	}
}
