// Package pages holds the state of each screen of the client.
//
// A page owns one or more resource.Resource values and the user's current
// filter selection. The front end calls Mount once, renders from State, and
// forwards user actions (tag click, sort change, "load more") as method
// calls. Every action returns the resulting state so a synchronous caller
// can render straight away.
//
// FILTERS AND PAGINATION:
// Any change to a filter, sort order or search term resets the offset to
// zero and refetches from the first page. LoadMore asks for the next window
// (skip = number of items already shown) and appends it to what is on
// screen. A page reports HasMore until the loaded items reach the server's
// total.
//
// TEARDOWN:
// Close must be called when the screen goes away. Responses that arrive
// afterwards are dropped by the resource layer.
package pages

import (
	"context"
	"errors"

	"github.com/sakif/aic-hub/internal/resource"
)

var errNotLoaded = errors.New("pages: nothing loaded yet")

// DefaultPageSize is the limit sent with list requests when none is given.
const DefaultPageSize = 20

// Listing is the accumulated state of a paginated list.
type Listing[T any] struct {
	Items []T
	Total int
}

// HasMore reports whether the server holds items beyond those loaded.
func (l Listing[T]) HasMore() bool {
	return len(l.Items) < l.Total
}

// window fetches items [skip, skip+limit) and the server-side total.
type window[T any] func(ctx context.Context, skip, limit int) ([]T, int, error)

// paginator drives skip/limit pagination with load-more concatenation.
type paginator[T any] struct {
	res   *resource.Resource[Listing[T]]
	limit int
}

func newPaginator[T any](limit int) *paginator[T] {
	if limit <= 0 {
		limit = DefaultPageSize
	}
	return &paginator[T]{res: resource.New[Listing[T]](nil), limit: limit}
}

// reset fetches the first window, replacing whatever was loaded.
func (p *paginator[T]) reset(ctx context.Context, fetch window[T]) resource.State[Listing[T]] {
	limit := p.limit
	return p.res.Load(ctx, func(ctx context.Context) (Listing[T], error) {
		items, total, err := fetch(ctx, 0, limit)
		if err != nil {
			return Listing[T]{}, err
		}
		return Listing[T]{Items: items, Total: total}, nil
	})
}

// more appends the next window. It is a no-op when nothing is loaded yet or
// everything already is.
func (p *paginator[T]) more(ctx context.Context, fetch window[T]) resource.State[Listing[T]] {
	cur := p.res.State()
	if cur.Phase != resource.Success || !cur.Data.HasMore() {
		return cur
	}
	prev := cur.Data
	limit := p.limit
	return p.res.Load(ctx, func(ctx context.Context) (Listing[T], error) {
		items, total, err := fetch(ctx, len(prev.Items), limit)
		if err != nil {
			return Listing[T]{}, err
		}
		merged := make([]T, 0, len(prev.Items)+len(items))
		merged = append(merged, prev.Items...)
		merged = append(merged, items...)
		return Listing[T]{Items: merged, Total: total}, nil
	})
}

func (p *paginator[T]) state() resource.State[Listing[T]] { return p.res.State() }
func (p *paginator[T]) retry(ctx context.Context) resource.State[Listing[T]] {
	return p.res.Retry(ctx)
}
func (p *paginator[T]) close() { p.res.Close() }
