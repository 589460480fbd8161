// Package pagination materializes server-paginated sequences.
//
// A page source is called with page indexes 0, 1, 2, ... and signals the end
// of the sequence by returning an empty page. There is no other termination
// condition unless a page limit is configured, so a source that never returns
// an empty page is iterated forever by default.
package pagination

import (
	"context"
	"errors"
	"fmt"
	"iter"

	"golang.org/x/sync/errgroup"
)

// DefaultPageSize is the page size used by the persistence backend.
const DefaultPageSize = 50

// ErrPageLimit is returned when a source keeps producing pages past the configured limit.
var ErrPageLimit = errors.New("page limit exceeded")

// PageFunc fetches one page. An empty page marks the end of the sequence.
type PageFunc[T any] func(ctx context.Context, page int) ([]T, error)

type options struct {
	maxPages   int
	fetchAhead int
}

// Option tunes FetchAll.
type Option func(*options)

// WithMaxPages caps the number of non-empty pages accepted. Zero keeps the
// unbounded behaviour.
func WithMaxPages(n int) Option {
	return func(o *options) {
		if n >= 0 {
			o.maxPages = n
		}
	}
}

// WithFetchAhead fetches up to n pages concurrently. Results are reassembled
// in page order; values below 2 fetch sequentially.
func WithFetchAhead(n int) Option {
	return func(o *options) {
		o.fetchAhead = n
	}
}

func buildOptions(opts []Option) options {
	o := options{fetchAhead: 1}
	for _, opt := range opts {
		opt(&o)
	}
	if o.fetchAhead < 1 {
		o.fetchAhead = 1
	}
	return o
}

// FetchAll drains the source and returns every item in page order. A failing
// page aborts the whole aggregation and nothing accumulated so far is returned.
func FetchAll[T any](ctx context.Context, fetch PageFunc[T], opts ...Option) ([]T, error) {
	o := buildOptions(opts)
	if o.fetchAhead > 1 {
		return fetchWindowed(ctx, fetch, o)
	}

	all := []T{}
	for page := 0; ; page++ {
		items, err := fetch(ctx, page)
		if err != nil {
			return nil, fmt.Errorf("fetch page %d: %w", page, err)
		}
		if len(items) == 0 {
			return all, nil
		}
		if o.maxPages > 0 && page >= o.maxPages {
			return nil, fmt.Errorf("%w: more than %d pages", ErrPageLimit, o.maxPages)
		}
		all = append(all, items...)
	}
}

func fetchWindowed[T any](ctx context.Context, fetch PageFunc[T], o options) ([]T, error) {
	all := []T{}
	for start := 0; ; start += o.fetchAhead {
		window := o.fetchAhead
		if o.maxPages > 0 && start+window > o.maxPages+1 {
			window = o.maxPages + 1 - start
		}

		pages := make([][]T, window)
		errs := make([]error, window)
		var g errgroup.Group
		g.SetLimit(window)
		for i := 0; i < window; i++ {
			page := start + i
			g.Go(func() error {
				pages[i], errs[i] = fetch(ctx, page)
				return nil
			})
		}
		_ = g.Wait()

		for i, items := range pages {
			// Pages past the end of the sequence are discarded, errors included.
			if errs[i] != nil {
				return nil, fmt.Errorf("fetch page %d: %w", start+i, errs[i])
			}
			if len(items) == 0 {
				return all, nil
			}
			if o.maxPages > 0 && start+i >= o.maxPages {
				return nil, fmt.Errorf("%w: more than %d pages", ErrPageLimit, o.maxPages)
			}
			all = append(all, items...)
		}
	}
}

// Pages lazily yields non-empty pages in order. Every range over the returned
// sequence restarts from page 0, and fetching stops as soon as the consumer
// stops. A fetch error is yielded once and ends the sequence.
func Pages[T any](ctx context.Context, fetch PageFunc[T]) iter.Seq2[[]T, error] {
	return func(yield func([]T, error) bool) {
		for page := 0; ; page++ {
			if err := ctx.Err(); err != nil {
				yield(nil, err)
				return
			}
			items, err := fetch(ctx, page)
			if err != nil {
				yield(nil, fmt.Errorf("fetch page %d: %w", page, err))
				return
			}
			if len(items) == 0 {
				return
			}
			if !yield(items, nil) {
				return
			}
		}
	}
}

// Items lazily yields the items of every page in order.
func Items[T any](ctx context.Context, fetch PageFunc[T]) iter.Seq2[T, error] {
	return func(yield func(T, error) bool) {
		for items, err := range Pages(ctx, fetch) {
			if err != nil {
				var zero T
				yield(zero, err)
				return
			}
			for _, item := range items {
				if !yield(item, nil) {
					return
				}
			}
		}
	}
}

// Take returns at most n items, fetching only the pages needed to fill them.
func Take[T any](ctx context.Context, fetch PageFunc[T], n int) ([]T, error) {
	out := make([]T, 0, max(n, 0))
	if n <= 0 {
		return out, nil
	}
	for item, err := range Items(ctx, fetch) {
		if err != nil {
			return nil, err
		}
		out = append(out, item)
		if len(out) == n {
			break
		}
	}
	return out, nil
}

// Count returns the number of items without retaining them.
func Count[T any](ctx context.Context, fetch PageFunc[T]) (int, error) {
	total := 0
	for items, err := range Pages(ctx, fetch) {
		if err != nil {
			return 0, err
		}
		total += len(items)
	}
	return total, nil
}
