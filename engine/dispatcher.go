package engine

import (
	"context"
	"log"
	"sync"

	"github.com/mherod/getcookie/browserpaths"
)

// Strategy reads cookies out of one browser family's cookie store.
type Strategy interface {
	// Name identifies the strategy for logging, e.g. "chrome", "firefox".
	Name() string

	// Kind reports the storage family the strategy belongs to, so
	// Dispatcher.GetChrome/GetFirefox/GetSafari can filter the registry.
	Kind() browserpaths.Kind

	// Query resolves every matching profile's cookie store and returns the
	// cookies matching spec. A missing store or an unrecoverable per-file
	// error is isolated to that file: Query returns whatever the other
	// files in its family yielded, never aborting the whole strategy.
	Query(ctx context.Context, spec CookieSpec, opts QueryOptions) ([]ExportedCookie, error)
}

// Dispatcher fans a CookieSpec out across a fixed, ordered set of
// strategies and merges their results.
type Dispatcher struct {
	strategies []Strategy
}

// New builds a Dispatcher over an explicit strategy list, in the order
// given. Later callers (Batch's dedup tie-break in particular) rely on this
// order being stable.
func New(strategies ...Strategy) *Dispatcher {
	return &Dispatcher{strategies: strategies}
}

// Default returns the Dispatcher used by the rest of this module: every
// Chromium-family browser in browserpaths.Registry's order, then Firefox,
// then Safari.
func Default() *Dispatcher {
	return New(
		newChromiumStrategy("chrome"),
		newChromiumStrategy("chromium"),
		newChromiumStrategy("edge"),
		newChromiumStrategy("brave"),
		newChromiumStrategy("opera"),
		newChromiumStrategy("opera-gx"),
		newChromiumStrategy("arc"),
		newFirefoxStrategy(),
		newSafariStrategy(),
	)
}

// Get runs spec against every registered strategy and returns the merged,
// un-deduplicated results in registration order.
func (d *Dispatcher) Get(ctx context.Context, spec CookieSpec) ([]ExportedCookie, error) {
	return d.run(ctx, spec, QueryOptions{}, d.strategies), nil
}

// GetByDomain is shorthand for Get(ctx, ByDomain(domain)).
func (d *Dispatcher) GetByDomain(ctx context.Context, domain string) ([]ExportedCookie, error) {
	return d.Get(ctx, ByDomain(domain))
}

// GetChrome runs spec against every Chromium-family strategy only.
func (d *Dispatcher) GetChrome(ctx context.Context, spec CookieSpec) ([]ExportedCookie, error) {
	return d.run(ctx, spec, QueryOptions{}, d.filterKind(browserpaths.Chromium)), nil
}

// GetFirefox runs spec against the Firefox strategy only.
func (d *Dispatcher) GetFirefox(ctx context.Context, spec CookieSpec) ([]ExportedCookie, error) {
	return d.run(ctx, spec, QueryOptions{}, d.filterKind(browserpaths.Firefox)), nil
}

// GetSafari runs spec against the Safari strategy only.
func (d *Dispatcher) GetSafari(ctx context.Context, spec CookieSpec) ([]ExportedCookie, error) {
	return d.run(ctx, spec, QueryOptions{}, d.filterKind(browserpaths.Safari)), nil
}

func (d *Dispatcher) filterKind(kind browserpaths.Kind) []Strategy {
	var out []Strategy
	for _, s := range d.strategies {
		if s.Kind() == kind {
			out = append(out, s)
		}
	}
	return out
}

// run fans spec out across strategies concurrently and merges their
// results in registration order. A strategy error is logged and isolated:
// the overall fan-out never fails because one browser family had a problem.
func (d *Dispatcher) run(ctx context.Context, spec CookieSpec, opts QueryOptions, strategies []Strategy) []ExportedCookie {
	results := make([][]ExportedCookie, len(strategies))
	var wg sync.WaitGroup
	for i, s := range strategies {
		wg.Add(1)
		go func(i int, s Strategy) {
			defer wg.Done()
			cs, err := s.Query(ctx, spec, opts)
			if err != nil {
				log.Printf("engine: strategy %s: %v", s.Name(), err)
			}
			results[i] = cs
		}(i, s)
	}
	wg.Wait()

	var out []ExportedCookie
	for _, r := range results {
		out = append(out, r...)
	}
	return out
}

// BatchOptions controls Dispatcher.Batch. The zero value runs every spec
// sequentially (Concurrency 1), keeps duplicates, keeps expired cookies, and
// aborts the whole batch on the first spec's error; call
// DefaultBatchOptions for the more forgiving defaults most callers want.
type BatchOptions struct {
	Deduplicate     bool
	Concurrency     uint
	ContinueOnError bool
	RemoveExpired   bool
	Limit           uint
}

// DefaultBatchOptions returns the batch defaults: dedup on, ten specs in
// flight at once, one spec's failure does not abort the rest.
func DefaultBatchOptions() BatchOptions {
	return BatchOptions{Deduplicate: true, Concurrency: 10, ContinueOnError: true}
}

// Batch runs every spec through Get, bounded to opts.Concurrency specs in
// flight at once, then merges, optionally deduplicates, optionally drops
// expired cookies, and optionally truncates to opts.Limit.
func (d *Dispatcher) Batch(ctx context.Context, specs []CookieSpec, opts BatchOptions) ([]ExportedCookie, error) {
	concurrency := opts.Concurrency
	if concurrency == 0 {
		concurrency = 1
	}

	results := make([][]ExportedCookie, len(specs))
	errs := make([]error, len(specs))
	sem := make(chan struct{}, concurrency)
	var wg sync.WaitGroup
	for i, spec := range specs {
		wg.Add(1)
		sem <- struct{}{}
		go func(i int, spec CookieSpec) {
			defer wg.Done()
			defer func() { <-sem }()
			cs, err := d.Get(ctx, spec)
			results[i] = cs
			errs[i] = err
		}(i, spec)
	}
	wg.Wait()

	var out []ExportedCookie
	for i, err := range errs {
		if err != nil {
			if !opts.ContinueOnError {
				return nil, err
			}
			continue
		}
		out = append(out, results[i]...)
	}

	if opts.Deduplicate {
		out = dedup(out)
	}
	if opts.RemoveExpired {
		out = removeExpired(out)
	}
	if opts.Limit > 0 && uint(len(out)) > opts.Limit {
		log.Printf("engine: batch truncated to %d of %d cookies", opts.Limit, len(out))
		out = out[:opts.Limit]
	}
	return out, nil
}
