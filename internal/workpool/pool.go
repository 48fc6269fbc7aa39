// Package workpool runs a sequence-numbered function over a stream of
// items with a fixed worker pool, generalizing the teacher's
// annotate.ParallelAnnotate/OrderedCollect pair (which was specialized to
// *vcf.Variant annotation) to any item/result type via generics. The
// read-caller stage (SPEC_FULL.md C7) uses it for candidate fan-out; the
// variant-caller stage fans out its sub-ranges with errgroup instead.
package workpool

import (
	"runtime"
	"sync"
	"time"
)

// Item is one unit of sequenced work submitted to a pool.
type Item[T any] struct {
	Seq   int
	Value T
}

// Result is the outcome of processing one Item.
type Result[T, R any] struct {
	Seq   int
	Value T
	Out   R
	Err   error
}

// Run processes items using a pool of workers, invoking fn for each item.
// Results are delivered to the returned channel in arrival order (not
// sequence order); use OrderedCollect to restore sequence order. If
// workers is 0, runtime.NumCPU() is used.
func Run[T, R any](items <-chan Item[T], workers int, fn func(T) (R, error)) <-chan Result[T, R] {
	if workers <= 0 {
		workers = runtime.NumCPU()
	}

	results := make(chan Result[T, R], 2*workers)

	var wg sync.WaitGroup
	wg.Add(workers)

	for range workers {
		go func() {
			defer wg.Done()
			for item := range items {
				out, err := fn(item.Value)
				results <- Result[T, R]{Seq: item.Seq, Value: item.Value, Out: out, Err: err}
			}
		}()
	}

	go func() {
		wg.Wait()
		close(results)
	}()

	return results
}

// OrderedCollect calls fn for each result in sequence-number order,
// buffering out-of-order arrivals until the next expected sequence number
// becomes available. Blocks until the results channel is closed. If fn
// returns an error, the remaining results are drained (to unblock any
// still-running workers) and the error is returned.
func OrderedCollect[T, R any](results <-chan Result[T, R], fn func(Result[T, R]) error) error {
	return OrderedCollectWithProgress(results, 0, nil, fn)
}

// OrderedCollectWithProgress is like OrderedCollect but periodically calls
// progress with the number of items processed so far. If interval is 0 or
// progress is nil, no progress reporting happens.
func OrderedCollectWithProgress[T, R any](results <-chan Result[T, R], interval time.Duration, progress func(int), fn func(Result[T, R]) error) error {
	pending := make(map[int]Result[T, R])
	nextSeq := 0

	var ticker *time.Ticker
	var tickC <-chan time.Time
	if interval > 0 && progress != nil {
		ticker = time.NewTicker(interval)
		tickC = ticker.C
		defer ticker.Stop()
	}

	for r := range results {
		pending[r.Seq] = r

		for {
			rr, ok := pending[nextSeq]
			if !ok {
				break
			}
			delete(pending, nextSeq)
			nextSeq++
			if err := fn(rr); err != nil {
				for range results {
				}
				return err
			}
		}

		if tickC != nil {
			select {
			case <-tickC:
				progress(nextSeq)
			default:
			}
		}
	}

	return nil
}
