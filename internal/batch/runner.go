package batch

import (
	"context"
	"errors"
	"math/rand/v2"
	"sync"
	"time"

	"golang.org/x/time/rate"

	"github.com/askmongo/askmongo/internal/translate"
)

type FailurePolicy int

const (
	FailurePolicyPartialOutput FailurePolicy = iota
	FailurePolicyFailFast
)

type Options struct {
	Workers        int
	MaxRetries     int
	RequestTimeout time.Duration

	// RateLimitRPS is a global limit across all workers. Set to <=0 to disable.
	RateLimitRPS float64

	FailurePolicy FailurePolicy

	// BackoffInitial is the initial sleep before retrying a transient failure.
	BackoffInitial time.Duration
	// BackoffMax caps exponential backoff.
	BackoffMax time.Duration
	// BackoffJitterFrac applies +/- jitter to backoff sleeps (0.2 = +/-20%).
	BackoffJitterFrac float64
}

func (o Options) withDefaults() Options {
	if o.Workers <= 0 {
		o.Workers = 4
	}
	if o.MaxRetries < 0 {
		o.MaxRetries = 0
	}
	if o.RequestTimeout <= 0 {
		o.RequestTimeout = 60 * time.Second
	}
	if o.BackoffInitial <= 0 {
		o.BackoffInitial = 200 * time.Millisecond
	}
	if o.BackoffMax <= 0 {
		o.BackoffMax = 2 * time.Second
	}
	if o.BackoffJitterFrac <= 0 {
		o.BackoffJitterFrac = 0.2
	}
	return o
}

// AskFunc runs one question end to end and returns the matching documents.
type AskFunc func(ctx context.Context, question string) ([]map[string]any, error)

// Output is the outcome for one question, in input order.
type Output struct {
	Question Question
	Docs     []map[string]any
	Err      error
}

// Run executes all questions through ask with bounded workers, a global rate
// limit, and retry-with-backoff for transient translation failures. With
// FailurePolicyPartialOutput, per-question failures land in Output.Err and do
// not abort the run.
func Run(ctx context.Context, questions []Question, ask AskFunc, opts Options) ([]Output, error) {
	opts = opts.withDefaults()

	runCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	var limiter *rate.Limiter
	if opts.RateLimitRPS > 0 {
		limiter = rate.NewLimiter(rate.Limit(opts.RateLimitRPS), 1)
	}

	out := make([]Output, len(questions))

	type job struct {
		idx int
		q   Question
	}
	jobs := make(chan job)

	var mu sync.Mutex
	var firstErr error
	fail := func(err error) {
		if err == nil {
			return
		}
		mu.Lock()
		if firstErr == nil {
			firstErr = err
			cancel()
		}
		mu.Unlock()
	}

	var wg sync.WaitGroup
	for i := 0; i < opts.Workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := range jobs {
				if runCtx.Err() != nil {
					return
				}
				docs, err := askWithRetry(runCtx, j.q.Question, ask, limiter, opts)
				out[j.idx] = Output{Question: j.q, Docs: docs, Err: err}
				if err != nil && opts.FailurePolicy == FailurePolicyFailFast {
					fail(err)
					return
				}
			}
		}()
	}

	go func() {
		defer close(jobs)
		for i, q := range questions {
			select {
			case jobs <- job{idx: i, q: q}:
			case <-runCtx.Done():
				return
			}
		}
	}()

	wg.Wait()

	mu.Lock()
	err := firstErr
	mu.Unlock()
	if err != nil {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return out, nil
}

func askWithRetry(ctx context.Context, question string, ask AskFunc, limiter *rate.Limiter, opts Options) ([]map[string]any, error) {
	var lastErr error
	for attempt := 0; attempt <= opts.MaxRetries; attempt++ {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		if limiter != nil {
			if err := limiter.Wait(ctx); err != nil {
				return nil, err
			}
		}

		reqCtx, cancel := context.WithTimeout(ctx, opts.RequestTimeout)
		docs, err := ask(reqCtx, question)
		cancel()
		if err == nil {
			return docs, nil
		}
		if errors.Is(err, context.Canceled) && ctx.Err() != nil {
			return nil, ctx.Err()
		}
		lastErr = err
		if !isTransient(err) || attempt == opts.MaxRetries {
			return nil, err
		}

		t := time.NewTimer(backoffSleep(opts.BackoffInitial, opts.BackoffMax, opts.BackoffJitterFrac, attempt))
		select {
		case <-t.C:
		case <-ctx.Done():
			t.Stop()
			return nil, ctx.Err()
		}
	}
	return nil, lastErr
}

func isTransient(err error) bool {
	if err == nil {
		return false
	}
	var te *translate.TransientError
	if errors.As(err, &te) {
		return true
	}
	return errors.Is(err, context.DeadlineExceeded)
}

func backoffSleep(initial, max time.Duration, jitterFrac float64, attempt int) time.Duration {
	sleep := initial
	for i := 0; i < attempt && sleep < max; i++ {
		sleep *= 2
		if sleep > max {
			sleep = max
			break
		}
	}
	if jitterFrac <= 0 {
		return sleep
	}
	// Apply +/- jitterFrac.
	j := 1 + (rand.Float64()*2-1)*jitterFrac
	return time.Duration(float64(sleep) * j)
}
