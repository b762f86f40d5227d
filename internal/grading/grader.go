package grading

import (
	"context"
	"errors"
	"fmt"
	"log"
	"time"

	"github.com/felixgeelhaar/fortify/retry"
)

const (
	DefaultTimeout        = 60 * time.Second
	defaultRetryDelay     = time.Second
	defaultCleanupTimeout = 10 * time.Second
)

// Grader runs one grading call per Grade invocation: upload, completion,
// validation and cleanup. It holds no per-call state and is safe for
// concurrent use.
type Grader struct {
	provider       Provider
	timeout        time.Duration
	maxRetries     int
	retryDelay     time.Duration
	cleanupTimeout time.Duration
}

type Option func(*Grader)

// WithTimeout bounds the whole upload + completion sequence.
func WithTimeout(d time.Duration) Option {
	return func(g *Grader) {
		if d > 0 {
			g.timeout = d
		}
	}
}

// WithRetries retries transient completion failures (network errors, 429,
// 5xx) up to n extra times with exponential backoff starting at delay.
func WithRetries(n int, delay time.Duration) Option {
	return func(g *Grader) {
		g.maxRetries = max(0, n)
		if delay > 0 {
			g.retryDelay = delay
		}
	}
}

func WithCleanupTimeout(d time.Duration) Option {
	return func(g *Grader) {
		if d > 0 {
			g.cleanupTimeout = d
		}
	}
}

func NewGrader(provider Provider, opts ...Option) *Grader {
	g := &Grader{
		provider:       provider,
		timeout:        DefaultTimeout,
		retryDelay:     defaultRetryDelay,
		cleanupTimeout: defaultCleanupTimeout,
	}
	for _, o := range opts {
		o(g)
	}
	return g
}

func (g *Grader) ProviderName() string {
	return g.provider.Name()
}

// Grade grades sub against rubric. Invalid input is rejected before any
// upstream call. Any file uploaded to the provider is deleted before Grade
// returns, including when the call times out.
func (g *Grader) Grade(ctx context.Context, rubric []RubricItem, sub Submission) (*GradeResult, error) {
	req, err := BuildRequest(rubric)
	if err != nil {
		return nil, err
	}
	if len(sub.Data) == 0 {
		return nil, ValidationError("`file` is required")
	}

	callCtx, cancel := context.WithTimeout(ctx, g.timeout)
	defer cancel()

	handle, err := g.provider.Upload(callCtx, sub)
	if handle != nil {
		defer g.cleanup(ctx, handle)
	}
	if err != nil {
		return nil, g.classify(callCtx, err)
	}

	raw, err := g.complete(callCtx, req, sub, handle)
	if err != nil {
		return nil, g.classify(callCtx, err)
	}

	result, err := Parse(rubric, raw)
	if err != nil {
		log.Printf("grading: unusable reply from %s: %v", g.provider.Name(), err)
		return nil, err
	}
	return result, nil
}

func (g *Grader) complete(ctx context.Context, req Request, sub Submission, handle *FileHandle) (string, error) {
	if g.maxRetries == 0 {
		return g.provider.Complete(ctx, req, sub, handle)
	}

	r := retry.New[string](retry.Config{
		MaxAttempts:   g.maxRetries + 1,
		InitialDelay:  g.retryDelay,
		BackoffPolicy: retry.BackoffExponential,
		IsRetryable:   IsRetryable,
		OnRetry: func(attempt int, err error) {
			log.Printf("grading: retry %d/%d against %s after: %v", attempt-1, g.maxRetries, g.provider.Name(), err)
		},
	})
	return r.Do(ctx, func(ctx context.Context) (string, error) {
		return g.provider.Complete(ctx, req, sub, handle)
	})
}

// classify turns an expired call deadline into a timeout error.
func (g *Grader) classify(ctx context.Context, err error) error {
	if errors.Is(ctx.Err(), context.DeadlineExceeded) {
		return NewError(ErrTimeout, fmt.Sprintf("Grading timed out after %s", g.timeout), err)
	}
	return err
}

// cleanup deletes handle on a context detached from the caller's
// cancellation, so abandoned calls still release their upload.
func (g *Grader) cleanup(parent context.Context, handle *FileHandle) {
	ctx, cancel := context.WithTimeout(context.WithoutCancel(parent), g.cleanupTimeout)
	defer cancel()
	if err := g.provider.Cleanup(ctx, handle); err != nil {
		log.Printf("grading: file cleanup error for %s on %s: %v", handle.ID, g.provider.Name(), err)
	}
}
