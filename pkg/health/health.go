// Package health runs a set of named checks once and reports which of them
// fail.
//
// Checks run concurrently, each under its own timeout. Results come back in
// registration order so that reports are stable.
package health

import (
	"context"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"
)

// CheckFunc is a health check function. It should return nil if the checked
// component is healthy, or an error describing the problem.
type CheckFunc func(ctx context.Context) error

type checkConfig struct {
	name    string
	timeout time.Duration
	check   CheckFunc
}

// Result is the outcome of one check.
type Result struct {
	Name     string
	Err      error
	Duration time.Duration
}

// OK reports whether the check passed.
func (r Result) OK() bool {
	return r.Err == nil
}

// Checker holds the registered checks.
type Checker struct {
	mu     sync.Mutex
	checks []*checkConfig
}

// New creates an empty Checker.
func New() *Checker {
	return &Checker{}
}

// Add registers a check. A zero timeout means the check is bounded only by
// the context passed to Run.
func (c *Checker) Add(name string, timeout time.Duration, check CheckFunc) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.checks = append(c.checks, &checkConfig{
		name:    name,
		timeout: timeout,
		check:   check,
	})
}

// Run executes every registered check and returns the results in
// registration order.
func (c *Checker) Run(ctx context.Context) []Result {
	c.mu.Lock()
	checks := make([]*checkConfig, len(c.checks))
	copy(checks, c.checks)
	c.mu.Unlock()

	results := make([]Result, len(checks))
	var g errgroup.Group
	for i, cc := range checks {
		g.Go(func() error {
			results[i] = cc.run(ctx)
			return nil
		})
	}
	_ = g.Wait()
	return results
}

func (c *checkConfig) run(ctx context.Context) Result {
	if c.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.timeout)
		defer cancel()
	}

	start := time.Now()
	err := c.check(ctx)
	return Result{Name: c.name, Err: err, Duration: time.Since(start)}
}

// Failures returns a map of check name to error message for every failed
// result.
func Failures(results []Result) map[string]string {
	failures := make(map[string]string)
	for _, r := range results {
		if !r.OK() {
			failures[r.Name] = r.Err.Error()
		}
	}
	return failures
}
