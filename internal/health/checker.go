// Package health runs periodic, cached liveness checks against the
// durable and volatile stores, adapted from the teacher's health package
// (health/checker.go) generalized from an arbitrary named-check registry
// into the two checks this process actually needs.
package health

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/whisper2/server/internal/logger"
)

// Status is the outcome of a single check.
type Status string

const (
	StatusHealthy   Status = "healthy"
	StatusDegraded  Status = "degraded"
	StatusUnhealthy Status = "unhealthy"
)

// CheckResult is one check's most recent outcome.
type CheckResult struct {
	Name      string        `json:"name"`
	Status    Status        `json:"status"`
	Message   string        `json:"message,omitempty"`
	Timestamp time.Time     `json:"timestamp"`
	Duration  time.Duration `json:"duration"`
}

// Check is a single named health probe.
type Check func(ctx context.Context) error

// Checker runs registered checks on demand, with per-check timeout and
// a short result cache so a liveness probe hitting every few seconds
// doesn't hammer the backing stores.
type Checker struct {
	mu       sync.RWMutex
	checks   map[string]Check
	timeout  time.Duration
	cacheTTL time.Duration
	cache    map[string]cachedResult
	log      logger.Logger
}

type cachedResult struct {
	result    CheckResult
	expiresAt time.Time
}

func NewChecker(timeout time.Duration, log logger.Logger) *Checker {
	if timeout == 0 {
		timeout = 5 * time.Second
	}
	return &Checker{
		checks:   make(map[string]Check),
		timeout:  timeout,
		cacheTTL: 10 * time.Second,
		cache:    make(map[string]cachedResult),
		log:      log,
	}
}

// Register adds a named check.
func (c *Checker) Register(name string, check Check) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.checks[name] = check
}

// Check runs (or returns the cached result of) one named check.
func (c *Checker) Check(ctx context.Context, name string) (CheckResult, error) {
	c.mu.RLock()
	check, ok := c.checks[name]
	cached, hasCached := c.cache[name]
	c.mu.RUnlock()
	if !ok {
		return CheckResult{}, fmt.Errorf("health check not registered: %s", name)
	}
	if hasCached && time.Now().Before(cached.expiresAt) {
		return cached.result, nil
	}

	checkCtx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	start := time.Now()
	err := check(checkCtx)
	result := CheckResult{Name: name, Timestamp: time.Now(), Duration: time.Since(start)}
	if err != nil {
		result.Status = StatusUnhealthy
		result.Message = err.Error()
		if c.log != nil {
			c.log.Warn("health check failed", logger.String("name", name), logger.Error(err))
		}
	} else {
		result.Status = StatusHealthy
	}

	c.mu.Lock()
	c.cache[name] = cachedResult{result: result, expiresAt: time.Now().Add(c.cacheTTL)}
	c.mu.Unlock()

	return result, nil
}

// CheckAll runs every registered check and reports the worst status.
func (c *Checker) CheckAll(ctx context.Context) (Status, []CheckResult) {
	c.mu.RLock()
	names := make([]string, 0, len(c.checks))
	for name := range c.checks {
		names = append(names, name)
	}
	c.mu.RUnlock()

	results := make([]CheckResult, 0, len(names))
	overall := StatusHealthy
	for _, name := range names {
		result, err := c.Check(ctx, name)
		if err != nil {
			result = CheckResult{Name: name, Status: StatusUnhealthy, Message: err.Error(), Timestamp: time.Now()}
		}
		if result.Status == StatusUnhealthy {
			overall = StatusUnhealthy
		}
		results = append(results, result)
	}
	return overall, results
}
