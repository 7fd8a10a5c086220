package health

import (
	"context"
	"maps"
	"time"
)

// Status is a component's health. Larger values are worse, so the overall
// status of several components is their maximum.
type Status int

const (
	StatusHealthy Status = iota
	// StatusDegraded means the component serves, but not at full quality:
	// the cache falls back to its local tier or misses too often.
	StatusDegraded
	StatusUnhealthy
)

var statusNames = [...]string{
	StatusHealthy:   "healthy",
	StatusDegraded:  "degraded",
	StatusUnhealthy: "unhealthy",
}

func (s Status) String() string {
	if s < 0 || int(s) >= len(statusNames) {
		return "unknown"
	}
	return statusNames[s]
}

// Worse returns the more severe of s and other.
func (s Status) Worse(other Status) Status {
	return max(s, other)
}

// Result is the outcome of one check run.
type Result struct {
	Status    Status
	Message   string
	Details   map[string]any
	Duration  time.Duration
	Timestamp time.Time
	Error     error
}

func newResult(status Status, message string, err error) Result {
	return Result{Status: status, Message: message, Error: err, Timestamp: time.Now()}
}

// Healthy reports a working component.
func Healthy(message string) Result { return newResult(StatusHealthy, message, nil) }

// Degraded reports a component that still serves requests.
func Degraded(message string) Result { return newResult(StatusDegraded, message, nil) }

// Unhealthy reports a failed component and the error behind it.
func Unhealthy(message string, err error) Result {
	return newResult(StatusUnhealthy, message, err)
}

// WithDetails returns r with details merged over any it already carries.
func (r Result) WithDetails(details map[string]any) Result {
	merged := maps.Clone(r.Details)
	if merged == nil {
		merged = make(map[string]any, len(details))
	}
	maps.Copy(merged, details)
	r.Details = merged
	return r
}

// Checker probes one component.
//
// Contract:
// - Concurrency: Check may be called concurrently.
// - Context: Check must return promptly once ctx is done.
type Checker interface {
	Name() string
	Check(ctx context.Context) Result
}

// CheckerFunc adapts a function to Checker.
type CheckerFunc struct {
	name string
	fn   func(context.Context) Result
}

// NewCheckerFunc names fn as a Checker.
func NewCheckerFunc(name string, fn func(context.Context) Result) *CheckerFunc {
	return &CheckerFunc{name: name, fn: fn}
}

func (f *CheckerFunc) Name() string                     { return f.name }
func (f *CheckerFunc) Check(ctx context.Context) Result { return f.fn(ctx) }
