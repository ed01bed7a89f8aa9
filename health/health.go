// Package health aggregates liveness across the event bus and dependent
// services. Probes run concurrently, each under its own bounded timeout,
// and every failure mode converts to a failure record so one dead
// dependency never blocks reporting on the rest.
package health

import (
	"context"
	"fmt"
	"net/http"
	"sync"
	"time"
)

// Status is one dependency's probe outcome.
type Status struct {
	Service   string `json:"service"`
	OK        bool   `json:"ok"`
	LatencyMs int64  `json:"latencyMs"`
	Reason    string `json:"reason,omitempty"`
}

// Matrix is the aggregated report.
type Matrix struct {
	Services  []Status  `json:"services"`
	Overall   bool      `json:"overall"`
	Timestamp time.Time `json:"timestamp"`
}

// Check probes one dependency. A nil return means healthy.
type Check func(ctx context.Context) error

type probe struct {
	name  string
	check Check
}

// Aggregator fans a health request out to all registered probes.
type Aggregator struct {
	timeout time.Duration
	probes  []probe
}

// DefaultTimeout bounds each individual probe.
const DefaultTimeout = 5 * time.Second

// NewAggregator creates an aggregator; timeout <= 0 uses DefaultTimeout.
func NewAggregator(timeout time.Duration) *Aggregator {
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	return &Aggregator{timeout: timeout}
}

// Add registers a named probe. Not safe to call after Run has started.
func (a *Aggregator) Add(name string, check Check) {
	a.probes = append(a.probes, probe{name: name, check: check})
}

// Run probes every dependency concurrently and waits for all of them to
// settle. It returns within roughly the probe timeout regardless of how the
// dependencies behave.
func (a *Aggregator) Run(ctx context.Context) Matrix {
	results := make([]Status, len(a.probes))
	var wg sync.WaitGroup
	for i, p := range a.probes {
		wg.Add(1)
		go func(i int, p probe) {
			defer wg.Done()
			results[i] = a.runProbe(ctx, p)
		}(i, p)
	}
	wg.Wait()

	overall := true
	for _, r := range results {
		if !r.OK {
			overall = false
			break
		}
	}
	return Matrix{Services: results, Overall: overall, Timestamp: time.Now().UTC()}
}

func (a *Aggregator) runProbe(ctx context.Context, p probe) (st Status) {
	st.Service = p.name
	start := time.Now()

	probeCtx, cancel := context.WithTimeout(ctx, a.timeout)
	defer cancel()

	// The check runs in its own goroutine so a dependency that ignores its
	// context cannot hold the report past the timeout.
	done := make(chan error, 1)
	go func() {
		defer func() {
			if r := recover(); r != nil {
				done <- fmt.Errorf("probe panic: %v", r)
			}
		}()
		done <- p.check(probeCtx)
	}()

	select {
	case err := <-done:
		st.LatencyMs = time.Since(start).Milliseconds()
		if err != nil {
			st.Reason = err.Error()
			return st
		}
		st.OK = true
		return st
	case <-probeCtx.Done():
		st.LatencyMs = time.Since(start).Milliseconds()
		st.Reason = probeCtx.Err().Error()
		return st
	}
}

// Pinger matches the event bus liveness probe.
type Pinger interface {
	Ping(ctx context.Context) bool
}

// PingCheck adapts a Pinger into a Check.
func PingCheck(p Pinger) Check {
	return func(ctx context.Context) error {
		if !p.Ping(ctx) {
			return fmt.Errorf("ping failed")
		}
		return nil
	}
}

// ErrCheck adapts an error-returning prober, e.g. the database.
func ErrCheck(probe func(ctx context.Context) error) Check {
	return Check(probe)
}

// HTTPCheck probes a dependent service's health URL. Any transport error or
// non-2xx status counts as unhealthy.
func HTTPCheck(client *http.Client, url string) Check {
	return func(ctx context.Context) error {
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
		if err != nil {
			return err
		}
		resp, err := client.Do(req)
		if err != nil {
			return err
		}
		defer resp.Body.Close()
		if resp.StatusCode < 200 || resp.StatusCode > 299 {
			return fmt.Errorf("unexpected status %d", resp.StatusCode)
		}
		return nil
	}
}
