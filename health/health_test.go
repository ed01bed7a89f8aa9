package health

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"
)

func TestRunAllHealthy(t *testing.T) {
	a := NewAggregator(time.Second)
	a.Add("redis", func(ctx context.Context) error { return nil })
	a.Add("db", func(ctx context.Context) error { return nil })

	m := a.Run(context.Background())
	if !m.Overall {
		t.Fatal("overall false with healthy probes")
	}
	if len(m.Services) != 2 {
		t.Fatalf("expected 2 statuses, got %d", len(m.Services))
	}
	for _, st := range m.Services {
		if !st.OK || st.Reason != "" {
			t.Fatalf("unexpected status %+v", st)
		}
	}
	if m.Timestamp.IsZero() {
		t.Fatal("timestamp not set")
	}
}

func TestRunOneFailureFlipsOverall(t *testing.T) {
	a := NewAggregator(time.Second)
	a.Add("redis", func(ctx context.Context) error { return nil })
	a.Add("db", func(ctx context.Context) error { return errors.New("connection refused") })

	m := a.Run(context.Background())
	if m.Overall {
		t.Fatal("overall true with a failing probe")
	}
	byName := map[string]Status{}
	for _, st := range m.Services {
		byName[st.Service] = st
	}
	if !byName["redis"].OK {
		t.Fatal("healthy probe reported unhealthy")
	}
	if byName["db"].OK || byName["db"].Reason != "connection refused" {
		t.Fatalf("unexpected db status %+v", byName["db"])
	}
}

func TestRunPreservesRegistrationOrder(t *testing.T) {
	a := NewAggregator(time.Second)
	for _, name := range []string{"redis", "db", "search"} {
		a.Add(name, func(ctx context.Context) error { return nil })
	}
	m := a.Run(context.Background())
	for i, want := range []string{"redis", "db", "search"} {
		if m.Services[i].Service != want {
			t.Fatalf("status %d is %q, want %q", i, m.Services[i].Service, want)
		}
	}
}

func TestHungProbeDoesNotBlockReport(t *testing.T) {
	a := NewAggregator(100 * time.Millisecond)
	a.Add("fast", func(ctx context.Context) error { return nil })
	// ignores its context entirely
	a.Add("hung", func(ctx context.Context) error {
		time.Sleep(5 * time.Second)
		return nil
	})

	start := time.Now()
	m := a.Run(context.Background())
	if elapsed := time.Since(start); elapsed > time.Second {
		t.Fatalf("report took %v with a 100ms timeout", elapsed)
	}
	if m.Overall {
		t.Fatal("overall true with a hung probe")
	}
	byName := map[string]Status{}
	for _, st := range m.Services {
		byName[st.Service] = st
	}
	if !byName["fast"].OK {
		t.Fatal("fast probe reported unhealthy")
	}
	if byName["hung"].OK || byName["hung"].Reason == "" {
		t.Fatalf("unexpected hung status %+v", byName["hung"])
	}
}

func TestPanickedProbeReportsUnhealthy(t *testing.T) {
	a := NewAggregator(time.Second)
	a.Add("bad", func(ctx context.Context) error { panic("boom") })

	m := a.Run(context.Background())
	if m.Overall {
		t.Fatal("overall true after probe panic")
	}
	if m.Services[0].OK || m.Services[0].Reason == "" {
		t.Fatalf("unexpected status %+v", m.Services[0])
	}
}

type staticPinger bool

func (p staticPinger) Ping(ctx context.Context) bool { return bool(p) }

func TestPingCheck(t *testing.T) {
	if err := PingCheck(staticPinger(true))(context.Background()); err != nil {
		t.Fatalf("healthy pinger errored: %v", err)
	}
	if err := PingCheck(staticPinger(false))(context.Background()); err == nil {
		t.Fatal("unhealthy pinger passed")
	}
}

func TestHTTPCheck(t *testing.T) {
	healthy := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))
	defer healthy.Close()
	broken := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	defer broken.Close()

	ctx := context.Background()
	if err := HTTPCheck(healthy.Client(), healthy.URL)(ctx); err != nil {
		t.Fatalf("healthy target errored: %v", err)
	}
	if err := HTTPCheck(broken.Client(), broken.URL)(ctx); err == nil {
		t.Fatal("503 target passed")
	}
	if err := HTTPCheck(http.DefaultClient, "http://127.0.0.1:1")(ctx); err == nil {
		t.Fatal("unreachable target passed")
	}
}
