package resilience

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/carthesien/enrich/pkg/fn"
)

var errBackend = errors.New("backend down")

func failing(context.Context) error    { return errBackend }
func succeeding(context.Context) error { return nil }

// newTestBreaker returns a breaker with an adjustable clock.
func newTestBreaker(opts BreakerOpts) (*Breaker, *time.Time) {
	b := NewBreaker(opts)
	now := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	b.now = func() time.Time { return now }
	return b, &now
}

func TestBreaker_TripsAfterThreshold(t *testing.T) {
	b, _ := newTestBreaker(BreakerOpts{FailThreshold: 3, Timeout: time.Minute})
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		if err := b.Call(ctx, failing); !errors.Is(err, errBackend) {
			t.Fatalf("call %d: err = %v", i, err)
		}
	}
	if b.State() != StateOpen {
		t.Fatalf("state = %v, want open", b.State())
	}

	called := false
	err := b.Call(ctx, func(context.Context) error { called = true; return nil })
	if !errors.Is(err, ErrCircuitOpen) {
		t.Errorf("err = %v, want ErrCircuitOpen", err)
	}
	if called {
		t.Error("open breaker should not invoke the function")
	}
}

func TestBreaker_SuccessResetsFailureCount(t *testing.T) {
	b, _ := newTestBreaker(BreakerOpts{FailThreshold: 3, Timeout: time.Minute})
	ctx := context.Background()

	b.Call(ctx, failing)
	b.Call(ctx, failing)
	b.Call(ctx, succeeding)
	b.Call(ctx, failing)
	b.Call(ctx, failing)

	if b.State() != StateClosed {
		t.Errorf("state = %v, want closed", b.State())
	}
}

func TestBreaker_HalfOpenProbeCloses(t *testing.T) {
	b, now := newTestBreaker(BreakerOpts{FailThreshold: 1, Timeout: time.Minute})
	ctx := context.Background()

	b.Call(ctx, failing)
	if b.State() != StateOpen {
		t.Fatalf("state = %v, want open", b.State())
	}

	*now = now.Add(time.Minute)
	if b.State() != StateHalfOpen {
		t.Fatalf("state = %v, want half-open", b.State())
	}

	if err := b.Call(ctx, succeeding); err != nil {
		t.Fatalf("probe: %v", err)
	}
	if b.State() != StateClosed {
		t.Errorf("state after probe = %v, want closed", b.State())
	}
}

func TestBreaker_HalfOpenProbeFailureReopens(t *testing.T) {
	b, now := newTestBreaker(BreakerOpts{FailThreshold: 1, Timeout: time.Minute})
	ctx := context.Background()

	b.Call(ctx, failing)
	*now = now.Add(time.Minute)

	if err := b.Call(ctx, failing); !errors.Is(err, errBackend) {
		t.Fatalf("probe: %v", err)
	}
	if b.State() != StateOpen {
		t.Errorf("state = %v, want open after failed probe", b.State())
	}
	if err := b.Call(ctx, succeeding); !errors.Is(err, ErrCircuitOpen) {
		t.Errorf("err = %v, want ErrCircuitOpen", err)
	}
}

func TestBreaker_HalfOpenLimitsProbes(t *testing.T) {
	b, now := newTestBreaker(BreakerOpts{FailThreshold: 1, Timeout: time.Minute, HalfOpenMax: 1})
	ctx := context.Background()

	b.Call(ctx, failing)
	*now = now.Add(time.Minute)

	// Pin half-open without resolving the first probe.
	probeStarted := make(chan struct{})
	release := make(chan struct{})
	go b.Call(ctx, func(context.Context) error {
		close(probeStarted)
		<-release
		return nil
	})
	<-probeStarted

	if err := b.Call(ctx, succeeding); !errors.Is(err, ErrCircuitOpen) {
		t.Errorf("second probe err = %v, want ErrCircuitOpen", err)
	}
	close(release)
}

func TestCallResult_PropagatesValueAndTrips(t *testing.T) {
	b, _ := newTestBreaker(BreakerOpts{FailThreshold: 2, Timeout: time.Minute})
	ctx := context.Background()

	res := CallResult(b, ctx, func(context.Context) fn.Result[int] { return fn.Ok(42) })
	if v, err := res.Unwrap(); err != nil || v != 42 {
		t.Fatalf("got (%v, %v), want (42, nil)", v, err)
	}

	for i := 0; i < 2; i++ {
		CallResult(b, ctx, func(context.Context) fn.Result[int] { return fn.Err[int](errBackend) })
	}
	res = CallResult(b, ctx, func(context.Context) fn.Result[int] { return fn.Ok(1) })
	if _, err := res.Unwrap(); !errors.Is(err, ErrCircuitOpen) {
		t.Errorf("err = %v, want ErrCircuitOpen", err)
	}
}

func TestBreakerStage(t *testing.T) {
	b, _ := newTestBreaker(BreakerOpts{FailThreshold: 1, Timeout: time.Minute})
	double := fn.Stage[int, int](func(_ context.Context, n int) fn.Result[int] {
		if n < 0 {
			return fn.Err[int](errBackend)
		}
		return fn.Ok(n * 2)
	})
	stage := BreakerStage(b, double)
	ctx := context.Background()

	if v, err := stage(ctx, 3).Unwrap(); err != nil || v != 6 {
		t.Fatalf("got (%v, %v), want (6, nil)", v, err)
	}
	stage(ctx, -1)
	if _, err := stage(ctx, 3).Unwrap(); !errors.Is(err, ErrCircuitOpen) {
		t.Errorf("err = %v, want ErrCircuitOpen", err)
	}
}

func TestState_String(t *testing.T) {
	cases := map[State]string{
		StateClosed:   "closed",
		StateOpen:     "open",
		StateHalfOpen: "half-open",
		State(99):     "unknown",
	}
	for st, want := range cases {
		if got := st.String(); got != want {
			t.Errorf("State(%d).String() = %q, want %q", st, got, want)
		}
	}
}
