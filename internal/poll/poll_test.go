package poll

import (
	"context"
	"errors"
	"testing"
	"time"
)

func TestRun_ReturnsImmediatelyOnFirstValidResult(t *testing.T) {
	d := New[string](Config{MaxAttempts: 5, BaseDelay: 30 * time.Second}, nil)
	var slept []time.Duration
	d.Sleep = func(_ context.Context, dur time.Duration) { slept = append(slept, dur) }

	calls := 0
	v, ok := d.Run(context.Background(),
		func(context.Context) (string, error) { calls++; return "ready", nil },
		func(s string) bool { return s == "ready" },
	)
	if !ok || v != "ready" {
		t.Fatalf("expected immediate success, got %q ok=%v", v, ok)
	}
	if calls != 1 {
		t.Fatalf("expected 1 fetch, got %d", calls)
	}
	if len(slept) != 0 {
		t.Fatalf("expected no delays, got %v", slept)
	}
}

func TestRun_ExhaustsBudgetWithExponentialDelays(t *testing.T) {
	d := New[string](Config{MaxAttempts: 5, BaseDelay: 30000 * time.Millisecond, MaxDelay: time.Hour}, nil)
	var slept []time.Duration
	d.Sleep = func(_ context.Context, dur time.Duration) { slept = append(slept, dur) }

	calls := 0
	v, ok := d.Run(context.Background(),
		func(context.Context) (string, error) { calls++; return "", ErrNotReady },
		func(string) bool { return true },
	)
	if ok || v != "" {
		t.Fatalf("expected not-found outcome, got %q ok=%v", v, ok)
	}
	if calls != 5 {
		t.Fatalf("expected exactly 5 fetches, got %d", calls)
	}

	want := []time.Duration{30000, 60000, 120000, 240000}
	if len(slept) != len(want) {
		t.Fatalf("expected %d delays (none after the last attempt), got %v", len(want), slept)
	}
	for i, w := range want {
		if slept[i] != w*time.Millisecond {
			t.Fatalf("delay %d: expected %v, got %v", i+1, w*time.Millisecond, slept[i])
		}
	}
}

func TestRun_PredicateRejectionRetriesLikeNotReady(t *testing.T) {
	d := New[string](Config{MaxAttempts: 3, BaseDelay: time.Second}, nil)
	d.Sleep = func(context.Context, time.Duration) {}

	calls := 0
	_, ok := d.Run(context.Background(),
		func(context.Context) (string, error) { calls++; return "stub", nil },
		func(s string) bool { return false },
	)
	if ok {
		t.Fatalf("expected exhaustion")
	}
	if calls != 3 {
		t.Fatalf("expected 3 fetches, got %d", calls)
	}
}

func TestRun_HardErrorsAreConsumedNotFatal(t *testing.T) {
	d := New[string](Config{MaxAttempts: 3, BaseDelay: time.Second}, nil)
	d.Sleep = func(context.Context, time.Duration) {}

	calls := 0
	v, ok := d.Run(context.Background(),
		func(context.Context) (string, error) {
			calls++
			if calls < 3 {
				return "", errors.New("upstream 500")
			}
			return "finally a long enough transcript to count as valid output", nil
		},
		func(s string) bool { return len(s) > 50 },
	)
	if !ok {
		t.Fatalf("expected eventual success, got ok=%v", ok)
	}
	if v == "" {
		t.Fatalf("expected value")
	}
	if calls != 3 {
		t.Fatalf("expected 3 fetches, got %d", calls)
	}
}

func TestDelay_ClampedByMaxDelay(t *testing.T) {
	d := New[string](Config{MaxAttempts: 10, BaseDelay: 30 * time.Second, MaxDelay: 2 * time.Minute}, nil)

	cases := map[int]time.Duration{
		1: 30 * time.Second,
		2: 60 * time.Second,
		3: 2 * time.Minute,
		4: 2 * time.Minute,
		9: 2 * time.Minute,
	}
	for attempt, want := range cases {
		if got := d.Delay(attempt); got != want {
			t.Fatalf("Delay(%d) = %v, want %v", attempt, got, want)
		}
	}
}

func TestRun_ZeroAttemptsReturnsAbsent(t *testing.T) {
	d := New[string](Config{MaxAttempts: 0, BaseDelay: time.Second}, nil)
	d.Sleep = func(context.Context, time.Duration) {}

	_, ok := d.Run(context.Background(),
		func(context.Context) (string, error) { t.Fatalf("fetch must not run"); return "", nil },
		func(string) bool { return true },
	)
	if ok {
		t.Fatalf("expected absent")
	}
}
