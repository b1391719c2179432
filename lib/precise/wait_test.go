// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package precise

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/bureau-foundation/tempo/lib/clock"
)

// newFakeEngine returns an engine on a fresh FakeClock with the sleep
// log cleared of calibration sleeps. With the default options each
// clock read costs 1µs and the resolution calibrates to 3µs.
func newFakeEngine(t *testing.T, fakeOptions clock.FakeOptions, options ...Option) (*Engine, *clock.FakeClock) {
	t.Helper()
	fake := clock.Fake(fakeOptions)
	engine, err := New(fake, options...)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	fake.ResetSleeps()
	return engine, fake
}

// countSleeps tallies sleep requests by duration.
func countSleeps(sleeps []time.Duration) map[time.Duration]int {
	counts := make(map[time.Duration]int)
	for _, sleep := range sleeps {
		counts[sleep]++
	}
	return counts
}

func TestWaitDescendsLadder(t *testing.T) {
	engine, fake := newFakeEngine(t, clock.FakeOptions{ReadCost: time.Microsecond})

	elapsed := engine.Measure(1200)

	sleeps := fake.Sleeps()
	for index := 1; index < len(sleeps); index++ {
		if sleeps[index] > sleeps[index-1] {
			t.Fatalf("sleep %d (%v) is longer than sleep %d (%v)", index, sleeps[index], index-1, sleeps[index-1])
		}
	}

	// 1200 → 700 with one 500ms chunk, 700 → 100 with twelve 50ms
	// chunks, 100 → 10 with eighteen 5ms chunks, 10 → 1 with eighteen
	// 500µs chunks. Clock reads shave a few microseconds off each
	// threshold, never enough to cross one.
	counts := countSleeps(sleeps)
	expected := map[time.Duration]int{
		500 * time.Millisecond: 1,
		50 * time.Millisecond:  12,
		5 * time.Millisecond:   18,
		500 * time.Microsecond: 18,
	}
	for chunk, want := range expected {
		if counts[chunk] != want {
			t.Errorf("%v sleeps = %d, want %d", chunk, counts[chunk], want)
		}
	}
	if counts[probeSleep] == 0 {
		t.Error("no probe sleeps below one millisecond")
	}
	if len(counts) != len(expected)+1 {
		t.Errorf("unexpected sleep sizes: %v", counts)
	}

	if elapsed < 1200*time.Millisecond {
		t.Fatalf("Wait(1200) returned after %v", elapsed)
	}
	// The spin ends within one read of the deadline; Measure's own
	// closing read adds one more.
	if elapsed > 1200*time.Millisecond+3*time.Microsecond {
		t.Fatalf("Wait(1200) overshot to %v", elapsed)
	}
}

func TestWaitBelowResolutionOnlySpins(t *testing.T) {
	engine, fake := newFakeEngine(t, clock.FakeOptions{
		ReadCost:      time.Microsecond,
		SleepOverhead: func(time.Duration) time.Duration { return 100 * time.Microsecond },
	})
	// Trials measure 102µs; resolution is 153µs.
	if engine.WaitResolution() < 0.15 {
		t.Fatalf("WaitResolution() = %g, want ≈ 0.153", engine.WaitResolution())
	}

	elapsed := engine.Measure(0.1)

	if count := fake.SleepCount(); count != 0 {
		t.Fatalf("Wait below resolution slept %d times: %v", count, fake.Sleeps())
	}
	if elapsed < 100*time.Microsecond {
		t.Fatalf("Wait(0.1) returned after %v", elapsed)
	}
}

func TestWaitNonPositiveReturnsImmediately(t *testing.T) {
	engine, fake := newFakeEngine(t, clock.FakeOptions{ReadCost: time.Microsecond})
	for _, ms := range []float64{0, -1, -1000} {
		if elapsed := engine.Measure(ms); elapsed > time.Microsecond {
			t.Errorf("Wait(%g) took %v", ms, elapsed)
		}
	}
	if count := fake.SleepCount(); count != 0 {
		t.Fatalf("non-positive waits slept %d times", count)
	}
}

func TestWaitCompensatesForOversleeping(t *testing.T) {
	// A scheduler that oversleeps every request by 30% plus 20µs.
	oversleep := func(requested time.Duration) time.Duration {
		return requested*3/10 + 20*time.Microsecond
	}
	engine, _ := newFakeEngine(t, clock.FakeOptions{ReadCost: time.Microsecond, SleepOverhead: oversleep})
	resolution := time.Duration(engine.WaitResolution() * float64(time.Millisecond))

	for _, ms := range []float64{0.5, 2, 12, 50, 250, 1500} {
		requested := time.Duration(ms * float64(time.Millisecond))
		elapsed := engine.Measure(ms)
		if elapsed < requested {
			t.Errorf("Wait(%g) returned early after %v", ms, elapsed)
		}
		if elapsed > requested+resolution {
			t.Errorf("Wait(%g) took %v, more than %v + resolution %v", ms, elapsed, requested, resolution)
		}
	}
}

func TestWaitCustomLadder(t *testing.T) {
	engine, fake := newFakeEngine(t,
		clock.FakeOptions{ReadCost: time.Microsecond},
		WithLadder(Ladder{{Above: 20 * time.Millisecond, Chunk: 10 * time.Millisecond}}),
	)

	engine.Wait(45)

	sleeps := fake.Sleeps()
	if len(sleeps) < 4 {
		t.Fatalf("Sleeps() = %v, want three 10ms chunks then probes", sleeps)
	}
	for index := range 3 {
		if sleeps[index] != 10*time.Millisecond {
			t.Errorf("sleep %d = %v, want 10ms", index, sleeps[index])
		}
	}
	for index, sleep := range sleeps[3:] {
		if sleep != probeSleep {
			t.Fatalf("sleep %d = %v, want probe sleeps after the ladder", index+3, sleep)
		}
	}
}

func TestWaitFromStopAbandonsWait(t *testing.T) {
	engine, fake := newFakeEngine(t, clock.FakeOptions{ReadCost: time.Microsecond})

	polls := 0
	stop := func() bool {
		polls++
		return polls > 2
	}
	if engine.waitFrom(engine.clock.Ticks(), 10_000, stop) {
		t.Fatal("waitFrom reported completion despite stop")
	}
	if count := fake.SleepCount(); count != 2 {
		t.Fatalf("waitFrom slept %d times before stopping, want 2", count)
	}
}

func TestWaitContext(t *testing.T) {
	engine, fake := newFakeEngine(t, clock.FakeOptions{ReadCost: time.Microsecond})

	start := fake.Ticks()
	if err := engine.WaitContext(context.Background(), 12); err != nil {
		t.Fatalf("WaitContext: %v", err)
	}
	if elapsed := clock.Since(fake, start); elapsed < 12*time.Millisecond {
		t.Fatalf("WaitContext(12) returned after %v", elapsed)
	}

	fake.ResetSleeps()
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	err := engine.WaitContext(ctx, 60_000)
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("WaitContext on a cancelled context = %v, want context.Canceled", err)
	}
	if count := fake.SleepCount(); count != 0 {
		t.Fatalf("cancelled WaitContext slept %d times", count)
	}
}

func TestWaitContextStopsBetweenSleeps(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Cancel from inside the first sleep of the wait under test.
	var armed atomic.Bool
	engine, fake := newFakeEngine(t, clock.FakeOptions{
		ReadCost: time.Microsecond,
		SleepOverhead: func(time.Duration) time.Duration {
			if armed.Load() {
				cancel()
			}
			return 0
		},
	})
	armed.Store(true)

	err := engine.WaitContext(ctx, float64(time.Hour/time.Millisecond))
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("WaitContext = %v, want context.Canceled", err)
	}
	if count := fake.SleepCount(); count != 1 {
		t.Fatalf("WaitContext slept %d times after cancellation, want 1", count)
	}
}

func TestWaitDuration(t *testing.T) {
	engine, fake := newFakeEngine(t, clock.FakeOptions{ReadCost: time.Microsecond})
	start := fake.Ticks()
	engine.WaitDuration(7 * time.Millisecond)
	if elapsed := clock.Since(fake, start); elapsed < 7*time.Millisecond {
		t.Fatalf("WaitDuration(7ms) returned after %v", elapsed)
	}
}

func TestLadderValidate(t *testing.T) {
	tests := []struct {
		name    string
		ladder  Ladder
		wantErr bool
	}{
		{"default", DefaultLadder(), false},
		{"empty", Ladder{}, false},
		{"zero threshold", Ladder{{Above: 0, Chunk: 0}}, true},
		{"chunk above threshold", Ladder{{Above: time.Millisecond, Chunk: 2 * time.Millisecond}}, true},
		{"not decreasing", Ladder{
			{Above: 10 * time.Millisecond, Chunk: time.Millisecond},
			{Above: 10 * time.Millisecond, Chunk: time.Millisecond},
		}, true},
	}
	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			err := test.ladder.Validate()
			if (err != nil) != test.wantErr {
				t.Errorf("Validate() = %v, wantErr %v", err, test.wantErr)
			}
		})
	}
}

func TestNewRejectsInvalidLadder(t *testing.T) {
	fake := clock.Fake(clock.FakeOptions{})
	_, err := New(fake, WithLadder(Ladder{{Above: time.Millisecond, Chunk: time.Second}}))
	if err == nil {
		t.Fatal("New accepted an invalid ladder")
	}
}

func TestNewRejectsNilClock(t *testing.T) {
	if _, err := New(nil); err == nil {
		t.Fatal("New accepted a nil clock")
	}
}

func TestEngineAccessorsReturnCopies(t *testing.T) {
	engine, _ := newFakeEngine(t, clock.FakeOptions{})
	ladder := engine.Ladder()
	ladder[0].Chunk = time.Hour
	if engine.Ladder()[0].Chunk == time.Hour {
		t.Error("mutating Ladder() changed the engine")
	}
	calibration := engine.Calibration()
	calibration.TrialsMS[0] = 1e9
	if engine.Calibration().TrialsMS[0] == 1e9 {
		t.Error("mutating Calibration().TrialsMS changed the engine")
	}
}

func TestWaitRealClock(t *testing.T) {
	if testing.Short() {
		t.Skip("real-time wait in short mode")
	}
	engine := Default()
	resolution := time.Duration(engine.WaitResolution() * float64(time.Millisecond))
	// A shared CI machine may deschedule the test between the spin
	// ending and the closing clock read.
	const schedulingAllowance = 20 * time.Millisecond

	for _, ms := range []float64{engine.WaitResolution() / 2, 0.25, 1.5, 12, 60} {
		requested := time.Duration(ms * float64(time.Millisecond))
		elapsed := engine.Measure(ms)
		if elapsed < requested {
			t.Errorf("Wait(%g) returned early after %v", ms, elapsed)
		}
		if elapsed > requested+resolution+schedulingAllowance {
			t.Errorf("Wait(%g) took %v (resolution %v)", ms, elapsed, resolution)
		}
	}
}
