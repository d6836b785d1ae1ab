// Copyright 2026 The Loom Authors
// SPDX-License-Identifier: Apache-2.0

package clock

import (
	"sync"
	"time"
)

// Clock abstracts the current time and periodic ticks.
type Clock interface {
	// Now returns the current time.
	Now() time.Time

	// NewTicker returns a Ticker that delivers ticks on its C channel
	// every d. Panics if d <= 0, matching time.NewTicker.
	NewTicker(d time.Duration) *Ticker
}

// Ticker delivers periodic ticks on C, a channel of capacity 1. Ticks
// are dropped when the consumer falls behind. Call Stop to release it.
type Ticker struct {
	C <-chan time.Time

	stopFunc func()
}

// Stop turns off the ticker. Stop does not close C.
func (ticker *Ticker) Stop() { ticker.stopFunc() }

// Real returns a Clock backed by the time package.
func Real() Clock {
	return realClock{}
}

type realClock struct{}

func (realClock) Now() time.Time { return time.Now() }

func (realClock) NewTicker(d time.Duration) *Ticker {
	ticker := time.NewTicker(d)
	return &Ticker{C: ticker.C, stopFunc: ticker.Stop}
}

// Fake returns a FakeClock frozen at initial. Time moves only when
// Advance or Set is called.
//
// FakeClock is safe for concurrent use.
func Fake(initial time.Time) *FakeClock {
	fake := &FakeClock{current: initial}
	fake.tickersChanged = sync.NewCond(&fake.mutex)
	return fake
}

// FakeClock is a deterministic Clock for tests.
type FakeClock struct {
	mutex          sync.Mutex
	current        time.Time
	tickers        []*fakeTicker
	tickersChanged *sync.Cond
}

type fakeTicker struct {
	deadline time.Time
	interval time.Duration
	channel  chan time.Time
	stopped  bool
}

// Now returns the fake current time.
func (fake *FakeClock) Now() time.Time {
	fake.mutex.Lock()
	defer fake.mutex.Unlock()
	return fake.current
}

// NewTicker returns a Ticker that fires when Advance crosses each
// multiple of d from the current fake time.
func (fake *FakeClock) NewTicker(d time.Duration) *Ticker {
	if d <= 0 {
		panic("clock: non-positive interval for NewTicker")
	}
	fake.mutex.Lock()
	defer fake.mutex.Unlock()

	ticker := &fakeTicker{
		deadline: fake.current.Add(d),
		interval: d,
		channel:  make(chan time.Time, 1),
	}
	fake.tickers = append(fake.tickers, ticker)
	fake.tickersChanged.Broadcast()

	return &Ticker{
		C: ticker.channel,
		stopFunc: func() {
			fake.mutex.Lock()
			defer fake.mutex.Unlock()
			ticker.stopped = true
			fake.tickersChanged.Broadcast()
		},
	}
}

// Advance moves the clock forward by duration and fires every ticker
// whose deadline falls within the new time, once per elapsed interval
// (extra ticks are dropped). Negative durations are ignored so fake
// time never runs backwards.
func (fake *FakeClock) Advance(duration time.Duration) {
	if duration <= 0 {
		return
	}
	fake.mutex.Lock()
	defer fake.mutex.Unlock()
	fake.current = fake.current.Add(duration)

	remaining := fake.tickers[:0]
	for _, ticker := range fake.tickers {
		if ticker.stopped {
			continue
		}
		for !ticker.deadline.After(fake.current) {
			select {
			case ticker.channel <- fake.current:
			default:
			}
			ticker.deadline = ticker.deadline.Add(ticker.interval)
		}
		remaining = append(remaining, ticker)
	}
	fake.tickers = remaining
}

// Set jumps the clock to an absolute time without firing tickers.
func (fake *FakeClock) Set(now time.Time) {
	fake.mutex.Lock()
	defer fake.mutex.Unlock()
	fake.current = now
}

// WaitForTickers blocks until at least n tickers are running. It
// closes the race between a goroutine creating a ticker and the test
// advancing the clock.
func (fake *FakeClock) WaitForTickers(n int) {
	fake.mutex.Lock()
	defer fake.mutex.Unlock()
	for fake.runningLocked() < n {
		fake.tickersChanged.Wait()
	}
}

// Tickers returns the number of running tickers.
func (fake *FakeClock) Tickers() int {
	fake.mutex.Lock()
	defer fake.mutex.Unlock()
	return fake.runningLocked()
}

func (fake *FakeClock) runningLocked() int {
	count := 0
	for _, ticker := range fake.tickers {
		if !ticker.stopped {
			count++
		}
	}
	return count
}
