// Copyright 2026 The Loom Authors
// SPDX-License-Identifier: Apache-2.0

// Package clock provides an injectable time source.
//
// Loom components that stamp records (terminal lines, key validation
// times), animate (viewport transitions) or poll (the key store's
// change watch) take a [Clock] instead of calling the time package
// directly. Production code passes [Real]; tests pass a [FakeClock]
// and move time explicitly with Advance or Set:
//
//	fake := clock.Fake(time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC))
//	config := graphview.DefaultConfig()
//	config.Clock = fake
//	view := graphview.New(config)
//	view.Click("mayor")
//	fake.Advance(500 * time.Millisecond)
//	view.Tick()
package clock
