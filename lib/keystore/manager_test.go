// Copyright 2026 The Loom Authors
// SPDX-License-Identifier: Apache-2.0

package keystore

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/loomworks/loom/lib/chatstream"
	"github.com/loomworks/loom/lib/clock"
	"github.com/loomworks/loom/lib/testutil"
)

type fakeValidator struct {
	response chatstream.ValidateResponse
	err      error
	calls    []string
}

func (validator *fakeValidator) Validate(_ context.Context, apiKey string) (chatstream.ValidateResponse, error) {
	validator.calls = append(validator.calls, apiKey)
	return validator.response, validator.err
}

func newTestManager(t *testing.T, validator *fakeValidator) (*KeyManager, *MemoryStore, *clock.FakeClock) {
	t.Helper()
	store := NewMemoryStore()
	fakeClock := clock.Fake(time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC))
	manager, err := NewKeyManager(ManagerConfig{Store: store, Validator: validator, Clock: fakeClock})
	if err != nil {
		t.Fatalf("NewKeyManager: %v", err)
	}
	t.Cleanup(manager.Close)
	return manager, store, fakeClock
}

func TestValidateAndSaveRejectsLocally(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		key     string
		message string
	}{
		{"empty", "", "API key cannot be empty"},
		{"whitespace", "   \t", "API key cannot be empty"},
		{"wrong prefix", "sk-proj-abc", "Invalid API key format. Should start with sk-ant-"},
	}
	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			t.Parallel()
			validator := &fakeValidator{response: chatstream.ValidateResponse{Valid: true}}
			manager, _, _ := newTestManager(t, validator)

			err := manager.ValidateAndSave(context.Background(), test.key)
			var validationError *ValidationError
			if !errors.As(err, &validationError) {
				t.Fatalf("error = %v, want *ValidationError", err)
			}
			if validationError.Message != test.message {
				t.Errorf("Message = %q, want %q", validationError.Message, test.message)
			}
			if len(validator.calls) != 0 {
				t.Errorf("validator called %d times, want 0", len(validator.calls))
			}
			if state := manager.State(); state.Configured || state.ValidationError != test.message {
				t.Errorf("State = %+v", state)
			}
		})
	}
}

func TestValidateAndSaveStoresAcceptedKey(t *testing.T) {
	t.Parallel()

	validator := &fakeValidator{response: chatstream.ValidateResponse{Valid: true}}
	manager, store, fakeClock := newTestManager(t, validator)

	var notified []bool
	manager.Subscribe(func(configured bool) { notified = append(notified, configured) })

	if err := manager.ValidateAndSave(context.Background(), "  sk-ant-good  "); err != nil {
		t.Fatalf("ValidateAndSave: %v", err)
	}
	if len(validator.calls) != 1 || validator.calls[0] != "sk-ant-good" {
		t.Errorf("validator calls = %q, want [sk-ant-good]", validator.calls)
	}
	stored, err := store.Get(APIKeyName)
	if err != nil || stored != "sk-ant-good" {
		t.Errorf("stored = %q, %v", stored, err)
	}

	state := manager.State()
	if !state.Configured || state.Validating || state.ValidationError != "" {
		t.Errorf("State = %+v", state)
	}
	if !state.LastValidated.Equal(fakeClock.Now()) {
		t.Errorf("LastValidated = %v, want %v", state.LastValidated, fakeClock.Now())
	}
	if state.Fingerprint != Fingerprint("sk-ant-good") {
		t.Errorf("Fingerprint = %q", state.Fingerprint)
	}
	if len(notified) != 1 || !notified[0] {
		t.Errorf("notified = %v, want [true]", notified)
	}

	key, ok := manager.APIKey()
	if !ok || key != "sk-ant-good" {
		t.Errorf("APIKey = %q, %v", key, ok)
	}
}

func TestValidateAndSaveRemoteRejection(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name      string
		validator *fakeValidator
		message   string
		wrapsErr  bool
	}{
		{
			name:      "server message",
			validator: &fakeValidator{response: chatstream.ValidateResponse{Valid: false, Error: "Invalid API key"}},
			message:   "Invalid API key",
		},
		{
			name:      "no message",
			validator: &fakeValidator{response: chatstream.ValidateResponse{Valid: false}},
			message:   "Invalid API key",
		},
		{
			name:      "custom message",
			validator: &fakeValidator{response: chatstream.ValidateResponse{Error: "rate limited"}},
			message:   "rate limited",
		},
		{
			name:      "transport failure",
			validator: &fakeValidator{err: errors.New("connection refused")},
			message:   "Failed to validate API key. Please try again.",
			wrapsErr:  true,
		},
	}
	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			t.Parallel()
			manager, store, _ := newTestManager(t, test.validator)

			err := manager.ValidateAndSave(context.Background(), "sk-ant-candidate")
			var validationError *ValidationError
			if !errors.As(err, &validationError) {
				t.Fatalf("error = %v, want *ValidationError", err)
			}
			if validationError.Message != test.message {
				t.Errorf("Message = %q, want %q", validationError.Message, test.message)
			}
			if (validationError.Err != nil) != test.wrapsErr {
				t.Errorf("Err = %v, wrapsErr = %v", validationError.Err, test.wrapsErr)
			}
			if _, err := store.Get(APIKeyName); !errors.Is(err, ErrNotFound) {
				t.Errorf("rejected key was stored (err = %v)", err)
			}
			if state := manager.State(); state.Validating || state.Configured {
				t.Errorf("State = %+v", state)
			}
		})
	}
}

func TestClearResetsState(t *testing.T) {
	t.Parallel()

	manager, store, _ := newTestManager(t, &fakeValidator{response: chatstream.ValidateResponse{Valid: true}})
	if err := manager.ValidateAndSave(context.Background(), "sk-ant-x"); err != nil {
		t.Fatal(err)
	}

	var notified []bool
	manager.Subscribe(func(configured bool) { notified = append(notified, configured) })

	if err := manager.Clear(); err != nil {
		t.Fatalf("Clear: %v", err)
	}
	if state := manager.State(); state != (State{}) {
		t.Errorf("State after Clear = %+v, want zero", state)
	}
	if manager.HasKey() {
		t.Error("HasKey after Clear = true")
	}
	if _, ok := manager.APIKey(); ok {
		t.Error("APIKey after Clear reported a key")
	}
	if _, err := store.Get(APIKeyName); !errors.Is(err, ErrNotFound) {
		t.Errorf("store still holds key (err = %v)", err)
	}
	if len(notified) != 1 || notified[0] {
		t.Errorf("notified = %v, want [false]", notified)
	}
}

func TestManagerPicksUpExistingAndExternalKeys(t *testing.T) {
	t.Parallel()

	store := NewMemoryStore()
	if err := store.Set(APIKeyName, "sk-ant-existing"); err != nil {
		t.Fatal(err)
	}
	manager, err := NewKeyManager(ManagerConfig{Store: store})
	if err != nil {
		t.Fatalf("NewKeyManager: %v", err)
	}
	defer manager.Close()

	if !manager.HasKey() {
		t.Fatal("existing key not reported as configured")
	}

	var notified []bool
	manager.Subscribe(func(configured bool) { notified = append(notified, configured) })

	// Writes to other entries are ignored.
	if err := store.Set("other", "value"); err != nil {
		t.Fatal(err)
	}
	if err := store.Delete(APIKeyName); err != nil {
		t.Fatal(err)
	}
	if manager.HasKey() {
		t.Error("HasKey after external delete = true")
	}
	if len(notified) != 1 || notified[0] {
		t.Errorf("notified = %v, want [false]", notified)
	}
}

func TestManagerSeesKeySavedByAnotherProcess(t *testing.T) {
	directory := t.TempDir()
	fake := clock.Fake(time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC))
	dashboardStore := openWatchedStore(t, directory, fake)
	dashboard, err := NewKeyManager(ManagerConfig{Store: dashboardStore, Clock: fake})
	if err != nil {
		t.Fatalf("NewKeyManager: %v", err)
	}
	defer dashboard.Close()

	notified := make(chan bool, 4)
	dashboard.Subscribe(func(configured bool) { notified <- configured })
	fake.WaitForTickers(1)

	commandStore, err := OpenFileStore(directory)
	if err != nil {
		t.Fatalf("OpenFileStore: %v", err)
	}
	defer commandStore.Close()
	command, err := NewKeyManager(ManagerConfig{
		Store:     commandStore,
		Validator: &fakeValidator{response: chatstream.ValidateResponse{Valid: true}},
	})
	if err != nil {
		t.Fatalf("NewKeyManager command: %v", err)
	}

	if err := command.ValidateAndSave(context.Background(), "sk-ant-elsewhere"); err != nil {
		t.Fatalf("ValidateAndSave: %v", err)
	}
	fake.Advance(WatchInterval)
	if configured := testutil.RequireReceive(t, notified, 5*time.Second, "key saved elsewhere"); !configured {
		t.Error("notified configured = false after an external save")
	}
	state := dashboard.State()
	if !state.Configured || state.Fingerprint != Fingerprint("sk-ant-elsewhere") {
		t.Errorf("State = %+v, want configured with the saved key's fingerprint", state)
	}

	if err := command.Clear(); err != nil {
		t.Fatalf("Clear: %v", err)
	}
	command.Close()
	fake.Advance(WatchInterval)
	if configured := testutil.RequireReceive(t, notified, 5*time.Second, "key cleared elsewhere"); configured {
		t.Error("notified configured = true after an external clear")
	}
	if dashboard.HasKey() || dashboard.State().Fingerprint != "" {
		t.Errorf("State after external clear = %+v", dashboard.State())
	}
}

func TestFingerprintIsStableAndShort(t *testing.T) {
	t.Parallel()

	first := Fingerprint("sk-ant-abc")
	if len(first) != 16 {
		t.Errorf("len(Fingerprint) = %d, want 16", len(first))
	}
	if first != Fingerprint("sk-ant-abc") {
		t.Error("Fingerprint not deterministic")
	}
	if first == Fingerprint("sk-ant-abd") {
		t.Error("distinct keys share a fingerprint")
	}
}
