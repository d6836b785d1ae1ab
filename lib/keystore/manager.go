// Copyright 2026 The Loom Authors
// SPDX-License-Identifier: Apache-2.0

package keystore

import (
	"context"
	"encoding/hex"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/zeebo/blake3"

	"github.com/loomworks/loom/lib/chatstream"
	"github.com/loomworks/loom/lib/clock"
)

// APIKeyPrefix is the required prefix of an Anthropic API key.
const APIKeyPrefix = "sk-ant-"

// Validator checks an API key against the relay.
// *chatstream.Client satisfies it.
type Validator interface {
	Validate(ctx context.Context, apiKey string) (chatstream.ValidateResponse, error)
}

// ValidationError is returned by ValidateAndSave when a key is
// rejected. Message is the user-facing text; Err is the underlying
// transport error, if any.
type ValidationError struct {
	Message string
	Err     error
}

func (validationError *ValidationError) Error() string {
	if validationError.Err != nil {
		return validationError.Message + ": " + validationError.Err.Error()
	}
	return validationError.Message
}

func (validationError *ValidationError) Unwrap() error { return validationError.Err }

// State is a snapshot of the key lifecycle.
type State struct {
	Configured      bool
	Validating      bool
	ValidationError string
	LastValidated   time.Time
	// Fingerprint identifies the configured key without revealing it.
	Fingerprint string
}

// ManagerConfig configures a KeyManager.
type ManagerConfig struct {
	Store     Store
	Validator Validator

	// Name is the store entry for the key. Defaults to APIKeyName.
	Name string

	// Clock stamps LastValidated. Defaults to the real clock.
	Clock clock.Clock

	// Logger defaults to a discarding logger.
	Logger *slog.Logger
}

// KeyManager owns the API key lifecycle.
type KeyManager struct {
	store     Store
	validator Validator
	name      string
	clock     clock.Clock
	logger    *slog.Logger

	mutex sync.Mutex
	state State

	stopWatching func()
	observers    observers
}

// NewKeyManager returns a manager over config.Store. A key already in
// the store counts as configured.
func NewKeyManager(config ManagerConfig) (*KeyManager, error) {
	if config.Store == nil {
		return nil, errors.New("keystore: manager requires a store")
	}
	if config.Name == "" {
		config.Name = APIKeyName
	}
	if config.Clock == nil {
		config.Clock = clock.Real()
	}
	if config.Logger == nil {
		config.Logger = slog.New(slog.DiscardHandler)
	}

	manager := &KeyManager{
		store:     config.Store,
		validator: config.Validator,
		name:      config.Name,
		clock:     config.Clock,
		logger:    config.Logger,
	}

	key, err := config.Store.Get(config.Name)
	switch {
	case err == nil && key != "":
		manager.state.Configured = true
		manager.state.Fingerprint = Fingerprint(key)
	case err != nil && !errors.Is(err, ErrNotFound):
		return nil, fmt.Errorf("keystore: loading %s: %w", config.Name, err)
	}

	manager.stopWatching = config.Store.Subscribe(manager.storeChanged)
	return manager, nil
}

// Close stops watching the store.
func (manager *KeyManager) Close() {
	manager.stopWatching()
}

// State returns the current lifecycle snapshot.
func (manager *KeyManager) State() State {
	manager.mutex.Lock()
	defer manager.mutex.Unlock()
	return manager.state
}

// HasKey reports whether a key is configured.
func (manager *KeyManager) HasKey() bool {
	return manager.State().Configured
}

// APIKey reads the key from the store. The boolean is false when no
// key is configured.
func (manager *KeyManager) APIKey() (string, bool) {
	key, err := manager.store.Get(manager.name)
	if err != nil {
		if !errors.Is(err, ErrNotFound) {
			manager.logger.Warn("reading api key failed", "error", err)
		}
		return "", false
	}
	return key, key != ""
}

// Subscribe registers callback for every change in whether a key is
// configured. The returned function unsubscribes.
func (manager *KeyManager) Subscribe(callback func(configured bool)) func() {
	return manager.observers.subscribe(func(change Change) {
		callback(!change.Deleted)
	})
}

// ValidateAndSave checks key locally, asks the validator, and stores
// the key only when it is accepted. Rejections are returned as
// *ValidationError and recorded in State.
func (manager *KeyManager) ValidateAndSave(ctx context.Context, key string) error {
	key = strings.TrimSpace(key)
	if key == "" {
		return manager.reject("API key cannot be empty", nil)
	}
	if !strings.HasPrefix(key, APIKeyPrefix) {
		return manager.reject("Invalid API key format. Should start with "+APIKeyPrefix, nil)
	}
	if manager.validator == nil {
		return errors.New("keystore: manager has no validator")
	}

	manager.mutex.Lock()
	manager.state.Validating = true
	manager.state.ValidationError = ""
	manager.mutex.Unlock()

	response, err := manager.validator.Validate(ctx, key)
	if err != nil {
		manager.logger.Warn("api key validation failed", "error", err)
		return manager.reject("Failed to validate API key. Please try again.", err)
	}
	if !response.Valid {
		message := response.Error
		if message == "" {
			message = "Invalid API key"
		}
		return manager.reject(message, nil)
	}

	if err := manager.store.Set(manager.name, key); err != nil {
		manager.mutex.Lock()
		manager.state.Validating = false
		manager.mutex.Unlock()
		return fmt.Errorf("keystore: saving api key: %w", err)
	}

	fingerprint := Fingerprint(key)
	manager.mutex.Lock()
	manager.state = State{
		Configured:    true,
		LastValidated: manager.clock.Now(),
		Fingerprint:   fingerprint,
	}
	manager.mutex.Unlock()
	manager.logger.Info("api key saved", "fingerprint", fingerprint)
	return nil
}

// Clear deletes the key and resets the lifecycle state.
func (manager *KeyManager) Clear() error {
	if err := manager.store.Delete(manager.name); err != nil {
		return fmt.Errorf("keystore: clearing api key: %w", err)
	}
	manager.mutex.Lock()
	manager.state = State{}
	manager.mutex.Unlock()
	manager.logger.Info("api key cleared")
	return nil
}

func (manager *KeyManager) reject(message string, cause error) error {
	manager.mutex.Lock()
	manager.state.Validating = false
	manager.state.ValidationError = message
	manager.mutex.Unlock()
	return &ValidationError{Message: message, Err: cause}
}

// storeChanged keeps Configured in step with writes made through any
// handle on the store, then forwards the change to subscribers.
func (manager *KeyManager) storeChanged(change Change) {
	if change.Name != manager.name {
		return
	}
	fingerprint := ""
	if !change.Deleted {
		key, err := manager.store.Get(manager.name)
		switch {
		case err == nil && key != "":
			fingerprint = Fingerprint(key)
		case err == nil || errors.Is(err, ErrNotFound):
			change.Deleted = true
		default:
			manager.logger.Warn("reading changed api key failed", "error", err)
		}
	}

	manager.mutex.Lock()
	manager.state.Configured = !change.Deleted
	if change.Deleted || fingerprint != "" {
		manager.state.Fingerprint = fingerprint
	}
	manager.mutex.Unlock()
	manager.observers.notify(change)
}

// Fingerprint returns the first 16 hex digits of the blake3 digest of
// key.
func Fingerprint(key string) string {
	sum := blake3.Sum256([]byte(key))
	return hex.EncodeToString(sum[:8])
}
