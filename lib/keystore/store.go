// Copyright 2026 The Loom Authors
// SPDX-License-Identifier: Apache-2.0

package keystore

import (
	"errors"
	"sync"
)

// APIKeyName is the store entry holding the Anthropic API key.
const APIKeyName = "loom_anthropic_api_key"

// ErrNotFound is returned by Get for a name with no value.
var ErrNotFound = errors.New("keystore: not found")

// Change describes one write to a store.
type Change struct {
	Name    string
	Deleted bool
}

// Store is a named-value store with change notification.
type Store interface {
	// Get returns the value for name, or ErrNotFound.
	Get(name string) (string, error)

	// Set stores value under name.
	Set(name, value string) error

	// Delete removes name. Deleting a missing name is not an error.
	Delete(name string) error

	// Subscribe registers callback for every successful Set and every
	// Delete that removed a value. The returned function unsubscribes.
	Subscribe(callback func(Change)) (unsubscribe func())
}

// observers is the subscription list shared by store implementations.
type observers struct {
	mutex     sync.Mutex
	next      int
	callbacks map[int]func(Change)
}

func (list *observers) subscribe(callback func(Change)) func() {
	list.mutex.Lock()
	defer list.mutex.Unlock()
	if list.callbacks == nil {
		list.callbacks = make(map[int]func(Change))
	}
	id := list.next
	list.next++
	list.callbacks[id] = callback
	return func() {
		list.mutex.Lock()
		defer list.mutex.Unlock()
		delete(list.callbacks, id)
	}
}

// notify calls every subscriber. It must be called without the
// store's own lock held, since subscribers may read the store.
func (list *observers) notify(change Change) {
	list.mutex.Lock()
	callbacks := make([]func(Change), 0, len(list.callbacks))
	for _, callback := range list.callbacks {
		callbacks = append(callbacks, callback)
	}
	list.mutex.Unlock()

	for _, callback := range callbacks {
		callback(change)
	}
}

// MemoryStore is an in-process Store.
type MemoryStore struct {
	mutex     sync.Mutex
	values    map[string]string
	observers observers
}

// NewMemoryStore returns an empty MemoryStore.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{values: make(map[string]string)}
}

// Get implements Store.
func (store *MemoryStore) Get(name string) (string, error) {
	store.mutex.Lock()
	defer store.mutex.Unlock()
	value, ok := store.values[name]
	if !ok {
		return "", ErrNotFound
	}
	return value, nil
}

// Set implements Store.
func (store *MemoryStore) Set(name, value string) error {
	store.mutex.Lock()
	store.values[name] = value
	store.mutex.Unlock()
	store.observers.notify(Change{Name: name})
	return nil
}

// Delete implements Store.
func (store *MemoryStore) Delete(name string) error {
	store.mutex.Lock()
	_, existed := store.values[name]
	delete(store.values, name)
	store.mutex.Unlock()
	if existed {
		store.observers.notify(Change{Name: name, Deleted: true})
	}
	return nil
}

// Subscribe implements Store.
func (store *MemoryStore) Subscribe(callback func(Change)) func() {
	return store.observers.subscribe(callback)
}
