// Copyright 2026 The Loom Authors
// SPDX-License-Identifier: Apache-2.0

package secret

import (
	"crypto/subtle"
	"fmt"
	"sync"

	"golang.org/x/sys/unix"
)

// Buffer is protected memory holding one secret. It must not be copied.
// After Close every accessor panics.
type Buffer struct {
	mutex  sync.Mutex
	data   []byte
	closed bool
}

// New allocates a zero-filled protected buffer of size bytes.
func New(size int) (*Buffer, error) {
	if size <= 0 {
		return nil, fmt.Errorf("secret: buffer size must be positive, got %d", size)
	}

	data, err := unix.Mmap(-1, 0, size, unix.PROT_READ|unix.PROT_WRITE, unix.MAP_PRIVATE|unix.MAP_ANONYMOUS)
	if err != nil {
		return nil, fmt.Errorf("secret: mmap failed: %w", err)
	}
	if err := unix.Mlock(data); err != nil {
		unix.Munmap(data)
		return nil, fmt.Errorf("secret: mlock failed: %w", err)
	}
	if err := unix.Madvise(data, unix.MADV_DONTDUMP); err != nil {
		unix.Munlock(data)
		unix.Munmap(data)
		return nil, fmt.Errorf("secret: madvise(MADV_DONTDUMP) failed: %w", err)
	}
	return &Buffer{data: data}, nil
}

// NewFromBytes copies source into a protected buffer and zeroes
// source.
func NewFromBytes(source []byte) (*Buffer, error) {
	if len(source) == 0 {
		return nil, fmt.Errorf("secret: cannot create buffer from empty source")
	}
	buffer, err := New(len(source))
	if err != nil {
		Zero(source)
		return nil, err
	}
	copy(buffer.data, source)
	Zero(source)
	return buffer, nil
}

// NewFromString copies value into a protected buffer. The string
// itself cannot be zeroed; use this only at input boundaries.
func NewFromString(value string) (*Buffer, error) {
	return NewFromBytes([]byte(value))
}

// Bytes returns the secret. The slice points into the protected region
// and is invalid after Close.
func (buffer *Buffer) Bytes() []byte {
	buffer.mutex.Lock()
	defer buffer.mutex.Unlock()
	if buffer.closed {
		panic("secret: read from closed buffer")
	}
	return buffer.data
}

// String returns a heap copy of the secret.
func (buffer *Buffer) String() string {
	buffer.mutex.Lock()
	defer buffer.mutex.Unlock()
	if buffer.closed {
		panic("secret: read from closed buffer")
	}
	return string(buffer.data)
}

// Len returns the secret's length in bytes.
func (buffer *Buffer) Len() int {
	buffer.mutex.Lock()
	defer buffer.mutex.Unlock()
	return len(buffer.data)
}

// Equal reports whether the buffer holds exactly value, in constant
// time.
func (buffer *Buffer) Equal(value []byte) bool {
	buffer.mutex.Lock()
	defer buffer.mutex.Unlock()
	if buffer.closed {
		panic("secret: read from closed buffer")
	}
	return subtle.ConstantTimeCompare(buffer.data, value) == 1
}

// Close zeroes, unlocks and unmaps the buffer. It is idempotent.
func (buffer *Buffer) Close() error {
	buffer.mutex.Lock()
	defer buffer.mutex.Unlock()
	if buffer.closed {
		return nil
	}
	buffer.closed = true
	Zero(buffer.data)

	var firstError error
	if err := unix.Munlock(buffer.data); err != nil {
		firstError = fmt.Errorf("secret: munlock failed: %w", err)
	}
	if err := unix.Munmap(buffer.data); err != nil && firstError == nil {
		firstError = fmt.Errorf("secret: munmap failed: %w", err)
	}
	buffer.data = nil
	return firstError
}

// Zero overwrites data with zeros.
func Zero(data []byte) {
	for index := range data {
		data[index] = 0
	}
}
