// Copyright 2026 The Loom Authors
// SPDX-License-Identifier: Apache-2.0

package keystore

import (
	"bytes"
	"cmp"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"slices"
	"sync"
	"time"

	"filippo.io/age"
	"github.com/zeebo/blake3"

	"github.com/loomworks/loom/lib/clock"
	"github.com/loomworks/loom/lib/codec"
	"github.com/loomworks/loom/lib/secret"
)

const (
	identityFileName = "identity.age"
	valuesFileName   = "keystore.cbor"
	storeVersion     = 1

	// WatchInterval is how often a subscribed FileStore re-reads
	// keystore.cbor for writes made by other handles.
	WatchInterval = time.Second
)

// storeFile is the on-disk layout of keystore.cbor.
type storeFile struct {
	Version int              `cbor:"1,keyasint"`
	Entries map[string]entry `cbor:"2,keyasint"`
}

type entry struct {
	// Ciphertext is the age-encrypted value.
	Ciphertext []byte `cbor:"1,keyasint"`
	// Updated is the write time in Unix milliseconds.
	Updated int64 `cbor:"2,keyasint"`
}

// FileStore is a Store backed by an age-sealed CBOR file.
//
// While it has subscribers, a FileStore watches the file and reports
// entries that another handle (usually another process) set or
// deleted.
type FileStore struct {
	directory string
	identity  *secret.Buffer
	recipient string
	clock     clock.Clock
	interval  time.Duration

	// mutex guards the file and seen.
	mutex sync.Mutex
	// seen is the digest of every entry's ciphertext as of the last
	// write through this handle or the last watch pass.
	seen map[string][32]byte

	observers observers

	watchMutex  sync.Mutex
	subscribers int
	stopWatch   chan struct{}
}

// OpenFileStore opens the store in directory, creating the directory
// and a new sealing identity on first use.
func OpenFileStore(directory string) (*FileStore, error) {
	if err := os.MkdirAll(directory, 0o700); err != nil {
		return nil, fmt.Errorf("keystore: creating %s: %w", directory, err)
	}

	identity, err := loadOrCreateIdentity(filepath.Join(directory, identityFileName))
	if err != nil {
		return nil, err
	}
	parsed, err := age.ParseX25519Identity(identity.String())
	if err != nil {
		identity.Close()
		return nil, fmt.Errorf("keystore: parsing identity: %w", err)
	}

	return &FileStore{
		directory: directory,
		identity:  identity,
		recipient: parsed.Recipient().String(),
		clock:     clock.Real(),
		interval:  WatchInterval,
	}, nil
}

func loadOrCreateIdentity(path string) (*secret.Buffer, error) {
	data, err := os.ReadFile(path)
	if err == nil {
		buffer, err := secret.NewFromBytes(bytes.TrimSpace(data))
		secret.Zero(data)
		if err != nil {
			return nil, fmt.Errorf("keystore: loading identity: %w", err)
		}
		return buffer, nil
	}
	if !errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("keystore: reading identity: %w", err)
	}

	generated, err := age.GenerateX25519Identity()
	if err != nil {
		return nil, fmt.Errorf("keystore: generating identity: %w", err)
	}
	encoded := []byte(generated.String() + "\n")
	if err := writeFileAtomic(path, encoded); err != nil {
		return nil, fmt.Errorf("keystore: writing identity: %w", err)
	}
	buffer, err := secret.NewFromBytes(bytes.TrimSpace(encoded))
	if err != nil {
		return nil, fmt.Errorf("keystore: protecting identity: %w", err)
	}
	return buffer, nil
}

// Recipient returns the store's public age recipient.
func (store *FileStore) Recipient() string { return store.recipient }

// Close stops the change watch and releases the in-memory identity.
func (store *FileStore) Close() error {
	store.watchMutex.Lock()
	if store.stopWatch != nil {
		close(store.stopWatch)
		store.stopWatch = nil
	}
	store.subscribers = 0
	store.watchMutex.Unlock()

	store.mutex.Lock()
	store.seen = nil
	store.mutex.Unlock()
	return store.identity.Close()
}

// Get implements Store. The file is re-read on every call so values
// written by another process are seen.
func (store *FileStore) Get(name string) (string, error) {
	store.mutex.Lock()
	defer store.mutex.Unlock()

	contents, err := store.read()
	if err != nil {
		return "", err
	}
	stored, ok := contents.Entries[name]
	if !ok {
		return "", ErrNotFound
	}
	return store.open(stored.Ciphertext)
}

// Set implements Store.
func (store *FileStore) Set(name, value string) error {
	sealed, err := store.seal(value)
	if err != nil {
		return err
	}

	store.mutex.Lock()
	var pending []Change
	contents, err := store.read()
	if err == nil {
		pending = store.pendingChanges(contents, name)
		contents.Entries[name] = entry{Ciphertext: sealed, Updated: store.clock.Now().UnixMilli()}
		err = store.write(contents)
	}
	if err == nil {
		store.markSeen(contents)
	}
	store.mutex.Unlock()
	if err != nil {
		return err
	}

	for _, change := range pending {
		store.observers.notify(change)
	}
	store.observers.notify(Change{Name: name})
	return nil
}

// Delete implements Store.
func (store *FileStore) Delete(name string) error {
	store.mutex.Lock()
	var pending []Change
	contents, err := store.read()
	_, existed := contents.Entries[name]
	if err == nil && existed {
		pending = store.pendingChanges(contents, name)
		delete(contents.Entries, name)
		err = store.write(contents)
		if err == nil {
			store.markSeen(contents)
		}
	}
	store.mutex.Unlock()
	if err != nil {
		return err
	}

	for _, change := range pending {
		store.observers.notify(change)
	}
	if existed {
		store.observers.notify(Change{Name: name, Deleted: true})
	}
	return nil
}

// Subscribe implements Store. The first subscriber starts the change
// watch and the last one to unsubscribe stops it.
func (store *FileStore) Subscribe(callback func(Change)) func() {
	unsubscribe := store.observers.subscribe(callback)
	store.startWatch()
	var once sync.Once
	return func() {
		once.Do(func() {
			unsubscribe()
			store.endWatch()
		})
	}
}

func (store *FileStore) startWatch() {
	store.watchMutex.Lock()
	defer store.watchMutex.Unlock()
	store.subscribers++
	if store.subscribers > 1 {
		return
	}

	store.mutex.Lock()
	store.seen = make(map[string][32]byte)
	if contents, err := store.read(); err == nil {
		store.seen = digestEntries(contents)
	}
	store.mutex.Unlock()

	store.stopWatch = make(chan struct{})
	go store.watch(store.clock.NewTicker(store.interval), store.stopWatch)
}

func (store *FileStore) endWatch() {
	store.watchMutex.Lock()
	defer store.watchMutex.Unlock()
	if store.subscribers == 0 {
		return
	}
	store.subscribers--
	if store.subscribers == 0 && store.stopWatch != nil {
		close(store.stopWatch)
		store.stopWatch = nil
		store.mutex.Lock()
		store.seen = nil
		store.mutex.Unlock()
	}
}

func (store *FileStore) watch(ticker *clock.Ticker, stop <-chan struct{}) {
	defer ticker.Stop()
	for {
		select {
		case <-stop:
			return
		case <-ticker.C:
			store.poll()
		}
	}
}

// poll re-reads the file and notifies subscribers of every entry that
// changed since the last pass. An unreadable file is skipped until the
// next tick.
func (store *FileStore) poll() {
	store.mutex.Lock()
	if store.seen == nil {
		store.mutex.Unlock()
		return
	}
	contents, err := store.read()
	if err != nil {
		store.mutex.Unlock()
		return
	}
	current := digestEntries(contents)
	changes := diffEntries(store.seen, current)
	store.seen = current
	store.mutex.Unlock()

	for _, change := range changes {
		store.observers.notify(change)
	}
}

// pendingChanges returns the changes other handles made since the last
// watch pass, leaving out name, which the caller is about to write.
// It is empty when the watch is not running. Callers hold mutex.
func (store *FileStore) pendingChanges(contents storeFile, name string) []Change {
	if store.seen == nil {
		return nil
	}
	changes := diffEntries(store.seen, digestEntries(contents))
	return slices.DeleteFunc(changes, func(change Change) bool { return change.Name == name })
}

// markSeen records contents as the last seen state while the watch is
// running. Callers hold mutex.
func (store *FileStore) markSeen(contents storeFile) {
	if store.seen != nil {
		store.seen = digestEntries(contents)
	}
}

func digestEntries(contents storeFile) map[string][32]byte {
	digests := make(map[string][32]byte, len(contents.Entries))
	for name, stored := range contents.Entries {
		digests[name] = blake3.Sum256(stored.Ciphertext)
	}
	return digests
}

// diffEntries returns the changes from before to after, sorted by
// name.
func diffEntries(before, after map[string][32]byte) []Change {
	var changes []Change
	for name, digest := range after {
		if previous, ok := before[name]; !ok || previous != digest {
			changes = append(changes, Change{Name: name})
		}
	}
	for name := range before {
		if _, ok := after[name]; !ok {
			changes = append(changes, Change{Name: name, Deleted: true})
		}
	}
	slices.SortFunc(changes, func(a, b Change) int { return cmp.Compare(a.Name, b.Name) })
	return changes
}

func (store *FileStore) read() (storeFile, error) {
	contents := storeFile{Version: storeVersion, Entries: make(map[string]entry)}
	data, err := os.ReadFile(filepath.Join(store.directory, valuesFileName))
	if errors.Is(err, fs.ErrNotExist) {
		return contents, nil
	}
	if err != nil {
		return contents, fmt.Errorf("keystore: reading values: %w", err)
	}
	if err := codec.Unmarshal(data, &contents); err != nil {
		return contents, fmt.Errorf("keystore: decoding values: %w", err)
	}
	if contents.Version != storeVersion {
		return contents, fmt.Errorf("keystore: unsupported store version %d", contents.Version)
	}
	if contents.Entries == nil {
		contents.Entries = make(map[string]entry)
	}
	return contents, nil
}

func (store *FileStore) write(contents storeFile) error {
	data, err := codec.Marshal(contents)
	if err != nil {
		return fmt.Errorf("keystore: encoding values: %w", err)
	}
	if err := writeFileAtomic(filepath.Join(store.directory, valuesFileName), data); err != nil {
		return fmt.Errorf("keystore: writing values: %w", err)
	}
	return nil
}

func (store *FileStore) seal(value string) ([]byte, error) {
	recipient, err := age.ParseX25519Recipient(store.recipient)
	if err != nil {
		return nil, fmt.Errorf("keystore: parsing recipient: %w", err)
	}
	var ciphertext bytes.Buffer
	writer, err := age.Encrypt(&ciphertext, recipient)
	if err != nil {
		return nil, fmt.Errorf("keystore: creating encryptor: %w", err)
	}
	if _, err := io.WriteString(writer, value); err != nil {
		return nil, fmt.Errorf("keystore: sealing value: %w", err)
	}
	if err := writer.Close(); err != nil {
		return nil, fmt.Errorf("keystore: finalizing seal: %w", err)
	}
	return ciphertext.Bytes(), nil
}

func (store *FileStore) open(ciphertext []byte) (string, error) {
	identity, err := age.ParseX25519Identity(store.identity.String())
	if err != nil {
		return "", fmt.Errorf("keystore: parsing identity: %w", err)
	}
	reader, err := age.Decrypt(bytes.NewReader(ciphertext), identity)
	if err != nil {
		return "", fmt.Errorf("keystore: unsealing value: %w", err)
	}
	plaintext, err := io.ReadAll(reader)
	if err != nil {
		return "", fmt.Errorf("keystore: reading unsealed value: %w", err)
	}
	value := string(plaintext)
	secret.Zero(plaintext)
	return value, nil
}

// writeFileAtomic writes data to a temporary file in the same
// directory and renames it over path, with mode 0600.
func writeFileAtomic(path string, data []byte) error {
	temporary, err := os.CreateTemp(filepath.Dir(path), "."+filepath.Base(path)+".*")
	if err != nil {
		return err
	}
	temporaryPath := temporary.Name()
	defer os.Remove(temporaryPath)

	if err := temporary.Chmod(0o600); err != nil {
		temporary.Close()
		return err
	}
	if _, err := temporary.Write(data); err != nil {
		temporary.Close()
		return err
	}
	if err := temporary.Sync(); err != nil {
		temporary.Close()
		return err
	}
	if err := temporary.Close(); err != nil {
		return err
	}
	return os.Rename(temporaryPath, path)
}
