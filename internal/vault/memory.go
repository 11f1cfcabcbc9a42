package vault

import (
	"bytes"
	"fmt"
	"io"
	"sort"
	"sync"
)

// MemoryVault is an in-memory implementation of the Vault interface, useful
// for testing. It is safe for concurrent use.
type MemoryVault struct {
	name      string
	snapshots map[string][]byte
	mu        sync.RWMutex
}

// NewMemoryVault creates a new in-memory vault with the given name.
func NewMemoryVault(name string) *MemoryVault {
	return &MemoryVault{
		name:      name,
		snapshots: make(map[string][]byte),
	}
}

// PutSnapshot stores a snapshot, replacing any existing one with the same name.
func (m *MemoryVault) PutSnapshot(name string, r io.Reader, size int64) error {
	data, err := io.ReadAll(r)
	if err != nil {
		return fmt.Errorf("failed to read snapshot: %w", err)
	}

	if int64(len(data)) != size {
		return fmt.Errorf("size mismatch: expected %d bytes, got %d", size, len(data))
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	m.snapshots[name] = data
	return nil
}

// GetSnapshot retrieves the named snapshot and writes it to w.
func (m *MemoryVault) GetSnapshot(name string, w io.Writer) error {
	m.mu.RLock()
	defer m.mu.RUnlock()

	data, ok := m.snapshots[name]
	if !ok {
		return fmt.Errorf("snapshot not found: %s", name)
	}

	if _, err := io.Copy(w, bytes.NewReader(data)); err != nil {
		return fmt.Errorf("failed to write snapshot: %w", err)
	}
	return nil
}

// ListSnapshots returns the names of all stored snapshots, sorted.
func (m *MemoryVault) ListSnapshots() ([]string, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	names := make([]string, 0, len(m.snapshots))
	for name := range m.snapshots {
		names = append(names, name)
	}
	sort.Strings(names)
	return names, nil
}

// ValidateSetup always succeeds for in-memory vault.
func (m *MemoryVault) ValidateSetup() error {
	return nil
}

// Compile-time check that MemoryVault implements the Vault interface
var _ Vault = (*MemoryVault)(nil)
