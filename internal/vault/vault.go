// Package vault stores archive snapshots in remote or local storage so the
// closed-tab history survives machine loss and can be carried between
// installations.
package vault

import "io"

// Vault is the storage backend for archive snapshots. Snapshots are opaque
// blobs named by the caller; implementations do not interpret their contents.
type Vault interface {
	// PutSnapshot stores a snapshot under the given name, replacing any
	// existing snapshot with that name.
	PutSnapshot(name string, r io.Reader, size int64) error

	// GetSnapshot retrieves the named snapshot and writes it to w.
	GetSnapshot(name string, w io.Writer) error

	// ListSnapshots returns the names of all stored snapshots.
	ListSnapshots() ([]string, error)

	// ValidateSetup verifies that the vault is reachable and usable.
	ValidateSetup() error
}
