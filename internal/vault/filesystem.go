package vault

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
)

// FileSystemVault stores snapshots as files under a directory:
//
//	<root>/
//	  snapshots/
//	    <name>
type FileSystemVault struct {
	name         string
	root         string
	snapshotsDir string
}

// NewFileSystemVault creates a filesystem vault rooted at the given path.
func NewFileSystemVault(name, root string) (*FileSystemVault, error) {
	snapshotsDir := filepath.Join(root, "snapshots")
	if err := os.MkdirAll(snapshotsDir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create snapshots directory: %w", err)
	}

	return &FileSystemVault{
		name:         name,
		root:         root,
		snapshotsDir: snapshotsDir,
	}, nil
}

// PutSnapshot stores a snapshot, replacing any existing one with the same name.
func (v *FileSystemVault) PutSnapshot(name string, r io.Reader, size int64) error {
	destPath := filepath.Join(v.snapshotsDir, name)

	// Temp file in the same directory so the rename is atomic.
	tmpFile, err := os.CreateTemp(v.snapshotsDir, ".tmp-*")
	if err != nil {
		return fmt.Errorf("failed to create temp file: %w", err)
	}
	tmpPath := tmpFile.Name()

	success := false
	defer func() {
		if !success {
			os.Remove(tmpPath)
		}
	}()

	written, err := io.Copy(tmpFile, r)
	if err != nil {
		tmpFile.Close()
		return fmt.Errorf("failed to write snapshot: %w", err)
	}
	if err := tmpFile.Close(); err != nil {
		return fmt.Errorf("failed to close temp file: %w", err)
	}

	if written != size {
		return fmt.Errorf("size mismatch: expected %d bytes, got %d", size, written)
	}

	if err := os.Rename(tmpPath, destPath); err != nil {
		return fmt.Errorf("failed to rename temp file: %w", err)
	}

	success = true
	return nil
}

// GetSnapshot retrieves the named snapshot and writes it to w.
func (v *FileSystemVault) GetSnapshot(name string, w io.Writer) error {
	f, err := os.Open(filepath.Join(v.snapshotsDir, name))
	if err != nil {
		if os.IsNotExist(err) {
			return fmt.Errorf("snapshot not found: %s", name)
		}
		return fmt.Errorf("failed to open snapshot: %w", err)
	}
	defer f.Close()

	if _, err := io.Copy(w, f); err != nil {
		return fmt.Errorf("failed to read snapshot: %w", err)
	}
	return nil
}

// ListSnapshots returns the names of all stored snapshots.
func (v *FileSystemVault) ListSnapshots() ([]string, error) {
	entries, err := os.ReadDir(v.snapshotsDir)
	if err != nil {
		return nil, fmt.Errorf("failed to list snapshots: %w", err)
	}

	var names []string
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		names = append(names, e.Name())
	}
	return names, nil
}

// ValidateSetup verifies that the vault directories are accessible.
func (v *FileSystemVault) ValidateSetup() error {
	info, err := os.Stat(v.root)
	if err != nil {
		return fmt.Errorf("vault root not accessible: %w", err)
	}
	if !info.IsDir() {
		return fmt.Errorf("vault root is not a directory: %s", v.root)
	}

	info, err = os.Stat(v.snapshotsDir)
	if err != nil {
		return fmt.Errorf("vault directory not accessible: %w", err)
	}
	if !info.IsDir() {
		return fmt.Errorf("vault path is not a directory: %s", v.snapshotsDir)
	}

	return nil
}

// Compile-time check that FileSystemVault implements the Vault interface
var _ Vault = (*FileSystemVault)(nil)
