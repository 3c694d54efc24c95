// Package introspect serves registered class metadata over HTTP. The
// API works against snapshot documents, so the same server can expose a
// live metadata store or an exported snapshot file.
package introspect

import (
	"fmt"
	"sync"

	"github.com/declkit/declkit/runtime/mirror"
)

// SnapshotProvider supplies the snapshot document served by the API.
type SnapshotProvider interface {
	Snapshot() (*mirror.Snapshot, error)
}

// StoreProvider exports a live metadata store on every request, so
// responses always reflect the current registrations.
type StoreProvider struct {
	store *mirror.Store
}

// NewStoreProvider creates a provider backed by a live store.
func NewStoreProvider(store *mirror.Store) *StoreProvider {
	return &StoreProvider{store: store}
}

// Snapshot exports the current state of the store.
func (p *StoreProvider) Snapshot() (*mirror.Snapshot, error) {
	return p.store.Export()
}

// FileProvider serves a snapshot document loaded from disk.
type FileProvider struct {
	path string

	mu   sync.RWMutex
	snap *mirror.Snapshot
}

// NewFileProvider loads the snapshot at path and serves it until
// Reload is called.
func NewFileProvider(path string) (*FileProvider, error) {
	p := &FileProvider{path: path}
	if err := p.Reload(); err != nil {
		return nil, err
	}
	return p, nil
}

// Snapshot returns the loaded snapshot.
func (p *FileProvider) Snapshot() (*mirror.Snapshot, error) {
	p.mu.RLock()
	defer p.mu.RUnlock()
	if p.snap == nil {
		return nil, fmt.Errorf("no snapshot loaded from %s", p.path)
	}
	return p.snap, nil
}

// Reload re-reads the snapshot file.
func (p *FileProvider) Reload() error {
	snap, err := mirror.ReadSnapshotFile(p.path)
	if err != nil {
		return fmt.Errorf("reload snapshot: %w", err)
	}
	snap.Normalize()

	p.mu.Lock()
	p.snap = snap
	p.mu.Unlock()
	return nil
}

// StaticProvider serves a fixed snapshot, mostly useful in tests.
type StaticProvider struct {
	Snap *mirror.Snapshot
}

// Snapshot returns the fixed snapshot.
func (p *StaticProvider) Snapshot() (*mirror.Snapshot, error) {
	if p.Snap == nil {
		return nil, fmt.Errorf("no snapshot configured")
	}
	return p.Snap, nil
}
