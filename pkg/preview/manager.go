// Package preview manages transient display handles for the raster assets
// of an asset list.
//
// Handles are derived from the list's identity, not from individual
// assets. Whenever the identity changes, every handle issued for the old
// identity is released before a disjoint new set is issued, so the number
// of live handles never exceeds the raster count of the current list.
package preview

import (
	"encoding/base64"
	"errors"
	"log"
	"sync"

	"github.com/google/uuid"

	"github.com/menta2k/docintake/pkg/types"
)

// ErrReleased is returned when a released handle is used
var ErrReleased = errors.New("preview handle released")

// List is the asset container the manager follows
type List interface {
	Identity() string
	Assets() []types.Asset
}

// Handle is a revocable reference to one asset's bytes, for display only
type Handle struct {
	ID       uuid.UUID
	AssetID  string
	Index    int
	Name     string
	MimeType string

	mu       sync.RWMutex
	data     []byte
	released bool
}

// Bytes returns the referenced bytes
func (h *Handle) Bytes() ([]byte, error) {
	h.mu.RLock()
	defer h.mu.RUnlock()
	if h.released {
		return nil, ErrReleased
	}
	return h.data, nil
}

// DataURL renders the referenced bytes as a data: URL
func (h *Handle) DataURL() (string, error) {
	data, err := h.Bytes()
	if err != nil {
		return "", err
	}
	return "data:" + h.MimeType + ";base64," + base64.StdEncoding.EncodeToString(data), nil
}

// Released reports whether the handle was revoked
func (h *Handle) Released() bool {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return h.released
}

func (h *Handle) release() {
	h.mu.Lock()
	h.released = true
	h.data = nil
	h.mu.Unlock()
}

// Manager issues and releases handles keyed to list identity
type Manager struct {
	mu       sync.Mutex
	identity string
	handles  []*Handle
	byID     map[uuid.UUID]*Handle
	logger   *log.Logger
}

// NewManager creates an empty manager
func NewManager() *Manager {
	return &Manager{
		byID: make(map[uuid.UUID]*Handle),
	}
}

// SetLogger sets the logger for lifecycle events; nil disables logging
func (m *Manager) SetLogger(logger *log.Logger) {
	m.mu.Lock()
	m.logger = logger
	m.mu.Unlock()
}

// Sync returns the handles for the list's current identity. If the
// identity changed since the last call, all previous handles are
// released first and a new set is derived.
func (m *Manager) Sync(list List) []*Handle {
	identity := list.Identity()

	m.mu.Lock()
	defer m.mu.Unlock()

	if identity != m.identity || m.handles == nil {
		m.releaseLocked()
		m.identity = identity
		m.handles = make([]*Handle, 0)
		for i, asset := range list.Assets() {
			if !asset.IsRaster() {
				continue
			}
			h := &Handle{
				ID:       uuid.New(),
				AssetID:  asset.ID,
				Index:    i,
				Name:     asset.Name,
				MimeType: asset.MimeType,
				data:     asset.Data,
			}
			m.handles = append(m.handles, h)
			m.byID[h.ID] = h
		}
		if m.logger != nil {
			m.logger.Printf("preview: issued %d handles for list %s", len(m.handles), identity)
		}
	}

	out := make([]*Handle, len(m.handles))
	copy(out, m.handles)
	return out
}

// Invalidate releases every handle unless they were issued for identity.
// Lists call it on each mutation so stale handles never outlive the change;
// the next Sync issues the new set.
func (m *Manager) Invalidate(identity string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if identity == m.identity {
		return
	}
	m.releaseLocked()
	m.identity = ""
}

// Lookup finds a live handle by ID
func (m *Manager) Lookup(id uuid.UUID) (*Handle, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	h, ok := m.byID[id]
	return h, ok
}

// Live returns the number of live handles
func (m *Manager) Live() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.byID)
}

// Identity returns the list identity the live handles belong to
func (m *Manager) Identity() string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.identity
}

// Close releases every live handle
func (m *Manager) Close() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.releaseLocked()
	m.identity = ""
}

func (m *Manager) releaseLocked() {
	if len(m.handles) > 0 && m.logger != nil {
		m.logger.Printf("preview: released %d handles for list %s", len(m.handles), m.identity)
	}
	for _, h := range m.handles {
		h.release()
		delete(m.byID, h.ID)
	}
	m.handles = nil
}
