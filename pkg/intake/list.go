package intake

import (
	"fmt"
	"sync"

	"github.com/google/uuid"

	"github.com/menta2k/docintake/pkg/types"
)

// AssetList is the ordered asset container of a session. Its identity
// changes on every insertion, removal, move and replacement, so observers
// can detect any change by comparing one string.
type AssetList struct {
	mu       sync.RWMutex
	assets   []types.Asset
	identity string
	observer func(identity string)
}

// NewAssetList creates a list holding assets in order
func NewAssetList(assets ...types.Asset) *AssetList {
	return &AssetList{
		assets:   append([]types.Asset(nil), assets...),
		identity: uuid.NewString(),
	}
}

// SetObserver registers fn to be called with the new identity after every
// successful mutation. fn runs outside the list lock and may read the list.
func (l *AssetList) SetObserver(fn func(identity string)) {
	l.mu.Lock()
	l.observer = fn
	l.mu.Unlock()
}

// Identity returns the current list identity
func (l *AssetList) Identity() string {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.identity
}

// Assets returns a snapshot of the list
func (l *AssetList) Assets() []types.Asset {
	l.mu.RLock()
	defer l.mu.RUnlock()
	out := make([]types.Asset, len(l.assets))
	copy(out, l.assets)
	return out
}

func (l *AssetList) Len() int {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return len(l.assets)
}

// At returns the asset at index i. It panics when i is out of range, like
// a slice index; use Get for a checked lookup.
func (l *AssetList) At(i int) types.Asset {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.assets[i]
}

// Get returns the asset at index i
func (l *AssetList) Get(i int) (types.Asset, error) {
	l.mu.RLock()
	defer l.mu.RUnlock()
	if i < 0 || i >= len(l.assets) {
		return types.Asset{}, fmt.Errorf("%w: index %d", types.ErrAssetNotFound, i)
	}
	return l.assets[i], nil
}

// IndexOf returns the current index of the asset with id, or -1
func (l *AssetList) IndexOf(id string) int {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.indexOfLocked(id)
}

func (l *AssetList) indexOfLocked(id string) int {
	for i, a := range l.assets {
		if a.ID == id {
			return i
		}
	}
	return -1
}

// Add appends assets to the end of the list
func (l *AssetList) Add(assets ...types.Asset) {
	_ = l.mutate(func() (bool, error) {
		l.assets = append(l.assets, assets...)
		return len(assets) > 0, nil
	})
}

// Insert places asset at index i, shifting later assets
func (l *AssetList) Insert(i int, asset types.Asset) error {
	return l.mutate(func() (bool, error) {
		if i < 0 || i > len(l.assets) {
			return false, fmt.Errorf("%w: insert index %d", types.ErrAssetNotFound, i)
		}
		l.assets = append(l.assets, types.Asset{})
		copy(l.assets[i+1:], l.assets[i:])
		l.assets[i] = asset
		return true, nil
	})
}

// Remove deletes the asset at index i and returns it
func (l *AssetList) Remove(i int) (types.Asset, error) {
	var removed types.Asset
	err := l.mutate(func() (bool, error) {
		if i < 0 || i >= len(l.assets) {
			return false, fmt.Errorf("%w: index %d", types.ErrAssetNotFound, i)
		}
		removed = l.assets[i]
		l.assets = append(l.assets[:i], l.assets[i+1:]...)
		return true, nil
	})
	return removed, err
}

// Move relocates the asset at from so it ends up at index to
func (l *AssetList) Move(from, to int) error {
	return l.mutate(func() (bool, error) {
		n := len(l.assets)
		if from < 0 || from >= n || to < 0 || to >= n {
			return false, fmt.Errorf("%w: move %d -> %d", types.ErrAssetNotFound, from, to)
		}
		if from == to {
			return false, nil
		}
		moved := l.assets[from]
		l.assets = append(l.assets[:from], l.assets[from+1:]...)
		l.assets = append(l.assets[:to], append([]types.Asset{moved}, l.assets[to:]...)...)
		return true, nil
	})
}

// Replace puts asset at index i in place of the current one
func (l *AssetList) Replace(i int, asset types.Asset) error {
	return l.mutate(func() (bool, error) {
		if i < 0 || i >= len(l.assets) {
			return false, fmt.Errorf("%w: index %d", types.ErrAssetNotFound, i)
		}
		l.assets[i] = asset
		return true, nil
	})
}

// ReplaceByID replaces the asset whose ID is oldID, wherever it currently
// sits. It fails with types.ErrAssetNotFound when the asset was removed.
func (l *AssetList) ReplaceByID(oldID string, asset types.Asset) error {
	return l.mutate(func() (bool, error) {
		i := l.indexOfLocked(oldID)
		if i < 0 {
			return false, fmt.Errorf("%w: %s", types.ErrAssetNotFound, oldID)
		}
		l.assets[i] = asset
		return true, nil
	})
}

// mutate runs fn under the write lock. When fn reports a change, the
// identity is renewed and the observer notified after unlocking.
func (l *AssetList) mutate(fn func() (bool, error)) error {
	l.mu.Lock()
	changed, err := fn()
	if err != nil || !changed {
		l.mu.Unlock()
		return err
	}
	l.identity = uuid.NewString()
	identity, observer := l.identity, l.observer
	l.mu.Unlock()

	if observer != nil {
		observer(identity)
	}
	return nil
}
