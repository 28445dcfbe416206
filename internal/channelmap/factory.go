package channelmap

import (
	"fmt"
	"sort"
	"sync"
)

// Kind names a channel map variant.
type Kind string

const (
	KindStandard Kind = "standard"
	KindShared   Kind = "shared"
)

// Constructor returns a new, uninitialized ChannelMap.
type Constructor func() ChannelMap

var (
	registryMu sync.RWMutex
	registry   = map[Kind]Constructor{
		KindStandard: func() ChannelMap { return NewStandardAlg() },
		KindShared:   func() ChannelMap { return NewSharedAlg() },
	}
)

// Register makes a variant available to New. It panics if ctor is nil or
// kind is already registered.
func Register(kind Kind, ctor Constructor) {
	registryMu.Lock()
	defer registryMu.Unlock()
	if ctor == nil {
		panic("channelmap: Register constructor is nil")
	}
	if _, dup := registry[kind]; dup {
		panic("channelmap: Register called twice for kind " + string(kind))
	}
	registry[kind] = ctor
}

// New returns an uninitialized ChannelMap of the given kind.
func New(kind Kind) (ChannelMap, error) {
	registryMu.RLock()
	ctor, ok := registry[kind]
	registryMu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("%w: %q (known: %v)", ErrUnknownKind, kind, Kinds())
	}
	return ctor(), nil
}

// Kinds lists the registered kinds in sorted order.
func Kinds() []Kind {
	registryMu.RLock()
	defer registryMu.RUnlock()
	kinds := make([]Kind, 0, len(registry))
	for k := range registry {
		kinds = append(kinds, k)
	}
	sort.Slice(kinds, func(i, j int) bool { return kinds[i] < kinds[j] })
	return kinds
}
