package session

import "sync"

// StorageKey names the persisted session list.
const StorageKey = "greenstudio_history_v1"

// Port is the persistence boundary: one serialized blob, loaded at start and
// overwritten wholesale on every mutation.
type Port interface {
	// Load returns the stored blob, or found=false when nothing was saved yet.
	Load() (data []byte, found bool, err error)
	// Save replaces the stored blob.
	Save(data []byte) error
}

// MemoryPort keeps the blob in memory. Useful for tests and throwaway runs.
type MemoryPort struct {
	mu    sync.Mutex
	data  []byte
	saves int
}

// NewMemoryPort returns a port seeded with data; nil means nothing stored.
func NewMemoryPort(data []byte) *MemoryPort {
	return &MemoryPort{data: data}
}

func (p *MemoryPort) Load() ([]byte, bool, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.data == nil {
		return nil, false, nil
	}
	out := make([]byte, len(p.data))
	copy(out, p.data)
	return out, true, nil
}

func (p *MemoryPort) Save(data []byte) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.data = append([]byte(nil), data...)
	p.saves++
	return nil
}

// Saves returns how many times Save was called.
func (p *MemoryPort) Saves() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.saves
}

// Clear erases the stored blob so the next Open starts with one fresh
// session. Ports that can drop their key do; others get an empty list.
func Clear(port Port) error {
	if d, ok := port.(interface{ Delete() error }); ok {
		return d.Delete()
	}
	return port.Save([]byte("[]"))
}
