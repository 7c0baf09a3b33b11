package session

import (
	"fmt"
	"sync"

	"github.com/google/uuid"
)

// Preview is the image bytes behind a preview URL.
type Preview struct {
	ID       string
	MimeType string
	Data     []byte
}

// PreviewRegistry hands out preview resources. Every id returned by Create
// must eventually be passed to Release exactly once.
type PreviewRegistry interface {
	Create(mimeType string, data []byte) (string, error)
	Release(id string)
}

// MemoryPreviews keeps previews in memory, addressable by id.
type MemoryPreviews struct {
	mu    sync.RWMutex
	items map[string]Preview
}

func NewMemoryPreviews() *MemoryPreviews {
	return &MemoryPreviews{items: make(map[string]Preview)}
}

func (m *MemoryPreviews) Create(mimeType string, data []byte) (string, error) {
	if len(data) == 0 {
		return "", fmt.Errorf("empty image")
	}
	id := uuid.NewString()
	m.mu.Lock()
	m.items[id] = Preview{ID: id, MimeType: mimeType, Data: data}
	m.mu.Unlock()
	return id, nil
}

func (m *MemoryPreviews) Release(id string) {
	m.mu.Lock()
	delete(m.items, id)
	m.mu.Unlock()
}

func (m *MemoryPreviews) Get(id string) (Preview, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	p, ok := m.items[id]
	return p, ok
}

// Live is the number of previews not yet released.
func (m *MemoryPreviews) Live() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.items)
}
