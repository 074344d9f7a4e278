package testutil

import (
	"context"
	"sync"
)

// Blob is an object written to MemBlobs
type Blob struct {
	Data        []byte
	ContentType string
}

// MemBlobs is an in-memory blob store
type MemBlobs struct {
	mu      sync.Mutex
	objects map[string]Blob
	// Err fails every Put when set
	Err error
}

// NewMemBlobs creates an empty blob store
func NewMemBlobs() *MemBlobs {
	return &MemBlobs{objects: map[string]Blob{}}
}

func (b *MemBlobs) Put(_ context.Context, key string, data []byte, contentType string) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.Err != nil {
		return b.Err
	}
	b.objects[key] = Blob{Data: append([]byte(nil), data...), ContentType: contentType}
	return nil
}

func (b *MemBlobs) Exists(_ context.Context, key string) (bool, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	_, ok := b.objects[key]
	return ok, nil
}

// Get returns the object stored under key
func (b *MemBlobs) Get(key string) (Blob, bool) {
	b.mu.Lock()
	defer b.mu.Unlock()
	blob, ok := b.objects[key]
	return blob, ok
}
