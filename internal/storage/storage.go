// Package storage is the shared-storage collaborator used for link delivery.
package storage

import (
	"context"
	"fmt"
	"sync"
)

// Object identifies an uploaded payload.
type Object struct {
	ID  string
	URL string
}

// Store uploads oversized artifacts and scopes who may read them.
type Store interface {
	// Upload persists data under name and returns its public handle.
	Upload(ctx context.Context, name string, data []byte) (Object, error)
	// RestrictVisibility limits read access on an uploaded object to the
	// grantee's identity.
	RestrictVisibility(ctx context.Context, objectID, granteeEmail string) error
}

// Memory is an in-process Store for tests and single-shot runs.
type Memory struct {
	mu       sync.Mutex
	objects  map[string][]byte
	grantees map[string]string
}

// NewMemory builds an empty in-memory store.
func NewMemory() *Memory {
	return &Memory{
		objects:  make(map[string][]byte),
		grantees: make(map[string]string),
	}
}

// Upload implements Store.
func (m *Memory) Upload(_ context.Context, name string, data []byte) (Object, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	buf := make([]byte, len(data))
	copy(buf, data)
	m.objects[name] = buf
	return Object{ID: name, URL: "memory://" + name}, nil
}

// RestrictVisibility implements Store.
func (m *Memory) RestrictVisibility(_ context.Context, objectID, granteeEmail string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.objects[objectID]; !ok {
		return fmt.Errorf("object %s not found", objectID)
	}
	m.grantees[objectID] = granteeEmail
	return nil
}

// Grantee reports who an object is shared with. Test helper.
func (m *Memory) Grantee(objectID string) string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.grantees[objectID]
}

// Len reports the number of stored objects. Test helper.
func (m *Memory) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.objects)
}
