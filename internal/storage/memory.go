package storage

import (
	"context"
	"io"
	"net/url"
	"strings"
	"sync"
)

// Memory keeps objects in process. It backs local runs without S3 settings.
type Memory struct {
	mu      sync.RWMutex
	base    url.URL
	objects map[string]Object
}

// Object is a stored blob.
type Object struct {
	Data        []byte
	ContentType string
}

func NewMemory(baseURL string) (*Memory, error) {
	u, err := url.Parse(strings.TrimRight(baseURL, "/"))
	if err != nil {
		return nil, err
	}
	return &Memory{base: *u, objects: make(map[string]Object)}, nil
}

func (m *Memory) Upload(ctx context.Context, r io.Reader, _ int64, key, contentType string) (*url.URL, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, err
	}
	m.mu.Lock()
	m.objects[key] = Object{Data: data, ContentType: contentType}
	m.mu.Unlock()

	u := m.base
	u.Path = u.Path + "/" + key
	return &u, nil
}

// Get returns the object stored under key.
func (m *Memory) Get(key string) (Object, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	o, ok := m.objects[key]
	return o, ok
}

// Len is the number of stored objects.
func (m *Memory) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.objects)
}
