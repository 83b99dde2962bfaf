package tools

import "sync"

// InMemoryEditorBuffers is the default EditorBuffers backend: a
// process-local, mutex-guarded map. Buffers don't need to survive a
// restart (the client re-sends editor_load on reconnect), so nothing
// fancier than a map is warranted here.
type InMemoryEditorBuffers struct {
	mu   sync.RWMutex
	data map[string]string
}

func NewInMemoryEditorBuffers() *InMemoryEditorBuffers {
	return &InMemoryEditorBuffers{data: make(map[string]string)}
}

func (b *InMemoryEditorBuffers) Load(bufferID, content string) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.data[bufferID] = content
}

func (b *InMemoryEditorBuffers) Get(bufferID string) (string, bool) {
	b.mu.RLock()
	defer b.mu.RUnlock()
	v, ok := b.data[bufferID]
	return v, ok
}
