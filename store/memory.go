package store

import (
	"context"
	"sync"

	"github.com/google/uuid"
)

// Memory provides document collections held in process memory. It exists
// so the manager and its callers can be tested without DynamoDB; local
// tooling uses it too. Writes take a per-collection lock, matching the
// single-document atomicity of the DynamoDB backend.
type Memory struct {
	mu          sync.Mutex
	collections map[string]*memoryCollection
}

// NewMemory creates an empty in-memory document store.
func NewMemory() *Memory {
	return &Memory{
		collections: make(map[string]*memoryCollection),
	}
}

// Collection returns the named collection, creating it on first use.
func (m *Memory) Collection(name string) Collection {
	m.mu.Lock()
	defer m.mu.Unlock()
	c, ok := m.collections[name]
	if !ok {
		c = &memoryCollection{docs: make(map[string]Doc)}
		m.collections[name] = c
	}
	return c
}

type memoryCollection struct {
	mu   sync.Mutex
	docs map[string]Doc
}

func (c *memoryCollection) Find(_ context.Context, q Query) ([]Doc, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	var docs []Doc
	for _, doc := range c.docs {
		if matches(doc, q.Filter) {
			docs = append(docs, cloneDoc(doc))
		}
	}
	sortDocs(docs, q.Sort)
	if q.Limit > 0 && len(docs) > q.Limit {
		docs = docs[:q.Limit]
	}
	return docs, nil
}

func (c *memoryCollection) FindOne(ctx context.Context, filter Filter) (Doc, error) {
	docs, err := c.Find(ctx, Query{Filter: filter, Limit: 1})
	if err != nil {
		return nil, err
	}
	if len(docs) == 0 {
		return nil, ErrNotFound
	}
	return docs[0], nil
}

func (c *memoryCollection) InsertOne(_ context.Context, doc Doc) (string, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	id := doc.ID()
	if id == "" {
		id = uuid.NewString()
	}
	if _, exists := c.docs[id]; exists {
		return "", ErrAlreadyExists
	}

	stored := cloneDoc(doc)
	stored[FieldID] = id
	c.docs[id] = stored
	return id, nil
}

func (c *memoryCollection) UpdateOne(_ context.Context, filter Filter, patch Patch) (int, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	doc, ok := c.first(filter)
	if !ok {
		return 0, nil
	}
	for k, v := range patch {
		if k == FieldID {
			continue
		}
		doc[k] = v
	}
	return 1, nil
}

func (c *memoryCollection) DeleteOne(_ context.Context, filter Filter) (int, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	doc, ok := c.first(filter)
	if !ok {
		return 0, nil
	}
	delete(c.docs, doc.ID())
	return 1, nil
}

// first returns the matching document with the smallest id, mirroring the
// DynamoDB backend's sort-key order. Caller holds the lock.
func (c *memoryCollection) first(filter Filter) (Doc, bool) {
	var best Doc
	for _, doc := range c.docs {
		if !matches(doc, filter) {
			continue
		}
		if best == nil || doc.ID() < best.ID() {
			best = doc
		}
	}
	return best, best != nil
}

// cloneDoc copies a document so callers never alias stored state.
func cloneDoc(doc Doc) Doc {
	out := make(Doc, len(doc))
	for k, v := range doc {
		switch s := v.(type) {
		case []string:
			out[k] = append([]string(nil), s...)
		case []any:
			out[k] = append([]any(nil), s...)
		default:
			out[k] = v
		}
	}
	return out
}
