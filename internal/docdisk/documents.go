package docdisk

import (
	"context"
	"errors"
	"fmt"
	"sync"
)

// DocumentCache is the in-memory document list of one authenticated session.
// It is only ever replaced wholesale by Refresh; mutations go to the backend
// and are followed by a Refresh. Once closed, late results are discarded.
type DocumentCache struct {
	api    DocumentAPI
	logger Logger

	mu     sync.RWMutex // protects the fields below
	docs   []Document
	loaded bool
	closed bool
}

// NewDocumentCache creates an empty cache bound to the session's API handle.
func NewDocumentCache(api DocumentAPI, logger Logger) *DocumentCache {
	return &DocumentCache{api: api, logger: logger}
}

// Refresh fetches the full document list and replaces the cache with it.
// On failure the previous contents are kept.
func (c *DocumentCache) Refresh(ctx context.Context) error {
	if c.Closed() {
		return ErrSessionEnded
	}

	docs, err := c.api.ListDocuments(ctx)
	if err != nil {
		return fmt.Errorf("listing documents: %w", err)
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		c.logger.Debug("discarding document list for ended session", "count", len(docs))
		return ErrSessionEnded
	}
	c.docs = append([]Document(nil), docs...)
	c.loaded = true
	return nil
}

// Create stores a new document and refreshes the cache.
func (c *DocumentCache) Create(ctx context.Context, in DocumentInput) error {
	if c.Closed() {
		return ErrSessionEnded
	}
	doc, err := c.api.CreateDocument(ctx, in)
	if err != nil {
		return fmt.Errorf("creating document: %w", err)
	}
	c.logger.Info("document created", "id", doc.ID)
	return c.refreshAfterMutation(ctx)
}

// Update replaces the title and content of document id and refreshes the cache.
func (c *DocumentCache) Update(ctx context.Context, id string, in DocumentInput) error {
	if c.Closed() {
		return ErrSessionEnded
	}
	if _, err := c.api.UpdateDocument(ctx, id, in); err != nil {
		return fmt.Errorf("updating document %s: %w", id, err)
	}
	c.logger.Info("document updated", "id", id)
	return c.refreshAfterMutation(ctx)
}

// Delete removes document id and refreshes the cache.
func (c *DocumentCache) Delete(ctx context.Context, id string) error {
	if c.Closed() {
		return ErrSessionEnded
	}
	if err := c.api.DeleteDocument(ctx, id); err != nil {
		return fmt.Errorf("deleting document %s: %w", id, err)
	}
	c.logger.Info("document deleted", "id", id)
	return c.refreshAfterMutation(ctx)
}

func (c *DocumentCache) refreshAfterMutation(ctx context.Context) error {
	err := c.Refresh(ctx)
	if err == nil || errors.Is(err, ErrSessionEnded) {
		return err
	}
	return fmt.Errorf("%w: %w", ErrRefreshFailed, err)
}

// List returns a copy of the cached documents in backend order.
func (c *DocumentCache) List() []Document {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return append([]Document(nil), c.docs...)
}

// Find returns the cached document with the given id.
func (c *DocumentCache) Find(id string) (Document, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	for _, d := range c.docs {
		if d.ID == id {
			return d, true
		}
	}
	return Document{}, false
}

// Loaded reports whether at least one refresh succeeded.
func (c *DocumentCache) Loaded() bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.loaded
}

// Close empties the cache and makes every later result a no-op.
func (c *DocumentCache) Close() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.closed = true
	c.docs = nil
}

// Closed reports whether the owning session has ended.
func (c *DocumentCache) Closed() bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.closed
}
