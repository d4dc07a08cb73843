package listsync

import "context"

// Mutation is a reversible list edit: Apply runs optimistically against the
// displayed items before Call hits the remote, and the prior state is restored
// if Call fails.
type Mutation[R any] struct {
	Name  string
	Apply func(items []R) []R
	Call  func(ctx context.Context) error
}

// Mutate applies a mutation optimistically, confirms it remotely, and writes
// the confirmed state through to the cache. On remote failure the displayed
// items roll back to the pre-mutation state and the error is returned.
func (c *Controller[R]) Mutate(ctx context.Context, m Mutation[R]) error {
	c.mu.Lock()
	prev := c.state

	items := make([]R, len(prev.Items))
	copy(items, prev.Items)
	next := PageState[R]{
		Items:   m.Apply(items),
		Page:    prev.Page,
		HasMore: prev.HasMore,
	}
	c.state = next
	c.version++
	c.mu.Unlock()

	if err := m.Call(ctx); err != nil {
		c.mu.Lock()
		c.state = prev
		c.err = err
		c.version++
		c.mu.Unlock()
		return err
	}

	c.mu.Lock()
	if c.query != nil {
		c.ledger.Set(c.cacheKey(c.query, c.search), c.state)
	}
	c.err = nil
	c.mu.Unlock()
	return nil
}
