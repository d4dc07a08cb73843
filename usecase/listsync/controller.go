package listsync

import (
	"context"
	"strconv"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"

	"github.com/dealerdesk/backend/internal/cache"
)

// Query identifies one remote list shape. Two queries with the same key must
// describe the same result set; the key never includes the page number, so a
// cached entry holds everything accumulated for that shape so far.
type Query interface {
	Key() string
}

// Fetch loads one page of results for a query. Implementations are expected
// to apply role narrowing and search server-side.
type Fetch[R any] func(ctx context.Context, q Query, search string, page, pageSize int) ([]R, error)

// PageState is the cached unit: the accumulated items for a query shape, the
// highest page loaded, and whether the remote signalled more rows.
type PageState[R any] struct {
	Items   []R
	Page    int
	HasMore bool
}

// View is a point-in-time copy of a controller's state, safe to hand out.
type View[R any] struct {
	Items     []R
	Page      int
	HasMore   bool
	Loading   bool
	Searching bool
	Version   uint64
	Err       error
}

// Config tunes a controller. Zero values fall back to the usual CRM defaults.
type Config struct {
	Name     string
	TTL      time.Duration
	PageSize int
	Debounce time.Duration
	Logger   *zap.Logger
}

// Controller keeps one list synchronized against a remote dataset: it serves
// the last known good result instantly, revalidates when the entry outlives
// its TTL, collapses concurrent fetches of the same page, and drops responses
// that a newer request has already superseded.
type Controller[R any] struct {
	name     string
	fetch    Fetch[R]
	ledger   *cache.Ledger[PageState[R]]
	ttl      time.Duration
	pageSize int
	debounce time.Duration
	log      *zap.Logger
	baseCtx  context.Context

	group   singleflight.Group
	lastReq atomic.Uint64

	mu        sync.Mutex
	query     Query
	search    string
	pending   string
	timer     *time.Timer
	state     PageState[R]
	loading   bool
	searching bool
	err       error
	version   uint64
}

// New builds a controller. baseCtx is used for syncs the caller did not start
// directly, such as debounced search fires.
func New[R any](baseCtx context.Context, cfg Config, fetch Fetch[R]) *Controller[R] {
	if cfg.TTL <= 0 {
		cfg.TTL = 30 * time.Second
	}
	if cfg.PageSize <= 0 {
		cfg.PageSize = 50
	}
	if cfg.Debounce <= 0 {
		cfg.Debounce = 300 * time.Millisecond
	}
	if cfg.Logger == nil {
		cfg.Logger = zap.NewNop()
	}
	return &Controller[R]{
		name:     cfg.Name,
		fetch:    fetch,
		ledger:   cache.NewLedger[PageState[R]](),
		ttl:      cfg.TTL,
		pageSize: cfg.PageSize,
		debounce: cfg.Debounce,
		log:      cfg.Logger,
		baseCtx:  baseCtx,
	}
}

// SetQuery switches the active query shape and synchronizes it.
func (c *Controller[R]) SetQuery(ctx context.Context, q Query) error {
	c.mu.Lock()
	c.query = q
	c.mu.Unlock()
	return c.sync(ctx, false)
}

// SetSearch records a new search term and schedules a sync after the debounce
// window. Rapid successive calls collapse into one fetch for the final term.
func (c *Controller[R]) SetSearch(term string) {
	term = strings.TrimSpace(term)

	c.mu.Lock()
	defer c.mu.Unlock()
	if term == c.search && term == c.pending {
		return
	}
	c.pending = term
	c.searching = true
	if c.timer != nil {
		c.timer.Stop()
	}
	c.timer = time.AfterFunc(c.debounce, func() {
		c.mu.Lock()
		c.search = c.pending
		c.mu.Unlock()
		if err := c.sync(c.baseCtx, false); err != nil {
			c.log.Warn("search sync failed", zap.String("list", c.name), zap.Error(err))
		}
	})
}

// Apply sets the query shape and search term together and synchronizes once,
// skipping the debounce. Request-scoped callers use this; interactive callers
// go through SetQuery/SetSearch.
func (c *Controller[R]) Apply(ctx context.Context, q Query, search string) error {
	search = strings.TrimSpace(search)
	c.mu.Lock()
	if c.timer != nil {
		c.timer.Stop()
	}
	c.query = q
	c.search = search
	c.pending = search
	c.searching = false
	c.mu.Unlock()
	return c.sync(ctx, false)
}

// Sync serves the cached entry for the current shape and revalidates it only
// when missing or older than the TTL.
func (c *Controller[R]) Sync(ctx context.Context) error {
	return c.sync(ctx, false)
}

// Refresh bypasses freshness and always hits the remote.
func (c *Controller[R]) Refresh(ctx context.Context) error {
	return c.sync(ctx, true)
}

func (c *Controller[R]) sync(ctx context.Context, force bool) error {
	c.mu.Lock()
	q, search := c.query, c.search
	if q == nil {
		c.mu.Unlock()
		return nil
	}
	key := c.cacheKey(q, search)
	req := c.lastReq.Add(1)

	entry, cached := c.ledger.Get(key)
	if cached {
		c.state = entry.Payload
		c.err = nil
		c.searching = false
		c.version++
		if !force && c.ledger.Fresh(entry, c.ttl) {
			c.mu.Unlock()
			return nil
		}
	} else {
		c.loading = true
	}
	c.mu.Unlock()

	items, err := c.fetchPage(ctx, q, search, 0)
	if err != nil {
		c.fail(req, err)
		return err
	}

	c.apply(req, key, PageState[R]{
		Items:   items,
		Page:    0,
		HasMore: len(items) == c.pageSize,
	})
	return nil
}

// LoadMore fetches the next page for the current shape and appends it to the
// accumulated items. No-op while loading or when the remote has no more rows.
func (c *Controller[R]) LoadMore(ctx context.Context) error {
	c.mu.Lock()
	q, search := c.query, c.search
	if q == nil || c.loading || !c.state.HasMore {
		c.mu.Unlock()
		return nil
	}
	key := c.cacheKey(q, search)
	base := c.state
	next := base.Page + 1
	req := c.lastReq.Add(1)
	c.loading = true
	c.mu.Unlock()

	items, err := c.fetchPage(ctx, q, search, next)
	if err != nil {
		c.fail(req, err)
		return err
	}

	merged := make([]R, 0, len(base.Items)+len(items))
	merged = append(merged, base.Items...)
	merged = append(merged, items...)

	c.apply(req, key, PageState[R]{
		Items:   merged,
		Page:    next,
		HasMore: len(items) == c.pageSize,
	})
	return nil
}

// Invalidate drops every cached shape so the next sync must revalidate.
// Displayed items are kept until that sync lands.
func (c *Controller[R]) Invalidate() {
	c.ledger.Reset()
}

// Reset clears cached pages and in-memory state. Registered with the identity
// resolver so sign-out wipes per-user data; also satisfies cache.Flusher.
func (c *Controller[R]) Reset() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.timer != nil {
		c.timer.Stop()
	}
	c.ledger.Reset()
	c.state = PageState[R]{}
	c.search = ""
	c.pending = ""
	c.loading = false
	c.searching = false
	c.err = nil
	c.version++
	// Orphan any in-flight fetch so its result is discarded on arrival.
	c.lastReq.Add(1)
}

// Snapshot returns a copy of the current state.
func (c *Controller[R]) Snapshot() View[R] {
	c.mu.Lock()
	defer c.mu.Unlock()
	items := make([]R, len(c.state.Items))
	copy(items, c.state.Items)
	return View[R]{
		Items:     items,
		Page:      c.state.Page,
		HasMore:   c.state.HasMore,
		Loading:   c.loading,
		Searching: c.searching,
		Version:   c.version,
		Err:       c.err,
	}
}

func (c *Controller[R]) fetchPage(ctx context.Context, q Query, search string, page int) ([]R, error) {
	flightKey := c.cacheKey(q, search) + "|p=" + strconv.Itoa(page)
	v, err, _ := c.group.Do(flightKey, func() (interface{}, error) {
		return c.fetch(ctx, q, search, page, c.pageSize)
	})
	if err != nil {
		return nil, err
	}
	items, _ := v.([]R)
	return items, nil
}

// apply installs a fetched state unless a newer request has superseded req.
func (c *Controller[R]) apply(req uint64, key string, state PageState[R]) {
	if req != c.lastReq.Load() {
		return
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	if req != c.lastReq.Load() {
		return
	}
	c.loading = false
	c.searching = false
	c.err = nil
	c.state = state
	c.version++
	c.ledger.Set(key, state)
}

// fail records a transport error, keeping whatever items were displayed.
func (c *Controller[R]) fail(req uint64, err error) {
	c.log.Warn("list sync failed", zap.String("list", c.name), zap.Error(err))
	if req != c.lastReq.Load() {
		return
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	c.loading = false
	c.searching = false
	c.err = err
}

func (c *Controller[R]) cacheKey(q Query, search string) string {
	return c.name + "|" + q.Key() + "|q=" + search
}
