// Package catalog drives the track list: debounced search, cached results and
// keeping the playback registry in step with what is visible.
package catalog

import (
	"context"
	"errors"
	"strings"
	"sync"
	"time"

	"github.com/karlseguin/ccache/v3"
	"github.com/rs/zerolog"
	"github.com/samber/lo"

	"tunedeck/internal/models"
	"tunedeck/internal/playback"
)

var (
	// DefaultDebounce is how long SetQuery waits for typing to settle.
	DefaultDebounce = 300 * time.Millisecond
	// DefaultCacheTTL is how long a query's results are reused.
	DefaultCacheTTL = 30 * time.Second
)

var (
	// ErrStale is returned when a newer query superseded the one being fetched.
	ErrStale = errors.New("catalog: superseded by a newer query")
	// ErrClosed is returned after Close.
	ErrClosed = errors.New("catalog: browser closed")
)

// Searcher fetches tracks from the catalogue.
type Searcher interface {
	Tracks(ctx context.Context) ([]models.Track, error)
	Search(ctx context.Context, query string) ([]models.Track, error)
}

// Registry receives a handle for every visible track and nil for every track
// that stops being visible.
type Registry interface {
	Register(id models.TrackID, h playback.Handle)
}

// HandleFactory builds the playable handle for a newly visible track.
type HandleFactory func(models.Track) playback.Handle

// Result is published after each applied or failed fetch.
type Result struct {
	Query  string
	Tracks []models.Track
	Err    error
}

// Option configures a Browser.
type Option func(*Browser)

// WithDebounce sets the SetQuery quiet period.
func WithDebounce(d time.Duration) Option {
	return func(b *Browser) { b.debounce = d }
}

// WithCacheTTL sets how long results stay cached per query.
func WithCacheTTL(ttl time.Duration) Option {
	return func(b *Browser) { b.cacheTTL = ttl }
}

// WithHandleFactory replaces the default Element-backed handles.
func WithHandleFactory(f HandleFactory) Option {
	return func(b *Browser) { b.newHandle = f }
}

// WithLogger sets the logger.
func WithLogger(logger zerolog.Logger) Option {
	return func(b *Browser) { b.logger = logger }
}

// Browser is safe for concurrent use.
type Browser struct {
	searcher  Searcher
	registry  Registry
	newHandle HandleFactory
	cache     *ccache.Cache[[]models.Track]
	cacheTTL  time.Duration
	debounce  time.Duration
	logger    zerolog.Logger

	mu        sync.Mutex
	timer     *time.Timer
	gen       uint64
	query     string
	visible   []models.Track
	handles   map[models.TrackID]playback.Handle
	listeners []func(Result)
	closed    bool
}

// NewBrowser returns a Browser publishing into registry.
func NewBrowser(searcher Searcher, registry Registry, opts ...Option) *Browser {
	b := &Browser{
		searcher: searcher,
		registry: registry,
		newHandle: func(t models.Track) playback.Handle {
			return playback.NewElement(t.PreviewURL)
		},
		cacheTTL: DefaultCacheTTL,
		debounce: DefaultDebounce,
		logger:   zerolog.Nop(),
		handles:  make(map[models.TrackID]playback.Handle),
	}
	for _, opt := range opts {
		opt(b)
	}
	b.cache = ccache.New(
		ccache.Configure[[]models.Track]().
			MaxSize(200).
			GetsPerPromote(3).
			ItemsToPrune(10),
	)
	b.logger = b.logger.With().Str("component", "catalog").Logger()
	return b
}

// OnResult registers fn to run after every fetch.
func (b *Browser) OnResult(fn func(Result)) {
	b.mu.Lock()
	b.listeners = append(b.listeners, fn)
	b.mu.Unlock()
}

// SetQuery schedules a fetch for query once typing pauses for the debounce
// interval. Each call restarts the interval.
func (b *Browser) SetQuery(query string) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.closed {
		return
	}

	b.gen++
	gen := b.gen
	b.query = query
	if b.timer != nil {
		b.timer.Stop()
	}
	b.timer = time.AfterFunc(b.debounce, func() {
		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()
		_, _ = b.fetch(ctx, gen, query)
	})
}

// Submit fetches query immediately and publishes the result.
func (b *Browser) Submit(ctx context.Context, query string) ([]models.Track, error) {
	b.mu.Lock()
	if b.closed {
		b.mu.Unlock()
		return nil, ErrClosed
	}
	b.gen++
	gen := b.gen
	b.query = query
	if b.timer != nil {
		b.timer.Stop()
	}
	b.mu.Unlock()

	return b.fetch(ctx, gen, query)
}

// Refresh re-runs the current query, bypassing the cache.
func (b *Browser) Refresh(ctx context.Context) ([]models.Track, error) {
	b.mu.Lock()
	query, closed := b.query, b.closed
	b.mu.Unlock()
	if closed {
		return nil, ErrClosed
	}

	b.cache.Delete(cacheKey(query))
	return b.Submit(ctx, query)
}

func (b *Browser) fetch(ctx context.Context, gen uint64, query string) ([]models.Track, error) {
	key := cacheKey(query)
	item, err := b.cache.Fetch(key, b.cacheTTL, func() ([]models.Track, error) {
		if key == "" {
			return b.searcher.Tracks(ctx)
		}
		return b.searcher.Search(ctx, key)
	})

	b.mu.Lock()
	if gen != b.gen {
		b.mu.Unlock()
		b.logger.Debug().Str("query", query).Msg("dropped stale results")
		return nil, ErrStale
	}
	if err != nil {
		listeners := b.listeners
		b.mu.Unlock()
		b.logger.Warn().Err(err).Str("query", query).Msg("search failed")
		publish(listeners, Result{Query: query, Err: err})
		return nil, err
	}

	tracks := item.Value()
	b.reconcile(tracks)
	b.visible = tracks
	listeners := b.listeners
	b.mu.Unlock()

	publish(listeners, Result{Query: query, Tracks: tracks})
	return tracks, nil
}

// reconcile registers handles for newly visible tracks and releases the rest.
// Callers hold b.mu.
func (b *Browser) reconcile(tracks []models.Track) {
	next := lo.KeyBy(tracks, func(t models.Track) models.TrackID { return t.ID })

	for id := range b.handles {
		if _, ok := next[id]; !ok {
			delete(b.handles, id)
			b.registry.Register(id, nil)
		}
	}
	for _, t := range tracks {
		if _, ok := b.handles[t.ID]; ok {
			continue
		}
		h := b.newHandle(t)
		b.handles[t.ID] = h
		b.registry.Register(t.ID, h)
	}
}

// Visible is the most recently applied track list.
func (b *Browser) Visible() []models.Track {
	b.mu.Lock()
	defer b.mu.Unlock()
	return append([]models.Track(nil), b.visible...)
}

// Handle returns the handle registered for a visible track.
func (b *Browser) Handle(id models.TrackID) (playback.Handle, bool) {
	b.mu.Lock()
	defer b.mu.Unlock()
	h, ok := b.handles[id]
	return h, ok
}

// Close cancels any pending search and releases every handle.
func (b *Browser) Close() {
	b.mu.Lock()
	if b.closed {
		b.mu.Unlock()
		return
	}
	b.closed = true
	b.gen++
	if b.timer != nil {
		b.timer.Stop()
	}
	b.reconcile(nil)
	b.visible = nil
	b.mu.Unlock()
	b.cache.Stop()
}

func cacheKey(query string) string {
	return strings.ToLower(strings.TrimSpace(query))
}

func publish(listeners []func(Result), r Result) {
	for _, fn := range listeners {
		fn(r)
	}
}
