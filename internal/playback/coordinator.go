// Package playback keeps at most one registered preview handle playing.
package playback

import (
	"sync"

	"github.com/rs/zerolog"

	"tunedeck/internal/models"
)

// Handle is a playable media resource.
type Handle interface {
	Playing() bool
	Pause()
	// OnPlay registers fn to run synchronously whenever playback starts.
	OnPlay(fn func()) (detach func())
}

type entry struct {
	handle Handle
	detach func()
}

// Coordinator owns the registry of visible handles. It is scoped to the view
// that renders the track list; create one per list.
type Coordinator struct {
	mu      sync.Mutex
	entries map[models.TrackID]*entry
	active  models.TrackID
	playing bool
	logger  zerolog.Logger
}

// NewCoordinator returns an empty Coordinator.
func NewCoordinator(logger zerolog.Logger) *Coordinator {
	return &Coordinator{
		entries: make(map[models.TrackID]*entry),
		logger:  logger.With().Str("component", "playback").Logger(),
	}
}

// Register associates id with h, replacing any previous handle for id. A nil
// h removes the association.
func (c *Coordinator) Register(id models.TrackID, h Handle) {
	c.mu.Lock()
	prev := c.entries[id]
	delete(c.entries, id)
	if h == nil && c.active == id {
		c.playing = false
	}

	var e *entry
	if h != nil {
		e = &entry{handle: h}
		c.entries[id] = e
	}
	c.mu.Unlock()

	if prev != nil && prev.detach != nil {
		prev.detach()
	}
	if e == nil {
		return
	}

	detach := h.OnPlay(func() { c.started(id, e) })
	c.mu.Lock()
	if c.entries[id] == e {
		e.detach = detach
		c.mu.Unlock()
		return
	}
	c.mu.Unlock()
	// Replaced while attaching.
	detach()
}

// started runs inside the handle's play notification.
func (c *Coordinator) started(id models.TrackID, e *entry) {
	c.mu.Lock()
	if c.entries[id] != e {
		c.mu.Unlock()
		return
	}
	c.active = id
	c.playing = true

	others := make([]Handle, 0, len(c.entries))
	for otherID, other := range c.entries {
		if otherID == id || other.handle == e.handle {
			continue
		}
		others = append(others, other.handle)
	}
	c.mu.Unlock()

	paused := 0
	for _, h := range others {
		if h.Playing() {
			h.Pause()
			paused++
		}
	}
	if paused > 0 {
		c.logger.Debug().Stringer("track_id", id).Int("paused", paused).Msg("paused other previews")
	}
}

// Active reports the track whose handle most recently started playing, while
// that handle is still registered and still playing.
func (c *Coordinator) Active() (models.TrackID, bool) {
	c.mu.Lock()
	id, playing := c.active, c.playing
	e, ok := c.entries[id]
	c.mu.Unlock()

	// Playing is asked outside the lock; handles may call back into the coordinator.
	if !playing || !ok || !e.handle.Playing() {
		return 0, false
	}
	return id, true
}

// Len is the number of registered handles.
func (c *Coordinator) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.entries)
}
