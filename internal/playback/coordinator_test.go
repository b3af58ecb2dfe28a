package playback

import (
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"tunedeck/internal/models"
)

// leakyHandle keeps observers after detach so stale notifications can be fired.
type leakyHandle struct {
	playing   bool
	observers []func()
}

func (h *leakyHandle) Playing() bool { return h.playing }
func (h *leakyHandle) Pause()        { h.playing = false }

func (h *leakyHandle) OnPlay(fn func()) func() {
	h.observers = append(h.observers, fn)
	return func() {}
}

func (h *leakyHandle) play() {
	h.playing = true
	for _, fn := range h.observers {
		fn()
	}
}

func newCoordinator() *Coordinator {
	return NewCoordinator(zerolog.Nop())
}

func TestStartingOneHandlePausesTheOthers(t *testing.T) {
	c := newCoordinator()
	elements := map[models.TrackID]*Element{}
	for id := models.TrackID(1); id <= 4; id++ {
		elements[id] = NewElement("")
		c.Register(id, elements[id])
	}

	elements[1].Play()
	elements[3].Play()

	assert.False(t, elements[1].Playing())
	assert.True(t, elements[3].Playing())
	active, ok := c.Active()
	require.True(t, ok)
	assert.Equal(t, models.TrackID(3), active)

	elements[2].Play()
	playing := 0
	for _, e := range elements {
		if e.Playing() {
			playing++
		}
	}
	assert.Equal(t, 1, playing)
	assert.True(t, elements[2].Playing())
}

func TestRemovedHandleNoLongerCoordinates(t *testing.T) {
	c := newCoordinator()
	a, b := NewElement(""), NewElement("")
	c.Register(1, a)
	c.Register(2, b)

	b.Play()
	c.Register(1, nil)
	assert.Zero(t, a.Observers())

	a.Play()
	assert.True(t, b.Playing(), "removed handle must not pause registered ones")
	assert.Equal(t, 1, c.Len())
}

func TestStaleObserverIsNoOp(t *testing.T) {
	c := newCoordinator()
	stale := &leakyHandle{}
	other := NewElement("")
	c.Register(1, stale)
	c.Register(2, other)

	other.Play()
	c.Register(1, nil)
	stale.play()

	assert.True(t, other.Playing())
	active, ok := c.Active()
	require.True(t, ok)
	assert.Equal(t, models.TrackID(2), active)
}

func TestReRegistrationReplacesObserver(t *testing.T) {
	c := newCoordinator()
	first, second, other := NewElement(""), NewElement(""), NewElement("")
	c.Register(1, first)
	c.Register(1, first)
	assert.Equal(t, 1, first.Observers(), "same handle twice must not stack observers")

	c.Register(1, second)
	c.Register(2, other)
	assert.Zero(t, first.Observers())
	assert.Equal(t, 1, second.Observers())
	assert.Equal(t, 2, c.Len())

	other.Play()
	first.Play()
	assert.True(t, other.Playing(), "replaced handle must not coordinate")

	second.Play()
	assert.False(t, other.Playing())
}

func TestActiveClearsWhenHandleRemoved(t *testing.T) {
	c := newCoordinator()
	e := NewElement("")
	c.Register(5, e)

	_, ok := c.Active()
	assert.False(t, ok)

	e.Play()
	active, ok := c.Active()
	require.True(t, ok)
	assert.Equal(t, models.TrackID(5), active)

	c.Register(5, nil)
	_, ok = c.Active()
	assert.False(t, ok)

	c.Register(99, nil)
	assert.Zero(t, c.Len())
}

func TestActiveClearsWhenPausedElsewhere(t *testing.T) {
	c := newCoordinator()
	e := NewElement("")
	c.Register(5, e)

	e.Play()
	_, ok := c.Active()
	require.True(t, ok)

	e.Pause()
	_, ok = c.Active()
	assert.False(t, ok, "a paused handle is not active")

	e.Play()
	active, ok := c.Active()
	require.True(t, ok)
	assert.Equal(t, models.TrackID(5), active)
}
