package playback

import (
	"sync"
)

// Element is an in-process Handle for headless clients. It only tracks state;
// nothing is decoded or played.
type Element struct {
	mu        sync.Mutex
	src       string
	playing   bool
	observers map[int]func()
	nextID    int
}

// NewElement returns a paused Element for the preview at src.
func NewElement(src string) *Element {
	return &Element{src: src, observers: make(map[int]func())}
}

// Src is the preview location.
func (e *Element) Src() string {
	return e.src
}

// Play starts playback and notifies observers synchronously. Playing an
// element that is already playing does not notify again.
func (e *Element) Play() {
	e.mu.Lock()
	if e.playing {
		e.mu.Unlock()
		return
	}
	e.playing = true
	fns := make([]func(), 0, len(e.observers))
	for id := 0; id < e.nextID; id++ {
		if fn, ok := e.observers[id]; ok {
			fns = append(fns, fn)
		}
	}
	e.mu.Unlock()

	for _, fn := range fns {
		fn()
	}
}

func (e *Element) Pause() {
	e.mu.Lock()
	e.playing = false
	e.mu.Unlock()
}

func (e *Element) Playing() bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.playing
}

func (e *Element) OnPlay(fn func()) func() {
	e.mu.Lock()
	id := e.nextID
	e.nextID++
	e.observers[id] = fn
	e.mu.Unlock()

	var once sync.Once
	return func() {
		once.Do(func() {
			e.mu.Lock()
			delete(e.observers, id)
			e.mu.Unlock()
		})
	}
}

// Observers is the number of attached play observers.
func (e *Element) Observers() int {
	e.mu.Lock()
	defer e.mu.Unlock()
	return len(e.observers)
}
