package catalog

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"tunedeck/internal/models"
	"tunedeck/internal/playback"
)

var catalogue = []models.Track{
	{ID: 1, Title: "So What", Artist: "Miles Davis"},
	{ID: 2, Title: "Naima", Artist: "John Coltrane"},
	{ID: 3, Title: "Blue in Green", Artist: "Miles Davis"},
}

type fakeSearcher struct {
	mu      sync.Mutex
	queries []string
	err     error
	// blocked queries wait on their channel before answering.
	blocked map[string]chan struct{}
}

func (f *fakeSearcher) Tracks(ctx context.Context) ([]models.Track, error) {
	return f.Search(ctx, "")
}

func (f *fakeSearcher) Search(_ context.Context, q string) ([]models.Track, error) {
	f.mu.Lock()
	f.queries = append(f.queries, q)
	gate := f.blocked[q]
	err := f.err
	f.mu.Unlock()

	if gate != nil {
		<-gate
	}
	if err != nil {
		return nil, err
	}
	var out []models.Track
	for _, t := range catalogue {
		if strings.Contains(strings.ToLower(t.Title+" "+t.Artist), q) {
			out = append(out, t)
		}
	}
	return out, nil
}

func (f *fakeSearcher) seen() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.queries...)
}

func visibleIDs(b *Browser) []models.TrackID {
	var ids []models.TrackID
	for _, t := range b.Visible() {
		ids = append(ids, t.ID)
	}
	return ids
}

func TestSubmitReconcilesRegistry(t *testing.T) {
	coordinator := playback.NewCoordinator(zerolog.Nop())
	b := NewBrowser(&fakeSearcher{}, coordinator)
	defer b.Close()
	ctx := context.Background()

	_, err := b.Submit(ctx, "")
	require.NoError(t, err)
	assert.Equal(t, 3, coordinator.Len())
	kept, ok := b.Handle(3)
	require.True(t, ok)

	_, err = b.Submit(ctx, "Miles")
	require.NoError(t, err)
	assert.Equal(t, []models.TrackID{1, 3}, visibleIDs(b))
	assert.Equal(t, 2, coordinator.Len())

	_, ok = b.Handle(2)
	assert.False(t, ok)
	again, ok := b.Handle(3)
	require.True(t, ok)
	assert.Same(t, kept, again, "still-visible tracks keep their handle")

	b.Close()
	assert.Zero(t, coordinator.Len())
}

func TestVisibleHandlesPlayOneAtATime(t *testing.T) {
	coordinator := playback.NewCoordinator(zerolog.Nop())
	b := NewBrowser(&fakeSearcher{}, coordinator)
	defer b.Close()

	_, err := b.Submit(context.Background(), "")
	require.NoError(t, err)

	h1, _ := b.Handle(1)
	h2, _ := b.Handle(2)
	h1.(*playback.Element).Play()
	h2.(*playback.Element).Play()
	assert.False(t, h1.Playing())
	assert.True(t, h2.Playing())
}

func TestSetQueryDebounces(t *testing.T) {
	searcher := &fakeSearcher{}
	b := NewBrowser(searcher, playback.NewCoordinator(zerolog.Nop()), WithDebounce(20*time.Millisecond))
	defer b.Close()

	results := make(chan Result, 4)
	b.OnResult(func(r Result) { results <- r })

	b.SetQuery("n")
	b.SetQuery("na")
	b.SetQuery("nai")

	select {
	case r := <-results:
		require.NoError(t, r.Err)
		assert.Equal(t, "nai", r.Query)
		require.Len(t, r.Tracks, 1)
	case <-time.After(2 * time.Second):
		t.Fatal("debounced search never ran")
	}
	assert.Equal(t, []string{"nai"}, searcher.seen())
}

func TestStaleResultsAreDropped(t *testing.T) {
	release := make(chan struct{})
	searcher := &fakeSearcher{blocked: map[string]chan struct{}{"miles": release}}
	b := NewBrowser(searcher, playback.NewCoordinator(zerolog.Nop()))
	defer b.Close()
	ctx := context.Background()

	done := make(chan error, 1)
	go func() {
		_, err := b.Submit(ctx, "miles")
		done <- err
	}()
	require.Eventually(t, func() bool { return len(searcher.seen()) == 1 }, time.Second, 5*time.Millisecond)

	_, err := b.Submit(ctx, "naima")
	require.NoError(t, err)
	close(release)

	assert.ErrorIs(t, <-done, ErrStale)
	assert.Equal(t, []models.TrackID{2}, visibleIDs(b))
}

func TestResultsAreCached(t *testing.T) {
	searcher := &fakeSearcher{}
	b := NewBrowser(searcher, playback.NewCoordinator(zerolog.Nop()))
	defer b.Close()
	ctx := context.Background()

	_, err := b.Submit(ctx, "Miles")
	require.NoError(t, err)
	_, err = b.Submit(ctx, " miles ")
	require.NoError(t, err)
	assert.Len(t, searcher.seen(), 1)

	_, err = b.Refresh(ctx)
	require.NoError(t, err)
	assert.Len(t, searcher.seen(), 2)
}

func TestSearchFailureKeepsVisibleList(t *testing.T) {
	searcher := &fakeSearcher{}
	b := NewBrowser(searcher, playback.NewCoordinator(zerolog.Nop()))
	defer b.Close()
	ctx := context.Background()

	_, err := b.Submit(ctx, "")
	require.NoError(t, err)

	searcher.mu.Lock()
	searcher.err = errors.New("Service Unavailable")
	searcher.mu.Unlock()

	_, err = b.Submit(ctx, "coltrane")
	require.Error(t, err)
	assert.Len(t, b.Visible(), 3)
}
