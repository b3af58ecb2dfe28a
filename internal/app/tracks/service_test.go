package tracks

import (
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"tunedeck/internal/models"
)

type stubStore struct {
	tracks []models.Track
}

func (s stubStore) ListTracks(context.Context) ([]models.Track, error) { return s.tracks, nil }

func (s stubStore) SearchTracks(_ context.Context, q string) ([]models.Track, error) {
	var out []models.Track
	for _, t := range s.tracks {
		if strings.Contains(strings.ToLower(t.Title), strings.ToLower(q)) {
			out = append(out, t)
		}
	}
	return out, nil
}

func (s stubStore) TracksByIDs(context.Context, []models.TrackID) (map[models.TrackID]models.Track, error) {
	return nil, nil
}

func TestSearchDelegates(t *testing.T) {
	svc := New(stubStore{tracks: []models.Track{{ID: 1, Title: "So What"}, {ID: 2, Title: "Naima"}}})

	all, err := svc.List(context.Background())
	require.NoError(t, err)
	assert.Len(t, all, 2)

	hits, err := svc.Search(context.Background(), "what")
	require.NoError(t, err)
	require.Len(t, hits, 1)
	assert.Equal(t, models.TrackID(1), hits[0].ID)
}
