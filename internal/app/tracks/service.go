package tracks

import (
	"context"

	"tunedeck/internal/models"
)

// Store captures the catalogue queries.
type Store interface {
	ListTracks(ctx context.Context) ([]models.Track, error)
	SearchTracks(ctx context.Context, query string) ([]models.Track, error)
	TracksByIDs(ctx context.Context, ids []models.TrackID) (map[models.TrackID]models.Track, error)
}

// Service exposes the read-only catalogue.
type Service interface {
	List(ctx context.Context) ([]models.Track, error)
	Search(ctx context.Context, query string) ([]models.Track, error)
}

type service struct {
	store Store
}

// New constructs a Service backed by the provided Store.
func New(store Store) Service {
	return &service{store: store}
}

func (s *service) List(ctx context.Context) ([]models.Track, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return s.store.ListTracks(ctx)
}

func (s *service) Search(ctx context.Context, query string) ([]models.Track, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return s.store.SearchTracks(ctx, query)
}
