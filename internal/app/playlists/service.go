package playlists

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/samber/lo"

	"tunedeck/internal/models"
	"tunedeck/internal/store"
)

var (
	// ErrForbidden is returned when the caller does not own the playlist.
	ErrForbidden = errors.New("forbidden")
	// ErrInvalidPlaylist rejects playlists without a usable name.
	ErrInvalidPlaylist = errors.New("playlist name is required")
	// ErrNotFound is returned for unknown playlist ids.
	ErrNotFound = store.ErrPlaylistNotFound
)

// UnknownTracksError lists track ids absent from the catalogue.
type UnknownTracksError struct {
	IDs []models.TrackID
}

func (e *UnknownTracksError) Error() string {
	parts := lo.Map(e.IDs, func(id models.TrackID, _ int) string { return id.String() })
	return "Unknown track ids: [" + strings.Join(parts, ", ") + "]"
}

// Store captures the persistence needs for playlist workflows.
type Store interface {
	ListPlaylists(ctx context.Context, ownerID int64) ([]models.Playlist, error)
	GetPlaylist(ctx context.Context, id int64) (models.Playlist, error)
	CreatePlaylist(ctx context.Context, playlist models.Playlist) (models.Playlist, error)
	UpdatePlaylist(ctx context.Context, playlist models.Playlist) (models.Playlist, error)
	DeletePlaylist(ctx context.Context, id int64) error
	TracksByIDs(ctx context.Context, ids []models.TrackID) (map[models.TrackID]models.Track, error)
}

// Changes carries a partial update. Nil fields are left untouched.
type Changes struct {
	Name   *string
	Tracks models.TrackIDs
	// SetTracks distinguishes an explicit empty list from an absent one.
	SetTracks bool
}

// Service coordinates playlist-related operations.
type Service interface {
	List(ctx context.Context, ownerID int64) ([]models.PlaylistDetail, error)
	Get(ctx context.Context, ownerID, id int64) (models.PlaylistDetail, error)
	Create(ctx context.Context, ownerID int64, name string, tracks models.TrackIDs) (models.PlaylistDetail, error)
	Update(ctx context.Context, ownerID, id int64, changes Changes) (models.PlaylistDetail, error)
	Delete(ctx context.Context, ownerID, id int64) error
}

type service struct {
	store Store
}

// New constructs a Service backed by the provided Store.
func New(store Store) Service {
	return &service{store: store}
}

func (s *service) List(ctx context.Context, ownerID int64) ([]models.PlaylistDetail, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	owned, err := s.store.ListPlaylists(ctx, ownerID)
	if err != nil {
		return nil, err
	}

	var ids []models.TrackID
	for _, p := range owned {
		ids = append(ids, p.Tracks...)
	}
	catalogue, err := s.store.TracksByIDs(ctx, lo.Uniq(ids))
	if err != nil {
		return nil, fmt.Errorf("expand tracks: %w", err)
	}

	details := make([]models.PlaylistDetail, 0, len(owned))
	for _, p := range owned {
		details = append(details, expand(p, catalogue))
	}
	return details, nil
}

func (s *service) Get(ctx context.Context, ownerID, id int64) (models.PlaylistDetail, error) {
	if err := ctx.Err(); err != nil {
		return models.PlaylistDetail{}, err
	}

	playlist, err := s.owned(ctx, ownerID, id)
	if err != nil {
		return models.PlaylistDetail{}, err
	}
	return s.detail(ctx, playlist)
}

func (s *service) Create(ctx context.Context, ownerID int64, name string, tracks models.TrackIDs) (models.PlaylistDetail, error) {
	if err := ctx.Err(); err != nil {
		return models.PlaylistDetail{}, err
	}

	name = strings.TrimSpace(name)
	if name == "" {
		return models.PlaylistDetail{}, ErrInvalidPlaylist
	}

	tracks = canonical(tracks)
	if err := s.validateTracks(ctx, tracks); err != nil {
		return models.PlaylistDetail{}, err
	}

	created, err := s.store.CreatePlaylist(ctx, models.Playlist{
		OwnerID: ownerID,
		Name:    name,
		Tracks:  tracks,
	})
	if err != nil {
		return models.PlaylistDetail{}, fmt.Errorf("create playlist: %w", err)
	}
	return s.detail(ctx, created)
}

func (s *service) Update(ctx context.Context, ownerID, id int64, changes Changes) (models.PlaylistDetail, error) {
	if err := ctx.Err(); err != nil {
		return models.PlaylistDetail{}, err
	}

	playlist, err := s.owned(ctx, ownerID, id)
	if err != nil {
		return models.PlaylistDetail{}, err
	}

	if changes.Name != nil {
		name := strings.TrimSpace(*changes.Name)
		if name == "" {
			return models.PlaylistDetail{}, ErrInvalidPlaylist
		}
		playlist.Name = name
	}
	if changes.SetTracks {
		tracks := canonical(changes.Tracks)
		if err := s.validateTracks(ctx, tracks); err != nil {
			return models.PlaylistDetail{}, err
		}
		playlist.Tracks = tracks
	}
	playlist.UpdatedAt = time.Now().UTC()

	updated, err := s.store.UpdatePlaylist(ctx, playlist)
	if err != nil {
		return models.PlaylistDetail{}, fmt.Errorf("update playlist: %w", err)
	}
	return s.detail(ctx, updated)
}

func (s *service) Delete(ctx context.Context, ownerID, id int64) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	if _, err := s.owned(ctx, ownerID, id); err != nil {
		return err
	}
	return s.store.DeletePlaylist(ctx, id)
}

func (s *service) owned(ctx context.Context, ownerID, id int64) (models.Playlist, error) {
	playlist, err := s.store.GetPlaylist(ctx, id)
	if err != nil {
		return models.Playlist{}, err
	}
	if playlist.OwnerID != ownerID {
		return models.Playlist{}, ErrForbidden
	}
	return playlist, nil
}

func (s *service) validateTracks(ctx context.Context, ids models.TrackIDs) error {
	if len(ids) == 0 {
		return nil
	}
	known, err := s.store.TracksByIDs(ctx, ids)
	if err != nil {
		return fmt.Errorf("validate tracks: %w", err)
	}
	unknown := lo.Filter([]models.TrackID(ids), func(id models.TrackID, _ int) bool {
		_, ok := known[id]
		return !ok
	})
	if len(unknown) > 0 {
		return &UnknownTracksError{IDs: unknown}
	}
	return nil
}

func (s *service) detail(ctx context.Context, playlist models.Playlist) (models.PlaylistDetail, error) {
	catalogue, err := s.store.TracksByIDs(ctx, playlist.Tracks)
	if err != nil {
		return models.PlaylistDetail{}, fmt.Errorf("expand tracks: %w", err)
	}
	return expand(playlist, catalogue), nil
}

// canonical keeps first occurrences in order.
func canonical(ids models.TrackIDs) models.TrackIDs {
	if ids == nil {
		return models.TrackIDs{}
	}
	return models.TrackIDs(lo.Uniq([]models.TrackID(ids)))
}

func expand(p models.Playlist, catalogue map[models.TrackID]models.Track) models.PlaylistDetail {
	tracks := make([]models.Track, 0, len(p.Tracks))
	for _, id := range p.Tracks {
		if t, ok := catalogue[id]; ok {
			tracks = append(tracks, t)
		}
	}
	return models.PlaylistDetail{
		ID:        p.ID,
		OwnerID:   p.OwnerID,
		Name:      p.Name,
		Tracks:    tracks,
		CreatedAt: p.CreatedAt,
		UpdatedAt: p.UpdatedAt,
	}
}
