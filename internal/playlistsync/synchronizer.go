// Package playlistsync keeps a user's playlists in memory and toggles track
// membership optimistically against the playlist API.
package playlistsync

import (
	"context"
	"strings"
	"sync"

	"github.com/rs/zerolog"
	"github.com/samber/lo"

	"tunedeck/internal/models"
)

// API is the remote playlist collaborator. Every call carries the ambient
// session credential.
type API interface {
	ListPlaylists(ctx context.Context) ([]models.Playlist, error)
	CreatePlaylist(ctx context.Context, name string, tracks models.TrackIDs) (models.Playlist, error)
	UpdatePlaylist(ctx context.Context, id int64, name string, tracks models.TrackIDs) (models.Playlist, error)
	DeletePlaylist(ctx context.Context, id int64) error
}

// Session reports the signed-in user, if any.
type Session interface {
	CurrentUser() (models.PublicUser, bool)
}

// Membership is a playlist seen from one track.
type Membership struct {
	Playlist models.Playlist
	Member   bool
	Busy     bool
}

// LoadOption tunes Load.
type LoadOption func(*loadOptions)

type loadOptions struct {
	discardStale bool
}

// DiscardStale drops previously loaded playlists when the fetch fails.
func DiscardStale() LoadOption {
	return func(o *loadOptions) { o.discardStale = true }
}

// Synchronizer is safe for concurrent use. Network calls run without the lock
// held, so toggles on different playlists proceed independently.
type Synchronizer struct {
	api     API
	session Session
	logger  zerolog.Logger

	mu        sync.Mutex
	playlists []models.Playlist
	busy      map[int64]bool
	creating  bool
	draft     string
	selected  int64
	notice    string
}

// New returns an empty Synchronizer.
func New(api API, session Session, logger zerolog.Logger) *Synchronizer {
	return &Synchronizer{
		api:     api,
		session: session,
		logger:  logger.With().Str("component", "playlistsync").Logger(),
		busy:    make(map[int64]bool),
	}
}

// Load replaces the in-memory playlists with the ones owned by the current
// user. Without a user it clears the set and makes no call.
func (s *Synchronizer) Load(ctx context.Context, opts ...LoadOption) error {
	var o loadOptions
	for _, opt := range opts {
		opt(&o)
	}

	if _, ok := s.session.CurrentUser(); !ok {
		s.mu.Lock()
		s.playlists = nil
		s.selected = 0
		s.mu.Unlock()
		return nil
	}

	fetched, err := s.api.ListPlaylists(ctx)
	if err != nil {
		loadErr := &LoadError{newFailure("load playlists", err)}
		s.mu.Lock()
		if o.discardStale {
			s.playlists = nil
		}
		s.notice = "Failed to load playlists: " + loadErr.Detail
		s.mu.Unlock()
		s.logger.Warn().Err(err).Msg("load failed")
		return loadErr
	}

	s.mu.Lock()
	s.playlists = lo.Map(fetched, func(p models.Playlist, _ int) models.Playlist { return p.Clone() })
	s.notice = ""
	s.mu.Unlock()
	return nil
}

// SetDraft records the pending new-playlist name.
func (s *Synchronizer) SetDraft(name string) {
	s.mu.Lock()
	s.draft = name
	s.mu.Unlock()
}

// Draft is the pending new-playlist name.
func (s *Synchronizer) Draft() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.draft
}

// Create sends a new empty playlist named name. A blank name or a create
// already in flight is a no-op and returns the zero Playlist.
func (s *Synchronizer) Create(ctx context.Context, name string) (models.Playlist, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return models.Playlist{}, nil
	}

	s.mu.Lock()
	if s.creating {
		s.mu.Unlock()
		return models.Playlist{}, nil
	}
	s.creating = true
	s.mu.Unlock()

	created, err := s.api.CreatePlaylist(ctx, name, models.TrackIDs{})

	s.mu.Lock()
	defer s.mu.Unlock()
	s.creating = false
	if err != nil {
		createErr := &CreateError{newFailure("create playlist", err)}
		s.notice = "Failed to create playlist: " + createErr.Detail
		s.logger.Warn().Err(err).Str("name", name).Msg("create failed")
		return models.Playlist{}, createErr
	}

	s.playlists = append([]models.Playlist{created.Clone()}, s.playlists...)
	s.draft = ""
	s.notice = ""
	return created, nil
}

// Toggle flips trackID's membership in the playlist. The change is visible
// immediately and reverted to the exact prior playlist if the update fails.
// A toggle on a playlist that already has one in flight, or on an unknown
// playlist, is dropped and reports Idle.
func (s *Synchronizer) Toggle(ctx context.Context, playlistID int64, trackID models.TrackID) (State, error) {
	s.mu.Lock()
	idx := s.indexOf(playlistID)
	if idx < 0 || s.busy[playlistID] {
		s.mu.Unlock()
		return Idle, nil
	}
	s.busy[playlistID] = true
	txn := newToggleTxn(s.playlists[idx], trackID)
	s.playlists[idx] = txn.optimistic()
	s.mu.Unlock()

	updated, err := s.api.UpdatePlaylist(ctx, playlistID, txn.snapshot.Name, txn.target.Clone())

	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.busy, playlistID)

	if err != nil {
		restored := txn.revert()
		if i := s.indexOf(playlistID); i >= 0 {
			s.playlists[i] = restored
		}
		updateErr := &UpdateError{newFailure("update playlist", err)}
		s.notice = "Failed to update playlist: " + updateErr.Detail
		s.logger.Warn().Err(err).
			Int64("playlist_id", playlistID).
			Stringer("track_id", trackID).
			Msg("toggle rolled back")
		return txn.state, updateErr
	}

	txn.commit()
	if i := s.indexOf(playlistID); i >= 0 {
		s.playlists[i] = updated.Clone()
	}
	s.notice = ""
	return txn.state, nil
}

// Rename applies newName after the server accepts it.
func (s *Synchronizer) Rename(ctx context.Context, playlistID int64, newName string) error {
	newName = strings.TrimSpace(newName)
	if newName == "" {
		return nil
	}

	s.mu.Lock()
	idx := s.indexOf(playlistID)
	if idx < 0 {
		s.mu.Unlock()
		return nil
	}
	tracks := s.playlists[idx].Tracks.Clone()
	s.mu.Unlock()

	updated, err := s.api.UpdatePlaylist(ctx, playlistID, newName, tracks)

	s.mu.Lock()
	defer s.mu.Unlock()
	if err != nil {
		updateErr := &UpdateError{newFailure("rename playlist", err)}
		s.notice = "Failed to rename playlist: " + updateErr.Detail
		return updateErr
	}
	if i := s.indexOf(playlistID); i >= 0 {
		s.playlists[i] = updated.Clone()
	}
	s.notice = ""
	return nil
}

// Remove deletes the playlist remotely, then locally. The selection is
// cleared when it pointed at the removed playlist.
func (s *Synchronizer) Remove(ctx context.Context, playlistID int64) error {
	if err := s.api.DeletePlaylist(ctx, playlistID); err != nil {
		deleteErr := &DeleteError{newFailure("delete playlist", err)}
		s.mu.Lock()
		s.notice = "Failed to delete playlist: " + deleteErr.Detail
		s.mu.Unlock()
		return deleteErr
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.playlists = lo.Reject(s.playlists, func(p models.Playlist, _ int) bool { return p.ID == playlistID })
	if s.selected == playlistID {
		s.selected = 0
	}
	s.notice = ""
	return nil
}

// Select marks a playlist as the active selection. Zero clears it.
func (s *Synchronizer) Select(playlistID int64) {
	s.mu.Lock()
	s.selected = playlistID
	s.mu.Unlock()
}

// Selected returns the active selection, if any.
func (s *Synchronizer) Selected() (models.Playlist, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if i := s.indexOf(s.selected); i >= 0 {
		return s.playlists[i].Clone(), true
	}
	return models.Playlist{}, false
}

// Playlists returns a copy of the in-memory playlists in display order.
func (s *Synchronizer) Playlists() []models.Playlist {
	s.mu.Lock()
	defer s.mu.Unlock()
	return lo.Map(s.playlists, func(p models.Playlist, _ int) models.Playlist { return p.Clone() })
}

// Memberships lists every playlist with trackID's membership and whether a
// toggle on it is in flight.
func (s *Synchronizer) Memberships(trackID models.TrackID) []Membership {
	s.mu.Lock()
	defer s.mu.Unlock()
	return lo.Map(s.playlists, func(p models.Playlist, _ int) Membership {
		return Membership{
			Playlist: p.Clone(),
			Member:   p.Tracks.Contains(trackID),
			Busy:     s.busy[p.ID],
		}
	})
}

// Notice is the last user-facing error message, empty after a success.
func (s *Synchronizer) Notice() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.notice
}

func (s *Synchronizer) indexOf(playlistID int64) int {
	_, idx, _ := lo.FindIndexOf(s.playlists, func(p models.Playlist) bool { return p.ID == playlistID })
	return idx
}
