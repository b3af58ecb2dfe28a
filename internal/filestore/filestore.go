// Package filestore persists the catalogue, accounts and playlists as flat JSON
// files in a data directory. Tracks are read-only; users and playlists are
// rewritten atomically after every mutation.
package filestore

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"sync"
	"time"

	"github.com/goccy/go-json"
	"github.com/samber/lo"

	"tunedeck/internal/models"
	"tunedeck/internal/store"
)

const (
	tracksFile    = "tracks.json"
	usersFile     = "users.json"
	playlistsFile = "playlists.json"
)

// Store keeps every record in memory and mirrors mutations to disk.
type Store struct {
	dir string

	mu        sync.RWMutex
	tracks    []models.Track
	trackByID map[models.TrackID]models.Track
	users     []models.User
	playlists []models.Playlist
	now       func() time.Time
}

// Open loads the data files from dir. tracks.json must exist; missing
// users.json or playlists.json start empty collections.
func Open(dir string) (*Store, error) {
	s := &Store{dir: dir, now: func() time.Time { return time.Now().UTC() }}

	if err := readJSON(filepath.Join(dir, tracksFile), &s.tracks); err != nil {
		return nil, fmt.Errorf("load tracks: %w", err)
	}
	if err := readJSON(filepath.Join(dir, usersFile), &s.users); err != nil && !errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("load users: %w", err)
	}
	if err := readJSON(filepath.Join(dir, playlistsFile), &s.playlists); err != nil && !errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("load playlists: %w", err)
	}

	s.trackByID = lo.KeyBy(s.tracks, func(t models.Track) models.TrackID { return t.ID })
	return s, nil
}

// Counts reports how many records were loaded.
func (s *Store) Counts() (tracks, users, playlists int) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.tracks), len(s.users), len(s.playlists)
}

// ListTracks returns the whole catalogue in file order.
func (s *Store) ListTracks(_ context.Context) ([]models.Track, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return slices.Clone(s.tracks), nil
}

// SearchTracks returns tracks whose title or artist contains query, ignoring case.
func (s *Store) SearchTracks(_ context.Context, query string) ([]models.Track, error) {
	q := strings.ToLower(query)

	s.mu.RLock()
	defer s.mu.RUnlock()
	return lo.Filter(s.tracks, func(t models.Track, _ int) bool {
		return strings.Contains(strings.ToLower(t.Title), q) || strings.Contains(strings.ToLower(t.Artist), q)
	}), nil
}

// TracksByIDs returns the known tracks among ids, keyed by id.
func (s *Store) TracksByIDs(_ context.Context, ids []models.TrackID) (map[models.TrackID]models.Track, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make(map[models.TrackID]models.Track, len(ids))
	for _, id := range ids {
		if t, ok := s.trackByID[id]; ok {
			out[id] = t
		}
	}
	return out, nil
}

// CreateUser appends a new account with the next free id.
func (s *Store) CreateUser(_ context.Context, user models.User) (models.User, error) {
	user.Email = strings.ToLower(strings.TrimSpace(user.Email))
	if user.Email == "" || user.PasswordHash == "" {
		return models.User{}, errors.New("email and password hash are required")
	}
	if user.Role == "" {
		user.Role = "user"
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.findUser(func(u models.User) bool { return strings.EqualFold(u.Email, user.Email) }); ok {
		return models.User{}, store.ErrUserExists
	}

	user.ID = 1 + lo.Max(lo.Map(s.users, func(u models.User, _ int) int64 { return u.ID }))
	s.users = append(s.users, user)
	if err := s.flush(usersFile, s.users); err != nil {
		s.users = s.users[:len(s.users)-1]
		return models.User{}, err
	}
	return user, nil
}

// UserByEmail looks an account up by its (case-insensitive) email.
func (s *Store) UserByEmail(_ context.Context, email string) (models.User, error) {
	email = strings.TrimSpace(email)

	s.mu.RLock()
	defer s.mu.RUnlock()
	if u, ok := s.findUser(func(u models.User) bool { return strings.EqualFold(u.Email, email) }); ok {
		return u, nil
	}
	return models.User{}, store.ErrUserNotFound
}

// UserByID looks an account up by id.
func (s *Store) UserByID(_ context.Context, id int64) (models.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if u, ok := s.findUser(func(u models.User) bool { return u.ID == id }); ok {
		return u, nil
	}
	return models.User{}, store.ErrUserNotFound
}

func (s *Store) findUser(match func(models.User) bool) (models.User, bool) {
	return lo.Find(s.users, match)
}

// ListPlaylists returns the playlists owned by ownerID in creation order.
func (s *Store) ListPlaylists(_ context.Context, ownerID int64) ([]models.Playlist, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]models.Playlist, 0)
	for _, p := range s.playlists {
		if p.OwnerID == ownerID {
			out = append(out, p.Clone())
		}
	}
	return out, nil
}

// GetPlaylist returns a single playlist by ID.
func (s *Store) GetPlaylist(_ context.Context, id int64) (models.Playlist, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	idx := s.playlistIndex(id)
	if idx < 0 {
		return models.Playlist{}, store.ErrPlaylistNotFound
	}
	return s.playlists[idx].Clone(), nil
}

// CreatePlaylist persists a new playlist with the next free id.
func (s *Store) CreatePlaylist(_ context.Context, playlist models.Playlist) (models.Playlist, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	playlist = playlist.Clone()
	if playlist.Tracks == nil {
		playlist.Tracks = models.TrackIDs{}
	}
	playlist.ID = 1 + lo.Max(lo.Map(s.playlists, func(p models.Playlist, _ int) int64 { return p.ID }))
	playlist.CreatedAt = s.now()
	playlist.UpdatedAt = playlist.CreatedAt

	s.playlists = append(s.playlists, playlist)
	if err := s.flush(playlistsFile, s.playlists); err != nil {
		s.playlists = s.playlists[:len(s.playlists)-1]
		return models.Playlist{}, err
	}
	return playlist.Clone(), nil
}

// UpdatePlaylist overwrites the name and membership of an existing playlist.
func (s *Store) UpdatePlaylist(_ context.Context, playlist models.Playlist) (models.Playlist, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	idx := s.playlistIndex(playlist.ID)
	if idx < 0 {
		return models.Playlist{}, store.ErrPlaylistNotFound
	}

	previous := s.playlists[idx]
	updated := previous.Clone()
	updated.Name = playlist.Name
	updated.Tracks = playlist.Tracks.Clone()
	if updated.Tracks == nil {
		updated.Tracks = models.TrackIDs{}
	}
	updated.UpdatedAt = s.now()

	s.playlists[idx] = updated
	if err := s.flush(playlistsFile, s.playlists); err != nil {
		s.playlists[idx] = previous
		return models.Playlist{}, err
	}
	return updated.Clone(), nil
}

// DeletePlaylist removes a playlist.
func (s *Store) DeletePlaylist(_ context.Context, id int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	idx := s.playlistIndex(id)
	if idx < 0 {
		return store.ErrPlaylistNotFound
	}

	previous := s.playlists
	s.playlists = slices.Delete(slices.Clone(s.playlists), idx, idx+1)
	if err := s.flush(playlistsFile, s.playlists); err != nil {
		s.playlists = previous
		return err
	}
	return nil
}

func (s *Store) playlistIndex(id int64) int {
	return slices.IndexFunc(s.playlists, func(p models.Playlist) bool { return p.ID == id })
}

// flush writes v to name through a temporary file so readers never observe a partial document.
func (s *Store) flush(name string, v any) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("encode %s: %w", name, err)
	}

	tmp, err := os.CreateTemp(s.dir, name+".*.tmp")
	if err != nil {
		return fmt.Errorf("create temp file: %w", err)
	}
	defer os.Remove(tmp.Name())

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return fmt.Errorf("write %s: %w", name, err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("close %s: %w", name, err)
	}
	if err := os.Rename(tmp.Name(), filepath.Join(s.dir, name)); err != nil {
		return fmt.Errorf("replace %s: %w", name, err)
	}
	return nil
}

func readJSON(path string, v any) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return err
	}
	if err := json.Unmarshal(data, v); err != nil {
		return fmt.Errorf("decode %s: %w", filepath.Base(path), err)
	}
	return nil
}
