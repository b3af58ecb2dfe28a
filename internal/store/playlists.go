package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/lib/pq"

	"tunedeck/internal/models"
)

const playlistColumns = `id, user_id, name, track_ids, created_at, updated_at`

// ListPlaylists returns the playlists owned by ownerID, oldest first.
func (s *Store) ListPlaylists(ctx context.Context, ownerID int64) ([]models.Playlist, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT `+playlistColumns+`
		FROM playlists
		WHERE user_id = $1
		ORDER BY id ASC`, ownerID)
	if err != nil {
		return nil, fmt.Errorf("list playlists: %w", err)
	}
	defer rows.Close()

	playlists := make([]models.Playlist, 0)
	for rows.Next() {
		playlist, err := scanPlaylist(rows)
		if err != nil {
			return nil, err
		}
		playlists = append(playlists, playlist)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate playlists: %w", err)
	}
	return playlists, nil
}

// GetPlaylist returns a single playlist by ID.
func (s *Store) GetPlaylist(ctx context.Context, id int64) (models.Playlist, error) {
	playlist, err := scanPlaylist(s.db.QueryRowContext(ctx, `
		SELECT `+playlistColumns+`
		FROM playlists
		WHERE id = $1`, id))
	if errors.Is(err, sql.ErrNoRows) {
		return models.Playlist{}, ErrPlaylistNotFound
	}
	return playlist, err
}

// CreatePlaylist persists a new playlist and returns it with its id and timestamps.
func (s *Store) CreatePlaylist(ctx context.Context, playlist models.Playlist) (models.Playlist, error) {
	now := time.Now().UTC()
	created, err := scanPlaylist(s.db.QueryRowContext(ctx, `
		INSERT INTO playlists (user_id, name, track_ids, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $4)
		RETURNING `+playlistColumns,
		playlist.OwnerID, playlist.Name, pq.Array(toInt64s(playlist.Tracks)), now))
	if err != nil {
		return models.Playlist{}, fmt.Errorf("insert playlist: %w", err)
	}
	return created, nil
}

// UpdatePlaylist overwrites the name and membership of an existing playlist.
func (s *Store) UpdatePlaylist(ctx context.Context, playlist models.Playlist) (models.Playlist, error) {
	updated, err := scanPlaylist(s.db.QueryRowContext(ctx, `
		UPDATE playlists
		SET name = $1, track_ids = $2, updated_at = $3
		WHERE id = $4
		RETURNING `+playlistColumns,
		playlist.Name, pq.Array(toInt64s(playlist.Tracks)), time.Now().UTC(), playlist.ID))
	if errors.Is(err, sql.ErrNoRows) {
		return models.Playlist{}, ErrPlaylistNotFound
	}
	if err != nil {
		return models.Playlist{}, fmt.Errorf("update playlist: %w", err)
	}
	return updated, nil
}

// DeletePlaylist removes a playlist.
func (s *Store) DeletePlaylist(ctx context.Context, id int64) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM playlists WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("delete playlist: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("rows affected: %w", err)
	}
	if affected == 0 {
		return ErrPlaylistNotFound
	}
	return nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanPlaylist(row rowScanner) (models.Playlist, error) {
	var (
		playlist models.Playlist
		trackIDs []int64
	)
	if err := row.Scan(&playlist.ID, &playlist.OwnerID, &playlist.Name, pq.Array(&trackIDs),
		&playlist.CreatedAt, &playlist.UpdatedAt); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return models.Playlist{}, err
		}
		return models.Playlist{}, fmt.Errorf("scan playlist: %w", err)
	}
	playlist.Tracks = toTrackIDs(trackIDs)
	return playlist, nil
}
