package store

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/lib/pq"
	"github.com/samber/lo"

	"tunedeck/internal/models"
)

const trackColumns = `id, title, artist, COALESCE(album, ''), COALESCE(duration_seconds, 0), preview_file`

// ListTracks returns the whole catalogue ordered by id.
func (s *Store) ListTracks(ctx context.Context) ([]models.Track, error) {
	return s.queryTracks(ctx, `SELECT `+trackColumns+` FROM tracks ORDER BY id`)
}

// SearchTracks returns tracks whose title or artist contains query, ignoring case.
func (s *Store) SearchTracks(ctx context.Context, query string) ([]models.Track, error) {
	return s.queryTracks(ctx, `
		SELECT `+trackColumns+`
		FROM tracks
		WHERE strpos(lower(title), lower($1)) > 0
		   OR strpos(lower(artist), lower($1)) > 0
		ORDER BY id`, query)
}

// TracksByIDs returns the known tracks among ids, keyed by id.
func (s *Store) TracksByIDs(ctx context.Context, ids []models.TrackID) (map[models.TrackID]models.Track, error) {
	if len(ids) == 0 {
		return map[models.TrackID]models.Track{}, nil
	}

	tracks, err := s.queryTracks(ctx, `
		SELECT `+trackColumns+`
		FROM tracks
		WHERE id = ANY($1)`, pq.Array(toInt64s(ids)))
	if err != nil {
		return nil, err
	}
	return lo.KeyBy(tracks, func(t models.Track) models.TrackID { return t.ID }), nil
}

// CountTracks returns the catalogue size.
func (s *Store) CountTracks(ctx context.Context) (int, error) {
	var count int
	if err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM tracks`).Scan(&count); err != nil {
		return 0, fmt.Errorf("count tracks: %w", err)
	}
	return count, nil
}

// UpsertTracks inserts or refreshes catalogue entries in a single transaction.
func (s *Store) UpsertTracks(ctx context.Context, tracks []models.Track) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer func() {
		if tx != nil {
			_ = tx.Rollback()
		}
	}()

	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO tracks (id, title, artist, album, duration_seconds, preview_file)
		VALUES ($1, $2, $3, $4, $5, $6)
		ON CONFLICT (id) DO UPDATE
		SET title = EXCLUDED.title,
		    artist = EXCLUDED.artist,
		    album = EXCLUDED.album,
		    duration_seconds = EXCLUDED.duration_seconds,
		    preview_file = EXCLUDED.preview_file`)
	if err != nil {
		return fmt.Errorf("prepare upsert track: %w", err)
	}
	defer stmt.Close()

	for _, t := range tracks {
		if _, err := stmt.ExecContext(ctx, int64(t.ID), t.Title, t.Artist, nullIfEmpty(t.Album), t.DurationSeconds, t.PreviewFile); err != nil {
			return fmt.Errorf("upsert track %d: %w", t.ID, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit tx: %w", err)
	}
	tx = nil
	return nil
}

func (s *Store) queryTracks(ctx context.Context, query string, args ...any) ([]models.Track, error) {
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query tracks: %w", err)
	}
	defer rows.Close()

	tracks := make([]models.Track, 0)
	for rows.Next() {
		var (
			track models.Track
			id    int64
		)
		if err := rows.Scan(&id, &track.Title, &track.Artist, &track.Album, &track.DurationSeconds, &track.PreviewFile); err != nil {
			return nil, fmt.Errorf("scan track: %w", err)
		}
		track.ID = models.TrackID(id)
		tracks = append(tracks, track)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate tracks: %w", err)
	}
	return tracks, nil
}

func toInt64s(ids []models.TrackID) []int64 {
	return lo.Map(ids, func(id models.TrackID, _ int) int64 { return int64(id) })
}

func toTrackIDs(ids []int64) models.TrackIDs {
	return lo.Map(ids, func(id int64, _ int) models.TrackID { return models.TrackID(id) })
}

func nullIfEmpty(value string) any {
	if value == "" {
		return sql.NullString{}
	}
	return value
}
