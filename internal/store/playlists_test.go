package store

import (
	"context"
	"database/sql"
	"errors"
	"regexp"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/lib/pq"

	"tunedeck/internal/models"
)

var playlistRowColumns = []string{"id", "user_id", "name", "track_ids", "created_at", "updated_at"}

func newMockStore(t *testing.T) (*Store, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock.New: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	return New(db), mock
}

func TestListPlaylists(t *testing.T) {
	s, mock := newMockStore(t)
	now := time.Now().UTC()

	mock.ExpectQuery(regexp.QuoteMeta(`FROM playlists
		WHERE user_id = $1`)).
		WithArgs(int64(3)).
		WillReturnRows(sqlmock.NewRows(playlistRowColumns).
			AddRow(int64(1), int64(3), "Road trip", []byte("{5,9}"), now, now).
			AddRow(int64(2), int64(3), "Empty", []byte("{}"), now, now))

	playlists, err := s.ListPlaylists(context.Background(), 3)
	if err != nil {
		t.Fatalf("ListPlaylists: %v", err)
	}
	if len(playlists) != 2 {
		t.Fatalf("expected 2 playlists, got %d", len(playlists))
	}
	if got := playlists[0].Tracks; len(got) != 2 || got[0] != 5 || got[1] != 9 {
		t.Fatalf("unexpected tracks %v", got)
	}
	if len(playlists[1].Tracks) != 0 {
		t.Fatalf("expected empty membership, got %v", playlists[1].Tracks)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}

func TestGetPlaylistNotFound(t *testing.T) {
	s, mock := newMockStore(t)

	mock.ExpectQuery(regexp.QuoteMeta(`FROM playlists
		WHERE id = $1`)).
		WithArgs(int64(77)).
		WillReturnError(sql.ErrNoRows)

	_, err := s.GetPlaylist(context.Background(), 77)
	if !errors.Is(err, ErrPlaylistNotFound) {
		t.Fatalf("expected ErrPlaylistNotFound, got %v", err)
	}
}

func TestCreatePlaylist(t *testing.T) {
	s, mock := newMockStore(t)
	now := time.Now().UTC()

	mock.ExpectQuery(regexp.QuoteMeta(`INSERT INTO playlists (user_id, name, track_ids, created_at, updated_at)`)).
		WithArgs(int64(3), "Focus", pq.Array([]int64{}), sqlmock.AnyArg()).
		WillReturnRows(sqlmock.NewRows(playlistRowColumns).
			AddRow(int64(10), int64(3), "Focus", []byte("{}"), now, now))

	created, err := s.CreatePlaylist(context.Background(), models.Playlist{OwnerID: 3, Name: "Focus"})
	if err != nil {
		t.Fatalf("CreatePlaylist: %v", err)
	}
	if created.ID != 10 || created.OwnerID != 3 {
		t.Fatalf("unexpected playlist %+v", created)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}

func TestUpdatePlaylist(t *testing.T) {
	s, mock := newMockStore(t)
	now := time.Now().UTC()

	mock.ExpectQuery(regexp.QuoteMeta(`UPDATE playlists`)).
		WithArgs("Road trip", pq.Array([]int64{5}), sqlmock.AnyArg(), int64(1)).
		WillReturnRows(sqlmock.NewRows(playlistRowColumns).
			AddRow(int64(1), int64(3), "Road trip", []byte("{5}"), now, now))

	updated, err := s.UpdatePlaylist(context.Background(), models.Playlist{ID: 1, Name: "Road trip", Tracks: models.TrackIDs{5}})
	if err != nil {
		t.Fatalf("UpdatePlaylist: %v", err)
	}
	if len(updated.Tracks) != 1 || updated.Tracks[0] != 5 {
		t.Fatalf("unexpected tracks %v", updated.Tracks)
	}
}

func TestUpdatePlaylistMissing(t *testing.T) {
	s, mock := newMockStore(t)

	mock.ExpectQuery(regexp.QuoteMeta(`UPDATE playlists`)).
		WillReturnRows(sqlmock.NewRows(playlistRowColumns))

	_, err := s.UpdatePlaylist(context.Background(), models.Playlist{ID: 5, Name: "x"})
	if !errors.Is(err, ErrPlaylistNotFound) {
		t.Fatalf("expected ErrPlaylistNotFound, got %v", err)
	}
}

func TestDeletePlaylist(t *testing.T) {
	s, mock := newMockStore(t)

	mock.ExpectExec(regexp.QuoteMeta(`DELETE FROM playlists WHERE id = $1`)).
		WithArgs(int64(4)).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(regexp.QuoteMeta(`DELETE FROM playlists WHERE id = $1`)).
		WithArgs(int64(4)).
		WillReturnResult(sqlmock.NewResult(0, 0))

	if err := s.DeletePlaylist(context.Background(), 4); err != nil {
		t.Fatalf("DeletePlaylist: %v", err)
	}
	if err := s.DeletePlaylist(context.Background(), 4); !errors.Is(err, ErrPlaylistNotFound) {
		t.Fatalf("expected ErrPlaylistNotFound on second delete, got %v", err)
	}
}
