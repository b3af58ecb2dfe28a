package models

import (
	"bytes"
	"errors"
	"fmt"
	"time"

	"github.com/goccy/go-json"
)

// TrackIDs is an ordered list of track references. On decode every entry is
// normalized to its canonical id, whether it arrives as a bare id, a numeric
// string or an object carrying an "id" field.
type TrackIDs []TrackID

// UnmarshalJSON implements json.Unmarshaler.
func (ids *TrackIDs) UnmarshalJSON(data []byte) error {
	if bytes.Equal(bytes.TrimSpace(data), []byte("null")) {
		*ids = nil
		return nil
	}

	var raw []json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		return fmt.Errorf("tracks: %w", err)
	}

	out := make(TrackIDs, 0, len(raw))
	for i, entry := range raw {
		id, err := parseTrackRef(entry)
		if err != nil {
			return fmt.Errorf("tracks[%d]: %w", i, err)
		}
		out = append(out, id)
	}
	*ids = out
	return nil
}

func parseTrackRef(entry json.RawMessage) (TrackID, error) {
	entry = bytes.TrimSpace(entry)
	if len(entry) > 0 && entry[0] == '{' {
		var obj struct {
			ID *TrackID `json:"id"`
		}
		if err := json.Unmarshal(entry, &obj); err != nil {
			return 0, err
		}
		if obj.ID == nil {
			return 0, errors.New("track object without id")
		}
		return *obj.ID, nil
	}

	var id TrackID
	if err := id.UnmarshalJSON(entry); err != nil {
		return 0, err
	}
	return id, nil
}

// Contains reports whether id is referenced at least once.
func (ids TrackIDs) Contains(id TrackID) bool {
	for _, v := range ids {
		if v == id {
			return true
		}
	}
	return false
}

// Clone returns an independent copy.
func (ids TrackIDs) Clone() TrackIDs {
	if ids == nil {
		return nil
	}
	out := make(TrackIDs, len(ids))
	copy(out, ids)
	return out
}

// Playlist is the persisted shape of a playlist: membership is kept as ids only.
type Playlist struct {
	ID        int64     `json:"id" db:"id"`
	OwnerID   int64     `json:"user_id" db:"user_id"`
	Name      string    `json:"name" db:"name"`
	Tracks    TrackIDs  `json:"tracks" db:"track_ids"`
	CreatedAt time.Time `json:"created_at" db:"created_at"`
	UpdatedAt time.Time `json:"updated_at" db:"updated_at"`
}

// Clone returns a deep copy of p.
func (p Playlist) Clone() Playlist {
	p.Tracks = p.Tracks.Clone()
	return p
}

// PlaylistDetail is a playlist with its tracks expanded, as served over HTTP.
type PlaylistDetail struct {
	ID        int64     `json:"id"`
	OwnerID   int64     `json:"user_id"`
	Name      string    `json:"name"`
	Tracks    []Track   `json:"tracks"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}
