package models

import (
	"bytes"
	"fmt"
	"strconv"

	"github.com/goccy/go-json"
)

// TrackID is the canonical numeric identifier of a track.
type TrackID int64

// UnmarshalJSON accepts both numbers and numeric strings.
func (id *TrackID) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if len(data) > 0 && data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return fmt.Errorf("track id: %w", err)
		}
		return id.parse(s)
	}
	return id.parse(string(data))
}

func (id *TrackID) parse(s string) error {
	n, err := strconv.ParseInt(s, 10, 64)
	if err != nil {
		return fmt.Errorf("track id %q is not numeric", s)
	}
	*id = TrackID(n)
	return nil
}

func (id TrackID) String() string {
	return strconv.FormatInt(int64(id), 10)
}

// Track is a catalogue entry. Tracks are never mutated by clients.
type Track struct {
	ID              TrackID `json:"id"`
	Title           string  `json:"title"`
	Artist          string  `json:"artist"`
	Album           string  `json:"album,omitempty"`
	DurationSeconds int     `json:"duration_seconds,omitempty"`
	PreviewFile     string  `json:"preview_file,omitempty"`
	PreviewURL      string  `json:"preview_url,omitempty"`
}
