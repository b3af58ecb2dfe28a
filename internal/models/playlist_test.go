package models

import (
	"testing"

	"github.com/goccy/go-json"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTrackIDsNormalizesMixedEncodings(t *testing.T) {
	var p Playlist
	err := json.Unmarshal([]byte(`{"id":1,"user_id":2,"name":"mix","tracks":[5,"9",{"id":3,"title":"x"},{"id":"12"}]}`), &p)
	require.NoError(t, err)
	assert.Equal(t, TrackIDs{5, 9, 3, 12}, p.Tracks)
}

func TestTrackIDsRejectsMalformedEntries(t *testing.T) {
	cases := []string{
		`{"tracks":["abc"]}`,
		`{"tracks":[{"title":"no id"}]}`,
		`{"tracks":[true]}`,
		`{"tracks":{"id":1}}`,
	}
	for _, body := range cases {
		var p Playlist
		assert.Error(t, json.Unmarshal([]byte(body), &p), body)
	}
}

func TestTrackIDsNull(t *testing.T) {
	var p Playlist
	require.NoError(t, json.Unmarshal([]byte(`{"tracks":null}`), &p))
	assert.Nil(t, p.Tracks)
}

func TestPlaylistCloneIsIndependent(t *testing.T) {
	p := Playlist{ID: 1, Tracks: TrackIDs{5, 9}}
	c := p.Clone()
	c.Tracks[0] = 42
	assert.Equal(t, TrackID(5), p.Tracks[0])
}

func TestTrackIDsMarshalAsBareIDs(t *testing.T) {
	out, err := json.Marshal(Playlist{ID: 1, Tracks: TrackIDs{5, 9}})
	require.NoError(t, err)
	assert.Contains(t, string(out), `"tracks":[5,9]`)
}
