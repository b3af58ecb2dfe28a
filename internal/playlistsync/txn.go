package playlistsync

import (
	"github.com/samber/lo"

	"tunedeck/internal/models"
)

// State is the lifecycle position of a membership toggle.
type State int

const (
	Idle State = iota
	Pending
	Applied
	RolledBack
)

func (s State) String() string {
	switch s {
	case Pending:
		return "pending"
	case Applied:
		return "applied"
	case RolledBack:
		return "rolled_back"
	default:
		return "idle"
	}
}

// toggleTxn is one optimistic membership change. The snapshot is taken before
// anything is mutated and is the only thing revert restores.
type toggleTxn struct {
	playlistID int64
	trackID    models.TrackID
	snapshot   models.Playlist
	target     models.TrackIDs
	state      State
}

func newToggleTxn(current models.Playlist, trackID models.TrackID) *toggleTxn {
	return &toggleTxn{
		playlistID: current.ID,
		trackID:    trackID,
		snapshot:   current.Clone(),
		target:     toggled(current.Tracks, trackID),
		state:      Pending,
	}
}

// toggled removes trackID when present and appends it otherwise. Duplicates
// in the input collapse.
func toggled(current models.TrackIDs, trackID models.TrackID) models.TrackIDs {
	set := lo.Uniq([]models.TrackID(current))
	if lo.Contains(set, trackID) {
		return lo.Without(set, trackID)
	}
	return append(set, trackID)
}

// optimistic is the playlist as it should look while the request is in flight.
func (t *toggleTxn) optimistic() models.Playlist {
	p := t.snapshot.Clone()
	p.Tracks = t.target.Clone()
	return p
}

func (t *toggleTxn) commit() { t.state = Applied }

func (t *toggleTxn) revert() models.Playlist {
	t.state = RolledBack
	return t.snapshot.Clone()
}
