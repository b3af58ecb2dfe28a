package httpapi

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/gorilla/mux"

	"tunedeck/internal/app/playlists"
	"tunedeck/internal/logging"
	"tunedeck/internal/models"
)

type createPlaylistRequest struct {
	Name   *string         `json:"name"`
	Tracks models.TrackIDs `json:"tracks"`
}

type updatePlaylistRequest struct {
	Name   *string          `json:"name"`
	Tracks *models.TrackIDs `json:"tracks"`
}

func (s *Server) handleListPlaylists(w http.ResponseWriter, r *http.Request, user models.PublicUser) {
	owned, err := s.playlists.List(r.Context(), user.ID)
	if err != nil {
		writeInternal(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, expandPreviews(r, owned...))
}

func (s *Server) handleGetPlaylist(w http.ResponseWriter, r *http.Request, user models.PublicUser) {
	id, ok := parseIDParam(w, r)
	if !ok {
		return
	}
	playlist, err := s.playlists.Get(r.Context(), user.ID, id)
	if err != nil {
		writePlaylistError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, expandPreviews(r, playlist)[0])
}

func (s *Server) handleCreatePlaylist(w http.ResponseWriter, r *http.Request, user models.PublicUser) {
	var req createPlaylistRequest
	if err := decodeJSON(r, &req); err != nil {
		writeValidation(w, "invalid JSON payload", "body")
		return
	}
	if req.Name == nil {
		writeValidation(w, "field required", "body", "name")
		return
	}

	created, err := s.playlists.Create(r.Context(), user.ID, *req.Name, req.Tracks)
	if err != nil {
		writePlaylistError(w, r, err)
		return
	}

	logging.FromContext(r.Context()).Info().Int64("playlist_id", created.ID).Msg("playlist created")
	writeJSON(w, http.StatusCreated, expandPreviews(r, created)[0])
}

func (s *Server) handleUpdatePlaylist(w http.ResponseWriter, r *http.Request, user models.PublicUser) {
	id, ok := parseIDParam(w, r)
	if !ok {
		return
	}

	var req updatePlaylistRequest
	if err := decodeJSON(r, &req); err != nil {
		writeValidation(w, "invalid JSON payload", "body")
		return
	}

	changes := playlists.Changes{Name: req.Name}
	if req.Tracks != nil {
		changes.Tracks = *req.Tracks
		changes.SetTracks = true
	}

	updated, err := s.playlists.Update(r.Context(), user.ID, id, changes)
	if err != nil {
		writePlaylistError(w, r, err)
		return
	}

	logging.FromContext(r.Context()).Info().Int64("playlist_id", id).Msg("playlist updated")
	writeJSON(w, http.StatusOK, expandPreviews(r, updated)[0])
}

func (s *Server) handleDeletePlaylist(w http.ResponseWriter, r *http.Request, user models.PublicUser) {
	id, ok := parseIDParam(w, r)
	if !ok {
		return
	}
	if err := s.playlists.Delete(r.Context(), user.ID, id); err != nil {
		writePlaylistError(w, r, err)
		return
	}

	logging.FromContext(r.Context()).Info().Int64("playlist_id", id).Msg("playlist deleted")
	w.WriteHeader(http.StatusNoContent)
}

func writePlaylistError(w http.ResponseWriter, r *http.Request, err error) {
	var unknown *playlists.UnknownTracksError
	switch {
	case errors.Is(err, playlists.ErrNotFound):
		writeDetail(w, http.StatusNotFound, "Playlist not found")
	case errors.Is(err, playlists.ErrForbidden):
		writeDetail(w, http.StatusForbidden, "Forbidden")
	case errors.Is(err, playlists.ErrInvalidPlaylist):
		writeValidation(w, err.Error(), "body", "name")
	case errors.As(err, &unknown):
		writeDetail(w, http.StatusBadRequest, unknown.Error())
	default:
		writeInternal(w, r, err)
	}
}

func parseIDParam(w http.ResponseWriter, r *http.Request) (int64, bool) {
	id, err := strconv.ParseInt(mux.Vars(r)["id"], 10, 64)
	if err != nil {
		writeValidation(w, "invalid playlist id", "path", "id")
		return 0, false
	}
	return id, true
}

func expandPreviews(r *http.Request, details ...models.PlaylistDetail) []models.PlaylistDetail {
	out := make([]models.PlaylistDetail, 0, len(details))
	for _, d := range details {
		d.Tracks = withPreviewURLs(r, d.Tracks)
		out = append(out, d)
	}
	return out
}
