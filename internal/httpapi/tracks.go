package httpapi

import (
	"net/http"
	"net/url"
	"strings"

	"github.com/samber/lo"

	"tunedeck/internal/logging"
	"tunedeck/internal/models"
)

func (s *Server) handleTracks(w http.ResponseWriter, r *http.Request) {
	tracks, err := s.tracks.List(r.Context())
	if err != nil {
		writeInternal(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, withPreviewURLs(r, tracks))
}

func (s *Server) handleSearch(w http.ResponseWriter, r *http.Request) {
	values, ok := r.URL.Query()["q"]
	if !ok {
		writeValidation(w, "field required", "query", "q")
		return
	}

	query := values[0]
	tracks, err := s.tracks.Search(r.Context(), query)
	if err != nil {
		writeInternal(w, r, err)
		return
	}

	logging.FromContext(r.Context()).Debug().
		Str("query", query).
		Int("results", len(tracks)).
		Msg("search served")
	writeJSON(w, http.StatusOK, withPreviewURLs(r, tracks))
}

// baseURL reconstructs the externally visible origin of r.
func baseURL(r *http.Request) string {
	scheme := "http"
	if r.TLS != nil {
		scheme = "https"
	}
	if forwarded := r.Header.Get("X-Forwarded-Proto"); forwarded != "" {
		scheme = strings.ToLower(strings.TrimSpace(strings.Split(forwarded, ",")[0]))
	}
	return scheme + "://" + r.Host
}

func previewURL(base, file string) string {
	if file == "" {
		return ""
	}
	return base + "/audio/" + url.PathEscape(file)
}

func withPreviewURLs(r *http.Request, tracks []models.Track) []models.Track {
	base := baseURL(r)
	return lo.Map(tracks, func(t models.Track, _ int) models.Track {
		t.PreviewURL = previewURL(base, t.PreviewFile)
		t.PreviewFile = ""
		return t
	})
}
