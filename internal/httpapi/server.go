package httpapi

import (
	"context"
	"net/http"
	"strings"
	"time"

	"github.com/goccy/go-json"
	"github.com/gorilla/mux"

	"tunedeck/internal/app/playlists"
	"tunedeck/internal/app/users"
	"tunedeck/internal/http/middleware"
	"tunedeck/internal/logging"
	"tunedeck/internal/models"
)

// UserService captures the account operations needed by the HTTP handlers.
type UserService interface {
	Signup(ctx context.Context, email, password, name string) (users.Session, error)
	Login(ctx context.Context, email, password string) (users.Session, error)
	Authenticate(ctx context.Context, token string) (models.PublicUser, error)
}

// TrackService describes catalogue workflows.
type TrackService interface {
	List(ctx context.Context) ([]models.Track, error)
	Search(ctx context.Context, query string) ([]models.Track, error)
}

// PlaylistService coordinates playlist-related operations.
type PlaylistService interface {
	List(ctx context.Context, ownerID int64) ([]models.PlaylistDetail, error)
	Get(ctx context.Context, ownerID, id int64) (models.PlaylistDetail, error)
	Create(ctx context.Context, ownerID int64, name string, tracks models.TrackIDs) (models.PlaylistDetail, error)
	Update(ctx context.Context, ownerID, id int64, changes playlists.Changes) (models.PlaylistDetail, error)
	Delete(ctx context.Context, ownerID, id int64) error
}

// CookieOptions configures the session cookie.
type CookieOptions struct {
	Secure   bool
	SameSite http.SameSite
	MaxAge   time.Duration
}

// Options holds the non-service settings of a Server.
type Options struct {
	// AudioDir is served under /audio/. Empty disables the route.
	AudioDir string
	Cookie   CookieOptions
	// AuthLimiter throttles signup and login. Nil disables throttling.
	AuthLimiter *middleware.RateLimiter
}

// Server wires HTTP handlers to the underlying services.
type Server struct {
	users     UserService
	tracks    TrackService
	playlists PlaylistService
	opts      Options
}

// New configures a Server with the given services.
func New(users UserService, tracks TrackService, playlists PlaylistService, opts Options) *Server {
	return &Server{
		users:     users,
		tracks:    tracks,
		playlists: playlists,
		opts:      opts,
	}
}

// Routes exposes the HTTP handlers for the catalogue, accounts and playlists.
func (s *Server) Routes() http.Handler {
	router := mux.NewRouter()
	router.NotFoundHandler = http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		writeDetail(w, http.StatusNotFound, "Not Found")
	})
	router.MethodNotAllowedHandler = http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		writeDetail(w, http.StatusMethodNotAllowed, "Method Not Allowed")
	})

	router.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("OK"))
	}).Methods(http.MethodGet)

	router.Handle("/auth/signup", s.throttled(s.handleSignup)).Methods(http.MethodPost)
	router.Handle("/auth/login", s.throttled(s.handleLogin)).Methods(http.MethodPost)
	router.HandleFunc("/auth/logout", s.handleLogout).Methods(http.MethodPost)
	router.HandleFunc("/auth/me", s.authenticated(s.handleMe)).Methods(http.MethodGet)

	router.HandleFunc("/tracks", s.handleTracks).Methods(http.MethodGet)
	router.HandleFunc("/search", s.handleSearch).Methods(http.MethodGet)

	router.HandleFunc("/playlists", s.authenticated(s.handleListPlaylists)).Methods(http.MethodGet)
	router.HandleFunc("/playlists", s.authenticated(s.handleCreatePlaylist)).Methods(http.MethodPost)
	router.HandleFunc("/playlists/{id:[0-9]+}", s.authenticated(s.handleGetPlaylist)).Methods(http.MethodGet)
	router.HandleFunc("/playlists/{id:[0-9]+}", s.authenticated(s.handleUpdatePlaylist)).Methods(http.MethodPut)
	router.HandleFunc("/playlists/{id:[0-9]+}", s.authenticated(s.handleDeletePlaylist)).Methods(http.MethodDelete)

	if s.opts.AudioDir != "" {
		router.PathPrefix("/audio/").
			Handler(http.StripPrefix("/audio/", http.FileServer(http.Dir(s.opts.AudioDir)))).
			Methods(http.MethodGet, http.MethodHead)
	}

	return router
}

func (s *Server) throttled(h http.HandlerFunc) http.Handler {
	if s.opts.AuthLimiter == nil {
		return h
	}
	return s.opts.AuthLimiter.Middleware(h)
}

func parseBearerToken(header string) string {
	if header == "" {
		return ""
	}
	parts := strings.SplitN(header, " ", 2)
	if len(parts) != 2 {
		return ""
	}
	if !strings.EqualFold(parts[0], "Bearer") {
		return ""
	}
	return strings.TrimSpace(parts[1])
}

// detailResponse mirrors the error envelope clients expect: detail is either
// a message or a list of field problems.
type detailResponse struct {
	Detail any `json:"detail"`
}

type fieldProblem struct {
	Loc  []string `json:"loc"`
	Msg  string   `json:"msg"`
	Type string   `json:"type"`
}

func writeDetail(w http.ResponseWriter, status int, detail string) {
	writeJSON(w, status, detailResponse{Detail: detail})
}

func writeValidation(w http.ResponseWriter, msg string, loc ...string) {
	writeJSON(w, http.StatusUnprocessableEntity, detailResponse{
		Detail: []fieldProblem{{Loc: loc, Msg: msg, Type: "value_error"}},
	})
}

func writeInternal(w http.ResponseWriter, r *http.Request, err error) {
	logging.FromContext(r.Context()).Error().Err(err).
		Str("method", r.Method).
		Str("path", r.URL.Path).
		Msg("request failed")
	writeDetail(w, http.StatusInternalServerError, "Internal Server Error")
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if payload != nil {
		_ = json.NewEncoder(w).Encode(payload)
	}
}

func decodeJSON(r *http.Request, dst any) error {
	defer r.Body.Close()
	return json.NewDecoder(r.Body).Decode(dst)
}
