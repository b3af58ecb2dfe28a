package httpapi

import (
	"errors"
	"net/http"

	"tunedeck/internal/app/users"
	"tunedeck/internal/logging"
	"tunedeck/internal/models"
)

const sessionCookie = "access_token"

type signupRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
	Name     string `json:"name"`
}

type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type authResponse struct {
	AccessToken string            `json:"access_token"`
	TokenType   string            `json:"token_type"`
	User        models.PublicUser `json:"user"`
}

// authedHandler receives the user resolved from the session credential.
type authedHandler func(w http.ResponseWriter, r *http.Request, user models.PublicUser)

func (s *Server) handleSignup(w http.ResponseWriter, r *http.Request) {
	var req signupRequest
	if err := decodeJSON(r, &req); err != nil {
		writeValidation(w, "invalid JSON payload", "body")
		return
	}
	if req.Email == "" || req.Password == "" {
		writeValidation(w, "email and password are required", "body")
		return
	}

	session, err := s.users.Signup(r.Context(), req.Email, req.Password, req.Name)
	if err != nil {
		switch {
		case errors.Is(err, users.ErrEmailTaken):
			writeDetail(w, http.StatusBadRequest, "Email already registered")
		case errors.Is(err, users.ErrWeakPassword):
			writeDetail(w, http.StatusBadRequest, "Password must be at least 6 characters")
		case errors.Is(err, users.ErrInvalidEmail):
			writeValidation(w, "value is not a valid email address", "body", "email")
		default:
			writeInternal(w, r, err)
		}
		return
	}

	logging.FromContext(r.Context()).Info().Int64("user_id", session.User.ID).Msg("user signed up")
	s.startSession(w, session)
}

func (s *Server) handleLogin(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if err := decodeJSON(r, &req); err != nil {
		writeValidation(w, "invalid JSON payload", "body")
		return
	}

	session, err := s.users.Login(r.Context(), req.Email, req.Password)
	if err != nil {
		if errors.Is(err, users.ErrInvalidCredentials) {
			writeDetail(w, http.StatusUnauthorized, "Invalid email or password")
			return
		}
		writeInternal(w, r, err)
		return
	}

	s.startSession(w, session)
}

func (s *Server) handleLogout(w http.ResponseWriter, r *http.Request) {
	http.SetCookie(w, s.cookie("", -1))
	writeJSON(w, http.StatusOK, map[string]bool{"ok": true})
}

func (s *Server) handleMe(w http.ResponseWriter, r *http.Request, user models.PublicUser) {
	writeJSON(w, http.StatusOK, user)
}

func (s *Server) startSession(w http.ResponseWriter, session users.Session) {
	http.SetCookie(w, s.cookie(session.Token, int(s.opts.Cookie.MaxAge.Seconds())))
	writeJSON(w, http.StatusOK, authResponse{
		AccessToken: session.Token,
		TokenType:   "bearer",
		User:        session.User,
	})
}

func (s *Server) cookie(value string, maxAge int) *http.Cookie {
	sameSite := s.opts.Cookie.SameSite
	if sameSite == 0 {
		sameSite = http.SameSiteLaxMode
	}
	return &http.Cookie{
		Name:     sessionCookie,
		Value:    value,
		Path:     "/",
		MaxAge:   maxAge,
		HttpOnly: true,
		Secure:   s.opts.Cookie.Secure,
		SameSite: sameSite,
	}
}

// authenticated resolves the caller from the session cookie, falling back to
// an Authorization bearer token.
func (s *Server) authenticated(next authedHandler) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		token := ""
		if c, err := r.Cookie(sessionCookie); err == nil {
			token = c.Value
		}
		if token == "" {
			token = parseBearerToken(r.Header.Get("Authorization"))
		}

		user, err := s.users.Authenticate(r.Context(), token)
		if err != nil {
			if errors.Is(err, users.ErrUnauthorized) {
				writeDetail(w, http.StatusUnauthorized, "Not authenticated")
				return
			}
			writeInternal(w, r, err)
			return
		}

		r = r.WithContext(logging.WithUserID(r.Context(), user.ID))
		next(w, r, user)
	}
}
