// Package apiclient talks to the tunedeck REST service on behalf of headless
// clients. The session lives in the access_token cookie held by the client's
// cookie jar.
package apiclient

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/http/cookiejar"
	"net/url"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/goccy/go-json"

	"tunedeck/internal/catalog"
	"tunedeck/internal/models"
	"tunedeck/internal/playlistsync"
)

var (
	_ playlistsync.API     = (*Client)(nil)
	_ playlistsync.Session = (*Client)(nil)
	_ catalog.Searcher     = (*Client)(nil)
)

// APIError is any non-2xx response.
type APIError struct {
	Status int
	Detail string
}

func (e *APIError) Error() string {
	return e.Detail
}

// Client implements the playlist, session and catalogue collaborators over HTTP.
type Client struct {
	baseURL    *url.URL
	httpClient *http.Client

	mu   sync.RWMutex
	user *models.PublicUser
}

type Option func(*Client)

// WithHTTPClient replaces the underlying client. Its jar, if nil, is replaced
// with a fresh cookie jar.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.httpClient = hc }
}

// New creates a Client rooted at baseURL.
func New(baseURL string, opts ...Option) (*Client, error) {
	u, err := url.Parse(strings.TrimRight(baseURL, "/"))
	if err != nil {
		return nil, fmt.Errorf("parse base url: %w", err)
	}
	if u.Scheme == "" || u.Host == "" {
		return nil, fmt.Errorf("base url %q must be absolute", baseURL)
	}

	c := &Client{
		baseURL:    u,
		httpClient: &http.Client{Timeout: 15 * time.Second},
	}
	for _, opt := range opts {
		opt(c)
	}
	if c.httpClient.Jar == nil {
		jar, err := cookiejar.New(nil)
		if err != nil {
			return nil, fmt.Errorf("create cookie jar: %w", err)
		}
		c.httpClient.Jar = jar
	}
	return c, nil
}

type authResponse struct {
	AccessToken string            `json:"access_token"`
	User        models.PublicUser `json:"user"`
}

// Signup registers an account and starts a session for it.
func (c *Client) Signup(ctx context.Context, email, password, name string) (models.PublicUser, error) {
	body := map[string]string{"email": email, "password": password, "name": name}
	var resp authResponse
	if err := c.do(ctx, http.MethodPost, "/auth/signup", nil, body, &resp); err != nil {
		return models.PublicUser{}, err
	}
	c.setUser(&resp.User)
	return resp.User, nil
}

// Login starts a session.
func (c *Client) Login(ctx context.Context, email, password string) (models.PublicUser, error) {
	body := map[string]string{"email": email, "password": password}
	var resp authResponse
	if err := c.do(ctx, http.MethodPost, "/auth/login", nil, body, &resp); err != nil {
		return models.PublicUser{}, err
	}
	c.setUser(&resp.User)
	return resp.User, nil
}

// Logout ends the session. The local user is forgotten even if the call fails.
func (c *Client) Logout(ctx context.Context) error {
	c.setUser(nil)
	return c.do(ctx, http.MethodPost, "/auth/logout", nil, nil, nil)
}

// Me asks the server who the session belongs to and caches the answer.
func (c *Client) Me(ctx context.Context) (models.PublicUser, error) {
	var user models.PublicUser
	if err := c.do(ctx, http.MethodGet, "/auth/me", nil, nil, &user); err != nil {
		var apiErr *APIError
		if errors.As(err, &apiErr) && apiErr.Status == http.StatusUnauthorized {
			c.setUser(nil)
		}
		return models.PublicUser{}, err
	}
	c.setUser(&user)
	return user, nil
}

// CurrentUser is the last user seen by Signup, Login or Me.
func (c *Client) CurrentUser() (models.PublicUser, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if c.user == nil {
		return models.PublicUser{}, false
	}
	return *c.user, true
}

func (c *Client) setUser(u *models.PublicUser) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if u == nil {
		c.user = nil
		return
	}
	copied := *u
	c.user = &copied
}

// Tracks lists the whole catalogue.
func (c *Client) Tracks(ctx context.Context) ([]models.Track, error) {
	var tracks []models.Track
	if err := c.do(ctx, http.MethodGet, "/tracks", nil, nil, &tracks); err != nil {
		return nil, err
	}
	return tracks, nil
}

// Search matches query against titles and artists.
func (c *Client) Search(ctx context.Context, query string) ([]models.Track, error) {
	var tracks []models.Track
	if err := c.do(ctx, http.MethodGet, "/search", url.Values{"q": {query}}, nil, &tracks); err != nil {
		return nil, err
	}
	return tracks, nil
}

type playlistRequest struct {
	Name   string          `json:"name"`
	Tracks models.TrackIDs `json:"tracks"`
}

// ListPlaylists returns the session user's playlists.
func (c *Client) ListPlaylists(ctx context.Context) ([]models.Playlist, error) {
	var playlists []models.Playlist
	if err := c.do(ctx, http.MethodGet, "/playlists", nil, nil, &playlists); err != nil {
		return nil, err
	}
	return playlists, nil
}

// CreatePlaylist creates a playlist with the given tracks.
func (c *Client) CreatePlaylist(ctx context.Context, name string, tracks models.TrackIDs) (models.Playlist, error) {
	var created models.Playlist
	if err := c.do(ctx, http.MethodPost, "/playlists", nil, playlistRequest{Name: name, Tracks: nonNil(tracks)}, &created); err != nil {
		return models.Playlist{}, err
	}
	return created, nil
}

// UpdatePlaylist replaces the name and tracks of a playlist and returns the
// server's version of it.
func (c *Client) UpdatePlaylist(ctx context.Context, id int64, name string, tracks models.TrackIDs) (models.Playlist, error) {
	var updated models.Playlist
	path := "/playlists/" + strconv.FormatInt(id, 10)
	if err := c.do(ctx, http.MethodPut, path, nil, playlistRequest{Name: name, Tracks: nonNil(tracks)}, &updated); err != nil {
		return models.Playlist{}, err
	}
	return updated, nil
}

// DeletePlaylist removes a playlist.
func (c *Client) DeletePlaylist(ctx context.Context, id int64) error {
	return c.do(ctx, http.MethodDelete, "/playlists/"+strconv.FormatInt(id, 10), nil, nil, nil)
}

func nonNil(ids models.TrackIDs) models.TrackIDs {
	if ids == nil {
		return models.TrackIDs{}
	}
	return ids
}

func (c *Client) do(ctx context.Context, method, path string, params url.Values, payload, result any) error {
	u := *c.baseURL
	u.Path = c.baseURL.Path + path
	if len(params) > 0 {
		u.RawQuery = params.Encode()
	}

	var body io.Reader
	if payload != nil {
		encoded, err := json.Marshal(payload)
		if err != nil {
			return fmt.Errorf("encode request: %w", err)
		}
		body = bytes.NewReader(encoded)
	}

	req, err := http.NewRequestWithContext(ctx, method, u.String(), body)
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("send request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		raw, _ := io.ReadAll(io.LimitReader(resp.Body, 64<<10))
		return &APIError{Status: resp.StatusCode, Detail: detailText(resp.StatusCode, raw)}
	}

	if result == nil || resp.StatusCode == http.StatusNoContent {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(result); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}
