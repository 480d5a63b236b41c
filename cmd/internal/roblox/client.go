// Package roblox is a thin client for the public Roblox web APIs the
// roster needs: username resolution, profile descriptions, and avatar
// headshot thumbnails.
package roblox

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"time"
)

const (
	defaultUsersBaseURL      = "https://users.roblox.com"
	defaultThumbnailsBaseURL = "https://thumbnails.roblox.com"

	defaultTimeout = 5 * time.Second
)

var (
	// ErrUserNotFound indicates the username or user id does not exist
	// on Roblox.
	ErrUserNotFound = errors.New("roblox: user not found")

	// ErrUnavailable indicates the upstream API could not be reached or
	// answered with an unexpected status.
	ErrUnavailable = errors.New("roblox: upstream unavailable")
)

// Profile is the subset of a Roblox user profile the verification flow
// inspects. Description is the free-text "About" section.
type Profile struct {
	UserID      int64
	Username    string
	DisplayName string
	Description string
}

// Client is the upstream surface consumed by the verification and
// roster services. Implementations must be safe for concurrent use.
type Client interface {
	// ResolveUsername maps a current username to the stable numeric
	// user id. Returns ErrUserNotFound for unknown or banned users.
	ResolveUsername(ctx context.Context, username string) (int64, error)

	// Profile fetches the profile for a numeric user id.
	Profile(ctx context.Context, userID int64) (Profile, error)

	// AvatarURL returns a CDN URL for the user's headshot thumbnail.
	// An empty string with a nil error means no image is available yet.
	AvatarURL(ctx context.Context, userID int64) (string, error)
}

// HTTPClient talks to the real Roblox web APIs.
type HTTPClient struct {
	usersBase      string
	thumbnailsBase string
	httpClient     *http.Client
}

// Option customizes an HTTPClient.
type Option func(*HTTPClient)

// WithUsersBaseURL overrides the users API base URL. Intended for tests.
func WithUsersBaseURL(base string) Option {
	return func(c *HTTPClient) { c.usersBase = base }
}

// WithThumbnailsBaseURL overrides the thumbnails API base URL. Intended
// for tests.
func WithThumbnailsBaseURL(base string) Option {
	return func(c *HTTPClient) { c.thumbnailsBase = base }
}

// WithHTTPClient overrides the underlying http.Client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *HTTPClient) { c.httpClient = hc }
}

// NewHTTPClient builds a client against the public Roblox endpoints.
func NewHTTPClient(opts ...Option) *HTTPClient {
	c := &HTTPClient{
		usersBase:      defaultUsersBaseURL,
		thumbnailsBase: defaultThumbnailsBaseURL,
		httpClient:     &http.Client{Timeout: defaultTimeout},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

type usernameLookupRequest struct {
	Usernames          []string `json:"usernames"`
	ExcludeBannedUsers bool     `json:"excludeBannedUsers"`
}

type usernameLookupResponse struct {
	Data []struct {
		ID          int64  `json:"id"`
		Name        string `json:"name"`
		DisplayName string `json:"displayName"`
	} `json:"data"`
}

func (c *HTTPClient) ResolveUsername(ctx context.Context, username string) (int64, error) {
	reqBody := usernameLookupRequest{
		Usernames:          []string{username},
		ExcludeBannedUsers: true,
	}

	var out usernameLookupResponse
	if err := c.doJSON(ctx, http.MethodPost, c.usersBase+"/v1/usernames/users", reqBody, &out); err != nil {
		return 0, err
	}
	if len(out.Data) == 0 {
		return 0, ErrUserNotFound
	}
	return out.Data[0].ID, nil
}

type userDetailResponse struct {
	ID          int64  `json:"id"`
	Name        string `json:"name"`
	DisplayName string `json:"displayName"`
	Description string `json:"description"`
}

func (c *HTTPClient) Profile(ctx context.Context, userID int64) (Profile, error) {
	endpoint := c.usersBase + "/v1/users/" + strconv.FormatInt(userID, 10)

	var out userDetailResponse
	if err := c.doJSON(ctx, http.MethodGet, endpoint, nil, &out); err != nil {
		return Profile{}, err
	}
	return Profile{
		UserID:      out.ID,
		Username:    out.Name,
		DisplayName: out.DisplayName,
		Description: out.Description,
	}, nil
}

type thumbnailResponse struct {
	Data []struct {
		TargetID int64  `json:"targetId"`
		State    string `json:"state"`
		ImageURL string `json:"imageUrl"`
	} `json:"data"`
}

func (c *HTTPClient) AvatarURL(ctx context.Context, userID int64) (string, error) {
	q := url.Values{}
	q.Set("userIds", strconv.FormatInt(userID, 10))
	q.Set("size", "150x150")
	q.Set("format", "Png")
	q.Set("isCircular", "false")

	endpoint := c.thumbnailsBase + "/v1/users/avatar-headshot?" + q.Encode()

	var out thumbnailResponse
	if err := c.doJSON(ctx, http.MethodGet, endpoint, nil, &out); err != nil {
		return "", err
	}
	for _, item := range out.Data {
		if item.TargetID == userID && item.State == "Completed" && item.ImageURL != "" {
			return item.ImageURL, nil
		}
	}
	return "", nil
}

func (c *HTTPClient) doJSON(ctx context.Context, method, endpoint string, body any, out any) error {
	var reqBody io.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("roblox: encode request: %w", err)
		}
		reqBody = bytes.NewReader(raw)
	}

	req, err := http.NewRequestWithContext(ctx, method, endpoint, reqBody)
	if err != nil {
		return fmt.Errorf("roblox: build request: %w", err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusNotFound:
		io.Copy(io.Discard, resp.Body)
		return ErrUserNotFound
	case resp.StatusCode < 200 || resp.StatusCode > 299:
		io.Copy(io.Discard, resp.Body)
		return fmt.Errorf("%w: status %d from %s", ErrUnavailable, resp.StatusCode, req.URL.Host)
	}

	if out == nil {
		io.Copy(io.Discard, resp.Body)
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("%w: decode response: %v", ErrUnavailable, err)
	}
	return nil
}
