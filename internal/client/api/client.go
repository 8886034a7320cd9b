package api

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/mzheleznov/profilehub/internal/common"
)

// Client is the HTTP implementation of Provider against the profilehub
// server API.
type Client struct {
	baseURL string
	http    *http.Client
}

// NewClient constructs a Client for the given base URL, e.g.
// "http://localhost:8080".
func NewClient(baseURL string, timeout time.Duration) *Client {
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		http:    &http.Client{Timeout: timeout},
	}
}

// --- wire types (mirror the server's httpapi package) ---

type authResponse struct {
	UserID       string `json:"user_id"`
	Email        string `json:"email"`
	Username     string `json:"username"`
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token"`
}

type profileResponse struct {
	UserID    string `json:"user_id"`
	Email     string `json:"email"`
	Username  string `json:"username"`
	AvatarKey string `json:"avatar_key"`
	AvatarURL string `json:"avatar_url"`
}

type uploadURLResponse struct {
	Key       string `json:"key"`
	UploadURL string `json:"upload_url"`
}

type errorResponse struct {
	Error string `json:"error"`
}

// --- Provider implementation ---

func (c *Client) CreateIdentity(ctx context.Context, email, password, username string) (*Credentials, error) {
	var resp authResponse
	err := c.doJSON(ctx, http.MethodPost, "/api/register", "", map[string]string{
		"email": email, "password": password, "username": username,
	}, &resp)
	if err != nil {
		return nil, err
	}
	return credentialsFrom(&resp), nil
}

func (c *Client) Authenticate(ctx context.Context, email, password string) (*Credentials, error) {
	var resp authResponse
	err := c.doJSON(ctx, http.MethodPost, "/api/login", "", map[string]string{
		"email": email, "password": password,
	}, &resp)
	if err != nil {
		return nil, err
	}
	return credentialsFrom(&resp), nil
}

func (c *Client) RefreshSession(ctx context.Context, refreshToken string) (*Tokens, error) {
	var resp authResponse
	err := c.doJSON(ctx, http.MethodPost, "/api/refresh", "", map[string]string{
		"refresh_token": refreshToken,
	}, &resp)
	if err != nil {
		return nil, err
	}
	return &Tokens{AccessToken: resp.AccessToken, RefreshToken: resp.RefreshToken}, nil
}

func (c *Client) DestroySession(ctx context.Context, refreshToken string) error {
	return c.doJSON(ctx, http.MethodPost, "/api/logout", "", map[string]string{
		"refresh_token": refreshToken,
	}, nil)
}

func (c *Client) ReadProfile(ctx context.Context, accessToken string) (*Profile, error) {
	var resp profileResponse
	if err := c.doJSON(ctx, http.MethodGet, "/api/profile", accessToken, nil, &resp); err != nil {
		return nil, err
	}
	return profileFrom(&resp), nil
}

func (c *Client) UpdateProfile(ctx context.Context, accessToken, username string) (*Profile, error) {
	var resp profileResponse
	err := c.doJSON(ctx, http.MethodPatch, "/api/profile", accessToken, map[string]string{
		"username": username,
	}, &resp)
	if err != nil {
		return nil, err
	}
	return profileFrom(&resp), nil
}

func (c *Client) NewUploadURL(ctx context.Context, accessToken, ext, contentType string) (string, string, error) {
	var resp uploadURLResponse
	err := c.doJSON(ctx, http.MethodPost, "/api/profile/avatar/url", accessToken, map[string]string{
		"ext": ext, "content_type": contentType,
	}, &resp)
	if err != nil {
		return "", "", err
	}
	return resp.Key, resp.UploadURL, nil
}

func (c *Client) ConfirmAvatar(ctx context.Context, accessToken, key string) (*Profile, error) {
	var resp profileResponse
	err := c.doJSON(ctx, http.MethodPut, "/api/profile/avatar", accessToken, map[string]string{
		"key": key,
	}, &resp)
	if err != nil {
		return nil, err
	}
	return profileFrom(&resp), nil
}

// --- plumbing ---

func credentialsFrom(r *authResponse) *Credentials {
	return &Credentials{
		UserID:       r.UserID,
		Email:        r.Email,
		Username:     r.Username,
		AccessToken:  r.AccessToken,
		RefreshToken: r.RefreshToken,
	}
}

func profileFrom(r *profileResponse) *Profile {
	return &Profile{
		UserID:    r.UserID,
		Email:     r.Email,
		Username:  r.Username,
		AvatarKey: r.AvatarKey,
		AvatarURL: r.AvatarURL,
	}
}

// doJSON performs one API round trip, encoding body (when non-nil) and
// decoding the response into out (when non-nil). Non-2xx statuses are mapped
// back onto the shared error taxonomy.
func (c *Client) doJSON(ctx context.Context, method, path, accessToken string, body, out any) error {
	var reader io.Reader
	if body != nil {
		buf := &bytes.Buffer{}
		if err := json.NewEncoder(buf).Encode(body); err != nil {
			return fmt.Errorf("encode request: %w", err)
		}
		reader = buf
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if accessToken != "" {
		req.Header.Set("Authorization", "Bearer "+accessToken)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("%w: %v", common.ErrPersistence, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return statusError(resp)
	}

	if out != nil {
		if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
			return fmt.Errorf("decode response: %w", err)
		}
	}
	return nil
}

// statusError converts an error response into a sentinel-wrapped error,
// keeping the server's human-readable message.
func statusError(resp *http.Response) error {
	msg := resp.Status
	var body errorResponse
	if err := json.NewDecoder(resp.Body).Decode(&body); err == nil && body.Error != "" {
		msg = body.Error
	}

	var sentinel error
	switch resp.StatusCode {
	case http.StatusBadRequest:
		sentinel = common.ErrValidation
	case http.StatusUnauthorized:
		sentinel = common.ErrAuth
	case http.StatusForbidden:
		sentinel = common.ErrPermission
	case http.StatusNotFound:
		sentinel = common.ErrNotFound
	default:
		sentinel = common.ErrPersistence
	}
	return fmt.Errorf("%w: %s", sentinel, msg)
}
