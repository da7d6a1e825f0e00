package client

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/cookiejar"
	"strings"

	"github.com/pkg/errors"
	"golang.org/x/net/publicsuffix"
)

// APIError is a non 2xx answer from the server.
type APIError struct {
	Status  int    `json:"-"`
	Message string `json:"message"`
	Code    string `json:"code,omitempty"`
}

func (e *APIError) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("request failed with status %d", e.Status)
	}
	return fmt.Sprintf("%s (status %d)", e.Message, e.Status)
}

// HTTPAPI talks to the auth endpoints. The session cookie set by the
// server is kept in the client's jar and sent back automatically.
type HTTPAPI struct {
	BaseURL     string
	ProfilePath string
	LogoutPath  string
	HTTP        *http.Client
}

var _ API = (*HTTPAPI)(nil)

// NewHTTPAPI creates a client for the server at baseURL with its own
// cookie jar.
func NewHTTPAPI(baseURL string) (*HTTPAPI, error) {
	jar, err := cookiejar.New(&cookiejar.Options{PublicSuffixList: publicsuffix.List})
	if err != nil {
		return nil, errors.Wrap(err, "cookie jar")
	}
	return &HTTPAPI{
		BaseURL:     strings.TrimRight(baseURL, "/"),
		ProfilePath: "/auth/profile",
		LogoutPath:  "/auth/logout",
		HTTP:        &http.Client{Jar: jar},
	}, nil
}

// Profile fetches the current identity.
func (a *HTTPAPI) Profile(ctx context.Context) (*User, error) {
	user := &User{}
	if err := a.do(ctx, http.MethodGet, a.ProfilePath, user); err != nil {
		return nil, err
	}
	return user, nil
}

// Logout ends the server side session.
func (a *HTTPAPI) Logout(ctx context.Context) error {
	return a.do(ctx, http.MethodPost, a.LogoutPath, nil)
}

func (a *HTTPAPI) do(ctx context.Context, method, path string, out any) error {
	req, err := http.NewRequestWithContext(ctx, method, a.BaseURL+path, nil)
	if err != nil {
		return errors.Wrapf(err, "build %s %s", method, path)
	}
	req.Header.Set("Accept", "application/json")

	res, err := a.client().Do(req)
	if err != nil {
		return errors.Wrapf(err, "%s %s", method, path)
	}
	defer res.Body.Close()

	body, err := io.ReadAll(io.LimitReader(res.Body, 1<<20))
	if err != nil {
		return errors.Wrap(err, "read response")
	}

	if res.StatusCode < 200 || res.StatusCode > 299 {
		apiErr := &APIError{Status: res.StatusCode}
		_ = json.Unmarshal(body, apiErr)
		return apiErr
	}

	if out == nil || len(body) == 0 {
		return nil
	}
	if err := json.Unmarshal(body, out); err != nil {
		return errors.Wrap(err, "decode response")
	}
	return nil
}

func (a *HTTPAPI) client() *http.Client {
	if a.HTTP != nil {
		return a.HTTP
	}
	return http.DefaultClient
}
