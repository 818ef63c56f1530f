// Package api is the authenticated gateway to the score service. It builds
// typed requests against the token lifecycle manager, runs them through the
// refresh-and-retry executor, and publishes session state changes.
package api

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"time"

	"github.com/scorecloud/scorecloud-cli/internal/auth"
	"github.com/scorecloud/scorecloud-cli/internal/config"
	scerrors "github.com/scorecloud/scorecloud-cli/internal/sdk/errors"
	"github.com/scorecloud/scorecloud-cli/internal/session"
	"github.com/scorecloud/scorecloud-cli/internal/version"
)

// TokenSource is the slice of the token lifecycle manager the gateway
// consumes. *auth.Manager implements it.
type TokenSource interface {
	AccessToken() string
	Refresh(ctx context.Context) bool
	Authorize(ctx context.Context, authorizationURL string, onSuccess func()) error
	SignOut(ctx context.Context) error
}

// Interactor is the external interaction surface: browser opens and modal
// prompts. The CLI layer provides the real one.
type Interactor interface {
	// OpenURL opens url in an external browser-like surface.
	OpenURL(url string) error

	// RequireAuthorization prompts the user to sign in and reports whether
	// they accepted.
	RequireAuthorization(text string) (bool, error)
}

// browserInteractor is the default surface: real browser, no modal.
type browserInteractor struct{}

func (browserInteractor) OpenURL(url string) error {
	return auth.OpenURL(url)
}

func (browserInteractor) RequireAuthorization(text string) (bool, error) {
	return false, fmt.Errorf("no interactive surface available")
}

// Client is the gateway to the score service.
type Client struct {
	cfg        *config.Config
	httpClient *http.Client
	auth       TokenSource
	session    *session.State
	clientID   string
	interactor Interactor
	logger     *slog.Logger
}

// Option configures a Client.
type Option func(*Client)

// WithHTTPClient replaces the default HTTP client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.httpClient = hc }
}

// WithInteractor replaces the default interaction surface.
func WithInteractor(i Interactor) Option {
	return func(c *Client) { c.interactor = i }
}

// WithLogger replaces the default logger.
func WithLogger(l *slog.Logger) Option {
	return func(c *Client) { c.logger = l }
}

// NewClient creates a gateway bound to the given token source and session
// state. The client exclusively owns writes to the session state.
func NewClient(cfg *config.Config, ts TokenSource, st *session.State, clientID string, opts ...Option) *Client {
	c := &Client{
		cfg: cfg,
		httpClient: &http.Client{
			Timeout: 60 * time.Second,
		},
		auth:       ts,
		session:    st,
		clientID:   clientID,
		interactor: browserInteractor{},
		logger:     slog.Default(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Session returns the observable session state.
func (c *Client) Session() *session.State {
	return c.session
}

// Execute runs one logical API call. When the call fails because the
// access token was rejected, the token pair is refreshed and the call is
// rerun exactly once; the second result is returned verbatim, success or
// failure. A failed refresh returns the original error. Every other error
// passes through untouched.
//
// fn must re-derive its request URL on each invocation so the second
// attempt picks up the refreshed token.
func (c *Client) Execute(ctx context.Context, fn func() error) error {
	err := fn()
	if !scerrors.IsNotAuthorized(err) {
		return err
	}
	if !c.auth.Refresh(ctx) {
		// A failed refresh is a full sign-out; the published session
		// must reflect it immediately, not after the file watcher fires.
		c.session.SetAccount(session.AccountInfo{})
		return err
	}
	return fn()
}

// RequireAuthorization opens a modal prompting the user to sign in and
// returns the interaction's outcome unchanged. Used by callers as a
// precondition gate.
func (c *Client) RequireAuthorization(text string) (bool, error) {
	return c.interactor.RequireAuthorization(text)
}

// SignIn starts the authorization-code grant against the sign-in endpoint.
func (c *Client) SignIn(ctx context.Context) error {
	return c.auth.Authorize(ctx, c.cfg.AuthorizationURL, nil)
}

// SignUp runs the same grant against the account-creation endpoint.
func (c *Client) SignUp(ctx context.Context) error {
	return c.auth.Authorize(ctx, c.cfg.SignUpURL, nil)
}

// SignOut signs out of the service and resets the published session state.
func (c *Client) SignOut(ctx context.Context) error {
	err := c.auth.SignOut(ctx)
	c.session.SetAccount(session.AccountInfo{})
	return err
}

// prepareURL builds an endpoint URL carrying the access token plus any
// operation-specific parameters as a query string. Fails fast when no
// token was ever acquired.
func (c *Client) prepareURL(endpoint string, params url.Values) (string, error) {
	token := c.auth.AccessToken()
	if token == "" {
		return "", scerrors.ErrAccessTokenEmpty()
	}

	u, err := url.Parse(endpoint)
	if err != nil {
		return "", err
	}

	q := u.Query()
	q.Set("access_token", token)
	for key, values := range params {
		for _, v := range values {
			q.Add(key, v)
		}
	}
	u.RawQuery = q.Encode()

	return u.String(), nil
}

func (c *Client) setHeaders(req *http.Request) {
	req.Header.Set("Accept", "application/json")
	req.Header.Set("X-SC-CLIENT-ID", c.clientID)
	req.Header.Set("User-Agent", version.UserAgent())
}

// get performs a GET and classifies the outcome into the gateway's error
// kinds.
func (c *Client) get(ctx context.Context, rawURL string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, "GET", rawURL, nil)
	if err != nil {
		return nil, err
	}
	c.setHeaders(req)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, scerrors.ErrNetwork(err)
	}
	defer resp.Body.Close()

	return c.classify(resp)
}

// classify maps an HTTP response to a body or a typed error.
func (c *Client) classify(resp *http.Response) ([]byte, error) {
	switch {
	case resp.StatusCode == http.StatusUnauthorized:
		return nil, scerrors.ErrNotAuthorized()

	case resp.StatusCode == http.StatusNotFound:
		return nil, scerrors.ErrNotFound("resource")

	case resp.StatusCode >= 200 && resp.StatusCode < 300:
		body, err := io.ReadAll(resp.Body)
		if err != nil {
			return nil, scerrors.ErrNetwork(err)
		}
		return body, nil

	default:
		body, _ := io.ReadAll(resp.Body)
		var apiErr struct {
			Error   string `json:"error"`
			Message string `json:"message"`
		}
		if json.Unmarshal(body, &apiErr) == nil {
			msg := apiErr.Error
			if msg == "" {
				msg = apiErr.Message
			}
			if msg != "" {
				return nil, scerrors.ErrAPI(resp.StatusCode, msg)
			}
		}
		return nil, scerrors.ErrAPI(resp.StatusCode, fmt.Sprintf("request failed (HTTP %d)", resp.StatusCode))
	}
}
