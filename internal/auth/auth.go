// Package auth drives the OAuth2 authorization-code grant against the
// score service and owns the in-memory token pair.
package auth

import (
	"context"
	"crypto/rand"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/scorecloud/scorecloud-cli/internal/config"
	"github.com/scorecloud/scorecloud-cli/internal/credstore"
	"github.com/scorecloud/scorecloud-cli/internal/version"
)

// State is the manager's authentication state.
type State int

const (
	StateUnauthenticated State = iota
	StateAuthenticating
	StateAuthenticated
)

// grantTimeout bounds the wait for the browser round-trip.
const grantTimeout = 5 * time.Minute

// Manager owns the token pair for one process. It is the single writer of
// the in-memory tokens and the credential store.
type Manager struct {
	cfg        *config.Config
	store      *credstore.Store
	httpClient *http.Client
	clientID   string
	logger     *slog.Logger

	// openBrowser is swappable in tests to drive the callback listener.
	openBrowser func(url string) error

	mu       sync.Mutex
	state    State
	tokens   credstore.TokenPair
	pending  func() // one-shot grant success callback
	onReload func() // notified after an external credential change is applied
}

// NewManager creates a manager and loads any persisted tokens. Loaded
// tokens set the state optimistically; signed-in is asserted only once the
// gateway confirms them with a profile fetch.
func NewManager(cfg *config.Config, store *credstore.Store, httpClient *http.Client, clientID string, logger *slog.Logger) *Manager {
	if logger == nil {
		logger = slog.Default()
	}
	m := &Manager{
		cfg:         cfg,
		store:       store,
		httpClient:  httpClient,
		clientID:    clientID,
		logger:      logger,
		openBrowser: openBrowser,
	}

	pair, err := store.Read()
	if err != nil {
		logger.Error("read credentials", "error", err)
	}
	if pair != nil && pair.AccessToken != "" {
		m.tokens = *pair
		m.state = StateAuthenticated
	}

	return m
}

// State returns the current authentication state.
func (m *Manager) State() State {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.state
}

// AccessToken returns the current access token, or "" when unauthenticated.
func (m *Manager) AccessToken() string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.tokens.AccessToken
}

// RefreshToken returns the current refresh token.
func (m *Manager) RefreshToken() string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.tokens.RefreshToken
}

// SetOnReload registers fn to run after tokens are re-read because a
// sibling process rewrote the credential file.
func (m *Manager) SetOnReload(fn func()) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.onReload = fn
}

// StartWatch subscribes to credential file changes made by sibling
// processes, keeping this instance's tokens consistent without polling.
func (m *Manager) StartWatch(ctx context.Context) error {
	return m.store.Watch(ctx, m.Reload)
}

// Reload re-reads tokens from the credential store. Absent credentials
// drop the manager back to unauthenticated.
func (m *Manager) Reload() {
	pair, err := m.store.Read()
	if err != nil {
		m.logger.Error("reload credentials", "error", err)
		return
	}

	m.mu.Lock()
	if pair != nil && pair.AccessToken != "" {
		m.tokens = *pair
		m.state = StateAuthenticated
	} else {
		m.tokens = credstore.TokenPair{}
		m.state = StateUnauthenticated
	}
	fn := m.onReload
	m.mu.Unlock()

	if fn != nil {
		fn()
	}
}

// Authorize runs the authorization-code grant against authorizationURL:
// open the URL in a browser, capture the redirect on a loopback listener,
// exchange the code for a token pair, persist it. onSuccess fires exactly
// once, and only for a fresh grant; when already authenticated Authorize
// is a no-op and the callback is discarded.
func (m *Manager) Authorize(ctx context.Context, authorizationURL string, onSuccess func()) error {
	m.mu.Lock()
	if m.state == StateAuthenticated {
		m.mu.Unlock()
		return nil
	}
	m.state = StateAuthenticating
	m.pending = onSuccess
	m.mu.Unlock()

	pair, err := m.runGrant(ctx, authorizationURL)
	if err != nil {
		m.mu.Lock()
		m.state = StateUnauthenticated
		m.pending = nil
		m.mu.Unlock()
		m.logger.Error("authorization failed", "error", err)
		return err
	}

	m.mu.Lock()
	m.tokens = *pair
	m.state = StateAuthenticated
	cb := m.pending
	m.pending = nil
	m.mu.Unlock()

	if err := m.store.Write(*pair); err != nil {
		m.logger.Error("persist credentials", "error", err)
	}

	if cb != nil {
		cb()
	}
	return nil
}

// runGrant performs the browser round-trip and code exchange.
func (m *Manager) runGrant(ctx context.Context, authorizationURL string) (*credstore.TokenPair, error) {
	lc := net.ListenConfig{}
	listener, err := lc.Listen(ctx, "tcp", "127.0.0.1:0")
	if err != nil {
		return nil, fmt.Errorf("failed to start callback server: %w", err)
	}
	defer func() { _ = listener.Close() }()

	redirectURI := fmt.Sprintf("http://%s/callback", listener.Addr().String())
	state := generateState()

	authURL, err := m.buildAuthURL(authorizationURL, redirectURI, state)
	if err != nil {
		return nil, err
	}

	codeCh := make(chan string, 1)
	errCh := make(chan error, 1)

	server := &http.Server{
		ReadHeaderTimeout: 10 * time.Second,
		Handler: http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			gotState := r.URL.Query().Get("state")
			code := r.URL.Query().Get("code")
			errParam := r.URL.Query().Get("error")

			if errParam != "" {
				errCh <- fmt.Errorf("authorization error: %s", errParam)
				fmt.Fprint(w, "<html><body><h1>Authorization failed</h1><p>You can close this window.</p></body></html>")
				return
			}
			if gotState != state {
				errCh <- fmt.Errorf("state mismatch: CSRF protection failed")
				fmt.Fprint(w, "<html><body><h1>Authorization failed</h1><p>State mismatch.</p></body></html>")
				return
			}

			codeCh <- code
			fmt.Fprint(w, "<html><body><h1>Authorization successful!</h1><p>You can close this window.</p></body></html>")
		}),
	}
	go server.Serve(listener)

	if err := m.openBrowser(authURL); err != nil {
		m.logger.Warn("could not open browser, open the URL manually", "url", authURL)
	}

	var code string
	select {
	case code = <-codeCh:
	case err := <-errCh:
		return nil, err
	case <-ctx.Done():
		return nil, ctx.Err()
	case <-time.After(grantTimeout):
		return nil, fmt.Errorf("authorization timeout")
	}

	return m.exchangeCode(ctx, code, redirectURI)
}

func (m *Manager) buildAuthURL(endpoint, redirectURI, state string) (string, error) {
	u, err := url.Parse(endpoint)
	if err != nil {
		return "", err
	}

	q := u.Query()
	q.Set("response_type", "code")
	q.Set("redirect_uri", redirectURI)
	q.Set("state", state)
	q.Set("device_id", m.clientID)
	q.Set("editor_source", version.EditorSource())
	q.Set("platform", version.Platform())
	u.RawQuery = q.Encode()

	return u.String(), nil
}

func (m *Manager) exchangeCode(ctx context.Context, code, redirectURI string) (*credstore.TokenPair, error) {
	data := url.Values{}
	data.Set("grant_type", "authorization_code")
	data.Set("code", code)
	data.Set("redirect_uri", redirectURI)
	data.Set("device_id", m.clientID)

	req, err := http.NewRequestWithContext(ctx, "POST", m.cfg.AccessTokenURL(), strings.NewReader(data.Encode()))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	m.setHeaders(req)

	resp, err := m.httpClient.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		return nil, fmt.Errorf("token exchange failed (HTTP %d): %s", resp.StatusCode, string(body))
	}

	var tokenResp struct {
		AccessToken  string `json:"access_token"`
		RefreshToken string `json:"refresh_token"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&tokenResp); err != nil {
		return nil, err
	}
	if tokenResp.AccessToken == "" {
		return nil, fmt.Errorf("token exchange response carried no access token")
	}

	return &credstore.TokenPair{
		AccessToken:  tokenResp.AccessToken,
		RefreshToken: tokenResp.RefreshToken,
	}, nil
}

// Refresh exchanges the refresh token for a new pair and persists it.
// A failed refresh is treated as proof of permanent invalidation: both
// tokens are cleared in memory and on disk, and Refresh returns false.
func (m *Manager) Refresh(ctx context.Context) bool {
	m.mu.Lock()
	refreshToken := m.tokens.RefreshToken
	m.mu.Unlock()

	refreshURL, err := url.Parse(m.cfg.RefreshURL())
	if err != nil {
		m.clearTokens()
		return false
	}
	q := refreshURL.Query()
	q.Set("refresh_token", refreshToken)
	q.Set("device_id", m.clientID)
	refreshURL.RawQuery = q.Encode()

	req, err := http.NewRequestWithContext(ctx, "POST", refreshURL.String(), nil)
	if err != nil {
		m.clearTokens()
		return false
	}
	m.setHeaders(req)

	resp, err := m.httpClient.Do(req)
	if err != nil {
		m.logger.Error("token refresh failed", "error", err)
		m.clearTokens()
		return false
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		m.logger.Error("token refresh rejected", "status", resp.StatusCode)
		m.clearTokens()
		return false
	}

	var tokenResp struct {
		AccessToken  string `json:"access_token"`
		RefreshToken string `json:"refresh_token"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&tokenResp); err != nil {
		m.logger.Error("token refresh response invalid", "error", err)
		m.clearTokens()
		return false
	}

	pair := credstore.TokenPair{
		AccessToken:  tokenResp.AccessToken,
		RefreshToken: tokenResp.RefreshToken,
	}

	m.mu.Lock()
	m.tokens = pair
	m.state = StateAuthenticated
	m.mu.Unlock()

	if err := m.store.Write(pair); err != nil {
		m.logger.Error("persist refreshed credentials", "error", err)
		return false
	}
	return true
}

// SignOut notifies the logout endpoint (best-effort), deletes the
// credential file and clears the in-memory tokens. A no-op when not
// authenticated.
func (m *Manager) SignOut(ctx context.Context) error {
	m.mu.Lock()
	if m.state != StateAuthenticated {
		m.mu.Unlock()
		return nil
	}
	access := m.tokens.AccessToken
	refresh := m.tokens.RefreshToken
	m.mu.Unlock()

	logoutURL, err := url.Parse(m.cfg.LogoutURL())
	if err == nil {
		q := logoutURL.Query()
		q.Set("access_token", access)
		q.Set("refresh_token", refresh)
		logoutURL.RawQuery = q.Encode()

		req, err := http.NewRequestWithContext(ctx, "GET", logoutURL.String(), nil)
		if err == nil {
			m.setHeaders(req)
			resp, err := m.httpClient.Do(req)
			if err != nil {
				m.logger.Warn("logout request failed", "error", err)
			} else {
				resp.Body.Close()
			}
		}
	}

	return m.clearTokens()
}

// clearTokens wipes memory and the on-disk record.
func (m *Manager) clearTokens() error {
	m.mu.Lock()
	m.tokens = credstore.TokenPair{}
	m.state = StateUnauthenticated
	m.mu.Unlock()

	return m.store.Clear()
}

func (m *Manager) setHeaders(req *http.Request) {
	req.Header.Set("Accept", "application/json")
	req.Header.Set("X-SC-CLIENT-ID", m.clientID)
	req.Header.Set("User-Agent", version.UserAgent())
}

func generateState() string {
	b := make([]byte, 16)
	if _, err := rand.Read(b); err != nil {
		panic("crypto/rand failed: " + err.Error())
	}
	return base64.RawURLEncoding.EncodeToString(b)
}
