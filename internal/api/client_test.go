package api

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/scorecloud/scorecloud-cli/internal/config"
	scerrors "github.com/scorecloud/scorecloud-cli/internal/sdk/errors"
	"github.com/scorecloud/scorecloud-cli/internal/session"
)

// fakeTokens stubs the token lifecycle manager.
type fakeTokens struct {
	token      string
	refreshOK  bool
	newToken   string
	refreshes  int
	authorizes int
	signOuts   int

	// authorize overrides the default Authorize behavior.
	authorize func(ctx context.Context, authorizationURL string, onSuccess func()) error
}

func (f *fakeTokens) AccessToken() string { return f.token }

func (f *fakeTokens) Refresh(ctx context.Context) bool {
	f.refreshes++
	if !f.refreshOK {
		f.token = ""
		return false
	}
	f.token = f.newToken
	return true
}

func (f *fakeTokens) Authorize(ctx context.Context, authorizationURL string, onSuccess func()) error {
	f.authorizes++
	if f.authorize != nil {
		return f.authorize(ctx, authorizationURL, onSuccess)
	}
	if onSuccess != nil {
		onSuccess()
	}
	return nil
}

func (f *fakeTokens) SignOut(ctx context.Context) error {
	f.signOuts++
	f.token = ""
	return nil
}

// captureInteractor records browser opens and answers modals.
type captureInteractor struct {
	opened []string
	allow  bool
}

func (c *captureInteractor) OpenURL(url string) error {
	c.opened = append(c.opened, url)
	return nil
}

func (c *captureInteractor) RequireAuthorization(text string) (bool, error) {
	return c.allow, nil
}

func newTestClient(t *testing.T, handler http.Handler, ft *fakeTokens) (*Client, *session.State, *captureInteractor) {
	t.Helper()

	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)

	cfg := config.Default()
	cfg.APIRoot = server.URL
	cfg.ConfigDir = t.TempDir()

	st := session.NewState()
	ci := &captureInteractor{}
	c := NewClient(cfg, ft, st, "client-xyz", WithInteractor(ci))
	return c, st, ci
}

func TestExecuteRetriesExactlyOnceAfterRefresh(t *testing.T) {
	ft := &fakeTokens{token: "old", refreshOK: true, newToken: "new"}
	c, _, _ := newTestClient(t, http.NotFoundHandler(), ft)

	var calls int
	err := c.Execute(context.Background(), func() error {
		calls++
		if calls == 1 {
			return scerrors.ErrNotAuthorized()
		}
		return nil
	})

	require.NoError(t, err)
	assert.Equal(t, 2, calls)
	assert.Equal(t, 1, ft.refreshes)
}

func TestExecuteSecondResultReturnedVerbatim(t *testing.T) {
	ft := &fakeTokens{token: "old", refreshOK: true, newToken: "new"}
	c, _, _ := newTestClient(t, http.NotFoundHandler(), ft)

	second := scerrors.ErrAPI(500, "server exploded")
	var calls int
	err := c.Execute(context.Background(), func() error {
		calls++
		if calls == 1 {
			return scerrors.ErrNotAuthorized()
		}
		return second
	})

	assert.Equal(t, 2, calls, "no third attempt regardless of outcome")
	assert.Same(t, second, err)
}

func TestExecuteRefreshFailureReturnsOriginalError(t *testing.T) {
	ft := &fakeTokens{token: "old", refreshOK: false}
	c, _, _ := newTestClient(t, http.NotFoundHandler(), ft)

	original := scerrors.ErrNotAuthorized()
	var calls int
	err := c.Execute(context.Background(), func() error {
		calls++
		return original
	})

	assert.Equal(t, 1, calls)
	assert.Equal(t, 1, ft.refreshes)
	assert.Same(t, original, err)
}

func TestExecuteOtherErrorsSkipRefresh(t *testing.T) {
	ft := &fakeTokens{token: "t", refreshOK: true}
	c, _, _ := newTestClient(t, http.NotFoundHandler(), ft)

	apiErr := scerrors.ErrAPI(503, "unavailable")
	err := c.Execute(context.Background(), func() error { return apiErr })

	assert.Same(t, apiErr, err)
	assert.Zero(t, ft.refreshes, "only a 401-class failure triggers refresh")
}

func TestFetchAccountInfoRequiresToken(t *testing.T) {
	ft := &fakeTokens{token: ""}
	c, _, _ := newTestClient(t, http.NotFoundHandler(), ft)

	_, err := c.FetchAccountInfo(context.Background())
	require.Error(t, err)
	assert.Equal(t, scerrors.CodeAccessTokenEmpty, scerrors.CodeOf(err))
	assert.Zero(t, ft.refreshes, "never-authenticated is not a refresh trigger")
}

func TestFetchAccountInfo(t *testing.T) {
	handler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/me", r.URL.Path)
		assert.Equal(t, "tok-1", r.URL.Query().Get("access_token"))
		assert.Equal(t, "application/json", r.Header.Get("Accept"))
		assert.Equal(t, "client-xyz", r.Header.Get("X-SC-CLIENT-ID"))
		assert.NotEmpty(t, r.Header.Get("User-Agent"))

		w.Write([]byte(`{"id": 42, "name": "ada", "profile_url": "https://scorecloud.app/user/ada", "avatar_url": "https://cdn.scorecloud.app/ada.png"}`))
	})

	ft := &fakeTokens{token: "tok-1"}
	c, st, _ := newTestClient(t, handler, ft)

	info, err := c.FetchAccountInfo(context.Background())
	require.NoError(t, err)

	assert.Equal(t, int64(42), info.ID)
	assert.Equal(t, "ada", info.UserName)
	assert.Equal(t, "https://scorecloud.app/user/ada/sheetmusic", info.SheetmusicURL)

	assert.True(t, st.SignedIn(), "valid profile asserts signed-in")
	assert.Equal(t, info, st.Account())
}

func TestFetchAccountInfoRetriesWithRefreshedToken(t *testing.T) {
	var requests int
	handler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		requests++
		if r.URL.Query().Get("access_token") != "fresh" {
			http.Error(w, "expired", http.StatusUnauthorized)
			return
		}
		w.Write([]byte(`{"id": 7, "name": "grace", "profile_url": "https://scorecloud.app/user/grace", "avatar_url": ""}`))
	})

	ft := &fakeTokens{token: "stale", refreshOK: true, newToken: "fresh"}
	c, st, _ := newTestClient(t, handler, ft)

	info, err := c.FetchAccountInfo(context.Background())
	require.NoError(t, err)

	assert.Equal(t, 2, requests, "retried exactly once with the new token")
	assert.Equal(t, 1, ft.refreshes)
	assert.Equal(t, "grace", info.UserName)
	assert.True(t, st.SignedIn())
}

func TestFetchScoreInfo(t *testing.T) {
	handler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/score/info", r.URL.Path)
		assert.Equal(t, "42", r.URL.Query().Get("score_id"))

		w.Write([]byte(`{
			"id": 42,
			"title": "Nocturne",
			"description": "late draft",
			"license": "all-rights-reserved",
			"tags": "piano,nocturne",
			"sharing": "private",
			"custom_url": "https://scorecloud.app/score/42",
			"user": {"uid": 7, "username": "grace", "custom_url": "https://scorecloud.app/user/grace"}
		}`))
	})

	ft := &fakeTokens{token: "tok"}
	c, _, _ := newTestClient(t, handler, ft)

	info, err := c.FetchScoreInfo(context.Background(), 42)
	require.NoError(t, err)

	assert.Equal(t, int64(42), info.ID)
	assert.Equal(t, "Nocturne", info.Title)
	assert.Equal(t, []string{"piano", "nocturne"}, info.Tags)
	assert.True(t, info.IsPrivate)
	assert.Equal(t, int64(7), info.Owner.ID)
	assert.Equal(t, "grace", info.Owner.UserName)
}

func TestFetchScoreInfoNotFound(t *testing.T) {
	handler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.NotFound(w, r)
	})

	ft := &fakeTokens{token: "tok"}
	c, _, _ := newTestClient(t, handler, ft)

	_, err := c.FetchScoreInfo(context.Background(), 9999)
	require.Error(t, err)
	assert.True(t, scerrors.IsNotFound(err))
}

func TestSignOutResetsSession(t *testing.T) {
	ft := &fakeTokens{token: "tok"}
	c, st, _ := newTestClient(t, http.NotFoundHandler(), ft)
	st.SetAccount(session.AccountInfo{ID: 7, UserName: "grace"})

	require.NoError(t, c.SignOut(context.Background()))

	assert.Equal(t, 1, ft.signOuts)
	assert.False(t, st.SignedIn())
	assert.Equal(t, session.AccountInfo{}, st.Account())
}

func TestRequireAuthorization(t *testing.T) {
	ft := &fakeTokens{}
	c, _, ci := newTestClient(t, http.NotFoundHandler(), ft)

	ci.allow = true
	ok, err := c.RequireAuthorization("Sign in to upload scores")
	require.NoError(t, err)
	assert.True(t, ok)

	ci.allow = false
	ok, err = c.RequireAuthorization("Sign in to upload scores")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestExecuteRefreshFailureSignsOutSession(t *testing.T) {
	ft := &fakeTokens{token: "stale", refreshOK: false}
	c, st, _ := newTestClient(t, http.NotFoundHandler(), ft)
	st.SetAccount(session.AccountInfo{ID: 7, UserName: "grace"})
	require.True(t, st.SignedIn())

	err := c.Execute(context.Background(), func() error {
		return scerrors.ErrNotAuthorized()
	})

	require.Error(t, err)
	assert.False(t, st.SignedIn(), "a failed refresh is a full sign-out")
	assert.Equal(t, session.AccountInfo{}, st.Account())
}
