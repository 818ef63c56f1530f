// Package appctx provides application context helpers.
package appctx

import (
	"bufio"
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/scorecloud/scorecloud-cli/internal/api"
	"github.com/scorecloud/scorecloud-cli/internal/auth"
	"github.com/scorecloud/scorecloud-cli/internal/config"
	"github.com/scorecloud/scorecloud-cli/internal/credstore"
	"github.com/scorecloud/scorecloud-cli/internal/session"
)

// contextKey is a private type for context keys.
type contextKey string

const appKey contextKey = "app"

// App holds the shared application context for all commands.
type App struct {
	Config   *config.Config
	Settings *config.Settings
	Store    *credstore.Store
	Auth     *auth.Manager
	API      *api.Client
	Session  *session.State
	Logger   *slog.Logger

	// Flags holds the global flag values
	Flags GlobalFlags
}

// GlobalFlags holds values for global CLI flags.
type GlobalFlags struct {
	APIRoot   string
	ConfigDir string
	Verbose   int
}

// NewApp creates a new App with the given configuration.
func NewApp(cfg *config.Config) (*App, error) {
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
		Level: slog.LevelWarn,
	}))

	settings := config.NewSettings(cfg.SettingsPath())
	clientID, err := settings.EnsureClientID()
	if err != nil {
		return nil, fmt.Errorf("client identity: %w", err)
	}

	store := credstore.New(cfg.CredentialsPath(), logger)
	st := session.NewState()

	httpClient := &http.Client{Timeout: 30 * time.Second}
	mgr := auth.NewManager(cfg, store, httpClient, clientID, logger)

	client := api.NewClient(cfg, mgr, st, clientID,
		api.WithLogger(logger),
		api.WithInteractor(consoleInteractor{}),
	)

	return &App{
		Config:   cfg,
		Settings: settings,
		Store:    store,
		Auth:     mgr,
		API:      client,
		Session:  st,
		Logger:   logger,
	}, nil
}

// ApplyFlags applies global flag values to the app configuration.
func (a *App) ApplyFlags() {
	if a.Flags.Verbose > 0 {
		a.Logger = slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
			Level: slog.LevelDebug,
		}))
		slog.SetDefault(a.Logger)
	}
}

// Init confirms loaded credentials against the profile endpoint and wires
// cross-process credential invalidation. Signed-in state is asserted only
// once the profile fetch succeeds.
func (a *App) Init(ctx context.Context) {
	a.Auth.SetOnReload(func() {
		if a.Auth.AccessToken() == "" {
			a.Session.SetAccount(session.AccountInfo{})
			return
		}
		if _, err := a.API.FetchAccountInfo(ctx); err != nil {
			a.Logger.Warn("profile fetch after credential reload failed", "error", err)
		}
	})
	if err := a.Auth.StartWatch(ctx); err != nil {
		a.Logger.Warn("credential watch unavailable", "error", err)
	}

	if a.Auth.AccessToken() != "" {
		if _, err := a.API.FetchAccountInfo(ctx); err != nil {
			a.Logger.Warn("initial profile fetch failed", "error", err)
		}
	}
}

// consoleInteractor is the CLI's interaction surface: the real browser for
// URLs, a terminal prompt for modal confirmation.
type consoleInteractor struct{}

func (consoleInteractor) OpenURL(url string) error {
	return auth.OpenURL(url)
}

func (consoleInteractor) RequireAuthorization(text string) (bool, error) {
	fmt.Println(text)
	fmt.Print("Sign in now? [y/N] ")

	reader := bufio.NewReader(os.Stdin)
	answer, err := reader.ReadString('\n')
	if err != nil {
		return false, err
	}

	answer = strings.ToLower(strings.TrimSpace(answer))
	return answer == "y" || answer == "yes", nil
}

// WithApp stores the app in the context.
func WithApp(ctx context.Context, app *App) context.Context {
	return context.WithValue(ctx, appKey, app)
}

// FromContext retrieves the app from the context.
func FromContext(ctx context.Context) *App {
	app, _ := ctx.Value(appKey).(*App)
	return app
}
