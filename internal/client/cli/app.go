package cli

import (
	"bufio"
	"context"
	"log/slog"
	"os"

	"github.com/mzheleznov/profilehub/internal/client/api"
	"github.com/mzheleznov/profilehub/internal/client/config"
	"github.com/mzheleznov/profilehub/internal/client/session"
	"github.com/mzheleznov/profilehub/internal/client/upload"
	"github.com/mzheleznov/profilehub/internal/filex"
	"github.com/mzheleznov/profilehub/internal/logging"
)

const appName = "profilehub"

// App wires the client components behind the REPL commands.
type App struct {
	config   *config.Config
	sessions *session.Manager
	uploads  *upload.Pipeline
	reader   *bufio.Reader
}

// NewApp builds the client: HTTP provider, persisted token store, session
// manager, and upload pipeline.
func NewApp(c *config.Config) (*App, error) {
	stateDir, err := filex.StateDir(appName)
	if err != nil {
		return nil, err
	}

	logger := logging.NewSlogLogger(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelWarn})))

	provider := api.NewClient(c.ServerURL, c.RequestTimeout)
	store := session.NewTokenStore(stateDir)
	sessions := session.NewManager(provider, store, logger)
	uploads := upload.NewPipeline(provider, api.NewPresignedUploader(), sessions, logger)

	return &App{
		config:   c,
		sessions: sessions,
		uploads:  uploads,
		reader:   bufio.NewReader(os.Stdin),
	}, nil
}

// Run restores any persisted session and starts the REPL. It blocks until
// the user exits or ctx is canceled.
func (a *App) Run(ctx context.Context) {
	a.sessions.Restore(ctx)

	current, state := a.sessions.Current()
	if state == session.StateAuthenticated {
		printlnFn("Welcome back,", current.Username)
	}

	scanner := bufio.NewScanner(os.Stdin)
	runREPL(ctx, a, a.getStatus, scanner)
}

func (a *App) isLoggedIn() bool {
	_, state := a.sessions.Current()
	return state == session.StateAuthenticated
}

func (a *App) getStatus() string {
	current, state := a.sessions.Current()
	if state == session.StateAuthenticated {
		return "(" + current.Username + ")"
	}
	return ""
}
