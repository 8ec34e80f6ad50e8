package commands

import (
	"context"
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/taskmaster/taskboard/internal/adapters/api"
	"github.com/taskmaster/taskboard/internal/adapters/render"
	"github.com/taskmaster/taskboard/internal/adapters/repository"
	"github.com/taskmaster/taskboard/internal/application/services"
	"github.com/taskmaster/taskboard/internal/domain/entities"
	"github.com/taskmaster/taskboard/internal/infrastructure/config"
	"github.com/taskmaster/taskboard/internal/infrastructure/database"
	"github.com/taskmaster/taskboard/internal/infrastructure/logger"
)

// Options are the persistent flags shared by every command
type Options struct {
	ConfigFile  string
	Output      string
	APIURL      string
	SessionPath string
	Verbose     bool
}

// App holds what a command run needs. Config and logger are loaded for every
// command; the session store and API client only when a command asks.
type App struct {
	opts    Options
	version string

	cfg      *config.Config
	logger   *logger.Logger
	renderer *render.Renderer

	db      *database.DB
	session *services.SessionController
	client  *api.Client

	sessionExpired bool
}

// Execute runs the CLI and returns the process exit code
func Execute(version string) int {
	app := &App{version: version}
	root := NewRootCommand(app)
	defer app.Close()

	if err := root.Execute(); err != nil {
		app.reportError(root.ErrOrStderr(), err)
		return 1
	}
	return 0
}

// NewRootCommand builds the command tree around app
func NewRootCommand(app *App) *cobra.Command {
	root := &cobra.Command{
		Use:           "taskboard",
		Short:         "Task board client",
		Long:          "taskboard is a command line client for the task board API: projects, tasks, users and reports, gated by the role in your login token.",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return app.setup(cmd)
		},
	}

	flags := root.PersistentFlags()
	flags.StringVarP(&app.opts.ConfigFile, "config", "c", "", "config file (yaml, json or toml)")
	flags.StringVarP(&app.opts.Output, "output", "o", "table", "output format: table, json or yaml")
	flags.StringVar(&app.opts.APIURL, "api-url", "", "API base URL (overrides api.base_url)")
	flags.StringVar(&app.opts.SessionPath, "session", "", "session database path (overrides session.path)")
	flags.BoolVarP(&app.opts.Verbose, "verbose", "v", false, "enable debug logging")

	root.AddCommand(
		NewLoginCommand(app),
		NewLogoutCommand(app),
		NewWhoamiCommand(app),
		NewRegisterCommand(app),
		NewProjectsCommand(app),
		NewTasksCommand(app),
		NewUsersCommand(app),
		NewReportsCommand(app),
		NewServeCommand(app),
		NewVersionCommand(app),
	)
	return root
}

func (a *App) setup(cmd *cobra.Command) error {
	format, err := render.ParseFormat(a.opts.Output)
	if err != nil {
		return err
	}
	a.renderer = render.New(cmd.OutOrStdout(), format)

	cfg, err := config.Load(a.opts.ConfigFile)
	if err != nil {
		return err
	}
	if a.opts.APIURL != "" {
		cfg.API.BaseURL = a.opts.APIURL
	}
	if a.opts.SessionPath != "" {
		cfg.Session.Path = a.opts.SessionPath
	}
	if a.opts.Verbose {
		cfg.Logger.Level = "debug"
	}
	a.cfg = cfg

	appLogger, err := logger.New(cfg.Logger)
	if err != nil {
		return fmt.Errorf("failed to initialize logger: %w", err)
	}
	a.logger = appLogger
	return nil
}

// connect opens the session store, restores the saved session and builds the
// API client.
func (a *App) connect(ctx context.Context) error {
	if a.client != nil {
		return nil
	}

	db, err := database.Open(a.cfg.Session.Path)
	if err != nil {
		return fmt.Errorf("failed to open session store: %w", err)
	}
	a.db = db

	decoder := services.NewClaimsDecoder(a.cfg.Session.StrictUserID)
	a.session = services.NewSessionController(repository.NewSessionRepository(db.DB), nil, decoder, a.logger)
	a.client = api.NewClient(a.cfg.API.BaseURL, a.cfg.API.Timeout, a.session, a.logger)
	a.session.SetAuthAPI(a.client)
	a.session.OnInvalidate(func(reason string) {
		a.sessionExpired = true
	})

	if _, err := a.session.Restore(ctx); err != nil {
		return err
	}
	return nil
}

// authorize connects and checks the session's role allows p
func (a *App) authorize(ctx context.Context, p entities.Permission) error {
	if err := a.connect(ctx); err != nil {
		return err
	}
	return a.session.Current().Require(p)
}

// Close releases the session store and flushes logs
func (a *App) Close() {
	if a.db != nil {
		a.db.Close()
	}
	if a.logger != nil {
		a.logger.Close()
	}
}

func (a *App) reportError(w io.Writer, err error) {
	red := color.New(color.FgRed, color.Bold).SprintFunc()
	switch {
	case a.sessionExpired:
		fmt.Fprintf(w, "%s session expired, please log in again\n", red("Error:"))
	case errors.Is(err, entities.ErrUnauthenticated):
		fmt.Fprintf(w, "%s not logged in: run \"taskboard login\" (%v)\n", red("Error:"), err)
	case errors.Is(err, entities.ErrForbidden):
		fmt.Fprintf(w, "%s permission denied: %v\n", red("Error:"), err)
	case services.IsTokenError(err):
		fmt.Fprintf(w, "%s the server issued an unusable token: %v\n", red("Error:"), err)
	default:
		fmt.Fprintf(w, "%s %v\n", red("Error:"), err)
	}
}

func commandContext(cmd *cobra.Command) (context.Context, context.CancelFunc) {
	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}
	return context.WithTimeout(ctx, 2*time.Minute)
}
