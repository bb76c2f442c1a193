// Package cli wires the reader components for the command-line interface.
package cli

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"github.com/kiwix/kiwix-reader/internal/application/usecase"
	"github.com/kiwix/kiwix-reader/internal/cli/styles"
	"github.com/kiwix/kiwix-reader/internal/domain/build"
	"github.com/kiwix/kiwix-reader/internal/domain/repository"
	"github.com/kiwix/kiwix-reader/internal/infrastructure/config"
	"github.com/kiwix/kiwix-reader/internal/infrastructure/metrics"
	"github.com/kiwix/kiwix-reader/internal/infrastructure/persistence/sqlite"
	"github.com/kiwix/kiwix-reader/internal/infrastructure/snapshot"
	"github.com/kiwix/kiwix-reader/internal/infrastructure/surface"
	"github.com/kiwix/kiwix-reader/internal/infrastructure/zim"
	"github.com/kiwix/kiwix-reader/internal/logging"
	"github.com/kiwix/kiwix-reader/internal/ui/mainloop"
	"github.com/kiwix/kiwix-reader/internal/ui/reader"
)

const closeTimeout = 5 * time.Second

// Options selects how the app is set up for a command.
type Options struct {
	// LogToFile sends logs to the configured log file instead of stderr.
	// The interactive reader owns the terminal and needs this.
	LogToFile bool
}

// App holds CLI dependencies.
type App struct {
	Config    *config.Config
	Manager   *config.Manager
	Theme     *styles.Theme
	BuildInfo build.Info
	db        *sql.DB

	Snapshots repository.SnapshotRepository
	History   repository.HistoryRepository
	Bookmarks repository.BookmarkRepository

	// Use cases
	RecordHistoryUC *usecase.RecordHistoryUseCase
	BookmarksUC     *usecase.ManageBookmarksUseCase
	RestoreUC       *usecase.RestoreHistoryUseCase
	SnapshotUC      *usecase.SnapshotHistoryUseCase

	// Context with logger
	ctx        context.Context
	logCleanup func()
}

// NewApp loads the configuration, sets up logging and opens the database.
func NewApp(opts Options) (*App, error) {
	mgr, cfg := loadConfig()

	logger, logCleanup := newLogger(cfg, opts)
	ctx := logging.WithContext(context.Background(), logger)

	db, err := sqlite.NewConnection(ctx, cfg.Database.Path)
	if err != nil {
		logCleanup()
		return nil, fmt.Errorf("open database: %w", err)
	}
	logger.Debug().Str("db_path", cfg.Database.Path).Msg("database connected")

	snapshotRepo := sqlite.NewSnapshotRepository(db)
	historyRepo := sqlite.NewHistoryRepository(db)
	bookmarkRepo := sqlite.NewBookmarkRepository(db)

	return &App{
		Config:          cfg,
		Manager:         mgr,
		Theme:           styles.NewTheme(),
		db:              db,
		Snapshots:       snapshotRepo,
		History:         historyRepo,
		Bookmarks:       bookmarkRepo,
		RecordHistoryUC: usecase.NewRecordHistoryUseCase(historyRepo),
		BookmarksUC:     usecase.NewManageBookmarksUseCase(bookmarkRepo),
		RestoreUC:       usecase.NewRestoreHistoryUseCase(snapshotRepo),
		SnapshotUC:      usecase.NewSnapshotHistoryUseCase(snapshotRepo),
		ctx:             ctx,
		logCleanup:      logCleanup,
	}, nil
}

// Close releases all resources.
func (a *App) Close() error {
	var err error
	if a.db != nil {
		err = sqlite.Close(a.db)
	}
	if a.logCleanup != nil {
		a.logCleanup()
	}
	return err
}

// Ctx returns the application context with logger.
func (a *App) Ctx() context.Context {
	return a.ctx
}

// Session is a running reader: the loop, the controller and the services
// feeding it.
type Session struct {
	Controller *reader.Controller
	Metrics    *metrics.Metrics

	loop      *mainloop.Loop
	snapshots *snapshot.Service
	server    *metrics.Server
	ctx       context.Context
	cancel    context.CancelFunc
}

// StartSession builds a reader controller over the app's repositories. When
// metricsAddr is set, Prometheus metrics are served there.
func (a *App) StartSession(metricsAddr string) (*Session, error) {
	ctx, cancel := context.WithCancel(a.ctx)
	cfg := a.Config

	m := metrics.New()
	var server *metrics.Server
	if metricsAddr != "" {
		var err error
		server, err = metrics.Serve(ctx, metricsAddr, m)
		if err != nil {
			cancel()
			return nil, err
		}
	}

	loop := mainloop.New()
	loop.Start(ctx)

	snapshots := snapshot.NewService(a.SnapshotUC, m, cfg.Session.SnapshotIntervalMs)
	snapshots.Start(ctx)

	ctrl := reader.New(ctx, reader.Dependencies{
		Loop:      loop,
		Surfaces:  surface.NewFactory(cfg.Reader.MaxSurfaces),
		Opener:    usecase.NewOpenContentSourceUseCase(zim.NewOpener(cfg.Reader.ClusterCacheMB << 20)),
		Restore:   a.RestoreUC,
		Snapshots: snapshots,
		History:   a.RecordHistoryUC,
		Bookmarks: a.BookmarksUC,
		Metrics:   m,
		Options: reader.Options{
			UndoWindow:      time.Duration(cfg.Session.UndoWindowMs) * time.Millisecond,
			HomePageOnClose: cfg.Reader.HomePageOnClose,
		},
	})

	if a.Manager != nil {
		a.Manager.OnConfigChange(func(next *config.Config) {
			zerolog.SetGlobalLevel(logging.ParseLevel(next.Logging.Level))
			logging.FromContext(ctx).Info().Str("level", next.Logging.Level).Msg("configuration reloaded")
		})
		if err := a.Manager.Watch(); err != nil {
			logging.FromContext(ctx).Warn().Err(err).Msg("config watch unavailable")
		}
	}

	return &Session{
		Controller: ctrl,
		Metrics:    m,
		loop:       loop,
		snapshots:  snapshots,
		server:     server,
		ctx:        ctx,
		cancel:     cancel,
	}, nil
}

// Close persists the tabs and stops every background component.
func (s *Session) Close() error {
	ctx, cancel := context.WithTimeout(context.WithoutCancel(s.ctx), closeTimeout)
	defer cancel()

	err := s.Controller.Close(ctx)
	if stopErr := s.snapshots.Stop(ctx); err == nil {
		err = stopErr
	}
	s.loop.Stop()
	if s.server != nil {
		if shutErr := s.server.Shutdown(ctx); err == nil {
			err = shutErr
		}
	}
	s.cancel()
	return err
}

// loadConfig loads configuration from standard locations, falling back to
// the defaults when the file cannot be used.
func loadConfig() (*config.Manager, *config.Config) {
	mgr, err := config.NewManager()
	if err == nil {
		if err = mgr.Load(); err == nil {
			return mgr, mgr.Get()
		}
	}

	cfg := config.DefaultConfig()
	if path, pathErr := config.GetDatabaseFile(); pathErr == nil {
		cfg.Database.Path = path
	}
	return nil, cfg
}

func newLogger(cfg *config.Config, opts Options) (zerolog.Logger, func()) {
	lc := logging.DefaultConfig()
	lc.Level = logging.ParseLevel(cfg.Logging.Level)
	lc.Format = cfg.Logging.Format
	lc.TimeFormat = "15:04:05"

	if opts.LogToFile && cfg.Logging.File != "" {
		logger, cleanup, err := logging.NewFile(lc, cfg.Logging.File)
		if err == nil {
			return logger, cleanup
		}
	}
	if opts.LogToFile {
		return zerolog.Nop(), func() {}
	}
	return logging.New(lc), func() {}
}
