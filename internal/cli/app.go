package cli

import (
	"bufio"
	"context"
	"database/sql"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/dmitrijs2005/repairdesk/internal/backup"
	"github.com/dmitrijs2005/repairdesk/internal/bootstrap"
	"github.com/dmitrijs2005/repairdesk/internal/common"
	"github.com/dmitrijs2005/repairdesk/internal/config"
	"github.com/dmitrijs2005/repairdesk/internal/localdb"
	"github.com/dmitrijs2005/repairdesk/internal/logging"
	"github.com/dmitrijs2005/repairdesk/internal/netx"
	"github.com/dmitrijs2005/repairdesk/internal/remote"
	"github.com/dmitrijs2005/repairdesk/internal/services"
	"github.com/dmitrijs2005/repairdesk/internal/syncer"
)

type Mode string

const (
	ModeOffline  Mode = "offline"
	ModeOnline   Mode = "online"
	ModeDisabled Mode = "disabled"
)

type App struct {
	cfg       *config.Config
	log       logging.Logger
	logCloser io.Closer

	db      *sql.DB
	store   *remote.SQLStore
	watcher *netx.Watcher
	online  netx.Checker

	deps     services.Deps
	auth     services.AuthService
	orgs     services.OrganizationService
	clients  services.ClientService
	repairs  services.RepairService
	users    services.UserService
	audit    services.AuditService
	settings services.SettingsService

	boot   *bootstrap.Service
	pusher *syncer.Pusher
	puller *syncer.Puller
	backup *backup.Service

	modeMu sync.Mutex
	mode   Mode

	reader *bufio.Reader
	out    io.Writer
}

// NewApp opens the local store (migrating it), connects the remote store
// when one is configured and builds every service on top.
func NewApp(ctx context.Context, cfg *config.Config, in io.Reader, out io.Writer) (*App, error) {
	logger, closer, err := logging.New(logging.Options{
		Level:  cfg.Log.Level,
		Format: cfg.Log.Format,
		File:   cfg.Log.File,
	})
	if err != nil {
		return nil, fmt.Errorf("logger: %w", err)
	}

	db, err := localdb.Open(ctx, cfg.DatabasePath)
	if err != nil {
		_ = closer.Close()
		return nil, fmt.Errorf("error initializing database: %w", err)
	}

	a := &App{
		cfg:       cfg,
		log:       logger,
		logCloser: closer,
		db:        db,
		mode:      ModeDisabled,
		reader:    bufio.NewReader(in),
		out:       out,
	}
	a.deps = services.NewDeps(db, logger)
	a.audit = services.NewAuditService(a.deps)
	a.auth = services.NewAuthService(a.deps)
	a.orgs = services.NewOrganizationService(a.deps)
	a.clients = services.NewClientService(a.deps)
	a.repairs = services.NewRepairService(a.deps)
	a.users = services.NewUserService(a.deps)
	a.settings = services.NewSettingsService(a.deps)

	if err := a.connectRemote(ctx); err != nil {
		_ = a.Close()
		return nil, err
	}
	a.boot = bootstrap.New(a.deps, a.remoteStore(), a.online)

	var uploader backup.Uploader
	if cfg.S3.Enabled() {
		up, err := backup.NewS3Uploader(ctx, cfg.S3)
		if err != nil {
			_ = a.Close()
			return nil, err
		}
		uploader = up
	}
	a.backup = backup.New(db, backup.Config{
		Dir:    cfg.BackupDir,
		Keep:   cfg.BackupKeep,
		MaxAge: cfg.BackupMaxAge,
	}, uploader, a.deps.Clock, logger)

	return a, nil
}

func (a *App) connectRemote(ctx context.Context) error {
	if a.cfg.RemoteURL == "" {
		a.online = netx.Always(false)
		a.log.Info(ctx, "no remote store configured, running local only")
		return nil
	}

	store, err := remote.Open(ctx, remote.Options{
		URL:       a.cfg.RemoteURL,
		AuthToken: a.cfg.RemoteAuthToken,
		Timeout:   a.cfg.RemoteTimeout,
	})
	if err != nil {
		return err
	}
	a.store = store

	if a.cfg.RemoteAuthToken != "" {
		if expired, err := remote.TokenExpired(a.cfg.RemoteAuthToken, time.Now()); err != nil {
			a.log.Warn(ctx, "remote auth token is not a readable JWT", "error", err)
		} else if expired {
			a.log.Warn(ctx, "remote auth token has expired; sync will fail until it is replaced")
		}
	}

	a.watcher = netx.NewWatcher(netx.CheckerFor(a.cfg.RemoteURL, a.cfg.ProbeTimeout), a.cfg.OnlineCheckInterval, a.onConnectivity)
	a.online = a.watcher
	a.mode = ModeOffline

	a.pusher = syncer.NewPusher(a.db, store, a.online, a.log, syncer.PushConfig{
		BatchSize:     a.cfg.PushBatchSize,
		RemoteTimeout: a.cfg.RemoteTimeout,
	})
	a.puller = syncer.NewPuller(a.db, store, a.online, a.log)
	return nil
}

// remoteStore keeps a nil *SQLStore from becoming a non-nil interface.
func (a *App) remoteStore() remote.Store {
	if a.store == nil {
		return nil
	}
	return a.store
}

func (a *App) onConnectivity(online bool) {
	if online {
		a.setMode(ModeOnline)
	} else {
		a.setMode(ModeOffline)
	}
}

func (a *App) setMode(mode Mode) {
	a.modeMu.Lock()
	defer a.modeMu.Unlock()
	if a.mode != mode {
		a.mode = mode
		a.log.Info(context.Background(), fmt.Sprintf("Switched to %s mode", mode))
	}
}

func (a *App) Mode() Mode {
	a.modeMu.Lock()
	defer a.modeMu.Unlock()
	return a.mode
}

func (a *App) Close() error {
	var errs []error
	if a.store != nil {
		errs = append(errs, a.store.Close())
	}
	if a.db != nil {
		errs = append(errs, a.db.Close())
	}
	if a.logCloser != nil {
		errs = append(errs, a.logCloser.Close())
	}
	return errors.Join(errs...)
}

func (a *App) initSignalHandler(cancelFunc context.CancelFunc) func() {
	sigs := make(chan os.Signal, 1)
	signal.Notify(sigs, syscall.SIGINT, syscall.SIGTERM, syscall.SIGQUIT)

	done := make(chan struct{})
	go func() {
		select {
		case <-sigs:
			cancelFunc()
		case <-done:
		}
	}()
	return func() {
		signal.Stop(sigs)
		close(done)
	}
}

// Shell runs the interactive session until the user exits or the process
// is signalled.
func (a *App) Shell(ctx context.Context) error {
	st, err := a.boot.State(ctx)
	if err != nil {
		return err
	}
	if st == bootstrap.Fresh {
		return fmt.Errorf("%w: run `repairdesk setup` or `repairdesk restore` first", common.ErrOrganizationNotConfigured)
	}

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()
	stopSignals := a.initSignalHandler(cancel)
	defer stopSignals()

	if a.watcher != nil {
		a.watcher.Check(ctx)
		go a.watcher.Run(ctx)
	}

	var sched *syncer.Scheduler
	if a.pusher != nil {
		sched = syncer.NewScheduler(a.pusher.Push, a.cfg.PushStartupDelay, a.cfg.PushInterval, a.log)
		sched.Start(ctx)
	}

	fmt.Fprintln(a.out, "Welcome to RepairDesk (type 'help' for commands)")
	replDone := make(chan struct{})
	go func() {
		defer close(replDone)
		runREPL(ctx, a.commands(), a.deps.Session.IsLoggedIn, a.status, a.reader, a.out)
	}()

	select {
	case <-replDone:
	case <-ctx.Done():
		fmt.Fprintln(a.out)
	}

	if sched != nil && !sched.Stop(a.cfg.ShutdownTimeout) {
		a.log.Warn(ctx, "scheduled push still running at shutdown")
	}
	a.shutdown()
	return nil
}

// shutdown gives a final push and backup a bounded amount of time.
func (a *App) shutdown() {
	ctx := context.Background()
	done := make(chan struct{})
	go func() {
		defer close(done)
		if a.pusher != nil {
			if _, err := a.pusher.Push(ctx); err != nil {
				a.log.Warn(ctx, "final push failed", "error", err)
			}
		}
		if a.cfg.BackupOnShutdown {
			if _, err := a.backup.Run(ctx); err != nil {
				a.log.Warn(ctx, "shutdown backup failed", "error", err)
			}
		}
	}()

	select {
	case <-done:
	case <-time.After(a.cfg.ShutdownTimeout):
		a.log.Warn(ctx, "shutdown wait exceeded, exiting", "timeout", a.cfg.ShutdownTimeout)
	}
}

func (a *App) status() string {
	s := ""
	if u := a.deps.Session.User(); u != nil {
		s = u.Username + " "
	}
	s += string(a.Mode())
	return fmt.Sprintf("(%s)", s)
}
