// Package backup writes point-in-time copies of the local database, prunes
// old copies, and optionally ships each copy offsite.
package backup

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/dmitrijs2005/repairdesk/internal/common"
	"github.com/dmitrijs2005/repairdesk/internal/filex"
	"github.com/dmitrijs2005/repairdesk/internal/logging"
	"github.com/dmitrijs2005/repairdesk/internal/repositories/settings"
	"github.com/dmitrijs2005/repairdesk/internal/services"
)

const (
	filePrefix = "auto_backup_"
	fileSuffix = ".db"
	nameLayout = "2006-01-02_15-04-05"
)

// Uploader copies a finished backup file somewhere off the device.
type Uploader interface {
	Upload(ctx context.Context, path string) error
}

type Config struct {
	// Dir is used when the backup_path setting is empty.
	Dir string
	// Keep is how many of the newest backups are never pruned.
	Keep int
	// MaxAge is how old a backup beyond Keep must be before it is deleted.
	MaxAge time.Duration
}

type Result struct {
	Path     string
	Pruned   []string
	Uploaded bool
}

type Service struct {
	db       *sql.DB
	cfg      Config
	uploader Uploader
	clock    common.Clock
	log      logging.Logger

	mu sync.Mutex
}

// New builds the service. uploader may be nil.
func New(db *sql.DB, cfg Config, uploader Uploader, clock common.Clock, log logging.Logger) *Service {
	if clock == nil {
		clock = common.SystemClock{}
	}
	if log == nil {
		log = logging.Nop()
	}
	if cfg.Keep <= 0 {
		cfg.Keep = 3
	}
	if cfg.MaxAge <= 0 {
		cfg.MaxAge = 7 * 24 * time.Hour
	}
	return &Service{db: db, cfg: cfg, uploader: uploader, clock: clock, log: log}
}

// Dir resolves the backup directory: the device's backup_path setting if
// present, otherwise the configured default.
func (s *Service) Dir(ctx context.Context) (string, error) {
	v, ok, err := settings.NewSQLiteRepository(s.db).Get(ctx, services.SettingBackupPath)
	if err != nil {
		return "", err
	}
	if ok && strings.TrimSpace(v) != "" {
		return strings.TrimSpace(v), nil
	}
	if s.cfg.Dir == "" {
		return "", fmt.Errorf("backup directory is not configured")
	}
	return s.cfg.Dir, nil
}

// Run takes one snapshot, prunes old ones and uploads the new file when an
// uploader is set. A failed prune or upload is reported in the error but the
// snapshot itself stays on disk.
func (s *Service) Run(ctx context.Context) (Result, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	dir, err := s.Dir(ctx)
	if err != nil {
		return Result{}, err
	}
	dir, err = filex.EnsureDir(dir)
	if err != nil {
		return Result{}, fmt.Errorf("backup dir: %w", err)
	}

	now := s.clock.Now()
	path := filepath.Join(dir, filePrefix+now.Format(nameLayout)+fileSuffix)
	if filex.Exists(path) {
		return Result{}, fmt.Errorf("backup %s already exists", filepath.Base(path))
	}
	if _, err := s.db.ExecContext(ctx, "VACUUM INTO ?", path); err != nil {
		return Result{}, fmt.Errorf("snapshot: %w", err)
	}
	res := Result{Path: path}
	s.log.Info(ctx, "backup written", "path", path)

	res.Pruned, err = s.prune(dir, now)
	if err != nil {
		s.log.Warn(ctx, "backup prune failed", "dir", dir, "error", err)
		return res, fmt.Errorf("prune: %w", err)
	}

	if s.uploader != nil {
		if err := s.uploader.Upload(ctx, path); err != nil {
			s.log.Warn(ctx, "backup upload failed", "path", path, "error", err)
			return res, fmt.Errorf("upload: %w", err)
		}
		res.Uploaded = true
	}
	return res, nil
}

type snapshot struct {
	path  string
	taken time.Time
}

// List returns the backups in dir, newest first.
func List(dir string) ([]string, error) {
	snaps, err := snapshots(dir)
	if err != nil {
		return nil, err
	}
	out := make([]string, 0, len(snaps))
	for _, sn := range snaps {
		out = append(out, sn.path)
	}
	return out, nil
}

func snapshots(dir string) ([]snapshot, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, err
	}
	var out []snapshot
	for _, e := range entries {
		name := e.Name()
		if e.IsDir() || !strings.HasPrefix(name, filePrefix) || !strings.HasSuffix(name, fileSuffix) {
			continue
		}
		stamp := strings.TrimSuffix(strings.TrimPrefix(name, filePrefix), fileSuffix)
		taken, err := time.ParseInLocation(nameLayout, stamp, time.Local)
		if err != nil {
			continue
		}
		out = append(out, snapshot{path: filepath.Join(dir, name), taken: taken})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].taken.After(out[j].taken) })
	return out, nil
}

// prune keeps the newest cfg.Keep backups and deletes older ones only once
// they are past cfg.MaxAge.
func (s *Service) prune(dir string, now time.Time) ([]string, error) {
	snaps, err := snapshots(dir)
	if err != nil {
		return nil, err
	}
	if len(snaps) <= s.cfg.Keep {
		return nil, nil
	}

	cutoff := now.Add(-s.cfg.MaxAge)
	var pruned []string
	for _, sn := range snaps[s.cfg.Keep:] {
		if !sn.taken.Before(cutoff) {
			continue
		}
		if err := os.Remove(sn.path); err != nil {
			return pruned, err
		}
		pruned = append(pruned, sn.path)
	}
	return pruned, nil
}
