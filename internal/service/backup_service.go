package service

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/noah-isme/meal-checkin-api/internal/dto"
	"github.com/noah-isme/meal-checkin-api/internal/repository"
	appErrors "github.com/noah-isme/meal-checkin-api/pkg/errors"
	"github.com/noah-isme/meal-checkin-api/pkg/jobs"
	"github.com/noah-isme/meal-checkin-api/pkg/period"
	"github.com/noah-isme/meal-checkin-api/pkg/storage"
)

const (
	backupTimestampLayout = "2006-01-02_15-04-05"
	preRestoreMarker      = "pre-restore_"
	defaultMaxBackups     = 30
)

// Backup kinds used in metrics and logs.
const (
	BackupKindManual    = "manual"
	BackupKindStartup   = "startup"
	BackupKindScheduled = "scheduled"
	BackupKindRestore   = "restore"
)

type snapshotStore interface {
	Supported() bool
	Snapshot(ctx context.Context, path string) error
	Restore(ctx context.Context, path string) error
}

type backupFiles interface {
	Path(name string) (string, error)
	Stat(name string) (storage.FileInfo, error)
	List(prefix string) ([]storage.FileInfo, error)
	Delete(name string) error
}

// BackupConfig tunes naming and retention.
type BackupConfig struct {
	// DatabaseName is the base of every backup file name, e.g. "meal.db".
	DatabaseName string
	MaxFiles     int
}

// BackupService creates, lists, prunes and restores whole-database snapshots.
type BackupService struct {
	store   snapshotStore
	files   backupFiles
	cache   *CacheService
	metrics *MetricsService
	clock   *period.Clock
	logger  *zap.Logger
	prefix  string
	max     int
}

// NewBackupService constructs a BackupService.
func NewBackupService(store snapshotStore, files backupFiles, cache *CacheService, metrics *MetricsService, clock *period.Clock, logger *zap.Logger, cfg BackupConfig) *BackupService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if clock == nil {
		clock = period.NewClock(nil, nil)
	}
	if cfg.DatabaseName == "" {
		cfg.DatabaseName = "meal.db"
	}
	if cfg.MaxFiles <= 0 {
		cfg.MaxFiles = defaultMaxBackups
	}
	return &BackupService{
		store:   store,
		files:   files,
		cache:   cache,
		metrics: metrics,
		clock:   clock,
		logger:  logger,
		prefix:  cfg.DatabaseName + ".backup_",
		max:     cfg.MaxFiles,
	}
}

// Create snapshots the database and prunes old backups.
func (s *BackupService) Create(ctx context.Context) (*dto.BackupFile, error) {
	file, err := s.create(ctx, BackupKindManual)
	if err != nil {
		return nil, err
	}
	return file, nil
}

// Job types handled by JobHandler.
const (
	JobBackupStartup   = "backup.startup"
	JobBackupScheduled = "backup.scheduled"
)

// JobHandler adapts a backup kind to the job queue. Failures are returned so the queue retries them;
// a non-sqlite driver is logged once and treated as done.
func (s *BackupService) JobHandler(kind string) jobs.Handler {
	return func(ctx context.Context, job jobs.Job) error {
		_, err := s.create(ctx, kind)
		if errors.Is(err, repository.ErrSnapshotUnsupported) {
			s.logger.Info("backup skipped", zap.String("kind", kind), zap.String("reason", "driver does not support snapshots"))
			return nil
		}
		return err
	}
}

func (s *BackupService) create(ctx context.Context, kind string) (*dto.BackupFile, error) {
	if !s.store.Supported() {
		s.metrics.RecordBackup(kind, repository.ErrSnapshotUnsupported)
		return nil, appErrors.Wrap(repository.ErrSnapshotUnsupported, appErrors.ErrPreconditionFailed.Code,
			appErrors.ErrPreconditionFailed.Status, "backups are only available with the sqlite3 driver")
	}

	name, err := s.snapshot(ctx, s.prefix+s.clock.Now().Format(backupTimestampLayout))
	s.metrics.RecordBackup(kind, err)
	if err != nil {
		return nil, appErrors.Internal(err, "failed to create backup")
	}

	if err := s.prune(); err != nil {
		s.logger.Warn("backup pruning failed", zap.Error(err))
	}

	info, err := s.files.Stat(name)
	if err != nil {
		return nil, appErrors.Internal(err, "failed to read backup")
	}
	s.logger.Info("backup created", zap.String("kind", kind), zap.String("filename", name), zap.Int64("size", info.Size))
	file := s.describe(info)
	return &file, nil
}

// List returns backups newest first.
func (s *BackupService) List(ctx context.Context) (*dto.BackupList, error) {
	infos, err := s.files.List(s.prefix)
	if err != nil {
		return nil, appErrors.Internal(err, "failed to list backups")
	}
	s.sortOldestFirst(infos)
	backups := make([]dto.BackupFile, 0, len(infos))
	for i := len(infos) - 1; i >= 0; i-- {
		backups = append(backups, s.describe(infos[i]))
	}
	return &dto.BackupList{Count: len(backups), Backups: backups}, nil
}

// Delete removes one backup file.
func (s *BackupService) Delete(ctx context.Context, name string) error {
	if err := s.validateName(name); err != nil {
		return err
	}
	if _, err := s.files.Stat(name); err != nil {
		return s.statError(err)
	}
	if err := s.files.Delete(name); err != nil {
		return appErrors.Internal(err, "failed to delete backup")
	}
	s.logger.Info("backup deleted", zap.String("filename", name))
	return nil
}

// Restore takes a safety snapshot of the live database, then replaces its contents with the named backup.
func (s *BackupService) Restore(ctx context.Context, name string) (*dto.RestoreResult, error) {
	if err := s.validateName(name); err != nil {
		return nil, err
	}
	if !s.store.Supported() {
		return nil, appErrors.Wrap(repository.ErrSnapshotUnsupported, appErrors.ErrPreconditionFailed.Code,
			appErrors.ErrPreconditionFailed.Status, "restore is only available with the sqlite3 driver")
	}
	if _, err := s.files.Stat(name); err != nil {
		return nil, s.statError(err)
	}

	safety, err := s.snapshot(ctx, s.prefix+preRestoreMarker+s.clock.Now().Format(backupTimestampLayout))
	if err != nil {
		s.metrics.RecordBackup(BackupKindRestore, err)
		return nil, appErrors.Internal(err, "failed to snapshot current database before restore")
	}

	path, err := s.files.Path(name)
	if err == nil {
		err = s.store.Restore(ctx, path)
	}
	s.metrics.RecordBackup(BackupKindRestore, err)
	if err != nil {
		s.logger.Error("restore failed", zap.String("filename", name), zap.String("safety_backup", safety), zap.Error(err))
		return nil, appErrors.Internal(err, "failed to restore backup")
	}

	s.cache.InvalidateAll(ctx)
	s.logger.Info("backup restored", zap.String("filename", name), zap.String("safety_backup", safety))
	return &dto.RestoreResult{RestoredFrom: name, SafetyBackup: safety}, nil
}

// snapshot writes base, or base-N when a same-second snapshot already exists, and returns the file name.
func (s *BackupService) snapshot(ctx context.Context, base string) (string, error) {
	name := base
	for n := 1; ; n++ {
		if _, err := s.files.Stat(name); err != nil {
			break
		}
		name = base + "-" + strconv.Itoa(n)
	}
	path, err := s.files.Path(name)
	if err != nil {
		return "", err
	}
	if err := s.store.Snapshot(ctx, path); err != nil {
		return "", err
	}
	return name, nil
}

// prune deletes the oldest backups beyond the retention limit.
func (s *BackupService) prune() error {
	infos, err := s.files.List(s.prefix)
	if err != nil {
		return err
	}
	if len(infos) <= s.max {
		return nil
	}
	s.sortOldestFirst(infos)
	for _, info := range infos[:len(infos)-s.max] {
		if err := s.files.Delete(info.Name); err != nil {
			return err
		}
		s.logger.Info("old backup removed", zap.String("filename", info.Name))
	}
	return nil
}

// sortOldestFirst orders by the timestamp embedded in the name, falling back to mtime, with the name as tie-break.
func (s *BackupService) sortOldestFirst(infos []storage.FileInfo) {
	sort.SliceStable(infos, func(i, j int) bool {
		ti, tj := s.createdAt(infos[i]), s.createdAt(infos[j])
		if !ti.Equal(tj) {
			return ti.Before(tj)
		}
		return infos[i].Name < infos[j].Name
	})
}

func (s *BackupService) createdAt(info storage.FileInfo) time.Time {
	stamp := strings.TrimPrefix(strings.TrimPrefix(info.Name, s.prefix), preRestoreMarker)
	if len(stamp) >= len(backupTimestampLayout) {
		if ts, err := time.ParseInLocation(backupTimestampLayout, stamp[:len(backupTimestampLayout)], s.clock.Location()); err == nil {
			return ts
		}
	}
	return time.Unix(info.ModTime, 0).In(s.clock.Location())
}

func (s *BackupService) describe(info storage.FileInfo) dto.BackupFile {
	return dto.BackupFile{
		Filename:  info.Name,
		Size:      info.Size,
		SizeInMB:  fmt.Sprintf("%.2f", float64(info.Size)/(1024*1024)),
		CreatedAt: s.createdAt(info),
	}
}

func (s *BackupService) validateName(name string) error {
	if name == "" || strings.ContainsAny(name, `/\`) || strings.Contains(name, "..") || filepath.Base(name) != name {
		return appErrors.Clone(appErrors.ErrValidation, "invalid backup file name")
	}
	if !strings.HasPrefix(name, s.prefix) {
		return appErrors.Clone(appErrors.ErrValidation, "not a backup file")
	}
	return nil
}

func (s *BackupService) statError(err error) error {
	if errors.Is(err, os.ErrNotExist) {
		return appErrors.Clone(appErrors.ErrNotFound, "backup file not found")
	}
	return appErrors.Internal(err, "failed to read backup")
}
