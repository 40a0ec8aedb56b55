// Package scheduler runs housekeeping jobs on a cron timer, independent of
// the stream manager's own idle-eviction sweep.
package scheduler

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sync"

	"github.com/robfig/cron/v3"

	"github.com/jmylchreest/dashgate/internal/config"
	"github.com/jmylchreest/dashgate/pkg/format"
)

// ActiveStreamLister reports which stream IDs currently have a running
// pipeline, so the orphan sweep never removes a directory still in use.
type ActiveStreamLister interface {
	ListActive() []string
}

// ChannelCatalog reports the currently configured channel IDs, so the
// orphan sweep never removes a directory for a channel still in the
// catalog even if its pipeline happens to be idle at sweep time.
type ChannelCatalog interface {
	Channels() []config.ChannelDescriptor
}

// CleanupConfig controls the housekeeping scheduler.
type CleanupConfig struct {
	// OutputBaseDir is the root directory containing one subdirectory per
	// stream ID, as created by gateway.Manager.Activate.
	OutputBaseDir string
	// CronSchedule is a 6-field (sec min hour dom month dow) cron
	// expression. Empty disables the job.
	CronSchedule string
}

// DefaultCleanupSchedule runs the orphan sweep once a day at 03:00.
const DefaultCleanupSchedule = "0 0 3 * * *"

// DefaultCleanupConfig returns the default housekeeping configuration.
func DefaultCleanupConfig(outputBaseDir string) CleanupConfig {
	return CleanupConfig{
		OutputBaseDir: outputBaseDir,
		CronSchedule:  DefaultCleanupSchedule,
	}
}

// CleanupScheduler is the crash-recovery backstop for stream output
// directories: the manager's own eviction path removes a stream's
// directory on a clean idle timeout, but a process crash between
// Activate's MkdirAll and that eviction can leave a directory behind with
// no channel and no active pipeline to ever clean it up again.
type CleanupScheduler struct {
	mu sync.Mutex

	cfg     CleanupConfig
	lister  ActiveStreamLister
	catalog ChannelCatalog
	logger  *slog.Logger
	cron    *cron.Cron
	entryID cron.EntryID
}

// NewCleanupScheduler creates a scheduler that sweeps cfg.OutputBaseDir for
// orphaned stream directories on cfg.CronSchedule.
func NewCleanupScheduler(cfg CleanupConfig, lister ActiveStreamLister, catalog ChannelCatalog, logger *slog.Logger) *CleanupScheduler {
	if logger == nil {
		logger = slog.Default()
	}
	parser := cron.NewParser(cron.Second | cron.Minute | cron.Hour | cron.Dom | cron.Month | cron.Dow | cron.Descriptor)
	return &CleanupScheduler{
		cfg:     cfg,
		lister:  lister,
		catalog: catalog,
		logger:  logger,
		cron:    cron.New(cron.WithParser(parser), cron.WithChain(cron.Recover(cron.DefaultLogger))),
	}
}

// Start registers the sweep job and starts the cron engine. A disabled
// (empty CronSchedule) scheduler starts the engine with no entries.
func (s *CleanupScheduler) Start() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.cfg.CronSchedule != "" {
		entryID, err := s.cron.AddFunc(s.cfg.CronSchedule, s.sweepOnce)
		if err != nil {
			return fmt.Errorf("registering cleanup schedule: %w", err)
		}
		s.entryID = entryID
	}

	s.cron.Start()
	s.logger.Info("cleanup scheduler started",
		slog.String("schedule", s.cfg.CronSchedule),
		slog.String("schedule_description", format.CronDescription(s.cfg.CronSchedule)),
	)
	return nil
}

// Stop stops the cron engine, waiting for any in-flight sweep to finish.
func (s *CleanupScheduler) Stop() {
	ctx := s.cron.Stop()
	<-ctx.Done()
}

// RunNow runs the orphan sweep immediately, outside the cron schedule. Used
// on startup to clean up after an unclean shutdown before serving traffic.
func (s *CleanupScheduler) RunNow(_ context.Context) {
	s.sweepOnce()
}

func (s *CleanupScheduler) sweepOnce() {
	entries, err := os.ReadDir(s.cfg.OutputBaseDir)
	if err != nil {
		if !os.IsNotExist(err) {
			s.logger.Error("cleanup sweep: reading output base dir", slog.Any("error", err))
		}
		return
	}

	known := make(map[string]bool)
	for _, ch := range s.catalog.Channels() {
		known[ch.ID] = true
	}
	active := make(map[string]bool)
	for _, id := range s.lister.ListActive() {
		active[id] = true
	}

	removed := 0
	var reclaimed int64
	for _, entry := range entries {
		id := entry.Name()
		if !entry.IsDir() || known[id] || active[id] {
			continue
		}

		dir := filepath.Join(s.cfg.OutputBaseDir, id)
		size := dirSize(dir)
		if err := os.RemoveAll(dir); err != nil {
			s.logger.Error("cleanup sweep: removing orphaned stream dir",
				slog.String("dir", dir), slog.Any("error", err))
			continue
		}
		removed++
		reclaimed += size
		s.logger.Info("removed orphaned stream directory",
			slog.String("stream_id", id), slog.String("size", format.Bytes(size)))
	}

	if removed > 0 {
		s.logger.Info("cleanup sweep complete",
			slog.Int("removed", removed),
			slog.String("reclaimed", format.Bytes(reclaimed)),
		)
	}
}

// dirSize sums the size of every regular file under dir, returning 0 if
// dir cannot be walked (e.g. already partially removed).
func dirSize(dir string) int64 {
	var total int64
	_ = filepath.Walk(dir, func(_ string, info os.FileInfo, err error) error {
		if err != nil || info.IsDir() {
			return nil
		}
		total += info.Size()
		return nil
	})
	return total
}
