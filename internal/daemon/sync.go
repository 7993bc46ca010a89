// Package daemon runs docserve's background work: the periodic registry
// sync and the configuration file watcher.
package daemon

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/go-co-op/gocron/v2"
	"github.com/google/uuid"

	"git.home.luguber.info/inful/docserve/internal/db"
	"git.home.luguber.info/inful/docserve/internal/logfields"
	"git.home.luguber.info/inful/docserve/internal/metrics"
	"git.home.luguber.info/inful/docserve/internal/registry"
)

// IndexSource provides the registry index contents.
type IndexSource interface {
	Sync(ctx context.Context) error
	Releases() ([]registry.IndexRelease, error)
}

// MetadataSource provides best-effort crate and release metadata.
type MetadataSource interface {
	GetCrateData(ctx context.Context, name string) registry.CrateData
	GetReleaseData(ctx context.Context, name, version string) registry.ReleaseData
}

// SyncService periodically mirrors the registry index into the metadata
// database.
type SyncService struct {
	database  *db.DB
	index     IndexSource
	api       MetadataSource
	recorder  metrics.Recorder
	interval  time.Duration
	scheduler gocron.Scheduler
}

// NewSyncService creates the sync service. recorder may be nil.
func NewSyncService(database *db.DB, index IndexSource, api MetadataSource, recorder metrics.Recorder, interval time.Duration) (*SyncService, error) {
	if recorder == nil {
		recorder = metrics.NoopRecorder{}
	}
	scheduler, err := gocron.NewScheduler()
	if err != nil {
		return nil, fmt.Errorf("create scheduler: %w", err)
	}
	return &SyncService{
		database:  database,
		index:     index,
		api:       api,
		recorder:  recorder,
		interval:  interval,
		scheduler: scheduler,
	}, nil
}

// Start schedules the periodic sync. The first run fires immediately.
func (s *SyncService) Start(ctx context.Context) error {
	_, err := s.scheduler.NewJob(
		gocron.DurationJob(s.interval),
		gocron.NewTask(func() { s.run(ctx) }),
		gocron.WithName("registry-sync"),
		gocron.WithStartAt(gocron.WithStartImmediately()),
	)
	if err != nil {
		return fmt.Errorf("schedule registry sync: %w", err)
	}
	s.scheduler.Start()
	slog.Info("registry sync scheduled", slog.Duration("interval", s.interval))
	return nil
}

// Stop shuts down the scheduler, waiting for a running sync to finish.
func (s *SyncService) Stop(ctx context.Context) error {
	return s.scheduler.Shutdown()
}

// run executes one sync and records its duration and outcome.
func (s *SyncService) run(ctx context.Context) {
	jobID := uuid.NewString()
	start := time.Now()
	slog.Info("registry sync started", logfields.JobID(jobID))

	err := s.RunOnce(ctx)
	duration := time.Since(start)
	s.recorder.ObserveSyncDuration(duration, err == nil)

	if err != nil {
		slog.Error("registry sync failed",
			logfields.JobID(jobID),
			logfields.DurationMS(float64(duration.Milliseconds())),
			logfields.Error(err))
		return
	}
	slog.Info("registry sync finished",
		logfields.JobID(jobID),
		logfields.DurationMS(float64(duration.Milliseconds())))
}

// RunOnce performs a single full sync: update the index clone, upsert every
// crate and release, and enrich with API metadata where available.
func (s *SyncService) RunOnce(ctx context.Context) error {
	if err := s.index.Sync(ctx); err != nil {
		return fmt.Errorf("sync index: %w", err)
	}
	releases, err := s.index.Releases()
	if err != nil {
		return fmt.Errorf("read index: %w", err)
	}

	byCrate := make(map[string][]registry.IndexRelease)
	for _, rel := range releases {
		byCrate[rel.Name] = append(byCrate[rel.Name], rel)
	}

	for name, crateReleases := range byCrate {
		if err := ctx.Err(); err != nil {
			return err
		}
		if err := s.syncCrate(ctx, name, crateReleases); err != nil {
			return fmt.Errorf("sync crate %s: %w", name, err)
		}
	}

	count, err := s.database.CountCrates(ctx)
	if err != nil {
		return fmt.Errorf("count crates: %w", err)
	}
	s.recorder.SetCratesTotal(count)
	return nil
}

func (s *SyncService) syncCrate(ctx context.Context, name string, releases []registry.IndexRelease) error {
	crateID, err := s.database.UpsertCrate(ctx, name)
	if err != nil {
		return err
	}

	for _, rel := range releases {
		data := s.api.GetReleaseData(ctx, name, rel.Version)

		record := db.Release{
			CrateID:     crateID,
			Version:     rel.Version,
			Yanked:      rel.Yanked,
			Downloads:   data.Downloads,
			ReleaseTime: data.ReleaseTime,
		}
		// Preserve locally stored description and readme; the index does
		// not carry them.
		if existing, err := s.database.GetRelease(ctx, crateID, rel.Version); err == nil {
			record.Description = existing.Description
			record.Readme = existing.Readme
		}
		if _, err := s.database.UpsertRelease(ctx, &record); err != nil {
			return err
		}
	}

	crateData := s.api.GetCrateData(ctx, name)
	if len(crateData.Owners) > 0 {
		owners := make([]db.Owner, len(crateData.Owners))
		for i, o := range crateData.Owners {
			owners[i] = db.Owner{Login: o.Login, Name: o.Name, Email: o.Email, Avatar: o.Avatar}
		}
		if err := s.database.SetOwners(ctx, crateID, owners); err != nil {
			return err
		}
	}
	return nil
}
