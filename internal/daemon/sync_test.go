package daemon

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"git.home.luguber.info/inful/docserve/internal/config"
	"git.home.luguber.info/inful/docserve/internal/db"
	"git.home.luguber.info/inful/docserve/internal/registry"
)

type fakeIndex struct {
	releases []registry.IndexRelease
	syncErr  error
	syncs    int
}

func (f *fakeIndex) Sync(ctx context.Context) error {
	f.syncs++
	return f.syncErr
}

func (f *fakeIndex) Releases() ([]registry.IndexRelease, error) {
	return f.releases, nil
}

type fakeAPI struct {
	owners    map[string][]registry.CrateOwner
	downloads map[string]int64
}

func (f *fakeAPI) GetCrateData(ctx context.Context, name string) registry.CrateData {
	return registry.CrateData{Owners: f.owners[name]}
}

func (f *fakeAPI) GetReleaseData(ctx context.Context, name, version string) registry.ReleaseData {
	return registry.ReleaseData{
		ReleaseTime: time.Date(2024, 6, 1, 0, 0, 0, 0, time.UTC),
		Downloads:   f.downloads[name+"/"+version],
	}
}

func TestRunOnceMirrorsIndex(t *testing.T) {
	database, err := db.Open(":memory:")
	require.NoError(t, err)
	defer database.Close()

	index := &fakeIndex{releases: []registry.IndexRelease{
		{Name: "serde", Version: "1.0.0"},
		{Name: "serde", Version: "0.9.0", Yanked: true},
		{Name: "tokio", Version: "1.38.0"},
	}}
	api := &fakeAPI{
		owners:    map[string][]registry.CrateOwner{"serde": {{Login: "dtolnay"}}},
		downloads: map[string]int64{"serde/1.0.0": 42},
	}

	svc, err := NewSyncService(database, index, api, nil, time.Minute)
	require.NoError(t, err)
	require.NoError(t, svc.RunOnce(context.Background()))

	ctx := context.Background()
	crate, err := database.GetCrate(ctx, "serde")
	require.NoError(t, err)

	releases, err := database.ListReleases(ctx, crate.ID)
	require.NoError(t, err)
	require.Len(t, releases, 2)

	rel, err := database.GetRelease(ctx, crate.ID, "1.0.0")
	require.NoError(t, err)
	require.Equal(t, int64(42), rel.Downloads)
	require.False(t, rel.Yanked)

	yanked, err := database.GetRelease(ctx, crate.ID, "0.9.0")
	require.NoError(t, err)
	require.True(t, yanked.Yanked)

	owners, err := database.ListOwners(ctx, crate.ID)
	require.NoError(t, err)
	require.Len(t, owners, 1)
	require.Equal(t, "dtolnay", owners[0].Login)

	count, err := database.CountCrates(ctx)
	require.NoError(t, err)
	require.Equal(t, 2, count)
}

func TestRunOncePreservesLocalReadme(t *testing.T) {
	database, err := db.Open(":memory:")
	require.NoError(t, err)
	defer database.Close()

	ctx := context.Background()
	crateID, err := database.UpsertCrate(ctx, "serde")
	require.NoError(t, err)
	_, err = database.UpsertRelease(ctx, &db.Release{
		CrateID:     crateID,
		Version:     "1.0.0",
		Description: "serialization framework",
		Readme:      "# Serde",
		ReleaseTime: time.Now().UTC(),
	})
	require.NoError(t, err)

	index := &fakeIndex{releases: []registry.IndexRelease{{Name: "serde", Version: "1.0.0"}}}
	svc, err := NewSyncService(database, index, &fakeAPI{}, nil, time.Minute)
	require.NoError(t, err)
	require.NoError(t, svc.RunOnce(ctx))

	rel, err := database.GetRelease(ctx, crateID, "1.0.0")
	require.NoError(t, err)
	require.Equal(t, "# Serde", rel.Readme)
	require.Equal(t, "serialization framework", rel.Description)
}

func TestConfigWatcherReloadsOnWrite(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "docserve.yaml")
	require.NoError(t, os.WriteFile(path, []byte("listen:\n  docs_port: 3000\n"), 0600))

	reloaded := make(chan *config.Config, 1)
	watcher, err := NewConfigWatcher(path, func(cfg *config.Config) {
		select {
		case reloaded <- cfg:
		default:
		}
	})
	require.NoError(t, err)
	watcher.Debounce = 50 * time.Millisecond

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	require.NoError(t, watcher.Start(ctx))
	defer func() { _ = watcher.Stop() }()

	require.NoError(t, os.WriteFile(path, []byte("listen:\n  docs_port: 4000\n"), 0600))

	select {
	case cfg := <-reloaded:
		require.Equal(t, 4000, cfg.Listen.DocsPort)
	case <-time.After(5 * time.Second):
		t.Fatal("configuration reload did not fire")
	}
}
