package db

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"
)

// Crate is a registered crate.
type Crate struct {
	ID   int64
	Name string
}

// Release is one published version of a crate.
type Release struct {
	ID          int64
	CrateID     int64
	Version     string
	Description string
	Readme      string
	Yanked      bool
	Downloads   int64
	ReleaseTime time.Time
}

// Build records one documentation build of a release.
type Build struct {
	ID        int64
	ReleaseID int64
	Status    string
	Output    string
	BuildTime time.Time
}

// Owner is a crate owner fetched from the registry API.
type Owner struct {
	Login  string
	Name   string
	Email  string
	Avatar string
}

// GetCrate looks up a crate by name. Returns ErrNotFound if it is unknown.
func (d *DB) GetCrate(ctx context.Context, name string) (*Crate, error) {
	var c Crate
	err := d.db.QueryRowContext(ctx,
		"SELECT id, name FROM crates WHERE name = ?", name,
	).Scan(&c.ID, &c.Name)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("query crate: %w", err)
	}
	return &c, nil
}

// ListReleases returns all releases of a crate, newest release time first.
func (d *DB) ListReleases(ctx context.Context, crateID int64) ([]Release, error) {
	rows, err := d.db.QueryContext(ctx,
		`SELECT id, crate_id, version, description, readme, yanked, downloads, release_time
		 FROM releases WHERE crate_id = ? ORDER BY release_time DESC`, crateID)
	if err != nil {
		return nil, fmt.Errorf("query releases: %w", err)
	}
	defer rows.Close()
	return scanReleases(rows)
}

// GetRelease looks up one release by crate and exact version string.
func (d *DB) GetRelease(ctx context.Context, crateID int64, version string) (*Release, error) {
	rows, err := d.db.QueryContext(ctx,
		`SELECT id, crate_id, version, description, readme, yanked, downloads, release_time
		 FROM releases WHERE crate_id = ? AND version = ?`, crateID, version)
	if err != nil {
		return nil, fmt.Errorf("query release: %w", err)
	}
	defer rows.Close()

	releases, err := scanReleases(rows)
	if err != nil {
		return nil, err
	}
	if len(releases) == 0 {
		return nil, ErrNotFound
	}
	return &releases[0], nil
}

// RecentReleases returns the latest published releases across all crates.
func (d *DB) RecentReleases(ctx context.Context, limit int) ([]ReleaseWithCrate, error) {
	rows, err := d.db.QueryContext(ctx,
		`SELECT c.name, r.id, r.crate_id, r.version, r.description, r.readme, r.yanked, r.downloads, r.release_time
		 FROM releases r JOIN crates c ON c.id = r.crate_id
		 WHERE r.yanked = 0 ORDER BY r.release_time DESC LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("query recent releases: %w", err)
	}
	defer rows.Close()
	return scanReleasesWithCrate(rows)
}

// SearchReleases matches crate names and descriptions against query.
func (d *DB) SearchReleases(ctx context.Context, query string, limit int) ([]ReleaseWithCrate, error) {
	pattern := "%" + query + "%"
	rows, err := d.db.QueryContext(ctx,
		`SELECT c.name, r.id, r.crate_id, r.version, r.description, r.readme, r.yanked, r.downloads, r.release_time
		 FROM releases r JOIN crates c ON c.id = r.crate_id
		 WHERE r.yanked = 0 AND (c.name LIKE ? OR r.description LIKE ?)
		 ORDER BY r.downloads DESC, r.release_time DESC LIMIT ?`, pattern, pattern, limit)
	if err != nil {
		return nil, fmt.Errorf("search releases: %w", err)
	}
	defer rows.Close()
	return scanReleasesWithCrate(rows)
}

// ReleaseWithCrate pairs a release with its crate name for listings.
type ReleaseWithCrate struct {
	CrateName string
	Release
}

// ListBuilds returns all builds of a release, newest first.
func (d *DB) ListBuilds(ctx context.Context, releaseID int64) ([]Build, error) {
	rows, err := d.db.QueryContext(ctx,
		`SELECT id, release_id, status, output, build_time
		 FROM builds WHERE release_id = ? ORDER BY build_time DESC`, releaseID)
	if err != nil {
		return nil, fmt.Errorf("query builds: %w", err)
	}
	defer rows.Close()

	var builds []Build
	for rows.Next() {
		var b Build
		var ts int64
		if err := rows.Scan(&b.ID, &b.ReleaseID, &b.Status, &b.Output, &ts); err != nil {
			return nil, fmt.Errorf("scan build: %w", err)
		}
		b.BuildTime = time.Unix(ts, 0).UTC()
		builds = append(builds, b)
	}
	return builds, rows.Err()
}

// GetBuild looks up one build by id.
func (d *DB) GetBuild(ctx context.Context, id int64) (*Build, error) {
	var b Build
	var ts int64
	err := d.db.QueryRowContext(ctx,
		"SELECT id, release_id, status, output, build_time FROM builds WHERE id = ?", id,
	).Scan(&b.ID, &b.ReleaseID, &b.Status, &b.Output, &ts)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("query build: %w", err)
	}
	b.BuildTime = time.Unix(ts, 0).UTC()
	return &b, nil
}

// ListOwners returns the owners of a crate.
func (d *DB) ListOwners(ctx context.Context, crateID int64) ([]Owner, error) {
	rows, err := d.db.QueryContext(ctx,
		`SELECT o.login, o.name, o.email, o.avatar
		 FROM owners o JOIN crate_owners co ON co.owner_id = o.id
		 WHERE co.crate_id = ? ORDER BY o.login`, crateID)
	if err != nil {
		return nil, fmt.Errorf("query owners: %w", err)
	}
	defer rows.Close()

	var owners []Owner
	for rows.Next() {
		var o Owner
		if err := rows.Scan(&o.Login, &o.Name, &o.Email, &o.Avatar); err != nil {
			return nil, fmt.Errorf("scan owner: %w", err)
		}
		owners = append(owners, o)
	}
	return owners, rows.Err()
}

// ListCratesByOwner returns the crates owned by login, or ErrNotFound if the
// owner is unknown.
func (d *DB) ListCratesByOwner(ctx context.Context, login string) ([]Crate, error) {
	var ownerID int64
	err := d.db.QueryRowContext(ctx, "SELECT id FROM owners WHERE login = ?", login).Scan(&ownerID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("query owner: %w", err)
	}

	rows, err := d.db.QueryContext(ctx,
		`SELECT c.id, c.name FROM crates c
		 JOIN crate_owners co ON co.crate_id = c.id
		 WHERE co.owner_id = ? ORDER BY c.name`, ownerID)
	if err != nil {
		return nil, fmt.Errorf("query crates by owner: %w", err)
	}
	defer rows.Close()

	var crates []Crate
	for rows.Next() {
		var c Crate
		if err := rows.Scan(&c.ID, &c.Name); err != nil {
			return nil, fmt.Errorf("scan crate: %w", err)
		}
		crates = append(crates, c)
	}
	return crates, rows.Err()
}

// UpsertCrate inserts a crate if missing and returns its id.
func (d *DB) UpsertCrate(ctx context.Context, name string) (int64, error) {
	_, err := d.db.ExecContext(ctx,
		"INSERT INTO crates (name) VALUES (?) ON CONFLICT(name) DO NOTHING", name)
	if err != nil {
		return 0, fmt.Errorf("insert crate: %w", err)
	}
	var id int64
	if err := d.db.QueryRowContext(ctx, "SELECT id FROM crates WHERE name = ?", name).Scan(&id); err != nil {
		return 0, fmt.Errorf("query crate id: %w", err)
	}
	return id, nil
}

// UpsertRelease inserts or updates a release and returns its id.
func (d *DB) UpsertRelease(ctx context.Context, r *Release) (int64, error) {
	_, err := d.db.ExecContext(ctx,
		`INSERT INTO releases (crate_id, version, description, readme, yanked, downloads, release_time)
		 VALUES (?, ?, ?, ?, ?, ?, ?)
		 ON CONFLICT(crate_id, version) DO UPDATE SET
			description = excluded.description,
			readme = excluded.readme,
			yanked = excluded.yanked,
			downloads = excluded.downloads,
			release_time = excluded.release_time`,
		r.CrateID, r.Version, r.Description, r.Readme, boolToInt(r.Yanked), r.Downloads, r.ReleaseTime.Unix())
	if err != nil {
		return 0, fmt.Errorf("upsert release: %w", err)
	}
	var id int64
	err = d.db.QueryRowContext(ctx,
		"SELECT id FROM releases WHERE crate_id = ? AND version = ?", r.CrateID, r.Version).Scan(&id)
	if err != nil {
		return 0, fmt.Errorf("query release id: %w", err)
	}
	return id, nil
}

// SetOwners replaces the owner set of a crate.
func (d *DB) SetOwners(ctx context.Context, crateID int64, owners []Owner) error {
	tx, err := d.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin owners transaction: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	if _, err := tx.ExecContext(ctx, "DELETE FROM crate_owners WHERE crate_id = ?", crateID); err != nil {
		return fmt.Errorf("clear crate owners: %w", err)
	}
	for _, o := range owners {
		_, err := tx.ExecContext(ctx,
			`INSERT INTO owners (login, name, email, avatar) VALUES (?, ?, ?, ?)
			 ON CONFLICT(login) DO UPDATE SET name = excluded.name, email = excluded.email, avatar = excluded.avatar`,
			o.Login, o.Name, o.Email, o.Avatar)
		if err != nil {
			return fmt.Errorf("upsert owner %s: %w", o.Login, err)
		}
		_, err = tx.ExecContext(ctx,
			`INSERT INTO crate_owners (crate_id, owner_id)
			 SELECT ?, id FROM owners WHERE login = ?
			 ON CONFLICT DO NOTHING`, crateID, o.Login)
		if err != nil {
			return fmt.Errorf("link owner %s: %w", o.Login, err)
		}
	}
	return tx.Commit()
}

// InsertBuild records a documentation build.
func (d *DB) InsertBuild(ctx context.Context, b *Build) (int64, error) {
	res, err := d.db.ExecContext(ctx,
		"INSERT INTO builds (release_id, status, output, build_time) VALUES (?, ?, ?, ?)",
		b.ReleaseID, b.Status, b.Output, b.BuildTime.Unix())
	if err != nil {
		return 0, fmt.Errorf("insert build: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("build insert id: %w", err)
	}
	return id, nil
}

// CountCrates returns the number of known crates.
func (d *DB) CountCrates(ctx context.Context) (int, error) {
	var n int
	if err := d.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM crates").Scan(&n); err != nil {
		return 0, fmt.Errorf("count crates: %w", err)
	}
	return n, nil
}

func scanReleases(rows *sql.Rows) ([]Release, error) {
	var releases []Release
	for rows.Next() {
		var r Release
		var yanked int
		var ts int64
		if err := rows.Scan(&r.ID, &r.CrateID, &r.Version, &r.Description, &r.Readme, &yanked, &r.Downloads, &ts); err != nil {
			return nil, fmt.Errorf("scan release: %w", err)
		}
		r.Yanked = yanked != 0
		r.ReleaseTime = time.Unix(ts, 0).UTC()
		releases = append(releases, r)
	}
	return releases, rows.Err()
}

func scanReleasesWithCrate(rows *sql.Rows) ([]ReleaseWithCrate, error) {
	var releases []ReleaseWithCrate
	for rows.Next() {
		var r ReleaseWithCrate
		var yanked int
		var ts int64
		if err := rows.Scan(&r.CrateName, &r.ID, &r.CrateID, &r.Version, &r.Description, &r.Readme, &yanked, &r.Downloads, &ts); err != nil {
			return nil, fmt.Errorf("scan release: %w", err)
		}
		r.Yanked = yanked != 0
		r.ReleaseTime = time.Unix(ts, 0).UTC()
		releases = append(releases, r)
	}
	return releases, rows.Err()
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
