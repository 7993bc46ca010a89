package registry

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"time"

	"git.home.luguber.info/inful/docserve/internal/logfields"
	"git.home.luguber.info/inful/docserve/internal/version"
)

// API is a client for the package registry's metadata API. Its data is
// best-effort: fetch failures are downgraded to warnings and callers get
// empty or default values, never an error.
type API struct {
	baseURL string
	client  *http.Client
}

// NewAPI creates a registry API client. baseURL may be empty, in which case
// every lookup falls back to defaults.
func NewAPI(baseURL string) *API {
	return &API{
		baseURL: baseURL,
		client:  &http.Client{Timeout: 30 * time.Second},
	}
}

// CrateData is crate-level metadata from the registry.
type CrateData struct {
	Owners []CrateOwner
}

// CrateOwner describes one owner of a crate.
type CrateOwner struct {
	Login  string `json:"login"`
	Name   string `json:"name"`
	Email  string `json:"email"`
	Avatar string `json:"avatar"`
}

// ReleaseData is release-level metadata from the registry.
type ReleaseData struct {
	ReleaseTime time.Time
	Yanked      bool
	Downloads   int64
}

// GetCrateData fetches the owners of a crate. On failure it warns and
// returns an empty owner list.
func (a *API) GetCrateData(ctx context.Context, name string) CrateData {
	owners, err := a.getOwners(ctx, name)
	if err != nil {
		slog.Warn("failed to get owners", logfields.Crate(name), logfields.Error(err))
		owners = nil
	}
	return CrateData{Owners: owners}
}

// GetReleaseData fetches release time, yanked state and download count for a
// release. On failure it warns and returns defaults (now, not yanked, zero).
func (a *API) GetReleaseData(ctx context.Context, name, ver string) ReleaseData {
	data, err := a.getReleaseData(ctx, name, ver)
	if err != nil {
		slog.Warn("failed to get release data",
			logfields.Crate(name), logfields.Version(ver), logfields.Error(err))
		return ReleaseData{ReleaseTime: time.Now().UTC()}
	}
	return data
}

func (a *API) getOwners(ctx context.Context, name string) ([]CrateOwner, error) {
	var payload struct {
		Users []CrateOwner `json:"users"`
	}
	if err := a.getJSON(ctx, fmt.Sprintf("api/v1/crates/%s/owners", url.PathEscape(name)), &payload); err != nil {
		return nil, err
	}
	return payload.Users, nil
}

func (a *API) getReleaseData(ctx context.Context, name, ver string) (ReleaseData, error) {
	var payload struct {
		Versions []struct {
			Num       string    `json:"num"`
			Yanked    bool      `json:"yanked"`
			Downloads int64     `json:"downloads"`
			CreatedAt time.Time `json:"created_at"`
		} `json:"versions"`
	}
	if err := a.getJSON(ctx, fmt.Sprintf("api/v1/crates/%s/versions", url.PathEscape(name)), &payload); err != nil {
		return ReleaseData{}, err
	}
	for _, v := range payload.Versions {
		if v.Num == ver {
			return ReleaseData{
				ReleaseTime: v.CreatedAt,
				Yanked:      v.Yanked,
				Downloads:   v.Downloads,
			}, nil
		}
	}
	return ReleaseData{}, fmt.Errorf("version %s not in registry response", ver)
}

func (a *API) getJSON(ctx context.Context, path string, out any) error {
	if a.baseURL == "" {
		return fmt.Errorf("registry api base url not configured")
	}
	u, err := url.JoinPath(a.baseURL, path)
	if err != nil {
		return fmt.Errorf("build api url: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return fmt.Errorf("build api request: %w", err)
	}
	req.Header.Set("User-Agent", "docserve "+version.Version)
	req.Header.Set("Accept", "application/json")

	resp, err := a.client.Do(req)
	if err != nil {
		return fmt.Errorf("registry api request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("registry api returned status %d", resp.StatusCode)
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode registry response: %w", err)
	}
	return nil
}
