package service

import (
	"context"
	"encoding/json"
	"time"

	"github.com/pkg/errors"
	"github.com/yakoovad/gitlab-mr-batch/internal/model"
	"github.com/yakoovad/gitlab-mr-batch/internal/repository"
)

const (
	DefaultProjectCacheTTL = 24 * time.Hour

	projectCacheKeyPrefix = "projects_cache:"
)

type projectCacheEntry struct {
	Projects   []*model.CachedProject `json:"projects"`
	TotalCount int                    `json:"totalCount"`
	PerPage    int                    `json:"perPage"`
	ExpiresAt  time.Time              `json:"expiresAt"`
}

// ProjectCache keeps a single snapshot of the first unfiltered project page per slot.
// An entry is served while now <= expiresAt and treated as absent afterwards.
type ProjectCache struct {
	store repository.KeyValueRepository
	ttl   time.Duration
	now   func() time.Time
}

func NewProjectCache(store repository.KeyValueRepository, ttl time.Duration) *ProjectCache {
	if ttl <= 0 {
		ttl = DefaultProjectCacheTTL
	}
	return &ProjectCache{
		store: store,
		ttl:   ttl,
		now:   time.Now,
	}
}

func (c *ProjectCache) WithClock(now func() time.Time) *ProjectCache {
	c.now = now
	return c
}

// Write replaces the slot with page, fetched with perPage rows per page.
// A non-positive ttl uses the cache default.
func (c *ProjectCache) Write(ctx context.Context, slot string, page *model.ProjectsPage, perPage int, ttl time.Duration) error {
	if ttl <= 0 {
		ttl = c.ttl
	}

	now := c.now()
	entry := projectCacheEntry{
		Projects:   make([]*model.CachedProject, 0, len(page.Projects)),
		TotalCount: page.TotalCount,
		PerPage:    perPage,
		ExpiresAt:  now.Add(ttl),
	}
	for _, p := range page.Projects {
		entry.Projects = append(entry.Projects, model.NewCachedProject(p, now))
	}

	data, err := json.Marshal(entry)
	if err != nil {
		return errors.Wrap(err, "failed to encode project cache")
	}

	return errors.Wrap(c.store.Set(ctx, c.key(slot), data), "failed to write project cache")
}

// Read returns the snapshot when it is still fresh and was fetched with the
// same perPage. A snapshot of another page size is a miss but stays stored.
func (c *ProjectCache) Read(ctx context.Context, slot string, perPage int) (*model.ProjectsPage, bool, error) {
	data, err := c.store.Get(ctx, c.key(slot))
	if errors.Is(err, repository.ErrNotFound) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, errors.Wrap(err, "failed to read project cache")
	}

	var entry projectCacheEntry
	if err = json.Unmarshal(data, &entry); err != nil {
		_ = c.store.Delete(ctx, c.key(slot))
		return nil, false, errors.Wrap(err, "failed to decode project cache")
	}

	if c.now().After(entry.ExpiresAt) {
		if err = c.store.Delete(ctx, c.key(slot)); err != nil {
			return nil, false, errors.Wrap(err, "failed to drop expired project cache")
		}
		return nil, false, nil
	}

	if entry.PerPage != perPage {
		return nil, false, nil
	}

	projects := make([]*model.Project, 0, len(entry.Projects))
	for _, p := range entry.Projects {
		projects = append(projects, p.Project())
	}

	return &model.ProjectsPage{Projects: projects, TotalCount: entry.TotalCount}, true, nil
}

func (c *ProjectCache) Clear(ctx context.Context, slot string) error {
	return errors.Wrap(c.store.Delete(ctx, c.key(slot)), "failed to clear project cache")
}

func (c *ProjectCache) key(slot string) string {
	return projectCacheKeyPrefix + slot
}
