package service

import (
	"context"
	"slices"

	"github.com/yakoovad/gitlab-mr-batch/internal/model"
	"github.com/yakoovad/gitlab-mr-batch/pkg/logger"
	"go.uber.org/zap"
)

const (
	DefaultPerPage = 20
	maxPerPage     = 100

	DefaultMergeRequestState = "opened"
	DefaultMergeRequestScope = "created_by_me"
)

var (
	mergeRequestStates = []string{"opened", "closed", "locked", "merged", "all"}
	mergeRequestScopes = []string{"created_by_me", "assigned_to_me", "reviews_for_me", "all"}
)

type ProjectService struct {
	gitlab GitLabClient
	cache  *ProjectCache
}

func NewProjectService(gitlab GitLabClient) *ProjectService {
	return &ProjectService{gitlab: gitlab}
}

// ListProjects serves the first unfiltered page from the cache unless skipCache
// is set or the cached page was fetched with another page size. Any live fetch
// of that page refreshes the cache; other pages and searches never touch it.
func (p *ProjectService) ListProjects(ctx context.Context, cred *Credential, page, perPage int, search string, skipCache bool) (*model.ProjectsPage, *Error) {
	l := logger.FromContext(ctx)

	page, perPage = normalizePage(page, perPage)
	cacheable := page == 1 && search == "" && p.cache != nil

	if cacheable && !skipCache {
		cached, ok, err := p.cache.Read(ctx, cred.Subject, perPage)
		if err != nil {
			l.Warn("project cache read failed", zap.Error(err))
		}
		if ok {
			l.Debug("serving projects from cache", zap.Int("count", len(cached.Projects)))
			return cached, nil
		}
	}

	res, err := p.gitlab.ListProjects(ctx, cred.Token, page, perPage, search)
	if err != nil {
		l.Error("failed to list projects", zap.Int("page", page), zap.String("search", search), zap.Error(err))
		return nil, FromUpstream(err)
	}

	if cacheable {
		if err = p.cache.Write(ctx, cred.Subject, res, perPage, 0); err != nil {
			l.Warn("project cache write failed", zap.Error(err))
		}
	}

	return res, nil
}

func (p *ProjectService) ListBranches(ctx context.Context, cred *Credential, projectID int) ([]*model.Branch, *Error) {
	branches, err := p.gitlab.ListBranches(ctx, cred.Token, projectID)
	if err != nil {
		logger.FromContext(ctx).Error("failed to list branches", zap.Int("project_id", projectID), zap.Error(err))
		return nil, FromUpstream(err)
	}
	return branches, nil
}

func (p *ProjectService) BranchExists(ctx context.Context, cred *Credential, projectID int, branch string) (bool, *Error) {
	if branch == "" {
		return false, NewError(ErrorCodeInvalidBody, "branch name is required")
	}

	exists, err := p.gitlab.BranchExists(ctx, cred.Token, projectID, branch)
	if err != nil {
		logger.FromContext(ctx).Error("failed to check branch",
			zap.Int("project_id", projectID),
			zap.String("branch", branch),
			zap.Error(err))
		return false, FromUpstream(err)
	}
	return exists, nil
}

// ListMergeRequests lists merge requests across every project the caller can see.
func (p *ProjectService) ListMergeRequests(ctx context.Context, cred *Credential, state, scope string, page, perPage int) (*model.MergeRequestsPage, *Error) {
	if state == "" {
		state = DefaultMergeRequestState
	}
	if scope == "" {
		scope = DefaultMergeRequestScope
	}
	if !slices.Contains(mergeRequestStates, state) {
		return nil, NewError(ErrorCodeInvalidBody, "unknown merge request state "+state)
	}
	if !slices.Contains(mergeRequestScopes, scope) {
		return nil, NewError(ErrorCodeInvalidBody, "unknown merge request scope "+scope)
	}

	page, perPage = normalizePage(page, perPage)

	res, err := p.gitlab.ListMergeRequests(ctx, cred.Token, state, scope, page, perPage)
	if err != nil {
		logger.FromContext(ctx).Error("failed to list merge requests",
			zap.String("state", state),
			zap.String("scope", scope),
			zap.Error(err))
		return nil, FromUpstream(err)
	}
	return res, nil
}

func (p *ProjectService) WithProjectCache(c *ProjectCache) *ProjectService {
	p.cache = c
	return p
}

func normalizePage(page, perPage int) (int, int) {
	if page < 1 {
		page = 1
	}
	if perPage < 1 {
		perPage = DefaultPerPage
	}
	if perPage > maxPerPage {
		perPage = maxPerPage
	}
	return page, perPage
}
