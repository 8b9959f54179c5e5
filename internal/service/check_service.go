package service

import (
	"context"

	"github.com/yakoovad/gitlab-mr-batch/internal/model"
	"github.com/yakoovad/gitlab-mr-batch/pkg/logger"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

const DefaultCheckConcurrency = 8

// CheckService looks for merge requests that are already open on a source branch.
// Its answers are advisory: a project that cannot be queried counts as having none.
type CheckService struct {
	gitlab      GitLabClient
	concurrency int
}

func NewCheckService(gitlab GitLabClient) *CheckService {
	return &CheckService{
		gitlab:      gitlab,
		concurrency: DefaultCheckConcurrency,
	}
}

func (c *CheckService) WithConcurrency(n int) *CheckService {
	if n > 0 {
		c.concurrency = n
	}
	return c
}

// CheckMergeRequests returns exactly one entry per requested project id.
func (c *CheckService) CheckMergeRequests(ctx context.Context, cred *Credential, projectIDs []int, sourceBranch string) (map[int]*model.MergeRequestCheck, *Error) {
	if sourceBranch == "" {
		return nil, NewError(ErrorCodeInvalidBody, "sourceBranch is required")
	}

	l := logger.FromContext(ctx)

	ids := uniqueIDs(projectIDs)
	checks := make([]*model.MergeRequestCheck, len(ids))

	var g errgroup.Group
	g.SetLimit(c.concurrency)

	for i, projectID := range ids {
		g.Go(func() error {
			check := &model.MergeRequestCheck{ProjectID: projectID}

			mrs, err := c.gitlab.ListOpenMergeRequests(ctx, cred.Token, projectID, sourceBranch)
			if err != nil {
				l.Warn("open merge request check failed, assuming none",
					zap.Int("project_id", projectID),
					zap.String("source_branch", sourceBranch),
					zap.Error(err))
			} else if len(mrs) > 0 {
				check.HasMergeRequest = true
				check.MergeRequest = mrs[0]
			}

			checks[i] = check
			return nil
		})
	}
	_ = g.Wait()

	res := make(map[int]*model.MergeRequestCheck, len(checks))
	for _, check := range checks {
		res[check.ProjectID] = check
	}

	l.Debug("open merge request check finished",
		zap.Int("projects", len(res)),
		zap.String("source_branch", sourceBranch))

	return res, nil
}

// CloseMergeRequest closes one merge request. Callers re-run the check to see the new state.
func (c *CheckService) CloseMergeRequest(ctx context.Context, cred *Credential, projectID, iid int) (*model.MergeRequest, *Error) {
	l := logger.FromContext(ctx)
	l.Info("closing merge request", zap.Int("project_id", projectID), zap.Int("iid", iid))

	mr, err := c.gitlab.CloseMergeRequest(ctx, cred.Token, projectID, iid)
	if err != nil {
		l.Error("failed to close merge request",
			zap.Int("project_id", projectID),
			zap.Int("iid", iid),
			zap.Error(err))
		return nil, FromUpstream(err)
	}
	return mr, nil
}

func uniqueIDs(ids []int) []int {
	seen := make(map[int]struct{}, len(ids))
	res := make([]int, 0, len(ids))
	for _, id := range ids {
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		res = append(res, id)
	}
	return res
}
