package service

import (
	"context"
	"fmt"

	"github.com/yakoovad/gitlab-mr-batch/internal/gitlab"
	"github.com/yakoovad/gitlab-mr-batch/internal/model"
	"github.com/yakoovad/gitlab-mr-batch/pkg/logger"
	"go.uber.org/zap"
)

// OpenMergeRequestChecker reports merge requests already open on a source branch.
type OpenMergeRequestChecker interface {
	CheckMergeRequests(ctx context.Context, cred *Credential, projectIDs []int, sourceBranch string) (map[int]*model.MergeRequestCheck, *Error)
}

// ProgressFunc receives every per-project result as soon as it is known.
type ProgressFunc func(result *model.MergeRequestResult)

// BatchService opens the same merge request in many projects.
type BatchService struct {
	gitlab  GitLabClient
	checker OpenMergeRequestChecker
}

func NewBatchService(gitlab GitLabClient) *BatchService {
	return &BatchService{gitlab: gitlab}
}

func (b *BatchService) WithChecker(c OpenMergeRequestChecker) *BatchService {
	b.checker = c
	return b
}

// CreateMergeRequests submits one merge request per project id, in order, one
// project at a time. A failing project never stops the batch: the returned
// slice always holds exactly one result per input id, in input order.
func (b *BatchService) CreateMergeRequests(
	ctx context.Context,
	cred *Credential,
	projectIDs []int,
	params *model.MergeRequestCreateParams,
	onProgress ProgressFunc,
) ([]*model.MergeRequestResult, *Error) {
	if err := validateCreateParams(params); err != nil {
		return nil, err
	}

	results := make([]*model.MergeRequestResult, 0, len(projectIDs))
	if len(projectIDs) == 0 {
		return results, nil
	}

	l := logger.FromContext(ctx).With(zap.String("source_branch", params.SourceBranch))
	l.Info("starting merge request batch", zap.Int("projects", len(projectIDs)))

	open := b.openMergeRequests(ctx, cred, projectIDs, params.SourceBranch)

	for _, projectID := range projectIDs {
		result := b.createOne(ctx, cred, projectID, params, open[projectID])

		if result.Success {
			l.Debug("merge request created", zap.Int("project_id", projectID), zap.Int("iid", result.MergeRequest.IID))
		} else {
			l.Warn("merge request not created", zap.Int("project_id", projectID), zap.String("error", result.Error))
		}

		results = append(results, result)
		if onProgress != nil {
			onProgress(result)
		}
	}

	summary := model.Summarize(results)
	l.Info("merge request batch finished",
		zap.Int("total", summary.Total),
		zap.Int("succeeded", summary.Succeeded),
		zap.Int("failed", summary.Failed))

	return results, nil
}

func (b *BatchService) createOne(
	ctx context.Context,
	cred *Credential,
	projectID int,
	params *model.MergeRequestCreateParams,
	open *model.MergeRequestCheck,
) *model.MergeRequestResult {
	project, err := b.gitlab.GetProject(ctx, cred.Token, projectID)
	if err != nil {
		return &model.MergeRequestResult{
			ProjectID:   projectID,
			ProjectName: fmt.Sprintf("Project %d", projectID),
			Success:     false,
			Error:       err.Error(),
		}
	}

	if open != nil && open.HasMergeRequest {
		msg := fmt.Sprintf("open merge request already exists for source branch %s", params.SourceBranch)
		if open.MergeRequest != nil {
			msg = fmt.Sprintf("open merge request !%d already exists for source branch %s", open.MergeRequest.IID, params.SourceBranch)
		}
		return &model.MergeRequestResult{
			ProjectID:   projectID,
			ProjectName: project.Name,
			Success:     false,
			Error:       msg,
		}
	}

	mr, err := b.gitlab.CreateMergeRequest(ctx, cred.Token, projectID, gitlab.CreateMergeRequestOptions{
		SourceBranch:       params.SourceBranch,
		TargetBranch:       params.TargetBranch.Resolve(projectID),
		Title:              params.Title,
		Description:        params.Description,
		RemoveSourceBranch: params.RemoveSourceBranch,
		Squash:             params.Squash,
	})
	if err != nil {
		return &model.MergeRequestResult{
			ProjectID:   projectID,
			ProjectName: project.Name,
			Success:     false,
			Error:       err.Error(),
		}
	}

	mr.ProjectName = project.Name
	return &model.MergeRequestResult{
		ProjectID:    projectID,
		ProjectName:  project.Name,
		Success:      true,
		MergeRequest: mr,
	}
}

// openMergeRequests runs the advisory check; without a checker or on failure nothing is blocked.
func (b *BatchService) openMergeRequests(ctx context.Context, cred *Credential, projectIDs []int, sourceBranch string) map[int]*model.MergeRequestCheck {
	if b.checker == nil {
		return nil
	}

	checks, err := b.checker.CheckMergeRequests(ctx, cred, projectIDs, sourceBranch)
	if err != nil {
		logger.FromContext(ctx).Warn("open merge request check skipped", zap.Error(err))
		return nil
	}
	return checks
}

func validateCreateParams(params *model.MergeRequestCreateParams) *Error {
	switch {
	case params == nil:
		return NewError(ErrorCodeInvalidBody, "merge request parameters are required")
	case params.SourceBranch == "":
		return NewError(ErrorCodeInvalidBody, "sourceBranch is required")
	case params.Title == "":
		return NewError(ErrorCodeInvalidBody, "title is required")
	case !params.TargetBranch.IsPerProject() && params.TargetBranch.Uniform() == "":
		return NewError(ErrorCodeInvalidBody, "targetBranch is required")
	}
	return nil
}
