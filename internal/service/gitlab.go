package service

import (
	"context"

	"github.com/yakoovad/gitlab-mr-batch/internal/gitlab"
	"github.com/yakoovad/gitlab-mr-batch/internal/model"
)

// GitLabClient is the part of the GitLab API the services rely on.
type GitLabClient interface {
	ListProjects(ctx context.Context, token string, page, perPage int, search string) (*model.ProjectsPage, error)
	GetProject(ctx context.Context, token string, projectID int) (*model.Project, error)
	ListBranches(ctx context.Context, token string, projectID int) ([]*model.Branch, error)
	BranchExists(ctx context.Context, token string, projectID int, branch string) (bool, error)
	ListOpenMergeRequests(ctx context.Context, token string, projectID int, sourceBranch string) ([]*model.MergeRequest, error)
	CloseMergeRequest(ctx context.Context, token string, projectID, iid int) (*model.MergeRequest, error)
	CreateMergeRequest(ctx context.Context, token string, projectID int, opts gitlab.CreateMergeRequestOptions) (*model.MergeRequest, error)
	ListMergeRequests(ctx context.Context, token, state, scope string, page, perPage int) (*model.MergeRequestsPage, error)
}

// Credential is the signed-in caller: the GitLab token and the session subject it is stored under.
type Credential struct {
	Subject string
	Token   string
}
