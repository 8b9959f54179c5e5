package service

import (
	"context"

	"github.com/stretchr/testify/mock"
	"github.com/yakoovad/gitlab-mr-batch/internal/gitlab"
	"github.com/yakoovad/gitlab-mr-batch/internal/model"
)

type MockTransactor struct {
	mock.Mock
}

func (m *MockTransactor) WithinTransaction(ctx context.Context, fn func(context.Context) error) error {
	return fn(ctx)
}

type MockGitLabClient struct {
	mock.Mock
}

func (m *MockGitLabClient) ListProjects(ctx context.Context, token string, page, perPage int, search string) (*model.ProjectsPage, error) {
	args := m.Called(ctx, token, page, perPage, search)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.ProjectsPage), args.Error(1)
}

func (m *MockGitLabClient) GetProject(ctx context.Context, token string, projectID int) (*model.Project, error) {
	args := m.Called(ctx, token, projectID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.Project), args.Error(1)
}

func (m *MockGitLabClient) ListBranches(ctx context.Context, token string, projectID int) ([]*model.Branch, error) {
	args := m.Called(ctx, token, projectID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*model.Branch), args.Error(1)
}

func (m *MockGitLabClient) BranchExists(ctx context.Context, token string, projectID int, branch string) (bool, error) {
	args := m.Called(ctx, token, projectID, branch)
	return args.Bool(0), args.Error(1)
}

func (m *MockGitLabClient) ListOpenMergeRequests(ctx context.Context, token string, projectID int, sourceBranch string) ([]*model.MergeRequest, error) {
	args := m.Called(ctx, token, projectID, sourceBranch)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*model.MergeRequest), args.Error(1)
}

func (m *MockGitLabClient) CloseMergeRequest(ctx context.Context, token string, projectID, iid int) (*model.MergeRequest, error) {
	args := m.Called(ctx, token, projectID, iid)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.MergeRequest), args.Error(1)
}

func (m *MockGitLabClient) CreateMergeRequest(ctx context.Context, token string, projectID int, opts gitlab.CreateMergeRequestOptions) (*model.MergeRequest, error) {
	args := m.Called(ctx, token, projectID, opts)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.MergeRequest), args.Error(1)
}

func (m *MockGitLabClient) ListMergeRequests(ctx context.Context, token, state, scope string, page, perPage int) (*model.MergeRequestsPage, error) {
	args := m.Called(ctx, token, state, scope, page, perPage)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.MergeRequestsPage), args.Error(1)
}

type MockKeyValueRepository struct {
	mock.Mock
}

func (m *MockKeyValueRepository) Get(ctx context.Context, key string) ([]byte, error) {
	args := m.Called(ctx, key)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]byte), args.Error(1)
}

func (m *MockKeyValueRepository) Set(ctx context.Context, key string, value []byte) error {
	args := m.Called(ctx, key, value)
	return args.Error(0)
}

func (m *MockKeyValueRepository) Delete(ctx context.Context, key string) error {
	args := m.Called(ctx, key)
	return args.Error(0)
}
