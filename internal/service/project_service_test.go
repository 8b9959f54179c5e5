package service

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"github.com/yakoovad/gitlab-mr-batch/internal/gitlab"
	"github.com/yakoovad/gitlab-mr-batch/internal/model"
	"github.com/yakoovad/gitlab-mr-batch/internal/repository"
)

func TestProjectService_ListProjects_CachePolicy(t *testing.T) {
	livePage := &model.ProjectsPage{Projects: []*model.Project{{ID: 1, Name: "live"}}, TotalCount: 1}
	cachedPage := &model.ProjectsPage{Projects: []*model.Project{{ID: 2, Name: "cached"}}, TotalCount: 1}

	tests := []struct {
		name       string
		seedCache  bool
		page       int
		search     string
		skipCache  bool
		setupMocks func(*MockGitLabClient)
		expected   string
		cachedName string
	}{
		{
			name:      "first page served from cache",
			seedCache: true,
			page:      1,
			setupMocks: func(*MockGitLabClient) {
			},
			expected:   "cached",
			cachedName: "cached",
		},
		{
			name:      "cache miss fetches and stores",
			seedCache: false,
			page:      1,
			setupMocks: func(gl *MockGitLabClient) {
				gl.On("ListProjects", mock.Anything, testCred.Token, 1, DefaultPerPage, "").Return(livePage, nil)
			},
			expected:   "live",
			cachedName: "live",
		},
		{
			name:      "skip cache refreshes the snapshot",
			seedCache: true,
			page:      1,
			skipCache: true,
			setupMocks: func(gl *MockGitLabClient) {
				gl.On("ListProjects", mock.Anything, testCred.Token, 1, DefaultPerPage, "").Return(livePage, nil)
			},
			expected:   "live",
			cachedName: "live",
		},
		{
			name:      "search bypasses the cache entirely",
			seedCache: true,
			page:      1,
			search:    "api",
			setupMocks: func(gl *MockGitLabClient) {
				gl.On("ListProjects", mock.Anything, testCred.Token, 1, DefaultPerPage, "api").Return(livePage, nil)
			},
			expected:   "live",
			cachedName: "cached",
		},
		{
			name:      "later pages bypass the cache entirely",
			seedCache: true,
			page:      2,
			setupMocks: func(gl *MockGitLabClient) {
				gl.On("ListProjects", mock.Anything, testCred.Token, 2, DefaultPerPage, "").Return(livePage, nil)
			},
			expected:   "live",
			cachedName: "cached",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ctx := context.Background()
			mockGitLab := new(MockGitLabClient)
			tt.setupMocks(mockGitLab)

			cache, _ := newTestCache(repository.NewMemoryKeyValueRepository())
			if tt.seedCache {
				require.NoError(t, cache.Write(ctx, testCred.Subject, cachedPage, DefaultPerPage, 0))
			}

			service := NewProjectService(mockGitLab).WithProjectCache(cache)

			got, err := service.ListProjects(ctx, testCred, tt.page, 0, tt.search, tt.skipCache)
			require.Nil(t, err)
			require.Len(t, got.Projects, 1)
			assert.Equal(t, tt.expected, got.Projects[0].Name)

			snapshot, ok, cacheErr := cache.Read(ctx, testCred.Subject, DefaultPerPage)
			require.NoError(t, cacheErr)
			require.True(t, ok)
			assert.Equal(t, tt.cachedName, snapshot.Projects[0].Name)

			mockGitLab.AssertExpectations(t)
		})
	}
}

func TestProjectService_ListProjects_CacheKeepsPageSize(t *testing.T) {
	ctx := context.Background()
	cachedPage := &model.ProjectsPage{Projects: []*model.Project{{ID: 1, Name: "cached"}}, TotalCount: 30}
	livePage := &model.ProjectsPage{Projects: []*model.Project{{ID: 2, Name: "live"}, {ID: 3, Name: "live"}}, TotalCount: 30}

	mockGitLab := new(MockGitLabClient)
	mockGitLab.On("ListProjects", mock.Anything, testCred.Token, 1, 50, "").Return(livePage, nil).Once()

	cache, _ := newTestCache(repository.NewMemoryKeyValueRepository())
	require.NoError(t, cache.Write(ctx, testCred.Subject, cachedPage, DefaultPerPage, 0))

	service := NewProjectService(mockGitLab).WithProjectCache(cache)

	got, err := service.ListProjects(ctx, testCred, 1, 50, "", false)
	require.Nil(t, err)
	assert.Len(t, got.Projects, 2, "a snapshot of another page size is not served")

	again, err := service.ListProjects(ctx, testCred, 1, 50, "", false)
	require.Nil(t, err)
	assert.Len(t, again.Projects, 2)

	_, ok, cacheErr := cache.Read(ctx, testCred.Subject, DefaultPerPage)
	require.NoError(t, cacheErr)
	assert.False(t, ok, "the slot now holds the 50-row page")

	mockGitLab.AssertExpectations(t)
}

func TestProjectService_ListProjects_UpstreamError(t *testing.T) {
	mockGitLab := new(MockGitLabClient)
	mockGitLab.On("ListProjects", mock.Anything, testCred.Token, 1, maxPerPage, "").
		Return(nil, &gitlab.APIError{StatusCode: 401, Body: "401 Unauthorized"})

	got, err := NewProjectService(mockGitLab).ListProjects(context.Background(), testCred, 0, 500, "", false)

	assert.Nil(t, got)
	require.NotNil(t, err)
	assert.Equal(t, ErrorCodeUnauthorized, err.Code)
}

func TestProjectService_BranchExists(t *testing.T) {
	tests := []struct {
		name          string
		branch        string
		setupMocks    func(*MockGitLabClient)
		expected      bool
		expectedError bool
		errorCode     ErrorCode
	}{
		{
			name:   "branch exists",
			branch: "main",
			setupMocks: func(gl *MockGitLabClient) {
				gl.On("BranchExists", mock.Anything, testCred.Token, 1, "main").Return(true, nil)
			},
			expected: true,
		},
		{
			name:   "branch missing",
			branch: "gone",
			setupMocks: func(gl *MockGitLabClient) {
				gl.On("BranchExists", mock.Anything, testCred.Token, 1, "gone").Return(false, nil)
			},
			expected: false,
		},
		{
			name:   "upstream failure propagates",
			branch: "main",
			setupMocks: func(gl *MockGitLabClient) {
				gl.On("BranchExists", mock.Anything, testCred.Token, 1, "main").
					Return(false, &gitlab.APIError{StatusCode: 503, Body: "unavailable"})
			},
			expectedError: true,
			errorCode:     ErrorCodeUpstream,
		},
		{
			name:          "empty branch name",
			branch:        "",
			setupMocks:    func(*MockGitLabClient) {},
			expectedError: true,
			errorCode:     ErrorCodeInvalidBody,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			mockGitLab := new(MockGitLabClient)
			tt.setupMocks(mockGitLab)

			got, err := NewProjectService(mockGitLab).BranchExists(context.Background(), testCred, 1, tt.branch)

			if tt.expectedError {
				require.NotNil(t, err)
				assert.Equal(t, tt.errorCode, err.Code)
			} else {
				assert.Nil(t, err)
				assert.Equal(t, tt.expected, got)
			}

			mockGitLab.AssertExpectations(t)
		})
	}
}

func TestProjectService_ListMergeRequests(t *testing.T) {
	t.Run("defaults state and scope", func(t *testing.T) {
		mockGitLab := new(MockGitLabClient)
		mockGitLab.On("ListMergeRequests", mock.Anything, testCred.Token, "opened", "created_by_me", 1, DefaultPerPage).
			Return(&model.MergeRequestsPage{MergeRequests: []*model.MergeRequest{{IID: 1}}, TotalCount: 1}, nil)

		got, err := NewProjectService(mockGitLab).ListMergeRequests(context.Background(), testCred, "", "", 0, 0)

		require.Nil(t, err)
		assert.Equal(t, 1, got.TotalCount)
		mockGitLab.AssertExpectations(t)
	})

	t.Run("rejects unknown state", func(t *testing.T) {
		mockGitLab := new(MockGitLabClient)

		got, err := NewProjectService(mockGitLab).ListMergeRequests(context.Background(), testCred, "draft", "", 1, 20)

		assert.Nil(t, got)
		require.NotNil(t, err)
		assert.Equal(t, ErrorCodeInvalidBody, err.Code)
	})

	t.Run("rejects unknown scope", func(t *testing.T) {
		mockGitLab := new(MockGitLabClient)

		got, err := NewProjectService(mockGitLab).ListMergeRequests(context.Background(), testCred, "merged", "mine", 1, 20)

		assert.Nil(t, got)
		require.NotNil(t, err)
		assert.Equal(t, ErrorCodeInvalidBody, err.Code)
	})
}
