package gitlab

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/yakoovad/gitlab-mr-batch/internal/model"
)

const testToken = "glpat-test"

func newTestClient(t *testing.T, handler http.HandlerFunc) *Client {
	t.Helper()

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "Bearer "+testToken, r.Header.Get("Authorization"))
		handler(w, r)
	}))
	t.Cleanup(server.Close)

	return NewClient(server.URL+"/api/v4/", server.Client())
}

func TestClient_ListProjects(t *testing.T) {
	tests := []struct {
		name          string
		search        string
		totalHeader   string
		expectedTotal int
	}{
		{
			name:          "total from header",
			totalHeader:   "57",
			expectedTotal: 57,
		},
		{
			name:          "missing header falls back to page length",
			search:        "api",
			expectedTotal: 2,
		},
		{
			name:          "unparsable header falls back to page length",
			totalHeader:   "lots",
			expectedTotal: 2,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
				assert.Equal(t, "/api/v4/projects", r.URL.Path)

				q := r.URL.Query()
				assert.Equal(t, "2", q.Get("page"))
				assert.Equal(t, "10", q.Get("per_page"))
				assert.Equal(t, "last_activity_at", q.Get("order_by"))
				assert.Equal(t, "desc", q.Get("sort"))
				assert.Equal(t, "true", q.Get("membership"))
				assert.Equal(t, "true", q.Get("owned"))
				assert.Equal(t, "30", q.Get("min_access_level"))
				assert.Equal(t, "enabled", q.Get("repository_access_level"))
				assert.Equal(t, tt.search, q.Get("search"))
				_, hasSearch := q["search"]
				assert.Equal(t, tt.search != "", hasSearch)

				if tt.totalHeader != "" {
					w.Header().Set("x-total", tt.totalHeader)
				}
				_, _ = io.WriteString(w, `[
					{"id":1,"name":"api","web_url":"https://gitlab.com/g/api","namespace":{"name":"g"},"star_count":3,"visibility":"private","default_branch":"main","last_activity_at":"2024-05-01T10:00:00Z"},
					{"id":2,"name":"web","description":"frontend","web_url":"https://gitlab.com/g/web","namespace":{"name":"g"},"visibility":"internal","default_branch":"master"}
				]`)
			})

			page, err := client.ListProjects(context.Background(), testToken, 2, 10, tt.search)
			require.NoError(t, err)
			require.Len(t, page.Projects, 2)
			assert.Equal(t, tt.expectedTotal, page.TotalCount)

			assert.Equal(t, 1, page.Projects[0].ID)
			assert.Equal(t, "g", page.Projects[0].NamespaceName)
			assert.Equal(t, 3, page.Projects[0].StarCount)
			assert.NotNil(t, page.Projects[0].LastActivityAt)
			assert.Nil(t, page.Projects[0].Description)
			require.NotNil(t, page.Projects[1].Description)
			assert.Equal(t, "frontend", *page.Projects[1].Description)
		})
	}
}

func TestClient_APIError(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusForbidden)
		_, _ = io.WriteString(w, `{"message":"403 Forbidden"}`)
	})

	_, err := client.ListBranches(context.Background(), testToken, 5)
	require.Error(t, err)
	assert.Equal(t, http.StatusForbidden, StatusCode(err))
	assert.Contains(t, err.Error(), "403")
	assert.Contains(t, err.Error(), "Forbidden")
}

func TestClient_BranchExists(t *testing.T) {
	tests := []struct {
		name        string
		status      int
		expected    bool
		expectError bool
	}{
		{name: "exists", status: http.StatusOK, expected: true},
		{name: "not found", status: http.StatusNotFound, expected: false},
		{name: "unauthorized is not swallowed", status: http.StatusUnauthorized, expectError: true},
		{name: "server error is not swallowed", status: http.StatusInternalServerError, expectError: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
				assert.Equal(t, "/api/v4/projects/9/repository/branches/release%2F1.0", r.URL.EscapedPath())
				w.WriteHeader(tt.status)
				_, _ = io.WriteString(w, `{}`)
			})

			exists, err := client.BranchExists(context.Background(), testToken, 9, "release/1.0")
			if tt.expectError {
				require.Error(t, err)
				assert.Equal(t, tt.status, StatusCode(err))
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.expected, exists)
		})
	}
}

func TestClient_ListOpenMergeRequests(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/v4/projects/3/merge_requests", r.URL.Path)
		assert.Equal(t, "opened", r.URL.Query().Get("state"))
		assert.Equal(t, "develop", r.URL.Query().Get("source_branch"))
		_, _ = io.WriteString(w, `[{"id":100,"iid":7,"project_id":3,"title":"Release","state":"opened","source_branch":"develop","target_branch":"main","web_url":"https://gitlab.com/g/p/-/merge_requests/7"}]`)
	})

	mrs, err := client.ListOpenMergeRequests(context.Background(), testToken, 3, "develop")
	require.NoError(t, err)
	require.Len(t, mrs, 1)
	assert.Equal(t, 7, mrs[0].IID)
	assert.Equal(t, model.MRStateOpened, mrs[0].State)
	assert.Equal(t, "main", mrs[0].TargetBranch)
}

func TestClient_CloseMergeRequest(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPut, r.Method)
		assert.Equal(t, "/api/v4/projects/3/merge_requests/7", r.URL.Path)
		assert.Equal(t, "application/json", r.Header.Get("Content-Type"))

		var body map[string]string
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		assert.Equal(t, map[string]string{"state_event": "close"}, body)

		_, _ = io.WriteString(w, `{"id":100,"iid":7,"project_id":3,"state":"closed"}`)
	})

	mr, err := client.CloseMergeRequest(context.Background(), testToken, 3, 7)
	require.NoError(t, err)
	assert.Equal(t, model.MRStateClosed, mr.State)
}

func TestClient_CreateMergeRequest(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/api/v4/projects/4/merge_requests", r.URL.Path)

		var body map[string]any
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		assert.Equal(t, map[string]any{
			"source_branch":        "develop",
			"target_branch":        "main",
			"title":                "Release 1.2",
			"description":          "",
			"remove_source_branch": false,
			"squash":               true,
		}, body)

		w.WriteHeader(http.StatusCreated)
		_, _ = io.WriteString(w, `{"id":200,"iid":12,"project_id":4,"title":"Release 1.2","state":"opened","created_at":"2024-05-01T10:00:00Z"}`)
	})

	mr, err := client.CreateMergeRequest(context.Background(), testToken, 4, CreateMergeRequestOptions{
		SourceBranch: "develop",
		TargetBranch: "main",
		Title:        "Release 1.2",
		Squash:       true,
	})
	require.NoError(t, err)
	assert.Equal(t, 12, mr.IID)
	assert.Equal(t, 4, mr.ProjectID)
	assert.NotNil(t, mr.CreatedAt)
}

func TestClient_ListMergeRequests(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/v4/merge_requests", r.URL.Path)
		q := r.URL.Query()
		assert.Equal(t, "merged", q.Get("state"))
		assert.Equal(t, "all", q.Get("scope"))
		assert.Equal(t, "1", q.Get("page"))
		assert.Equal(t, "50", q.Get("per_page"))

		w.Header().Set("X-Total", "120")
		_, _ = io.WriteString(w, `[{"id":1,"iid":1,"project_id":1,"state":"merged"}]`)
	})

	page, err := client.ListMergeRequests(context.Background(), testToken, "merged", "all", 1, 50)
	require.NoError(t, err)
	assert.Len(t, page.MergeRequests, 1)
	assert.Equal(t, 120, page.TotalCount)
}

func TestClient_Ping(t *testing.T) {
	tests := []struct {
		name          string
		status        int
		expectedError bool
	}{
		{name: "ok", status: http.StatusOK},
		{name: "unauthorized still reachable", status: http.StatusUnauthorized},
		{name: "server error", status: http.StatusBadGateway, expectedError: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				assert.Equal(t, "/api/v4/version", r.URL.Path)
				w.WriteHeader(tt.status)
			}))
			defer server.Close()

			err := NewClient(server.URL+"/api/v4", server.Client()).Ping(context.Background())
			if tt.expectedError {
				assert.Equal(t, tt.status, StatusCode(err))
			} else {
				assert.NoError(t, err)
			}
		})
	}
}
