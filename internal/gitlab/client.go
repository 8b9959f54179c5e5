package gitlab

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"github.com/pkg/errors"
	"github.com/yakoovad/gitlab-mr-batch/internal/model"
)

const (
	// developerAccessLevel is the minimum access level that can open merge requests.
	developerAccessLevel = "30"

	headerTotal = "X-Total"
)

// HTTPClient allows replacing the transport in tests.
type HTTPClient interface {
	Do(req *http.Request) (*http.Response, error)
}

// Client talks to the GitLab REST API v4. It keeps no state between calls
// and never retries; every failure goes straight back to the caller.
type Client struct {
	baseURL    string
	httpClient HTTPClient
}

func NewClient(baseURL string, httpClient HTTPClient) *Client {
	if httpClient == nil {
		httpClient = http.DefaultClient
	}
	return &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		httpClient: httpClient,
	}
}

type CreateMergeRequestOptions struct {
	SourceBranch       string
	TargetBranch       string
	Title              string
	Description        string
	RemoveSourceBranch bool
	Squash             bool
}

// ListProjects returns one page of projects the token holder is a member of,
// can push to and has the repository enabled, most recently active first.
func (c *Client) ListProjects(ctx context.Context, token string, page, perPage int, search string) (*model.ProjectsPage, error) {
	q := url.Values{}
	q.Set("page", strconv.Itoa(page))
	q.Set("per_page", strconv.Itoa(perPage))
	q.Set("order_by", "last_activity_at")
	q.Set("sort", "desc")
	q.Set("membership", "true")
	q.Set("owned", "true")
	q.Set("min_access_level", developerAccessLevel)
	q.Set("repository_access_level", "enabled")
	if search != "" {
		q.Set("search", search)
	}

	var glProjects []gitlabProject
	header, err := c.doRequest(ctx, http.MethodGet, "/projects", q, token, nil, &glProjects)
	if err != nil {
		return nil, errors.Wrap(err, "failed to list projects")
	}

	projects := make([]*model.Project, 0, len(glProjects))
	for i := range glProjects {
		projects = append(projects, glProjects[i].toModel())
	}

	return &model.ProjectsPage{
		Projects:   projects,
		TotalCount: totalCount(header, len(projects)),
	}, nil
}

func (c *Client) GetProject(ctx context.Context, token string, projectID int) (*model.Project, error) {
	var glProject gitlabProject
	if _, err := c.doRequest(ctx, http.MethodGet, fmt.Sprintf("/projects/%d", projectID), nil, token, nil, &glProject); err != nil {
		return nil, errors.Wrapf(err, "failed to get project %d", projectID)
	}
	return glProject.toModel(), nil
}

func (c *Client) ListBranches(ctx context.Context, token string, projectID int) ([]*model.Branch, error) {
	var glBranches []gitlabBranch
	path := fmt.Sprintf("/projects/%d/repository/branches", projectID)
	if _, err := c.doRequest(ctx, http.MethodGet, path, nil, token, nil, &glBranches); err != nil {
		return nil, errors.Wrapf(err, "failed to list branches of project %d", projectID)
	}

	branches := make([]*model.Branch, 0, len(glBranches))
	for i := range glBranches {
		branches = append(branches, glBranches[i].toModel())
	}
	return branches, nil
}

// BranchExists reports false only for a 404; any other failure is returned.
func (c *Client) BranchExists(ctx context.Context, token string, projectID int, branch string) (bool, error) {
	path := fmt.Sprintf("/projects/%d/repository/branches/%s", projectID, url.PathEscape(branch))

	_, err := c.doRequest(ctx, http.MethodGet, path, nil, token, nil, nil)
	switch {
	case err == nil:
		return true, nil
	case IsNotFound(err):
		return false, nil
	default:
		return false, errors.Wrapf(err, "failed to check branch %q of project %d", branch, projectID)
	}
}

func (c *Client) ListOpenMergeRequests(ctx context.Context, token string, projectID int, sourceBranch string) ([]*model.MergeRequest, error) {
	q := url.Values{}
	q.Set("state", string(model.MRStateOpened))
	q.Set("source_branch", sourceBranch)

	var glMRs []gitlabMergeRequest
	path := fmt.Sprintf("/projects/%d/merge_requests", projectID)
	if _, err := c.doRequest(ctx, http.MethodGet, path, q, token, nil, &glMRs); err != nil {
		return nil, errors.Wrapf(err, "failed to list open merge requests of project %d", projectID)
	}

	return convertMergeRequests(glMRs), nil
}

func (c *Client) CloseMergeRequest(ctx context.Context, token string, projectID, iid int) (*model.MergeRequest, error) {
	body := map[string]string{"state_event": "close"}

	var glMR gitlabMergeRequest
	path := fmt.Sprintf("/projects/%d/merge_requests/%d", projectID, iid)
	if _, err := c.doRequest(ctx, http.MethodPut, path, nil, token, body, &glMR); err != nil {
		return nil, errors.Wrapf(err, "failed to close merge request !%d of project %d", iid, projectID)
	}
	return glMR.toModel(), nil
}

func (c *Client) CreateMergeRequest(ctx context.Context, token string, projectID int, opts CreateMergeRequestOptions) (*model.MergeRequest, error) {
	body := createMergeRequestBody{
		SourceBranch:       opts.SourceBranch,
		TargetBranch:       opts.TargetBranch,
		Title:              opts.Title,
		Description:        opts.Description,
		RemoveSourceBranch: opts.RemoveSourceBranch,
		Squash:             opts.Squash,
	}

	var glMR gitlabMergeRequest
	path := fmt.Sprintf("/projects/%d/merge_requests", projectID)
	if _, err := c.doRequest(ctx, http.MethodPost, path, nil, token, body, &glMR); err != nil {
		return nil, errors.Wrapf(err, "failed to create merge request in project %d", projectID)
	}
	return glMR.toModel(), nil
}

// ListMergeRequests lists merge requests across every project visible to the token.
func (c *Client) ListMergeRequests(ctx context.Context, token, state, scope string, page, perPage int) (*model.MergeRequestsPage, error) {
	q := url.Values{}
	q.Set("state", state)
	q.Set("scope", scope)
	q.Set("page", strconv.Itoa(page))
	q.Set("per_page", strconv.Itoa(perPage))

	var glMRs []gitlabMergeRequest
	header, err := c.doRequest(ctx, http.MethodGet, "/merge_requests", q, token, nil, &glMRs)
	if err != nil {
		return nil, errors.Wrap(err, "failed to list merge requests")
	}

	mrs := convertMergeRequests(glMRs)
	return &model.MergeRequestsPage{
		MergeRequests: mrs,
		TotalCount:    totalCount(header, len(mrs)),
	}, nil
}

// Ping reports whether the GitLab API answers at all. Any response below 500
// counts as reachable, authentication is not checked.
func (c *Client) Ping(ctx context.Context) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/version", nil)
	if err != nil {
		return errors.Wrap(err, "failed to create request")
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return errors.Wrap(err, "gitlab is unreachable")
	}
	defer resp.Body.Close()
	_, _ = io.Copy(io.Discard, resp.Body)

	if resp.StatusCode >= http.StatusInternalServerError {
		return &APIError{StatusCode: resp.StatusCode}
	}
	return nil
}

func (c *Client) doRequest(ctx context.Context, method, path string, query url.Values, token string, body, result any) (http.Header, error) {
	u := c.baseURL + path
	if len(query) > 0 {
		u += "?" + query.Encode()
	}

	var reader io.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		if err != nil {
			return nil, errors.Wrap(err, "failed to encode request body")
		}
		reader = bytes.NewReader(payload)
	}

	req, err := http.NewRequestWithContext(ctx, method, u, reader)
	if err != nil {
		return nil, errors.Wrap(err, "failed to create request")
	}

	req.Header.Set("Authorization", "Bearer "+token)
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, errors.Wrap(err, "request failed")
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		text, _ := io.ReadAll(resp.Body)
		return nil, &APIError{StatusCode: resp.StatusCode, Body: strings.TrimSpace(string(text))}
	}

	if result != nil {
		if err = json.NewDecoder(resp.Body).Decode(result); err != nil {
			return nil, errors.Wrap(err, "failed to decode response")
		}
	}

	return resp.Header, nil
}

func totalCount(header http.Header, fallback int) int {
	if v := header.Get(headerTotal); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return fallback
}
