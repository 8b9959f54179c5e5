package model

import "time"

type MRState string

const (
	MRStateOpened MRState = "opened"
	MRStateMerged MRState = "merged"
	MRStateClosed MRState = "closed"
)

type MergeRequest struct {
	ID           int        `json:"id"`
	IID          int        `json:"iid"`
	ProjectID    int        `json:"projectId"`
	ProjectName  string     `json:"projectName,omitempty"`
	Title        string     `json:"title"`
	Description  string     `json:"description"`
	State        MRState    `json:"state"`
	SourceBranch string     `json:"sourceBranch,omitempty"`
	TargetBranch string     `json:"targetBranch,omitempty"`
	WebURL       string     `json:"webUrl"`
	CreatedAt    *time.Time `json:"createdAt,omitempty"`
}

type MergeRequestsPage struct {
	MergeRequests []*MergeRequest `json:"mergeRequests"`
	TotalCount    int             `json:"totalCount"`
}

type MergeRequestCreateParams struct {
	SourceBranch       string       `json:"sourceBranch" validate:"required"`
	TargetBranch       TargetBranch `json:"targetBranch"`
	Title              string       `json:"title" validate:"required"`
	Description        string       `json:"description,omitempty"`
	RemoveSourceBranch bool         `json:"removeSourceBranch,omitempty"`
	Squash             bool         `json:"squash,omitempty"`
}

// MergeRequestCheck reports the first open merge request found for a source branch.
type MergeRequestCheck struct {
	ProjectID       int           `json:"projectId"`
	HasMergeRequest bool          `json:"hasMergeRequest"`
	MergeRequest    *MergeRequest `json:"mergeRequest,omitempty"`
}

type MergeRequestResult struct {
	ProjectID    int           `json:"projectId"`
	ProjectName  string        `json:"projectName"`
	Success      bool          `json:"success"`
	MergeRequest *MergeRequest `json:"mergeRequest,omitempty"`
	Error        string        `json:"error,omitempty"`
}

type BatchSummary struct {
	Total     int `json:"total"`
	Succeeded int `json:"succeeded"`
	Failed    int `json:"failed"`
}

func Summarize(results []*MergeRequestResult) BatchSummary {
	s := BatchSummary{Total: len(results)}
	for _, r := range results {
		if r.Success {
			s.Succeeded++
		} else {
			s.Failed++
		}
	}
	return s
}
