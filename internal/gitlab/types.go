package gitlab

import (
	"time"

	"github.com/yakoovad/gitlab-mr-batch/internal/model"
)

// GitLab API response types

type gitlabProject struct {
	ID             int        `json:"id"`
	Name           string     `json:"name"`
	Description    *string    `json:"description"`
	WebURL         string     `json:"web_url"`
	AvatarURL      *string    `json:"avatar_url"`
	LastActivityAt *time.Time `json:"last_activity_at"`
	Namespace      struct {
		Name string `json:"name"`
	} `json:"namespace"`
	StarCount     int    `json:"star_count"`
	Visibility    string `json:"visibility"`
	DefaultBranch string `json:"default_branch"`
}

type gitlabBranch struct {
	Name      string `json:"name"`
	Merged    bool   `json:"merged"`
	Protected bool   `json:"protected"`
	Default   bool   `json:"default"`
	WebURL    string `json:"web_url"`
}

type gitlabMergeRequest struct {
	ID           int        `json:"id"`
	IID          int        `json:"iid"`
	ProjectID    int        `json:"project_id"`
	Title        string     `json:"title"`
	Description  string     `json:"description"`
	State        string     `json:"state"`
	SourceBranch string     `json:"source_branch"`
	TargetBranch string     `json:"target_branch"`
	WebURL       string     `json:"web_url"`
	CreatedAt    *time.Time `json:"created_at"`
}

type createMergeRequestBody struct {
	SourceBranch       string `json:"source_branch"`
	TargetBranch       string `json:"target_branch"`
	Title              string `json:"title"`
	Description        string `json:"description"`
	RemoveSourceBranch bool   `json:"remove_source_branch"`
	Squash             bool   `json:"squash"`
}

func (p *gitlabProject) toModel() *model.Project {
	return &model.Project{
		ID:             p.ID,
		Name:           p.Name,
		Description:    p.Description,
		WebURL:         p.WebURL,
		AvatarURL:      p.AvatarURL,
		NamespaceName:  p.Namespace.Name,
		StarCount:      p.StarCount,
		Visibility:     p.Visibility,
		DefaultBranch:  p.DefaultBranch,
		LastActivityAt: p.LastActivityAt,
	}
}

func (b *gitlabBranch) toModel() *model.Branch {
	return &model.Branch{
		Name:      b.Name,
		Merged:    b.Merged,
		Protected: b.Protected,
		Default:   b.Default,
		WebURL:    b.WebURL,
	}
}

func (m *gitlabMergeRequest) toModel() *model.MergeRequest {
	return &model.MergeRequest{
		ID:           m.ID,
		IID:          m.IID,
		ProjectID:    m.ProjectID,
		Title:        m.Title,
		Description:  m.Description,
		State:        model.MRState(m.State),
		SourceBranch: m.SourceBranch,
		TargetBranch: m.TargetBranch,
		WebURL:       m.WebURL,
		CreatedAt:    m.CreatedAt,
	}
}

func convertMergeRequests(glMRs []gitlabMergeRequest) []*model.MergeRequest {
	mrs := make([]*model.MergeRequest, 0, len(glMRs))
	for i := range glMRs {
		mrs = append(mrs, glMRs[i].toModel())
	}
	return mrs
}
