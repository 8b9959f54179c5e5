package model

import "time"

type Project struct {
	ID             int        `json:"id"`
	Name           string     `json:"name"`
	Description    *string    `json:"description,omitempty"`
	WebURL         string     `json:"webUrl"`
	AvatarURL      *string    `json:"avatarUrl,omitempty"`
	NamespaceName  string     `json:"namespaceName"`
	StarCount      int        `json:"starCount"`
	Visibility     string     `json:"visibility"`
	DefaultBranch  string     `json:"defaultBranch"`
	LastActivityAt *time.Time `json:"lastActivityAt,omitempty"`
}

type ProjectsPage struct {
	Projects   []*Project `json:"projects"`
	TotalCount int        `json:"totalCount"`
}

// CachedProject is the denormalized subset of Project kept in the project cache.
type CachedProject struct {
	ID            int       `json:"id"`
	Name          string    `json:"name"`
	Description   *string   `json:"description"`
	WebURL        string    `json:"webUrl"`
	AvatarURL     *string   `json:"avatarUrl"`
	NamespaceName string    `json:"namespaceName"`
	DefaultBranch string    `json:"defaultBranch"`
	Visibility    string    `json:"visibility"`
	LastUpdated   time.Time `json:"lastUpdated"`
}

func NewCachedProject(p *Project, now time.Time) *CachedProject {
	return &CachedProject{
		ID:            p.ID,
		Name:          p.Name,
		Description:   p.Description,
		WebURL:        p.WebURL,
		AvatarURL:     p.AvatarURL,
		NamespaceName: p.NamespaceName,
		DefaultBranch: p.DefaultBranch,
		Visibility:    p.Visibility,
		LastUpdated:   now,
	}
}

func (c *CachedProject) Project() *Project {
	return &Project{
		ID:            c.ID,
		Name:          c.Name,
		Description:   c.Description,
		WebURL:        c.WebURL,
		AvatarURL:     c.AvatarURL,
		NamespaceName: c.NamespaceName,
		Visibility:    c.Visibility,
		DefaultBranch: c.DefaultBranch,
	}
}
