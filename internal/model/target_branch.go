package model

import (
	"bytes"
	"encoding/json"
	"strconv"

	"github.com/pkg/errors"
)

// DefaultTargetBranch is used when a per-project mapping has no entry for a project.
const DefaultTargetBranch = "main"

// TargetBranch is either one branch for every project or a branch per project id.
type TargetBranch struct {
	uniform    string
	perProject map[int]string
}

func UniformTarget(branch string) TargetBranch {
	return TargetBranch{uniform: branch}
}

func PerProjectTarget(branches map[int]string) TargetBranch {
	m := make(map[int]string, len(branches))
	for id, b := range branches {
		m[id] = b
	}
	return TargetBranch{perProject: m}
}

func (t TargetBranch) IsPerProject() bool {
	return t.perProject != nil
}

func (t TargetBranch) Uniform() string {
	return t.uniform
}

// Resolve returns the effective target branch for projectID.
func (t TargetBranch) Resolve(projectID int) string {
	if !t.IsPerProject() {
		return t.uniform
	}
	if b := t.perProject[projectID]; b != "" {
		return b
	}
	return DefaultTargetBranch
}

func (t TargetBranch) MarshalJSON() ([]byte, error) {
	if !t.IsPerProject() {
		return json.Marshal(t.uniform)
	}

	m := make(map[string]string, len(t.perProject))
	for id, b := range t.perProject {
		m[strconv.Itoa(id)] = b
	}
	return json.Marshal(m)
}

func (t *TargetBranch) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if bytes.Equal(data, []byte("null")) {
		return nil
	}

	if len(data) > 0 && data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		*t = UniformTarget(s)
		return nil
	}

	var raw map[string]string
	if err := json.Unmarshal(data, &raw); err != nil {
		return errors.Wrap(err, "targetBranch must be a string or an object of project id to branch")
	}

	m := make(map[int]string, len(raw))
	for k, b := range raw {
		id, err := strconv.Atoi(k)
		if err != nil {
			return errors.Errorf("targetBranch key %q is not a project id", k)
		}
		m[id] = b
	}
	*t = TargetBranch{perProject: m}
	return nil
}
