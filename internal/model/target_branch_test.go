package model

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTargetBranch_Resolve(t *testing.T) {
	tests := []struct {
		name      string
		target    TargetBranch
		projectID int
		expected  string
	}{
		{
			name:      "uniform branch for every project",
			target:    UniformTarget("release"),
			projectID: 42,
			expected:  "release",
		},
		{
			name:      "per project entry",
			target:    PerProjectTarget(map[int]string{1: "master", 2: "main"}),
			projectID: 1,
			expected:  "master",
		},
		{
			name:      "missing per project entry falls back to main",
			target:    PerProjectTarget(map[int]string{1: "master"}),
			projectID: 7,
			expected:  DefaultTargetBranch,
		},
		{
			name:      "empty per project entry falls back to main",
			target:    PerProjectTarget(map[int]string{7: ""}),
			projectID: 7,
			expected:  DefaultTargetBranch,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, tt.target.Resolve(tt.projectID))
		})
	}
}

func TestTargetBranch_UnmarshalJSON(t *testing.T) {
	t.Run("string", func(t *testing.T) {
		var tb TargetBranch
		require.NoError(t, json.Unmarshal([]byte(`"main"`), &tb))
		assert.False(t, tb.IsPerProject())
		assert.Equal(t, "main", tb.Uniform())
	})

	t.Run("object", func(t *testing.T) {
		var tb TargetBranch
		require.NoError(t, json.Unmarshal([]byte(`{"10":"master","11":"main"}`), &tb))
		assert.True(t, tb.IsPerProject())
		assert.Equal(t, "master", tb.Resolve(10))
		assert.Equal(t, "main", tb.Resolve(11))
		assert.Equal(t, DefaultTargetBranch, tb.Resolve(12))
	})

	t.Run("non numeric key", func(t *testing.T) {
		var tb TargetBranch
		assert.Error(t, json.Unmarshal([]byte(`{"abc":"main"}`), &tb))
	})

	t.Run("wrong type", func(t *testing.T) {
		var tb TargetBranch
		assert.Error(t, json.Unmarshal([]byte(`42`), &tb))
	})

	t.Run("inside create params", func(t *testing.T) {
		var p MergeRequestCreateParams
		require.NoError(t, json.Unmarshal([]byte(`{"sourceBranch":"develop","targetBranch":{"3":"prod"},"title":"Release"}`), &p))
		assert.Equal(t, "prod", p.TargetBranch.Resolve(3))
		assert.Equal(t, "develop", p.SourceBranch)
	})
}

func TestTargetBranch_MarshalJSON(t *testing.T) {
	b, err := json.Marshal(PerProjectTarget(map[int]string{5: "main"}))
	require.NoError(t, err)
	assert.JSONEq(t, `{"5":"main"}`, string(b))

	b, err = json.Marshal(UniformTarget("develop"))
	require.NoError(t, err)
	assert.JSONEq(t, `"develop"`, string(b))
}

func TestSummarize(t *testing.T) {
	s := Summarize([]*MergeRequestResult{
		{ProjectID: 1, Success: true},
		{ProjectID: 2, Success: false},
		{ProjectID: 3, Success: true},
	})
	assert.Equal(t, BatchSummary{Total: 3, Succeeded: 2, Failed: 1}, s)
}
