package promptsynth

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"autoforge/internal/types"
)

func TestBuildIncludesFailureDetailsAndDirective(t *testing.T) {
	failure := types.TestFailure{
		TestName:       "add_returns_sum",
		FailureMessage: "expected 5, got -1",
		FilePath:       "src/main.rs",
		LineNumber:     12,
	}
	project := types.GeneratedProject{Language: "rust", Code: "fn add(a: i32, b: i32) -> i32 { a - b }"}

	req := Build(failure, project, "rust", 2048, 0.2)

	assert.Contains(t, req.SystemPrompt, "expert rust developer")
	assert.Contains(t, req.SystemPrompt, "Return ONLY the corrected code")
	assert.Contains(t, req.Prompt, "add_returns_sum")
	assert.Contains(t, req.Prompt, "expected 5, got -1")
	assert.Contains(t, req.Prompt, "src/main.rs:12")
	assert.Contains(t, req.Prompt, project.Code)
	assert.Contains(t, req.Prompt, "Return ONLY the fixed code")
	assert.Equal(t, 2048, req.MaxTokens)
	assert.InDelta(t, 0.2, req.Temperature, 0.001)
}

func TestBuildOmitsLocationWhenFileMissing(t *testing.T) {
	failure := types.TestFailure{TestName: "t", FailureMessage: "boom"}
	req := Build(failure, types.GeneratedProject{}, "go", 1024, 0.2)
	assert.NotContains(t, req.Prompt, "Location:")
}
