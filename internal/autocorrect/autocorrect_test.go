package autocorrect

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"autoforge/internal/lockregistry"
	"autoforge/internal/providers"
	"autoforge/internal/types"
)

// scriptedRunner replays a fixed sequence of TestReports, one per call,
// holding on the last entry once exhausted. This lets seed scenarios pin
// down exactly how many times run_tests is invoked per iteration.
type scriptedRunner struct {
	reports []types.TestReport
	calls   int
}

func (s *scriptedRunner) run(ctx context.Context, dir, language string) (types.TestReport, error) {
	idx := s.calls
	if idx >= len(s.reports) {
		idx = len(s.reports) - 1
	}
	s.calls++
	return s.reports[idx], nil
}

func failureReport(framework string, failed int, name string) types.TestReport {
	failures := make([]types.TestFailure, 0, failed)
	for i := 0; i < failed; i++ {
		failures = append(failures, types.TestFailure{
			TestName:       name,
			FailureMessage: "assertion failed",
		})
	}
	return types.TestReport{
		Framework: framework,
		AllPassed: failed == 0,
		Total:     failed + 1,
		Passed:    1,
		Failed:    failed,
		Failures:  failures,
	}
}

func fakePool(t *testing.T, content string) *providers.Pool {
	t.Helper()
	return providers.NewPool(fakeProvider{content: content})
}

type fakeProvider struct{ content string }

func (f fakeProvider) Name() string      { return "fake" }
func (f fakeProvider) Available() bool   { return true }
func (f fakeProvider) Call(ctx context.Context, req types.LLMRequest) (types.LLMResponse, error) {
	return types.LLMResponse{Content: f.content, ProviderTag: "fake"}, nil
}

func TestRunHappyPathConvergesInOneIteration(t *testing.T) {
	// S1: a single failing test, the mock LLM's first fix passes.
	runner := &scriptedRunner{reports: []types.TestReport{
		failureReport("cargo", 1, "add_returns_sum"),
		failureReport("cargo", 0, ""),
	}}

	ctrl := New(DefaultConfig(), fakePool(t, "fn add(a: i32, b: i32) -> i32 { a + b }"), nil, runner.run)
	project := &types.GeneratedProject{Language: "rust", Code: "fn add(a: i32, b: i32) -> i32 { a - b }"}

	result, err := ctrl.Run(context.Background(), project, t.TempDir())
	require.NoError(t, err)

	assert.True(t, result.Converged)
	assert.Equal(t, 1, result.IterationsCompleted)
	require.Len(t, result.History, 1)
	assert.True(t, result.History[0].FailuresBeforeUndef)
	assert.Equal(t, 0, result.History[0].FailuresAfter)
	assert.True(t, result.History[0].Success)
}

func TestRunDetectsStallAfterSecondIteration(t *testing.T) {
	// S2: the mock LLM never changes the broken file; failures never drop.
	runner := &scriptedRunner{reports: []types.TestReport{
		failureReport("pytest", 10, "test_x"),
		failureReport("pytest", 10, "test_x"),
		failureReport("pytest", 10, "test_x"),
	}}

	ctrl := New(DefaultConfig(), fakePool(t, "def f(): pass"), nil, runner.run)
	project := &types.GeneratedProject{Language: "py", Code: "def f(): return None"}

	result, err := ctrl.Run(context.Background(), project, t.TempDir())
	require.NoError(t, err)

	assert.False(t, result.Converged)
	assert.Equal(t, 2, result.IterationsCompleted)
	require.Len(t, result.History, 2)
	assert.InDelta(t, 0.0, result.History[1].ImprovementPercent, 0.001)
}

func TestRunHitsIterationCapWithSteadyImprovement(t *testing.T) {
	// S3: failures decrease by exactly one per iteration but never reach
	// zero before the configured cap.
	runner := &scriptedRunner{reports: []types.TestReport{
		failureReport("go-test", 10, "TestA"),
		failureReport("go-test", 9, "TestA"),
		failureReport("go-test", 8, "TestA"),
		failureReport("go-test", 7, "TestA"),
		failureReport("go-test", 6, "TestA"),
		failureReport("go-test", 5, "TestA"),
	}}

	cfg := DefaultConfig()
	cfg.MaxIterations = 5
	ctrl := New(cfg, fakePool(t, "package main"), nil, runner.run)
	project := &types.GeneratedProject{Language: "go", Code: "package main"}

	result, err := ctrl.Run(context.Background(), project, t.TempDir())
	require.NoError(t, err)

	assert.False(t, result.Converged)
	assert.Equal(t, 5, result.IterationsCompleted)
	require.Len(t, result.History, 5)
	assert.Equal(t, 5, result.History[4].FailuresAfter)
}

func TestRunNeverAppliesHeuristicFixToDisk(t *testing.T) {
	runner := &scriptedRunner{reports: []types.TestReport{
		failureReport("cargo", 1, "t"),
		failureReport("cargo", 1, "t"),
	}}

	pool := providers.NewPool(failingProvider{})
	ctrl := New(DefaultConfig(), pool, nil, runner.run)
	dir := t.TempDir()
	require.NoError(t, os.MkdirAll(filepath.Join(dir, "src"), 0755))
	mainPath := filepath.Join(dir, "src", "main.rs")
	require.NoError(t, os.WriteFile(mainPath, []byte("original"), 0644))

	project := &types.GeneratedProject{Language: "rust", Code: "original"}
	result, err := ctrl.Run(context.Background(), project, dir)
	require.NoError(t, err)

	require.Len(t, result.History, 2)
	assert.Equal(t, "heuristic", result.History[0].FixesApplied[0].Strategy)
	assert.Empty(t, result.History[0].FixesApplied[0].ProviderTag)

	onDisk, err := os.ReadFile(mainPath)
	require.NoError(t, err)
	assert.Equal(t, "original", string(onDisk))
	assert.Equal(t, "original", project.Code)
}

type failingProvider struct{}

func (failingProvider) Name() string    { return "failing" }
func (failingProvider) Available() bool { return true }
func (failingProvider) Call(ctx context.Context, req types.LLMRequest) (types.LLMResponse, error) {
	return types.LLMResponse{}, assert.AnError
}

func TestRunRespectsLockedFileRegistry(t *testing.T) {
	// S6: a locked primary file is never overwritten; the attempt is still
	// recorded with its fix marked applied (as a suggestion).
	dir := t.TempDir()
	require.NoError(t, os.MkdirAll(filepath.Join(dir, "src"), 0755))
	mainPath := filepath.Join(dir, "src", "main.go")
	require.NoError(t, os.WriteFile(mainPath, []byte("package main // locked"), 0644))

	locks, err := lockregistry.Load(dir, []string{"src/main.go"}, false)
	require.NoError(t, err)

	runner := &scriptedRunner{reports: []types.TestReport{
		failureReport("go-test", 1, "TestLocked"),
		failureReport("go-test", 1, "TestLocked"),
	}}

	ctrl := New(DefaultConfig(), fakePool(t, "package main // patched"), locks, runner.run)
	project := &types.GeneratedProject{Language: "go", Code: "package main // locked"}

	result, err := ctrl.Run(context.Background(), project, dir)
	require.NoError(t, err)

	require.Len(t, result.History, 2)

	onDisk, err := os.ReadFile(mainPath)
	require.NoError(t, err)
	assert.Equal(t, "package main // locked", string(onDisk))
	assert.Equal(t, "package main // locked", project.Code)

	suggested, err := os.ReadFile(filepath.Join(dir, "src", "main.suggested.go"))
	require.NoError(t, err)
	assert.Contains(t, string(suggested), "patched")
}

func TestRunZeroMaxIterationsReturnsImmediately(t *testing.T) {
	runner := &scriptedRunner{reports: []types.TestReport{failureReport("go-test", 3, "T")}}
	cfg := DefaultConfig()
	cfg.MaxIterations = 0
	ctrl := New(cfg, fakePool(t, ""), nil, runner.run)

	result, err := ctrl.Run(context.Background(), &types.GeneratedProject{Language: "go"}, t.TempDir())
	require.NoError(t, err)

	assert.False(t, result.Converged)
	assert.Empty(t, result.History)
	assert.Equal(t, 0, runner.calls)
}

func TestRunAlreadyPassingProjectConvergesWithoutIterations(t *testing.T) {
	runner := &scriptedRunner{reports: []types.TestReport{failureReport("go-test", 0, "")}}
	ctrl := New(DefaultConfig(), fakePool(t, ""), nil, runner.run)

	result, err := ctrl.Run(context.Background(), &types.GeneratedProject{Language: "go"}, t.TempDir())
	require.NoError(t, err)

	assert.True(t, result.Converged)
	assert.Equal(t, 0, result.IterationsCompleted)
	assert.Empty(t, result.History)
}
