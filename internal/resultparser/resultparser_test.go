package resultparser

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"autoforge/internal/harness"
)

func TestParseCargoSummary(t *testing.T) {
	raw := harness.RawOutput{
		Framework: harness.FrameworkCargo,
		Stdout: "running 3 tests\n" +
			"---- add_returns_sum stdout ----\n" +
			"thread 'add_returns_sum' panicked at 'expected 5, got -1', src/main.rs:12\n\n" +
			"test result: FAILED. 2 passed; 1 failed; 0 ignored; 0 measured; 0 filtered out\n",
		ExitCode: 1,
	}
	report := Parse(raw)

	assert.Equal(t, 2, report.Passed)
	assert.Equal(t, 1, report.Failed)
	assert.Equal(t, 3, report.Total)
	assert.False(t, report.AllPassed)
	assert.Equal(t, report.Passed+report.Failed+report.Skipped, report.Total)
	if assert.Len(t, report.Failures, 1) {
		assert.Equal(t, "add_returns_sum", report.Failures[0].TestName)
		assert.Equal(t, "expected 5, got -1", report.Failures[0].FailureMessage)
		assert.Equal(t, "src/main.rs", report.Failures[0].FilePath)
		assert.Equal(t, 12, report.Failures[0].LineNumber)
	}
}

func TestParsePytestSummary(t *testing.T) {
	raw := harness.RawOutput{
		Framework: harness.FrameworkPytest,
		Stdout: "FAILED test_math.py::test_add - AssertionError: assert 5 == -1\n" +
			"================= 1 failed, 2 passed in 0.04s =================\n",
		ExitCode: 1,
	}
	report := Parse(raw)

	assert.Equal(t, 2, report.Passed)
	assert.Equal(t, 1, report.Failed)
	assert.Equal(t, 3, report.Total)
	assert.False(t, report.AllPassed)
	if assert.Len(t, report.Failures, 1) {
		assert.Contains(t, report.Failures[0].TestName, "test_math.py")
	}
}

func TestParseGoTest(t *testing.T) {
	raw := harness.RawOutput{
		Framework: harness.FrameworkGoTest,
		Stdout: "--- PASS: TestOne (0.00s)\n" +
			"--- FAIL: TestTwo (0.00s)\n" +
			"    math_test.go:20: expected 5, got -1\n",
		ExitCode: 1,
	}
	report := Parse(raw)

	assert.Equal(t, 1, report.Passed)
	assert.Equal(t, 1, report.Failed)
	assert.False(t, report.AllPassed)
	if assert.Len(t, report.Failures, 1) {
		assert.Equal(t, "TestTwo", report.Failures[0].TestName)
		assert.Equal(t, "math_test.go", report.Failures[0].FilePath)
		assert.Equal(t, 20, report.Failures[0].LineNumber)
	}
}

func TestParseAllPassedGoTest(t *testing.T) {
	raw := harness.RawOutput{
		Framework: harness.FrameworkGoTest,
		Stdout:    "--- PASS: TestOne (0.00s)\n--- PASS: TestTwo (0.00s)\n",
		ExitCode:  0,
	}
	report := Parse(raw)
	assert.True(t, report.AllPassed)
	assert.Equal(t, 0, report.Failed)
}

func TestParseMalformedInputNeverPanicsAndFallsBackToExitStatus(t *testing.T) {
	raw := harness.RawOutput{
		Framework: harness.FrameworkJest,
		Stdout:    "garbage garbage garbage\n\x00\xff not a report at all",
		ExitCode:  0,
	}
	assert.NotPanics(t, func() {
		report := Parse(raw)
		assert.Equal(t, 0, report.Total)
		assert.True(t, report.AllPassed)
	})
}

func TestParseJestSummary(t *testing.T) {
	raw := harness.RawOutput{
		Framework: harness.FrameworkJest,
		Stdout: "  ✕ sums two numbers (3 ms)\n" +
			"Tests:       1 failed, 2 passed, 3 total\n",
		ExitCode: 1,
	}
	report := Parse(raw)
	assert.Equal(t, 1, report.Failed)
	assert.Equal(t, 2, report.Passed)
	assert.Equal(t, 3, report.Total)
	assert.Len(t, report.Failures, 1)
}

func TestCoverageExtractionIsBestEffort(t *testing.T) {
	raw := harness.RawOutput{
		Framework: harness.FrameworkGoTest,
		Stdout:    "--- PASS: TestOne (0.00s)\ncoverage: 87.5% of statements\n",
		ExitCode:  0,
	}
	report := Parse(raw)
	if assert.NotNil(t, report.Coverage) {
		assert.InDelta(t, 87.5, *report.Coverage, 0.001)
	}
}
