// Package harness implements the Test Harness Adapter: it detects which
// test framework applies to a project directory and invokes it as an
// external process, capturing stdout/stderr/exit status verbatim. It does
// not interpret the output — that is internal/resultparser's job.
package harness

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"time"

	"autoforge/internal/apperr"
	"autoforge/internal/logging"
)

// Framework names a concrete test runner.
type Framework string

const (
	FrameworkCargo  Framework = "cargo-test"
	FrameworkPytest Framework = "pytest"
	FrameworkGoTest Framework = "go-test"
	FrameworkJest   Framework = "jest"
	FrameworkVitest Framework = "vitest"
	FrameworkMocha  Framework = "mocha"
)

// RawOutput is the verbatim, uninterpreted result of running a test suite.
type RawOutput struct {
	Framework    Framework
	Stdout       string
	Stderr       string
	ExitCode     int
	DurationMS   int64
	CoverageFile string
}

// DetectFramework inspects well-known manifest files in dir to choose a
// runner for language. Detection failure is fatal for the call, per the
// adapter's contract.
func DetectFramework(dir string, language string) (Framework, error) {
	switch language {
	case "rust":
		if exists(filepath.Join(dir, "Cargo.toml")) {
			return FrameworkCargo, nil
		}
	case "py", "python":
		if exists(filepath.Join(dir, "pytest.ini")) || exists(filepath.Join(dir, "pyproject.toml")) {
			return FrameworkPytest, nil
		}
		// pytest is also the default for python absent an explicit manifest.
		return FrameworkPytest, nil
	case "go":
		if exists(filepath.Join(dir, "go.mod")) {
			return FrameworkGoTest, nil
		}
	case "js", "ts", "javascript", "typescript":
		if fw, ok := detectJSFramework(dir); ok {
			return fw, nil
		}
		return FrameworkJest, nil
	}
	return "", &apperr.FrameworkUndetectedError{Language: language}
}

func detectJSFramework(dir string) (Framework, bool) {
	data, err := os.ReadFile(filepath.Join(dir, "package.json"))
	if err != nil {
		return "", false
	}
	switch {
	case bytes.Contains(data, []byte(`"vitest"`)):
		return FrameworkVitest, true
	case bytes.Contains(data, []byte(`"mocha"`)):
		return FrameworkMocha, true
	case bytes.Contains(data, []byte(`"jest"`)):
		return FrameworkJest, true
	}
	return "", false
}

func exists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}

// buildCommand returns the argv for running framework's test suite, with
// the native coverage flag appended when withCoverage is requested. This
// follows the exact external-process contract in spec §6.
func buildCommand(fw Framework, withCoverage bool) []string {
	switch fw {
	case FrameworkCargo:
		if withCoverage {
			return []string{"cargo", "tarpaulin", "--", "--nocapture"}
		}
		return []string{"cargo", "test", "--", "--nocapture"}
	case FrameworkPytest:
		if withCoverage {
			return []string{"pytest", "-v", "--tb=short", "--cov"}
		}
		return []string{"pytest", "-v", "--tb=short"}
	case FrameworkGoTest:
		if withCoverage {
			return []string{"go", "test", "-v", "-coverprofile=coverage.out", "./..."}
		}
		return []string{"go", "test", "-v", "./..."}
	case FrameworkVitest:
		return []string{"npx", "vitest", "run"}
	case FrameworkMocha, FrameworkJest:
		if withCoverage {
			return []string{"npm", "test", "--", "--verbose"}
		}
		return []string{"npm", "test", "--", "--verbose", "--no-coverage"}
	default:
		return []string{"npm", "test"}
	}
}

// RunTests invokes the detected framework's runner in dir and returns its
// raw, uninterpreted output. Timeouts are the caller's responsibility via
// ctx; the adapter injects no default deadline of its own.
func RunTests(ctx context.Context, dir string, language string, withCoverage bool) (RawOutput, error) {
	fw, err := DetectFramework(dir, language)
	if err != nil {
		return RawOutput{}, err
	}

	argv := buildCommand(fw, withCoverage)
	logging.HarnessDebug("running %v in %s", argv, dir)

	cmd := exec.CommandContext(ctx, argv[0], argv[1:]...)
	cmd.Dir = dir

	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	start := time.Now()
	runErr := cmd.Run()
	duration := time.Since(start)

	exitCode := 0
	if runErr != nil {
		if exitErr, ok := runErr.(*exec.ExitError); ok {
			exitCode = exitErr.ExitCode()
		} else {
			logging.HarnessWarn("test runner did not execute: %v", runErr)
			return RawOutput{}, &apperr.ExternalProcessFailedError{
				Command:  fmt.Sprintf("%v", argv),
				ExitCode: -1,
				Cause:    runErr,
			}
		}
	}

	out := RawOutput{
		Framework:  fw,
		Stdout:     stdout.String(),
		Stderr:     stderr.String(),
		ExitCode:   exitCode,
		DurationMS: duration.Milliseconds(),
	}
	if withCoverage {
		out.CoverageFile = coverageFileFor(fw, dir)
	}
	return out, nil
}

func coverageFileFor(fw Framework, dir string) string {
	switch fw {
	case FrameworkGoTest:
		return filepath.Join(dir, "coverage.out")
	case FrameworkCargo:
		return filepath.Join(dir, "tarpaulin-report.html")
	case FrameworkPytest:
		return filepath.Join(dir, ".coverage")
	default:
		return filepath.Join(dir, "coverage")
	}
}
