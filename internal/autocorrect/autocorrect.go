// Package autocorrect implements the Autocorrection Controller: the heart
// of the system. Given a GeneratedProject and its project directory, it
// drives the test → diagnose → prompt → apply → retest state machine
// until convergence, a stall, or the iteration cap, recording exactly one
// CorrectionAttempt per iteration and respecting the Locked-File Registry
// on every write.
package autocorrect

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"autoforge/internal/apperr"
	"autoforge/internal/lockregistry"
	"autoforge/internal/logging"
	"autoforge/internal/promptsynth"
	"autoforge/internal/providers"
	"autoforge/internal/types"
)

// Config tunes the self-healing loop; see spec §4.8 for the full
// rationale behind each default.
type Config struct {
	MaxIterations            int
	TopKFailuresPerIteration int
	MinImprovementPercent    float64
	LLMTemperatureForFixes   float64
	LLMMaxTokensForFixes     int
}

// DefaultConfig returns the documented tunable defaults.
func DefaultConfig() Config {
	return Config{
		MaxIterations:            5,
		TopKFailuresPerIteration: 5,
		MinImprovementPercent:    5.0,
		LLMTemperatureForFixes:   0.2,
		LLMMaxTokensForFixes:     4096,
	}
}

// TestRunner executes the project's test suite and returns a uniform
// report. Production callers wire this to harness.RunTests followed by
// resultparser.Parse; tests substitute a fake runner to drive seed
// scenarios deterministically.
type TestRunner func(ctx context.Context, projectDir, language string) (types.TestReport, error)

// Controller drives run_autocorrection.
type Controller struct {
	cfg      Config
	pool     *providers.Pool
	locks    *lockregistry.Registry
	runTests TestRunner
}

// New constructs a Controller. locks may be nil, in which case no path is
// ever considered locked.
func New(cfg Config, pool *providers.Pool, locks *lockregistry.Registry, runTests TestRunner) *Controller {
	return &Controller{cfg: cfg, pool: pool, locks: locks, runTests: runTests}
}

var extByLanguage = map[string]string{
	"rust":       "rs",
	"py":         "py",
	"python":     "py",
	"go":         "go",
	"ts":         "ts",
	"typescript": "ts",
	"js":         "ts",
	"javascript": "ts",
}

func primaryFileExt(language string) string {
	if ext, ok := extByLanguage[language]; ok {
		return ext
	}
	return "txt"
}

// Run executes run_autocorrection over project rooted at projectDir.
func (c *Controller) Run(ctx context.Context, project *types.GeneratedProject, projectDir string) (types.AutocorrectionResult, error) {
	if c.cfg.MaxIterations <= 0 {
		return types.AutocorrectionResult{Converged: false, History: []types.CorrectionAttempt{}}, nil
	}

	report, err := c.runTests(ctx, projectDir, project.Language)
	if err != nil {
		return types.AutocorrectionResult{}, err
	}

	if report.AllPassed {
		return types.AutocorrectionResult{
			Converged:   true,
			FinalReport: report,
			History:     []types.CorrectionAttempt{},
			FinalCode:   project.Code,
		}, nil
	}

	var history []types.CorrectionAttempt
	currentFailures := report.Failed

	for iteration := 1; iteration <= c.cfg.MaxIterations; iteration++ {
		beforeCount := currentFailures
		beforeUndefined := iteration == 1

		targets := report.Failures
		if len(targets) > c.cfg.TopKFailuresPerIteration {
			targets = targets[:c.cfg.TopKFailuresPerIteration]
		}

		fixes := c.generateFixes(ctx, targets, *project, project.Language)
		applied := c.applyFixes(project, projectDir, fixes)

		report, err = c.runTests(ctx, projectDir, project.Language)
		if err != nil {
			return types.AutocorrectionResult{}, err
		}

		afterCount := report.Failed
		var improvement float64
		if !beforeUndefined && beforeCount > 0 {
			improvement = float64(beforeCount-afterCount) / float64(beforeCount) * 100
		}

		attempt := types.CorrectionAttempt{
			Iteration:           iteration,
			FailuresBefore:      beforeCount,
			FailuresBeforeUndef: beforeUndefined,
			FailuresAfter:       afterCount,
			ImprovementPercent:  improvement,
			FixesApplied:        applied,
			Success:             afterCount < beforeCount,
		}
		history = append(history, attempt)
		currentFailures = afterCount

		logging.AutocorrectDebug("iteration %d: before=%d after=%d improvement=%.1f%% success=%v",
			iteration, beforeCount, afterCount, improvement, attempt.Success)

		if report.AllPassed {
			return types.AutocorrectionResult{
				Converged:           true,
				IterationsCompleted: iteration,
				FinalReport:         report,
				History:             history,
				FinalCode:           project.Code,
			}, nil
		}

		if iteration > 1 && !beforeUndefined && beforeCount > 0 && improvement < c.cfg.MinImprovementPercent {
			logging.AutocorrectWarn("stall detected at iteration %d: improvement %.1f%% below threshold %.1f%%",
				iteration, improvement, c.cfg.MinImprovementPercent)
			return types.AutocorrectionResult{
				Converged:           false,
				IterationsCompleted: iteration,
				FinalReport:         report,
				History:             history,
				FinalCode:           project.Code,
			}, nil
		}
	}

	return types.AutocorrectionResult{
		Converged:           false,
		IterationsCompleted: c.cfg.MaxIterations,
		FinalReport:         report,
		History:             history,
		FinalCode:           project.Code,
	}, nil
}

// generateFixes synthesizes one prompt per target failure and requests a
// fix from the provider pool. A pool exhaustion (every provider failed)
// degrades to a recorded heuristic placeholder rather than propagating —
// the autocorrection controller never treats a transient LLM failure as
// catastrophic.
func (c *Controller) generateFixes(ctx context.Context, targets []types.TestFailure, project types.GeneratedProject, language string) []types.FixDescription {
	fixes := make([]types.FixDescription, 0, len(targets))
	for _, failure := range targets {
		req := promptsynth.Build(failure, project, language, c.cfg.LLMMaxTokensForFixes, c.cfg.LLMTemperatureForFixes)

		resp, err := c.pool.Generate(ctx, req)
		signature := failureSignature(failure)

		if err != nil {
			logging.AutocorrectWarn("llm exhausted for %q, falling back to heuristic: %v", failure.TestName, err)
			fixes = append(fixes, types.FixDescription{
				FailureSignature: signature,
				Strategy:         "heuristic",
				PatchContent:     heuristicLabel(failure.FailureMessage),
				ProviderTag:      "",
			})
			continue
		}

		logging.Autocorrect("fix for %q generated by provider %s", failure.TestName, resp.ProviderTag)
		fixes = append(fixes, types.FixDescription{
			FailureSignature: signature,
			Strategy:         resp.ProviderTag,
			PatchContent:     resp.Content,
			ProviderTag:      resp.ProviderTag,
		})
	}
	return fixes
}

func failureSignature(f types.TestFailure) string {
	return fmt.Sprintf("%s:%s", f.TestName, f.FailureMessage)
}

// heuristicLabel substring-matches the failure message into a human
// readable label. The returned text intentionally does not replace any
// source file — it exists only so the attempt is still visible in history.
func heuristicLabel(message string) string {
	lower := strings.ToLower(message)
	switch {
	case strings.Contains(lower, "assertion"):
		return "heuristic: assertion failure, no automatic fix available"
	case strings.Contains(lower, "null") || strings.Contains(lower, "none"):
		return "heuristic: null/None reference, no automatic fix available"
	case strings.Contains(lower, "type"):
		return "heuristic: type mismatch, no automatic fix available"
	default:
		return "heuristic: unclassified failure, no automatic fix available"
	}
}

// applyFixes applies each fix meeting the apply gate — non-empty content
// attributed to a real provider — as a wholesale replacement of the
// project's primary source file, subject to the Locked-File Registry. A
// locked target gets a suggestion sibling instead and the in-memory
// project is left untouched, matching the registry's veto contract.
func (c *Controller) applyFixes(project *types.GeneratedProject, projectDir string, fixes []types.FixDescription) []types.FixDescription {
	if len(fixes) == 0 {
		return fixes
	}

	ext := primaryFileExt(project.Language)
	primaryPath := filepath.Join(projectDir, "src", "main."+ext)

	for _, fix := range fixes {
		if fix.PatchContent == "" || fix.ProviderTag == "" {
			continue // heuristic or empty content never replaces the source.
		}

		if c.locks != nil && c.locks.IsLocked(primaryPath) {
			if _, err := lockregistry.Suggest(primaryPath, fix.PatchContent); err != nil {
				logging.AutocorrectWarn("failed to write suggestion for locked path %s: %v", primaryPath, err)
			}
			continue
		}

		if err := writeFileAtomically(primaryPath, fix.PatchContent); err != nil {
			logging.AutocorrectWarn("failed to apply fix to %s: %v", primaryPath, err)
			continue
		}
		project.Code = fix.PatchContent
	}

	return fixes
}

// writeFileAtomically stages content through a temp file in the same
// directory, then renames it into place, so an interrupted write never
// leaves a half-written primary source file on disk.
func writeFileAtomically(path, content string) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return &apperr.IOFailureError{Op: "mkdir", Path: dir, Cause: err}
	}

	tmp, err := os.CreateTemp(dir, ".fix-*.tmp")
	if err != nil {
		return &apperr.IOFailureError{Op: "create temp", Path: dir, Cause: err}
	}
	tmpName := tmp.Name()
	if _, err := tmp.WriteString(content); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return &apperr.IOFailureError{Op: "write", Path: tmpName, Cause: err}
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return &apperr.IOFailureError{Op: "close", Path: tmpName, Cause: err}
	}
	if err := os.Rename(tmpName, path); err != nil {
		os.Remove(tmpName)
		return &apperr.IOFailureError{Op: "rename", Path: path, Cause: err}
	}
	return nil
}
