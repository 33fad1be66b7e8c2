// Package resultparser converts framework-specific raw test output into
// the uniform types.TestReport. Each framework gets one pure function over
// the raw bytes; none of them panic on malformed input — unrecognized
// lines are simply ignored, mirroring the line-oriented state-machine
// parsers this package is grounded on.
package resultparser

import (
	"regexp"
	"strconv"
	"strings"

	"autoforge/internal/harness"
	"autoforge/internal/types"
)

var (
	cargoSummaryRegex = regexp.MustCompile(`test result:\s+\w+\.\s+(\d+)\s+passed;\s+(\d+)\s+failed;\s+(\d+)\s+ignored`)
	cargoFailRegex    = regexp.MustCompile(`^---- (\S+) stdout ----`)
	cargoPanicRegex   = regexp.MustCompile(`panicked at '([^']*)'(?:,\s*(\S+):(\d+))?`)

	pytestSummaryRegex     = regexp.MustCompile(`(?m)^=+\s*(.*?)\s*in [\d.]+s`)
	pytestCountRegex       = regexp.MustCompile(`(\d+) (passed|failed|skipped)`)
	pytestShortSummaryLine = regexp.MustCompile(`^FAILED (\S+)(?:::(\S+))? - (.*)$`)

	goPassLine = regexp.MustCompile(`^--- PASS: (\S+)`)
	goFailLine = regexp.MustCompile(`^--- FAIL: (\S+)`)
	goErrorLoc = regexp.MustCompile(`^\s*(\S+\.go):(\d+):\s*(.*)$`)

	jestFailSuiteLine = regexp.MustCompile(`^\s*✕\s+(.+?)(?:\s+\(\d+\s*ms\))?$`)
	jestSummaryLine   = regexp.MustCompile(`Tests:\s+(?:(\d+) failed,\s*)?(?:(\d+) skipped,\s*)?(\d+) passed,\s*(\d+) total`)

	coverageLinePatterns = []*regexp.Regexp{
		regexp.MustCompile(`(?i)TOTAL.*?(\d+(?:\.\d+)?)%`),
		regexp.MustCompile(`(?i)coverage:\s*(\d+(?:\.\d+)?)%\s+of statements`),
		regexp.MustCompile(`(?i)(\d+(?:\.\d+)?)%\s+coverage`),
		regexp.MustCompile(`(?i)All files\s*\|\s*(\d+(?:\.\d+)?)`),
	}
)

// Parse dispatches raw output to the parser for fw and returns a uniform
// TestReport. Parsing never errors; malformed or absent summaries yield a
// zero-failure report with all_passed derived from the process exit status.
func Parse(raw harness.RawOutput) types.TestReport {
	var report types.TestReport
	switch raw.Framework {
	case harness.FrameworkCargo:
		report = parseCargo(raw)
	case harness.FrameworkPytest:
		report = parsePytest(raw)
	case harness.FrameworkGoTest:
		report = parseGoTest(raw)
	case harness.FrameworkJest, harness.FrameworkVitest, harness.FrameworkMocha:
		report = parseJSReporter(raw)
	default:
		report = types.TestReport{Framework: string(raw.Framework), RawOutput: raw.Stdout + raw.Stderr}
	}

	report.DurationMS = raw.DurationMS
	report.RawOutput = raw.Stdout + raw.Stderr
	if report.Total == 0 && len(report.Failures) == 0 {
		// No recognizable summary line: fall back to exit status.
		report.AllPassed = raw.ExitCode == 0
	}
	if cov := extractCoverage(raw.Stdout); cov != nil {
		report.Coverage = cov
	}
	return report
}

func extractCoverage(output string) *float64 {
	for _, re := range coverageLinePatterns {
		if m := re.FindStringSubmatch(output); m != nil {
			if v, err := strconv.ParseFloat(m[1], 64); err == nil {
				return &v
			}
		}
	}
	return nil
}

func parseCargo(raw harness.RawOutput) types.TestReport {
	output := raw.Stdout + raw.Stderr
	report := types.TestReport{Framework: string(harness.FrameworkCargo)}

	m := cargoSummaryRegex.FindStringSubmatch(output)
	if m == nil {
		return report
	}
	passed, _ := strconv.Atoi(m[1])
	failed, _ := strconv.Atoi(m[2])
	ignored, _ := strconv.Atoi(m[3])
	report.Passed = passed
	report.Failed = failed
	report.Skipped = ignored
	report.Total = passed + failed + ignored
	report.AllPassed = failed == 0 && raw.ExitCode == 0

	report.Failures = parseCargoFailures(output)
	return report
}

func parseCargoFailures(output string) []types.TestFailure {
	var failures []types.TestFailure
	lines := strings.Split(output, "\n")
	var current *types.TestFailure
	for i, line := range lines {
		if m := cargoFailRegex.FindStringSubmatch(line); m != nil {
			if current != nil {
				failures = append(failures, *current)
			}
			current = &types.TestFailure{TestName: m[1]}
			continue
		}
		if current == nil {
			continue
		}
		if pm := cargoPanicRegex.FindStringSubmatch(line); pm != nil {
			current.FailureMessage = pm[1]
			current.FilePath = pm[2]
			if pm[3] != "" {
				if n, err := strconv.Atoi(pm[3]); err == nil {
					current.LineNumber = n
				}
			}
		} else if current.FailureMessage == "" && i < len(lines) {
			// Keep the first non-empty line as a fallback message.
			if trimmed := strings.TrimSpace(line); trimmed != "" {
				current.FailureMessage = trimmed
			}
		}
	}
	if current != nil {
		failures = append(failures, *current)
	}
	return failures
}

func parsePytest(raw harness.RawOutput) types.TestReport {
	output := raw.Stdout + raw.Stderr
	report := types.TestReport{Framework: string(harness.FrameworkPytest)}

	m := pytestSummaryRegex.FindStringSubmatch(output)
	if m != nil {
		// pytest orders the counts by outcome ("1 failed, 2 passed"), so each
		// count is picked out of the summary line by its label.
		for _, c := range pytestCountRegex.FindAllStringSubmatch(m[1], -1) {
			n, _ := strconv.Atoi(c[1])
			switch c[2] {
			case "passed":
				report.Passed = n
			case "failed":
				report.Failed = n
			case "skipped":
				report.Skipped = n
			}
		}
		report.Total = report.Passed + report.Failed + report.Skipped
		report.AllPassed = report.Failed == 0 && raw.ExitCode == 0
	}

	for _, line := range strings.Split(output, "\n") {
		if fm := pytestShortSummaryLine.FindStringSubmatch(line); fm != nil {
			report.Failures = append(report.Failures, types.TestFailure{
				TestName:       strings.TrimSpace(fm[1] + " " + fm[2]),
				FailureMessage: strings.TrimSpace(fm[3]),
			})
		}
	}
	return report
}

func parseGoTest(raw harness.RawOutput) types.TestReport {
	output := raw.Stdout + raw.Stderr
	report := types.TestReport{Framework: string(harness.FrameworkGoTest)}

	var failures []types.TestFailure
	var lastFailName string
	lines := strings.Split(output, "\n")
	for i, line := range lines {
		switch {
		case goPassLine.MatchString(line):
			report.Passed++
		case goFailLine.MatchString(line):
			report.Failed++
			m := goFailLine.FindStringSubmatch(line)
			lastFailName = m[1]
			tf := types.TestFailure{TestName: lastFailName}
			// Scan nearby lines for a file:line: message annotation.
			for j := i + 1; j < len(lines) && j < i+10; j++ {
				if em := goErrorLoc.FindStringSubmatch(lines[j]); em != nil {
					tf.FilePath = em[1]
					if n, err := strconv.Atoi(em[2]); err == nil {
						tf.LineNumber = n
					}
					tf.FailureMessage = em[3]
					break
				}
			}
			failures = append(failures, tf)
		}
	}
	report.Failures = failures
	report.Total = report.Passed + report.Failed
	report.AllPassed = report.Failed == 0 && raw.ExitCode == 0
	return report
}

func parseJSReporter(raw harness.RawOutput) types.TestReport {
	output := raw.Stdout + raw.Stderr
	report := types.TestReport{Framework: string(raw.Framework)}

	if m := jestSummaryLine.FindStringSubmatch(output); m != nil {
		if m[1] != "" {
			report.Failed, _ = strconv.Atoi(m[1])
		}
		if m[2] != "" {
			report.Skipped, _ = strconv.Atoi(m[2])
		}
		report.Passed, _ = strconv.Atoi(m[3])
		report.AllPassed = report.Failed == 0 && raw.ExitCode == 0
	}
	report.Total = report.Passed + report.Failed + report.Skipped

	for _, line := range strings.Split(output, "\n") {
		if m := jestFailSuiteLine.FindStringSubmatch(line); m != nil {
			report.Failures = append(report.Failures, types.TestFailure{
				TestName: strings.TrimSpace(m[1]),
			})
		}
	}
	return report
}
