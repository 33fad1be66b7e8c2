// Package promptsynth builds the system+user LLMRequest from a TestFailure
// and the current primary source, following the fixed-template,
// strings.Builder-based prompt assembly this is grounded on. No chain-of-
// thought scaffolding is requested; determinism is preferred.
package promptsynth

import (
	"fmt"
	"strings"

	"autoforge/internal/types"
)

const systemPromptTemplate = "You are an expert %s developer and debugger. " +
	"You will be given a failing test and the current source code. " +
	"Return ONLY the corrected code, no explanations, no markdown fences, no prose."

// Build assembles an LLMRequest for failure against project's primary
// source in language. maxTokens and temperature bound the response only;
// input truncation is not performed here.
func Build(failure types.TestFailure, project types.GeneratedProject, language string, maxTokens int, temperature float64) types.LLMRequest {
	systemPrompt := fmt.Sprintf(systemPromptTemplate, language)

	var b strings.Builder
	fmt.Fprintf(&b, "Test: %s\n", failure.TestName)
	fmt.Fprintf(&b, "Error: %s\n", failure.FailureMessage)
	if failure.FilePath != "" {
		if failure.LineNumber > 0 {
			fmt.Fprintf(&b, "Location: %s:%d\n", failure.FilePath, failure.LineNumber)
		} else {
			fmt.Fprintf(&b, "Location: %s\n", failure.FilePath)
		}
	}
	if failure.Expected != "" || failure.Actual != "" {
		fmt.Fprintf(&b, "Expected: %s\nActual: %s\n", failure.Expected, failure.Actual)
	}

	b.WriteString("\nCurrent code:\n")
	b.WriteString("```")
	b.WriteString(language)
	b.WriteString("\n")
	b.WriteString(project.Code)
	b.WriteString("\n```\n")

	b.WriteString("\nProvide the corrected code for this file. Return ONLY the fixed code, no markdown, no explanations.")

	return types.LLMRequest{
		Prompt:       b.String(),
		SystemPrompt: systemPrompt,
		MaxTokens:    maxTokens,
		Temperature:  temperature,
	}
}
