// -----------------------------------------------------------------------
// Structured Generation - JSON-typed completions with fence stripping
// -----------------------------------------------------------------------

package generation

import (
	"context"
	"encoding/json"
	"regexp"
	"strings"

	"github.com/deyman9/AI-Meld-Report-Generator-sub001/internal/interfaces"
)

// fencePattern matches a complete fenced block: ```json\n or ```\n at
// start, and ``` at end.
var fencePattern = regexp.MustCompile(`(?s)^\s*` + "```" + `(?:json|JSON)?\s*\n?(.*?)\n?\s*` + "```" + `\s*$`)

// GenerateStructured asks for a JSON completion and unmarshals it into
// out. Uses a low temperature for parseable output. A response that fails
// to parse is reported as invalid_request and is not retried.
func GenerateStructured[T any](ctx context.Context, svc interfaces.GenerationService, prompt, systemPrompt string, out *T) error {
	response, err := svc.Generate(ctx, prompt, interfaces.GenerateOptions{
		SystemPrompt: systemPrompt,
		Temperature:  0.2,
	})
	if err != nil {
		return err
	}

	cleaned := cleanMarkdownFences(response)
	if err := json.Unmarshal([]byte(cleaned), out); err != nil {
		return invalidRequest("response is not valid JSON: %v", err)
	}
	return nil
}

// cleanMarkdownFences removes markdown code fences that models wrap
// around JSON output despite instructions not to.
func cleanMarkdownFences(s string) string {
	s = strings.TrimSpace(s)

	if matches := fencePattern.FindStringSubmatch(s); len(matches) > 1 {
		return strings.TrimSpace(matches[1])
	}

	// Fallback for partial or mismatched fences
	s = strings.TrimPrefix(s, "```json")
	s = strings.TrimPrefix(s, "```JSON")
	s = strings.TrimPrefix(s, "```")
	s = strings.TrimSuffix(s, "```")
	return strings.TrimSpace(s)
}
