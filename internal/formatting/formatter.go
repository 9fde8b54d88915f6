// Package formatting cleans raw model output before it reaches the user.
// Reasoning-tuned models often leak planning text ("We need to...", "Let me
// think...") ahead of the structured answer; the cleaner cuts everything
// before the first markdown section.
package formatting

import "strings"

// CleanAnalysis strips leading meta-commentary from a model reply. It looks
// for the given markers first, then falls back to the first markdown header
// line. When no structure is found the reply is returned unchanged.
func CleanAnalysis(response string, markers ...string) string {
	for _, marker := range markers {
		if idx := strings.Index(response, marker); idx >= 0 {
			return strings.TrimSpace(response[idx:])
		}
	}

	lines := strings.Split(response, "\n")
	for i, line := range lines {
		trimmed := strings.TrimSpace(line)
		if strings.HasPrefix(trimmed, "##") {
			return strings.TrimSpace(strings.Join(lines[i:], "\n"))
		}
	}

	return response
}
