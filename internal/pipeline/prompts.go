package pipeline

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/askagent/askagent/internal/helpers"
)

func sourceLabel(source SourceName) string {
	switch source {
	case SourceGoogle:
		return "Google search results"
	case SourceBing:
		return "Bing search results"
	case SourceReddit:
		return "Reddit posts and comments"
	}
	return string(source) + " results"
}

// analysisPrompts builds the system/user prompt pair for one source summary.
// The payload is pre-rendered and already bounded by the character budget.
func analysisPrompts(source SourceName, question, payload string) (string, string) {
	system := fmt.Sprintf(
		"You are a research analyst. You are given %s retrieved for a user's question. "+
			"Summarize the information that helps answer the question in a few concise paragraphs. "+
			"Mention concrete facts, names and figures from the results. "+
			"If the results contain nothing useful, say so plainly.",
		sourceLabel(source),
	)
	user := fmt.Sprintf("Question: %s\n\n%s:\n%s", question, sourceLabel(source), payload)
	return system, user
}

// synthesisPrompts combines the question and all per-source analyses, in the
// fixed source order, into the final synthesis prompt.
func synthesisPrompts(question string, analyses map[SourceName]SourceAnalysis) (string, string) {
	system := "You are a research assistant producing a final answer from several source summaries. " +
		"Combine the summaries into a single coherent answer to the user's question. " +
		"Prefer points confirmed by more than one source, note disagreements, and " +
		"acknowledge when a source contributed no data."

	var b strings.Builder
	fmt.Fprintf(&b, "Question: %s\n", question)
	for _, name := range sourceOrder {
		a := analyses[name]
		fmt.Fprintf(&b, "\n%s summary:\n%s\n", sourceLabel(name), a.Summary)
	}
	return system, b.String()
}

// renderPayload serializes a raw retrieval value for prompt inclusion,
// truncated to the configured character budget to respect model context
// limits.
func renderPayload(v any, budget int) string {
	if v == nil {
		return ""
	}
	b, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return helpers.Truncate(helpers.Str(v), budget)
	}
	return helpers.Truncate(string(b), budget)
}
