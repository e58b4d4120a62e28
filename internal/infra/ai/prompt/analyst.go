package prompt

import (
	"encoding/json"
	"fmt"
)

// GetSystemPrompt sets the tone and limits for longitudinal report narratives.
func GetSystemPrompt() string {
	return `You are a neuro-radiology assistant writing for clinicians. You receive one longitudinal tumor analysis report as JSON and write a short plain-language summary of it.

Requirements:
- Plain text only, no markdown, no bullet lists, at most 6 sentences.
- Describe the volume trend, the growth rate and doubling time when present, the urgency level and the next scan date.
- Mention every risk factor and whether the latest prediction needs human review, with the review reasons.
- Sections listed in "not_computable" had too little history; say so instead of guessing values.
- Never invent numbers that are not in the report and never give a diagnosis or prognosis beyond the report.`
}

// GetUserPrompt wraps a report for the model. The raw history is dropped to
// keep the prompt compact; every derived section is kept.
func GetUserPrompt(report []byte) (string, error) {
	var fields map[string]json.RawMessage
	if err := json.Unmarshal(report, &fields); err != nil {
		return "", fmt.Errorf("prompt: decode report: %w", err)
	}
	delete(fields, "historical_data")
	compact, err := json.Marshal(fields)
	if err != nil {
		return "", fmt.Errorf("prompt: encode report: %w", err)
	}
	return fmt.Sprintf("Summarize this longitudinal analysis report:\n%s", compact), nil
}
