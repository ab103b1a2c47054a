package prompt

import (
	"fmt"
	"strings"

	"github.com/bryanwahyu/trustlayer/internal/domain/analysis"
)

// EthicalCore is prepended to every chamber instruction.
const EthicalCore = `### PRIVACY & ETHICS ENFORCEMENT
- Do NOT make legal accusations.
- Do NOT label individuals as criminals.
- Provide decision support, not judgment.
- If content involves CSAE (Child Sexual Abuse Material), flag immediately as "ILLEGAL_CONTENT" in the summary and stop detailed analysis.`

// GetSystemPrompt combines a chamber instruction with the ethics preamble and output rules.
func GetSystemPrompt(instruction string) string {
	var b strings.Builder
	b.WriteString(EthicalCore)
	b.WriteString("\n\n")
	b.WriteString(strings.TrimSpace(instruction))
	b.WriteString(`

Output rules:
- Respond with exactly one JSON object matching the provided schema. No markdown, no code fences.
- ai_generated_probability is an integer from 0 to 100.
- deepfake_risk and confidence_level are one of: low, medium, high.
- artifacts_detected and model_likelihood are arrays of short strings (may be empty).
- content_type is one of: image, video, audio, text.`)
	return b.String()
}

// GetUserPrompt frames the attached content for the model.
func GetUserPrompt(contentType analysis.ContentType, name string) string {
	if name == "" {
		name = "upload"
	}
	return fmt.Sprintf("Analyze the attached %s content (%s) and respond with the JSON per schema.", contentType, name)
}
