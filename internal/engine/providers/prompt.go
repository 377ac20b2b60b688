package providers

import (
	"encoding/json"
	"fmt"
	"strings"

	"matchbot/internal/config"
	"matchbot/internal/types"
)

// JudgmentResult represents the expected JSON structure from any LLM provider
type JudgmentResult struct {
	Action     string  `json:"action"`
	Comment    string  `json:"comment"`
	Confidence float64 `json:"confidence"`
	Rationale  string  `json:"rationale"`
}

// ParseJudgmentResponse parses raw JSON bytes from an LLM provider into a
// Decision. Each provider is responsible for assembling the complete JSON
// before calling this.
func ParseJudgmentResponse(jsonBytes []byte) (types.Decision, error) {
	var result JudgmentResult
	if err := json.Unmarshal(jsonBytes, &result); err != nil {
		return types.Decision{}, fmt.Errorf("failed to parse judgment JSON: %w (response was: %.500s)", err, string(jsonBytes))
	}

	return types.Decision{
		Action:     types.Action(strings.ToLower(strings.TrimSpace(result.Action))),
		Comment:    strings.TrimSpace(result.Comment),
		Confidence: result.Confidence,
		Rationale:  result.Rationale,
	}, nil
}

// buildPrompt constructs the LLM prompt for judging one profile
func buildPrompt(rec *types.ProfileRecord, criteria config.Criteria) string {
	var sb strings.Builder

	sb.WriteString("You are evaluating a dating profile on behalf of a user.\n\n")

	sb.WriteString("## User Criteria\n")
	sb.WriteString(fmt.Sprintf("Age range: %d to %d\n", criteria.MinAge, criteria.MaxAge))
	if len(criteria.PreferredInterests) > 0 {
		sb.WriteString(fmt.Sprintf("Preferred interests: %s\n", strings.Join(criteria.PreferredInterests, ", ")))
	}
	if len(criteria.PersonalityTraits) > 0 {
		sb.WriteString(fmt.Sprintf("Valued personality traits: %s\n", strings.Join(criteria.PersonalityTraits, ", ")))
	}
	if len(criteria.DealBreakers) > 0 {
		sb.WriteString(fmt.Sprintf("Deal-breakers (always pass): %s\n", strings.Join(criteria.DealBreakers, ", ")))
	}

	sb.WriteString("\n## Profile\n\n")
	if rec.Name != "" {
		sb.WriteString(fmt.Sprintf("Name: %s\n", rec.Name))
	}
	if rec.Age != 0 {
		sb.WriteString(fmt.Sprintf("Age: %d\n", rec.Age))
	}
	if len(rec.Interests) > 0 {
		sb.WriteString(fmt.Sprintf("Detected interests: %s\n", strings.Join(rec.Interests, ", ")))
	}
	sb.WriteString("\nProfile text (extracted from screenshots, may be noisy):\n")
	sb.WriteString(rec.AllText())
	sb.WriteString("\n")

	sb.WriteString("\n## Task\n\n")
	sb.WriteString("Decide one of three actions:\n")
	sb.WriteString("1. \"like\": the profile fits the criteria well\n")
	sb.WriteString("2. \"comment\": the profile fits exceptionally well and a specific detail invites a short, friendly opener\n")
	sb.WriteString("3. \"pass\": the profile does not fit the criteria\n\n")
	sb.WriteString("Provide:\n")
	sb.WriteString("- action (string): one of \"like\", \"comment\", \"pass\"\n")
	sb.WriteString("- comment (string): the opener text, required when action is \"comment\", empty otherwise. Keep it under 150 characters and reference something specific from the profile.\n")
	sb.WriteString("- confidence (0.0 to 1.0): how certain you are\n")
	sb.WriteString("- rationale (string): one sentence explaining the decision\n\n")

	sb.WriteString("IMPORTANT: Respond with ONLY a valid JSON object. No markdown, no code blocks, no explanation - just the raw JSON starting with { and ending with }.\n\n")
	sb.WriteString("Example structure:\n")
	sb.WriteString(`{"action": "comment", "comment": "Your hiking photos from Patagonia look incredible!", "confidence": 0.85, "rationale": "Strong overlap on outdoor interests."}`)
	sb.WriteString("\n")

	return sb.String()
}
