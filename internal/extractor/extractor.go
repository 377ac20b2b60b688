// Package extractor consolidates multi-frame profile captures into one
// ProfileRecord. Profiles are taller than the screen, so the loop scrolls and
// re-ingests until the record stops growing.
package extractor

import (
	"regexp"
	"strconv"
	"strings"

	"matchbot/internal/perception"
	"matchbot/internal/types"
)

// stableThreshold is how many consecutive ingests must add nothing before a
// record is considered complete. Two rules out a single stale screenshot.
const stableThreshold = 2

var ageRe = regexp.MustCompile(`\b(\d{2})\b`)

// Extractor builds profile records from capture text.
type Extractor struct {
	maxFrames int
	interests []string
}

// New creates an extractor. maxFrames caps scroll captures per profile so a
// misclassified screen can never scroll forever; interests is the configured
// preferred-interest keyword list used for tagging.
func New(maxFrames int, interests []string) *Extractor {
	lowered := make([]string, len(interests))
	for i, kw := range interests {
		lowered[i] = strings.ToLower(kw)
	}
	return &Extractor{maxFrames: maxFrames, interests: lowered}
}

// Begin starts a fresh, empty record.
func (e *Extractor) Begin() *types.ProfileRecord {
	return types.NewProfileRecord()
}

// Ingest merges one capture's extracted text into the record. Verbatim
// repeats (the same scroll position captured twice) are suppressed; the
// record tracks whether this ingest added anything for the stability check.
func (e *Extractor) Ingest(rec *types.ProfileRecord, capture *types.Capture, text string, cls *perception.Classification) {
	added := 0
	for _, line := range strings.Split(text, "\n") {
		if rec.AddFragment(line) {
			added++
		}
	}

	if rec.Name == "" && len(rec.Fragments) > 0 {
		name, age := parseNameAge(rec.Fragments[0])
		rec.Name = name
		if age != 0 {
			rec.Age = age
		}
	}
	if rec.Age == 0 {
		rec.Age = findAge(rec.Fragments)
	}

	lower := strings.ToLower(rec.AllText())
	for _, kw := range e.interests {
		if strings.Contains(lower, kw) {
			rec.AddInterest(kw)
		}
	}

	if cls != nil {
		if _, ok := cls.Element(perception.RolePhoto); ok {
			rec.AddPhoto(capture.ID)
		}
	}

	rec.MarkIngest(added)
}

// IsComplete reports whether scrolling further would gain nothing: either the
// record has been stable for stableThreshold ingests, or the frame cap was hit.
func (e *Extractor) IsComplete(rec *types.ProfileRecord) bool {
	return rec.StaleIngests() >= stableThreshold || rec.Frames >= e.maxFrames
}

// parseNameAge splits a header fragment like "Emma, 28" into its parts.
func parseNameAge(fragment string) (string, int) {
	name := fragment
	age := 0

	if idx := strings.IndexAny(fragment, ","); idx >= 0 {
		name = strings.TrimSpace(fragment[:idx])
		if a := extractAge(fragment[idx+1:]); a != 0 {
			age = a
		}
	}
	return name, age
}

// findAge scans the leading fragments for a plausible two-digit age. Only the
// top of the profile is considered so a "10 miles away" further down cannot
// masquerade as an age.
func findAge(fragments []string) int {
	limit := 3
	if len(fragments) < limit {
		limit = len(fragments)
	}
	for _, f := range fragments[:limit] {
		if a := extractAge(f); a != 0 {
			return a
		}
	}
	return 0
}

func extractAge(s string) int {
	for _, m := range ageRe.FindAllString(s, -1) {
		a, err := strconv.Atoi(m)
		if err == nil && a >= 18 && a <= 99 {
			return a
		}
	}
	return 0
}
